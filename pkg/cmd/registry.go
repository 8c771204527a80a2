package cmd

import (
	"log/slog"

	"github.com/roadplatform/road/pkg/nodes/httprequest"
	"github.com/roadplatform/road/pkg/nodes/logmsg"
	"github.com/roadplatform/road/pkg/nodes/prompt"
	"github.com/roadplatform/road/pkg/nodes/transform"
	"github.com/roadplatform/road/pkg/runner"
)

// NewRegistry builds a runner registry with the native node types registered.
func NewRegistry(logger *slog.Logger) *runner.Registry {
	reg := runner.NewRegistry(logger)

	reg.Register(prompt.NewFactory())
	reg.Register(transform.NewFactory())
	reg.Register(logmsg.NewFactory())
	reg.Register(httprequest.NewFactory())

	return reg
}
