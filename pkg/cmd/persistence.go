// Package cmd provides common initialization functions for the road binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roadplatform/road/pkg/persistence"
	"github.com/roadplatform/road/pkg/persistence/file"
	"github.com/roadplatform/road/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence provider from the database URL scheme:
// postgres/postgresql connect to PostgreSQL, anything else falls back to the
// file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
