package models

import "time"

// Prompt is a stored, versioned prompt template.
type Prompt struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"        validate:"required"`
	Version     string    `json:"version"`
	Content     string    `json:"content"     validate:"required"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
