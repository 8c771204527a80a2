package models

import "time"

// ChatMessage is one turn in a stored conversation.
type ChatMessage struct {
	Role      string     `json:"role"    validate:"required,oneof=system user assistant"`
	Content   string     `json:"content" validate:"required"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Conversation is a persisted chat history for one playground session.
type Conversation struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"     validate:"required"`
	ModelName     string         `json:"model_name"     validate:"required"`
	ModelProvider string         `json:"model_provider" validate:"required"`
	SystemPrompt  string         `json:"system_prompt,omitempty"`
	Messages      []ChatMessage  `json:"messages"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
