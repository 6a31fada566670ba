// Package model holds the records shared by storage, services and handlers.
package model

import "time"

// Snippet is a saved program in one language.
type Snippet struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Language    string    `json:"language" yaml:"language"`
	Code        string    `json:"code" yaml:"code"`
	Description string    `json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}
