package models

import "time"

// Member represents a chapter member (directory entry + login identity)
type Member struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	Company      string    `bson:"company,omitempty" json:"company,omitempty"`
	Active       bool      `bson:"active" json:"active"`
	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
