// Package domain contains core concepts of the chat system.
// This file defines connection identities.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

// ConnectionID identifies one live transport connection.
// A single user may hold several connections.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}
