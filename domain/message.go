// Package domain contains core concepts of the chat system.
// This file defines ChatMessage and the rules applied to message content.
// Messages are immutable once built.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MaxMessageLength is the largest accepted raw body, in characters.
	MaxMessageLength = 515
	AnonymousSender  = "Anonymous"
	// TimestampLayout is the wire format of message timestamps (YYYY-MM-DD HH:MM:SS).
	TimestampLayout = "2006-01-02 15:04:05"
)

// ChatMessage is an accepted message, persisted then broadcast to its room.
type ChatMessage struct {
	ID       uuid.UUID
	Room     RoomID
	Sender   string
	Body     string
	At       time.Time
	Mentions []string
	Lang     string
}

// SanitizedText is the outcome of cleaning a raw message body.
type SanitizedText struct {
	Body          string
	Mentions      []string
	CensoredWords []string
	Lang          string
}

func NewChatMessage(room RoomID, sender string, text SanitizedText, at time.Time) ChatMessage {
	if sender == "" {
		sender = AnonymousSender
	}
	return ChatMessage{
		ID:       uuid.New(),
		Room:     room,
		Sender:   sender,
		Body:     text.Body,
		At:       at.UTC(),
		Mentions: text.Mentions,
		Lang:     text.Lang,
	}
}

func (m ChatMessage) Timestamp() string {
	return m.At.UTC().Format(TimestampLayout)
}
