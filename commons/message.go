package commons

import (
	"github.com/burntcarrot/waypad/store"
	"github.com/google/uuid"
)

// Message represents the message sent over the wire.
type Message struct {
	Username string `json:"username"`

	// Text represents the body of the message. This is currently used for joining messages and the list of active users.
	Text string `json:"text"`

	// Type represents the message type.
	Type MessageType `json:"type"`

	// ID represents the sender's UUID. The server fills it in.
	ID uuid.UUID `json:"ID"`

	// Records are the list elements carried by snapshot and insert messages.
	Records []store.Record `json:"records,omitempty"`

	// Keys are the record keys removed by a delete message.
	Keys []string `json:"keys,omitempty"`
}

// MessageType represents the type of the message.
type MessageType string

// Currently, waypad supports 5 message types:
// - snapshot (the full list, sent by the server on connect)
// - insert (new records, with positions minted by the sender)
// - delete (keys of removed records)
// - join (for joining messages)
// - users (for the list of active users)

const (
	SnapshotMessage MessageType = "snapshot"
	InsertMessage   MessageType = "insert"
	DeleteMessage   MessageType = "delete"
	JoinMessage     MessageType = "join"
	UsersMessage    MessageType = "users"
)
