package notifications

import (
	"maps"
	"time"
)

// Type is the kind of event a notification reports.
type Type string

const (
	TypeMessage       Type = "message"
	TypeThreadCreated Type = "thread_created"
	TypeMention       Type = "mention"
	TypeReaction      Type = "reaction"
	TypeSystem        Type = "system"
)

// Valid reports whether t is one of the known notification types.
func (t Type) Valid() bool {
	switch t {
	case TypeMessage, TypeThreadCreated, TypeMention, TypeReaction, TypeSystem:
		return true
	}
	return false
}

// Priority represents the notification priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Channel is a delivery mechanism for a notification.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// AllChannels lists every supported channel in a stable order.
var AllChannels = []Channel{ChannelInApp, ChannelEmail, ChannelPush}

// Valid reports whether c is one of the supported channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelPush:
		return true
	}
	return false
}

func (c Channel) String() string { return string(c) }

// Notification is a user-facing record of something that happened.
// Only Read and ReadAt change after creation.
type Notification struct {
	ID        string         `json:"id" bson:"_id"`
	UserID    string         `json:"user_id" bson:"user_id"`
	Type      Type           `json:"type" bson:"type"`
	Title     string         `json:"title" bson:"title"`
	Body      string         `json:"body" bson:"body"`
	Data      map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	Priority  Priority       `json:"priority" bson:"priority"`
	Read      bool           `json:"read" bson:"read"`
	ReadAt    *time.Time     `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// MarkAsRead marks the notification as read at the given time.
// A notification that is already read keeps its original ReadAt.
func (n *Notification) MarkAsRead(at time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	n.ReadAt = &at
	return true
}

// Payload returns the self-contained content needed to redeliver n.
func (n *Notification) Payload() Payload {
	return Payload{
		NotificationID: n.ID,
		Type:           n.Type,
		Title:          n.Title,
		Body:           n.Body,
		Data:           maps.Clone(n.Data),
		Priority:       n.Priority,
	}
}

// Content is the input of Service.Send.
type Content struct {
	Type  Type
	Title string
	Body  string
	Data  map[string]any

	// Channels overrides the user's preferences when non-nil.
	// Used for forced and system alerts. An empty, non-nil slice disables delivery.
	Channels []Channel

	Priority Priority
}

// Payload carries everything a channel adapter needs to deliver a notification.
// It is copied into retry queue entries so redelivery never depends on the
// notification store being reachable.
type Payload struct {
	NotificationID string         `json:"notification_id,omitempty" bson:"notification_id,omitempty"`
	Type           Type           `json:"type" bson:"type"`
	Title          string         `json:"title" bson:"title"`
	Body           string         `json:"body" bson:"body"`
	Data           map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	Priority       Priority       `json:"priority" bson:"priority"`
	Sound          bool           `json:"sound" bson:"sound"`
}

// URL returns data["url"] when it is a non-empty string.
func (p Payload) URL() string {
	if p.Data == nil {
		return ""
	}
	if s, ok := p.Data["url"].(string); ok {
		return s
	}
	return ""
}
