package domain

import (
	"context"
	"time"
)

// Notification types produced by lottery transitions.
const (
	NotificationInvited    = "invited"
	NotificationCancelled  = "cancelled"
	NotificationBackfilled = "backfilled"
)

// Notification is an in-app message recorded for an entrant when a lottery
// transition affects them. Delivery (email, push) happens separately; the
// row is the durable record.
// swagger:model Notification
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationRepository defines storage operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipientID(ctx context.Context, recipientID string) ([]*Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
}

// NotificationService defines entrant-facing notification reads.
type NotificationService interface {
	ListMyNotifications(ctx context.Context, recipientID string) ([]*Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
}
