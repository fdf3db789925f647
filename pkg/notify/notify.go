// Package notify delivers outbound notifications. Producers enqueue onto
// a Redis-backed queue and move on; a dispatcher drains the queue, hands
// deliveries to a sender, and retries failures with backoff. Delivery is
// best-effort by design: a lost notification never fails the operation
// that produced it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brightlane/agencyhub/pkg/domain"
)

// RecipientAdmins addresses a notification to the platform administrators
// rather than a specific user.
const RecipientAdmins = "admins"

// Notification is one outbound message tied to a domain record.
type Notification struct {
	ID         string            `json:"id"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	SenderID   string            `json:"sender_id"`
	Recipient  string            `json:"recipient"`
	EntityKind domain.EntityKind `json:"entity_kind"`
	EntityID   int64             `json:"entity_id"`
	Attempts   int               `json:"attempts"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Queue accepts notifications for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, n *Notification) error
}

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

func prepare(n *Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
}
