// Package repository defines the external interface adapters the core
// consumes for persistence (§4.I): reading webhook subscriptions and
// best-effort writing alert history. The relational store itself is
// out of scope (§1); this package only names the contract and, for
// tests, provides an in-memory double grounded in the shape of
// original_source's app/repositories/{subscriptions,predictions}.py.
package repository

import (
	"context"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
)

// WebhookSubscription is a user's webhook configuration as read from
// the repository (§3 User Webhook Subscription).
type WebhookSubscription struct {
	UserID     string
	Tier       alert.Tier
	WebhookURL string
	Thresholds *alert.Thresholds // nil means "use defaults"
}

// Subscriptions is the read-only contract for webhook fan-out targets.
type Subscriptions interface {
	ListUsersWithWebhooks(ctx context.Context) ([]WebhookSubscription, error)
}

// AlertHistory is the best-effort write path for persisted alert
// history; a failure here must never block broadcast (§4.G step 7).
type AlertHistory interface {
	AppendAlert(ctx context.Context, a alert.Alert) error
}

// InMemorySubscriptions is a test double implementing Subscriptions.
type InMemorySubscriptions struct {
	Users []WebhookSubscription
}

func (s *InMemorySubscriptions) ListUsersWithWebhooks(ctx context.Context) ([]WebhookSubscription, error) {
	return s.Users, nil
}

// InMemoryAlertHistory is a test double implementing AlertHistory,
// recording every alert appended to it.
type InMemoryAlertHistory struct {
	Alerts []alert.Alert
}

func (h *InMemoryAlertHistory) AppendAlert(ctx context.Context, a alert.Alert) error {
	h.Alerts = append(h.Alerts, a)
	return nil
}
