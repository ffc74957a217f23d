// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// LedgerQueue is the durable queue carrying LedgerEvent messages.
const LedgerQueue = "ledger.events"

// Actions carried by LedgerEvent.
const (
    ActionCreated     = "created"
    ActionUpdated     = "updated"
    ActionDeleted     = "deleted"
    ActionActivated   = "activated"
    ActionDeactivated = "deactivated"
    ActionLogin       = "login"
    ActionLogout      = "logout"
)

// LedgerEvent is published after a successful mutation. It carries enough
// for downstream consumers to keep an audit trail without querying the
// primary database.
type LedgerEvent struct {
    Action     string `json:"action"`
    Resource   string `json:"resource"`    // users, categories, expenses, incomes, profile, tokens
    ResourceID uint64 `json:"resource_id"`
    UserID     uint64 `json:"user_id"`     // owner of the affected row
    ActorID    uint64 `json:"actor_id"`    // who performed the action
    OccurredAt string `json:"occurred_at"` // RFC3339, UTC
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(action, resource string, id, userID, actorID uint64) LedgerEvent {
    return LedgerEvent{
        Action:     action,
        Resource:   resource,
        ResourceID: id,
        UserID:     userID,
        ActorID:    actorID,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
}
