package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType represents the kind of activity-feed entry.
type ActivityType string

const (
	ActivityLogin           ActivityType = "login"
	ActivityTransaction     ActivityType = "transaction"
	ActivityCardPurchase    ActivityType = "card_purchase"
	ActivityLoanApplication ActivityType = "loan_application"
	ActivityProfileUpdate   ActivityType = "profile_update"
)

// ActivityEvent is a lifecycle event sent to the activity feed after a commit.
type ActivityEvent struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	ActionType ActivityType      `json:"action_type"`
	Details    map[string]string `json:"details"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewActivityEvent stamps a new event with an ID and the current time.
func NewActivityEvent(userID uuid.UUID, action ActivityType, details map[string]string) *ActivityEvent {
	return &ActivityEvent{
		ID:         uuid.New(),
		UserID:     userID,
		ActionType: action,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}
}

// TransactionActivity builds the event emitted after a transaction commits.
func TransactionActivity(txn *Transaction) *ActivityEvent {
	return NewActivityEvent(txn.UserID, ActivityTransaction, map[string]string{
		"type":   string(txn.TransactionType),
		"amount": txn.Amount.StringFixed(2),
		"status": string(txn.Status),
	})
}
