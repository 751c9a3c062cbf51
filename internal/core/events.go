package core

import "time"

// Analytics event names.
const (
	EventSignInAttempt      = "sign_in_attempt"
	EventSignInSuccess      = "sign_in_success"
	EventSignInFailure      = "sign_in_failure"
	EventSignUp             = "sign_up"
	EventSignUpFailure      = "sign_up_failure"
	EventSignOut            = "sign_out"
	EventSessionRestored    = "session_restored"
	EventProfileUpdated     = "profile_updated"
	EventTransactionCreated = "transaction_created"
	EventTransactionDeleted = "transaction_deleted"
	EventAccountCreated     = "account_created"
	EventAccountDeactivated = "account_deactivated"
	EventBudgetCreated      = "budget_created"
	EventBudgetsReconciled  = "budgets_reconciled"
	EventDemoDataSeeded     = "demo_data_seeded"
)

// Event is a fire-and-forget analytics notification.
type Event struct {
	Name       string            `json:"name"`
	UserID     string            `json:"user_id,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(name, userID string, props map[string]string) Event {
	return Event{
		Name:       name,
		UserID:     userID,
		Properties: props,
		OccurredAt: time.Now().UTC(),
	}
}
