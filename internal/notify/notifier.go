// Package notify delivers settlement outcomes to interested parties. The
// resolution engine produces notification intents; a Dispatcher consumes them
// after the settlement transaction has committed and fans each one out to all
// registered senders. Delivery is strictly best-effort: a failed notification
// is logged and dropped, never retried by the engine and never allowed to
// affect the financial settlement.
package notify

import "context"

// EventKind identifies the kind of notification being delivered.
type EventKind string

const (
	// EventQuestionResolvedOrg informs the hosting organization of the
	// outcome and its commission.
	EventQuestionResolvedOrg EventKind = "question-resolved-for-organization"
	// EventBetResolvedUser informs a bettor of the outcome and, for
	// winners, the payout amount.
	EventBetResolvedUser EventKind = "bet-resolved-for-user"
)

// Intent is one queued notification: who to tell, what happened, and the
// event-specific payload.
type Intent struct {
	Event     EventKind
	Recipient string // account id of the addressee
	Title     string
	Payload   map[string]any
}

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a single notification.
	Send(ctx context.Context, n Intent) error
	// Name returns a human-readable identifier for the sender (e.g. "webhook").
	Name() string
}
