package domain

import "time"

// EntryKind classifies a ledger movement.
type EntryKind string

const (
	EntryKindStake      EntryKind = "stake"      // debit at stake placement
	EntryKindWin        EntryKind = "win"        // winner credit at resolution
	EntryKindAdminFee   EntryKind = "admin_fee"  // platform fee credit at resolution
	EntryKindCommission EntryKind = "commission" // organization credit at resolution
	EntryKindDeposit    EntryKind = "deposit"    // purchased-token credit
	EntryKindWithdrawal EntryKind = "withdrawal" // organization payout debit
)

// LedgerEntry is an immutable record of one signed monetary movement.
// Negative amounts are debits, positive amounts credits. Entries are
// append-only; they are never updated or deleted.
//
// Settlement-related entries populate exactly one of UserID or
// OrganizationID, distinguishing the user-side from the organization-side
// of the movement.
type LedgerEntry struct {
	ID             string
	Amount         int64
	Kind           EntryKind
	QuestionID     string // empty when not tied to a question
	UserID         string
	OrganizationID string
	CreatedAt      time.Time
}
