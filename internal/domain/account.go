package domain

import "time"

// AccountKind distinguishes the three parties that can hold a balance.
type AccountKind string

const (
	AccountKindUser         AccountKind = "user"
	AccountKindOrganization AccountKind = "organization"
	// AccountKindPlatform is the singleton account that collects the
	// settlement fee. Seeded by migration, never created at runtime.
	AccountKindPlatform AccountKind = "platform"
)

// Account holds a non-negative token balance for a user, an organization, or
// the platform itself. The balance is only ever mutated inside a ledger
// transaction, paired with a LedgerEntry recording the movement.
type Account struct {
	ID           string
	Kind         AccountKind
	Name         string
	Email        string
	PasswordHash string
	Balance      int64 // smallest-denomination token units
	CreatedAt    time.Time
}
