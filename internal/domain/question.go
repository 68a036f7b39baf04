package domain

import "time"

// QuestionStatus represents the lifecycle state of a question.
//
// Transitions: active -> closed -> resolved_yes | resolved_no. The resolved
// states are terminal and reachable only through the resolution engine.
type QuestionStatus string

const (
	QuestionStatusActive      QuestionStatus = "active"
	QuestionStatusClosed      QuestionStatus = "closed"
	QuestionStatusResolvedYes QuestionStatus = "resolved_yes"
	QuestionStatusResolvedNo  QuestionStatus = "resolved_no"
)

// Resolved reports whether the status is one of the terminal resolved states.
func (s QuestionStatus) Resolved() bool {
	return s == QuestionStatusResolvedYes || s == QuestionStatusResolvedNo
}

// ResolvedStatus maps an outcome to the corresponding terminal status.
func ResolvedStatus(outcome Prediction) QuestionStatus {
	if outcome == PredictionYes {
		return QuestionStatusResolvedYes
	}
	return QuestionStatusResolvedNo
}

// ValidTags enumerates the accepted question category tags.
var ValidTags = map[string]bool{
	"POLITIQUE":      true,
	"ENVIRONNEMENT":  true,
	"DIVERTISSEMENT": true,
	"ART_CULTURE":    true,
	"SPORT":          true,
	"TECHNOLOGIE":    true,
	"ECONOMIE":       true,
	"SOCIAL":         true,
	"EDUCATION":      true,
	"SANTE":          true,
}

// Question is a binary predictive proposition owned by one organization.
// Stakes accumulate while the question is active; once an operator closes it,
// the resolution engine settles the pool exactly once.
type Question struct {
	ID             string
	OrganizationID string
	Title          string
	Description    string
	Source         string // human-readable verification reference
	Tags           []string
	Deadline       time.Time
	Status         QuestionStatus
	ResolvedAt     *time.Time // idempotency guard: non-nil once settled
	CreatedAt      time.Time
}

// OpenForStaking reports whether the question accepts new stakes at the given
// instant. The deadline is checked explicitly: a question past its deadline
// rejects stakes even before the sweeper transitions it to closed.
func (q Question) OpenForStaking(now time.Time) bool {
	return q.Status == QuestionStatusActive && now.Before(q.Deadline)
}

// PoolTotals aggregates the stakes on a question per prediction side.
type PoolTotals struct {
	QuestionID string
	Yes        int64
	No         int64
}

// Total returns the combined pool across both sides.
func (p PoolTotals) Total() int64 {
	return p.Yes + p.No
}
