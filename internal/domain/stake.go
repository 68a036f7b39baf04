package domain

import "time"

// Prediction is the side of a binary question a stake is placed on, and also
// the outcome an operator declares at resolution.
type Prediction string

const (
	PredictionYes Prediction = "yes"
	PredictionNo  Prediction = "no"
)

// Valid reports whether p is one of the two accepted values.
func (p Prediction) Valid() bool {
	return p == PredictionYes || p == PredictionNo
}

// Stake is one user's position on one question. Immutable once created; the
// debit from the user's balance happens at creation time and resolution only
// ever credits.
type Stake struct {
	ID         string
	UserID     string
	QuestionID string
	Amount     int64 // always > 0
	Prediction Prediction
	CreatedAt  time.Time
}

// Won reports whether the stake backed the declared outcome.
func (s Stake) Won(outcome Prediction) bool {
	return s.Prediction == outcome
}
