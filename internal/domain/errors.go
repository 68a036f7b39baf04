package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrAccountNotFound     = errors.New("account not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrQuestionNotOpen     = errors.New("question not open for staking")
	ErrQuestionNotClosed   = errors.New("question must be closed before resolution")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidPrediction   = errors.New("prediction must be yes or no")
	ErrInvalidOutcome      = errors.New("outcome must be yes or no")
	ErrInvalidQuestion     = errors.New("missing or invalid question fields")
	ErrInvalidAccount      = errors.New("missing or invalid account fields")
	ErrLedgerIntegrity     = errors.New("ledger integrity violation")
)
