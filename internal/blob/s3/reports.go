package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pactas/pactas/internal/domain"
)

// settlementReport is the JSON document archived for each resolved question.
// It captures the full split so a settlement can be audited without touching
// the database.
type settlementReport struct {
	QuestionID        string         `json:"question_id"`
	OrganizationID    string         `json:"organization_id"`
	Outcome           string         `json:"outcome"`
	TotalPool         int64          `json:"total_pool"`
	AdminFee          int64          `json:"admin_fee"`
	OrganizationShare int64          `json:"organization_share"`
	WinnersPool       int64          `json:"winners_pool"`
	TotalWinning      int64          `json:"total_winning"`
	Payouts           []payoutReport `json:"payouts"`
	ResolvedAt        time.Time      `json:"resolved_at"`
}

type payoutReport struct {
	StakeID string `json:"stake_id"`
	UserID  string `json:"user_id"`
	Amount  int64  `json:"amount"`
}

// Reporter archives settlement reports as JSON objects under
// settlements/<question-id>.json.
type Reporter struct {
	writer *Writer
}

// NewReporter creates a Reporter backed by the given writer.
func NewReporter(w *Writer) *Reporter {
	return &Reporter{writer: w}
}

// Archive uploads one settlement report. The object key is derived from the
// question id, so re-archiving the same settlement overwrites in place.
func (r *Reporter) Archive(ctx context.Context, s domain.Settlement) error {
	report := settlementReport{
		QuestionID:        s.QuestionID,
		OrganizationID:    s.OrganizationID,
		Outcome:           string(s.Outcome),
		TotalPool:         s.TotalPool,
		AdminFee:          s.AdminFee,
		OrganizationShare: s.OrganizationShare,
		WinnersPool:       s.WinnersPool,
		TotalWinning:      s.TotalWinning,
		Payouts:           make([]payoutReport, 0, len(s.Payouts)),
		ResolvedAt:        s.ResolvedAt,
	}
	for _, p := range s.Payouts {
		report.Payouts = append(report.Payouts, payoutReport{
			StakeID: p.StakeID,
			UserID:  p.UserID,
			Amount:  p.Amount,
		})
	}

	buf, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("s3blob: marshal settlement report %s: %w", s.QuestionID, err)
	}

	key := fmt.Sprintf("settlements/%s.json", s.QuestionID)
	if err := r.writer.Put(ctx, key, bytes.NewReader(buf), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive settlement %s: %w", s.QuestionID, err)
	}
	return nil
}
