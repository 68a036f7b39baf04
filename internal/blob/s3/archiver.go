package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pactas/pactas/internal/domain"
)

// LedgerArchiveStore is the narrow read surface the archiver needs. The
// PostgreSQL store satisfies it through its EntriesBefore method.
type LedgerArchiveStore interface {
	// EntriesBefore returns all ledger entries created strictly before the
	// given cutoff time.
	EntriesBefore(ctx context.Context, before time.Time) ([]domain.LedgerEntry, error)
}

// LedgerArchiver offloads old ledger entries to object storage as JSONL,
// partitioned by the year-month of the cutoff.
//
// Deletion of the archived rows from the primary store is intentionally not
// performed here. The ledger is append-only; archival is a copy, never a
// move.
type LedgerArchiver struct {
	writer  *Writer
	entries LedgerArchiveStore
}

// NewLedgerArchiver creates a LedgerArchiver.
func NewLedgerArchiver(writer *Writer, entries LedgerArchiveStore) *LedgerArchiver {
	return &LedgerArchiver{
		writer:  writer,
		entries: entries,
	}
}

type entryRecord struct {
	ID             string    `json:"id"`
	Amount         int64     `json:"amount"`
	Kind           string    `json:"kind"`
	QuestionID     string    `json:"question_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ArchiveEntries queries all ledger entries before the cutoff, serializes
// them to JSONL, and uploads the file at archive/ledger/YYYY-MM.jsonl. It
// returns the number of entries archived.
func (a *LedgerArchiver) ArchiveEntries(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.entries.EntriesBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]entryRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, entryRecord{
			ID:             e.ID,
			Amount:         e.Amount,
			Kind:           string(e.Kind),
			QuestionID:     e.QuestionID,
			UserID:         e.UserID,
			OrganizationID: e.OrganizationID,
			CreatedAt:      e.CreatedAt,
		})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger marshal: %w", err)
	}

	path := fmt.Sprintf("archive/ledger/%s.jsonl", before.Format("2006-01"))
	if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize); err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger upload: %w", err)
	}

	return int64(len(entries)), nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON, one
// compact line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
