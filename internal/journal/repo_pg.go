package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PGRepo implements Repo using Postgres. The embedded journal entry, the
// qualities list, and the response list are stored as JSONB.
type PGRepo struct {
	DB *sql.DB
}

// LoadAnalyzedEntries returns all stored entries, most-recent-analysis-first.
func (r *PGRepo) LoadAnalyzedEntries(ctx context.Context) ([]AnalyzedEntry, error) {
	const query = `
SELECT id, journal_entry, emotion, qualities, summary, analyzed_at
FROM analyzed_entries
ORDER BY analyzed_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query analyzed entries: %w", err)
	}
	defer rows.Close()

	entries := []AnalyzedEntry{}
	for rows.Next() {
		var entry AnalyzedEntry
		var journalEntry, qualities []byte
		var summary sql.NullString
		if err := rows.Scan(&entry.ID, &journalEntry, &entry.Emotion, &qualities, &summary, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan analyzed entry: %w", err)
		}
		if err := json.Unmarshal(journalEntry, &entry.JournalEntry); err != nil {
			return nil, fmt.Errorf("decode journal entry %s: %w", entry.ID, err)
		}
		if err := json.Unmarshal(qualities, &entry.Qualities); err != nil {
			return nil, fmt.Errorf("decode qualities %s: %w", entry.ID, err)
		}
		entry.Summary = summary.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SaveAnalyzedEntry inserts the entry; an existing id is left untouched.
func (r *PGRepo) SaveAnalyzedEntry(ctx context.Context, entry AnalyzedEntry) error {
	const query = `
INSERT INTO analyzed_entries (id, journal_entry, emotion, qualities, summary, analyzed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`

	journalEntry, err := json.Marshal(entry.JournalEntry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	qualities, err := json.Marshal(entry.Qualities)
	if err != nil {
		return fmt.Errorf("encode qualities: %w", err)
	}

	var summary sql.NullString
	if entry.Summary != "" {
		summary = sql.NullString{String: entry.Summary, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, query, entry.ID, journalEntry, entry.Emotion, qualities, summary, entry.Timestamp)
	return err
}

// LoadCheckIns returns all stored check-ins, pending first, newest first
// within each status group.
func (r *PGRepo) LoadCheckIns(ctx context.Context) ([]CheckIn, error) {
	const query = `
SELECT id, question, based_on_analyzed_entry_id, status, responses, created_at
FROM check_ins
ORDER BY (status = 'pending') DESC, created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query check-ins: %w", err)
	}
	defer rows.Close()

	checkIns := []CheckIn{}
	for rows.Next() {
		var ci CheckIn
		var basedOn sql.NullString
		var responses []byte
		if err := rows.Scan(&ci.ID, &ci.Question, &basedOn, &ci.Status, &responses, &ci.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		ci.BasedOnAnalyzedEntryID = basedOn.String
		if err := json.Unmarshal(responses, &ci.Responses); err != nil {
			return nil, fmt.Errorf("decode responses %s: %w", ci.ID, err)
		}
		checkIns = append(checkIns, ci)
	}
	return checkIns, rows.Err()
}

// SaveCheckIn inserts the check-in; an existing id is left untouched.
func (r *PGRepo) SaveCheckIn(ctx context.Context, checkIn CheckIn) error {
	const query = `
INSERT INTO check_ins (id, question, based_on_analyzed_entry_id, status, responses, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`

	responses, basedOn, err := encodeCheckIn(checkIn)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, checkIn.ID, checkIn.Question, basedOn, string(checkIn.Status), responses, checkIn.CreatedAt)
	return err
}

// UpdateCheckIn replaces the stored record matching the id. Unknown ids are a
// no-op.
func (r *PGRepo) UpdateCheckIn(ctx context.Context, checkIn CheckIn) error {
	const query = `
UPDATE check_ins
SET question = $2, based_on_analyzed_entry_id = $3, status = $4, responses = $5, created_at = $6
WHERE id = $1`

	responses, basedOn, err := encodeCheckIn(checkIn)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, checkIn.ID, checkIn.Question, basedOn, string(checkIn.Status), responses, checkIn.CreatedAt)
	return err
}

// DeleteCheckIn removes the record matching the id. Unknown ids are a no-op.
func (r *PGRepo) DeleteCheckIn(ctx context.Context, id string) error {
	const query = `DELETE FROM check_ins WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, id)
	return err
}

func encodeCheckIn(checkIn CheckIn) ([]byte, sql.NullString, error) {
	if checkIn.Responses == nil {
		checkIn.Responses = []CheckInResponse{}
	}
	responses, err := json.Marshal(checkIn.Responses)
	if err != nil {
		return nil, sql.NullString{}, fmt.Errorf("encode responses: %w", err)
	}
	var basedOn sql.NullString
	if checkIn.BasedOnAnalyzedEntryID != "" {
		basedOn = sql.NullString{String: checkIn.BasedOnAnalyzedEntryID, Valid: true}
	}
	return responses, basedOn, nil
}

var _ Repo = (*PGRepo)(nil)
