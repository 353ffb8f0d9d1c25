package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const transitionColumns = `id, file_id, file_name, from_category, to_category,
	from_subcategory, to_subcategory, reason, notes, triggered_at, is_automatic, confirmed_by_user`

// RecordTransition appends one immutable row to the move ledger. There
// is no update or delete operation; history is never rewritten.
func (db *DB) RecordTransition(t *Transition) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.TriggeredAt.IsZero() {
		t.TriggeredAt = time.Now().UTC()
	}
	auto, confirmed := 0, 0
	if t.IsAutomatic {
		auto = 1
	}
	if t.ConfirmedByUser {
		confirmed = 1
	}

	_, err := db.conn.Exec(`
		INSERT INTO file_transitions (`+transitionColumns+`)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?, ?)
	`, t.ID, t.FileID, t.FileName, string(t.FromCategory), string(t.ToCategory),
		t.FromSubcategory, t.ToSubcategory, string(t.Reason), t.Notes,
		formatTime(t.TriggeredAt), auto, confirmed)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// TransitionsForFile returns a file's move history, newest first. Rows
// outlive the file itself; file_name is a snapshot.
func (db *DB) TransitionsForFile(fileID string) ([]Transition, error) {
	return db.queryTransitions(`
		SELECT `+transitionColumns+` FROM file_transitions
		WHERE file_id = ? ORDER BY triggered_at DESC, id
	`, fileID)
}

// RecentTransitions returns the latest moves across all files, newest
// first. Feeds the global activity view.
func (db *DB) RecentTransitions(limit int) ([]Transition, error) {
	return db.queryTransitions(`
		SELECT `+transitionColumns+` FROM file_transitions
		ORDER BY triggered_at DESC, id LIMIT ?
	`, limit)
}

func (db *DB) queryTransitions(query string, args ...any) ([]Transition, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var t Transition
		var fromSub, toSub, notes sql.NullString
		var from, to, reason, triggered string
		var auto, confirmed int
		if err := rows.Scan(&t.ID, &t.FileID, &t.FileName, &from, &to,
			&fromSub, &toSub, &reason, &notes, &triggered, &auto, &confirmed); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.FromCategory = Category(from)
		t.ToCategory = Category(to)
		t.FromSubcategory = fromSub.String
		t.ToSubcategory = toSub.String
		t.Reason = Reason(reason)
		t.Notes = notes.String
		t.TriggeredAt = parseTime(triggered)
		t.IsAutomatic = auto != 0
		t.ConfirmedByUser = confirmed != 0
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
