// Package archive persists resolved arbitration cases and broadcast
// snapshots to a per-session sqlite database. The governor writes to it
// best-effort: a broken archive never blocks a governance decision, so every
// method returns an error the caller is expected to log and move past.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/concordhq/concord/internal/arbitration"
	"github.com/concordhq/concord/internal/workspace"
)

// Archive is a sqlite-backed store of resolved cases and broadcasts.
type Archive struct {
	db *sql.DB
}

// Open creates or opens the archive database at path, migrating the schema.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	a := &Archive{db: db}
	if err := a.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS arbitrations (
			case_id TEXT PRIMARY KEY,
			broadcast_ids TEXT NOT NULL,
			parties_json TEXT NOT NULL,
			created_by TEXT NOT NULL,
			created_turn INTEGER NOT NULL,
			required_level INTEGER NOT NULL,
			escalation_count INTEGER NOT NULL,
			arbitrator TEXT NOT NULL,
			arbitrator_level INTEGER NOT NULL,
			resolution TEXT NOT NULL,
			winning_broadcast_id TEXT NOT NULL DEFAULT '',
			xp_awards_json TEXT NOT NULL DEFAULT '[]',
			resolved_turn INTEGER NOT NULL,
			resolved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS escalations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			from_level INTEGER NOT NULL,
			to_level INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			automatic INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_escalations_case ON escalations(case_id);`,
		`CREATE TABLE IF NOT EXISTS broadcast_log (
			broadcast_id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			sender_level INTEGER NOT NULL,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			related_file TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// SaveResolved writes a resolved case and its escalation history. Saving an
// unresolved case is a caller error. Re-saving the same case id is a no-op;
// resolved cases are immutable so the rows would be identical anyway.
func (a *Archive) SaveResolved(c *arbitration.Case) error {
	if c == nil || c.Resolution == nil {
		return fmt.Errorf("archive: case is not resolved")
	}

	parties, err := json.Marshal(c.Parties)
	if err != nil {
		return err
	}
	awards, err := json.Marshal(c.Resolution.XPAwards)
	if err != nil {
		return err
	}

	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(
		`INSERT INTO arbitrations(case_id,broadcast_ids,parties_json,created_by,created_turn,
			required_level,escalation_count,arbitrator,arbitrator_level,resolution,
			winning_broadcast_id,xp_awards_json,resolved_turn,resolved_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(case_id) DO NOTHING`,
		c.ID, strings.Join(c.ConflictingBroadcastIDs, ","), string(parties), c.CreatedBy, c.CreatedTurn,
		c.RequiredLevel, c.EscalationCount, c.Resolution.Arbitrator, c.Resolution.ArbitratorLevel,
		c.Resolution.Text, c.Resolution.WinningBroadcastID, string(awards), c.Resolution.Turn,
		c.Resolution.Time.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}

	if _, err = tx.Exec(`DELETE FROM escalations WHERE case_id = ?`, c.ID); err != nil {
		return err
	}
	for _, esc := range c.Escalations {
		automatic := 0
		if esc.Automatic {
			automatic = 1
		}
		if _, err = tx.Exec(
			`INSERT INTO escalations(case_id,turn,from_level,to_level,reason,automatic,created_at)
			 VALUES(?,?,?,?,?,?,?)`,
			c.ID, esc.Turn, esc.FromLevel, esc.ToLevel, esc.Reason, automatic,
			esc.Time.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SnapshotBroadcast records a broadcast in the durable log. The workspace
// ring buffer evicts old entries; the archive keeps everything.
func (a *Archive) SnapshotBroadcast(b workspace.Broadcast) error {
	_, err := a.db.Exec(
		`INSERT INTO broadcast_log(broadcast_id,sender,sender_level,category,message,related_file,tags,created_at)
		 VALUES(?,?,?,?,?,?,?,?)
		 ON CONFLICT(broadcast_id) DO NOTHING`,
		b.ID, b.Sender, b.SenderLevel, string(b.Category), b.Message, b.RelatedFile,
		strings.Join(b.Tags, ","), b.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ResolvedRecord is a flattened archived case.
type ResolvedRecord struct {
	CaseID             string
	BroadcastIDs       []string
	Parties            []arbitration.Party
	CreatedBy          string
	CreatedTurn        int
	RequiredLevel      int
	EscalationCount    int
	Arbitrator         string
	ArbitratorLevel    int
	Resolution         string
	WinningBroadcastID string
	XPAwards           []arbitration.XPAward
	ResolvedTurn       int
	ResolvedAt         time.Time
}

// ListResolved returns archived cases, most recently resolved first. A
// non-positive limit returns everything.
func (a *Archive) ListResolved(limit int) ([]ResolvedRecord, error) {
	query := `SELECT case_id,broadcast_ids,parties_json,created_by,created_turn,
		required_level,escalation_count,arbitrator,arbitrator_level,resolution,
		winning_broadcast_id,xp_awards_json,resolved_turn,resolved_at
		FROM arbitrations ORDER BY resolved_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResolvedRecord
	for rows.Next() {
		var rec ResolvedRecord
		var ids, parties, awards, resolvedAt string
		if err := rows.Scan(&rec.CaseID, &ids, &parties, &rec.CreatedBy, &rec.CreatedTurn,
			&rec.RequiredLevel, &rec.EscalationCount, &rec.Arbitrator, &rec.ArbitratorLevel,
			&rec.Resolution, &rec.WinningBroadcastID, &awards, &rec.ResolvedTurn, &resolvedAt); err != nil {
			return nil, err
		}
		if ids != "" {
			rec.BroadcastIDs = strings.Split(ids, ",")
		}
		if err := json.Unmarshal([]byte(parties), &rec.Parties); err != nil {
			return nil, fmt.Errorf("archive: case %s parties: %w", rec.CaseID, err)
		}
		if err := json.Unmarshal([]byte(awards), &rec.XPAwards); err != nil {
			return nil, fmt.Errorf("archive: case %s awards: %w", rec.CaseID, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, resolvedAt); err == nil {
			rec.ResolvedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Escalations returns the archived escalation history of a case in order.
func (a *Archive) Escalations(caseID string) ([]arbitration.Escalation, error) {
	rows, err := a.db.Query(
		`SELECT turn,from_level,to_level,reason,automatic,created_at
		 FROM escalations WHERE case_id = ? ORDER BY id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []arbitration.Escalation
	for rows.Next() {
		var esc arbitration.Escalation
		var automatic int
		var createdAt string
		if err := rows.Scan(&esc.Turn, &esc.FromLevel, &esc.ToLevel, &esc.Reason, &automatic, &createdAt); err != nil {
			return nil, err
		}
		esc.Automatic = automatic != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			esc.Time = t
		}
		out = append(out, esc)
	}
	return out, rows.Err()
}
