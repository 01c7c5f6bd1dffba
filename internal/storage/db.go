package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"sdskataster/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  root TEXT NOT NULL,
  format TEXT NOT NULL,
  countsJson TEXT NOT NULL DEFAULT '{}',
  startedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  finishedAt TEXT
);

CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  path TEXT NOT NULL,
  directory TEXT NOT NULL,
  sha256 TEXT NOT NULL,
  extractor TEXT NOT NULL,
  recordJson TEXT NOT NULL,
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_documents_run ON documents(runId);
CREATE INDEX IF NOT EXISTS idx_documents_sha ON documents(sha256);

CREATE TABLE IF NOT EXISTS emissions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  documentId INTEGER,
  directory TEXT NOT NULL,
  tradeName TEXT,
  recordJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(runId) REFERENCES runs(id),
  FOREIGN KEY(documentId) REFERENCES documents(id)
);
CREATE INDEX IF NOT EXISTS idx_emissions_run ON emissions(runId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) StartRun(traceID, root, format string) (int, error) {
	result, err := d.conn.Exec(`INSERT INTO runs (traceId, root, format) VALUES (?, ?, ?)`, traceID, root, format)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

func (d *DB) FinishRun(runID int, counts map[string]int) error {
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`UPDATE runs SET countsJson = ?, finishedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(countsJSON), runID)
	return err
}

func (d *DB) GetRun(runID int) (*internal.RunRow, error) {
	var row internal.RunRow
	var countsJSON string
	err := d.conn.QueryRow(`
SELECT id, traceId, root, format, startedAt, finishedAt, countsJson
FROM runs WHERE id = ?
`, runID).Scan(&row.ID, &row.TraceID, &row.Root, &row.Format, &row.StartedAt, &row.FinishedAt, &countsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
	return &row, nil
}

// LatestRunID returns 0 when no run was recorded yet.
func (d *DB) LatestRunID() (int, error) {
	var id sql.NullInt64
	if err := d.conn.QueryRow(`SELECT MAX(id) FROM runs`).Scan(&id); err != nil {
		return 0, err
	}
	return int(id.Int64), nil
}

func (d *DB) InsertDocument(doc internal.DocumentRow) (int, error) {
	recordJSON, err := json.Marshal(doc.Record)
	if err != nil {
		return 0, err
	}
	result, err := d.conn.Exec(`
INSERT INTO documents (runId, path, directory, sha256, extractor, recordJson, error)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, doc.RunID, doc.Path, doc.Directory, doc.SHA256, doc.Extractor, string(recordJSON), doc.Error)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

func (d *DB) ListDocuments(runID int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT id, runId, path, directory, sha256, extractor, recordJson, error
FROM documents WHERE runId = ? ORDER BY id ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		var row internal.DocumentRow
		var recordJSON string
		if err := rows.Scan(&row.ID, &row.RunID, &row.Path, &row.Directory, &row.SHA256, &row.Extractor, &recordJSON, &row.Error); err != nil {
			return nil, err
		}
		row.Record = internal.NewRecord()
		if err := json.Unmarshal([]byte(recordJSON), &row.Record); err != nil {
			return nil, fmt.Errorf("document %d: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) InsertEmission(runID int, documentID *int, directory string, rec internal.Record) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
INSERT INTO emissions (runId, documentId, directory, tradeName, recordJson)
VALUES (?, ?, ?, ?, ?)
`, runID, documentID, directory, rec.TradeName, string(recordJSON))
	return err
}

func (d *DB) ListEmissions(runID int) ([]internal.EmissionRow, error) {
	rows, err := d.conn.Query(`
SELECT id, runId, documentId, directory, recordJson
FROM emissions WHERE runId = ? ORDER BY id ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmissionRow
	for rows.Next() {
		var row internal.EmissionRow
		var recordJSON string
		if err := rows.Scan(&row.ID, &row.RunID, &row.DocumentID, &row.Directory, &recordJSON); err != nil {
			return nil, err
		}
		row.Record = internal.NewRecord()
		if err := json.Unmarshal([]byte(recordJSON), &row.Record); err != nil {
			return nil, fmt.Errorf("emission %d: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// EmittedSignatures returns the hazard signatures already written for
// directory in any run.
func (d *DB) EmittedSignatures(directory string) (map[string]bool, error) {
	rows, err := d.conn.Query(`SELECT recordJson FROM emissions WHERE directory = ?`, directory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, err
		}
		rec := internal.NewRecord()
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, err
		}
		out[rec.Signature()] = true
	}
	return out, rows.Err()
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

const emailColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func scanEmail(s interface{ Scan(...any) error }) (internal.EmailRow, error) {
	var row internal.EmailRow
	err := s.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef)
	return row, err
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetEmailByID(id int) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	return d.queryEmails(`SELECT `+emailColumns+` FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?`, status, limit)
}

// ListEmailsByProviderStatus is ListEmailsByStatus restricted to one
// provider. An empty provider matches all.
func (d *DB) ListEmailsByProviderStatus(provider, status string, limit int) ([]internal.EmailRow, error) {
	if provider == "" {
		return d.ListEmailsByStatus(status, limit)
	}
	return d.queryEmails(`SELECT `+emailColumns+` FROM emails WHERE provider = ? AND status = ? ORDER BY receivedAt ASC LIMIT ?`, provider, status, limit)
}

func (d *DB) queryEmails(query string, args ...any) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		row, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
