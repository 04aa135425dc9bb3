package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/stealthping/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "stealthping.db"

// timeLayout stores timestamps with a fixed width so that text ordering in
// SQLite matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrNilReport is returned when SaveCapture is given a nil report.
	ErrNilReport = errors.New("capture report is nil")

	// ErrNotFound is returned by Open when the database file is missing
	// and CreateIfNotExists is false.
	ErrNotFound = errors.New("database not found")
)

// SessionDB stores capture sessions in a single SQLite file.
type SessionDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures SessionDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a SessionDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*SessionDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		if err := createPrivateFile(dbPath); err != nil {
			return nil, err
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &SessionDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// createPrivateFile creates path readable by the owner only when it does
// not exist yet. SQLite gives its -wal and -shm files the same mode.
func createPrivateFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600) //nolint:gosec // path is built from the configured directory
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create database file: %w", err)
	}
	return f.Close()
}

// Path returns the database file path.
func (sdb *SessionDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *SessionDB) Close() error {
	return sdb.db.Close()
}

func (sdb *SessionDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		source TEXT NOT NULL,
		state TEXT NOT NULL,
		reason TEXT,
		packets INTEGER DEFAULT 0,
		discarded INTEGER DEFAULT 0,
		ciphertext TEXT,
		digest TEXT NOT NULL,
		verdict TEXT,
		language TEXT,
		shift INTEGER DEFAULT -1,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_digest ON sessions(digest);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// Digest returns the hex SHA3-256 digest of a reassembled message.
func Digest(message []byte) string {
	sum := sha3.Sum256(message)
	return hex.EncodeToString(sum[:])
}

// SessionMetadata is the summary row of a stored session. It is used to
// list history without decoding every report.
type SessionMetadata struct {
	ID         int64
	StartedAt  time.Time
	Source     string
	State      string
	Reason     string
	Packets    int
	Discarded  int
	Ciphertext string
	Digest     string

	// Verdict is empty when the session was not analyzed.
	Verdict  string
	Language string

	// Key is the selected rotation key, -1 when none was selected.
	Key int
}

// Analyzed reports whether the session carries an analysis.
func (m SessionMetadata) Analyzed() bool {
	return m.Verdict != ""
}

// SaveCapture stores a capture report and returns its new ID. The report's
// Digest is filled from its Message when empty, and ID is set on success.
// The stored report_json carries the new ID.
func (sdb *SessionDB) SaveCapture(ctx context.Context, report *model.CaptureReport) (id int64, err error) {
	if report == nil {
		return 0, ErrNilReport
	}
	if report.Digest == "" {
		report.Digest = Digest(report.Message)
	}

	var verdict, language sql.NullString
	key := -1
	if a := report.Analysis; a != nil {
		verdict = sql.NullString{String: a.Verdict.String(), Valid: true}
		if a.Selected != nil {
			language = sql.NullString{String: a.Selected.Language, Valid: true}
			key = a.Selected.Key
		}
	}

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			report.ID = 0
		}
	}()

	// report_json is written once the row ID is known.
	query := `
	INSERT INTO sessions (started_at, source, state, reason, packets, discarded, ciphertext, digest, verdict, language, shift, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '{}')
	`

	result, err := tx.ExecContext(ctx, query,
		report.StartedAt.UTC().Format(timeLayout),
		report.Source,
		report.State,
		report.Reason,
		report.Packets,
		report.Discarded,
		report.Text,
		report.Digest,
		verdict,
		language,
		key,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save capture session: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read session id: %w", err)
	}
	report.ID = id

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE sessions SET report_json = ? WHERE id = ?`, string(reportJSON), id); err != nil {
		return 0, fmt.Errorf("failed to save capture report: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit capture session: %w", err)
	}
	return id, nil
}

// GetCapture retrieves a stored capture report by its ID.
// It returns nil without an error when no such session exists.
func (sdb *SessionDB) GetCapture(ctx context.Context, id int64) (*model.CaptureReport, error) {
	query := `SELECT report_json FROM sessions WHERE id = ?`

	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture session: %w", err)
	}

	var report model.CaptureReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	report.ID = id

	return &report, nil
}

// ListCaptures returns the most recent sessions first. A limit of zero or
// less returns every session.
func (sdb *SessionDB) ListCaptures(ctx context.Context, limit int) ([]SessionMetadata, error) {
	query := `
	SELECT id, started_at, source, state, reason, packets, discarded, ciphertext, digest, verdict, language, shift
	FROM sessions
	ORDER BY started_at DESC, id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return sdb.queryMetadata(ctx, query, args...)
}

// FindByDigest returns every session whose message has the given digest,
// oldest first.
func (sdb *SessionDB) FindByDigest(ctx context.Context, digest string) ([]SessionMetadata, error) {
	query := `
	SELECT id, started_at, source, state, reason, packets, discarded, ciphertext, digest, verdict, language, shift
	FROM sessions
	WHERE digest = ?
	ORDER BY started_at ASC, id ASC
	`
	return sdb.queryMetadata(ctx, query, digest)
}

// DeleteCapture removes a session. Deleting an unknown ID is not an error.
func (sdb *SessionDB) DeleteCapture(ctx context.Context, id int64) error {
	if _, err := sdb.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete capture session: %w", err)
	}
	return nil
}

func (sdb *SessionDB) queryMetadata(ctx context.Context, query string, args ...any) ([]SessionMetadata, error) {
	rows, err := sdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var results []SessionMetadata
	for rows.Next() {
		var meta SessionMetadata
		var startedAt string
		var reason, ciphertext, verdict, language sql.NullString

		err := rows.Scan(
			&meta.ID,
			&startedAt,
			&meta.Source,
			&meta.State,
			&reason,
			&meta.Packets,
			&meta.Discarded,
			&ciphertext,
			&meta.Digest,
			&verdict,
			&language,
			&meta.Key,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.Reason = reason.String
		meta.Ciphertext = ciphertext.String
		meta.Verdict = verdict.String
		meta.Language = language.String
		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
