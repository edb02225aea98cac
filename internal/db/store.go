package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/fluestern/companion/internal/prompt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no recording has the requested id.
var ErrNotFound = errors.New("recording not found")

// createdAtLayout is fixed-width so that lexicographic order on the stored
// strings matches chronological order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
	CREATE TABLE IF NOT EXISTS recordings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		whisper_output TEXT,
		llm_output TEXT,
		user_correction TEXT,
		audio_duration_ms INTEGER,
		whisper_duration_ms INTEGER,
		llm_duration_ms INTEGER,
		total_duration_ms INTEGER,
		success INTEGER DEFAULT 1,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS corrections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		whisper_pattern TEXT NOT NULL,
		intended_text TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
`

var recordingColumns = []string{
	"id", "timestamp", "whisper_output", "llm_output", "user_correction",
	"audio_duration_ms", "whisper_duration_ms", "llm_duration_ms", "total_duration_ms",
	"success", "error_message",
}

var correctionColumns = []string{"id", "whisper_pattern", "intended_text", "created_at"}

// Store is the history database. The dictation pipeline inserts recordings
// through its own connection; Store reads them and writes corrections.
type Store struct {
	db  *sql.DB
	sq  sq.StatementBuilderType
	now func() time.Time
}

// Open opens or creates the database at path and ensures both tables exist.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{
		db:  db,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: time.Now,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back if fn fails.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InsertRecording stores a recording the way the pipeline does and returns
// its id. An empty Timestamp is replaced with the current time in UTC.
func (s *Store) InsertRecording(ctx context.Context, r Recording) (int64, error) {
	ts := r.Timestamp
	if ts == "" {
		ts = s.now().UTC().Format(createdAtLayout)
	}

	query, args, err := s.sq.Insert("recordings").
		Columns(recordingColumns[1:]...).
		Values(ts, nullString(r.WhisperOutput), nullString(r.LLMOutput), nullString(r.UserCorrection),
			r.AudioDurationMs, r.WhisperDurationMs, r.LLMDurationMs, r.TotalDurationMs,
			boolToInt(r.Success), nullString(r.ErrorMessage)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert recording id: %w", err)
	}
	return id, nil
}

// ListRecordings returns up to limit recordings, newest first. Timestamps
// are compared as instants so mixed offsets still order correctly; rows
// whose timestamp cannot be parsed come last. Equal timestamps fall back to
// id, newest first.
func (s *Store) ListRecordings(ctx context.Context, limit int) ([]Recording, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := s.sq.Select(recordingColumns...).
		From("recordings").
		OrderBy("julianday(timestamp) DESC", "timestamp DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var recordings []Recording
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, r)
	}
	return recordings, rows.Err()
}

// GetRecording returns the recording with id, or ErrNotFound.
func (s *Store) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	query, args, err := s.sq.Select(recordingColumns...).
		From("recordings").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	r, err := scanRecording(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// UpdateCorrection sets the user's correction on a recording and, when the
// recording has a transcription, records the pair as a correction pattern.
// Both writes commit together. Unknown ids return ErrNotFound and change
// nothing.
func (s *Store) UpdateCorrection(ctx context.Context, id int64, text string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := s.sq.Select("whisper_output").
			From("recordings").
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		var whisper sql.NullString
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&whisper); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("read recording: %w", err)
		}

		query, args, err = s.sq.Update("recordings").
			Set("user_correction", text).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update correction: %w", err)
		}

		if !whisper.Valid || whisper.String == "" {
			return nil
		}

		query, args, err = s.sq.Insert("corrections").
			Columns(correctionColumns[1:]...).
			Values(whisper.String, text, s.now().UTC().Format(createdAtLayout)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert correction: %w", err)
		}
		return nil
	})
}

// DeleteRecording removes a recording. Correction patterns derived from it
// are kept. Unknown ids return ErrNotFound.
func (s *Store) DeleteRecording(ctx context.Context, id int64) error {
	query, args, err := s.sq.Delete("recordings").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCorrections returns every correction pattern, newest first.
func (s *Store) ListCorrections(ctx context.Context) ([]Correction, error) {
	query, args, err := s.sq.Select(correctionColumns...).
		From("corrections").
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	var corrections []Correction
	for rows.Next() {
		var c Correction
		if err := rows.Scan(&c.ID, &c.WhisperPattern, &c.IntendedText, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}

// ExportPromptContext builds the prompt-context snippet from the stored
// correction patterns.
func (s *Store) ExportPromptContext(ctx context.Context) (string, error) {
	corrections, err := s.ListCorrections(ctx)
	if err != nil {
		return "", err
	}
	return prompt.Build(Patterns(corrections)), nil
}

// Patterns converts corrections to prompt patterns, keeping their order.
func Patterns(corrections []Correction) []prompt.Pattern {
	patterns := make([]prompt.Pattern, len(corrections))
	for i, c := range corrections {
		patterns[i] = prompt.Pattern{Heard: c.WhisperPattern, Meant: c.IntendedText}
	}
	return patterns
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (Recording, error) {
	var r Recording
	var whisper, llm, correction, errMsg sql.NullString
	var audioMs, whisperMs, llmMs, totalMs, success sql.NullInt64

	if err := row.Scan(&r.ID, &r.Timestamp, &whisper, &llm, &correction,
		&audioMs, &whisperMs, &llmMs, &totalMs, &success, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan recording: %w", err)
	}

	r.WhisperOutput = whisper.String
	r.LLMOutput = llm.String
	r.UserCorrection = correction.String
	r.ErrorMessage = errMsg.String
	r.AudioDurationMs = audioMs.Int64
	r.WhisperDurationMs = whisperMs.Int64
	r.LLMDurationMs = llmMs.Int64
	r.TotalDurationMs = totalMs.Int64
	r.Success = !success.Valid || success.Int64 != 0

	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
