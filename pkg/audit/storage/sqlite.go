package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/runpod/vllm/pkg/audit"
	"github.com/runpod/vllm/pkg/config"
)

const backendSQLite = "sqlite"

// SQLiteStorage stores records in a SQLite database through either the cgo
// driver (mattn) or the pure Go one (modernc).
type SQLiteStorage struct {
	db     *sql.DB
	config *config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database at cfg.Path, creating the file and
// schema when needed.
func NewSQLiteStorage(cfg *config.SQLiteConfig) (*SQLiteStorage, error) {
	logger := slog.Default().With("component", "audit.storage.sqlite")

	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "open", err)
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, audit.NewStorageError(backendSQLite, "open", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// dataSource returns the database/sql driver name and DSN for cfg.
// Pragmas go in the DSN so every pooled connection gets them.
func dataSource(cfg *config.SQLiteConfig) (driver, dsn string, err error) {
	if cfg.Path == "" {
		return "", "", errors.New("database path is required")
	}

	busyMs := cfg.BusyTimeout.Milliseconds()
	params := url.Values{}

	switch cfg.Driver {
	case "", "mattn":
		driver = "sqlite3"
		params.Set("_busy_timeout", fmt.Sprint(busyMs))
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	case "modernc":
		driver = "sqlite"
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyMs))
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	default:
		return "", "", fmt.Errorf("unknown sqlite driver %q", cfg.Driver)
	}

	return driver, "file:" + cfg.Path + "?" + params.Encode(), nil
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError(backendSQLite, "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store inserts record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	finishReasons, err := sonic.MarshalString(record.FinishReasons)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "store", err)
	}

	var errorVal any
	if record.Error != "" {
		errorVal = record.Error
	}

	query := "INSERT INTO requests (" + recordColumns + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", 25), ", ") + ")"

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.RequestID,
		record.RequestTime.UnixNano(), record.RecordedTime.UnixNano(),
		record.Endpoint, record.Method, record.Path, record.Model, record.User,
		record.RemoteAddr, record.UserAgent, record.Stream, record.N, record.MaxTokens,
		record.StatusCode, record.Status, record.Streamed, record.Disconnected, finishReasons,
		record.PromptTokens, record.CompletionTokens, record.TotalTokens,
		int64(record.Latency), int64(record.TimeToFirstEvent),
		errorVal,
	)
	if err != nil {
		return audit.NewStorageError(backendSQLite, "store", err)
	}
	return nil
}

// Query returns the matching records.
func (s *SQLiteStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	where, args := buildWhereClause(q)

	sqlQuery := "SELECT " + recordColumns + " FROM requests" + where + orderClause(q)
	switch {
	case q.Limit > 0:
		sqlQuery += fmt.Sprintf(" LIMIT %d", q.Limit)
	case q.Offset > 0:
		sqlQuery += " LIMIT -1"
	}
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError(backendSQLite, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(backendSQLite, "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	where, args := buildWhereClause(q)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM requests"+where, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError(backendSQLite, "count", err)
	}
	return count, nil
}

// Delete removes the matching records.
func (s *SQLiteStorage) Delete(ctx context.Context, q *audit.Query) (int64, error) {
	where, args := buildWhereClause(q)

	result, err := s.db.ExecContext(ctx, "DELETE FROM requests"+where, args...)
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(backendSQLite, "delete", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError(backendSQLite, "close", err)
	}
	s.logger.Info("SQLite audit storage closed")
	return nil
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(q *audit.Query) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if q.StartTime != nil {
		add("request_time_ns >= ?", q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		add("request_time_ns <= ?", q.EndTime.UnixNano())
	}
	if q.RequestID != "" {
		add("request_id = ?", q.RequestID)
	}
	if q.Endpoint != "" {
		add("endpoint = ?", q.Endpoint)
	}
	if q.Model != "" {
		add("model = ?", q.Model)
	}
	if q.User != "" {
		add("end_user = ?", q.User)
	}
	if q.Status != "" {
		add("status = ?", q.Status)
	}
	if q.MinTokens != nil {
		add("total_tokens >= ?", *q.MinTokens)
	}
	if q.MaxTokens != nil {
		add("total_tokens <= ?", *q.MaxTokens)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderClause only emits whitelisted columns.
func orderClause(q *audit.Query) string {
	column, ok := audit.SortFields[q.SortBy]
	if !ok {
		column = audit.SortFields["request_time"]
	}
	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", column, order, order)
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		record                  audit.Record
		requestNs, recordedNs   int64
		latencyNs, firstEventNs int64
		finishReasons           string
		errorVal                sql.NullString
	)

	err := rows.Scan(
		&record.ID, &record.RequestID,
		&requestNs, &recordedNs,
		&record.Endpoint, &record.Method, &record.Path, &record.Model, &record.User,
		&record.RemoteAddr, &record.UserAgent, &record.Stream, &record.N, &record.MaxTokens,
		&record.StatusCode, &record.Status, &record.Streamed, &record.Disconnected, &finishReasons,
		&record.PromptTokens, &record.CompletionTokens, &record.TotalTokens,
		&latencyNs, &firstEventNs,
		&errorVal,
	)
	if err != nil {
		return nil, err
	}

	record.RequestTime = time.Unix(0, requestNs).UTC()
	record.RecordedTime = time.Unix(0, recordedNs).UTC()
	record.Latency = time.Duration(latencyNs)
	record.TimeToFirstEvent = time.Duration(firstEventNs)
	if errorVal.Valid {
		record.Error = errorVal.String
	}
	if finishReasons != "" {
		if err := sonic.UnmarshalString(finishReasons, &record.FinishReasons); err != nil {
			return nil, fmt.Errorf("decode finish_reasons: %w", err)
		}
	}
	return &record, nil
}
