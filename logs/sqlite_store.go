package logs

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
)

const DefaultCacheSize = 8

const logsSchema = `
	CREATE TABLE logs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL UNIQUE,
		model_name TEXT NOT NULL,
		log_date TEXT NOT NULL,
		log_time TEXT NOT NULL,
		entries INTEGER NOT NULL,
		max_distance_km REAL,
		max_altitude_m REAL,
		min_altitude_m REAL,
		flight_duration_minutes REAL,
		most_used_mode TEXT,
		warnings INTEGER NOT NULL,
		added_at DATETIME NOT NULL,
		data BLOB NOT NULL
	);
`

// each in-memory store gets its own shared-cache database name
var storeCounter atomic.Int64

// SqliteStore keeps logs in an in-memory SQLite database. Entries are stored as
// a zstd-compressed msgpack blob; decoded logs are cached.
type SqliteStore struct {
	db     *sql.DB
	cache  *lru.Cache[string, *data_analysis.NormalizedLog]
	logger *slog.Logger
}

// NewSqliteStore opens an in-memory store. Nothing is written to disk.
func NewSqliteStore(cacheSize int, logger *slog.Logger) (*SqliteStore, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dsn := fmt.Sprintf("file:edgetx-logs-%d?mode=memory&cache=shared", storeCounter.Add(1))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	// a second connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping session database: %w", err)
	}

	if _, err := db.Exec(logsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}

	cache, err := lru.New[string, *data_analysis.NormalizedLog](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create log cache: %w", err)
	}

	logger.Debug("session store initialized", slog.Int("cache_size", cacheSize))
	return &SqliteStore{db: db, cache: cache, logger: logger}, nil
}

func (s *SqliteStore) Put(log *data_analysis.NormalizedLog) (Summary, error) {
	data, err := encodeLog(log)
	if err != nil {
		return Summary{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM logs WHERE filename = ?", log.Filename).Scan(&count); err != nil {
		return Summary{}, fmt.Errorf("failed to check for existing log: %w", err)
	}
	if count > 0 {
		return Summary{}, fmt.Errorf("%s: %w", log.Filename, ErrAlreadyLoaded)
	}

	summary := Summary{
		ID:       uuid.NewString(),
		Filename: log.Filename,
		Name:     log.Name(),
		Metadata: log.Metadata,
		Entries:  len(log.Entries),
		Stats:    log.Stats,
		Warnings: len(log.Warnings),
		BlobSize: len(data),
		AddedAt:  time.Now().UTC(),
	}

	_, err = tx.Exec(`
		INSERT INTO logs (
			id, filename, model_name, log_date, log_time, entries,
			max_distance_km, max_altitude_m, min_altitude_m, flight_duration_minutes, most_used_mode,
			warnings, added_at, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.Filename, log.Metadata.ModelName, log.Metadata.LogDate, log.Metadata.LogTime, summary.Entries,
		log.Stats.MaxDistanceKm, log.Stats.MaxAltitudeM, log.Stats.MinAltitudeM, log.Stats.FlightDurationMinutes, log.Stats.MostUsedMode,
		summary.Warnings, summary.AddedAt, data)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to insert log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.cache.Add(log.Filename, log)
	s.logger.Debug("stored log",
		slog.String("filename", log.Filename),
		slog.String("id", summary.ID),
		slog.Int("entries", summary.Entries),
		slog.Int("blob_bytes", summary.BlobSize))
	return summary, nil
}

func (s *SqliteStore) Get(filename string) (*data_analysis.NormalizedLog, error) {
	if log, ok := s.cache.Get(filename); ok {
		return log, nil
	}

	var data []byte
	err := s.db.QueryRow("SELECT data FROM logs WHERE filename = ?", filename).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", filename, ErrLogNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query log: %w", err)
	}

	log, err := decodeLog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	log.Filename = filename

	s.cache.Add(filename, log)
	return log, nil
}

func (s *SqliteStore) Has(filename string) (bool, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM logs WHERE filename = ?", filename).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check for log: %w", err)
	}
	return count > 0, nil
}

func (s *SqliteStore) Delete(filename string) error {
	result, err := s.db.Exec("DELETE FROM logs WHERE filename = ?", filename)
	if err != nil {
		return fmt.Errorf("failed to delete log: %w", err)
	}
	s.cache.Remove(filename)

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", filename, ErrLogNotFound)
	}
	return nil
}

func (s *SqliteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM logs"); err != nil {
		return fmt.Errorf("failed to clear logs: %w", err)
	}
	s.cache.Purge()
	return nil
}

func (s *SqliteStore) List() ([]Summary, error) {
	rows, err := s.db.Query(`
		SELECT id, filename, model_name, log_date, log_time, entries,
			max_distance_km, max_altitude_m, min_altitude_m, flight_duration_minutes, most_used_mode,
			warnings, added_at, length(data)
		FROM logs
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		err := rows.Scan(&s.ID, &s.Filename, &s.Metadata.ModelName, &s.Metadata.LogDate, &s.Metadata.LogTime, &s.Entries,
			&s.Stats.MaxDistanceKm, &s.Stats.MaxAltitudeM, &s.Stats.MinAltitudeM, &s.Stats.FlightDurationMinutes, &s.Stats.MostUsedMode,
			&s.Warnings, &s.AddedAt, &s.BlobSize)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		s.Name = s.Metadata.ModelName
		if s.Name == "" {
			s.Name = s.Filename
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}
	return summaries, nil
}

func (s *SqliteStore) Close() error {
	s.cache.Purge()
	return s.db.Close()
}

// logBlob is the stored form of a log. Rows are aligned with Fields; fields a
// record did not have are stored with KindNone.
type logBlob struct {
	Fields          []string                   `msgpack:"fields"`
	Rows            []blobRow                  `msgpack:"rows"`
	NumericalFields []string                   `msgpack:"numerical"`
	Stats           data_analysis.FlightStats  `msgpack:"stats"`
	Metadata        data_analysis.FileMetadata `msgpack:"metadata"`
	Warnings        []data_analysis.Warning    `msgpack:"warnings"`
}

type blobRow struct {
	Values      []data_analysis.Value `msgpack:"v"`
	TimeMs      int64                 `msgpack:"t"`
	HasTime     bool                  `msgpack:"ht"`
	TimeDeltaMs int64                 `msgpack:"dt"`
}

func encodeLog(log *data_analysis.NormalizedLog) ([]byte, error) {
	blob := logBlob{
		Fields:          log.Fields(),
		Rows:            make([]blobRow, len(log.Entries)),
		NumericalFields: log.NumericalFields,
		Stats:           log.Stats,
		Metadata:        log.Metadata,
		Warnings:        log.Warnings,
	}
	for i, e := range log.Entries {
		row := blobRow{
			Values:      make([]data_analysis.Value, len(blob.Fields)),
			TimeMs:      e.TimeMs,
			HasTime:     e.HasTime,
			TimeDeltaMs: e.TimeDeltaMs,
		}
		for j, field := range blob.Fields {
			if v, ok := e.Get(field); ok {
				row.Values[j] = v
			}
		}
		blob.Rows[i] = row
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(&blob); err != nil {
		return nil, fmt.Errorf("failed to encode log: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeLog(data []byte) (*data_analysis.NormalizedLog, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var blob logBlob
	if err := msgpack.NewDecoder(zr).Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode log: %w", err)
	}

	entries := make([]data_analysis.Entry, len(blob.Rows))
	for i, row := range blob.Rows {
		values := make(map[string]data_analysis.Value, len(blob.Fields))
		for j, v := range row.Values {
			if j < len(blob.Fields) && v.Kind != data_analysis.KindNone {
				values[blob.Fields[j]] = v
			}
		}
		e := data_analysis.NewEntry(blob.Fields, values)
		e.TimeMs = row.TimeMs
		e.HasTime = row.HasTime
		e.TimeDeltaMs = row.TimeDeltaMs
		entries[i] = e
	}

	return &data_analysis.NormalizedLog{
		Entries:         entries,
		NumericalFields: blob.NumericalFields,
		Stats:           blob.Stats,
		Metadata:        blob.Metadata,
		Warnings:        blob.Warnings,
	}, nil
}
