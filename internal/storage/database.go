package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/spider-crawler/scrapekit/internal/headers"
	"github.com/spider-crawler/scrapekit/internal/response"
	"github.com/spider-crawler/scrapekit/internal/urlutil"
)

// ErrNotFound is returned when no response has the requested ID.
var ErrNotFound = errors.New("response not found")

// Database archives responses in SQLite.
type Database struct {
	db         *sql.DB
	mu         sync.RWMutex
	normalizer *urlutil.Normalizer
	log        zerolog.Logger
}

// NewDatabase opens (or creates) the database at path and creates the
// schema. ignoreParams are dropped from URLs when computing the normalized
// URL used for lookups.
func NewDatabase(path string, ignoreParams []string, logger *zerolog.Logger) (*Database, error) {
	dsn := fmt.Sprintf("%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	var l zerolog.Logger
	if logger == nil {
		l = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		l = *logger
	}

	d := &Database{
		db:         db,
		normalizer: urlutil.DefaultNormalizer(ignoreParams),
		log:        l.With().Str("component", "storage").Logger(),
	}

	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) initialize() error {
	if _, err := d.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := d.db.Exec(ViewsSchema); err != nil {
		return fmt.Errorf("failed to create views: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Save archives m and returns its new ID. For text responses the encoding
// given at construction, if any, is stored so Load resolves the same way.
func (d *Database) Save(m response.Message) (string, error) {
	id := uuid.NewString()

	normalized, err := d.normalizer.Normalize(m.URL())
	if err != nil {
		normalized = m.URL()
	}
	host, _ := urlutil.ExtractHost(m.URL())

	flags, err := json.Marshal(m.Flags())
	if err != nil {
		return "", fmt.Errorf("failed to encode flags: %w", err)
	}

	var requestURL sql.NullString
	if req := m.Request(); req != nil {
		requestURL = sql.NullString{String: req.URL, Valid: true}
	}

	kind := KindRaw
	var override, encoding, source sql.NullString
	if tr, ok := response.AsText(m); ok {
		kind = tr.Kind().String()
		encoding = sql.NullString{String: tr.Encoding(), Valid: true}
		source = sql.NullString{String: string(tr.EncodingSource()), Valid: true}
		if tr.EncodingSource() == response.SourceOverride {
			override = encoding
		}
	}

	body := m.Body()

	d.mu.Lock()
	defer d.mu.Unlock()

	_, err = d.db.Exec(`
		INSERT INTO responses (id, url, normalized_url, host, request_url, status_code, kind, headers, body, body_size, flags, encoding_override, encoding, encoding_source, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, m.URL(), normalized, host, requestURL, m.Status(), kind,
		[]byte(m.Headers().String()), body, len(body), string(flags),
		override, encoding, source, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert response: %w", err)
	}

	d.log.Debug().Str("id", id).Str("url", m.URL()).Str("kind", kind).Msg("Archived response")
	return id, nil
}

// Load rebuilds the archived response with the given ID.
func (d *Database) Load(id string) (response.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var (
		rawURL, kind, flagsJSON string
		status                  int
		rawHeaders, body        []byte
		override                sql.NullString
	)
	err := d.db.QueryRow(`
		SELECT url, status_code, kind, headers, body, flags, encoding_override
		FROM responses WHERE id = ?
	`, id).Scan(&rawURL, &status, &kind, &rawHeaders, &body, &flagsJSON, &override)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load response: %w", err)
	}

	var flags []string
	if err := json.Unmarshal([]byte(flagsJSON), &flags); err != nil {
		return nil, fmt.Errorf("failed to decode flags: %w", err)
	}

	opts := []response.Option{
		response.WithStatus(status),
		response.WithHeaders(headers.Parse(string(rawHeaders))),
		response.WithBody(body),
		response.WithFlags(flags...),
	}

	var textKind response.Kind
	switch kind {
	case KindRaw:
		r, err := response.New(rawURL, opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	case KindHTML:
		textKind = response.KindHTML
	case KindXML:
		textKind = response.KindXML
	case KindText:
		textKind = response.KindText
	default:
		return nil, fmt.Errorf("unknown response kind '%s'", kind)
	}

	if override.Valid && override.String != "" {
		opts = append(opts, response.WithEncoding(override.String))
	}
	r, err := response.NewKind(textKind, rawURL, opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes an archived response.
func (d *Database) Delete(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.Exec(`DELETE FROM responses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete response: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const recordColumns = `id, url, normalized_url, host, request_url, status_code, kind, headers, body_size, flags, encoding, encoding_source, fetched_at`

// Get returns the summary record for id.
func (d *Database) Get(id string) (*Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, err := scanRecord(d.db.QueryRow(`SELECT `+recordColumns+` FROM responses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// FindByURL returns the records whose normalized URL matches rawURL, newest
// first.
func (d *Database) FindByURL(rawURL string) ([]*Record, error) {
	normalized, err := d.normalizer.Normalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`
		SELECT `+recordColumns+` FROM responses
		WHERE normalized_url = ?
		ORDER BY fetched_at DESC
	`, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	return collectRecords(rows)
}

// List returns archived records in fetch order.
func (d *Database) List(opts ListOptions) ([]*Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	query := `SELECT ` + recordColumns + ` FROM responses`
	var args []interface{}
	if opts.Host != "" {
		query += ` WHERE host = ?`
		args = append(args, strings.ToLower(opts.Host))
	}
	query += ` ORDER BY fetched_at ASC, rowid ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	return collectRecords(rows)
}

// Count returns the number of archived responses.
func (d *Database) Count() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return n, nil
}

// EncodingStats reads the encoding_summary view.
func (d *Database) EncodingStats() ([]*EncodingStat, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`SELECT encoding, encoding_source, responses, total_bytes FROM encoding_summary`)
	if err != nil {
		return nil, fmt.Errorf("failed to query encoding summary: %w", err)
	}
	defer rows.Close()

	var stats []*EncodingStat
	for rows.Next() {
		s := &EncodingStat{}
		if err := rows.Scan(&s.Encoding, &s.Source, &s.Responses, &s.TotalBytes); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec                          Record
		requestURL, encoding, source sql.NullString
		rawHeaders                   []byte
		flagsJSON                    string
	)
	err := row.Scan(&rec.ID, &rec.URL, &rec.NormalizedURL, &rec.Host, &requestURL,
		&rec.StatusCode, &rec.Kind, &rawHeaders, &rec.BodySize, &flagsJSON,
		&encoding, &source, &rec.FetchedAt)
	if err != nil {
		return nil, err
	}

	rec.RequestURL = requestURL.String
	rec.Encoding = encoding.String
	rec.EncodingSrc = source.String
	rec.ContentType = headers.Parse(string(rawHeaders)).GetString("Content-Type")
	if err := json.Unmarshal([]byte(flagsJSON), &rec.Flags); err != nil {
		return nil, fmt.Errorf("failed to decode flags: %w", err)
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
