package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

const metaDimension = "dimension"

const documentColumns = `d.id, d.filename, d.title, d.file_type, d.kind, d.owner_id, d.status,
	d.failure_reason, d.content, d.details_kind, d.details, d.created_at, d.updated_at`

// scanDocumentColumns matches documentColumns but leaves content empty, so a
// scan never reads document text once per chunk row.
const scanDocumentColumns = `d.id, d.filename, d.title, d.file_type, d.kind, d.owner_id, d.status,
	d.failure_reason, '', d.details_kind, d.details, d.created_at, d.updated_at`

const chunkColumns = `c.id, c.document_id, c.seq, c.content, c.start_offset, c.end_offset, c.embedding, c.tags`

// Store is a SQLite-backed index store.
type Store struct {
	db   *sql.DB
	path string

	// locks serialises writes per document. Entries live only while held
	// or awaited.
	locksMu sync.Mutex
	locks   map[string]*docLock

	dimsMu sync.RWMutex
	dims   int
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docquery/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docquery", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL for concurrent readers; foreign keys must be enabled per connection.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:    db,
		path:  dbPath,
		locks: make(map[string]*docLock),
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	dims, err := s.loadDimensions(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	s.dims = dims

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) loadDimensions(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaDimension).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimension: %w", err)
	}
	dims, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing dimension %q: %w", value, err)
	}
	return dims, nil
}

type docLock struct {
	sync.Mutex
	refs int
}

// lockDocument blocks until the caller holds the write lock for id and
// returns the matching unlock.
func (s *Store) lockDocument(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &docLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// Dimensions returns the vector dimension, 0 until the first embedded upsert.
func (s *Store) Dimensions() int {
	s.dimsMu.RLock()
	defer s.dimsMu.RUnlock()
	return s.dims
}

// SaveDocument stores or updates document metadata, keeping its chunks.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}
	defer s.lockDocument(doc.ID)()

	if err := saveDocument(ctx, s.db, doc); err != nil {
		return err
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveDocument(ctx context.Context, db execer, doc *domain.Document) error {
	kind, details, err := domain.EncodeDetails(doc.Details)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, title, file_type, kind, owner_id, status,
			failure_reason, content, details_kind, details, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			title = excluded.title,
			file_type = excluded.file_type,
			kind = excluded.kind,
			owner_id = excluded.owner_id,
			status = excluded.status,
			failure_reason = excluded.failure_reason,
			content = excluded.content,
			details_kind = excluded.details_kind,
			details = excluded.details,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Filename, doc.Title, string(doc.FileType), string(doc.Kind), doc.OwnerID,
		string(doc.Status), doc.FailureReason, doc.Content, kind, details,
		toUnix(doc.CreatedAt), toUnix(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// UpsertDocument replaces the document and all its chunks in one transaction.
func (s *Store) UpsertDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}
	dims, err := domain.ValidateChunks(doc, chunks)
	if err != nil {
		return err
	}

	defer s.lockDocument(doc.ID)()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	claimed := false
	if dims > 0 {
		if claimed, err = claimDimensions(ctx, tx, dims); err != nil {
			return err
		}
	}

	if err := saveDocument(ctx, tx, doc); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, id, seq, content, start_offset, end_offset, embedding, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		if _, err := stmt.ExecContext(ctx, c.DocumentID, c.ID, c.Sequence, c.Content,
			c.Start, c.End, embeddingValue(c.Embedding), joinTags(c.Tags)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if claimed {
		s.dimsMu.Lock()
		s.dims = dims
		s.dimsMu.Unlock()
	}
	return nil
}

// claimDimensions fixes the dimension on first use inside tx and rejects any
// other. It reports whether the dimension was newly set.
func claimDimensions(ctx context.Context, tx *sql.Tx, dims int) (bool, error) {
	var value string
	err := tx.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaDimension).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)",
			metaDimension, strconv.Itoa(dims)); err != nil {
			return false, fmt.Errorf("saving dimension: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("reading dimension: %w", err)
	}

	stored, err := strconv.Atoi(value)
	if err != nil {
		return false, fmt.Errorf("parsing dimension %q: %w", value, err)
	}
	if stored == 0 {
		if _, err := tx.ExecContext(ctx, "UPDATE meta SET value = ? WHERE key = ?",
			strconv.Itoa(dims), metaDimension); err != nil {
			return false, fmt.Errorf("saving dimension: %w", err)
		}
		return true, nil
	}
	if stored != dims {
		return false, &domain.DimensionMismatchError{Expected: stored, Actual: dims}
	}
	return false, nil
}

// RemoveDocument deletes a document and its chunks.
func (s *Store) RemoveDocument(ctx context.Context, id string) error {
	defer s.lockDocument(id)()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents d WHERE d.id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	return doc, err
}

// ListDocuments returns matching documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.OwnerIDs) > 0 {
		where = append(where, inClause("d.owner_id", len(filter.OwnerIDs)))
		args = appendStrings(args, filter.OwnerIDs)
	}
	if len(filter.Statuses) > 0 {
		where = append(where, inClause("d.status", len(filter.Statuses)))
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}

	query := "SELECT " + documentColumns + " FROM documents d"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY d.created_at, d.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// GetChunks returns every chunk of a document, embedded or not.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", documentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c WHERE c.document_id = ?
		ORDER BY c.seq
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		if err := scanChunk(rows, &chunk); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// AllChunks streams embedded chunks of matching documents ordered by
// document creation, document id and chunk sequence. The scan runs as one
// statement, so it reads a single consistent snapshot. Yielded documents
// carry metadata only.
func (s *Store) AllChunks(ctx context.Context, filter domain.ChunkFilter) iter.Seq2[domain.IndexedChunk, error] {
	return func(yield func(domain.IndexedChunk, error) bool) {
		where := []string{"c.embedding IS NOT NULL"}
		var args []any
		if len(filter.DocumentIDs) > 0 {
			where = append(where, inClause("d.id", len(filter.DocumentIDs)))
			args = appendStrings(args, filter.DocumentIDs)
		}
		if len(filter.FileTypes) > 0 {
			where = append(where, inClause("d.file_type", len(filter.FileTypes)))
			for _, ft := range filter.FileTypes {
				args = append(args, string(ft))
			}
		}
		if len(filter.OwnerIDs) > 0 {
			where = append(where, inClause("d.owner_id", len(filter.OwnerIDs)))
			args = appendStrings(args, filter.OwnerIDs)
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT `+scanDocumentColumns+`, `+chunkColumns+`
			FROM chunks c JOIN documents d ON d.id = c.document_id
			WHERE `+strings.Join(where, " AND ")+`
			ORDER BY d.created_at, d.id, c.seq
		`, args...)
		if err != nil {
			yield(domain.IndexedChunk{}, fmt.Errorf("querying chunks: %w", err))
			return
		}
		defer rows.Close()

		var current *domain.Document
		for rows.Next() {
			doc, chunk, err := scanIndexedChunk(rows)
			if err != nil {
				yield(domain.IndexedChunk{}, err)
				return
			}
			if current == nil || current.ID != doc.ID {
				current = doc
			}
			if !yield(domain.IndexedChunk{Document: current, Chunk: chunk}, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.IndexedChunk{}, fmt.Errorf("iterating chunks: %w", err))
		}
	}
}

// ResetVectors clears every stored vector and sets a new dimension.
func (s *Store) ResetVectors(ctx context.Context, dims int) error {
	if dims < 0 {
		return fmt.Errorf("%w: dimension %d", domain.ErrInvalidConfiguration, dims)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "UPDATE chunks SET embedding = NULL"); err != nil {
		return fmt.Errorf("clearing vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaDimension, strconv.Itoa(dims)); err != nil {
		return fmt.Errorf("saving dimension: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.dimsMu.Lock()
	s.dims = dims
	s.dimsMu.Unlock()
	return nil
}

// ==================== Helper Functions ====================

type scanner interface {
	Scan(dest ...any) error
}

func documentDest(doc *domain.Document, detailsKind *string, details *[]byte, created, updated *int64) []any {
	return []any{&doc.ID, &doc.Filename, &doc.Title, (*string)(&doc.FileType), (*string)(&doc.Kind),
		&doc.OwnerID, (*string)(&doc.Status), &doc.FailureReason, &doc.Content,
		detailsKind, details, created, updated}
}

func chunkDest(chunk *domain.Chunk, embedding *[]byte, tags *string) []any {
	return []any{&chunk.ID, &chunk.DocumentID, &chunk.Sequence, &chunk.Content,
		&chunk.Start, &chunk.End, embedding, tags}
}

func finishDocument(doc *domain.Document, detailsKind string, details []byte, created, updated int64) error {
	doc.CreatedAt = fromUnix(created)
	doc.UpdatedAt = fromUnix(updated)
	d, err := domain.DecodeDetails(detailsKind, details)
	if err != nil {
		return err
	}
	doc.Details = d
	return nil
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc              domain.Document
		detailsKind      string
		details          []byte
		created, updated int64
	)
	if err := row.Scan(documentDest(&doc, &detailsKind, &details, &created, &updated)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if err := finishDocument(&doc, detailsKind, details, created, updated); err != nil {
		return nil, err
	}
	return &doc, nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows scanner, chunk *domain.Chunk) error {
	var (
		embedding []byte
		tags      string
	)
	if err := rows.Scan(chunkDest(chunk, &embedding, &tags)...); err != nil {
		return fmt.Errorf("scanning chunk: %w", err)
	}
	chunk.Embedding = bytesToFloat32Slice(embedding)
	chunk.Tags = splitTags(tags)
	return nil
}

func scanIndexedChunk(rows scanner) (*domain.Document, *domain.Chunk, error) {
	var (
		doc              domain.Document
		chunk            domain.Chunk
		detailsKind      string
		details          []byte
		created, updated int64
		embedding        []byte
		tags             string
	)
	dest := append(documentDest(&doc, &detailsKind, &details, &created, &updated),
		chunkDest(&chunk, &embedding, &tags)...)
	if err := rows.Scan(dest...); err != nil {
		return nil, nil, fmt.Errorf("scanning chunk: %w", err)
	}
	if err := finishDocument(&doc, detailsKind, details, created, updated); err != nil {
		return nil, nil, err
	}
	chunk.Embedding = bytesToFloat32Slice(embedding)
	chunk.Tags = splitTags(tags)
	return &doc, &chunk, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// embeddingValue binds a missing vector as NULL.
func embeddingValue(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	return float32SliceToBytes(vec)
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func joinTags(tags []domain.ChunkTag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func splitTags(s string) []domain.ChunkTag {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]domain.ChunkTag, len(parts))
	for i, p := range parts {
		tags[i] = domain.ChunkTag(p)
	}
	return tags
}

func inClause(column string, n int) string {
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}

func appendStrings(args []any, values []string) []any {
	for _, v := range values {
		args = append(args, v)
	}
	return args
}

// toUnix stores times as nanoseconds so they round-trip exactly.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
