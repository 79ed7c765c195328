package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/davidwtbuxton/pastebin/pkg/paste"
)

// SQLStore implements EntityStore over database/sql. Production deployments
// use PostgreSQL (lib/pq); tests and single-node setups use SQLite. Queries
// stick to the $N placeholder form, which both drivers accept.
type SQLStore struct {
	db    *sql.DB
	blobs BlobStore
}

// NewSQLStore creates a store backed by an open database handle. File
// contents are written through the given blob store.
func NewSQLStore(db *sql.DB, blobs BlobStore) *SQLStore {
	return &SQLStore{db: db, blobs: blobs}
}

const schema = `
CREATE TABLE IF NOT EXISTS pastes (
	id BIGINT PRIMARY KEY,
	author TEXT,
	description TEXT,
	filename TEXT,
	created TIMESTAMP NOT NULL,
	forked_from BIGINT
);

CREATE TABLE IF NOT EXISTS paste_files (
	paste_id BIGINT NOT NULL,
	position INTEGER NOT NULL,
	path TEXT NOT NULL,
	relative_path TEXT,
	PRIMARY KEY (paste_id, position)
);

CREATE TABLE IF NOT EXISTS peelings (
	id BIGINT PRIMARY KEY,
	title TEXT,
	content TEXT,
	language TEXT,
	fork_of_id BIGINT,
	created TIMESTAMP NOT NULL
);
`

// InitSchema creates the tables if they do not exist.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// GetPaste implements PasteReader.
func (s *SQLStore) GetPaste(ctx context.Context, id int64) (*paste.Paste, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT author, description, filename, created, forked_from
		FROM pastes WHERE id = $1
	`, id)

	var author, description, filename sql.NullString
	var forkedFrom sql.NullInt64
	p := &paste.Paste{ID: id}

	err := row.Scan(&author, &description, &filename, &p.Created, &forkedFrom)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load paste %d: %w", id, err)
	}

	p.Author = author.String
	p.Description = description.String
	p.Filename = filename.String
	if forkedFrom.Valid {
		p.ForkedFrom = &forkedFrom.Int64
	}
	p.NeedsRepair = !description.Valid || !filename.Valid

	if err := s.loadFiles(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLStore) loadFiles(ctx context.Context, p *paste.Paste) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, relative_path
		FROM paste_files WHERE paste_id = $1 ORDER BY position
	`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load files for paste %d: %w", p.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var f paste.File
		var relative sql.NullString
		if err := rows.Scan(&f.Path, &relative); err != nil {
			return fmt.Errorf("failed to scan file row: %w", err)
		}
		f.RelativePath = relative.String
		if f.RelativePath == "" {
			p.NeedsRepair = true
		}
		p.Files = append(p.Files, f)
	}
	return rows.Err()
}

// PutPaste implements PasteWriter. It rewrites the paste row and its file
// rows, clearing any legacy NULLs.
func (s *SQLStore) PutPaste(ctx context.Context, p *paste.Paste) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE pastes SET author = $1, description = $2, filename = $3, created = $4, forked_from = $5
		WHERE id = $6
	`, p.Author, p.Description, p.Filename, p.Created, nullableID(p.ForkedFrom), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update paste %d: %w", p.ID, err)
	}

	if err := s.replaceFiles(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit paste %d: %w", p.ID, err)
	}
	p.NeedsRepair = false
	return nil
}

// CreatePasteWithFiles implements PasteWriter. The paste's id and created
// timestamp are preserved as given, so migrated records keep their identity
// and chronology.
func (s *SQLStore) CreatePasteWithFiles(ctx context.Context, p *paste.Paste, files []NewFile) error {
	p.Files = p.Files[:0]
	for _, f := range files {
		blobPath := paste.BlobPath(p.ID, f.Name)
		if err := s.blobs.Write(blobPath, []byte(f.Content)); err != nil {
			return fmt.Errorf("failed to write content for paste %d: %w", p.ID, err)
		}
		p.Files = append(p.Files, paste.File{Path: blobPath, RelativePath: f.Name})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pastes (id, author, description, filename, created, forked_from)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			author = excluded.author,
			description = excluded.description,
			filename = excluded.filename,
			created = excluded.created,
			forked_from = excluded.forked_from
	`, p.ID, p.Author, p.Description, p.Filename, p.Created, nullableID(p.ForkedFrom))
	if err != nil {
		return fmt.Errorf("failed to insert paste %d: %w", p.ID, err)
	}

	if err := s.replaceFiles(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit paste %d: %w", p.ID, err)
	}
	return nil
}

func (s *SQLStore) replaceFiles(ctx context.Context, tx *sql.Tx, p *paste.Paste) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM paste_files WHERE paste_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to clear files for paste %d: %w", p.ID, err)
	}
	for i, f := range p.Files {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO paste_files (paste_id, position, path, relative_path)
			VALUES ($1, $2, $3, $4)
		`, p.ID, i, f.Path, f.RelativePath)
		if err != nil {
			return fmt.Errorf("failed to insert file for paste %d: %w", p.ID, err)
		}
	}
	return nil
}

// ScanPastes implements Scanner. The cursor is the last seen id.
func (s *SQLStore) ScanPastes(ctx context.Context, cursor string, limit int) ([]*paste.Paste, string, error) {
	after, err := decodeScanCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM pastes WHERE id > $1 ORDER BY id LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan pastes: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, "", fmt.Errorf("failed to scan paste id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	pastes := make([]*paste.Paste, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPaste(ctx, id)
		if err != nil {
			return nil, "", err
		}
		pastes = append(pastes, p)
	}

	return pastes, nextScanCursor(ids, limit), nil
}

// ScanPeelings implements Scanner over the legacy schema.
func (s *SQLStore) ScanPeelings(ctx context.Context, cursor string, limit int) ([]*Peeling, string, error) {
	after, err := decodeScanCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, language, fork_of_id, created
		FROM peelings WHERE id > $1 ORDER BY id LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan peelings: %w", err)
	}
	defer rows.Close()

	var peelings []*Peeling
	var ids []int64
	for rows.Next() {
		var pl Peeling
		var title, content, language sql.NullString
		var forkOf sql.NullInt64
		if err := rows.Scan(&pl.ID, &title, &content, &language, &forkOf, &pl.Created); err != nil {
			return nil, "", fmt.Errorf("failed to scan peeling row: %w", err)
		}
		pl.Title = title.String
		pl.Content = content.String
		pl.Language = language.String
		if forkOf.Valid {
			pl.ForkOfID = &forkOf.Int64
		}
		peelings = append(peelings, &pl)
		ids = append(ids, pl.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	return peelings, nextScanCursor(ids, limit), nil
}

func decodeScanCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	after, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scan cursor %q: %w", cursor, err)
	}
	return after, nil
}

func nextScanCursor(ids []int64, limit int) string {
	if len(ids) < limit {
		return ""
	}
	return strconv.FormatInt(ids[len(ids)-1], 10)
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
