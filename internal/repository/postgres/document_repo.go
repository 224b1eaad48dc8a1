package postgres

import (
	"context"
	"errors"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// DocumentRepo implements DocumentRepository using PostgreSQL.
type DocumentRepo struct{ db *DB }

// NewDocumentRepo constructs a document repository.
func NewDocumentRepo(db *DB) *DocumentRepo { return &DocumentRepo{db: db} }

// FindByURI selects a document by URI.
func (r *DocumentRepo) FindByURI(ctx context.Context, uri string) (*model.Document, error) {
	const q = `SELECT id, uri, title, created_at FROM documents WHERE uri=$1`
	var d model.Document
	if err := r.db.Pool.QueryRow(ctx, q, uri).Scan(&d.ID, &d.URI, &d.Title, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row.
func (r *DocumentRepo) Create(ctx context.Context, uri, title string) (*model.Document, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	const q = `INSERT INTO documents (id, uri, title) VALUES ($1, $2, $3) RETURNING created_at`
	d := model.Document{ID: id, URI: uri, Title: title}
	err = r.db.Pool.QueryRow(ctx, q, id, uri, title).Scan(&d.CreatedAt)
	if isUniqueViolation(err) {
		return nil, errs.ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// MarkAnnotated stamps the document's last annotation change.
func (r *DocumentRepo) MarkAnnotated(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE documents SET last_annotated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
