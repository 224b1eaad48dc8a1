package postgres

import (
	"context"
	"errors"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MetadataRepo implements MetadataRepository using PostgreSQL.
type MetadataRepo struct{ db *DB }

// NewMetadataRepo constructs a metadata repository.
func NewMetadataRepo(db *DB) *MetadataRepo { return &MetadataRepo{db: db} }

// Find selects metadata for a (document, group, authority) tuple.
func (r *MetadataRepo) Find(ctx context.Context, documentID, groupID uuid.UUID, authority string) (*model.Metadata, error) {
	const q = `
SELECT m.id, m.authority, m.response_status,
       d.id, d.uri, d.title, d.created_at,
       g.id, g.name, g.display_name, g.is_public
FROM metadata m
JOIN documents d ON d.id = m.document_id
JOIN groups g ON g.id = m.group_id
WHERE m.document_id=$1 AND m.group_id=$2 AND m.authority=$3`
	var (
		m    model.Metadata
		resp string
	)
	err := r.db.Pool.QueryRow(ctx, q, documentID, groupID, authority).Scan(
		&m.ID, &m.Authority, &resp,
		&m.Document.ID, &m.Document.URI, &m.Document.Title, &m.Document.CreatedAt,
		&m.Group.ID, &m.Group.Name, &m.Group.DisplayName, &m.Group.Public,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	m.ResponseStatus = model.ResponseStatus(resp)
	return &m, nil
}

// Save inserts metadata or updates its response status.
func (r *MetadataRepo) Save(ctx context.Context, m *model.Metadata) error {
	if m.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		m.ID = id
	}
	if m.ResponseStatus == "" {
		m.ResponseStatus = model.ResponseInPreparation
	}
	const q = `
INSERT INTO metadata (id, document_id, group_id, authority, response_status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET response_status = EXCLUDED.response_status`
	_, err := r.db.Pool.Exec(ctx, q, m.ID, m.Document.ID, m.Group.ID, m.Authority, string(m.ResponseStatus))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}
