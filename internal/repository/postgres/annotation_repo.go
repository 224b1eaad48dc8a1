package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/repository"
	"github.com/jackc/pgx/v5"
)

const annotationColumns = `
a.id, a.created_at, a.updated_at, a.target_selectors, COALESCE(a.text, ''), a.shared, a.refs, a.status, a.version,
u.id, u.login,
m.id, m.authority, m.response_status,
d.id, d.uri, d.title,
g.id, g.name, g.display_name, g.is_public`

const annotationJoins = `
FROM annotations a
JOIN users u ON u.id = a.user_id
JOIN metadata m ON m.id = a.metadata_id
JOIN documents d ON d.id = m.document_id
JOIN groups g ON g.id = m.group_id`

const (
	insertAnnotation = `
INSERT INTO annotations (id, user_id, metadata_id, target_selectors, text, shared, refs, status, version)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,1)
RETURNING created_at, updated_at`

	updateAnnotation = `
UPDATE annotations
SET metadata_id=$3, target_selectors=$4, text=NULLIF($5,''), shared=$6, refs=$7, version=version+1, updated_at=now()
WHERE id=$1 AND version=$2
RETURNING version, updated_at`

	setAnnotationStatus = `
UPDATE annotations SET status=$3, version=version+1, updated_at=now()
WHERE id=$1 AND version=$2
RETURNING version, updated_at`

	insertTags = `
INSERT INTO tags (annotation_id, name, position)
SELECT $1, t.name, t.ord FROM unnest($2::text[]) WITH ORDINALITY AS t(name, ord)`

	deleteTags = `DELETE FROM tags WHERE annotation_id=$1`

	selectTags = `SELECT annotation_id, name FROM tags WHERE annotation_id = ANY($1) ORDER BY annotation_id, position`
)

// sortColumns maps allowed sort keys to SQL expressions.
var sortColumns = map[string]string{
	"created": "a.created_at",
	"updated": "a.updated_at",
	"shared":  "a.shared",
}

// AnnotationRepo implements AnnotationRepository using PostgreSQL.
type AnnotationRepo struct{ db *DB }

// NewAnnotationRepo constructs an annotation repository.
func NewAnnotationRepo(db *DB) *AnnotationRepo { return &AnnotationRepo{db: db} }

var _ repository.AnnotationRepository = (*AnnotationRepo)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row scanner) (model.Annotation, error) {
	var (
		a      model.Annotation
		status string
		resp   string
	)
	err := row.Scan(
		&a.ID, &a.Created, &a.Updated, &a.TargetSelectors, &a.Text, &a.Shared, &a.References, &status, &a.Version,
		&a.Owner.ID, &a.Owner.Login,
		&a.Metadata.ID, &a.Metadata.Authority, &resp,
		&a.Metadata.Document.ID, &a.Metadata.Document.URI, &a.Metadata.Document.Title,
		&a.Metadata.Group.ID, &a.Metadata.Group.Name, &a.Metadata.Group.DisplayName, &a.Metadata.Group.Public,
	)
	if err != nil {
		return model.Annotation{}, err
	}
	st, err := model.ParseStatus(status)
	if err != nil || !st.IsConcrete() {
		return model.Annotation{}, fmt.Errorf("annotation %s: bad status %q", a.ID, status)
	}
	a.Status = st
	a.Metadata.ResponseStatus = model.ResponseStatus(resp)
	return a, nil
}

func nonNilRefs(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}

func writeTags(ctx context.Context, q querier, a *model.Annotation) error {
	names := a.TagNames()
	if len(names) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, insertTags, a.ID, names)
	return err
}

// Create inserts an annotation and its tags in one transaction.
func (r *AnnotationRepo) Create(ctx context.Context, a *model.Annotation) error {
	if !a.Status.IsConcrete() {
		return fmt.Errorf("%w: status %s", errs.ErrInvalidArgument, a.Status)
	}
	return r.db.inTx(ctx, func(q querier) error {
		err := q.QueryRow(ctx, insertAnnotation,
			a.ID, a.Owner.ID, a.Metadata.ID, a.TargetSelectors, a.Text, a.Shared, nonNilRefs(a.References), a.Status.String(),
		).Scan(&a.Created, &a.Updated)
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		if err != nil {
			return err
		}
		a.Version = 1
		return writeTags(ctx, q, a)
	})
}

// Get loads a single annotation by id.
func (r *AnnotationRepo) Get(ctx context.Context, id string) (*model.Annotation, error) {
	q := `SELECT ` + annotationColumns + annotationJoins + `
WHERE a.id=$1`
	a, err := scanAnnotation(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	out := []model.Annotation{a}
	if err := attachTags(ctx, r.db.Pool, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Update rewrites content and tags if the row is still at a.Version.
func (r *AnnotationRepo) Update(ctx context.Context, a *model.Annotation) error {
	return r.db.inTx(ctx, func(q querier) error {
		err := q.QueryRow(ctx, updateAnnotation,
			a.ID, a.Version, a.Metadata.ID, a.TargetSelectors, a.Text, a.Shared, nonNilRefs(a.References),
		).Scan(&a.Version, &a.Updated)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrVersionConflict
		}
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, deleteTags, a.ID); err != nil {
			return err
		}
		return writeTags(ctx, q, a)
	})
}

// SetStatus moves a to status if the row is still at a.Version.
func (r *AnnotationRepo) SetStatus(ctx context.Context, a *model.Annotation, status model.Status) error {
	if !status.IsConcrete() {
		return fmt.Errorf("%w: status %s", errs.ErrInvalidArgument, status)
	}
	var (
		ver     = a.Version
		updated = a.Updated
	)
	err := r.db.Pool.QueryRow(ctx, setAnnotationStatus, a.ID, a.Version, status.String()).Scan(&ver, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrVersionConflict
	}
	if err != nil {
		return err
	}
	a.Status, a.Version, a.Updated = status, ver, updated
	return nil
}

func orderBy(s repository.Sort) string {
	col, ok := sortColumns[s.Column]
	if !ok {
		return `
ORDER BY a.seq`
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return `
ORDER BY ` + col + ` ` + dir + `, a.seq`
}

// List returns one range of annotations matching q.
func (r *AnnotationRepo) List(ctx context.Context, q repository.AnnotationQuery, offset, limit int) ([]model.Annotation, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + annotationColumns + annotationJoins + `
WHERE d.uri=$1 AND g.name=$2 AND a.status = ANY($3)`)
	if q.TopLevelOnly {
		b.WriteString(` AND cardinality(a.refs)=0`)
	}
	b.WriteString(orderBy(q.Sort))
	b.WriteString(`
LIMIT $4 OFFSET $5`)

	rows, err := r.db.Pool.Query(ctx, b.String(), q.URI, q.Group, q.Statuses.Names(), limit, offset)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

// ListReplies returns replies whose references overlap rootIDs.
func (r *AnnotationRepo) ListReplies(ctx context.Context, rootIDs []string, statuses model.Status) ([]model.Annotation, error) {
	if len(rootIDs) == 0 {
		return []model.Annotation{}, nil
	}
	q := `SELECT ` + annotationColumns + annotationJoins + `
WHERE a.refs && $1::text[] AND a.status = ANY($2)
ORDER BY a.seq`
	rows, err := r.db.Pool.Query(ctx, q, rootIDs, statuses.Names())
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *AnnotationRepo) collect(ctx context.Context, rows pgx.Rows) ([]model.Annotation, error) {
	out := []model.Annotation{}
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachTags(ctx, r.db.Pool, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachTags loads tags for all annotations in one query.
func attachTags(ctx context.Context, q querier, as []model.Annotation) error {
	if len(as) == 0 {
		return nil
	}
	ids := make([]string, 0, len(as))
	pos := make(map[string]int, len(as))
	for i := range as {
		ids = append(ids, as[i].ID)
		pos[as[i].ID] = i
	}
	rows, err := q.Query(ctx, selectTags, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.AnnotationID, &t.Name); err != nil {
			return err
		}
		if i, ok := pos[t.AnnotationID]; ok {
			as[i].Tags = append(as[i].Tags, t)
		}
	}
	return rows.Err()
}
