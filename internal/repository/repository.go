// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/annotator/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Sort orders annotation listings. An empty Column keeps store order.
type Sort struct {
	Column string // created | updated | shared
	Desc   bool
}

// AnnotationQuery selects annotations of one document within one group.
type AnnotationQuery struct {
	URI          string
	Group        string
	Statuses     model.Status
	TopLevelOnly bool
	Sort         Sort
}

// AnnotationRepository persists annotations and their tags.
// Writes are compare-and-set on Annotation.Version and fail with
// errs.ErrVersionConflict when the row moved on.
type AnnotationRepository interface {
	// Create inserts a new annotation with its tags and sets Version/Created/Updated.
	Create(ctx context.Context, a *model.Annotation) error
	// Get loads an annotation with owner, metadata and tags.
	Get(ctx context.Context, id string) (*model.Annotation, error)
	// Update rewrites content, metadata link and tags; bumps a.Version.
	Update(ctx context.Context, a *model.Annotation) error
	// SetStatus moves the row to status if it is still at a.Version; updates a on success.
	SetStatus(ctx context.Context, a *model.Annotation, status model.Status) error
	// List returns up to limit rows from offset in the query's order.
	List(ctx context.Context, q AnnotationQuery, offset, limit int) ([]model.Annotation, error)
	// ListReplies returns replies referencing any of rootIDs, in store order.
	ListReplies(ctx context.Context, rootIDs []string, statuses model.Status) ([]model.Annotation, error)
}

// DocumentRepository resolves annotated documents.
type DocumentRepository interface {
	// FindByURI returns errs.ErrNotFound when the URI is unknown.
	FindByURI(ctx context.Context, uri string) (*model.Document, error)
	// Create inserts a new document.
	Create(ctx context.Context, uri, title string) (*model.Document, error)
	// MarkAnnotated records that annotations of the document changed.
	MarkAnnotated(ctx context.Context, id uuid.UUID) error
}

// MetadataRepository resolves (document, group, authority) metadata.
type MetadataRepository interface {
	// Find returns errs.ErrNotFound when no metadata exists for the tuple.
	Find(ctx context.Context, documentID, groupID uuid.UUID, authority string) (*model.Metadata, error)
	// Save inserts or updates metadata, assigning an ID when missing.
	Save(ctx context.Context, m *model.Metadata) error
}

// UserRepository resolves local accounts. Accounts are provisioned outside
// this service, which only reads them.
type UserRepository interface {
	// GetByLogin returns errs.ErrNotFound for unknown logins.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
}

// GroupRepository resolves groups and memberships.
type GroupRepository interface {
	// GetByName returns errs.ErrNotFound for unknown groups.
	GetByName(ctx context.Context, name string) (*model.Group, error)
	// GroupsOf returns the names of the groups login belongs to.
	GroupsOf(ctx context.Context, login string) ([]string, error)
}
