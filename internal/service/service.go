// Package service contains the annotation lifecycle and read/search orchestration.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/annotator/internal/idgen"
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/repository"
	"github.com/and161185/annotator/internal/search"
)

// AnnotationService defines lifecycle, read and search operations over annotations.
type AnnotationService interface {
	// Create stores a new NORMAL annotation owned by actor.
	Create(ctx context.Context, in model.AnnotationInput, actor model.Actor) (*model.Annotation, error)
	// Update rewrites content, tags and group of a NORMAL annotation.
	Update(ctx context.Context, id string, in model.AnnotationInput, actor model.Actor) (*model.Annotation, error)
	// Delete soft-deletes an annotation.
	Delete(ctx context.Context, id string, actor model.Actor) error
	// Accept moves a suggestion to ACCEPTED.
	Accept(ctx context.Context, id string, actor model.Actor) (*model.Annotation, error)
	// Reject moves a suggestion to REJECTED.
	Reject(ctx context.Context, id string, actor model.Actor) (*model.Annotation, error)
	// Get returns one annotation visible to actor.
	Get(ctx context.Context, id string, actor model.Actor) (*model.Annotation, error)
	// Search returns one page of annotations visible to actor.
	Search(ctx context.Context, opts *search.Options, actor model.Actor) (*SearchResult, error)
}

// Indexer mirrors annotations into a secondary full-text index.
type Indexer interface {
	Index(ctx context.Context, a *model.Annotation) error
	Remove(ctx context.Context, id string) error
}

// DetailsSource resolves owner profiles; nil details mean unknown login.
type DetailsSource interface {
	Get(ctx context.Context, login string) (*model.UserDetails, error)
}

// Repos bundles the storage collaborators.
type Repos struct {
	Annotations repository.AnnotationRepository
	Documents   repository.DocumentRepository
	Metadata    repository.MetadataRepository
	Users       repository.UserRepository
	Groups      repository.GroupRepository
}

type AnnotationServiceImpl struct {
	repos   Repos
	ids     idgen.Generator
	index   Indexer
	details DetailsSource
	engine  *search.Engine
	log     *zap.Logger
}

// Option customizes AnnotationServiceImpl.
type Option func(*AnnotationServiceImpl)

// WithIndexer enables full-text index updates after mutations.
func WithIndexer(ix Indexer) Option { return func(s *AnnotationServiceImpl) { s.index = ix } }

// WithDetails enables owner profile enrichment of returned annotations.
func WithDetails(d DetailsSource) Option { return func(s *AnnotationServiceImpl) { s.details = d } }

// WithBatchSize caps a single range query issued by Search.
func WithBatchSize(n int) Option {
	return func(s *AnnotationServiceImpl) { s.engine = search.NewEngine(n) }
}

// NewAnnotationService constructs AnnotationService with required dependencies.
func NewAnnotationService(repos Repos, ids idgen.Generator, log *zap.Logger, opts ...Option) *AnnotationServiceImpl {
	if ids == nil {
		ids = idgen.UUID{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &AnnotationServiceImpl{
		repos:  repos,
		ids:    ids,
		engine: search.NewEngine(search.DefaultBatchSize),
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ AnnotationService = (*AnnotationServiceImpl)(nil)

// fail wraps cause into an operation family error.
func fail(family, cause error) error {
	return fmt.Errorf("%w: %w", family, cause)
}

// secondary runs fn on a best-effort path. Errors and panics are logged and dropped.
func (s *AnnotationServiceImpl) secondary(what, id string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn(what+" panicked", zap.String("annotation_id", id), zap.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		s.log.Warn(what+" failed", zap.String("annotation_id", id), zap.Error(err))
	}
}

// afterWrite performs bookkeeping that must never undo a persisted write.
func (s *AnnotationServiceImpl) afterWrite(ctx context.Context, a *model.Annotation) {
	s.secondary("document bookkeeping", a.ID, func() error {
		return s.repos.Documents.MarkAnnotated(ctx, a.Metadata.Document.ID)
	})
	if s.index == nil {
		return
	}
	s.secondary("index update", a.ID, func() error {
		if a.Status == model.StatusDeleted {
			return s.index.Remove(ctx, a.ID)
		}
		return s.index.Index(ctx, a)
	})
}

// enrich attaches cached owner details. Lookup failures leave OwnerDetails nil.
func (s *AnnotationServiceImpl) enrich(ctx context.Context, as ...*model.Annotation) {
	if s.details == nil {
		return
	}
	seen := make(map[string]*model.UserDetails, len(as))
	for _, a := range as {
		login := a.Owner.Login
		d, ok := seen[login]
		if !ok {
			var err error
			if d, err = s.details.Get(ctx, login); err != nil {
				d = nil
			}
			seen[login] = d
		}
		a.OwnerDetails = d
	}
}
