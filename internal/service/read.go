package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/repository"
	"github.com/and161185/annotator/internal/search"
	"github.com/and161185/annotator/internal/visibility"
)

// SearchResult is one page of visible annotations.
type SearchResult struct {
	Rows []model.Annotation
	// Replies holds visible replies to Rows when replies were requested separately.
	Replies []model.Annotation
	Total   int
}

// Get returns the annotation when actor may see it. Deleted and invisible
// annotations are reported as errs.ErrNotFound.
func (s *AnnotationServiceImpl) Get(ctx context.Context, id string, actor model.Actor) (*model.Annotation, error) {
	a, err := s.repos.Annotations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == model.StatusDeleted {
		return nil, errs.ErrNotFound
	}
	v, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !visibility.Visible(a, v) {
		return nil, errs.ErrNotFound
	}
	s.enrich(ctx, a)
	return a, nil
}

// Search pages through the document's annotations, dropping rows the actor
// cannot see, until opts.Limit visible rows are collected or the store runs out.
func (s *AnnotationServiceImpl) Search(ctx context.Context, opts *search.Options, actor model.Actor) (*SearchResult, error) {
	if opts == nil {
		return nil, fmt.Errorf("%w: nil search options", errs.ErrInvalidArgument)
	}
	empty := &SearchResult{Rows: []model.Annotation{}, Replies: []model.Annotation{}}

	if _, err := s.repos.Groups.GetByName(ctx, opts.Group()); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return empty, nil
		}
		return nil, fmt.Errorf("group %q: %w", opts.Group(), err)
	}
	v, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, err
	}

	q := repository.AnnotationQuery{
		URI:          opts.URI(),
		Group:        opts.Group(),
		Statuses:     opts.Status(),
		TopLevelOnly: opts.SeparateReplies(),
	}
	if srt, ok := opts.Sort(); ok {
		q.Sort = repository.Sort{Column: string(srt.Column), Desc: srt.Order == search.Desc}
	}
	fetch := func(ctx context.Context, offset, limit int) ([]model.Annotation, error) {
		return s.repos.Annotations.List(ctx, q, offset, limit)
	}
	keep := visibility.Filter(v)

	rows, err := s.engine.Collect(ctx, fetch, keep, opts.Offset(), opts.Limit())
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", opts.URI(), err)
	}
	res := &SearchResult{Rows: rows, Replies: []model.Annotation{}, Total: len(rows)}

	if opts.SeparateReplies() && len(rows) > 0 {
		ids := make([]string, 0, len(rows))
		for i := range rows {
			ids = append(ids, rows[i].ID)
		}
		replies, err := s.repos.Annotations.ListReplies(ctx, ids, opts.Status())
		if err != nil {
			return nil, fmt.Errorf("replies %s: %w", opts.URI(), err)
		}
		for i := range replies {
			if keep(&replies[i]) {
				res.Replies = append(res.Replies, replies[i])
			}
		}
	}

	all := make([]*model.Annotation, 0, len(res.Rows)+len(res.Replies))
	for i := range res.Rows {
		all = append(all, &res.Rows[i])
	}
	for i := range res.Replies {
		all = append(all, &res.Replies[i])
	}
	s.enrich(ctx, all...)
	return res, nil
}

// viewer resolves the actor's group memberships. Anonymous viewers belong to no group.
func (s *AnnotationServiceImpl) viewer(ctx context.Context, actor model.Actor) (visibility.Viewer, error) {
	if actor.IsZero() {
		return visibility.NewViewer(actor, nil), nil
	}
	groups, err := s.repos.Groups.GroupsOf(ctx, actor.Login)
	if err != nil {
		return visibility.Viewer{}, fmt.Errorf("groups of %q: %w", actor.Login, err)
	}
	return visibility.NewViewer(actor, groups), nil
}
