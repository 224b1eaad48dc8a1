package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/permission"
	"github.com/and161185/annotator/internal/search"
	"github.com/and161185/annotator/internal/tags"
)

// Create resolves owner, group, document and metadata, then stores a NORMAL annotation.
// A missing id is generated. Post-write bookkeeping never fails the call.
func (s *AnnotationServiceImpl) Create(ctx context.Context, in model.AnnotationInput, actor model.Actor) (*model.Annotation, error) {
	if actor.IsZero() {
		return nil, fail(errs.ErrCannotCreate, errs.ErrUnauthorized)
	}
	uri, err := search.ValidateURI(in.URI)
	if err != nil {
		return nil, fail(errs.ErrCannotCreate, err)
	}
	owner, err := s.repos.Users.GetByLogin(ctx, actor.Login)
	if err != nil {
		return nil, fail(errs.ErrCannotCreate, fmt.Errorf("user %q: %w", actor.Login, err))
	}
	doc, err := s.resolveDocument(ctx, uri, in.Title)
	if err != nil {
		return nil, fail(errs.ErrCannotCreate, err)
	}
	meta, err := s.resolveMetadata(ctx, doc, in.Group, actor.Authority)
	if err != nil {
		return nil, fail(errs.ErrCannotCreate, err)
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		if id, err = s.ids.NewID(); err != nil {
			return nil, fail(errs.ErrCannotCreate, err)
		}
	}

	a := &model.Annotation{
		ID:         id,
		Owner:      *owner,
		Metadata:   *meta,
		Text:       in.Text,
		Shared:     in.Shared,
		References: slices.Clone(in.References),
		Status:     model.StatusNormal,
	}
	a.TargetSelectors = targetOrNone(in.TargetSelectors)
	a.Tags = tags.For(in.Tags, a)

	if err := s.repos.Annotations.Create(ctx, a); err != nil {
		return nil, fail(errs.ErrCannotCreate, err)
	}
	s.afterWrite(ctx, a)
	s.enrich(ctx, a)
	return a, nil
}

// Update rewrites a NORMAL annotation the actor may update.
func (s *AnnotationServiceImpl) Update(ctx context.Context, id string, in model.AnnotationInput, actor model.Actor) (*model.Annotation, error) {
	a, err := s.loadMutable(ctx, id, actor, errs.ErrCannotUpdate, "updated")
	if err != nil {
		return nil, err
	}
	acct := permission.AccountID(actor.Login, actor.Authority)
	if !permission.Evaluate(a, acct).Allows(acct, permission.Update) {
		return nil, fail(errs.ErrCannotUpdate, errs.ErrPermissionDenied)
	}

	if g := strings.TrimSpace(in.Group); g != "" && g != a.Group().Name {
		meta, err := s.resolveMetadata(ctx, &a.Metadata.Document, g, a.Metadata.Authority)
		if err != nil {
			return nil, fail(errs.ErrCannotUpdate, err)
		}
		if meta.IsSent() {
			return nil, fail(errs.ErrCannotUpdate, fmt.Errorf("%w: group %q already sent", errs.ErrPermissionDenied, g))
		}
		a.Metadata = *meta
	}
	if in.TargetSelectors != "" {
		a.TargetSelectors = in.TargetSelectors
	}
	a.Text = in.Text
	a.Shared = in.Shared
	a.Tags = tags.For(in.Tags, a)

	if err := s.repos.Annotations.Update(ctx, a); err != nil {
		return nil, fail(errs.ErrCannotUpdate, err)
	}
	s.afterWrite(ctx, a)
	s.enrich(ctx, a)
	return a, nil
}

// Delete soft-deletes an annotation the actor may delete.
func (s *AnnotationServiceImpl) Delete(ctx context.Context, id string, actor model.Actor) error {
	a, err := s.loadMutable(ctx, id, actor, errs.ErrCannotDelete, "deleted")
	if err != nil {
		return err
	}
	acct := permission.AccountID(actor.Login, actor.Authority)
	if !permission.Evaluate(a, acct).Allows(acct, permission.Delete) {
		return fail(errs.ErrCannotDelete, errs.ErrPermissionDenied)
	}
	if err := s.repos.Annotations.SetStatus(ctx, a, model.StatusDeleted); err != nil {
		return fail(errs.ErrCannotDelete, err)
	}
	s.afterWrite(ctx, a)
	return nil
}

// Accept moves a suggestion to ACCEPTED.
func (s *AnnotationServiceImpl) Accept(ctx context.Context, id string, actor model.Actor) (*model.Annotation, error) {
	return s.resolveSuggestion(ctx, id, actor, model.StatusAccepted, errs.ErrCannotAccept, "accepted")
}

// Reject moves a suggestion to REJECTED.
func (s *AnnotationServiceImpl) Reject(ctx context.Context, id string, actor model.Actor) (*model.Annotation, error) {
	return s.resolveSuggestion(ctx, id, actor, model.StatusRejected, errs.ErrCannotReject, "rejected")
}

// IsSuggestion reports whether a carries the suggestion tag.
func (s *AnnotationServiceImpl) IsSuggestion(a *model.Annotation) (bool, error) {
	return tags.IsSuggestion(a)
}

func (s *AnnotationServiceImpl) resolveSuggestion(
	ctx context.Context, id string, actor model.Actor, to model.Status, family error, action string,
) (*model.Annotation, error) {
	a, err := s.loadMutable(ctx, id, actor, family, action)
	if err != nil {
		return nil, err
	}
	ok, err := tags.IsSuggestion(a)
	if err != nil {
		return nil, fail(family, err)
	}
	if !ok {
		return nil, fail(family, errs.ErrNotSuggestion)
	}
	member, err := s.isMember(ctx, actor.Login, a.Group().Name)
	if err != nil {
		return nil, fail(family, err)
	}
	if !permission.CanResolveSuggestion(a, permission.AccountID(actor.Login, actor.Authority), member) {
		return nil, fail(family, errs.ErrPermissionDenied)
	}
	if err := s.repos.Annotations.SetStatus(ctx, a, to); err != nil {
		return nil, fail(family, err)
	}
	s.afterWrite(ctx, a)
	s.enrich(ctx, a)
	return a, nil
}

// loadMutable loads an annotation for a transition out of NORMAL.
func (s *AnnotationServiceImpl) loadMutable(
	ctx context.Context, id string, actor model.Actor, family error, action string,
) (*model.Annotation, error) {
	if actor.IsZero() {
		return nil, fail(family, errs.ErrUnauthorized)
	}
	if strings.TrimSpace(id) == "" {
		return nil, fail(family, fmt.Errorf("%w: empty id", errs.ErrValidation))
	}
	a, err := s.repos.Annotations.Get(ctx, id)
	if err != nil {
		return nil, fail(family, err)
	}
	if a.Status.IsTerminal() {
		return nil, fail(family, fmt.Errorf("%w: %s annotation %s cannot be %s", errs.ErrCannotMutate, a.Status, a.ID, action))
	}
	return a, nil
}

// resolveDocument finds the document by URI or creates it.
func (s *AnnotationServiceImpl) resolveDocument(ctx context.Context, uri, title string) (*model.Document, error) {
	doc, err := s.repos.Documents.FindByURI(ctx, uri)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("find document: %w", err)
	}
	doc, err = s.repos.Documents.Create(ctx, uri, title)
	if errors.Is(err, errs.ErrAlreadyExists) {
		// created concurrently
		doc, err = s.repos.Documents.FindByURI(ctx, uri)
	}
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// resolveMetadata finds or creates metadata for (doc, group, authority).
// An empty group name means the world group.
func (s *AnnotationServiceImpl) resolveMetadata(ctx context.Context, doc *model.Document, groupName, authority string) (*model.Metadata, error) {
	groupName = strings.TrimSpace(groupName)
	if groupName == "" {
		groupName = model.WorldGroup
	}
	g, err := s.repos.Groups.GetByName(ctx, groupName)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", groupName, err)
	}
	m, err := s.repos.Metadata.Find(ctx, doc.ID, g.ID, authority)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("find metadata: %w", err)
	}
	m = &model.Metadata{
		Document:       *doc,
		Group:          *g,
		Authority:      authority,
		ResponseStatus: model.ResponseInPreparation,
	}
	if err := s.repos.Metadata.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}
	return m, nil
}

func (s *AnnotationServiceImpl) isMember(ctx context.Context, login, group string) (bool, error) {
	if group == model.WorldGroup {
		return true, nil
	}
	groups, err := s.repos.Groups.GroupsOf(ctx, login)
	if err != nil {
		return false, fmt.Errorf("groups of %q: %w", login, err)
	}
	return slices.Contains(groups, group), nil
}

func targetOrNone(t string) string {
	if strings.TrimSpace(t) == "" {
		return model.NoTargetSelectors
	}
	return t
}
