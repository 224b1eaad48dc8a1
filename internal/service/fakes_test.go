package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/repository"
)

const authority = "EdiT"

func clone(a model.Annotation) model.Annotation {
	a.References = slices.Clone(a.References)
	a.Tags = slices.Clone(a.Tags)
	return a
}

type fakeAnnotations struct {
	mu           sync.Mutex
	rows         []model.Annotation
	createErr    error
	updateErr    error
	setStatusErr error
	listErr      error
	listCalls    [][2]int
}

var _ repository.AnnotationRepository = (*fakeAnnotations)(nil)

func (f *fakeAnnotations) find(id string) int {
	for i := range f.rows {
		if f.rows[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeAnnotations) Create(_ context.Context, a *model.Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.find(a.ID) >= 0 {
		return errs.ErrAlreadyExists
	}
	a.Version = 1
	f.rows = append(f.rows, clone(*a))
	return nil
}

func (f *fakeAnnotations) Get(_ context.Context, id string) (*model.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return nil, errs.ErrNotFound
	}
	a := clone(f.rows[i])
	return &a, nil
}

func (f *fakeAnnotations) Update(_ context.Context, a *model.Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	i := f.find(a.ID)
	if i < 0 || f.rows[i].Version != a.Version {
		return errs.ErrVersionConflict
	}
	a.Version++
	f.rows[i] = clone(*a)
	return nil
}

func (f *fakeAnnotations) SetStatus(_ context.Context, a *model.Annotation, status model.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setStatusErr != nil {
		return f.setStatusErr
	}
	i := f.find(a.ID)
	if i < 0 || f.rows[i].Version != a.Version {
		return errs.ErrVersionConflict
	}
	a.Status = status
	a.Version++
	f.rows[i] = clone(*a)
	return nil
}

func (f *fakeAnnotations) List(_ context.Context, q repository.AnnotationQuery, offset, limit int) ([]model.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, [2]int{offset, limit})
	if f.listErr != nil {
		return nil, f.listErr
	}
	var match []model.Annotation
	for _, a := range f.rows {
		if a.Metadata.Document.URI != q.URI || a.Group().Name != q.Group || !q.Statuses.Has(a.Status) {
			continue
		}
		if q.TopLevelOnly && a.IsReply() {
			continue
		}
		match = append(match, clone(a))
	}
	out := []model.Annotation{}
	for i := offset; i < len(match) && len(out) < limit; i++ {
		out = append(out, match[i])
	}
	return out, nil
}

func (f *fakeAnnotations) ListReplies(_ context.Context, rootIDs []string, statuses model.Status) ([]model.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Annotation{}
	for _, a := range f.rows {
		if !statuses.Has(a.Status) {
			continue
		}
		for _, ref := range a.References {
			if slices.Contains(rootIDs, ref) {
				out = append(out, clone(a))
				break
			}
		}
	}
	return out, nil
}

func (f *fakeAnnotations) status(id string) model.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[f.find(id)].Status
}

type fakeDocuments struct {
	byURI     map[string]*model.Document
	findErr   error
	createErr error
	markErr   error
	markPanic bool
	created   int
	marked    int
}

func (f *fakeDocuments) FindByURI(_ context.Context, uri string) (*model.Document, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	d, ok := f.byURI[uri]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return d, nil
}

func (f *fakeDocuments) Create(_ context.Context, uri, title string) (*model.Document, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	d := &model.Document{ID: uuid.Must(uuid.NewV4()), URI: uri, Title: title}
	f.byURI[uri] = d
	f.created++
	return d, nil
}

func (f *fakeDocuments) MarkAnnotated(_ context.Context, _ uuid.UUID) error {
	f.marked++
	if f.markPanic {
		panic("document store exploded")
	}
	return f.markErr
}

type metaKey struct {
	doc, group uuid.UUID
	authority  string
}

type fakeMetadata struct {
	byKey   map[metaKey]*model.Metadata
	saveErr error
	saved   int
}

func (f *fakeMetadata) Find(_ context.Context, doc, group uuid.UUID, auth string) (*model.Metadata, error) {
	m, ok := f.byKey[metaKey{doc, group, auth}]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMetadata) Save(_ context.Context, m *model.Metadata) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.Must(uuid.NewV4())
	}
	cp := *m
	f.byKey[metaKey{m.Document.ID, m.Group.ID, m.Authority}] = &cp
	f.saved++
	return nil
}

type fakeUsers struct{ byLogin map[string]*model.User }

func (f *fakeUsers) GetByLogin(_ context.Context, login string) (*model.User, error) {
	u, ok := f.byLogin[login]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

type fakeGroups struct {
	byName    map[string]*model.Group
	members   map[string][]string
	groupsErr error
}

func (f *fakeGroups) GetByName(_ context.Context, name string) (*model.Group, error) {
	g, ok := f.byName[name]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return g, nil
}

func (f *fakeGroups) GroupsOf(_ context.Context, login string) ([]string, error) {
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return slices.Clone(f.members[login]), nil
}

type fakeIndex struct {
	indexed []string
	removed []string
	err     error
}

func (f *fakeIndex) Index(_ context.Context, a *model.Annotation) error {
	f.indexed = append(f.indexed, a.ID)
	return f.err
}

func (f *fakeIndex) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return f.err
}

type fakeDetails map[string]model.UserDetails

func (f fakeDetails) Get(_ context.Context, login string) (*model.UserDetails, error) {
	d, ok := f[login]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type env struct {
	svc   *AnnotationServiceImpl
	anns  *fakeAnnotations
	docs  *fakeDocuments
	meta  *fakeMetadata
	users *fakeUsers
	grps  *fakeGroups
	index *fakeIndex
	logs  *observer.ObservedLogs
}

var (
	alice = model.Actor{Login: "alice", Authority: authority}
	bob   = model.Actor{Login: "bob", Authority: authority}
	carol = model.Actor{Login: "carol", Authority: authority}
)

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		anns: &fakeAnnotations{},
		docs: &fakeDocuments{byURI: map[string]*model.Document{}},
		meta: &fakeMetadata{byKey: map[metaKey]*model.Metadata{}},
		users: &fakeUsers{byLogin: map[string]*model.User{
			"alice": {ID: uuid.Must(uuid.NewV4()), Login: "alice"},
			"bob":   {ID: uuid.Must(uuid.NewV4()), Login: "bob"},
			"carol": {ID: uuid.Must(uuid.NewV4()), Login: "carol"},
		}},
		grps: &fakeGroups{
			byName: map[string]*model.Group{
				model.WorldGroup: {ID: uuid.Must(uuid.NewV4()), Name: model.WorldGroup, Public: true},
				"team":           {ID: uuid.Must(uuid.NewV4()), Name: "team"},
			},
			members: map[string][]string{"alice": {"team"}, "bob": {"team"}},
		},
		index: &fakeIndex{},
	}
	core, logs := observer.New(zap.WarnLevel)
	e.logs = logs
	e.svc = NewAnnotationService(Repos{
		Annotations: e.anns,
		Documents:   e.docs,
		Metadata:    e.meta,
		Users:       e.users,
		Groups:      e.grps,
	}, &seqIDs{}, zap.New(core),
		WithIndexer(e.index),
		WithDetails(fakeDetails{"alice": {Login: "alice", DisplayName: "Alice A."}}),
		WithBatchSize(3),
	)
	return e
}

func (e *env) create(t *testing.T, actor model.Actor, in model.AnnotationInput) *model.Annotation {
	t.Helper()
	if in.URI == "" {
		in.URI = "uri://doc"
	}
	a, err := e.svc.Create(context.Background(), in, actor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return a
}
