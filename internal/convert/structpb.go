// Package convert maps wire messages (structpb.Struct) to domain values and back.
package convert

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/permission"
	"github.com/and161185/annotator/internal/search"
	"github.com/and161185/annotator/internal/service"
)

// --- helpers ---

func field(s *structpb.Struct, key string) *structpb.Value {
	if s == nil {
		return nil
	}
	return s.GetFields()[key]
}

func str(s *structpb.Struct, key string) (string, error) {
	v := field(s, key)
	if v == nil {
		return "", nil
	}
	x, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", errs.ErrValidation, key)
	}
	return x.StringValue, nil
}

func boolean(s *structpb.Struct, key string) (bool, error) {
	v := field(s, key)
	if v == nil {
		return false, nil
	}
	x, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a bool", errs.ErrValidation, key)
	}
	return x.BoolValue, nil
}

func integer(s *structpb.Struct, key string) (int, error) {
	v := field(s, key)
	if v == nil {
		return 0, nil
	}
	x, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || x.NumberValue != math.Trunc(x.NumberValue) ||
		x.NumberValue > math.MaxInt32 || x.NumberValue < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s must be an integer", errs.ErrValidation, key)
	}
	return int(x.NumberValue), nil
}

func strList(s *structpb.Struct, key string) ([]string, error) {
	v := field(s, key)
	if v == nil {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list of strings", errs.ErrValidation, key)
	}
	out := make([]string, 0, len(l.ListValue.GetValues()))
	for i, e := range l.ListValue.GetValues() {
		x, ok := e.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be a string", errs.ErrValidation, key, i)
		}
		out = append(out, x.StringValue)
	}
	return out, nil
}

func anyList(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// --- annotation input (client -> server) ---

// InputFromStruct reads a create/update payload.
func InputFromStruct(s *structpb.Struct) (model.AnnotationInput, error) {
	var (
		in  model.AnnotationInput
		err error
	)
	if s == nil {
		return in, fmt.Errorf("%w: empty payload", errs.ErrValidation)
	}
	if in.ID, err = str(s, "id"); err != nil {
		return in, err
	}
	if in.URI, err = str(s, "uri"); err != nil {
		return in, err
	}
	if in.Title, err = str(s, "title"); err != nil {
		return in, err
	}
	if in.Group, err = str(s, "group"); err != nil {
		return in, err
	}
	if in.TargetSelectors, err = str(s, "target"); err != nil {
		return in, err
	}
	if in.Text, err = str(s, "text"); err != nil {
		return in, err
	}
	if in.Shared, err = boolean(s, "shared"); err != nil {
		return in, err
	}
	if in.References, err = strList(s, "references"); err != nil {
		return in, err
	}
	if in.Tags, err = strList(s, "tags"); err != nil {
		return in, err
	}
	return in, nil
}

// InputToStruct builds a create/update payload.
func InputToStruct(in model.AnnotationInput) (*structpb.Struct, error) {
	m := map[string]any{
		"uri":        in.URI,
		"shared":     in.Shared,
		"references": anyList(in.References),
		"tags":       anyList(in.Tags),
	}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("id", in.ID)
	set("title", in.Title)
	set("group", in.Group)
	set("target", in.TargetSelectors)
	set("text", in.Text)
	return structpb.NewStruct(m)
}

// --- id requests ---

// IDFromStruct reads {"id": "..."}.
func IDFromStruct(s *structpb.Struct) (string, error) {
	id, err := str(s, "id")
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty id", errs.ErrValidation)
	}
	return id, nil
}

// IDToStruct builds {"id": id}.
func IDToStruct(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}}
}

// --- annotations (server -> client) ---

func annotationMap(a *model.Annotation, actorAccount string) map[string]any {
	p := permission.Evaluate(a, actorAccount)
	m := map[string]any{
		"id":         a.ID,
		"uri":        a.Metadata.Document.URI,
		"title":      a.Metadata.Document.Title,
		"group":      a.Group().Name,
		"authority":  a.Metadata.Authority,
		"user":       p.Account,
		"target":     a.TargetSelectors,
		"text":       a.Text,
		"shared":     a.Shared,
		"references": anyList(a.References),
		"tags":       anyList(a.TagNames()),
		"status":     a.Status.String(),
		"sent":       a.Metadata.IsSent(),
		"created":    ts(a.Created),
		"updated":    ts(a.Updated),
		"version":    float64(a.Version),
		"permissions": map[string]any{
			"read":   anyList(p.Set(permission.Read)),
			"update": anyList(p.Set(permission.Update)),
			"delete": anyList(p.Set(permission.Delete)),
			"admin":  anyList(p.Set(permission.Admin)),
		},
	}
	if d := a.OwnerDetails; d != nil {
		m["user_info"] = map[string]any{
			"display_name": d.DisplayName,
			"email":        d.Email,
			"entity":       d.Entity,
		}
	}
	return m
}

// AnnotationToStruct renders an annotation with the permissions seen by actorAccount.
func AnnotationToStruct(a *model.Annotation, actorAccount string) (*structpb.Struct, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil annotation", errs.ErrInvalidArgument)
	}
	return structpb.NewStruct(annotationMap(a, actorAccount))
}

// --- search ---

// SearchParamsFromStruct reads raw search parameters.
func SearchParamsFromStruct(s *structpb.Struct) (search.Params, error) {
	var (
		p   search.Params
		err error
	)
	if p.URI, err = str(s, "uri"); err != nil {
		return p, err
	}
	if p.Group, err = str(s, "group"); err != nil {
		return p, err
	}
	if p.SeparateReplies, err = boolean(s, "separate_replies"); err != nil {
		return p, err
	}
	if p.Limit, err = integer(s, "limit"); err != nil {
		return p, err
	}
	if p.Offset, err = integer(s, "offset"); err != nil {
		return p, err
	}
	if p.SortColumn, err = str(s, "sort"); err != nil {
		return p, err
	}
	if p.Order, err = str(s, "order"); err != nil {
		return p, err
	}
	st, err := str(s, "status")
	if err != nil {
		return p, err
	}
	if st != "" {
		if p.Status, err = model.ParseStatus(st); err != nil {
			return p, fmt.Errorf("%w: %w", errs.ErrValidation, err)
		}
	}
	return p, nil
}

// SearchParamsToStruct builds a search request.
func SearchParamsToStruct(p search.Params) (*structpb.Struct, error) {
	m := map[string]any{
		"uri":              p.URI,
		"separate_replies": p.SeparateReplies,
		"limit":            float64(p.Limit),
		"offset":           float64(p.Offset),
	}
	if p.Group != "" {
		m["group"] = p.Group
	}
	if p.SortColumn != "" {
		m["sort"] = p.SortColumn
	}
	if p.Order != "" {
		m["order"] = p.Order
	}
	if p.Status != 0 {
		m["status"] = p.Status.String()
	}
	return structpb.NewStruct(m)
}

// SearchResultToStruct renders {"rows": [...], "replies": [...], "total": n}.
func SearchResultToStruct(res *service.SearchResult, actorAccount string) (*structpb.Struct, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil search result", errs.ErrInvalidArgument)
	}
	rows := make([]any, 0, len(res.Rows))
	for i := range res.Rows {
		rows = append(rows, annotationMap(&res.Rows[i], actorAccount))
	}
	replies := make([]any, 0, len(res.Replies))
	for i := range res.Replies {
		replies = append(replies, annotationMap(&res.Replies[i], actorAccount))
	}
	return structpb.NewStruct(map[string]any{
		"rows":    rows,
		"replies": replies,
		"total":   float64(res.Total),
	})
}
