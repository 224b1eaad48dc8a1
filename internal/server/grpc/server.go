// Package grpcserver exposes the annotation service over gRPC.
package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/annotator/internal/convert"
	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/permission"
	"github.com/and161185/annotator/internal/search"
	"github.com/and161185/annotator/internal/service"
)

// Server wires the annotation service into gRPC handlers.
type Server struct {
	annotations  service.AnnotationService
	defaultLimit int
}

// New constructs a gRPC server. defaultLimit applies to searches without a limit.
func New(annotations service.AnnotationService, defaultLimit int) *Server {
	return &Server{annotations: annotations, defaultLimit: defaultLimit}
}

var _ AnnotationsServer = (*Server)(nil)

// toStatus maps service errors to gRPC status codes.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrInvalidArgument):
		return status.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Errorf(codes.Unauthenticated, "%s: %v", op, err)
	case errors.Is(err, errs.ErrPermissionDenied):
		return status.Errorf(codes.PermissionDenied, "%s: %v", op, err)
	case errors.Is(err, errs.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s: %v", op, err)
	case errors.Is(err, errs.ErrVersionConflict):
		return status.Errorf(codes.Aborted, "%s: %v", op, err)
	case errors.Is(err, errs.ErrCannotMutate), errors.Is(err, errs.ErrNotSuggestion):
		return status.Errorf(codes.FailedPrecondition, "%s: %v", op, err)
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Errorf(codes.AlreadyExists, "%s: %v", op, err)
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

func account(actor model.Actor) string {
	if actor.IsZero() {
		return ""
	}
	return permission.AccountID(actor.Login, actor.Authority)
}

func (s *Server) render(a *model.Annotation, actor model.Actor) (*structpb.Struct, error) {
	out, err := convert.AnnotationToStruct(a, account(actor))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "render: %v", err)
	}
	return out, nil
}

// --- Mutations ---

// CreateAnnotation stores a new annotation owned by the caller.
func (s *Server) CreateAnnotation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, ok := ActorFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	in, err := convert.InputFromStruct(req)
	if err != nil {
		return nil, toStatus("create", err)
	}
	a, err := s.annotations.Create(ctx, in, actor)
	if err != nil {
		return nil, toStatus("create", err)
	}
	return s.render(a, actor)
}

// UpdateAnnotation rewrites an annotation; the payload carries its id.
func (s *Server) UpdateAnnotation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, ok := ActorFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	in, err := convert.InputFromStruct(req)
	if err != nil {
		return nil, toStatus("update", err)
	}
	if in.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "update: empty id")
	}
	a, err := s.annotations.Update(ctx, in.ID, in, actor)
	if err != nil {
		return nil, toStatus("update", err)
	}
	return s.render(a, actor)
}

// DeleteAnnotation soft-deletes an annotation.
func (s *Server) DeleteAnnotation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, ok := ActorFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	id, err := convert.IDFromStruct(req)
	if err != nil {
		return nil, toStatus("delete", err)
	}
	if err := s.annotations.Delete(ctx, id, actor); err != nil {
		return nil, toStatus("delete", err)
	}
	return structpb.NewStruct(map[string]any{"id": id, "deleted": true})
}

// AcceptSuggestion accepts a suggestion.
func (s *Server) AcceptSuggestion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.resolve(ctx, req, "accept", s.annotations.Accept)
}

// RejectSuggestion rejects a suggestion.
func (s *Server) RejectSuggestion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.resolve(ctx, req, "reject", s.annotations.Reject)
}

func (s *Server) resolve(
	ctx context.Context, req *structpb.Struct, op string,
	fn func(context.Context, string, model.Actor) (*model.Annotation, error),
) (*structpb.Struct, error) {
	actor, ok := ActorFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	id, err := convert.IDFromStruct(req)
	if err != nil {
		return nil, toStatus(op, err)
	}
	a, err := fn(ctx, id, actor)
	if err != nil {
		return nil, toStatus(op, err)
	}
	return s.render(a, actor)
}

// --- Reads ---

// GetAnnotation returns one annotation; anonymous callers see shared ones only.
func (s *Server) GetAnnotation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, _ := ActorFromCtx(ctx)
	id, err := convert.IDFromStruct(req)
	if err != nil {
		return nil, toStatus("get", err)
	}
	a, err := s.annotations.Get(ctx, id, actor)
	if err != nil {
		return nil, toStatus("get", err)
	}
	return s.render(a, actor)
}

// Search returns one page of visible annotations of a document.
func (s *Server) Search(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, _ := ActorFromCtx(ctx)
	p, err := convert.SearchParamsFromStruct(req)
	if err != nil {
		return nil, toStatus("search", err)
	}
	if p.Limit == 0 && s.defaultLimit > 0 {
		p.Limit = s.defaultLimit
	}
	opts, err := search.NewOptions(p)
	if err != nil {
		return nil, toStatus("search", err)
	}
	res, err := s.annotations.Search(ctx, opts, actor)
	if err != nil {
		return nil, toStatus("search", err)
	}
	out, err := convert.SearchResultToStruct(res, account(actor))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "render: %v", err)
	}
	return out, nil
}
