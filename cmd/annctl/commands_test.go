package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/annotator/internal/model"
	grpcserver "github.com/and161185/annotator/internal/server/grpc"
)

type recordedCall struct {
	method string
	auth   string
	req    map[string]any
}

// echoServer records every request and replies with {"method": ..., "ok": true}.
type echoServer struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (e *echoServer) record(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	var auth string
	if md, ok := metadata.FromIncomingContext(ctx); ok && len(md.Get("authorization")) > 0 {
		auth = md.Get("authorization")[0]
	}
	e.mu.Lock()
	e.calls = append(e.calls, recordedCall{method: method, auth: auth, req: req.AsMap()})
	e.mu.Unlock()
	if id, _ := req.AsMap()["id"].(string); id == "missing" {
		return nil, status.Error(codes.NotFound, "annotation not found")
	}
	return structpb.NewStruct(map[string]any{"method": method, "ok": true})
}

func (e *echoServer) last(t *testing.T) recordedCall {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.calls) == 0 {
		t.Fatalf("no calls recorded")
	}
	return e.calls[len(e.calls)-1]
}

func (e *echoServer) CreateAnnotation(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return e.record(ctx, grpcserver.MethodCreate, r)
}
func (e *echoServer) UpdateAnnotation(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return e.record(ctx, grpcserver.MethodUpdate, r)
}
func (e *echoServer) DeleteAnnotation(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return e.record(ctx, grpcserver.MethodDelete, r)
}
func (e *echoServer) AcceptSuggestion(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return e.record(ctx, grpcserver.MethodAccept, r)
}
func (e *echoServer) RejectSuggestion(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return e.record(ctx, grpcserver.MethodReject, r)
}
func (e *echoServer) GetAnnotation(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return e.record(ctx, grpcserver.MethodGet, r)
}
func (e *echoServer) Search(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	return e.record(ctx, grpcserver.MethodSearch, r)
}

// startEcho serves echoServer on a loopback port and points the CLI at it.
func startEcho(t *testing.T) *echoServer {
	t.Helper()
	_ = withTmpConfig(t)
	t.Setenv("ANNOTATOR_TOKEN", "")

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	echo := &echoServer{}
	grpcserver.RegisterAnnotationsServer(srv, echo)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	oldAddr, oldPlain, oldTok, oldTimeout := addr, plaintext, tokenFlag, timeout
	t.Cleanup(func() { addr, plaintext, tokenFlag, timeout = oldAddr, oldPlain, oldTok, oldTimeout })
	addr, plaintext, tokenFlag, timeout = lis.Addr().String(), true, "", 5*time.Second
	return echo
}

// run executes the root command and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	rootCmd.SetArgs(append(args, "--plaintext", "--addr", addr))
	err := rootCmd.Execute()

	_ = w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)
	return string(out), err
}

func Test_create_SendsInput(t *testing.T) {
	echo := startEcho(t)

	out, err := run(t, "create",
		"--uri", "uri://LEOS/doc", "--text", "fix", "--shared",
		"--tag", "suggestion", "--tag", "x", "--target", `[{"selector":1}]`, "--token", "T1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var printed map[string]any
	if json.Unmarshal([]byte(out), &printed) != nil || printed["method"] != grpcserver.MethodCreate {
		t.Fatalf("unexpected output: %s", out)
	}

	c := echo.last(t)
	if c.method != grpcserver.MethodCreate || c.auth != "Bearer T1" {
		t.Fatalf("call = %+v", c)
	}
	if c.req["uri"] != "uri://LEOS/doc" || c.req["text"] != "fix" || c.req["shared"] != true {
		t.Fatalf("req = %v", c.req)
	}
	if c.req["target"] != `[{"selector":1}]` {
		t.Fatalf("target = %v", c.req["target"])
	}
	tags, _ := c.req["tags"].([]any)
	if len(tags) != 2 || tags[0] != "suggestion" {
		t.Fatalf("tags = %v", c.req["tags"])
	}
}

func Test_create_RequiresURI(t *testing.T) {
	_ = startEcho(t)
	if _, err := run(t, "create", "--uri", "", "--text", "x"); err == nil || !strings.Contains(err.Error(), "--uri") {
		t.Fatalf("want --uri error, got %v", err)
	}
}

func Test_idCommands(t *testing.T) {
	echo := startEcho(t)

	for cmd, method := range map[string]string{
		"delete": grpcserver.MethodDelete,
		"accept": grpcserver.MethodAccept,
		"reject": grpcserver.MethodReject,
		"get":    grpcserver.MethodGet,
	} {
		if _, err := run(t, cmd, "a1"); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
		c := echo.last(t)
		if c.method != method || c.req["id"] != "a1" {
			t.Fatalf("%s: call = %+v", cmd, c)
		}
	}
}

func Test_get_RPCError(t *testing.T) {
	_ = startEcho(t)

	_, err := run(t, "get", "missing")
	if err == nil {
		t.Fatalf("want error")
	}
	if got := describe(err); got != "rpc error: code=NotFound msg=annotation not found" {
		t.Fatalf("describe = %q", got)
	}
}

func Test_search_SendsParams(t *testing.T) {
	echo := startEcho(t)

	_, err := run(t, "search", "--uri", "uri://LEOS/doc", "--group", "team",
		"--limit", "3", "--offset", "1", "--separate-replies", "--status", "all")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	c := echo.last(t)
	if c.method != grpcserver.MethodSearch || c.auth != "" {
		t.Fatalf("call = %+v", c)
	}
	if c.req["group"] != "team" || c.req["limit"] != float64(3) || c.req["offset"] != float64(1) ||
		c.req["separate_replies"] != true || c.req["status"] != model.StatusAll.String() {
		t.Fatalf("req = %v", c.req)
	}
}

func Test_search_LocalValidation(t *testing.T) {
	_ = startEcho(t)

	if _, err := run(t, "search", "--uri", "not a uri", "--status", ""); err == nil {
		t.Fatalf("want uri error")
	}
	if _, err := run(t, "search", "--uri", "uri://LEOS/doc", "--status", "bogus"); err == nil {
		t.Fatalf("want status error")
	}
}

func Test_token_SignsAndSaves(t *testing.T) {
	_ = withTmpConfig(t)

	if _, err := run(t, "token", "--login", "alice", "--authority", "EdiT", "--key", "k", "--ttl", "1m"); err != nil {
		t.Fatalf("token: %v", err)
	}
	tok, err := loadToken()
	if err != nil || strings.Count(tok, ".") != 2 {
		t.Fatalf("saved token: %q %v", tok, err)
	}
}

func Test_token_RequiresKey(t *testing.T) {
	_ = withTmpConfig(t)
	t.Setenv("ANNOTATOR_JWT_KEY", "")

	if _, err := run(t, "token", "--login", "alice", "--key", ""); err == nil {
		t.Fatalf("want error without key")
	}
}
