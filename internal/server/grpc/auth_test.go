package grpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/annotator/internal/model"
)

func makeJWT(t *testing.T, sub, authority string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		Authority: authority,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func ctxWithAuth(token string) context.Context {
	md := metadata.New(map[string]string{
		"authorization": "Bearer " + token,
	})
	return metadata.NewIncomingContext(context.Background(), md)
}

func Test_bearerTokenFromMD_OkAndErrors(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	got, err := bearerTokenFromMD(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic foo"))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on non-bearer")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer   "))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on empty token")
	}

	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

func Test_actorFromToken(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	now := time.Now().UTC()

	a, err := actorFromToken(makeJWT(t, "alice", "EdiT", key, jwt.SigningMethodHS256, now.Add(-time.Minute), 10*time.Minute), key)
	if err != nil {
		t.Fatalf("valid token: %v", err)
	}
	if a != (model.Actor{Login: "alice", Authority: "EdiT"}) {
		t.Fatalf("actor mismatch: %+v", a)
	}

	bad := map[string]string{
		"expired":   makeJWT(t, "alice", "EdiT", key, jwt.SigningMethodHS256, now.Add(-2*time.Hour), -time.Hour),
		"wrong alg": makeJWT(t, "alice", "EdiT", key, jwt.SigningMethodHS384, now, time.Hour),
		"wrong key": makeJWT(t, "alice", "EdiT", []byte("other"), jwt.SigningMethodHS256, now, time.Hour),
		"no sub":    makeJWT(t, " ", "EdiT", key, jwt.SigningMethodHS256, now, time.Hour),
		"garbage":   "not.a.jwt",
	}
	for name, tok := range bad {
		if _, err := actorFromToken(tok, key); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}
}

func TestSignToken_ParsesBack(t *testing.T) {
	t.Parallel()

	key := []byte("k")
	want := model.Actor{Login: "bob", Authority: "LEOS"}
	tok, err := SignToken(want, key, time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	got, err := actorFromToken(tok, key)
	if err != nil || got != want {
		t.Fatalf("got %+v err=%v", got, err)
	}
}

func TestAuthUnary(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	ic := AuthUnary(key)
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodGet)}
	var seen model.Actor
	h := func(ctx context.Context, req any) (any, error) {
		seen, _ = ActorFromCtx(ctx)
		return "ok", nil
	}

	if _, err := ic(context.Background(), nil, info, h); err != nil || !seen.IsZero() {
		t.Fatalf("anonymous: err=%v actor=%+v", err, seen)
	}

	tok := makeJWT(t, "alice", "EdiT", key, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour)
	if _, err := ic(ctxWithAuth(tok), nil, info, h); err != nil || seen.Login != "alice" {
		t.Fatalf("authenticated: err=%v actor=%+v", err, seen)
	}

	_, err := ic(ctxWithAuth("not.a.jwt"), nil, info, h)
	if st, ok := status.FromError(err); !ok || st.Code() != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", err)
	}
}
