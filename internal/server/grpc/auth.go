package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/annotator/internal/model"
)

// Claims are the bearer token claims. Subject is the login.
type Claims struct {
	Authority string `json:"authority"`
	jwt.RegisteredClaims
}

// AuthUnary resolves "authorization: Bearer <JWT>" into a model.Actor.
// Requests without a token pass through anonymously; bad tokens are rejected.
func AuthUnary(signKey []byte) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		tok, err := bearerTokenFromMD(ctx)
		if err != nil {
			return next(ctx, req)
		}
		actor, err := actorFromToken(tok, signKey)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return next(WithActor(ctx, actor), req)
	}
}

// actorFromToken verifies HS256 and returns sub/authority as an Actor.
func actorFromToken(tok string, signKey []byte) (model.Actor, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return signKey, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return model.Actor{}, errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return model.Actor{}, errors.New("token expired or not valid yet")
	}

	login := strings.TrimSpace(claims.Subject)
	if login == "" {
		return model.Actor{}, errors.New("empty subject")
	}
	return model.Actor{Login: login, Authority: claims.Authority}, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}

// SignToken issues an HS256 token for actor; used by tooling and tests.
func SignToken(actor model.Actor, signKey []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Authority: actor.Authority,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.Login,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signKey)
}
