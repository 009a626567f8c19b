package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/platform/ctxutil"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestAuthServiceParsesValidToken(t *testing.T) {
	as := NewAuthService(logger.NewNop(), "secret")
	userID := uuid.New()
	tok := signToken(t, jwt.SigningMethodHS256, "secret", jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	ctx, err := as.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if got := ctxutil.UserID(ctx); got != userID {
		t.Fatalf("user id: want %s got %s", userID, got)
	}
	if rd := ctxutil.GetRequestData(ctx); rd == nil || rd.TokenString != tok {
		t.Fatalf("request data not set: %+v", rd)
	}
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	as := NewAuthService(logger.NewNop(), "secret")
	userID := uuid.New().String()
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": signToken(t, jwt.SigningMethodHS256, "other", jwt.RegisteredClaims{Subject: userID, ExpiresAt: exp}),
		"wrong alg":    signToken(t, jwt.SigningMethodHS512, "secret", jwt.RegisteredClaims{Subject: userID, ExpiresAt: exp}),
		"expired": signToken(t, jwt.SigningMethodHS256, "secret", jwt.RegisteredClaims{
			Subject: userID, ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}),
		"no expiry":   signToken(t, jwt.SigningMethodHS256, "secret", jwt.RegisteredClaims{Subject: userID}),
		"bad subject": signToken(t, jwt.SigningMethodHS256, "secret", jwt.RegisteredClaims{Subject: "me", ExpiresAt: exp}),
	}
	for name, tok := range cases {
		if _, err := as.ParseToken(tok); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}

	if _, err := NewAuthService(logger.NewNop(), "").ParseToken(cases["wrong secret"]); err == nil {
		t.Fatalf("missing secret must reject")
	}
}
