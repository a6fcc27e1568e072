package auth

import (
	"context"
	"testing"
)

func TestGetClaims_Success(t *testing.T) {
	claims := &Claims{Email: "sari@imuii.id"}
	claims.Subject = "user-123"

	ctx := context.WithValue(context.Background(), ClaimsKey, claims)

	got, ok := GetClaims(ctx)
	if !ok {
		t.Fatal("expected claims to be found")
	}
	if got.Subject != "user-123" {
		t.Errorf("expected subject 'user-123', got %q", got.Subject)
	}
}

func TestGetClaims_NotFound(t *testing.T) {
	if _, ok := GetClaims(context.Background()); ok {
		t.Error("expected claims not to be found")
	}
}

func TestGetClaims_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), ClaimsKey, "not-claims")
	if _, ok := GetClaims(ctx); ok {
		t.Error("expected claims not to be found for wrong type")
	}
}

func TestGetToken(t *testing.T) {
	ctx := WithToken(context.Background(), "tok", nil)

	got, ok := GetToken(ctx)
	if !ok || got != "tok" {
		t.Errorf("expected token 'tok', got %q (ok=%v)", got, ok)
	}
	if _, ok := GetClaims(ctx); ok {
		t.Error("nil claims must not be stored")
	}
}

func TestGetToken_EmptyIsAbsent(t *testing.T) {
	if _, ok := GetToken(WithToken(context.Background(), "", nil)); ok {
		t.Error("expected empty token to be reported as absent")
	}
	if _, ok := GetToken(context.Background()); ok {
		t.Error("expected token not to be found")
	}
}
