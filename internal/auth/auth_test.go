package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

type stubResolver map[string]*domain.Principal

func (s stubResolver) Resolve(_ context.Context, email string) (*domain.Principal, error) {
	p, ok := s[email]
	if !ok {
		return nil, apperrors.NewUnauthenticated("unknown identity")
	}
	if !p.User.Active {
		return nil, apperrors.NewAccountInactive()
	}
	return p, nil
}

func testApp(tokens *TokenManager, resolver IdentityResolver, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	mw := NewAuthMiddleware(tokens, resolver)
	app.Get("/protected", mw.Handle, guard, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(string(p.Role()))
	})
	return app
}

func TestTokenRoundTripCarriesOnlyEmail(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("  Ada@Example.com ")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if exp.IsZero() {
		t.Fatalf("expected expiry")
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Email != "ada@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
}

func TestTokenRejectsExpiredAndForeign(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return base }
	token, _, err := tm.GenerateToken("a@b.c")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	tm.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	other := NewTokenManager("other", 1)
	foreign, _, _ := other.GenerateToken("a@b.c")
	if _, err := NewTokenManager("secret", 1).ParseToken(foreign); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestPasswordHashing(t *testing.T) {
	if _, err := HashPassword("short", 4); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password error, got %v", err)
	}
	hash, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !PasswordMatches(hash, "correct horse") {
		t.Fatalf("expected match")
	}
	if PasswordMatches(hash, "wrong horse") || PasswordMatches("", "correct horse") {
		t.Fatalf("unexpected match")
	}
}

func TestMemoryMagicLinksSingleUse(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryMagicLinks(func() time.Time { return now })
	ctx := context.Background()

	token, err := store.Issue(ctx, "X@Y.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}
	email, err := store.Consume(ctx, token)
	if err != nil || email != "x@y.com" {
		t.Fatalf("Consume = %q, %v", email, err)
	}
	if _, err := store.Consume(ctx, token); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("second consume should fail, got %v", err)
	}

	expiring, _ := store.Issue(ctx, "x@y.com", time.Minute)
	now = now.Add(time.Minute)
	if _, err := store.Consume(ctx, expiring); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("expired token should fail, got %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	resolver := stubResolver{
		"agent@example.com": {User: &domain.User{ID: "u1", Role: domain.RoleAgent, Active: true}},
		"gone@example.com":  {User: &domain.User{ID: "u2", Role: domain.RoleAdmin, Active: false}},
	}
	app := testApp(tm, resolver, RequirePermission(policy.CreateResponse))

	bearer := func(email string) string {
		tok, _, err := tm.GenerateToken(email)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		return "Bearer " + tok
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"unknown identity", bearer("who@example.com"), http.StatusUnauthorized},
		{"inactive account", bearer("gone@example.com"), http.StatusForbidden},
		{"active agent", bearer("agent@example.com"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestRequirePermissionDeniesMissingCapability(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	resolver := stubResolver{
		"agent@example.com": {User: &domain.User{ID: "u1", Role: domain.RoleAgent, Active: true}},
	}
	app := testApp(tm, resolver, RequirePermission(policy.GenerateReports))
	tok, _, _ := tm.GenerateToken("agent@example.com")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}
