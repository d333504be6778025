package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/physio/physio/internal/platform/httperr"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: claims})
	signed, err := token.SignedString(testKey)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

// newAuthServer returns a server whose handler echoes the resolved therapist
// id as the response body.
func newAuthServer(cfg JWTConfig) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = httperr.ErrorHandler(zerolog.Nop())
	g := e.Group("/api")
	g.Use(JWTMiddleware(cfg))
	g.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, TherapistIDFromContext(c.Request().Context()).String())
	})
	return e
}

func doAuth(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	e := newAuthServer(JWTConfig{SigningKey: testKey})
	subject := uuid.New()

	token := signToken(t, jwt.RegisteredClaims{
		Subject:   subject.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	rec := doAuth(e, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != subject.String() {
		t.Errorf("resolved id %q, want %q", rec.Body.String(), subject)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	e := newAuthServer(JWTConfig{SigningKey: testKey, Issuer: "https://auth.example.com"})
	validClaims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "https://auth.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name   string
		header func(t *testing.T) string
	}{
		{"missing header", func(t *testing.T) string { return "" }},
		{"not bearer", func(t *testing.T) string { return "Basic abc123" }},
		{"garbage token", func(t *testing.T) string { return "Bearer not.a.jwt" }},
		{"expired", func(t *testing.T) string {
			c := validClaims
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			return "Bearer " + signToken(t, c)
		}},
		{"wrong issuer", func(t *testing.T) string {
			c := validClaims
			c.Issuer = "https://evil.example.com"
			return "Bearer " + signToken(t, c)
		}},
		{"non-uuid subject", func(t *testing.T) string {
			c := validClaims
			c.Subject = "user-42"
			return "Bearer " + signToken(t, c)
		}},
		{"wrong key", func(t *testing.T) string {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: validClaims})
			signed, err := token.SignedString([]byte("other-key"))
			if err != nil {
				t.Fatal(err)
			}
			return "Bearer " + signed
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuth(e, tt.header(t))
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status %d, want 401 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	g := e.Group("/api")
	g.Use(DevAuthMiddleware())
	g.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, TherapistIDFromContext(c.Request().Context()).String())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Body.String() != DevTherapistID.String() {
		t.Errorf("got %q, want the fixed dev identity", rec.Body.String())
	}
}

func TestTherapistIDFromContext_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := TherapistIDFromContext(req.Context()); got != uuid.Nil {
		t.Errorf("got %v, want uuid.Nil", got)
	}
}

func TestJWKSCache_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// 2048-bit modulus is irrelevant here; a short one still parses.
		w.Write([]byte(`{"keys": [{"kty": "RSA", "kid": "key-1", "use": "sig", "alg": "RS256", "n": "xjlCQ5ZU", "e": "AQAB"}]}`))
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, time.Minute)

	key, err := cache.GetKey("key-1")
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if key.E != 65537 {
		t.Errorf("exponent = %d, want 65537", key.E)
	}

	if _, err := cache.GetKey("missing"); err == nil {
		t.Error("unknown kid should error")
	}
}
