package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestExtractCountries(t *testing.T) {
	groups := []string{"/countries/sk", "/countries/CZ/agents", "developers", "/countries/SK", "/countries/"}
	got := extractCountries(groups)
	if len(got) != 2 || got[0] != "SK" || got[1] != "CZ" {
		t.Errorf("expected [SK CZ], got %v", got)
	}
}

func TestExtractRole(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{
			name:   "keycloak priority",
			claims: jwt.MapClaims{"realm_access": map[string]interface{}{"roles": []interface{}{"agent", "supervisor"}}},
			want:   "supervisor",
		},
		{
			name:   "cognito groups",
			claims: jwt.MapClaims{"cognito:groups": []interface{}{"crm-agent"}},
			want:   "agent",
		},
		{
			name:   "default viewer",
			claims: jwt.MapClaims{},
			want:   "viewer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractRoleFromMapClaims(tt.claims); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestValidateTokenUnverified(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("VERIFY_JWT_SIGNATURE", "false")

	token := signedToken(t, jwt.MapClaims{
		"sub":          "agent-7",
		"email":        "jana@example.com",
		"name":         "Jana",
		"groups":       []interface{}{"/countries/SK"},
		"realm_access": map[string]interface{}{"roles": []interface{}{"agent"}},
		"exp":          float64(time.Now().Add(time.Hour).Unix()),
	})

	claims, err := validateToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	agent := claims.Agent()
	if agent.ID != "agent-7" || agent.Name != "Jana" || agent.Role != types.RoleAgent {
		t.Errorf("unexpected agent: %+v", agent)
	}
	if !claims.IsCountryAllowed("sk") || claims.IsCountryAllowed("CZ") {
		t.Errorf("unexpected country access for %v", claims.Countries)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("VERIFY_JWT_SIGNATURE", "false")

	token := signedToken(t, jwt.MapClaims{
		"sub": "agent-7",
		"exp": float64(time.Now().Add(-time.Minute).Unix()),
	})
	if _, err := validateToken(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestMiddlewareMissingToken(t *testing.T) {
	t.Setenv("SKIP_AUTH", "false")

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workspace", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareQueryToken(t *testing.T) {
	t.Setenv("SKIP_AUTH", "false")
	t.Setenv("ENV", "development")
	t.Setenv("VERIFY_JWT_SIGNATURE", "false")

	token := signedToken(t, jwt.MapClaims{"sub": "sup-1", "realm_access": map[string]interface{}{"roles": []interface{}{"admin"}}})

	var got *Claims
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/supervisor?token="+token, nil))

	if got == nil {
		t.Fatal("expected claims in context")
	}
	if got.Token != token {
		t.Error("expected raw token to be kept for forwarding")
	}
	if !got.IsCountryAllowed("AT") {
		t.Error("expected admin to see every country")
	}
}

func TestMiddlewareSkipAuth(t *testing.T) {
	t.Setenv("SKIP_AUTH", "true")

	var got *Claims
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/workspace", nil))

	if got == nil || !HasRole(got, "admin") {
		t.Errorf("expected dev admin claims, got %+v", got)
	}
}
