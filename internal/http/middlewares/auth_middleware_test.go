package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openlearnhq/campdir/internal/auth"
	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) Verify(token string) (*auth.Claims, error) {
	return f.claims, f.err
}

type fakeResolver struct {
	u   user.User
	err error
}

func (f *fakeResolver) GetByID(ctx context.Context, id string) (user.User, error) {
	return f.u, f.err
}

func protectedRouter(mw *middlewares.AuthMiddleware, roles ...string) *gin.Engine {
	r := gin.New()

	chain := []gin.HandlerFunc{mw.RequireAuth()}

	if len(roles) > 0 {
		chain = append(chain, mw.RequireRole(roles...))
	}

	chain = append(chain, func(c *gin.Context) {
		u, _ := middlewares.UserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID.Hex()})
	})

	r.Handle(http.MethodGet, "/protected", chain...)

	return r
}

func TestRequireAuth(t *testing.T) {
	uid := primitive.NewObjectID()
	resolved := user.User{ID: uid, Role: user.RolePublisher}

	tests := []struct {
		name           string
		header         string
		verifier       *fakeVerifier
		resolver       *fakeResolver
		wantStatusCode int
	}{
		{
			name:           "valid_token",
			header:         "Bearer good-token",
			verifier:       &fakeVerifier{claims: &auth.Claims{UserID: uid.Hex(), Role: user.RolePublisher}},
			resolver:       &fakeResolver{u: resolved},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing_header",
			header:         "",
			verifier:       &fakeVerifier{},
			resolver:       &fakeResolver{},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "not_bearer",
			header:         "Basic dXNlcjpwYXNz",
			verifier:       &fakeVerifier{},
			resolver:       &fakeResolver{},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "bad_token",
			header:         "Bearer bad-token",
			verifier:       &fakeVerifier{err: errors.New("signature invalid")},
			resolver:       &fakeResolver{},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "deleted_account",
			header:         "Bearer good-token",
			verifier:       &fakeVerifier{claims: &auth.Claims{UserID: uid.Hex()}},
			resolver:       &fakeResolver{err: errors.New("not found")},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			mw := middlewares.NewAuthMiddleware(tt.verifier, tt.resolver)
			r := protectedRouter(mw)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)

			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	uid := primitive.NewObjectID()

	tests := []struct {
		name           string
		role           string
		allowed        []string
		wantStatusCode int
	}{
		{"role_allowed", user.RolePublisher, []string{"publisher", "admin"}, http.StatusOK},
		{"admin_allowed", user.RoleAdmin, []string{"publisher", "admin"}, http.StatusOK},
		{"role_forbidden", user.RoleUser, []string{"publisher", "admin"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			verifier := &fakeVerifier{claims: &auth.Claims{UserID: uid.Hex(), Role: tt.role}}
			resolver := &fakeResolver{u: user.User{ID: uid, Role: tt.role}}

			mw := middlewares.NewAuthMiddleware(verifier, resolver)
			r := protectedRouter(mw, tt.allowed...)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer token")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
