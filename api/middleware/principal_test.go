package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func okHandler(t *testing.T, wantActor, wantRole string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantActor, ActorIDFromContext(r.Context()))
		assert.Equal(t, wantRole, RoleFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestPrincipalSeedsContext(t *testing.T) {
	actorID := uuid.NewString()
	handler := Principal(nil)(okHandler(t, actorID, RoleCustomer))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", actorID)
	req.Header.Set("X-Actor-Role", "Customer")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code, "role header is case-insensitive")
}

func TestPrincipalRejectsMissingIdentity(t *testing.T) {
	handler := Principal(nil)(okHandler(t, "", ""))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPrincipalRejectsMalformedActorID(t *testing.T) {
	handler := Principal(nil)(okHandler(t, "", ""))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", "not-a-uuid")
	req.Header.Set("X-Actor-Role", RoleCustomer)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPrincipalRejectsUnknownRole(t *testing.T) {
	handler := Principal(nil)(okHandler(t, "", ""))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", uuid.NewString())
	req.Header.Set("X-Actor-Role", "superuser")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	actorID := uuid.NewString()
	var reached bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Principal(nil)(RequireRole(RoleAdmin, nil)(inner))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", actorID)
	req.Header.Set("X-Actor-Role", RoleVendor)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("X-Actor-Id", actorID)
	req2.Header.Set("X-Actor-Role", RoleAdmin)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)

	assert.Equal(t, http.StatusNoContent, rec2.Code)
	assert.True(t, reached)
}
