package section

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
	"github.com/mo-amir99/lms-access-gateway/pkg/request"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type revokedSection struct {
	user    uuid.UUID
	section int64
}

type stubRevoker struct {
	err     error
	revoked []revokedSection
}

func (s *stubRevoker) RevokeSection(_ context.Context, userID uuid.UUID, sectionID int64) error {
	s.revoked = append(s.revoked, revokedSection{userID, sectionID})
	return s.err
}

// The handler has no database here; every case below must be decided before
// a query would run.
func newRouter(revoker CapabilityRevoker) *gin.Engine {
	router := gin.New()
	router.Use(request.Handler(logger.Discard()))

	auth := func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: uuid.New(), Role: types.UserRoleAdmin})
		c.Next()
	}
	RegisterRoutes(router.Group("/api"), NewHandler(nil, revoker, logger.Discard()), auth, []gin.HandlerFunc{auth})
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestActivateValidation(t *testing.T) {
	router := newRouter(&stubRevoker{})

	cases := map[string]struct {
		path string
		body string
	}{
		"bad section":  {"/api/sections/abc/activate", `{"code":"X1"}`},
		"zero section": {"/api/sections/0/activate", `{"code":"X1"}`},
		"empty code":   {"/api/sections/7/activate", `{"code":"   "}`},
		"no body":      {"/api/sections/7/activate", ``},
	}
	for name, tc := range cases {
		rec := do(router, http.MethodPost, tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Contains(t, rec.Body.String(), "validation_error", name)
	}
}

func TestActivateRejectsMalformedCodeWithoutLookup(t *testing.T) {
	router := newRouter(&stubRevoker{})

	// A nil database would panic if the code reached a query.
	rec := do(router, http.MethodPost, "/api/sections/7/activate", `{"code":"drop table;"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or already used activation code.")
}

func TestGrantValidation(t *testing.T) {
	router := newRouter(&stubRevoker{})

	rec := do(router, http.MethodPost, "/api/admin/section-access", `{"userId":"nope","sectionId":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId"`)
	assert.Contains(t, rec.Body.String(), `"sectionId"`)

	rec = do(router, http.MethodPost, "/api/admin/section-access", `"x"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRevokeStopsWhenCapabilityRevocationFails(t *testing.T) {
	revoker := &stubRevoker{err: errors.New("redis down")}
	router := newRouter(revoker)
	userID := uuid.New()

	rec := do(router, http.MethodDelete, "/api/admin/section-access", `{"userId":"`+userID.String()+`","sectionId":"7"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
	assert.Equal(t, []revokedSection{{userID, 7}}, revoker.revoked)
}
