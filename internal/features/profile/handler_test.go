package profile

import (
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

func newRouter(caller uuid.UUID) *gin.Engine {
	router := gin.New()
	router.Use(request.Handler(logger.Discard()))
	auth := func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: caller, Role: types.UserRoleAdmin})
		c.Next()
	}
	RegisterRoutes(router.Group("/api"), NewHandler(nil, logger.Discard()), auth, []gin.HandlerFunc{auth})
	return router
}

func send(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSetRoleValidation(t *testing.T) {
	router := newRouter(uuid.New())
	target := uuid.NewString()

	rec := send(router, http.MethodPatch, "/api/admin/profiles/not-a-uuid/role", `{"role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(router, http.MethodPatch, "/api/admin/profiles/"+target+"/role", `{"role":"editor"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role"`)
}

func TestSetRoleRefusesSelfDemotion(t *testing.T) {
	self := uuid.New()
	rec := send(newRouter(self), http.MethodPatch, "/api/admin/profiles/"+self.String()+"/role", `{"role":"student"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListRejectsUnknownRole(t *testing.T) {
	rec := send(newRouter(uuid.New()), http.MethodGet, "/api/admin/profiles?role=owner", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
