package access

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
	"github.com/mo-amir99/lms-access-gateway/pkg/request"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(checker *Checker, caller *uuid.UUID) *gin.Engine {
	router := gin.New()
	router.Use(request.Handler(logger.Discard()))

	auth := func(c *gin.Context) {
		if caller != nil {
			middleware.SetUser(c, &middleware.User{ID: *caller, Role: types.UserRoleStudent})
		}
		c.Next()
	}
	RegisterRoutes(router.Group("/api"), NewHandler(checker, logger.Discard()), auth)
	return router
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestVerifyAccessEndpoint(t *testing.T) {
	store, entitled, stranger := fixture()
	checker := strict(store)

	cases := []struct {
		name   string
		caller uuid.UUID
		body   string
		want   bool
	}{
		{"entitled video", entitled, `{"contentType":"video","contentId":101}`, true},
		{"entitled section", entitled, `{"contentType":"section","sectionId":"7"}`, true},
		{"section id from contentId", entitled, `{"contentType":"section","contentId":7}`, true},
		{"stranger video", stranger, `{"contentType":"video","contentId":"101"}`, false},
		{"missing item", entitled, `{"contentType":"quiz","contentId":999}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			caller := tc.caller
			rec := post(newRouter(checker, &caller), "/api/verify-access", tc.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, map[string]interface{}{"hasAccess": tc.want}, decode(t, rec))
		})
	}
}

func TestVerifyAccessStoreFailureIsDenial(t *testing.T) {
	store, entitled, _ := fixture()
	store.entitlementErr = errStoreDown

	rec := post(newRouter(unified(store), &entitled), "/api/verify-access", `{"contentType":"video","contentId":101}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["hasAccess"])
}

func TestVerifyAccessValidation(t *testing.T) {
	store, entitled, _ := fixture()
	router := newRouter(strict(store), &entitled)

	cases := map[string]struct {
		body  string
		field string
	}{
		"unknown type":       {`{"contentType":"lesson","contentId":1}`, "contentType"},
		"missing type":       {`{"contentId":1}`, "contentType"},
		"missing item id":    {`{"contentType":"video"}`, "contentId"},
		"negative item id":   {`{"contentType":"file","contentId":-3}`, "contentId"},
		"fractional id":      {`{"contentType":"quiz","contentId":1.5}`, "contentId"},
		"section without id": {`{"contentType":"section"}`, "sectionId"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(router, "/api/verify-access", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "validation_error", body["code"])
			fields, ok := body["fields"].(map[string]interface{})
			require.True(t, ok)
			assert.Contains(t, fields, tc.field)
		})
	}

	rec := post(router, "/api/verify-access", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyAccessRequiresCaller(t *testing.T) {
	store, _, _ := fixture()
	rec := post(newRouter(strict(store), nil), "/api/verify-access", `{"contentType":"video","contentId":101}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSectionStatusEndpoint(t *testing.T) {
	store, entitled, stranger := fixture()

	get := func(caller uuid.UUID, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		newRouter(unified(store), &caller).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get(entitled, "/api/sections/7/access")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"hasAccess": true, "reason": "entitled"}, decode(t, rec))

	rec = get(stranger, "/api/sections/8/access")
	assert.Equal(t, map[string]interface{}{"hasAccess": true, "reason": "free"}, decode(t, rec))

	rec = get(stranger, "/api/sections/7/access")
	assert.Equal(t, map[string]interface{}{"hasAccess": false, "reason": "denied"}, decode(t, rec))

	rec = get(stranger, "/api/sections/zero/access")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.entitlementErr = errStoreDown
	rec = get(entitled, "/api/sections/7/access")
	assert.Equal(t, map[string]interface{}{"hasAccess": false, "reason": "denied"}, decode(t, rec))
}

func TestParseTargetRejectsSectionWhenNotAllowed(t *testing.T) {
	_, _, fields := ParseTarget("section", float64(7), nil, nil, false)
	assert.Contains(t, fields, "contentType")

	ct, id, fields := ParseTarget("Video", nil, nil, "0042", false)
	assert.Empty(t, fields)
	assert.Equal(t, types.ContentTypeVideo, ct)
	assert.Equal(t, "42", id)
}

func TestParseTargetSubject(t *testing.T) {
	_, _, fields := ParseTarget("subject", nil, float64(3), nil, false)
	assert.Contains(t, fields, "contentType")

	ct, id, fields := ParseTarget("subject", float64(9), float64(3), nil, true)
	assert.Empty(t, fields)
	assert.Equal(t, types.ContentTypeSubject, ct)
	assert.Equal(t, "3", id)

	_, id, fields = ParseTarget("subject", nil, nil, "5", true)
	assert.Empty(t, fields)
	assert.Equal(t, "5", id)

	_, _, fields = ParseTarget("subject", nil, "x", nil, true)
	assert.Contains(t, fields, "subjectId")
}

func TestSubjectEndpoints(t *testing.T) {
	store, entitled, stranger := fixture()
	store.subjectPrices[3] = 150
	store.grantSubject(entitled, 3)
	checker := unified(store)

	rec := post(newRouter(checker, &entitled), "/api/verify-access", `{"contentType":"subject","subjectId":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["hasAccess"])

	rec = post(newRouter(checker, &stranger), "/api/verify-access", `{"contentType":"subject","subjectId":"3"}`)
	assert.Equal(t, false, decode(t, rec)["hasAccess"])

	rec = post(newRouter(checker, &stranger), "/api/verify-access", `{"contentType":"subject"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(checker, &entitled).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/subjects/3/access", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"hasAccess": true, "reason": "entitled"}, decode(t, rec))

	rec = httptest.NewRecorder()
	newRouter(checker, &stranger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/subjects/-1/access", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
