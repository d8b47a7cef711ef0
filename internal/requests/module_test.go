package requests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/requests/handler"
	"procurement_backend/platform/httpkit"
	"procurement_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// stubAuth injects an authenticated identity with the given roles, standing in
// for the JWT middleware.
func stubAuth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, roles)
		c.Next()
	}
}

func newRouteEngine(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(stubAuth(roles...))
	admin := v1.Group("/admin")
	admin.Use(stubAuth(roles...), httpkit.RequireRole("admin"))

	m := &Module{handler: handler.New(nil, nil, validator.New())}
	m.RegisterRoutes(&apphttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: protected,
		Admin:     admin,
	})
	return engine
}

func doJSON(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	return rec
}

func TestOverrideRoutesRequireAdminRole(t *testing.T) {
	engine := newRouteEngine("user")
	id := uuid.NewString()

	if rec := doJSON(engine, http.MethodPost, "/api/v1/requests/"+id+"/apply-action"); rec.Code != http.StatusForbidden {
		t.Errorf("apply-action as non-admin: status = %d, want 403", rec.Code)
	}
	if rec := doJSON(engine, http.MethodPut, "/api/v1/pipeline/"+id+"/move"); rec.Code != http.StatusForbidden {
		t.Errorf("pipeline move as non-admin: status = %d, want 403", rec.Code)
	}
}

func TestOverrideRoutesPassAdminRole(t *testing.T) {
	engine := newRouteEngine("admin")

	// A malformed id stops the handler before any service work; the role check
	// itself must not reject the admin.
	if rec := doJSON(engine, http.MethodPost, "/api/v1/requests/not-a-uuid/apply-action"); rec.Code != http.StatusBadRequest {
		t.Errorf("apply-action as admin: status = %d, want 400", rec.Code)
	}
	if rec := doJSON(engine, http.MethodPut, "/api/v1/pipeline/not-a-uuid/move"); rec.Code != http.StatusBadRequest {
		t.Errorf("pipeline move as admin: status = %d, want 400", rec.Code)
	}
}
