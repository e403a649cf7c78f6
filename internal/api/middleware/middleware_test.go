package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/core/scope"
	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/internal/pkg/jwt"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
	"buildbuddy-admin/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubMemberships struct {
	list []scope.Membership
	err  error
}

func (s stubMemberships) ListMemberships(context.Context, int64) ([]scope.Membership, error) {
	return s.list, s.err
}

type stubChoices struct{ choice *int64 }

func (s stubChoices) PersistedChoice(context.Context, int64) (*int64, error) {
	return s.choice, nil
}

func twoOrgs() []scope.Membership {
	joined := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []scope.Membership{
		{OrgID: 1, Role: "org_admin", OrgName: "Acme", JoinedAt: joined},
		{OrgID: 2, Role: "worker", OrgName: "Vendor GmbH", JoinedAt: joined.Add(time.Hour)},
	}
}

// newEngine 模拟认证后的请求, 返回的 handler 输出生效组织
func newEngine(source scope.MembershipSource, choices ChoiceSource, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.CtxKeyUserID, int64(1001))
		c.Set(constants.CtxKeyEmail, "alice@acme.test")
	})
	r.Use(ScopeMiddleware(scope.NewResolver(source, zap.NewNop()), choices))
	r.Use(extra...)
	r.GET("/", func(c *gin.Context) {
		s, err := scope.MustFromContext(c.Request.Context())
		if err != nil {
			utils.Error(c, err)
			return
		}
		utils.Success(c, gin.H{"active": s.ActiveOrgID, "has_active": s.HasActive})
	})
	return r
}

func do(t *testing.T, r http.Handler, header map[string]string) utils.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func activeOf(t *testing.T, resp utils.Response) float64 {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data: %#v", resp.Data)
	return data["active"].(float64)
}

func TestScopeMiddlewareHeaderSelectsOrg(t *testing.T) {
	r := newEngine(stubMemberships{list: twoOrgs()}, stubChoices{})

	resp := do(t, r, map[string]string{constants.HeaderActiveOrg: "2"})
	assert.Equal(t, pkgErrors.CodeSuccess, resp.Code)
	assert.Equal(t, float64(2), activeOf(t, resp))
}

func TestScopeMiddlewareFallsBackToPersistedChoice(t *testing.T) {
	choice := int64(2)
	r := newEngine(stubMemberships{list: twoOrgs()}, stubChoices{choice: &choice})

	resp := do(t, r, nil)
	assert.Equal(t, float64(2), activeOf(t, resp))
}

func TestScopeMiddlewareDiscardsStaleHeader(t *testing.T) {
	r := newEngine(stubMemberships{list: twoOrgs()}, stubChoices{})

	resp := do(t, r, map[string]string{constants.HeaderActiveOrg: "99"})
	assert.Equal(t, float64(1), activeOf(t, resp))
}

func TestScopeMiddlewareRejectsMalformedHeader(t *testing.T) {
	r := newEngine(stubMemberships{list: twoOrgs()}, stubChoices{})

	resp := do(t, r, map[string]string{constants.HeaderActiveOrg: "acme"})
	assert.Equal(t, pkgErrors.CodeBadRequest, resp.Code)
}

func TestScopeMiddlewareReadFailureIsRetryable(t *testing.T) {
	r := newEngine(stubMemberships{err: errors.New("connection reset")}, stubChoices{})

	resp := do(t, r, nil)
	assert.Equal(t, pkgErrors.ErrScopeUnavailable.Code, resp.Code)
}

func TestRequireActiveOrgNeedsSetup(t *testing.T) {
	r := newEngine(stubMemberships{}, stubChoices{}, RequireActiveOrg())

	resp := do(t, r, nil)
	assert.Equal(t, pkgErrors.CodeNeedsSetup, resp.Code)
}

func setupJWT(t *testing.T) {
	t.Helper()
	prev := config.GlobalConfig
	config.GlobalConfig = &config.Config{Auth: config.AuthConfig{JWT: config.JWTConfig{
		Secret:             "test-secret",
		AccessTokenExpire:  60,
		RefreshTokenExpire: 120,
	}}}
	t.Cleanup(func() { config.GlobalConfig = prev })
}

func authEngine() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/", func(c *gin.Context) {
		utils.Success(c, gin.H{"active": float64(c.GetInt64(constants.CtxKeyUserID))})
	})
	return r
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	resp := do(t, authEngine(), nil)
	assert.Equal(t, 401, resp.Code)
}

func TestAuthMiddlewareAcceptsAccessToken(t *testing.T) {
	setupJWT(t)
	token, err := jwt.GenerateAccessToken(jwt.Identity{UserID: 7, Username: "alice", Email: "alice@acme.test"})
	require.NoError(t, err)

	resp := do(t, authEngine(), map[string]string{constants.HeaderAuthorization: constants.HeaderBearerPrefix + token})
	assert.Equal(t, pkgErrors.CodeSuccess, resp.Code)
	assert.Equal(t, float64(7), activeOf(t, resp))
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	setupJWT(t)
	token, err := jwt.GenerateRefreshToken(jwt.Identity{UserID: 7, Username: "alice"})
	require.NoError(t, err)

	resp := do(t, authEngine(), map[string]string{constants.HeaderAuthorization: constants.HeaderBearerPrefix + token})
	assert.Equal(t, 401, resp.Code)
}
