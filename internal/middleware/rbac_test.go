package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
)

func performRBAC(t *testing.T, mw gin.HandlerFunc, claims *models.JWTClaims) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/protected", nil)
	require.NoError(t, err)
	c.Request = req
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	mw(c)
	return w
}

func TestRequireRolesBlocksAnonymous(t *testing.T) {
	w := performRBAC(t, RequireRoles(models.RoleAdmin), nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesBlocksOtherRole(t *testing.T) {
	w := performRBAC(t, RequireRoles(models.RoleAdmin), &models.JWTClaims{Role: models.RoleStudent})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	w := performRBAC(t, RequireRoles(models.RoleTeacher, models.RoleAdmin), &models.JWTClaims{Role: models.RoleTeacher})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireOperatorCoversModeratorAndAdmin(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleModerator, models.RoleAdmin} {
		w := performRBAC(t, RequireOperator(), &models.JWTClaims{Role: role})
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := performRBAC(t, RequireOperator(), &models.JWTClaims{Role: models.RoleTeacher})
	require.Equal(t, http.StatusForbidden, w.Code)
}
