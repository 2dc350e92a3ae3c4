package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/service"
	"github.com/satriadp/supervision-api/pkg/config"
)

const testSecret = "test-secret"

func testAuthService() *service.AuthService {
	cfg := config.JWTConfig{Secret: testSecret, Expiration: time.Hour, Issuer: "supervision-api"}
	return service.NewAuthService(nil, cfg, nil, nil)
}

func signTestToken(t *testing.T, role models.UserRole) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		Email:  "user@example.edu",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func performJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/protected", nil)
	require.NoError(t, err)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c.Request = req
	JWT(testAuthService())(c)
	return w, c
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	w, c := performJWT(t, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.True(t, c.IsAborted())
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	w, _ := performJWT(t, "Token abc")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsBadToken(t *testing.T) {
	w, _ := performJWT(t, "Bearer not-a-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTResolvesActor(t *testing.T) {
	token := signTestToken(t, models.RoleModerator)
	w, c := performJWT(t, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, c.IsAborted())

	claimsValue, ok := c.Get(ContextUserKey)
	require.True(t, ok)
	require.Equal(t, "user-1", claimsValue.(*models.JWTClaims).UserID)

	actorValue, ok := c.Get(ContextActorKey)
	require.True(t, ok)
	actor := actorValue.(models.Actor)
	require.Equal(t, models.ActorModerator, actor.Kind)
	require.True(t, actor.CanOperate())
}

func TestJWTRejectsUnknownRole(t *testing.T) {
	token := signTestToken(t, models.UserRole("SUPERUSER"))
	w, _ := performJWT(t, "Bearer "+token)
	require.Equal(t, http.StatusForbidden, w.Code)
}
