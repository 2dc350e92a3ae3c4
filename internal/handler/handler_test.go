package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
)

func testContext(t *testing.T, method, path string, body []byte) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestCaseKindFromParam(t *testing.T) {
	_, c := testContext(t, http.MethodGet, "/cases/pre-thesis", nil)
	c.Params = gin.Params{{Key: "kind", Value: "pre-thesis"}}
	kind, err := caseKindFromParam(c)
	require.NoError(t, err)
	require.Equal(t, models.CaseKindPreThesis, kind)

	c.Params = gin.Params{{Key: "kind", Value: "THESIS"}}
	kind, err = caseKindFromParam(c)
	require.NoError(t, err)
	require.Equal(t, models.CaseKindThesis, kind)

	c.Params = gin.Params{{Key: "kind", Value: "homework"}}
	_, err = caseKindFromParam(c)
	require.Error(t, err)
}

func TestPeriodHandlerCreateRejectsInvalidBody(t *testing.T) {
	handler := NewPeriodHandler(nil)
	w, c := testContext(t, http.MethodPost, "/periods", []byte(`{invalid`))
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPeriodHandlerSetPublishedRequiresFlag(t *testing.T) {
	handler := NewPeriodHandler(nil)
	w, c := testContext(t, http.MethodPost, "/periods/p-1/publish", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "p-1"}}
	handler.SetPublished(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignmentHandlerRejectsInvalidBody(t *testing.T) {
	handler := NewAssignmentHandler(nil)

	w, c := testContext(t, http.MethodPost, "/assignments/directed", []byte(`not json`))
	handler.AssignDirected(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, c = testContext(t, http.MethodPost, "/assignments/random", []byte(`not json`))
	handler.AssignRandom(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmissionHandlerRejectsUnknownTrack(t *testing.T) {
	handler := NewSubmissionHandler(nil)
	w, c := testContext(t, http.MethodPost, "/cases/homework/c-1/submissions", []byte(`{}`))
	c.Params = gin.Params{{Key: "kind", Value: "homework"}, {Key: "id", Value: "c-1"}}
	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	handler := NewAuthHandler(nil)
	w, c := testContext(t, http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
