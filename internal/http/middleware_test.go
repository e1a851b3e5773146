package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userhub/internal/auth"
	"userhub/internal/domain"
)

func TestAuthMiddlewareAttachesClaimsToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	issuer, err := auth.NewIssuer(testSecret)
	require.NoError(t, err)
	gate, err := auth.NewGate(testSecret)
	require.NoError(t, err)

	token, err := issuer.Issue(&domain.UserSummary{ID: 11, Email: "k@x.com", Name: "Kim"})
	require.NoError(t, err)

	var fromRequest, fromGin *auth.Claims
	router := gin.New()
	router.GET("/probe", AuthMiddleware(gate, logger), func(c *gin.Context) {
		fromRequest, _ = auth.FromContext(c.Request.Context())
		fromGin, _ = claimsFrom(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token.Value)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, fromRequest)
	assert.Equal(t, int64(11), fromRequest.UserID)
	assert.Same(t, fromRequest, fromGin)
}

func TestAuthMiddlewareStopsChainOnRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	gate, err := auth.NewGate(testSecret)
	require.NoError(t, err)

	reached := false
	router := gin.New()
	router.GET("/probe", AuthMiddleware(gate, logger), func(c *gin.Context) {
		reached = true
	})

	for header, want := range map[string]int{
		"":                   http.StatusUnauthorized,
		"Bearer":             http.StatusUnauthorized,
		"Bearer not.a.jwt":   http.StatusForbidden,
		"Basic Zm9vOmJhcg==": http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "header %q", header)
	}
	assert.False(t, reached)
}

func TestRequestLoggerRecordsFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "/boom", entry.Data["path"])
	assert.Equal(t, http.StatusInternalServerError, entry.Data["status"])
}
