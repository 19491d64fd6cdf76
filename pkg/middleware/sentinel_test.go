package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepost.com/pkg/bootstrap"
)

func TestSentinel_BlocksByRoute(t *testing.T) {
	require.NoError(t, bootstrap.InitSentinel(bootstrap.SentinelCfg{
		Enabled: true,
		LogDir:  t.TempDir(),
		Flow: bootstrap.FlowSection{
			Enabled: true,
			Rules: []bootstrap.FlowRule{
				{Resource: "POST /blocked/:id", Threshold: 0},
			},
		},
	}))

	r := gin.New()
	r.Use(Sentinel())
	r.POST("/blocked/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/open", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/blocked/42", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
