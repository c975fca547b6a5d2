package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"soul-chat-go/pkg/log"
	"soul-chat-go/pkg/metrics"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(), Metrics())
	r.POST("/echo/:id", func(c *gin.Context) {
		var body map[string]interface{}
		_ = c.ShouldBindJSON(&body)
		c.JSON(http.StatusOK, gin.H{"requestId": GetRequestID(c), "body": body})
	})
	return r
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo/1", strings.NewReader(`{}`)))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Contains(t, w.Body.String(), generated)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo/1", strings.NewReader(`{}`))
	req.Header.Set(RequestIDHeader, "client-supplied")
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-supplied", w.Header().Get(RequestIDHeader))
}

func TestRequestLoggerKeepsBodyForHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log.SetLogger(zap.New(core))
	t.Cleanup(func() { log.SetLogger(zap.NewNop()) })

	r := newRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo/7", strings.NewReader(`{"message":"hi"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"hi"`)

	entries := logs.FilterMessage("HTTP Request Log").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/echo/7", fields["path"])
	assert.Equal(t, `{"message":"hi"}`, fields["requestBody"])
	assert.EqualValues(t, http.StatusOK, fields["statusCode"])
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := newRouter()
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/echo/:id", http.MethodPost, "200"))

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/echo/"+id, strings.NewReader(`{}`)))
	}

	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/echo/:id", http.MethodPost, "200"))
	assert.Equal(t, before+3, after)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short"))
	long := strings.Repeat("a", maxLoggedBody+10)
	assert.True(t, strings.HasSuffix(clip(long), "...(truncated)"))
}
