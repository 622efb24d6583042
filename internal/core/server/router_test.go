package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	resp "github.com/DavidFields1/auth-api/internal/transport/http/response"
)

func TestNewRouter_RecoversPanicIntoEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := NewRouter(zap.New(core), Options{Mode: gin.TestMode})
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, resp.CodeServerError, body.Code)
	assert.Equal(t, "Unexpected error, check server logs", body.Msg)
	assert.GreaterOrEqual(t, logs.Len(), 1)
}

func TestNewRouter_CORS(t *testing.T) {
	r := NewRouter(zap.NewNop(), Options{Mode: gin.TestMode, CORSOrigins: []string{"https://app.example.com"}})
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := BuildServer(addr, http.NotFoundHandler(), time.Second, time.Second, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, zap.NewNop(), time.Second) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		_ = res.Body.Close()
		return res.StatusCode == http.StatusNotFound
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", Addr("0.0.0.0", 8080))
	assert.Equal(t, "http://127.0.0.1:8080", HumanURL("0.0.0.0", 8080))
	assert.Equal(t, "http://api.local:80", HumanURL("api.local", 80))
}
