package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_DefaultAndCustomMsg(t *testing.T) {
	assert.Equal(t, "Forbidden", Error(CodeForbidden, "").Msg)
	assert.Equal(t, "nope", Error(CodeForbidden, "nope").Msg)
	assert.Equal(t, struct{}{}, New(CodeOK, "OK", nil).Data)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, Status(CodeOK))
	assert.Equal(t, http.StatusUnauthorized, Status(CodeUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, Status(7))
}

func TestAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Abort(c, CodeTooManyRequests, "")

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var body Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeTooManyRequests, body.Code)
	assert.Equal(t, "Too Many Requests", body.Msg)
}
