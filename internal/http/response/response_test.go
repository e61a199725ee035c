package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tracebind/passport-backend/internal/platform/apierr"
)

func record(t *testing.T, fn func(c *gin.Context)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRespondAPIErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apierr.NotFound("no such product"), http.StatusNotFound, apierr.CodeNotFound},
		{"forbidden", apierr.Forbidden("not yours"), http.StatusForbidden, apierr.CodeForbidden},
		{"conflict", apierr.Conflict("duplicate sku"), http.StatusConflict, apierr.CodeConflict},
		{"invalid state", apierr.InvalidState("already submitted"), http.StatusConflict, apierr.CodeInvalidState},
		{"limit", apierr.LimitExceeded("retry cap"), http.StatusUnprocessableEntity, apierr.CodeLimitExceeded},
		{"validation", apierr.Validation("comment required"), http.StatusBadRequest, apierr.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := record(t, func(c *gin.Context) { RespondAPIError(c, tc.err) })
			require.Equal(t, tc.wantStatus, w.Code)
			env := decodeEnvelope(t, w)
			require.Equal(t, tc.wantCode, env.Error.Code)
			require.NotEmpty(t, env.Error.Message, "taxonomy errors must carry a message")
		})
	}
}

// Unclassified errors must not leak their message to the client.
func TestRespondAPIErrorOpaqueInternal(t *testing.T) {
	w := record(t, func(c *gin.Context) {
		RespondAPIError(c, errors.New("pq: connection refused to 10.0.0.3"))
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, "internal error", env.Error.Message)
}
