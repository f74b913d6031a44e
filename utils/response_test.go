package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestJSONError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		wantError string
	}{
		{name: "client_error_shows_cause", status: http.StatusConflict, wantError: "conflict: auction a1 closed"},
		{name: "server_error_hides_cause", status: http.StatusServiceUnavailable, wantError: "storage temporarily unavailable"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			cause := errors.New("conflict: auction a1 closed")
			if tc.status >= http.StatusInternalServerError {
				cause = errors.New("dial tcp 10.0.0.5:5432: connection refused")
			}
			JSONError(c, tc.status, cause, "storage temporarily unavailable")

			require.True(t, c.IsAborted())
			require.Equal(t, tc.status, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tc.wantError, body["error"])
			require.EqualValues(t, tc.status, body["status"])
		})
	}
}
