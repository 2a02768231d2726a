package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 HealthHandler 测试
// =============================================================================

func TestHealthHandler_NoChecks(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Checks)
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthHandler_Checks(t *testing.T) {
	tests := []struct {
		name           string
		checks         map[string]error
		expectedStatus int
		expectedHealth string
	}{
		{
			name:           "all pass",
			checks:         map[string]error{"redis": nil, "workers": nil},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
		},
		{
			name:           "one fails",
			checks:         map[string]error{"redis": errors.New("connection refused"), "workers": nil},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(nil)
			for name, err := range tt.checks {
				handler.RegisterCheck(NewFuncCheck(name, func(context.Context) error { return err }))
			}

			w := httptest.NewRecorder()
			handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)

			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.expectedHealth, status.Status)
			require.Len(t, status.Checks, len(tt.checks))
			for name, err := range tt.checks {
				if err != nil {
					assert.Equal(t, "fail", status.Checks[name].Status)
					assert.Equal(t, err.Error(), status.Checks[name].Message)
				} else {
					assert.Equal(t, "pass", status.Checks[name].Status)
				}
			}
		})
	}
}

func TestHealthHandler_CheckSeesDeadline(t *testing.T) {
	handler := NewHealthHandler(nil)
	handler.RegisterCheck(NewFuncCheck("deadline", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}))

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	handler := NewHealthHandler(nil)
	info := VersionInfo{APIVersion: "1.2.0", FrontendVersion: "0.9.1", BuildTime: "2024-01-01", GitCommit: "abc123"}

	w := httptest.NewRecorder()
	handler.HandleVersion(info)(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var got map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "1.2.0", got["api_version"])
	assert.Equal(t, "0.9.1", got["frontend_version"])
	assert.Equal(t, "abc123", got["git_commit"])
}

func TestFuncCheck_Name(t *testing.T) {
	c := NewFuncCheck("redis", func(context.Context) error { return nil })
	assert.Equal(t, "redis", c.Name())
	assert.NoError(t, c.Check(context.Background()))
}
