package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdata/nexusdata/internal/config"
)

func testApplication(t *testing.T) *application {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: 8080, LogLevel: "info"},
		Queue:     config.QueueConfig{Capacity: 4, PollIntervalSeconds: 1},
		Store:     config.StoreConfig{Driver: "memory"},
		Callback:  config.CallbackConfig{TimeoutSeconds: 1},
		Retention: config.RetentionConfig{MaxAgeHours: 1, SweepIntervalMinutes: 1},
		Mask:      config.MaskConfig{AESPassphrase: "unit-test-passphrase"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := newApplication(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app
}

func TestRouterServesSubmitRoutesWithoutTrailingSlash(t *testing.T) {
	router := testApplication(t).newRouter()

	cases := []struct {
		path string
		body string
	}{
		{path: "/api/v1/mask", body: `{"text":"联系张三","strategy":"delete","schema":["人名"]}`},
		{path: "/api/v1/embedding", body: `{"text":"一段文本"}`},
		{path: "/api/v1/rerank", body: `{"query":"问题","texts":["答案"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRouterHealthAndStatusRoutes(t *testing.T) {
	router := testApplication(t).newRouter()

	for _, path := range []string{"/health", "/ping", "/api/v1/queue/status", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
