// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestConfigure_AttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "vmerge-test", Version: "v9.9.9"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("probe")
	l.Info().Str(FieldEvent, "probe.done").Msg("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "vmerge-test", lines[0]["service"])
	require.Equal(t, "v9.9.9", lines[0]["version"])
	require.Equal(t, "probe", lines[0][FieldComponent])
	require.Equal(t, "probe.done", lines[0][FieldEvent])
}

func TestConfigure_ReconfigureReplacesOutput(t *testing.T) {
	var first, second bytes.Buffer
	Configure(Config{Output: &first})
	Configure(Config{Output: &second})
	t.Cleanup(func() { Configure(Config{}) })

	L().Info().Msg("after reconfigure")

	require.Zero(t, first.Len())
	require.Contains(t, second.String(), "after reconfigure")
}

func TestMiddleware_LogsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/merge", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-1"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "http.request", lines[0][FieldEvent])
	require.Equal(t, float64(http.StatusTeapot), lines[0]["status"])
	require.Equal(t, float64(len("short and stout")), lines[0]["bytes"])
	require.Equal(t, "req-1", lines[0][FieldRequestID])
	require.Equal(t, "warn", lines[0]["level"])
}
