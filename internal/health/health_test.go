// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChecker struct {
	name   string
	result CheckResult
}

func (s staticChecker) Name() string                      { return s.name }
func (s staticChecker) Check(context.Context) CheckResult { return s.result }

func TestReady_Aggregation(t *testing.T) {
	tests := []struct {
		name      string
		checks    []CheckResult
		wantReady bool
		want      Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"all healthy", []CheckResult{{Status: StatusHealthy}, {Status: StatusHealthy}}, true, StatusHealthy},
		{"degraded stays ready", []CheckResult{{Status: StatusHealthy}, {Status: StatusDegraded}}, true, StatusDegraded},
		{"unhealthy wins", []CheckResult{{Status: StatusUnhealthy}, {Status: StatusDegraded}}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1")
			for i, r := range tt.checks {
				m.RegisterChecker(staticChecker{name: string(rune('a' + i)), result: r})
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(staticChecker{name: "ffmpeg", result: CheckResult{Status: StatusHealthy}})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.RegisterChecker(staticChecker{name: "uploads", result: CheckResult{Status: StatusUnhealthy, Error: "read-only"}})
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.Equal(t, "read-only", resp.Checks["uploads"].Error)
	assert.Equal(t, "v1", resp.Version)
}

func TestWritableDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, StatusHealthy, NewWritableDirChecker("uploads", dir).Check(context.Background()).Status)

	assert.Equal(t, StatusUnhealthy, NewWritableDirChecker("missing", filepath.Join(dir, "nope")).Check(context.Background()).Status)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	res := NewWritableDirChecker("file", file).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "not a directory", res.Error)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "probe file must be removed")
}

func TestWritableDirChecker_ReadOnly(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	res := NewWritableDirChecker("outputs", dir).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "directory is not writable", res.Error)
}

func TestBinaryChecker(t *testing.T) {
	c := NewBinaryChecker("ffmpeg", "ffmpeg")
	c.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "/usr/bin/ffmpeg", res.Message)

	c.lookPath = func(string) (string, error) { return "", errors.New("executable file not found in $PATH") }
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
}

func TestPerformStartupChecks(t *testing.T) {
	good := NewWritableDirChecker("uploads", t.TempDir())
	bad := NewWritableDirChecker("outputs", filepath.Join(t.TempDir(), "missing"))
	missingTool := staticChecker{name: "ffprobe", result: CheckResult{Status: StatusUnhealthy, Message: "ffprobe"}}

	assert.NoError(t, PerformStartupChecks(context.Background(), []Checker{good}, []Checker{missingTool}))

	err := PerformStartupChecks(context.Background(), []Checker{good, bad}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outputs")
}
