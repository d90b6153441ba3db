// SPDX-License-Identifier: MIT

// Package health provides readiness checks for the merge service: scratch
// directories must be writable and the external tools resolvable.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ManuGH/vmerge/internal/log"
)

// Status represents the readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for readiness checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates checkers.
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a new readiness manager
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Ready runs every checker. Any unhealthy check makes the service not ready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			resp.Ready = false
			resp.Status = StatusUnhealthy
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

// ServeReady handles HTTP readiness requests: 200 when ready, 503 otherwise.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str(log.FieldEvent, "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// WritableDirChecker verifies a directory exists and accepts new files.
type WritableDirChecker struct {
	name string
	path string
}

// NewWritableDirChecker creates a checker for dir.
func NewWritableDirChecker(name, dir string) *WritableDirChecker {
	return &WritableDirChecker{name: name, path: dir}
}

func (c *WritableDirChecker) Name() string { return c.name }

func (c *WritableDirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "not a directory", Message: c.path}
	}

	f, err := os.CreateTemp(c.path, ".write_test-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: "directory is not writable", Message: c.path}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	return CheckResult{Status: StatusHealthy, Message: filepath.Clean(c.path)}
}

// BinaryChecker verifies an external tool resolves to an executable.
type BinaryChecker struct {
	name     string
	bin      string
	lookPath func(string) (string, error)
}

// NewBinaryChecker creates a checker resolving bin through PATH.
func NewBinaryChecker(name, bin string) *BinaryChecker {
	return &BinaryChecker{name: name, bin: bin, lookPath: exec.LookPath}
}

func (c *BinaryChecker) Name() string { return c.name }

func (c *BinaryChecker) Check(_ context.Context) CheckResult {
	path, err := c.lookPath(c.bin)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.bin}
	}
	return CheckResult{Status: StatusHealthy, Message: path}
}
