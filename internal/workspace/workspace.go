// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package workspace owns the on-disk layout of merge sessions: one scratch
// directory per request under the upload root and one final file per
// request under the output root, both named by the session ID.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/vmerge/internal/log"
	"github.com/ManuGH/vmerge/internal/metrics"
)

const (
	dirPerm       = 0o750
	outputExt     = ".mp4"
	uploadsSubdir = "uploads"
	outputsSubdir = "outputs"
)

// Manager creates and reclaims sessions.
type Manager struct {
	uploadRoot string
	outputRoot string
	logger     zerolog.Logger
}

// New ensures both roots exist.
func New(uploadRoot, outputRoot string, logger zerolog.Logger) (*Manager, error) {
	for _, dir := range []string{uploadRoot, outputRoot} {
		if dir == "" {
			return nil, errors.New("workspace root must not be empty")
		}
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("create workspace root %s: %w", dir, err)
		}
	}
	return &Manager{uploadRoot: uploadRoot, outputRoot: outputRoot, logger: logger}, nil
}

// NewUnder lays out uploads/ and outputs/ beneath dataDir.
func NewUnder(dataDir string, logger zerolog.Logger) (*Manager, error) {
	return New(filepath.Join(dataDir, uploadsSubdir), filepath.Join(dataDir, outputsSubdir), logger)
}

// UploadRoot is the parent of all scratch directories.
func (m *Manager) UploadRoot() string { return m.uploadRoot }

// OutputRoot holds finished merges.
func (m *Manager) OutputRoot() string { return m.outputRoot }

// Create allocates a fresh session and its scratch directory.
func (m *Manager) Create() (*Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.uploadRoot, id)
	if err := os.Mkdir(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Session{
		ID:     id,
		Dir:    dir,
		output: filepath.Join(m.outputRoot, id+outputExt),
	}, nil
}

// OutputPath returns where the session id writes its final file. It fails
// for anything that is not a canonical session ID.
func (m *Manager) OutputPath(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return confine(m.outputRoot, id+outputExt)
}

// RemoveOutput deletes a delivered output. A missing file is not an error.
func (m *Manager) RemoveOutput(path string) error {
	p, err := confineAbs(m.outputRoot, path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Sweep removes outputs and leftover scratch directories whose
// modification time is older than maxAge relative to now. It returns the
// number of entries removed.
func (m *Manager) Sweep(now time.Time, maxAge time.Duration) (int, error) {
	cutoff := now.Add(-maxAge)
	var errs []error
	removed := 0

	outputs, err := os.ReadDir(m.outputRoot)
	if err != nil {
		return 0, fmt.Errorf("read output root: %w", err)
	}
	for _, e := range outputs {
		if e.IsDir() || filepath.Ext(e.Name()) != outputExt {
			continue
		}
		if stale(e, cutoff) {
			if err := os.Remove(filepath.Join(m.outputRoot, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}

	sessions, err := os.ReadDir(m.uploadRoot)
	if err != nil {
		errs = append(errs, fmt.Errorf("read upload root: %w", err))
	}
	for _, e := range sessions {
		if !e.IsDir() || !stale(e, cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.uploadRoot, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.AddOutputsSwept(removed)
		m.logger.Info().
			Str(xglog.FieldEvent, "workspace.swept").
			Int("removed", removed).
			Dur("max_age", maxAge).
			Msg("removed stale merge artifacts")
	}
	return removed, errors.Join(errs...)
}

func stale(e os.DirEntry, cutoff time.Time) bool {
	info, err := e.Info()
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}

// Session is one request's scratch space.
type Session struct {
	ID     string
	Dir    string
	output string
}

// VideoPath names the i-th uploaded video (upload order).
func (s *Session) VideoPath(i int, ext string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("video_%03d.%s", i, ext))
}

// CardPath names the text card for the i-th sequence item.
func (s *Session) CardPath(i int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("text_%03d.mp4", i))
}

// OutputPath is the final merged file.
func (s *Session) OutputPath() string { return s.output }

// StageVideo copies r into the scratch directory as the i-th video. The
// file appears under its final name only once fully written.
func (s *Session) StageVideo(i int, ext string, r io.Reader) (string, int64, error) {
	path := s.VideoPath(i, ext)
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return "", 0, fmt.Errorf("create pending upload: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	n, err := io.Copy(pending, r)
	if err != nil {
		return "", n, fmt.Errorf("write upload: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", n, fmt.Errorf("commit upload: %w", err)
	}
	return path, n, nil
}

// Cleanup removes the scratch directory and everything in it.
func (s *Session) Cleanup() error {
	return os.RemoveAll(s.Dir)
}
