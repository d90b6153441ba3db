// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// Set is a no-op: Windows has no POSIX process groups.
func Set(cmd *exec.Cmd) {}

// Only the tool itself is reachable; any signal terminates it.
func sendGroup(p *os.Process, _ syscall.Signal) error {
	return p.Kill()
}

func groupGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
