// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/vmerge/internal/metrics"
)

// Terminate stops a tool's process group: SIGTERM, wait up to grace for
// waitCh, then SIGKILL and drain waitCh. It returns the error received from
// waitCh. Nil commands and commands that never started return nil.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = Signal(cmd, syscall.SIGTERM)

	select {
	case err := <-waitCh:
		if err == nil {
			metrics.IncProcWait("exit0")
		} else {
			metrics.IncProcWait("exit_nonzero")
		}
		return err
	case <-time.After(grace):
		_ = Signal(cmd, syscall.SIGKILL)

		// SIGKILL cannot be ignored; the wait must complete.
		err := <-waitCh
		if err == nil {
			metrics.IncProcWait("forced_exit0")
		} else {
			metrics.IncProcWait("forced_error")
		}
		return err
	}
}

// Signal delivers sig to every process in the tool's group and records the
// outcome. A group that has already exited counts as delivered.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	name := "SIGTERM"
	if sig == syscall.SIGKILL {
		name = "SIGKILL"
	}

	err := sendGroup(cmd.Process, sig)
	switch {
	case err == nil:
		metrics.IncProcTerminate(name, "sent")
	case groupGone(err):
		metrics.IncProcTerminate(name, "gone")
		return nil
	default:
		metrics.IncProcTerminate(name, "error")
	}
	return err
}
