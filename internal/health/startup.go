// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/vmerge/internal/log"
)

// PerformStartupChecks fails fast on unusable scratch directories. Missing
// tools are only logged: the service still answers readiness probes and
// rejects merges with a clear error.
func PerformStartupChecks(ctx context.Context, dirs, tools []Checker) error {
	logger := log.WithComponent("startup-check")

	var errs []error
	for _, c := range dirs {
		res := c.Check(ctx)
		if res.Status == StatusUnhealthy {
			errs = append(errs, fmt.Errorf("%s (%s): %s", c.Name(), res.Message, res.Error))
		}
	}
	for _, c := range tools {
		res := c.Check(ctx)
		if res.Status == StatusUnhealthy {
			logger.Warn().
				Str(log.FieldEvent, "startup.tool_missing").
				Str(log.FieldTool, res.Message).
				Str("error", res.Error).
				Msg("external tool not found")
			continue
		}
		logger.Info().
			Str(log.FieldEvent, "startup.tool_found").
			Str("check", c.Name()).
			Str(log.FieldPath, res.Message).
			Msg("external tool resolved")
	}

	if len(errs) > 0 {
		return fmt.Errorf("startup checks failed: %w", errors.Join(errs...))
	}
	return nil
}
