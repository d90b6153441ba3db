// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the merge service configuration.
//
// Precedence is ENV > YAML file > defaults. The YAML file is parsed in strict
// mode: unknown keys and multiple documents are rejected. The resulting
// AppConfig is passed explicitly to every component; nothing reads it from
// package state.
package config
