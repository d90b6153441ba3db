// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/vmerge/internal/domain/media"
	xglog "github.com/ManuGH/vmerge/internal/log"
	"github.com/ManuGH/vmerge/internal/merge"
	"github.com/ManuGH/vmerge/internal/version"
)

// runMergeCLI merges local clips with the same pipeline the HTTP service
// uses: daemon merge -items items.json -o out.mp4 clip1.mp4 clip2.mov
func runMergeCLI(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	itemsPath := fs.String("items", "", "path to the JSON item list")
	outPath := fs.String("o", "merged.mp4", "output file")
	configPath := fs.String("config", "", "path to config file (YAML)")
	verbose := fs.Bool("v", false, "log pipeline progress to stderr")
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *itemsPath == "" {
		fmt.Fprintln(os.Stderr, "merge: -items is required")
		fs.Usage()
		return 2
	}

	level := "warn"
	if *verbose {
		level = "info"
	}
	xglog.Configure(xglog.Config{Level: level, Output: os.Stderr, Service: "vmerge", Version: version.Version})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge: %v\n", err)
		return 1
	}
	svc, err := buildServices(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge: %v\n", err)
		return 1
	}

	req, err := localRequest(*itemsPath, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := svc.orchestrator.Merge(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge: %v\n", err)
		return 1
	}
	if err := moveOutput(res.OutputPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "merge: %v\n", err)
		return 1
	}
	fmt.Printf("%s (%s, %.1fs, %d items)\n", *outPath, res.Geometry, res.Duration, res.Items)
	return 0
}

// localRequest builds a merge request from an item list file and clip paths.
func localRequest(itemsPath string, clips []string) (merge.Request, error) {
	// #nosec G304 -- operator supplied path
	raw, err := os.ReadFile(itemsPath)
	if err != nil {
		return merge.Request{}, fmt.Errorf("read items: %w", err)
	}
	items, err := media.ParseDescriptors(string(raw))
	if err != nil {
		return merge.Request{}, err
	}

	uploads := make([]merge.Upload, 0, len(clips))
	for _, p := range clips {
		uploads = append(uploads, merge.Upload{
			Filename: filepath.Base(p),
			Open:     openFile(p),
		})
	}
	return merge.Request{Items: items, Videos: uploads}, nil
}

func openFile(path string) func() (io.ReadCloser, error) {
	// #nosec G304 -- operator supplied path
	return func() (io.ReadCloser, error) { return os.Open(path) }
}

// moveOutput renames src onto dst, copying atomically when they live on
// different filesystems.
func moveOutput(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move output: %w", err)
	}

	// #nosec G304 -- src is the workspace output of this run
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("move output: %w", err)
	}
	defer func() { _ = in.Close() }()

	pf, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("move output: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := io.Copy(pf, in); err != nil {
		return fmt.Errorf("move output: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("move output: %w", err)
	}
	return os.Remove(src)
}
