// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/log"
	"github.com/ManuGH/vmerge/internal/merge"
	"github.com/ManuGH/vmerge/internal/metrics"
)

// Multipart field names of the merge request.
const (
	FieldItems  = "items"
	FieldVideos = "videos"

	downloadName = "merged.mp4"
)

// handleMerge implements POST /api/v1/merge: a multipart form with the JSON
// item list in "items" and one "videos" file per video item. The merged
// file is streamed back as an attachment and deleted afterwards.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	req, cleanup, err := s.parseMergeRequest(w, r)
	defer cleanup()
	if err != nil {
		var ve *media.ValidationError
		if errors.As(err, &ve) {
			metrics.IncValidationReject(ve.Reason)
		}
		writeProblem(w, r, err)
		return
	}

	res, err := s.merger.Merge(r.Context(), req)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	defer func() {
		if rerr := s.outputs.RemoveOutput(res.OutputPath); rerr != nil {
			logger.Warn().Err(rerr).
				Str(log.FieldEvent, "output.remove_failed").
				Str(log.FieldOutputPath, res.OutputPath).
				Msg("failed to delete delivered output")
		}
	}()

	// #nosec G304 -- path is produced by the workspace for this request
	f, err := os.Open(res.OutputPath)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		writeProblem(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	http.ServeContent(w, r, downloadName, st.ModTime(), f)

	logger.Info().
		Str(log.FieldEvent, "merge.delivered").
		Str(log.FieldSessionID, res.SessionID).
		Int64("bytes", st.Size()).
		Msg("merged file delivered")
}

// parseMergeRequest reads the multipart body within the upload limit. The
// returned cleanup removes multipart temp files and is always non-nil.
func (s *Server) parseMergeRequest(w http.ResponseWriter, r *http.Request) (merge.Request, func(), error) {
	noop := func() {}
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(s.cfg.MemoryBytes); err != nil {
		if isTooLarge(err) {
			return merge.Request{}, noop, &media.ValidationError{Reason: media.ReasonPayloadTooLarge}
		}
		return merge.Request{}, noop, &media.ValidationError{Reason: media.ReasonMalformedRequest, Detail: err.Error()}
	}
	form := r.MultipartForm
	cleanup := func() { _ = form.RemoveAll() }

	raw := ""
	if v := form.Value[FieldItems]; len(v) > 0 {
		raw = v[0]
	}
	items, err := media.ParseDescriptors(raw)
	if err != nil {
		return merge.Request{}, cleanup, err
	}

	files := form.File[FieldVideos]
	uploads := make([]merge.Upload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, merge.Upload{
			Filename: fh.Filename,
			Open:     openPart(fh),
		})
	}
	return merge.Request{Items: items, Videos: uploads}, cleanup, nil
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return fh.Open() }
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
