// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package merge drives one merge request from validated descriptors and
// uploads to a finished H.264/AAC file.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/filtergraph"
	"github.com/ManuGH/vmerge/internal/infra/ffmpeg"
	xglog "github.com/ManuGH/vmerge/internal/log"
	"github.com/ManuGH/vmerge/internal/metrics"
	"github.com/ManuGH/vmerge/internal/telemetry"
	"github.com/ManuGH/vmerge/internal/workspace"
)

const (
	// DefaultTimeout bounds the final encode.
	DefaultTimeout = 600 * time.Second

	clientStderrBytes = 500
	logStderrBytes    = 3000
)

// DefaultExtensions are the accepted upload container extensions.
var DefaultExtensions = []string{"mp4", "mov", "avi", "mkv", "webm", "flv", "m4v"}

// Encoder runs one ffmpeg invocation.
type Encoder interface {
	Run(ctx context.Context, args ...string) (ffmpeg.Result, error)
}

// Config is the per-orchestrator configuration.
type Config struct {
	Timeout           time.Duration
	Filter            filtergraph.Options
	AllowedExtensions media.ExtensionSet
	// CardDuration applies to text items without an explicit duration.
	CardDuration float64

	// OnTransition, if set, observes every state change.
	OnTransition func(sessionID string, t Transition)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           DefaultTimeout,
		Filter:            filtergraph.DefaultOptions(),
		AllowedExtensions: media.NewExtensionSet(DefaultExtensions),
		CardDuration:      media.DefaultCardDuration,
	}
}

// Upload is one submitted video file.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// Request is a merge request: the timeline descriptors and one upload per
// video descriptor, in order.
type Request struct {
	Items  []media.Descriptor
	Videos []Upload
}

// Result describes a finished merge. The caller owns OutputPath.
type Result struct {
	SessionID  string
	OutputPath string
	Geometry   media.Geometry
	Duration   float64
	Items      int
}

// Orchestrator executes merge requests. It holds no per-request state, so
// one instance serves concurrent requests.
type Orchestrator struct {
	cfg      Config
	ws       *workspace.Manager
	prober   media.Prober
	renderer media.CardRenderer
	encoder  Encoder
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// New returns an Orchestrator. Zero Config fields take the defaults.
func New(cfg Config, ws *workspace.Manager, prober media.Prober, renderer media.CardRenderer, encoder Encoder, logger zerolog.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Filter.SampleRate == 0 {
		cfg.Filter = def.Filter
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = def.AllowedExtensions
	}
	if cfg.CardDuration <= 0 {
		cfg.CardDuration = def.CardDuration
	}
	return &Orchestrator{
		cfg:      cfg,
		ws:       ws,
		prober:   prober,
		renderer: renderer,
		encoder:  encoder,
		logger:   logger,
		tracer:   telemetry.Tracer("github.com/ManuGH/vmerge/internal/merge"),
	}
}

// Merge runs the whole pipeline. Validation happens before anything touches
// disk. Once staged, the session scratch directory is removed on every
// return path.
func (o *Orchestrator) Merge(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "merge")
	defer span.End()

	sessionID := ""
	lc := newLifecycle(o.logger, func(t Transition) {
		if o.cfg.OnTransition != nil {
			o.cfg.OnTransition(sessionID, t)
		}
	})
	defer func() {
		result := resultLabel(err)
		metrics.ObserveMerge(result, time.Since(start))
		if err != nil {
			failedAt := lc.State()
			lc.fail()
			telemetry.RecordError(span, err)
			o.logFailure(ctx, failedAt, err)
			return
		}
		lc.mustAdvance(StateDone)
	}()

	if err := o.validate(req); err != nil {
		return Result{}, err
	}
	lc.mustAdvance(StateValidated)

	session, err := o.ws.Create()
	if err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	sessionID = session.ID
	ctx = xglog.ContextWithSessionID(ctx, session.ID)
	lc.logger = xglog.WithContext(ctx, o.logger)
	defer func() {
		if cerr := session.Cleanup(); cerr != nil {
			lc.logger.Warn().Err(cerr).
				Str(xglog.FieldEvent, "workspace.cleanup_failed").
				Str(xglog.FieldPath, session.Dir).
				Msg("failed to remove session scratch directory")
		}
	}()

	videos := 0
	for _, it := range req.Items {
		if k, _ := it.Kind(); k == media.KindVideo {
			videos++
		}
	}
	span.SetAttributes(telemetry.MergeAttributes(session.ID, len(req.Items), videos, len(req.Items)-videos)...)
	metrics.ObserveItems(len(req.Items))

	staged, err := o.stage(ctx, session, req.Videos)
	if err != nil {
		return Result{}, err
	}
	lc.mustAdvance(StateStaged)

	if err := o.probe(ctx, staged); err != nil {
		return Result{}, err
	}
	lc.mustAdvance(StateProbed)

	infos := make([]media.VideoInfo, len(staged))
	for i, v := range staged {
		infos[i] = v.Info
	}
	geom, ok := media.ResolveGeometry(infos)
	if !ok {
		return Result{}, &media.ValidationError{Reason: media.ReasonNoVideo}
	}

	seq, err := o.buildSequence(ctx, req.Items, staged, geom, session)
	if err != nil {
		return Result{}, err
	}

	plan, err := filtergraph.Compile(seq, geom, session.OutputPath(), o.cfg.Filter)
	if err != nil {
		return Result{}, fmt.Errorf("compile filter graph: %w", err)
	}
	span.SetAttributes(telemetry.SequenceAttributes(geom, seq)...)
	lc.mustAdvance(StatePlanned)

	lc.mustAdvance(StateEncoding)
	if err := o.encode(ctx, plan); err != nil {
		return Result{}, err
	}

	lc.logger.Info().
		Str(xglog.FieldEvent, "merge.done").
		Str(xglog.FieldResolution, geom.String()).
		Int(xglog.FieldItems, len(seq)).
		Float64(xglog.FieldDuration, seq.TotalDuration()).
		Str(xglog.FieldOutputPath, session.OutputPath()).
		Dur("elapsed", time.Since(start)).
		Msg("merge finished")

	return Result{
		SessionID:  session.ID,
		OutputPath: session.OutputPath(),
		Geometry:   geom,
		Duration:   seq.TotalDuration(),
		Items:      len(seq),
	}, nil
}

func (o *Orchestrator) validate(req Request) error {
	names := make([]string, len(req.Videos))
	for i, v := range req.Videos {
		names[i] = v.Filename
	}
	if err := media.ValidateRequest(req.Items, names, o.cfg.AllowedExtensions); err != nil {
		var ve *media.ValidationError
		if errors.As(err, &ve) {
			metrics.IncValidationReject(ve.Reason)
		}
		return err
	}
	return nil
}

func (o *Orchestrator) stage(ctx context.Context, session *workspace.Session, uploads []Upload) ([]StagedVideo, error) {
	ctx, span := o.tracer.Start(ctx, "merge.stage")
	defer span.End()
	defer observeStage("stage", time.Now())

	staged := make([]StagedVideo, 0, len(uploads))
	for i, up := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ext, _ := o.cfg.AllowedExtensions.Extension(up.Filename)
		path, err := stageOne(session, i, ext, up)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("stage %s: %w", up.Filename, err)
		}
		staged = append(staged, StagedVideo{Path: path})
	}
	return staged, nil
}

func stageOne(session *workspace.Session, i int, ext string, up Upload) (string, error) {
	if up.Open == nil {
		return "", errors.New("upload has no content")
	}
	rc, err := up.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()
	path, _, err := session.StageVideo(i, ext, rc)
	return path, err
}

func (o *Orchestrator) probe(ctx context.Context, staged []StagedVideo) error {
	ctx, span := o.tracer.Start(ctx, "merge.probe")
	defer span.End()
	defer observeStage("probe", time.Now())

	logger := xglog.WithContext(ctx, o.logger)
	for i := range staged {
		info, err := o.prober.Probe(ctx, staged[i].Path)
		if err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		staged[i].Info = info
		span.AddEvent("probed", trace.WithAttributes(telemetry.ClipAttributes(i, media.KindVideo, info)...))
		logger.Debug().
			Str(xglog.FieldEvent, "probe.done").
			Int(xglog.FieldIndex, i).
			Str(xglog.FieldResolution, info.Resolution()).
			Float64(xglog.FieldDuration, info.Duration).
			Bool(xglog.FieldHasAudio, info.HasAudio).
			Msg("video probed")
	}
	return nil
}

func (o *Orchestrator) buildSequence(ctx context.Context, items []media.Descriptor, staged []StagedVideo, geom media.Geometry, session *workspace.Session) (media.FinalSequence, error) {
	ctx, span := o.tracer.Start(ctx, "merge.textcards")
	defer span.End()
	defer observeStage("textcard", time.Now())

	seq, err := BuildSequence(ctx, items, staged, geom, CardPlan{
		Renderer:        o.renderer,
		Path:            session.CardPath,
		DefaultDuration: o.cfg.CardDuration,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return seq, nil
}

func (o *Orchestrator) encode(ctx context.Context, plan filtergraph.Plan) error {
	ctx, span := o.tracer.Start(ctx, "merge.encode")
	defer span.End()
	defer observeStage("encode", time.Now())

	encCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	args := append(ffmpeg.GlobalArgs(), plan.Args()...)
	_, err := o.encoder.Run(encCtx, args...)
	if err == nil {
		return nil
	}

	var (
		exitErr *ffmpeg.ExitError
		merr    *media.MergeError
	)
	switch {
	case errors.Is(err, ffmpeg.ErrTimeout):
		merr = &media.MergeError{Timeout: true, Reason: fmt.Sprintf("encoder exceeded %s", o.cfg.Timeout), Err: err}
	case errors.As(err, &exitErr):
		logger := xglog.WithContext(ctx, o.logger)
		logger.Error().
			Str(xglog.FieldEvent, "ffmpeg.exit").
			Strs("args", args).
			Str(xglog.FieldStderr, media.Tail(exitErr.Stderr, logStderrBytes)).
			Msg("ffmpeg merge failed")
		merr = &media.MergeError{Reason: "ffmpeg exited", Stderr: media.Tail(exitErr.Stderr, clientStderrBytes), Err: err}
	default:
		merr = &media.MergeError{Reason: "encoder did not finish", Err: err}
	}
	telemetry.RecordError(span, merr)
	return merr
}

func (o *Orchestrator) logFailure(ctx context.Context, failedAt State, err error) {
	logger := xglog.WithContext(ctx, o.logger)
	ev := logger.Warn()
	if media.HTTPStatus(err) >= 500 {
		ev = logger.Error()
	}
	ev.Err(err).
		Str(xglog.FieldEvent, "merge.failed").
		Str(xglog.FieldState, string(failedAt)).
		Str("code", media.Code(err)).
		Msg("merge failed")
}

func observeStage(stage string, start time.Time) {
	metrics.ObserveStage(stage, time.Since(start))
}

// resultLabel maps an outcome onto the merges_total result label.
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	var (
		ve *media.ValidationError
		pe *media.ProbeError
		re *media.RenderError
		me *media.MergeError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &pe):
		return "probe"
	case errors.As(err, &re):
		return "render"
	case errors.As(err, &me):
		if me.Timeout {
			return "timeout"
		}
		return "merge"
	default:
		return "internal"
	}
}
