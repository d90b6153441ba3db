// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vmerge/internal/domain/media"
	"github.com/ManuGH/vmerge/internal/infra/ffmpeg"
	"github.com/ManuGH/vmerge/internal/workspace"
)

type fakeProber struct {
	byExt map[string]media.VideoInfo
	err   error
	calls []string
}

func (f *fakeProber) Probe(_ context.Context, path string) (media.VideoInfo, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return media.VideoInfo{}, f.err
	}
	info, ok := f.byExt[filepath.Ext(path)]
	if !ok {
		return media.VideoInfo{}, &media.ProbeError{Path: path, Reason: "no video stream"}
	}
	return info, nil
}

type renderCall struct {
	Text     string
	Duration float64
	Geom     media.Geometry
	Path     string
}

type fakeRenderer struct {
	calls []renderCall
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, text string, duration float64, geom media.Geometry, outPath string) error {
	f.calls = append(f.calls, renderCall{text, duration, geom, outPath})
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("card"), 0o600)
}

type fakeEncoder struct {
	args  []string
	err   error
	block bool
}

func (f *fakeEncoder) Run(ctx context.Context, args ...string) (ffmpeg.Result, error) {
	f.args = args
	if f.block {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ffmpeg.Result{}, ffmpeg.ErrTimeout
		}
		return ffmpeg.Result{}, ctx.Err()
	}
	if f.err != nil {
		return ffmpeg.Result{}, f.err
	}
	return ffmpeg.Result{}, os.WriteFile(args[len(args)-1], []byte("merged"), 0o600)
}

type harness struct {
	orch     *Orchestrator
	ws       *workspace.Manager
	prober   *fakeProber
	renderer *fakeRenderer
	encoder  *fakeEncoder

	mu          sync.Mutex
	transitions []Transition
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	ws, err := workspace.NewUnder(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	h := &harness{
		ws: ws,
		prober: &fakeProber{byExt: map[string]media.VideoInfo{
			".mp4": {Width: 1920, Height: 1080, Duration: 5, HasAudio: true},
			".mov": {Width: 1080, Height: 1920, Duration: 4},
		}},
		renderer: &fakeRenderer{},
		encoder:  &fakeEncoder{},
	}
	cfg := DefaultConfig()
	cfg.OnTransition = func(_ string, tr Transition) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.transitions = append(h.transitions, tr)
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.orch = New(cfg, ws, h.prober, h.renderer, h.encoder, zerolog.Nop())
	return h
}

func (h *harness) states() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]State, 0, len(h.transitions)+1)
	out = append(out, StateReceived)
	for _, tr := range h.transitions {
		out = append(out, tr.To)
	}
	return out
}

func upload(name string) Upload {
	return Upload{Filename: name, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("bytes of " + name)), nil
	}}
}

func seconds(v float64) *media.Seconds {
	s := media.Seconds(v)
	return &s
}

func threeItemRequest() Request {
	return Request{
		Items: []media.Descriptor{
			{Type: media.TypeVideo},
			{Type: media.TypeText, Text: "Hello", Duration: seconds(2)},
			{Type: media.TypeVideo},
		},
		Videos: []Upload{upload("landscape.mp4"), upload("portrait.MOV")},
	}
}

func assertNoSessions(t *testing.T, ws *workspace.Manager) {
	t.Helper()
	entries, err := os.ReadDir(ws.UploadRoot())
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directories must not survive a request")
}

func TestMerge_InterleavesVideosAndCards(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.orch.Merge(context.Background(), threeItemRequest())
	require.NoError(t, err)

	assert.Equal(t, media.Geometry{Width: 1920, Height: 1920}, res.Geometry)
	assert.Equal(t, 3, res.Items)
	assert.InDelta(t, 11.0, res.Duration, 1e-9)
	assert.FileExists(t, res.OutputPath)
	assert.Equal(t, filepath.Join(h.ws.OutputRoot(), res.SessionID+".mp4"), res.OutputPath)
	assertNoSessions(t, h.ws)

	require.Len(t, h.renderer.calls, 1)
	card := h.renderer.calls[0]
	assert.Equal(t, "Hello", card.Text)
	assert.Equal(t, 2.0, card.Duration)
	assert.Equal(t, res.Geometry, card.Geom, "cards are rendered at the canonical geometry")
	assert.Equal(t, "text_001.mp4", filepath.Base(card.Path))

	require.Len(t, h.prober.calls, 2)
	assert.Equal(t, "video_000.mp4", filepath.Base(h.prober.calls[0]))
	assert.Equal(t, "video_001.mov", filepath.Base(h.prober.calls[1]))

	args := strings.Join(h.encoder.args, " ")
	assert.True(t, strings.HasPrefix(args, "-y -nostdin -hide_banner -loglevel error -i "))
	assert.Contains(t, args, "[0:v]scale=1920:1920:force_original_aspect_ratio=decrease,pad=1920:1920:(ow-iw)/2:(oh-ih)/2:black,setsar=1[v0]")
	assert.Contains(t, args, "[1:v]setsar=1[v1]")
	assert.Contains(t, args, "[0:a]aresample=44100[a0]")
	assert.Contains(t, args, "aevalsrc=0:c=stereo:s=44100:d=2.000000[a1]")
	assert.Contains(t, args, "aevalsrc=0:c=stereo:s=44100:d=4.000000[a2]")
	assert.Contains(t, args, "[v0][v1][v2]concat=n=3:v=1:a=0[outv]")
	assert.Contains(t, args, "[a0][a1][a2]concat=n=3:v=0:a=1[outa]")

	assert.Equal(t, []State{
		StateReceived, StateValidated, StateStaged, StateProbed,
		StatePlanned, StateEncoding, StateDone,
	}, h.states())
}

func TestMerge_DefaultCardDurationAndClamp(t *testing.T) {
	h := newHarness(t, nil)
	req := Request{
		Items: []media.Descriptor{
			{Type: media.TypeText, Text: "intro"},
			{Type: media.TypeVideo},
			{Type: media.TypeText, Text: "", Duration: seconds(0.1)},
		},
		Videos: []Upload{upload("a.mp4")},
	}

	_, err := h.orch.Merge(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, h.renderer.calls, 2)
	assert.Equal(t, media.DefaultCardDuration, h.renderer.calls[0].Duration)
	assert.Equal(t, media.MinCardDuration, h.renderer.calls[1].Duration)
	assert.Equal(t, "text_000.mp4", filepath.Base(h.renderer.calls[0].Path))
	assert.Equal(t, "text_002.mp4", filepath.Base(h.renderer.calls[1].Path))
}

func TestMerge_ValidationHappensBeforeStaging(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		reason string
	}{
		{
			name:   "single item",
			req:    Request{Items: []media.Descriptor{{Type: media.TypeVideo}}, Videos: []Upload{upload("a.mp4")}},
			reason: media.ReasonTooFewItems,
		},
		{
			name: "text only",
			req: Request{Items: []media.Descriptor{
				{Type: media.TypeText, Text: "a"}, {Type: media.TypeText, Text: "b"},
			}},
			reason: media.ReasonNoVideo,
		},
		{
			name: "unsupported extension",
			req: Request{
				Items:  []media.Descriptor{{Type: media.TypeVideo}, {Type: media.TypeVideo}},
				Videos: []Upload{upload("a.mp4"), upload("notes.txt")},
			},
			reason: media.ReasonUnsupportedFormat,
		},
		{
			name: "count mismatch",
			req: Request{
				Items:  []media.Descriptor{{Type: media.TypeVideo}, {Type: media.TypeVideo}},
				Videos: []Upload{upload("a.mp4")},
			},
			reason: media.ReasonCountMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			_, err := h.orch.Merge(context.Background(), tt.req)

			var ve *media.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.reason, ve.Reason)
			assert.Equal(t, 400, media.HTTPStatus(err))
			assertNoSessions(t, h.ws)
			assert.Empty(t, h.prober.calls)
			assert.Equal(t, []State{StateReceived, StateFailed}, h.states())
		})
	}
}

func TestMerge_ProbeFailureCleansUp(t *testing.T) {
	h := newHarness(t, nil)
	h.prober.err = &media.ProbeError{Path: "x", Reason: "ffprobe failed", Stderr: "moov atom not found"}

	_, err := h.orch.Merge(context.Background(), threeItemRequest())

	var pe *media.ProbeError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 400, media.HTTPStatus(err))
	assertNoSessions(t, h.ws)
	assert.Empty(t, h.renderer.calls)
	assert.Nil(t, h.encoder.args)
	assert.Equal(t, []State{StateReceived, StateValidated, StateStaged, StateFailed}, h.states())
}

func TestMerge_RenderFailureCleansUp(t *testing.T) {
	h := newHarness(t, nil)
	h.renderer.err = &media.RenderError{Reason: "ffmpeg exited", Stderr: "boom"}

	_, err := h.orch.Merge(context.Background(), threeItemRequest())

	var re *media.RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 500, media.HTTPStatus(err))
	assertNoSessions(t, h.ws)
	assert.Nil(t, h.encoder.args)
}

func TestMerge_EncoderFailureCarriesStderrTail(t *testing.T) {
	h := newHarness(t, nil)
	stderr := strings.Repeat("a", 900) + "Invalid data found when processing input"
	h.encoder.err = &ffmpeg.ExitError{Tool: "ffmpeg", Err: errors.New("exit status 1"), Stderr: stderr}

	_, err := h.orch.Merge(context.Background(), threeItemRequest())

	var me *media.MergeError
	require.ErrorAs(t, err, &me)
	assert.False(t, me.Timeout)
	assert.Len(t, me.Stderr, 500)
	assert.True(t, strings.HasSuffix(me.Stderr, "Invalid data found when processing input"))
	assert.Equal(t, 500, media.HTTPStatus(err))
	assertNoSessions(t, h.ws)
	assert.Equal(t, StateFailed, h.states()[len(h.states())-1])
}

func TestMerge_EncoderTimeout(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Timeout = 50 * time.Millisecond })
	h.encoder.block = true

	start := time.Now()
	_, err := h.orch.Merge(context.Background(), threeItemRequest())

	var me *media.MergeError
	require.ErrorAs(t, err, &me)
	assert.True(t, me.Timeout)
	assert.ErrorIs(t, err, ffmpeg.ErrTimeout)
	assert.Equal(t, 504, media.HTTPStatus(err))
	assert.Less(t, time.Since(start), 5*time.Second)
	assertNoSessions(t, h.ws)
	assert.Equal(t, []State{
		StateReceived, StateValidated, StateStaged, StateProbed,
		StatePlanned, StateEncoding, StateFailed,
	}, h.states())
}

func TestMerge_ConcurrentRequestsUseDistinctSessions(t *testing.T) {
	ws, err := workspace.NewUnder(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	const n = 4
	results := make([]Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &fakeProber{byExt: map[string]media.VideoInfo{".mp4": {Width: 640, Height: 360, Duration: 1, HasAudio: true}}}
			o := New(DefaultConfig(), ws, p, &fakeRenderer{}, &fakeEncoder{}, zerolog.Nop())
			results[i], errs[i] = o.Merge(context.Background(), Request{
				Items:  []media.Descriptor{{Type: media.TypeVideo}, {Type: media.TypeVideo}},
				Videos: []Upload{upload("a.mp4"), upload("b.mp4")},
			})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i].OutputPath])
		seen[results[i].OutputPath] = true
	}
	assertNoSessions(t, ws)
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "success", resultLabel(nil))
	assert.Equal(t, "validation", resultLabel(&media.ValidationError{}))
	assert.Equal(t, "probe", resultLabel(&media.ProbeError{}))
	assert.Equal(t, "render", resultLabel(&media.RenderError{}))
	assert.Equal(t, "merge", resultLabel(&media.MergeError{}))
	assert.Equal(t, "timeout", resultLabel(&media.MergeError{Timeout: true}))
	assert.Equal(t, "internal", resultLabel(errors.New("disk full")))
}
