// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"context"
	"fmt"

	"github.com/ManuGH/vmerge/internal/domain/media"
)

// StagedVideo is an uploaded file on disk with its probed metadata.
type StagedVideo struct {
	Path string
	Info media.VideoInfo
}

// CardPlan tells BuildSequence how to produce text cards.
type CardPlan struct {
	Renderer        media.CardRenderer
	Path            func(i int) string
	DefaultDuration float64
}

// BuildSequence interleaves staged videos and text cards in request order.
// Videos are consumed in upload order; every text descriptor is rendered at
// geom to cards.Path(i), i being the descriptor position.
func BuildSequence(
	ctx context.Context,
	items []media.Descriptor,
	videos []StagedVideo,
	geom media.Geometry,
	cards CardPlan,
) (media.FinalSequence, error) {
	if cards.DefaultDuration <= 0 {
		cards.DefaultDuration = media.DefaultCardDuration
	}
	seq := make(media.FinalSequence, 0, len(items))
	next := 0
	for i, it := range items {
		kind, ok := it.Kind()
		if !ok {
			return nil, &media.ValidationError{Reason: media.ReasonUnknownItemType, Detail: fmt.Sprintf("item %d has type %q", i, it.Type)}
		}
		switch kind {
		case media.KindVideo:
			if next >= len(videos) {
				return nil, &media.ValidationError{Reason: media.ReasonCountMismatch}
			}
			v := videos[next]
			next++
			seq = append(seq, media.SequenceItem{Kind: media.KindVideo, Path: v.Path, Info: v.Info})

		case media.KindTextCard:
			dur := it.CardDurationOr(cards.DefaultDuration)
			path := cards.Path(i)
			if err := cards.Renderer.Render(ctx, it.Text, dur, geom, path); err != nil {
				return nil, err
			}
			seq = append(seq, media.SequenceItem{
				Kind: media.KindTextCard,
				Path: path,
				Info: media.VideoInfo{Width: geom.Width, Height: geom.Height, Duration: dur},
			})
		}
	}
	if next != len(videos) {
		return nil, &media.ValidationError{Reason: media.ReasonCountMismatch}
	}
	return seq, nil
}
