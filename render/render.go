// Package render turns a composition into a playable asset.
package render

import (
	"context"
	"fmt"

	"compositor/composition"
	"compositor/mediatime"
	"compositor/models"
)

// Kind names a renderer.
type Kind string

const (
	KindFFmpeg Kind = "ffmpeg" // Encoded video file
	KindFCPXML Kind = "fcpxml" // Editor timeline document
)

// Renderer produces a composed asset at output from comp.
type Renderer interface {
	Render(ctx context.Context, comp *composition.Composition, output string) (*models.ComposedAsset, error)
	Kind() Kind
}

// Part is one contiguous piece of the rendered video: a source range plus
// the black padding that stands in for neighbouring empty edits.
type Part struct {
	Index      int
	SourcePath string
	Source     mediatime.Range
	PadBefore  mediatime.Time
	PadAfter   mediatime.Time
}

// Duration returns the rendered length of the part.
func (p Part) Duration() mediatime.Time {
	return p.PadBefore.Add(p.Source.Duration).Add(p.PadAfter)
}

// PlanParts derives the render parts of a track, one per media edit.
// Empty edits are attached as padding: leading ones before the first part,
// every other one after the part that precedes it.
func PlanParts(track *composition.Track) ([]Part, error) {
	if track == nil {
		return nil, fmt.Errorf("track cannot be nil")
	}

	var parts []Part
	leading := mediatime.Zero

	for _, e := range track.Edits() {
		if e.Empty {
			if len(parts) == 0 {
				leading = leading.Add(e.Target.Duration)
			} else {
				last := &parts[len(parts)-1]
				last.PadAfter = last.PadAfter.Add(e.Target.Duration)
			}
			continue
		}

		parts = append(parts, Part{
			Index:      len(parts),
			SourcePath: e.SourcePath,
			Source:     e.Source,
			PadBefore:  mediatime.Zero,
			PadAfter:   mediatime.Zero,
		})
		if len(parts) == 1 {
			parts[0].PadBefore = leading
		}
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("track %d has no media", track.ID)
	}
	return parts, nil
}

func videoTrack(comp *composition.Composition) (*composition.Track, error) {
	if comp == nil {
		return nil, fmt.Errorf("composition cannot be nil")
	}
	track := comp.VideoTrack()
	if track == nil {
		return nil, fmt.Errorf("composition has no video track")
	}
	return track, nil
}

// Options holds the settings of every renderer kind; New picks the one it
// needs.
type Options struct {
	FFmpeg FFmpegOptions
	FCPXML FCPXMLOptions
}

// New returns the renderer for kind.
func New(kind Kind, opts Options) (Renderer, error) {
	switch kind {
	case KindFFmpeg, "":
		return NewFFmpegRenderer(opts.FFmpeg), nil
	case KindFCPXML:
		return NewFCPXMLRenderer(opts.FCPXML), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", kind)
	}
}

// ParseKind validates a renderer name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindFFmpeg, KindFCPXML:
		return k, nil
	default:
		return "", fmt.Errorf("unknown renderer %q (want %s or %s)", s, KindFFmpeg, KindFCPXML)
	}
}
