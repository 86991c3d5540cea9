package models

import (
	"fmt"
	"strings"
	"time"

	"compositor/mediatime"
)

// MediaType is the kind of media carried by a track.
type MediaType string

const (
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeSubtitle MediaType = "subtitle"
	MediaTypeData     MediaType = "data"
)

// AssetTrack describes one track of a source or composed asset.
type AssetTrack struct {
	ID        int       `json:"id"`
	MediaType MediaType `json:"media_type"`
	Codec     string    `json:"codec,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`

	// FrameDuration is the nominal duration of one frame; zero when unknown
	// or not applicable.
	FrameDuration mediatime.Time `json:"frame_duration"`
}

// SourceAsset is a read-only handle on a media file that segments are
// copied from.
type SourceAsset struct {
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Duration mediatime.Time `json:"duration"`
	Tracks   []AssetTrack   `json:"tracks"`
}

// Validate checks that the asset can be used as an insertion source.
func (a *SourceAsset) Validate() error {
	if strings.TrimSpace(a.Path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !a.Duration.IsValid() || a.Duration.Sign() <= 0 {
		return fmt.Errorf("duration must be greater than 0")
	}
	if len(a.Tracks) == 0 {
		return fmt.Errorf("asset has no tracks")
	}
	return nil
}

// TimeRange returns [0, Duration).
func (a *SourceAsset) TimeRange() mediatime.Range {
	return mediatime.NewRange(mediatime.Zero, a.Duration)
}

// VideoTracks returns the asset's video tracks.
func (a *SourceAsset) VideoTracks() []AssetTrack {
	var tracks []AssetTrack
	for _, t := range a.Tracks {
		if t.MediaType == MediaTypeVideo {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// ComposedAsset is the playable result of one successful generation.
//
// Ownership passes to the caller of the build; nothing else holds on to it.
type ComposedAsset struct {
	BuildID   string         `json:"build_id"`
	Path      string         `json:"path"`
	Renderer  string         `json:"renderer"`
	Duration  mediatime.Time `json:"duration"`
	Tracks    []AssetTrack   `json:"tracks"`
	Segments  int            `json:"segments"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks that the composed asset is usable by a presenter.
func (c *ComposedAsset) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if c.Segments <= 0 {
		return fmt.Errorf("composed asset must contain at least one segment")
	}
	for _, t := range c.Tracks {
		if t.MediaType != MediaTypeVideo {
			return fmt.Errorf("track %d has media type %q; only video is allowed", t.ID, t.MediaType)
		}
	}
	return nil
}
