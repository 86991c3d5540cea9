// Package composition models a mutable, non-destructive video timeline.
//
// A Composition holds tracks; each track is an ordered, gap-free list of
// edits covering [0, track end). An edit either references a range of a
// source file or is empty (renders black). Nothing here touches media data.
package composition

import (
	"errors"
	"fmt"
	"sort"

	"compositor/mediatime"
	"compositor/models"
)

var (
	// ErrOutOfRange is returned when a source range is not inside the
	// source asset.
	ErrOutOfRange = errors.New("source range out of range")

	// ErrInvalidRange is returned for ranges with invalid timescales,
	// negative starts or non-positive durations.
	ErrInvalidRange = errors.New("invalid time range")

	// ErrTrackNotFound is returned by RemoveTrack for an unknown id.
	ErrTrackNotFound = errors.New("track not found")
)

// Edit maps a stretch of a track's timeline to a source range, or to
// nothing when Empty is set.
type Edit struct {
	Target mediatime.Range
	Source mediatime.Range
	Empty  bool

	SourcePath    string
	SourceTrackID int
}

func (e Edit) String() string {
	if e.Empty {
		return fmt.Sprintf("empty | target %s", e.Target)
	}
	return fmt.Sprintf("source %s | target %s", e.Source, e.Target)
}

// split cuts e at target time t, which must lie strictly inside e.Target.
func (e Edit) split(t mediatime.Time) (Edit, Edit) {
	head := t.Sub(e.Target.Start)
	tail := e.Target.Duration.Sub(head)

	first, second := e, e
	first.Target = mediatime.NewRange(e.Target.Start, head)
	second.Target = mediatime.NewRange(t, tail)
	if !e.Empty {
		first.Source = mediatime.NewRange(e.Source.Start, head)
		second.Source = mediatime.NewRange(e.Source.Start.Add(head), tail)
	}
	return first, second
}

// Track is one composition track.
type Track struct {
	ID            int
	MediaType     models.MediaType
	Codec         string
	Width         int
	Height        int
	FrameDuration mediatime.Time

	sourcePath    string
	sourceTrackID int
	edits         []Edit
}

// Edits returns a copy of the track's edits in timeline order.
func (t *Track) Edits() []Edit {
	out := make([]Edit, len(t.edits))
	copy(out, t.edits)
	return out
}

// Duration returns the end of the last edit.
func (t *Track) Duration() mediatime.Time {
	if len(t.edits) == 0 {
		return mediatime.Zero
	}
	return t.edits[len(t.edits)-1].Target.End()
}

// MediaEdits returns only the non-empty edits.
func (t *Track) MediaEdits() []Edit {
	var out []Edit
	for _, e := range t.edits {
		if !e.Empty {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks that edits tile [0, Duration) without holes or overlaps.
func (t *Track) Validate() error {
	cursor := mediatime.Zero
	for i, e := range t.edits {
		if !e.Target.Start.Equal(cursor) {
			return fmt.Errorf("track %d edit %d starts at %s; expected %s", t.ID, i, e.Target.Start, cursor)
		}
		if e.Target.Duration.Sign() <= 0 {
			return fmt.Errorf("track %d edit %d has non-positive duration", t.ID, i)
		}
		if !e.Empty && !e.Source.Duration.Equal(e.Target.Duration) {
			return fmt.Errorf("track %d edit %d source and target durations differ", t.ID, i)
		}
		cursor = e.Target.End()
	}
	return nil
}

func (t *Track) insert(e Edit) {
	at := e.Target.Start
	end := t.Duration()

	if at.After(end) {
		t.edits = append(t.edits, Edit{
			Target: mediatime.RangeFromEnds(end, at),
			Empty:  true,
		})
	}
	if !at.Before(end) {
		t.edits = append(t.edits, e)
		return
	}

	// Insertion inside the track: split the edit under at, then shift
	// everything from at onwards right by the inserted duration.
	idx := sort.Search(len(t.edits), func(i int) bool {
		return t.edits[i].Target.End().After(at)
	})
	if t.edits[idx].Target.Start.Before(at) {
		first, second := t.edits[idx].split(at)
		t.edits = append(t.edits[:idx], append([]Edit{first, second}, t.edits[idx+1:]...)...)
		idx++
	}

	shift := e.Target.Duration
	for i := idx; i < len(t.edits); i++ {
		t.edits[i].Target = t.edits[i].Target.Shift(shift)
	}
	t.edits = append(t.edits[:idx], append([]Edit{e}, t.edits[idx:]...)...)
}

// Composition is a mutable set of tracks.
type Composition struct {
	tracks []*Track
	nextID int
}

// New returns an empty composition.
func New() *Composition {
	return &Composition{nextID: 1}
}

// InsertTimeRange copies src of every track in asset into the composition
// at time at.
//
// The first insertion from an asset track creates a matching composition
// track. Inserting past a track's end leaves an empty edit in between;
// inserting inside a track pushes the later edits right.
func (c *Composition) InsertTimeRange(src mediatime.Range, asset *models.SourceAsset, at mediatime.Time) error {
	if asset == nil {
		return fmt.Errorf("source asset cannot be nil")
	}
	if !src.IsValid() || src.Duration.Sign() <= 0 || src.Start.Sign() < 0 {
		return fmt.Errorf("%w: source %s", ErrInvalidRange, src)
	}
	if !at.IsValid() || at.Sign() < 0 {
		return fmt.Errorf("%w: insertion time %s", ErrInvalidRange, at)
	}
	if !asset.Duration.IsValid() || !asset.TimeRange().ContainsRange(src) {
		return fmt.Errorf("%w: %s not inside %s (%s)", ErrOutOfRange, src, asset.TimeRange(), asset.Name)
	}
	if len(asset.Tracks) == 0 {
		return fmt.Errorf("source asset %s has no tracks", asset.Name)
	}

	for _, st := range asset.Tracks {
		track := c.trackFor(asset.Path, st)
		track.insert(Edit{
			Target:        mediatime.NewRange(at, src.Duration),
			Source:        src,
			SourcePath:    asset.Path,
			SourceTrackID: st.ID,
		})
	}
	return nil
}

func (c *Composition) trackFor(path string, src models.AssetTrack) *Track {
	for _, t := range c.tracks {
		if t.sourcePath == path && t.sourceTrackID == src.ID {
			return t
		}
	}
	t := &Track{
		ID:            c.nextID,
		MediaType:     src.MediaType,
		Codec:         src.Codec,
		Width:         src.Width,
		Height:        src.Height,
		FrameDuration: src.FrameDuration,
		sourcePath:    path,
		sourceTrackID: src.ID,
	}
	c.nextID++
	c.tracks = append(c.tracks, t)
	return t
}

// RemoveTrack removes the track with the given id.
func (c *Composition) RemoveTrack(id int) error {
	for i, t := range c.tracks {
		if t.ID == id {
			c.tracks = append(c.tracks[:i], c.tracks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrTrackNotFound, id)
}

// RemoveNonVideoTracks drops every track that is not video and returns how
// many were removed.
func (c *Composition) RemoveNonVideoTracks() int {
	kept := c.tracks[:0]
	removed := 0
	for _, t := range c.tracks {
		if t.MediaType == models.MediaTypeVideo {
			kept = append(kept, t)
			continue
		}
		removed++
	}
	for i := len(kept); i < len(c.tracks); i++ {
		c.tracks[i] = nil
	}
	c.tracks = kept
	return removed
}

// Tracks returns the composition's tracks in creation order.
func (c *Composition) Tracks() []*Track {
	out := make([]*Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

// VideoTrack returns the first video track, or nil.
func (c *Composition) VideoTrack() *Track {
	for _, t := range c.tracks {
		if t.MediaType == models.MediaTypeVideo {
			return t
		}
	}
	return nil
}

// Duration returns the end of the longest track.
func (c *Composition) Duration() mediatime.Time {
	d := mediatime.Zero
	for _, t := range c.tracks {
		d = mediatime.Max(d, t.Duration())
	}
	return d
}

// AssetTracks describes the remaining tracks as models.AssetTrack values.
func (c *Composition) AssetTracks() []models.AssetTrack {
	out := make([]models.AssetTrack, 0, len(c.tracks))
	for _, t := range c.tracks {
		out = append(out, models.AssetTrack{
			ID:            t.ID,
			MediaType:     t.MediaType,
			Codec:         t.Codec,
			Width:         t.Width,
			Height:        t.Height,
			FrameDuration: t.FrameDuration,
		})
	}
	return out
}
