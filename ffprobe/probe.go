// Package ffprobe extracts source clip metadata by running ffprobe through
// ffmpeg-go and turning its JSON into exact rational times.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"compositor/mediatime"
	"compositor/models"
)

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	RFrameRate string `json:"r_frame_rate,omitempty"`
	TimeBase   string `json:"time_base,omitempty"`
	DurationTS int64  `json:"duration_ts,omitempty"`
	Duration   string `json:"duration,omitempty"`
}

// Format represents the container format information.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// ProbeResult holds the metadata extracted from a media file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// GetDuration returns the exact duration of the clip.
//
// The first video stream's duration_ts and time_base are preferred. When
// they are missing the decimal format duration is used, which ffprobe
// prints with microsecond precision.
func (pr *ProbeResult) GetDuration() (mediatime.Time, error) {
	for _, s := range pr.Streams {
		if s.CodecType != string(models.MediaTypeVideo) || s.DurationTS <= 0 || s.TimeBase == "" {
			continue
		}
		d, err := mediatime.ParseFFprobe(strconv.FormatInt(s.DurationTS, 10), s.TimeBase)
		if err != nil {
			return mediatime.Time{}, fmt.Errorf("stream %d: %w", s.Index, err)
		}
		return d, nil
	}

	if pr.Format.Duration == "" {
		return mediatime.Time{}, fmt.Errorf("duration not available in probe output")
	}
	d, err := mediatime.Parse(pr.Format.Duration)
	if err != nil {
		return mediatime.Time{}, fmt.Errorf("failed to parse duration '%s': %w", pr.Format.Duration, err)
	}
	return d, nil
}

// GetVideoStreams returns all video streams from the media file.
func (pr *ProbeResult) GetVideoStreams() []Stream {
	var videoStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == string(models.MediaTypeVideo) {
			videoStreams = append(videoStreams, stream)
		}
	}
	return videoStreams
}

// ToSourceAsset converts the probe result into a models.SourceAsset.
func (pr *ProbeResult) ToSourceAsset(name, path string) (*models.SourceAsset, error) {
	duration, err := pr.GetDuration()
	if err != nil {
		return nil, err
	}

	asset := &models.SourceAsset{
		Name:     name,
		Path:     path,
		Duration: duration,
	}

	for _, s := range pr.Streams {
		track := models.AssetTrack{
			ID:        s.Index + 1,
			MediaType: mediaType(s.CodecType),
			Codec:     s.CodecName,
			Width:     s.Width,
			Height:    s.Height,
		}
		if fd, ok := frameDuration(s.RFrameRate); ok {
			track.FrameDuration = fd
		}
		asset.Tracks = append(asset.Tracks, track)
	}

	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}

// Probe analyzes a media file with ffprobe.
//
// Example:
//
//	result, err := ffprobe.Probe(ctx, "/path/to/clip.mov")
//	if err != nil {
//	    return err
//	}
//	duration, _ := result.GetDuration()
//	fmt.Printf("Duration: %s\n", duration)
func Probe(ctx context.Context, sourcePath string) (*ProbeResult, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output, err := ffmpeg.Probe(sourcePath)
	if err != nil {
		return nil, errors.Wrapf(err, "ffprobe failed for %s", sourcePath)
	}

	return parseProbeOutput([]byte(output))
}

// ProbeAsset probes sourcePath and returns it as a named SourceAsset.
func ProbeAsset(ctx context.Context, name, sourcePath string) (*models.SourceAsset, error) {
	result, err := Probe(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	asset, err := result.ToSourceAsset(name, sourcePath)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid source %s", sourcePath)
	}
	return asset, nil
}

func parseProbeOutput(output []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, errors.Wrap(err, "failed to parse ffprobe JSON output")
	}
	return &result, nil
}

func mediaType(codecType string) models.MediaType {
	switch codecType {
	case "video":
		return models.MediaTypeVideo
	case "audio":
		return models.MediaTypeAudio
	case "subtitle":
		return models.MediaTypeSubtitle
	}
	return models.MediaTypeData
}

// frameDuration inverts a frame rate like "30000/1001".
func frameDuration(rate string) (mediatime.Time, bool) {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		return mediatime.Time{}, false
	}
	n, err := strconv.ParseInt(num, 10, 32)
	if err != nil || n <= 0 {
		return mediatime.Time{}, false
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil || d <= 0 {
		return mediatime.Time{}, false
	}
	return mediatime.New(d, int32(n)), true
}
