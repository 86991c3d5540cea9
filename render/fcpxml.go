package render

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"compositor/composition"
	"compositor/mediatime"
	"compositor/models"
)

// FCPXMLVersion is the document version written by FCPXMLRenderer.
const FCPXMLVersion = "1.11"

// FCPXML is the root of an FCPXML document.
type FCPXML struct {
	XMLName   xml.Name  `xml:"fcpxml"`
	Version   string    `xml:"version,attr"`
	Resources Resources `xml:"resources"`
	Library   Library   `xml:"library"`
}

// Resources holds formats and assets referenced from the timeline.
type Resources struct {
	Formats []Format `xml:"format"`
	Assets  []Asset  `xml:"asset,omitempty"`
}

type Format struct {
	ID            string `xml:"id,attr"`
	FrameDuration string `xml:"frameDuration,attr,omitempty"`
	Width         string `xml:"width,attr,omitempty"`
	Height        string `xml:"height,attr,omitempty"`
}

type Asset struct {
	ID           string   `xml:"id,attr"`
	Name         string   `xml:"name,attr"`
	UID          string   `xml:"uid,attr"`
	Start        string   `xml:"start,attr"`
	Duration     string   `xml:"duration,attr"`
	HasVideo     string   `xml:"hasVideo,attr"`
	Format       string   `xml:"format,attr"`
	VideoSources string   `xml:"videoSources,attr,omitempty"`
	MediaRep     MediaRep `xml:"media-rep"`
}

type MediaRep struct {
	Kind string `xml:"kind,attr"`
	Src  string `xml:"src,attr"`
}

type Library struct {
	Events []Event `xml:"event"`
}

type Event struct {
	Name     string    `xml:"name,attr"`
	Projects []Project `xml:"project"`
}

type Project struct {
	Name      string     `xml:"name,attr"`
	Sequences []Sequence `xml:"sequence"`
}

type Sequence struct {
	Format   string `xml:"format,attr"`
	Duration string `xml:"duration,attr"`
	TCStart  string `xml:"tcStart,attr"`
	TCFormat string `xml:"tcFormat,attr"`
	Spine    Spine  `xml:"spine"`
}

// Spine holds the primary storyline.
type Spine struct {
	AssetClips []AssetClip `xml:"asset-clip,omitempty"`
	Gaps       []Gap       `xml:"gap,omitempty"`
}

// AssetClip places a source range at an offset. SrcEnable "video" keeps
// any source audio out of the timeline.
type AssetClip struct {
	XMLName   xml.Name `xml:"asset-clip"`
	Ref       string   `xml:"ref,attr"`
	Offset    string   `xml:"offset,attr"`
	Name      string   `xml:"name,attr"`
	Start     string   `xml:"start,attr,omitempty"`
	Duration  string   `xml:"duration,attr"`
	Format    string   `xml:"format,attr,omitempty"`
	TCFormat  string   `xml:"tcFormat,attr,omitempty"`
	SrcEnable string   `xml:"srcEnable,attr,omitempty"`
}

type Gap struct {
	XMLName  xml.Name `xml:"gap"`
	Name     string   `xml:"name,attr"`
	Offset   string   `xml:"offset,attr"`
	Duration string   `xml:"duration,attr"`
}

// MarshalXML writes clips and gaps in timeline order.
func (s Spine) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	type element struct {
		offset mediatime.Time
		value  interface{}
	}
	var elements []element

	for _, clip := range s.AssetClips {
		elements = append(elements, element{offset: parseOffset(clip.Offset), value: clip})
	}
	for _, gap := range s.Gaps {
		elements = append(elements, element{offset: parseOffset(gap.Offset), value: gap})
	}

	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].offset.Before(elements[j].offset)
	})

	for _, el := range elements {
		if err := e.Encode(el.value); err != nil {
			return err
		}
	}

	return e.EncodeToken(xml.EndElement{Name: start.Name})
}

func parseOffset(s string) mediatime.Time {
	t, err := mediatime.Parse(s)
	if err != nil {
		return mediatime.Zero
	}
	return t
}

// FCPXMLOptions configures an FCPXMLRenderer.
type FCPXMLOptions struct {
	ProjectName string
	BuildID     string
}

// FCPXMLRenderer writes the video track as an FCPXML timeline instead of
// encoding it. Empty edits become gaps.
type FCPXMLRenderer struct {
	opts FCPXMLOptions
}

// NewFCPXMLRenderer creates an FCPXMLRenderer.
func NewFCPXMLRenderer(opts FCPXMLOptions) *FCPXMLRenderer {
	if opts.ProjectName == "" {
		opts.ProjectName = "compositor"
	}
	return &FCPXMLRenderer{opts: opts}
}

// Kind returns KindFCPXML.
func (r *FCPXMLRenderer) Kind() Kind {
	return KindFCPXML
}

// Document builds the FCPXML document for comp.
func (r *FCPXMLRenderer) Document(comp *composition.Composition) (*FCPXML, error) {
	track, err := videoTrack(comp)
	if err != nil {
		return nil, err
	}

	format := Format{ID: "r1"}
	if track.FrameDuration.IsValid() && track.FrameDuration.Sign() > 0 {
		format.FrameDuration = track.FrameDuration.FCPString()
	}
	if track.Width > 0 && track.Height > 0 {
		format.Width = fmt.Sprintf("%d", track.Width)
		format.Height = fmt.Sprintf("%d", track.Height)
	}

	doc := &FCPXML{
		Version:   FCPXMLVersion,
		Resources: Resources{Formats: []Format{format}},
	}

	assetIDs := make(map[string]string)
	assetEnds := make(map[string]mediatime.Time)
	var spine Spine

	for _, e := range track.Edits() {
		if e.Empty {
			spine.Gaps = append(spine.Gaps, Gap{
				Name:     "Gap",
				Offset:   e.Target.Start.FCPString(),
				Duration: e.Target.Duration.FCPString(),
			})
			continue
		}

		id, ok := assetIDs[e.SourcePath]
		if !ok {
			// Resource IDs continue after the formats.
			id = fmt.Sprintf("r%d", len(doc.Resources.Formats)+len(assetIDs)+1)
			assetIDs[e.SourcePath] = id
		}
		if end, seen := assetEnds[e.SourcePath]; seen {
			assetEnds[e.SourcePath] = mediatime.Max(end, e.Source.End())
		} else {
			assetEnds[e.SourcePath] = e.Source.End()
		}

		spine.AssetClips = append(spine.AssetClips, AssetClip{
			Ref:       id,
			Offset:    e.Target.Start.FCPString(),
			Name:      clipName(e.SourcePath),
			Start:     e.Source.Start.FCPString(),
			Duration:  e.Target.Duration.FCPString(),
			Format:    format.ID,
			TCFormat:  "NDF",
			SrcEnable: "video",
		})
	}

	paths := make([]string, 0, len(assetIDs))
	for p := range assetIDs {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return assetIDs[paths[i]] < assetIDs[paths[j]] })

	for _, p := range paths {
		src, err := fileURL(p)
		if err != nil {
			return nil, err
		}
		doc.Resources.Assets = append(doc.Resources.Assets, Asset{
			ID:           assetIDs[p],
			Name:         clipName(p),
			UID:          assetUID(p),
			Start:        "0s",
			Duration:     assetEnds[p].FCPString(),
			HasVideo:     "1",
			Format:       format.ID,
			VideoSources: "1",
			MediaRep:     MediaRep{Kind: "original-media", Src: src},
		})
	}

	doc.Library = Library{Events: []Event{{
		Name: r.opts.ProjectName,
		Projects: []Project{{
			Name: r.opts.ProjectName,
			Sequences: []Sequence{{
				Format:   format.ID,
				Duration: comp.Duration().FCPString(),
				TCStart:  "0s",
				TCFormat: "NDF",
				Spine:    spine,
			}},
		}},
	}}}

	return doc, nil
}

// Marshal renders comp as an indented FCPXML document with header.
func (r *FCPXMLRenderer) Marshal(comp *composition.Composition) ([]byte, error) {
	doc, err := r.Document(comp)
	if err != nil {
		return nil, err
	}
	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal fcpxml")
	}
	return []byte(xml.Header + "<!DOCTYPE fcpxml>\n" + string(out) + "\n"), nil
}

// Render writes comp to output as FCPXML.
func (r *FCPXMLRenderer) Render(ctx context.Context, comp *composition.Composition, output string) (*models.ComposedAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := r.Marshal(comp)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", output)
	}

	asset := &models.ComposedAsset{
		BuildID:   r.opts.BuildID,
		Path:      output,
		Renderer:  string(KindFCPXML),
		Duration:  comp.Duration(),
		Tracks:    comp.AssetTracks(),
		Segments:  len(comp.VideoTrack().MediaEdits()),
		CreatedAt: time.Now(),
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}

func clipName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// assetUID derives a stable UID from the file path.
func assetUID(path string) string {
	return strings.ToUpper(uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String())
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", path)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
