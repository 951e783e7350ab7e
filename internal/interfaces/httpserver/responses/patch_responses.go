package responses

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
)

type SubmitResponse struct {
	UUID string `json:"uuid"`
}

type ModerationResponse struct {
	UUID     string `json:"uuid"`
	Approved bool   `json:"approved"`
}

// PatchResponse is the public view of a patch. The submitter mail is never
// exposed.
type PatchResponse struct {
	UUID        string          `json:"uuid"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	AppVersion  string          `json:"app_version"`
	Tags        []string        `json:"tags"`
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	PrimaryFile string          `json:"primary_file"`
	AudioFiles  []string        `json:"audio_files"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Cover       string          `json:"cover,omitempty"`
	Files       FileLinks       `json:"files"`
	Manifest    json.RawMessage `json:"manifest,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FileLinks maps staged file names to their download path.
type FileLinks map[string]string

func NewPatchResponse(p *patch.Patch) PatchResponse {
	links := make(FileLinks)
	for _, name := range p.StagedFiles() {
		links[name] = FilePath(p.UUID, name)
	}

	var manifest json.RawMessage
	if raw, err := json.Marshal(p.Manifest); err == nil && string(raw) != "null" {
		manifest = raw
	}

	audio := p.AudioFiles
	if audio == nil {
		audio = []string{}
	}

	return PatchResponse{
		UUID:        p.UUID,
		Kind:        string(p.Kind),
		Status:      string(p.Status),
		Title:       p.Title,
		Author:      p.Author,
		AppVersion:  p.AppVersion,
		Tags:        p.Tags,
		Summary:     p.Summary,
		Description: p.Description,
		PrimaryFile: p.PrimaryFile,
		AudioFiles:  audio,
		Thumbnail:   p.ThumbnailImage,
		Cover:       p.CoverImage,
		Files:       links,
		Manifest:    manifest,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// FilePath returns the URL path serving a staged file.
func FilePath(patchID, name string) string {
	return "/files/" + url.PathEscape(patchID) + "/" + url.PathEscape(name)
}
