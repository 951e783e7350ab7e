package patch

import (
	"encoding/json"
	"io"
	"time"
)

// Kind distinguishes full definitions from reusable prefabs.
type Kind string

const (
	KindDefinition Kind = "DEFINITION"
	KindPrefab     Kind = "PREFAB"
)

// Tag returns the tag always attached to a patch of this kind.
func (k Kind) Tag() string {
	switch k {
	case KindPrefab:
		return "prefab"
	default:
		return "patch"
	}
}

// Status is the moderation state of a patch.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
)

// Role is the purpose a submitted file plays inside a patch.
type Role string

const (
	RoleImage             Role = "image"
	RoleAudio             Role = "audio"
	RolePrimaryDefinition Role = "primaryDefinition"
	RolePrimaryPrefab     Role = "primaryPrefab"
)

// IsPrimary reports whether the role identifies the patch kind.
func (r Role) IsPrimary() bool {
	return r == RolePrimaryDefinition || r == RolePrimaryPrefab
}

// Rendition file names inside a staging directory.
const (
	ThumbnailFileName = "thumb.jpg"
	CoverFileName     = "cover.jpg"
)

// Patch is the persisted representation of one accepted submission.
type Patch struct {
	UUID           string    `json:"uuid"`
	Kind           Kind      `json:"kind"`
	PrimaryFile    string    `json:"primary_file"`
	AudioFiles     []string  `json:"audio_files"`
	Images         []string  `json:"images,omitempty"`
	ThumbnailImage string    `json:"thumbnail_image,omitempty"`
	CoverImage     string    `json:"cover_image,omitempty"`
	Manifest       Manifest  `json:"manifest"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	Mail           string    `json:"-"`
	AppVersion     string    `json:"app_version"`
	Tags           []string  `json:"tags"`
	Summary        string    `json:"summary"`
	Description    string    `json:"description,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StagedFiles lists every file name written for the patch, renditions
// included, without duplicates.
func (p *Patch) StagedFiles() []string {
	candidates := []string{p.PrimaryFile}
	candidates = append(candidates, p.AudioFiles...)
	candidates = append(candidates, p.Images...)
	candidates = append(candidates, p.ThumbnailImage, p.CoverImage)

	seen := make(map[string]struct{}, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// HasFile reports whether name is one of the patch's staged files.
func (p *Patch) HasFile(name string) bool {
	for _, staged := range p.StagedFiles() {
		if staged == name {
			return true
		}
	}
	return false
}

// Metadata is the user supplied description of a submission.
type Metadata struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Mail        string   `json:"mail"`
	AppVersion  string   `json:"app_version"`
	Tags        []string `json:"tags"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
}

// IncomingFile is one file of a submission as received from the transport.
type IncomingFile struct {
	Name     string
	MimeType string
	Open     func() (io.ReadCloser, error)
}

// ClassifiedFile is a staged file with its role.
type ClassifiedFile struct {
	Role         Role
	OriginalName string
	StoredPath   string
}

// Module is one node of a patch as reported by the analyzer.
type Module struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Script   string          `json:"script,omitempty"`
	Comment  string          `json:"comment,omitempty"`
	Position json.RawMessage `json:"position,omitempty"`
	Target   json.RawMessage `json:"target,omitempty"`
}

// Manifest is the structured content extracted from a primary file. Raw keeps
// the analyzer payload untouched; Rev and Modules are decoded from it.
type Manifest struct {
	Rev     json.RawMessage `json:"rev,omitempty"`
	Modules []Module        `json:"modules,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// MarshalJSON emits the analyzer payload as-is when it is known.
func (m Manifest) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	type plain Manifest
	return json.Marshal(plain(m))
}

// ParseManifest decodes an analyzer payload. Any JSON value is accepted; the
// modules list is populated when the payload is an object carrying one.
func ParseManifest(raw []byte) (Manifest, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return Manifest{}, err
	}
	manifest := Manifest{Raw: append(json.RawMessage(nil), raw...)}
	if _, ok := value.(map[string]any); ok {
		var decoded struct {
			Rev     json.RawMessage `json:"rev"`
			Modules []Module        `json:"modules"`
		}
		if err := json.Unmarshal(raw, &decoded); err == nil {
			manifest.Rev = decoded.Rev
			manifest.Modules = decoded.Modules
		}
	}
	return manifest, nil
}

// Renditions holds the encoded outputs of an AssetDeriver. A nil slice means
// the rendition could not be produced.
type Renditions struct {
	Thumbnail []byte
	Cover     []byte
}
