package patch

import (
	"context"
	"io"
)

// Repository persists patch records. TransitionStatus and DeletePending are
// compare-and-swap operations: they report false when the record is no longer
// in the expected state.
type Repository interface {
	Save(ctx context.Context, p *Patch) error
	// FindByID returns ErrNotFound when no record exists.
	FindByID(ctx context.Context, uuid string) (*Patch, error)
	TransitionStatus(ctx context.Context, uuid string, from, to Status) (bool, error)
	DeletePending(ctx context.Context, uuid string) (bool, error)
}

// Staging holds the files of each submission in a per-patch directory.
type Staging interface {
	// Allocate creates the directory for id; an existing directory is an error.
	Allocate(ctx context.Context, id string) (string, error)
	Write(ctx context.Context, dir, name string, body io.Reader) (string, error)
	WriteBytes(ctx context.Context, dir, name string, data []byte) (string, error)
	// Cleanup removes the named files and then dir when it is empty. It never
	// fails; problems are logged.
	Cleanup(ctx context.Context, dir string, names []string)
	Dir(id string) string
}

// ManifestExtractor turns a primary file into its manifest.
type ManifestExtractor interface {
	Extract(ctx context.Context, path string) (Manifest, error)
}

// AssetDeriver produces the thumbnail and cover renditions of an image.
// Failures leave the corresponding field nil.
type AssetDeriver interface {
	Derive(ctx context.Context, imagePath string) Renditions
}

// TokenRegistry is the part of the action token registry used by submissions.
type TokenRegistry interface {
	IsEnabled(ctx context.Context, id string) (bool, error)
	Consume(ctx context.Context, id string) error
}

// ModerationAuthorizer issues and checks tokens scoped to a single patch.
type ModerationAuthorizer interface {
	Issue(patchID string) (string, error)
	Verify(token, patchID string) error
}

// SubmissionNotice is emitted once a patch is stored.
type SubmissionNotice struct {
	Patch           *Patch
	ModerationToken string
}

// ModerationNotice is emitted after a moderation decision.
type ModerationNotice struct {
	Patch    *Patch
	Approved bool
}

// Notifier hands events to the outbound queue. A returned error means the
// event could not be queued.
type Notifier interface {
	NotifySubmitted(ctx context.Context, notice SubmissionNotice) error
	NotifyModerated(ctx context.Context, notice ModerationNotice) error
}

// Mirror copies the files of an approved patch to secondary storage.
type Mirror interface {
	MirrorPatch(ctx context.Context, p *Patch, dir string) error
}
