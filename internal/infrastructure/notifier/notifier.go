package notifier

import (
	"context"
	"time"

	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
)

const (
	EventPatchSubmitted = "patch.submitted"
	EventPatchModerated = "patch.moderated"
)

// PatchSummary is the patch view carried by notifications. Unlike the public
// API it includes the submitter's contact address.
type PatchSummary struct {
	UUID        string    `json:"uuid"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Mail        string    `json:"mail"`
	AppVersion  string    `json:"app_version"`
	Tags        []string  `json:"tags"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Event           string       `json:"event"`
	Patch           PatchSummary `json:"patch"`
	Approved        *bool        `json:"approved,omitempty"`
	ModerationToken string       `json:"moderation_token,omitempty"`
	SentAt          time.Time    `json:"sent_at"`
}

// Sender delivers one payload.
type Sender interface {
	Send(ctx context.Context, payload Payload) error
}

func summarize(p *domain.Patch) PatchSummary {
	return PatchSummary{
		UUID:        p.UUID,
		Kind:        string(p.Kind),
		Title:       p.Title,
		Author:      p.Author,
		Mail:        p.Mail,
		AppVersion:  p.AppVersion,
		Tags:        append([]string(nil), p.Tags...),
		Summary:     p.Summary,
		Description: p.Description,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}

func submittedPayload(notice domain.SubmissionNotice) Payload {
	return Payload{
		Event:           EventPatchSubmitted,
		Patch:           summarize(notice.Patch),
		ModerationToken: notice.ModerationToken,
		SentAt:          time.Now().UTC(),
	}
}

func moderatedPayload(notice domain.ModerationNotice) Payload {
	approved := notice.Approved
	return Payload{
		Event:    EventPatchModerated,
		Patch:    summarize(notice.Patch),
		Approved: &approved,
		SentAt:   time.Now().UTC(),
	}
}
