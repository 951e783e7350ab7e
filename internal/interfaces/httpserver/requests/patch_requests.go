package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
)

// Multipart field names of a patch submission.
const (
	FieldTokenID  = "token_id"
	FieldFiles    = "files[]"
	FieldFilesAlt = "files"
	FieldMetadata = "metadata"
)

// ErrMetadataRequired is returned when the metadata field is absent or blank.
var ErrMetadataRequired = errors.New("metadata is required")

// SubmissionMetadata is the JSON document sent in the metadata field. Only
// tags and description may be omitted.
type SubmissionMetadata struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Author      string   `json:"author" binding:"required,max=200"`
	Mail        string   `json:"mail" binding:"required,email"`
	AppVersion  string   `json:"app_version" binding:"required,max=64"`
	Tags        []string `json:"tags" binding:"max=32,dive,max=64"`
	Summary     string   `json:"summary" binding:"required,max=1000"`
	Description string   `json:"description" binding:"max=20000"`
}

// ParseSubmissionMetadata decodes raw. A missing or blank document is an error.
func ParseSubmissionMetadata(raw string) (SubmissionMetadata, error) {
	var md SubmissionMetadata
	if strings.TrimSpace(raw) == "" {
		return md, ErrMetadataRequired
	}
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return md, fmt.Errorf("metadata must be a JSON object: %w", err)
	}
	return md, nil
}

func (m SubmissionMetadata) ToDomain() patch.Metadata {
	return patch.Metadata{
		Title:       m.Title,
		Author:      m.Author,
		Mail:        m.Mail,
		AppVersion:  m.AppVersion,
		Tags:        m.Tags,
		Summary:     m.Summary,
		Description: m.Description,
	}
}

// ModerationRequest is the body of a moderation decision.
type ModerationRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Token    string `json:"token" binding:"required"`
}
