package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	"github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/requests"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/responses"
	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

// PatchService is the part of patch.Service used over HTTP.
type PatchService interface {
	Submit(ctx context.Context, req patch.SubmitRequest) (string, error)
	Get(ctx context.Context, id, token string) (*patch.Patch, error)
	Moderate(ctx context.Context, id, token string, approved bool) (bool, error)
	FilePath(ctx context.Context, id, name, token string) (string, error)
}

// PatchHandler exposes patch submission, lookup and moderation.
type PatchHandler struct {
	cfg     *config.Config
	service PatchService
	log     zerolog.Logger
}

func NewPatchHandler(cfg *config.Config, service PatchService, log zerolog.Logger) *PatchHandler {
	return &PatchHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "patch-handler").Logger(),
	}
}

// Submit accepts a multipart upload made of token_id, files[] and a JSON
// metadata document.
func (h *PatchHandler) Submit(c *gin.Context) {
	if c.Request.ContentLength > h.cfg.MaxUploadBytes {
		h.writeTooLarge(c, nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeTooLarge(c, err)
			return
		}
		platformerrors.WriteValidationError(c, "a multipart/form-data body is required")
		return
	}
	defer form.RemoveAll()

	metadata, err := requests.ParseSubmissionMetadata(firstValue(form, requests.FieldMetadata))
	if err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}
	if err := binding.Validator.ValidateStruct(&metadata); err != nil {
		platformerrors.WriteValidationError(c, "invalid metadata: "+err.Error())
		return
	}

	var headers []*multipart.FileHeader
	headers = append(headers, form.File[requests.FieldFiles]...)
	headers = append(headers, form.File[requests.FieldFilesAlt]...)
	if len(headers) == 0 {
		platformerrors.WriteValidationError(c, "at least one file is required")
		return
	}

	files := make([]patch.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, incomingFile(fh))
	}

	id, err := h.service.Submit(c.Request.Context(), patch.SubmitRequest{
		TokenID:  strings.TrimSpace(firstValue(form, requests.FieldTokenID)),
		Files:    files,
		Metadata: metadata.ToDomain(),
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusCreated, responses.SubmitResponse{UUID: id})
}

// Get returns a patch. PENDING patches require the moderation token in the
// token query parameter.
func (h *PatchHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("uuid"), c.Query("token"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewPatchResponse(p))
}

// Moderate applies an approve or reject decision.
func (h *PatchHandler) Moderate(c *gin.Context) {
	var req requests.ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	id := c.Param("uuid")
	approved, err := h.service.Moderate(c.Request.Context(), id, req.Token, *req.Approved)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.ModerationResponse{UUID: id, Approved: approved})
}

// File streams one staged file of a visible patch.
func (h *PatchHandler) File(c *gin.Context) {
	path, err := h.service.FilePath(c.Request.Context(), c.Param("uuid"), c.Param("name"), c.Query("token"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.File(path)
}

func (h *PatchHandler) writeTooLarge(c *gin.Context, cause error) {
	if cause == nil {
		cause = errors.New("content length over limit")
	}
	platformerrors.WriteError(c, platformerrors.NewErrorWithContext(c.Request.Context(), platformerrors.LayerHandler,
		platformerrors.ErrorTypeTooLarge, "upload exceeds the maximum size", cause,
		"a3c81f5e-6d20-4b97-8e14-c0f7b2d9a456", map[string]any{"max_bytes": h.cfg.MaxUploadBytes}), h.log)
}

func incomingFile(fh *multipart.FileHeader) patch.IncomingFile {
	return patch.IncomingFile{
		Name:     fh.Filename,
		MimeType: detectMIME(fh),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// detectMIME trusts the declared part type unless it is missing or generic,
// in which case the content is sniffed.
func detectMIME(fh *multipart.FileHeader) string {
	declared := fh.Header.Get("Content-Type")
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		return declared
	}
	f, err := fh.Open()
	if err != nil {
		return declared
	}
	defer f.Close()
	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return declared
	}
	return detected.String()
}

func firstValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
