package patch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	"github.com/fredericlb/BespokeSynthPatches/internal/domain/actiontoken"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/metrics"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/observability"
	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

// SubmitRequest is one patch upload.
type SubmitRequest struct {
	TokenID  string
	Files    []IncomingFile
	Metadata Metadata
}

// Service runs the submission and moderation workflows.
type Service struct {
	repo       Repository
	staging    Staging
	extractor  ManifestExtractor
	deriver    AssetDeriver
	tokens     TokenRegistry
	moderation ModerationAuthorizer
	notifier   Notifier
	mirror     Mirror
	log        zerolog.Logger

	tokenCheckDisabled bool
}

func NewService(
	cfg *config.Config,
	repo Repository,
	staging Staging,
	extractor ManifestExtractor,
	deriver AssetDeriver,
	tokens TokenRegistry,
	moderation ModerationAuthorizer,
	notifier Notifier,
	mirror Mirror,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:               repo,
		staging:            staging,
		extractor:          extractor,
		deriver:            deriver,
		tokens:             tokens,
		moderation:         moderation,
		notifier:           notifier,
		mirror:             mirror,
		log:                log.With().Str("component", "patch-service").Logger(),
		tokenCheckDisabled: cfg.DisableActionTokenCheck,
	}
}

// Submit ingests a patch and returns its uuid. The record starts PENDING.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	id := uuid.NewString()
	ctx, span := observability.StartPatchSpan(ctx, "submit", id)
	defer span.End()

	log := s.log.With().Str("patch_uuid", id).Logger()

	p, err := s.submit(ctx, id, req, log)
	if err != nil {
		observability.RecordError(span, err)
		metrics.RecordSubmission(outcomeOf(err))
		return "", err
	}
	metrics.RecordSubmission("accepted")

	if !s.tokenCheckDisabled {
		if err := s.tokens.Consume(ctx, req.TokenID); err != nil {
			metrics.RecordTokenConsumeFailure()
			log.Error().Err(err).Str("token_id", req.TokenID).Msg("patch stored but action token could not be consumed")
		}
	}

	s.notifySubmitted(ctx, p, log)

	log.Info().Str("kind", string(p.Kind)).Int("audio_files", len(p.AudioFiles)).Msg("patch submitted")
	return p.UUID, nil
}

func (s *Service) submit(ctx context.Context, id string, req SubmitRequest, log zerolog.Logger) (*Patch, error) {
	if err := s.authorize(ctx, req.TokenID); err != nil {
		return nil, err
	}

	roles, err := ClassifyAll(req.Files)
	if err != nil {
		var typed *UnrecognizedFileTypeError
		message := ErrUnrecognizedFileType.Error()
		if errors.As(err, &typed) {
			message = typed.Error()
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			message, err, "6a1e9d3c-4b87-4f20-a5d1-c9e7b3f80a42")
	}

	primaries := 0
	for _, role := range roles {
		if role.IsPrimary() {
			primaries++
		}
	}
	if primaries != 1 {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			ErrMissingOrAmbiguousPrimaryFile.Error(), ErrMissingOrAmbiguousPrimaryFile, "d84c1f7a-2e95-4b06-8c3d-71a5e0b9f2c6",
			map[string]any{"primary_files": primaries})
	}

	// names are checked after roles so classification errors keep precedence
	if err := validateFileNames(req.Files); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			err.Error(), err, "0f5b2c8e-71a4-4d39-9e26-b8c3d4a1f057")
	}

	dir, err := s.staging.Allocate(ctx, id)
	if err != nil {
		return nil, s.ingestionFailed(ctx, err, "3c7f0a2e-96d1-4b58-a4e7-0d2b8f5c1e93")
	}

	written, err := s.writeAll(ctx, dir, req.Files, roles)
	if err != nil {
		s.staging.Cleanup(ctx, dir, fileNames(req.Files))
		return nil, s.ingestionFailed(ctx, err, "a2d6e4b8-0c17-4f9a-b3e5-5f8c1d7a2e60")
	}

	p := &Patch{
		UUID:   id,
		Status: StatusPending,
	}
	var primary ClassifiedFile
	for _, f := range written {
		switch f.Role {
		case RolePrimaryDefinition:
			primary = f
			p.Kind = KindDefinition
		case RolePrimaryPrefab:
			primary = f
			p.Kind = KindPrefab
		case RoleAudio:
			p.AudioFiles = append(p.AudioFiles, f.OriginalName)
		case RoleImage:
			p.Images = append(p.Images, f.OriginalName)
		}
	}
	p.PrimaryFile = primary.OriginalName

	manifest, err := s.deriveAndExtract(ctx, dir, primary, p, log)
	if err != nil {
		s.staging.Cleanup(ctx, dir, p.StagedFiles())
		return nil, s.ingestionFailed(ctx, err, "e9b3a7c1-5d42-4e86-9f0b-2c6d8a4e1b75")
	}
	p.Manifest = manifest

	md := req.Metadata
	p.Title = md.Title
	p.Author = md.Author
	p.Mail = md.Mail
	p.AppVersion = md.AppVersion
	p.Tags = BuildTags(p.Kind, md.Tags)
	p.Summary = md.Summary
	p.Description = md.Description
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.Save(ctx, p); err != nil {
		s.staging.Cleanup(ctx, dir, p.StagedFiles())
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabase,
			ErrPersistenceFailed.Error(), fmt.Errorf("%w: %w", ErrPersistenceFailed, err), "7b0e5d2f-c8a3-4197-86e4-d3f9a1c5b028")
	}
	return p, nil
}

func (s *Service) authorize(ctx context.Context, tokenID string) error {
	if s.tokenCheckDisabled {
		return nil
	}
	enabled, err := s.tokens.IsEnabled(ctx, tokenID)
	if err != nil && !errors.Is(err, actiontoken.ErrNotFoundOrExpired) {
		return err
	}
	if err != nil || !enabled {
		cause := ErrTokenNotAuthorized
		if err != nil {
			cause = fmt.Errorf("%w: %w", ErrTokenNotAuthorized, err)
		}
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"Token not enabled", cause, "5e2a8c6d-13f7-4b90-a7d4-e8b1c3f6a059",
			map[string]any{"token_id": tokenID})
	}
	return nil
}

// writeAll streams every file into dir concurrently and waits for all of them.
func (s *Service) writeAll(ctx context.Context, dir string, files []IncomingFile, roles []Role) ([]ClassifiedFile, error) {
	written := make([]ClassifiedFile, len(files))
	var g errgroup.Group
	for i := range files {
		g.Go(func() error {
			f := files[i]
			body, err := f.Open()
			if err != nil {
				return fmt.Errorf("%w: open %s: %w", ErrWriteFailed, f.Name, err)
			}
			defer body.Close()

			path, err := s.staging.Write(ctx, dir, f.Name, body)
			if err != nil {
				return err
			}
			written[i] = ClassifiedFile{Role: roles[i], OriginalName: f.Name, StoredPath: path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return written, nil
}

// deriveAndExtract runs rendition generation and manifest extraction side by
// side. Only extraction can fail the submission.
func (s *Service) deriveAndExtract(ctx context.Context, dir string, primary ClassifiedFile, p *Patch, log zerolog.Logger) (Manifest, error) {
	var (
		wg       sync.WaitGroup
		manifest Manifest
		extErr   error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		manifest, extErr = s.extractor.Extract(ctx, primary.StoredPath)
	}()

	if len(p.Images) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.storeRenditions(ctx, dir, p, log)
		}()
	}

	wg.Wait()
	if extErr != nil {
		return Manifest{}, extErr
	}
	return manifest, nil
}

func (s *Service) storeRenditions(ctx context.Context, dir string, p *Patch, log zerolog.Logger) {
	source := filepath.Join(dir, p.Images[0])
	renditions := s.deriver.Derive(ctx, source)

	p.ThumbnailImage = s.storeRendition(ctx, dir, ThumbnailFileName, renditions.Thumbnail, log)
	p.CoverImage = s.storeRendition(ctx, dir, CoverFileName, renditions.Cover, log)
}

// storeRendition writes data under name and returns name, or "" when there is
// nothing stored.
func (s *Service) storeRendition(ctx context.Context, dir, name string, data []byte, log zerolog.Logger) string {
	if data == nil {
		return ""
	}
	if _, err := s.staging.WriteBytes(ctx, dir, name, data); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("could not store rendition")
		s.staging.Cleanup(ctx, dir, []string{name})
		return ""
	}
	return name
}

func (s *Service) notifySubmitted(ctx context.Context, p *Patch, log zerolog.Logger) {
	token, err := s.moderation.Issue(p.UUID)
	if err != nil {
		log.Error().Err(err).Msg("could not issue moderation token")
	}
	if err := s.notifier.NotifySubmitted(ctx, SubmissionNotice{Patch: p, ModerationToken: token}); err != nil {
		log.Warn().Err(err).Msg("submission notification not queued")
	}
}

// Moderate approves or rejects a PENDING patch. Rejection removes the record
// and its staged files.
func (s *Service) Moderate(ctx context.Context, id, token string, approved bool) (bool, error) {
	ctx, span := observability.StartPatchSpan(ctx, "moderate", id)
	defer span.End()

	decision := "reject"
	if approved {
		decision = "approve"
	}

	p, err := s.moderate(ctx, id, token, approved)
	if err != nil {
		observability.RecordError(span, err)
		metrics.RecordModeration(decision, outcomeOf(err))
		return false, err
	}
	metrics.RecordModeration(decision, "done")

	if approved {
		observability.AddStatusTransition(span, string(StatusPending), string(StatusApproved))
	}

	if err := s.notifier.NotifyModerated(ctx, ModerationNotice{Patch: p, Approved: approved}); err != nil {
		s.log.Warn().Err(err).Str("patch_uuid", id).Msg("moderation notification not queued")
	}

	s.log.Info().Str("patch_uuid", id).Str("decision", decision).Msg("patch moderated")
	return approved, nil
}

func (s *Service) moderate(ctx context.Context, id, token string, approved bool) (*Patch, error) {
	// token before lookup: without a valid token every id answers Forbidden,
	// NotFound is only reported to a holder of a token for that id
	if err := s.moderation.Verify(token, id); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			ErrModerationForbidden.Error(), fmt.Errorf("%w: %w", ErrModerationForbidden, err), "c1f7e3a9-4d62-4b8e-95a0-6e2d7b4c8f13")
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending {
		return nil, alreadyModerated(ctx, id)
	}

	if approved {
		ok, err := s.repo.TransitionStatus(ctx, id, StatusPending, StatusApproved)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, s.lostRace(ctx, id)
		}
		p.Status = StatusApproved
		s.mirrorApproved(ctx, p)
		return p, nil
	}

	ok, err := s.repo.DeletePending(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.lostRace(ctx, id)
	}
	s.staging.Cleanup(ctx, s.staging.Dir(id), p.StagedFiles())
	return p, nil
}

// lostRace reports why a compare-and-swap on id found nothing to change.
func (s *Service) lostRace(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	return alreadyModerated(ctx, id)
}

func (s *Service) mirrorApproved(ctx context.Context, p *Patch) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.MirrorPatch(ctx, p, s.staging.Dir(p.UUID)); err != nil {
		s.log.Warn().Err(err).Str("patch_uuid", p.UUID).Msg("could not mirror approved patch")
	}
}

// Get returns an APPROVED patch to anyone and a PENDING one only to holders
// of a moderation token issued for it.
func (s *Service) Get(ctx context.Context, id, token string) (*Patch, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusApproved {
		return p, nil
	}
	if token != "" && s.moderation.Verify(token, id) == nil {
		return p, nil
	}
	return nil, notFound(ctx, id)
}

// FilePath resolves a staged file of a visible patch.
func (s *Service) FilePath(ctx context.Context, id, name, token string) (string, error) {
	p, err := s.Get(ctx, id, token)
	if err != nil {
		return "", err
	}
	if !p.HasFile(name) {
		return "", platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			ErrFileNotFound.Error(), ErrFileNotFound, "8d4a0f6c-2b91-4e73-a8c5-f1e6b9d3a274",
			map[string]any{"patch_uuid": id, "file": name})
	}
	return filepath.Join(s.staging.Dir(id), name), nil
}

func (s *Service) find(ctx context.Context, id string) (*Patch, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(ctx, id)
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) ingestionFailed(ctx context.Context, cause error, code string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
		ErrIngestionFailed.Error(), fmt.Errorf("%w: %w", ErrIngestionFailed, cause), code)
}

func notFound(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
		ErrNotFound.Error(), ErrNotFound, "2f9c5b1e-7a3d-4c60-b8e2-94d0a6f3c17b",
		map[string]any{"patch_uuid": id})
}

func alreadyModerated(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
		ErrAlreadyModerated.Error(), ErrAlreadyModerated, "b5e1d8a3-0f64-4c27-9a3b-e7c2f5d0a916",
		map[string]any{"patch_uuid": id})
}

// BuildTags returns the kind tag followed by the user tags, without the
// reserved kind tags, blanks or duplicates.
func BuildTags(kind Kind, userTags []string) []string {
	tags := []string{kind.Tag()}
	seen := map[string]struct{}{kind.Tag(): {}}
	for _, tag := range userTags {
		tag = strings.TrimSpace(tag)
		if tag == "" || tag == KindDefinition.Tag() || tag == KindPrefab.Tag() {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func validateFileNames(files []IncomingFile) error {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		name := f.Name
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
		}
		if strings.EqualFold(name, ThumbnailFileName) || strings.EqualFold(name, CoverFileName) {
			return fmt.Errorf("%w: %q is reserved for renditions", ErrInvalidFileName, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q is submitted twice", ErrInvalidFileName, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func fileNames(files []IncomingFile) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrTokenNotAuthorized):
		return "unauthorized"
	case errors.Is(err, ErrUnrecognizedFileType), errors.Is(err, ErrInvalidFileName):
		return "rejected_files"
	case errors.Is(err, ErrMissingOrAmbiguousPrimaryFile):
		return "missing_primary"
	case errors.Is(err, ErrIngestionFailed):
		return "ingestion_failed"
	case errors.Is(err, ErrPersistenceFailed):
		return "persistence_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyModerated):
		return "already_moderated"
	case errors.Is(err, ErrModerationForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
