package patch

import "errors"

// User facing failures of the ingestion and moderation workflows. Services
// return them wrapped in a platformerrors.PlatformError; match with errors.Is.
var (
	ErrTokenNotAuthorized            = errors.New("action token is not authorized")
	ErrUnrecognizedFileType          = errors.New("unrecognized file type")
	ErrIngestionFailed               = errors.New("an error happened while processing files")
	ErrMissingOrAmbiguousPrimaryFile = errors.New("exactly one .bsk or .pfb file is required")
	ErrPersistenceFailed             = errors.New("error while creating the patch")
	ErrAlreadyModerated              = errors.New("patch has already been moderated")
	ErrNotFound                      = errors.New("patch not found")
	ErrInvalidFileName               = errors.New("file names must be unique plain names not reserved for renditions")
	ErrModerationForbidden           = errors.New("moderation token is not valid for this patch")
)

// Collaborator failures. These never reach callers unwrapped.
var (
	ErrStorageUnavailable = errors.New("staging storage unavailable")
	ErrWriteFailed        = errors.New("staging write failed")
	ErrExtractionFailed   = errors.New("manifest extraction failed")
	ErrFileNotFound       = errors.New("file not found")
)

// UnrecognizedFileTypeError names the file that could not be classified.
type UnrecognizedFileTypeError struct {
	FileName string
	MimeType string
}

func (e *UnrecognizedFileTypeError) Error() string {
	return "unrecognized file type for " + e.FileName
}

func (e *UnrecognizedFileTypeError) Is(target error) bool {
	return target == ErrUnrecognizedFileType
}

// ExtractionError carries the cause of a failed analyzer run.
type ExtractionError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExtractionError) Error() string {
	return "extract manifest from " + e.Path + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}
