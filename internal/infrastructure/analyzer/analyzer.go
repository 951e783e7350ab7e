package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/metrics"
)

const maxStderrLog = 2048

// Analyzer runs the external manifest script against a primary file and
// decodes the JSON it prints.
type Analyzer struct {
	command string
	args    []string
	timeout time.Duration
	log     zerolog.Logger
}

func NewAnalyzer(cfg *config.Config, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		command: strings.TrimSpace(cfg.AnalyzerCommand),
		args:    append([]string(nil), cfg.AnalyzerArgs...),
		timeout: cfg.AnalyzerTimeout,
		log:     log.With().Str("component", "manifest-analyzer").Logger(),
	}
}

// Extract runs the analyzer with the absolute path of the file as its last
// argument. The process is not tied to ctx cancellation; only the configured
// timeout can stop it.
func (a *Analyzer) Extract(ctx context.Context, path string) (domain.Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return domain.Manifest{}, &domain.ExtractionError{Path: path, ExitCode: -1, Err: err}
	}

	runCtx := context.WithoutCancel(ctx)
	if a.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, a.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), a.args...), absPath)
	cmd := exec.CommandContext(runCtx, a.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if a.timeout > 0 {
		cmd.WaitDelay = time.Second
	}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start).Seconds()

	if runErr != nil {
		metrics.RecordAnalyzer("error", elapsed)
		extErr := &domain.ExtractionError{
			Path:     absPath,
			ExitCode: exitCode(runErr),
			Stderr:   truncate(stderr.String(), maxStderrLog),
			Err:      runErr,
		}
		if extErr.Stderr == "" {
			// the bundled script reports some failures on stdout
			extErr.Stderr = truncate(stdout.String(), maxStderrLog)
		}
		a.log.Warn().
			Err(runErr).
			Str("path", absPath).
			Int("exit_code", extErr.ExitCode).
			Str("stderr", extErr.Stderr).
			Msg("analyzer failed")
		return domain.Manifest{}, extErr
	}

	manifest, err := domain.ParseManifest(bytes.TrimSpace(stdout.Bytes()))
	if err != nil {
		metrics.RecordAnalyzer("invalid_output", elapsed)
		a.log.Warn().Err(err).Str("path", absPath).Msg("analyzer output is not JSON")
		return domain.Manifest{}, &domain.ExtractionError{
			Path: absPath,
			Err:  fmt.Errorf("parse analyzer output: %w", err),
		}
	}

	metrics.RecordAnalyzer("success", elapsed)
	a.log.Debug().Str("path", absPath).Int("modules", len(manifest.Modules)).Msg("manifest extracted")
	return manifest, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
