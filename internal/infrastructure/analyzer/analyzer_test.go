package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
)

// writeScript creates a shell script standing in for the analyzer.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("analyzer tests use /bin/sh scripts")
	}
	path := filepath.Join(t.TempDir(), "analyzer.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestAnalyzer(script string, timeout time.Duration) *Analyzer {
	return NewAnalyzer(&config.Config{
		AnalyzerCommand: "/bin/sh",
		AnalyzerArgs:    []string{script},
		AnalyzerTimeout: timeout,
	}, zerolog.Nop())
}

func TestExtract_ParsesStdout(t *testing.T) {
	script := writeScript(t, `echo '{"rev":420,"modules":[{"name":"osc","type":"synth"}],"file":"'"$1"'"}'`)
	primary := filepath.Join(t.TempDir(), "demo.bsk")
	require.NoError(t, os.WriteFile(primary, []byte("bsk"), 0o644))

	manifest, err := newTestAnalyzer(script, 0).Extract(context.Background(), primary)
	require.NoError(t, err)
	require.Len(t, manifest.Modules, 1)
	assert.Equal(t, "osc", manifest.Modules[0].Name)
	assert.Contains(t, string(manifest.Raw), primary)
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		command  string
		exitCode int
	}{
		{name: "non-zero exit", body: `echo "rev number should be 420"; exit 3`, exitCode: 3},
		{name: "not json", body: `echo "hello"`},
		{name: "launch failure", command: "/definitely/not/a/binary", exitCode: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, tt.body)
			a := newTestAnalyzer(script, 0)
			if tt.command != "" {
				a.command = tt.command
			}

			_, err := a.Extract(context.Background(), "demo.bsk")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrExtractionFailed)

			var extErr *domain.ExtractionError
			require.ErrorAs(t, err, &extErr)
			if tt.exitCode != 0 {
				assert.Equal(t, tt.exitCode, extErr.ExitCode)
			}
		})
	}
}

func TestExtract_IgnoresCallerCancellation(t *testing.T) {
	script := writeScript(t, `sleep 0.2; echo '{"rev":420}'`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAnalyzer(script, 0).Extract(ctx, "demo.bsk")
	assert.NoError(t, err)
}

func TestExtract_Timeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)

	_, err := newTestAnalyzer(script, 100*time.Millisecond).Extract(context.Background(), "demo.bsk")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
