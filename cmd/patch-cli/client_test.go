package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/auth"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/action-tokens", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"tok","secret":"s3cr3t","expires_at":"2024-05-06T07:08:09Z"}`)
	})
	mux.HandleFunc("/v1/action-tokens/tok/enable", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if body["secret"] != "s3cr3t" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"message":"action token not found or expired","type":"not_found_error"}}`)
			return
		}
		io.WriteString(w, `{"id":"tok","enabled":true,"already_enabled":false}`)
	})
	mux.HandleFunc("/v1/patches/p1/moderation", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Approved bool   `json:"approved"`
			Token    string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if body.Token == "" {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"error":{"message":"moderation token is not valid for this patch","type":"forbidden_error"}}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"uuid": "p1", "approved": body.Approved})
	})
	mux.HandleFunc("/v1/patches/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"uuid":"p1","status":"`+map[bool]string{true: "PENDING", false: "APPROVED"}[r.URL.Query().Get("token") != ""]+`"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAPIClient_TokenLifecycle(t *testing.T) {
	server := newTestServer(t)
	client := newAPIClient(server.URL+"/", time.Second)
	ctx := context.Background()

	issued, err := client.IssueToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", issued.ID)
	assert.Equal(t, "s3cr3t", issued.Secret)

	enabled, err := client.EnableToken(ctx, "tok", "s3cr3t")
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)
	assert.False(t, enabled.AlreadyEnabled)

	_, err = client.EnableToken(ctx, "tok", "wrong")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found_error", apiErr.Type)
}

func TestAPIClient_Moderate(t *testing.T) {
	server := newTestServer(t)
	client := newAPIClient(server.URL, time.Second)

	res, err := client.Moderate(context.Background(), "p1", "token", false)
	require.NoError(t, err)
	assert.Equal(t, "p1", res.UUID)
	assert.False(t, res.Approved)

	_, err = client.Moderate(context.Background(), "p1", "", true)
	assert.ErrorContains(t, err, "403")
}

func TestAPIClient_GetPatchPassesToken(t *testing.T) {
	server := newTestServer(t)
	client := newAPIClient(server.URL, time.Second)

	raw, err := client.GetPatch(context.Background(), "p1", "tok")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "PENDING")

	raw, err = client.GetPatch(context.Background(), "p1", "")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "APPROVED")
}

func TestModerateCommand_SignsTokenLocally(t *testing.T) {
	t.Setenv("MODERATION_SECRET", "cli-secret")
	t.Setenv("STORAGE_DIR", t.TempDir())

	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received = body.Token
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"uuid":"p1","approved":true}`)
	}))
	defer server.Close()

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"moderate", "p1", "--approve", "--server", server.URL})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Equal(t, "patch p1 approved\n", out.String())
	signer := auth.NewModerationSigner(&config.Config{ModerationSecret: "cli-secret", ModerationTokenTTL: time.Hour})
	assert.NoError(t, signer.Verify(received, "p1"))
}

func TestRenderConfig_OmitsSecrets(t *testing.T) {
	cfg := &config.Config{
		ServiceName:      "patches-api",
		StorageDir:       "/var/lib/patches",
		ModerationSecret: "do-not-print",
		S3SecretKey:      "nor-this",
		DatabaseURL:      "postgres://user:pass@db/patches",
		AnalyzerTimeout:  90 * time.Second,
	}

	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			out, err := renderConfig(cfg, format)
			require.NoError(t, err)
			assert.Contains(t, out, "/var/lib/patches")
			assert.Contains(t, out, "1m30s")
			for _, secret := range []string{"do-not-print", "nor-this", "user:pass"} {
				assert.False(t, strings.Contains(out, secret), "output leaks %q", secret)
			}
		})
	}

	_, err := renderConfig(cfg, "toml")
	assert.Error(t, err)
}
