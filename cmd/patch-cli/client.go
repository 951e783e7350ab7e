package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/requests"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/responses"
	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

const defaultTimeout = 30 * time.Second

// apiClient wraps the v1 HTTP surface.
type apiClient struct {
	httpClient *resty.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &apiClient{
		httpClient: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("User-Agent", "patch-cli/"+version).
			SetTimeout(timeout),
	}
}

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int
	Type    string
	Message string
}

func (e *apiError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Type, e.Message)
}

func (c *apiClient) IssueToken(ctx context.Context) (*responses.TokenIssuedResponse, error) {
	var out responses.TokenIssuedResponse
	resp, err := c.httpClient.R().SetContext(ctx).SetResult(&out).Post("/v1/action-tokens")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) EnableToken(ctx context.Context, id, secret string) (*responses.TokenEnabledResponse, error) {
	var out responses.TokenEnabledResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(requests.EnableTokenRequest{Secret: secret}).
		SetResult(&out).
		Post("/v1/action-tokens/" + url.PathEscape(id) + "/enable")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) TokenStatus(ctx context.Context, id string) (*responses.TokenStatusResponse, error) {
	var out responses.TokenStatusResponse
	resp, err := c.httpClient.R().SetContext(ctx).SetResult(&out).Get("/v1/action-tokens/" + url.PathEscape(id))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPatch returns the raw JSON document of a patch.
func (c *apiClient) GetPatch(ctx context.Context, id, token string) (json.RawMessage, error) {
	req := c.httpClient.R().SetContext(ctx)
	if token != "" {
		req.SetQueryParam("token", token)
	}
	resp, err := req.Get("/v1/patches/" + url.PathEscape(id))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

func (c *apiClient) Moderate(ctx context.Context, id, token string, approved bool) (*responses.ModerationResponse, error) {
	var out responses.ModerationResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(requests.ModerationRequest{Approved: &approved, Token: token}).
		SetResult(&out).
		Post("/v1/patches/" + url.PathEscape(id) + "/moderation")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &apiError{Status: resp.StatusCode(), Message: strings.TrimSpace(string(resp.Body()))}
	var body platformerrors.HTTPErrorResponse
	if json.Unmarshal(resp.Body(), &body) == nil && body.Error != nil {
		apiErr.Type = body.Error.Type
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
