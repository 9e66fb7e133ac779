package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/dtos"
)

// APIClient talks to the portal auth endpoints. A cookie jar holds the
// session cookies the server sets on successful verification.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	jar, _ := cookiejar.New(nil)
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

func (c *APIClient) LookupByPhone(ctx context.Context, phone string) (*dtos.LookupByPhoneResponse, error) {
	var out dtos.LookupByPhoneResponse
	err := c.post(ctx, "/api/portal/auth/lookup-by-phone", dtos.LookupByPhoneRequest{Phone: phone}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) SendCode(ctx context.Context, req dtos.SendCodeRequest) (*dtos.SendCodeResponse, error) {
	var out dtos.SendCodeResponse
	if err := c.post(ctx, "/api/portal/auth/send-code", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) VerifyCode(ctx context.Context, req dtos.VerifyCodeRequest) (*dtos.VerifyCodeResponse, error) {
	var out dtos.VerifyCodeResponse
	if err := c.post(ctx, "/api/portal/auth/verify-code", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Session(ctx context.Context) (*dtos.SessionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/customer-portal/session", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out dtos.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Logout(ctx context.Context) error {
	return c.post(ctx, "/api/customer-portal/logout", struct{}{}, nil)
}

func (c *APIClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeError surfaces the server's `error` field, then `message`, then
// a generic fallback.
func decodeError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case body.Error != "":
		return fmt.Errorf("%s", body.Error)
	case body.Message != "":
		return fmt.Errorf("%s", body.Message)
	default:
		return fmt.Errorf("request failed (%d)", resp.StatusCode)
	}
}
