package walletauth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sparksclub/walletauth/core"
)

// Nonce is an issued challenge as returned by the service
type Nonce struct {
	Message   string `json:"nonce"`
	ExpiresIn int    `json:"expiresIn"`
}

// VerifyRequest carries a signed challenge. Signature is base64 encoded.
type VerifyRequest struct {
	WalletAddress string          `json:"walletAddress"`
	WalletType    core.WalletKind `json:"walletType"`
	Nonce         string          `json:"nonce"`
	Signature     string          `json:"signature"`
}

// LoginResult is a successful verification
type LoginResult struct {
	User  core.PublicUser `json:"user"`
	Token string          `json:"token"`
}

// HTTPClient talks to the auth service over its JSON API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures an HTTPClient
type ClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a client for the service rooted at baseURL
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) RequestNonce(ctx context.Context, address string, kind core.WalletKind) (*Nonce, error) {
	var nonce Nonce
	body := map[string]string{"walletAddress": address, "walletType": string(kind)}
	if err := c.do(ctx, http.MethodPost, "/api/auth/wallet/nonce", "", body, &nonce); err != nil {
		return nil, err
	}
	return &nonce, nil
}

func (c *HTTPClient) Verify(ctx context.Context, req VerifyRequest) (*LoginResult, error) {
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/wallet/verify", "", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SignIn requests a challenge, has the wallet sign it byte for byte and submits the signature
func (c *HTTPClient) SignIn(ctx context.Context, wallet Wallet) (*LoginResult, error) {
	nonce, err := c.RequestNonce(ctx, wallet.Address(), wallet.Kind())
	if err != nil {
		return nil, err
	}

	sig, err := wallet.SignMessage(ctx, []byte(nonce.Message))
	if err != nil {
		return nil, fmt.Errorf("sign challenge: %w", err)
	}

	return c.Verify(ctx, VerifyRequest{
		WalletAddress: wallet.Address(),
		WalletType:    wallet.Kind(),
		Nonce:         nonce.Message,
		Signature:     base64.StdEncoding.EncodeToString(sig),
	})
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*core.PublicUser, error) {
	var out struct {
		User core.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
