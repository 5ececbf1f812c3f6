package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
)

// Client issues authenticated JSON requests to the lobby server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Do sends in as JSON and decodes the response into out when both are
// non-nil. Network failures and 5xx responses come back as
// domain.ErrTransient; other failures carry the mapped domain sentinel.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return domain.NewOpError(method+" "+path, domain.ErrInvalidArgument, err.Error())
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set(HeaderAuthorization, BearerPrefix+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		return domain.NewOpError(method+" "+path, domain.ErrTransient, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Message == "" {
			e.Message = fmt.Sprintf("%s %s: %s", method, path, resp.Status)
		}
		return ErrorFor(resp.StatusCode, e)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewOpError(method+" "+path, domain.ErrTransient, "decode: "+err.Error())
	}
	return nil
}

// SignIn obtains an anonymous identity and stores its token on c.
func (c *Client) SignIn(ctx context.Context, name string) (AuthResponse, error) {
	var out AuthResponse
	if err := c.Do(ctx, http.MethodPost, "/api/auth/anonymous", AuthRequest{Name: name}, &out); err != nil {
		return AuthResponse{}, err
	}
	c.Token = out.Token
	return out, nil
}

// Rename changes the display name of the identity behind c.Token. It fails
// with domain.ErrUnauthorized when the server no longer knows the token.
func (c *Client) Rename(ctx context.Context, name string) (AuthResponse, error) {
	var out AuthResponse
	if err := c.Do(ctx, http.MethodPatch, "/api/auth/me", AuthRequest{Name: name}, &out); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}
