package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/bizdesk/bizdesk/internal/shared"
)

// GoTrueProvider authenticates against the Supabase auth API.
type GoTrueProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
}

// NewGoTrueProvider constructs a provider. A nil httpClient uses a 10s timeout client.
func NewGoTrueProvider(httpClient *http.Client, baseURL, apiKey string) *GoTrueProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoTrueProvider{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "supabase-auth",
			MaxRequests: 1,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

type goTrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// goTrueResponse covers both the session shape and the bare user shape that
// signup returns while e-mail confirmation is pending.
type goTrueResponse struct {
	User  *goTrueUser `json:"user"`
	ID    string      `json:"id"`
	Email string      `json:"email"`
}

func (r goTrueResponse) user() User {
	if r.User != nil {
		return User{ID: r.User.ID, Email: r.User.Email}
	}
	return User{ID: r.ID, Email: r.Email}
}

// rejection carries a 4xx answer. It is returned as a value so that bad
// passwords do not trip the breaker.
type rejection struct {
	status  int
	message string
}

// SignIn implements Provider.
func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (User, error) {
	resp, rej, err := p.post(ctx, "/auth/v1/token?grant_type=password", email, password)
	if err != nil {
		return User{}, err
	}
	if rej != nil {
		return User{}, fmt.Errorf("gotrue: sign in: %w: %s", shared.ErrInvalidCredentials, rej.message)
	}
	return resp.user(), nil
}

// SignUp implements Provider.
func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string) (User, error) {
	resp, rej, err := p.post(ctx, "/auth/v1/signup", email, password)
	if err != nil {
		return User{}, err
	}
	if rej != nil {
		if strings.Contains(strings.ToLower(rej.message), "already") {
			return User{}, fmt.Errorf("gotrue: sign up: %w", shared.ErrDuplicate)
		}
		return User{}, shared.Invalid("Password", "Erro ao registrar usuário: "+rej.message)
	}
	user := resp.user()
	if user.ID == "" {
		return User{}, fmt.Errorf("gotrue: sign up: %w: response without user", shared.ErrBackend)
	}
	return user, nil
}

func (p *GoTrueProvider) post(ctx context.Context, path, email, password string) (goTrueResponse, *rejection, error) {
	out, err := p.cb.Execute(func() (any, error) {
		return p.do(ctx, path, email, password)
	})
	if err != nil {
		return goTrueResponse{}, nil, fmt.Errorf("gotrue: %s: %w: %v", path, shared.ErrBackend, err)
	}
	switch v := out.(type) {
	case rejection:
		return goTrueResponse{}, &v, nil
	case goTrueResponse:
		return v, nil, nil
	}
	return goTrueResponse{}, nil, fmt.Errorf("gotrue: %s: %w: unexpected result", path, shared.ErrBackend)
}

func (p *GoTrueProvider) do(ctx context.Context, path, email, password string) (any, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return rejection{status: resp.StatusCode, message: errorMessage(raw)}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var out goTrueResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

// errorMessage picks the human readable field out of the error shapes the
// auth API has used over time.
func errorMessage(raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if m != "" {
			return m
		}
	}
	return strings.TrimSpace(string(raw))
}

var _ Provider = (*GoTrueProvider)(nil)
