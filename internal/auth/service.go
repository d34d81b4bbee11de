// Package auth links GitHub accounts to kiln users through the OAuth
// authorization-code flow.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
)

// stateTTL bounds how long an authorization round-trip may take
const stateTTL = 10 * time.Minute

// Config carries the OAuth application settings
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string

	// Overridable for tests; defaults point at github.com
	AuthorizeURL string
	TokenURL     string
	APIBaseURL   string
}

func (c *Config) applyDefaults() {
	if c.AuthorizeURL == "" {
		c.AuthorizeURL = "https://github.com/login/oauth/authorize"
	}
	if c.TokenURL == "" {
		c.TokenURL = "https://github.com/login/oauth/access_token"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = "https://api.github.com"
	}
	if c.Scope == "" {
		c.Scope = "repo"
	}
}

// Service runs the GitHub OAuth flow and stores connections
type Service struct {
	cfg    Config
	repo   domain.GitHubRepository
	client *http.Client

	mu     sync.Mutex
	states map[string]pendingState
}

type pendingState struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// NewService creates a new auth service
func NewService(cfg Config, repo domain.GitHubRepository) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:    cfg,
		repo:   repo,
		client: &http.Client{Timeout: 15 * time.Second},
		states: make(map[string]pendingState),
	}
}

// AuthorizeURL returns the GitHub authorization URL for a user. The
// embedded state token is remembered and must come back on the callback.
func (s *Service) AuthorizeURL(userID uuid.UUID) (string, error) {
	state, err := generateToken(32)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.pruneLocked()
	s.states[state] = pendingState{userID: userID, expiresAt: time.Now().Add(stateTTL)}
	s.mu.Unlock()

	params := url.Values{}
	params.Set("client_id", s.cfg.ClientID)
	params.Set("redirect_uri", s.cfg.RedirectURL)
	params.Set("scope", s.cfg.Scope)
	params.Set("state", state)

	return s.cfg.AuthorizeURL + "?" + params.Encode(), nil
}

// HandleCallback completes the OAuth flow: it validates the state,
// exchanges the code for a token, resolves the GitHub login and stores
// the connection. Relinking overwrites any previous connection.
func (s *Service) HandleCallback(ctx context.Context, state, code string) (*domain.GitHubConnection, error) {
	s.mu.Lock()
	pending, ok := s.states[state]
	delete(s.states, state)
	s.mu.Unlock()

	if !ok || time.Now().After(pending.expiresAt) {
		return nil, domain.ErrStateMismatch
	}

	token, scope, err := s.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	login, err := s.fetchLogin(ctx, token)
	if err != nil {
		return nil, err
	}

	conn := &domain.GitHubConnection{
		ID:          uuid.New(),
		UserID:      pending.userID,
		Login:       login,
		AccessToken: token,
		Scope:       scope,
		LinkedAt:    time.Now(),
	}
	if err := s.repo.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("store connection: %w", err)
	}
	return conn, nil
}

// Connection returns the stored GitHub connection for a user
func (s *Service) Connection(ctx context.Context, userID uuid.UUID) (*domain.GitHubConnection, error) {
	return s.repo.GetByUser(ctx, userID)
}

func (s *Service) exchangeCode(ctx context.Context, code string) (token, scope string, err error) {
	form := url.Values{}
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", s.cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("token exchange failed (status %d): %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.Error != "" || payload.AccessToken == "" {
		return "", "", fmt.Errorf("token exchange rejected: %s", payload.Error)
	}
	return payload.AccessToken, payload.Scope, nil
}

func (s *Service) fetchLogin(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIBaseURL+"/user", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("fetch user failed (status %d): %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode user response: %w", err)
	}
	return payload.Login, nil
}

// pruneLocked drops expired states. Caller holds s.mu.
func (s *Service) pruneLocked() {
	now := time.Now()
	for state, pending := range s.states {
		if now.After(pending.expiresAt) {
			delete(s.states, state)
		}
	}
}

// generateToken creates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
