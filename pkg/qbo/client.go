// Package qbo is a minimal QuickBooks Online REST client covering what
// the pipeline needs: entity queries, document creation, doc-number
// scans and batch deletes. One Client serves every tenant; per-company
// OAuth state is keyed by realm id and refreshed lazily.
package qbo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const (
	queryPageSize  = 1000
	tokenSkew      = 2 * time.Minute
	deleteChunk    = 40
	deleteBatchMax = 25
)

// Config carries the app-level QBO credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string // e.g. https://quickbooks.api.intuit.com
	TokenURL     string // e.g. https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer
	MinorVersion string
}

// TokenSaver persists a rotated refresh token for a realm. Intuit may
// rotate the refresh token on every refresh, so the new value must be
// written back before the next API call can be trusted to succeed.
type TokenSaver func(ctx context.Context, realmID, refreshToken string) error

type companyState struct {
	mu           sync.Mutex
	refreshToken string
	accessToken  string
	expiresAt    time.Time
}

// Client talks to the QBO v3 REST API.
type Client struct {
	logger *log.Logger
	config Config
	http   *http.Client
	saver  TokenSaver

	mu        sync.Mutex
	companies map[string]*companyState
}

// New builds a Client. saver may be nil when token rotation does not
// need to be persisted (one-shot tooling).
func New(logger *log.Logger, config Config, saver TokenSaver) *Client {
	return &Client{
		logger:    logger.With("component", "qbo"),
		config:    config,
		http:      &http.Client{Timeout: 60 * time.Second},
		saver:     saver,
		companies: make(map[string]*companyState),
	}
}

// Register seeds the OAuth state for a realm with its stored refresh
// token. Must be called before any API call for that realm.
func (c *Client) Register(realmID, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.companies[realmID]
	if !ok {
		state = &companyState{}
		c.companies[realmID] = state
	}
	state.mu.Lock()
	state.refreshToken = refreshToken
	state.accessToken = ""
	state.expiresAt = time.Time{}
	state.mu.Unlock()
}

func (c *Client) state(realmID string) (*companyState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.companies[realmID]
	if !ok {
		return nil, fmt.Errorf("realm %s is not registered", realmID)
	}
	return state, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// accessToken returns a valid bearer token for the realm, refreshing
// when the cached one is missing or about to expire.
func (c *Client) accessToken(ctx context.Context, realmID string) (string, error) {
	state, err := c.state(realmID)
	if err != nil {
		return "", err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.accessToken != "" && time.Now().Before(state.expiresAt.Add(-tokenSkew)) {
		return state.accessToken, nil
	}

	if state.refreshToken == "" {
		return "", fmt.Errorf("realm %s has no refresh token", realmID)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {state.refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh returned %d: %s", resp.StatusCode, truncate(body, 300))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	state.accessToken = tok.AccessToken
	state.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	if tok.RefreshToken != "" && tok.RefreshToken != state.refreshToken {
		c.logger.Info("refresh token rotated", "realm", realmID)
		state.refreshToken = tok.RefreshToken
		if c.saver != nil {
			if err := c.saver(ctx, realmID, tok.RefreshToken); err != nil {
				return "", fmt.Errorf("failed to persist rotated refresh token: %w", err)
			}
		}
	}

	return state.accessToken, nil
}

const authURL = "https://appcenter.intuit.com/connect/oauth2"

// oauthConfig builds the standard OAuth2 configuration for Intuit's
// endpoints.
func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		RedirectURL:  c.config.RedirectURI,
		Scopes:       []string{"com.intuit.quickbooks.accounting"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  c.config.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthCodeURL returns the Intuit consent page URL for onboarding.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauthConfig().AuthCodeURL(state)
}

// ExchangeCode swaps an OAuth authorization code for tokens during
// company onboarding and returns the refresh token to store.
func (c *Client) ExchangeCode(ctx context.Context, realmID, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("code exchange failed: %w", err)
	}
	if tok.RefreshToken == "" {
		return "", fmt.Errorf("code exchange returned no refresh token")
	}

	c.Register(realmID, tok.RefreshToken)
	if c.saver != nil {
		if err := c.saver(ctx, realmID, tok.RefreshToken); err != nil {
			return "", err
		}
	}
	return tok.RefreshToken, nil
}

func (c *Client) do(ctx context.Context, realmID, method, path string, query url.Values, payload any) ([]byte, error) {
	token, err := c.accessToken(ctx, realmID)
	if err != nil {
		return nil, err
	}

	if query == nil {
		query = url.Values{}
	}
	if c.config.MinorVersion != "" {
		query.Set("minorversion", c.config.MinorVersion)
	}
	u := fmt.Sprintf("%s/v3/company/%s%s?%s", strings.TrimRight(c.config.BaseURL, "/"), realmID, path, query.Encode())

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qbo returned %d: %s", resp.StatusCode, truncate(data, 500))
	}
	return data, nil
}

// Query runs a QBO SQL-ish query and returns every page of results.
// Paging stops on a short page.
func (c *Client) Query(ctx context.Context, realmID, entity, where string) ([]Document, error) {
	var all []Document
	start := 1
	for {
		q := fmt.Sprintf("SELECT * FROM %s", entity)
		if where != "" {
			q += " WHERE " + where
		}
		q += fmt.Sprintf(" STARTPOSITION %d MAXRESULTS %d", start, queryPageSize)

		data, err := c.do(ctx, realmID, http.MethodGet, "/query", url.Values{"query": {q}}, nil)
		if err != nil {
			return nil, err
		}

		page, err := decodeQueryPage(data, entity)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < queryPageSize {
			return all, nil
		}
		start += queryPageSize
	}
}

func decodeQueryPage(data []byte, entity string) ([]Document, error) {
	var envelope struct {
		QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	raw, ok := envelope.QueryResponse[entity]
	if !ok {
		return nil, nil
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", entity, err)
	}
	return docs, nil
}

// Create posts a document payload and returns the created record.
func (c *Client) Create(ctx context.Context, realmID, entity string, payload any) (Document, error) {
	data, err := c.do(ctx, realmID, http.MethodPost, "/"+strings.ToLower(entity), nil, payload)
	if err != nil {
		return Document{}, err
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Document{}, fmt.Errorf("failed to decode create response: %w", err)
	}
	raw, ok := envelope[entity]
	if !ok {
		return Document{}, fmt.Errorf("create response missing %s body", entity)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode created %s: %w", entity, err)
	}
	return doc, nil
}

// MaxDocNumber returns the highest numeric suffix among doc numbers
// with the given prefix, or 0 when none exist.
func (c *Client) MaxDocNumber(ctx context.Context, realmID, entity, prefix string) (int, error) {
	where := fmt.Sprintf("DocNumber LIKE '%s%%'", escapeQuery(prefix))
	docs, err := c.Query(ctx, realmID, entity, where)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, d := range docs {
		n := trailingNumber(d.DocNumber)
		if n > max {
			max = n
		}
	}
	return max, nil
}

// BatchDelete removes documents by id. SyncTokens are fetched in
// chunks, then deletes go through the batch endpoint.
func (c *Client) BatchDelete(ctx context.Context, realmID, entity string, ids []string) (int, error) {
	tokens := make(map[string]string, len(ids))
	for i := 0; i < len(ids); i += deleteChunk {
		end := i + deleteChunk
		if end > len(ids) {
			end = len(ids)
		}
		quoted := make([]string, 0, end-i)
		for _, id := range ids[i:end] {
			quoted = append(quoted, "'"+escapeQuery(id)+"'")
		}
		docs, err := c.Query(ctx, realmID, entity, fmt.Sprintf("Id IN (%s)", strings.Join(quoted, ",")))
		if err != nil {
			return 0, err
		}
		for _, d := range docs {
			tokens[d.ID] = d.SyncToken
		}
	}

	deleted := 0
	for i := 0; i < len(ids); i += deleteBatchMax {
		end := i + deleteBatchMax
		if end > len(ids) {
			end = len(ids)
		}
		items := make([]map[string]any, 0, end-i)
		for _, id := range ids[i:end] {
			token, ok := tokens[id]
			if !ok {
				c.logger.Warn("skipping delete, record not found", "entity", entity, "id", id)
				continue
			}
			items = append(items, map[string]any{
				"bId":       id,
				"operation": "delete",
				entity:      map[string]string{"Id": id, "SyncToken": token},
			})
		}
		if len(items) == 0 {
			continue
		}
		if _, err := c.do(ctx, realmID, http.MethodPost, "/batch", nil, map[string]any{"BatchItemRequest": items}); err != nil {
			return deleted, err
		}
		deleted += len(items)
	}
	return deleted, nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

func trailingNumber(s string) int {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0
	}
	n := 0
	for _, r := range s[start:end] {
		n = n*10 + int(r-'0')
	}
	return n
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
