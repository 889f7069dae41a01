// Package remote talks to the cardbank counterpart service over HTTP/JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/cardbank/pkg/cardstore"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenIssuer    = "cardbank"
	defaultTokenTTL       = 2 * time.Minute
	defaultRequestTimeout = 10 * time.Second

	errorOperationRemote = "remote"
	errorSubjectAccount  = "account"
	errorSubjectSnapshot = "snapshot"
	errorCodeRequest     = "request"
	errorCodeStatus      = "status"
	errorCodeDecode      = "decode"
	errorCodeInvalid     = "invalid"
)

// ErrConflict marks a create that collided with an existing remote account.
var ErrConflict = errors.New("account already exists remotely")

// Option mutates client construction.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) { client.httpClient = httpClient }
}

// WithTokenTTL overrides how long a minted request token stays valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(client *Client) {
		if ttl > 0 {
			client.tokenTTL = ttl
		}
	}
}

// Client implements cardstore.RemoteLedger against the counterpart service.
// Every request carries a freshly minted HS256 bearer token signed with the
// shared client key.
type Client struct {
	baseURL    string
	clientKey  []byte
	issuer     string
	tokenTTL   time.Duration
	httpClient *http.Client
}

// NewClient validates the endpoint settings and returns a ready client.
func NewClient(baseURL string, clientKey string, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("%w: server url is required", cardstore.ErrInvalidServiceConfig)
	}
	if len(clientKey) == 0 {
		return nil, fmt.Errorf("%w: client key is required", cardstore.ErrInvalidServiceConfig)
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientKey:  []byte(clientKey),
		issuer:     defaultTokenIssuer,
		tokenTTL:   defaultTokenTTL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Check probes the liveness endpoint.
func (client *Client) Check(ctx context.Context) error {
	response, err := client.execute(ctx, http.MethodGet, "/api/check", nil)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return client.statusError(response.StatusCode)
	}
	return nil
}

// Push uploads one account balance through the sync endpoint.
func (client *Client) Push(ctx context.Context, account cardstore.Account) error {
	payload := map[string]any{
		"uuid":          account.ID.String(),
		"balance_cents": account.Balance,
	}
	response, err := client.execute(ctx, http.MethodPost, "/api/account/sync", payload)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return client.statusError(response.StatusCode)
	}
	return nil
}

// FetchAll downloads the complete remote account snapshot.
func (client *Client) FetchAll(ctx context.Context) ([]cardstore.RemoteAccount, error) {
	response, err := client.execute(ctx, http.MethodGet, "/api/accounts", nil)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, client.statusError(response.StatusCode)
	}

	var snapshot snapshotResponse
	if err := json.NewDecoder(response.Body).Decode(&snapshot); err != nil {
		return nil, cardstore.WrapError(errorOperationRemote, errorSubjectSnapshot, errorCodeDecode, err)
	}
	accounts := make([]cardstore.RemoteAccount, 0, len(snapshot.Accounts))
	for _, entry := range snapshot.Accounts {
		id, err := cardstore.NewAccountID(entry.UUID)
		if err != nil {
			return nil, cardstore.WrapError(errorOperationRemote, errorSubjectSnapshot, errorCodeInvalid, err)
		}
		accounts = append(accounts, cardstore.RemoteAccount{ID: id, Balance: cardstore.BalanceCents(entry.BalanceCents)})
	}
	return accounts, nil
}

// CreateRemote registers an account on the counterpart service.
func (client *Client) CreateRemote(ctx context.Context, id cardstore.AccountID, balanceCents uint64) error {
	payload := map[string]any{
		"uuid":          id.String(),
		"balance_cents": balanceCents,
	}
	response, err := client.execute(ctx, http.MethodPost, "/api/account/create", payload)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusCreated {
		return client.statusError(response.StatusCode)
	}
	return nil
}

// DeleteRemote removes an account from the counterpart service.
func (client *Client) DeleteRemote(ctx context.Context, id cardstore.AccountID) error {
	response, err := client.execute(ctx, http.MethodDelete, "/api/account/"+id.String(), nil)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return client.statusError(response.StatusCode)
	}
	return nil
}

func (client *Client) execute(ctx context.Context, method string, path string, payload any) (*http.Response, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, cardstore.WrapError(errorOperationRemote, errorSubjectAccount, errorCodeRequest, err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, body)
	if err != nil {
		return nil, cardstore.WrapError(errorOperationRemote, errorSubjectAccount, errorCodeRequest, err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	token, err := client.mintToken()
	if err != nil {
		return nil, cardstore.WrapError(errorOperationRemote, errorSubjectAccount, errorCodeRequest, err)
	}
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cardstore.ErrRemoteUnavailable, err)
	}
	return response, nil
}

func (client *Client) mintToken() (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    client.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(client.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(client.clientKey)
}

func (client *Client) statusError(statusCode int) error {
	switch statusCode {
	case http.StatusNotFound:
		return cardstore.WrapError(errorOperationRemote, errorSubjectAccount, errorCodeStatus, cardstore.ErrNotFound)
	case http.StatusConflict:
		return cardstore.WrapError(errorOperationRemote, errorSubjectAccount, errorCodeStatus, ErrConflict)
	default:
		return cardstore.WrapError(errorOperationRemote, errorSubjectAccount, errorCodeStatus,
			fmt.Errorf("unexpected status %d", statusCode))
	}
}

type snapshotResponse struct {
	Success  bool              `json:"success"`
	Count    int               `json:"count"`
	Accounts []accountSnapshot `json:"accounts"`
}

type accountSnapshot struct {
	UUID         string `json:"uuid"`
	BalanceCents uint64 `json:"balance_cents"`
}
