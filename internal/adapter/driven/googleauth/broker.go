package googleauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

const (
	// DefaultTokenURL is Google's OAuth2 token endpoint. It is both the
	// exchange target and the assertion audience.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// DefaultScope grants read/write access to spreadsheets.
	DefaultScope = "https://www.googleapis.com/auth/spreadsheets"

	grantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetime is the exp-iat window of the signed assertion,
	// which also bounds the lifetime of the returned access token.
	assertionLifetime = time.Hour

	// expiryMargin is how early a cached token is treated as expired, so a
	// token never dies mid-request.
	expiryMargin = 60 * time.Second

	// maxErrorBody caps how much of an error response is carried in an
	// ExchangeError.
	maxErrorBody = 4 << 10
)

// ExchangeError reports a non-2xx response from the token endpoint. The
// exchange left no state behind, so the next call retries cleanly.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Body)
}

// assertionClaims is the claim set of the JWT-bearer assertion. Scope rides
// alongside the registered claims per Google's service-account flow.
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Compile-time interface satisfaction check.
var _ driven.TokenSource = (*Broker)(nil)

// Broker implements the TokenSource port for a single service-account
// credential. It caches the access token until near expiry and guarantees at
// most one exchange in flight: concurrent callers serialize on the mutex and
// all but the first are satisfied from the freshly written cache.
type Broker struct {
	signer     *Signer
	identity   string
	scope      string
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time

	mu     sync.Mutex
	cached model.AccessToken
}

// NewBroker creates a Broker for the given signer and service identity,
// targeting Google's production token endpoint.
func NewBroker(signer *Signer, identity string) *Broker {
	return NewBrokerWithEndpoint(signer, identity, DefaultTokenURL, &http.Client{Timeout: 15 * time.Second})
}

// NewBrokerWithEndpoint creates a Broker against a custom token endpoint and
// http.Client. This constructor is intended for testing, allowing injection
// of an httptest server.
func NewBrokerWithEndpoint(signer *Signer, identity, tokenURL string, httpClient *http.Client) *Broker {
	return &Broker{
		signer:     signer,
		identity:   identity,
		scope:      DefaultScope,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token returns a valid bearer token, minting one when the cache is empty or
// within the expiry margin.
func (b *Broker) Token(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cached.ValidAt(b.now(), expiryMargin) {
		return b.cached.Value, nil
	}

	tok, err := b.exchange(ctx)
	if err != nil {
		return "", err
	}

	b.cached = tok
	return tok.Value, nil
}

// exchange signs a fresh assertion and trades it for an access token.
// Called with the mutex held.
func (b *Broker) exchange(ctx context.Context) (model.AccessToken, error) {
	assertion, err := b.buildAssertion()
	if err != nil {
		return model.AccessToken{}, err
	}

	form := url.Values{
		"grant_type": {grantType},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("calling token endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return model.AccessToken{}, &ExchangeError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.AccessToken{}, fmt.Errorf("decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return model.AccessToken{}, fmt.Errorf("token response contained no access_token")
	}

	expiresIn := time.Duration(payload.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = assertionLifetime
	}

	return model.AccessToken{
		Value:     payload.AccessToken,
		ExpiresAt: b.now().Add(expiresIn),
	}, nil
}

// buildAssertion produces the signed JWT-bearer assertion:
// base64url(header).base64url(claims).base64url(signature).
func (b *Broker) buildAssertion() (string, error) {
	now := b.now()
	claims := assertionClaims{
		Scope: b.scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    b.identity,
			Audience:  jwt.ClaimStrings{b.tokenURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signingString, err := token.SigningString()
	if err != nil {
		return "", fmt.Errorf("encoding assertion: %w", err)
	}

	sig, err := b.signer.Sign(signingString)
	if err != nil {
		return "", err
	}

	return signingString + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}
