// Package smartling is a client for the Smartling machine-translation
// router API, with a process-lifetime bearer-token cache.
package smartling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the production Smartling API endpoint.
const DefaultBaseURL = "https://api.smartling.com"

// requestTimeout bounds each round trip to the API.
const requestTimeout = 10 * time.Second

// tokenSlack refreshes the token one minute before the server-reported
// expiry to avoid racing it.
const tokenSlack = time.Minute

// Client translates single strings through the Smartling MT router API.
// The access token lives in the client for the warm lifetime of the
// process; refresh is serialized so that any number of callers observing
// a stale token cause exactly one authentication round trip.
type Client struct {
	userID     string
	userSecret string
	accountUID string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a client for the given Smartling account.
func New(userID, userSecret, accountUID string) *Client {
	return &Client{
		userID:     userID,
		userSecret: userSecret,
		accountUID: accountUID,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "smartling",
		}),
	}
}

// NewWithBaseURL creates a client pointed at an alternate endpoint.
func NewWithBaseURL(userID, userSecret, accountUID, baseURL string) *Client {
	c := New(userID, userSecret, accountUID)
	c.baseURL = baseURL
	return c
}

type authRequest struct {
	UserIdentifier string `json:"userIdentifier"`
	UserSecret     string `json:"userSecret"`
}

type authResponse struct {
	Response struct {
		Data struct {
			AccessToken string `json:"accessToken"`
			ExpiresIn   int    `json:"expiresIn"`
		} `json:"data"`
	} `json:"response"`
}

type mtRequest struct {
	SourceLocaleID string   `json:"sourceLocaleId"`
	TargetLocaleID string   `json:"targetLocaleId"`
	Items          []mtItem `json:"items"`
}

type mtItem struct {
	Key        string `json:"key"`
	SourceText string `json:"sourceText"`
}

type mtResponse struct {
	Response struct {
		Data struct {
			Items []struct {
				Key             string `json:"key"`
				TranslationText string `json:"translationText"`
			} `json:"items"`
		} `json:"data"`
	} `json:"response"`
}

// Authenticate forces a token refresh, verifying the credentials.
func (c *Client) Authenticate(ctx context.Context) error {
	c.invalidate()
	_, err := c.getToken(ctx)
	return err
}

// getToken returns the cached token, refreshing it first when absent or
// expired. The mutex is held across the refresh round trip so concurrent
// callers that all see the stale token wait for the one refresh instead
// of issuing their own.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.token != "" && now.Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := json.Marshal(authRequest{
		UserIdentifier: c.userID,
		UserSecret:     c.userSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	status, respBody, err := c.post(ctx, c.baseURL+"/auth-api/v2/authenticate", "", body)
	if err != nil {
		return "", fmt.Errorf("authentication request failed: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("authentication rejected: status %d: %s", status, respBody)
	}

	var auth authResponse
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return "", fmt.Errorf("failed to parse auth response: %w", err)
	}
	if auth.Response.Data.AccessToken == "" {
		return "", fmt.Errorf("auth response contained no access token")
	}

	c.token = auth.Response.Data.AccessToken
	c.tokenExpiry = now.Add(time.Duration(auth.Response.Data.ExpiresIn)*time.Second - tokenSlack)

	return c.token, nil
}

// invalidate drops the cached token so the next caller refreshes it.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// Translate translates one English string into the target language.
// A 401 is retried once with a fresh token, covering the race where the
// token expires between acquisition and use.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	translated, status, err := c.translateOnce(ctx, text, targetLang)
	if status == http.StatusUnauthorized {
		c.invalidate()
		translated, _, err = c.translateOnce(ctx, text, targetLang)
	}
	return translated, err
}

func (c *Client) translateOnce(ctx context.Context, text, targetLang string) (string, int, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return "", 0, err
	}

	body, err := json.Marshal(mtRequest{
		SourceLocaleID: "en",
		TargetLocaleID: targetLang,
		Items:          []mtItem{{Key: "0", SourceText: text}},
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal translation request: %w", err)
	}

	url := fmt.Sprintf("%s/mt-router-api/v2/accounts/%s/smartling-mt", c.baseURL, c.accountUID)
	status, respBody, err := c.post(ctx, url, token, body)
	if err != nil {
		return "", status, fmt.Errorf("translation request failed: %w", err)
	}
	if status != http.StatusOK {
		return "", status, fmt.Errorf("translation rejected: status %d: %s", status, respBody)
	}

	var mt mtResponse
	if err := json.Unmarshal(respBody, &mt); err != nil {
		return "", status, fmt.Errorf("failed to parse translation response: %w", err)
	}
	if len(mt.Response.Data.Items) == 0 {
		return "", status, fmt.Errorf("translation response contained no items")
	}

	return mt.Response.Data.Items[0].TranslationText, status, nil
}

type postResult struct {
	status int
	body   []byte
}

// post issues one JSON POST through the circuit breaker. Transport errors
// and 5xx responses count against the breaker; 4xx responses are returned
// to the caller as ordinary statuses.
func (c *Client) post(ctx context.Context, url, bearer string, body []byte) (int, []byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return postResult{status: resp.StatusCode, body: respBody},
				fmt.Errorf("server error: status %d", resp.StatusCode)
		}
		return postResult{status: resp.StatusCode, body: respBody}, nil
	})
	if err != nil {
		if r, ok := result.(postResult); ok {
			return r.status, r.body, err
		}
		return 0, nil, err
	}

	r := result.(postResult)
	return r.status, r.body, nil
}
