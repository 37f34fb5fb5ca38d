// Package remote implements the Store port against the external persistence
// service over authenticated HTTP. Every request carries a bearer token from
// an oauth2 token source; without a valid identity no request is attempted.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"finvoice/internal/core"
	"finvoice/internal/store"
)

type Client struct {
	baseURL string
	http    *http.Client
	tokens  oauth2.TokenSource
}

var _ store.Store = (*Client)(nil)

// New creates a remote store client. tokens must yield valid bearer tokens
// for the persistence service; a nil source makes every call fail with
// ErrNotAuthenticated.
func New(baseURL string, tokens oauth2.TokenSource) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("missing persistence service URL")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid persistence service URL: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
	}, nil
}

// StaticToken wraps a fixed bearer token as a token source. An empty token
// yields a nil source, leaving the client unauthenticated.
func StaticToken(token string) oauth2.TokenSource {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

// NewFromEnv creates a client from FINVOICE_REMOTE_URL and a static token in
// FINVOICE_REMOTE_TOKEN. Used by binaries; tests and richer deployments
// construct via New with a refreshing token source.
func NewFromEnv() (*Client, error) {
	return New(os.Getenv("FINVOICE_REMOTE_URL"), StaticToken(os.Getenv("FINVOICE_REMOTE_TOKEN")))
}

func (c *Client) collectionURL(col core.Collection) string {
	return c.baseURL + "/api/" + string(col)
}

// do issues one authenticated request and decodes a JSON response into out
// (when out is non-nil). 401/403 map to ErrNotAuthenticated, 404 to a
// NotFoundError, other non-2xx statuses to a StoreError.
func (c *Client) do(ctx context.Context, method string, col core.Collection, id string, body, out any) error {
	if c.tokens == nil {
		return core.ErrNotAuthenticated
	}
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrNotAuthenticated, err)
	}

	reqURL := c.collectionURL(col)
	if id != "" {
		reqURL += "?id=" + url.QueryEscape(id)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	token.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &core.StoreError{Op: method + " " + string(col), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return core.ErrNotAuthenticated
	case resp.StatusCode == http.StatusNotFound:
		return &core.NotFoundError{Collection: col, ID: id}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &core.StoreError{
			Op:  method + " " + string(col),
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &core.StoreError{Op: method + " " + string(col), Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// The persistence service scopes records to the authenticated caller, so the
// explicit userID is not transmitted; the identity in the bearer token wins.

func (c *Client) ListExpenses(ctx context.Context, _ string) ([]core.Expense, error) {
	var out []core.Expense
	if err := c.do(ctx, http.MethodGet, core.CollectionExpenses, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	items, err := c.ListExpenses(ctx, userID)
	if err != nil {
		return core.Expense{}, err
	}
	for _, e := range items {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, &core.NotFoundError{Collection: core.CollectionExpenses, ID: id}
}

func (c *Client) InsertExpense(ctx context.Context, _ string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	var out core.Expense
	if err := c.do(ctx, http.MethodPost, core.CollectionExpenses, "", e, &out); err != nil {
		return core.Expense{}, err
	}
	return out, nil
}

func (c *Client) UpdateExpense(ctx context.Context, _ string, e core.Expense) (core.Expense, error) {
	var out core.Expense
	if err := c.do(ctx, http.MethodPut, core.CollectionExpenses, e.ID, e, &out); err != nil {
		return core.Expense{}, err
	}
	return out, nil
}

func (c *Client) DeleteExpense(ctx context.Context, _ string, id string) error {
	return c.do(ctx, http.MethodDelete, core.CollectionExpenses, id, nil, nil)
}

func (c *Client) ListBudgets(ctx context.Context, _ string) ([]core.Budget, error) {
	var out []core.Budget
	if err := c.do(ctx, http.MethodGet, core.CollectionBudgets, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	items, err := c.ListBudgets(ctx, userID)
	if err != nil {
		return core.Budget{}, err
	}
	for _, b := range items {
		if b.ID == id {
			return b, nil
		}
	}
	return core.Budget{}, &core.NotFoundError{Collection: core.CollectionBudgets, ID: id}
}

func (c *Client) InsertBudget(ctx context.Context, _ string, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	var out core.Budget
	if err := c.do(ctx, http.MethodPost, core.CollectionBudgets, "", b, &out); err != nil {
		return core.Budget{}, err
	}
	return out, nil
}

func (c *Client) UpdateBudget(ctx context.Context, _ string, b core.Budget) (core.Budget, error) {
	var out core.Budget
	if err := c.do(ctx, http.MethodPut, core.CollectionBudgets, b.ID, b, &out); err != nil {
		return core.Budget{}, err
	}
	return out, nil
}

func (c *Client) DeleteBudget(ctx context.Context, _ string, id string) error {
	return c.do(ctx, http.MethodDelete, core.CollectionBudgets, id, nil, nil)
}

func (c *Client) ListGoals(ctx context.Context, _ string) ([]core.Goal, error) {
	var out []core.Goal
	if err := c.do(ctx, http.MethodGet, core.CollectionGoals, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetGoal(ctx context.Context, userID, id string) (core.Goal, error) {
	items, err := c.ListGoals(ctx, userID)
	if err != nil {
		return core.Goal{}, err
	}
	for _, g := range items {
		if g.ID == id {
			return g, nil
		}
	}
	return core.Goal{}, &core.NotFoundError{Collection: core.CollectionGoals, ID: id}
}

func (c *Client) InsertGoal(ctx context.Context, _ string, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	var out core.Goal
	if err := c.do(ctx, http.MethodPost, core.CollectionGoals, "", g, &out); err != nil {
		return core.Goal{}, err
	}
	return out, nil
}

func (c *Client) UpdateGoal(ctx context.Context, _ string, g core.Goal) (core.Goal, error) {
	var out core.Goal
	if err := c.do(ctx, http.MethodPut, core.CollectionGoals, g.ID, g, &out); err != nil {
		return core.Goal{}, err
	}
	return out, nil
}

func (c *Client) DeleteGoal(ctx context.Context, _ string, id string) error {
	return c.do(ctx, http.MethodDelete, core.CollectionGoals, id, nil, nil)
}

func (c *Client) ListInvestments(ctx context.Context, _ string) ([]core.Investment, error) {
	var out []core.Investment
	if err := c.do(ctx, http.MethodGet, core.CollectionInvestments, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InsertInvestment(ctx context.Context, _ string, inv core.Investment) (core.Investment, error) {
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}
	var out core.Investment
	if err := c.do(ctx, http.MethodPost, core.CollectionInvestments, "", inv, &out); err != nil {
		return core.Investment{}, err
	}
	return out, nil
}

func (c *Client) UpdateInvestment(ctx context.Context, _ string, inv core.Investment) (core.Investment, error) {
	var out core.Investment
	if err := c.do(ctx, http.MethodPut, core.CollectionInvestments, inv.ID, inv, &out); err != nil {
		return core.Investment{}, err
	}
	return out, nil
}

func (c *Client) DeleteInvestment(ctx context.Context, _ string, id string) error {
	return c.do(ctx, http.MethodDelete, core.CollectionInvestments, id, nil, nil)
}

func (c *Client) ListCards(ctx context.Context, _ string) ([]core.Card, error) {
	var out []core.Card
	if err := c.do(ctx, http.MethodGet, core.CollectionCards, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InsertCard(ctx context.Context, _ string, card core.Card) (core.Card, error) {
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}
	var out core.Card
	if err := c.do(ctx, http.MethodPost, core.CollectionCards, "", card, &out); err != nil {
		return core.Card{}, err
	}
	return out, nil
}

func (c *Client) UpdateCard(ctx context.Context, _ string, card core.Card) (core.Card, error) {
	var out core.Card
	if err := c.do(ctx, http.MethodPut, core.CollectionCards, card.ID, card, &out); err != nil {
		return core.Card{}, err
	}
	return out, nil
}

func (c *Client) DeleteCard(ctx context.Context, _ string, id string) error {
	return c.do(ctx, http.MethodDelete, core.CollectionCards, id, nil, nil)
}
