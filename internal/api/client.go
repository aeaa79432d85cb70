// Package api reads weekly timetable slots from the scheduling REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"weekgrid/internal/fetch"
	"weekgrid/internal/model"
)

// ErrUnauthorized is returned when the API rejects the configured token.
var ErrUnauthorized = errors.New("api: unauthorized")

// Getter is the part of fetch.Fetcher the client needs.
type Getter interface {
	Get(ctx context.Context, req fetch.Request) (fetch.Result, error)
}

// Client talks to GET {base}/timetable/slots.
type Client struct {
	base   string
	token  string
	getter Getter
}

// NewClient returns a client for baseURL. An empty baseURL yields a nil
// client; callers treat that as "API source disabled".
func NewClient(baseURL, token string, g Getter) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &Client{base: baseURL, token: token, getter: g}
}

// slotsEnvelope is the wrapped response shape; bare arrays are accepted too.
type slotsEnvelope struct {
	Data []model.Slot `json:"data"`
}

// WeekSlots returns the slots of entity ("group:cs-101") for an ISO week
// ("2025-W11").
func (c *Client) WeekSlots(ctx context.Context, entity, week string) ([]model.Slot, error) {
	q := url.Values{}
	q.Set("entity", entity)
	q.Set("week", week)

	res, err := c.getter.Get(ctx, fetch.Request{
		Name:   "api",
		URL:    c.base + "/timetable/slots?" + q.Encode(),
		Token:  c.token,
		Accept: "application/json",
	})
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, se.Status)
		}
		return nil, fmt.Errorf("api: week slots for %s %s: %w", entity, week, err)
	}

	return decodeSlots(res.Body)
}

func decodeSlots(body []byte) ([]model.Slot, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []model.Slot{}, nil
	}

	if body[0] == '[' {
		var slots []model.Slot
		if err := json.Unmarshal(body, &slots); err != nil {
			return nil, fmt.Errorf("api: decode slots: %w", err)
		}
		return slots, nil
	}

	var env slotsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("api: decode slots: %w", err)
	}
	if env.Data == nil {
		env.Data = []model.Slot{}
	}
	return env.Data, nil
}
