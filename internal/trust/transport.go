package trust

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/metrics"
)

const maxResponseBytes = 4 << 20

type response struct {
	status int
	body   []byte
}

// upstreamError is the error body shape the gateway returns. It has been seen
// both as {"error": "msg"} and {"error": {"message": "msg"}}.
type upstreamError struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Details any             `json:"details"`
}

func (e upstreamError) message() string {
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil && s != "" {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	return e.Message
}

// do sends one JSON request, retrying transport errors and 5xx responses with
// exponential backoff. Non-2xx responses are mapped to domain errors; a 404
// becomes notFound when it is non-nil. Only use it for calls that are safe to
// repeat: reads and call preparation.
func (c *HTTPClient) do(ctx context.Context, target, op, method, url string, in, out any, notFound error) error {
	return c.roundTrip(ctx, target, op, method, url, in, out, notFound, c.maxTries)
}

// send is do with a single attempt, for gateway calls that may broadcast a
// transaction. A lost reply is reported as ErrUpstreamUnavailable and the
// caller has to check the chain before trying again.
func (c *HTTPClient) send(ctx context.Context, op, method, url string, in, out any, notFound error) error {
	return c.roundTrip(ctx, "gateway", op, method, url, in, out, notFound, 1)
}

func (c *HTTPClient) roundTrip(ctx context.Context, target, op, method, url string, in, out any, notFound error, tries uint) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	start := time.Now()
	resp, err := backoff.Retry(ctx, func() (response, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return response{}, backoff.Permanent(fmt.Errorf("build %s request: %w", op, err))
		}
		req.Header.Set("Accept", "application/json")
		if len(body) > 0 {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return response{}, fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, op, err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		if err != nil {
			return response{}, fmt.Errorf("%w: read %s response: %v", domain.ErrUpstreamUnavailable, op, err)
		}
		if httpResp.StatusCode >= 500 {
			return response{}, fmt.Errorf("%w: %s returned %d", domain.ErrUpstreamUnavailable, op, httpResp.StatusCode)
		}
		return response{status: httpResp.StatusCode, body: respBody}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
	metrics.ObserveUpstream(target, op, resp.status, time.Since(start))
	if err != nil {
		return err
	}

	if resp.status < 200 || resp.status > 299 {
		return mapStatus(op, resp, notFound)
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrUpstream, op, err)
	}
	return nil
}

func mapStatus(op string, resp response, notFound error) error {
	var ue upstreamError
	_ = json.Unmarshal(resp.body, &ue)
	msg := ue.message()

	switch {
	case resp.status == http.StatusNotFound && notFound != nil:
		if msg != "" {
			return fmt.Errorf("%w: %s", notFound, msg)
		}
		return notFound
	case resp.status == http.StatusBadRequest || resp.status == http.StatusUnprocessableEntity:
		if msg == "" {
			msg = op + " rejected by gateway"
		}
		return domain.NewAPIError(msg, resp.status, ue.Details)
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return fmt.Errorf("%w: %s: gateway rejected credentials (%d)", domain.ErrUpstream, op, resp.status)
	default:
		return fmt.Errorf("%w: %s returned %d", domain.ErrUpstream, op, resp.status)
	}
}

// gqlRequest is a GraphQL-over-HTTP request body.
type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// query runs a GraphQL query against the indexer and decodes data into out.
func (c *HTTPClient) query(ctx context.Context, op, query string, vars map[string]any, out any) error {
	var resp gqlResponse
	if err := c.do(ctx, "indexer", op, http.MethodPost, c.indexerURL, gqlRequest{Query: query, Variables: vars}, &resp, nil); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]error, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, errors.New(e.Message))
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrUpstream, op, errors.Join(msgs...))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("%w: %s: empty data", domain.ErrUpstream, op)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s data: %v", domain.ErrUpstream, op, err)
	}
	return nil
}
