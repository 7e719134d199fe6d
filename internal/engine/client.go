/*
PURPOSE:
  HTTP adapter for the flame evaluator sidecar. Implements Solver and Chemistry on top of
  a small JSON protocol so the reduction loop never links against a combustion library.

REQUIREMENTS:
  User-specified:
  - Construct solution objects from a mechanism document.
  - Evaluate freely propagating flames and HP equilibria.

  Implementation-discovered:
  - Flame solves can take minutes; needs a long overall timeout but a short dial timeout.
  - Sidecar restarts and 5xx answers are transient and worth retrying.
  - 4xx answers mean the request itself is wrong (bad mechanism); retrying cannot help.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/engine/reducer.go (via Solver)
  - Uses: internal/config, internal/mechanism, internal/model, internal/output

ERROR HANDLING:
  - Transient failures are retried with exponential backoff (cenkalti/backoff/v4).
  - 4xx is permanent; on solution construction it becomes a *StructuralError.
  - Retries stop as soon as the context is done.

IMPLEMENTATION RULES:
  - Use net/http with a cloned default transport.
  - Every request carries the caller's context.
  - The mechanism travels as YAML text, exactly as mechanism.Document.Marshal emits it.

USAGE:
  c := engine.New(cfg)
  chem, err := c.NewChemistry(ctx, doc, "gri30", "mixture-averaged")

SELF-HEALING INSTRUCTIONS:
  - If the sidecar protocol changes, update the endpoint paths in this file only.

RELATED FILES:
  - internal/engine/evaluator.go
  - internal/config/config.go

MAINTENANCE:
  - Update for new evaluator endpoints.
*/

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/daryltucker/flame-speed/internal/config"
	"github.com/daryltucker/flame-speed/internal/mechanism"
	"github.com/daryltucker/flame-speed/internal/model"
	"github.com/daryltucker/flame-speed/internal/output"
)

// HTTPError is a non-2xx answer from the evaluator.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("evaluator answered %d: %s", e.StatusCode, e.Message)
}

// Client talks to the evaluator sidecar.
type Client struct {
	BaseURL    string
	HTTP       *http.Client
	MaxRetries int
	RetryDelay time.Duration
}

// New creates a Client from the configuration.
func New(cfg *config.Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// The sidecar only answers once the flame has converged, so headers may take as long as
	// the whole solve.
	transport.ResponseHeaderTimeout = cfg.Client.RequestTimeout

	return &Client{
		BaseURL: strings.TrimRight(cfg.EvaluatorURL, "/"),
		HTTP: &http.Client{
			Transport: transport,
			Timeout:   cfg.Client.RequestTimeout,
		},
		MaxRetries: cfg.Client.MaxRetries,
		RetryDelay: cfg.Client.RetryDelay,
	}
}

type solutionRequest struct {
	Phase     string `json:"phase"`
	Transport string `json:"transport"`
	Mechanism string `json:"mechanism"`
}

type solutionResponse struct {
	ID        string `json:"id"`
	Species   int    `json:"species"`
	Reactions int    `json:"reactions"`
}

// NewChemistry uploads a mechanism and returns a handle to the solution object built from it.
func (c *Client) NewChemistry(ctx context.Context, doc *mechanism.Document, phase, transport string) (Chemistry, error) {
	text, err := doc.Marshal()
	if err != nil {
		return nil, &StructuralError{Err: err}
	}

	var resp solutionResponse
	err = c.do(ctx, http.MethodPost, "/api/solutions", solutionRequest{
		Phase:     phase,
		Transport: transport,
		Mechanism: string(text),
	}, &resp)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
			return nil, &StructuralError{Err: httpErr}
		}
		return nil, fmt.Errorf("failed to create solution: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("failed to create solution: evaluator returned no id")
	}

	output.Logger.Debug("Solution created", "id", resp.ID, "species", resp.Species, "reactions", resp.Reactions)
	return &remoteChemistry{
		client:    c,
		id:        resp.ID,
		species:   resp.Species,
		reactions: resp.Reactions,
	}, nil
}

// do sends one JSON request, retrying transient failures.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			output.Logger.Debug("Network: Connected", "remote", info.Conn.RemoteAddr(), "reused", info.Reused)
		},
	}
	traced := httptrace.WithClientTrace(ctx, trace)

	attempt := func() error {
		req, err := http.NewRequestWithContext(traced, method, c.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("network/connection error: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= 500 {
			return &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(&HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(data)})
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return backoff.Permanent(fmt.Errorf("evaluator returned invalid JSON: %w (body: %s)", err, string(data)))
			}
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	if c.RetryDelay > 0 {
		policy.InitialInterval = c.RetryDelay
	}
	policy.MaxElapsedTime = 0

	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)

	return backoff.RetryNotify(attempt, b, func(err error, wait time.Duration) {
		output.Logger.Warn("Retrying evaluator request", "path", path, "error", err, "wait", wait)
	})
}

// errorMessage extracts {"error": "..."} from a failed answer, falling back to the raw body.
func errorMessage(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

// remoteChemistry is a solution object living in the sidecar.
type remoteChemistry struct {
	client    *Client
	id        string
	species   int
	reactions int
}

func (r *remoteChemistry) NumSpecies() int   { return r.species }
func (r *remoteChemistry) NumReactions() int { return r.reactions }

func (r *remoteChemistry) path(op string) string {
	return "/api/solutions/" + r.id + op
}

func (r *remoteChemistry) MixtureFraction(ctx context.Context, fuel, oxidizer string, phi float64) (float64, error) {
	var resp struct {
		MixtureFraction float64 `json:"mixture_fraction"`
	}
	err := r.client.do(ctx, http.MethodPost, r.path("/mixture-fraction"), map[string]any{
		"fuel":              fuel,
		"oxidizer":          oxidizer,
		"equivalence_ratio": phi,
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("failed to compute mixture fraction: %w", err)
	}
	return resp.MixtureFraction, nil
}

func (r *remoteChemistry) Equilibrate(ctx context.Context, cond model.Conditions) (Equilibrium, error) {
	var eq Equilibrium
	err := r.client.do(ctx, http.MethodPost, r.path("/equilibrate"), map[string]any{
		"conditions": cond,
		"basis":      "HP",
	}, &eq)
	if err != nil {
		return Equilibrium{}, fmt.Errorf("failed to equilibrate: %w", err)
	}
	return eq, nil
}

func (r *remoteChemistry) Flame(ctx context.Context, cond model.Conditions) (FlameProfile, error) {
	var prof FlameProfile
	err := r.client.do(ctx, http.MethodPost, r.path("/flame"), map[string]any{
		"conditions": cond,
	}, &prof)
	if err != nil {
		return FlameProfile{}, fmt.Errorf("failed to solve flame: %w", err)
	}
	return prof, nil
}

func (r *remoteChemistry) Close(ctx context.Context) error {
	if err := r.client.do(ctx, http.MethodDelete, r.path(""), nil, nil); err != nil {
		return fmt.Errorf("failed to release solution %s: %w", r.id, err)
	}
	return nil
}
