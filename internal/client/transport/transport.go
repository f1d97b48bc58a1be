// Package transport wraps the HTTP client with the credential and renewal
// interceptors: every outbound request carries the current bearer token, and
// a 401 response triggers at most one token renewal followed by a single
// re-dispatch of the same request.
package transport

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"
)

type ctxKey int

const (
	retriedKey ctxKey = iota // request already went through one renewal retry
	exemptKey                // request must never trigger renewal (the renewal call itself)
)

// WithRenewalExempt marks a context so that 401 responses pass through
// untouched. The renewal endpoint uses it: renewing the renewal call would
// recurse forever.
func WithRenewalExempt(ctx context.Context) context.Context {
	return context.WithValue(ctx, exemptKey, true)
}

func flagged(ctx context.Context, key ctxKey) bool {
	v, _ := ctx.Value(key).(bool)
	return v
}

// TokenFunc returns the current access token, or "" when anonymous.
type TokenFunc func() string

// RenewFunc exchanges the session's credentials for a fresh access token.
type RenewFunc func(ctx context.Context) error

// Bearer is the outbound hook: it attaches the live token at dispatch time.
// It never waits for a fresher token.
type Bearer struct {
	Base  http.RoundTripper
	Token TokenFunc
}

// RoundTrip attaches the bearer credential and forwards the request.
func (b *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	if tok := b.Token(); tok != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return b.Base.RoundTrip(req)
}

// Renewal is the inbound hook: it watches for 401 responses and renews the
// token once per original request. A renewed-and-still-401 request, or any
// network-level error, passes through without another attempt.
type Renewal struct {
	Base http.RoundTripper // usually a *Bearer

	Renew RenewFunc
	// OnRenewalFailure tears the session down (logout) when renewal fails.
	OnRenewalFailure func()

	Log *zap.Logger
}

// RoundTrip dispatches the request and applies the retry-once renewal rule.
func (r *Renewal) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.Base.RoundTrip(req)
	if err != nil {
		// timeouts and transport faults are network failures, never a
		// reason to renew
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	ctx := req.Context()
	if flagged(ctx, exemptKey) || flagged(ctx, retriedKey) {
		// at most one renewal attempt per original request
		return resp, nil
	}

	retry, ok := cloneForRetry(req)
	if !ok {
		// body cannot be replayed; surface the 401 as-is
		return resp, nil
	}

	if rerr := r.Renew(ctx); rerr != nil {
		if r.Log != nil {
			r.Log.Warn("token renewal failed", zap.Error(rerr))
		}
		if r.OnRenewalFailure != nil {
			r.OnRenewalFailure()
		}
		// propagate the original authorization failure
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	// re-dispatch through ourselves so the marker check applies to the
	// retried request too
	return r.RoundTrip(retry)
}

// cloneForRetry builds the single-retry copy of the request, tagged with the
// retry marker. Requests whose body cannot be re-read are not retryable.
func cloneForRetry(req *http.Request) (*http.Request, bool) {
	if req.Body != nil && req.GetBody == nil {
		return nil, false
	}
	clone := req.Clone(context.WithValue(req.Context(), retriedKey, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, false
		}
		clone.Body = body
	}
	return clone, true
}

// New assembles the full chain: renewal over bearer over base.
func New(base http.RoundTripper, token TokenFunc, renew RenewFunc, onRenewalFailure func(), log *zap.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Renewal{
		Base:             &Bearer{Base: base, Token: token},
		Renew:            renew,
		OnRenewalFailure: onRenewalFailure,
		Log:              log,
	}
}
