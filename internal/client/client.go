// Package client assembles the pieces of the reading client: the credential
// store, the session controller, the interceptor chain and the feed.
package client

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Isma450/inkpost/internal/client/api"
	"github.com/Isma450/inkpost/internal/client/creds"
	"github.com/Isma450/inkpost/internal/client/feed"
	"github.com/Isma450/inkpost/internal/client/session"
	"github.com/Isma450/inkpost/internal/client/transport"
)

// Client bundles the session controller and the feed behind one handle.
type Client struct {
	Session *session.Controller
	Feed    *feed.Feed
	API     *api.Client
}

// Options tune the assembly; zero values fall back to defaults.
type Options struct {
	BaseURL  string
	CredsDir string        // default: creds.DefaultDir()
	Timeout  time.Duration // default: 10s
	Log      *zap.Logger   // default: zap.NewNop()
}

// New wires the whole client. Order matters: the controller exists before
// the transport so the interceptors can close over it, and the API client
// is bound back into the controller last.
func New(opts Options) *Client {
	if opts.CredsDir == "" {
		opts.CredsDir = creds.DefaultDir()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	store := creds.NewFileStore(opts.CredsDir)
	ctrl := session.NewController(store, opts.Log)

	rt := transport.New(
		nil,
		ctrl.Token,
		func(ctx context.Context) error { return ctrl.Renew(ctx) },
		// renewal failed: the stored refresh credential is dead, tear
		// down locally without another network round-trip
		ctrl.Expire,
		opts.Log,
	)

	apiClient := api.New(opts.BaseURL, &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
	})
	ctrl.Bind(apiClient)

	return &Client{
		Session: ctrl,
		Feed:    feed.New(apiClient, ctrl, opts.Log),
		API:     apiClient,
	}
}
