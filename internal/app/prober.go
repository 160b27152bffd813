package app

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/raysh454/headprobe/internal/history"
	"github.com/raysh454/headprobe/internal/logging"
	"github.com/raysh454/headprobe/internal/urlnet"
	"github.com/raysh454/headprobe/internal/webclient"
)

// Prober runs HEAD probes and records them in history when a store is set.
// It is safe for concurrent use.
type Prober struct {
	cfg    urlnet.Config
	client webclient.WebClient
	store  *history.Store
	logger logging.Logger
}

// NewProber wires a Prober. store may be nil.
func NewProber(cfg urlnet.Config, client webclient.WebClient, store *history.Store, logger logging.Logger) *Prober {
	return &Prober{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: logger.With(logging.Field{Key: "component", Value: "prober"}),
	}
}

// Probe issues a HEAD request for rawURL with params and returns the
// resulting record. The header document is in rec.Document.
func (p *Prober) Probe(ctx context.Context, rawURL string, params urlnet.Params, listener urlnet.Listener) (*history.Record, error) {
	target, err := urlnet.ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	rc := &recordingClient{WebClient: p.client}
	var doc bytes.Buffer
	if err := urlnet.NewNetwork(p.cfg, target, urlnet.Head(), rc, p.logger).
		Execute(ctx, params, &doc, listener); err != nil {
		return nil, err
	}

	rec := &history.Record{
		URL:      target.String(),
		Method:   urlnet.Head().Method,
		Document: doc.Bytes(),
	}
	if resp := rc.last(); resp != nil {
		if resp.Request != nil {
			rec.URL = resp.Request.URL
		}
		rec.StatusCode = resp.StatusCode
		rec.FinalURL = resp.FinalURL
	}

	if p.store != nil {
		if err := p.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("recording probe: %w", err)
		}
	}
	return rec, nil
}

// History returns the configured store, or nil.
func (p *Prober) History() *history.Store { return p.store }

// recordingClient remembers the last response it passed through.
type recordingClient struct {
	webclient.WebClient

	mu   sync.Mutex
	resp *webclient.Response
}

func (r *recordingClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	resp, err := r.WebClient.Do(ctx, req)
	if err == nil {
		r.mu.Lock()
		r.resp = resp
		r.mu.Unlock()
	}
	return resp, err
}

func (r *recordingClient) last() *webclient.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resp
}
