package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crm/gateway/internal/domain/probe"
	"go.uber.org/zap"
)

const (
	// maxDiagnosticLen truncates upstream error bodies before they are
	// surfaced to callers
	maxDiagnosticLen = 200
	// maxResponseSize limits the response body read during a probe
	maxResponseSize = 1 << 20
)

// HTTPProber implements the probe.Prober port with a single HTTP round trip
// per call, driven entirely by the provider catalog.
type HTTPProber struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPProber creates a prober with the given timeout per call
func NewHTTPProber(timeout time.Duration, logger *zap.Logger) *HTTPProber {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProber{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Probe runs the one-shot connectivity check described by req.
// Connectivity and credential failures are reported in the Result; the
// error return only fires when the request cannot be dispatched at all.
func (p *HTTPProber) Probe(ctx context.Context, req probe.Request) (probe.Result, error) {
	spec, ok := providerCatalog[req.Provider]
	if !ok {
		return probe.Result{}, probe.ErrUnknownProvider
	}
	if spec.scheme != authNone && req.Credential == "" {
		return probe.Result{}, probe.ErrMissingCredential
	}

	probeURL, err := resolveURL(spec, req)
	if err != nil {
		return probe.Result{}, err
	}
	if spec.scheme == authQuery {
		sep := "?"
		if strings.Contains(probeURL, "?") {
			sep = "&"
		}
		probeURL += sep + spec.headerName + "=" + url.QueryEscape(req.Credential)
	}

	var body io.Reader
	if spec.payload != nil {
		raw, err := json.Marshal(spec.payload(req.Model))
		if err != nil {
			return probe.Result{}, err
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, spec.method, probeURL, body)
	if err != nil {
		return probe.Result{}, err
	}
	if spec.payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	switch spec.scheme {
	case authBearer:
		httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	case authHeader:
		httpReq.Header.Set(spec.headerName, req.Credential)
	}
	for name, value := range spec.extraHeaders {
		httpReq.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		p.logger.Debug("probe transport failure",
			zap.String("provider", req.Provider.String()),
			zap.Error(err))
		return probe.Result{
			Success: false,
			Error:   sanitizeDiagnostic(err.Error(), req.Credential),
			Latency: latency,
		}, nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Debug("probe rejected",
			zap.String("provider", req.Provider.String()),
			zap.Int("status", resp.StatusCode))
		return probe.Result{
			Success: false,
			Error:   sanitizeDiagnostic(resp.Status+": "+string(respBody), req.Credential),
			Latency: latency,
		}, nil
	}

	return probe.Result{Success: true, Latency: latency}, nil
}

// sanitizeDiagnostic truncates an upstream diagnostic and scrubs the
// credential in case the provider echoed it back
func sanitizeDiagnostic(msg, credential string) string {
	if credential != "" {
		msg = strings.ReplaceAll(msg, credential, "[redacted]")
	}
	msg = strings.TrimSpace(msg)
	if len(msg) > maxDiagnosticLen {
		msg = msg[:maxDiagnosticLen]
	}
	return msg
}
