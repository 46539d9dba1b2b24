package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	tritonInputName  = "INPUT"
	tritonOutputName = "OUTPUT"
	// Upper bound on a backend response body. Layout results embed page
	// images, so this is generous.
	maxBackendResponseBytes = 512 << 20
)

// tritonAdapter implements Backend by talking to a Triton inference server
// over the KServe v2 HTTP protocol. The model takes one BYTES tensor holding
// the JSON request and answers with one BYTES tensor holding a JSON envelope.
type tritonAdapter struct {
	baseURL    string
	httpClient *http.Client
}

// NewTritonBackend constructs a Backend for the server at baseURL.
func NewTritonBackend(baseURL string, connectTimeout time.Duration) Backend {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: every request carries its deadline in the context.
	return newTritonAdapter(baseURL, &http.Client{Transport: tr, Timeout: 0})
}

func newTritonAdapter(baseURL string, cli *http.Client) *tritonAdapter {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &tritonAdapter{baseURL: base, httpClient: cli}
}

// BaseURL is the normalised server address.
func (a *tritonAdapter) BaseURL() string { return a.baseURL }

// kserveTensor is one input or output tensor of a KServe v2 call.
type kserveTensor struct {
	Name     string   `json:"name"`
	Shape    []int    `json:"shape,omitempty"`
	Datatype string   `json:"datatype,omitempty"`
	Data     []string `json:"data,omitempty"`
}

type kserveInferRequest struct {
	ID      string         `json:"id,omitempty"`
	Inputs  []kserveTensor `json:"inputs"`
	Outputs []kserveTensor `json:"outputs"`
}

type kserveInferResponse struct {
	ModelName string         `json:"model_name"`
	Outputs   []kserveTensor `json:"outputs"`
	Error     string         `json:"error"`
}

// backendEnvelope is the JSON document carried in the OUTPUT tensor.
type backendEnvelope struct {
	LogID     string          `json:"logId"`
	ErrorCode int             `json:"errorCode"`
	ErrorMsg  string          `json:"errorMsg"`
	Result    json.RawMessage `json:"result"`
}

func (a *tritonAdapter) Infer(ctx context.Context, model string, req *InferenceRequest) (json.RawMessage, error) {
	if a == nil || a.httpClient == nil {
		return nil, newError(KindBackendUnavailable, "triton backend not initialized")
	}
	input, err := json.Marshal(req)
	if err != nil {
		return nil, wrapError(KindBackendInternal, err, "encode backend input")
	}
	payload, err := json.Marshal(kserveInferRequest{
		ID: req.LogID,
		Inputs: []kserveTensor{{
			Name:     tritonInputName,
			Shape:    []int{1, 1},
			Datatype: "BYTES",
			Data:     []string{string(input)},
		}},
		Outputs: []kserveTensor{{Name: tritonOutputName}},
	})
	if err != nil {
		return nil, wrapError(KindBackendInternal, err, "encode infer request")
	}
	endpoint := a.baseURL + "/v2/models/" + url.PathEscape(model) + "/infer"
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, wrapError(KindBackendUnavailable, err, "build infer request")
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(hreq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBackendResponseBytes+1))
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if len(body) > maxBackendResponseBytes {
		return nil, newError(KindBackendInternal, "backend response exceeds %d bytes", maxBackendResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpStatusError(resp.StatusCode, resp.Status, body)
	}
	var kr kserveInferResponse
	if err := json.Unmarshal(body, &kr); err != nil {
		return nil, wrapError(KindBackendInternal, err, "decode infer response")
	}
	var raw string
	for _, o := range kr.Outputs {
		if o.Name == tritonOutputName && len(o.Data) > 0 {
			raw = o.Data[0]
			break
		}
	}
	if raw == "" {
		return nil, newError(KindBackendInternal, "infer response has no %s tensor", tritonOutputName)
	}
	var env backendEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, wrapError(KindBackendInternal, err, "decode backend envelope")
	}
	if env.ErrorCode != 0 {
		return nil, envelopeError(env.ErrorCode, env.ErrorMsg)
	}
	if ctx.Err() != nil {
		return nil, wrapError(KindCancelled, ctx.Err(), "infer cancelled")
	}
	return env.Result, nil
}

func (a *tritonAdapter) ServerReady(ctx context.Context) error {
	return a.probe(ctx, a.baseURL+"/v2/health/ready")
}

func (a *tritonAdapter) ModelReady(ctx context.Context, model string) error {
	return a.probe(ctx, a.baseURL+"/v2/models/"+url.PathEscape(model)+"/ready")
}

func (a *tritonAdapter) probe(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return wrapError(KindBackendUnavailable, err, "build probe")
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return newError(KindBackendUnavailable, "%s: %s", endpoint, resp.Status)
	}
	return nil
}

// transportError classifies a failed round trip.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		cause := ctx.Err()
		if cause == nil {
			cause = err
		}
		return wrapError(KindCancelled, cause, "backend call cancelled")
	}
	return wrapError(KindBackendUnavailable, err, "backend unreachable")
}

func overloadMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "resource_exhausted") || strings.Contains(m, "out of memory") || strings.Contains(m, "resource exhausted")
}

// httpStatusError classifies a non-2xx KServe response.
func httpStatusError(code int, status string, body []byte) error {
	var kr kserveInferResponse
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &kr) == nil && kr.Error != "" {
		msg = kr.Error
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}
	switch {
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable || overloadMessage(msg):
		return newError(KindBackendOverloaded, "backend overloaded: %s: %s", status, msg)
	case code == http.StatusNotFound:
		return newError(KindBackendUnavailable, "backend model unavailable: %s: %s", status, msg)
	default:
		return newError(KindBackendInternal, "backend error: %s: %s", status, msg)
	}
}

// envelopeError classifies a non-zero errorCode reported by the pipeline.
func envelopeError(code int, msg string) error {
	if msg == "" {
		msg = "unknown error"
	}
	switch {
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable || overloadMessage(msg):
		return newError(KindBackendOverloaded, "backend overloaded (%d): %s", code, msg)
	case code >= 400 && code < 500:
		return newError(KindBackendInternal, "backend rejected request (%d): %s", code, msg)
	default:
		return newError(KindBackendInternal, "backend error (%d): %s", code, msg)
	}
}
