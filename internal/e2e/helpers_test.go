package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hpsgateway/internal/httpapi"
	"hpsgateway/internal/manager"
)

// fakeTriton speaks the subset of the KServe v2 HTTP protocol the gateway uses.
type fakeTriton struct {
	srv      *httptest.Server
	notReady atomic.Bool
	calls    atomic.Int32
	// hold, when non-nil, blocks every infer call until closed or the
	// client goes away.
	hold chan struct{}
	// reply builds the envelope carried in the OUTPUT tensor.
	reply func(input map[string]any) map[string]any
	// status, when non-zero, is returned instead of a KServe response.
	status int
}

func newFakeTriton(t *testing.T) *fakeTriton {
	t.Helper()
	f := &fakeTriton{}
	mux := http.NewServeMux()
	readiness := func(w http.ResponseWriter, r *http.Request) {
		if f.notReady.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	mux.HandleFunc("GET /v2/health/ready", readiness)
	mux.HandleFunc("GET /v2/models/{model}/ready", readiness)
	mux.HandleFunc("POST /v2/models/{model}/infer", f.infer)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTriton) infer(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	var req struct {
		Inputs []struct {
			Name string   `json:"name"`
			Data []string `json:"data"`
		} `json:"inputs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Inputs) != 1 || len(req.Inputs[0].Data) != 1 {
		http.Error(w, "bad infer request", http.StatusBadRequest)
		return
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(req.Inputs[0].Data[0]), &input); err != nil {
		http.Error(w, "bad INPUT tensor", http.StatusBadRequest)
		return
	}
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-r.Context().Done():
			return
		}
	}
	if f.status != 0 {
		http.Error(w, "forced failure", f.status)
		return
	}
	env := map[string]any{"logId": input["logId"], "errorCode": 0, "errorMsg": "Success", "result": defaultResult()}
	if f.reply != nil {
		env = f.reply(input)
	}
	raw, _ := json.Marshal(env)
	resp := map[string]any{
		"model_name": r.PathValue("model"),
		"outputs": []map[string]any{{
			"name": "OUTPUT", "datatype": "BYTES", "shape": []int{1, 1}, "data": []string{string(raw)},
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func defaultResult() map[string]any {
	page := func(blocks ...map[string]any) map[string]any {
		return map[string]any{
			"prunedResult": map[string]any{"parsing_res_list": blocks},
			"markdown":     map[string]any{"text": "", "images": map[string]string{}},
		}
	}
	return map[string]any{
		"layoutParsingResults": []any{
			page(
				map[string]any{"block_label": "paragraph_title", "block_content": "1 Results"},
				map[string]any{"block_label": "table", "block_content": "<table><tr><td>a</td><td>1</td></tr></table>"},
			),
			page(
				map[string]any{"block_label": "table", "block_content": "<table><tr><td>b</td><td>2</td></tr></table>"},
				map[string]any{"block_label": "text", "block_content": "done"},
			),
		},
		"dataInfo": map[string]any{"type": "pdf", "numPages": 2},
	}
}

// newGateway wires a real manager and router to the fake backend.
func newGateway(t *testing.T, backendURL string, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	cfg.Backend = manager.NewTritonBackend(backendURL, time.Second)
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func pngFile(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type envelope struct {
	LogID     string          `json:"logId"`
	ErrorCode int             `json:"errorCode"`
	ErrorMsg  string          `json:"errorMsg"`
	ErrorType string          `json:"errorType"`
	Result    json.RawMessage `json:"result"`
}

func httpGet(t *testing.T, url string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func httpPostJSON(t *testing.T, url string, payload any) (*http.Response, envelope) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	var env envelope
	if len(body) > 0 && req.URL.Path != "/metrics" {
		if err := json.Unmarshal(body, &env); err != nil {
			t.Fatalf("%s: decode body: %v: %s", req.URL.Path, err, body)
		}
	}
	return resp, env
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
