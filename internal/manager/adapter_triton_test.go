package manager

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// tritonReply writes a KServe v2 infer response carrying envelope in OUTPUT.
func tritonReply(w http.ResponseWriter, envelope string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(kserveInferResponse{
		ModelName: LayoutParsingModel,
		Outputs:   []kserveTensor{{Name: tritonOutputName, Datatype: "BYTES", Shape: []int{1, 1}, Data: []string{envelope}}},
	})
}

func testInferenceRequest() *InferenceRequest {
	return &InferenceRequest{
		File:     "aGVsbG8=",
		Size:     5,
		FileType: 1,
		LogID:    "log-1",
		Options:  map[string]json.RawMessage{"useLayoutDetection": json.RawMessage("true")},
	}
}

func TestTritonAdapter_InferSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/models/layout-parsing/infer" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var kr kserveInferRequest
		if err := json.NewDecoder(r.Body).Decode(&kr); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(kr.Inputs) != 1 || kr.Inputs[0].Name != tritonInputName || kr.Inputs[0].Datatype != "BYTES" || len(kr.Inputs[0].Data) != 1 {
			t.Errorf("unexpected inputs: %+v", kr.Inputs)
		}
		var body map[string]any
		if err := json.Unmarshal([]byte(kr.Inputs[0].Data[0]), &body); err != nil {
			t.Errorf("decode input tensor: %v", err)
		}
		if body["file"] != "aGVsbG8=" || body["fileType"] != float64(1) || body["logId"] != "log-1" || body["useLayoutDetection"] != true {
			t.Errorf("unexpected input body: %v", body)
		}
		tritonReply(w, `{"logId":"log-1","errorCode":0,"errorMsg":"Success","result":{"layoutParsingResults":[{"prunedResult":{"parsing_res_list":[]}}]}}`)
	}))
	defer srv.Close()

	a := newTritonAdapter(srv.URL, srv.Client())
	out, err := a.Infer(testCtx(t), LayoutParsingModel, testInferenceRequest())
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if !strings.Contains(string(out), `"parsing_res_list":[]`) {
		t.Fatalf("unexpected result: %s", out)
	}
}

func TestTritonAdapter_EnvelopeErrors(t *testing.T) {
	cases := []struct {
		name     string
		envelope string
		check    func(error) bool
	}{
		{"backend rejected input", `{"errorCode":400,"errorMsg":"Invalid file"}`, IsBackendInternal},
		{"overloaded", `{"errorCode":503,"errorMsg":"busy"}`, IsBackendOverloaded},
		{"too many", `{"errorCode":429,"errorMsg":"slow down"}`, IsBackendOverloaded},
		{"oom", `{"errorCode":500,"errorMsg":"CUDA out of memory"}`, IsBackendOverloaded},
		{"internal", `{"errorCode":500,"errorMsg":"pipeline crashed"}`, IsBackendInternal},
		{"garbage", `not json`, IsBackendInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tritonReply(w, tc.envelope)
			}))
			defer srv.Close()
			_, err := newTritonAdapter(srv.URL, srv.Client()).Infer(testCtx(t), LayoutParsingModel, testInferenceRequest())
			if !tc.check(err) {
				t.Fatalf("unexpected error classification: %v", err)
			}
		})
	}
}

func TestTritonAdapter_BackendRejectionIsNotValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tritonReply(w, `{"errorCode":400,"errorMsg":"page range out of bounds"}`)
	}))
	defer srv.Close()
	_, err := newTritonAdapter(srv.URL, srv.Client()).Infer(testCtx(t), LayoutParsingModel, testInferenceRequest())
	if err == nil || IsValidation(err) || !IsBackendInternal(err) {
		t.Fatalf("expected BackendInternalError, got %v", err)
	}
	if !strings.Contains(err.Error(), "(400)") || !strings.Contains(err.Error(), "page range out of bounds") {
		t.Fatalf("backend code and message lost: %v", err)
	}
	var he interface{ StatusCode() int }
	if !errors.As(err, &he) || he.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("unexpected status mapping for %v", err)
	}
}

func TestTritonAdapter_HTTPErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unavailable", http.StatusServiceUnavailable, `{"error":"server not ready"}`, IsBackendOverloaded},
		{"throttled", http.StatusTooManyRequests, ``, IsBackendOverloaded},
		{"resource exhausted", http.StatusBadRequest, `{"error":"RESOURCE_EXHAUSTED: no memory"}`, IsBackendOverloaded},
		{"model missing", http.StatusNotFound, `{"error":"unknown model"}`, IsBackendUnavailable},
		{"infer failed", http.StatusBadRequest, `{"error":"python model raised"}`, IsBackendInternal},
		{"server error", http.StatusInternalServerError, `oops`, IsBackendInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			_, err := newTritonAdapter(srv.URL, srv.Client()).Infer(testCtx(t), LayoutParsingModel, testInferenceRequest())
			if !tc.check(err) {
				t.Fatalf("unexpected error classification: %v", err)
			}
		})
	}
}

func TestTritonAdapter_MissingOutputTensor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model_name":"layout-parsing","outputs":[]}`))
	}))
	defer srv.Close()
	_, err := newTritonAdapter(srv.URL, srv.Client()).Infer(testCtx(t), LayoutParsingModel, testInferenceRequest())
	if !IsBackendInternal(err) {
		t.Fatalf("expected BackendInternalError, got %v", err)
	}
}

func TestTritonAdapter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	a := newTritonAdapter(url, &http.Client{})
	if _, err := a.Infer(testCtx(t), LayoutParsingModel, testInferenceRequest()); !IsBackendUnavailable(err) {
		t.Fatalf("expected BackendUnavailable, got %v", err)
	}
	if err := a.ServerReady(testCtx(t)); !IsBackendUnavailable(err) {
		t.Fatalf("expected BackendUnavailable from probe, got %v", err)
	}
}

func TestTritonAdapter_CancelledCall(t *testing.T) {
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-unblock:
		}
	}))
	defer srv.Close()
	defer close(unblock)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := newTritonAdapter(srv.URL, srv.Client()).Infer(ctx, LayoutParsingModel, testInferenceRequest())
	if !IsCancelled(err) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("cancel not honoured promptly")
	}
}

func TestTritonAdapter_ReadinessProbes(t *testing.T) {
	var modelReady atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/health/ready":
			w.WriteHeader(http.StatusOK)
		case "/v2/models/layout-parsing/ready":
			if modelReady.Load() {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	a := newTritonAdapter(srv.URL, srv.Client())
	if err := a.ServerReady(testCtx(t)); err != nil {
		t.Fatalf("server ready: %v", err)
	}
	if err := a.ModelReady(testCtx(t), LayoutParsingModel); err == nil {
		t.Fatalf("expected model not ready")
	}
	modelReady.Store(true)
	if err := a.ModelReady(testCtx(t), LayoutParsingModel); err != nil {
		t.Fatalf("model ready: %v", err)
	}
}

func TestNewTritonAdapter_NormalizesURL(t *testing.T) {
	a := newTritonAdapter(" triton:8000/ ", nil)
	if a.baseURL != "http://triton:8000" {
		t.Fatalf("baseURL = %q", a.baseURL)
	}
	var nilAdapter *tritonAdapter
	if _, err := nilAdapter.Infer(context.Background(), LayoutParsingModel, testInferenceRequest()); !IsBackendUnavailable(err) {
		t.Fatalf("expected BackendUnavailable for nil adapter, got %v", err)
	}
}

func TestInferenceRequest_MarshalKeepsOptions(t *testing.T) {
	b, err := json.Marshal(testInferenceRequest())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"file":"aGVsbG8="`, `"fileType":1`, `"logId":"log-1"`, `"useLayoutDetection":true`} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %s in %s", want, s)
		}
	}
}
