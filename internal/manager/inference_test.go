package manager

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hpsgateway/pkg/types"
)

func TestLayoutParsing_Success(t *testing.T) {
	fb := &fakeBackend{infer: func(ctx context.Context, model string, req *InferenceRequest) (json.RawMessage, error) {
		if model != LayoutParsingModel {
			t.Errorf("model = %q", model)
		}
		return json.RawMessage(`{"layoutParsingResults":[{"prunedResult":{"parsing_res_list":[]}}]}`), nil
	}}
	m := NewWithConfig(ManagerConfig{Backend: fb})
	out, err := m.LayoutParsing(testCtx(t), types.LayoutParsingRequest{File: pdfBase64(), FileType: intPtr(2)}, "log-1")
	if err != nil {
		t.Fatalf("layout parsing: %v", err)
	}
	var res types.LayoutParsingResult
	if err := json.Unmarshal(out, &res); err != nil || len(res.LayoutParsingResults) != 1 {
		t.Fatalf("unexpected result %s (%v)", out, err)
	}
	if fb.last.FileType != types.FileTypePDF || fb.last.LogID != "log-1" {
		t.Fatalf("unexpected backend request: %+v", fb.last)
	}
	if m.Status().AdmittedTotal != 1 {
		t.Fatalf("expected one admission")
	}
}

func TestLayoutParsing_ValidationBeforeAdmission(t *testing.T) {
	fb := &fakeBackend{}
	m := NewWithConfig(ManagerConfig{Backend: fb, MaxConcurrent: 1})
	release, err := m.Admission().Acquire(testCtx(t), "holder")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	bad := []types.LayoutParsingRequest{
		{File: ""},
		{File: "!!!not base64!!!"},
		{File: pngBase64(t), FileType: intPtr(7)},
		{File: pngBase64(t), FileType: intPtr(0)},
	}
	for i, req := range bad {
		done := make(chan error, 1)
		go func() {
			_, err := m.LayoutParsing(context.Background(), req, "x")
			done <- err
		}()
		select {
		case err := <-done:
			if !IsValidation(err) {
				t.Fatalf("case %d: expected ValidationError, got %v", i, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("case %d: validation waited for a slot", i)
		}
	}
	if fb.callCount() != 0 || m.Status().Waiting != 0 {
		t.Fatalf("invalid input reached admission or backend")
	}
}

func TestLayoutParsing_BackendErrorsKeepKind(t *testing.T) {
	fb := &fakeBackend{infer: func(ctx context.Context, model string, req *InferenceRequest) (json.RawMessage, error) {
		return nil, newError(KindBackendOverloaded, "busy")
	}}
	m := NewWithConfig(ManagerConfig{Backend: fb})
	_, err := m.LayoutParsing(testCtx(t), types.LayoutParsingRequest{File: pngBase64(t)}, "x")
	if !IsBackendOverloaded(err) {
		t.Fatalf("expected BackendOverloaded, got %v", err)
	}
	if m.Status().Inflight != 0 {
		t.Fatalf("slot not released")
	}
}

func TestLayoutParsing_UnclassifiedErrorIsInternal(t *testing.T) {
	fb := &fakeBackend{infer: func(ctx context.Context, model string, req *InferenceRequest) (json.RawMessage, error) {
		return nil, errors.New("surprise")
	}}
	m := NewWithConfig(ManagerConfig{Backend: fb})
	_, err := m.LayoutParsing(testCtx(t), types.LayoutParsingRequest{File: pngBase64(t)}, "x")
	if !IsBackendInternal(err) {
		t.Fatalf("expected BackendInternalError, got %v", err)
	}
}

func TestLayoutParsing_Timeout(t *testing.T) {
	fb := &fakeBackend{infer: func(ctx context.Context, model string, req *InferenceRequest) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, wrapError(KindCancelled, ctx.Err(), "backend call cancelled")
	}}
	m := NewWithConfig(ManagerConfig{Backend: fb, InferenceTimeout: 30 * time.Millisecond})
	_, err := m.LayoutParsing(testCtx(t), types.LayoutParsingRequest{File: pngBase64(t)}, "x")
	if !IsTimeout(err) {
		t.Fatalf("expected Timeout, got %v", err)
	}
	if st := m.Status(); st.TimeoutsTotal != 1 || st.Inflight != 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLayoutParsing_NoBackend(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	if _, err := m.LayoutParsing(testCtx(t), types.LayoutParsingRequest{File: pngBase64(t)}, "x"); !IsBackendUnavailable(err) {
		t.Fatalf("expected BackendUnavailable, got %v", err)
	}
}

func TestResolveLogID(t *testing.T) {
	if id, supplied := ResolveLogID(" abc "); id != "abc" || !supplied {
		t.Fatalf("got %q %v", id, supplied)
	}
	a, supplied := ResolveLogID("")
	b, _ := ResolveLogID("")
	if supplied || a == "" || a == b {
		t.Fatalf("expected fresh distinct ids, got %q %q", a, b)
	}
}
