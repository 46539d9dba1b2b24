package manager

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a lightweight in-memory Backend used for tests.
type fakeBackend struct {
	mu        sync.Mutex
	infer     func(ctx context.Context, model string, req *InferenceRequest) (json.RawMessage, error)
	serverErr error
	modelErr  error
	// block makes readiness probes wait for ctx.
	block bool
	calls int
	last  *InferenceRequest
}

func (f *fakeBackend) Infer(ctx context.Context, model string, req *InferenceRequest) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	fn := f.infer
	f.mu.Unlock()
	if fn == nil {
		return json.RawMessage(`{"layoutParsingResults":[]}`), nil
	}
	return fn(ctx, model, req)
}

func (f *fakeBackend) ServerReady(ctx context.Context) error {
	f.mu.Lock()
	block, err := f.block, f.serverErr
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeBackend) ModelReady(ctx context.Context, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modelErr
}

func (f *fakeBackend) setServerErr(err error) {
	f.mu.Lock()
	f.serverErr = err
	f.mu.Unlock()
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// pngBase64 returns a tiny encoded PNG.
func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func pdfBase64() string {
	return base64.StdEncoding.EncodeToString([]byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n"))
}

func intPtr(v int) *int { return &v }

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
