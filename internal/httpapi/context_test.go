package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestContext_CancelsOnShutdown(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	t.Cleanup(func() { SetBaseContext(nil) })

	r := httptest.NewRequest("GET", "/x", nil)
	ctx, done := requestContext(r)
	defer done()
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("request context survived shutdown")
	}
	if !aborted(r) {
		t.Fatal("aborted should report shutdown")
	}
}

func TestRequestContext_CancelsWithClient(t *testing.T) {
	SetBaseContext(nil)
	client, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest("GET", "/x", nil).WithContext(client)
	ctx, done := requestContext(r)
	defer done()
	if aborted(r) {
		t.Fatal("fresh request reported aborted")
	}
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("request context survived client cancel")
	}
}

func TestSetMaxBodyBytes(t *testing.T) {
	t.Cleanup(func() { SetMaxBodyBytes(0) })
	SetMaxBodyBytes(-1)
	if maxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("expected default, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}
