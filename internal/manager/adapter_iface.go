package manager

import (
	"context"
	"encoding/json"
)

// Backend abstracts the inference service used by the Manager.
// Concrete implementations (e.g., Triton over KServe v2) should satisfy this interface.
type Backend interface {
	// Infer runs one layout-parsing call against model and returns the
	// backend's result object verbatim. Implementations must return when the
	// context is cancelled and never deliver a result afterwards.
	Infer(ctx context.Context, model string, req *InferenceRequest) (json.RawMessage, error)
	// ServerReady reports whether the backend server accepts requests.
	ServerReady(ctx context.Context) error
	// ModelReady reports whether model is loaded and serving.
	ModelReady(ctx context.Context, model string) error
}

// InferenceRequest is one validated layout-parsing call. It is immutable
// once built by NewInferenceRequest.
type InferenceRequest struct {
	// File is the base64 payload as received; it is forwarded without re-encoding.
	File string
	// Size of the decoded payload in bytes.
	Size     int
	FileType int
	LogID    string
	// Options are forwarded to the backend untouched.
	Options map[string]json.RawMessage
}

// MarshalJSON renders the request the way the backend pipeline expects it:
// options at the top level next to file, fileType and logId.
func (r *InferenceRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Options)+3)
	for k, v := range r.Options {
		body[k] = v
	}
	body["file"] = r.File
	body["fileType"] = r.FileType
	body["logId"] = r.LogID
	return json.Marshal(body)
}
