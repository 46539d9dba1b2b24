package types

import "encoding/json"

// File types accepted by POST /layout-parsing. FileTypePDFAlt is the
// 1=image/2=pdf numbering some clients send; it is treated as PDF.
const (
	FileTypePDF    = 0
	FileTypeImage  = 1
	FileTypePDFAlt = 2
)

// LayoutParsingRequest is the body of POST /layout-parsing.
type LayoutParsingRequest struct {
	// Base64-encoded image or PDF bytes.
	File string `json:"file" example:"JVBERi0xLjcK..."`
	// 0 or 2 = PDF, 1 = image. Sniffed from the payload when omitted.
	// example: 1
	FileType *int `json:"fileType,omitempty" example:"1"`
	// Optional caller-supplied log id.
	LogID string `json:"logId,omitempty" example:"2f1c0b7e-8c51-4a43-9b8e-1c1e1d5a2b3c"`
	// Remaining pipeline options (useLayoutDetection, prettifyMarkdown, ...)
	// are forwarded to the backend untouched.
	Options map[string]json.RawMessage `json:"-" swaggerignore:"true"`
}

func (r *LayoutParsingRequest) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["file"]; ok {
		if err := json.Unmarshal(v, &r.File); err != nil {
			return err
		}
		delete(raw, "file")
	}
	if v, ok := raw["fileType"]; ok {
		if string(v) != "null" {
			var ft int
			if err := json.Unmarshal(v, &ft); err != nil {
				return err
			}
			r.FileType = &ft
		}
		delete(raw, "fileType")
	}
	if v, ok := raw["logId"]; ok {
		if err := json.Unmarshal(v, &r.LogID); err != nil {
			return err
		}
		delete(raw, "logId")
	}
	if len(raw) > 0 {
		r.Options = raw
	}
	return nil
}

// LayoutParsingResult is the "result" object produced by the backend.
type LayoutParsingResult struct {
	LayoutParsingResults []LayoutPage    `json:"layoutParsingResults"`
	DataInfo             json.RawMessage `json:"dataInfo,omitempty" swaggertype:"object"`
}

// LayoutPage is one page of layout analysis output. It is also the element
// type of RestructureRequest.Pages.
type LayoutPage struct {
	PrunedResult *PrunedResult `json:"prunedResult"`
	// Markdown as rendered by the backend; its images are used when
	// MarkdownImages is absent.
	Markdown *Markdown `json:"markdown,omitempty"`
	// Image key -> base64 image.
	MarkdownImages map[string]string `json:"markdownImages,omitempty"`
	OutputImages   map[string]string `json:"outputImages,omitempty"`
	InputImage     string            `json:"inputImage,omitempty"`
	// Page keys the gateway does not model, written back as-is.
	Extra map[string]json.RawMessage `json:"-" swaggerignore:"true"`
}

// Images returns the page's embedded image map, preferring markdownImages.
func (p LayoutPage) Images() map[string]string {
	if p.MarkdownImages != nil {
		return p.MarkdownImages
	}
	if p.Markdown != nil {
		return p.Markdown.Images
	}
	return nil
}

// Markdown is a rendered markdown document plus the images it references.
type Markdown struct {
	Text    string            `json:"text"`
	Images  map[string]string `json:"images"`
	IsStart *bool             `json:"isStart,omitempty"`
	IsEnd   *bool             `json:"isEnd,omitempty"`
}

// RestructureRequest is the body of POST /restructure-pages.
type RestructureRequest struct {
	// Pages in document order.
	Pages []LayoutPage `json:"pages"`
	// Merge tables continued across page boundaries. Default true.
	// example: true
	MergeTables *bool `json:"mergeTables,omitempty" example:"true"`
	// Recompute a document-wide title hierarchy. Default true.
	// example: true
	RelevelTitles *bool `json:"relevelTitles,omitempty" example:"true"`
	// Produce one concatenated document. Default false.
	// example: false
	ConcatenatePages *bool  `json:"concatenatePages,omitempty" example:"false"`
	LogID            string `json:"logId,omitempty"`
}

// RestructureResult is the "result" object of POST /restructure-pages.
type RestructureResult struct {
	// Per-page results, possibly with merged tables and re-leveled titles.
	LayoutParsingResults []LayoutPage `json:"layoutParsingResults"`
	// Present only when concatenatePages was requested.
	LayoutParsingResult *CombinedResult `json:"layoutParsingResult,omitempty"`
}

// CombinedResult is the single concatenated rendering of a document.
type CombinedResult struct {
	PrunedResult PrunedResult `json:"prunedResult"`
	Markdown     Markdown     `json:"markdown"`
}

// Response is the envelope of every JSON response.
type Response struct {
	// example: 2f1c0b7e-8c51-4a43-9b8e-1c1e1d5a2b3c
	LogID string `json:"logId" example:"2f1c0b7e-8c51-4a43-9b8e-1c1e1d5a2b3c"`
	// 0 on success, otherwise the HTTP status code.
	// example: 0
	ErrorCode int `json:"errorCode" example:"0"`
	// example: Success
	ErrorMsg string `json:"errorMsg" example:"Success"`
	// Stable failure identifier (ValidationError, BackendUnavailable,
	// BackendOverloaded, BackendInternalError, Timeout, Cancelled).
	// example: Timeout
	ErrorType string `json:"errorType,omitempty" example:"Timeout"`
	Result    any    `json:"result,omitempty"`
}

// ErrorResponse is a Response without a result, used for documentation.
type ErrorResponse struct {
	LogID     string `json:"logId"`
	ErrorCode int    `json:"errorCode" example:"422"`
	ErrorMsg  string `json:"errorMsg" example:"pages: at least one page is required"`
	ErrorType string `json:"errorType,omitempty" example:"ValidationError"`
}

// DependencyStatus is one readiness probe outcome.
type DependencyStatus struct {
	// example: triton
	Name string `json:"name" example:"triton"`
	// example: true
	Reachable bool `json:"reachable" example:"true"`
	// Observed probe latency in milliseconds.
	// example: 3.2
	LatencyMs float64 `json:"latencyMs" example:"3.2"`
	Error     string  `json:"error,omitempty"`
}

// ReadinessResult is the "result" of GET /health/ready.
type ReadinessResult struct {
	Ready        bool               `json:"ready"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Worker index this response was served by.
	// example: 0
	Worker int `json:"worker" example:"0"`
	// Number of workers in this process.
	// example: 1
	Workers int `json:"workers" example:"1"`
	// GPU device the backend was pinned to, if configured.
	DeviceID string `json:"device_id,omitempty" example:"0"`
	// Concurrency cap of this worker's admission controller.
	// example: 16
	MaxConcurrent int `json:"max_concurrent" example:"16"`
	// Backend calls currently holding a slot.
	// example: 3
	Inflight int64 `json:"inflight" example:"3"`
	// Requests waiting for a slot.
	// example: 0
	Waiting int64 `json:"waiting" example:"0"`
	// example: 600
	InferenceTimeoutSeconds int64 `json:"inference_timeout_seconds" example:"600"`
	// example: 1200
	AdmittedTotal uint64 `json:"admitted_total" example:"1200"`
	// example: 2
	TimeoutsTotal uint64 `json:"timeouts_total" example:"2"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
