// Package manager coordinates layout-parsing calls against the inference
// backend. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - errors.go: the error taxonomy (Kind) and IsX helpers used for HTTP mapping.
//   - admission.go: the FIFO concurrency gate and per-call deadline.
//   - adapter_iface.go: the Backend interface and InferenceRequest.
//   - adapter_triton.go: Backend over the KServe v2 HTTP protocol.
//   - validate.go: payload decoding and fileType resolution.
//   - inference.go: LayoutParsing entry point (validate, admit, call backend).
//   - restructure.go: Restructure entry point bridging to internal/restructure.
//   - health.go: liveness and dependency readiness probes.
//   - status_report.go: Status reporting for GET /status.
//   - sanity.go: static checks of configured dependency URLs.
//   - events.go, eventpub_memory.go: admission events for observers and tests.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (New/NewWithConfig, LayoutParsing, Restructure,
// Ready, Status). Internal types are subject to change.
package manager
