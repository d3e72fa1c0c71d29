package restream

// Status is the health state of a single Endpoint.
//
// Transitions are driven exclusively by supervisor observations:
//
//	Unknown → Initializing → Online → Offline → Initializing → …
//
// Offline is not terminal; a retry or re-enable moves the endpoint back to
// Initializing. Disabling the owning entity forces Offline regardless of the
// current state.
type Status string

const (
	// StatusUnknown means no supervisor observation has been made yet.
	StatusUnknown Status = "unknown"
	// StatusInitializing means a worker is starting (or restarting).
	StatusInitializing Status = "initializing"
	// StatusOnline means live traffic has been confirmed.
	StatusOnline Status = "online"
	// StatusOffline means the worker stopped or the source is unreachable.
	StatusOffline Status = "offline"
)

// EndpointKind is the protocol role of an Endpoint.
type EndpointKind string

const (
	// EndpointRTMP is the primary ingest/forward endpoint.
	EndpointRTMP EndpointKind = "rtmp"
	// EndpointHLS is the HLS preview endpoint.
	EndpointHLS EndpointKind = "hls"
)

// Endpoint is one protocol-specific facet of an Input, carrying its own
// health status. Endpoints are not independently addressable.
type Endpoint struct {
	Kind   EndpointKind `json:"kind"`
	Status Status       `json:"status"`
}
