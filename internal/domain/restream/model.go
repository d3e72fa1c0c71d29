package restream

import (
	"encoding/json"
	"time"
)

// Restream is the top-level unit pairing one Input with an ordered set of
// Outputs. It exclusively owns everything beneath it: destroying a Restream
// destroys its Input, Outputs and their Mixins.
type Restream struct {
	ID      RestreamID `json:"id"`
	Key     string     `json:"key"`
	Label   *string    `json:"label,omitempty"`
	Input   Input      `json:"input"`
	Outputs []Output   `json:"outputs"`
}

// Input is a configured source: either a single remote feed or a
// failover-ordered group of such feeds. Each Input owns one Endpoint per
// protocol kind; endpoint statuses are runtime-only.
type Input struct {
	ID        InputID    `json:"id"`
	Key       string     `json:"key"`
	Enabled   bool       `json:"enabled"`
	Src       InputSrc   `json:"src"`
	Endpoints []Endpoint `json:"endpoints"`
}

// InputSrc is a tagged variant: exactly one of Remote or Failover is set.
type InputSrc struct {
	Remote   *RemoteSrc   `json:"remote,omitempty"`
	Failover *FailoverSrc `json:"failover,omitempty"`
}

// RemoteSrc pulls a single remote feed.
type RemoteSrc struct {
	URL string `json:"url"`
}

// FailoverSrc is an ordered group of sub-inputs tried in declared order.
// Sub-inputs are themselves Inputs whose Src must be Remote.
type FailoverSrc struct {
	Inputs []Input `json:"inputs"`
}

// Output is a configured destination fed by the Restream's active Input,
// optionally with auxiliary audio mixed in.
type Output struct {
	ID         OutputID `json:"id"`
	Dst        string   `json:"dst"`
	Label      *string  `json:"label,omitempty"`
	PreviewURL *string  `json:"preview_url,omitempty"`
	Volume     Volume   `json:"volume"`
	Mixins     []Mixin  `json:"mixins"`
	Enabled    bool     `json:"enabled"`
	Status     Status   `json:"status"`
}

// Mixin is an auxiliary audio source blended into an Output with independent
// volume and a non-negative delay applied before mixing.
type Mixin struct {
	ID     MixinID  `json:"id"`
	Src    string   `json:"src"`
	Volume Volume   `json:"volume"`
	Delay  Duration `json:"delay_ms"`
}

// Volume is a normalized gain in percent: 0 is muted, 100 is the origin
// (neutral) value, 1000 is the maximum boost.
type Volume uint16

const (
	VolumeOff    Volume = 0
	VolumeOrigin Volume = 100
	VolumeMax    Volume = 1000
)

// Fraction converts the percent gain into an ffmpeg volume factor.
func (v Volume) Fraction() float64 { return float64(v) / float64(VolumeOrigin) }

// Duration is a time.Duration serialized as integer milliseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Millis returns the duration as whole milliseconds.
func (d Duration) Millis() int64 { return time.Duration(d).Milliseconds() }

// DurationFromMillis builds a Duration from whole milliseconds.
func DurationFromMillis(ms int64) Duration {
	return Duration(time.Duration(ms) * time.Millisecond)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Millis())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*d = DurationFromMillis(ms)
	return nil
}

// ---------------------------------------------------------------------------
// Behavior
// ---------------------------------------------------------------------------

// IsRemote reports whether the Input pulls a single remote feed.
func (s InputSrc) IsRemote() bool { return s.Remote != nil }

// IsFailover reports whether the Input is a failover group.
func (s InputSrc) IsFailover() bool { return s.Failover != nil }

// Endpoint returns the endpoint of the given kind, or nil.
func (in *Input) Endpoint(kind EndpointKind) *Endpoint {
	for i := range in.Endpoints {
		if in.Endpoints[i].Kind == kind {
			return &in.Endpoints[i]
		}
	}
	return nil
}

// HasHLS reports whether the Input serves an HLS preview endpoint.
func (in *Input) HasHLS() bool { return in.Endpoint(EndpointHLS) != nil }

// SetStatus sets the status of every endpoint of the Input. Sub-inputs are
// not touched; they carry their own endpoints.
func (in *Input) SetStatus(st Status) {
	for i := range in.Endpoints {
		in.Endpoints[i].Status = st
	}
}

// IngestStatus returns the status of the primary ingest endpoint.
func (in *Input) IngestStatus() Status {
	if ep := in.Endpoint(EndpointRTMP); ep != nil {
		return ep.Status
	}
	return StatusUnknown
}

// ActiveSub resolves the failover rule: the first sub-input, in declared
// order, that is enabled and whose ingest endpoint is Online. For a remote
// Input it returns the Input itself when enabled and Online. Returns nil
// when no source qualifies; no Output receives data then.
func (in *Input) ActiveSub() *Input {
	if !in.Enabled {
		return nil
	}
	if in.Src.IsRemote() {
		if in.IngestStatus() == StatusOnline {
			return in
		}
		return nil
	}
	for i := range in.Src.Failover.Inputs {
		sub := &in.Src.Failover.Inputs[i]
		if sub.Enabled && sub.IngestStatus() == StatusOnline {
			return sub
		}
	}
	return nil
}

// EffectiveStatus is the status a consumer of this Input observes: for a
// failover group it is the active sub-input's status, Offline if none
// qualifies.
func (in *Input) EffectiveStatus() Status {
	if in.Src.IsFailover() {
		if sub := in.ActiveSub(); sub != nil {
			return sub.IngestStatus()
		}
		return StatusOffline
	}
	return in.IngestStatus()
}

// FindSub returns the sub-input with the given id, including the Input
// itself for the remote case. Returns nil when absent.
func (in *Input) FindSub(id InputID) *Input {
	if in.ID == id {
		return in
	}
	if in.Src.IsFailover() {
		for i := range in.Src.Failover.Inputs {
			if in.Src.Failover.Inputs[i].ID == id {
				return &in.Src.Failover.Inputs[i]
			}
		}
	}
	return nil
}

// Output returns the output with the given id, or nil.
func (r *Restream) Output(id OutputID) *Output {
	for i := range r.Outputs {
		if r.Outputs[i].ID == id {
			return &r.Outputs[i]
		}
	}
	return nil
}

// Mixin returns the mixin with the given id, or nil.
func (o *Output) Mixin(id MixinID) *Mixin {
	for i := range o.Mixins {
		if o.Mixins[i].ID == id {
			return &o.Mixins[i]
		}
	}
	return nil
}

// defaultEndpoints builds the endpoint set for a freshly configured input.
func defaultEndpoints(withHLS bool) []Endpoint {
	eps := []Endpoint{{Kind: EndpointRTMP, Status: StatusUnknown}}
	if withHLS {
		eps = append(eps, Endpoint{Kind: EndpointHLS, Status: StatusUnknown})
	}
	return eps
}
