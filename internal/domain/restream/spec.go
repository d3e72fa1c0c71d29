package restream

import (
	"bytes"
	"encoding/json"
	"io"
)

// SpecVersion is the current version tag of the textual spec format.
const SpecVersion = "v1"

// Spec is the versioned textual representation of restream configuration
// used for export/import and persistence. It carries configuration fields
// only; runtime statuses are deliberately absent so that
// import(export(R)) == R holds for configuration.
type Spec struct {
	Version   string         `json:"version"`
	Restreams []RestreamSpec `json:"restreams"`
}

// RestreamSpec is the serialized form of one Restream.
type RestreamSpec struct {
	ID      RestreamID   `json:"id,omitempty"`
	Key     string       `json:"key"`
	Label   *string      `json:"label,omitempty"`
	Input   InputSpec    `json:"input"`
	Outputs []OutputSpec `json:"outputs,omitempty"`
}

// InputSpec is the serialized form of an Input or failover sub-input.
type InputSpec struct {
	ID       InputID     `json:"id,omitempty"`
	Key      string      `json:"key"`
	Enabled  bool        `json:"enabled"`
	URL      string      `json:"url,omitempty"`      // remote source
	Failover []InputSpec `json:"failover,omitempty"` // failover group, ordered
	WithHLS  bool        `json:"with_hls,omitempty"`
}

// OutputSpec is the serialized form of an Output.
type OutputSpec struct {
	ID         OutputID    `json:"id,omitempty"`
	Dst        string      `json:"dst"`
	Label      *string     `json:"label,omitempty"`
	PreviewURL *string     `json:"preview_url,omitempty"`
	Volume     Volume      `json:"volume"`
	Mixins     []MixinSpec `json:"mixins,omitempty"`
	Enabled    bool        `json:"enabled"`
}

// MixinSpec is the serialized form of a Mixin.
type MixinSpec struct {
	ID      MixinID `json:"id,omitempty"`
	Src     string  `json:"src"`
	Volume  Volume  `json:"volume"`
	DelayMs int64   `json:"delay_ms"`
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

// Export serializes the Restream's configuration, dropping runtime state.
func (r *Restream) Export() RestreamSpec {
	return RestreamSpec{
		ID:      r.ID,
		Key:     r.Key,
		Label:   cloneString(r.Label),
		Input:   r.Input.export(),
		Outputs: exportOutputs(r.Outputs),
	}
}

func (in *Input) export() InputSpec {
	spec := InputSpec{
		ID:      in.ID,
		Key:     in.Key,
		Enabled: in.Enabled,
		WithHLS: in.HasHLS(),
	}
	if in.Src.Remote != nil {
		spec.URL = in.Src.Remote.URL
	}
	if in.Src.Failover != nil {
		spec.Failover = make([]InputSpec, len(in.Src.Failover.Inputs))
		for i := range in.Src.Failover.Inputs {
			spec.Failover[i] = in.Src.Failover.Inputs[i].export()
		}
	}
	return spec
}

func exportOutputs(outs []Output) []OutputSpec {
	if len(outs) == 0 {
		return nil
	}
	specs := make([]OutputSpec, len(outs))
	for i := range outs {
		o := &outs[i]
		specs[i] = OutputSpec{
			ID:         o.ID,
			Dst:        o.Dst,
			Label:      cloneString(o.Label),
			PreviewURL: cloneString(o.PreviewURL),
			Volume:     o.Volume,
			Enabled:    o.Enabled,
		}
		for _, m := range o.Mixins {
			specs[i].Mixins = append(specs[i].Mixins, MixinSpec{
				ID:      m.ID,
				Src:     m.Src,
				Volume:  m.Volume,
				DelayMs: m.Delay.Millis(),
			})
		}
	}
	return specs
}

// ---------------------------------------------------------------------------
// Import (re-hydration)
// ---------------------------------------------------------------------------

// Restream rebuilds a validated Restream from its serialized form. The
// restream's own id is kept as supplied (the registry decides between
// create and replace on it); missing sub-entity ids are allocated,
// supplied ones must be well-formed UUIDs. Endpoint statuses start at
// Unknown.
func (s RestreamSpec) Restream() (Restream, error) {
	r := Restream{
		ID:    s.ID,
		Key:   s.Key,
		Label: cloneString(s.Label),
	}
	if r.ID != "" {
		if _, err := ParseRestreamID(string(r.ID)); err != nil {
			return Restream{}, err
		}
	}

	in, err := s.Input.input()
	if err != nil {
		return Restream{}, err
	}
	r.Input = in

	for _, os := range s.Outputs {
		o, err := os.Output()
		if err != nil {
			return Restream{}, err
		}
		r.Outputs = append(r.Outputs, o)
	}

	if err := r.Validate(); err != nil {
		return Restream{}, err
	}
	return r, nil
}

// Output rebuilds one Output from its serialized form. A missing id is
// allocated; a supplied one must be a well-formed UUID.
func (s OutputSpec) Output() (Output, error) {
	o := Output{
		ID:         s.ID,
		Dst:        s.Dst,
		Label:      cloneString(s.Label),
		PreviewURL: cloneString(s.PreviewURL),
		Volume:     s.Volume,
		Enabled:    s.Enabled,
		Status:     StatusUnknown,
	}
	if o.ID == "" {
		o.ID = NewOutputID()
	} else if _, err := ParseOutputID(string(o.ID)); err != nil {
		return Output{}, err
	}
	for _, ms := range s.Mixins {
		m := Mixin{
			ID:     ms.ID,
			Src:    ms.Src,
			Volume: ms.Volume,
			Delay:  DurationFromMillis(ms.DelayMs),
		}
		if m.ID == "" {
			m.ID = NewMixinID()
		} else if _, err := ParseMixinID(string(m.ID)); err != nil {
			return Output{}, err
		}
		o.Mixins = append(o.Mixins, m)
	}
	return o, nil
}

func (s InputSpec) input() (Input, error) {
	in := Input{
		ID:        s.ID,
		Key:       s.Key,
		Enabled:   s.Enabled,
		Endpoints: defaultEndpoints(s.WithHLS),
	}
	if in.ID == "" {
		in.ID = NewInputID()
	} else if _, err := ParseInputID(string(in.ID)); err != nil {
		return Input{}, err
	}

	switch {
	case s.URL != "" && len(s.Failover) > 0:
		return Input{}, invalidf("input %q: url and failover are mutually exclusive", s.Key)
	case s.URL != "":
		in.Src.Remote = &RemoteSrc{URL: s.URL}
	case len(s.Failover) > 0:
		group := FailoverSrc{Inputs: make([]Input, len(s.Failover))}
		for i, sub := range s.Failover {
			subIn, err := sub.input()
			if err != nil {
				return Input{}, err
			}
			group.Inputs[i] = subIn
		}
		in.Src.Failover = &group
	default:
		return Input{}, invalidf("input %q: url or failover is required", s.Key)
	}
	return in, nil
}

// ---------------------------------------------------------------------------
// Text encoding
// ---------------------------------------------------------------------------

// EncodeSpec renders the Spec as indented JSON text.
func EncodeSpec(s Spec) (string, error) {
	s.Version = SpecVersion
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSpec parses spec text strictly: unknown fields, trailing data and
// unsupported versions are all rejected as invalid input.
func DecodeSpec(text string) (Spec, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()

	var s Spec
	if err := dec.Decode(&s); err != nil {
		return Spec{}, invalidf("malformed spec: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Spec{}, invalidf("malformed spec: trailing data")
	}
	if s.Version != SpecVersion {
		return Spec{}, invalidf("unsupported spec version %q", s.Version)
	}
	return s, nil
}
