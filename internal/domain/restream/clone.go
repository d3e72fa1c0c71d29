package restream

// Deep-copy helpers. Snapshots handed to observers and the transport layer
// must never alias registry-owned state; all pointer fields and slices are
// reallocated.

// Clone returns a deep copy of the Restream.
func (r *Restream) Clone() Restream {
	out := Restream{
		ID:    r.ID,
		Key:   r.Key,
		Label: cloneString(r.Label),
		Input: r.Input.Clone(),
	}
	if len(r.Outputs) > 0 {
		out.Outputs = make([]Output, len(r.Outputs))
		for i := range r.Outputs {
			out.Outputs[i] = r.Outputs[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the Input, including failover sub-inputs and
// endpoints.
func (in *Input) Clone() Input {
	out := Input{
		ID:      in.ID,
		Key:     in.Key,
		Enabled: in.Enabled,
	}
	if in.Src.Remote != nil {
		remote := *in.Src.Remote
		out.Src.Remote = &remote
	}
	if in.Src.Failover != nil {
		group := FailoverSrc{}
		if len(in.Src.Failover.Inputs) > 0 {
			group.Inputs = make([]Input, len(in.Src.Failover.Inputs))
			for i := range in.Src.Failover.Inputs {
				group.Inputs[i] = in.Src.Failover.Inputs[i].Clone()
			}
		}
		out.Src.Failover = &group
	}
	if len(in.Endpoints) > 0 {
		out.Endpoints = make([]Endpoint, len(in.Endpoints))
		copy(out.Endpoints, in.Endpoints)
	}
	return out
}

// Clone returns a deep copy of the Output and its Mixins.
func (o *Output) Clone() Output {
	out := Output{
		ID:         o.ID,
		Dst:        o.Dst,
		Label:      cloneString(o.Label),
		PreviewURL: cloneString(o.PreviewURL),
		Volume:     o.Volume,
		Enabled:    o.Enabled,
		Status:     o.Status,
	}
	if len(o.Mixins) > 0 {
		out.Mixins = make([]Mixin, len(o.Mixins))
		copy(out.Mixins, o.Mixins)
	}
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
