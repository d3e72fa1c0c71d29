package restream

import (
	"regexp"

	"github.com/edgemux/restream-server/pkg/streamurl"
)

// keyRe is the slug grammar for user-chosen keys: lower-case alphanumerics
// and hyphens, no leading hyphen, at most 63 characters.
var keyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// ValidateKey checks the slug grammar for Restream and Input keys.
func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return invalidf("bad key %q: must match %s", key, keyRe.String())
	}
	return nil
}

// Validate checks all user-supplied configuration fields of the Restream.
// Runtime fields (statuses) are not validated; they are not user input.
func (r *Restream) Validate() error {
	if err := ValidateKey(r.Key); err != nil {
		return err
	}
	if r.Label != nil && (len(*r.Label) < 1 || len(*r.Label) > 100) {
		return invalidf("label must be 1-100 characters")
	}
	if err := r.Input.Validate(); err != nil {
		return err
	}

	seen := make(map[OutputID]struct{}, len(r.Outputs))
	for i := range r.Outputs {
		o := &r.Outputs[i]
		if _, dup := seen[o.ID]; dup {
			return invalidf("duplicate output id %q", o.ID)
		}
		seen[o.ID] = struct{}{}
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the Input's key, source variant and (for failover groups)
// every sub-input. Nested failover groups are rejected.
func (in *Input) Validate() error {
	if err := ValidateKey(in.Key); err != nil {
		return err
	}

	switch {
	case in.Src.Remote != nil && in.Src.Failover != nil:
		return invalidf("input %q: src must be remote or failover, not both", in.Key)

	case in.Src.Remote != nil:
		if err := streamurl.ValidateInput(in.Src.Remote.URL); err != nil {
			return invalidf("input %q: %v", in.Key, err)
		}

	case in.Src.Failover != nil:
		if len(in.Src.Failover.Inputs) == 0 {
			return invalidf("input %q: failover group needs at least one sub-input", in.Key)
		}
		keys := make(map[string]struct{}, len(in.Src.Failover.Inputs))
		for i := range in.Src.Failover.Inputs {
			sub := &in.Src.Failover.Inputs[i]
			if sub.Src.Remote == nil {
				return invalidf("input %q: failover sub-inputs must be remote", in.Key)
			}
			if _, dup := keys[sub.Key]; dup {
				return invalidf("input %q: duplicate sub-input key %q", in.Key, sub.Key)
			}
			keys[sub.Key] = struct{}{}
			if err := sub.Validate(); err != nil {
				return err
			}
		}

	default:
		return invalidf("input %q: src is required", in.Key)
	}
	return nil
}

// Validate checks the Output's destination, preview, volume and mixins.
func (o *Output) Validate() error {
	if err := streamurl.ValidateOutput(o.Dst); err != nil {
		return invalidf("output dst: %v", err)
	}
	if o.Label != nil && (len(*o.Label) < 1 || len(*o.Label) > 100) {
		return invalidf("output label must be 1-100 characters")
	}
	if o.PreviewURL != nil {
		if _, err := streamurl.Parse(*o.PreviewURL); err != nil {
			return invalidf("output preview url: %v", err)
		}
	}
	if err := validateVolume(o.Volume); err != nil {
		return err
	}

	seen := make(map[MixinID]struct{}, len(o.Mixins))
	for i := range o.Mixins {
		m := &o.Mixins[i]
		if _, dup := seen[m.ID]; dup {
			return invalidf("duplicate mixin id %q", m.ID)
		}
		seen[m.ID] = struct{}{}
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the Mixin's source, volume and delay.
func (m *Mixin) Validate() error {
	if err := streamurl.ValidateMixin(m.Src); err != nil {
		return invalidf("mixin src: %v", err)
	}
	if err := validateVolume(m.Volume); err != nil {
		return err
	}
	if m.Delay < 0 {
		return invalidf("mixin delay must be non-negative")
	}
	return nil
}

func validateVolume(v Volume) error {
	if v > VolumeMax {
		return invalidf("volume %d out of range [%d, %d]", v, VolumeOff, VolumeMax)
	}
	return nil
}
