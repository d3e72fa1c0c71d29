package restream

import "github.com/google/uuid"

// Opaque stable identifiers. All are UUID-backed strings; the string form is
// the wire form.
type (
	// RestreamID identifies a Restream.
	RestreamID string
	// InputID identifies an Input (or a failover sub-input).
	InputID string
	// OutputID identifies an Output within its Restream.
	OutputID string
	// MixinID identifies a Mixin within its Output.
	MixinID string
)

func NewRestreamID() RestreamID { return RestreamID(uuid.NewString()) }
func NewInputID() InputID       { return InputID(uuid.NewString()) }
func NewOutputID() OutputID     { return OutputID(uuid.NewString()) }
func NewMixinID() MixinID       { return MixinID(uuid.NewString()) }

// ParseRestreamID validates the wire form of a RestreamID.
func ParseRestreamID(s string) (RestreamID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", invalidf("bad restream id %q: %v", s, err)
	}
	return RestreamID(s), nil
}

// ParseInputID validates the wire form of an InputID.
func ParseInputID(s string) (InputID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", invalidf("bad input id %q: %v", s, err)
	}
	return InputID(s), nil
}

// ParseOutputID validates the wire form of an OutputID.
func ParseOutputID(s string) (OutputID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", invalidf("bad output id %q: %v", s, err)
	}
	return OutputID(s), nil
}

// ParseMixinID validates the wire form of a MixinID.
func ParseMixinID(s string) (MixinID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", invalidf("bad mixin id %q: %v", s, err)
	}
	return MixinID(s), nil
}
