package restream

import (
	"errors"
	"testing"
)

func TestValidateKey(t *testing.T) {
	for _, ok := range []string{"main", "main-2", "a", "0live", "x-y-z"} {
		if err := ValidateKey(ok); err != nil {
			t.Errorf("ValidateKey(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "-lead", "UPPER", "with space", "пример", "dot.dot"} {
		if err := ValidateKey(bad); err == nil {
			t.Errorf("ValidateKey(%q) accepted, want error", bad)
		} else if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestRestreamValidate(t *testing.T) {
	r := failoverRestream()
	if err := r.Validate(); err != nil {
		t.Fatalf("valid restream rejected: %v", err)
	}

	// Both variants set at once.
	r2 := failoverRestream()
	r2.Input.Src.Remote = &RemoteSrc{URL: "rtmp://a.example.com/live"}
	if err := r2.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("both-src input: %v, want ErrInvalidInput", err)
	}

	// Nested failover.
	r3 := failoverRestream()
	r3.Input.Src.Failover.Inputs[0].Src = InputSrc{Failover: &FailoverSrc{}}
	if err := r3.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nested failover: %v, want ErrInvalidInput", err)
	}

	// Duplicate sub keys.
	r4 := failoverRestream()
	r4.Input.Src.Failover.Inputs[1].Key = "primary"
	if err := r4.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("duplicate sub keys: %v, want ErrInvalidInput", err)
	}
}

func TestOutputValidate(t *testing.T) {
	o := Output{
		ID:     NewOutputID(),
		Dst:    "rtmp://cdn.example.com/app/key",
		Volume: VolumeOrigin,
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("valid output rejected: %v", err)
	}

	o.Volume = VolumeMax + 1
	if err := o.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("out-of-range volume: %v, want ErrInvalidInput", err)
	}

	o.Volume = VolumeOrigin
	o.Dst = "ftp://cdn.example.com/app"
	if err := o.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad dst scheme: %v, want ErrInvalidInput", err)
	}
}

func TestMixinValidate(t *testing.T) {
	m := Mixin{ID: NewMixinID(), Src: "https://radio.example.com/a.mp3", Volume: 40}
	if err := m.Validate(); err != nil {
		t.Fatalf("valid mixin rejected: %v", err)
	}

	m.Delay = Duration(-1)
	if err := m.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative delay: %v, want ErrInvalidInput", err)
	}

	m.Delay = 0
	m.Src = "rtmp://radio.example.com/live"
	if err := m.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad mixin scheme: %v, want ErrInvalidInput", err)
	}
}
