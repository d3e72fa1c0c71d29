// Package settings holds the server-wide settings object: UI title,
// password hash and destructive-action confirmation flags. It is owned by a
// single writer (the settings service); everyone else sees copies.
package settings

// Settings is the persisted server configuration.
type Settings struct {
	Title              *string `json:"title,omitempty"`
	PasswordHash       *string `json:"password_hash,omitempty"`
	DeleteConfirmation bool    `json:"delete_confirmation"`
	EnableConfirmation bool    `json:"enable_confirmation"`
}

// Default returns the settings used before anything is stored: no
// password, both confirmation prompts on.
func Default() *Settings {
	return &Settings{
		DeleteConfirmation: true,
		EnableConfirmation: true,
	}
}

// Clone returns a deep copy; pointer fields are reallocated.
func (s Settings) Clone() Settings {
	out := s
	if s.Title != nil {
		t := *s.Title
		out.Title = &t
	}
	if s.PasswordHash != nil {
		h := *s.PasswordHash
		out.PasswordHash = &h
	}
	return out
}

// HasPassword reports whether a password is currently set.
func (s Settings) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// Public is the settings view handed to transport and the Info feed; the
// password hash never leaves the core.
type Public struct {
	Title              *string `json:"title,omitempty"`
	PasswordRequired   bool    `json:"password_required"`
	DeleteConfirmation bool    `json:"delete_confirmation"`
	EnableConfirmation bool    `json:"enable_confirmation"`
}

// Public projects the Settings into their transport-safe view.
func (s Settings) Public() Public {
	out := Public{
		PasswordRequired:   s.HasPassword(),
		DeleteConfirmation: s.DeleteConfirmation,
		EnableConfirmation: s.EnableConfirmation,
	}
	if s.Title != nil {
		t := *s.Title
		out.Title = &t
	}
	return out
}
