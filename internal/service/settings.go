package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/edgemux/restream-server/internal/domain/settings"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SettingsStore persists the single settings document.
type SettingsStore interface {
	Get(ctx context.Context) (*settings.Settings, error)
	Set(ctx context.Context, s *settings.Settings) error
}

// InfoPublisher receives the public settings view after every change.
type InfoPublisher interface {
	PublishInfo(settings.Public)
}

// SettingsService is the single writer over the server settings. Reads get
// copies; the password hash never leaves this service.
type SettingsService struct {
	log   *zap.Logger
	store SettingsStore
	pub   InfoPublisher

	mu  sync.RWMutex
	cur settings.Settings
}

func NewSettingsService(log *zap.Logger, store SettingsStore, pub InfoPublisher) *SettingsService {
	if pub == nil {
		pub = noopInfoPublisher{}
	}
	return &SettingsService{
		log:   log.Named("settings"),
		store: store,
		pub:   pub,
		cur:   *settings.Default(),
	}
}

type noopInfoPublisher struct{}

func (noopInfoPublisher) PublishInfo(settings.Public) {}

// Load reads the stored settings at boot.
func (s *SettingsService) Load(ctx context.Context) error {
	stored, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s.mu.Lock()
	s.cur = stored.Clone()
	s.mu.Unlock()

	s.publish()
	return nil
}

// Get returns a copy of the current settings.
func (s *SettingsService) Get() settings.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// Public returns the transport-safe view.
func (s *SettingsService) Public() settings.Public {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Public()
}

// SetSettings updates title and confirmation flags; the password is
// untouched.
func (s *SettingsService) SetSettings(ctx context.Context, title *string, deleteConfirmation, enableConfirmation bool) error {
	s.mu.Lock()

	next := s.cur.Clone()
	next.Title = title
	next.DeleteConfirmation = deleteConfirmation
	next.EnableConfirmation = enableConfirmation

	if err := s.store.Set(ctx, &next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist settings: %w", err)
	}
	s.cur = next
	public := next.Public()
	s.mu.Unlock()

	s.pub.PublishInfo(public)
	return nil
}

// SetPassword changes or clears the access password.
//
// When a password is set, old must verify against the stored hash or
// ErrAuthFailed is returned and nothing changes. An empty new password
// clears protection.
func (s *SettingsService) SetPassword(ctx context.Context, old, new string) error {
	s.mu.Lock()

	if s.cur.HasPassword() {
		if err := bcrypt.CompareHashAndPassword([]byte(*s.cur.PasswordHash), []byte(old)); err != nil {
			s.mu.Unlock()
			return ErrAuthFailed
		}
	}

	next := s.cur.Clone()
	if new == "" {
		next.PasswordHash = nil
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(new), bcrypt.DefaultCost)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		next.PasswordHash = &h
	}

	if err := s.store.Set(ctx, &next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist settings: %w", err)
	}
	s.cur = next
	public := next.Public()
	s.mu.Unlock()

	s.log.Info("password changed", zap.Bool("protected", public.PasswordRequired))
	s.pub.PublishInfo(public)
	return nil
}

// VerifyPassword checks a login attempt. With no password set, access is
// open and every attempt passes.
func (s *SettingsService) VerifyPassword(password string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.cur.HasPassword() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*s.cur.PasswordHash), []byte(password)); err != nil {
		return ErrAuthFailed
	}
	return nil
}

// PasswordRequired reports whether logins need a password.
func (s *SettingsService) PasswordRequired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.HasPassword()
}

func (s *SettingsService) publish() {
	s.pub.PublishInfo(s.Public())
}
