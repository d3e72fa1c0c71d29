// Package dvr manages on-disk recordings. Each output owns one directory
// under the configured root; files inside it are the recorded segments.
package dvr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("dvr file not found")

// Store lists and removes recordings on the local filesystem.
type Store struct {
	root string
	log  *zap.Logger
}

func NewStore(root string, log *zap.Logger) *Store {
	return &Store{
		root: root,
		log:  log.Named("dvr"),
	}
}

// List returns the recording file names for an output, lexically ordered.
// An output with no directory simply has no recordings.
func (s *Store) List(outputID restream.OutputID) ([]string, error) {
	dir, err := s.outputDir(outputID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes one recording. Returns ErrNotFound if the file does not
// exist.
func (s *Store) Remove(outputID restream.OutputID, name string) error {
	dir, err := s.outputDir(outputID)
	if err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}

	path := filepath.Join(dir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove: %w", err)
	}

	s.log.Info("recording removed",
		zap.String("output_id", string(outputID)),
		zap.String("file", name),
	)
	return nil
}

// outputDir resolves and confines the per-output directory under root.
func (s *Store) outputDir(outputID restream.OutputID) (string, error) {
	if err := validateName(string(outputID)); err != nil {
		return "", err
	}
	return filepath.Join(s.root, string(outputID)), nil
}

// validateName rejects empty names and anything that could escape the
// store root (separators, parent references).
func validateName(name string) error {
	if name == "" ||
		name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	return nil
}
