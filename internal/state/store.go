// Package state persists lock sessions between CLI invocations, one JSON
// file per network.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrz1836/timelock/internal/fileutil"
	"github.com/mrz1836/timelock/internal/service/lock"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// sessionFilePermissions is the permission mode for session files.
const sessionFilePermissions = 0o640

// ErrCorruptSession indicates a session file is malformed JSON. The file is
// moved aside and a fresh session returned alongside the error.
var ErrCorruptSession = errors.New("session file is corrupted")

// Store keeps session files under a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the session directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the session file of a network.
func (s *Store) Path(network string) string {
	return filepath.Join(s.dir, network+".json")
}

// Load reads the session of a network. A missing file, or one recorded for
// a different chain ID, yields a fresh inactive session.
func (s *Store) Load(network string, chainID int64) (lock.Session, error) {
	fresh := lock.NewSession(network, chainID)
	if err := checkNetworkName(network); err != nil {
		return fresh, err
	}

	path := s.Path(network)
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a validated network name
	if errors.Is(err, os.ErrNotExist) {
		return fresh, nil
	}
	if err != nil {
		return fresh, fmt.Errorf("reading session file: %w", err)
	}

	var session lock.Session
	if err := json.Unmarshal(data, &session); err != nil {
		corruptPath := fmt.Sprintf("%s.corrupt.%d", path, time.Now().UTC().UnixNano())
		if renameErr := os.Rename(path, corruptPath); renameErr != nil {
			return fresh, fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptSession, err, renameErr)
		}
		return fresh, fmt.Errorf("%w: %w (moved to %s)", ErrCorruptSession, err, corruptPath)
	}

	if session.ChainID != chainID {
		return fresh, nil
	}
	session.Network = network
	return session, nil
}

// Save writes a session atomically.
func (s *Store) Save(session lock.Session) error {
	if err := checkNetworkName(session.Network); err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := fileutil.WriteAtomic(s.Path(session.Network), data, sessionFilePermissions); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// Reset removes the session file of a network.
func (s *Store) Reset(network string) error {
	if err := checkNetworkName(network); err != nil {
		return err
	}
	if err := os.Remove(s.Path(network)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// Exists checks if a network has a stored session.
func (s *Store) Exists(network string) bool {
	_, err := os.Stat(s.Path(network))
	return err == nil
}

func checkNetworkName(network string) error {
	if network == "" || network == "." || network == ".." || strings.ContainsAny(network, `/\`) {
		return tlerr.WithDetails(tlerr.ErrInvalidInput, map[string]string{"network": network})
	}
	return nil
}
