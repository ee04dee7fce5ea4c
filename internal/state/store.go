// Package state persists the most recently accepted snapshot across
// invocations.
//
// The store file is the only coordination mechanism between independent
// process invocations; there is no locking, and concurrent writers race with
// last-write-wins semantics.
package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gitstamp/internal/atomicfile"
	"gitstamp/internal/snapshot"
)

// checksumPrefix tags the leading integrity line of the state file.
const checksumPrefix = "sha256:"

// Store reads and writes the persisted snapshot encoding at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state file path is required")
	}
	return &Store{path: path}, nil
}

// Load returns the persisted snapshot encoding.
//
// found is false when no state file exists, and also when the file fails its
// integrity check: a truncated or hand-edited state file must behave exactly
// like a missing one (force regeneration), never like a spurious match.
func (s *Store) Load() (persisted []byte, found bool, err error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read state file: %w", err)
	}

	line, body, ok := bytes.Cut(raw, []byte{'\n'})
	if !ok || !bytes.HasPrefix(line, []byte(checksumPrefix)) {
		return nil, false, nil
	}
	want := string(bytes.TrimPrefix(line, []byte(checksumPrefix)))
	if digest(body) != want {
		return nil, false, nil
	}
	return body, true, nil
}

// Save overwrites the state file with the encoding of snap, preceded by its
// checksum line. The write is a whole-file atomic replacement.
func (s *Store) Save(snap snapshot.Snapshot) error {
	body := snap.Encode()
	var buf bytes.Buffer
	buf.WriteString(checksumPrefix)
	buf.WriteString(digest(body))
	buf.WriteByte('\n')
	buf.Write(body)
	if err := atomicfile.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

func digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
