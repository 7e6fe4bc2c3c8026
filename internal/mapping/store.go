// Package mapping persists the identity bijection between source-side and
// mirror-side entity IDs across sync cycles.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// State is the single durable artifact between cycles. The two item indices
// are redundant views of one logical bijection.
type State struct {
	SourceToMirror map[string]string `json:"source_to_mirror"`
	MirrorToSource map[string]string `json:"mirror_to_source"`
	Collections    map[string]string `json:"collection_to_collection,omitempty"`
	LastSync       string            `json:"last_sync,omitempty"`
}

func emptyState() State {
	return State{
		SourceToMirror: make(map[string]string),
		MirrorToSource: make(map[string]string),
		Collections:    make(map[string]string),
	}
}

// Store owns the state file. It is a cache: the remote services stay the
// source of truth, so a lost or corrupt file only costs a resync.
type Store struct {
	path  string
	log   zerolog.Logger
	state State
}

// NewStore creates a store backed by the given file path. Call Load before
// first use.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path:  path,
		log:   log.With().Str("component", "mapping").Logger(),
		state: emptyState(),
	}
}

// Load reads the state file. A missing or unparseable file yields an empty
// bijection; the failure is logged, never fatal.
func (s *Store) Load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("could not read mapping file, starting fresh")
		}
		s.state = emptyState()
		return
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("mapping file unparseable, starting fresh")
		s.state = emptyState()
		return
	}

	if st.SourceToMirror == nil {
		st.SourceToMirror = make(map[string]string)
	}
	if st.MirrorToSource == nil {
		st.MirrorToSource = make(map[string]string)
	}
	if st.Collections == nil {
		st.Collections = make(map[string]string)
	}
	s.state = st
}

// Save serializes the whole state in one write. The file is written to a
// temp path and renamed over the target so a partial write cannot corrupt a
// previously valid file.
func (s *Store) Save() error {
	s.state.LastSync = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	committed = true
	return nil
}

// LookupBySource returns the mirror ID mapped to a source ID.
func (s *Store) LookupBySource(sourceID string) (string, bool) {
	m, ok := s.state.SourceToMirror[sourceID]
	return m, ok
}

// LookupByMirror returns the source ID mapped to a mirror ID.
func (s *Store) LookupByMirror(mirrorID string) (string, bool) {
	src, ok := s.state.MirrorToSource[mirrorID]
	return src, ok
}

// Insert records a pair. Any stale reverse entries for either ID are
// dropped first so the bijection invariant holds.
func (s *Store) Insert(sourceID, mirrorID string) {
	if old, ok := s.state.SourceToMirror[sourceID]; ok && old != mirrorID {
		delete(s.state.MirrorToSource, old)
	}
	if old, ok := s.state.MirrorToSource[mirrorID]; ok && old != sourceID {
		delete(s.state.SourceToMirror, old)
	}
	s.state.SourceToMirror[sourceID] = mirrorID
	s.state.MirrorToSource[mirrorID] = sourceID
}

// RemoveBySource drops the pair keyed by a source ID.
func (s *Store) RemoveBySource(sourceID string) {
	if m, ok := s.state.SourceToMirror[sourceID]; ok {
		delete(s.state.SourceToMirror, sourceID)
		delete(s.state.MirrorToSource, m)
	}
}

// RemoveByMirror drops the pair keyed by a mirror ID.
func (s *Store) RemoveByMirror(mirrorID string) {
	if src, ok := s.state.MirrorToSource[mirrorID]; ok {
		delete(s.state.MirrorToSource, mirrorID)
		delete(s.state.SourceToMirror, src)
	}
}

// Pairs returns a copy of the source-to-mirror index for iteration.
func (s *Store) Pairs() map[string]string {
	out := make(map[string]string, len(s.state.SourceToMirror))
	for k, v := range s.state.SourceToMirror {
		out[k] = v
	}
	return out
}

// Len returns the number of item pairs.
func (s *Store) Len() int {
	return len(s.state.SourceToMirror)
}

// CollectionPairs returns a copy of the collection index for iteration.
func (s *Store) CollectionPairs() map[string]string {
	out := make(map[string]string, len(s.state.Collections))
	for k, v := range s.state.Collections {
		out[k] = v
	}
	return out
}

// CollectionFor returns the mirror collection mapped to a source collection.
func (s *Store) CollectionFor(sourceCollectionID string) (string, bool) {
	id, ok := s.state.Collections[sourceCollectionID]
	return id, ok
}

// MapCollection records a collection pair.
func (s *Store) MapCollection(sourceCollectionID, mirrorCollectionID string) {
	s.state.Collections[sourceCollectionID] = mirrorCollectionID
}

// RemoveCollection drops a collection pair, typically because the mirror
// collection was deleted remotely.
func (s *Store) RemoveCollection(sourceCollectionID string) {
	delete(s.state.Collections, sourceCollectionID)
}
