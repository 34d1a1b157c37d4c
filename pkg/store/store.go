// Package store persists characterization reports in a pebble database
// keyed by KSUID.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/characterize/pkg/report"
)

// reportPrefix namespaces report keys.
const reportPrefix = 'r'

// Store is a pebble-backed report store. Writes use pebble.NoSync.
type Store struct {
	mu          sync.RWMutex
	db          *pebble.DB
	compression CompressionTag
}

// Open opens or creates the store described by cfg.
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	db, err := pebble.Open(cfg.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", cfg.Dir, err)
	}
	return &Store{db: db, compression: cfg.Compression}, nil
}

func key(id ksuid.KSUID) []byte {
	return append([]byte{reportPrefix}, id.Bytes()...)
}

// ParseID parses a report id.
func ParseID(s string) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// Put stores r under a new id, which is also written to r.ID.
func (s *Store) Put(r *report.Report) (ksuid.KSUID, error) {
	id := ksuid.New()
	r.ID = id.String()

	data, err := report.Marshal(r, report.CBOR)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("failed to encode report: %w", err)
	}
	value, err := encodeValue(data, s.compression)
	if err != nil {
		return ksuid.Nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ksuid.Nil, ErrClosed
	}
	if err := s.db.Set(key(id), value, pebble.NoSync); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to store report: %w", err)
	}
	return id, nil
}

// Get loads the report with the given id.
func (s *Store) Get(id ksuid.KSUID) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	value, closer, err := s.db.Get(key(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", id, err)
	}
	defer closer.Close()

	return decode(value)
}

// Delete removes the report with the given id.
func (s *Store) Delete(id ksuid.KSUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	_, closer, err := s.db.Get(key(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read report %s: %w", id, err)
	}
	closer.Close()

	return s.db.Delete(key(id), pebble.NoSync)
}

// List summarizes every stored report in id order, which follows creation
// time at one-second resolution.
func (s *Store) List() ([]report.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{reportPrefix},
		UpperBound: []byte{reportPrefix + 1},
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	summaries := make([]report.Summary, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		r, err := decode(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("report %x: %w", iter.Key()[1:], err)
		}
		summaries = append(summaries, r.Summarize())
	}
	return summaries, iter.Error()
}

// Close closes the underlying database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func decode(value []byte) (*report.Report, error) {
	data, err := decodeValue(value)
	if err != nil {
		return nil, err
	}
	r, err := report.Unmarshal(data, report.CBOR)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	return r, nil
}
