// Package readings keeps a bounded in-memory history of decoded
// measurements, most recent first per detection kind.
package readings

import (
	"sync"

	"github.com/savegress/vitalink/pkg/models"
)

// DefaultHistorySize is used when the configured size is not positive
const DefaultHistorySize = 10

// Store holds the most recent readings per detection kind. When a
// kind's buffer is full the oldest reading is evicted.
type Store struct {
	mu     sync.RWMutex
	size   int
	data   map[models.DetectionKind][]models.Reading
	latest map[models.DetectionKind]models.Reading
	total  int64
}

// NewStore creates a store keeping up to size readings per kind
func NewStore(size int) *Store {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Store{
		size:   size,
		data:   make(map[models.DetectionKind][]models.Reading),
		latest: make(map[models.DetectionKind]models.Reading),
	}
}

// Add records a reading. Invalid readings are not stored; they carry no
// result worth replaying to a late consumer.
func (s *Store) Add(reading models.Reading) {
	if !reading.Valid {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[reading.Kind], reading)
	if len(history) > s.size {
		history = append(history[:0], history[len(history)-s.size:]...)
	}
	s.data[reading.Kind] = history
	s.latest[reading.Kind] = reading
	s.total++
}

// History returns the stored readings for a kind, oldest first
func (s *Store) History(kind models.DetectionKind) []models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[kind]
	out := make([]models.Reading, len(history))
	copy(out, history)
	return out
}

// Latest returns the most recent reading for a kind
func (s *Store) Latest(kind models.DetectionKind) (models.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reading, ok := s.latest[kind]
	return reading, ok
}

// Kinds returns the kinds that have at least one stored reading, in
// the canonical order
func (s *Store) Kinds() []models.DetectionKind {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make([]models.DetectionKind, 0, len(s.data))
	for _, kind := range models.AllKinds {
		if len(s.data[kind]) > 0 {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Clear discards all stored readings
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[models.DetectionKind][]models.Reading)
	s.latest = make(map[models.DetectionKind]models.Reading)
}

// Stats returns storage statistics
func (s *Store) Stats() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalReadings: s.total,
		ByKind:        make(map[string]int),
	}
	for kind, history := range s.data {
		stats.ByKind[string(kind)] = len(history)
		stats.StoredReadings += len(history)
	}
	return stats
}

// Stats contains reading storage statistics
type Stats struct {
	TotalReadings  int64          `json:"total_readings"`
	StoredReadings int            `json:"stored_readings"`
	ByKind         map[string]int `json:"by_kind"`
}
