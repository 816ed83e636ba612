package playlog

import (
	"sync"
	"time"

	"playtrace/models"
)

// MemSink is an in-memory PlayLogSink for tests and the CLI; the real
// collaborator plugs a durable table behind the same interface.
type MemSink struct {
	mu       sync.Mutex
	sessions []models.PlaySession
}

// NewMemSink constructs an empty in-memory sink.
func NewMemSink() *MemSink {
	return &MemSink{}
}

func (s *MemSink) ExistsOverlapping(songID, stationID uint32, start, stop time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.SongID != songID || sess.StationID != stationID {
			continue
		}
		if sess.StartTime.After(stop) || sess.StopTime.Before(start) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (s *MemSink) Save(session models.PlaySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

// Sessions returns a copy of every persisted session, for inspection in
// tests and the CLI's stats output.
func (s *MemSink) Sessions() []models.PlaySession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PlaySession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

var _ PlayLogSink = (*MemSink)(nil)
