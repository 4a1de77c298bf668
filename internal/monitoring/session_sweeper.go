package monitoring

import (
	"time"

	"github.com/confdesk/confdesk/internal/session"
	"github.com/rs/zerolog/log"
)

const sweepInterval = 10 * time.Minute

// SessionSweeper periodically removes expired sessions from storage.
type SessionSweeper struct {
	sessions *session.Manager
	ticker   *time.Ticker
	done     chan bool
}

// NewSessionSweeper creates a new sweeper instance.
func NewSessionSweeper(sessions *session.Manager) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		done:     make(chan bool),
	}
}

// Run starts the sweeper's ticking loop.
func (s *SessionSweeper) Run() {
	log.Info().Msg("Starting session sweeper")
	s.ticker = time.NewTicker(sweepInterval)
	defer s.ticker.Stop()

	// Run once immediately on start
	s.sweep()

	for {
		select {
		case <-s.done:
			log.Info().Msg("Stopping session sweeper")
			return
		case <-s.ticker.C:
			s.sweep()
		}
	}
}

// Stop halts the sweeper.
func (s *SessionSweeper) Stop() {
	s.done <- true
}

func (s *SessionSweeper) sweep() {
	purged, err := s.sessions.PurgeExpired()
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired sessions")
		return
	}
	if purged > 0 {
		log.Info().Int64("purged", purged).Msg("Expired sessions removed")
	}
}
