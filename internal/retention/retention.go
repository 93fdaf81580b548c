package retention

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imom29/CodeCollab/internal/room"
)

// Rooms are retained forever by default; the sweeper exists for
// deployments that opt in to a TTL.
type Config struct {
	TTL      time.Duration
	Interval time.Duration
}

func DefaultConfig(ttl time.Duration) Config {
	return Config{
		TTL:      ttl,
		Interval: 5 * time.Minute,
	}
}

// Membership reports whether a room currently has connected clients.
type Membership interface {
	IsActive(roomID string) bool
}

// Service periodically evicts rooms that have no connected clients and
// have been idle past the TTL.
type Service struct {
	registry *room.Registry
	members  Membership
	config   Config
	stop     chan struct{}
	wg       sync.WaitGroup
	log      *logrus.Entry
}

func New(registry *room.Registry, members Membership, config Config, logger *logrus.Logger) *Service {
	return &Service{
		registry: registry,
		members:  members,
		config:   config,
		stop:     make(chan struct{}),
		log:      logger.WithField("component", "retention"),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.WithFields(logrus.Fields{
		"ttl":      s.config.TTL,
		"interval": s.config.Interval,
	}).Info("Retention sweeper started")
}

func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.log.Info("Retention sweeper stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	evicted := s.registry.EvictIdle(s.config.TTL, s.members.IsActive)
	if evicted > 0 {
		s.log.WithField("evicted", evicted).Info("Swept idle rooms")
	}
}
