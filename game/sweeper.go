package game

import (
	"github.com/ardacey/Lexo/shared/logger"
	"github.com/go-co-op/gocron/v2"
)

// Sweeper runs the periodic jobs of the engine: pairing queued players,
// removing rooms whose own cleanup never ran and dropping old practice
// sessions.
type Sweeper struct {
	scheduler  gocron.Scheduler
	service    *Service
	matchmaker *Matchmaker
}

func NewSweeper(service *Service, matchmaker *Matchmaker) (*Sweeper, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(service.clock))
	if err != nil {
		return nil, err
	}
	sw := &Sweeper{scheduler: sched, service: service, matchmaker: matchmaker}

	settings := service.Settings()
	_, err = sched.NewJob(
		gocron.DurationJob(settings.SweepInterval),
		gocron.NewTask(func() {
			if removed := service.SweepRooms(); removed > 0 {
				logger.Infof("[Sweeper] removed %d rooms", removed)
			}
			if removed := service.SweepPractice(); removed > 0 {
				logger.Debugf("[Sweeper] dropped %d practice sessions", removed)
			}
		}),
		gocron.WithName("room-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	if matchmaker != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(settings.MatchInterval),
			gocron.NewTask(func() {
				if n := matchmaker.MatchAll(service.bgCtx); n > 0 {
					logger.Debugf("[Sweeper] created %d matches", n)
				}
			}),
			gocron.WithName("matchmaking"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}
	return sw, nil
}

func (sw *Sweeper) Start() {
	sw.scheduler.Start()
}

func (sw *Sweeper) Shutdown() error {
	return sw.scheduler.Shutdown()
}

// SweepRooms removes finished rooms past their cooldown, empty waiting
// rooms, and waiting rooms nobody has been connected to for too long.
// It returns how many rooms were removed.
func (s *Service) SweepRooms() int {
	now := s.clock.Now()
	removed := 0
	for _, room := range s.registry.Rooms() {
		room.mu.Lock()
		status, mode := room.status, room.mode
		empty := len(room.players) == 0
		age := now.Sub(room.createdAt)
		sinceFinish := now.Sub(room.finishedAt)
		room.mu.Unlock()

		reason := ""
		switch {
		case status == StatusFinished && sinceFinish >= s.settings.cooldown(mode):
			reason = "room-expired"
		case status == StatusWaiting && empty:
			reason = "room-empty"
		case status == StatusWaiting && age >= s.settings.StaleWaitingRoomAge && s.broadcaster.Count(room.id) == 0:
			reason = "room-stale"
		}
		if reason == "" {
			continue
		}
		s.removeRoom(room.id, reason)
		removed++
	}
	return removed
}
