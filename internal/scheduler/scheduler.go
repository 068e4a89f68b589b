package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"livingbookshelf/pkg/domain"
	"livingbookshelf/pkg/store"
)

// DefaultInterval is the poll cadence. The due window spans the same
// duration, so each user matches in exactly one tick per cycle when no
// ticks are missed.
const DefaultInterval = 10 * time.Minute

const minutesPerDay = 24 * 60

// Notifier triggers one user's notification email.
type Notifier interface {
	NotifyUser(ctx context.Context, userID string) error
}

// Scheduler periodically scans all user profiles and notifies the ones whose
// preferred time falls inside the current due window. There is no delivery
// state: a process restart inside a due window can send a second email for
// the same window.
type Scheduler struct {
	store    store.Store
	notifier Notifier
	interval time.Duration
	now      func() time.Time
}

// New constructs a scheduler polling at the given interval (DefaultInterval
// when zero).
func New(st store.Store, notifier Notifier, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    st,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// Run blocks, ticking at the configured interval until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick enumerates every user profile (full scan, no time index) and
// processes each sequentially. One user's failure never aborts the rest.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	users, err := s.store.ListUsers()
	if err != nil {
		slog.Error("scheduler: list users", "err", err)
		return
	}
	slog.Debug("scheduler tick", "users", len(users), "time", now.Format("15:04"))
	for _, user := range users {
		if err := s.processUser(ctx, user.ID, now); err != nil {
			slog.Error("scheduler: process user", "user", user.ID, "err", err)
		}
	}
}

func (s *Scheduler) processUser(ctx context.Context, userID string, now time.Time) error {
	settings, ok, err := s.store.GetSettings(userID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		settings = domain.DefaultSettings(userID)
	}
	if !s.due(settings, now) {
		return nil
	}
	return s.notifier.NotifyUser(ctx, userID)
}

// due reports whether the user's preferred minute fell within the window
// [pref, pref+interval) ending at now, with midnight wraparound.
func (s *Scheduler) due(settings domain.Settings, now time.Time) bool {
	if settings.EmailFrequency == domain.FrequencyNever {
		return false
	}
	pref, err := parseMinuteOfDay(settings.EmailTime)
	if err != nil {
		slog.Warn("scheduler: bad email time, using default", "owner", settings.OwnerID, "emailTime", settings.EmailTime)
		pref, _ = parseMinuteOfDay(domain.DefaultEmailTime)
	}
	nowMinutes := now.Hour()*60 + now.Minute()
	diff := (nowMinutes - pref + minutesPerDay) % minutesPerDay
	window := int(s.interval / time.Minute)
	if diff >= window {
		return false
	}
	if settings.EmailFrequency == domain.FrequencyWeekly && int(now.Weekday()) != settings.EmailDay {
		return false
	}
	return true
}

// parseMinuteOfDay converts "HH:MM" to minutes from midnight.
func parseMinuteOfDay(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return hour*60 + minute, nil
}
