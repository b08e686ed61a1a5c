// Package scheduler runs recurring download schedules: cron-defined jobs
// persisted in SQLite and fired through a min-heap timer loop.
package scheduler

import (
	"container/heap"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
)

const maxSleepCap = 60 * time.Second

// FireFunc receives a schedule occurrence: the job to enqueue when a
// schedule's trigger time arrives.
type FireFunc func(url, folder string)

// Service owns the schedule store and the timer loop. It satisfies the
// daemon's schedule CRUD backend; mutations are persisted first and then
// reflected into the running heap through the loop's channels.
type Service struct {
	store  *Store
	log    logger.Logger
	onFire FireFunc

	addChan    chan fireEvent
	removeChan chan int64
	ctx        context.Context
}

// New creates and starts a schedule service. Persisted schedules are
// loaded on startup: occurrences missed while the daemon was down fire
// immediately, future ones go into the heap. The loop goroutine exits
// when ctx is cancelled.
func New(ctx context.Context, store *Store, onFire FireFunc, l logger.Logger) (*Service, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	s := &Service{
		store:      store,
		log:        l,
		onFire:     onFire,
		addChan:    make(chan fireEvent, 64),
		removeChan: make(chan int64, 64),
		ctx:        ctx,
	}

	existing, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("loading schedules: %w", err)
	}
	go s.run(s.loadInitial(existing, time.Now()))
	return s, nil
}

// loadInitial turns the persisted schedules into the heap's starting
// events. A schedule missed while the daemon was down fires immediately
// and is re-armed at its next occurrence, same as a fire from the run
// loop, so catch-up never drops a recurring schedule.
func (s *Service) loadInitial(existing []common.Schedule, now time.Time) []fireEvent {
	var initial []fireEvent
	for _, sched := range existing {
		ev, missed, err := s.revive(sched, now)
		if err != nil {
			s.log.Warning("schedule %d: %v", sched.ID, err)
			continue
		}
		if missed {
			s.log.Info("schedule %d missed while down, firing now", sched.ID)
			if next := s.fire(sched.ID); next != nil {
				initial = append(initial, *next)
			}
			continue
		}
		initial = append(initial, ev)
	}
	return initial
}

// revive turns a persisted schedule into a heap event. A schedule whose
// stored next_run has already passed is reported as missed.
func (s *Service) revive(sched common.Schedule, now time.Time) (fireEvent, bool, error) {
	at := sched.NextRun
	if at == nil {
		next, err := nextCronOccurrence(sched.Cron, now)
		if err != nil {
			return fireEvent{}, false, fmt.Errorf("computing next run: %w", err)
		}
		at = &next
	}
	if at.Before(now) {
		return fireEvent{}, true, nil
	}
	return fireEvent{ID: sched.ID, TriggerAt: *at, Cron: sched.Cron}, false, nil
}

// List returns all schedules.
func (s *Service) List() ([]common.Schedule, error) {
	return s.store.List()
}

// Add persists a new schedule and arms its first occurrence.
func (s *Service) Add(p common.ScheduleAddParams) (*common.Schedule, error) {
	if !gronx.IsValid(p.Cron) {
		return nil, fmt.Errorf("invalid cron expression %q", p.Cron)
	}
	next, err := nextCronOccurrence(p.Cron, time.Now())
	if err != nil {
		return nil, fmt.Errorf("computing next run: %w", err)
	}
	sched, err := s.store.Insert(p.URL, p.Cron, p.Folder, &next)
	if err != nil {
		return nil, err
	}
	s.enqueue(fireEvent{ID: sched.ID, TriggerAt: next, Cron: sched.Cron})
	s.log.Info("schedule %d added, next run %s", sched.ID, next.Format(time.RFC3339))
	return sched, nil
}

// Update changes the cron expression of the given schedules and re-arms
// them at the new expression's next occurrence.
func (s *Service) Update(ids []int64, cron string) error {
	if !gronx.IsValid(cron) {
		return fmt.Errorf("invalid cron expression %q", cron)
	}
	next, err := nextCronOccurrence(cron, time.Now())
	if err != nil {
		return fmt.Errorf("computing next run: %w", err)
	}
	for _, id := range ids {
		if err := s.store.UpdateCron(id, cron, &next); err != nil {
			return err
		}
		s.dequeue(id)
		s.enqueue(fireEvent{ID: id, TriggerAt: next, Cron: cron})
	}
	return nil
}

// Remove deletes the given schedules and disarms their pending
// occurrences.
func (s *Service) Remove(ids []int64) error {
	if err := s.store.Delete(ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.dequeue(id)
	}
	return nil
}

func (s *Service) enqueue(e fireEvent) {
	select {
	case s.addChan <- e:
	case <-s.ctx.Done():
	}
}

func (s *Service) dequeue(id int64) {
	select {
	case s.removeChan <- id:
	case <-s.ctx.Done():
	}
}

// fire enqueues one occurrence of a schedule and records the run. The
// schedule is re-read from the store so an update or removal that raced
// the timer wins.
func (s *Service) fire(id int64) *fireEvent {
	sched, err := s.store.Get(id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Error("schedule %d lookup: %v", id, err)
		}
		return nil
	}
	s.onFire(sched.URL, sched.Folder)

	now := time.Now()
	next, err := nextCronOccurrence(sched.Cron, now)
	if err != nil {
		s.log.Error("schedule %d next run: %v", id, err)
		if err := s.store.MarkFired(id, now, nil); err != nil {
			s.log.Error("%v", err)
		}
		return nil
	}
	if err := s.store.MarkFired(id, now, &next); err != nil {
		s.log.Error("%v", err)
	}
	return &fireEvent{ID: id, TriggerAt: next, Cron: sched.Cron}
}

// run is the timer loop, an active object over a min-heap of pending
// occurrences. It sleeps until the earliest trigger with a cap so clock
// adjustments never strand it, fires due events, and re-arms recurring
// ones.
func (s *Service) run(initial []fireEvent) {
	h := &fireHeap{}
	heap.Init(h)
	for _, e := range initial {
		heapPush(h, e)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			// No events, block on the channels alone.
			return nil
		}
		dur := time.Until((*h)[0].TriggerAt)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case e := <-s.addChan:
			heapPush(h, e)
			timerCh = resetTimer()

		case id := <-s.removeChan:
			heapRemoveByID(h, id)
			timerCh = resetTimer()

		case <-timerCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].TriggerAt.After(now) {
				e := heapPop(h)
				if next := s.fire(e.ID); next != nil {
					heapPush(h, *next)
				}
			}
			timerCh = resetTimer()
		}
	}
}

// nextCronOccurrence returns the next time expr fires strictly after
// start.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}
