package app

import (
	"context"
	"log"
	"time"

	"quiz-engine/internal/domain"
)

// The timer is the sole writer of remaining time. One goroutine per
// in_progress session, started by the state machine and tracked through the
// runtime so a second start is impossible. It outlives disconnects: dropping
// the connection must not pause the clock.

// ensureTimerLocked spawns the countdown goroutine if none is running,
// resuming from the given persisted remaining time.
func (rt *runtime) ensureTimerLocked(remaining int) {
	if rt.timerCancel != nil {
		return
	}
	cancel := make(chan struct{})
	rt.timerCancel = cancel
	go rt.runTimer(remaining, cancel)
}

func (rt *runtime) stopTimerLocked() {
	if rt.timerCancel != nil {
		close(rt.timerCancel)
		rt.timerCancel = nil
	}
}

func (rt *runtime) runTimer(remaining int, cancel chan struct{}) {
	ticker := time.NewTicker(rt.engine.tick)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-cancel:
			return
		case <-ticker.C:
		}
		remaining--
		if !rt.applyTick(remaining, cancel) {
			return
		}
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.completeMsg != nil {
		// An explicit submit won the race; nothing left to do.
		return
	}
	if err := rt.completeLocked(context.Background(), domain.ReasonTimeExpired); err != nil {
		log.Printf("session %s: expiry completion failed: %v", rt.id, err)
	}
}

// applyTick persists the decremented value and pushes a tick to the bound
// connection. A tick with no live connection is dropped; the persisted value
// is the only authority. Returns false once the session has completed.
func (rt *runtime) applyTick(remaining int, cancel chan struct{}) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	select {
	case <-cancel:
		return false
	default:
	}
	if rt.completeMsg != nil {
		return false
	}

	if err := rt.engine.store.UpdateTimeRemaining(context.Background(), rt.id, remaining); err != nil {
		log.Printf("session %s: persist remaining time: %v", rt.id, err)
	}
	if rt.sink != nil {
		rt.sink.Send(newTimerTickMessage(remaining))
	}
	return true
}
