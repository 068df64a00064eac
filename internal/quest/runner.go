package quest

import (
	"sync"
	"time"

	"quest-progression-service/internal/domain"
)

const (
	// DefaultTickInterval drives the per-question countdown.
	DefaultTickInterval = time.Second
	// DefaultFeedbackDwell is how long feedback stays up before auto-advance.
	DefaultFeedbackDwell = 5 * time.Second
)

// RunnerConfig tunes the runner's timers; tests shrink them.
type RunnerConfig struct {
	TickInterval  time.Duration
	FeedbackDwell time.Duration
}

// DefaultRunnerConfig returns production timings.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		TickInterval:  DefaultTickInterval,
		FeedbackDwell: DefaultFeedbackDwell,
	}
}

// Runner owns the timer lifecycle for one session: the repeating countdown
// tick while a question is awaiting its answer, and the one-shot dwell that
// auto-advances out of feedback. The session itself holds no timers; the
// runner serializes all access behind its mutex and guarantees both timers
// die with Dispose, so no callback can act on a torn-down session.
type Runner struct {
	cfg RunnerConfig

	mu          sync.Mutex
	session     *Session
	dwell       *time.Timer
	subscribers map[chan State]struct{}
	done        chan struct{}
	disposed    bool
}

// NewRunner starts driving the session. The session must be freshly started
// and must not be mutated by anyone else afterwards.
func NewRunner(session *Session, cfg RunnerConfig) *Runner {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.FeedbackDwell <= 0 {
		cfg.FeedbackDwell = DefaultFeedbackDwell
	}
	r := &Runner{
		cfg:         cfg,
		session:     session,
		subscribers: make(map[chan State]struct{}),
		done:        make(chan struct{}),
	}
	go r.tickLoop()
	return r
}

func (r *Runner) tickLoop() {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-r.done:
			return
		}
	}
}

func (r *Runner) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed || r.session.Phase() != PhaseAwaitingAnswer {
		return
	}
	r.session.Tick()
	if r.session.Phase() == PhaseShowingFeedback {
		r.scheduleAdvanceLocked()
	}
	r.broadcastLocked()
}

// SelectAnswer forwards the answer to the session and, on success, starts
// the feedback dwell.
func (r *Runner) SelectAnswer(optionIndex int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	correct, err := r.session.SelectAnswer(optionIndex)
	if err != nil {
		return false, err
	}
	r.scheduleAdvanceLocked()
	r.broadcastLocked()
	return correct, nil
}

// scheduleAdvanceLocked arms the one-shot dwell timer. Exactly one timer is
// armed per feedback window; the previous one has either fired or been
// stopped before the machine can re-enter ShowingFeedback.
func (r *Runner) scheduleAdvanceLocked() {
	r.dwell = time.AfterFunc(r.cfg.FeedbackDwell, r.advance)
}

func (r *Runner) advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed || r.session.Phase() != PhaseShowingFeedback {
		return
	}
	if err := r.session.Advance(); err != nil {
		return
	}
	r.broadcastLocked()
}

// State returns a snapshot of the driven session's state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Snapshot()
}

// Result delegates to the session's result computation under the runner's
// lock.
func (r *Runner) Result(currentExp, currentLevel int) (domain.QuestLevelResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Result(currentExp, currentLevel)
}

// Completed reports whether the attempt has reached its terminal phase.
func (r *Runner) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Phase() == PhaseCompleted
}

// Subscribe returns a channel of state snapshots, primed with the current
// state. The caller must invoke cancel to avoid leaks.
func (r *Runner) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	initial := r.session.Snapshot()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Runner) broadcastLocked() {
	st := r.session.Snapshot()
	for ch := range r.subscribers {
		select {
		case ch <- st:
		default:
			// Drop the oldest snapshot rather than block the timer goroutine
			// on a slow subscriber.
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

// Dispose tears the runner down: stops the tick loop, disarms any pending
// dwell timer and closes every subscriber channel. Idempotent. An attempt
// disposed before completion is discarded; nothing is persisted for it.
func (r *Runner) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.disposed = true
	close(r.done)
	if r.dwell != nil {
		r.dwell.Stop()
	}
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}
