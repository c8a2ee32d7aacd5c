// Package preview cycles a displayed frame index at the confirmed rate.
package preview

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tendant/stopmotion-pipeline/internal/logging"
)

// Ticker is the subset of time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTicker overrides how tickers are created.
func WithTicker(fn TickerFunc) Option {
	return func(s *Scheduler) { s.newTicker = fn }
}

// WithOnAdvance registers fn to be called after every advance with the new
// index. fn runs on the scheduler goroutine without locks held.
func WithOnAdvance(fn func(index int)) Option {
	return func(s *Scheduler) { s.onAdvance = fn }
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// State is a point-in-time view of the scheduler.
type State struct {
	Playing  bool          `json:"playing"`
	Running  bool          `json:"running"`
	Index    int           `json:"index"`
	Length   int           `json:"length"`
	Rate     int           `json:"rate"`
	Interval time.Duration `json:"interval"`
}

// Scheduler advances an index modulo the sequence length while playing.
// At most one timer goroutine is alive; every input change stops it and
// starts a fresh one when the inputs still allow playback.
type Scheduler struct {
	newTicker TickerFunc
	onAdvance func(int)
	logger    *slog.Logger

	mu        sync.Mutex
	playing   bool
	length    int
	rate      int
	rateValid bool
	index     int
	gen       uint64
	stop      chan struct{}
	closed    bool
}

// New creates a paused scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		newTicker: newTimeTicker,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "preview")
	return s
}

// Toggle flips between playing and paused and returns the new play state.
func (s *Scheduler) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPlayingLocked(!s.playing)
	return s.playing
}

// SetPlaying sets the play state explicitly.
func (s *Scheduler) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPlayingLocked(playing)
}

func (s *Scheduler) setPlayingLocked(playing bool) {
	s.playing = playing
	if !playing {
		s.index = 0
	}
	s.rescheduleLocked()
}

// SetLength updates the sequence length. The index is reset when it no
// longer points inside the sequence.
func (s *Scheduler) SetLength(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	s.length = n
	if s.index >= n {
		s.index = 0
	}
	s.rescheduleLocked()
}

// SetRate updates the pacing rate and whether the rate field is valid.
func (s *Scheduler) SetRate(rate int, valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	s.rateValid = valid
	s.rescheduleLocked()
}

// Index returns the displayed frame index.
func (s *Scheduler) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// State returns a snapshot of the scheduler.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Playing:  s.playing,
		Running:  s.stop != nil,
		Index:    s.index,
		Length:   s.length,
		Rate:     s.rate,
		Interval: s.intervalLocked(),
	}
}

// Close stops the timer permanently.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.rescheduleLocked()
}

// minInterval bounds the tick period for very high rates.
const minInterval = time.Millisecond

func (s *Scheduler) intervalLocked() time.Duration {
	if s.rate <= 0 {
		return 0
	}
	return max(time.Second/time.Duration(s.rate), minInterval)
}

func (s *Scheduler) rescheduleLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.gen++

	if s.closed || !s.playing || s.length == 0 || !s.rateValid || s.rate <= 0 {
		return
	}

	interval := s.intervalLocked()
	stop := make(chan struct{})
	s.stop = stop
	ticker := s.newTicker(interval)
	go s.loop(s.gen, ticker, stop)
	s.logger.Debug("preview timer scheduled",
		logging.Int(logging.FieldFrameRate, s.rate),
		logging.Duration("interval", interval),
	)
}

func (s *Scheduler) loop(gen uint64, ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.mu.Lock()
			if gen != s.gen {
				s.mu.Unlock()
				return
			}
			s.index = (s.index + 1) % s.length
			index := s.index
			s.mu.Unlock()
			if s.onAdvance != nil {
				s.onAdvance(index)
			}
		}
	}
}
