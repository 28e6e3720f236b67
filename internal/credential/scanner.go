package credential

import (
	"context"
	"sync"

	"github.com/diagnosis/stayline-hotel/internal/domain"
)

// Resolve turns a raw scanned payload into the reservation it references.
// The reservation service provides this; it runs Verify first and then the
// store lookup, without mutating lifecycle state.
type Resolve func(ctx context.Context, raw string) (*domain.Reservation, error)

type ScanState int

const (
	// ScanIdle: scanner created or restarted, frames accepted.
	ScanIdle ScanState = iota
	// ScanResolving: one verification in flight, further frames dropped.
	ScanResolving
	// ScanDone: a result (success or error) is held for the operator;
	// frames dropped until Restart.
	ScanDone
)

// ScanResult surfaces the outcome of one verification for operator action.
type ScanResult struct {
	Reservation *domain.Reservation
	Err         error
}

// Scanner serializes camera-frame payloads into at most one in-flight
// verification. Camera callbacks are inherently concurrent; the scanner is
// the explicit state object that turns them into a single-consumer queue so
// rapid repeated scans of the same code cannot trigger duplicate transition
// attempts.
type Scanner struct {
	resolve Resolve

	mu     sync.Mutex
	state  ScanState
	result ScanResult
}

func NewScanner(resolve Resolve) *Scanner {
	return &Scanner{resolve: resolve}
}

func (s *Scanner) State() ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit feeds one decoded frame payload. It returns false when the frame
// was dropped because a verification is already in flight or a result is
// pending. On acceptance it resolves synchronously and parks the outcome
// for the operator.
func (s *Scanner) Submit(ctx context.Context, raw string) bool {
	s.mu.Lock()
	if s.state != ScanIdle {
		s.mu.Unlock()
		return false
	}
	s.state = ScanResolving
	s.mu.Unlock()

	res, err := s.resolve(ctx, raw)

	s.mu.Lock()
	s.result = ScanResult{Reservation: res, Err: err}
	s.state = ScanDone
	s.mu.Unlock()
	return true
}

// Result returns the parked outcome; ok is false until a submission has
// fully resolved.
func (s *Scanner) Result() (ScanResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ScanDone {
		return ScanResult{}, false
	}
	return s.result, true
}

// Restart clears the held result and resumes accepting frames. Explicit
// operator action, mirroring the rescan button.
func (s *Scanner) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ScanIdle
	s.result = ScanResult{}
}

// Run consumes frames until a result lands or ctx is cancelled, then
// returns the result. It is a convenience loop over Submit for callers that
// receive payloads on a channel.
func (s *Scanner) Run(ctx context.Context, frames <-chan string) (ScanResult, error) {
	for {
		if result, ok := s.Result(); ok {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return ScanResult{}, ctx.Err()
		case raw, ok := <-frames:
			if !ok {
				return ScanResult{}, context.Canceled
			}
			s.Submit(ctx, raw)
		}
	}
}
