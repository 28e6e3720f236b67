package credential_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/diagnosis/stayline-hotel/internal/credential"
	"github.com/diagnosis/stayline-hotel/internal/domain"
)

func TestScannerSurfacesFirstResult(t *testing.T) {
	want := &domain.Reservation{ID: "res-1"}
	var calls int32
	scanner := credential.NewScanner(func(ctx context.Context, raw string) (*domain.Reservation, error) {
		atomic.AddInt32(&calls, 1)
		return want, nil
	})

	if !scanner.Submit(context.Background(), "payload-1") {
		t.Fatal("first frame should be accepted")
	}

	result, ok := scanner.Result()
	if !ok {
		t.Fatal("result should be available")
	}
	if result.Err != nil || result.Reservation != want {
		t.Fatalf("result = %+v", result)
	}

	// Frames after a result are dropped until the operator restarts.
	if scanner.Submit(context.Background(), "payload-2") {
		t.Error("frame after result should be dropped")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("resolve calls = %d, want 1", got)
	}
}

func TestScannerSurfacesErrors(t *testing.T) {
	scanner := credential.NewScanner(func(ctx context.Context, raw string) (*domain.Reservation, error) {
		return nil, domain.ErrMalformedCredential
	})

	scanner.Submit(context.Background(), "garbage")

	result, ok := scanner.Result()
	if !ok {
		t.Fatal("error result should be available for operator action")
	}
	if !errors.Is(result.Err, domain.ErrMalformedCredential) {
		t.Errorf("err = %v, want malformed", result.Err)
	}
}

func TestScannerRestartResumesScanning(t *testing.T) {
	scanner := credential.NewScanner(func(ctx context.Context, raw string) (*domain.Reservation, error) {
		return &domain.Reservation{ID: raw}, nil
	})

	scanner.Submit(context.Background(), "first")
	scanner.Restart()

	if _, ok := scanner.Result(); ok {
		t.Fatal("restart should clear the held result")
	}
	if scanner.State() != credential.ScanIdle {
		t.Fatalf("state = %v, want idle", scanner.State())
	}

	if !scanner.Submit(context.Background(), "second") {
		t.Fatal("frame after restart should be accepted")
	}
	result, _ := scanner.Result()
	if result.Reservation == nil || result.Reservation.ID != "second" {
		t.Errorf("result = %+v, want second", result)
	}
}

// Rapid repeated scans of the same code must produce exactly one
// verification.
func TestScannerSingleInFlightUnderConcurrency(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	scanner := credential.NewScanner(func(ctx context.Context, raw string) (*domain.Reservation, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &domain.Reservation{ID: "res-1"}, nil
	})

	var wg sync.WaitGroup
	accepted := int32(0)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if scanner.Submit(context.Background(), "same-code") {
				atomic.AddInt32(&accepted, 1)
			}
		}()
	}

	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("resolve calls = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&accepted); got != 1 {
		t.Errorf("accepted frames = %d, want 1", got)
	}
}

func TestScannerRunConsumesChannel(t *testing.T) {
	scanner := credential.NewScanner(func(ctx context.Context, raw string) (*domain.Reservation, error) {
		if raw == "good" {
			return &domain.Reservation{ID: "res-1"}, nil
		}
		return nil, domain.ErrMalformedCredential
	})

	frames := make(chan string, 2)
	frames <- "good"

	result, err := scanner.Run(context.Background(), frames)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Reservation == nil || result.Reservation.ID != "res-1" {
		t.Errorf("result = %+v", result)
	}
}

func TestScannerRunStopsOnCancel(t *testing.T) {
	scanner := credential.NewScanner(func(ctx context.Context, raw string) (*domain.Reservation, error) {
		return nil, domain.ErrReservationNotFound
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := scanner.Run(ctx, make(chan string)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
