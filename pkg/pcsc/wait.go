package pcsc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCardTimeout is returned by WaitForCard once the retries are spent.
var ErrCardTimeout = errors.New("no card presented")

// Detector is anything that can tell whether a card is present: a Reader, or an
// fmcos.Session wrapping one.
type Detector interface {
	FindCard() (uid []byte, present bool, err error)
}

// WaitForCard polls d until a card shows up, at most retries times with interval
// between attempts. Detection errors end the wait.
func WaitForCard(ctx context.Context, d Detector, retries int, interval time.Duration) ([]byte, error) {
	if retries < 1 {
		retries = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		uid, present, err := d.FindCard()
		if err != nil {
			return nil, fmt.Errorf("detecting card: %w", err)
		}
		if present {
			return uid, nil
		}
		if attempt >= retries {
			return nil, fmt.Errorf("%w after %d attempts", ErrCardTimeout, attempt)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
