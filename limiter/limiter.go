// Package limiter paces outgoing requests, persisting the
// next-allowed-request time to a file so that a restart during a rate-limit
// backoff still respects it.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

func New(filename string, delay time.Duration) *Limiter {
	return &Limiter{
		filename: filename,
		delay:    delay,
	}
}

// A Limiter is not safe for concurrent use; callers serialize access.
type Limiter struct {
	filename string
	delay    time.Duration
	nextAt   time.Time
}

// Load reads a persisted next-request time, if one exists.
func (lim *Limiter) Load() error {
	if _, err := os.Stat(lim.filename); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("error statting file: %w", err)
	}

	bs, err := os.ReadFile(lim.filename)
	if err != nil {
		return err
	}

	lim.nextAt, err = time.Parse(time.UnixDate, string(bs))
	if err != nil {
		return err
	}

	return nil
}

// Wait blocks until the next request is allowed, or until ctx is canceled.
func (lim *Limiter) Wait(ctx context.Context) error {
	if !lim.nextAt.IsZero() {
		now := time.Now()
		dur := lim.nextAt.Sub(now)
		if dur > time.Second {
			log.Printf("waiting %s until %s",
				dur.Truncate(time.Second),
				lim.nextAt.Format(time.StampMilli))
		}

	wait:
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			break wait
		}

		if err := os.Remove(lim.filename); err != nil &&
			!errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	return nil
}

// SetNextAt handles a Retry-After header value, in seconds. An empty value
// means "try again in a minute". The resulting next-request time is
// persisted so it survives a restart.
func (lim *Limiter) SetNextAt(secondsStr string) error {
	if secondsStr == "" {
		secondsStr = "60"
	}
	seconds, err := strconv.ParseInt(secondsStr, 10, 64)
	if err != nil {
		return err
	}
	waitTime := time.Duration(seconds)*time.Second + time.Second
	lim.nextAt = time.Now().Add(waitTime)
	if err := os.WriteFile(lim.filename, []byte(lim.nextAt.Format(time.UnixDate)), 0666); err != nil {
		return err
	}
	return nil
}

// Delay schedules the next request one standard delay from now.
func (lim *Limiter) Delay() {
	lim.DelayBy(lim.delay)
}

func (lim *Limiter) DelayBy(dur time.Duration) {
	lim.nextAt = time.Now().Add(dur)
}
