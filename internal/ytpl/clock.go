package ytpl

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so merge and upload logic is deterministic
// in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
// It is used to synthesize placeholder ids for unresolvable playlist entries.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// Sleeper abstracts blocking delays so retry backoff is testable without
// real sleeps.
type Sleeper interface {
	Sleep(d time.Duration)
}

// RealSleeper blocks the calling goroutine with time.Sleep.
type RealSleeper struct{}

func (RealSleeper) Sleep(d time.Duration) { time.Sleep(d) }
