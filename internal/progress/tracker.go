// Package progress estimates upload progress for a single file transfer.
//
// The remote upload call streams through a local caching layer before the
// actual network transfer begins, with no explicit phase signal from the
// uploader. The tracker infers the two phases purely from observed
// throughput: disk-speed reads mean caching, a sustained drop below the
// threshold means the network upload has started.
package progress

import "time"

// Phase labels reported to progress sinks.
const (
	PhaseCaching   = "Caching"
	PhaseUploading = "Uploading"
)

const (
	// windowSize bounds the sliding sample window used for speed
	// calculation.
	windowSize = 2 * time.Second

	// speedThresholdMBps is the throughput below which the transfer is
	// considered to have left the local caching layer.
	speedThresholdMBps = 10.0

	// minSamplesForTransition guards the phase flip against noise from a
	// sparsely populated window.
	minSamplesForTransition = 3
)

// SinkFunc receives progress events: bytes are relative to the start of
// the current phase, so a sink renders caching and uploading as two
// sequential sub-progress bars over the same byte range.
type SinkFunc func(filename string, bytesInPhase, totalBytes int64, speedMBps float64, percent int, phase string)

type sample struct {
	at    time.Time
	bytes int64
}

// Tracker tracks a single file transfer through the caching and uploading
// phases. It is not safe for concurrent use; each transfer owns its own
// tracker.
type Tracker struct {
	filename string
	total    int64

	bytesSent       int64
	phase           string
	phaseStartBytes int64

	window []sample
	now    func() time.Time
}

// NewTracker creates a tracker for one file transfer starting in the
// caching phase.
func NewTracker(filename string, totalBytes int64) *Tracker {
	return &Tracker{
		filename: filename,
		total:    totalBytes,
		phase:    PhaseCaching,
		now:      time.Now,
	}
}

// Update records the new cumulative byte count and re-evaluates the phase.
// The caching to uploading transition is one-directional and permanent for
// the life of the tracker.
func (t *Tracker) Update(bytesSent int64) {
	now := t.now()
	t.bytesSent = bytesSent

	t.window = append(t.window, sample{at: now, bytes: bytesSent})
	cutoff := now.Add(-windowSize)
	for len(t.window) > 0 && !t.window[0].at.After(cutoff) {
		t.window = t.window[1:]
	}

	if t.phase != PhaseCaching || len(t.window) < minSamplesForTransition {
		return
	}

	speed := t.windowSpeed()
	// A stall (zero speed) does not by itself mean the caching layer has
	// been left behind.
	if speed > 0 && speed < speedThresholdMBps {
		t.phase = PhaseUploading
		t.phaseStartBytes = bytesSent
	}
}

// windowSpeed computes instantaneous throughput in MB/s over the oldest to
// newest sample in the window.
func (t *Tracker) windowSpeed() float64 {
	if len(t.window) < 2 {
		return 0
	}
	oldest := t.window[0]
	newest := t.window[len(t.window)-1]

	elapsed := newest.at.Sub(oldest.at).Seconds()
	if elapsed == 0 {
		return 0
	}
	mb := float64(newest.bytes-oldest.bytes) / (1024 * 1024)
	return mb / elapsed
}

// Phase returns the current phase label.
func (t *Tracker) Phase() string { return t.phase }

// BytesInPhase returns bytes processed since the start of the current
// phase.
func (t *Tracker) BytesInPhase() int64 {
	return t.bytesSent - t.phaseStartBytes
}

// Percent returns completion relative to the start of the current phase.
// The value intentionally resets to 0 when the phase flips.
func (t *Tracker) Percent() int {
	if t.total == 0 {
		return 0
	}
	pct := int(t.BytesInPhase() * 100 / t.total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// SpeedMBps returns the sliding-window throughput. Speed is reported as
// zero during the caching phase, where disk throughput is not meaningful.
func (t *Tracker) SpeedMBps() float64 {
	if t.phase == PhaseCaching {
		return 0
	}
	return t.windowSpeed()
}

// ETASeconds estimates time remaining in the current phase, zero during
// caching or when stalled.
func (t *Tracker) ETASeconds() int {
	speed := t.SpeedMBps()
	if speed == 0 {
		return 0
	}
	remaining := t.total - t.BytesInPhase()
	if remaining < 0 {
		remaining = 0
	}
	return int(float64(remaining) / (1024 * 1024) / speed)
}

// Report emits the tracker's current state to sink, which may be nil.
func (t *Tracker) Report(sink SinkFunc) {
	if sink == nil {
		return
	}
	sink(t.filename, t.BytesInPhase(), t.total, t.SpeedMBps(), t.Percent(), t.phase)
}
