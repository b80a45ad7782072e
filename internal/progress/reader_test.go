package progress

import (
	"bytes"
	"io"
	"testing"
)

func TestReader_ReportsCumulativeBytes(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	tr := NewTracker("file.mp4", int64(len(data)))

	var events int
	var lastBytes int64
	r := NewReader(bytes.NewReader(data), tr, func(_ string, bytesInPhase, _ int64, _ float64, _ int, _ string) {
		events++
		lastBytes = bytesInPhase
	})

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(out) != len(data) {
		t.Fatalf("read %d bytes, want %d", len(out), len(data))
	}
	if events == 0 {
		t.Fatal("no progress events emitted")
	}
	if lastBytes != int64(len(data)) {
		t.Errorf("final bytesInPhase = %d, want %d", lastBytes, len(data))
	}
}
