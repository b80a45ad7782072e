package progress

import "io"

// Reader wraps a file reader, feeding every read through a Tracker and
// reporting to a sink. The upload transport reads through it without
// knowing progress is being observed.
type Reader struct {
	r       io.Reader
	tracker *Tracker
	sink    SinkFunc
	read    int64
}

// NewReader wraps r with progress tracking. sink may be nil.
func NewReader(r io.Reader, tracker *Tracker, sink SinkFunc) *Reader {
	return &Reader{r: r, tracker: tracker, sink: sink}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.tracker.Update(pr.read)
		pr.tracker.Report(pr.sink)
	}
	return n, err
}
