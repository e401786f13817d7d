package updates

// Sink receives download progress in whole percent.
type Sink interface {
	Report(percent int)
}

type SinkFunc func(percent int)

func (f SinkFunc) Report(percent int) { f(percent) }

// ProgressFilter turns byte counts into percent updates, forwarding only
// strictly increasing values.
type ProgressFilter struct {
	sink Sink
	last int
}

func NewProgressFilter(sink Sink) *ProgressFilter {
	return &ProgressFilter{sink: sink, last: -1}
}

// Observe takes the cumulative downloaded byte count. A total <= 0 means the
// size is unknown and the download is treated as complete so far.
func (f *ProgressFilter) Observe(downloaded, total int64) {
	if total <= 0 {
		total = downloaded
	}
	pct := 0
	if total > 0 {
		pct = int(downloaded * 100 / total)
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct <= f.last {
		return
	}
	f.last = pct
	f.sink.Report(pct)
}
