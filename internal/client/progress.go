package client

import (
	"io"
	"sync"
)

// progressReader reports how much of a fixed-size body has been consumed.
// Reported values never decrease and 100 is reported at most once.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ProgressFunc

	mu   sync.Mutex
	last float64
	done bool
}

func newProgressReader(r io.Reader, total int64, progress ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, progress: progress, last: -1}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		read := p.read
		p.mu.Unlock()
		p.report(float64(read) * 100 / float64(p.total))
	}
	if err == io.EOF {
		p.finish()
	}
	return n, err
}

func (p *progressReader) finish() {
	p.report(100)
}

func (p *progressReader) report(percent float64) {
	if p.progress == nil || p.total <= 0 {
		return
	}
	if percent > 100 {
		percent = 100
	}
	p.mu.Lock()
	if p.done || percent <= p.last {
		p.mu.Unlock()
		return
	}
	p.last = percent
	if percent == 100 {
		p.done = true
	}
	p.mu.Unlock()
	p.progress(percent)
}
