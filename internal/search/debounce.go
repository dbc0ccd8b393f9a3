package search

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"playback-service/internal/catalog"
)

const DefaultDelay = 300 * time.Millisecond

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Track, error)
}

type Result struct {
	Query  string          `json:"query"`
	Tracks []catalog.Track `json:"tracks"`
	Error  string          `json:"error,omitempty"`
}

// Debouncer collapses a burst of queries into one search for the last of
// them. A result is delivered only when no newer query has already been
// delivered, whatever order the searches finish in.
type Debouncer struct {
	searcher Searcher
	delay    time.Duration
	limit    int
	deliver  func(Result)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	closed bool

	deliverMu sync.Mutex
	applied   uint64
}

func NewDebouncer(searcher Searcher, delay time.Duration, limit int, deliver func(Result)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		searcher: searcher,
		delay:    delay,
		limit:    limit,
		deliver:  deliver,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Query restarts the delay with q. An empty query clears results right away
// without searching.
func (d *Debouncer) Query(q string) {
	q = strings.TrimSpace(q)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if q == "" {
		d.mu.Unlock()
		d.offer(seq, Result{Query: q, Tracks: []catalog.Track{}})
		return
	}
	d.timer = time.AfterFunc(d.delay, func() { d.run(seq, q) })
	d.mu.Unlock()
}

// Close drops pending and in-flight queries.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.cancel()
}

func (d *Debouncer) run(seq uint64, q string) {
	tracks, err := d.searcher.Search(d.ctx, q, d.limit)
	res := Result{Query: q, Tracks: tracks}
	if err != nil {
		res.Error = err.Error()
	}
	if res.Tracks == nil {
		res.Tracks = []catalog.Track{}
	}
	d.offer(seq, res)
}

func (d *Debouncer) offer(seq uint64, res Result) {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()

	if closed || seq <= d.applied {
		log.WithFields(log.Fields{"component": "search", "query": res.Query}).Debug("dropping superseded search result")
		return
	}
	d.applied = seq
	d.deliver(res)
}
