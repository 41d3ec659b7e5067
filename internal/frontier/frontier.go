package frontier

import (
	"context"
	"slices"
	"sync"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
)

// DropReason explains why an enqueue request was rejected.
type DropReason string

// Drop reasons, counted for reporting.
const (
	DropDuplicate DropReason = "duplicate"
	DropDepth     DropReason = "depth"
	DropCap       DropReason = "cap"
	DropInvalid   DropReason = "invalid"
)

// SkipRedirect marks a URL that was reached as the target of another entry's
// redirects.
const SkipRedirect = "redirect"

// EnqueueResult reports the outcome of Enqueue.
type EnqueueResult struct {
	Accepted bool
	Key      string
	Reason   DropReason
}

// Config bounds a Frontier.
type Config struct {
	MaxPages int
	MaxDepth int
}

// Frontier is a FIFO crawl queue with at-most-once enqueue semantics.
// Next blocks until work is available and reports termination once the
// queue is empty and no dequeued entry is still in flight.
type Frontier struct {
	cfg Config

	mu       sync.Mutex
	entries  map[string]*domain.FrontierEntry
	queue    []string
	inflight int
	enqueued int
	drops    map[DropReason]int
	closed   bool
	changed  chan struct{}
}

// New creates an empty Frontier.
func New(cfg Config) *Frontier {
	return &Frontier{
		cfg:     cfg,
		entries: make(map[string]*domain.FrontierEntry),
		drops:   make(map[DropReason]int),
		changed: make(chan struct{}),
	}
}

// Enqueue adds rawURL at depth unless it is invalid, already known, deeper
// than MaxDepth or past the MaxPages cap. Rejections are counted, not returned
// as errors. The entry keeps the URL as discovered for fetching; its Key is
// the normalized form used for dedup.
func (f *Frontier) Enqueue(rawURL string, depth int, parent string) EnqueueResult {
	key, err := Normalize(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case err != nil:
		return f.drop("", DropInvalid)
	case f.entries[key] != nil:
		return f.drop(key, DropDuplicate)
	case f.cfg.MaxDepth > 0 && depth > f.cfg.MaxDepth:
		return f.drop(key, DropDepth)
	case f.cfg.MaxPages > 0 && f.enqueued >= f.cfg.MaxPages:
		return f.drop(key, DropCap)
	}

	f.entries[key] = &domain.FrontierEntry{
		URL:    crawlURL(rawURL, key),
		Key:    key,
		Depth:  depth,
		Parent: parent,
		State:  domain.EntryQueued,
	}
	f.queue = append(f.queue, key)
	f.enqueued++
	f.broadcast()

	return EnqueueResult{Accepted: true, Key: key}
}

// Skip records rawURL as known but never to be fetched, for example when
// robots.txt disallows it. It returns false if the URL was already known.
func (f *Frontier) Skip(rawURL string, depth int, parent, reason string) bool {
	key, err := Normalize(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.entries[key] != nil {
		return false
	}
	f.entries[key] = &domain.FrontierEntry{
		URL:        crawlURL(rawURL, key),
		Key:        key,
		Depth:      depth,
		Parent:     parent,
		State:      domain.EntrySkipped,
		SkipReason: reason,
	}
	return true
}

// Claim records finalURL, reached by following redirects from the entry
// keyed ownerKey, so that later enqueues of it are dropped as duplicates.
// It returns true when the owner entry is the only one that knows finalURL,
// and false when another entry already has it.
func (f *Frontier) Claim(ownerKey, finalURL string) bool {
	key, err := Normalize(finalURL)
	if err != nil {
		return false
	}
	if key == ownerKey {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.entries[key] != nil {
		return false
	}
	owner := f.entries[ownerKey]
	entry := &domain.FrontierEntry{
		URL:        crawlURL(finalURL, key),
		Key:        key,
		State:      domain.EntrySkipped,
		SkipReason: SkipRedirect,
	}
	if owner != nil {
		entry.Depth = owner.Depth
		entry.Parent = owner.URL
	}
	f.entries[key] = entry
	return true
}

// Next dequeues the oldest queued entry. It returns false when the crawl is
// finished, the frontier was closed or ctx is done.
func (f *Frontier) Next(ctx context.Context) (domain.FrontierEntry, bool) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return domain.FrontierEntry{}, false
		}
		if len(f.queue) > 0 {
			key := f.queue[0]
			f.queue = f.queue[1:]
			f.inflight++
			entry := *f.entries[key]
			f.mu.Unlock()
			return entry, true
		}
		if f.inflight == 0 {
			f.mu.Unlock()
			return domain.FrontierEntry{}, false
		}
		wait := f.changed
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.FrontierEntry{}, false
		case <-wait:
		}
	}
}

// MarkVisited completes an entry previously returned by Next.
func (f *Frontier) MarkVisited(rawURL string) {
	key, err := Normalize(rawURL)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entry := f.entries[key]
	if entry == nil || entry.State != domain.EntryQueued {
		return
	}
	entry.State = domain.EntryVisited
	if f.inflight > 0 {
		f.inflight--
	}
	f.broadcast()
}

// Close stops further dequeues. Entries already handed out stay in flight.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		f.broadcast()
	}
}

// Enqueued returns the number of accepted entries.
func (f *Frontier) Enqueued() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enqueued
}

// Pending returns the number of queued entries not yet dequeued.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Drops returns enqueue rejections by reason.
func (f *Frontier) Drops() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]int, len(f.drops))
	for reason, n := range f.drops {
		out[string(reason)] = n
	}
	return out
}

// Entries returns a snapshot of every known entry ordered by key.
func (f *Frontier) Entries() []domain.FrontierEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.FrontierEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b domain.FrontierEntry) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		default:
			return 0
		}
	})
	return out
}

func (f *Frontier) drop(key string, reason DropReason) EnqueueResult {
	f.drops[reason]++
	return EnqueueResult{Key: key, Reason: reason}
}

// broadcast wakes every goroutine blocked in Next. Caller holds mu.
func (f *Frontier) broadcast() {
	close(f.changed)
	f.changed = make(chan struct{})
}
