package frontier_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/frontier"
)

func TestEnqueue_DedupAndLimits(t *testing.T) {
	t.Parallel()

	f := frontier.New(frontier.Config{MaxPages: 3, MaxDepth: 2})

	assert.True(t, f.Enqueue("https://example.com/", 0, "").Accepted)
	assert.Equal(t, frontier.DropDuplicate, f.Enqueue("https://EXAMPLE.com/#top", 1, "").Reason)
	assert.Equal(t, frontier.DropDepth, f.Enqueue("https://example.com/deep", 3, "").Reason)
	assert.Equal(t, frontier.DropInvalid, f.Enqueue("mailto:x@example.com", 1, "").Reason)
	assert.True(t, f.Enqueue("https://example.com/a", 1, "https://example.com/").Accepted)
	assert.True(t, f.Enqueue("https://example.com/b", 1, "https://example.com/").Accepted)
	assert.Equal(t, frontier.DropCap, f.Enqueue("https://example.com/c", 1, "").Reason)

	assert.Equal(t, 3, f.Enqueued())
	assert.Equal(t, map[string]int{"duplicate": 1, "depth": 1, "invalid": 1, "cap": 1}, f.Drops())
}

func TestNext_FIFOAndTermination(t *testing.T) {
	t.Parallel()

	f := frontier.New(frontier.Config{MaxPages: 10, MaxDepth: 3})
	f.Enqueue("https://example.com/", 0, "")
	f.Enqueue("https://example.com/a", 1, "https://example.com/")

	ctx := context.Background()

	first, ok := f.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", first.URL)
	assert.Equal(t, 0, first.Depth)

	second, ok := f.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", second.URL)
	assert.Equal(t, "https://example.com/", second.Parent)

	f.MarkVisited(first.URL)
	f.MarkVisited(second.URL)

	_, ok = f.Next(ctx)
	assert.False(t, ok, "empty queue with nothing in flight terminates")
}

func TestNext_WaitsForInFlightDiscovery(t *testing.T) {
	t.Parallel()

	f := frontier.New(frontier.Config{MaxPages: 10, MaxDepth: 3})
	f.Enqueue("https://example.com/", 0, "")

	root, ok := f.Next(context.Background())
	require.True(t, ok)

	got := make(chan domain.FrontierEntry, 1)
	go func() {
		entry, ok := f.Next(context.Background())
		if ok {
			got <- entry
		}
		close(got)
	}()

	time.Sleep(20 * time.Millisecond)
	f.Enqueue("https://example.com/child", 1, root.URL)
	f.MarkVisited(root.URL)

	select {
	case entry, ok := <-got:
		require.True(t, ok)
		assert.Equal(t, "https://example.com/child", entry.URL)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake after enqueue")
	}
}

func TestNext_CloseAndCancel(t *testing.T) {
	t.Parallel()

	f := frontier.New(frontier.Config{MaxPages: 10, MaxDepth: 3})
	f.Enqueue("https://example.com/", 0, "")
	f.Enqueue("https://example.com/a", 1, "")

	_, ok := f.Next(context.Background())
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Close()

	_, ok = f.Next(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, f.Pending())
}

func TestSkip_BlocksLaterEnqueue(t *testing.T) {
	t.Parallel()

	f := frontier.New(frontier.Config{MaxPages: 10, MaxDepth: 3})

	assert.True(t, f.Skip("https://example.com/private/x", 1, "https://example.com/", "robots"))
	assert.False(t, f.Skip("https://example.com/private/x", 1, "", "robots"))
	assert.Equal(t, frontier.DropDuplicate, f.Enqueue("https://example.com/private/x", 1, "").Reason)
	assert.Equal(t, 0, f.Enqueued())

	entries := f.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntrySkipped, entries[0].State)
	assert.Equal(t, "robots", entries[0].SkipReason)
}

func TestEnqueue_KeepsDiscoveredURL(t *testing.T) {
	t.Parallel()

	f := frontier.New(frontier.Config{MaxPages: 10, MaxDepth: 3})
	res := f.Enqueue("https://Example.com/docs/?utm_source=news&b=1#intro", 1, "https://example.com/")
	require.True(t, res.Accepted)
	assert.Equal(t, "https://example.com/docs?b=1", res.Key)
	f.Enqueue("https://example.com", 0, "")

	entry, ok := f.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "https://Example.com/docs/?utm_source=news&b=1", entry.URL)
	assert.Equal(t, "https://example.com/docs?b=1", entry.Key)

	root, ok := f.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", root.URL)

	assert.Equal(t, frontier.DropDuplicate, f.Enqueue("https://example.com/docs?b=1", 1, "").Reason)
}

func TestClaim_RedirectTargets(t *testing.T) {
	t.Parallel()

	f := frontier.New(frontier.Config{MaxPages: 10, MaxDepth: 3})
	f.Enqueue("https://example.com/", 0, "")
	f.Enqueue("https://example.com/other", 1, "https://example.com/")

	assert.True(t, f.Claim("https://example.com/", "https://example.com/"), "a page owns its own URL")
	assert.True(t, f.Claim("https://example.com/", "https://example.com/home/"))
	assert.False(t, f.Claim("https://example.com/", "https://example.com/home"), "already claimed")
	assert.False(t, f.Claim("https://example.com/", "https://example.com/other"), "owned by a queued entry")
	assert.False(t, f.Claim("https://example.com/", "not a url"))

	assert.Equal(t, frontier.DropDuplicate, f.Enqueue("https://example.com/home", 1, "").Reason)

	var home domain.FrontierEntry
	for _, e := range f.Entries() {
		if e.Key == "https://example.com/home" {
			home = e
		}
	}
	assert.Equal(t, domain.EntrySkipped, home.State)
	assert.Equal(t, frontier.SkipRedirect, home.SkipReason)
	assert.Equal(t, "https://example.com/", home.Parent)
}

func TestFrontier_ConcurrentWorkersFetchEachURLOnce(t *testing.T) {
	t.Parallel()

	f := frontier.New(frontier.Config{MaxPages: 50, MaxDepth: 5})
	f.Enqueue("https://example.com/", 0, "")

	var (
		mu   sync.Mutex
		seen = map[string]int{}
		wg   sync.WaitGroup
	)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				entry, ok := f.Next(context.Background())
				if !ok {
					return
				}
				mu.Lock()
				seen[entry.URL]++
				mu.Unlock()

				// Every page links to the same two children of the next depth.
				for _, child := range []string{"/x", "/y"} {
					f.Enqueue(entry.URL+child, entry.Depth+1, entry.URL)
				}
				f.MarkVisited(entry.URL)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, f.Enqueued())
	assert.Len(t, seen, 50)
	for u, n := range seen {
		assert.Equal(t, 1, n, u)
	}
}
