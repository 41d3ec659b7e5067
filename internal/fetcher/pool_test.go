package fetcher_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/fetcher"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

type sliceSource struct {
	mu      sync.Mutex
	entries []domain.FrontierEntry
}

func (s *sliceSource) Next(ctx context.Context) (domain.FrontierEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || len(s.entries) == 0 {
		return domain.FrontierEntry{}, false
	}
	e := s.entries[0]
	s.entries = s.entries[1:]
	return e, true
}

func TestPool_DrainsSource(t *testing.T) {
	t.Parallel()

	src := &sliceSource{}
	for _, u := range []string{"a", "b", "c", "d", "e"} {
		src.entries = append(src.entries, domain.FrontierEntry{URL: "https://example.com/" + u})
	}

	var (
		mu      sync.Mutex
		handled []string
		workers = map[int]bool{}
	)

	pool := fetcher.NewPool(3, logger.NewNop())
	assert.Equal(t, 3, pool.Workers())

	err := pool.Run(context.Background(), src, func(_ context.Context, id int, e domain.FrontierEntry) {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, e.URL)
		workers[id] = true
	})
	require.NoError(t, err)

	assert.Len(t, handled, 5)
	for id := range workers {
		assert.True(t, id >= 0 && id < 3)
	}
}

func TestPool_CancelledContextStopsDequeue(t *testing.T) {
	t.Parallel()

	src := &sliceSource{entries: []domain.FrontierEntry{{URL: "https://example.com/"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := fetcher.NewPool(0, nil).Run(ctx, src, func(context.Context, int, domain.FrontierEntry) {
		called = true
	})
	require.NoError(t, err)
	assert.False(t, called)
}
