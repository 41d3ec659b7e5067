package retention_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/retention"
)

type fakeEvictor struct {
	calls  atomic.Int32
	maxAge atomic.Int64
	evict  int
}

func (f *fakeEvictor) Evict(maxAge time.Duration) int {
	f.calls.Add(1)
	f.maxAge.Store(int64(maxAge))
	return f.evict
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	var cfg retention.Config
	cfg.SetDefaults()
	assert.Equal(t, retention.DefaultSchedule, cfg.Schedule)
	assert.Equal(t, retention.DefaultMaxAge, cfg.MaxAge)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     retention.Config
		wantErr bool
	}{
		{name: "five field", cfg: retention.Config{Schedule: "0 * * * *", MaxAge: time.Minute}},
		{name: "descriptor", cfg: retention.Config{Schedule: "@every 5m", MaxAge: time.Minute}},
		{name: "garbage schedule", cfg: retention.Config{Schedule: "whenever", MaxAge: time.Minute}, wantErr: true},
		{name: "six fields", cfg: retention.Config{Schedule: "0 0 * * * *", MaxAge: time.Minute}, wantErr: true},
		{name: "negative age", cfg: retention.Config{Schedule: "@hourly", MaxAge: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	t.Parallel()

	_, err := retention.New(retention.Config{Schedule: "nope"}, &fakeEvictor{}, nil)
	require.Error(t, err)
}

func TestSweep(t *testing.T) {
	t.Parallel()

	ev := &fakeEvictor{evict: 3}
	s, err := retention.New(retention.Config{MaxAge: 2 * time.Hour}, ev, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Sweep())
	assert.Equal(t, int32(1), ev.calls.Load())
	assert.Equal(t, int64(2*time.Hour), ev.maxAge.Load())
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	ev := &fakeEvictor{}
	s, err := retention.New(retention.Config{Schedule: "@every 1s", MaxAge: time.Minute}, ev, nil)
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return ev.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
