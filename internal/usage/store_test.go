package usage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/storage"
)

// stepClock returns base, base+1m, base+2m, ... on successive calls.
func stepClock(base time.Time) (func() time.Time, func() time.Time) {
	var mu sync.Mutex
	var last time.Time
	n := 0
	next := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		last = base.Add(time.Duration(n) * time.Minute)
		n++
		return last
	}
	latest := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
	return next, latest
}

var base = time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

func TestStore_RecordUsageScenario(t *testing.T) {
	ctx := context.Background()
	clock, latest := stepClock(base)
	s := New(ctx, storage.NewMemory(), WithClock(clock))

	require.Equal(t, 0, s.UsageCount("com.x"))
	_, ok := s.LastUsedAt("com.x")
	require.False(t, ok)

	for range 3 {
		_, err := s.RecordUsage(ctx, "com.x")
		require.NoError(t, err)
	}

	require.Equal(t, 3, s.UsageCount("com.x"))
	last, ok := s.LastUsedAt("com.x")
	require.True(t, ok)
	require.True(t, last.Equal(latest()), "lastUsedAt = %v, want %v", last, latest())
}

func TestStore_RecordUsage_RejectsEmpty(t *testing.T) {
	s := New(context.Background(), storage.NewMemory())
	_, err := s.RecordUsage(context.Background(), "")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	require.Equal(t, 0, s.Len())
}

func TestStore_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	clock, _ := stepClock(base)

	s := New(ctx, mem, WithClock(clock))
	_, _ = s.RecordUsage(ctx, "com.a")
	_, _ = s.RecordUsage(ctx, "com.b")
	_, _ = s.RecordUsage(ctx, "com.a")

	reloaded := New(ctx, mem)
	require.Equal(t, s.Records(), reloaded.Records())
	require.Equal(t, 2, reloaded.UsageCount("com.a"))
}

func TestStore_MalformedDataStartsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.Save(ctx, storage.KeyUsage, []byte(`{"not":"a list"}`)))

	s := New(ctx, mem)
	require.Equal(t, 0, s.Len())

	_, err := s.RecordUsage(ctx, "com.x")
	require.NoError(t, err)
	require.Equal(t, 1, s.UsageCount("com.x"))
}

type brokenStorage struct{}

func (brokenStorage) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, fmt.Errorf("unavailable")
}

func (brokenStorage) Save(context.Context, string, []byte) error {
	return fmt.Errorf("unavailable")
}

func TestStore_StorageFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, brokenStorage{})

	_, err := s.RecordUsage(ctx, "com.x")
	require.NoError(t, err)
	_, err = s.RecordUsage(ctx, "com.x")
	require.NoError(t, err)
	require.Equal(t, 2, s.UsageCount("com.x"))
}

func TestStore_ThresholdQueries(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemory())

	counts := []struct {
		app string
		n   int
	}{{"com.a", 5}, {"com.b", 4}, {"com.c", 6}, {"com.d", 1}}
	for _, c := range counts {
		for range c.n {
			_, _ = s.RecordUsage(ctx, c.app)
		}
	}

	require.Equal(t, []string{"com.a", "com.c"}, s.AppsAtOrAbove(5))
	require.Equal(t, []string{"com.b", "com.d"}, s.AppsBelow(5))
	require.Equal(t, []string{}, s.AppsAtOrAbove(100))
}

func TestStore_MostUsed_TopByCountWithFirstSeenTieBreak(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemory())

	// five apps; com.b and com.d tie at 3
	launch := func(app string, n int) {
		for range n {
			_, _ = s.RecordUsage(ctx, app)
		}
	}
	launch("com.a", 1)
	launch("com.b", 3)
	launch("com.c", 7)
	launch("com.d", 3)
	launch("com.e", 2)

	require.Equal(t, []string{"com.c", "com.b", "com.d"}, s.MostUsed(3))
	require.Equal(t, []string{"com.c", "com.b", "com.d", "com.e", "com.a"}, s.MostUsed(10))
	require.Equal(t, []string{}, s.MostUsed(0))
}

func TestStore_RecentlyUsed(t *testing.T) {
	ctx := context.Background()
	clock, _ := stepClock(base)
	s := New(ctx, storage.NewMemory(), WithClock(clock))

	for _, app := range []string{"com.a", "com.b", "com.c", "com.a"} {
		_, _ = s.RecordUsage(ctx, app)
	}

	require.Equal(t, []string{"com.a", "com.c"}, s.RecentlyUsed(2))
}

func TestStore_ConcurrentRecordAndRead(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := New(ctx, mem)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 25 {
				_, _ = s.RecordUsage(ctx, fmt.Sprintf("com.app%d", i%4))
			}
		}()
		go func() {
			defer wg.Done()
			for range 25 {
				_ = s.AppsAtOrAbove(1)
				_ = s.MostUsed(2)
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, r := range s.Records() {
		total += r.UsageCount
	}
	require.Equal(t, 200, total)

	// the last persisted snapshot is the newest one
	require.Equal(t, s.Records(), New(ctx, mem).Records())
}
