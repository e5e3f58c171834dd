package loader_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quizhive/quizhive/internal/loader"
)

func TestLoader_DeduplicatesWithinWindow(t *testing.T) {
	var calls int
	var gotKeys []string
	l := loader.New("test", func(_ context.Context, keys []string) (map[string]int, error) {
		calls++
		gotKeys = keys
		out := make(map[string]int, len(keys))
		for _, k := range keys {
			out[k] = len(k)
		}
		return out, nil
	}, nil)

	ctx := context.Background()
	p1 := l.Load("alpha")
	p2 := l.Load("beta")
	p3 := l.Load("alpha")

	if p1 != p3 {
		t.Fatal("expected the same pending for a repeated key within one window")
	}

	v, ok, err := p1.Get(ctx)
	if err != nil || !ok || v != 5 {
		t.Fatalf("expected (5, true, nil), got (%d, %v, %v)", v, ok, err)
	}
	if v, ok, err := p2.Get(ctx); err != nil || !ok || v != 4 {
		t.Fatalf("expected (4, true, nil), got (%d, %v, %v)", v, ok, err)
	}

	if calls != 1 {
		t.Fatalf("expected exactly one batch call, got %d", calls)
	}
	if len(gotKeys) != 2 {
		t.Fatalf("expected 2 deduplicated keys, got %v", gotKeys)
	}
}

func TestLoader_AbsentKeyIsNotAnError(t *testing.T) {
	l := loader.New("test", func(_ context.Context, keys []string) (map[string]int, error) {
		return map[string]int{}, nil
	}, nil)

	v, ok, err := l.Load("missing").Get(context.Background())
	if err != nil {
		t.Fatalf("absence must not be an error, got %v", err)
	}
	if ok || v != 0 {
		t.Fatalf("expected zero value and ok=false, got (%d, %v)", v, ok)
	}
}

func TestLoader_BatchErrorFailsAllKeys(t *testing.T) {
	boom := errors.New("backend down")
	l := loader.New("test", func(_ context.Context, keys []string) (map[string]int, error) {
		return nil, boom
	}, nil)

	ctx := context.Background()
	p1 := l.Load("a")
	p2 := l.Load("b")

	if _, _, err := p1.Get(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected batch error for first key, got %v", err)
	}
	if _, _, err := p2.Get(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected batch error for second key, got %v", err)
	}
	if _, _, err := p1.Get(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected error to be stable on re-Get, got %v", err)
	}
}

func TestLoader_FreshWindowAfterDispatch(t *testing.T) {
	var calls int
	l := loader.New("test", func(_ context.Context, keys []string) (map[string]int, error) {
		calls++
		out := make(map[string]int, len(keys))
		for _, k := range keys {
			out[k] = calls
		}
		return out, nil
	}, nil)

	ctx := context.Background()
	first, _, _ := l.Load("a").Get(ctx)
	second, _, _ := l.Load("a").Get(ctx)

	if calls != 2 {
		t.Fatalf("expected a second batch call after dispatch, got %d", calls)
	}
	if first == second {
		t.Fatal("expected the second window to refetch, not reuse a cached value")
	}
}

func TestLoader_ExplicitDispatchIsIdempotent(t *testing.T) {
	var calls int
	l := loader.New("test", func(_ context.Context, keys []string) (map[string]int, error) {
		calls++
		return map[string]int{"a": 1}, nil
	}, nil)

	ctx := context.Background()
	p := l.Load("a")
	l.Dispatch(ctx)
	l.Dispatch(ctx)
	if _, _, err := p.Get(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected one batch call across repeated dispatches, got %d", calls)
	}
}

func TestLoader_CancellationResolvesPromptly(t *testing.T) {
	block := make(chan struct{})
	l := loader.New("test", func(ctx context.Context, keys []string) (map[string]int, error) {
		<-block // a slow external call that ignores cancellation
		return map[string]int{}, nil
	}, nil)
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	p1 := l.Load("a")
	p2 := l.Load("b")

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, _, err := p1.Get(ctx)
	if !errors.Is(err, loader.ErrLoadCancelled) {
		t.Fatalf("expected ErrLoadCancelled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation took %v, expected prompt resolution", elapsed)
	}

	// Every sibling in the window resolves with the same cancellation error.
	if _, _, err := p2.Get(context.Background()); !errors.Is(err, loader.ErrLoadCancelled) {
		t.Fatalf("expected ErrLoadCancelled for sibling key, got %v", err)
	}
}

func TestLoader_ConcurrentLoadsShareOneBatch(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	l := loader.New("test", func(_ context.Context, keys []string) (map[string]int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		out := make(map[string]int, len(keys))
		for i, k := range keys {
			out[k] = i
		}
		return out, nil
	}, nil)

	const n = 16
	pendings := make([]*loader.Pending[int], n)
	for i := range pendings {
		pendings[i] = l.Load(fmt.Sprintf("key-%d", i%4))
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for _, p := range pendings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := p.Get(ctx); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected one batch call for the shared window, got %d", calls)
	}
}

func TestLoader_OnBatchHookReportsDedupedSize(t *testing.T) {
	var hookName string
	var hookSize int
	l := loader.New("quizzes", func(_ context.Context, keys []string) (map[string]int, error) {
		return map[string]int{}, nil
	}, func(name string, size int) {
		hookName, hookSize = name, size
	})

	l.Load("a")
	l.Load("b")
	l.Load("a")
	l.Dispatch(context.Background())

	if hookName != "quizzes" || hookSize != 2 {
		t.Fatalf("expected hook (quizzes, 2), got (%s, %d)", hookName, hookSize)
	}
}
