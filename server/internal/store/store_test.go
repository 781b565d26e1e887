package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abceng/pressline/pkg/types"
)

// countingCompute returns a ComputeFunc that records how often it ran and
// reports the input length as InputRows.
func countingCompute(calls *int32) ComputeFunc {
	return func(data []byte) ([]string, types.Result, error) {
		atomic.AddInt32(calls, 1)
		return []string{"machine_id"}, types.Result{Stats: types.Stats{InputRows: len(data)}}, nil
	}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestAnalyze_ComputesOnce(t *testing.T) {
	var calls int32
	st := New(5*time.Minute, countingCompute(&calls))

	e1, cached, err := st.Analyze("a.csv", []byte("abc"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if cached {
		t.Error("first Analyze: cached=true, want false")
	}
	if e1.Source != "a.csv" || e1.ID == "" || e1.Fingerprint == "" {
		t.Errorf("entry: got %+v", e1)
	}
	if e1.Result.Stats.InputRows != 3 {
		t.Errorf("InputRows: got %d, want 3", e1.Result.Stats.InputRows)
	}

	e2, cached, err := st.Analyze("b.csv", []byte("abc"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !cached {
		t.Error("second Analyze of same bytes: cached=false, want true")
	}
	if e2 != e1 {
		t.Error("same bytes should return the same entry")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("compute calls: got %d, want 1", n)
	}
}

func TestAnalyze_ConcurrentSameInputComputesOnce(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	st := New(5*time.Minute, func(data []byte) ([]string, types.Result, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil, types.Result{}, nil
	})

	const n = 8
	var wg sync.WaitGroup
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, _, err := st.Analyze("upload", []byte("same"))
			if err != nil {
				t.Errorf("Analyze: %v", err)
				return
			}
			ids[i] = e.ID
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if c := atomic.LoadInt32(&calls); c != 1 {
		t.Errorf("compute calls: got %d, want 1", c)
	}
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("ids differ: %q vs %q", ids[i], ids[0])
		}
	}
}

func TestAnalyze_ComputeError(t *testing.T) {
	wantErr := errors.New("boom")
	st := New(time.Minute, func([]byte) ([]string, types.Result, error) {
		return nil, types.Result{}, wantErr
	})
	if _, _, err := st.Analyze("x", []byte("x")); !errors.Is(err, wantErr) {
		t.Fatalf("err: got %v, want %v", err, wantErr)
	}
	if st.Count() != 0 {
		t.Errorf("Count after error: got %d, want 0", st.Count())
	}
	if _, ok := st.Latest(); ok {
		t.Error("Latest after error: expected none")
	}
}

func TestAnalyze_ChangedSourceInvalidatesOldReport(t *testing.T) {
	var calls int32
	st := New(5*time.Minute, countingCompute(&calls))

	old, _, _ := st.Analyze("dpr.csv", []byte("v1"))
	cur, _, _ := st.Analyze("dpr.csv", []byte("v2"))

	if _, ok := st.Get(old.ID); ok {
		t.Error("superseded report should be invalidated")
	}
	if _, ok := st.Get(cur.ID); !ok {
		t.Error("current report missing")
	}
	if st.Count() != 1 {
		t.Errorf("Count: got %d, want 1", st.Count())
	}
}

func TestAnalyze_SharedReportSurvivesInvalidation(t *testing.T) {
	var calls int32
	st := New(5*time.Minute, countingCompute(&calls))

	shared, _, _ := st.Analyze("a.csv", []byte("same"))
	st.Analyze("b.csv", []byte("same"))
	st.Analyze("a.csv", []byte("changed"))

	if _, ok := st.Get(shared.ID); !ok {
		t.Error("report still referenced by b.csv should survive")
	}
	if st.Count() != 2 {
		t.Errorf("Count: got %d, want 2", st.Count())
	}
}

func TestLatest(t *testing.T) {
	var calls int32
	st := New(5*time.Minute, countingCompute(&calls))

	if _, ok := st.Latest(); ok {
		t.Fatal("Latest on empty store: expected false")
	}
	first, _, _ := st.Analyze("a", []byte("1"))
	st.Analyze("b", []byte("2"))
	st.Analyze("c", []byte("1")) // memo hit becomes latest again

	e, ok := st.Latest()
	if !ok {
		t.Fatal("Latest: expected entry")
	}
	if e.ID != first.ID {
		t.Errorf("Latest: got %q, want %q", e.ID, first.ID)
	}
}

func TestList_NewestFirst(t *testing.T) {
	var calls int32
	base := time.Now()
	st := New(5*time.Minute, countingCompute(&calls))

	st.now = fixedClock(base.Add(-time.Minute))
	st.Analyze("old", []byte("1"))
	st.now = fixedClock(base)
	st.Analyze("new", []byte("2"))

	entries := st.List()
	if len(entries) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(entries))
	}
	if entries[0].Source != "new" || entries[1].Source != "old" {
		t.Errorf("List order: got %q, %q", entries[0].Source, entries[1].Source)
	}
}

func TestEvict_RemovesUnread(t *testing.T) {
	var calls int32
	base := time.Now()
	st := New(5*time.Minute, countingCompute(&calls))

	st.now = fixedClock(base.Add(-10 * time.Minute))
	stale, _, _ := st.Analyze("stale", []byte("1"))
	st.now = fixedClock(base)
	fresh, _, _ := st.Analyze("fresh", []byte("2"))

	if n := st.Evict(base); n != 1 {
		t.Errorf("Evict: got %d removed, want 1", n)
	}
	if _, ok := st.Get(stale.ID); ok {
		t.Error("stale report should have been evicted")
	}
	if _, ok := st.Get(fresh.ID); !ok {
		t.Error("fresh report should survive")
	}

	// Re-analysing evicted bytes computes again.
	st.Analyze("stale", []byte("1"))
	if c := atomic.LoadInt32(&calls); c != 3 {
		t.Errorf("compute calls: got %d, want 3", c)
	}
}

func TestEvict_ReadRefreshes(t *testing.T) {
	var calls int32
	base := time.Now()
	st := New(5*time.Minute, countingCompute(&calls))

	st.now = fixedClock(base.Add(-10 * time.Minute))
	e, _, _ := st.Analyze("src", []byte("1"))

	st.now = fixedClock(base.Add(-time.Minute))
	st.Get(e.ID)

	if n := st.Evict(base); n != 0 {
		t.Errorf("Evict: got %d removed, want 0 after recent read", n)
	}
}

func TestEvict_ZeroTTLKeepsEverything(t *testing.T) {
	var calls int32
	st := New(0, countingCompute(&calls))
	st.now = fixedClock(time.Now().Add(-24 * time.Hour))
	st.Analyze("src", []byte("1"))

	if n := st.Evict(time.Now()); n != 0 {
		t.Errorf("Evict with zero TTL: got %d, want 0", n)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	var calls int32
	st := New(2*time.Second, countingCompute(&calls))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
