package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/db"
	"github.com/kailas-cloud/querygen/internal/domain"
)

func TestKey(t *testing.T) {
	k := Key("m", "prompt")
	if !strings.HasPrefix(k, "querygen:queryset:") {
		t.Fatalf("unexpected prefix: %s", k)
	}
	if len(k) != len("querygen:queryset:")+64 {
		t.Errorf("expected sha256 hex suffix, got %s", k)
	}
	if k != Key("m", "prompt") {
		t.Error("key must be deterministic")
	}
	if k == Key("m2", "prompt") || k == Key("m", "prompt2") {
		t.Error("key must depend on model and prompt")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("model/prompt boundary must be unambiguous")
	}
}

func TestGet_Hit(t *testing.T) {
	c, ms := newTestCache(t)
	want := completeSet()
	data, _ := json.Marshal(want)

	var gotKey string
	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		gotKey = key
		return data, nil
	}

	got, ok := c.Get(context.Background(), "m", "p")
	if !ok {
		t.Fatal("expected hit")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if gotKey != Key("m", "p") {
		t.Errorf("unexpected key %s", gotKey)
	}
}

func TestGet_Misses(t *testing.T) {
	tests := []struct {
		name  string
		getFn func(ctx context.Context, key string) ([]byte, error)
	}{
		{"not found", func(context.Context, string) ([]byte, error) { return nil, db.ErrKeyNotFound }},
		{"store error", func(context.Context, string) ([]byte, error) { return nil, errors.New("conn reset") }},
		{"empty", func(context.Context, string) ([]byte, error) { return []byte{}, nil }},
		{"garbage", func(context.Context, string) ([]byte, error) { return []byte("not json"), nil }},
		{"incomplete", func(context.Context, string) ([]byte, error) { return []byte(`["a","b"]`), nil }},
		{"duplicates", func(context.Context, string) ([]byte, error) {
			return []byte(`["1","2","3","4","5","6","7","8","9","9"]`), nil
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, ms := newTestCache(t)
			ms.getFn = tc.getFn
			if _, ok := c.Get(context.Background(), "m", "p"); ok {
				t.Fatal("expected miss")
			}
		})
	}
}

func TestGet_EvictsUnusableEntries(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantEvict bool
	}{
		{"garbage", "not json", true},
		{"incomplete", `["a","b"]`, true},
		{"duplicates", `["1","2","3","4","5","6","7","8","9","1"]`, true},
		{"case duplicates", `["a","A","3","4","5","6","7","8","9","10"]`, true},
		{"blank entry", `["1","2","3","4","5","6","7","8","9","  "]`, true},
		{"complete", `["1","2","3","4","5","6","7","8","9","10"]`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, ms := newTestCache(t)
			ms.getFn = func(context.Context, string) ([]byte, error) { return []byte(tc.data), nil }
			var deleted []string
			ms.delFn = func(_ context.Context, key string) error {
				deleted = append(deleted, key)
				return nil
			}

			c.Get(context.Background(), "m", "p")

			if tc.wantEvict {
				if diff := cmp.Diff([]string{Key("m", "p")}, deleted); diff != "" {
					t.Errorf("evicted keys mismatch (-want +got):\n%s", diff)
				}
			} else if len(deleted) != 0 {
				t.Errorf("expected no eviction, got %v", deleted)
			}
		})
	}
}

func TestGet_TrimsCachedQueries(t *testing.T) {
	c, ms := newTestCache(t)
	ms.getFn = func(context.Context, string) ([]byte, error) {
		return []byte(`[" 1","2","3","4","5","6","7","8","9","10 "]`), nil
	}

	qs, ok := c.Get(context.Background(), "m", "p")
	if !ok {
		t.Fatal("expected hit")
	}
	want := domain.QuerySet{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	if diff := cmp.Diff(want, qs); diff != "" {
		t.Errorf("query set mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_EvictErrorSwallowed(t *testing.T) {
	c, ms := newTestCache(t)
	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte(`["a"]`), nil }
	ms.delFn = func(context.Context, string) error { return errors.New("READONLY") }

	if _, ok := c.Get(context.Background(), "m", "p"); ok {
		t.Fatal("expected miss")
	}
}

func TestGet_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ms := &mockKVStore{}
	c := New(ms, time.Hour, counter, zap.NewNop())

	c.Get(context.Background(), "m", "p")
	data, _ := json.Marshal(completeSet())
	ms.getFn = func(context.Context, string) ([]byte, error) { return data, nil }
	c.Get(context.Background(), "m", "p")
	c.Get(context.Background(), "m", "p")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
}

func TestPut(t *testing.T) {
	c, ms := newTestCache(t)

	var (
		gotKey string
		gotVal []byte
		gotTTL time.Duration
	)
	ms.setFn = func(_ context.Context, key string, value []byte, ttl time.Duration) error {
		gotKey, gotVal, gotTTL = key, value, ttl
		return nil
	}

	qs := completeSet()
	c.Put(context.Background(), "m", "p", qs)

	if gotKey != Key("m", "p") {
		t.Errorf("unexpected key %s", gotKey)
	}
	if gotTTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", gotTTL)
	}
	var decoded domain.QuerySet
	if err := json.Unmarshal(gotVal, &decoded); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if diff := cmp.Diff(qs, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPut_IgnoresIncomplete(t *testing.T) {
	c, ms := newTestCache(t)
	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		t.Fatal("SetWithTTL must not be called for incomplete sets")
		return nil
	}
	c.Put(context.Background(), "m", "p", domain.QuerySet{"a"})
}

func TestPut_StoreErrorSwallowed(t *testing.T) {
	c, ms := newTestCache(t)
	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		return errors.New("READONLY")
	}
	// Must not panic or propagate.
	c.Put(context.Background(), "m", "p", completeSet())
}
