package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockCachePinger struct {
	err error
}

func (m *mockCachePinger) Ping(_ context.Context) error { return m.err }

type mockGeneratorChecker struct {
	err error
}

func (m *mockGeneratorChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockGeneratorChecker{}, &mockCachePinger{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["generator"] != CheckOK {
		t.Errorf("expected generator %q, got %q", CheckOK, r.Checks["generator"])
	}
	if r.Checks["cache"] != CheckOK {
		t.Errorf("expected cache %q, got %q", CheckOK, r.Checks["cache"])
	}
}

func TestCheck_GeneratorError(t *testing.T) {
	svc := New(&mockGeneratorChecker{err: errors.New("timeout")}, &mockCachePinger{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["generator"] != CheckError {
		t.Errorf("expected generator %q, got %q", CheckError, r.Checks["generator"])
	}
	if r.Checks["cache"] != CheckOK {
		t.Errorf("expected cache %q, got %q", CheckOK, r.Checks["cache"])
	}
}

func TestCheck_CacheError(t *testing.T) {
	svc := New(&mockGeneratorChecker{}, &mockCachePinger{err: errors.New("conn refused")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["cache"] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks["cache"])
	}
}

func TestCheck_NoCache(t *testing.T) {
	svc := New(&mockGeneratorChecker{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["cache"]; ok {
		t.Error("cache check should be absent when cache is nil")
	}
}

func TestCheck_NothingConfigured(t *testing.T) {
	r := New(nil, nil).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 0 {
		t.Errorf("expected no checks, got %v", r.Checks)
	}
}
