package health

import (
	"context"
	"errors"
	"testing"
)

type mockStore struct {
	loaded bool
}

func (m *mockStore) Loaded() bool { return m.loaded }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCache struct {
	err error
}

func (m *mockCache) Ping(_ context.Context) error { return m.err }

func TestCheckAllHealthy(t *testing.T) {
	svc := New(&mockStore{loaded: true}, &mockEmbeddingChecker{}, &mockCache{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("status = %q, want %q", r.Status, Healthy)
	}
	for _, name := range []string{"store", "embedding", "cache"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("%s = %q, want %q", name, r.Checks[name], CheckOK)
		}
	}
}

func TestCheckStoreNotLoaded(t *testing.T) {
	svc := New(&mockStore{loaded: false}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("status = %q, want %q", r.Status, Degraded)
	}
	if r.Checks["store"] != CheckError {
		t.Errorf("store = %q, want %q", r.Checks["store"], CheckError)
	}
}

func TestCheckEmbeddingDown(t *testing.T) {
	svc := New(&mockStore{loaded: true}, &mockEmbeddingChecker{err: errors.New("down")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("status = %q, want %q", r.Status, Degraded)
	}
	if r.Checks["embedding"] != CheckError {
		t.Errorf("embedding = %q, want %q", r.Checks["embedding"], CheckError)
	}
}

func TestCheckOptionalComponentsSkipped(t *testing.T) {
	svc := New(&mockStore{loaded: true}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("status = %q, want %q", r.Status, Healthy)
	}
	if _, ok := r.Checks["embedding"]; ok {
		t.Error("nil embedding checker must not be reported")
	}
	if _, ok := r.Checks["cache"]; ok {
		t.Error("nil cache must not be reported")
	}
}
