package cache

import (
	"context"
	"errors"
	"testing"
)

type mockCacheService struct {
	result  any
	err     error
	deleted []string
}

func (m *mockCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	return m.result, m.err
}

func (m *mockCacheService) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

type prefixMockCacheService struct {
	mockCacheService
	prefixes []string
}

func (m *prefixMockCacheService) DeleteByPrefix(ctx context.Context, prefix string) error {
	m.prefixes = append(m.prefixes, prefix)
	return nil
}

func TestGetOrFetch_ReturnsTypedValue(t *testing.T) {
	mock := &mockCacheService{result: []string{"serial", "radiolab"}}

	got, err := GetOrFetch(context.Background(), mock, "k", func(ctx context.Context) ([]string, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "serial" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestGetOrFetch_NilInterfaceReturnsZero(t *testing.T) {
	mock := &mockCacheService{result: nil}

	type lookup interface{ Title() string }

	got, err := GetOrFetch[lookup](context.Background(), mock, "k", func(ctx context.Context) (lookup, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestGetOrFetch_PropagatesError(t *testing.T) {
	want := errors.New("database is locked")
	mock := &mockCacheService{err: want}

	got, err := GetOrFetch(context.Background(), mock, "k", func(ctx context.Context) (int, error) {
		return 0, nil
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if got != 0 {
		t.Fatalf("expected zero value, got %d", got)
	}
}

func TestGetOrFetch_TypeMismatch(t *testing.T) {
	mock := &mockCacheService{result: "not an int"}

	_, err := GetOrFetch(context.Background(), mock, "shared-key", func(ctx context.Context) (int, error) {
		return 0, nil
	})

	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if mismatch.Key != "shared-key" {
		t.Errorf("expected key in error, got %q", mismatch.Key)
	}
}

func TestDeleteByPrefix(t *testing.T) {
	plain := &mockCacheService{}
	supported, err := DeleteByPrefix(context.Background(), plain, "podcast.")
	if err != nil || supported {
		t.Fatalf("expected unsupported without error, got supported=%v err=%v", supported, err)
	}

	withPrefix := &prefixMockCacheService{}
	supported, err = DeleteByPrefix(context.Background(), withPrefix, "podcast.")
	if err != nil || !supported {
		t.Fatalf("expected supported without error, got supported=%v err=%v", supported, err)
	}
	if len(withPrefix.prefixes) != 1 || withPrefix.prefixes[0] != "podcast." {
		t.Fatalf("unexpected prefixes %v", withPrefix.prefixes)
	}
}

func TestConfig_DefaultsAreValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.EarlyRefresh = &EarlyRefreshConfig{MinAsyncRefreshTime: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative early refresh duration to be rejected")
	}
}
