package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreSaveLoad(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	issued := time.Date(2024, 1, 15, 14, 30, 0, 123, time.UTC)

	if _, ok, err := s.Load(ctx, "crpt"); err != nil || ok {
		t.Fatalf("initial load: ok=%v err=%v, want miss", ok, err)
	}

	if err := s.Save(ctx, "crpt", Record{Value: "tok-1", IssuedAt: issued}, time.Hour); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Load(ctx, "crpt")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a record after save")
	}
	if got.Value != "tok-1" || !got.IssuedAt.Equal(issued) {
		t.Errorf("load = %+v, want tok-1 issued at %s", got, issued)
	}
}

func TestSQLiteStoreSaveReplaces(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.Save(ctx, "crpt", Record{Value: "old", IssuedAt: time.Now()}, 0)
	if err := s.Save(ctx, "crpt", Record{Value: "new", IssuedAt: time.Now()}, 0); err != nil {
		t.Fatal(err)
	}

	got, _, _ := s.Load(ctx, "crpt")
	if got.Value != "new" {
		t.Errorf("value = %q, want %q", got.Value, "new")
	}
}

func TestSQLiteStoreExpiry(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.Save(ctx, "crpt", Record{Value: "short", IssuedAt: time.Now()}, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok, _ := s.Load(ctx, "crpt"); ok {
		t.Error("expected expired record to be ignored")
	}
}

func TestSQLiteStoreDelete(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.Save(ctx, "crpt", Record{Value: "tok", IssuedAt: time.Now()}, 0)
	s.Delete(ctx, "crpt")

	if _, ok, _ := s.Load(ctx, "crpt"); ok {
		t.Error("expected miss after delete")
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	s1.Save(ctx, "crpt", Record{Value: "durable", IssuedAt: time.Now()}, time.Hour)
	s1.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, ok, err := s2.Load(ctx, "crpt")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.Value != "durable" {
		t.Errorf("after reopen: ok=%v value=%q, want durable", ok, got.Value)
	}
}
