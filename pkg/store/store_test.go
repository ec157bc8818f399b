package store

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/schedule"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []*Run{
		{CreatedAt: base, Hyperperiod: 12, NumPackets: 5},
		{CreatedAt: base.Add(time.Minute), Hyperperiod: 10, NumPackets: 1,
			Schedule: &schedule.Schedule{Hyperperiod: 10, Entries: []schedule.Entry{{Name: "f1:0", Release: 3}}}},
		{CreatedAt: base.Add(2 * time.Minute), Hyperperiod: 4},
	}
	for _, r := range runs {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		if !ValidID(r.ID) {
			t.Fatalf("Save() assigned invalid id %q", r.ID)
		}
	}

	got, err := s.Get(ctx, runs[1].ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Hyperperiod != 10 || got.Schedule == nil || got.Schedule.Entries[0].Release != 3 {
		t.Errorf("Get() = %+v", got)
	}
	if !got.CreatedAt.Equal(runs[1].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, runs[1].CreatedAt)
	}

	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != runs[2].ID || list[1].ID != runs[1].ID {
		t.Errorf("List(2) returned wrong runs or order")
	}
	if all, _ := s.List(ctx, 0); len(all) != 3 {
		t.Errorf("List(0) = %d runs, want 3", len(all))
	}

	if err := s.Delete(ctx, runs[0].ID); err != nil {
		t.Fatal(err)
	}
	_, err = s.Get(ctx, runs[0].ID)
	if !stderrors.Is(err, ErrNotFound) || !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, runs[0].ID); err != nil {
		t.Errorf("Delete() of missing run error: %v", err)
	}
	if _, err := s.Get(ctx, "../../etc/passwd"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("Get() with bad id error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func TestFileStoreRejectsForeignIDs(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	err = s.Save(context.Background(), &Run{ID: "../escape"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Save() error = %v, want INVALID_INPUT", err)
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("NOCSCHED_TEST_MONGO")
	if uri == "" {
		t.Skip("NOCSCHED_TEST_MONGO not set")
	}
	ctx := context.Background()
	s, err := NewMongoStore(ctx, MongoOptions{URI: uri, Collection: "runs_test_" + NewID()[:8]})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = s.coll.Drop(ctx)
		s.Close()
	}()
	testStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	if s, err := Open(ctx, Config{}); err != nil {
		t.Errorf("Open(default) error: %v", err)
	} else if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Open(default) = %T, want *MemoryStore", s)
	}
	if s, err := Open(ctx, Config{Backend: BackendFile, Dir: t.TempDir()}); err != nil {
		t.Errorf("Open(file) error: %v", err)
	} else if _, ok := s.(*FileStore); !ok {
		t.Errorf("Open(file) = %T, want *FileStore", s)
	}
	if _, err := Open(ctx, Config{Backend: BackendMongo}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Open(mongo without URI) error = %v, want INVALID_CONFIG", err)
	}
	if _, err := Open(ctx, Config{Backend: "sqlite"}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Open(sqlite) error = %v, want INVALID_CONFIG", err)
	}
}
