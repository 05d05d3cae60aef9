package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/repositories"
	"github.com/desertthunder/plexlist/internal/shared"
	tu "github.com/desertthunder/plexlist/internal/testing"
)

// gatedLibrary holds every run inside Ping until the gate is closed.
type gatedLibrary struct {
	*tu.FakeLibrary
	gate chan struct{}

	mu     sync.Mutex
	active int
	peak   int
}

func newGatedLibrary() *gatedLibrary {
	return &gatedLibrary{FakeLibrary: beatlesLibrary(), gate: make(chan struct{})}
}

func (g *gatedLibrary) Ping(ctx context.Context) error {
	g.mu.Lock()
	g.active++
	g.peak = max(g.peak, g.active)
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
	}()

	select {
	case <-g.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.FakeLibrary.Ping(ctx)
}

func (g *gatedLibrary) counts() (active, peak int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active, g.peak
}

func (g *gatedLibrary) waitActive(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if active, _ := g.counts(); active >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	active, _ := g.counts()
	t.Fatalf("timed out waiting for %d active runs, have %d", n, active)
}

func newTestPool(workers int) *Pool {
	return NewPool(newTestEngine(1), PoolOptions{Workers: workers, Logger: tu.DiscardLogger()})
}

func updateRequest(name string) ImportRequest {
	return ImportRequest{
		Songs:          []models.SongRef{{Title: "Yesterday", Artist: "The Beatles"}},
		Target:         models.ImportTarget{Mode: models.UpdateExisting, RequestedName: name},
		SourcePlatform: "QQ Music",
		OriginalTitle:  "Classics",
	}
}

func TestPool(t *testing.T) {
	t.Run("Submit", func(t *testing.T) {
		t.Run("runs the job in the background", func(t *testing.T) {
			pool := newTestPool(2)
			lib := beatlesLibrary()

			job, err := pool.Submit(updateRequest("Mix"), lib)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if job.ID() == "" {
				t.Fatal("expected job id")
			}
			if job.Status() != models.JobPending {
				t.Errorf("Status() = %s, want pending", job.Status())
			}

			pool.Wait()

			got, err := pool.Status(job.ID())
			if err != nil {
				t.Fatalf("Status() error = %v", err)
			}
			if got.Status() != models.JobCompleted {
				t.Errorf("Status() = %s, want completed (error %q)", got.Status(), got.ErrorMessage())
			}
			result := got.Result()
			if result == nil || !result.Success || result.MatchedCount != 1 || result.FinalPlaylistName != "Mix" {
				t.Errorf("unexpected result %+v", result)
			}
			if got.SourcePlatform() != "QQ Music" || got.SourceTitle() != "Classics" {
				t.Errorf("source not recorded: %s / %s", got.SourcePlatform(), got.SourceTitle())
			}
		})

		t.Run("records failures", func(t *testing.T) {
			pool := newTestPool(1)
			lib := beatlesLibrary()
			lib.PingErr = shared.ErrAuthFailed

			job, err := pool.Submit(updateRequest("Mix"), lib)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			pool.Wait()

			got, _ := pool.Status(job.ID())
			if got.Status() != models.JobFailed {
				t.Errorf("Status() = %s, want failed", got.Status())
			}
			if got.ErrorMessage() == "" {
				t.Error("expected error message")
			}
		})

		t.Run("rejects invalid requests", func(t *testing.T) {
			pool := newTestPool(1)

			if _, err := pool.Submit(ImportRequest{Target: models.ImportTarget{Mode: models.CreateNew}}, beatlesLibrary()); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for no songs, got %v", err)
			}

			req := updateRequest("Mix")
			req.Target.Mode = "merge"
			if _, err := pool.Submit(req, beatlesLibrary()); !errors.Is(err, shared.ErrInvalidMode) {
				t.Errorf("expected ErrInvalidMode, got %v", err)
			}
		})
	})

	t.Run("Execute", func(t *testing.T) {
		pool := newTestPool(1)
		progress := make(chan ProgressUpdate, 32)

		job, result, err := pool.Execute(context.Background(), updateRequest("Mix"), beatlesLibrary(), progress)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !result.Success {
			t.Errorf("expected success, got %q", result.Message)
		}
		if job.Status() != models.JobCompleted || job.SongsMatched() != 1 {
			t.Errorf("unexpected job state %s matched %d", job.Status(), job.SongsMatched())
		}
		if len(drain(progress)) == 0 {
			t.Error("expected progress to be forwarded")
		}

		stored, err := pool.Status(job.ID())
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if stored.Status() != models.JobCompleted {
			t.Errorf("stored Status() = %s, want completed", stored.Status())
		}
	})

	t.Run("sqlite job store", func(t *testing.T) {
		db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		repo := repositories.NewImportJobRepository(db)
		pool := NewPool(newTestEngine(1), PoolOptions{Workers: 1, Store: repo, Logger: tu.DiscardLogger()})

		req := updateRequest("Mix")
		req.Songs = append(req.Songs, models.SongRef{Title: "Nonexistent Song", Artist: "Nobody"})
		job, _, err := pool.Execute(context.Background(), req, beatlesLibrary(), nil)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		stored, err := repo.Get(job.ID())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if stored.Status() != models.JobCompleted || stored.SongsMatched() != 1 {
			t.Errorf("unexpected stored job %s matched %d", stored.Status(), stored.SongsMatched())
		}
		if len(stored.Unmatched()) != 1 || stored.Unmatched()[0].Title != "Nonexistent Song" {
			t.Errorf("unexpected unmatched songs %v", stored.Unmatched())
		}
	})

	t.Run("Status unknown job", func(t *testing.T) {
		if _, err := newTestPool(1).Status("missing"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("one run per target playlist", func(t *testing.T) {
		pool := newTestPool(3)
		lib := newGatedLibrary()

		var ids []string
		for range 3 {
			job, err := pool.Submit(updateRequest("Mix"), lib)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			ids = append(ids, job.ID())
		}

		lib.waitActive(t, 1)
		time.Sleep(50 * time.Millisecond)
		if _, peak := lib.counts(); peak != 1 {
			t.Errorf("peak concurrent runs on one target = %d, want 1", peak)
		}

		close(lib.gate)
		pool.Wait()

		for _, id := range ids {
			job, _ := pool.Status(id)
			if job.Status() != models.JobCompleted {
				t.Errorf("job %s status = %s, want completed", id, job.Status())
			}
		}
		if _, peak := lib.counts(); peak != 1 {
			t.Errorf("peak concurrent runs on one target = %d, want 1", peak)
		}
	})

	t.Run("different targets run concurrently up to the worker limit", func(t *testing.T) {
		pool := newTestPool(2)
		lib := newGatedLibrary()

		for _, name := range []string{"A", "B", "C"} {
			if _, err := pool.Submit(updateRequest(name), lib); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
		}

		lib.waitActive(t, 2)
		time.Sleep(50 * time.Millisecond)
		if _, peak := lib.counts(); peak != 2 {
			t.Errorf("peak concurrent runs = %d, want 2", peak)
		}

		close(lib.gate)
		pool.Wait()
	})

	t.Run("Shutdown", func(t *testing.T) {
		t.Run("stops accepting work", func(t *testing.T) {
			pool := newTestPool(1)
			if err := pool.Shutdown(context.Background()); err != nil {
				t.Fatalf("Shutdown() error = %v", err)
			}
			if _, err := pool.Submit(updateRequest("Mix"), beatlesLibrary()); !errors.Is(err, shared.ErrUnavailable) {
				t.Errorf("expected ErrUnavailable, got %v", err)
			}
		})

		t.Run("cancels runs when the deadline passes", func(t *testing.T) {
			pool := newTestPool(1)
			lib := newGatedLibrary()

			job, err := pool.Submit(updateRequest("Mix"), lib)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			lib.waitActive(t, 1)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			if err := pool.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected DeadlineExceeded, got %v", err)
			}

			got, _ := pool.Status(job.ID())
			if got.Status() != models.JobFailed {
				t.Errorf("Status() = %s, want failed", got.Status())
			}
		})
	})
}

func TestMemoryJobStore(t *testing.T) {
	target := models.ImportTarget{Mode: models.CreateNew}

	t.Run("Create assigns id and sequence", func(t *testing.T) {
		store := NewMemoryJobStore()
		first := models.NewImportJob(0, "QQ Music", "a", target, 1)
		second := models.NewImportJob(0, "QQ Music", "b", target, 1)

		if err := store.Create(first); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := store.Create(second); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if first.ID() == "" || first.ID() == second.ID() {
			t.Errorf("expected distinct ids, got %q and %q", first.ID(), second.ID())
		}
		if first.Sequence() != 1 || second.Sequence() != 2 {
			t.Errorf("sequences = %d, %d, want 1, 2", first.Sequence(), second.Sequence())
		}
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		store := NewMemoryJobStore()
		job := models.NewImportJob(0, "QQ Music", "a", target, 1)
		if err := store.Create(job); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := store.Get(job.ID())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		got.SetStatus(models.JobFailed)

		again, _ := store.Get(job.ID())
		if again.Status() != models.JobPending {
			t.Errorf("stored job changed through a copy: %s", again.Status())
		}
	})

	t.Run("Update unknown job", func(t *testing.T) {
		store := NewMemoryJobStore()
		job := models.NewImportJob(0, "QQ Music", "a", target, 1)
		job.SetID("missing")

		if err := store.Update(job); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlock, err := k.Lock(context.Background(), "Mix")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	t.Run("other keys are independent", func(t *testing.T) {
		other, err := k.Lock(context.Background(), "Other")
		if err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		other()
	})

	t.Run("same key waits", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := k.Lock(ctx, "Mix"); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	unlock()

	t.Run("released keys are forgotten", func(t *testing.T) {
		k.mu.Lock()
		defer k.mu.Unlock()
		if len(k.locks) != 0 {
			t.Errorf("expected no tracked keys, got %d", len(k.locks))
		}
	})
}
