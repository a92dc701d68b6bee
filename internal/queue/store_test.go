package queue

import (
	"context"
	"errors"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, err := store.Add(ctx, "/media/disc.iso", "MOVIE")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.Status != StatusPending {
		t.Errorf("expected pending, got %s", item.Status)
	}
	if item.ID == 0 || item.CreatedAt.IsZero() {
		t.Errorf("identity not populated: %+v", item)
	}

	loaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.SourcePath != "/media/disc.iso" || loaded.DiscTitle != "MOVIE" {
		t.Errorf("unexpected item %+v", loaded)
	}
}

func TestAddRejectsDuplicateLiveSource(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.Add(ctx, "/media/disc.iso", "MOVIE")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.Add(ctx, "/media/disc.iso", "MOVIE"); err == nil {
		t.Fatal("expected duplicate source rejection")
	}

	// A terminal item frees the source for re-queueing.
	if err := store.SetStatus(ctx, first.ID, StatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := store.Add(ctx, "/media/disc.iso", "MOVIE"); err != nil {
		t.Fatalf("re-add after completion: %v", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, err := store.Add(ctx, "/media/disc.iso", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.SetStatus(ctx, item.ID, StatusAnalyzing); err != nil {
		t.Fatalf("set analyzing: %v", err)
	}
	if err := store.SetAnalyzed(ctx, item.ID, "MOVIE", 3); err != nil {
		t.Fatalf("set analyzed: %v", err)
	}
	loaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != StatusAnalyzed || loaded.TitleCount != 3 || loaded.DiscTitle != "MOVIE" {
		t.Errorf("unexpected analyzed item %+v", loaded)
	}

	if err := store.SetSelectedTitles(ctx, item.ID, []int{1, 3}); err != nil {
		t.Fatalf("select titles: %v", err)
	}
	loaded, _ = store.GetByID(ctx, item.ID)
	if len(loaded.SelectedTitles) != 2 || loaded.SelectedTitles[1] != 3 {
		t.Errorf("unexpected selection %+v", loaded.SelectedTitles)
	}

	if err := store.MarkFailed(ctx, item.ID, "mkvmerge failed"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	loaded, _ = store.GetByID(ctx, item.ID)
	if loaded.Status != StatusFailed || loaded.ErrorMessage != "mkvmerge failed" {
		t.Errorf("unexpected failed item %+v", loaded)
	}
}

func TestNextWithStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if item, err := store.NextWithStatus(ctx, StatusPending); err != nil || item != nil {
		t.Fatalf("empty queue: expected nil, got %+v err %v", item, err)
	}

	first, _ := store.Add(ctx, "/media/a.iso", "")
	second, _ := store.Add(ctx, "/media/b.iso", "")

	item, err := store.NextWithStatus(ctx, StatusPending)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if item.ID != first.ID {
		t.Errorf("expected oldest item %d, got %d", first.ID, item.ID)
	}

	if err := store.SetStatus(ctx, first.ID, StatusAnalyzing); err != nil {
		t.Fatalf("set status: %v", err)
	}
	item, err = store.NextWithStatus(ctx, StatusPending)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if item.ID != second.ID {
		t.Errorf("expected %d, got %d", second.ID, item.ID)
	}
}

func TestRecoverInFlight(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	analyzing, _ := store.Add(ctx, "/media/a.iso", "")
	processing, _ := store.Add(ctx, "/media/b.iso", "")
	done, _ := store.Add(ctx, "/media/c.iso", "")
	_ = store.SetStatus(ctx, analyzing.ID, StatusAnalyzing)
	_ = store.SetStatus(ctx, processing.ID, StatusProcessing)
	_ = store.SetStatus(ctx, done.ID, StatusCompleted)

	recovered, err := store.RecoverInFlight(ctx)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != 2 {
		t.Errorf("expected 2 recovered, got %d", recovered)
	}

	loaded, _ := store.GetByID(ctx, analyzing.ID)
	if loaded.Status != StatusPending {
		t.Errorf("analyzing item not rolled back: %s", loaded.Status)
	}
	loaded, _ = store.GetByID(ctx, processing.ID)
	if loaded.Status != StatusAnalyzed {
		t.Errorf("processing item not rolled back: %s", loaded.Status)
	}
	loaded, _ = store.GetByID(ctx, done.ID)
	if loaded.Status != StatusCompleted {
		t.Errorf("terminal item must not change: %s", loaded.Status)
	}
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	live, _ := store.Add(ctx, "/media/a.iso", "")
	dead, _ := store.Add(ctx, "/media/b.iso", "")
	_ = store.SetStatus(ctx, dead.ID, StatusFailed)

	removed, err := store.Clear(ctx, false)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, err := store.GetByID(ctx, live.ID); err != nil {
		t.Errorf("live item removed: %v", err)
	}

	removed, err = store.Clear(ctx, true)
	if err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetByID(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, err := ParseStatus("Analyzed"); err != nil || status != StatusAnalyzed {
		t.Errorf("got %s, %v", status, err)
	}
	if _, err := ParseStatus("ripping"); err == nil {
		t.Error("expected error for unknown status")
	}
	if !StatusStopped.IsTerminal() || StatusProcessing.IsTerminal() {
		t.Error("terminal classification wrong")
	}
}
