package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func analyzedFixture(id string, analyzedAt time.Time) AnalyzedEntry {
	return AnalyzedEntry{
		ID: id,
		JournalEntry: Entry{
			ID:        "journal-" + id,
			Filename:  id + ".md",
			Content:   "content of " + id,
			Timestamp: analyzedAt.Add(-time.Hour),
		},
		Emotion:   "curious",
		Qualities: []string{"learning", "growth"},
		Timestamp: analyzedAt,
	}
}

func checkInFixture(id string, status CheckInStatus, createdAt time.Time) CheckIn {
	return CheckIn{
		ID:        id,
		Question:  "question for " + id,
		CreatedAt: createdAt,
		Status:    status,
		Responses: []CheckInResponse{},
	}
}

func TestFileRepoAnalyzedEntriesRoundTrip(t *testing.T) {
	repo := NewFileRepo(t.TempDir())
	ctx := context.Background()

	analyzedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	entry := analyzedFixture("one", analyzedAt)
	entry.Summary = "a short summary"
	if err := repo.SaveAnalyzedEntry(ctx, entry); err != nil {
		t.Fatalf("SaveAnalyzedEntry: %v", err)
	}

	loaded, err := repo.LoadAnalyzedEntries(ctx)
	if err != nil {
		t.Fatalf("LoadAnalyzedEntries: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(loaded))
	}
	got := loaded[0]
	if got.ID != entry.ID || got.Emotion != entry.Emotion || got.Summary != entry.Summary {
		t.Fatalf("fields lost in round-trip: %+v", got)
	}
	if len(got.Qualities) != 2 || got.Qualities[0] != "learning" || got.Qualities[1] != "growth" {
		t.Fatalf("qualities order lost: %v", got.Qualities)
	}
	if !got.Timestamp.Equal(entry.Timestamp) {
		t.Fatalf("analysis timestamp changed: %v != %v", got.Timestamp, entry.Timestamp)
	}
	if !got.JournalEntry.Timestamp.Equal(entry.JournalEntry.Timestamp) {
		t.Fatalf("journal timestamp changed: %v != %v", got.JournalEntry.Timestamp, entry.JournalEntry.Timestamp)
	}
}

func TestFileRepoSaveAnalyzedEntryDedupsByID(t *testing.T) {
	repo := NewFileRepo(t.TempDir())
	ctx := context.Background()

	entry := analyzedFixture("one", time.Now().UTC())
	if err := repo.SaveAnalyzedEntry(ctx, entry); err != nil {
		t.Fatalf("first save: %v", err)
	}
	dup := entry
	dup.Emotion = "different"
	if err := repo.SaveAnalyzedEntry(ctx, dup); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := repo.LoadAnalyzedEntries(ctx)
	if err != nil {
		t.Fatalf("LoadAnalyzedEntries: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 entry after duplicate save, got %d", len(loaded))
	}
	if loaded[0].Emotion != "curious" {
		t.Fatalf("duplicate save must be a no-op, got emotion %q", loaded[0].Emotion)
	}
}

func TestFileRepoAnalyzedEntriesSortedMostRecentFirst(t *testing.T) {
	repo := NewFileRepo(t.TempDir())
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.SaveAnalyzedEntry(ctx, analyzedFixture("old", base)); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := repo.SaveAnalyzedEntry(ctx, analyzedFixture("new", base.Add(time.Hour))); err != nil {
		t.Fatalf("save new: %v", err)
	}

	loaded, err := repo.LoadAnalyzedEntries(ctx)
	if err != nil {
		t.Fatalf("LoadAnalyzedEntries: %v", err)
	}
	if loaded[0].ID != "new" || loaded[1].ID != "old" {
		t.Fatalf("expected most-recent-first, got %q then %q", loaded[0].ID, loaded[1].ID)
	}
}

func TestFileRepoCheckInsSortedPendingFirst(t *testing.T) {
	repo := NewFileRepo(t.TempDir())
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	responded := checkInFixture("responded-new", StatusResponded, base.Add(3*time.Hour))
	responded.Responses = []CheckInResponse{{ID: "r1", Text: "ok", RespondedAt: base.Add(3 * time.Hour)}}
	for _, ci := range []CheckIn{
		checkInFixture("pending-old", StatusPending, base),
		responded,
		checkInFixture("pending-new", StatusPending, base.Add(2*time.Hour)),
		checkInFixture("dismissed", StatusDismissed, base.Add(4*time.Hour)),
	} {
		if err := repo.SaveCheckIn(ctx, ci); err != nil {
			t.Fatalf("SaveCheckIn %s: %v", ci.ID, err)
		}
	}

	loaded, err := repo.LoadCheckIns(ctx)
	if err != nil {
		t.Fatalf("LoadCheckIns: %v", err)
	}
	gotOrder := []string{}
	for _, ci := range loaded {
		gotOrder = append(gotOrder, ci.ID)
	}
	want := []string{"pending-new", "pending-old", "dismissed", "responded-new"}
	if len(gotOrder) != len(want) {
		t.Fatalf("expected %d check-ins, got %v", len(want), gotOrder)
	}
	for i := range want {
		if gotOrder[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, gotOrder, want)
		}
	}
}

func TestFileRepoUpdateCheckInUnknownIDIsNoOp(t *testing.T) {
	repo := NewFileRepo(t.TempDir())
	ctx := context.Background()

	if err := repo.SaveCheckIn(ctx, checkInFixture("known", StatusPending, time.Now().UTC())); err != nil {
		t.Fatalf("SaveCheckIn: %v", err)
	}
	ghost := checkInFixture("ghost", StatusResponded, time.Now().UTC())
	if err := repo.UpdateCheckIn(ctx, ghost); err != nil {
		t.Fatalf("UpdateCheckIn: %v", err)
	}

	loaded, err := repo.LoadCheckIns(ctx)
	if err != nil {
		t.Fatalf("LoadCheckIns: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "known" {
		t.Fatalf("unknown-id update must not alter the store, got %+v", loaded)
	}
}

func TestFileRepoDeleteCheckInUnknownIDIsNoOp(t *testing.T) {
	repo := NewFileRepo(t.TempDir())
	ctx := context.Background()

	if err := repo.SaveCheckIn(ctx, checkInFixture("known", StatusPending, time.Now().UTC())); err != nil {
		t.Fatalf("SaveCheckIn: %v", err)
	}
	if err := repo.DeleteCheckIn(ctx, "ghost"); err != nil {
		t.Fatalf("DeleteCheckIn: %v", err)
	}

	loaded, err := repo.LoadCheckIns(ctx)
	if err != nil {
		t.Fatalf("LoadCheckIns: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("unknown-id delete must not alter the store, got %d", len(loaded))
	}
}

func TestFileRepoReadsFailSoft(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepo(dir)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, analyzedEntriesFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, checkInsFile), []byte("also not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	entries, err := repo.LoadAnalyzedEntries(ctx)
	if err != nil {
		t.Fatalf("LoadAnalyzedEntries must not fail on corrupt data: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty entries, got %d", len(entries))
	}
	checkIns, err := repo.LoadCheckIns(ctx)
	if err != nil {
		t.Fatalf("LoadCheckIns must not fail on corrupt data: %v", err)
	}
	if len(checkIns) != 0 {
		t.Fatalf("expected empty check-ins, got %d", len(checkIns))
	}
}
