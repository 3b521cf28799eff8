package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"reflections-backend/internal/llm"
	"reflections-backend/internal/shared/metrics"
	"reflections-backend/internal/shared/telemetry"
)

const suggestionSourceLimit = 3

// Manager orchestrates the journal lifecycle: upload intake, sequential AI
// analysis, suggestion generation, scheduling, responding and deletion. It is
// the sole owner of the in-memory state; callers only receive copies.
//
// Batch passes (analysis, suggestion generation) are mutually exclusive per
// kind: a second concurrent pass of the same kind fails fast with
// ErrPassInFlight instead of interleaving writes.
type Manager struct {
	repo Repo
	llm  llm.Client // nil when no API credential was configured

	mu          sync.Mutex
	pending     []Entry
	analyzed    []AnalyzedEntry
	checkIns    []CheckIn
	suggestions []CheckInSuggestion
	lastError   string

	analysisBusy    atomic.Bool
	suggestionsBusy atomic.Bool
}

// NewManager constructs a Manager and primes its in-memory state from the
// repo. Load failures degrade to empty collections with a log record.
func NewManager(repo Repo, client llm.Client) *Manager {
	m := &Manager{repo: repo, llm: client}

	ctx := context.Background()
	analyzed, err := repo.LoadAnalyzedEntries(ctx)
	if err != nil {
		telemetry.Warn("journal.load_analyzed_failed", map[string]any{"error": err.Error()})
		analyzed = []AnalyzedEntry{}
	}
	checkIns, err := repo.LoadCheckIns(ctx)
	if err != nil {
		telemetry.Warn("journal.load_checkins_failed", map[string]any{"error": err.Error()})
		checkIns = []CheckIn{}
	}

	m.analyzed = analyzed
	m.checkIns = checkIns
	return m
}

// Configured reports whether AI-dependent operations are available.
func (m *Manager) Configured() bool {
	return m.llm != nil
}

// IngestUpload merges newly uploaded entries into the pending queue, skipping
// any whose id is already queued.
func (m *Manager) IngestUpload(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queued := make(map[string]struct{}, len(m.pending))
	for _, e := range m.pending {
		queued[e.ID] = struct{}{}
	}
	for _, e := range entries {
		if _, ok := queued[e.ID]; ok {
			continue
		}
		m.pending = append(m.pending, e)
		queued[e.ID] = struct{}{}
	}
	m.lastError = ""
}

// RunAnalysisPass analyzes every queued entry in upload order. Entries already
// analyzed (by journal-entry id) are skipped without a gateway call. Per-entry
// gateway failures are recorded and the pass continues; the queue is cleared
// when the pass finishes regardless of outcome.
func (m *Manager) RunAnalysisPass(ctx context.Context) error {
	if m.llm == nil {
		return ErrNotConfigured
	}
	if !m.analysisBusy.CompareAndSwap(false, true) {
		return ErrPassInFlight
	}
	defer m.analysisBusy.Store(false)

	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return ErrEmptyQueue
	}
	queue := make([]Entry, len(m.pending))
	copy(queue, m.pending)
	alreadyAnalyzed := make(map[string]struct{}, len(m.analyzed))
	for _, ae := range m.analyzed {
		alreadyAnalyzed[ae.JournalEntry.ID] = struct{}{}
	}
	m.lastError = ""
	m.mu.Unlock()

	newCount := 0
	for _, entry := range queue {
		if _, ok := alreadyAnalyzed[entry.ID]; ok {
			continue
		}

		start := time.Now()
		analysis, err := m.llm.AnalyzeEntry(ctx, entry.Content)
		metrics.ObserveGatewayDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
		if err != nil {
			metrics.IncEntryAnalysisFailed()
			telemetry.Error("journal.analysis_failed", map[string]any{
				"filename": entry.Filename,
				"entry_id": entry.ID,
				"error":    err.Error(),
			})
			m.setLastError("Failed to analyze " + entry.Filename + ": " + err.Error())
			continue
		}

		analyzedEntry := AnalyzedEntry{
			ID:           uuid.NewString(),
			JournalEntry: entry,
			Emotion:      analysis.Emotion,
			Qualities:    analysis.Qualities,
			Summary:      analysis.Summary,
			Timestamp:    time.Now().UTC(),
		}
		if err := m.repo.SaveAnalyzedEntry(ctx, analyzedEntry); err != nil {
			telemetry.Warn("journal.save_analyzed_failed", map[string]any{
				"entry_id": analyzedEntry.ID,
				"error":    err.Error(),
			})
		}

		m.mu.Lock()
		m.analyzed = append([]AnalyzedEntry{analyzedEntry}, m.analyzed...)
		m.mu.Unlock()
		alreadyAnalyzed[entry.ID] = struct{}{}
		metrics.IncEntryAnalyzed()
		newCount++
	}

	m.mu.Lock()
	m.pending = nil
	if newCount == 0 && m.lastError == "" {
		m.lastError = "All uploaded entries were already analyzed or no new entries were provided."
	} else if newCount > 0 {
		m.lastError = ""
	}
	m.mu.Unlock()
	return nil
}

// GenerateSuggestions produces check-in suggestions from the most recently
// analyzed entries, skipping entries that already have a pending check-in.
// The previous suggestion batch is replaced wholesale.
func (m *Manager) GenerateSuggestions(ctx context.Context) error {
	if m.llm == nil {
		return ErrNotConfigured
	}
	if !m.suggestionsBusy.CompareAndSwap(false, true) {
		return ErrPassInFlight
	}
	defer m.suggestionsBusy.Store(false)

	m.mu.Lock()
	if len(m.analyzed) == 0 {
		m.mu.Unlock()
		return ErrInsufficientData
	}
	limit := suggestionSourceLimit
	if len(m.analyzed) < limit {
		limit = len(m.analyzed)
	}
	recent := make([]AnalyzedEntry, limit)
	copy(recent, m.analyzed[:limit])
	hasPendingCheckIn := make(map[string]struct{})
	for _, ci := range m.checkIns {
		if ci.Status == StatusPending && ci.BasedOnAnalyzedEntryID != "" {
			hasPendingCheckIn[ci.BasedOnAnalyzedEntryID] = struct{}{}
		}
	}
	m.lastError = ""
	m.mu.Unlock()

	batch := []CheckInSuggestion{}
	for _, entry := range recent {
		if _, ok := hasPendingCheckIn[entry.ID]; ok {
			continue
		}

		start := time.Now()
		question, err := m.llm.GenerateCheckInQuestion(ctx, entry.Emotion, entry.Qualities)
		metrics.ObserveGatewayDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
		if err != nil {
			telemetry.Error("journal.suggestion_failed", map[string]any{
				"analyzed_entry_id": entry.ID,
				"error":             err.Error(),
			})
			m.setLastError("Failed to generate a check-in question: " + err.Error())
			continue
		}

		batch = append(batch, CheckInSuggestion{
			ID:                     uuid.NewString(),
			Question:               question,
			BasedOnAnalyzedEntryID: entry.ID,
			RelatedEmotion:         entry.Emotion,
			RelatedQualities:       entry.Qualities,
		})
		metrics.IncSuggestionGenerated()
	}

	m.mu.Lock()
	m.suggestions = batch
	if len(batch) == 0 && m.lastError == "" {
		m.lastError = "No new check-in suggestions generated. Recent insights may already have pending check-ins."
	}
	m.mu.Unlock()
	return nil
}

// ScheduleSuggestion converts an in-memory suggestion into a persisted pending
// CheckIn and removes the suggestion.
func (m *Manager) ScheduleSuggestion(ctx context.Context, suggestionID string) (CheckIn, error) {
	m.mu.Lock()
	idx := -1
	for i, s := range m.suggestions {
		if s.ID == suggestionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return CheckIn{}, ErrNotFound
	}
	suggestion := m.suggestions[idx]
	m.suggestions = append(m.suggestions[:idx], m.suggestions[idx+1:]...)
	m.mu.Unlock()

	checkIn := CheckIn{
		ID:                     uuid.NewString(),
		Question:               suggestion.Question,
		BasedOnAnalyzedEntryID: suggestion.BasedOnAnalyzedEntryID,
		CreatedAt:              time.Now().UTC(),
		Status:                 StatusPending,
		Responses:              []CheckInResponse{},
	}
	if err := m.repo.SaveCheckIn(ctx, checkIn); err != nil {
		telemetry.Warn("journal.save_checkin_failed", map[string]any{
			"check_in_id": checkIn.ID,
			"error":       err.Error(),
		})
	}

	m.mu.Lock()
	m.checkIns = append([]CheckIn{checkIn}, m.checkIns...)
	m.mu.Unlock()
	metrics.IncCheckInScheduled()
	return checkIn, nil
}

// DismissSuggestion drops the suggestion from memory. Nothing is persisted.
func (m *Manager) DismissSuggestion(suggestionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.suggestions {
		if s.ID == suggestionID {
			m.suggestions = append(m.suggestions[:i], m.suggestions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// RecordResponse appends a response to the check-in and flips its status to
// responded. The check-in collection is left untouched for unknown ids.
func (m *Manager) RecordResponse(ctx context.Context, checkInID, text string) (CheckIn, error) {
	m.mu.Lock()
	idx := -1
	for i, ci := range m.checkIns {
		if ci.ID == checkInID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return CheckIn{}, ErrNotFound
	}

	updated := m.checkIns[idx]
	updated.Responses = append(append([]CheckInResponse{}, updated.Responses...), CheckInResponse{
		ID:          uuid.NewString(),
		Text:        text,
		RespondedAt: time.Now().UTC(),
	})
	updated.Status = StatusResponded
	m.checkIns[idx] = updated
	m.mu.Unlock()

	if err := m.repo.UpdateCheckIn(ctx, updated); err != nil {
		telemetry.Warn("journal.update_checkin_failed", map[string]any{
			"check_in_id": updated.ID,
			"error":       err.Error(),
		})
	}
	metrics.IncCheckInResponse()
	return updated, nil
}

// DismissCheckIn marks a pending check-in dismissed without deleting it.
// Responded check-ins cannot be dismissed.
func (m *Manager) DismissCheckIn(ctx context.Context, checkInID string) (CheckIn, error) {
	m.mu.Lock()
	idx := -1
	for i, ci := range m.checkIns {
		if ci.ID == checkInID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return CheckIn{}, ErrNotFound
	}
	if m.checkIns[idx].Status == StatusResponded {
		m.mu.Unlock()
		return CheckIn{}, ErrAlreadyResponded
	}

	updated := m.checkIns[idx]
	updated.Status = StatusDismissed
	m.checkIns[idx] = updated
	m.mu.Unlock()

	if err := m.repo.UpdateCheckIn(ctx, updated); err != nil {
		telemetry.Warn("journal.update_checkin_failed", map[string]any{
			"check_in_id": updated.ID,
			"error":       err.Error(),
		})
	}
	return updated, nil
}

// DeleteCheckIn removes the check-in from store and memory. Unknown ids are a
// no-op.
func (m *Manager) DeleteCheckIn(ctx context.Context, checkInID string) error {
	if err := m.repo.DeleteCheckIn(ctx, checkInID); err != nil {
		telemetry.Warn("journal.delete_checkin_failed", map[string]any{
			"check_in_id": checkInID,
			"error":       err.Error(),
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ci := range m.checkIns {
		if ci.ID == checkInID {
			m.checkIns = append(m.checkIns[:i], m.checkIns[i+1:]...)
			break
		}
	}
	return nil
}

// PendingEntries returns a copy of the not-yet-analyzed upload queue.
func (m *Manager) PendingEntries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.pending))
	copy(out, m.pending)
	return out
}

// AnalyzedEntries returns a copy of the analyzed list, most recent first.
func (m *Manager) AnalyzedEntries() []AnalyzedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AnalyzedEntry, len(m.analyzed))
	copy(out, m.analyzed)
	return out
}

// Suggestions returns a copy of the current suggestion batch.
func (m *Manager) Suggestions() []CheckInSuggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CheckInSuggestion, len(m.suggestions))
	copy(out, m.suggestions)
	return out
}

// CheckIns returns a copy of the check-in list, pending first.
func (m *Manager) CheckIns() []CheckIn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CheckIn, len(m.checkIns))
	copy(out, m.checkIns)
	sortCheckIns(out)
	return out
}

// LastError returns the single user-visible error message, empty when none.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

func (m *Manager) setLastError(msg string) {
	m.mu.Lock()
	m.lastError = msg
	m.mu.Unlock()
}
