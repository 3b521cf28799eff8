package journal

import "time"

// Entry is one uploaded journal document. Immutable once created; it is only
// persisted as the embedded source of an AnalyzedEntry.
type Entry struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyzedEntry is the result of a successful AI analysis of an Entry.
type AnalyzedEntry struct {
	ID           string    `json:"id"`
	JournalEntry Entry     `json:"journalEntry"`
	Emotion      string    `json:"emotion"`
	Qualities    []string  `json:"qualities"`
	Summary      string    `json:"summary,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// CheckInSuggestion is an ephemeral AI-generated prompt. It lives in memory
// only: scheduling converts it into a CheckIn, dismissal discards it.
type CheckInSuggestion struct {
	ID                     string   `json:"id"`
	Question               string   `json:"question"`
	BasedOnAnalyzedEntryID string   `json:"basedOnAnalyzedEntryId"`
	RelatedEmotion         string   `json:"relatedEmotion"`
	RelatedQualities       []string `json:"relatedQualities"`
}

// CheckInStatus enumerates the lifecycle states of a CheckIn.
type CheckInStatus string

const (
	StatusPending   CheckInStatus = "pending"
	StatusResponded CheckInStatus = "responded"
	StatusDismissed CheckInStatus = "dismissed"
)

// CheckIn is a scheduled reflection prompt, optionally tied to the analyzed
// entry that inspired it.
type CheckIn struct {
	ID                     string            `json:"id"`
	Question               string            `json:"question"`
	BasedOnAnalyzedEntryID string            `json:"basedOnAnalyzedEntryId,omitempty"`
	CreatedAt              time.Time         `json:"createdAt"`
	Status                 CheckInStatus     `json:"status"`
	Responses              []CheckInResponse `json:"responses"`
}

// CheckInResponse is one user answer to a CheckIn. Appended, never edited.
type CheckInResponse struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	RespondedAt time.Time `json:"respondedAt"`
}
