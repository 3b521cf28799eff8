package journal

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"reflections-backend/internal/llm"
)

func setupRouter(t *testing.T, client llm.Client) (*gin.Engine, *Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewFileRepo(t.TempDir())
	mgr := NewManager(repo, client)
	handler := NewHandler(mgr)

	r := gin.New()
	api := r.Group("/api/v1")
	handler.RegisterRoutes(api)
	return r, mgr
}

func multipartUpload(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestUploadAcceptsOnlyMarkdown(t *testing.T) {
	r, mgr := setupRouter(t, &stubGateway{})

	body, contentType := multipartUpload(t, map[string]string{
		"reflection.md": "Today was hard.",
		"notes.txt":     "not a journal entry",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var result struct {
		Ingested []Entry  `json:"ingested"`
		Skipped  []string `json:"skipped"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Ingested) != 1 || result.Ingested[0].Filename != "reflection.md" {
		t.Fatalf("expected reflection.md ingested, got %+v", result.Ingested)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "notes.txt" {
		t.Fatalf("expected notes.txt skipped, got %v", result.Skipped)
	}
	if len(mgr.PendingEntries()) != 1 {
		t.Fatalf("expected 1 queued entry, got %d", len(mgr.PendingEntries()))
	}
}

func TestUploadRejectsWhenNothingAccepted(t *testing.T) {
	r, _ := setupRouter(t, &stubGateway{})

	body, contentType := multipartUpload(t, map[string]string{"notes.txt": "plain text"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	gateway := &stubGateway{analysis: llm.Analysis{Emotion: "sad", Qualities: []string{"struggle"}}}
	r, _ := setupRouter(t, gateway)

	body, contentType := multipartUpload(t, map[string]string{"reflection.md": "Today was hard."})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodPost, "/api/v1/entries/analyze", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result struct {
		AnalyzedEntries []AnalyzedEntry `json:"analyzedEntries"`
		LastError       string          `json:"lastError"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.AnalyzedEntries) != 1 || result.AnalyzedEntries[0].Emotion != "sad" {
		t.Fatalf("expected one sad entry, got %+v", result.AnalyzedEntries)
	}
	if result.LastError != "" {
		t.Fatalf("expected no error, got %q", result.LastError)
	}
}

func TestAnalyzeEndpointEmptyQueue(t *testing.T) {
	r, _ := setupRouter(t, &stubGateway{})
	resp := doJSON(t, r, http.MethodPost, "/api/v1/entries/analyze", nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestAnalyzeEndpointNotConfigured(t *testing.T) {
	r, mgr := setupRouter(t, nil)
	mgr.IngestUpload([]Entry{testEntry("entry-1", "a.md", "text")})

	resp := doJSON(t, r, http.MethodPost, "/api/v1/entries/analyze", nil)
	if resp.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", resp.Code)
	}
}

func TestCheckInFlowOverHTTP(t *testing.T) {
	gateway := &stubGateway{
		analysis: llm.Analysis{Emotion: "anxious", Qualities: []string{"uncertainty"}},
		question: "What is weighing on you most right now?",
	}
	r, mgr := setupRouter(t, gateway)
	seedAnalyzed(t, mgr, testEntry("entry-1", "a.md", "one"))

	resp := doJSON(t, r, http.MethodPost, "/api/v1/check-ins/suggestions", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var genResult struct {
		Suggestions []CheckInSuggestion `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&genResult); err != nil {
		t.Fatalf("decode suggestions: %v", err)
	}
	if len(genResult.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(genResult.Suggestions))
	}

	suggestionID := genResult.Suggestions[0].ID
	resp = doJSON(t, r, http.MethodPost, "/api/v1/check-ins/suggestions/"+suggestionID+"/schedule", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("schedule: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var checkIn CheckIn
	if err := json.NewDecoder(resp.Body).Decode(&checkIn); err != nil {
		t.Fatalf("decode check-in: %v", err)
	}
	if checkIn.Status != StatusPending {
		t.Fatalf("expected pending check-in, got %q", checkIn.Status)
	}

	resp = doJSON(t, r, http.MethodPost, "/api/v1/check-ins/"+checkIn.ID+"/responses", map[string]string{"text": "Feeling better now"})
	if resp.Code != http.StatusOK {
		t.Fatalf("respond: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var responded CheckIn
	if err := json.NewDecoder(resp.Body).Decode(&responded); err != nil {
		t.Fatalf("decode responded check-in: %v", err)
	}
	if responded.Status != StatusResponded || len(responded.Responses) != 1 || responded.Responses[0].Text != "Feeling better now" {
		t.Fatalf("unexpected responded check-in %+v", responded)
	}

	resp = doJSON(t, r, http.MethodDelete, "/api/v1/check-ins/"+checkIn.ID, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.Code)
	}
	if len(mgr.CheckIns()) != 0 {
		t.Fatalf("expected no check-ins after delete")
	}
}

func TestRecordResponseValidation(t *testing.T) {
	r, _ := setupRouter(t, &stubGateway{})

	resp := doJSON(t, r, http.MethodPost, "/api/v1/check-ins/some-id/responses", map[string]string{"text": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", resp.Code)
	}

	resp = doJSON(t, r, http.MethodPost, "/api/v1/check-ins/missing/responses", map[string]string{"text": "hello"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", resp.Code)
	}
}

func TestStateEndpoint(t *testing.T) {
	r, _ := setupRouter(t, &stubGateway{})

	resp := doJSON(t, r, http.MethodGet, "/api/v1/state", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	raw := resp.Body.String()
	for _, key := range []string{"aiConfigured", "pendingEntries", "analyzedEntries", "suggestions", "checkIns", "lastError"} {
		if !strings.Contains(raw, key) {
			t.Fatalf("state response missing %q: %s", key, raw)
		}
	}
	var state struct {
		AIConfigured bool `json:"aiConfigured"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.AIConfigured {
		t.Fatalf("expected aiConfigured true with a stub gateway")
	}
}
