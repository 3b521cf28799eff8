package openai

import (
	"fmt"
	"strings"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const (
	analysisSystemPrompt = "You are an emotion analysis engine for personal journal entries. Respond with JSON only. Output must match the schema exactly."
	questionSystemPrompt = "You are a supportive reflection companion. Respond with a single question and nothing else."
)

// BuildAnalysisPrompt creates the chat messages for a journal entry analysis request.
func BuildAnalysisPrompt(content string) []Message {
	var b strings.Builder
	b.WriteString(`Analyze the following journal entry to determine the primary emotional state (e.g., happy, sad, frustrated, excited, anxious, calm, contemplative, grateful) and extract 2-4 key qualities or themes (e.g., achievement, interpersonal conflict, self-doubt, gratitude, problem-solving, future planning).
Return the response strictly as a JSON object with keys "emotion" (string) and "qualities" (an array of strings).

Journal Entry:
---
`)
	b.WriteString(content)
	b.WriteString("\n---\n\nJSON Response:")

	return []Message{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// BuildQuestionPrompt creates the chat messages for a check-in question request.
func BuildQuestionPrompt(emotion string, qualities []string) []Message {
	joined := strings.Join(qualities, ", ")
	user := fmt.Sprintf(`Based on this recent journal insight:
Emotion: %q
Qualities: %q

Generate a single, supportive, and empathetic follow-up question for a check-in. The question should be open-ended and encourage reflection.
The question should be phrased naturally and directly to the person. Avoid starting with "The AI suggests..." or similar meta-commentary. Just provide the question.

Question:`, emotion, joined)

	return []Message{
		{Role: "system", Content: questionSystemPrompt},
		{Role: "user", Content: user},
	}
}
