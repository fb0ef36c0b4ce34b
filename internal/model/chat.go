package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const DefaultAnswerType = "document_only"

type Citation struct {
	PageNumber int     `json:"page_number"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
	DocID      string  `json:"doc_id,omitempty"`
	ChunkID    int     `json:"chunk_id,omitempty"`
}

// HistoryTurn is one question/answer pair sent back to the backend as
// conversation context.
type HistoryTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type AskRequest struct {
	Question            string        `json:"question"`
	DocIDs              []string      `json:"doc_ids"`
	ConversationHistory []HistoryTurn `json:"conversation_history"`
}

type Answer struct {
	Answer             string     `json:"answer"`
	Citations          []Citation `json:"citations"`
	ConfidenceScore    float64    `json:"confidence_score"`
	SuggestedQuestions []string   `json:"suggested_questions"`
	ProcessingTime     float64    `json:"processing_time"`
	AnswerType         string     `json:"answer_type,omitempty"`
}

func (a *Answer) Validate() error {
	if a == nil {
		return fmt.Errorf("answer is null")
	}
	if !unitInterval(a.ConfidenceScore) {
		return fmt.Errorf("confidence_score must be in [0,1], got %v", a.ConfidenceScore)
	}
	if a.ProcessingTime < 0 {
		return fmt.Errorf("processing_time must be non-negative, got %v", a.ProcessingTime)
	}
	for i, c := range a.Citations {
		if !unitInterval(c.Confidence) {
			return fmt.Errorf("citations[%d].confidence must be in [0,1], got %v", i, c.Confidence)
		}
	}
	if a.AnswerType == "" {
		a.AnswerType = DefaultAnswerType
	}
	return nil
}

type CompareRequest struct {
	DocIDs   []string `json:"doc_ids"`
	Question string   `json:"question"`
}

type Comparison struct {
	Comparison string   `json:"comparison"`
	Documents  []string `json:"documents"`
}

func (c *Comparison) Validate() error {
	if c == nil {
		return fmt.Errorf("comparison is null")
	}
	if strings.TrimSpace(c.Comparison) == "" {
		return fmt.Errorf("comparison is required")
	}
	return nil
}

type ChatMessage struct {
	ID                 string     `json:"id"`
	Role               Role       `json:"role"`
	Content            string     `json:"content"`
	Citations          []Citation `json:"citations,omitempty"`
	Confidence         *float64   `json:"confidence,omitempty"`
	SuggestedQuestions []string   `json:"suggested_questions,omitempty"`
	ProcessingTime     float64    `json:"processing_time,omitempty"`
	AnswerType         string     `json:"answer_type,omitempty"`
	IsError            bool       `json:"is_error,omitempty"`
	Unanswered         bool       `json:"unanswered,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
}
