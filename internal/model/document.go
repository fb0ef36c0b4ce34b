package model

import (
	"fmt"
	"strings"
)

type Document struct {
	DocID                string    `json:"doc_id"`
	Filename             string    `json:"filename"`
	UploadTime           Timestamp `json:"upload_time"`
	TotalPages           int       `json:"total_pages"`
	EstimatedReadingTime float64   `json:"estimated_reading_time"`
	ComplexityScore      float64   `json:"complexity_score"`
	Summary              string    `json:"summary"`
	KeyTopics            []string  `json:"key_topics"`
	TotalChunks          int       `json:"total_chunks,omitempty"`
	FileSize             int64     `json:"file_size,omitempty"`
}

func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("document is null")
	}
	if strings.TrimSpace(d.DocID) == "" {
		return fmt.Errorf("doc_id is required")
	}
	if d.Filename == "" {
		return fmt.Errorf("filename is required for %s", d.DocID)
	}
	if d.TotalPages < 0 {
		return fmt.Errorf("total_pages must be non-negative, got %d", d.TotalPages)
	}
	if d.EstimatedReadingTime < 0 {
		return fmt.Errorf("estimated_reading_time must be non-negative, got %v", d.EstimatedReadingTime)
	}
	if !unitInterval(d.ComplexityScore) {
		return fmt.Errorf("complexity_score must be in [0,1], got %v", d.ComplexityScore)
	}
	if d.TotalChunks < 0 || d.FileSize < 0 {
		return fmt.Errorf("total_chunks and file_size must be non-negative")
	}
	return nil
}

// ValidateDocuments checks a list response and rejects duplicate ids.
func ValidateDocuments(docs []Document) error {
	seen := make(map[string]struct{}, len(docs))
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return fmt.Errorf("documents[%d]: %w", i, err)
		}
		if _, ok := seen[docs[i].DocID]; ok {
			return fmt.Errorf("documents[%d]: duplicate doc_id %s", i, docs[i].DocID)
		}
		seen[docs[i].DocID] = struct{}{}
	}
	return nil
}

type DeleteResult struct {
	Message string `json:"message"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

func (s *SuggestionsResponse) Validate() error {
	if s == nil {
		return fmt.Errorf("suggestions payload is null")
	}
	if s.Suggestions == nil {
		return fmt.Errorf("suggestions is required")
	}
	return nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
