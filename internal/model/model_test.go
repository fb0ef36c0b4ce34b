package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDocumentDecodeNaiveTimestamp(t *testing.T) {
	raw := `{"doc_id":"d1","filename":"report.pdf","upload_time":"2025-04-02T10:11:12.345678","total_pages":10,
		"estimated_reading_time":8,"complexity_score":0.4,"summary":"s","key_topics":["a","b"]}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.NoError(t, doc.Validate())
	require.Equal(t, time.Date(2025, 4, 2, 10, 11, 12, 345678000, time.UTC), doc.UploadTime.Time)
	require.Equal(t, []string{"a", "b"}, doc.KeyTopics)
}

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		ok   bool
	}{
		{name: "valid", doc: Document{DocID: "d1", Filename: "a.pdf", ComplexityScore: 1}, ok: true},
		{name: "missing id", doc: Document{Filename: "a.pdf"}},
		{name: "missing filename", doc: Document{DocID: "d1"}},
		{name: "negative pages", doc: Document{DocID: "d1", Filename: "a.pdf", TotalPages: -1}},
		{name: "complexity out of range", doc: Document{DocID: "d1", Filename: "a.pdf", ComplexityScore: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}

func TestValidateDocumentsRejectsDuplicates(t *testing.T) {
	docs := []Document{{DocID: "d1", Filename: "a"}, {DocID: "d1", Filename: "b"}}
	require.Error(t, ValidateDocuments(docs))
}

func TestAnswerValidateDefaultsAnswerType(t *testing.T) {
	ans := &Answer{Answer: "x", ConfidenceScore: 0.9}
	require.NoError(t, ans.Validate())
	require.Equal(t, DefaultAnswerType, ans.AnswerType)

	bad := &Answer{ConfidenceScore: 0.5, Citations: []Citation{{Confidence: 2}}}
	require.Error(t, bad.Validate())
}

func TestSessionIsAuthenticated(t *testing.T) {
	require.False(t, Session{}.IsAuthenticated())
	require.False(t, Session{Token: "t"}.IsAuthenticated())
	require.False(t, Session{User: &User{ID: "u"}}.IsAuthenticated())
	require.True(t, Session{User: &User{ID: "u"}, Token: "t"}.IsAuthenticated())
}
