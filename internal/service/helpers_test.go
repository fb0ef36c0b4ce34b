package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/backendtest"
	"github.com/xxxsen/docqa/internal/client"
	"github.com/xxxsen/docqa/internal/model"
	"github.com/xxxsen/docqa/internal/tokenstore"
)

const (
	testEmail   = "reader@example.com"
	testTimeout = 2 * time.Second
	testTick    = 10 * time.Millisecond
)

type fixture struct {
	backend *backendtest.Server
	client  *client.Client
	tokens  tokenstore.Store
	token   string
}

// newFixture starts a fake backend with one signed in user.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := backendtest.New()
	t.Cleanup(backend.Close)
	token := backend.AddUser(testEmail, "Reader")
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Save(token))
	return &fixture{
		backend: backend,
		client:  client.New(backend.URL(), tokens),
		tokens:  tokens,
		token:   token,
	}
}

func testDocument(id, name string, uploaded time.Time) model.Document {
	return model.Document{
		DocID:                id,
		Filename:             name,
		UploadTime:           model.Timestamp{Time: uploaded},
		TotalPages:           10,
		EstimatedReadingTime: 8,
		ComplexityScore:      0.4,
		Summary:              "summary of " + name,
		KeyTopics:            []string{"a", "b"},
	}
}

type recordingNotifier struct {
	levels   []NoticeLevel
	messages []string
}

func (n *recordingNotifier) Notify(level NoticeLevel, message string) {
	n.levels = append(n.levels, level)
	n.messages = append(n.messages, message)
}
