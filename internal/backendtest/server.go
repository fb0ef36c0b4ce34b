// Package backendtest runs an in-process stand-in for the document QA
// backend. It implements the REST contract the client depends on and lets
// tests script failures, latency and canned answers.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docqa/internal/model"
)

const (
	DefaultPassword = "secret-password"
	jwtSecret       = "backendtest-secret"
)

type account struct {
	user     model.User
	password string
}

// Failure is returned instead of the normal response for a scripted call.
type Failure struct {
	Status int
	Detail string
}

type Server struct {
	srv    *httptest.Server
	engine *gin.Engine

	mu        sync.Mutex
	accounts  map[string]*account
	revoked   map[string]struct{}
	documents map[string]model.Document
	order     []string
	failures  map[string][]Failure
	gates     map[string]chan struct{}
	calls     map[string]*atomic.Int64
	requests  []RecordedRequest

	// AnswerFunc builds the /ask response. The default echoes the question.
	AnswerFunc func(req model.AskRequest) model.Answer
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration
}

type RecordedRequest struct {
	Route     string
	RequestID string
	Auth      string
	Body      []byte
}

func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		accounts:  make(map[string]*account),
		revoked:   make(map[string]struct{}),
		documents: make(map[string]model.Document),
		failures:  make(map[string][]Failure),
		gates:     make(map[string]chan struct{}),
		calls:     make(map[string]*atomic.Int64),
		TokenTTL:  time.Hour,
	}
	s.AnswerFunc = defaultAnswer
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestID(), gzip.Gzip(gzip.DefaultCompression))
	s.registerRoutes(s.engine.Group("/api"))
	s.srv = httptest.NewServer(s.engine)
	return s
}

func (s *Server) Close() {
	s.srv.Close()
}

// URL is the API base url, including the /api prefix.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// AddUser registers an account and returns a valid token for it.
func (s *Server) AddUser(email, fullName string) string {
	s.mu.Lock()
	acc := &account{
		user: model.User{
			ID:        "u-" + strings.SplitN(email, "@", 2)[0],
			Email:     email,
			FullName:  fullName,
			CreatedAt: model.Timestamp{Time: time.Now().UTC().Truncate(time.Second)},
			IsActive:  true,
		},
		password: DefaultPassword,
	}
	s.accounts[email] = acc
	s.mu.Unlock()
	token, _ := s.issueToken(email)
	return token
}

// IssueToken mints a token for an existing account with an explicit ttl.
func (s *Server) IssueToken(email string, ttl time.Duration) string {
	token, _ := generateToken(email, []byte(jwtSecret), ttl)
	return token
}

func (s *Server) Revoke(token string) {
	s.mu.Lock()
	s.revoked[token] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) AddDocument(doc model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.DocID]; !ok {
		s.order = append(s.order, doc.DocID)
	}
	s.documents[doc.DocID] = doc
}

func (s *Server) Documents() []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.documents[id])
	}
	return out
}

// Fail makes the next call to route return f. Routes are named by the
// gin path, e.g. "POST /api/ask".
func (s *Server) Fail(route string, f Failure) {
	s.mu.Lock()
	s.failures[route] = append(s.failures[route], f)
	s.mu.Unlock()
}

// Hold blocks every call to route until the returned release is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) Calls(route string) int64 {
	s.mu.Lock()
	counter := s.calls[route]
	s.mu.Unlock()
	if counter == nil {
		return 0
	}
	return counter.Load()
}

func (s *Server) Requests(route string) []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, 0)
	for _, r := range s.requests {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) Routes() []string {
	routes := s.engine.Routes()
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.Method+" "+r.Path)
	}
	sort.Strings(out)
	return out
}

func defaultAnswer(req model.AskRequest) model.Answer {
	citations := make([]model.Citation, 0, len(req.DocIDs))
	for i, id := range req.DocIDs {
		citations = append(citations, model.Citation{PageNumber: i + 1, Confidence: 0.8, Text: "excerpt", DocID: id})
	}
	return model.Answer{
		Answer:             "Answer to: " + req.Question,
		Citations:          citations,
		ConfidenceScore:    0.9,
		SuggestedQuestions: []string{"Q1"},
		ProcessingTime:     1.2,
		AnswerType:         model.DefaultAnswerType,
	}
}
