package backendtest

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xxxsen/docqa/internal/model"
)

func (s *Server) registerRoutes(api *gin.RouterGroup) {
	api.Use(s.scripted())
	api.POST("/auth/signup", s.signup)
	api.POST("/auth/login", s.login)

	authGroup := api.Group("")
	authGroup.Use(s.auth())
	authGroup.GET("/auth/me", s.me)
	authGroup.POST("/upload", s.upload)
	authGroup.POST("/ask", s.ask)
	authGroup.GET("/documents", s.listDocuments)
	authGroup.DELETE("/documents/:id", s.deleteDocument)
	authGroup.POST("/compare", s.compare)
	authGroup.GET("/suggestions/:id", s.suggestions)
}

func (s *Server) signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"msg": "field required"}}})
		return
	}
	s.mu.Lock()
	_, exists := s.accounts[req.Email]
	if !exists {
		s.accounts[req.Email] = &account{
			user: model.User{
				ID:        "u-" + uuid.NewString()[:8],
				Email:     req.Email,
				FullName:  req.FullName,
				CreatedAt: model.Timestamp{Time: time.Now().UTC().Truncate(time.Second)},
				IsActive:  true,
			},
			password: req.Password,
		}
	}
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
		return
	}
	token, err := s.issueToken(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid body"})
		return
	}
	s.mu.Lock()
	acc := s.accounts[req.Email]
	s.mu.Unlock()
	if acc == nil || acc.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect email or password"})
		return
	}
	token, err := s.issueToken(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) me(c *gin.Context) {
	email := c.GetString(contextEmailKey)
	s.mu.Lock()
	acc := s.accounts[email]
	s.mu.Unlock()
	c.JSON(http.StatusOK, acc.user)
}

func (s *Server) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" && ext != ".txt" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Only PDF and TXT files are supported"})
		return
	}
	opened, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to open file"})
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to read file"})
		return
	}
	words := len(strings.Fields(string(data)))
	doc := model.Document{
		DocID:                uuid.NewString(),
		Filename:             file.Filename,
		UploadTime:           model.Timestamp{Time: time.Now().UTC()},
		TotalPages:           1 + len(data)/3000,
		EstimatedReadingTime: float64(1 + words/200),
		ComplexityScore:      0.4,
		Summary:              fmt.Sprintf("Summary of %s", file.Filename),
		KeyTopics:            []string{"alpha", "beta", "gamma"},
		TotalChunks:          1 + len(data)/1000,
		FileSize:             int64(len(data)),
	}
	s.AddDocument(doc)
	c.JSON(http.StatusOK, doc)
}

func (s *Server) ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid body"})
		return
	}
	for _, id := range req.DocIDs {
		if !s.hasDocument(id) {
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Document %s not found", id)})
			return
		}
	}
	c.JSON(http.StatusOK, s.AnswerFunc(req))
}

func (s *Server) listDocuments(c *gin.Context) {
	c.JSON(http.StatusOK, s.Documents())
}

func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	_, ok := s.documents[id]
	if ok {
		delete(s.documents, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Document not found"})
		return
	}
	c.JSON(http.StatusOK, model.DeleteResult{Message: "Document deleted successfully"})
}

func (s *Server) compare(c *gin.Context) {
	var req model.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid body"})
		return
	}
	names := make([]string, 0, len(req.DocIDs))
	for _, id := range req.DocIDs {
		s.mu.Lock()
		doc, ok := s.documents[id]
		s.mu.Unlock()
		if ok {
			names = append(names, doc.Filename)
		}
	}
	c.JSON(http.StatusOK, model.Comparison{
		Comparison: fmt.Sprintf("Comparing %s on %q", strings.Join(names, ", "), req.Question),
		Documents:  req.DocIDs,
	})
}

func (s *Server) suggestions(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	doc, ok := s.documents[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Document not found"})
		return
	}
	first := "this document"
	if len(doc.KeyTopics) > 0 {
		first = doc.KeyTopics[0]
	}
	c.JSON(http.StatusOK, model.SuggestionsResponse{Suggestions: []string{
		fmt.Sprintf("What are the main topics covered in %s?", doc.Filename),
		fmt.Sprintf("Can you summarize the key points about %s?", first),
		"What are the most important findings or conclusions?",
	}})
}

func (s *Server) hasDocument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.documents[id]
	return ok
}
