package backendtest

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const contextEmailKey = "email"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-Id", reqID)
		c.Set("request_id", reqID)
		c.Next()
	}
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c)
			return
		}
		claims, err := parseToken(parts[1], []byte(jwtSecret))
		if err != nil {
			unauthorized(c)
			return
		}
		s.mu.Lock()
		_, revoked := s.revoked[parts[1]]
		_, known := s.accounts[claims.Subject]
		s.mu.Unlock()
		if revoked || !known {
			unauthorized(c)
			return
		}
		c.Set(contextEmailKey, claims.Subject)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(401, gin.H{"detail": "Could not validate credentials"})
}

// scripted records the call and applies any queued failure or gate.
func (s *Server) scripted() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()
		body, _ := c.GetRawData()
		c.Request.Body = newBody(body)

		s.mu.Lock()
		counter := s.calls[route]
		if counter == nil {
			counter = newCounter()
			s.calls[route] = counter
		}
		s.requests = append(s.requests, RecordedRequest{
			Route:     route,
			RequestID: c.GetHeader("X-Request-Id"),
			Auth:      c.GetHeader("Authorization"),
			Body:      body,
		})
		gate := s.gates[route]
		var failure *Failure
		if queued := s.failures[route]; len(queued) > 0 {
			f := queued[0]
			failure = &f
			s.failures[route] = queued[1:]
		}
		s.mu.Unlock()
		counter.Add(1)

		if gate != nil {
			select {
			case <-gate:
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if failure != nil {
			if failure.Status == 401 {
				unauthorized(c)
				return
			}
			c.AbortWithStatusJSON(failure.Status, gin.H{"detail": failure.Detail})
			return
		}
		c.Next()
	}
}
