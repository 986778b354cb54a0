// Package fakebackend is an in-process stand-in for the Guardian API used by package tests.
package fakebackend

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const APIPrefix = "/api/v1"

// Hit is one request received by the fake backend.
type Hit struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Body          map[string]interface{}
}

// Server wraps a gin engine behind httptest.
type Server struct {
	*httptest.Server
	engine *gin.Engine
	api    *gin.RouterGroup

	mu   sync.Mutex
	hits []Hit
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{engine: gin.New()}
	s.engine.Use(s.record)
	s.api = s.engine.Group(APIPrefix)
	s.Server = httptest.NewServer(s.engine)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is what the executor should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + APIPrefix
}

// Handle registers a handler relative to the API prefix.
func (s *Server) Handle(method, path string, h ...gin.HandlerFunc) {
	s.api.Handle(method, path, h...)
}

// Hits returns a copy of every recorded request.
func (s *Server) Hits() []Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Hit, len(s.hits))
	copy(out, s.hits)
	return out
}

// Count returns how many requests matched method and path (path without the API prefix).
func (s *Server) Count(method, path string) int {
	n := 0
	for _, h := range s.Hits() {
		if h.Method == method && h.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent hit for method and path.
func (s *Server) Last(method, path string) (Hit, bool) {
	hits := s.Hits()
	for i := len(hits) - 1; i >= 0; i-- {
		if hits[i].Method == method && hits[i].Path == path {
			return hits[i], true
		}
	}
	return Hit{}, false
}

func (s *Server) record(c *gin.Context) {
	raw, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(strings.NewReader(string(raw)))

	h := Hit{
		Method:        c.Request.Method,
		Path:          strings.TrimPrefix(c.Request.URL.Path, APIPrefix),
		Query:         c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &h.Body)
	}
	s.mu.Lock()
	s.hits = append(s.hits, h)
	s.mu.Unlock()
	c.Next()
}

// OK writes a success envelope around data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "ok",
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Fail writes success=false with the given status.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RequireBearer aborts with 401 unless the request carries "Bearer <token>".
func RequireBearer(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+token {
			Fail(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}
		c.Next()
	}
}
