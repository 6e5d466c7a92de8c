// Package testutil provides test helpers shared by the scrapekit packages.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Page is a canned response served by a Server.
type Page struct {
	Body        []byte
	ContentType string // omitted from the response when empty
	StatusCode  int
	Headers     map[string]string
}

// Server is a configurable httptest server. Pages are served byte for byte
// so tests control the exact encoding on the wire.
type Server struct {
	Server    *httptest.Server
	mu        sync.RWMutex
	pages     map[string]*Page
	delays    map[string]time.Duration
	redirects map[string]string
	hits      map[string]int
	lastReq   map[string]http.Header
}

// NewServer starts a new test server. Close it when done.
func NewServer() *Server {
	s := &Server{
		pages:     make(map[string]*Page),
		delays:    make(map[string]time.Duration),
		redirects: make(map[string]string),
		hits:      make(map[string]int),
		lastReq:   make(map[string]http.Header),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	s.mu.Lock()
	s.hits[path]++
	s.lastReq[path] = r.Header.Clone()
	delay := s.delays[path]
	redirect := s.redirects[path]
	page := s.pages[path]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if redirect != "" {
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}

	if page == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	for k, v := range page.Headers {
		w.Header().Set(k, v)
	}
	if page.ContentType != "" {
		w.Header().Set("Content-Type", page.ContentType)
	} else {
		// keep net/http from sniffing one
		w.Header()["Content-Type"] = nil
	}
	status := page.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(page.Body)
}

// AddPage serves content as UTF-8 HTML at path.
func (s *Server) AddPage(path, content string) {
	s.AddBytes(path, []byte(content), "text/html; charset=utf-8")
}

// AddBytes serves body at path with the given Content-Type.
func (s *Server) AddBytes(path string, body []byte, contentType string) {
	s.SetPage(path, &Page{Body: body, ContentType: contentType})
}

// SetPage registers a fully specified page.
func (s *Server) SetPage(path string, page *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = page
}

// SetDelay delays every response for path.
func (s *Server) SetDelay(path string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = delay
}

// SetRedirect answers requests for from with a 302 to to.
func (s *Server) SetRedirect(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[from] = to
}

// Hits returns how many requests path received.
func (s *Server) Hits(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[path]
}

// LastRequestHeaders returns the headers of the most recent request for
// path, or nil.
func (s *Server) LastRequestHeaders(path string) http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReq[path]
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.Server.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.Server.Close()
}
