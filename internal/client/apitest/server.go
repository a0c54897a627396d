// Package apitest runs an in-process fake of the market list backend for
// tests. It implements the REST contract the client consumes, scopes list
// items by the bearer's user_id and lets tests inject faults: error
// statuses, dropped connections and held (in-flight) requests.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Item is a stored list row.
type Item struct {
	ID     int64  `json:"item_id"`
	Name   string `json:"item_name"`
	Status string `json:"item_status"`
	UserID int64  `json:"-"`
}

// Request is a recorded inbound request.
type Request struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

type user struct {
	id       int64
	password string
}

type fault struct {
	method string
	path   string
	status int
	detail string
	drop   bool
	once   bool

	arrived chan struct{}
	gate    chan struct{}
}

type Server struct {
	*httptest.Server

	Secret   []byte
	TokenTTL time.Duration

	mu         sync.Mutex
	users      map[string]user
	items      []Item
	nextUserID int64
	nextItemID int64
	requests   []Request
	faults     []*fault
}

// NewServer starts a fake backend; it is closed via t.Cleanup by callers
// or explicitly with Close.
func NewServer() *Server {
	s := &Server{
		Secret:   []byte("apitest-secret"),
		TokenTTL: time.Hour,
		users:    make(map[string]user),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.inject)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the market list API"})
	})
	r.Post("/users/", s.handleCreateUser)
	r.Post("/register/", s.handleRegister)
	r.Post("/login/", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/list/", s.handleList)
		r.Post("/list/", s.handleCreateItem)
		r.Put("/list/{itemID}", s.handleUpdateItem)
		r.Delete("/list/{itemID}", s.handleDeleteItem)
	})
	return r
}

// AddUser registers a user directly and returns its id.
func (s *Server) AddUser(username, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password)
}

func (s *Server) addUserLocked(username, password string) int64 {
	s.nextUserID++
	s.users[username] = user{id: s.nextUserID, password: password}
	return s.nextUserID
}

// Token mints a valid token for userID using TokenTTL.
func (s *Server) Token(userID int64) string {
	tok, err := MintToken(s.Secret, userID, time.Now().Add(s.TokenTTL))
	if err != nil {
		panic(err)
	}
	return tok
}

// SeedItem stores an item owned by userID.
func (s *Server) SeedItem(userID int64, name, status string) Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextItemID++
	it := Item{ID: s.nextItemID, Name: name, Status: status, UserID: userID}
	s.items = append(s.items, it)
	return it
}

// Items returns the items owned by userID in insertion order.
func (s *Server) Items(userID int64) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, it := range s.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests counts received requests with the given method and path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// FailNext answers the next matching request with status and detail.
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.addFault(&fault{method: method, path: path, status: status, detail: detail, once: true})
}

// Drop closes the connection without a response for every matching request
// until Reset is called.
func (s *Server) Drop(method, path string) {
	s.addFault(&fault{method: method, path: path, drop: true})
}

// Hold parks the next matching request before it is handled. arrived is
// closed once the request is parked; calling release lets it proceed.
func (s *Server) Hold(method, path string) (arrived <-chan struct{}, release func()) {
	f := &fault{method: method, path: path, once: true, arrived: make(chan struct{}), gate: make(chan struct{})}
	s.addFault(f)
	var once sync.Once
	return f.arrived, func() { once.Do(func() { close(f.gate) }) }
}

// Reset removes all pending faults.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

func (s *Server) addFault(f *fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, f)
}

func (s *Server) takeFault(method, path string) *fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if f.method != method || f.path != path {
			continue
		}
		if f.once {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
		}
		return f
	}
	return nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := s.takeFault(r.Method, r.URL.Path)
		switch {
		case f == nil:
			next.ServeHTTP(w, r)
		case f.gate != nil:
			close(f.arrived)
			<-f.gate
			next.ServeHTTP(w, r)
		case f.drop:
			hj, ok := w.(http.Hijacker)
			if !ok {
				writeDetail(w, http.StatusInternalServerError, "hijacking not supported")
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		default:
			writeDetail(w, f.status, f.detail)
		}
	})
}

type ctxKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		userID, err := parseToken(s.Secret, raw)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r, userID)))
	})
}

type credentials struct {
	Username     string `json:"username"`
	UserPassword string `json:"userpassword"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Username == "" || c.UserPassword == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and userpassword are required")
		return c, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[c.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return c, false
	}
	s.addUserLocked(c.Username, c.UserPassword)
	return c, true
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if c, ok := s.signUp(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]string{"username": c.Username})
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if c, ok := s.signUp(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully", "username": c.Username})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	u, ok := s.users[c.Username]
	s.mu.Unlock()
	if !ok || u.password != c.UserPassword {
		writeDetail(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": s.Token(u.id), "token_type": "bearer"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items := s.Items(userFrom(r))
	if items == nil {
		items = []Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

type itemBody struct {
	ItemName   string `json:"item_name"`
	ItemStatus string `json:"item_status"`
	UserID     int64  `json:"user_id"`
}

func decodeItem(w http.ResponseWriter, r *http.Request) (itemBody, bool) {
	var b itemBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil || b.ItemName == "" || b.ItemStatus == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "item_name and item_status are required")
		return b, false
	}
	if b.UserID != userFrom(r) {
		writeDetail(w, http.StatusForbidden, "user_id does not match token")
		return b, false
	}
	return b, true
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	b, ok := decodeItem(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.SeedItem(b.UserID, b.ItemName, b.ItemStatus))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	b, ok := decodeItem(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid item_id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == b.UserID {
			s.items[i].Name = b.ItemName
			s.items[i].Status = b.ItemStatus
			writeJSON(w, http.StatusOK, s.items[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Item not found")
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid item_id")
		return
	}
	userID := userFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			writeDetail(w, http.StatusOK, "Item deleted successfully")
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Item not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func contextWithUser(r *http.Request, userID int64) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, userID)
}

func userFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}
