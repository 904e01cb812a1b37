// Package playground is a local stand-in for the hosted todo API. It serves
// both the per-user dialect and the older whole-list dialect from one
// in-memory store, optionally snapshotted to a JSON file.
package playground

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/idilsaglam/tada-sync/internal/store/jsonstore"
)

type task struct {
	ID     int    `json:"id"`
	Label  string `json:"label"`
	IsDone bool   `json:"is_done"`
}

type user struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Todos []task `json:"todos"`
}

type snapshot struct {
	NextID int    `json:"next_id"`
	Users  []user `json:"users"`
}

// Server holds the playground state and its gin engine.
type Server struct {
	mu       sync.Mutex
	users    map[string]*user
	nextID   int
	calls    []string
	dataFile string
	log      *log.Logger
	engine   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithDataFile loads state from path at startup and saves after each change.
func WithDataFile(path string) Option {
	return func(s *Server) { s.dataFile = path }
}

// WithLogger logs every request at info level.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds a server, restoring the snapshot when a data file is set.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		users:  map[string]*user{},
		nextID: 1,
		log:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dataFile != "" {
		var snap snapshot
		found, err := jsonstore.Load(s.dataFile, &snap)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", s.dataFile, err)
		}
		if found {
			s.restore(snap)
			s.log.Info("restored playground data", "file", s.dataFile, "users", len(s.users))
		}
	}
	s.engine = s.routes()
	return s, nil
}

// Handler exposes the gin engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Calls returns "METHOD path" for every request served so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("playground listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.record)

	todo := r.Group("/todo")
	{
		todo.GET("/users/:username", s.getUser)
		todo.POST("/users/:username", s.createUser)
		todo.POST("/todos/:username", s.createTodo)
		todo.PUT("/todos/:id", s.updateTodo)
		todo.DELETE("/todos/:id", s.deleteTodo)

		todo.GET("/user/:username", s.getList)
		todo.POST("/user/:username", s.createList)
		todo.PUT("/user/:username", s.replaceList)
	}
	return r
}

func (s *Server) record(c *gin.Context) {
	start := time.Now()
	s.mu.Lock()
	s.calls = append(s.calls, c.Request.Method+" "+c.Request.URL.Path)
	s.mu.Unlock()

	c.Next()

	s.log.Info("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"elapsed", time.Since(start),
	)
}

// persist must be called with mu held.
func (s *Server) persist() error {
	if s.dataFile == "" {
		return nil
	}
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	snap := snapshot{NextID: s.nextID, Users: make([]user, 0, len(names))}
	for _, name := range names {
		snap.Users = append(snap.Users, *s.users[name])
	}
	if err := jsonstore.Save(s.dataFile, snap); err != nil {
		s.log.Error("persist failed", "file", s.dataFile, "err", err)
		return err
	}
	return nil
}

func (s *Server) restore(snap snapshot) {
	for i := range snap.Users {
		u := snap.Users[i]
		s.users[u.Name] = &u
	}
	if snap.NextID > s.nextID {
		s.nextID = snap.NextID
	}
}

// newID must be called with mu held.
func (s *Server) newID() int {
	id := s.nextID
	s.nextID++
	return id
}

// findTodo must be called with mu held.
func (s *Server) findTodo(id int) (*user, int) {
	for _, u := range s.users {
		for i, t := range u.Todos {
			if t.ID == id {
				return u, i
			}
		}
	}
	return nil, -1
}
