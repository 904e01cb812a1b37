package playground

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type listTask struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

type taskBody struct {
	Label  string `json:"label"`
	IsDone bool   `json:"is_done"`
}

func detail(c *gin.Context, code int, format string, args ...any) {
	c.JSON(code, gin.H{"detail": fmt.Sprintf(format, args...)})
}

func (s *Server) getUser(c *gin.Context) {
	name := c.Param("username")
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[name]
	if !ok {
		detail(c, http.StatusNotFound, "User %s doesn't exist.", name)
		return
	}
	out := user{ID: u.ID, Name: u.Name, Todos: append([]task{}, u.Todos...)}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createUser(c *gin.Context) {
	name := c.Param("username")
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[name]; ok {
		detail(c, http.StatusBadRequest, "User already exists.")
		return
	}
	u := &user{ID: s.newID(), Name: name, Todos: []task{}}
	s.users[name] = u
	if err := s.persist(); err != nil {
		detail(c, http.StatusInternalServerError, "persist: %v", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "name": u.Name})
}

func (s *Server) createTodo(c *gin.Context) {
	name := c.Param("username")
	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "invalid body: %v", err)
		return
	}
	body.Label = strings.TrimSpace(body.Label)
	if body.Label == "" {
		detail(c, http.StatusUnprocessableEntity, "label is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		detail(c, http.StatusNotFound, "User %s doesn't exist.", name)
		return
	}
	t := task{ID: s.newID(), Label: body.Label, IsDone: body.IsDone}
	u.Todos = append(u.Todos, t)
	if err := s.persist(); err != nil {
		detail(c, http.StatusInternalServerError, "persist: %v", err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTodo(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "id must be an integer")
		return
	}
	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "invalid body: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, i := s.findTodo(id)
	if u == nil {
		detail(c, http.StatusNotFound, "Todo #%d doesn't exist.", id)
		return
	}
	if label := strings.TrimSpace(body.Label); label != "" {
		u.Todos[i].Label = label
	}
	u.Todos[i].IsDone = body.IsDone
	if err := s.persist(); err != nil {
		detail(c, http.StatusInternalServerError, "persist: %v", err)
		return
	}
	c.JSON(http.StatusOK, u.Todos[i])
}

func (s *Server) deleteTodo(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "id must be an integer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, i := s.findTodo(id)
	if u == nil {
		detail(c, http.StatusNotFound, "Todo #%d doesn't exist.", id)
		return
	}
	u.Todos = append(u.Todos[:i], u.Todos[i+1:]...)
	if err := s.persist(); err != nil {
		detail(c, http.StatusInternalServerError, "persist: %v", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Whole-list dialect. Tasks are addressed by position only.

func (s *Server) getList(c *gin.Context) {
	name := c.Param("username")
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"msg": "This user does not exist, call POST first to create the list for " + name})
		return
	}
	out := make([]listTask, 0, len(u.Todos))
	for _, t := range u.Todos {
		out = append(out, listTask{Label: t.Label, Done: t.IsDone})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createList(c *gin.Context) {
	name := c.Param("username")
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[name]; ok {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "The user already exists"})
		return
	}
	s.users[name] = &user{ID: s.newID(), Name: name, Todos: []task{}}
	if err := s.persist(); err != nil {
		detail(c, http.StatusInternalServerError, "persist: %v", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "The user was successfully created"})
}

func (s *Server) replaceList(c *gin.Context) {
	name := c.Param("username")
	var body []listTask
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "body must be a list of {label, done}"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"msg": "This user does not exist, call POST first to create the list for " + name})
		return
	}
	todos := make([]task, 0, len(body))
	for _, t := range body {
		todos = append(todos, task{ID: s.newID(), Label: t.Label, IsDone: t.Done})
	}
	u.Todos = todos
	if err := s.persist(); err != nil {
		detail(c, http.StatusInternalServerError, "persist: %v", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "A list with " + strconv.Itoa(len(todos)) + " todos was successfully saved"})
}
