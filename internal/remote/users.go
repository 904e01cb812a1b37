package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/idilsaglam/tada-sync/internal/model"
)

type apiTask struct {
	ID     int    `json:"id,omitempty"`
	Label  string `json:"label"`
	IsDone bool   `json:"is_done"`
}

type apiUser struct {
	ID    int       `json:"id"`
	Name  string    `json:"name"`
	Todos []apiTask `json:"todos"`
}

// UserStore uses per-user records and per-task create/update/delete.
type UserStore struct {
	c *Client
}

func NewUserStore(c *Client) *UserStore { return &UserStore{c: c} }

func userPath(username string) string  { return "/todo/users/" + url.PathEscape(username) }
func todosPath(username string) string { return "/todo/todos/" + url.PathEscape(username) }
func todoPath(id int) string           { return "/todo/todos/" + strconv.Itoa(id) }

func (s *UserStore) Lookup(ctx context.Context, username string) (model.User, error) {
	var wire apiUser
	if _, err := s.c.do(ctx, http.MethodGet, userPath(username), nil, &wire); err != nil {
		return model.User{}, err
	}
	u := model.User{ID: wire.ID, Name: wire.Name, Todos: make([]model.Task, 0, len(wire.Todos))}
	if u.Name == "" {
		u.Name = username
	}
	for _, t := range wire.Todos {
		u.Todos = append(u.Todos, model.Task{ID: t.ID, Label: t.Label, Done: t.IsDone})
	}
	return u, nil
}

func (s *UserStore) CreateUser(ctx context.Context, username string) error {
	_, err := s.c.do(ctx, http.MethodPost, userPath(username), nil, nil)
	return err
}

func (s *UserStore) Add(ctx context.Context, username string, task model.Task, _ []model.Task) (model.Task, error) {
	var created apiTask
	if _, err := s.c.do(ctx, http.MethodPost, todosPath(username), apiTask{Label: task.Label, IsDone: task.Done}, &created); err != nil {
		return task, err
	}
	task.ID = created.ID
	return task, nil
}

func (s *UserStore) Update(ctx context.Context, _ string, task model.Task, _ []model.Task) error {
	if task.ID == 0 {
		return ErrNoID
	}
	_, err := s.c.do(ctx, http.MethodPut, todoPath(task.ID), apiTask{Label: task.Label, IsDone: task.Done}, nil)
	return err
}

func (s *UserStore) Delete(ctx context.Context, _ string, task model.Task, _ []model.Task) error {
	if task.ID == 0 {
		return ErrNoID
	}
	return s.deleteTask(ctx, task.ID)
}

// Clear deletes every removed task that has an id.
func (s *UserStore) Clear(ctx context.Context, _ string, removed []model.Task) error {
	var errs []error
	for _, t := range removed {
		if t.ID == 0 {
			continue
		}
		if err := s.deleteTask(ctx, t.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *UserStore) Reconciles() bool { return true }

func (s *UserStore) deleteTask(ctx context.Context, id int) error {
	code, err := s.c.do(ctx, http.MethodDelete, todoPath(id), nil, nil)
	if err != nil {
		return err
	}
	if code != http.StatusNoContent {
		return fmt.Errorf("delete todo %d: %w", id, &StatusError{
			Method: http.MethodDelete,
			URL:    s.c.baseURL + todoPath(id),
			Code:   code,
		})
	}
	return nil
}
