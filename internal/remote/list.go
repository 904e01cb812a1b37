package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/idilsaglam/tada-sync/internal/model"
)

type listTask struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// ListStore keeps one list per name and rewrites it on every change.
// Tasks have no ids; identity is position.
type ListStore struct {
	c *Client
}

func NewListStore(c *Client) *ListStore { return &ListStore{c: c} }

func listPath(username string) string { return "/todo/user/" + url.PathEscape(username) }

func (s *ListStore) Lookup(ctx context.Context, username string) (model.User, error) {
	var wire []listTask
	if _, err := s.c.do(ctx, http.MethodGet, listPath(username), nil, &wire); err != nil {
		return model.User{}, err
	}
	tasks := make([]model.Task, 0, len(wire))
	for _, t := range wire {
		tasks = append(tasks, model.Task{Label: t.Label, Done: t.Done})
	}
	return model.User{Name: username, Todos: tasks}, nil
}

func (s *ListStore) CreateUser(ctx context.Context, username string) error {
	_, err := s.c.do(ctx, http.MethodPost, listPath(username), []listTask{}, nil)
	return err
}

func (s *ListStore) Add(ctx context.Context, username string, task model.Task, all []model.Task) (model.Task, error) {
	return task, s.replace(ctx, username, all)
}

func (s *ListStore) Update(ctx context.Context, username string, _ model.Task, all []model.Task) error {
	return s.replace(ctx, username, all)
}

func (s *ListStore) Delete(ctx context.Context, username string, _ model.Task, remaining []model.Task) error {
	return s.replace(ctx, username, remaining)
}

func (s *ListStore) Clear(ctx context.Context, username string, _ []model.Task) error {
	return s.replace(ctx, username, nil)
}

func (s *ListStore) Reconciles() bool { return false }

func (s *ListStore) replace(ctx context.Context, username string, tasks []model.Task) error {
	wire := make([]listTask, 0, len(tasks))
	for _, t := range tasks {
		wire = append(wire, listTask{Label: t.Label, Done: t.Done})
	}
	_, err := s.c.do(ctx, http.MethodPut, listPath(username), wire, nil)
	return err
}
