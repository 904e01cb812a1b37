package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/idilsaglam/tada-sync/internal/model"
)

// API dialects.
const (
	ModeUsers = "users" // per-user records, per-task endpoints
	ModeList  = "list"  // one list per name, replaced wholesale
)

// ErrNoID is returned when a per-task endpoint needs an id the server has
// not assigned yet.
var ErrNoID = errors.New("task has no server id yet")

// Store is the remote side of the todo list. Mutating calls receive both the
// task concerned and the full list after the local change, so each dialect
// can send whichever it needs.
type Store interface {
	// Lookup returns the user and their tasks, or an error matching
	// ErrNotFound when the user does not exist.
	Lookup(ctx context.Context, username string) (model.User, error)
	CreateUser(ctx context.Context, username string) error
	// Add returns the task as the server stored it, with its id when the
	// dialect assigns one.
	Add(ctx context.Context, username string, task model.Task, all []model.Task) (model.Task, error)
	Update(ctx context.Context, username string, task model.Task, all []model.Task) error
	Delete(ctx context.Context, username string, task model.Task, remaining []model.Task) error
	Clear(ctx context.Context, username string, removed []model.Task) error
	// Reconciles reports whether the list should be re-fetched after a
	// mutation to pick up server state such as ids.
	Reconciles() bool
}

// New returns the Store for mode.
func New(mode string, c *Client) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeUsers:
		return NewUserStore(c), nil
	case ModeList:
		return NewListStore(c), nil
	}
	return nil, fmt.Errorf("unknown api mode %q (want %q or %q)", mode, ModeUsers, ModeList)
}
