// Package controller holds the todo list state shown by the views and turns
// each user action into an immediate local change plus a deferred remote
// write.
//
// Every mutating method updates local state first and returns a Sync. The
// caller runs the Sync whenever it likes (a Bubble Tea command, or inline in
// the CLI) and hands the Result back to Apply. A Sync never reads or writes
// the Controller, so it is safe to run on another goroutine while the
// Controller keeps serving events on its own.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tada-sync/internal/model"
	"github.com/idilsaglam/tada-sync/internal/remote"
)

// Op names the action a Result belongs to.
type Op string

const (
	OpLoad    Op = "load"
	OpRefresh Op = "refresh"
	OpAdd     Op = "add"
	OpDelete  Op = "delete"
	OpToggle  Op = "toggle"
	OpClear   Op = "clear"
	OpEdit    Op = "edit"
	OpUndo    Op = "undo"
)

// Sync performs the remote side of a local change.
type Sync func(ctx context.Context) Result

// Result is what a Sync reports back.
type Result struct {
	Op  Op
	Gen uint64
	// User is the server's view after the operation, when it was fetched.
	User *model.User
	// Created is set when loading had to provision the user.
	Created bool
	// Task is the server's copy of a task the operation created.
	Task *model.Task
	Err  error
}

// Controller is not safe for concurrent use; drive it from one goroutine.
type Controller struct {
	store  remote.Store
	log    *log.Logger
	user   *model.User
	tasks  []model.Task
	input  string
	status string
	gen    uint64
	// last deleted task, for Undo
	undo *deleted
}

type deleted struct {
	index int
	task  model.Task
}

// New returns an empty controller. A nil logger discards output.
func New(store remote.Store, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{store: store, log: logger}
}

// Tasks returns a copy of the local list.
func (c *Controller) Tasks() []model.Task { return slices.Clone(c.tasks) }

func (c *Controller) Input() string     { return c.input }
func (c *Controller) SetInput(s string) { c.input = s }

// Status is the last message meant for the user (and screen readers).
func (c *Controller) Status() string { return c.status }

// Username is empty until a load succeeds.
func (c *Controller) Username() string {
	if c.user == nil {
		return ""
	}
	return c.user.Name
}

func (c *Controller) HasUser() bool { return c.user != nil }

// ItemsLeft renders the footer counter.
func (c *Controller) ItemsLeft() string { return model.ItemsLeft(c.tasks) }

// Load looks username up, creates it when the server does not know it, and
// fetches its tasks.
func (c *Controller) Load(username string) Sync {
	name := strings.TrimSpace(username)
	if name == "" {
		c.status = "Username is required"
		return nil
	}
	c.status = fmt.Sprintf("Loading tasks for %s…", name)
	c.undo = nil
	gen := c.bump()
	store := c.store
	return func(ctx context.Context) Result {
		u, created, err := provision(ctx, store, name)
		r := Result{Op: OpLoad, Gen: gen, Created: created, Err: err}
		if err == nil {
			r.User = &u
		}
		return r
	}
}

// Refresh re-fetches the current user's list.
func (c *Controller) Refresh() Sync {
	if !c.requireUser() {
		return nil
	}
	gen := c.bump()
	store, name := c.store, c.user.Name
	return func(ctx context.Context) Result {
		u, err := store.Lookup(ctx, name)
		r := Result{Op: OpRefresh, Gen: gen, Err: err}
		if err == nil {
			r.User = &u
		}
		return r
	}
}

// Add appends the pending input as a new task. Blank input is ignored.
func (c *Controller) Add() Sync {
	label := strings.TrimSpace(c.input)
	if label == "" {
		return nil
	}
	if !c.requireUser() {
		return nil
	}
	task := model.Task{Label: label}
	c.tasks = append(c.tasks, task)
	c.input = ""
	return c.mutation(OpAdd, func(ctx context.Context, s remote.Store, name string, all []model.Task) (*model.Task, error) {
		saved, err := s.Add(ctx, name, task, all)
		return &saved, err
	})
}

// Delete removes the task at index; the others keep their order.
func (c *Controller) Delete(index int) Sync {
	if !c.requireUser() || !c.inRange(index) {
		return nil
	}
	removed := c.tasks[index]
	c.tasks = slices.Delete(slices.Clone(c.tasks), index, index+1)
	c.undo = &deleted{index: index, task: removed}
	return c.mutation(OpDelete, func(ctx context.Context, s remote.Store, name string, remaining []model.Task) (*model.Task, error) {
		return nil, s.Delete(ctx, name, removed, remaining)
	})
}

// Undo puts the last deleted task back at its old position. The server
// treats it as a new task.
func (c *Controller) Undo() Sync {
	if !c.requireUser() {
		return nil
	}
	if c.undo == nil {
		c.status = "Nothing to undo"
		return nil
	}
	task := model.Task{Label: c.undo.task.Label, Done: c.undo.task.Done}
	index := min(c.undo.index, len(c.tasks))
	c.undo = nil
	c.tasks = slices.Insert(slices.Clone(c.tasks), index, task)
	return c.mutation(OpUndo, func(ctx context.Context, s remote.Store, name string, all []model.Task) (*model.Task, error) {
		saved, err := s.Add(ctx, name, task, all)
		return &saved, err
	})
}

// Toggle flips the done flag of the task at index.
func (c *Controller) Toggle(index int) Sync {
	if !c.requireUser() || !c.inRange(index) {
		return nil
	}
	c.tasks = slices.Clone(c.tasks)
	c.tasks[index].Done = !c.tasks[index].Done
	task := c.tasks[index]
	return c.mutation(OpToggle, func(ctx context.Context, s remote.Store, name string, all []model.Task) (*model.Task, error) {
		return nil, s.Update(ctx, name, task, all)
	})
}

// Edit renames the task at index. A blank label is rejected and an
// unchanged one is a no-op.
func (c *Controller) Edit(index int, label string) Sync {
	if !c.requireUser() || !c.inRange(index) {
		return nil
	}
	label = strings.TrimSpace(label)
	if label == "" {
		c.status = "Label cannot be empty"
		return nil
	}
	if label == c.tasks[index].Label {
		return nil
	}
	c.tasks = slices.Clone(c.tasks)
	c.tasks[index].Label = label
	task := c.tasks[index]
	return c.mutation(OpEdit, func(ctx context.Context, s remote.Store, name string, all []model.Task) (*model.Task, error) {
		return nil, s.Update(ctx, name, task, all)
	})
}

// Clear empties the list.
func (c *Controller) Clear() Sync {
	if !c.requireUser() {
		return nil
	}
	removed := c.tasks
	c.tasks = []model.Task{}
	c.undo = nil
	return c.mutation(OpClear, func(ctx context.Context, s remote.Store, name string, _ []model.Task) (*model.Task, error) {
		return nil, s.Clear(ctx, name, removed)
	})
}

// Do runs s inline and applies its result. A nil Sync is a no-op.
func (c *Controller) Do(ctx context.Context, s Sync) Result {
	if s == nil {
		return Result{}
	}
	r := s(ctx)
	c.Apply(r)
	return r
}

// Apply folds a Sync result back into local state. Failures never undo the
// local change; they are logged and reported through Status.
func (c *Controller) Apply(r Result) {
	if r.Err != nil {
		c.fail(r)
		return
	}

	// Server state only replaces the list when nothing changed locally
	// after the Sync was issued.
	fresh := r.User != nil && r.Gen == c.gen

	switch r.Op {
	case OpLoad, OpRefresh:
		if r.User == nil {
			return
		}
		c.user = &model.User{ID: r.User.ID, Name: r.User.Name}
		if fresh {
			c.tasks = slices.Clone(r.User.Todos)
		}
		switch {
		case r.Created:
			c.status = fmt.Sprintf("Created user %s", r.User.Name)
		case r.Op == OpRefresh:
			c.status = "List refreshed"
		default:
			c.status = fmt.Sprintf("Loaded %d tasks for %s", len(r.User.Todos), r.User.Name)
		}
		c.log.Info("tasks loaded", "op", r.Op, "user", r.User.Name, "count", len(r.User.Todos), "created", r.Created)
		return
	}

	if r.Task != nil {
		c.assignID(*r.Task)
	}
	if fresh {
		c.tasks = slices.Clone(r.User.Todos)
	}
	c.status = successMessage(r.Op)
	c.log.Debug("sync ok", "op", r.Op, "reconciled", fresh)
}

func (c *Controller) fail(r Result) {
	if errors.Is(r.Err, remote.ErrNoID) {
		c.log.Warn("skipped remote write", "op", r.Op, "err", r.Err)
		c.status = "Changed locally only: the task was not saved yet"
		return
	}
	c.log.Error("sync failed", "op", r.Op, "err", r.Err)
	c.status = fmt.Sprintf("Could not %s: %v", failureVerb(r.Op), r.Err)
}

// assignID gives the server id to the first local copy of saved that is
// still waiting for one.
func (c *Controller) assignID(saved model.Task) {
	if saved.ID == 0 {
		return
	}
	for i, t := range c.tasks {
		if t.ID == 0 && t.Label == saved.Label {
			c.tasks = slices.Clone(c.tasks)
			c.tasks[i].ID = saved.ID
			return
		}
	}
}

func (c *Controller) mutation(op Op, write func(context.Context, remote.Store, string, []model.Task) (*model.Task, error)) Sync {
	gen := c.bump()
	store, name, all := c.store, c.user.Name, c.Tasks()
	return func(ctx context.Context) Result {
		r := Result{Op: op, Gen: gen}
		if r.Task, r.Err = write(ctx, store, name, all); r.Err != nil {
			return r
		}
		if store.Reconciles() {
			u, err := store.Lookup(ctx, name)
			if err != nil {
				r.Err = fmt.Errorf("refetch: %w", err)
				return r
			}
			r.User = &u
		}
		return r
	}
}

func (c *Controller) bump() uint64 {
	c.gen++
	return c.gen
}

func (c *Controller) requireUser() bool {
	if c.user == nil {
		c.status = "No user selected: enter a username first"
		return false
	}
	return true
}

func (c *Controller) inRange(index int) bool {
	if index < 0 || index >= len(c.tasks) {
		c.status = fmt.Sprintf("No task at position %d", index+1)
		return false
	}
	return true
}

// provision creates the user on a 404 and fetches again.
func provision(ctx context.Context, store remote.Store, name string) (model.User, bool, error) {
	u, err := store.Lookup(ctx, name)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, remote.ErrNotFound) {
		return model.User{}, false, fmt.Errorf("lookup %s: %w", name, err)
	}
	if err := store.CreateUser(ctx, name); err != nil {
		return model.User{}, false, fmt.Errorf("create user %s: %w", name, err)
	}
	u, err = store.Lookup(ctx, name)
	if err != nil {
		return model.User{}, true, fmt.Errorf("lookup %s: %w", name, err)
	}
	return u, true, nil
}

func successMessage(op Op) string {
	switch op {
	case OpAdd:
		return "Task added"
	case OpDelete:
		return "Task deleted"
	case OpToggle:
		return "Task updated"
	case OpClear:
		return "All tasks cleared"
	case OpEdit:
		return "Task renamed"
	case OpUndo:
		return "Task restored"
	}
	return string(op) + " done"
}

func failureVerb(op Op) string {
	switch op {
	case OpLoad:
		return "load tasks"
	case OpRefresh:
		return "refresh tasks"
	case OpAdd:
		return "save the new task"
	case OpDelete:
		return "delete the task"
	case OpToggle:
		return "update the task"
	case OpClear:
		return "clear the list"
	case OpEdit:
		return "rename the task"
	case OpUndo:
		return "restore the task"
	}
	return string(op)
}
