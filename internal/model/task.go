package model

import "fmt"

// Task is the domain model for a todo entry.
// ID is assigned by the remote store; zero means it has none yet.
type Task struct {
	ID    int    `json:"id,omitempty"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// User owns a list of tasks on the remote store.
type User struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name"`
	Todos []Task `json:"todos"`
}

// Stats counts done and pending tasks.
func Stats(tasks []Task) (done, pending int) {
	for _, t := range tasks {
		if t.Done {
			done++
		} else {
			pending++
		}
	}
	return
}

// ItemsLeft renders the footer counter, e.g. "1 item left".
func ItemsLeft(tasks []Task) string {
	_, pending := Stats(tasks)
	if pending == 1 {
		return "1 item left"
	}
	return fmt.Sprintf("%d items left", pending)
}
