package playground

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestUsersDialectLifecycle(t *testing.T) {
	s := newTestServer(t)

	if w := serve(s, http.MethodGet, "/todo/users/alice", ""); w.Code != http.StatusNotFound {
		t.Fatalf("lookup missing user: got %d, want 404", w.Code)
	}
	if w := serve(s, http.MethodPost, "/todo/users/alice", ""); w.Code != http.StatusCreated {
		t.Fatalf("create user: got %d, body=%s", w.Code, w.Body.String())
	}
	if w := serve(s, http.MethodPost, "/todo/users/alice", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("create duplicate: got %d, want 400", w.Code)
	}

	w := serve(s, http.MethodPost, "/todo/todos/alice", `{"label":"Buy milk","is_done":false}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create todo: got %d, body=%s", w.Code, w.Body.String())
	}
	var created task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal todo: %v", err)
	}
	if created.ID == 0 || created.Label != "Buy milk" {
		t.Fatalf("created todo: got %+v", created)
	}

	path := "/todo/todos/" + strconv.Itoa(created.ID)
	if w := serve(s, http.MethodPut, path, `{"label":"Buy milk","is_done":true}`); w.Code != http.StatusOK {
		t.Fatalf("update todo: got %d", w.Code)
	}

	w = serve(s, http.MethodGet, "/todo/users/alice", "")
	var u user
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	if u.Name != "alice" || len(u.Todos) != 1 || !u.Todos[0].IsDone {
		t.Fatalf("user after update: got %+v", u)
	}

	if w := serve(s, http.MethodDelete, path, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete todo: got %d, want 204", w.Code)
	}
	if w := serve(s, http.MethodDelete, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("delete twice: got %d, want 404", w.Code)
	}
}

func TestCreateTodoValidation(t *testing.T) {
	s := newTestServer(t)
	serve(s, http.MethodPost, "/todo/users/bob", "")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"empty label", "/todo/todos/bob", `{"label":"   "}`, http.StatusUnprocessableEntity},
		{"bad json", "/todo/todos/bob", `{`, http.StatusUnprocessableEntity},
		{"unknown user", "/todo/todos/nobody", `{"label":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(s, http.MethodPost, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestListDialect(t *testing.T) {
	s := newTestServer(t)

	if w := serve(s, http.MethodGet, "/todo/user/carol", ""); w.Code != http.StatusNotFound {
		t.Fatalf("get missing list: got %d, want 404", w.Code)
	}
	if w := serve(s, http.MethodPut, "/todo/user/carol", `[]`); w.Code != http.StatusNotFound {
		t.Fatalf("put missing list: got %d, want 404", w.Code)
	}
	if w := serve(s, http.MethodPost, "/todo/user/carol", `[]`); w.Code != http.StatusCreated {
		t.Fatalf("create list: got %d", w.Code)
	}
	body := `[{"label":"a","done":false},{"label":"b","done":true}]`
	if w := serve(s, http.MethodPut, "/todo/user/carol", body); w.Code != http.StatusOK {
		t.Fatalf("replace list: got %d, body=%s", w.Code, w.Body.String())
	}

	w := serve(s, http.MethodGet, "/todo/user/carol", "")
	var got []listTask
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(got) != 2 || got[0].Label != "a" || !got[1].Done {
		t.Fatalf("list: got %+v", got)
	}

	// Both dialects share storage.
	w = serve(s, http.MethodGet, "/todo/users/carol", "")
	if w.Code != http.StatusOK {
		t.Fatalf("users view of list: got %d", w.Code)
	}
}

func TestCallsAreRecorded(t *testing.T) {
	s := newTestServer(t)
	serve(s, http.MethodGet, "/todo/users/dave", "")
	serve(s, http.MethodPost, "/todo/users/dave", "")

	got := s.Calls()
	want := []string{"GET /todo/users/dave", "POST /todo/users/dave"}
	if len(got) != len(want) {
		t.Fatalf("Calls: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Calls[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDataFilePersistence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "playground.json")

	s := newTestServer(t, WithDataFile(file))
	serve(s, http.MethodPost, "/todo/users/erin", "")
	serve(s, http.MethodPost, "/todo/todos/erin", `{"label":"persist me"}`)

	restored := newTestServer(t, WithDataFile(file))
	w := serve(restored, http.MethodGet, "/todo/users/erin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("restored lookup: got %d", w.Code)
	}
	var u user
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(u.Todos) != 1 || u.Todos[0].Label != "persist me" {
		t.Fatalf("restored user: got %+v", u)
	}

	// Ids keep increasing after a restore.
	w = serve(restored, http.MethodPost, "/todo/todos/erin", `{"label":"next"}`)
	var next task
	_ = json.Unmarshal(w.Body.Bytes(), &next)
	if next.ID <= u.Todos[0].ID {
		t.Errorf("id after restore: got %d, want > %d", next.ID, u.Todos[0].ID)
	}
}
