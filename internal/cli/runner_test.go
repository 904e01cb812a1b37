package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/idilsaglam/tada-sync/internal/config"
	"github.com/idilsaglam/tada-sync/internal/model"
	"github.com/idilsaglam/tada-sync/internal/playground"
	"github.com/idilsaglam/tada-sync/internal/profile"
	"github.com/idilsaglam/tada-sync/internal/ui"
)

type harness struct {
	opt    Options
	pg     *playground.Server
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T, mode string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("TADA_HOME", filepath.Join(t.TempDir(), ".tada"))
	t.Setenv(profile.EnvUser, "")

	pg, err := playground.New()
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(pg.Handler())
	t.Cleanup(ts.Close)

	h := &harness{pg: pg, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	origOut, origErr := ui.Out, ui.Err
	ui.Out, ui.Err = h.out, h.errOut
	ui.SetTheme("mono")
	t.Cleanup(func() {
		ui.Out, ui.Err = origOut, origErr
		ui.SetTheme("classic")
	})

	h.opt = Options{Config: &config.Config{
		BaseURL:        ts.URL,
		Username:       "alice",
		Mode:           mode,
		TimeoutSeconds: 5,
	}}
	return h
}

func (h *harness) run(t *testing.T, args ...string) int {
	t.Helper()
	h.out.Reset()
	h.errOut.Reset()
	return Run(context.Background(), args, h.opt)
}

func TestAddListRemove(t *testing.T) {
	for _, mode := range []string{"users", "list"} {
		t.Run(mode, func(t *testing.T) {
			h := newHarness(t, mode)

			if code := h.run(t, "add", "Buy", "milk"); code != 0 {
				t.Fatalf("add: exit %d, stderr=%s", code, h.errOut)
			}
			if !strings.Contains(h.out.String(), "added · 1 item left") {
				t.Errorf("add output: %q", h.out.String())
			}
			if code := h.run(t, "add", "Walk dog"); code != 0 {
				t.Fatalf("add: exit %d, stderr=%s", code, h.errOut)
			}

			if code := h.run(t, "done", "1"); code != 0 {
				t.Fatalf("done: exit %d, stderr=%s", code, h.errOut)
			}
			if code := h.run(t, "ls"); code != 0 {
				t.Fatalf("ls: exit %d, stderr=%s", code, h.errOut)
			}
			listing := h.out.String()
			for _, want := range []string{"1. [x] Buy milk", "2. [ ] Walk dog", "1 item left"} {
				if !strings.Contains(listing, want) {
					t.Errorf("ls output missing %q:\n%s", want, listing)
				}
			}

			if code := h.run(t, "rm", "1"); code != 0 {
				t.Fatalf("rm: exit %d, stderr=%s", code, h.errOut)
			}
			h.run(t, "ls")
			if strings.Contains(h.out.String(), "Buy milk") || !strings.Contains(h.out.String(), "1. [ ] Walk dog") {
				t.Errorf("ls after rm:\n%s", h.out.String())
			}

			if code := h.run(t, "clear"); code != 0 {
				t.Fatalf("clear: exit %d, stderr=%s", code, h.errOut)
			}
			h.run(t, "ls")
			if !strings.Contains(h.out.String(), "no tasks") {
				t.Errorf("ls after clear:\n%s", h.out.String())
			}
		})
	}
}

func TestFirstUseProvisionsOnce(t *testing.T) {
	h := newHarness(t, "users")
	if code := h.run(t, "ls"); code != 0 {
		t.Fatalf("ls: exit %d, stderr=%s", code, h.errOut)
	}
	var creates int
	for _, c := range h.pg.Calls() {
		if c == "POST /todo/users/alice" {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("user creations: got %d, want 1 (%v)", creates, h.pg.Calls())
	}
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t, "users")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown", []string{"frobnicate"}, 2},
		{"add without label", []string{"add"}, 2},
		{"add blank label", []string{"add", "   "}, 2},
		{"rm not a number", []string{"rm", "x"}, 2},
		{"done without index", []string{"done"}, 2},
		{"rm out of range", []string{"rm", "3"}, 2},
		{"user without action", []string{"user"}, 2},
		{"help", []string{"help"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.run(t, tt.args...); got != tt.want {
				t.Errorf("exit code: got %d, want %d (stderr=%s)", got, tt.want, h.errOut)
			}
		})
	}
}

func TestNoUser(t *testing.T) {
	h := newHarness(t, "users")
	h.opt.Config.Username = ""
	if code := h.run(t, "ls"); code != 2 {
		t.Errorf("ls without user: exit %d, want 2", code)
	}
	if !strings.Contains(h.errOut.String(), "no user") {
		t.Errorf("stderr: %q", h.errOut.String())
	}
}

func TestUserProfile(t *testing.T) {
	h := newHarness(t, "users")
	h.opt.Config.Username = ""

	if code := h.run(t, "user", "set", "bob"); code != 0 {
		t.Fatalf("user set: exit %d", code)
	}
	h.run(t, "user", "show")
	if !strings.Contains(h.out.String(), "user: bob") {
		t.Errorf("user show: %q", h.out.String())
	}

	if code := h.run(t, "add", "from profile"); code != 0 {
		t.Fatalf("add as profile user: exit %d, stderr=%s", code, h.errOut)
	}
	found := false
	for _, c := range h.pg.Calls() {
		if c == "POST /todo/todos/bob" {
			found = true
		}
	}
	if !found {
		t.Errorf("add did not target bob: %v", h.pg.Calls())
	}

	if code := h.run(t, "user", "forget"); code != 0 {
		t.Fatalf("user forget: exit %d", code)
	}
	h.run(t, "user", "show")
	if !strings.Contains(h.out.String(), "no user selected") {
		t.Errorf("user show after forget: %q", h.out.String())
	}
}

func TestRemoteFailure(t *testing.T) {
	h := newHarness(t, "users")
	h.opt.Config.BaseURL = "http://127.0.0.1:1"
	if code := h.run(t, "ls"); code != 1 {
		t.Errorf("ls against dead server: exit %d, want 1", code)
	}
	if !strings.Contains(h.errOut.String(), "load:") {
		t.Errorf("stderr: %q", h.errOut.String())
	}
}

func TestFlatLinesTruncatesLongLabels(t *testing.T) {
	ui.SetTheme("mono")
	t.Cleanup(func() { ui.SetTheme("classic") })

	long := strings.Repeat("é", 100)
	lines := flatLines([]model.Task{{Label: "short"}, {Label: long}})
	if !strings.HasSuffix(lines[0], "short") {
		t.Errorf("short label changed: %q", lines[0])
	}
	if !utf8.ValidString(lines[1]) {
		t.Fatalf("truncated line is not valid UTF-8: %q", lines[1])
	}
	want := strings.Repeat("é", 77) + "..."
	if !strings.HasSuffix(lines[1], want) {
		t.Errorf("long label: got %q, want suffix %q", lines[1], want)
	}
}

func TestEditRenames(t *testing.T) {
	for _, mode := range []string{"users", "list"} {
		t.Run(mode, func(t *testing.T) {
			h := newHarness(t, mode)
			h.run(t, "add", "Buy milk")

			if code := h.run(t, "edit", "1", "Buy", "oat", "milk"); code != 0 {
				t.Fatalf("edit: exit %d, stderr=%s", code, h.errOut)
			}
			if !strings.Contains(h.out.String(), "renamed") {
				t.Errorf("edit output: %q", h.out.String())
			}
			h.run(t, "ls")
			if !strings.Contains(h.out.String(), "1. [ ] Buy oat milk") {
				t.Errorf("ls after edit:\n%s", h.out.String())
			}

			if code := h.run(t, "edit", "1", "  "); code != 2 {
				t.Errorf("blank edit: exit %d, want 2", code)
			}
			if code := h.run(t, "edit", "1"); code != 2 {
				t.Errorf("edit without label: exit %d, want 2", code)
			}
			if code := h.run(t, "edit", "5", "x"); code != 2 {
				t.Errorf("edit out of range: exit %d, want 2", code)
			}
		})
	}
}
