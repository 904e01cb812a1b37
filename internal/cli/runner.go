package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/gin-gonic/gin"

	"github.com/idilsaglam/tada-sync/internal/config"
	"github.com/idilsaglam/tada-sync/internal/controller"
	"github.com/idilsaglam/tada-sync/internal/model"
	"github.com/idilsaglam/tada-sync/internal/playground"
	"github.com/idilsaglam/tada-sync/internal/profile"
	"github.com/idilsaglam/tada-sync/internal/remote"
	"github.com/idilsaglam/tada-sync/internal/tui"
	"github.com/idilsaglam/tada-sync/internal/ui"
)

// Options carries what every subcommand needs.
type Options struct {
	Config *config.Config
	Logger *log.Logger
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	if opt.Logger == nil {
		opt.Logger = log.New(io.Discard)
	}
	if len(args) == 0 {
		return doInteractive(ctx, opt)
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ui":
		return doInteractive(ctx, opt)

	case "ls":
		return doList(ctx, opt)

	case "add":
		if len(a) == 0 {
			ui.Fail("usage: todo add <label...>")
			return 2
		}
		return doAdd(ctx, opt, strings.Join(a, " "))

	case "done", "rm":
		if len(a) != 1 {
			ui.Fail("usage: todo " + cmd + " <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail(cmd + ": not a number: " + a[0])
			return 2
		}
		if cmd == "done" {
			return doToggle(ctx, opt, n)
		}
		return doRemove(ctx, opt, n)

	case "edit":
		if len(a) < 2 {
			ui.Fail("usage: todo edit <index> <label...>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail("edit: not a number: " + a[0])
			return 2
		}
		return doEdit(ctx, opt, n, strings.Join(a[1:], " "))

	case "clear":
		return doClear(ctx, opt)

	case "user":
		if len(a) == 0 {
			ui.Fail("usage: todo user <set <name>|show|forget>")
			return 2
		}
		switch a[0] {
		case "set":
			if len(a) != 2 {
				ui.Fail("usage: todo user set <name>")
				return 2
			}
			return doUserSet(a[1])
		case "show":
			return doUserShow(opt)
		case "forget":
			return doUserForget()
		default:
			ui.Fail("usage: todo user <set <name>|show|forget>")
			return 2
		}

	case "serve":
		return doServe(ctx, opt)
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(ui.Err)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Fprint(ui.Out, `todo - a to-do list synced with a remote API

Usage:
  todo [flags] [subcommand] [args]

Subcommands:
  ui                 Interactive list (default when no subcommand is given)
  ls                 Print the list
  add <label...>     Add a task (label can be multiple words)
  done <index>       Toggle done for the task at 1-based index
  rm <index>         Remove the task at 1-based index
  edit <index> <label...>  Rename the task at 1-based index
  clear              Remove every task
  user <set <name>|show|forget>   Remember which list to open
  serve              Run a local playground API

Flags:
  -user <name>   -url <base url>   -mode users|list   -theme classic|neon|mono
  -group         -timeout <sec>    -log-level <lvl>   -log-file <path|->

Examples:
  todo user set alice
  todo add "Buy milk"
  todo ls
  todo done 2
  todo rm 3
  todo edit 1 "Buy oat milk"
  todo -url http://127.0.0.1:8080 serve
`)
}

// -------------- wiring ----------------

func newController(opt Options) (*controller.Controller, error) {
	cfg := opt.Config
	client := remote.NewClient(cfg.BaseURL,
		remote.WithTimeout(cfg.Timeout()),
		remote.WithLogger(opt.Logger),
	)
	store, err := remote.New(cfg.Mode, client)
	if err != nil {
		return nil, err
	}
	return controller.New(store, opt.Logger), nil
}

// username prefers -user / config over the saved profile.
func username(opt Options) string {
	if opt.Config.Username != "" {
		return opt.Config.Username
	}
	p, err := profile.Get()
	if err != nil {
		opt.Logger.Warn("read profile", "err", err)
		return ""
	}
	if p == nil {
		return ""
	}
	return p.Username
}

// loaded builds a controller and runs the provisioning flow for the
// current user. A non-zero code means the caller should stop.
func loaded(ctx context.Context, opt Options) (*controller.Controller, int) {
	name := username(opt)
	if name == "" {
		ui.Fail("no user. Pass -user, set TADA_USER or run `todo user set <name>`")
		return nil, 2
	}
	ctl, err := newController(opt)
	if err != nil {
		ui.Fail(err.Error())
		return nil, 2
	}
	if r := ctl.Do(ctx, ctl.Load(name)); r.Err != nil {
		ui.Fail("load: " + r.Err.Error())
		return nil, 1
	}
	return ctl, 0
}

// apply runs s inline and reports the outcome.
func apply(ctx context.Context, ctl *controller.Controller, s controller.Sync, done string) int {
	if s == nil {
		ui.Fail(ctl.Status())
		return 2
	}
	if r := ctl.Do(ctx, s); r.Err != nil {
		ui.Fail(ctl.Status())
		return 1
	}
	ui.OK(done + " · " + ctl.ItemsLeft())
	return 0
}

// -------------- subcommand impls ----------------

func doInteractive(ctx context.Context, opt Options) int {
	ctl, err := newController(opt)
	if err != nil {
		ui.Fail(err.Error())
		return 2
	}
	err = tui.Run(ctx, ctl, tui.Options{
		Username: username(opt),
		OnUserLoaded: func(name string) {
			if err := profile.Set(name); err != nil {
				opt.Logger.Warn("save profile", "err", err)
			}
		},
	})
	if err != nil {
		ui.Fail("tui: " + err.Error())
		return 1
	}
	return 0
}

func doList(ctx context.Context, opt Options) int {
	ctl, code := loaded(ctx, opt)
	if code != 0 {
		return code
	}
	tasks := ctl.Tasks()
	t := ui.Current()

	// Header + progress
	d, p := model.Stats(tasks)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Todos · "+ctl.Username()),
		t.Success.Render(t.SymDone), d,
		t.Pending.Render(t.SymPending), p,
		t.Accent.Render("Total"), len(tasks),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, t.Muted.Render(ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if opt.Config.Group {
		lines = append(lines, groupLines(tasks)...)
	} else {
		lines = append(lines, flatLines(tasks)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render(model.ItemsLeft(tasks)))
	lines = append(lines, t.Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(lines)
	return 0
}

func doAdd(ctx context.Context, opt Options, label string) int {
	if strings.TrimSpace(label) == "" {
		ui.Fail("add: empty label")
		return 2
	}
	ctl, code := loaded(ctx, opt)
	if code != 0 {
		return code
	}
	ctl.SetInput(label)
	return apply(ctx, ctl, ctl.Add(), "added")
}

func doEdit(ctx context.Context, opt Options, userIndex int, label string) int {
	ctl, code := loaded(ctx, opt)
	if code != 0 {
		return code
	}
	if !checkIndex(ctl, userIndex) {
		return 2
	}
	if ctl.Tasks()[userIndex-1].Label == strings.TrimSpace(label) {
		ui.OK("unchanged · " + ctl.ItemsLeft())
		return 0
	}
	return apply(ctx, ctl, ctl.Edit(userIndex-1, label), "renamed")
}

func doToggle(ctx context.Context, opt Options, userIndex int) int {
	ctl, code := loaded(ctx, opt)
	if code != 0 {
		return code
	}
	if !checkIndex(ctl, userIndex) {
		return 2
	}
	return apply(ctx, ctl, ctl.Toggle(userIndex-1), "toggled")
}

func doRemove(ctx context.Context, opt Options, userIndex int) int {
	ctl, code := loaded(ctx, opt)
	if code != 0 {
		return code
	}
	if !checkIndex(ctl, userIndex) {
		return 2
	}
	return apply(ctx, ctl, ctl.Delete(userIndex-1), "removed")
}

func doClear(ctx context.Context, opt Options) int {
	ctl, code := loaded(ctx, opt)
	if code != 0 {
		return code
	}
	return apply(ctx, ctl, ctl.Clear(), "cleared")
}

func checkIndex(ctl *controller.Controller, userIndex int) bool {
	n := len(ctl.Tasks())
	if userIndex < 1 || userIndex > n {
		ui.Fail(fmt.Sprintf("index out of range: have %d, got %d", n, userIndex))
		ui.Hint("Hint: run `todo ls` to see valid indexes")
		return false
	}
	return true
}

func doUserSet(name string) int {
	if err := profile.Set(name); err != nil {
		ui.Fail("user set: " + err.Error())
		return 1
	}
	ui.OK("now using " + strings.TrimSpace(name))
	return 0
}

func doUserShow(opt Options) int {
	if opt.Config.Username != "" {
		fmt.Fprintf(ui.Out, "user: %s\nsource: flag/config\n", opt.Config.Username)
		return 0
	}
	p, err := profile.Get()
	if err != nil {
		ui.Fail("user show: " + err.Error())
		return 1
	}
	if p == nil {
		fmt.Fprintln(ui.Out, ui.Current().Muted.Render("no user selected"))
		fmt.Fprintln(ui.Out, "Run: todo user set <name>")
		return 0
	}
	fmt.Fprintf(ui.Out, "user: %s\nsource: %s\n", p.Username, p.Source)
	fmt.Fprintln(ui.Out, "env override: "+profile.EnvUser)
	return 0
}

func doUserForget() int {
	p, _ := profile.Get()
	if p != nil && p.Source == "env" {
		ui.OK("user is provided by " + profile.EnvUser + " env var (nothing to forget)")
		return 0
	}
	if err := profile.Forget(); err != nil {
		ui.Fail("user forget: " + err.Error())
		return 1
	}
	ui.OK("forgot user")
	return 0
}

func doServe(ctx context.Context, opt Options) int {
	gin.SetMode(gin.ReleaseMode)
	pg, err := playground.New(
		playground.WithDataFile(opt.Config.DataFile),
		playground.WithLogger(opt.Logger),
	)
	if err != nil {
		ui.Fail("serve: " + err.Error())
		return 1
	}
	ui.OK("playground listening on http://" + opt.Config.Listen)
	if err := pg.ListenAndServe(ctx, opt.Config.Listen); err != nil {
		ui.Fail("serve: " + err.Error())
		return 1
	}
	return 0
}

// -------------- rendering helpers --------------

func flatLines(tasks []model.Task) []string {
	t := ui.Current()
	if len(tasks) == 0 {
		return []string{t.Muted.Render("no tasks, add one")}
	}
	out := make([]string, 0, len(tasks))
	for i, task := range tasks {
		idx := fmt.Sprintf("%2d.", i+1)
		box := t.Muted.Render(t.BoxUnchecked)
		label := ansi.Truncate(task.Label, 80, "...")
		if task.Done {
			box = t.Success.Render(t.BoxChecked)
			label = t.DoneText.Render(label)
		}
		out = append(out, fmt.Sprintf("%s %s %s", t.Muted.Render(idx), box, label))
	}
	return out
}

func groupLines(tasks []model.Task) []string {
	var pend, done []model.Task
	for _, task := range tasks {
		if task.Done {
			done = append(done, task)
		} else {
			pend = append(pend, task)
		}
	}
	t := ui.Current()
	var lines []string
	lines = append(lines, t.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
