package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return nil
}

func (f *fakeExec) isLoggedIn(context.Context) bool { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error { return f.record("register", nil) }
func (f *fakeExec) SignUp(context.Context) error { return f.record("signup", nil) }
func (f *fakeExec) List(context.Context) error { return f.record("list", nil) }
func (f *fakeExec) Add(_ context.Context, a []string) error { return f.record("add", a) }
func (f *fakeExec) Done(_ context.Context, a []string) error { return f.record("done", a) }
func (f *fakeExec) Edit(_ context.Context, a []string) error { return f.record("edit", a) }
func (f *fakeExec) Save(_ context.Context, a []string) error { return f.record("save", a) }
func (f *fakeExec) Delete(_ context.Context, a []string) error { return f.record("delete", a) }
func (f *fakeExec) Export(_ context.Context, a []string) error { return f.record("export", a) }

func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}

func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func input(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(Guest)" }, input(
		"help",
		"login",
		"help",
		"l",
		"add Oat milk",
		"done 2",
		"edit 1",
		"save Rye bread",
		"cancel",
		"rm 3",
		"export csv out.csv",
		"",
		"foobar",
		"logout",
		"exit",
		"list",
	))

	assert.Equal(t, []string{"login", "list", "add", "done", "edit", "save", "delete", "export", "logout"}, exec.calls)
	assert.Equal(t, []string{"Oat", "milk"}, exec.args[2])
	assert.Equal(t, []string{"csv", "out.csv"}, exec.args[7])

	assert.Contains(t, *out, helpGuest)
	assert.Contains(t, *out, helpLoggedIn)
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "Unknown command: cancel", "an edit is left by saving or editing another item")
	assert.Contains(t, *out, "ml (Guest)> ")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_EOFEndsLoop(t *testing.T) {
	captureOutput(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, input("register", "signup"))

	assert.Equal(t, []string{"register", "signup"}, exec.calls, "last line without newline still runs")
}

func TestRunREPL_CancelledContext(t *testing.T) {
	captureOutput(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "s" }, input("login"))
	assert.Empty(t, exec.calls)
}
