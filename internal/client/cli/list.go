package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/marketlist/internal/client/export"
	"github.com/dmitrijs2005/marketlist/internal/client/listsync"
	"github.com/dmitrijs2005/marketlist/internal/client/session"
)

var errNotLoggedIn = errors.New("not logged in")

// enterList runs the session guard and returns the synchronizer of the list
// screen, creating and loading it on first entry. When the guard redirects
// to login the current list screen is torn down.
func (a *App) enterList(ctx context.Context) (*listsync.Synchronizer, error) {
	if a.guard.Allowed(ctx, session.RouteList) != session.RouteList {
		a.closeList()
		printlnFn("Please log in first.")
		return nil, errNotLoggedIn
	}

	if a.list == nil {
		a.list = listsync.New(a.remote, a.guard, a.logger)
		if err := a.list.Initialize(ctx); err != nil {
			a.report(err)
		}
	}
	return a.list, nil
}

func (a *App) closeList() {
	if a.list != nil {
		a.list.Close()
		a.list = nil
	}
}

// report prints the message for a failed list operation. Silent
// validation failures and superseded responses print nothing.
func (a *App) report(err error) {
	if a.list != nil {
		a.list.ClearError()
	}
	if errors.Is(err, listsync.ErrEmptyText) || errors.Is(err, listsync.ErrStaleResponse) {
		return
	}
	printlnFn(errorStyle.Render("Error: " + listsync.Message(err)))
}

func (a *App) show() {
	if msg := a.list.LastError(); msg != "" {
		printlnFn(errorStyle.Render("Error: " + msg))
		a.list.ClearError()
	}
	edit, editing := a.list.Editing()
	printlnFn(renderList(a.list.Snapshot(), edit, editing))
}

// parseIndex converts a 1-based item number into a 0-based index.
func parseIndex(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("item number is required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid item number %q", args[0])
	}
	return n - 1, nil
}

// List shows the current list.
func (a *App) List(ctx context.Context) error {
	if _, err := a.enterList(ctx); err != nil {
		return err
	}
	a.show()
	return nil
}

// Add creates an item from args, or asks for the text when args is empty.
func (a *App) Add(ctx context.Context, args []string) error {
	l, err := a.enterList(ctx)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	if text == "" {
		if text, err = getSimpleText(a.reader, "Item name", os.Stdout); err != nil {
			return err
		}
	}

	if err := l.Add(ctx, text); err != nil {
		a.report(err)
		return err
	}
	a.show()
	return nil
}

func (a *App) Done(ctx context.Context, args []string) error {
	return a.withIndex(ctx, args, func(l *listsync.Synchronizer, i int) error {
		return l.MarkDone(ctx, i)
	})
}

func (a *App) Delete(ctx context.Context, args []string) error {
	return a.withIndex(ctx, args, func(l *listsync.Synchronizer, i int) error {
		return l.Remove(ctx, i)
	})
}

// Edit opens the edit slot on item n. Nothing is sent until save.
func (a *App) Edit(ctx context.Context, args []string) error {
	err := a.withIndex(ctx, args, func(l *listsync.Synchronizer, i int) error {
		return l.BeginEdit(i)
	})
	if err == nil {
		printlnFn("Type 'save <new text>' to store the change, or edit another item.")
	}
	return err
}

// Save sends the open edit. Without args the new text is asked for.
func (a *App) Save(ctx context.Context, args []string) error {
	l, err := a.enterList(ctx)
	if err != nil {
		return err
	}

	edit, editing := l.Editing()
	if !editing {
		a.report(listsync.ErrNotEditing)
		return listsync.ErrNotEditing
	}

	text := strings.Join(args, " ")
	if text == "" {
		prompt := fmt.Sprintf("New text for item %d (was %q)", edit.Index+1, edit.Text)
		if text, err = getSimpleText(a.reader, prompt, os.Stdout); err != nil {
			return err
		}
	}

	if err := l.SaveEdit(ctx, text); err != nil {
		a.report(err)
		return err
	}
	a.show()
	return nil
}

func (a *App) withIndex(ctx context.Context, args []string, op func(*listsync.Synchronizer, int) error) error {
	l, err := a.enterList(ctx)
	if err != nil {
		return err
	}

	i, err := parseIndex(args)
	if err != nil {
		printlnFn(errorStyle.Render("Error: " + err.Error()))
		return err
	}

	if err := op(l, i); err != nil {
		a.report(err)
		return err
	}
	a.show()
	return nil
}

// Export writes the current list as JSON or CSV. The optional second
// argument is the output file; by default the file goes to the export
// directory.
func (a *App) Export(ctx context.Context, args []string) error {
	l, err := a.enterList(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		printlnFn("Usage: export json|csv [path]")
		return export.ErrUnknownFormat
	}
	format, err := export.ParseFormat(args[0])
	if err != nil {
		printlnFn(errorStyle.Render("Error: " + err.Error()))
		return err
	}

	items := l.Snapshot()
	var path string
	if len(args) > 1 {
		path, err = export.WriteFile(args[1], format, items)
	} else {
		path, err = export.WriteToDir(a.config.ExportDir, format, items)
	}
	if err != nil {
		a.logger.Error(ctx, "export failed", "format", format, "error", err)
		printlnFn(errorStyle.Render("Error: export failed: " + err.Error()))
		return err
	}

	printlnFn(fmt.Sprintf("Exported %d items to %s", len(items), path))
	return nil
}
