package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmitrijs2005/marketlist/internal/client/listsync"
	"github.com/dmitrijs2005/marketlist/internal/client/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	doneStyle    = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	updatedStyle = lipgloss.NewStyle().Italic(true)
	editStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	emptyStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// renderList formats items as a numbered checklist. Done items are struck
// through; the item in the edit slot shows its scratch text.
func renderList(items []models.ListItem, edit listsync.EditState, editing bool) string {
	if len(items) == 0 {
		return emptyStyle.Render("Your list is empty. Add an item with 'add <text>'.")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Market list"))

	for i, it := range items {
		mark, text := "[ ]", it.Text
		switch {
		case it.IsDone():
			mark, text = "[x]", doneStyle.Render(text)
		case it.Status == models.StatusUpdated:
			text = updatedStyle.Render(text)
		}

		fmt.Fprintf(&b, "\n%2d. %s %s", i+1, mark, text)
		if editing && edit.Index == i {
			b.WriteString("  ")
			b.WriteString(editStyle.Render("editing: " + edit.Text))
		}
	}
	return b.String()
}
