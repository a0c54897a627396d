// Package models holds the client-side domain types of the market list.
package models

// Status is the lifecycle state of a list item as stored by the server.
type Status string

const (
	StatusPending Status = "Pending"
	StatusDone    Status = "Done"
	StatusUpdated Status = "Updated"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDone, StatusUpdated:
		return true
	}
	return false
}

// ListItem is one line of the market list.
//
// ID is assigned by the server; zero means the item has not been
// acknowledged yet. Once set it never changes.
type ListItem struct {
	ID     int64
	Text   string
	Status Status
}

// HasID reports whether the server has acknowledged the item.
func (i ListItem) HasID() bool {
	return i.ID != 0
}

// IsDone reports whether the item is checked off.
func (i ListItem) IsDone() bool {
	return i.Status == StatusDone
}
