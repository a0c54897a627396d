// Package export serializes a list snapshot to JSON or CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/marketlist/internal/client/models"
	"github.com/dmitrijs2005/marketlist/internal/filex"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts "json" or "csv" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FileName is the default export file name for f.
func FileName(f Format) string {
	return "market-list." + string(f)
}

type record struct {
	ID     int64         `json:"id"`
	Text   string        `json:"text"`
	Status models.Status `json:"status"`
}

// JSON renders items as an indented array of {id, text, status}.
func JSON(items []models.ListItem) ([]byte, error) {
	recs := make([]record, 0, len(items))
	for _, it := range items {
		recs = append(recs, record{ID: it.ID, Text: it.Text, Status: it.Status})
	}
	return json.MarshalIndent(recs, "", "  ")
}

// CSV renders an "Item Name,Status" header and one row per item. Rows are
// separated by "\n" and there is no trailing newline.
func CSV(items []models.ListItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Item Name", "Status"}); err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := w.Write([]string{it.Text, string(it.Status)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func Encode(f Format, items []models.ListItem) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(items)
	case FormatCSV:
		return CSV(items)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFile encodes items and writes them to path, creating the parent
// directory when needed. It returns the absolute path written.
func WriteFile(path string, f Format, items []models.ListItem) (string, error) {
	data, err := Encode(f, items)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", f, err)
	}

	dir, err := filex.EnsureDir(filepath.Dir(path))
	if err != nil {
		return "", err
	}
	full := filepath.Join(dir, filepath.Base(path))

	if err := filex.WriteFileAtomic(full, data, 0o600); err != nil {
		return "", err
	}
	return full, nil
}

// WriteToDir writes items into dir under the default file name.
func WriteToDir(dir string, f Format, items []models.ListItem) (string, error) {
	return WriteFile(filepath.Join(dir, FileName(f)), f, items)
}
