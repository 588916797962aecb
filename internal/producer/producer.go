// Package producer turns backlog files into catalog work items.
//
// Two formats are accepted: a newline-delimited list of source URLs and JSON
// Lines where each line is one work item object. Input may be UTF-8 (with or
// without a BOM) or UTF-16 with a BOM. Blank lines and lines starting with '#'
// are ignored in both formats.
package producer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"hlsingest/internal/catalog"
)

// Format names.
const (
	FormatLines = "lines"
	FormatJSONL = "jsonl"
)

const maxLineBytes = 1 << 20

// LineError reports a malformed input line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Read parses r in the given format. Duplicate source URLs keep their first
// occurrence.
func Read(r io.Reader, format string) ([]catalog.WorkItem, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatLines
	}
	if format != FormatLines && format != FormatJSONL {
		return nil, fmt.Errorf("unsupported format %q (want %s or %s)", format, FormatLines, FormatJSONL)
	}

	// UTF8 is the fallback; a UTF-16 BOM switches decoding.
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	scanner := bufio.NewScanner(transform.NewReader(r, decoder))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		items []catalog.WorkItem
		seen  = make(map[string]struct{})
		line  int
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		item, err := parseLine(text, format)
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		if _, dup := seen[item.SourceURL]; dup {
			continue
		}
		seen[item.SourceURL] = struct{}{}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return items, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path, format string) ([]catalog.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, format)
}

func parseLine(text, format string) (catalog.WorkItem, error) {
	var item catalog.WorkItem
	switch format {
	case FormatJSONL:
		if err := json.Unmarshal([]byte(text), &item); err != nil {
			return catalog.WorkItem{}, fmt.Errorf("decode json: %w", err)
		}
		item.SourceURL = strings.TrimSpace(item.SourceURL)
		item.Processed = false
	default:
		item.SourceURL = text
	}
	if err := validateURL(item.SourceURL); err != nil {
		return catalog.WorkItem{}, err
	}
	return item, nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("missing source url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("source url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("source url %q has no host", raw)
	}
	return nil
}
