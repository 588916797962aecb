package producer_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"

	"hlsingest/internal/producer"
)

func TestReadLines(t *testing.T) {
	input := "# saved feed\nhttps://v.redd.it/abc123.mp4\n\n  https://a.com/x.mp4  \nhttps://v.redd.it/abc123.mp4\n"
	items, err := producer.Read(strings.NewReader(input), producer.FormatLines)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %#v", len(items), items)
	}
	if items[0].SourceURL != "https://v.redd.it/abc123.mp4" || items[1].SourceURL != "https://a.com/x.mp4" {
		t.Fatalf("unexpected items: %#v", items)
	}
}

func TestReadJSONL(t *testing.T) {
	input := `{"videoUrl":"https://a.com/x.mp4","username":"poster","tags":["cats","dogs"],"views":12,"processed":true}
{"videoUrl":"https://b.com/y.mp4","id":"origin-1","rawUrl":"https://b.com/raw","imageUrl":"https://b.com/y.jpg","description":"clip"}
`
	items, err := producer.Read(strings.NewReader(input), producer.FormatJSONL)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0]
	if first.Username != "poster" || len(first.Tags) != 2 || first.Views != 12 {
		t.Fatalf("unexpected first item: %#v", first)
	}
	if first.Processed {
		t.Fatal("expected processed flag from input to be ignored")
	}
	if items[1].OriginID != "origin-1" || items[1].ImageURL != "https://b.com/y.jpg" {
		t.Fatalf("unexpected second item: %#v", items[1])
	}
}

func TestReadHandlesByteOrderMarks(t *testing.T) {
	text := "https://a.com/x.mp4\r\nhttps://b.com/y.mp4\r\n"

	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, text...)
	items, err := producer.Read(bytes.NewReader(withBOM), producer.FormatLines)
	if err != nil {
		t.Fatalf("utf-8 bom: %v", err)
	}
	if len(items) != 2 || items[0].SourceURL != "https://a.com/x.mp4" {
		t.Fatalf("utf-8 bom: unexpected items %#v", items)
	}

	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	utf16, err := encoder.Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encode utf-16: %v", err)
	}
	items, err = producer.Read(bytes.NewReader(utf16), producer.FormatLines)
	if err != nil {
		t.Fatalf("utf-16: %v", err)
	}
	if len(items) != 2 || items[1].SourceURL != "https://b.com/y.mp4" {
		t.Fatalf("utf-16: unexpected items %#v", items)
	}
}

func TestReadRejectsBadLines(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		format string
		line   int
	}{
		{"relative url", "https://a.com/x.mp4\n/x.mp4\n", producer.FormatLines, 2},
		{"ftp scheme", "ftp://a.com/x.mp4\n", producer.FormatLines, 1},
		{"bad json", "{\"videoUrl\":\n", producer.FormatJSONL, 1},
		{"missing url", "\n{\"username\":\"u\"}\n", producer.FormatJSONL, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := producer.Read(strings.NewReader(tc.input), tc.format)
			var lineErr *producer.LineError
			if !errors.As(err, &lineErr) {
				t.Fatalf("expected LineError, got %v", err)
			}
			if lineErr.Line != tc.line {
				t.Fatalf("expected line %d, got %d", tc.line, lineErr.Line)
			}
		})
	}

	if _, err := producer.Read(strings.NewReader(""), "csv"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testurls.txt")
	if err := os.WriteFile(path, []byte("https://a.com/x.mp4\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	items, err := producer.ReadFile(path, "")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if _, err := producer.ReadFile(filepath.Join(t.TempDir(), "missing.txt"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}
