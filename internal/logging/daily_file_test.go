package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDailyFileSwitchesOnDateChange(t *testing.T) {
	dir := t.TempDir()
	current := time.Date(2024, 5, 1, 23, 59, 0, 0, time.Local)
	d := NewDailyFile(dir)
	d.now = func() time.Time { return current }
	defer d.Close()

	if _, err := d.Write([]byte("first\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	current = current.Add(2 * time.Minute)
	if _, err := d.Write([]byte("second\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(dir, "2024-05-01.log"))
	if err != nil {
		t.Fatalf("read first day: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "2024-05-02.log"))
	if err != nil {
		t.Fatalf("read second day: %v", err)
	}
	if string(first) != "first\n" || string(second) != "second\n" {
		t.Fatalf("unexpected contents: %q / %q", first, second)
	}
}
