package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFileLayout names the per-day log files: <log_dir>/YYYY-MM-DD.log.
const DailyFileLayout = "2006-01-02"

// DailyFile is an io.Writer that appends to <dir>/YYYY-MM-DD.log and switches
// files when the local date changes.
type DailyFile struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyFile returns a writer rooted at dir. The file is opened lazily.
func NewDailyFile(dir string) *DailyFile {
	return &DailyFile{dir: dir, now: time.Now}
}

// DailyFilePath returns the log file used for the day containing t.
func DailyFilePath(dir string, t time.Time) string {
	return filepath.Join(dir, t.Format(DailyFileLayout)+".log")
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	today := d.now().Format(DailyFileLayout)
	if d.file == nil || today != d.day {
		if d.file != nil {
			_ = d.file.Close()
			d.file = nil
		}
		path := filepath.Join(d.dir, today+".log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return 0, fmt.Errorf("open daily log %s: %w", path, err)
		}
		d.file = file
		d.day = today
	}
	return d.file.Write(p)
}

// Close releases the current file handle.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
