package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Rotation controls size-based rotation of the log file.
type Rotation struct {
	// MaxSizeMB is the size at which the file is rotated. 0 disables rotation.
	MaxSizeMB int
	// MaxBackups is how many rotated files (researchdesk.log.1 ... .N) are kept.
	MaxBackups int
}

// DefaultRotation rotates at 10 MB and keeps three backups.
func DefaultRotation() Rotation {
	return Rotation{MaxSizeMB: 10, MaxBackups: 3}
}

// rotatingFile is an append-only file that renames itself to path.1 once it
// would grow past maxBytes. It is safe for concurrent use.
type rotatingFile struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int

	file *os.File
	size int64
}

func openRotatingFile(path string, r Rotation) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rf := &rotatingFile{
		path:       path,
		maxBytes:   int64(r.MaxSizeMB) * 1024 * 1024,
		maxBackups: r.MaxBackups,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

// open requires rf.mu or exclusive access.
func (rf *rotatingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

func (rf *rotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.maxBytes > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.maxBytes {
		if err := rf.rotate(); err != nil {
			// Keep logging to whatever file is open rather than drop records.
			fmt.Fprintf(os.Stderr, "researchdesk: log rotation failed: %v\n", err)
			if rf.file == nil {
				return 0, err
			}
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// rotate shifts path.N-1 to path.N, moves the live file to path.1 and
// reopens path. Requires rf.mu.
func (rf *rotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rf.file = nil

	if rf.maxBackups <= 0 {
		if err := os.Remove(rf.path); err != nil && !os.IsNotExist(err) {
			return rf.reopenAfter(err)
		}
		return rf.open()
	}

	_ = os.Remove(rf.backup(rf.maxBackups))
	for i := rf.maxBackups - 1; i >= 1; i-- {
		_ = os.Rename(rf.backup(i), rf.backup(i+1))
	}
	if err := os.Rename(rf.path, rf.backup(1)); err != nil {
		return rf.reopenAfter(err)
	}
	return rf.open()
}

func (rf *rotatingFile) reopenAfter(cause error) error {
	if err := rf.open(); err != nil {
		return fmt.Errorf("failed to reopen log file after %v: %w", cause, err)
	}
	return fmt.Errorf("failed to rotate log file: %w", cause)
}

func (rf *rotatingFile) backup(n int) string {
	return fmt.Sprintf("%s.%d", rf.path, n)
}

// Close syncs and closes the live file. Further writes fail.
func (rf *rotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	if err := rf.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	err := rf.file.Close()
	rf.file = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
