// Package workspace provides the per-file apply lock. The patch engine reads
// a snapshot and writes a full replacement with no optimistic-concurrency
// check, so at most one apply per file must run at a time; this lock is how
// callers enforce that.
package workspace

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Lock represents an acquired exclusive lock on one target file.
type Lock struct {
	file        *os.File
	lockPath    string
	sigChan     chan os.Signal
	mu          sync.Mutex
	cleanupOnce sync.Once
}

// AcquireFileLock takes an exclusive non-blocking flock on a sidecar lock
// file next to the target. It fails immediately when another applydiff
// process holds the lock, rather than queueing behind it.
func AcquireFileLock(targetPath string) (*Lock, error) {
	lockPath := targetPath + ".applydiff.lock"

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("%q is already being patched by another applydiff instance", targetPath)
	}

	// Record the holder's PID for debugging stuck locks.
	lockFile.Truncate(0)
	lockFile.Seek(0, 0)
	fmt.Fprintf(lockFile, "%d\n", os.Getpid())

	lock := &Lock{
		file:     lockFile,
		lockPath: lockPath,
		sigChan:  make(chan os.Signal, 1),
	}

	// Clean up the lock file when the process is interrupted mid-apply.
	signal.Notify(lock.sigChan, syscall.SIGINT, syscall.SIGTERM)
	sigChan := lock.sigChan
	go func() {
		sig, ok := <-sigChan
		if ok && sig != nil {
			lock.cleanup()
			os.Exit(1)
		}
	}()

	return lock, nil
}

// Release unlocks and removes the lock file. Safe to call more than once.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sigChan != nil {
		signal.Stop(l.sigChan)
		close(l.sigChan)
		l.sigChan = nil
	}
	l.cleanup()
}

func (l *Lock) cleanup() {
	l.cleanupOnce.Do(func() {
		if l.file != nil {
			syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
			l.file.Close()
		}
		os.Remove(l.lockPath)
	})
}
