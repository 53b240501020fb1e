// Package lock provides the exclusive per-project run lock
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/reorgnorris/pkg/scan"
)

// ErrLocked is returned when another run holds the project lock
var ErrLocked = errors.New("project is locked by another run")

// Owner is the content of a lockfile
type Owner struct {
	Token    string    `json:"token"`
	PID      int       `json:"pid"`
	Hostname string    `json:"hostname,omitempty"`
	Acquired time.Time `json:"acquired"`
}

// Lock is a held project lock
type Lock struct {
	path  string
	owner Owner
}

// Path returns the lockfile path for a project root
func Path(root string) string {
	return filepath.Join(root, scan.LockFileName)
}

// Acquire creates the lockfile exclusively
// When the file already exists the error wraps ErrLocked and names the holder
func Acquire(root string) (*Lock, error) {
	path := Path(root)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			if holder, readErr := Read(root); readErr == nil {
				return nil, fmt.Errorf("%w: pid %d since %s (remove %s if that run is gone)",
					ErrLocked, holder.PID, holder.Acquired.Format(time.RFC3339), path)
			}
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("failed to create lockfile: %w", err)
	}

	hostname, _ := os.Hostname()
	owner := Owner{
		Token:    uuid.New().String(),
		PID:      os.Getpid(),
		Hostname: hostname,
		Acquired: time.Now(),
	}

	if err := json.NewEncoder(f).Encode(owner); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close lockfile: %w", err)
	}

	return &Lock{path: path, owner: owner}, nil
}

// Read returns the current holder of the project lock
func Read(root string) (*Owner, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		return nil, err
	}

	var owner Owner
	if err := json.Unmarshal(data, &owner); err != nil {
		return nil, fmt.Errorf("corrupt lockfile: %w", err)
	}
	return &owner, nil
}

// Token returns the owner token of this lock
func (l *Lock) Token() string {
	return l.owner.Token
}

// Release removes the lockfile if it still carries this lock's token
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read lockfile: %w", err)
	}

	var owner Owner
	if err := json.Unmarshal(data, &owner); err != nil || owner.Token != l.owner.Token {
		return fmt.Errorf("lockfile %s is held by another run", l.path)
	}

	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}
