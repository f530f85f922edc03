// Package fs implements the durable medium on a local directory: one
// "<physical key>.json" file per key, replaced atomically on every write.
//
// Several processes may share the directory. Each write is atomic, but a
// read-modify-write performed by two processes at once still loses one of
// the updates; Watch lets a process observe the other's writes.
package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/peermall/peerstore/pkg/core"
)

const fileExt = ".json"

// Config holds the configuration of the filesystem medium.
type Config struct {
	Dir          string
	MaxBytes     int64  // ceiling on the summed size of all key files; zero means unbounded
	WatchPattern string // doublestar pattern on logical key names; empty means every key
	Logger       *slog.Logger
	ErrorHandler func(error)
}

// Medium implements core.Medium and core.Watchable on a directory.
type Medium struct {
	dir    string
	config Config

	mu sync.Mutex
	// own remembers the content this process last wrote per physical key,
	// so the watcher can tell its own writes from foreign ones.
	own *xsync.MapOf[string, ownWrite]

	stateMu       sync.RWMutex
	watcherActive bool
	lastEvent     string
}

type ownWrite struct {
	value   string
	removed bool
}

// NewMedium creates the directory if needed and returns a medium over it.
func NewMedium(config Config) (*Medium, error) {
	if config.Dir == "" {
		return nil, errors.New("fs medium: directory is required")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", config.Dir, err)
	}
	return &Medium{
		dir:    config.Dir,
		config: config,
		own:    xsync.NewMapOf[string, ownWrite](),
	}, nil
}

// Dir returns the backing directory.
func (m *Medium) Dir() string {
	return m.dir
}

func (m *Medium) GetItem(key string) (string, bool, error) {
	path, err := m.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &core.OpError{Op: "get", Key: key, Kind: core.ErrUnavailable, Err: err}
	}
	return string(data), true, nil
}

func (m *Medium) SetItem(key, value string) error {
	path, err := m.path(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxBytes > 0 {
		used, err := m.usage(filepath.Base(path))
		if err != nil {
			return &core.OpError{Op: "set", Key: key, Kind: core.ErrUnavailable, Err: err}
		}
		if need := used + int64(len(key)+len(value)); need > m.config.MaxBytes {
			return core.Errorf("set", key, core.ErrQuotaExceeded, "%d bytes would exceed the %d byte ceiling", need, m.config.MaxBytes)
		}
	}

	m.own.Store(key, ownWrite{value: value})
	if err := writeFileAtomic(path, []byte(value), 0o644); err != nil {
		m.own.Delete(key)
		return &core.OpError{Op: "set", Key: key, Kind: core.ErrUnavailable, Err: err}
	}
	return nil
}

func (m *Medium) RemoveItem(key string) error {
	path, err := m.path(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.own.Store(key, ownWrite{removed: true})
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &core.OpError{Op: "remove", Key: key, Kind: core.ErrUnavailable, Err: err}
	}
	return nil
}

// Size returns the bytes accounted against the ceiling.
func (m *Medium) Size() (int64, error) {
	return m.usage("")
}

// path maps a physical key to its file, refusing keys that would escape the directory.
func (m *Medium) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") || strings.HasPrefix(key, TempFilePrefix) {
		return "", &core.OpError{Op: "resolve", Key: key, Kind: core.ErrInvalid, Err: errors.New("not a storable key")}
	}
	return filepath.Join(m.dir, key+fileExt), nil
}

// usage sums key and value sizes of every stored key except skip.
func (m *Medium) usage(skip string) (int64, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == skip || !isKeyFile(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += int64(len(strings.TrimSuffix(name, fileExt))) + info.Size()
	}
	return total, nil
}

// isKeyFile reports whether a file name could hold a key.
func isKeyFile(name string) bool {
	return strings.HasSuffix(name, fileExt) && !strings.HasPrefix(name, TempFilePrefix) && !strings.HasPrefix(name, ".")
}

// foreign reports whether the current state of key differs from what this
// process last wrote, i.e. whether a change was made by someone else.
func (m *Medium) foreign(key string, eType core.EventType) bool {
	last, ok := m.own.Load(key)
	if !ok {
		return true
	}
	if eType == core.EventDelete {
		return !last.removed
	}
	current, exists, err := m.GetItem(key)
	if err != nil || !exists {
		return true
	}
	return last.removed || current != last.value
}

var _ core.Medium = (*Medium)(nil)
var _ core.Watchable = (*Medium)(nil)
