package file

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JyotinderSingh/plandb/dberr"
)

// Manager reads and writes blocks of the files in the database directory.
// Files are opened lazily and kept open until Close. All methods are safe
// for concurrent use.
type Manager struct {
	dbDirectory string
	blockSize   int
	isNew       bool
	openFiles   map[string]*os.File
	// dropped files ignore writes of pages still cached for them
	dropped map[string]bool
	onDrop  []func(filename string)
	mu      sync.Mutex
}

// NewManager creates a file manager for the specified directory, creating the
// directory when it does not exist. Leftover temporary files are removed.
func NewManager(dbDirectory string, blockSize int) (*Manager, error) {
	isNew := false
	if _, err := os.Stat(dbDirectory); os.IsNotExist(err) {
		isNew = true
		if err := os.MkdirAll(dbDirectory, 0o755); err != nil {
			return nil, dberr.IO(err, "create database directory %s", dbDirectory)
		}
	}

	entries, err := os.ReadDir(dbDirectory)
	if err != nil {
		return nil, dberr.IO(err, "read database directory %s", dbDirectory)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "temp") || strings.HasSuffix(entry.Name(), ".tmp") {
			_ = os.Remove(filepath.Join(dbDirectory, entry.Name()))
		}
	}

	return &Manager{
		dbDirectory: dbDirectory,
		blockSize:   blockSize,
		isNew:       isNew,
		openFiles:   make(map[string]*os.File),
		dropped:     make(map[string]bool),
	}, nil
}

// Read reads the contents of block into page.
func (m *Manager) Read(block BlockId, page *Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := page.Contents()
	if m.dropped[block.Filename()] {
		clear(buf)
		return nil
	}
	f, err := m.getFile(block.Filename())
	if err != nil {
		return err
	}
	n, err := f.ReadAt(buf, int64(block.Number())*int64(m.blockSize))
	if err != nil && err != io.EOF {
		return dberr.IO(err, "read block %s", block)
	}
	// Blocks past the end of the file read as zeros.
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return nil
}

// Write writes the contents of page to block.
func (m *Manager) Write(block BlockId, page *Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dropped[block.Filename()] {
		return nil
	}
	f, err := m.getFile(block.Filename())
	if err != nil {
		return err
	}
	if _, err := f.WriteAt(page.Contents(), int64(block.Number())*int64(m.blockSize)); err != nil {
		return dberr.IO(err, "write block %s", block)
	}
	return nil
}

// Append extends filename by one zeroed block and returns its id.
func (m *Manager) Append(filename string) (BlockId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.dropped, filename)
	f, err := m.getFile(filename)
	if err != nil {
		return BlockId{}, err
	}
	length, err := m.length(f)
	if err != nil {
		return BlockId{}, err
	}
	block := NewBlockId(filename, length)
	zeros := make([]byte, m.blockSize)
	if _, err := f.WriteAt(zeros, int64(block.Number())*int64(m.blockSize)); err != nil {
		return BlockId{}, dberr.IO(err, "append block to %s", filename)
	}
	return block, nil
}

// Length returns the number of blocks in filename.
func (m *Manager) Length(filename string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dropped[filename] {
		return 0, nil
	}
	f, err := m.getFile(filename)
	if err != nil {
		return 0, err
	}
	return m.length(f)
}

// CreateFile creates filename, failing with ErrFileExist when it is already present.
func (m *Manager) CreateFile(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.dbDirectory, filename)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return dberr.Newf(dberr.ErrFileExist, "file %s already exists", filename)
		}
		return dberr.IO(err, "create file %s", filename)
	}
	m.openFiles[filename] = f
	delete(m.dropped, filename)
	slog.Debug("file: created", "file", filename)
	return nil
}

// OnDrop registers fn to be called after a file is dropped.
func (m *Manager) OnDrop(fn func(filename string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDrop = append(m.onDrop, fn)
}

// DropFile closes and removes filename. Removing a missing file is not an error.
func (m *Manager) DropFile(filename string) error {
	if err := m.dropFile(filename); err != nil {
		return err
	}
	m.mu.Lock()
	hooks := m.onDrop
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(filename)
	}
	return nil
}

func (m *Manager) dropFile(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.openFiles[filename]; ok {
		_ = f.Close()
		delete(m.openFiles, filename)
	}
	if err := os.Remove(filepath.Join(m.dbDirectory, filename)); err != nil && !os.IsNotExist(err) {
		return dberr.IO(err, "drop file %s", filename)
	}
	m.dropped[filename] = true
	slog.Debug("file: dropped", "file", filename)
	return nil
}

// Exists reports whether filename is present in the database directory.
func (m *Manager) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(m.dbDirectory, filename))
	return err == nil
}

// Close closes every open file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, f := range m.openFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = dberr.IO(err, "close %s", name)
		}
		delete(m.openFiles, name)
	}
	return firstErr
}

// IsNew reports whether the database directory was created by this manager.
func (m *Manager) IsNew() bool {
	return m.isNew
}

// BlockSize returns the size of every block in bytes.
func (m *Manager) BlockSize() int {
	return m.blockSize
}

// Dir returns the database directory.
func (m *Manager) Dir() string {
	return m.dbDirectory
}

// getFile returns the open handle for filename, opening it if needed.
// Callers must hold m.mu.
func (m *Manager) getFile(filename string) (*os.File, error) {
	if f, ok := m.openFiles[filename]; ok {
		return f, nil
	}
	path := filepath.Join(m.dbDirectory, filename)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberr.IO(err, "open file %s", filename)
	}
	m.openFiles[filename] = f
	return f, nil
}

func (m *Manager) length(f *os.File) (int, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	return int(info.Size() / int64(m.blockSize)), nil
}
