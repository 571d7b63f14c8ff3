package log

import (
	"sync"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/cockroachdb/errors"
)

// Manager appends records to the write-ahead log and hands out iterators
// over them. Records fill each log block from the end towards the start,
// so a block read front to back yields the newest record first:
//
//	[<boundary int>.......[recordN][recordN-1]...[record1]]
//
// The boundary is the offset of the most recently written record.
type Manager struct {
	fileManager  *file.Manager
	logFile      string
	logPage      *file.Page
	currentBlock file.BlockId
	latestLSN    int64
	lastSavedLSN int64
	mu           sync.Mutex
}

// NewManager opens the log file, creating an empty first block when the file
// is new.
func NewManager(fileManager *file.Manager, logFile string) (*Manager, error) {
	logPage := file.NewPage(fileManager.BlockSize())
	logSize, err := fileManager.Length(logFile)
	if err != nil {
		return nil, errors.Wrap(err, "log: length")
	}

	m := &Manager{
		fileManager: fileManager,
		logFile:     logFile,
		logPage:     logPage,
	}
	if logSize == 0 {
		if m.currentBlock, err = m.appendNewBlock(); err != nil {
			return nil, err
		}
	} else {
		m.currentBlock = file.NewBlockId(logFile, logSize-1)
		if err := fileManager.Read(m.currentBlock, logPage); err != nil {
			return nil, errors.Wrap(err, "log: read tail block")
		}
	}
	return m, nil
}

// Flush makes sure the record with the given LSN is on disk.
func (m *Manager) Flush(lsn int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lsn >= m.lastSavedLSN {
		return m.flush()
	}
	return nil
}

// Iterator flushes the log and returns an iterator positioned at the newest record.
func (m *Manager) Iterator() (*Iterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flush(); err != nil {
		return nil, err
	}
	return NewIterator(m.fileManager, m.currentBlock)
}

// Append adds a record to the log page and returns its LSN. The page is
// written out and a fresh block is started when the record does not fit.
func (m *Manager) Append(logRecord []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	boundary := int(m.logPage.GetInt(0))
	bytesNeeded := len(logRecord) + 4

	if boundary-bytesNeeded < 4 {
		if bytesNeeded+4 > m.fileManager.BlockSize() {
			return 0, dberr.Newf(dberr.ErrRecordTooLong, "log record of %d bytes does not fit a block", len(logRecord))
		}
		if err := m.flush(); err != nil {
			return 0, err
		}
		var err error
		if m.currentBlock, err = m.appendNewBlock(); err != nil {
			return 0, err
		}
		boundary = int(m.logPage.GetInt(0))
	}

	recordPosition := boundary - bytesNeeded
	m.logPage.SetBytes(recordPosition, logRecord)
	m.logPage.SetInt(0, int32(recordPosition))

	m.latestLSN++
	return m.latestLSN, nil
}

// appendNewBlock resets the log page to an empty block and appends it to the file.
func (m *Manager) appendNewBlock() (file.BlockId, error) {
	block, err := m.fileManager.Append(m.logFile)
	if err != nil {
		return file.BlockId{}, errors.Wrap(err, "log: append block")
	}
	clear(m.logPage.Contents())
	m.logPage.SetInt(0, int32(m.fileManager.BlockSize()))
	if err := m.fileManager.Write(block, m.logPage); err != nil {
		return file.BlockId{}, errors.Wrap(err, "log: write new block")
	}
	return block, nil
}

// flush writes the log page out. Callers must hold m.mu.
func (m *Manager) flush() error {
	if err := m.fileManager.Write(m.currentBlock, m.logPage); err != nil {
		return errors.Wrap(err, "log: flush")
	}
	m.lastSavedLSN = m.latestLSN
	return nil
}
