// Package dberr defines the status codes surfaced by the engine. Every error
// returned by plandb packages is marked with one of the sentinel errors below so
// that callers can recover a StatusCode with Code, no matter how many layers of
// context were wrapped around it.
package dberr

import (
	"github.com/cockroachdb/errors"
)

// StatusCode is the coarse kind of a failure, reported back to sessions.
type StatusCode int

const (
	Success StatusCode = iota
	InvalidArgument
	SchemaTableNotExist
	SchemaTableExist
	SchemaFieldNotExist
	SchemaFieldTypeMismatch
	SchemaIndexNameRepeat
	SchemaIndexNotExist
	RecordDuplicateKey
	RecordNotExist
	RecordInvalidKey
	RecordTooLong
	IOError
	FileExist
	LockAbort
	BufferAbort
	Unimplemented
	Internal
)

var codeNames = map[StatusCode]string{
	Success:                 "SUCCESS",
	InvalidArgument:         "INVALID_ARGUMENT",
	SchemaTableNotExist:     "SCHEMA_TABLE_NOT_EXIST",
	SchemaTableExist:        "SCHEMA_TABLE_EXIST",
	SchemaFieldNotExist:     "SCHEMA_FIELD_NOT_EXIST",
	SchemaFieldTypeMismatch: "SCHEMA_FIELD_TYPE_MISMATCH",
	SchemaIndexNameRepeat:   "SCHEMA_INDEX_NAME_REPEAT",
	SchemaIndexNotExist:     "SCHEMA_INDEX_NOT_EXIST",
	RecordDuplicateKey:      "RECORD_DUPLICATE_KEY",
	RecordNotExist:          "RECORD_NOT_EXIST",
	RecordInvalidKey:        "RECORD_INVALID_KEY",
	RecordTooLong:           "RECORD_TOO_LONG",
	IOError:                 "IOERR",
	FileExist:               "FILE_EXIST",
	LockAbort:               "LOCK_ABORT",
	BufferAbort:             "BUFFER_ABORT",
	Unimplemented:           "UNIMPLEMENTED",
	Internal:                "INTERNAL",
}

// String returns the upper-case name of the status code.
func (c StatusCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// Sentinel errors, one per status code.
var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrSchemaTableNotExist     = errors.New("table does not exist")
	ErrSchemaTableExist        = errors.New("table already exists")
	ErrSchemaFieldNotExist     = errors.New("field not found")
	ErrSchemaFieldTypeMismatch = errors.New("field type mismatch")
	ErrSchemaIndexNameRepeat   = errors.New("index name already used")
	ErrSchemaIndexNotExist     = errors.New("index does not exist")
	ErrRecordDuplicateKey      = errors.New("duplicate key")
	ErrRecordNotExist          = errors.New("record does not exist")
	ErrRecordInvalidKey        = errors.New("invalid key")
	ErrRecordTooLong           = errors.New("record value too long")
	ErrIOError                 = errors.New("i/o error")
	ErrFileExist               = errors.New("file already exists")
	ErrLockAbort               = errors.New("lock wait aborted")
	ErrBufferAbort             = errors.New("buffer wait aborted")
	ErrUnimplemented           = errors.New("unimplemented")
	ErrInternal                = errors.New("internal error")
)

var sentinels = []struct {
	err  error
	code StatusCode
}{
	{ErrInvalidArgument, InvalidArgument},
	{ErrSchemaTableNotExist, SchemaTableNotExist},
	{ErrSchemaTableExist, SchemaTableExist},
	{ErrSchemaFieldNotExist, SchemaFieldNotExist},
	{ErrSchemaFieldTypeMismatch, SchemaFieldTypeMismatch},
	{ErrSchemaIndexNameRepeat, SchemaIndexNameRepeat},
	{ErrSchemaIndexNotExist, SchemaIndexNotExist},
	{ErrRecordDuplicateKey, RecordDuplicateKey},
	{ErrRecordNotExist, RecordNotExist},
	{ErrRecordInvalidKey, RecordInvalidKey},
	{ErrRecordTooLong, RecordTooLong},
	{ErrIOError, IOError},
	{ErrFileExist, FileExist},
	{ErrLockAbort, LockAbort},
	{ErrBufferAbort, BufferAbort},
	{ErrUnimplemented, Unimplemented},
	{ErrInternal, Internal},
}

// Code returns the status code carried by err. Errors that were never marked
// map to Internal, and a nil error maps to Success.
func Code(err error) StatusCode {
	if err == nil {
		return Success
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return Internal
}

// Newf creates a new error carrying the status of sentinel.
func Newf(sentinel error, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinel)
}

// Wrapf annotates err with context and marks it with the status of sentinel.
func Wrapf(err error, sentinel error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), sentinel)
}

// IO marks err as a storage I/O failure.
func IO(err error, format string, args ...interface{}) error {
	return Wrapf(err, ErrIOError, format, args...)
}

// IsBenign reports whether a failure may be skipped by a statement batch.
func IsBenign(err error) bool {
	return Code(err) == Unimplemented
}
