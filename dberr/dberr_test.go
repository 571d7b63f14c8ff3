package dberr

import (
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestCode_Sentinels(t *testing.T) {
	assert.Equal(t, Success, Code(nil))
	assert.Equal(t, SchemaFieldNotExist, Code(ErrSchemaFieldNotExist))
	assert.Equal(t, Internal, Code(errors.New("boom")))
}

func TestCode_SurvivesWrapping(t *testing.T) {
	err := Newf(ErrRecordDuplicateKey, "key %d already present in index %s", 7, "idx_id")
	err = errors.Wrap(err, "insert into orders")
	err = errors.Wrapf(err, "statement %d", 3)

	assert.Equal(t, RecordDuplicateKey, Code(err))
	assert.Contains(t, err.Error(), "idx_id")
	assert.Equal(t, "RECORD_DUPLICATE_KEY", Code(err).String())
}

func TestWrapf_KeepsCause(t *testing.T) {
	err := IO(os.ErrPermission, "create %s", "orders.table")

	assert.Equal(t, IOError, Code(err))
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestIsBenign(t *testing.T) {
	assert.True(t, IsBenign(Newf(ErrUnimplemented, "statement %s", "SHOW")))
	assert.False(t, IsBenign(ErrInvalidArgument))
	assert.Equal(t, "UNKNOWN", StatusCode(99).String())
}
