package wal

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_EncodeDecode(t *testing.T) {
	rec := &Record{LSN: 42, Type: RecordTypeInsertAt, Bucket: 3, Index: 9, Value: 1 << 63}

	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf))
	assert.Equal(t, RecordSize, buf.Len())
	assert.Equal(t, RecordSize, rec.Size())

	got, n, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(RecordSize), n)
	assert.Equal(t, rec, got)

	_, _, err = Decode(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecord_DecodeErrors(t *testing.T) {
	encode := func(r *Record) []byte {
		var buf bytes.Buffer
		require.NoError(t, r.Encode(&buf))
		return buf.Bytes()
	}

	t.Run("short", func(t *testing.T) {
		data := encode(&Record{Type: RecordTypePush})
		_, _, err := Decode(bytes.NewReader(data[:RecordSize-1]))
		assert.ErrorIs(t, err, ErrShortRead)

		_, _, err = Decode(bytes.NewReader(data[:3]))
		assert.ErrorIs(t, err, ErrShortRead)
	})

	t.Run("checksum", func(t *testing.T) {
		data := encode(&Record{Type: RecordTypePush, Value: 1})
		data[RecordSize-1] ^= 0x01
		_, _, err := Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidCRC)
	})

	t.Run("type", func(t *testing.T) {
		data := encode(&Record{Type: RecordType(77)})
		_, _, err := Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidType)
	})

	t.Run("length", func(t *testing.T) {
		data := encode(&Record{Type: RecordTypePop})
		data[13] = 0xff
		_, _, err := Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrRecordTooLarge)
	})
}

func TestRecordType_String(t *testing.T) {
	assert.Equal(t, "push", RecordTypePush.String())
	assert.Equal(t, "insert_at", RecordTypeInsertAt.String())
	assert.Equal(t, "remove_at", RecordTypeRemoveAt.String())
	assert.Equal(t, "pop", RecordTypePop.String())
	assert.Equal(t, "unknown(9)", RecordType(9).String())
}
