package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/linkedseq"
	"github.com/hupe1980/linkedseq/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes lseqctl against dir and returns its stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--dir", dir, "--async"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "lseqctl %v", args)
	return out
}

func TestListCommands(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, "1 3\n", mustRun(t, dir, "push", "7", "1", "3"))
	assert.Equal(t, "1 2 3\n", mustRun(t, dir, "insert", "7", "1", "2"))
	assert.Equal(t, "3\n", mustRun(t, dir, "peek", "7"))
	assert.Equal(t, "1\n", mustRun(t, dir, "remove", "7", "0"))
	assert.Equal(t, "3\n", mustRun(t, dir, "pop", "7"))
	assert.Equal(t, "2\n", mustRun(t, dir, "values", "7"))

	mustRun(t, dir, "push", "2", "5")
	assert.Equal(t, "2\t1\n7\t1\n", mustRun(t, dir, "buckets"))
}

func TestOutOfBounds(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "push", "0", "1")

	_, err := run(t, dir, "insert", "0", "5", "9")
	require.ErrorIs(t, err, linkedseq.ErrIndexOutOfBounds)

	_, err = run(t, dir, "pop", "3")
	require.ErrorIs(t, err, linkedseq.ErrIndexOutOfBounds)

	assert.Equal(t, "1\n", mustRun(t, dir, "values", "0"))
}

func TestInvalidArguments(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{name: "negative bucket", args: []string{"push", "-1", "2"}},
		{name: "non numeric value", args: []string{"push", "1", "x"}},
		{name: "missing value", args: []string{"push", "1"}},
		{name: "extra argument", args: []string{"pop", "1", "2"}},
		{name: "unknown compression", args: []string{"--compression", "brotli", "values", "1"}},
		{name: "unknown store", args: []string{"--store", "ftp://host/x", "values", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dir, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestJSONOutput(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "push", "4", "10", "20")

	var vals valuesResult
	require.NoError(t, codec.Sonnet{}.Unmarshal([]byte(mustRun(t, dir, "--json", "values", "4")), &vals))
	assert.Equal(t, valuesResult{Bucket: 4, Len: 2, Values: []uint64{10, 20}}, vals)

	var popped valueResult
	require.NoError(t, codec.Sonnet{}.Unmarshal([]byte(mustRun(t, dir, "--json", "pop", "4")), &popped))
	assert.Equal(t, valueResult{Bucket: 4, Value: 20}, popped)

	var st statsResult
	require.NoError(t, codec.Sonnet{}.Unmarshal([]byte(mustRun(t, dir, "--json", "stats")), &st))
	assert.Equal(t, uint64(3), st.LSN)
	assert.Equal(t, uint64(1), st.Live)
	assert.Equal(t, uint64(1), st.Free)
}

func TestCheckpointAndVerify(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "push", "1", "1", "2", "3")

	var cp checkpointResult
	require.NoError(t, codec.Sonnet{}.Unmarshal([]byte(mustRun(t, dir, "--json", "checkpoint")), &cp))
	assert.Equal(t, uint64(3), cp.LSN)
	assert.FileExists(t, filepath.Join(dir, "blobs", filepath.FromSlash(cp.Snapshot)))

	mustRun(t, dir, "push", "1", "4")

	var st statsResult
	require.NoError(t, codec.Sonnet{}.Unmarshal([]byte(mustRun(t, dir, "--json", "stats")), &st))
	assert.Equal(t, uint64(4), st.LSN)
	assert.Equal(t, uint64(3), st.CheckpointLSN)
	assert.Equal(t, uint64(1), st.SinceCheckpoint)

	assert.Equal(t, "ok\n", mustRun(t, dir, "verify"))
	assert.Equal(t, "1 2 3 4\n", mustRun(t, dir, "values", "1"))
}

func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	store := "sqlite://" + filepath.Join(dir, "blobs.db")

	mustRun(t, dir, "--store", store, "push", "9", "1", "2")
	mustRun(t, dir, "--store", store, "checkpoint")

	// checkpoint truncated the log, so the values come from the database
	assert.Equal(t, "1 2\n", mustRun(t, dir, "--store", store, "values", "9"))
	assert.NoFileExists(t, filepath.Join(dir, "blobs", "CURRENT"))
}
