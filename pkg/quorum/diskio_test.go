package quorum

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileDiskFormatsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk")
	d, err := OpenFileDisk(path, 512, 4)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, 512, d.BlockSize())

	sb, err := d.ReadBlock(1)
	require.NoError(t, err)
	assert.Equal(t, StateNone, sb.State)
}

func TestFileDiskIOWriteThenReadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk")
	d, err := OpenFileDisk(path, 512, 4)
	require.NoError(t, err)
	defer d.Close()

	want := StatusBlock{NodeID: 2, State: StateRun, Incarnation: 99, Timestamp: 12345}
	require.NoError(t, d.WriteBlock(want))

	got, err := d.ReadBlock(2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpenFileDiskReopenValidatesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk")
	d1, err := OpenFileDisk(path, 512, 4)
	require.NoError(t, err)
	require.NoError(t, d1.Close())

	d2, err := OpenFileDisk(path, 512, 4)
	require.NoError(t, err)
	defer d2.Close()
}

func TestOpenFileDiskRejectsMismatchedBlockSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk")
	d1, err := OpenFileDisk(path, 512, 4)
	require.NoError(t, err)
	require.NoError(t, d1.Close())

	_, err = OpenFileDisk(path, 1024, 4)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestOpenFileDiskRejectsZeroBlockSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk")
	_, err := OpenFileDisk(path, 0, 4)
	assert.Error(t, err)
}
