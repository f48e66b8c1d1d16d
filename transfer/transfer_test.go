package transfer

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "note.txt")
	content := []byte("ciao bob, ecco il file\n")
	require.NoError(t, os.WriteFile(src, content, 0o644))

	var wire bytes.Buffer
	require.NoError(t, Send(&wire, src))

	dir := t.TempDir()
	stored, err := Receive(&wire, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "note.txt"), stored)

	got, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSendEmptyFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	var wire bytes.Buffer
	require.NoError(t, Send(&wire, src))

	stored, err := Receive(&wire, t.TempDir())
	require.NoError(t, err)
	got, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReceiveRejectsEscapingName(t *testing.T) {
	var wire bytes.Buffer
	name := "../evil"
	binary.Write(&wire, binary.BigEndian, uint64(len(name)))
	wire.WriteString(name)
	binary.Write(&wire, binary.BigEndian, uint64(0))

	_, err := Receive(&wire, t.TempDir())
	assert.ErrorIs(t, err, ErrBadName)
}

func TestReceiveRejectsOversizedName(t *testing.T) {
	var wire bytes.Buffer
	binary.Write(&wire, binary.BigEndian, uint64(MaxNameLen+1))

	_, err := Receive(&wire, t.TempDir())
	assert.ErrorIs(t, err, ErrBadName)
}

func TestReceiveTruncatedContent(t *testing.T) {
	var wire bytes.Buffer
	name := "cut.bin"
	binary.Write(&wire, binary.BigEndian, uint64(len(name)))
	wire.WriteString(name)
	binary.Write(&wire, binary.BigEndian, uint64(100))
	wire.WriteString("only a few bytes")

	dir := t.TempDir()
	_, err := Receive(&wire, dir)
	require.Error(t, err)

	// partial file must not be left behind
	_, statErr := os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(statErr))
}
