package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadMessage(t *testing.T) {
	var buf bytes.Buffer
	sent := NewLookup("alice", "bob")
	require.NoError(t, WriteMessage(&buf, sent))

	got, err := ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, sent, got)
}

func TestReadMessageSequence(t *testing.T) {
	var buf bytes.Buffer
	first := NewRegister("alice", "Italiano")
	second := NewText("alice", "bob", "ciao")
	require.NoError(t, WriteMessage(&buf, first))
	require.NoError(t, WriteMessage(&buf, second))

	r := bufio.NewReader(&buf)
	got, err := ReadMessage(r)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	got, err = ReadMessage(r)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestReadMessageToleratesLengthMismatch(t *testing.T) {
	data, err := Encode(NewLogin("alice"))
	require.NoError(t, err)

	// declared length off by a wide margin: logged, not fatal
	framed := fmt.Sprintf("%d\n%s\n", len(data)+40, data)
	got, err := ReadMessage(bufio.NewReader(bytes.NewBufferString(framed)))
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Sender)
	assert.Equal(t, OpLogin, got.Op)
}

func TestReadMessageRejectsBadLengthLine(t *testing.T) {
	_, err := ReadMessage(bufio.NewReader(bytes.NewBufferString("not-a-number\n{}\n")))
	assert.ErrorIs(t, err, ErrMalformed)
}
