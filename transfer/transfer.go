// Package transfer implements the direct client-to-client file exchange
// that follows a successful file-transfer handshake. The server never sees
// these bytes.
//
// Layout, all integers big-endian: 8-byte filename length, filename bytes,
// 8-byte content length, content bytes.
package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxNameLen bounds the filename record so a broken peer cannot make the
// receiver allocate an absurd buffer.
const MaxNameLen = 4096

// ErrBadName reports a filename record that is empty, oversized, or tries
// to escape the download directory.
var ErrBadName = errors.New("invalid transfer filename")

// Send writes one file record to w: the base name of path, then its
// content.
func Send(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("send file: %w", err)
	}

	name := filepath.Base(path)
	if err := binary.Write(w, binary.BigEndian, uint64(len(name))); err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	if _, err := io.WriteString(w, name); err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint64(info.Size())); err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	if _, err := io.CopyN(w, file, info.Size()); err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	return nil
}

// Receive reads one file record from r and writes it under dir, returning
// the path of the stored file.
func Receive(r io.Reader, dir string) (string, error) {
	var nameLen uint64
	if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
		return "", fmt.Errorf("receive file: %w", err)
	}
	if nameLen == 0 || nameLen > MaxNameLen {
		return "", fmt.Errorf("%w: length %d", ErrBadName, nameLen)
	}

	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return "", fmt.Errorf("receive file: %w", err)
	}
	name := string(nameBytes)
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}

	var size uint64
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return "", fmt.Errorf("receive file: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("receive file: %w", err)
	}
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("receive file: %w", err)
	}
	defer file.Close()

	if _, err := io.CopyN(file, r, int64(size)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("receive file: %w", err)
	}
	return path, nil
}
