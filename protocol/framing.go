package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Wire framing: every envelope is preceded by a line carrying its decimal
// byte length. The length is advisory — a mismatch with the actual payload
// is logged and decoding proceeds against the content that arrived.

// WriteMessage encodes m and writes its length line followed by the
// envelope itself.
func WriteMessage(w io.Writer, m *Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%d\n%s\n", len(data), data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// ReadMessage reads one framed envelope from r and decodes it. Transport
// errors (including deadline expiry) are returned as-is; decode failures
// wrap ErrMalformed.
func ReadMessage(r *bufio.Reader) (*Message, error) {
	sizeLine, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	size, err := strconv.Atoi(strings.TrimSpace(sizeLine))
	if err != nil {
		return nil, fmt.Errorf("%w: bad length line %q", ErrMalformed, strings.TrimSpace(sizeLine))
	}

	payload, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	payload = strings.TrimRight(payload, "\r\n")

	if size != len(payload) {
		log.Warn().Int("declared", size).Int("actual", len(payload)).
			Msg("message length mismatch, decoding anyway")
	}
	return Decode([]byte(payload))
}
