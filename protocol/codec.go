package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed reports an envelope that cannot be decoded: bad JSON, an
// unrecognized kind or operation code, or a missing mandatory field.
var ErrMalformed = errors.New("malformed message")

// envelope is the wire shape of a message. Pointer fields let Decode tell a
// missing key from a zero value.
type envelope struct {
	Type     *int     `json:"Type"`
	Sender   string   `json:"Sender"`
	Receiver string   `json:"Receiver"`
	ReqCode  *int     `json:"ReqCode,omitempty"`
	RespCode *int     `json:"RespCode,omitempty"`
	Target   *string  `json:"TargetUser,omitempty"`
	Room     *string  `json:"ChatName,omitempty"`
	Language *string  `json:"Language,omitempty"`
	Text     *string  `json:"textMessage,omitempty"`
	Body     *string  `json:"Message,omitempty"`
	List     *[]string `json:"List,omitempty"`
	Address  *string  `json:"Address,omitempty"`
	Port     *int     `json:"Port,omitempty"`
	IsOnline *bool    `json:"IsOnline,omitempty"`
}

// Encode serializes m into its JSON envelope. It fails with ErrMalformed if
// m lacks a field its operation requires.
func Encode(m *Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}

	kind := m.Kind
	env := envelope{Type: &kind, Sender: m.Sender, Receiver: m.Receiver}

	switch m.Kind {
	case KindRequest:
		op := int(m.Op)
		if !validOp(op) {
			return nil, fmt.Errorf("%w: unknown request code %d", ErrMalformed, op)
		}
		env.ReqCode = &op
		switch m.Op {
		case OpChatroomMessage:
			embedded, err := encodeEmbedded(m.Text)
			if err != nil {
				return nil, err
			}
			env.Text = &embedded
			env.Room = &m.Room
		case OpCreateChatroom, OpJoinChatroom, OpCloseChatroom:
			env.Room = &m.Room
		case OpMessageToFriend:
			embedded, err := encodeEmbedded(m.Text)
			if err != nil {
				return nil, err
			}
			env.Text = &embedded
			env.Target = &m.Target
		case OpFileToFriend, OpFriendship, OpLookup, OpOpenPeerConn:
			env.Target = &m.Target
		case OpRegister:
			env.Language = &m.Language
		case OpLogin, OpFriendList, OpChatroomList:
			// sender and receiver are enough
		}

	case KindResponse:
		op, status := int(m.Op), int(m.Status)
		if !validOp(op) || !validStatus(status) {
			return nil, fmt.Errorf("%w: unknown response codes %d/%d", ErrMalformed, op, status)
		}
		env.ReqCode = &op
		env.RespCode = &status
		if m.Status == StatusOK {
			switch m.Op {
			case OpFriendList, OpChatroomList:
				list := m.List
				if list == nil {
					list = []string{}
				}
				env.List = &list
			case OpOpenPeerConn, OpFileToFriend:
				env.Address = &m.Address
				env.Port = &m.Port
			case OpFriendship, OpLookup:
				online := m.Online
				env.IsOnline = &online
			case OpCreateChatroom, OpJoinChatroom:
				env.Address = &m.Address
			}
		}

	case KindText:
		body := m.Body
		env.Body = &body

	default:
		return nil, fmt.Errorf("%w: unknown message kind %d", ErrMalformed, m.Kind)
	}

	return json.Marshal(env)
}

func encodeEmbedded(text *Message) (string, error) {
	if text == nil || text.Kind != KindText {
		return "", fmt.Errorf("%w: missing embedded text message", ErrMalformed)
	}
	raw, err := Encode(text)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a JSON envelope back into a Message, failing with
// ErrMalformed when a mandatory field for the recognized operation is absent.
func Decode(data []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing kind", ErrMalformed)
	}

	m := &Message{Kind: *env.Type, Sender: env.Sender, Receiver: env.Receiver}

	switch m.Kind {
	case KindRequest:
		if env.ReqCode == nil || !validOp(*env.ReqCode) {
			return nil, fmt.Errorf("%w: bad request code", ErrMalformed)
		}
		m.Op = OpCode(*env.ReqCode)
		switch m.Op {
		case OpChatroomMessage:
			if env.Room == nil {
				return nil, fmt.Errorf("%w: request %d without room name", ErrMalformed, m.Op)
			}
			m.Room = *env.Room
			text, err := decodeEmbedded(env.Text)
			if err != nil {
				return nil, err
			}
			m.Text = text
		case OpCreateChatroom, OpJoinChatroom, OpCloseChatroom:
			if env.Room == nil {
				return nil, fmt.Errorf("%w: request %d without room name", ErrMalformed, m.Op)
			}
			m.Room = *env.Room
		case OpMessageToFriend:
			if env.Target == nil {
				return nil, fmt.Errorf("%w: request %d without target", ErrMalformed, m.Op)
			}
			m.Target = *env.Target
			text, err := decodeEmbedded(env.Text)
			if err != nil {
				return nil, err
			}
			m.Text = text
		case OpFileToFriend, OpFriendship, OpLookup, OpOpenPeerConn:
			if env.Target == nil {
				return nil, fmt.Errorf("%w: request %d without target", ErrMalformed, m.Op)
			}
			m.Target = *env.Target
		case OpRegister:
			if env.Language == nil {
				return nil, fmt.Errorf("%w: registration without language", ErrMalformed)
			}
			m.Language = *env.Language
		}

	case KindResponse:
		if env.ReqCode == nil || !validOp(*env.ReqCode) {
			return nil, fmt.Errorf("%w: bad request code", ErrMalformed)
		}
		if env.RespCode == nil || !validStatus(*env.RespCode) {
			return nil, fmt.Errorf("%w: bad status code", ErrMalformed)
		}
		m.Op = OpCode(*env.ReqCode)
		m.Status = Status(*env.RespCode)
		if m.Status == StatusOK {
			switch m.Op {
			case OpFriendList, OpChatroomList:
				if env.List == nil {
					return nil, fmt.Errorf("%w: listing ack without list", ErrMalformed)
				}
				m.List = *env.List
			case OpOpenPeerConn, OpFileToFriend:
				if env.Address == nil || env.Port == nil {
					return nil, fmt.Errorf("%w: peer ack without address", ErrMalformed)
				}
				m.Address = *env.Address
				m.Port = *env.Port
			case OpFriendship, OpLookup:
				if env.IsOnline == nil {
					return nil, fmt.Errorf("%w: lookup ack without online flag", ErrMalformed)
				}
				m.Online = *env.IsOnline
			case OpCreateChatroom, OpJoinChatroom:
				if env.Address == nil {
					return nil, fmt.Errorf("%w: room ack without address", ErrMalformed)
				}
				m.Address = *env.Address
			}
		}

	case KindText:
		if env.Body == nil {
			return nil, fmt.Errorf("%w: text without body", ErrMalformed)
		}
		m.Body = *env.Body

	default:
		return nil, fmt.Errorf("%w: unknown message kind %d", ErrMalformed, m.Kind)
	}

	return m, nil
}

func decodeEmbedded(raw *string) (*Message, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: missing embedded text message", ErrMalformed)
	}
	text, err := Decode([]byte(*raw))
	if err != nil {
		return nil, err
	}
	if text.Kind != KindText {
		return nil, fmt.Errorf("%w: embedded message is not text", ErrMalformed)
	}
	return text, nil
}
