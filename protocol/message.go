package protocol

// Message kinds carried in the Type field of every envelope.
const (
	KindRequest  = 0
	KindResponse = 1
	KindText     = 2
)

// ServerName is the reserved sender/receiver name used by the server itself.
// No user may register under it.
const ServerName = "Server"

// OpCode identifies the operation a Request asks for, or the request a
// Response answers.
type OpCode int

const (
	OpRegister        OpCode = 100
	OpLogin           OpCode = 101
	OpLookup          OpCode = 102
	OpFriendship      OpCode = 103
	OpFriendList      OpCode = 104
	OpFileToFriend    OpCode = 105
	OpMessageToFriend OpCode = 106
	OpChatroomMessage OpCode = 107
	OpCreateChatroom  OpCode = 108
	OpJoinChatroom    OpCode = 109
	OpChatroomList    OpCode = 110
	OpCloseChatroom   OpCode = 111

	// OpOpenPeerConn is only ever sent by the server to the receiving peer
	// of a file transfer, over its message channel.
	OpOpenPeerConn OpCode = 300
)

func validOp(code int) bool {
	return (code >= int(OpRegister) && code <= int(OpCloseChatroom)) || code == int(OpOpenPeerConn)
}

// Status is the outcome code of a Response.
type Status int

const (
	StatusOK                   Status = 200
	StatusNameTaken            Status = 201
	StatusUnknownUser          Status = 202
	StatusLanguageNotSupported Status = 203
	StatusFail                 Status = 204
	StatusUserOffline          Status = 205
	StatusAlreadyOnline        Status = 206
	StatusNotAFriend           Status = 207
	StatusAlreadyFriends       Status = 208
	StatusAlreadyInRoom        Status = 209
	StatusNoOneOnline          Status = 210
	StatusUnknownRoom          Status = 211
)

func validStatus(code int) bool {
	return code >= int(StatusOK) && code <= int(StatusUnknownRoom)
}

// Message is the in-memory form of every envelope on the wire. Which fields
// are meaningful depends on Kind and, for requests and responses, on Op.
type Message struct {
	Kind     int
	Sender   string
	Receiver string

	// Request and Response.
	Op OpCode

	// Response only.
	Status Status

	// Text only.
	Body string

	// Operation specific.
	Target   string   // target username (lookup, friendship, file transfer)
	Room     string   // chat room name
	Language string   // registration language
	Text     *Message // embedded Text message (direct and room messages)
	List     []string // friend or room listings
	Address  string   // peer or multicast address
	Port     int      // peer listener port
	Online   bool     // lookup/friendship online flag
}

// NewText builds a Text message.
func NewText(sender, receiver, body string) *Message {
	return &Message{Kind: KindText, Sender: sender, Receiver: receiver, Body: body}
}

// NewRegister builds a registration request for the given language.
func NewRegister(sender, language string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpRegister, Language: language}
}

// NewLogin builds a login request.
func NewLogin(sender string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpLogin}
}

// NewLookup builds a lookup request for target.
func NewLookup(sender, target string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpLookup, Target: target}
}

// NewFriendship builds a friendship request toward target.
func NewFriendship(sender, target string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpFriendship, Target: target}
}

// NewFriendList builds a friend-list request.
func NewFriendList(sender string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpFriendList}
}

// NewFileToFriend builds a file transfer request toward target.
func NewFileToFriend(sender, target string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpFileToFriend, Target: target}
}

// NewMessageToFriend wraps a Text message in a direct-message request.
func NewMessageToFriend(text *Message) *Message {
	return &Message{Kind: KindRequest, Sender: text.Sender, Receiver: ServerName,
		Op: OpMessageToFriend, Target: text.Receiver, Text: text}
}

// NewChatroomMessage wraps a Text message in a room-broadcast request.
func NewChatroomMessage(room string, text *Message) *Message {
	return &Message{Kind: KindRequest, Sender: text.Sender, Receiver: ServerName,
		Op: OpChatroomMessage, Room: room, Text: text}
}

// NewCreateChatroom builds a room creation request.
func NewCreateChatroom(sender, room string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpCreateChatroom, Room: room}
}

// NewJoinChatroom builds a room join request.
func NewJoinChatroom(sender, room string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpJoinChatroom, Room: room}
}

// NewChatroomList builds a room listing request.
func NewChatroomList(sender string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpChatroomList}
}

// NewCloseChatroom builds a room closing request.
func NewCloseChatroom(sender, room string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: ServerName, Op: OpCloseChatroom, Room: room}
}

// NewOpenPeerConn builds the server-to-peer request that asks receiver to
// open a private listener for a file transfer initiated by sender.
func NewOpenPeerConn(sender, receiver string) *Message {
	return &Message{Kind: KindRequest, Sender: sender, Receiver: receiver, Op: OpOpenPeerConn, Target: receiver}
}

// Ack builds a plain positive response to op.
func Ack(receiver string, op OpCode) *Message {
	return &Message{Kind: KindResponse, Sender: ServerName, Receiver: receiver, Op: op, Status: StatusOK}
}

// ErrorResponse builds a negative response carrying status.
func ErrorResponse(status Status, op OpCode, receiver string) *Message {
	return &Message{Kind: KindResponse, Sender: ServerName, Receiver: receiver, Op: op, Status: status}
}

// ListAck builds a positive response carrying a listing.
func ListAck(receiver string, op OpCode, list []string) *Message {
	return &Message{Kind: KindResponse, Sender: ServerName, Receiver: receiver, Op: op, Status: StatusOK, List: list}
}

// OnlineAck builds a positive response carrying the online flag.
func OnlineAck(receiver string, op OpCode, online bool) *Message {
	return &Message{Kind: KindResponse, Sender: ServerName, Receiver: receiver, Op: op, Status: StatusOK, Online: online}
}

// PeerAck builds a positive response carrying a peer listener address.
func PeerAck(sender, receiver string, op OpCode, address string, port int) *Message {
	return &Message{Kind: KindResponse, Sender: sender, Receiver: receiver, Op: op,
		Status: StatusOK, Address: address, Port: port}
}

// RoomAck builds a positive response carrying a room multicast address.
func RoomAck(receiver string, op OpCode, address string) *Message {
	return &Message{Kind: KindResponse, Sender: ServerName, Receiver: receiver, Op: op,
		Status: StatusOK, Address: address}
}
