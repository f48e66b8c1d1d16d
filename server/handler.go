package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/socialgossip/gossipd/protocol"
	"github.com/socialgossip/gossipd/room"
	"github.com/socialgossip/gossipd/session"
	"github.com/socialgossip/gossipd/social"
	"github.com/socialgossip/gossipd/translate"
)

// Handler implements the per-operation contracts of the chat service. It
// owns no connection state of its own: everything lives in the graph, the
// room registry and the session table, all safe for concurrent workers.
type Handler struct {
	graph      *social.Graph
	rooms      *room.Registry
	sessions   *session.Table
	translator translate.Translator

	// ackTimeout bounds the wait for a peer's listener address during the
	// file-transfer handshake.
	ackTimeout time.Duration
}

// NewHandler wires the request handler to the shared state.
func NewHandler(graph *social.Graph, rooms *room.Registry, sessions *session.Table,
	translator translate.Translator, ackTimeout time.Duration) *Handler {
	return &Handler{
		graph:      graph,
		rooms:      rooms,
		sessions:   sessions,
		translator: translator,
		ackTimeout: ackTimeout,
	}
}

// Dispatch services one decoded request and returns the response to send on
// the control channel, or nil when the request warrants no answer.
func (h *Handler) Dispatch(control, message net.Conn, req *protocol.Message) *protocol.Message {
	switch req.Op {
	case protocol.OpRegister:
		return h.register(req.Sender, req.Language, control, message)
	case protocol.OpLogin:
		return h.login(req.Sender, control, message)
	case protocol.OpLookup:
		return h.lookup(req.Sender, req.Target)
	case protocol.OpFriendship:
		return h.friendship(req.Sender, req.Target)
	case protocol.OpFriendList:
		return h.friendList(req.Sender)
	case protocol.OpFileToFriend:
		return h.fileToFriend(req.Sender, req.Target)
	case protocol.OpMessageToFriend:
		return h.messageToFriend(req.Text)
	case protocol.OpChatroomMessage:
		return h.chatroomMessage(req.Room, req.Text)
	case protocol.OpCreateChatroom:
		return h.createChatroom(req.Sender, req.Room)
	case protocol.OpJoinChatroom:
		return h.joinChatroom(req.Sender, req.Room)
	case protocol.OpChatroomList:
		return h.chatroomList(req.Sender)
	case protocol.OpCloseChatroom:
		return h.closeChatroom(req.Sender, req.Room)
	case protocol.OpOpenPeerConn:
		// peer-only request, never answered on a control channel
		log.Warn().Str("user", req.Sender).Msg("ignoring open-peer-connection on control channel")
		return nil
	default:
		return protocol.ErrorResponse(protocol.StatusFail, req.Op, req.Sender)
	}
}

func (h *Handler) register(name, language string, control, message net.Conn) *protocol.Message {
	if name == "" || name == protocol.ServerName {
		return protocol.ErrorResponse(protocol.StatusNameTaken, protocol.OpRegister, name)
	}
	if err := h.graph.AddUser(name, social.NormalizeLanguage(language)); err != nil {
		return protocol.ErrorResponse(protocol.StatusNameTaken, protocol.OpRegister, name)
	}

	// a fresh user has no friends yet, so nobody to notify
	h.sessions.Put(session.New(name, control, message))
	log.Info().Str("user", name).Msg("registered")
	return protocol.Ack(name, protocol.OpRegister)
}

func (h *Handler) login(name string, control, message net.Conn) *protocol.Message {
	friends, err := h.graph.Friends(name)
	if err != nil {
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpLogin, name)
	}

	prev := h.sessions.Put(session.New(name, control, message))
	if prev != nil {
		// reconnect: evict the stale session without a second fan-out
		log.Info().Str("user", name).Msg("re-login, replacing session")
		return protocol.Ack(name, protocol.OpLogin)
	}

	h.notifyFriends(name, friends, true)
	log.Info().Str("user", name).Int("friends", len(friends)).Msg("logged in")
	return protocol.Ack(name, protocol.OpLogin)
}

func (h *Handler) lookup(sender, target string) *protocol.Message {
	if !h.graph.IsUser(target) {
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpLookup, sender)
	}
	return protocol.OnlineAck(sender, protocol.OpLookup, h.sessions.Online(target))
}

func (h *Handler) friendship(sender, target string) *protocol.Message {
	if err := h.graph.AddFriendship(sender, target); err != nil {
		switch {
		case errors.Is(err, social.ErrAlreadyFriends):
			return protocol.ErrorResponse(protocol.StatusAlreadyFriends, protocol.OpFriendship, sender)
		case errors.Is(err, social.ErrUnknownUser):
			return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpFriendship, sender)
		default:
			return protocol.ErrorResponse(protocol.StatusFail, protocol.OpFriendship, sender)
		}
	}

	online := false
	if sess, ok := h.sessions.Get(target); ok {
		online = true
		if err := sess.Push(statusNotice(target, sender, true)); err != nil {
			log.Warn().Str("user", target).Err(err).Msg("friendship notification failed")
		}
	}
	return protocol.OnlineAck(sender, protocol.OpFriendship, online)
}

func (h *Handler) friendList(sender string) *protocol.Message {
	friends, err := h.graph.Friends(sender)
	if err != nil {
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpFriendList, sender)
	}
	return protocol.ListAck(sender, protocol.OpFriendList, friends)
}

func (h *Handler) messageToFriend(text *protocol.Message) *protocol.Message {
	sender, receiver := text.Sender, text.Receiver

	friends, err := h.graph.AreFriends(sender, receiver)
	if err != nil {
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpMessageToFriend, sender)
	}
	if !friends {
		return protocol.ErrorResponse(protocol.StatusNotAFriend, protocol.OpMessageToFriend, sender)
	}

	sess, ok := h.sessions.Get(receiver)
	if !ok {
		return protocol.ErrorResponse(protocol.StatusUserOffline, protocol.OpMessageToFriend, sender)
	}

	from, _ := h.graph.User(sender)
	to, _ := h.graph.User(receiver)
	delivered := *text
	if translated, err := h.translator.Translate(text.Body, from.Language, to.Language); err != nil {
		// deliver untranslated rather than fail the message
		log.Warn().Str("from", from.Language).Str("to", to.Language).Err(err).
			Msg("translation failed, forwarding original text")
	} else {
		delivered.Body = translated
	}

	if err := sess.Push(&delivered); err != nil {
		// the idle-detection path will reap the dead session later
		log.Warn().Str("user", receiver).Err(err).Msg("message push failed")
		return protocol.ErrorResponse(protocol.StatusUserOffline, protocol.OpMessageToFriend, sender)
	}
	return protocol.Ack(sender, protocol.OpMessageToFriend)
}

func (h *Handler) fileToFriend(sender, target string) *protocol.Message {
	friends, err := h.graph.AreFriends(sender, target)
	if err != nil {
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpFileToFriend, sender)
	}
	if !friends {
		return protocol.ErrorResponse(protocol.StatusNotAFriend, protocol.OpFileToFriend, sender)
	}

	sess, ok := h.sessions.Get(target)
	if !ok {
		return protocol.ErrorResponse(protocol.StatusUserOffline, protocol.OpFileToFriend, sender)
	}

	ack, err := sess.Exchange(protocol.NewOpenPeerConn(sender, target), h.ackTimeout)
	if err != nil {
		log.Warn().Str("user", target).Err(err).Msg("peer handshake failed")
		if errors.Is(err, protocol.ErrMalformed) {
			return protocol.ErrorResponse(protocol.StatusFail, protocol.OpFileToFriend, sender)
		}
		return protocol.ErrorResponse(protocol.StatusUserOffline, protocol.OpFileToFriend, sender)
	}
	if ack.Kind != protocol.KindResponse || ack.Status != protocol.StatusOK || ack.Address == "" {
		return protocol.ErrorResponse(protocol.StatusFail, protocol.OpFileToFriend, sender)
	}

	return protocol.PeerAck(protocol.ServerName, sender, protocol.OpFileToFriend, ack.Address, ack.Port)
}

func (h *Handler) chatroomMessage(roomName string, text *protocol.Message) *protocol.Message {
	sender := text.Sender
	payload, err := protocol.Encode(text)
	if err != nil {
		return protocol.ErrorResponse(protocol.StatusFail, protocol.OpChatroomMessage, sender)
	}

	if err := h.rooms.Broadcast(roomName, sender, payload); err != nil {
		switch {
		case errors.Is(err, room.ErrUnknownRoom):
			return protocol.ErrorResponse(protocol.StatusUnknownRoom, protocol.OpChatroomMessage, sender)
		case errors.Is(err, room.ErrNotMember):
			return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpChatroomMessage, sender)
		case errors.Is(err, room.ErrNoOneOnline):
			return protocol.ErrorResponse(protocol.StatusNoOneOnline, protocol.OpChatroomMessage, sender)
		default:
			log.Warn().Str("room", roomName).Err(err).Msg("room broadcast failed")
			return protocol.ErrorResponse(protocol.StatusFail, protocol.OpChatroomMessage, sender)
		}
	}
	return protocol.Ack(sender, protocol.OpChatroomMessage)
}

func (h *Handler) createChatroom(sender, roomName string) *protocol.Message {
	if !h.graph.IsUser(sender) {
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpCreateChatroom, sender)
	}
	group, err := h.rooms.Create(roomName, sender)
	if err != nil {
		return protocol.ErrorResponse(protocol.StatusNameTaken, protocol.OpCreateChatroom, sender)
	}
	return protocol.RoomAck(sender, protocol.OpCreateChatroom, group.String())
}

func (h *Handler) joinChatroom(sender, roomName string) *protocol.Message {
	if !h.graph.IsUser(sender) {
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpJoinChatroom, sender)
	}
	group, err := h.rooms.Join(roomName, sender)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrUnknownRoom):
			return protocol.ErrorResponse(protocol.StatusUnknownRoom, protocol.OpJoinChatroom, sender)
		case errors.Is(err, room.ErrAlreadyMember):
			return protocol.ErrorResponse(protocol.StatusAlreadyInRoom, protocol.OpJoinChatroom, sender)
		default:
			return protocol.ErrorResponse(protocol.StatusFail, protocol.OpJoinChatroom, sender)
		}
	}
	return protocol.RoomAck(sender, protocol.OpJoinChatroom, group.String())
}

func (h *Handler) chatroomList(sender string) *protocol.Message {
	if !h.graph.IsUser(sender) {
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpChatroomList, sender)
	}
	listings := h.rooms.List(sender)
	entries := make([]string, 0, len(listings))
	for _, l := range listings {
		if l.Member {
			entries = append(entries, l.Name+"/Y")
		} else {
			entries = append(entries, l.Name+"/N")
		}
	}
	return protocol.ListAck(sender, protocol.OpChatroomList, entries)
}

func (h *Handler) closeChatroom(sender, roomName string) *protocol.Message {
	if err := h.rooms.Close(roomName, sender); err != nil {
		if errors.Is(err, room.ErrUnknownRoom) {
			return protocol.ErrorResponse(protocol.StatusUnknownRoom, protocol.OpCloseChatroom, sender)
		}
		return protocol.ErrorResponse(protocol.StatusUnknownUser, protocol.OpCloseChatroom, sender)
	}
	return protocol.Ack(sender, protocol.OpCloseChatroom)
}

// Disconnect tears down the session owning conn as its control channel:
// every online friend hears "now offline", then the session is dropped.
// Best-effort throughout; a failed push to one friend never stops the rest.
func (h *Handler) Disconnect(conn net.Conn) {
	sess, ok := h.sessions.FindByControl(conn)
	if !ok {
		return
	}

	friends, err := h.graph.Friends(sess.Username)
	if err == nil {
		h.notifyFriends(sess.Username, friends, false)
	}
	h.sessions.Remove(sess.Username, sess.ID)
	log.Info().Str("user", sess.Username).Msg("session closed")
}

// notifyFriends pushes a status notice to every friend currently online.
func (h *Handler) notifyFriends(name string, friends []string, online bool) {
	for _, friend := range friends {
		sess, ok := h.sessions.Get(friend)
		if !ok {
			continue
		}
		if err := sess.Push(statusNotice(friend, name, online)); err != nil {
			log.Warn().Str("user", friend).Err(err).Msg("status notification failed")
		}
	}
}

// statusNotice is the Text envelope that replaces the original remote
// callback: pushed from the server over the friend's message channel.
func statusNotice(to, about string, online bool) *protocol.Message {
	state := "offline"
	if online {
		state = "online"
	}
	return protocol.NewText(protocol.ServerName, to, fmt.Sprintf("%s is now %s", about, state))
}
