package session

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialgossip/gossipd/protocol"
)

func readOne(conn net.Conn) (*protocol.Message, error) {
	return protocol.ReadMessage(bufio.NewReader(conn))
}

func pipeSession(t *testing.T, username string) (*Session, net.Conn, net.Conn) {
	t.Helper()
	control, controlPeer := net.Pipe()
	message, messagePeer := net.Pipe()
	t.Cleanup(func() {
		controlPeer.Close()
		messagePeer.Close()
	})
	return New(username, control, message), controlPeer, messagePeer
}

func TestPutReplacesPrevious(t *testing.T) {
	table := NewTable()
	first, _, _ := pipeSession(t, "alice")
	second, _, _ := pipeSession(t, "alice")

	assert.Nil(t, table.Put(first))
	assert.Same(t, first, table.Put(second))

	got, ok := table.Get("alice")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.True(t, table.Online("alice"))
	assert.False(t, table.Online("bob"))
}

func TestFindByControl(t *testing.T) {
	table := NewTable()
	alice, _, _ := pipeSession(t, "alice")
	bob, _, _ := pipeSession(t, "bob")
	table.Put(alice)
	table.Put(bob)

	got, ok := table.FindByControl(bob.ControlConn())
	require.True(t, ok)
	assert.Same(t, bob, got)

	stray, strayPeer := net.Pipe()
	defer stray.Close()
	defer strayPeer.Close()
	_, ok = table.FindByControl(stray)
	assert.False(t, ok)
}

func TestRemoveOnlyMatchingID(t *testing.T) {
	table := NewTable()
	stale, _, _ := pipeSession(t, "alice")
	table.Put(stale)

	fresh, _, _ := pipeSession(t, "alice")
	table.Put(fresh)

	// teardown of the stale session must not evict the fresh one
	table.Remove("alice", stale.ID)
	assert.True(t, table.Online("alice"))

	table.Remove("alice", fresh.ID)
	assert.False(t, table.Online("alice"))
}

func TestPushReachesMessageChannel(t *testing.T) {
	sess, _, messagePeer := pipeSession(t, "bob")
	table := NewTable()
	table.Put(sess)

	received := make(chan *protocol.Message, 1)
	go func() {
		m, err := readOne(messagePeer)
		if err == nil {
			received <- m
		}
	}()

	require.NoError(t, sess.Push(protocol.NewText(protocol.ServerName, "bob", "alice is now online")))
	select {
	case m := <-received:
		assert.Equal(t, protocol.KindText, m.Kind)
		assert.Equal(t, "alice is now online", m.Body)
	case <-time.After(time.Second):
		t.Fatal("push never arrived")
	}
}

func TestExchangeTimesOut(t *testing.T) {
	sess, _, messagePeer := pipeSession(t, "bob")

	// peer consumes the request but never answers
	go func() {
		readOne(messagePeer)
	}()

	_, err := sess.Exchange(protocol.NewOpenPeerConn("alice", "bob"), 50*time.Millisecond)
	require.Error(t, err)
	var netErr net.Error
	assert.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestExchangeReturnsReply(t *testing.T) {
	sess, _, messagePeer := pipeSession(t, "bob")

	go func() {
		if _, err := readOne(messagePeer); err != nil {
			return
		}
		protocol.WriteMessage(messagePeer, protocol.PeerAck("bob", protocol.ServerName,
			protocol.OpOpenPeerConn, "10.1.2.3", 9000))
	}()

	reply, err := sess.Exchange(protocol.NewOpenPeerConn("alice", "bob"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindResponse, reply.Kind)
	assert.Equal(t, "10.1.2.3", reply.Address)
	assert.Equal(t, 9000, reply.Port)
}
