package social

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T, names ...string) *Graph {
	t.Helper()
	g := NewGraph()
	for _, name := range names {
		require.NoError(t, g.AddUser(name, "en"))
	}
	return g
}

func TestAddUserDuplicate(t *testing.T) {
	g := newTestGraph(t, "alice")
	assert.ErrorIs(t, g.AddUser("alice", "it"), ErrNameTaken)
	assert.True(t, g.IsUser("alice"))
	assert.False(t, g.IsUser("bob"))
}

func TestFriendshipIsSymmetric(t *testing.T) {
	g := newTestGraph(t, "alice", "bob")

	require.NoError(t, g.AddFriendship("alice", "bob"))

	friends, err := g.AreFriends("alice", "bob")
	require.NoError(t, err)
	assert.True(t, friends)
	friends, err = g.AreFriends("bob", "alice")
	require.NoError(t, err)
	assert.True(t, friends)

	assert.ErrorIs(t, g.AddFriendship("alice", "bob"), ErrAlreadyFriends)
	assert.ErrorIs(t, g.AddFriendship("bob", "alice"), ErrAlreadyFriends)
}

func TestNoSelfFriendship(t *testing.T) {
	g := newTestGraph(t, "alice")
	assert.ErrorIs(t, g.AddFriendship("alice", "alice"), ErrAlreadyFriends)
}

func TestUnknownUsers(t *testing.T) {
	g := newTestGraph(t, "alice")

	_, err := g.AreFriends("alice", "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)
	assert.ErrorIs(t, g.AddFriendship("ghost", "alice"), ErrUnknownUser)
	_, err = g.Friends("ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = g.User("ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestFriendsListSorted(t *testing.T) {
	g := newTestGraph(t, "alice", "carol", "bob", "dave")
	require.NoError(t, g.AddFriendship("alice", "dave"))
	require.NoError(t, g.AddFriendship("alice", "bob"))
	require.NoError(t, g.AddFriendship("carol", "alice"))

	friends, err := g.Friends("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol", "dave"}, friends)

	friends, err = g.Friends("dave")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, friends)
}

func TestConcurrentFriendships(t *testing.T) {
	g := newTestGraph(t, "hub")
	const n = 32
	for i := 0; i < n; i++ {
		require.NoError(t, g.AddUser(fmt.Sprintf("user%02d", i), "en"))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user%02d", i)
			assert.NoError(t, g.AddFriendship("hub", name))
			// readers racing with writers must see consistent state
			_, err := g.AreFriends(name, "hub")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	friends, err := g.Friends("hub")
	require.NoError(t, err)
	assert.Len(t, friends, n)
}
