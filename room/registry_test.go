package room

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresence map[string]bool

func (p fakePresence) Online(username string) bool { return p[username] }

type recordingPublisher struct {
	mu       sync.Mutex
	groups   []net.IP
	payloads [][]byte
}

func (r *recordingPublisher) Publish(group net.IP, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, group)
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

func newTestRegistry(t *testing.T, presence Presence, pub Publisher) *Registry {
	t.Helper()
	if presence == nil {
		presence = fakePresence{}
	}
	if pub == nil {
		pub = &recordingPublisher{}
	}
	r, err := NewRegistry("225.0.0.0", presence, pub)
	require.NoError(t, err)
	return r
}

func TestCreateAllocatesIncrementingAddresses(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	first, err := r.Create("general", "alice")
	require.NoError(t, err)
	second, err := r.Create("random", "alice")
	require.NoError(t, err)

	assert.Equal(t, "225.0.0.0", first.String())
	assert.Equal(t, "225.0.0.1", second.String())

	_, err = r.Create("general", "bob")
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestJoinAndList(t *testing.T) {
	r := newTestRegistry(t, nil, nil)
	_, err := r.Create("general", "alice")
	require.NoError(t, err)
	_, err = r.Create("random", "carol")
	require.NoError(t, err)

	group, err := r.Join("general", "bob")
	require.NoError(t, err)
	assert.Equal(t, "225.0.0.0", group.String())

	_, err = r.Join("general", "bob")
	assert.ErrorIs(t, err, ErrAlreadyMember)
	_, err = r.Join("nowhere", "bob")
	assert.ErrorIs(t, err, ErrUnknownRoom)

	assert.Equal(t, []Listing{
		{Name: "general", Member: true},
		{Name: "random", Member: false},
	}, r.List("bob"))
}

func TestCloseRequiresMembership(t *testing.T) {
	r := newTestRegistry(t, nil, nil)
	_, err := r.Create("general", "alice")
	require.NoError(t, err)
	_, err = r.Join("general", "bob")
	require.NoError(t, err)

	assert.ErrorIs(t, r.Close("nowhere", "alice"), ErrUnknownRoom)
	assert.ErrorIs(t, r.Close("general", "carol"), ErrNotMember)

	// any member may close, not only the founder
	require.NoError(t, r.Close("general", "bob"))
	assert.Empty(t, r.List("alice"))
}

func TestBroadcastRequiresAnotherOnlineMember(t *testing.T) {
	presence := fakePresence{"alice": true}
	pub := &recordingPublisher{}
	r := newTestRegistry(t, presence, pub)

	_, err := r.Create("general", "alice")
	require.NoError(t, err)
	_, err = r.Join("general", "bob")
	require.NoError(t, err)

	payload := []byte(`{"Type":2}`)

	// bob is a member but offline, and the sender does not count
	assert.ErrorIs(t, r.Broadcast("general", "alice", payload), ErrNoOneOnline)
	assert.Zero(t, pub.count())

	presence["bob"] = true
	require.NoError(t, r.Broadcast("general", "alice", payload))
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, "225.0.0.0", pub.groups[0].String())
	assert.Equal(t, payload, pub.payloads[0])

	assert.ErrorIs(t, r.Broadcast("nowhere", "alice", payload), ErrUnknownRoom)
	assert.ErrorIs(t, r.Broadcast("general", "carol", payload), ErrNotMember)
}

func TestConcurrentCreateSameName(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create("general", "alice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, taken := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrNameTaken):
			taken++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, taken)
}
