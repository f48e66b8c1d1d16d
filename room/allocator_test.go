package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorIncrementsLastOctet(t *testing.T) {
	a, err := newAddressAllocator("225.0.0.0")
	require.NoError(t, err)

	assert.Equal(t, "225.0.0.0", a.Next().String())
	assert.Equal(t, "225.0.0.1", a.Next().String())
	assert.Equal(t, "225.0.0.2", a.Next().String())
}

func TestAllocatorOctetCarry(t *testing.T) {
	a, err := newAddressAllocator("225.0.0.255")
	require.NoError(t, err)

	assert.Equal(t, "225.0.0.255", a.Next().String())
	assert.Equal(t, "225.0.1.0", a.Next().String())

	a, err = newAddressAllocator("225.0.255.255")
	require.NoError(t, err)
	assert.Equal(t, "225.0.255.255", a.Next().String())
	assert.Equal(t, "225.1.0.0", a.Next().String())
}

func TestAllocatorRejectsBadBase(t *testing.T) {
	_, err := newAddressAllocator("not-an-address")
	assert.Error(t, err)
	_, err = newAddressAllocator("::1")
	assert.Error(t, err)
}
