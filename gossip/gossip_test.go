package gossip

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	id          SessionID
	isValidator bool
}

func (p fakePeer) SessionID() SessionID { return p.id }
func (p fakePeer) IsValidator() bool    { return p.isValidator }

func TestRegisterAndUnregister(t *testing.T) {
	ps := NewPeerSet()
	p := fakePeer{id: uuid.New()}
	require.NoError(t, ps.Register(p))
	require.Equal(t, 1, ps.Len())

	_, ok := ps.Peer(p.id)
	require.True(t, ok)

	require.ErrorIs(t, ps.Register(p), ErrPeerAlreadyRegistered)

	require.NoError(t, ps.Unregister(p.id))
	require.Equal(t, 0, ps.Len())
	require.ErrorIs(t, ps.Unregister(p.id), ErrPeerNotRegistered)
}

func TestGetSessionIDsFiltersByValidatorKind(t *testing.T) {
	ps := NewPeerSet()
	validator := fakePeer{id: uuid.New(), isValidator: true}
	plain := fakePeer{id: uuid.New(), isValidator: false}
	require.NoError(t, ps.Register(validator))
	require.NoError(t, ps.Register(plain))

	all := ps.GetSessionIDs(KindAny)
	require.Len(t, all, 2)

	validators := ps.GetSessionIDs(KindValidator)
	require.Equal(t, []SessionID{validator.id}, validators)
}

func TestRegisterAfterCloseFails(t *testing.T) {
	ps := NewPeerSet()
	ps.Close()
	require.ErrorIs(t, ps.Register(fakePeer{id: uuid.New()}), ErrPeerSetClosed)
}
