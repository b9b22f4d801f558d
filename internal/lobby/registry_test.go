package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tricktake/tricktake-server-go/internal/game"
)

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop())
}

func TestCreateLobby(t *testing.T) {
	r := newTestRegistry()

	l, playerID := r.CreateLobby("conn-1", "Alice", 10)
	require.NotNil(t, l)
	assert.Len(t, l.Code, codeLength)
	assert.NotEmpty(t, playerID)

	got, ok := r.Get(l.Code)
	require.True(t, ok)
	assert.Same(t, l, got)

	seat, ok := r.Resolve("conn-1")
	require.True(t, ok)
	assert.Equal(t, l.Code, seat.LobbyCode)
	assert.Equal(t, playerID, seat.PlayerID)

	state := l.State()
	assert.Equal(t, l.Code, state.LobbyCode)
	assert.Equal(t, playerID, state.Players[0].ID)
}

func TestLobbyCodesAreUnique(t *testing.T) {
	r := newTestRegistry()

	codes := make(map[string]bool)
	for i := 0; i < 100; i++ {
		l, _ := r.CreateLobby("conn", "Host", 10)
		assert.False(t, codes[l.Code], "code %s reused while lobby exists", l.Code)
		codes[l.Code] = true
		for _, ch := range l.Code {
			assert.Contains(t, codeAlphabet, string(ch))
		}
	}
}

func TestRegisterResolveUnregister(t *testing.T) {
	r := newTestRegistry()
	l, _ := r.CreateLobby("conn-1", "Alice", 10)

	r.Register("conn-2", l.Code, "player-2")
	seat, ok := r.Resolve("conn-2")
	require.True(t, ok)
	assert.Equal(t, "player-2", seat.PlayerID)

	r.Unregister("conn-2")
	_, ok = r.Resolve("conn-2")
	assert.False(t, ok)

	// Unregister never touches game state.
	assert.True(t, l.State().Players[0].IsConnected)
}

func TestConnections(t *testing.T) {
	r := newTestRegistry()
	l, _ := r.CreateLobby("conn-1", "Alice", 10)
	r.Register("conn-2", l.Code, "p2")
	r.Register("conn-3", "OTHER1", "p3")

	conns := r.Connections(l.Code)
	assert.ElementsMatch(t, []string{"conn-1", "conn-2"}, conns)
}

func TestApplySerializesAndRollsBack(t *testing.T) {
	r := newTestRegistry()
	l, hostID := r.CreateLobby("conn-1", "Alice", 10)

	// A failed transition must leave the installed snapshot unchanged.
	_, err := l.Apply(func(s *game.State) (*game.State, error) {
		return s.Start(hostID)
	})
	assert.ErrorIs(t, err, game.ErrNotEnoughPlayers)
	assert.Equal(t, game.PhaseWaiting, l.State().Phase)

	state, err := l.Apply(func(s *game.State) (*game.State, error) {
		next, _, err := s.AddPlayer("Bob", 0)
		return next, err
	})
	require.NoError(t, err)
	assert.Len(t, state.Players, 2)
	assert.Same(t, state, l.State())
}

func TestDisconnectMarksPlayer(t *testing.T) {
	r := newTestRegistry()
	l, hostID := r.CreateLobby("conn-1", "Alice", 10)

	var bobID string
	_, err := l.Apply(func(s *game.State) (*game.State, error) {
		next, id, err := s.AddPlayer("Bob", 0)
		bobID = id
		return next, err
	})
	require.NoError(t, err)
	r.Register("conn-2", l.Code, bobID)

	result := r.Disconnect("conn-1")
	require.NotNil(t, result)
	assert.Equal(t, l.Code, result.LobbyCode)
	assert.Equal(t, hostID, result.PlayerID)
	assert.False(t, result.LobbyClosed)

	state := result.State
	assert.False(t, state.Players[0].IsConnected)
	assert.False(t, state.Players[0].IsHost)
	assert.True(t, state.Players[1].IsHost, "host role moves to next connected player")

	// The connection binding is gone but the seat remains.
	_, ok := r.Resolve("conn-1")
	assert.False(t, ok)
	assert.NotNil(t, state.PlayerByID(hostID))
}

func TestDisconnectLastPlayerClosesLobby(t *testing.T) {
	r := newTestRegistry()
	l, _ := r.CreateLobby("conn-1", "Alice", 10)

	result := r.Disconnect("conn-1")
	require.NotNil(t, result)
	assert.True(t, result.LobbyClosed)

	_, ok := r.Get(l.Code)
	assert.False(t, ok, "lobby code freed immediately")
}

func TestDisconnectUnknownConnection(t *testing.T) {
	r := newTestRegistry()
	assert.Nil(t, r.Disconnect("nope"))
}

func TestRejoin(t *testing.T) {
	r := newTestRegistry()
	l, hostID := r.CreateLobby("conn-1", "Alice", 10)

	var bobID string
	_, err := l.Apply(func(s *game.State) (*game.State, error) {
		next, id, err := s.AddPlayer("Bob", 0)
		bobID = id
		return next, err
	})
	require.NoError(t, err)
	r.Register("conn-2", l.Code, bobID)

	r.Disconnect("conn-2")
	require.False(t, l.State().Players[1].IsConnected)

	_, state, err := r.Rejoin("conn-9", l.Code, bobID)
	require.NoError(t, err)
	assert.True(t, state.Players[1].IsConnected)

	seat, ok := r.Resolve("conn-9")
	require.True(t, ok)
	assert.Equal(t, bobID, seat.PlayerID)

	// Same player ID, not a new seat.
	assert.Len(t, state.Players, 2)
	assert.Equal(t, hostID, state.Players[0].ID)
}

func TestRejoinErrors(t *testing.T) {
	r := newTestRegistry()
	l, _ := r.CreateLobby("conn-1", "Alice", 10)

	_, _, err := r.Rejoin("conn-9", "ZZZZZZ", "whoever")
	assert.ErrorIs(t, err, ErrLobbyNotFound)

	_, _, err = r.Rejoin("conn-9", l.Code, "whoever")
	assert.ErrorIs(t, err, game.ErrUnknownPlayer)

	_, ok := r.Resolve("conn-9")
	assert.False(t, ok, "failed rejoin must not bind the connection")
}
