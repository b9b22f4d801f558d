package lobby

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/tricktake/tricktake-server-go/internal/game"
)

var ErrLobbyNotFound = errors.New("lobby not found")

// Code alphabet omits easily confused glyphs (0/O, 1/I) so codes stay
// human-typeable.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// Seat resolves a connection to its place in a lobby.
type Seat struct {
	LobbyCode string
	PlayerID  string
}

// Lobby owns one game's state. All reads and transitions go through the
// lobby mutex, so at most one action per lobby is ever in flight.
type Lobby struct {
	Code string

	mu    sync.Mutex
	state *game.State
}

// Apply runs a transition against the current state under the lobby lock
// and installs the returned snapshot. On error the installed state is
// unchanged.
func (l *Lobby) Apply(fn func(*game.State) (*game.State, error)) (*game.State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := fn(l.state)
	if err != nil {
		return nil, err
	}
	l.state = next
	return next, nil
}

// State returns the current snapshot.
func (l *Lobby) State() *game.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// DisconnectResult reports what a disconnect did to a lobby.
type DisconnectResult struct {
	LobbyCode   string
	PlayerID    string
	State       *game.State
	LobbyClosed bool
}

// Registry maps lobby codes to lobbies and connections to seats. The
// registry lock guards only the two maps; game state is guarded per lobby
// so one busy lobby never blocks unrelated connect/disconnect traffic.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby
	conns   map[string]Seat

	logger *zap.Logger
}

// NewRegistry creates an empty lobby registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		lobbies: make(map[string]*Lobby),
		conns:   make(map[string]Seat),
		logger:  logger,
	}
}

// CreateLobby allocates a fresh code, seats the host, and binds the host's
// connection. It returns the lobby and the host's player ID.
func (r *Registry) CreateLobby(connID, hostName string, maxRounds int) (*Lobby, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := r.generateCodeLocked()
	state := game.NewGame(code, hostName, maxRounds)
	playerID := state.Players[0].ID

	l := &Lobby{Code: code, state: state}
	r.lobbies[code] = l
	r.conns[connID] = Seat{LobbyCode: code, PlayerID: playerID}

	r.logger.Info("lobby created",
		zap.String("lobby_code", code),
		zap.String("host", hostName),
		zap.String("player_id", playerID),
	)
	return l, playerID
}

// Get returns the lobby for a code.
func (r *Registry) Get(code string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[code]
	return l, ok
}

// Register binds a connection to a seat.
func (r *Registry) Register(connID, lobbyCode, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = Seat{LobbyCode: lobbyCode, PlayerID: playerID}
}

// Unregister drops a connection binding without touching game state.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}

// Resolve maps a connection to its seat.
func (r *Registry) Resolve(connID string) (Seat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seat, ok := r.conns[connID]
	return seat, ok
}

// Connections returns the connection IDs currently bound to a lobby.
func (r *Registry) Connections(lobbyCode string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for connID, seat := range r.conns {
		if seat.LobbyCode == lobbyCode {
			ids = append(ids, connID)
		}
	}
	return ids
}

// Disconnect marks the connection's player as disconnected, reassigning
// the host role to the next connected seat if the host left. When no seat
// remains connected the lobby is destroyed and its code freed immediately.
// Returns nil if the connection was not in any lobby.
func (r *Registry) Disconnect(connID string) *DisconnectResult {
	r.mu.Lock()
	seat, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.conns, connID)
	l, ok := r.lobbies[seat.LobbyCode]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	state, err := l.Apply(func(s *game.State) (*game.State, error) {
		return s.MarkDisconnected(seat.PlayerID), nil
	})
	if err != nil {
		return nil
	}

	anyConnected := false
	for _, p := range state.Players {
		if p.IsConnected {
			anyConnected = true
			break
		}
	}

	result := &DisconnectResult{
		LobbyCode: seat.LobbyCode,
		PlayerID:  seat.PlayerID,
		State:     state,
	}

	if !anyConnected {
		r.mu.Lock()
		delete(r.lobbies, seat.LobbyCode)
		r.mu.Unlock()
		result.LobbyClosed = true
		r.logger.Info("lobby closed, all players disconnected",
			zap.String("lobby_code", seat.LobbyCode),
		)
		return result
	}

	r.logger.Info("player disconnected",
		zap.String("lobby_code", seat.LobbyCode),
		zap.String("player_id", seat.PlayerID),
	)
	return result
}

// Rejoin re-binds a connection to an existing seat and flips its
// connectivity back on. The caller must present the lobby code and the
// player ID it was issued at join time.
func (r *Registry) Rejoin(connID, lobbyCode, playerID string) (*Lobby, *game.State, error) {
	l, ok := r.Get(lobbyCode)
	if !ok {
		return nil, nil, ErrLobbyNotFound
	}

	state, err := l.Apply(func(s *game.State) (*game.State, error) {
		return s.MarkConnected(playerID)
	})
	if err != nil {
		return nil, nil, err
	}

	r.Register(connID, lobbyCode, playerID)

	r.logger.Info("player rejoined",
		zap.String("lobby_code", lobbyCode),
		zap.String("player_id", playerID),
	)
	return l, state, nil
}

// generateCodeLocked produces a collision-checked lobby code. Callers must
// hold the registry write lock.
func (r *Registry) generateCodeLocked() string {
	for {
		code := randomCode()
		if _, exists := r.lobbies[code]; !exists {
			return code
		}
	}
}

func randomCode() string {
	buf := make([]byte, codeLength)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand only fails if the platform source is broken.
			panic(err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf)
}
