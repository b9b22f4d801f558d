package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tricktake/tricktake-server-go/internal/game"
	"github.com/tricktake/tricktake-server-go/internal/lobby"
	"github.com/tricktake/tricktake-server-go/internal/repository"
)

const resultArchiveTimeout = 5 * time.Second

// Gateway accepts websocket connections, translates inbound events into
// state machine calls serialized per lobby, and broadcasts the resulting
// snapshots. Errors go only to the acting connection.
type Gateway struct {
	registry           *lobby.Registry
	results            *repository.ResultRepository
	logger             *zap.Logger
	maxPlayersPerLobby int

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewGateway creates the gateway. results may be nil when no archive is
// configured.
func NewGateway(registry *lobby.Registry, results *repository.ResultRepository, maxPlayersPerLobby int, logger *zap.Logger) *Gateway {
	return &Gateway{
		registry:           registry,
		results:            results,
		logger:             logger,
		maxPlayersPerLobby: maxPlayersPerLobby,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*Client),
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and starts
// its pumps.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	g.mu.Lock()
	g.clients[client.id] = client
	g.mu.Unlock()

	g.logger.Debug("client connected", zap.String("conn_id", client.id))

	go client.writePump()
	go client.readPump(g)
}

// ServeHealth answers liveness probes.
func (g *Gateway) ServeHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Game server is running"))
}

// CloseAll tears down every connection during shutdown.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, c := range g.clients {
		c.conn.Close()
		delete(g.clients, id)
	}
}

// dispatch routes one inbound event. A panic while handling an action is
// contained to this event: it is logged and answered with a generic error,
// and no other lobby or connection is affected.
func (g *Gateway) dispatch(c *Client, env envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("panic handling event",
				zap.String("conn_id", c.id),
				zap.String("event", env.Type),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			c.sendEvent(eventError, errorPayload{Message: "internal server error"})
		}
	}()

	switch env.Type {
	case eventCreateLobby:
		g.handleCreateLobby(c, env.Data)
	case eventJoinLobby:
		g.handleJoinLobby(c, env.Data)
	case eventRejoinLobby:
		g.handleRejoinLobby(c, env.Data)
	case eventStartGame:
		g.handleStartGame(c, env.Data)
	case eventMakeBid:
		g.handleMakeBid(c, env.Data)
	case eventPlayCard:
		g.handlePlayCard(c, env.Data)
	case eventStartNextRound:
		g.handleStartNextRound(c, env.Data)
	default:
		c.sendEvent(eventError, errorPayload{Message: "unknown event type"})
	}
}

func (g *Gateway) handleCreateLobby(c *Client, data json.RawMessage) {
	var payload createLobbyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendEvent(eventError, errorPayload{Message: "invalid createLobby payload"})
		return
	}

	name := strings.TrimSpace(payload.PlayerName)
	if name == "" {
		c.sendEvent(eventError, errorPayload{Message: "playerName is required"})
		return
	}

	l, playerID := g.registry.CreateLobby(c.id, name, payload.MaxRounds)
	state := l.State()

	c.sendEvent(eventLobbyCreated, lobbyMembershipPayload{
		LobbyCode: l.Code,
		PlayerID:  playerID,
		GameState: state,
	})
}

func (g *Gateway) handleJoinLobby(c *Client, data json.RawMessage) {
	var payload joinLobbyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendEvent(eventError, errorPayload{Message: "invalid joinLobby payload"})
		return
	}

	name := strings.TrimSpace(payload.PlayerName)
	if name == "" {
		c.sendEvent(eventError, errorPayload{Message: "playerName is required"})
		return
	}

	code := normalizeCode(payload.LobbyCode)
	l, ok := g.registry.Get(code)
	if !ok {
		c.sendEvent(eventError, errorPayload{Message: "lobby not found"})
		return
	}

	var playerID string
	state, err := l.Apply(func(s *game.State) (*game.State, error) {
		next, id, err := s.AddPlayer(name, g.maxPlayersPerLobby)
		if err != nil {
			return nil, err
		}
		playerID = id
		return next, nil
	})
	if err != nil {
		c.sendEvent(eventError, errorPayload{Message: err.Error()})
		return
	}

	g.registry.Register(c.id, code, playerID)

	c.sendEvent(eventLobbyJoined, lobbyMembershipPayload{
		LobbyCode: code,
		PlayerID:  playerID,
		GameState: state,
	})
	g.broadcast(code, eventGameStateUpdate, state)

	g.logger.Info("player joined lobby",
		zap.String("lobby_code", code),
		zap.String("player_id", playerID),
		zap.String("name", name),
	)
}

func (g *Gateway) handleRejoinLobby(c *Client, data json.RawMessage) {
	var payload rejoinLobbyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendEvent(eventError, errorPayload{Message: "invalid rejoinLobby payload"})
		return
	}

	code := normalizeCode(payload.LobbyCode)
	_, state, err := g.registry.Rejoin(c.id, code, payload.PlayerID)
	if err != nil {
		c.sendEvent(eventError, errorPayload{Message: err.Error()})
		return
	}

	// The rejoining connection is registered by now, so the broadcast
	// both pushes the current state to it and tells the rest of the
	// lobby about the connectivity change.
	g.broadcast(code, eventGameStateUpdate, state)
}

func (g *Gateway) handleStartGame(c *Client, data json.RawMessage) {
	var payload lobbyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendEvent(eventError, errorPayload{Message: "invalid startGame payload"})
		return
	}

	seat, l, ok := g.resolveAction(c, payload.LobbyCode)
	if !ok {
		return
	}

	state, err := l.Apply(func(s *game.State) (*game.State, error) {
		return s.Start(seat.PlayerID)
	})
	if err != nil {
		c.sendEvent(eventError, errorPayload{Message: err.Error()})
		return
	}

	g.broadcast(seat.LobbyCode, eventGameStateUpdate, state)

	g.logger.Info("game started",
		zap.String("lobby_code", seat.LobbyCode),
		zap.Int("players", len(state.Players)),
		zap.String("trump", string(state.Trump)),
	)
}

func (g *Gateway) handleMakeBid(c *Client, data json.RawMessage) {
	var payload makeBidPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendEvent(eventError, errorPayload{Message: "invalid makeBid payload"})
		return
	}

	seat, l, ok := g.resolveAction(c, payload.LobbyCode)
	if !ok {
		return
	}

	state, err := l.Apply(func(s *game.State) (*game.State, error) {
		return s.MakeBid(seat.PlayerID, payload.Bid)
	})
	if err != nil {
		c.sendEvent(eventError, errorPayload{Message: err.Error()})
		return
	}

	g.broadcast(seat.LobbyCode, eventGameStateUpdate, state)
}

func (g *Gateway) handlePlayCard(c *Client, data json.RawMessage) {
	var payload playCardPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendEvent(eventError, errorPayload{Message: "invalid playCard payload"})
		return
	}

	seat, l, ok := g.resolveAction(c, payload.LobbyCode)
	if !ok {
		return
	}

	state, err := l.Apply(func(s *game.State) (*game.State, error) {
		return s.PlayCard(seat.PlayerID, payload.CardID)
	})
	if err != nil {
		c.sendEvent(eventError, errorPayload{Message: err.Error()})
		return
	}

	g.broadcast(seat.LobbyCode, eventGameStateUpdate, state)
}

func (g *Gateway) handleStartNextRound(c *Client, data json.RawMessage) {
	var payload lobbyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendEvent(eventError, errorPayload{Message: "invalid startNextRound payload"})
		return
	}

	seat, l, ok := g.resolveAction(c, payload.LobbyCode)
	if !ok {
		return
	}

	state, err := l.Apply(func(s *game.State) (*game.State, error) {
		return s.NextRound()
	})
	if err != nil {
		c.sendEvent(eventError, errorPayload{Message: err.Error()})
		return
	}

	g.broadcast(seat.LobbyCode, eventGameStateUpdate, state)

	if state.Phase == game.PhaseGameOver {
		g.logger.Info("game over",
			zap.String("lobby_code", seat.LobbyCode),
			zap.String("winner", state.Winner.Name),
			zap.Int("score", state.Winner.Score),
		)
		g.archiveResult(state)
	}
}

// resolveAction maps the acting connection to its seat and lobby. Actions
// from unregistered connections, or naming a lobby the connection is not
// seated in, are rejected here before reaching the state machine.
func (g *Gateway) resolveAction(c *Client, lobbyCode string) (lobby.Seat, *lobby.Lobby, bool) {
	seat, ok := g.registry.Resolve(c.id)
	if !ok {
		c.sendEvent(eventError, errorPayload{Message: "not in a lobby"})
		return lobby.Seat{}, nil, false
	}

	if code := normalizeCode(lobbyCode); code != "" && code != seat.LobbyCode {
		c.sendEvent(eventError, errorPayload{Message: "lobby not found"})
		return lobby.Seat{}, nil, false
	}

	l, ok := g.registry.Get(seat.LobbyCode)
	if !ok {
		c.sendEvent(eventError, errorPayload{Message: "lobby not found"})
		return lobby.Seat{}, nil, false
	}
	return seat, l, true
}

// disconnect handles a dropped connection: the player stays seated with
// hand and score intact for a later rejoin, the lobby hears about the
// connectivity change, and an empty lobby is torn down.
func (g *Gateway) disconnect(c *Client) {
	g.mu.Lock()
	if _, ok := g.clients[c.id]; ok {
		delete(g.clients, c.id)
		close(c.send)
	}
	g.mu.Unlock()

	result := g.registry.Disconnect(c.id)
	if result == nil || result.LobbyClosed {
		return
	}

	g.broadcast(result.LobbyCode, eventGameStateUpdate, result.State)
	g.broadcast(result.LobbyCode, eventPlayerDisconnected, playerDisconnectedPayload{
		PlayerID: result.PlayerID,
	})
}

// broadcast sends an event to every connection seated in a lobby.
func (g *Gateway) broadcast(lobbyCode, eventType string, data any) {
	payload, err := json.Marshal(outEnvelope{Type: eventType, Data: data})
	if err != nil {
		g.logger.Error("marshal broadcast", zap.String("event", eventType), zap.Error(err))
		return
	}

	connIDs := g.registry.Connections(lobbyCode)

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, connID := range connIDs {
		c, ok := g.clients[connID]
		if !ok {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow consumer; drop the frame rather than stall the lobby.
		}
	}
}

// archiveResult records the finished game in the background. Failures are
// logged and never affect the lobby.
func (g *Gateway) archiveResult(state *game.State) {
	if g.results == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resultArchiveTimeout)
		defer cancel()
		if err := g.results.RecordResult(ctx, state); err != nil {
			g.logger.Warn("failed to archive game result",
				zap.String("lobby_code", state.LobbyCode),
				zap.Error(err),
			)
		}
	}()
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
