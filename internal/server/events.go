package server

import (
	"encoding/json"

	"github.com/tricktake/tricktake-server-go/internal/game"
)

// Inbound event types (client to server).
const (
	eventCreateLobby    = "createLobby"
	eventJoinLobby      = "joinLobby"
	eventRejoinLobby    = "rejoinLobby"
	eventStartGame      = "startGame"
	eventMakeBid        = "makeBid"
	eventPlayCard       = "playCard"
	eventStartNextRound = "startNextRound"
)

// Outbound event types (server to client).
const (
	eventLobbyCreated       = "lobbyCreated"
	eventLobbyJoined        = "lobbyJoined"
	eventGameStateUpdate    = "gameStateUpdate"
	eventPlayerDisconnected = "playerDisconnected"
	eventError              = "error"
)

// envelope is the wire frame for every event in both directions.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// outEnvelope is the outbound frame; Data is marshaled in place.
type outEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type createLobbyPayload struct {
	PlayerName string `json:"playerName"`
	MaxRounds  int    `json:"maxRounds"`
}

type joinLobbyPayload struct {
	LobbyCode  string `json:"lobbyCode"`
	PlayerName string `json:"playerName"`
}

type rejoinLobbyPayload struct {
	LobbyCode string `json:"lobbyCode"`
	PlayerID  string `json:"playerId"`
}

type lobbyPayload struct {
	LobbyCode string `json:"lobbyCode"`
}

type makeBidPayload struct {
	LobbyCode string `json:"lobbyCode"`
	Bid       int    `json:"bid"`
}

type playCardPayload struct {
	LobbyCode string `json:"lobbyCode"`
	CardID    string `json:"cardId"`
}

// lobbyMembershipPayload answers createLobby and joinLobby, handing the
// caller its durable player ID alongside the lobby snapshot.
type lobbyMembershipPayload struct {
	LobbyCode string      `json:"lobbyCode"`
	PlayerID  string      `json:"playerId"`
	GameState *game.State `json:"gameState"`
}

type playerDisconnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type errorPayload struct {
	Message string `json:"message"`
}
