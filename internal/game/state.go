package game

import (
	"github.com/google/uuid"

	"github.com/tricktake/tricktake-server-go/internal/deck"
)

// Phase represents the lifecycle phase of a game.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseBidding  Phase = "bidding"
	PhasePlaying  Phase = "playing"
	PhaseRoundEnd Phase = "roundEnd"
	PhaseGameOver Phase = "gameOver"
)

// Default game parameters.
const (
	DefaultMaxRounds = 10
	MinPlayers       = 3
	startingCards    = 5
	maxCardsPerRound = 10
)

// Player is one seat in a game. ID is minted when the seat is created and
// stays stable across reconnects; it is the join-key for rejoining.
type Player struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	IsHost      bool        `json:"isHost"`
	IsConnected bool        `json:"isConnected"`
	Hand        []deck.Card `json:"cards"`
	Bid         *int        `json:"bid,omitempty"`
	TricksWon   int         `json:"tricks"`
	Score       int         `json:"score"`
	IsDealer    bool        `json:"isDealer"`
	HasTurn     bool        `json:"isCurrentTurn"`
}

// Trick is the cards played in one trick. LeadSuit is fixed by the first
// card played and a trick is complete when every seat has played into it.
type Trick struct {
	Cards    []deck.PlayedCard `json:"cards"`
	LeadSuit deck.Suit         `json:"leadSuit,omitempty"`
	WinnerID string            `json:"winnerId,omitempty"`
}

// PlayerResult is one player's line in a round summary.
type PlayerResult struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	Bid        int    `json:"bid"`
	Tricks     int    `json:"tricks"`
	RoundScore int    `json:"roundScore"`
	TotalScore int    `json:"totalScore"`
}

// RoundSummary is present only while the game sits in the roundEnd phase.
type RoundSummary struct {
	PlayerResults []PlayerResult `json:"playerResults"`
}

// WinnerRef identifies the winning player once the game is over.
type WinnerRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// State is the complete authoritative state of one lobby's game. It is the
// broadcast payload; transitions never mutate a State in place, they return
// a fresh snapshot.
type State struct {
	LobbyCode     string        `json:"lobbyCode"`
	Phase         Phase         `json:"phase"`
	Players       []Player      `json:"players"`
	Round         int           `json:"round"`
	MaxRounds     int           `json:"maxRounds"`
	CardsPerRound int           `json:"cardsPerRound"`
	DealerIndex   int           `json:"dealerIndex"`
	TurnIndex     int           `json:"currentPlayerIndex"`
	Trump         deck.Suit     `json:"trump,omitempty"`
	CurrentTrick  Trick         `json:"currentTrick"`
	PastTricks    []Trick       `json:"pastTricks"`
	RoundSummary  *RoundSummary `json:"roundSummary,omitempty"`
	Winner        *WinnerRef    `json:"winner,omitempty"`
}

// NewGame creates the state for a fresh lobby with the host seated alone.
func NewGame(lobbyCode, hostName string, maxRounds int) *State {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	return &State{
		LobbyCode: lobbyCode,
		Phase:     PhaseWaiting,
		Players: []Player{
			{
				ID:          uuid.New().String(),
				Name:        hostName,
				IsHost:      true,
				IsConnected: true,
				Hand:        []deck.Card{},
				IsDealer:    true,
			},
		},
		Round:         1,
		MaxRounds:     maxRounds,
		CardsPerRound: startingCards,
		DealerIndex:   0,
		TurnIndex:     0,
		CurrentTrick:  Trick{Cards: []deck.PlayedCard{}},
		PastTricks:    []Trick{},
	}
}

// PlayerByID returns the seat with the given ID, or nil.
func (s *State) PlayerByID(playerID string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *State) playerIndex(playerID string) int {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// clone returns a deep copy of the state so transitions can build the next
// snapshot without touching the one already broadcast.
func (s *State) clone() *State {
	next := *s

	next.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		cp := p
		cp.Hand = append([]deck.Card(nil), p.Hand...)
		if p.Bid != nil {
			bid := *p.Bid
			cp.Bid = &bid
		}
		next.Players[i] = cp
	}

	next.CurrentTrick = cloneTrick(s.CurrentTrick)
	next.PastTricks = make([]Trick, len(s.PastTricks))
	for i, t := range s.PastTricks {
		next.PastTricks[i] = cloneTrick(t)
	}

	if s.RoundSummary != nil {
		summary := RoundSummary{
			PlayerResults: append([]PlayerResult(nil), s.RoundSummary.PlayerResults...),
		}
		next.RoundSummary = &summary
	}
	if s.Winner != nil {
		winner := *s.Winner
		next.Winner = &winner
	}

	return &next
}

func cloneTrick(t Trick) Trick {
	cp := t
	cp.Cards = append([]deck.PlayedCard(nil), t.Cards...)
	return cp
}

// setTurn points the turn marker at the given seat index.
func (s *State) setTurn(index int) {
	s.TurnIndex = index
	for i := range s.Players {
		s.Players[i].HasTurn = i == index
	}
}
