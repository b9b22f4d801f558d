package game

import "errors"

// Validation errors returned by state transitions. All of them leave the
// originating snapshot untouched; the gateway reports them only to the
// acting connection.
var (
	ErrGameAlreadyStarted = errors.New("game already in progress")
	ErrLobbyFull          = errors.New("lobby is full")
	ErrNotEnoughPlayers   = errors.New("need at least 3 players to start")
	ErrNotHost            = errors.New("only the host can start the game")
	ErrWrongPhase         = errors.New("action not valid in current phase")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidBid         = errors.New("bid must be between 0 and the number of cards this round")
	ErrInvalidDealerBid   = errors.New("dealer's bid cannot make total equal to tricks")
	ErrCardNotInHand      = errors.New("card not found in hand")
	ErrMustFollowSuit     = errors.New("must follow lead suit")
	ErrUnknownPlayer      = errors.New("player not found in lobby")
)
