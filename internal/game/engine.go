package game

import (
	"github.com/google/uuid"

	"github.com/tricktake/tricktake-server-go/internal/deck"
)

// AddPlayer seats a new player in a waiting lobby and returns the next
// snapshot together with the new player's ID. maxPlayers <= 0 means no
// configured cap beyond the deck itself.
func (s *State) AddPlayer(name string, maxPlayers int) (*State, string, error) {
	if s.Phase != PhaseWaiting {
		return nil, "", ErrGameAlreadyStarted
	}
	if maxPlayers > 0 && len(s.Players) >= maxPlayers {
		return nil, "", ErrLobbyFull
	}
	// A seat must still be dealable at the starting hand size.
	if (len(s.Players)+1)*startingCards > deck.Size {
		return nil, "", ErrLobbyFull
	}

	next := s.clone()
	playerID := uuid.New().String()
	next.Players = append(next.Players, Player{
		ID:          playerID,
		Name:        name,
		IsConnected: true,
		Hand:        []deck.Card{},
	})
	return next, playerID, nil
}

// Start deals the first round and moves the game into bidding. Only the
// host may start, and only with enough seats filled.
func (s *State) Start(callerID string) (*State, error) {
	if s.Phase != PhaseWaiting {
		return nil, ErrGameAlreadyStarted
	}

	caller := s.PlayerByID(callerID)
	if caller == nil || !caller.IsHost {
		return nil, ErrNotHost
	}
	if len(s.Players) < MinPlayers {
		return nil, ErrNotEnoughPlayers
	}

	next := s.clone()
	if err := next.dealRound(); err != nil {
		return nil, err
	}
	next.Phase = PhaseBidding
	next.setTurn((next.DealerIndex + 1) % len(next.Players))
	return next, nil
}

// MakeBid records the acting player's bid and advances the turn. When the
// last bid lands the game moves to playing with the lead back at the seat
// after the dealer. The dealer may never bid such that the bids sum to the
// number of tricks available.
func (s *State) MakeBid(callerID string, bid int) (*State, error) {
	if s.Phase != PhaseBidding {
		return nil, ErrWrongPhase
	}

	idx := s.playerIndex(callerID)
	if idx == -1 || idx != s.TurnIndex {
		return nil, ErrNotYourTurn
	}
	if bid < 0 || bid > s.CardsPerRound {
		return nil, ErrInvalidBid
	}

	if idx == s.DealerIndex {
		total := bid
		for _, p := range s.Players {
			if p.Bid != nil {
				total += *p.Bid
			}
		}
		if total == s.CardsPerRound {
			return nil, ErrInvalidDealerBid
		}
	}

	next := s.clone()
	next.Players[idx].Bid = &bid

	allBid := true
	for _, p := range next.Players {
		if p.Bid == nil {
			allBid = false
			break
		}
	}

	if allBid {
		next.Phase = PhasePlaying
		next.setTurn((next.DealerIndex + 1) % len(next.Players))
	} else {
		next.setTurn((next.TurnIndex + 1) % len(next.Players))
	}
	return next, nil
}

// PlayCard moves a card from the acting player's hand into the current
// trick, enforcing the follow-suit rule. Completing a trick resolves its
// winner; completing the last trick of the round scores every seat and
// moves the game to roundEnd.
func (s *State) PlayCard(callerID, cardID string) (*State, error) {
	if s.Phase != PhasePlaying {
		return nil, ErrWrongPhase
	}

	idx := s.playerIndex(callerID)
	if idx == -1 || idx != s.TurnIndex {
		return nil, ErrNotYourTurn
	}

	player := &s.Players[idx]
	cardIdx := -1
	for i, c := range player.Hand {
		if c.ID == cardID {
			cardIdx = i
			break
		}
	}
	if cardIdx == -1 {
		return nil, ErrCardNotInHand
	}

	card := player.Hand[cardIdx]
	if s.CurrentTrick.LeadSuit != "" && card.Suit != s.CurrentTrick.LeadSuit {
		for _, c := range player.Hand {
			if c.Suit == s.CurrentTrick.LeadSuit {
				return nil, ErrMustFollowSuit
			}
		}
	}

	next := s.clone()
	hand := next.Players[idx].Hand
	next.Players[idx].Hand = append(hand[:cardIdx], hand[cardIdx+1:]...)
	next.CurrentTrick.Cards = append(next.CurrentTrick.Cards, deck.PlayedCard{
		PlayerID: callerID,
		Card:     card,
	})
	if next.CurrentTrick.LeadSuit == "" {
		next.CurrentTrick.LeadSuit = card.Suit
	}

	if len(next.CurrentTrick.Cards) < len(next.Players) {
		next.setTurn((next.TurnIndex + 1) % len(next.Players))
		return next, nil
	}

	// Trick complete.
	winnerID, err := deck.TrickWinner(next.CurrentTrick.Cards, next.CurrentTrick.LeadSuit, next.Trump)
	if err != nil {
		return nil, err
	}
	next.CurrentTrick.WinnerID = winnerID
	winnerIdx := next.playerIndex(winnerID)
	next.Players[winnerIdx].TricksWon++
	next.PastTricks = append(next.PastTricks, next.CurrentTrick)
	next.CurrentTrick = Trick{Cards: []deck.PlayedCard{}}

	for _, p := range next.Players {
		if len(p.Hand) > 0 {
			next.setTurn(winnerIdx)
			return next, nil
		}
	}

	// Last trick of the round: score everyone and close the round out.
	next.finishRound()
	return next, nil
}

// NextRound advances a finished round. It either deals the next round or,
// when the configured number of rounds has been played, ends the game and
// records the winner (highest cumulative score, first seat winning ties).
func (s *State) NextRound() (*State, error) {
	if s.Phase != PhaseRoundEnd {
		return nil, ErrWrongPhase
	}

	next := s.clone()
	next.RoundSummary = nil

	if next.Round+1 > next.MaxRounds {
		next.Phase = PhaseGameOver
		winner := &next.Players[0]
		for i := range next.Players {
			if next.Players[i].Score > winner.Score {
				winner = &next.Players[i]
			}
		}
		next.Winner = &WinnerRef{ID: winner.ID, Name: winner.Name, Score: winner.Score}
		for i := range next.Players {
			next.Players[i].HasTurn = false
		}
		return next, nil
	}

	next.CardsPerRound = nextHandSize(next.CardsPerRound, next.Round, len(next.Players))
	next.Round++
	next.DealerIndex = (next.DealerIndex + 1) % len(next.Players)

	for i := range next.Players {
		next.Players[i].Bid = nil
		next.Players[i].TricksWon = 0
		next.Players[i].IsDealer = i == next.DealerIndex
	}

	if err := next.dealRound(); err != nil {
		return nil, err
	}
	next.Phase = PhaseBidding
	next.setTurn((next.DealerIndex + 1) % len(next.Players))
	return next, nil
}

// MarkDisconnected flips a seat offline. If the seat held the host role it
// moves to the next connected seat after the leaver in turn order. Unknown
// player IDs are a no-op.
func (s *State) MarkDisconnected(playerID string) *State {
	next := s.clone()

	leaver := next.playerIndex(playerID)
	if leaver == -1 {
		return next
	}

	wasHost := next.Players[leaver].IsHost
	next.Players[leaver].IsConnected = false

	if wasHost {
		n := len(next.Players)
		for off := 1; off < n; off++ {
			i := (leaver + off) % n
			if next.Players[i].IsConnected {
				next.Players[leaver].IsHost = false
				next.Players[i].IsHost = true
				break
			}
		}
	}
	return next
}

// MarkConnected flips a seat back online for a rejoining player.
func (s *State) MarkConnected(playerID string) (*State, error) {
	idx := s.playerIndex(playerID)
	if idx == -1 {
		return nil, ErrUnknownPlayer
	}
	next := s.clone()
	next.Players[idx].IsConnected = true
	return next, nil
}

// dealRound shuffles a fresh deck, deals the current hand size to every
// seat, picks trump, and resets the trick containers.
func (s *State) dealRound() error {
	hands, err := deck.Deal(deck.Shuffle(deck.New()), len(s.Players), s.CardsPerRound)
	if err != nil {
		return err
	}
	for i := range s.Players {
		s.Players[i].Hand = hands[i]
	}
	s.Trump = deck.RandomSuit()
	s.CurrentTrick = Trick{Cards: []deck.PlayedCard{}}
	s.PastTricks = []Trick{}
	return nil
}

// finishRound applies round scores and builds the summary.
func (s *State) finishRound() {
	results := make([]PlayerResult, len(s.Players))
	for i := range s.Players {
		p := &s.Players[i]
		bid := 0
		if p.Bid != nil {
			bid = *p.Bid
		}
		roundScore := deck.RoundScore(bid, p.TricksWon)
		p.Score += roundScore
		p.HasTurn = false
		results[i] = PlayerResult{
			PlayerID:   p.ID,
			Name:       p.Name,
			Bid:        bid,
			Tricks:     p.TricksWon,
			RoundScore: roundScore,
			TotalScore: p.Score,
		}
	}
	s.RoundSummary = &RoundSummary{PlayerResults: results}
	s.Phase = PhaseRoundEnd
}

// nextHandSize oscillates the hand size by the parity of the round just
// finished, clamped so every seat can still be dealt from one deck.
func nextHandSize(current, finishedRound, numPlayers int) int {
	limit := maxCardsPerRound
	if byDeck := deck.Size / numPlayers; byDeck < limit {
		limit = byDeck
	}

	if finishedRound%2 == 0 && current > 1 {
		current--
	} else if finishedRound%2 == 1 && current < limit {
		current++
	}
	if current > limit {
		current = limit
	}
	return current
}
