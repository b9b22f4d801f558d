package deck

import (
	"errors"
	"fmt"
	"math/rand"
)

// Suit identifies one of the four card suits.
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

// Suits lists all four suits in deck order.
var Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Rank bounds. 11=Jack, 12=Queen, 13=King, 14=Ace.
const (
	MinRank = 2
	MaxRank = 14
)

// Size is the number of cards in a full deck.
const Size = 52

var (
	ErrInsufficientCards = errors.New("not enough cards in deck")
	ErrEmptyTrick        = errors.New("trick has no cards")
)

// Card is an immutable card value. ID is stable within a deck instance
// and doubles as the wire identifier clients reference when playing.
type Card struct {
	Suit Suit   `json:"suit"`
	Rank int    `json:"value"`
	ID   string `json:"id"`
}

// PlayedCard pairs a card with the player who put it in the trick.
type PlayedCard struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
}

// New returns a full 52-card deck in deterministic suit-major order.
func New() []Card {
	cards := make([]Card, 0, Size)
	for _, suit := range Suits {
		for rank := MinRank; rank <= MaxRank; rank++ {
			cards = append(cards, Card{
				Suit: suit,
				Rank: rank,
				ID:   fmt.Sprintf("%s_%d", suit, rank),
			})
		}
	}
	return cards
}

// Shuffle returns a uniformly random permutation of the deck.
// The input slice is not modified.
func Shuffle(cards []Card) []Card {
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// RandomSuit picks a trump suit uniformly at random.
func RandomSuit() Suit {
	return Suits[rand.Intn(len(Suits))]
}

// Deal distributes cardsPerPlayer cards to numPlayers hands, round-robin
// one card at a time starting from player 0, consuming cards from the end
// of the deck. The deck slice is not modified.
func Deal(cards []Card, numPlayers, cardsPerPlayer int) ([][]Card, error) {
	if numPlayers*cardsPerPlayer > len(cards) {
		return nil, ErrInsufficientCards
	}

	hands := make([][]Card, numPlayers)
	for i := range hands {
		hands[i] = make([]Card, 0, cardsPerPlayer)
	}

	next := len(cards) - 1
	for i := 0; i < cardsPerPlayer; i++ {
		for j := 0; j < numPlayers; j++ {
			hands[j] = append(hands[j], cards[next])
			next--
		}
	}
	return hands, nil
}

// TrickWinner returns the player ID of the card that wins the trick.
// A card beats the current best if it is trump and the best is not, if
// both are trump and it ranks higher, if it follows the lead suit while
// the best neither follows nor trumps, or if both follow the lead suit
// and it ranks higher. The first card played is the initial best.
func TrickWinner(played []PlayedCard, leadSuit, trumpSuit Suit) (string, error) {
	if len(played) == 0 {
		return "", ErrEmptyTrick
	}

	best := played[0]
	for _, pc := range played[1:] {
		if beats(pc.Card, best.Card, leadSuit, trumpSuit) {
			best = pc
		}
	}
	return best.PlayerID, nil
}

func beats(card, best Card, leadSuit, trumpSuit Suit) bool {
	switch {
	case card.Suit == trumpSuit && best.Suit != trumpSuit:
		return true
	case card.Suit == trumpSuit && best.Suit == trumpSuit:
		return card.Rank > best.Rank
	case card.Suit == leadSuit && best.Suit != leadSuit && best.Suit != trumpSuit:
		return true
	case card.Suit == leadSuit && best.Suit == leadSuit:
		return card.Rank > best.Rank
	default:
		return false
	}
}

// RoundScore returns the points earned for a round: 10 plus the bid when
// the bid was hit exactly, zero otherwise.
func RoundScore(bid, tricksWon int) int {
	if bid == tricksWon {
		return 10 + bid
	}
	return 0
}
