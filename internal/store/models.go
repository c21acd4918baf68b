package store

import "time"

// User is a registered account. PasswordHash never leaves the process.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Card is one entry of the card catalog.
type Card struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CardType  string `json:"card_type"`
	Cost      int    `json:"cost"`
	Rarity    string `json:"rarity"`
	RulesText string `json:"rules_text"`
	ImageKey  string `json:"-"` // object key of the card art, if any
}

// Deck is a user's named list of cards. Cards is only populated by GetDeck.
type Deck struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	Cards       []DeckCard `json:"cards,omitempty"`
}

// DeckCard is a card entry within a deck.
type DeckCard struct {
	CardID   int64  `json:"card_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Page bounds a catalog listing.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// DefaultPage is the first page at the default size.
func DefaultPage() Page {
	return Page{Limit: DefaultLimit}
}
