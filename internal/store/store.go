// Package store runs the catalog and account queries behind the HTTP
// handlers. Every function takes the connection leased for the current
// request; none of them acquire or release connections themselves.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/errs"
)

var (
	cardColumns = []string{"id", "name", "card_type", "cost", "rarity", "rules_text", "image_key"}
	deckColumns = []string{"id", "owner_id", "name", "description", "created_at"}
	userColumns = []string{"id", "username", "email", "password_hash", "created_at"}
)

// Validate checks the page bounds.
func (p Page) Validate() error {
	switch {
	case p.Limit < 1 || p.Limit > MaxLimit:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	case p.Offset < 0:
		return errs.New(errs.ErrKindInvalidInput, "offset must not be negative")
	}
	return nil
}

// --- cards ---

// ListCards returns one page of the card catalog ordered by id.
func ListCards(ctx context.Context, conn database.Conn, page Page) ([]Card, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	sql, args, err := database.Select("cards", conn.Dialect()).
		Columns(cardColumns...).
		OrderBy("id", database.Asc).
		Limit(page.Limit).
		Offset(page.Offset).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return database.CollectRows(rows, func(r database.Rows) (Card, error) { return scanCard(r) })
}

// GetCard returns a single card or a not_found error.
func GetCard(ctx context.Context, conn database.Conn, id int64) (*Card, error) {
	sql, args, err := database.Select("cards", conn.Dialect()).
		Columns(cardColumns...).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}

	c, err := scanCard(conn.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("card %d not found", id))
	}
	return &c, nil
}

func scanCard(r database.Row) (Card, error) {
	var c Card
	err := r.Scan(&c.ID, &c.Name, &c.CardType, &c.Cost, &c.Rarity, &c.RulesText, &c.ImageKey)
	return c, err
}

// --- decks ---

// ListDecks returns one page of decks ordered by id. A non-empty ownerID
// restricts the listing to that user's decks.
func ListDecks(ctx context.Context, conn database.Conn, ownerID string, page Page) ([]Deck, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	b := database.Select("decks", conn.Dialect()).Columns(deckColumns...)
	if ownerID != "" {
		b.Where("owner_id", "=", ownerID)
	}
	sql, args, err := b.OrderBy("id", database.Asc).
		Limit(page.Limit).
		Offset(page.Offset).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return database.CollectRows(rows, func(r database.Rows) (Deck, error) { return scanDeck(r) })
}

// GetDeck returns a deck with its card list, or a not_found error.
func GetDeck(ctx context.Context, conn database.Conn, id string) (*Deck, error) {
	d := conn.Dialect()
	sql, args, err := database.Select("decks", d).
		Columns(deckColumns...).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}

	deck, err := scanDeck(conn.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("deck %s not found", id))
	}

	q := fmt.Sprintf(
		"SELECT c.%[1]s, c.%[2]s, dc.%[3]s FROM %[4]s dc JOIN %[5]s c ON c.%[1]s = dc.%[6]s WHERE dc.%[7]s = %[8]s ORDER BY c.%[1]s",
		d.QuoteIdent("id"), d.QuoteIdent("name"), d.QuoteIdent("quantity"),
		d.QuoteIdent("deck_cards"), d.QuoteIdent("cards"),
		d.QuoteIdent("card_id"), d.QuoteIdent("deck_id"), d.Placeholder(1),
	)
	rows, err := conn.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	deck.Cards, err = database.CollectRows(rows, func(r database.Rows) (DeckCard, error) {
		var dc DeckCard
		err := r.Scan(&dc.CardID, &dc.Name, &dc.Quantity)
		return dc, err
	})
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func scanDeck(r database.Row) (Deck, error) {
	var d Deck
	err := r.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Description, &d.CreatedAt)
	return d, err
}

// --- users ---

// FindUserByEmail looks an account up by its (case-insensitive) email.
func FindUserByEmail(ctx context.Context, conn database.Conn, email string) (*User, error) {
	sql, args, err := database.Select("users", conn.Dialect()).
		Columns(userColumns...).
		Where("email", "=", NormalizeEmail(email)).
		Build()
	if err != nil {
		return nil, err
	}

	var u User
	err = conn.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return &u, nil
}

// CreateUser inserts u. A duplicate email yields a conflict error.
func CreateUser(ctx context.Context, conn database.Conn, u *User) error {
	d := conn.Dialect()
	cols := []string{"id", "username", "email", "password_hash", "created_at"}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent("users"), strings.Join(quoted, ", "), d.Placeholders(len(cols)))

	u.Email = NormalizeEmail(u.Email)
	_, err := conn.Exec(ctx, q, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if errs.IsConflict(err) {
		return errs.Wrap(errs.ErrKindConflict, "email is already registered", err)
	}
	return err
}

// NormalizeEmail trims and lower-cases an address so lookups and the
// unique constraint agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// notFound replaces the driver's generic message for missing rows with one
// naming the resource, and passes any other error through.
func notFound(err error, msg string) error {
	if errs.IsNotFound(err) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}
	return err
}
