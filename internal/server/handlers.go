package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/koustreak/deckbuilder/internal/auth"
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/koustreak/deckbuilder/internal/store"
	"github.com/rs/zerolog/hlog"
)

// withConn runs fn on a connection leased for this request. The lease is
// released when fn returns, including when the client goes away, and the
// query context carries the pool's QueryTimeout.
func (s *Server) withConn(r *http.Request, fn func(ctx context.Context, conn database.Conn) error) error {
	ctx := r.Context()
	if t := s.pool.Config().QueryTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return s.pool.WithConn(ctx, func(conn database.Conn) error {
		return fn(ctx, conn)
	})
}

// --- health ---

func (s *Server) root(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"service": "deckbuilder", "status": "ok"})
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.prober.Live())
}

func (s *Server) healthDeep(w http.ResponseWriter, r *http.Request) {
	rd := s.prober.Ready(r.Context())
	status := http.StatusOK
	if !rd.Ready() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rd)
}

// --- auth ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// errBadCredentials is returned for an unknown email and a wrong password
// alike.
var errBadCredentials = errs.New(errs.ErrKindUnauthenticated, "invalid email or password")

func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return errs.New(errs.ErrKindInvalidInput, "email and password are required")
	}

	var user *store.User
	err := s.withConn(r, func(ctx context.Context, conn database.Conn) (err error) {
		user, err = store.FindUserByEmail(ctx, conn, req.Email)
		return err
	})
	switch {
	case errs.IsNotFound(err):
		return errBadCredentials
	case err != nil:
		return err
	}

	// Checked after the lease is released.
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return errBadCredentials
	}

	tok, err := s.issuer.Issue(user.ID, user.Username)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     tok.Value,
		TokenType: "Bearer",
		ExpiresAt: tok.ExpiresAt,
		UserID:    user.ID,
	})
	return nil
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = store.NormalizeEmail(req.Email)

	switch {
	case req.Username == "" || req.Email == "" || req.Password == "":
		return errs.New(errs.ErrKindInvalidInput, "username, email and password are required")
	case !strings.Contains(req.Email, "@"):
		return errs.New(errs.ErrKindInvalidInput, "email address is not valid")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.withConn(r, func(ctx context.Context, conn database.Conn) error {
		return store.CreateUser(ctx, conn, user)
	})
	if err != nil {
		return err
	}

	hlog.FromRequest(r).Info().Str("user_id", user.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, registerResponse{UserID: user.ID, Username: user.Username, Email: user.Email})
	return nil
}

// --- cards ---

type cardList struct {
	Cards  []store.Card `json:"cards"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) error {
	page, err := pageFromQuery(r)
	if err != nil {
		return err
	}

	var cards []store.Card
	err = s.withConn(r, func(ctx context.Context, conn database.Conn) (err error) {
		cards, err = store.ListCards(ctx, conn, page)
		return err
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, cardList{Cards: cards, Limit: page.Limit, Offset: page.Offset})
	return nil
}

func (s *Server) lookupCard(r *http.Request) (*store.Card, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return nil, errs.New(errs.ErrKindInvalidInput, "card id must be a positive integer")
	}

	var card *store.Card
	err = s.withConn(r, func(ctx context.Context, conn database.Conn) (err error) {
		card, err = store.GetCard(ctx, conn, id)
		return err
	})
	return card, err
}

func (s *Server) getCard(w http.ResponseWriter, r *http.Request) error {
	card, err := s.lookupCard(r)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, card)
	return nil
}

// cardImage redirects to a short-lived download URL for the card art.
func (s *Server) cardImage(w http.ResponseWriter, r *http.Request) error {
	if s.files == nil {
		return errs.New(errs.ErrKindUnavailable, "card art storage is not configured")
	}

	card, err := s.lookupCard(r)
	if err != nil {
		return err
	}
	if card.ImageKey == "" {
		return errs.New(errs.ErrKindNotFound, "card has no image")
	}

	if _, err := s.files.StatObject(r.Context(), card.ImageKey); err != nil {
		return err
	}
	url, err := s.files.PresignGetURL(r.Context(), card.ImageKey, s.ttl)
	if err != nil {
		return err
	}
	w.Header().Set("Cache-Control", "private, max-age="+strconv.Itoa(int(s.ttl.Seconds())/2))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	return nil
}

// --- decks ---

type deckList struct {
	Decks  []store.Deck `json:"decks"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// listDecks lists all decks, or one owner's with ?owner=<user id>.
// ?owner=me resolves to the user of the bearer token.
func (s *Server) listDecks(w http.ResponseWriter, r *http.Request) error {
	page, err := pageFromQuery(r)
	if err != nil {
		return err
	}
	owner, err := s.ownerFilter(r)
	if err != nil {
		return err
	}

	var decks []store.Deck
	err = s.withConn(r, func(ctx context.Context, conn database.Conn) (err error) {
		decks, err = store.ListDecks(ctx, conn, owner, page)
		return err
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deckList{Decks: decks, Limit: page.Limit, Offset: page.Offset})
	return nil
}

func (s *Server) ownerFilter(r *http.Request) (string, error) {
	owner := r.URL.Query().Get("owner")
	switch owner {
	case "":
		return "", nil
	case "me":
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			return "", err
		}
		claims, err := s.issuer.Parse(token)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}
	if _, err := uuid.Parse(owner); err != nil {
		return "", errs.New(errs.ErrKindInvalidInput, "owner must be a user id or \"me\"")
	}
	return owner, nil
}

func (s *Server) getDeck(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return errs.New(errs.ErrKindInvalidInput, "deck id must be a UUID")
	}

	var deck *store.Deck
	err := s.withConn(r, func(ctx context.Context, conn database.Conn) (err error) {
		deck, err = store.GetDeck(ctx, conn, id)
		return err
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deck)
	return nil
}

// pageFromQuery reads ?limit= and ?offset=, defaulting to the first page.
func pageFromQuery(r *http.Request) (store.Page, error) {
	page := store.DefaultPage()
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, errs.New(errs.ErrKindInvalidInput, "limit must be an integer")
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, errs.New(errs.ErrKindInvalidInput, "offset must be an integer")
		}
		page.Offset = n
	}
	return page, page.Validate()
}
