package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// ErrInvalidTicket is returned for tickets that fail signature, expiry or claim checks.
var ErrInvalidTicket = errors.New("invalid lobby ticket")

// Ticket is what a socket presents when joining a lobby match.
type Ticket struct {
	LobbyID     string
	PlayerToken string
}

// TicketService signs short-lived HS256 tickets binding a player token to a lobby.
type TicketService struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewTicketService(secret, issuer string, ttl time.Duration) *TicketService {
	return &TicketService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

func (s *TicketService) Issue(t Ticket) (string, error) {
	if s == nil {
		return "", fmt.Errorf("ticket service is nil")
	}
	if s.secret == "" {
		return "", fmt.Errorf("ticket secret is not configured")
	}
	if t.LobbyID == "" || t.PlayerToken == "" {
		return "", fmt.Errorf("lobby id and player token are required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": t.PlayerToken,
		"lby": t.LobbyID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func (s *TicketService) Verify(raw string) (Ticket, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return Ticket{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Ticket{}, ErrInvalidTicket
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return Ticket{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidTicket)
	}
	sub, _ := claims["sub"].(string)
	lobby, _ := claims["lby"].(string)
	if sub == "" || lobby == "" {
		return Ticket{}, fmt.Errorf("%w: missing claims", ErrInvalidTicket)
	}
	return Ticket{LobbyID: lobby, PlayerToken: sub}, nil
}
