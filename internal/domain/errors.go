package domain

import (
	"errors"
	"fmt"
)

var (
	// Authorization
	ErrPlayerNotOwner = errors.New("player is not lobby owner")
	ErrPlayerNotLead  = errors.New("player is not round lead")

	// Preconditions
	ErrCardNotInPlayerHand = errors.New("card not in player hand")
	ErrNotAllCardsOpened   = errors.New("not all table cards are opened")
	ErrPlayerAlreadyReady  = errors.New("player already made a turn")
	ErrScoreTooLow         = errors.New("score too low to refresh hand")
	ErrNotEnoughPlayers    = errors.New("not enough players")
	ErrCardNotOnTable      = errors.New("card not on table")
	ErrTableCardNotFound   = errors.New("table card not found")
	ErrLeadCannotSubmit    = errors.New("lead cannot submit a card")
	ErrInvalidSettings     = errors.New("invalid lobby settings")

	// Lookups
	ErrUnknownPlayer = errors.New("player not found")
	ErrUnknownCard   = errors.New("card not found")

	// Protocol / programming
	ErrInvalidState      = errors.New("operation not valid in current state")
	ErrVotingUnsupported = errors.New("rounds without a lead are not supported")
	ErrDeckExhausted     = errors.New("deck has no cards left")
)

// InvalidStateError reports an operation that the active lobby state does not define.
type InvalidStateError struct {
	Op    string
	Phase Phase
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operation %q not valid in state %q", e.Op, e.Phase)
}

// Is makes errors.Is(err, ErrInvalidState) match.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// ErrorClass groups errors by how the transport surfaces them.
type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassAuthorization
	ClassPrecondition
	ClassLookup
	ClassProtocol
)

func (c ErrorClass) String() string {
	switch c {
	case ClassAuthorization:
		return "authorization"
	case ClassPrecondition:
		return "precondition"
	case ClassLookup:
		return "lookup"
	case ClassProtocol:
		return "protocol"
	default:
		return "internal"
	}
}

var errorClasses = []struct {
	err   error
	class ErrorClass
}{
	{ErrPlayerNotOwner, ClassAuthorization},
	{ErrPlayerNotLead, ClassAuthorization},
	{ErrCardNotInPlayerHand, ClassPrecondition},
	{ErrNotAllCardsOpened, ClassPrecondition},
	{ErrPlayerAlreadyReady, ClassPrecondition},
	{ErrScoreTooLow, ClassPrecondition},
	{ErrNotEnoughPlayers, ClassPrecondition},
	{ErrCardNotOnTable, ClassPrecondition},
	{ErrTableCardNotFound, ClassPrecondition},
	{ErrLeadCannotSubmit, ClassPrecondition},
	{ErrInvalidSettings, ClassPrecondition},
	{ErrUnknownPlayer, ClassLookup},
	{ErrUnknownCard, ClassLookup},
	{ErrInvalidState, ClassProtocol},
	{ErrVotingUnsupported, ClassProtocol},
}

// Classify maps err onto its ErrorClass. Unrecognized errors are ClassInternal.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassInternal
	}
	for _, ec := range errorClasses {
		if errors.Is(err, ec.err) {
			return ec.class
		}
	}
	return ClassInternal
}
