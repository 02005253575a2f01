package models

import "errors"

// Validation errors surfaced by game actions. Every action checks its
// preconditions in full before touching any state, so callers can match
// these with errors.Is and assume nothing was mutated.
var (
	ErrIllegalPhase           = errors.New("action is not legal in the current game phase")
	ErrNotOwner               = errors.New("property is not owned by this player")
	ErrAlreadyOwned           = errors.New("property is already owned")
	ErrInsufficientFunds      = errors.New("not enough money")
	ErrImprovedProperty       = errors.New("property or its color group carries an improvement")
	ErrUnbalancedBuild        = errors.New("houses must be built and sold evenly across the color group")
	ErrNotInJail              = errors.New("player is not in jail")
	ErrAlreadyFree            = errors.New("player has no jail turns remaining")
	ErrNoSuchEntity           = errors.New("entity not found")
	ErrUnauthorizedTradeParty = errors.New("player is not permitted to act on this trade")
	ErrNegativeBalance        = errors.New("player balance is negative, resolve debt first")
	ErrRoomFull               = errors.New("room is full")
	ErrNotEnoughPlayers       = errors.New("not enough players to start")
	ErrMortgaged              = errors.New("property is mortgaged")
	ErrNotMortgaged           = errors.New("property is not mortgaged")
	ErrMortgagingDisabled     = errors.New("this game does not allow mortgaging")
	ErrStageBounds            = errors.New("property cannot be improved or downgraded further")
	ErrNotProperty            = errors.New("space is not a purchasable property")
	ErrNoJailCards            = errors.New("player has no get out of jail free cards")
)
