package models

// DiceInfo is the physical outcome of one roll.
type DiceInfo struct {
	Roll1     int `json:"roll1"`
	Roll2     int `json:"roll2"`
	TotalRoll int `json:"total_roll"` // 0 when the player did not move
}

// PlayerStateInfo is the current player's state after the roll resolved.
type PlayerStateInfo struct {
	IsInJail           bool `json:"is_in_jail"`
	Position           int  `json:"position"`
	JailTurnsRemaining int  `json:"jail_turns_remaining"`
	ConsecutiveDoubles int  `json:"consecutive_doubles"`
	Money              int  `json:"money"`
}

// RollResult is everything an observer needs to render one dice roll: the
// dice, the mover's state, the ledger diff and the phase the game landed in.
type RollResult struct {
	Dice         DiceInfo          `json:"dice"`
	PlayerState  PlayerStateInfo   `json:"player_state"`
	Transactions []TransactionInfo `json:"transactions"`
	NewGamePhase GamePhase         `json:"new_game_phase"`
}
