package models

import (
	"fmt"
	"math/rand"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

const SalaryAmount = 200

const maxConsecutiveDoubles = 3

type GamePhase string

const (
	PhaseWaitingForPlayers    GamePhase = "waiting_for_players"
	PhasePlayerTurnStart      GamePhase = "player_turn_start"
	PhaseRollingDice          GamePhase = "rolling_dice"
	PhaseMovingToken          GamePhase = "moving_token"
	PhaseLandingOnSpaceAction GamePhase = "landing_on_space_action"
	PhasePostLandingActions   GamePhase = "post_landing_actions"
	PhaseGameOver             GamePhase = "game_over"
)

// Game is the authoritative state machine for one session. It owns the
// board, the players, the phase, the active trades and the ledger, and it
// is the only thing allowed to mutate them.
//
// Every action validates all of its preconditions before touching state, so
// a returned error always means "nothing happened". Games are not safe for
// concurrent use; the session store serializes access per game.
type Game struct {
	Id                 string              `json:"id"`
	GameConfig         GameConfig          `json:"config"`
	Board              *Board              `json:"board"`
	ActivePlayers      []*Player           `json:"active_players"`
	CurrentPlayerIndex int                 `json:"current_player_index"`
	CurrentPhase       GamePhase           `json:"current_phase"`
	ActiveTrades       []*Trade            `json:"active_trades"`
	History            *TransactionHistory `json:"-"`

	freeParkingPot int
	rng            *rand.Rand
	rollDice       func() (int, int) // swapped out by tests for determinism
	log            *logrus.Entry
}

func NewGame(id string) *Game {
	g := &Game{
		Id:                 id,
		GameConfig:         DefaultGameConfig(),
		Board:              NewBoard(),
		ActivePlayers:      []*Player{},
		CurrentPlayerIndex: -1,
		CurrentPhase:       PhaseWaitingForPlayers,
		ActiveTrades:       []*Trade{},
		History:            NewTransactionHistory(),
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
		log:                logrus.WithField("game_id", id),
	}
	g.rollDice = func() (int, int) {
		return g.rng.Intn(6) + 1, g.rng.Intn(6) + 1
	}
	return g
}

func (g *Game) changePhase(newPhase GamePhase) {
	g.log.WithField("phase", newPhase).Info("changing game phase")
	g.CurrentPhase = newPhase
}

// FreeParkingPot is the money accumulated from taxes, paid out on the Free
// Parking space when the config enables it.
func (g *Game) FreeParkingPot() int { return g.freeParkingPot }

// ----- Player management -----

// AddPlayer registers a player while the lobby is still open.
func (g *Game) AddPlayer(name string, color string, playerId uuid.UUID) (*Player, error) {
	if g.CurrentPhase != PhaseWaitingForPlayers {
		return nil, fmt.Errorf("%w: cannot join in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	if len(g.ActivePlayers) >= g.GameConfig.MaxPlayers {
		return nil, ErrRoomFull
	}

	player := NewPlayer(name, color, playerId)
	g.ActivePlayers = append(g.ActivePlayers, player)
	return player, nil
}

// RemovePlayer drops a player from the lobby before the game starts. Once
// the game is running, leaving is a bankruptcy.
func (g *Game) RemovePlayer(playerId uuid.UUID) error {
	if g.CurrentPhase != PhaseWaitingForPlayers {
		return fmt.Errorf("%w: leaving a running game forfeits it", ErrIllegalPhase)
	}
	for i, player := range g.ActivePlayers {
		if player.Id == playerId {
			g.ActivePlayers = append(g.ActivePlayers[:i], g.ActivePlayers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: player %s", ErrNoSuchEntity, playerId)
}

func (g *Game) GetCurrentPlayer() (*Player, error) {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.ActivePlayers) {
		return nil, fmt.Errorf("%w: no current player", ErrNoSuchEntity)
	}
	return g.ActivePlayers[g.CurrentPlayerIndex], nil
}

func (g *Game) GetPlayerById(playerId uuid.UUID) (*Player, error) {
	for _, player := range g.ActivePlayers {
		if player.Id == playerId {
			return player, nil
		}
	}
	return nil, fmt.Errorf("%w: player %s", ErrNoSuchEntity, playerId)
}

func (g *Game) PlayerIsInGame(playerId uuid.UUID) bool {
	_, err := g.GetPlayerById(playerId)
	return err == nil
}

// ----- Game flow -----

// StartGame shuffles the turn order, resets everyone to the configured
// starting money and opens the first turn.
func (g *Game) StartGame() ([]*Player, error) {
	if g.CurrentPhase != PhaseWaitingForPlayers {
		return nil, fmt.Errorf("%w: game %s already started", ErrIllegalPhase, g.Id)
	}
	if len(g.ActivePlayers) < g.GameConfig.MinPlayers {
		return nil, ErrNotEnoughPlayers
	}

	g.rng.Shuffle(len(g.ActivePlayers), func(i, j int) {
		g.ActivePlayers[i], g.ActivePlayers[j] = g.ActivePlayers[j], g.ActivePlayers[i]
	})
	for _, player := range g.ActivePlayers {
		player.SetMoney(g.GameConfig.StartingMoney)
	}
	g.CurrentPlayerIndex = 0
	g.changePhase(PhasePlayerTurnStart)

	return g.ActivePlayers, nil
}

// UpdateGameConfig replaces the rule toggles while waiting for players.
// Starting money is clamped to a sane range.
func (g *Game) UpdateGameConfig(newConfig GameConfig) error {
	if g.CurrentPhase != PhaseWaitingForPlayers {
		return fmt.Errorf("%w: config is frozen once the game starts", ErrIllegalPhase)
	}

	g.GameConfig.FreeParkingPot = newConfig.FreeParkingPot
	g.GameConfig.DoubleBaseRentOnFullColorSet = newConfig.DoubleBaseRentOnFullColorSet
	g.GameConfig.AllowCollectRentOnJail = newConfig.AllowCollectRentOnJail
	g.GameConfig.AllowMortgagingProperties = newConfig.AllowMortgagingProperties
	g.GameConfig.BalancedHousePurchase = newConfig.BalancedHousePurchase

	money := newConfig.StartingMoney
	if money < 500 {
		money = 500
	}
	if money > 3000 {
		money = 3000
	}
	g.GameConfig.StartingMoney = money
	return nil
}

func (g *Game) nextPlayer() int {
	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.ActivePlayers)
	return g.CurrentPlayerIndex
}

// EndTurn closes the post-landing window and hands the turn to the next
// player, unless the roll was a double (extra turn) or debt is unresolved.
func (g *Game) EndTurn() (int, error) {
	if g.CurrentPhase != PhasePostLandingActions {
		return 0, fmt.Errorf("%w: cannot end turn in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return 0, err
	}
	if currentPlayer.Money < 0 {
		return 0, ErrNegativeBalance
	}

	g.changePhase(PhasePlayerTurnStart)

	if currentPlayer.ConsecutiveDoubles > 0 && !currentPlayer.IsInJail {
		return g.CurrentPlayerIndex, nil
	}
	return g.nextPlayer(), nil
}

// DeclareBankruptcy removes the player, returns all their properties to the
// bank and reports the winner once only one player remains.
func (g *Game) DeclareBankruptcy(playerId uuid.UUID) (currentPlayerIndex int, winner *Player, err error) {
	if g.CurrentPhase == PhaseWaitingForPlayers {
		return 0, nil, fmt.Errorf("%w: game has not started", ErrIllegalPhase)
	}
	bankruptPlayer, err := g.GetPlayerById(playerId)
	if err != nil {
		return 0, nil, err
	}
	properties, err := g.Board.GetPropertiesByIds(bankruptPlayer.PropertiesOwned)
	if err != nil {
		return 0, nil, err
	}

	for _, property := range properties {
		property.Reset()
	}
	bankruptPlayer.PropertiesOwned = []uuid.UUID{}

	wasActingPlayer := false
	if current, err := g.GetCurrentPlayer(); err == nil {
		wasActingPlayer = current.Id == bankruptPlayer.Id
	}

	for i, player := range g.ActivePlayers {
		if player.Id == bankruptPlayer.Id {
			g.ActivePlayers = append(g.ActivePlayers[:i], g.ActivePlayers[i+1:]...)
			break
		}
	}

	if len(g.ActivePlayers) <= 1 {
		g.changePhase(PhaseGameOver)
		if len(g.ActivePlayers) == 1 {
			winner = g.ActivePlayers[0]
		}
	} else if wasActingPlayer {
		g.changePhase(PhasePlayerTurnStart)
	}

	if len(g.ActivePlayers) > 0 {
		g.CurrentPlayerIndex %= len(g.ActivePlayers)
	} else {
		g.CurrentPlayerIndex = 0
	}
	return g.CurrentPlayerIndex, winner, nil
}

// ----- Jail handling -----

// PayToGetOutOfJail pays the fine at the start of a turn for immediate
// release.
func (g *Game) PayToGetOutOfJail() ([]TransactionInfo, error) {
	if g.CurrentPhase != PhasePlayerTurnStart {
		return nil, fmt.Errorf("%w: cannot pay jail fine in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return nil, err
	}
	if !currentPlayer.IsInJail {
		return nil, ErrNotInJail
	}
	if currentPlayer.Money < g.GameConfig.JailFine {
		return nil, fmt.Errorf("%w: jail fine is %d", ErrInsufficientFunds, g.GameConfig.JailFine)
	}

	batch := g.History.Begin()
	batch.Add(TransactionInfo{Type: TxFreeFromJail, SenderId: currentPlayer.Id, Amount: g.GameConfig.JailFine, WithBank: true}, func(amount int) {
		currentPlayer.DeductMoney(amount)
		currentPlayer.FreeFromJail()
	})
	return batch.Entries(), nil
}

// UseGetOutOfJailCard consumes a card for release; no money moves.
func (g *Game) UseGetOutOfJailCard() error {
	if g.CurrentPhase != PhasePlayerTurnStart {
		return fmt.Errorf("%w: cannot use jail card in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return err
	}
	if !currentPlayer.IsInJail {
		return ErrNotInJail
	}
	if err := currentPlayer.UseGetOutOfJailFreeCard(); err != nil {
		return err
	}
	currentPlayer.FreeFromJail()
	return nil
}

// ----- Dice rolling -----

// RollDice runs one full movement sequence: jail resolution or doubles
// tracking, token movement, salary, and the landing effects of the target
// space. The returned result carries the ledger diff for the whole roll.
func (g *Game) RollDice() (*RollResult, error) {
	if g.CurrentPhase != PhasePlayerTurnStart {
		return nil, fmt.Errorf("%w: cannot roll dice in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return nil, err
	}
	if currentPlayer.Money < 0 {
		return nil, ErrNegativeBalance
	}

	g.changePhase(PhaseRollingDice)
	roll1, roll2 := g.rollDice()
	batch := g.History.Begin()

	totalMove := g.resolveRollConsequences(batch, currentPlayer, roll1, roll2)

	passedStart := false
	if !currentPlayer.IsInJail {
		g.changePhase(PhaseMovingToken)
		passedStart = currentPlayer.MoveBy(totalMove)
	}

	g.changePhase(PhaseLandingOnSpaceAction)
	if err := g.handleLandingActions(batch, currentPlayer, passedStart, totalMove); err != nil {
		return nil, err
	}

	if currentPlayer.ConsecutiveDoubles > 0 && !currentPlayer.IsInJail {
		g.changePhase(PhasePlayerTurnStart) // extra turn
	} else {
		g.changePhase(PhasePostLandingActions)
	}

	return &RollResult{
		Dice: DiceInfo{Roll1: roll1, Roll2: roll2, TotalRoll: totalMove},
		PlayerState: PlayerStateInfo{
			IsInJail:           currentPlayer.IsInJail,
			Position:           currentPlayer.CurrentPosition,
			JailTurnsRemaining: currentPlayer.JailTurnsRemaining,
			ConsecutiveDoubles: currentPlayer.ConsecutiveDoubles,
			Money:              currentPlayer.Money,
		},
		Transactions: batch.Entries(),
		NewGamePhase: g.CurrentPhase,
	}, nil
}

// resolveRollConsequences applies the jail and doubles rules and returns
// how far the token moves (0 when the player stays put).
func (g *Game) resolveRollConsequences(batch *Batch, player *Player, roll1, roll2 int) int {
	isDoubles := roll1 == roll2
	total := roll1 + roll2

	if player.IsInJail {
		return g.resolveInJailRoll(batch, player, total, isDoubles)
	}
	return g.resolveRegularRoll(player, total, isDoubles)
}

func (g *Game) resolveInJailRoll(batch *Batch, player *Player, total int, isDoubles bool) int {
	if isDoubles {
		// Doubles spring the player; the doubles do not grant an extra turn.
		g.log.WithField("player", player.Name).Info("rolled doubles and got out of jail")
		player.FreeFromJail()
		player.ResetConsecutiveDouble()
		return total
	}

	player.ReduceJailTurnRemaining() // only reachable while jailed with turns left
	if player.JailTurnsRemaining == 0 {
		// Third failed attempt: the fine is forced and the player moves
		// with this roll.
		g.log.WithField("player", player.Name).Info("must pay the jail fine")
		batch.Add(TransactionInfo{Type: TxFreeFromJail, SenderId: player.Id, Amount: g.GameConfig.JailFine, WithBank: true}, func(amount int) {
			player.DeductMoney(amount)
			player.FreeFromJail()
		})
		return total
	}
	return 0
}

func (g *Game) resolveRegularRoll(player *Player, total int, isDoubles bool) int {
	if !isDoubles {
		player.ResetConsecutiveDouble()
		return total
	}

	player.AddConsecutiveDouble()
	if player.ConsecutiveDoubles >= maxConsecutiveDoubles {
		// Third consecutive double: straight to jail, no movement.
		g.log.WithField("player", player.Name).Info("three consecutive doubles, going to jail")
		player.GoToJail()
		return 0
	}
	return total
}

func (g *Game) handleLandingActions(batch *Batch, player *Player, passedStart bool, totalMove int) error {
	if passedStart {
		batch.Add(TransactionInfo{Type: TxSalary, ReceiverId: player.Id, Amount: SalaryAmount, WithBank: true}, func(amount int) {
			player.AddMoney(amount)
		})
	}

	space, err := g.Board.SpaceAt(player.CurrentPosition)
	if err != nil {
		return err
	}

	switch s := space.(type) {
	case *SpecialSpace:
		g.processSpecialSpaceLanding(batch, player, s)
	case *Property:
		return g.processPropertyLanding(batch, player, s, totalMove)
	}
	return nil
}

func (g *Game) processSpecialSpaceLanding(batch *Batch, player *Player, space *SpecialSpace) {
	switch space.Type {
	case SpaceGoToJail:
		player.GoToJail()
	case SpaceIncomeTax:
		g.collectTax(batch, player, g.GameConfig.IncomeTax)
	case SpaceLuxuryTax:
		g.collectTax(batch, player, g.GameConfig.LuxuryTax)
	case SpaceFreeParking:
		if g.GameConfig.FreeParkingPot && g.freeParkingPot > 0 {
			batch.Add(TransactionInfo{Type: TxReward, ReceiverId: player.Id, Amount: g.freeParkingPot, WithBank: true}, func(amount int) {
				player.AddMoney(amount)
				g.freeParkingPot = 0
			})
		}
	default:
		// GO, Just Visiting, and the card decks have no monetary effect here.
	}
}

func (g *Game) collectTax(batch *Batch, player *Player, amount int) {
	batch.Add(TransactionInfo{Type: TxFine, SenderId: player.Id, Amount: amount, WithBank: true}, func(amount int) {
		g.freeParkingPot += amount
		player.DeductMoney(amount)
	})
}

func (g *Game) processPropertyLanding(batch *Batch, player *Player, property *Property, totalMove int) error {
	// Your own property, or nobody's: nothing to settle.
	if !property.IsOwnedByOther(player.Id) {
		return nil
	}

	owner, err := g.GetPlayerById(property.OwnerId)
	if err != nil {
		return err
	}
	if owner.IsInJail && !g.GameConfig.AllowCollectRentOnJail {
		return nil
	}

	ctx := RentContext{
		DiceTotal:      totalMove,
		OwnerRailroads: len(g.Board.GetPropertiesOfKindOwnedBy(KindRailroad, owner.Id)),
		OwnerUtilities: len(g.Board.GetPropertiesOfKindOwnedBy(KindUtility, owner.Id)),
	}
	if property.Kind == KindCountry {
		ctx.DoubleBaseRent = g.GameConfig.DoubleBaseRentOnFullColorSet &&
			g.Board.GroupIsOwnedByPlayer(property.Group, owner.Id)
	}

	rent := property.CalculateRent(ctx)
	if rent > 0 {
		batch.Add(TransactionInfo{Type: TxRent, SenderId: player.Id, ReceiverId: owner.Id, Amount: rent}, func(amount int) {
			player.DeductMoney(amount)
			owner.AddMoney(amount)
		})
	}
	return nil
}

// ----- Property management -----

// propertyActionPhase reports whether the phase allows property actions:
// the post-landing window, or the pre-roll window of a turn.
func (g *Game) propertyActionPhase() bool {
	return g.CurrentPhase == PhasePostLandingActions || g.CurrentPhase == PhasePlayerTurnStart
}

// BuyProperty purchases the unowned property under the current player's
// token. Legal post-landing, or on the extra turn a double grants.
func (g *Game) BuyProperty() (uuid.UUID, []TransactionInfo, error) {
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return uuid.Nil, nil, err
	}
	extraTurn := g.CurrentPhase == PhasePlayerTurnStart && currentPlayer.ConsecutiveDoubles > 0
	if g.CurrentPhase != PhasePostLandingActions && !extraTurn {
		return uuid.Nil, nil, fmt.Errorf("%w: cannot buy in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}

	space, err := g.Board.SpaceAt(currentPlayer.CurrentPosition)
	if err != nil {
		return uuid.Nil, nil, err
	}
	property, ok := space.(*Property)
	if !ok {
		return uuid.Nil, nil, ErrNotProperty
	}
	if property.IsOwned() {
		return uuid.Nil, nil, ErrAlreadyOwned
	}
	if currentPlayer.Money < property.PurchasePrice {
		return uuid.Nil, nil, fmt.Errorf("%w: %s costs %d", ErrInsufficientFunds, property.Name, property.PurchasePrice)
	}

	batch := g.History.Begin()
	batch.Add(TransactionInfo{Type: TxBuy, SenderId: currentPlayer.Id, Amount: property.PurchasePrice, WithBank: true}, func(amount int) {
		currentPlayer.DeductMoney(amount)
		property.Buy(currentPlayer.Id)
		currentPlayer.GainProperty(property.Id)
	})
	return property.Id, batch.Entries(), nil
}

// checkUnimprovedForDisposal enforces the shared rule for selling,
// mortgaging and trading: the property must be unimproved, and if its full
// group is held by one player no member of the group may carry a house.
func (g *Game) checkUnimprovedForDisposal(property *Property) error {
	if property.Kind != KindCountry {
		return nil
	}
	if property.Stage != StageUnimproved {
		return fmt.Errorf("%w: %s has houses", ErrImprovedProperty, property.Name)
	}
	if g.Board.GroupIsOwnedByPlayer(property.Group, property.OwnerId) && g.Board.GroupHasImprovement(property.Group) {
		return fmt.Errorf("%w: another property in the %s group has houses", ErrImprovedProperty, property.Group)
	}
	return nil
}

// SellProperty returns a property to the bank for half its price; a
// mortgaged property sells for nothing.
func (g *Game) SellProperty(propertyId uuid.UUID) ([]TransactionInfo, error) {
	if !g.propertyActionPhase() {
		return nil, fmt.Errorf("%w: cannot sell in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return nil, err
	}
	property, err := g.Board.GetPropertyById(propertyId)
	if err != nil {
		return nil, err
	}
	if !property.IsOwnedBy(currentPlayer.Id) {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, property.Name)
	}
	if err := g.checkUnimprovedForDisposal(property); err != nil {
		return nil, err
	}

	sellValue := property.MortgageValue()
	if property.IsMortgaged {
		sellValue = 0
	}

	batch := g.History.Begin()
	batch.Add(TransactionInfo{Type: TxSell, ReceiverId: currentPlayer.Id, Amount: sellValue, WithBank: true}, func(amount int) {
		property.Sell()
		property.Unmortgage()
		currentPlayer.LoseProperty(property.Id)
		currentPlayer.AddMoney(amount)
	})
	return batch.Entries(), nil
}

// MortgageProperty pawns a property for half its price.
func (g *Game) MortgageProperty(propertyId uuid.UUID) ([]TransactionInfo, error) {
	if !g.propertyActionPhase() {
		return nil, fmt.Errorf("%w: cannot mortgage in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	if !g.GameConfig.AllowMortgagingProperties {
		return nil, ErrMortgagingDisabled
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return nil, err
	}
	property, err := g.Board.GetPropertyById(propertyId)
	if err != nil {
		return nil, err
	}
	if !property.IsOwnedBy(currentPlayer.Id) {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, property.Name)
	}
	if property.IsMortgaged {
		return nil, fmt.Errorf("%w: %s", ErrMortgaged, property.Name)
	}
	if err := g.checkUnimprovedForDisposal(property); err != nil {
		return nil, err
	}

	batch := g.History.Begin()
	batch.Add(TransactionInfo{Type: TxMortgage, ReceiverId: currentPlayer.Id, Amount: property.MortgageValue(), WithBank: true}, func(amount int) {
		property.Mortgage()
		currentPlayer.AddMoney(amount)
	})
	return batch.Entries(), nil
}

// UnmortgageProperty buys a mortgage back at 60% of the price.
func (g *Game) UnmortgageProperty(propertyId uuid.UUID) ([]TransactionInfo, error) {
	if !g.propertyActionPhase() {
		return nil, fmt.Errorf("%w: cannot unmortgage in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	if !g.GameConfig.AllowMortgagingProperties {
		return nil, ErrMortgagingDisabled
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return nil, err
	}
	property, err := g.Board.GetPropertyById(propertyId)
	if err != nil {
		return nil, err
	}
	if !property.IsOwnedBy(currentPlayer.Id) {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, property.Name)
	}
	if !property.IsMortgaged {
		return nil, fmt.Errorf("%w: %s", ErrNotMortgaged, property.Name)
	}
	if currentPlayer.Money < property.UnmortgageCost() {
		return nil, fmt.Errorf("%w: unmortgaging %s costs %d", ErrInsufficientFunds, property.Name, property.UnmortgageCost())
	}

	batch := g.History.Begin()
	batch.Add(TransactionInfo{Type: TxUnmortgage, SenderId: currentPlayer.Id, Amount: property.UnmortgageCost(), WithBank: true}, func(amount int) {
		property.Unmortgage()
		currentPlayer.DeductMoney(amount)
	})
	return batch.Entries(), nil
}

// checkUpgradeDowngradePermission is the shared gate for building and
// selling houses: caller owns the property and its entire group, nothing in
// the group is mortgaged.
func (g *Game) checkUpgradeDowngradePermission(property *Property, player *Player) error {
	if property.Kind != KindCountry {
		return fmt.Errorf("%w: only country properties carry houses", ErrNotProperty)
	}
	if property.IsMortgaged {
		return fmt.Errorf("%w: %s", ErrMortgaged, property.Name)
	}
	if !property.IsOwnedBy(player.Id) {
		return fmt.Errorf("%w: %s", ErrNotOwner, property.Name)
	}
	if !g.Board.GroupIsOwnedByPlayer(property.Group, player.Id) {
		return fmt.Errorf("%w: player does not own the full %s group", ErrNotOwner, property.Group)
	}
	if g.Board.GroupHasMortgage(property.Group) {
		return fmt.Errorf("%w: a property in the %s group is mortgaged", ErrMortgaged, property.Group)
	}
	return nil
}

// UpgradeProperty builds one house (or the hotel) on a country property.
func (g *Game) UpgradeProperty(propertyId uuid.UUID) ([]TransactionInfo, error) {
	if !g.propertyActionPhase() {
		return nil, fmt.Errorf("%w: cannot build in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return nil, err
	}
	property, err := g.Board.GetPropertyById(propertyId)
	if err != nil {
		return nil, err
	}
	if err := g.checkUpgradeDowngradePermission(property, currentPlayer); err != nil {
		return nil, err
	}
	if property.Stage >= StageHotel {
		return nil, fmt.Errorf("%w: %s already has a hotel", ErrStageBounds, property.Name)
	}
	if g.GameConfig.BalancedHousePurchase && g.Board.LowestStageInGroup(property.Group) != property.Stage {
		return nil, fmt.Errorf("%w: build on the least developed property first", ErrUnbalancedBuild)
	}
	if currentPlayer.Money < property.HouseCost {
		return nil, fmt.Errorf("%w: a house on %s costs %d", ErrInsufficientFunds, property.Name, property.HouseCost)
	}

	batch := g.History.Begin()
	batch.Add(TransactionInfo{Type: TxUpgrade, SenderId: currentPlayer.Id, Amount: property.HouseCost, WithBank: true}, func(amount int) {
		property.UpgradeStage()
		currentPlayer.DeductMoney(amount)
	})
	return batch.Entries(), nil
}

// DowngradeProperty sells one house (or the hotel) back to the bank for
// half the house cost.
func (g *Game) DowngradeProperty(propertyId uuid.UUID) ([]TransactionInfo, error) {
	if !g.propertyActionPhase() {
		return nil, fmt.Errorf("%w: cannot sell houses in phase %s", ErrIllegalPhase, g.CurrentPhase)
	}
	currentPlayer, err := g.GetCurrentPlayer()
	if err != nil {
		return nil, err
	}
	property, err := g.Board.GetPropertyById(propertyId)
	if err != nil {
		return nil, err
	}
	if err := g.checkUpgradeDowngradePermission(property, currentPlayer); err != nil {
		return nil, err
	}
	if property.Stage <= StageUnimproved {
		return nil, fmt.Errorf("%w: %s has no houses", ErrStageBounds, property.Name)
	}
	if g.GameConfig.BalancedHousePurchase && g.Board.HighestStageInGroup(property.Group) != property.Stage {
		return nil, fmt.Errorf("%w: sell from the most developed property first", ErrUnbalancedBuild)
	}

	batch := g.History.Begin()
	batch.Add(TransactionInfo{Type: TxDowngrade, ReceiverId: currentPlayer.Id, Amount: property.HouseSellValue(), WithBank: true}, func(amount int) {
		property.DowngradeStage()
		currentPlayer.AddMoney(amount)
	})
	return batch.Entries(), nil
}

// ----- Trade -----

func (g *Game) getTradeById(tradeId uuid.UUID) (*Trade, error) {
	for _, trade := range g.ActiveTrades {
		if trade.Id == tradeId {
			return trade, nil
		}
	}
	return nil, fmt.Errorf("%w: trade %s", ErrNoSuchEntity, tradeId)
}

func (g *Game) removeTrade(tradeId uuid.UUID) {
	for i, trade := range g.ActiveTrades {
		if trade.Id == tradeId {
			g.ActiveTrades = append(g.ActiveTrades[:i], g.ActiveTrades[i+1:]...)
			return
		}
	}
}

// validateTradeProposal checks a proposal against live state: pledged cards
// and money exist, every property is genuinely owned by its side, and
// nothing offered sits in an improved color group.
func (g *Game) validateTradeProposal(initiator, recipient *Player, offer, counterOffer TradeOffer) error {
	if offer.JailCards < 0 || counterOffer.JailCards < 0 || offer.Money < 0 || counterOffer.Money < 0 {
		return fmt.Errorf("%w: offers cannot be negative", ErrInsufficientFunds)
	}
	if initiator.GetOutOfJailFreeCards < offer.JailCards {
		return fmt.Errorf("%w: initiator pledged %d", ErrNoJailCards, offer.JailCards)
	}
	if recipient.GetOutOfJailFreeCards < counterOffer.JailCards {
		return fmt.Errorf("%w: recipient pledged %d", ErrNoJailCards, counterOffer.JailCards)
	}
	if initiator.Money < offer.Money {
		return fmt.Errorf("%w: initiator pledged %d", ErrInsufficientFunds, offer.Money)
	}
	if recipient.Money < counterOffer.Money {
		return fmt.Errorf("%w: recipient pledged %d", ErrInsufficientFunds, counterOffer.Money)
	}

	for _, propertyId := range offer.Properties {
		if !initiator.OwnsProperty(propertyId) {
			return fmt.Errorf("%w: initiator does not own %s", ErrNotOwner, propertyId)
		}
	}
	for _, propertyId := range counterOffer.Properties {
		if !recipient.OwnsProperty(propertyId) {
			return fmt.Errorf("%w: recipient does not own %s", ErrNotOwner, propertyId)
		}
	}

	allProperties := append(append([]uuid.UUID{}, offer.Properties...), counterOffer.Properties...)
	for _, propertyId := range allProperties {
		property, err := g.Board.GetPropertyById(propertyId)
		if err != nil {
			return err
		}
		if err := g.checkUnimprovedForDisposal(property); err != nil {
			return err
		}
	}
	return nil
}

// InitiateTrade opens a negotiation. Trades have no phase restriction;
// only player existence and a valid proposal gate them.
func (g *Game) InitiateTrade(initiatorId, recipientId uuid.UUID, offer, counterOffer TradeOffer) (*Trade, error) {
	initiator, err := g.GetPlayerById(initiatorId)
	if err != nil {
		return nil, err
	}
	recipient, err := g.GetPlayerById(recipientId)
	if err != nil {
		return nil, err
	}
	if initiatorId == recipientId {
		return nil, fmt.Errorf("%w: cannot trade with yourself", ErrUnauthorizedTradeParty)
	}
	if err := g.validateTradeProposal(initiator, recipient, offer, counterOffer); err != nil {
		return nil, err
	}

	trade := NewTrade(initiatorId, recipientId, offer, counterOffer)
	g.ActiveTrades = append(g.ActiveTrades, trade)
	return trade, nil
}

// NegotiateTrade lets the awaited party replace the proposal with a
// counter-proposal, handing the decision back to the other side.
func (g *Game) NegotiateTrade(negotiatorId, tradeId uuid.UUID, offer, counterOffer TradeOffer) (*Trade, error) {
	trade, err := g.getTradeById(tradeId)
	if err != nil {
		return nil, err
	}
	if trade.AwaitingId != negotiatorId {
		return nil, fmt.Errorf("%w: it is not this player's turn to respond", ErrUnauthorizedTradeParty)
	}
	initiator, err := g.GetPlayerById(trade.InitiatorId)
	if err != nil {
		return nil, err
	}
	recipient, err := g.GetPlayerById(trade.RecipientId)
	if err != nil {
		return nil, err
	}
	if err := g.validateTradeProposal(initiator, recipient, offer, counterOffer); err != nil {
		return nil, err
	}

	trade.Negotiate(offer, counterOffer)
	return trade, nil
}

// AcceptTrade re-validates the live proposal and then atomically moves
// money, properties and jail cards between the two parties.
func (g *Game) AcceptTrade(tradeId, accepterId uuid.UUID) ([]TransactionInfo, *Trade, error) {
	trade, err := g.getTradeById(tradeId)
	if err != nil {
		return nil, nil, err
	}
	if trade.AwaitingId != accepterId {
		return nil, nil, fmt.Errorf("%w: it is not this player's turn to respond", ErrUnauthorizedTradeParty)
	}
	initiator, err := g.GetPlayerById(trade.InitiatorId)
	if err != nil {
		return nil, nil, err
	}
	recipient, err := g.GetPlayerById(trade.RecipientId)
	if err != nil {
		return nil, nil, err
	}

	offer := trade.Current.Offer
	counterOffer := trade.Current.CounterOffer

	// Offers are not escrowed: state may have changed since initiation.
	if err := g.validateTradeProposal(initiator, recipient, offer, counterOffer); err != nil {
		return nil, nil, err
	}
	offerProperties, err := g.Board.GetPropertiesByIds(offer.Properties)
	if err != nil {
		return nil, nil, err
	}
	counterOfferProperties, err := g.Board.GetPropertiesByIds(counterOffer.Properties)
	if err != nil {
		return nil, nil, err
	}

	batch := g.History.Begin()
	if offer.Money > 0 {
		batch.Add(TransactionInfo{Type: TxTrade, SenderId: initiator.Id, ReceiverId: recipient.Id, Amount: offer.Money}, func(amount int) {
			initiator.DeductMoney(amount)
			recipient.AddMoney(amount)
		})
	}
	if counterOffer.Money > 0 {
		batch.Add(TransactionInfo{Type: TxTrade, SenderId: recipient.Id, ReceiverId: initiator.Id, Amount: counterOffer.Money}, func(amount int) {
			recipient.DeductMoney(amount)
			initiator.AddMoney(amount)
		})
	}

	for _, property := range offerProperties {
		property.ChangeOwner(recipient.Id)
		initiator.LoseProperty(property.Id)
		recipient.GainProperty(property.Id)
	}
	for _, property := range counterOfferProperties {
		property.ChangeOwner(initiator.Id)
		recipient.LoseProperty(property.Id)
		initiator.GainProperty(property.Id)
	}

	if offer.JailCards > 0 {
		initiator.AddGetOutOfJailFreeCards(-offer.JailCards)
		recipient.AddGetOutOfJailFreeCards(offer.JailCards)
	}
	if counterOffer.JailCards > 0 {
		recipient.AddGetOutOfJailFreeCards(-counterOffer.JailCards)
		initiator.AddGetOutOfJailFreeCards(counterOffer.JailCards)
	}

	g.removeTrade(trade.Id)
	return batch.Entries(), trade, nil
}

// RejectTrade discards the trade; only the awaited party may reject.
func (g *Game) RejectTrade(tradeId, rejecterId uuid.UUID) error {
	trade, err := g.getTradeById(tradeId)
	if err != nil {
		return err
	}
	if trade.AwaitingId != rejecterId {
		return fmt.Errorf("%w: it is not this player's turn to respond", ErrUnauthorizedTradeParty)
	}
	g.removeTrade(trade.Id)
	return nil
}

// CancelTrade withdraws a pending proposal; only its proposer may cancel.
func (g *Game) CancelTrade(tradeId, cancellerId uuid.UUID) error {
	trade, err := g.getTradeById(tradeId)
	if err != nil {
		return err
	}
	if trade.Proposer() != cancellerId {
		return fmt.Errorf("%w: only the proposer can cancel", ErrUnauthorizedTradeParty)
	}
	g.removeTrade(trade.Id)
	return nil
}
