package models

import (
	"errors"
	"fmt"
	"testing"

	uuid "github.com/satori/go.uuid"
)

func newStartedGame(t *testing.T, playerCount int) *Game {
	t.Helper()
	g := NewGame("TESTROOM")
	for i := 0; i < playerCount; i++ {
		if _, err := g.AddPlayer(fmt.Sprintf("player-%d", i), "red", uuid.NewV4()); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}
	if _, err := g.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return g
}

func setRoll(g *Game, roll1, roll2 int) {
	g.rollDice = func() (int, int) { return roll1, roll2 }
}

func mustRoll(t *testing.T, g *Game) *RollResult {
	t.Helper()
	result, err := g.RollDice()
	if err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	return result
}

func mustEndTurn(t *testing.T, g *Game) {
	t.Helper()
	if _, err := g.EndTurn(); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
}

func TestStartGameRequiresEnoughPlayers(t *testing.T) {
	g := NewGame("TESTROOM")
	if _, err := g.AddPlayer("alone", "red", uuid.NewV4()); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if _, err := g.StartGame(); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}
}

func TestStartGameResetsMoneyAndOpensFirstTurn(t *testing.T) {
	g := NewGame("TESTROOM")
	g.AddPlayer("a", "red", uuid.NewV4())
	g.AddPlayer("b", "blue", uuid.NewV4())
	if err := g.UpdateGameConfig(GameConfig{StartingMoney: 2000}); err != nil {
		t.Fatalf("UpdateGameConfig: %v", err)
	}

	players, err := g.StartGame()
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if g.CurrentPhase != PhasePlayerTurnStart {
		t.Fatalf("expected phase %s, got %s", PhasePlayerTurnStart, g.CurrentPhase)
	}
	for _, player := range players {
		if player.Money != 2000 {
			t.Fatalf("player %s has %d, expected 2000", player.Name, player.Money)
		}
	}

	if _, err := g.StartGame(); !errors.Is(err, ErrIllegalPhase) {
		t.Fatalf("expected ErrIllegalPhase on second start, got %v", err)
	}
	if _, err := g.AddPlayer("late", "green", uuid.NewV4()); !errors.Is(err, ErrIllegalPhase) {
		t.Fatalf("expected ErrIllegalPhase joining started game, got %v", err)
	}
}

func TestUpdateGameConfigClampsStartingMoney(t *testing.T) {
	g := NewGame("TESTROOM")
	g.UpdateGameConfig(GameConfig{StartingMoney: 100})
	if g.GameConfig.StartingMoney != 500 {
		t.Fatalf("expected clamp to 500, got %d", g.GameConfig.StartingMoney)
	}
	g.UpdateGameConfig(GameConfig{StartingMoney: 10000})
	if g.GameConfig.StartingMoney != 3000 {
		t.Fatalf("expected clamp to 3000, got %d", g.GameConfig.StartingMoney)
	}
}

func TestAddPlayerRespectsRoomLimit(t *testing.T) {
	g := NewGame("TESTROOM")
	for i := 0; i < g.GameConfig.MaxPlayers; i++ {
		if _, err := g.AddPlayer(fmt.Sprintf("p%d", i), "red", uuid.NewV4()); err != nil {
			t.Fatalf("AddPlayer %d: %v", i, err)
		}
	}
	if _, err := g.AddPlayer("extra", "red", uuid.NewV4()); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestRollMoveBuyAndCollectRent(t *testing.T) {
	g := newStartedGame(t, 2)
	buyer, _ := g.GetCurrentPlayer()

	setRoll(g, 1, 2)
	result := mustRoll(t, g)
	if result.PlayerState.Position != 3 {
		t.Fatalf("expected position 3, got %d", result.PlayerState.Position)
	}
	if g.CurrentPhase != PhasePostLandingActions {
		t.Fatalf("expected post landing phase, got %s", g.CurrentPhase)
	}

	propertyId, transactions, err := g.BuyProperty()
	if err != nil {
		t.Fatalf("BuyProperty: %v", err)
	}
	if buyer.Money != 1500-60 {
		t.Fatalf("expected 1440 after buying, got %d", buyer.Money)
	}
	if len(transactions) != 1 || transactions[0].Type != TxBuy || transactions[0].Amount != 60 {
		t.Fatalf("unexpected buy transactions: %+v", transactions)
	}
	if !buyer.OwnsProperty(propertyId) {
		t.Fatal("buyer does not hold the property")
	}

	// Buying the same space twice must fail.
	if _, _, err := g.BuyProperty(); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}

	mustEndTurn(t, g)
	visitor, _ := g.GetCurrentPlayer()

	setRoll(g, 1, 2)
	result = mustRoll(t, g)
	rentPaid := false
	for _, tx := range result.Transactions {
		if tx.Type == TxRent {
			rentPaid = true
			if tx.Amount != 4 {
				t.Fatalf("expected rent 4, got %d", tx.Amount)
			}
			if tx.SenderId != visitor.Id || tx.ReceiverId != buyer.Id {
				t.Fatalf("rent flowed the wrong way: %+v", tx)
			}
		}
	}
	if !rentPaid {
		t.Fatal("no rent transaction recorded")
	}
	if visitor.Money != 1496 {
		t.Fatalf("visitor money = %d, expected 1496", visitor.Money)
	}
	if buyer.Money != 1444 {
		t.Fatalf("owner money = %d, expected 1444", buyer.Money)
	}
}

func TestThreeConsecutiveDoublesGoToJail(t *testing.T) {
	g := newStartedGame(t, 2)
	player, _ := g.GetCurrentPlayer()
	setRoll(g, 3, 3)

	result := mustRoll(t, g)
	if result.NewGamePhase != PhasePlayerTurnStart {
		t.Fatalf("first double should grant an extra turn, phase = %s", result.NewGamePhase)
	}
	if player.ConsecutiveDoubles != 1 {
		t.Fatalf("expected 1 consecutive double, got %d", player.ConsecutiveDoubles)
	}

	mustRoll(t, g)
	if player.ConsecutiveDoubles != 2 {
		t.Fatalf("expected 2 consecutive doubles, got %d", player.ConsecutiveDoubles)
	}

	result = mustRoll(t, g)
	if !player.IsInJail {
		t.Fatal("third consecutive double must jail the player")
	}
	if player.CurrentPosition != JailPosition {
		t.Fatalf("expected position %d, got %d", JailPosition, player.CurrentPosition)
	}
	if result.Dice.TotalRoll != 0 {
		t.Fatalf("jailed player must not move, total roll = %d", result.Dice.TotalRoll)
	}
	if player.JailTurnsRemaining != MaxJailTurns {
		t.Fatalf("expected %d jail turns, got %d", MaxJailTurns, player.JailTurnsRemaining)
	}
	if result.NewGamePhase != PhasePostLandingActions {
		t.Fatalf("going to jail ends the streak, phase = %s", result.NewGamePhase)
	}
}

func TestJailDoublesRollReleasesAndMoves(t *testing.T) {
	g := newStartedGame(t, 2)
	player, _ := g.GetCurrentPlayer()
	player.GoToJail()

	setRoll(g, 3, 3)
	result := mustRoll(t, g)
	if player.IsInJail {
		t.Fatal("doubles must release the player")
	}
	if player.CurrentPosition != JailPosition+6 {
		t.Fatalf("expected position %d, got %d", JailPosition+6, player.CurrentPosition)
	}
	if player.ConsecutiveDoubles != 0 {
		t.Fatal("a release roll must not count toward the doubles streak")
	}
	if result.NewGamePhase != PhasePostLandingActions {
		t.Fatalf("release roll grants no extra turn, phase = %s", result.NewGamePhase)
	}
}

func TestJailThirdFailedRollForcesFineAndMoves(t *testing.T) {
	g := newStartedGame(t, 2)
	jailed, _ := g.GetCurrentPlayer()
	jailed.GoToJail()

	for attempt := 1; attempt <= 3; attempt++ {
		setRoll(g, 1, 2)
		result := mustRoll(t, g)

		if attempt < 3 {
			if result.Dice.TotalRoll != 0 {
				t.Fatalf("attempt %d: jailed player must not move", attempt)
			}
			if jailed.JailTurnsRemaining != MaxJailTurns-attempt {
				t.Fatalf("attempt %d: %d turns remaining", attempt, jailed.JailTurnsRemaining)
			}
		} else {
			if jailed.IsInJail {
				t.Fatal("third failed attempt must release the player")
			}
			if jailed.Money != 1500-g.GameConfig.JailFine {
				t.Fatalf("expected forced fine, money = %d", jailed.Money)
			}
			if jailed.CurrentPosition != JailPosition+3 {
				t.Fatalf("expected position %d, got %d", JailPosition+3, jailed.CurrentPosition)
			}
			finePaid := false
			for _, tx := range result.Transactions {
				if tx.Type == TxFreeFromJail {
					finePaid = true
				}
			}
			if !finePaid {
				t.Fatal("no jail fine transaction recorded")
			}
			break
		}

		mustEndTurn(t, g)
		setRoll(g, 2, 4) // the other player's uneventful turn
		mustRoll(t, g)
		mustEndTurn(t, g)
	}
}

func TestPayToGetOutOfJail(t *testing.T) {
	g := newStartedGame(t, 2)
	player, _ := g.GetCurrentPlayer()
	player.GoToJail()

	transactions, err := g.PayToGetOutOfJail()
	if err != nil {
		t.Fatalf("PayToGetOutOfJail: %v", err)
	}
	if player.IsInJail {
		t.Fatal("player still in jail after paying")
	}
	if player.Money != 1500-g.GameConfig.JailFine {
		t.Fatalf("money = %d after paying fine", player.Money)
	}
	if len(transactions) != 1 || transactions[0].Type != TxFreeFromJail {
		t.Fatalf("unexpected transactions: %+v", transactions)
	}

	if _, err := g.PayToGetOutOfJail(); !errors.Is(err, ErrNotInJail) {
		t.Fatalf("expected ErrNotInJail, got %v", err)
	}
}

func TestUseGetOutOfJailCard(t *testing.T) {
	g := newStartedGame(t, 2)
	player, _ := g.GetCurrentPlayer()
	player.GoToJail()

	if err := g.UseGetOutOfJailCard(); !errors.Is(err, ErrNoJailCards) {
		t.Fatalf("expected ErrNoJailCards, got %v", err)
	}

	player.AddGetOutOfJailFreeCards(1)
	if err := g.UseGetOutOfJailCard(); err != nil {
		t.Fatalf("UseGetOutOfJailCard: %v", err)
	}
	if player.IsInJail || player.GetOutOfJailFreeCards != 0 {
		t.Fatal("card use must release the player and consume the card")
	}
	if player.Money != 1500 {
		t.Fatal("card use must not move money")
	}
}

func TestRollDiceIllegalOutsideTurnStart(t *testing.T) {
	g := newStartedGame(t, 2)
	setRoll(g, 1, 2)
	mustRoll(t, g)
	if _, err := g.RollDice(); !errors.Is(err, ErrIllegalPhase) {
		t.Fatalf("expected ErrIllegalPhase, got %v", err)
	}
}

func TestRollDiceBlockedByDebt(t *testing.T) {
	g := newStartedGame(t, 2)
	player, _ := g.GetCurrentPlayer()
	player.SetMoney(-10)
	if _, err := g.RollDice(); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("expected ErrNegativeBalance, got %v", err)
	}
}

func TestEndTurnRules(t *testing.T) {
	g := newStartedGame(t, 2)
	if _, err := g.EndTurn(); !errors.Is(err, ErrIllegalPhase) {
		t.Fatalf("expected ErrIllegalPhase before rolling, got %v", err)
	}

	first, _ := g.GetCurrentPlayer()
	setRoll(g, 1, 2)
	mustRoll(t, g)

	first.SetMoney(-1)
	if _, err := g.EndTurn(); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("expected ErrNegativeBalance, got %v", err)
	}
	first.SetMoney(100)

	mustEndTurn(t, g)
	second, _ := g.GetCurrentPlayer()
	if second.Id == first.Id {
		t.Fatal("turn did not advance")
	}
}

func TestPassingGoPaysSalary(t *testing.T) {
	g := newStartedGame(t, 2)
	player, _ := g.GetCurrentPlayer()
	player.MoveTo(38)

	setRoll(g, 1, 3)
	result := mustRoll(t, g)
	if player.CurrentPosition != 2 {
		t.Fatalf("expected wrap to position 2, got %d", player.CurrentPosition)
	}
	if player.Money != 1500+SalaryAmount {
		t.Fatalf("expected salary, money = %d", player.Money)
	}
	salaryPaid := false
	for _, tx := range result.Transactions {
		if tx.Type == TxSalary && tx.Amount == SalaryAmount {
			salaryPaid = true
		}
	}
	if !salaryPaid {
		t.Fatal("no salary transaction recorded")
	}
}

func TestTaxesFeedFreeParkingPot(t *testing.T) {
	g := newStartedGame(t, 2)
	taxed, _ := g.GetCurrentPlayer()

	setRoll(g, 1, 3) // lands on income tax
	mustRoll(t, g)
	if taxed.Money != 1500-g.GameConfig.IncomeTax {
		t.Fatalf("expected income tax deducted, money = %d", taxed.Money)
	}
	if g.FreeParkingPot() != g.GameConfig.IncomeTax {
		t.Fatalf("pot = %d, expected %d", g.FreeParkingPot(), g.GameConfig.IncomeTax)
	}
	mustEndTurn(t, g)

	collector, _ := g.GetCurrentPlayer()
	collector.MoveTo(16)
	setRoll(g, 1, 3) // lands on free parking
	result := mustRoll(t, g)
	if collector.Money != 1500+200 {
		t.Fatalf("expected pot payout, money = %d", collector.Money)
	}
	if g.FreeParkingPot() != 0 {
		t.Fatalf("pot not emptied, pot = %d", g.FreeParkingPot())
	}
	rewarded := false
	for _, tx := range result.Transactions {
		if tx.Type == TxReward {
			rewarded = true
		}
	}
	if !rewarded {
		t.Fatal("no reward transaction recorded")
	}
}

func TestMortgagedPropertyCollectsNoRent(t *testing.T) {
	g := newStartedGame(t, 2)
	owner := g.ActivePlayers[0]
	visitor := g.ActivePlayers[1]

	laos, _ := g.Board.SpaceAt(3)
	property := laos.(*Property)
	property.Buy(owner.Id)
	owner.GainProperty(property.Id)
	property.Mortgage()

	g.CurrentPlayerIndex = 1
	setRoll(g, 1, 2)
	result := mustRoll(t, g)
	for _, tx := range result.Transactions {
		if tx.Type == TxRent {
			t.Fatalf("mortgaged property collected rent: %+v", tx)
		}
	}
	if visitor.Money != 1500 {
		t.Fatalf("visitor money changed: %d", visitor.Money)
	}
}

func TestJailedOwnerRentToggle(t *testing.T) {
	g := newStartedGame(t, 2)
	g.GameConfig.AllowCollectRentOnJail = false

	owner := g.ActivePlayers[0]
	visitor := g.ActivePlayers[1]

	laos, _ := g.Board.SpaceAt(3)
	property := laos.(*Property)
	property.Buy(owner.Id)
	owner.GainProperty(property.Id)
	owner.GoToJail()

	g.CurrentPlayerIndex = 1
	setRoll(g, 1, 2)
	mustRoll(t, g)
	if visitor.Money != 1500 {
		t.Fatalf("jailed owner collected rent, visitor money = %d", visitor.Money)
	}
}

func TestDeclareBankruptcyReleasesPropertiesAndEndsGame(t *testing.T) {
	g := newStartedGame(t, 2)
	loser := g.ActivePlayers[0]
	survivor := g.ActivePlayers[1]

	bhutan, _ := g.Board.SpaceAt(1)
	property := bhutan.(*Property)
	property.Buy(loser.Id)
	loser.GainProperty(property.Id)
	property.Stage = 2
	property.IsMortgaged = true

	_, winner, err := g.DeclareBankruptcy(loser.Id)
	if err != nil {
		t.Fatalf("DeclareBankruptcy: %v", err)
	}
	if winner == nil || winner.Id != survivor.Id {
		t.Fatalf("expected %s to win, got %+v", survivor.Name, winner)
	}
	if g.CurrentPhase != PhaseGameOver {
		t.Fatalf("expected game over, phase = %s", g.CurrentPhase)
	}
	if property.IsOwned() || property.IsMortgaged || property.Stage != StageUnimproved {
		t.Fatalf("property not reset: %+v", property)
	}
}

func TestDeclareBankruptcyRejectedBeforeStart(t *testing.T) {
	g := NewGame("TESTROOM")
	player, _ := g.AddPlayer("a", "red", uuid.NewV4())
	if _, _, err := g.DeclareBankruptcy(player.Id); !errors.Is(err, ErrIllegalPhase) {
		t.Fatalf("expected ErrIllegalPhase, got %v", err)
	}
}

func TestDeclareBankruptcyMidGameAdvancesTurn(t *testing.T) {
	g := newStartedGame(t, 3)
	acting, _ := g.GetCurrentPlayer()

	_, winner, err := g.DeclareBankruptcy(acting.Id)
	if err != nil {
		t.Fatalf("DeclareBankruptcy: %v", err)
	}
	if winner != nil {
		t.Fatalf("no winner expected with two players left, got %s", winner.Name)
	}
	if g.CurrentPhase != PhasePlayerTurnStart {
		t.Fatalf("expected a fresh turn, phase = %s", g.CurrentPhase)
	}
	if len(g.ActivePlayers) != 2 {
		t.Fatalf("expected 2 players, got %d", len(g.ActivePlayers))
	}
	current, err := g.GetCurrentPlayer()
	if err != nil {
		t.Fatalf("GetCurrentPlayer: %v", err)
	}
	if current.Id == acting.Id {
		t.Fatal("bankrupt player still holds the turn")
	}
}

func TestRemovePlayerOnlyBeforeStart(t *testing.T) {
	g := NewGame("TESTROOM")
	player, _ := g.AddPlayer("a", "red", uuid.NewV4())
	g.AddPlayer("b", "blue", uuid.NewV4())

	if err := g.RemovePlayer(player.Id); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if len(g.ActivePlayers) != 1 {
		t.Fatalf("expected 1 player, got %d", len(g.ActivePlayers))
	}

	g.AddPlayer("c", "green", uuid.NewV4())
	if _, err := g.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	other := g.ActivePlayers[0]
	if err := g.RemovePlayer(other.Id); !errors.Is(err, ErrIllegalPhase) {
		t.Fatalf("expected ErrIllegalPhase, got %v", err)
	}
}
