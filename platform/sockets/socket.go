package socket

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-pg/pg/v10"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/cors"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"monopolyserver/app/models"
	"monopolyserver/platform/cache"
	"monopolyserver/platform/database"
	"monopolyserver/platform/events"
	"monopolyserver/platform/sessions"
)

var errNotYourTurn = errors.New("it is not your turn")

// actionRequest is the common payload for per-player game actions.
type actionRequest struct {
	GameId     string `json:"game_id"`
	UserId     string `json:"user_id"`
	PropertyId string `json:"property_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Color      string `json:"color,omitempty"`
}

type configRequest struct {
	GameId string            `json:"game_id"`
	UserId string            `json:"user_id"`
	Config models.GameConfig `json:"config"`
}

type tradeRequest struct {
	GameId       string            `json:"game_id"`
	UserId       string            `json:"user_id"`
	TradeId      string            `json:"trade_id,omitempty"`
	RecipientId  string            `json:"recipient_id,omitempty"`
	Offer        models.TradeOffer `json:"offer"`
	CounterOffer models.TradeOffer `json:"counter_offer"`
}

// gameServer wires socket.io events to game sessions. Socket handlers only
// parse, dispatch into the session under its lock, and broadcast the
// outcome; all rules live in the models package.
type gameServer struct {
	io    *socketio.Server
	store *sessions.Store
	pub   events.Publisher
	db    *pg.DB
}

func parseAction(jsonStr string) (*actionRequest, error) {
	req := new(actionRequest)
	if err := json.Unmarshal([]byte(jsonStr), req); err != nil {
		return nil, err
	}
	if req.GameId == "" || req.UserId == "" {
		return nil, errors.New("game_id and user_id are required")
	}
	return req, nil
}

// requireTurn guards actions that only the acting player may take.
func requireTurn(g *models.Game, userId string) error {
	playerId, err := uuid.FromString(userId)
	if err != nil {
		return err
	}
	current, err := g.GetCurrentPlayer()
	if err != nil {
		return err
	}
	if current.Id != playerId {
		return errNotYourTurn
	}
	return nil
}

// broadcast sends the event to everyone in the room and mirrors it to the
// external event channel.
func (gs *gameServer) broadcast(gameId, event string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("failed to marshal broadcast payload")
		return
	}
	gs.io.BroadcastToRoom("/", gameId, event, string(body))
	if err := gs.pub.Publish(gameId, event, payload); err != nil {
		logrus.WithError(err).WithField("event", event).Warn("event publish failed")
	}
}

func (gs *gameServer) fail(s socketio.Conn, err error) {
	s.Emit("error-message", err.Error())
}

// ----- Lobby events -----

func (gs *gameServer) onJoinGame(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}
	playerId, err := uuid.FromString(req.UserId)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var player *models.Player
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		p, err := g.AddPlayer(req.Name, req.Color, playerId)
		if err != nil {
			return err
		}
		player = p
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}

	s.Join(req.GameId)
	gs.broadcast(req.GameId, "player-join", player)
	logrus.WithFields(logrus.Fields{"game_id": req.GameId, "player": req.Name}).Info("player joined room")
}

func (gs *gameServer) onLeaveGame(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}
	playerId, err := uuid.FromString(req.UserId)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var started bool
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		if g.CurrentPhase == models.PhaseWaitingForPlayers {
			return g.RemovePlayer(playerId)
		}
		started = true
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}

	s.Leave(req.GameId)
	gs.broadcast(req.GameId, "player-left", map[string]string{"player_id": req.UserId})

	// Abandoning a running game forfeits it.
	if started {
		gs.declareBankruptcy(s, req.GameId, playerId)
	}
}

func (gs *gameServer) onUpdateConfig(s socketio.Conn, jsonStr string) {
	req := new(configRequest)
	if err := json.Unmarshal([]byte(jsonStr), req); err != nil {
		gs.fail(s, err)
		return
	}

	err := gs.store.Do(req.GameId, func(g *models.Game) error {
		return g.UpdateGameConfig(req.Config)
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "config-updated", req.Config)
}

func (gs *gameServer) onStartGame(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var players []*models.Player
	var current *models.Player
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		ps, err := g.StartGame()
		if err != nil {
			return err
		}
		players = ps
		current, err = g.GetCurrentPlayer()
		return err
	})
	if err != nil {
		gs.fail(s, err)
		return
	}

	if _, err := gs.db.Model(&models.GameRecord{}).
		Set("status = ?", models.GameStatusStarted).
		Where("id = ?", req.GameId).
		Update(); err != nil {
		logrus.WithError(err).WithField("game_id", req.GameId).Error("failed to mark game started")
	}

	gs.broadcast(req.GameId, "game-start", players)
	gs.broadcast(req.GameId, "change-turn", map[string]string{"player_id": current.Id.String()})
}

// ----- Turn events -----

func (gs *gameServer) onRollDice(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var result *models.RollResult
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		if err := requireTurn(g, req.UserId); err != nil {
			return err
		}
		r, err := g.RollDice()
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "dice-rolled", result)
}

func (gs *gameServer) onEndTurn(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var next *models.Player
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		if err := requireTurn(g, req.UserId); err != nil {
			return err
		}
		if _, err := g.EndTurn(); err != nil {
			return err
		}
		var err error
		next, err = g.GetCurrentPlayer()
		return err
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "change-turn", map[string]string{"player_id": next.Id.String()})
}

func (gs *gameServer) onDeclareBankruptcy(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}
	playerId, err := uuid.FromString(req.UserId)
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.declareBankruptcy(s, req.GameId, playerId)
}

func (gs *gameServer) declareBankruptcy(s socketio.Conn, gameId string, playerId uuid.UUID) {
	var winner *models.Player
	var next *models.Player
	var over bool
	err := gs.store.Do(gameId, func(g *models.Game) error {
		_, w, err := g.DeclareBankruptcy(playerId)
		if err != nil {
			return err
		}
		winner = w
		over = g.CurrentPhase == models.PhaseGameOver
		if !over {
			next, err = g.GetCurrentPlayer()
			return err
		}
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}

	gs.broadcast(gameId, "player-bankrupt", map[string]string{"player_id": playerId.String()})

	if over {
		gs.finishGame(gameId, winner)
		return
	}
	gs.broadcast(gameId, "change-turn", map[string]string{"player_id": next.Id.String()})
}

func (gs *gameServer) finishGame(gameId string, winner *models.Player) {
	gs.broadcast(gameId, "game-over", winner)

	if _, err := gs.db.Model(&models.GameRecord{}).
		Set("status = ?", models.GameStatusFinished).
		Where("id = ?", gameId).
		Update(); err != nil {
		logrus.WithError(err).WithField("game_id", gameId).Error("failed to mark game finished")
	}
	gs.store.Delete(gameId)
}

// ----- Jail events -----

func (gs *gameServer) onPayOutJail(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var transactions []models.TransactionInfo
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		if err := requireTurn(g, req.UserId); err != nil {
			return err
		}
		txs, err := g.PayToGetOutOfJail()
		if err != nil {
			return err
		}
		transactions = txs
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "jail-paid", map[string]interface{}{
		"player_id":    req.UserId,
		"transactions": transactions,
	})
}

func (gs *gameServer) onUseJailCard(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}

	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		if err := requireTurn(g, req.UserId); err != nil {
			return err
		}
		return g.UseGetOutOfJailCard()
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "jail-card-used", map[string]string{"player_id": req.UserId})
}

// ----- Property events -----

func (gs *gameServer) onRequestBuy(s socketio.Conn, jsonStr string) {
	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var propertyId uuid.UUID
	var transactions []models.TransactionInfo
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		if err := requireTurn(g, req.UserId); err != nil {
			return err
		}
		id, txs, err := g.BuyProperty()
		if err != nil {
			return err
		}
		propertyId, transactions = id, txs
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "property-bought", map[string]interface{}{
		"player_id":    req.UserId,
		"property_id":  propertyId.String(),
		"transactions": transactions,
	})
}

// propertyAction runs one property-id action under the turn guard and
// broadcasts its ledger diff.
func (gs *gameServer) propertyAction(s socketio.Conn, jsonStr string, event string,
	action func(g *models.Game, propertyId uuid.UUID) ([]models.TransactionInfo, error)) {

	req, err := parseAction(jsonStr)
	if err != nil {
		gs.fail(s, err)
		return
	}
	propertyId, err := uuid.FromString(req.PropertyId)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var transactions []models.TransactionInfo
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		if err := requireTurn(g, req.UserId); err != nil {
			return err
		}
		txs, err := action(g, propertyId)
		if err != nil {
			return err
		}
		transactions = txs
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, event, map[string]interface{}{
		"player_id":    req.UserId,
		"property_id":  req.PropertyId,
		"transactions": transactions,
	})
}

func (gs *gameServer) onSellProperty(s socketio.Conn, jsonStr string) {
	gs.propertyAction(s, jsonStr, "property-sold", func(g *models.Game, id uuid.UUID) ([]models.TransactionInfo, error) {
		return g.SellProperty(id)
	})
}

func (gs *gameServer) onMortgageProperty(s socketio.Conn, jsonStr string) {
	gs.propertyAction(s, jsonStr, "property-mortgaged", func(g *models.Game, id uuid.UUID) ([]models.TransactionInfo, error) {
		return g.MortgageProperty(id)
	})
}

func (gs *gameServer) onUnmortgageProperty(s socketio.Conn, jsonStr string) {
	gs.propertyAction(s, jsonStr, "property-unmortgaged", func(g *models.Game, id uuid.UUID) ([]models.TransactionInfo, error) {
		return g.UnmortgageProperty(id)
	})
}

func (gs *gameServer) onBuyHouse(s socketio.Conn, jsonStr string) {
	gs.propertyAction(s, jsonStr, "house-built", func(g *models.Game, id uuid.UUID) ([]models.TransactionInfo, error) {
		return g.UpgradeProperty(id)
	})
}

func (gs *gameServer) onSellHouse(s socketio.Conn, jsonStr string) {
	gs.propertyAction(s, jsonStr, "house-sold", func(g *models.Game, id uuid.UUID) ([]models.TransactionInfo, error) {
		return g.DowngradeProperty(id)
	})
}

// ----- Trade events -----

func (gs *gameServer) onTradeInitiate(s socketio.Conn, jsonStr string) {
	req := new(tradeRequest)
	if err := json.Unmarshal([]byte(jsonStr), req); err != nil {
		gs.fail(s, err)
		return
	}
	initiatorId, err := uuid.FromString(req.UserId)
	if err != nil {
		gs.fail(s, err)
		return
	}
	recipientId, err := uuid.FromString(req.RecipientId)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var trade *models.Trade
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		t, err := g.InitiateTrade(initiatorId, recipientId, req.Offer, req.CounterOffer)
		if err != nil {
			return err
		}
		trade = t
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "trade-initiated", trade)
}

func (gs *gameServer) onTradeNegotiate(s socketio.Conn, jsonStr string) {
	req := new(tradeRequest)
	if err := json.Unmarshal([]byte(jsonStr), req); err != nil {
		gs.fail(s, err)
		return
	}
	negotiatorId, err := uuid.FromString(req.UserId)
	if err != nil {
		gs.fail(s, err)
		return
	}
	tradeId, err := uuid.FromString(req.TradeId)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var trade *models.Trade
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		t, err := g.NegotiateTrade(negotiatorId, tradeId, req.Offer, req.CounterOffer)
		if err != nil {
			return err
		}
		trade = t
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "trade-negotiated", trade)
}

func (gs *gameServer) onTradeAccept(s socketio.Conn, jsonStr string) {
	req := new(tradeRequest)
	if err := json.Unmarshal([]byte(jsonStr), req); err != nil {
		gs.fail(s, err)
		return
	}
	accepterId, err := uuid.FromString(req.UserId)
	if err != nil {
		gs.fail(s, err)
		return
	}
	tradeId, err := uuid.FromString(req.TradeId)
	if err != nil {
		gs.fail(s, err)
		return
	}

	var trade *models.Trade
	var transactions []models.TransactionInfo
	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		txs, t, err := g.AcceptTrade(tradeId, accepterId)
		if err != nil {
			return err
		}
		transactions, trade = txs, t
		return nil
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, "trade-accepted", map[string]interface{}{
		"trade":        trade,
		"transactions": transactions,
	})
}

func (gs *gameServer) onTradeReject(s socketio.Conn, jsonStr string) {
	gs.closeTrade(s, jsonStr, "trade-rejected", func(g *models.Game, tradeId, playerId uuid.UUID) error {
		return g.RejectTrade(tradeId, playerId)
	})
}

func (gs *gameServer) onTradeCancel(s socketio.Conn, jsonStr string) {
	gs.closeTrade(s, jsonStr, "trade-cancelled", func(g *models.Game, tradeId, playerId uuid.UUID) error {
		return g.CancelTrade(tradeId, playerId)
	})
}

func (gs *gameServer) closeTrade(s socketio.Conn, jsonStr string, event string,
	action func(g *models.Game, tradeId, playerId uuid.UUID) error) {

	req := new(tradeRequest)
	if err := json.Unmarshal([]byte(jsonStr), req); err != nil {
		gs.fail(s, err)
		return
	}
	playerId, err := uuid.FromString(req.UserId)
	if err != nil {
		gs.fail(s, err)
		return
	}
	tradeId, err := uuid.FromString(req.TradeId)
	if err != nil {
		gs.fail(s, err)
		return
	}

	err = gs.store.Do(req.GameId, func(g *models.Game) error {
		return action(g, tradeId, playerId)
	})
	if err != nil {
		gs.fail(s, err)
		return
	}
	gs.broadcast(req.GameId, event, map[string]string{"trade_id": req.TradeId})
}

// ----- Server setup -----

func (gs *gameServer) registerHandlers() {
	gs.io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		return nil
	})

	gs.io.OnEvent("/", "join-game", gs.onJoinGame)
	gs.io.OnEvent("/", "leave-game", gs.onLeaveGame)
	gs.io.OnEvent("/", "update-config", gs.onUpdateConfig)
	gs.io.OnEvent("/", "start-game", gs.onStartGame)

	gs.io.OnEvent("/", "roll-dice", gs.onRollDice)
	gs.io.OnEvent("/", "end-turn", gs.onEndTurn)
	gs.io.OnEvent("/", "declare-bankruptcy", gs.onDeclareBankruptcy)

	gs.io.OnEvent("/", "pay-out-jail", gs.onPayOutJail)
	gs.io.OnEvent("/", "use-jail-card", gs.onUseJailCard)

	gs.io.OnEvent("/", "request-buy", gs.onRequestBuy)
	gs.io.OnEvent("/", "sell-property", gs.onSellProperty)
	gs.io.OnEvent("/", "mortgage-property", gs.onMortgageProperty)
	gs.io.OnEvent("/", "unmortgage-property", gs.onUnmortgageProperty)
	gs.io.OnEvent("/", "buy-house", gs.onBuyHouse)
	gs.io.OnEvent("/", "sell-house", gs.onSellHouse)

	gs.io.OnEvent("/", "trade-initiate", gs.onTradeInitiate)
	gs.io.OnEvent("/", "trade-negotiate", gs.onTradeNegotiate)
	gs.io.OnEvent("/", "trade-accept", gs.onTradeAccept)
	gs.io.OnEvent("/", "trade-reject", gs.onTradeReject)
	gs.io.OnEvent("/", "trade-cancel", gs.onTradeCancel)

	gs.io.OnError("/", func(s socketio.Conn, e error) {
		logrus.WithError(e).Error("socket error")
	})

	gs.io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		for _, room := range s.Rooms() {
			gs.io.BroadcastToRoom("/", room, "player-disconnected")
		}
		s.LeaveAll()
	})
}

func allowedOrigins() []string {
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		return []string{origin}
	}
	return []string{"http://localhost:3000"}
}

// CreateSocketIOServer runs the realtime game endpoint. It blocks; main
// starts it on its own goroutine.
func CreateSocketIOServer() {
	server, err := socketio.NewServer(nil)
	if err != nil {
		panic(err)
	}

	db := database.PostgreSQLConnection()
	defer db.Close()

	pool := cache.CreateRedisPool()
	publisher := events.NewRedisPublisher(pool)
	defer publisher.Close()

	gs := &gameServer{
		io:    server,
		store: sessions.Shared(),
		pub:   publisher,
		db:    db,
	}
	gs.registerHandlers()

	go server.Serve()
	defer server.Close()

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(),
		AllowCredentials: true,
	})

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", server)
	if err := http.ListenAndServe(":8000", c.Handler(mux)); err != nil {
		logrus.WithError(err).Fatal("socket server stopped")
	}
}
