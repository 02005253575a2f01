package models

const (
	GameStatusWaiting  = "waiting"
	GameStatusStarted  = "started"
	GameStatusFinished = "finished"
)

// GameRecord is the postgres row backing the lobby listing. The
// authoritative game state itself lives only in memory (see Game).
type GameRecord struct {
	tableName struct{} `pg:"games"`

	Id     string
	Name   string
	Status string
}

type GameCreateDto struct {
	Name string
}

type VerifyGameDto struct {
	Code   string
	UserId string
}
