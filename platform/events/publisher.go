package events

import (
	"encoding/json"
	"fmt"

	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
)

// Publisher fans game events out to interested consumers (bots, analytics,
// other server instances). Socket broadcasts to the room happen separately;
// this is the external sink.
type Publisher interface {
	Publish(gameId string, event string, payload interface{}) error
	Close() error
}

// RedisPublisher publishes events on a per-game redis pub/sub channel.
type RedisPublisher struct {
	pool *redis.Pool
}

func NewRedisPublisher(pool *redis.Pool) *RedisPublisher {
	return &RedisPublisher{pool: pool}
}

func channelFor(gameId string) string {
	return "game." + gameId
}

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

func (p *RedisPublisher) Publish(gameId string, event string, payload interface{}) error {
	body, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event, err)
	}

	conn := p.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PUBLISH", channelFor(gameId), body); err != nil {
		logrus.WithError(err).WithField("game_id", gameId).Error("failed to publish event")
		return err
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.pool.Close()
}

// NopPublisher drops every event. Used in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, interface{}) error { return nil }
func (NopPublisher) Close() error                              { return nil }
