package models

import (
	"fmt"

	uuid "github.com/satori/go.uuid"
)

const (
	JailPosition = 10
	MaxJailTurns = 3
	DefaultMoney = 1500
)

// Player is one participant's economic and positional state. Money is
// signed: a negative balance is legal mid-turn and is the signal that debt
// must be resolved before the turn can end.
type Player struct {
	Id                    uuid.UUID   `json:"id"`
	Name                  string      `json:"name"`
	Color                 string      `json:"color"`
	Money                 int         `json:"money"`
	CurrentPosition       int         `json:"position"` // 0-39
	IsInJail              bool        `json:"in_jail"`
	JailTurnsRemaining    int         `json:"jail_turns_remaining"`
	ConsecutiveDoubles    int         `json:"consecutive_doubles"`
	PropertiesOwned       []uuid.UUID `json:"properties_owned"`
	GetOutOfJailFreeCards int         `json:"get_out_of_jail_free_cards"`
}

func NewPlayer(name string, color string, id uuid.UUID) *Player {
	return &Player{
		Id:              id,
		Name:            name,
		Color:           color,
		Money:           DefaultMoney,
		PropertiesOwned: []uuid.UUID{},
	}
}

// AddMoney and DeductMoney are deliberately unchecked; the game decides
// when a negative balance blocks an action.
func (p *Player) AddMoney(amount int)    { p.Money += amount }
func (p *Player) DeductMoney(amount int) { p.Money -= amount }

func (p *Player) SetMoney(amount int) { p.Money = amount }

// MoveBy advances the token and reports whether the player passed GO.
func (p *Player) MoveBy(amount int) (passedStart bool) {
	newPosition := p.CurrentPosition + amount
	passedStart = newPosition >= BoardSize
	p.CurrentPosition = newPosition % BoardSize
	return passedStart
}

// MoveTo teleports the token without salary. Use cautiously.
func (p *Player) MoveTo(position int) {
	p.CurrentPosition = position
}

// GoToJail snaps the token to the jail space, resets the doubles counter
// and starts the three-turn countdown.
func (p *Player) GoToJail() {
	p.MoveTo(JailPosition)
	p.IsInJail = true
	p.JailTurnsRemaining = MaxJailTurns
	p.ConsecutiveDoubles = 0
}

func (p *Player) ReduceJailTurnRemaining() error {
	if !p.IsInJail {
		return ErrNotInJail
	}
	if p.JailTurnsRemaining <= 0 {
		return ErrAlreadyFree
	}
	p.JailTurnsRemaining--
	return nil
}

func (p *Player) FreeFromJail() {
	p.IsInJail = false
	p.JailTurnsRemaining = 0
}

func (p *Player) AddConsecutiveDouble()   { p.ConsecutiveDoubles++ }
func (p *Player) ResetConsecutiveDouble() { p.ConsecutiveDoubles = 0 }

func (p *Player) AddGetOutOfJailFreeCards(count int) {
	p.GetOutOfJailFreeCards += count
}

func (p *Player) UseGetOutOfJailFreeCard() error {
	if p.GetOutOfJailFreeCards <= 0 {
		return ErrNoJailCards
	}
	p.GetOutOfJailFreeCards--
	return nil
}

func (p *Player) OwnsProperty(propertyId uuid.UUID) bool {
	for _, id := range p.PropertiesOwned {
		if id == propertyId {
			return true
		}
	}
	return false
}

func (p *Player) GainProperty(propertyId uuid.UUID) {
	p.PropertiesOwned = append(p.PropertiesOwned, propertyId)
}

func (p *Player) LoseProperty(propertyId uuid.UUID) error {
	for i, id := range p.PropertiesOwned {
		if id == propertyId {
			p.PropertiesOwned = append(p.PropertiesOwned[:i], p.PropertiesOwned[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: player %s does not hold property %s", ErrNotOwner, p.Id, propertyId)
}
