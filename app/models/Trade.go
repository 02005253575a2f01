package models

import uuid "github.com/satori/go.uuid"

// TradeOffer is one side of a proposal: properties, money and get out of
// jail free cards. Offers are never escrowed; they are validated against
// live state at initiation and again at acceptance.
type TradeOffer struct {
	Properties []uuid.UUID `json:"properties"`
	Money      int         `json:"money"`
	JailCards  int         `json:"jail_cards"`
}

// Proposal is one immutable negotiation round. Offer is always what the
// original initiator gives, CounterOffer what the original recipient gives,
// regardless of whose turn it was to propose. Prev links to the round this
// one replaced.
type Proposal struct {
	Offer        TradeOffer `json:"offer"`
	CounterOffer TradeOffer `json:"counter_offer"`
	Round        int        `json:"round"`
	Prev         *Proposal  `json:"-"`
}

// Trade is a two-party negotiation. InitiatorId and RecipientId are fixed
// for the trade's lifetime; AwaitingId names the party whose response is
// pending and flips on every negotiation round.
type Trade struct {
	Id          uuid.UUID `json:"id"`
	InitiatorId uuid.UUID `json:"initiator_id"`
	RecipientId uuid.UUID `json:"recipient_id"`
	AwaitingId  uuid.UUID `json:"awaiting_id"`
	Current     *Proposal `json:"current"`
}

func NewTrade(initiatorId, recipientId uuid.UUID, offer, counterOffer TradeOffer) *Trade {
	return &Trade{
		Id:          uuid.NewV4(),
		InitiatorId: initiatorId,
		RecipientId: recipientId,
		AwaitingId:  recipientId,
		Current: &Proposal{
			Offer:        offer,
			CounterOffer: counterOffer,
			Round:        1,
		},
	}
}

// Negotiate replaces the live proposal with a new round and hands the
// decision to the other party.
func (t *Trade) Negotiate(offer, counterOffer TradeOffer) {
	t.Current = &Proposal{
		Offer:        offer,
		CounterOffer: counterOffer,
		Round:        t.Current.Round + 1,
		Prev:         t.Current,
	}
	if t.AwaitingId == t.RecipientId {
		t.AwaitingId = t.InitiatorId
	} else {
		t.AwaitingId = t.RecipientId
	}
}

// IsParty reports whether the player is one of the two traders.
func (t *Trade) IsParty(playerId uuid.UUID) bool {
	return playerId == t.InitiatorId || playerId == t.RecipientId
}

// Proposer is the party whose proposal is currently on the table.
func (t *Trade) Proposer() uuid.UUID {
	if t.AwaitingId == t.RecipientId {
		return t.InitiatorId
	}
	return t.RecipientId
}
