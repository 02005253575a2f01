package models

import (
	"fmt"

	uuid "github.com/satori/go.uuid"
)

type PropertyKind string

const (
	KindCountry  PropertyKind = "country"
	KindRailroad PropertyKind = "railroad"
	KindUtility  PropertyKind = "utility"
)

type ColorGroup string

const (
	GroupBrown     ColorGroup = "brown"
	GroupLightBlue ColorGroup = "light_blue"
	GroupPink      ColorGroup = "pink"
	GroupOrange    ColorGroup = "orange"
	GroupRed       ColorGroup = "red"
	GroupYellow    ColorGroup = "yellow"
	GroupGreen     ColorGroup = "green"
	GroupDarkBlue  ColorGroup = "dark_blue"
)

// RentStage is a country property's improvement level: 0 unimproved,
// 1-4 houses, 5 hotel.
type RentStage int

const (
	StageUnimproved RentStage = 0
	StageHotel      RentStage = 5
)

// Property is a purchasable space. The three kinds are a closed set
// discriminated by Kind; Group, RentScheme, HouseCost and Stage are only
// meaningful for KindCountry.
type Property struct {
	SpaceInfo
	Kind          PropertyKind `json:"kind"`
	PurchasePrice int          `json:"price"`
	OwnerId       uuid.UUID    `json:"owner_id"` // uuid.Nil means unowned
	IsMortgaged   bool         `json:"mortgaged"`

	Group      ColorGroup `json:"group,omitempty"`
	RentScheme [6]int     `json:"rent_scheme,omitempty"` // [unimproved, 1H, 2H, 3H, 4H, hotel]
	HouseCost  int        `json:"house_cost,omitempty"`
	Stage      RentStage  `json:"stage"`
}

func NewCountryProperty(name string, position int, price int, group ColorGroup, rentScheme [6]int, houseCost int) *Property {
	return &Property{
		SpaceInfo:     SpaceInfo{Id: uuid.NewV4(), Name: name, Position: position},
		Kind:          KindCountry,
		PurchasePrice: price,
		Group:         group,
		RentScheme:    rentScheme,
		HouseCost:     houseCost,
	}
}

// All railroads cost 200.
func NewRailroadProperty(name string, position int) *Property {
	return &Property{
		SpaceInfo:     SpaceInfo{Id: uuid.NewV4(), Name: name, Position: position},
		Kind:          KindRailroad,
		PurchasePrice: 200,
	}
}

// All utilities cost 150.
func NewUtilityProperty(name string, position int) *Property {
	return &Property{
		SpaceInfo:     SpaceInfo{Id: uuid.NewV4(), Name: name, Position: position},
		Kind:          KindUtility,
		PurchasePrice: 150,
	}
}

// MortgageValue is what the bank pays out when mortgaging: half the price.
func (p *Property) MortgageValue() int { return p.PurchasePrice / 2 }

// UnmortgageCost is the buy-back price: 60% of the purchase price, so a
// mortgage round trip always costs the owner 10%.
func (p *Property) UnmortgageCost() int { return p.PurchasePrice * 6 / 10 }

// HouseSellValue is the bank refund for one downgrade step.
func (p *Property) HouseSellValue() int { return p.HouseCost / 2 }

func (p *Property) IsOwned() bool { return p.OwnerId != uuid.Nil }

func (p *Property) IsOwnedBy(playerId uuid.UUID) bool {
	return p.IsOwned() && p.OwnerId == playerId
}

func (p *Property) IsOwnedByOther(playerId uuid.UUID) bool {
	return p.IsOwned() && p.OwnerId != playerId
}

// RentContext carries everything rent calculation needs that is not stored
// on the property itself.
type RentContext struct {
	DiceTotal      int  // last dice total, for utilities
	OwnerRailroads int  // railroads held by the owner
	OwnerUtilities int  // utilities held by the owner
	DoubleBaseRent bool // owner holds the full color group and the config doubles base rent
}

// CalculateRent returns the rent due for landing on this property.
// A mortgaged property never collects rent.
func (p *Property) CalculateRent(ctx RentContext) int {
	if p.IsMortgaged {
		return 0
	}

	switch p.Kind {
	case KindCountry:
		rent := p.RentScheme[p.Stage]
		if p.Stage == StageUnimproved && ctx.DoubleBaseRent {
			rent *= 2
		}
		return rent
	case KindRailroad:
		switch ctx.OwnerRailroads {
		case 1:
			return 25
		case 2:
			return 50
		case 3:
			return 100
		case 4:
			return 200
		}
		return 0
	case KindUtility:
		switch ctx.OwnerUtilities {
		case 1:
			return 4 * ctx.DiceTotal
		case 2:
			return 10 * ctx.DiceTotal
		}
		return 0
	}
	return 0
}

func (p *Property) Buy(ownerId uuid.UUID) {
	p.OwnerId = ownerId
}

func (p *Property) ChangeOwner(ownerId uuid.UUID) {
	p.OwnerId = ownerId
}

// Sell returns the property to the bank. Stage and mortgage restrictions
// are enforced by the game before calling.
func (p *Property) Sell() {
	p.OwnerId = uuid.Nil
}

func (p *Property) Mortgage() {
	p.IsMortgaged = true
}

func (p *Property) Unmortgage() {
	p.IsMortgaged = false
}

// UpgradeStage moves the improvement level up by exactly one step.
func (p *Property) UpgradeStage() error {
	if p.Stage >= StageHotel {
		return fmt.Errorf("%w: already at hotel", ErrStageBounds)
	}
	p.Stage++
	return nil
}

// DowngradeStage moves the improvement level down by exactly one step.
func (p *Property) DowngradeStage() error {
	if p.Stage <= StageUnimproved {
		return fmt.Errorf("%w: no houses to sell", ErrStageBounds)
	}
	p.Stage--
	return nil
}

// Reset returns the property to its unowned, unimproved, unmortgaged state.
// Used when the owner goes bankrupt.
func (p *Property) Reset() {
	p.OwnerId = uuid.Nil
	p.IsMortgaged = false
	p.Stage = StageUnimproved
}
