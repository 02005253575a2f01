package models

import uuid "github.com/satori/go.uuid"

type SpecialSpaceType string

const (
	SpaceGo             SpecialSpaceType = "go"
	SpaceCommunityChest SpecialSpaceType = "chest"
	SpaceChance         SpecialSpaceType = "chance"
	SpaceIncomeTax      SpecialSpaceType = "income_tax"
	SpaceLuxuryTax      SpecialSpaceType = "luxury_tax"
	SpaceJail           SpecialSpaceType = "jail"
	SpaceFreeParking    SpecialSpaceType = "free_parking"
	SpaceGoToJail       SpecialSpaceType = "go_to_jail"
)

// SpaceInfo is the identity shared by every board space.
type SpaceInfo struct {
	Id       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position int       `json:"position"` // 0-39
}

func (s SpaceInfo) Info() SpaceInfo { return s }

// Space is one of the two board space variants: *SpecialSpace or *Property.
type Space interface {
	Info() SpaceInfo
}

// SpecialSpace is a non-purchasable space (GO, taxes, jail, parking, decks).
type SpecialSpace struct {
	SpaceInfo
	Type SpecialSpaceType `json:"type"`
}

func NewSpecialSpace(name string, position int, spaceType SpecialSpaceType) *SpecialSpace {
	return &SpecialSpace{
		SpaceInfo: SpaceInfo{Id: uuid.NewV4(), Name: name, Position: position},
		Type:      spaceType,
	}
}
