package models

import (
	"fmt"

	uuid "github.com/satori/go.uuid"
)

const BoardSize = 40

// Board is the fixed 40-space layout. It never changes after construction;
// only the properties it holds change owner, mortgage and stage.
type Board struct {
	Spaces []Space `json:"spaces"`
}

func NewBoard() *Board {
	b := &Board{}
	b.Spaces = []Space{
		NewSpecialSpace("GO!", 0, SpaceGo),
		NewCountryProperty("Bhutan", 1, 60, GroupBrown, [6]int{2, 10, 30, 90, 160, 250}, 50),
		NewSpecialSpace("Community Chest", 2, SpaceCommunityChest),
		NewCountryProperty("Laos", 3, 60, GroupBrown, [6]int{4, 20, 60, 180, 320, 450}, 50),
		NewSpecialSpace("Income Tax", 4, SpaceIncomeTax),
		NewRailroadProperty("Shibuya Station", 5),
		NewCountryProperty("Cambodia", 6, 100, GroupLightBlue, [6]int{6, 30, 90, 270, 400, 550}, 50),
		NewSpecialSpace("Chance", 7, SpaceChance),
		NewCountryProperty("Vietnam", 8, 100, GroupLightBlue, [6]int{6, 30, 90, 270, 400, 550}, 50),
		NewCountryProperty("Malaysia", 9, 120, GroupLightBlue, [6]int{8, 40, 100, 300, 450, 600}, 50),
		NewSpecialSpace("Jail / Just Visiting", 10, SpaceJail),
		NewCountryProperty("Portugal", 11, 140, GroupPink, [6]int{10, 50, 150, 450, 625, 750}, 100),
		NewUtilityProperty("Electric Company", 12),
		NewCountryProperty("Greece", 13, 140, GroupPink, [6]int{10, 50, 150, 450, 625, 750}, 100),
		NewCountryProperty("Ireland", 14, 160, GroupPink, [6]int{12, 60, 180, 500, 700, 900}, 100),
		NewRailroadProperty("Changi Airport", 15),
		NewCountryProperty("Poland", 16, 180, GroupOrange, [6]int{14, 70, 200, 550, 750, 950}, 100),
		NewSpecialSpace("Community Chest", 17, SpaceCommunityChest),
		NewCountryProperty("Slovakia", 18, 180, GroupOrange, [6]int{14, 70, 200, 550, 750, 950}, 100),
		NewCountryProperty("Hungary", 19, 200, GroupOrange, [6]int{16, 80, 220, 600, 800, 1000}, 100),
		NewSpecialSpace("Free Parking", 20, SpaceFreeParking),
		NewCountryProperty("Brazil", 21, 220, GroupRed, [6]int{18, 90, 250, 700, 875, 1050}, 150),
		NewSpecialSpace("Chance", 22, SpaceChance),
		NewCountryProperty("Argentina", 23, 220, GroupRed, [6]int{18, 90, 250, 700, 875, 1050}, 150),
		NewCountryProperty("Chile", 24, 240, GroupRed, [6]int{20, 100, 300, 750, 925, 1100}, 150),
		NewRailroadProperty("London Station", 25),
		NewCountryProperty("Spain", 26, 260, GroupYellow, [6]int{22, 110, 330, 800, 975, 1150}, 150),
		NewCountryProperty("Italy", 27, 260, GroupYellow, [6]int{22, 110, 330, 800, 975, 1150}, 150),
		NewUtilityProperty("Water Company", 28),
		NewCountryProperty("Australia", 29, 280, GroupYellow, [6]int{24, 120, 360, 850, 1025, 1200}, 150),
		NewSpecialSpace("Go To Jail", 30, SpaceGoToJail),
		NewCountryProperty("Canada", 31, 300, GroupGreen, [6]int{26, 130, 390, 900, 1100, 1275}, 200),
		NewCountryProperty("Germany", 32, 300, GroupGreen, [6]int{26, 130, 390, 900, 1100, 1275}, 200),
		NewSpecialSpace("Community Chest", 33, SpaceCommunityChest),
		NewCountryProperty("France", 34, 320, GroupGreen, [6]int{28, 150, 450, 1000, 1200, 1400}, 200),
		NewRailroadProperty("JFK Airport", 35),
		NewSpecialSpace("Chance", 36, SpaceChance),
		NewCountryProperty("United States", 37, 350, GroupDarkBlue, [6]int{35, 175, 500, 1100, 1300, 1500}, 200),
		NewSpecialSpace("Luxury Tax", 38, SpaceLuxuryTax),
		NewCountryProperty("China", 39, 400, GroupDarkBlue, [6]int{50, 200, 600, 1400, 1700, 2000}, 200),
	}
	return b
}

func (b *Board) SpaceAt(position int) (Space, error) {
	if position < 0 || position >= len(b.Spaces) {
		return nil, fmt.Errorf("%w: no space at position %d", ErrNoSuchEntity, position)
	}
	return b.Spaces[position], nil
}

func (b *Board) GetPropertyById(propertyId uuid.UUID) (*Property, error) {
	for _, space := range b.Spaces {
		if property, ok := space.(*Property); ok && property.Id == propertyId {
			return property, nil
		}
	}
	return nil, fmt.Errorf("%w: property %s", ErrNoSuchEntity, propertyId)
}

func (b *Board) GetPropertiesByIds(propertyIds []uuid.UUID) ([]*Property, error) {
	properties := make([]*Property, 0, len(propertyIds))
	for _, id := range propertyIds {
		property, err := b.GetPropertyById(id)
		if err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}
	return properties, nil
}

// GetPropertiesInGroup returns the country properties of a color group.
func (b *Board) GetPropertiesInGroup(group ColorGroup) []*Property {
	var properties []*Property
	for _, space := range b.Spaces {
		if property, ok := space.(*Property); ok && property.Kind == KindCountry && property.Group == group {
			properties = append(properties, property)
		}
	}
	return properties
}

// GetPropertiesOfKindOwnedBy returns the given player's properties of one
// kind. Used for railroad and utility rent counts.
func (b *Board) GetPropertiesOfKindOwnedBy(kind PropertyKind, playerId uuid.UUID) []*Property {
	var properties []*Property
	for _, space := range b.Spaces {
		if property, ok := space.(*Property); ok && property.Kind == kind && property.IsOwnedBy(playerId) {
			properties = append(properties, property)
		}
	}
	return properties
}

// GroupIsOwnedByPlayer reports whether the player holds every property in
// the color group (a monopoly).
func (b *Board) GroupIsOwnedByPlayer(group ColorGroup, playerId uuid.UUID) bool {
	for _, property := range b.GetPropertiesInGroup(group) {
		if !property.IsOwnedBy(playerId) {
			return false
		}
	}
	return true
}

// GroupHasImprovement reports whether any member of the group has at least
// one house.
func (b *Board) GroupHasImprovement(group ColorGroup) bool {
	for _, property := range b.GetPropertiesInGroup(group) {
		if property.Stage != StageUnimproved {
			return true
		}
	}
	return false
}

// GroupHasMortgage reports whether any member of the group is mortgaged.
func (b *Board) GroupHasMortgage(group ColorGroup) bool {
	for _, property := range b.GetPropertiesInGroup(group) {
		if property.IsMortgaged {
			return true
		}
	}
	return false
}

// LowestStageInGroup is the minimum improvement stage across the group,
// used by the balanced-building rule on upgrades.
func (b *Board) LowestStageInGroup(group ColorGroup) RentStage {
	lowest := StageHotel
	for _, property := range b.GetPropertiesInGroup(group) {
		if property.Stage < lowest {
			lowest = property.Stage
		}
	}
	return lowest
}

// HighestStageInGroup is the maximum improvement stage across the group,
// used by the balanced-building rule on downgrades.
func (b *Board) HighestStageInGroup(group ColorGroup) RentStage {
	highest := StageUnimproved
	for _, property := range b.GetPropertiesInGroup(group) {
		if property.Stage > highest {
			highest = property.Stage
		}
	}
	return highest
}
