package models

// GameConfig holds the ruleset knobs a lobby can tweak before the game
// starts.
type GameConfig struct {
	MaxPlayers                   int  `json:"max_players"`
	MinPlayers                   int  `json:"min_players"`
	JailFine                     int  `json:"jail_fine"`
	IncomeTax                    int  `json:"income_tax"`
	LuxuryTax                    int  `json:"luxury_tax"`
	StartingMoney                int  `json:"starting_money"`
	FreeParkingPot               bool `json:"free_parking_pot"`
	DoubleBaseRentOnFullColorSet bool `json:"double_base_rent_on_full_color_set"`
	AllowCollectRentOnJail       bool `json:"allow_collect_rent_on_jail"`
	AllowMortgagingProperties    bool `json:"allow_mortgaging_properties"`
	BalancedHousePurchase        bool `json:"balanced_house_purchase"`
}

func DefaultGameConfig() GameConfig {
	return GameConfig{
		MaxPlayers:                   8,
		MinPlayers:                   2,
		JailFine:                     50,
		IncomeTax:                    200,
		LuxuryTax:                    100,
		StartingMoney:                1500,
		FreeParkingPot:               true,
		DoubleBaseRentOnFullColorSet: true,
		AllowCollectRentOnJail:       true,
		AllowMortgagingProperties:    true,
		BalancedHousePurchase:        true,
	}
}
