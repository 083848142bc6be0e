package models

import "time"

// LunarReturnModel stores one computed monthly lunar-return configuration.
// The chart payload comes from the fact provider and is kept opaque; only the
// fields the interpretation layer keys on are extracted into columns.
type LunarReturnModel struct {
	Base
	UserID         string    `json:"user_id"         gorm:"index;not null"`
	ReturnDate     time.Time `json:"return_date"     gorm:"index;not null"`
	MoonSign       string    `json:"moon_sign"       gorm:"index;not null"`
	MoonHouse      int       `json:"moon_house"      gorm:"not null"`
	LunarAscendant string    `json:"lunar_ascendant" gorm:"index;not null"`
	MoonPhase      string    `json:"moon_phase"`
	Chart          JSONMap   `json:"chart"           gorm:"type:json"`
}

func (LunarReturnModel) TableName() string { return "lunar_returns" }

// NatalChartModel stores one computed natal chart per user.
type NatalChartModel struct {
	Base
	UserID        string  `json:"user_id"        gorm:"uniqueIndex;not null"`
	AscendantSign string  `json:"ascendant_sign"`
	Chart         JSONMap `json:"chart"          gorm:"type:json"`
}

func (NatalChartModel) TableName() string { return "natal_charts" }
