package models

// InterpretationModel caches generated interpretation text for one business
// identity (ref_id, subject, lang, version). At most one row exists per
// identity; regeneration overwrites in place.
type InterpretationModel struct {
	Base
	RefID        string  `json:"ref_id"        gorm:"uniqueIndex:idx_interpretations_identity;index;not null"`
	Subject      string  `json:"subject"       gorm:"uniqueIndex:idx_interpretations_identity;index;not null"` // full | climate | focus | approach | sun | moon | ...
	Lang         string  `json:"lang"          gorm:"uniqueIndex:idx_interpretations_identity;not null;default:'fr'"`
	Version      int     `json:"version"       gorm:"uniqueIndex:idx_interpretations_identity;not null;default:2"`
	OutputText   string  `json:"output_text"   gorm:"type:text;not null"`
	WeeklyAdvice JSONMap `json:"weekly_advice" gorm:"type:json"`
	Source       string  `json:"source"        gorm:"not null"` // live | template | hardcoded
	ModelUsed    string  `json:"model_used"`
}

func (InterpretationModel) TableName() string { return "interpretations" }
