package models

// InterpretationTemplateModel is a pre-populated generic fallback text, keyed
// by a generalization of the interpretation identity (chart attributes rather
// than a specific entity id). Owned by an offline population process; the
// orchestrator only reads these rows.
//
// Matching keys per template type:
//   - full:     moon_sign + moon_house + lunar_ascendant
//   - climate:  moon_sign
//   - focus:    moon_house
//   - approach: lunar_ascendant
type InterpretationTemplateModel struct {
	Base
	TemplateType   string  `json:"template_type"   gorm:"uniqueIndex:idx_templates_identity;index;not null"`
	MoonSign       *string `json:"moon_sign"       gorm:"uniqueIndex:idx_templates_identity"`
	MoonHouse      *int    `json:"moon_house"      gorm:"uniqueIndex:idx_templates_identity"`
	LunarAscendant *string `json:"lunar_ascendant" gorm:"uniqueIndex:idx_templates_identity"`
	Lang           string  `json:"lang"            gorm:"uniqueIndex:idx_templates_identity;not null;default:'fr'"`
	Version        int     `json:"version"         gorm:"uniqueIndex:idx_templates_identity;not null;default:2"`
	TemplateText   string  `json:"template_text"   gorm:"type:text;not null"`
	WeeklyAdvice   JSONMap `json:"weekly_advice"   gorm:"type:json"`
	ModelUsed      string  `json:"model_used"`
}

func (InterpretationTemplateModel) TableName() string { return "interpretation_templates" }
