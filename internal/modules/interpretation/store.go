package interpretation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/astroia/core/internal/models"
)

// gormStore backs the orchestrator with the relational cache tables.
type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) GetCached(ctx context.Context, id Identity) (*models.InterpretationModel, error) {
	var row models.InterpretationModel
	err := s.db.WithContext(ctx).
		Where("ref_id = ? AND subject = ? AND lang = ? AND version = ?",
			id.RefID, id.Subject, id.Lang, id.Version).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *gormStore) Upsert(ctx context.Context, id Identity, r Resolved) error {
	row := models.InterpretationModel{
		RefID:        id.RefID,
		Subject:      id.Subject,
		Lang:         id.Lang,
		Version:      id.Version,
		OutputText:   r.Text,
		WeeklyAdvice: models.JSONMap(r.WeeklyAdvice),
		Source:       r.Source,
		ModelUsed:    r.ModelUsed,
	}
	return s.db.WithContext(ctx).
		Where("ref_id = ? AND subject = ? AND lang = ? AND version = ?",
			id.RefID, id.Subject, id.Lang, id.Version).
		Assign(row).
		FirstOrCreate(&row).Error
}

// FindTemplate tries the exact chart-attribute match first, then the reduced
// key for the subject's template type (climate keys on sign only, focus on
// house, approach on ascendant).
func (s *gormStore) FindTemplate(ctx context.Context, id Identity, facts Facts) (*models.InterpretationTemplateModel, error) {
	base := s.db.WithContext(ctx).
		Where("template_type = ? AND lang = ? AND version = ?", id.Subject, id.Lang, id.Version)

	var tpl models.InterpretationTemplateModel
	err := base.Session(&gorm.Session{}).
		Where("moon_sign = ? AND moon_house = ? AND lunar_ascendant = ?",
			facts.MoonSign, facts.MoonHouse, facts.LunarAscendant).
		First(&tpl).Error
	if err == nil {
		return &tpl, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	reduced := base.Session(&gorm.Session{})
	switch id.Subject {
	case "climate":
		reduced = reduced.Where("moon_sign = ?", facts.MoonSign)
	case "focus":
		reduced = reduced.Where("moon_house = ?", facts.MoonHouse)
	case "approach":
		reduced = reduced.Where("lunar_ascendant = ?", facts.LunarAscendant)
	default:
		reduced = reduced.Where("moon_sign = ?", facts.MoonSign)
	}

	err = reduced.First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tpl, nil
}

// FetchFacts resolves a ref id against the fact tables, lunar returns first.
func (s *gormStore) FetchFacts(ctx context.Context, refID string) (*Facts, error) {
	var lr models.LunarReturnModel
	if err := s.db.WithContext(ctx).First(&lr, "id = ?", refID).Error; err == nil {
		return &Facts{
			Kind:           KindLunarReturn,
			UserID:         lr.UserID,
			MoonSign:       lr.MoonSign,
			MoonHouse:      lr.MoonHouse,
			LunarAscendant: lr.LunarAscendant,
			MoonPhase:      lr.MoonPhase,
			Chart:          map[string]interface{}(lr.Chart),
		}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var nc models.NatalChartModel
	if err := s.db.WithContext(ctx).First(&nc, "id = ?", refID).Error; err == nil {
		return &Facts{
			Kind:          KindNatalChart,
			UserID:        nc.UserID,
			AscendantSign: nc.AscendantSign,
			Chart:         map[string]interface{}(nc.Chart),
		}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return nil, ErrEntityNotFound
}
