package astro

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/astroia/core/internal/config"
	"github.com/astroia/core/internal/models"
	"github.com/astroia/core/internal/pkg/provider"
)

// ErrChartUnavailable means the upstream provider could not produce a chart.
var ErrChartUnavailable = errors.New("chart provider unavailable")

// Service computes astrological facts through the external provider and
// persists them so interpretations have stable ids to reference.
type Service struct {
	db       *gorm.DB
	client   *provider.Client
	cfg      config.AstroProviderConfig
	timezone string
}

func NewService(db *gorm.DB, client *provider.Client, cfg *config.AppConfig) *Service {
	return &Service{db: db, client: client, cfg: cfg.Astro, timezone: cfg.Timezone}
}

// ComputeLunarReturn calls the provider for the user's lunar-return chart of
// the target month and upserts the result keyed on (user_id, return_date).
func (s *Service) ComputeLunarReturn(ctx context.Context, dto ComputeLunarReturnDTO) (*models.LunarReturnModel, error) {
	payload := map[string]interface{}{
		"birth_date":      dto.BirthDate,
		"birth_time":      dto.BirthTime,
		"birth_latitude":  dto.BirthLatitude,
		"birth_longitude": dto.BirthLongitude,
		"timezone":        s.resolveTimezone(dto.Timezone),
	}
	if dto.TargetDate != "" {
		payload["date"] = dto.TargetDate
	}

	chart, err := s.callProvider(ctx, s.cfg.LunarReturnPath, payload)
	if err != nil {
		return nil, err
	}

	returnDate := parseReturnDate(chart, dto.TargetDate)
	lr := models.LunarReturnModel{
		UserID:         dto.UserID,
		ReturnDate:     returnDate,
		MoonSign:       extractString(chart, "moon", "sign"),
		MoonHouse:      extractInt(chart, "moon", "house"),
		LunarAscendant: extractString(chart, "ascendant", "sign"),
		MoonPhase:      extractString(chart, "moon_phase", "name"),
		Chart:          models.JSONMap(chart),
	}
	if lr.MoonHouse == 0 {
		lr.MoonHouse = 1
	}

	err = s.db.WithContext(ctx).
		Where("user_id = ? AND return_date = ?", dto.UserID, returnDate).
		Assign(lr).
		FirstOrCreate(&lr).Error
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

// ComputeNatalChart calls the provider for the user's natal chart and upserts
// it keyed on user_id; a user has exactly one natal chart.
func (s *Service) ComputeNatalChart(ctx context.Context, dto ComputeNatalChartDTO) (*models.NatalChartModel, error) {
	payload := map[string]interface{}{
		"birth_date":      dto.BirthDate,
		"birth_time":      dto.BirthTime,
		"birth_latitude":  dto.BirthLatitude,
		"birth_longitude": dto.BirthLongitude,
		"timezone":        s.resolveTimezone(dto.Timezone),
	}

	chart, err := s.callProvider(ctx, s.cfg.NatalChartPath, payload)
	if err != nil {
		return nil, err
	}

	nc := models.NatalChartModel{
		UserID:        dto.UserID,
		AscendantSign: extractString(chart, "ascendant", "sign"),
		Chart:         models.JSONMap(chart),
	}

	err = s.db.WithContext(ctx).
		Where("user_id = ?", dto.UserID).
		Assign(nc).
		FirstOrCreate(&nc).Error
	if err != nil {
		return nil, err
	}
	return &nc, nil
}

// GetLunarReturn loads one lunar return by id; (nil, nil) when absent.
func (s *Service) GetLunarReturn(ctx context.Context, id string) (*models.LunarReturnModel, error) {
	var lr models.LunarReturnModel
	if err := s.db.WithContext(ctx).First(&lr, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lr, nil
}

// GetNatalChart loads one natal chart by id; (nil, nil) when absent.
func (s *Service) GetNatalChart(ctx context.Context, id string) (*models.NatalChartModel, error) {
	var nc models.NatalChartModel
	if err := s.db.WithContext(ctx).First(&nc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &nc, nil
}

func (s *Service) callProvider(ctx context.Context, path string, payload map[string]interface{}) (map[string]interface{}, error) {
	var chart map[string]interface{}
	err := s.client.PostJSON(ctx, s.cfg.BaseURL+path, payload, &chart, provider.CallOptions{
		Headers: map[string]string{
			"x-rapidapi-host": s.cfg.Host,
			"x-rapidapi-key":  s.cfg.APIKey,
		},
		Timeout: time.Duration(s.cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrChartUnavailable, err)
	}
	if len(chart) == 0 {
		return nil, fmt.Errorf("%w: empty chart payload", ErrChartUnavailable)
	}
	return chart, nil
}

func (s *Service) resolveTimezone(tz string) string {
	if tz != "" {
		return tz
	}
	if s.timezone != "" {
		return s.timezone
	}
	return "Europe/Paris"
}

// Provider payloads vary between API versions: fields appear either nested
// ({"moon": {"sign": "Leo"}}) or flattened ("moon_sign"). Extraction accepts
// both and ignores everything else.

func extractString(chart map[string]interface{}, object, field string) string {
	if nested, ok := chart[object].(map[string]interface{}); ok {
		if v, ok := nested[field].(string); ok && v != "" {
			return v
		}
	}
	if v, ok := chart[object+"_"+field].(string); ok && v != "" {
		return v
	}
	// ascendant also shows up as lunar_ascendant on lunar-return payloads
	if object == "ascendant" {
		if v, ok := chart["lunar_ascendant"].(string); ok && v != "" {
			return v
		}
	}
	if v, ok := chart[object].(string); ok {
		return v
	}
	return ""
}

func extractInt(chart map[string]interface{}, object, field string) int {
	if nested, ok := chart[object].(map[string]interface{}); ok {
		if n, ok := asInt(nested[field]); ok {
			return n
		}
	}
	if n, ok := asInt(chart[object+"_"+field]); ok {
		return n
	}
	return 0
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func parseReturnDate(chart map[string]interface{}, targetDate string) time.Time {
	for _, key := range []string{"return_datetime", "return_date", "date"} {
		raw, ok := chart[key].(string)
		if !ok || raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	if targetDate != "" {
		if t, err := time.Parse("2006-01-02", targetDate); err == nil {
			return t
		}
	}
	return time.Now().UTC().Truncate(24 * time.Hour)
}
