package astro

// ComputeLunarReturnDTO is the request body for a lunar-return computation.
// Birth data goes to the upstream provider untouched; user_id keys persistence.
type ComputeLunarReturnDTO struct {
	UserID         string  `json:"user_id"         binding:"required"`
	BirthDate      string  `json:"birth_date"      binding:"required"` // YYYY-MM-DD
	BirthTime      string  `json:"birth_time"      binding:"required"` // HH:MM
	BirthLatitude  float64 `json:"birth_latitude"  binding:"required"`
	BirthLongitude float64 `json:"birth_longitude" binding:"required"`
	Timezone       string  `json:"timezone"`
	TargetDate     string  `json:"target_date"` // YYYY-MM-DD, defaults to today upstream
}

// ComputeNatalChartDTO is the request body for a natal-chart computation.
type ComputeNatalChartDTO struct {
	UserID         string  `json:"user_id"         binding:"required"`
	BirthDate      string  `json:"birth_date"      binding:"required"`
	BirthTime      string  `json:"birth_time"      binding:"required"`
	BirthLatitude  float64 `json:"birth_latitude"  binding:"required"`
	BirthLongitude float64 `json:"birth_longitude" binding:"required"`
	Timezone       string  `json:"timezone"`
}
