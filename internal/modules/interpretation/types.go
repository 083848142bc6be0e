package interpretation

import (
	"context"
	"errors"

	"github.com/astroia/core/internal/models"
	"github.com/astroia/core/internal/pkg/taskqueue"
)

// Interpretation sources, in cascade priority order. "cache" is only ever
// returned, never stored: a stored row keeps the source that produced it.
const (
	SourceCache     = "cache"
	SourceLive      = "live"
	SourceTemplate  = "template"
	SourceHardcoded = "hardcoded"
)

// Entity kinds an interpretation can reference.
const (
	KindLunarReturn = "lunar_return"
	KindNatalChart  = "natal_chart"
)

// ErrEntityNotFound means the identity references no known chart. It is the
// only resolution error besides context cancellation that reaches callers.
var ErrEntityNotFound = errors.New("entity not found")

// Identity is the durable cache key for one interpretation.
type Identity struct {
	RefID   string
	Subject string // full | climate | focus | approach | sun | moon | ascendant | ...
	Lang    string
	Version int
}

// Facts carries the chart attributes the generation prompt and the fallback
// layers need. The full provider payload stays opaque in Chart.
type Facts struct {
	Kind           string
	UserID         string
	MoonSign       string
	MoonHouse      int
	LunarAscendant string
	MoonPhase      string
	AscendantSign  string
	Chart          map[string]interface{}
}

// Resolved is the outcome of one resolution.
type Resolved struct {
	Text         string                 `json:"text"`
	WeeklyAdvice map[string]interface{} `json:"weekly_advice,omitempty"`
	Source       string                 `json:"source"`
	ModelUsed    string                 `json:"model_used,omitempty"`
}

// Store is the persistence boundary of the orchestrator.
type Store interface {
	GetCached(ctx context.Context, id Identity) (*models.InterpretationModel, error)
	Upsert(ctx context.Context, id Identity, r Resolved) error
	FindTemplate(ctx context.Context, id Identity, facts Facts) (*models.InterpretationTemplateModel, error)
	FetchFacts(ctx context.Context, refID string) (*Facts, error)
}

// Generator produces interpretation text with one model. Transport-level
// resilience lives below it; a returned error means this generation path is
// unavailable for the request.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// TaskQueue is the background-work boundary of the orchestrator. Enqueue
// reports whether the call created a fresh task; a dedup hit on a live task
// returns the existing one with created=false.
type TaskQueue interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey string) (*taskqueue.Task, bool, error)
	GetByID(ctx context.Context, id string) (*taskqueue.Task, error)
	UpdateStatus(ctx context.Context, id string, status taskqueue.TaskStatus, result interface{}, errMsg string) error
	List(ctx context.Context, page, size int) ([]*taskqueue.Task, int64, error)
	DeleteByID(ctx context.Context, id string) error
}
