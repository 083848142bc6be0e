package interpretation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/astroia/core/internal/config"
	"github.com/astroia/core/internal/pkg/metrics"
	redisc "github.com/astroia/core/internal/pkg/redis"
	"github.com/astroia/core/internal/pkg/taskqueue"
)

const TaskTypeGeneration = "interpretation:generate"

const (
	defaultPrimaryModel  = "claude-3-5-sonnet-20241022"
	defaultFallbackModel = "claude-3-haiku-20240307"
)

// Service resolves interpretation identities to text through the fallback
// cascade: stored cache, live generation, static template, hardcoded text.
// Later stages are strictly cheaper than earlier ones and the last one never
// fails, so Resolve only errors for unknown entities and cancellation.
type Service struct {
	store  Store
	gen    Generator
	tasks  TaskQueue
	rc     *redisc.Client
	logger *zap.Logger

	bounds           config.InterpretationConfig
	primaryModel     string
	fallbackModel    string
	enableGeneration bool
}

func NewService(store Store, gen Generator, tasks TaskQueue, rc *redisc.Client, logger *zap.Logger, cfg *config.AppConfig) *Service {
	s := &Service{
		store:            store,
		gen:              gen,
		tasks:            tasks,
		rc:               rc,
		logger:           logger,
		bounds:           cfg.Interpretation,
		primaryModel:     defaultPrimaryModel,
		fallbackModel:    defaultFallbackModel,
		enableGeneration: cfg.AI.EnableGeneration,
	}
	if cfg.AI.InterpretationModel != nil && cfg.AI.InterpretationModel.Model != "" {
		s.primaryModel = cfg.AI.InterpretationModel.Model
	}
	if cfg.AI.FallbackModel != nil && cfg.AI.FallbackModel.Model != "" {
		s.fallbackModel = cfg.AI.FallbackModel.Model
	}
	return s
}

// Normalize fills identity defaults from configuration.
func (s *Service) Normalize(id Identity) Identity {
	if id.Subject == "" {
		id.Subject = "full"
	}
	if id.Lang == "" {
		id.Lang = s.bounds.DefaultLang
	}
	if id.Version == 0 {
		id.Version = s.bounds.Version
	}
	return id
}

// Resolve walks the cascade for one identity. Only an unknown entity or a
// cancelled context produce an error; everything else resolves to text.
func (s *Service) Resolve(ctx context.Context, id Identity, forceRegenerate bool) (*Resolved, error) {
	id = s.Normalize(id)

	timer := prometheus.NewTimer(metrics.GenerationDuration)
	defer timer.ObserveDuration()
	metrics.ActiveGenerations.Inc()
	defer metrics.ActiveGenerations.Dec()

	facts, err := s.store.FetchFacts(ctx, id.RefID)
	if err != nil {
		return nil, err
	}

	if forceRegenerate {
		// Drop the short-TTL entry up front so a failed regeneration does
		// not keep serving the stale text from Redis.
		if s.rc != nil {
			if err := s.rc.Del(ctx, s.reportKey(id)); err != nil {
				s.logger.Warn("report cache invalidation failed", zap.Error(err))
			}
		}
	} else {
		if hit := s.cacheCheck(ctx, id); hit != nil {
			metrics.CacheHitTotal.Inc()
			metrics.GeneratedTotal.WithLabelValues(SourceCache).Inc()
			return hit, nil
		}
	}

	resolved := s.generateLive(ctx, id, *facts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if resolved == nil {
		metrics.FallbackTotal.Inc()
		resolved = s.templateFallback(ctx, id, *facts)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if resolved == nil {
		resolved = &Resolved{
			Text:      hardcodedFallback(id, *facts),
			Source:    SourceHardcoded,
			ModelUsed: "static",
		}
	}

	// Persistence is a caching optimization, never a reason to fail a
	// resolution that already has text.
	if err := s.store.Upsert(ctx, id, *resolved); err != nil {
		s.logger.Error("interpretation persist failed",
			zap.String("ref_id", id.RefID),
			zap.String("subject", id.Subject),
			zap.Error(err),
		)
	}
	s.cacheStore(ctx, id, resolved)

	metrics.GeneratedTotal.WithLabelValues(resolved.Source).Inc()
	s.logger.Info("interpretation resolved",
		zap.String("ref_id", id.RefID),
		zap.String("subject", id.Subject),
		zap.String("source", resolved.Source),
		zap.String("model", resolved.ModelUsed),
		zap.Int("length", len([]rune(resolved.Text))),
	)
	return resolved, nil
}

// cacheCheck consults the short-TTL Redis layer, then the SQL cache. Read
// failures count as misses.
func (s *Service) cacheCheck(ctx context.Context, id Identity) *Resolved {
	if s.rc != nil {
		if raw, err := s.rc.Get(ctx, s.reportKey(id)); err == nil && raw != "" {
			var r Resolved
			if json.Unmarshal([]byte(raw), &r) == nil && r.Text != "" {
				r.Source = SourceCache
				return &r
			}
		}
	}

	row, err := s.store.GetCached(ctx, id)
	if err != nil {
		s.logger.Warn("interpretation cache read failed",
			zap.String("ref_id", id.RefID),
			zap.Error(err),
		)
		return nil
	}
	if row == nil {
		return nil
	}
	return &Resolved{
		Text:         row.OutputText,
		WeeklyAdvice: map[string]interface{}(row.WeeklyAdvice),
		Source:       SourceCache,
		ModelUsed:    row.ModelUsed,
	}
}

func (s *Service) cacheStore(ctx context.Context, id Identity, r *Resolved) {
	if s.rc == nil || s.bounds.CacheTTLSeconds <= 0 {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	ttl := time.Duration(s.bounds.CacheTTLSeconds) * time.Second
	if err := s.rc.Set(ctx, s.reportKey(id), raw, ttl); err != nil {
		s.logger.Warn("report cache write failed", zap.Error(err))
	}
}

func (s *Service) reportKey(id Identity) string {
	return fmt.Sprintf("astro:report:%s:%s:%s:%d", id.RefID, id.Subject, id.Lang, id.Version)
}

// generateLive tries the primary model then the cheaper fallback model. A nil
// return means the generation path is unavailable for this request; the
// caller falls through the cascade.
func (s *Service) generateLive(ctx context.Context, id Identity, facts Facts) *Resolved {
	if !s.enableGeneration || s.gen == nil {
		return nil
	}

	prompt := buildPrompt(id, facts, s.bounds.TargetMin, s.bounds.TargetMax, s.bounds.MaxLength)

	for _, model := range s.modelsToTry() {
		text, err := s.gen.Generate(ctx, model, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("generation model failed",
				zap.String("model", model),
				zap.String("ref_id", id.RefID),
				zap.Error(err),
			)
			continue
		}

		text = strings.TrimSpace(text)
		length := len([]rune(text))

		// One corrective retry per direction, then accept or truncate.
		if length > 0 && length < s.bounds.MinLength {
			text, length = s.correctiveRetry(ctx, model, expandPrompt(prompt, length, s.bounds.TargetMin, s.bounds.TargetMax), text, length)
		} else if length > s.bounds.MaxLength {
			text, length = s.correctiveRetry(ctx, model, reducePrompt(prompt, length, s.bounds.TargetMin, s.bounds.TargetMax), text, length)
		}

		if length > s.bounds.MaxLength {
			text = truncateRunes(text, s.bounds.MaxLength)
			length = len([]rune(text))
			s.logger.Warn("generation truncated",
				zap.String("model", model),
				zap.Int("length", length),
			)
		}
		if text == "" {
			continue
		}
		return &Resolved{Text: text, Source: SourceLive, ModelUsed: model}
	}
	return nil
}

func (s *Service) correctiveRetry(ctx context.Context, model, adjustedPrompt, text string, length int) (string, int) {
	retry, err := s.gen.Generate(ctx, model, adjustedPrompt)
	if err != nil {
		return text, length
	}
	retry = strings.TrimSpace(retry)
	if retry == "" {
		return text, length
	}
	return retry, len([]rune(retry))
}

func (s *Service) modelsToTry() []string {
	models := []string{s.primaryModel}
	if s.fallbackModel != "" && s.fallbackModel != s.primaryModel {
		models = append(models, s.fallbackModel)
	}
	return models
}

func (s *Service) templateFallback(ctx context.Context, id Identity, facts Facts) *Resolved {
	tpl, err := s.store.FindTemplate(ctx, id, facts)
	if err != nil {
		s.logger.Warn("template lookup failed",
			zap.String("ref_id", id.RefID),
			zap.Error(err),
		)
		return nil
	}
	if tpl == nil {
		return nil
	}
	return &Resolved{
		Text:         tpl.TemplateText,
		WeeklyAdvice: map[string]interface{}(tpl.WeeklyAdvice),
		Source:       SourceTemplate,
		ModelUsed:    "template",
	}
}

// truncateRunes cuts text to maxLen runes, ellipsis included.
func truncateRunes(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// GenerationPayload is the task payload for queued resolution.
type GenerationPayload struct {
	RefID   string `json:"ref_id"`
	Subject string `json:"subject"`
	Lang    string `json:"lang"`
	Version int    `json:"version"`
	Force   bool   `json:"force"`
}

// EnqueueGeneration creates a queued resolution task; repeated requests for a
// pending identity dedup to the same task.
func (s *Service) EnqueueGeneration(ctx context.Context, id Identity, force bool) (*taskqueue.Task, error) {
	id = s.Normalize(id)
	if _, err := s.store.FetchFacts(ctx, id.RefID); err != nil {
		return nil, err
	}

	payload := GenerationPayload{
		RefID:   id.RefID,
		Subject: id.Subject,
		Lang:    id.Lang,
		Version: id.Version,
		Force:   force,
	}
	dedupKey := fmt.Sprintf("%s:%s:%s:%d", id.RefID, id.Subject, id.Lang, id.Version)

	task, created, err := s.tasks.Enqueue(ctx, TaskTypeGeneration, payload, dedupKey)
	if err != nil {
		return nil, err
	}
	if created {
		go s.executeGeneration(context.Background(), task.ID, id, force)
	}
	return task, nil
}

// GetTask returns one queued task by id.
func (s *Service) GetTask(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	return s.tasks.GetByID(ctx, taskID)
}

// ListTasks returns queued tasks page by page, newest first.
func (s *Service) ListTasks(ctx context.Context, page, size int) ([]*taskqueue.Task, int64, error) {
	return s.tasks.List(ctx, page, size)
}

// DeleteTask removes a queued task and releases its dedup key.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	return s.tasks.DeleteByID(ctx, taskID)
}

func (s *Service) executeGeneration(ctx context.Context, taskID string, id Identity, force bool) {
	s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	resolved, err := s.Resolve(ctx, id, force)
	if err != nil {
		s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}
	s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, resolved, "")
}
