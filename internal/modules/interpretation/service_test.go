package interpretation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/astroia/core/internal/config"
	"github.com/astroia/core/internal/models"
	"github.com/astroia/core/internal/pkg/taskqueue"
)

type genCall struct {
	model  string
	prompt string
}

type fakeGenerator struct {
	fn    func(model, prompt string) (string, error)
	calls []genCall
}

func (g *fakeGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	g.calls = append(g.calls, genCall{model: model, prompt: prompt})
	return g.fn(model, prompt)
}

type fakeStore struct {
	facts      map[string]*Facts
	rows       map[Identity]*models.InterpretationModel
	templates  []*models.InterpretationTemplateModel
	failUpsert bool
	upserts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		facts: map[string]*Facts{},
		rows:  map[Identity]*models.InterpretationModel{},
	}
}

func (s *fakeStore) GetCached(_ context.Context, id Identity) (*models.InterpretationModel, error) {
	return s.rows[id], nil
}

func (s *fakeStore) Upsert(_ context.Context, id Identity, r Resolved) error {
	s.upserts++
	if s.failUpsert {
		return errors.New("db down")
	}
	s.rows[id] = &models.InterpretationModel{
		RefID:      id.RefID,
		Subject:    id.Subject,
		Lang:       id.Lang,
		Version:    id.Version,
		OutputText: r.Text,
		Source:     r.Source,
		ModelUsed:  r.ModelUsed,
	}
	return nil
}

func (s *fakeStore) FindTemplate(_ context.Context, id Identity, facts Facts) (*models.InterpretationTemplateModel, error) {
	for _, tpl := range s.templates {
		if tpl.TemplateType != id.Subject || tpl.Lang != id.Lang || tpl.Version != id.Version {
			continue
		}
		if tpl.MoonSign != nil && *tpl.MoonSign != facts.MoonSign {
			continue
		}
		if tpl.MoonHouse != nil && *tpl.MoonHouse != facts.MoonHouse {
			continue
		}
		if tpl.LunarAscendant != nil && *tpl.LunarAscendant != facts.LunarAscendant {
			continue
		}
		return tpl, nil
	}
	return nil, nil
}

func (s *fakeStore) FetchFacts(_ context.Context, refID string) (*Facts, error) {
	if f, ok := s.facts[refID]; ok {
		return f, nil
	}
	return nil, ErrEntityNotFound
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		AI: config.AIConfig{
			EnableGeneration:    true,
			InterpretationModel: &config.AIModelAssignment{Model: "sonnet"},
			FallbackModel:       &config.AIModelAssignment{Model: "haiku"},
		},
		Interpretation: config.InterpretationConfig{
			MinLength:   900,
			MaxLength:   1400,
			TargetMin:   1000,
			TargetMax:   1200,
			DefaultLang: "fr",
			Version:     2,
		},
	}
}

func newTestService(store Store, gen Generator) *Service {
	return NewService(store, gen, nil, nil, zap.NewNop(), testConfig())
}

func lunarFacts() *Facts {
	return &Facts{
		Kind:           KindLunarReturn,
		MoonSign:       "Aries",
		MoonHouse:      1,
		LunarAscendant: "Leo",
	}
}

func TestResolveLiveThenCache(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	text := strings.Repeat("a", 1050)
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		return text, nil
	}}
	svc := newTestService(store, gen)

	id := Identity{RefID: "42", Subject: "full", Lang: "en", Version: 2}

	first, err := svc.Resolve(context.Background(), id, false)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, first.Source)
	assert.Equal(t, "sonnet", first.ModelUsed)
	assert.Equal(t, text, first.Text)

	second, err := svc.Resolve(context.Background(), id, false)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Text, second.Text)
	assert.Len(t, gen.calls, 1, "cache hit must not call the generator again")
}

func TestResolveUnknownEntity(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeGenerator{fn: func(string, string) (string, error) {
		return "", errors.New("unreachable")
	}})

	_, err := svc.Resolve(context.Background(), Identity{RefID: "missing"}, false)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestForceRegenerateOverwrites(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	n := 0
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		n++
		return strings.Repeat("x", 1000+n), nil
	}}
	svc := newTestService(store, gen)
	id := Identity{RefID: "42", Subject: "full", Lang: "fr", Version: 2}

	first, err := svc.Resolve(context.Background(), id, true)
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), id, true)
	require.NoError(t, err)

	assert.NotEqual(t, first.Text, second.Text)
	assert.Len(t, store.rows, 1, "regeneration must overwrite, not duplicate")
	assert.Equal(t, second.Text, store.rows[id].OutputText)
}

func TestCascadeToTemplate(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	sign := "Aries"
	store.templates = []*models.InterpretationTemplateModel{{
		TemplateType: "full",
		MoonSign:     &sign,
		Lang:         "fr",
		Version:      2,
		TemplateText: "Texte de template générique pour le mois.",
	}}
	gen := &fakeGenerator{fn: func(string, string) (string, error) {
		return "", errors.New("503 service unavailable")
	}}
	svc := newTestService(store, gen)

	resolved, err := svc.Resolve(context.Background(), Identity{RefID: "42", Subject: "full"}, false)
	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, resolved.Source)
	assert.Equal(t, "template", resolved.ModelUsed)
	assert.Equal(t, "Texte de template générique pour le mois.", resolved.Text)
	assert.Len(t, gen.calls, 2, "both models tried before falling back")
}

func TestCascadeToHardcoded(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	gen := &fakeGenerator{fn: func(string, string) (string, error) {
		return "", errors.New("provider down")
	}}
	svc := newTestService(store, gen)

	resolved, err := svc.Resolve(context.Background(), Identity{RefID: "42", Subject: "full"}, false)
	require.NoError(t, err)
	assert.Equal(t, SourceHardcoded, resolved.Source)
	assert.NotEmpty(t, resolved.Text)
	assert.Contains(t, resolved.Text, "Tonalité du mois")

	// the floor result is persisted like every other source
	assert.Equal(t, 1, store.upserts)
}

func TestHardcodedSubjectVariants(t *testing.T) {
	facts := *lunarFacts()
	tests := []struct {
		subject string
		want    string
	}{
		{"climate", "Mois d'action"},
		{"focus", "identité personnelle"},
		{"approach", "Mois de rayonnement"},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			text := hardcodedFallback(Identity{Subject: tt.subject}, facts)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestLengthCorrectionTooShortAcceptedAsIs(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		if strings.Contains(prompt, "trop court") {
			return strings.Repeat("b", 850), nil
		}
		return strings.Repeat("a", 800), nil
	}}
	svc := newTestService(store, gen)

	resolved, err := svc.Resolve(context.Background(), Identity{RefID: "42"}, false)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, resolved.Source)
	assert.Len(t, gen.calls, 2, "exactly one corrective retry")
	assert.Equal(t, 850, len([]rune(resolved.Text)), "still-short result accepted, never truncated")
}

func TestLengthCorrectionTooLongTruncates(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		if strings.Contains(prompt, "trop long") {
			return strings.Repeat("b", 1500), nil
		}
		return strings.Repeat("a", 2000), nil
	}}
	svc := newTestService(store, gen)

	resolved, err := svc.Resolve(context.Background(), Identity{RefID: "42"}, false)
	require.NoError(t, err)
	assert.Len(t, gen.calls, 2)
	assert.Equal(t, 1400, len([]rune(resolved.Text)))
	assert.True(t, strings.HasSuffix(resolved.Text, "..."))
}

func TestInRangeGenerationUntouched(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	text := strings.Repeat("c", 1100)
	gen := &fakeGenerator{fn: func(string, string) (string, error) {
		return text, nil
	}}
	svc := newTestService(store, gen)

	resolved, err := svc.Resolve(context.Background(), Identity{RefID: "42"}, false)
	require.NoError(t, err)
	assert.Equal(t, text, resolved.Text)
	assert.Len(t, gen.calls, 1)
}

func TestModelFallback(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		if model == "sonnet" {
			return "", errors.New("429 rate limited")
		}
		return strings.Repeat("d", 1000), nil
	}}
	svc := newTestService(store, gen)

	resolved, err := svc.Resolve(context.Background(), Identity{RefID: "42"}, false)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, resolved.Source)
	assert.Equal(t, "haiku", resolved.ModelUsed)
}

func TestGenerationDisabledSkipsProvider(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	gen := &fakeGenerator{fn: func(string, string) (string, error) {
		return strings.Repeat("e", 1000), nil
	}}
	cfg := testConfig()
	cfg.AI.EnableGeneration = false
	svc := NewService(store, gen, nil, nil, zap.NewNop(), cfg)

	resolved, err := svc.Resolve(context.Background(), Identity{RefID: "42", Subject: "climate"}, false)
	require.NoError(t, err)
	assert.Equal(t, SourceHardcoded, resolved.Source)
	assert.Empty(t, gen.calls)
}

func TestPersistFailureStillReturnsText(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	store.failUpsert = true
	gen := &fakeGenerator{fn: func(string, string) (string, error) {
		return strings.Repeat("f", 1000), nil
	}}
	svc := newTestService(store, gen)

	resolved, err := svc.Resolve(context.Background(), Identity{RefID: "42"}, false)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, resolved.Source)
	assert.NotEmpty(t, resolved.Text)
}

func TestCancellationPropagates(t *testing.T) {
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeGenerator{fn: func(string, string) (string, error) {
		cancel()
		return "", ctx.Err()
	}}
	svc := newTestService(store, gen)

	_, err := svc.Resolve(ctx, Identity{RefID: "42"}, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.upserts, "no partial state persisted on cancellation")
}

func TestNormalizeDefaults(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	id := svc.Normalize(Identity{RefID: "42"})
	assert.Equal(t, "full", id.Subject)
	assert.Equal(t, "fr", id.Lang)
	assert.Equal(t, 2, id.Version)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	got := truncateRunes(strings.Repeat("é", 20), 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}

// fakeTaskQueue is an in-memory TaskQueue with the same dedup lifecycle as
// the Redis-backed one: live tasks hold their dedup key, terminal tasks
// release it. done receives one signal per task reaching a terminal status.
type fakeTaskQueue struct {
	mu      sync.Mutex
	tasks   map[string]*taskqueue.Task
	dedup   map[string]string
	created int
	done    chan struct{}
}

func newFakeTaskQueue() *fakeTaskQueue {
	return &fakeTaskQueue{
		tasks: map[string]*taskqueue.Task{},
		dedup: map[string]string{},
		done:  make(chan struct{}, 8),
	}
}

func (q *fakeTaskQueue) Enqueue(_ context.Context, taskType string, payload interface{}, dedupKey string) (*taskqueue.Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if dedupKey != "" {
		if id, ok := q.dedup[dedupKey]; ok {
			if task, ok := q.tasks[id]; ok {
				cp := *task
				return &cp, false, nil
			}
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}
	q.created++
	task := &taskqueue.Task{
		ID:       fmt.Sprintf("task-%d", q.created),
		Type:     taskType,
		Payload:  raw,
		Status:   taskqueue.TaskPending,
		DedupKey: dedupKey,
	}
	q.tasks[task.ID] = task
	if dedupKey != "" {
		q.dedup[dedupKey] = task.ID
	}
	cp := *task
	return &cp, true, nil
}

func (q *fakeTaskQueue) GetByID(_ context.Context, id string) (*taskqueue.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *task
	return &cp, nil
}

func (q *fakeTaskQueue) UpdateStatus(_ context.Context, id string, status taskqueue.TaskStatus, result interface{}, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[id]
	if !ok {
		return errors.New("task not found")
	}
	task.Status = status
	task.Error = errMsg
	if result != nil {
		task.Result, _ = json.Marshal(result)
	}
	if status == taskqueue.TaskCompleted || status == taskqueue.TaskFailed {
		delete(q.dedup, task.DedupKey)
		q.done <- struct{}{}
	}
	return nil
}

func (q *fakeTaskQueue) List(_ context.Context, _, _ int) ([]*taskqueue.Task, int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*taskqueue.Task, 0, len(q.tasks))
	for _, task := range q.tasks {
		cp := *task
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (q *fakeTaskQueue) DeleteByID(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if task, ok := q.tasks[id]; ok && task.DedupKey != "" {
		delete(q.dedup, task.DedupKey)
	}
	delete(q.tasks, id)
	return nil
}

func (q *fakeTaskQueue) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-q.done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued generation did not finish")
	}
}

func TestEnqueueGenerationDedup(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		<-release
		return strings.Repeat("a", 1050), nil
	}}
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	queue := newFakeTaskQueue()
	svc := NewService(store, gen, queue, nil, zap.NewNop(), testConfig())

	id := Identity{RefID: "42", Subject: "full"}
	first, err := svc.EnqueueGeneration(context.Background(), id, false)
	require.NoError(t, err)

	// Second request while the first task is still live: same task, no
	// second worker.
	second, err := svc.EnqueueGeneration(context.Background(), id, false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	close(release)
	queue.waitDone(t)

	task, err := svc.GetTask(context.Background(), first.ID)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, taskqueue.TaskCompleted, task.Status)

	queue.mu.Lock()
	created := queue.created
	queue.mu.Unlock()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, store.upserts)
}

func TestEnqueueGenerationAfterCompletionCreatesNewTask(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		return strings.Repeat("a", 1050), nil
	}}
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	queue := newFakeTaskQueue()
	svc := NewService(store, gen, queue, nil, zap.NewNop(), testConfig())

	id := Identity{RefID: "42", Subject: "full"}
	first, err := svc.EnqueueGeneration(context.Background(), id, false)
	require.NoError(t, err)
	queue.waitDone(t)

	second, err := svc.EnqueueGeneration(context.Background(), id, true)
	require.NoError(t, err)
	queue.waitDone(t)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEnqueueGenerationUnknownEntity(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeGenerator{}, newFakeTaskQueue(), nil, zap.NewNop(), testConfig())

	_, err := svc.EnqueueGeneration(context.Background(), Identity{RefID: "nope"}, false)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestTaskAdminListAndDelete(t *testing.T) {
	gen := &fakeGenerator{fn: func(model, prompt string) (string, error) {
		return strings.Repeat("a", 1050), nil
	}}
	store := newFakeStore()
	store.facts["42"] = lunarFacts()
	queue := newFakeTaskQueue()
	svc := NewService(store, gen, queue, nil, zap.NewNop(), testConfig())

	task, err := svc.EnqueueGeneration(context.Background(), Identity{RefID: "42"}, false)
	require.NoError(t, err)
	queue.waitDone(t)

	listed, total, err := svc.ListTasks(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, listed, 1)
	assert.Equal(t, task.ID, listed[0].ID)

	require.NoError(t, svc.DeleteTask(context.Background(), task.ID))

	got, err := svc.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
