package interpretation

import (
	"context"
	"errors"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"

	"github.com/astroia/core/internal/config"
	"github.com/astroia/core/internal/pkg/provider"
)

const (
	generationMaxTokens   = 2048
	generationTemperature = 0.7
	defaultAnthropicURL   = "https://api.anthropic.com"
	anthropicAPIVersion   = "2023-06-01"
)

// aiGenerator produces text through the configured AI providers. The
// anthropic and openai-compatible types go through the resilient HTTP client
// so transient provider failures are retried with backoff; other provider
// types use the SDK wrapper directly.
type aiGenerator struct {
	cfg     config.AIConfig
	client  *provider.Client
	timeout time.Duration
}

func NewGenerator(cfg *config.AppConfig, client *provider.Client) Generator {
	timeout := 30 * time.Second
	if cfg.AI.GenerationTimeoutSec > 0 {
		timeout = time.Duration(cfg.AI.GenerationTimeoutSec) * time.Second
	}
	return &aiGenerator{cfg: cfg.AI, client: client, timeout: timeout}
}

func (g *aiGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	p := g.resolveProvider(model)
	if p == nil {
		return "", errors.New("no enabled AI provider")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return "", errors.New("AI provider api key is empty")
	}
	if model == "" {
		model = p.DefaultModel
	}

	switch {
	case isAnthropicType(p.Type):
		return g.callAnthropic(ctx, p, model, prompt)
	case isOpenAICompatibleType(p.Type):
		return g.callOpenAICompatible(ctx, p, model, prompt)
	default:
		return g.callSDK(ctx, p, model, prompt)
	}
}

// resolveProvider maps a model name back to its configured provider through
// the model assignments, defaulting to the first enabled provider.
func (g *aiGenerator) resolveProvider(model string) *config.AIProvider {
	for _, assignment := range []*config.AIModelAssignment{g.cfg.InterpretationModel, g.cfg.FallbackModel} {
		if assignment == nil || assignment.Model != model {
			continue
		}
		if p := g.providerByID(assignment.ProviderID); p != nil {
			return p
		}
	}
	for i := range g.cfg.Providers {
		if g.cfg.Providers[i].Enabled {
			return &g.cfg.Providers[i]
		}
	}
	return nil
}

func (g *aiGenerator) providerByID(id string) *config.AIProvider {
	for i := range g.cfg.Providers {
		if g.cfg.Providers[i].ID == id && g.cfg.Providers[i].Enabled {
			return &g.cfg.Providers[i]
		}
	}
	return nil
}

func (g *aiGenerator) callAnthropic(ctx context.Context, p *config.AIProvider, model, prompt string) (string, error) {
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultAnthropicURL
	}

	payload := map[string]interface{}{
		"model":       model,
		"max_tokens":  generationMaxTokens,
		"temperature": generationTemperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	err := g.client.PostJSON(ctx, endpoint+"/v1/messages", payload, &result, provider.CallOptions{
		Headers: map[string]string{
			"x-api-key":         p.APIKey,
			"anthropic-version": anthropicAPIVersion,
		},
		Timeout: g.timeout,
	})
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" || block.Type == "" {
			full.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(full.String())
	if text == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

func (g *aiGenerator) callOpenAICompatible(ctx context.Context, p *config.AIProvider, model, prompt string) (string, error) {
	endpoint := normalizeOpenAICompatibleEndpoint(p.Endpoint)

	payload := map[string]interface{}{
		"model":       model,
		"max_tokens":  generationMaxTokens,
		"temperature": generationTemperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	err := g.client.PostJSON(ctx, endpoint+"/v1/chat/completions", payload, &result, provider.CallOptions{
		Headers: map[string]string{
			"Authorization": "Bearer " + strings.TrimSpace(p.APIKey),
		},
		Timeout: g.timeout,
	})
	if err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", errors.New("empty response from AI")
	}
	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

// callSDK drives providers without a raw-HTTP path through the language-model
// wrapper, matching models to the vendor SDK clients.
func (g *aiGenerator) callSDK(ctx context.Context, p *config.AIProvider, model, prompt string) (string, error) {
	languageModel, err := buildLanguageModel(p, model)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := jetai.GenerateText(
		ctx,
		[]jetapi.Message{&jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)}},
		jetai.WithModel(languageModel),
		jetai.WithMaxOutputTokens(generationMaxTokens),
	)
	if err != nil {
		return "", err
	}
	return extractTextFromSDKResponse(resp)
}

func buildLanguageModel(p *config.AIProvider, modelID string) (jetapi.LanguageModel, error) {
	apiKey := strings.TrimSpace(p.APIKey)
	endpoint := strings.TrimSpace(p.Endpoint)

	if isAnthropicType(p.Type) {
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
}

func extractTextFromSDKResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from AI")
	}
	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}
	text := strings.TrimSpace(full.String())
	if text == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

func isAnthropicType(raw string) bool {
	return normalizeProviderType(raw) == "anthropic"
}

func isOpenAICompatibleType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

func normalizeOpenAICompatibleEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		cleaned := strings.TrimRight(base, "/")
		return strings.TrimSuffix(cleaned, "/v1")
	}
	path := strings.TrimRight(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/v1")
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}
	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
