// Package anthropic implements weave.SessionProvider against the Anthropic
// Messages API, grounded on the teacher's internal/provider/anthropic client
// and its message-conversion helpers, generalized from the gains.Message
// chat model to the spec's Part-based prompt/response shape. Each session's
// accumulated history is held in a store.MessageStore parameterized over the
// SDK's own message param type. Transient provider failures are retried via
// package retry, since the core engine itself performs no retries (spec §7).
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/internal/store"
	"github.com/spetersoncode/weave/retry"
)

const defaultModel = "claude-sonnet-4-5"
const defaultMaxTokens = int64(4096)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger attaches a structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithRetryConfig overrides the retry policy used for transient API errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(p *Provider) { p.retry = cfg }
}

// Provider is a weave.SessionProvider backed by the Anthropic Messages API.
// Sessions are an in-process concept: each holds its own accumulated message
// history, since the Messages API itself is stateless per call.
type Provider struct {
	client *anthropicsdk.Client
	logger *slog.Logger
	retry  retry.Config

	mu       sync.RWMutex
	sessions map[string]*sessionState // keyed by key(dir, name)
	defs     map[string]roleDefinition
}

type roleDefinition struct {
	model        string
	systemPrompt string
	tools        weave.ToolPermissions
}

type sessionState struct {
	handle  weave.SessionHandle
	history *store.MessageStore[anthropicsdk.MessageParam]
	lastID  string
}

// New builds a Provider using apiKey for authentication.
func New(apiKey string, opts ...Option) *Provider {
	client := anthropicsdk.NewClient(option.WithAPIKey(apiKey))
	p := &Provider{
		client:   &client,
		logger:   slog.Default(),
		retry:    retry.DefaultConfig(),
		sessions: make(map[string]*sessionState),
		defs:     make(map[string]roleDefinition),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ weave.SessionProvider = (*Provider)(nil)

func key(dir, name string) string { return dir + "\x00" + name }

func (p *Provider) CreateSession(ctx context.Context, dir string, opts weave.SessionCreateOptions) (weave.SessionHandle, error) {
	handle := weave.SessionHandle{ID: uuid.NewString(), Name: opts.Name, Dir: dir}

	p.mu.Lock()
	p.sessions[key(dir, opts.Name)] = &sessionState{handle: handle, history: store.NewMessageStore[anthropicsdk.MessageParam](nil)}
	p.mu.Unlock()

	return handle, nil
}

func (p *Provider) ListSessions(ctx context.Context, dir string) ([]weave.SessionHandle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []weave.SessionHandle
	for _, s := range p.sessions {
		if s.handle.Dir == dir {
			out = append(out, s.handle)
		}
	}
	return out, nil
}

func (p *Provider) RegisterAgentDefinition(ctx context.Context, dir, name, model, systemPrompt string, tools weave.ToolPermissions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defs[key(dir, name)] = roleDefinition{model: model, systemPrompt: systemPrompt, tools: tools}
	return nil
}

// Invalidate is a no-op for this adapter: role definitions live in the
// Provider itself and are read on every Prompt, so there is no cache to drop
// after RegisterAgentDefinition.
func (p *Provider) Invalidate(ctx context.Context, dir string) error {
	return nil
}

func (p *Provider) Prompt(ctx context.Context, session weave.SessionHandle, parts []weave.Part, model, agentName string, tools weave.ToolPermissions) (weave.PromptResult, error) {
	p.mu.Lock()
	state, ok := p.sessions[key(session.Dir, session.Name)]
	if !ok {
		p.mu.Unlock()
		return weave.PromptResult{}, &weave.ProviderError{Op: "Prompt", Err: fmt.Errorf("unknown session %s/%s", session.Dir, session.Name)}
	}
	def := p.defs[key(session.Dir, session.Name)]
	p.mu.Unlock()

	blocks := make([]anthropicsdk.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		blocks = append(blocks, anthropicsdk.NewTextBlock(part.Text))
	}
	userMsg := anthropicsdk.MessageParam{Role: anthropicsdk.MessageParamRoleUser, Content: blocks}
	state.history.Append(userMsg)
	history := state.history.Messages()

	useModel := model
	if useModel == "" {
		useModel = def.model
	}
	if useModel == "" {
		useModel = defaultModel
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(useModel),
		MaxTokens: defaultMaxTokens,
		Messages:  history,
	}
	if def.systemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: def.systemPrompt}}
	}

	resp, err := retry.Do(ctx, p.retry, func() (*anthropicsdk.Message, error) {
		return p.client.Messages.New(ctx, params)
	})
	if err != nil {
		return weave.PromptResult{}, &weave.ProviderError{Op: "Messages.New", Err: err}
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	state.history.Append(anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(text)))
	p.mu.Lock()
	state.lastID = resp.ID
	p.mu.Unlock()

	p.logger.Debug("anthropic prompt complete", "session", session.Name, "agent", agentName, "messageId", resp.ID)

	return weave.PromptResult{MessageID: resp.ID, Parts: []weave.Part{{Text: text}}}, nil
}

// MessageDiff is not backed by the Messages API; the Anthropic adapter has no
// filesystem-diffing tool surface of its own, so it reports no diff rather
// than fabricating one.
func (p *Provider) MessageDiff(ctx context.Context, session weave.SessionHandle, messageID string) (string, error) {
	return "", nil
}
