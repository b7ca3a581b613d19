// Package gateway is the stateless call surface to the external reasoning
// backend (Gemini). Every failure mode maps to a fixed sentinel string;
// the gateway never returns an error and never panics past its boundary.
// Callers treat any sentinel as "use the fallback reply".
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"genesis/internal/config"
)

// Sentinel replies. Callers must check IsSentinel before treating gateway
// output as a valid answer.
const (
	SentinelDisconnected = "I am currently disconnected from the external AI services."
	SentinelEmpty        = "The external AI response was empty or filtered."
	SentinelUnavailable  = "I am experiencing technical difficulties reaching the external AI brain."
)

// IsSentinel reports whether s is one of the gateway's soft-failure replies.
func IsSentinel(s string) bool {
	switch s {
	case SentinelDisconnected, SentinelEmpty, SentinelUnavailable:
		return true
	}
	return false
}

// completer is the minimal generation surface; tests substitute a fake.
type completer interface {
	complete(ctx context.Context, systemInstruction, userQuery string) (string, error)
}

// Gateway wraps the backend client. A Gateway whose client failed to
// initialize (missing credential) is still usable: every call returns
// SentinelDisconnected immediately.
type Gateway struct {
	completer completer
	timeout   time.Duration
	log       *zap.Logger
}

// New builds the gateway from configuration. A missing API key or client
// construction error disables the backend rather than failing startup.
func New(cfg config.GatewayConfig, log *zap.Logger) *Gateway {
	g := &Gateway{
		timeout: cfg.Timeout,
		log:     log.Named("gateway"),
	}
	if g.timeout <= 0 {
		g.timeout = 30 * time.Second
	}

	if cfg.APIKey == "" {
		g.log.Warn("GEMINI_API_KEY not set, external reasoning disabled")
		return g
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		g.log.Error("failed to configure Gemini client, external reasoning disabled", zap.Error(err))
		return g
	}

	g.completer = &genaiCompleter{
		client:          client,
		model:           cfg.Model,
		temperature:     float32(cfg.Temperature),
		maxOutputTokens: int32(cfg.MaxOutputTokens),
	}
	g.log.Info("Gemini client configured", zap.String("model", cfg.Model))
	return g
}

// Respond executes one reasoning call. The returned string is either trimmed
// response text or a sentinel; never empty, never an error.
func (g *Gateway) Respond(ctx context.Context, systemInstruction, userQuery string) string {
	if g.completer == nil {
		return SentinelDisconnected
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.safeComplete(ctx, systemInstruction, userQuery)
	if err != nil {
		g.log.Error("external reasoning call failed", zap.Error(err))
		return SentinelUnavailable
	}

	text = strings.TrimSpace(text)
	if text == "" {
		g.log.Warn("external reasoning returned empty or filtered response",
			zap.String("query", snippet(userQuery, 50)))
		return SentinelEmpty
	}
	return text
}

// Stylize post-processes baseReply through the backend to match the persona
// instruction. Any sentinel or failure falls back to baseReply verbatim so a
// soft failure is never spoken to the user.
func (g *Gateway) Stylize(ctx context.Context, systemPrompt, baseReply, userQuery string) string {
	if strings.TrimSpace(baseReply) == "" {
		return baseReply
	}

	// The persona prompt rides only as the system instruction; the user
	// content carries just the query and the text to restyle.
	var parts []string
	if userQuery != "" {
		parts = append(parts, fmt.Sprintf("User's original query: %q", userQuery))
	}
	parts = append(parts,
		fmt.Sprintf("The system has generated the following core information to be stylized: %q", baseReply),
		"Rephrase this core information according to your persona and tone. The final response will be spoken by a physical robot; keep it conversational and slightly concise.",
	)

	styled := g.Respond(ctx, systemPrompt, strings.Join(parts, "\n\n"))
	if IsSentinel(styled) {
		g.log.Debug("styling unavailable, using base reply")
		return baseReply
	}
	return styled
}

// safeComplete shields callers from panics inside the backend client.
func (g *Gateway) safeComplete(ctx context.Context, systemInstruction, userQuery string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in reasoning backend: %v", r)
		}
	}()
	return g.completer.complete(ctx, systemInstruction, userQuery)
}

// genaiCompleter is the production Gemini implementation.
type genaiCompleter struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
}

func (c *genaiCompleter) complete(ctx context.Context, systemInstruction, userQuery string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxOutputTokens,
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userQuery), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	return resp.Text(), nil
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
