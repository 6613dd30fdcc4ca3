package nodes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sicko7947/flowgraph"
)

// Policy gates a node invocation. A non-nil error vetoes the run and
// surfaces as a Skipped result.
type Policy interface {
	Name() string
	Check(ctx context.Context, state flowgraph.WorkflowState) error
}

// Guarded wraps a node behind an ordered policy chain. Policies run
// before the inner node; the first veto wins.
type Guarded struct {
	inner    flowgraph.Node
	policies []Policy
}

// Guard wraps a node with policies
func Guard(inner flowgraph.Node, policies ...Policy) *Guarded {
	return &Guarded{inner: inner, policies: policies}
}

var _ flowgraph.TaggedNode = (*Guarded)(nil)

func (g *Guarded) ID() string   { return g.inner.ID() }
func (g *Guarded) Name() string { return g.inner.Name() }

// Tag forwards the inner node's tag so timeouts and breakers still apply
func (g *Guarded) Tag() string { return flowgraph.NodeTag(g.inner) }

func (g *Guarded) Execute(ctx context.Context, state flowgraph.WorkflowState) (flowgraph.NodeResult, error) {
	for _, p := range g.policies {
		if err := p.Check(ctx, state); err != nil {
			return flowgraph.NewSkipped(g.inner.ID(),
				fmt.Sprintf("policy %s vetoed: %v", p.Name(), err)), nil
		}
	}
	return g.inner.Execute(ctx, state)
}

func (g *Guarded) InputKeys() []string  { return g.inner.InputKeys() }
func (g *Guarded) OutputKeys() []string { return g.inner.OutputKeys() }

// ContentFilter vetoes states whose most recent message contains a
// blocked term (case-insensitive)
type ContentFilter struct {
	blocked []string
}

// NewContentFilter creates a content filter policy
func NewContentFilter(blockedTerms ...string) *ContentFilter {
	return &ContentFilter{blocked: blockedTerms}
}

func (f *ContentFilter) Name() string { return "content_filter" }

func (f *ContentFilter) Check(_ context.Context, state flowgraph.WorkflowState) error {
	if len(state.Messages) == 0 {
		return nil
	}
	last := strings.ToLower(state.Messages[len(state.Messages)-1].Content)
	for _, term := range f.blocked {
		if term != "" && strings.Contains(last, strings.ToLower(term)) {
			return fmt.Errorf("blocked term %q", term)
		}
	}
	return nil
}

// MaxMessages vetoes states whose history exceeds a ceiling
type MaxMessages struct {
	limit int
}

// NewMaxMessages creates a message-count guard
func NewMaxMessages(limit int) *MaxMessages {
	return &MaxMessages{limit: limit}
}

func (p *MaxMessages) Name() string { return "max_messages" }

func (p *MaxMessages) Check(_ context.Context, state flowgraph.WorkflowState) error {
	if p.limit > 0 && len(state.Messages) > p.limit {
		return fmt.Errorf("message count %d exceeds limit %d", len(state.Messages), p.limit)
	}
	return nil
}

// RateLimit is a token-bucket policy shared across invocations
type RateLimit struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewRateLimit allows capacity invocations per interval
func NewRateLimit(capacity int, interval time.Duration) *RateLimit {
	if capacity < 1 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &RateLimit{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(capacity) / interval.Seconds(),
		lastRefill: time.Now(),
	}
}

func (r *RateLimit) Name() string { return "rate_limit" }

func (r *RateLimit) Check(_ context.Context, _ flowgraph.WorkflowState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.tokens += now.Sub(r.lastRefill).Seconds() * r.refillRate
	if r.tokens > r.capacity {
		r.tokens = r.capacity
	}
	r.lastRefill = now

	if r.tokens < 1 {
		return fmt.Errorf("rate limit exceeded")
	}
	r.tokens--
	return nil
}
