package content

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/researchdesk/internal/research"
)

//go:embed default.yaml
var defaultPackYAML []byte

// MaxNextSteps is the most next-step options a deliverable may offer; the
// terminal UI selects them with the keys 1-9.
const MaxNextSteps = 9

// shortTopicRunes is how much of the topic {topic_short} keeps.
const shortTopicRunes = 30

// Pack is a YAML content pack. String fields may contain the placeholders
// {topic}, {topic_short} and {round}.
type Pack struct {
	Briefing      BriefingTemplate       `yaml:"briefing"`
	ExecutionPlan research.ExecutionPlan `yaml:"execution_plan"`
	Deliverable   research.Deliverable   `yaml:"deliverable"`
}

// BriefingTemplate is the briefing section of a pack. The original question
// is always the topic itself.
type BriefingTemplate struct {
	RewrittenQuestion string                `yaml:"rewritten_question"`
	Scope             []string              `yaml:"scope"`
	KeyTerms          []string              `yaml:"key_terms"`
	Assumptions       []research.Assumption `yaml:"assumptions"`
	Risks             []research.Risk       `yaml:"risks"`
	Roadmap           []research.Milestone  `yaml:"roadmap"`
}

// ParsePack decodes and validates a pack.
func ParsePack(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse content pack: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// DefaultPack returns the built-in pack.
func DefaultPack() *Pack {
	p, err := ParsePack(defaultPackYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in content pack is invalid: %v", err))
	}
	return p
}

// LoadPack reads a pack from path. An empty path returns the built-in pack.
func LoadPack(path string) (*Pack, error) {
	if path == "" {
		return DefaultPack(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content pack: %w", err)
	}
	return ParsePack(data)
}

// Validate checks the invariants the orchestrator relies on.
func (p *Pack) Validate() error {
	if p.ExecutionPlan.TotalItems <= 0 {
		return fmt.Errorf("content pack: execution_plan.total_items must be positive (got %d)", p.ExecutionPlan.TotalItems)
	}
	switch p.ExecutionPlan.Recommendation {
	case research.ComputeExecute, research.ComputeDowngrade, research.ComputeSkip:
	default:
		return fmt.Errorf("content pack: execution_plan.recommendation %q is not execute, downgrade or skip", p.ExecutionPlan.Recommendation)
	}
	if len(p.Deliverable.NextSteps) == 0 {
		return fmt.Errorf("content pack: deliverable.next_steps must not be empty")
	}
	if len(p.Deliverable.NextSteps) > MaxNextSteps {
		return fmt.Errorf("content pack: deliverable.next_steps has %d options, at most %d allowed", len(p.Deliverable.NextSteps), MaxNextSteps)
	}
	seen := make(map[string]bool, len(p.Deliverable.NextSteps))
	for i, opt := range p.Deliverable.NextSteps {
		if opt.ID == "" {
			return fmt.Errorf("content pack: deliverable.next_steps[%d] has no id", i)
		}
		if seen[opt.ID] {
			return fmt.Errorf("content pack: duplicate next step id %q", opt.ID)
		}
		seen[opt.ID] = true
	}
	return nil
}

// StaticProvider serves every session from one content pack.
type StaticProvider struct {
	pack *Pack
}

// NewStaticProvider creates a provider for pack. A nil pack uses the built-in one.
func NewStaticProvider(pack *Pack) *StaticProvider {
	if pack == nil {
		pack = DefaultPack()
	}
	return &StaticProvider{pack: pack}
}

// Briefing implements Provider.
func (p *StaticProvider) Briefing(ctx context.Context, topic string, _ research.Constraints) (research.Briefing, error) {
	if err := ctx.Err(); err != nil {
		return research.Briefing{}, err
	}
	r := placeholders(topic, 0)
	t := p.pack.Briefing
	b := research.Briefing{
		OriginalQuestion:  topic,
		RewrittenQuestion: r.Replace(t.RewrittenQuestion),
		Scope:             t.Scope,
		KeyTerms:          t.KeyTerms,
		Assumptions:       t.Assumptions,
		Risks:             t.Risks,
		Roadmap:           t.Roadmap,
	}
	return b.Clone(), nil
}

// ExecutionPlan implements Provider.
func (p *StaticProvider) ExecutionPlan(ctx context.Context, s research.Session) (research.ExecutionPlan, error) {
	if err := ctx.Err(); err != nil {
		return research.ExecutionPlan{}, err
	}
	r := placeholders(s.Topic, s.Round)
	plan := p.pack.ExecutionPlan.Clone()
	plan.Description = r.Replace(plan.Description)
	plan.ComputeStage = r.Replace(plan.ComputeStage)
	return plan, nil
}

// Deliverable implements Provider.
func (p *StaticProvider) Deliverable(ctx context.Context, s research.Session) (research.Deliverable, error) {
	if err := ctx.Err(); err != nil {
		return research.Deliverable{}, err
	}
	r := placeholders(s.Topic, s.Round)
	d := p.pack.Deliverable.Clone()
	d.PaperDraft = r.Replace(d.PaperDraft)
	return d, nil
}

func placeholders(topic string, round int) *strings.Replacer {
	return strings.NewReplacer(
		"{topic_short}", shortTopic(topic),
		"{topic}", topic,
		"{round}", strconv.Itoa(round),
	)
}

func shortTopic(topic string) string {
	if utf8.RuneCountInString(topic) <= shortTopicRunes {
		return topic
	}
	return string([]rune(topic)[:shortTopicRunes]) + "..."
}
