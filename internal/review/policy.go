package review

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/zterm/internal/logging"
)

// RuleAction is what a policy rule does with a matching program.
type RuleAction string

const (
	Allow     RuleAction = "allow"
	Deny      RuleAction = "deny"
	AskReview RuleAction = "review"
)

// Rule matches a program the command runs by glob.
type Rule struct {
	Program string     `yaml:"program" toml:"program"`
	Action  RuleAction `yaml:"action" toml:"action"`
	Reason  string     `yaml:"reason,omitempty" toml:"reason,omitempty"`
}

// PolicyFile is the on-disk form of a policy.
//
//	default: review
//	rules:
//	  - program: "rm"
//	    action: deny
//	  - program: "{ls,cat,pwd,echo}"
//	    action: allow
type PolicyFile struct {
	Default RuleAction `yaml:"default" toml:"default"`
	Rules   []Rule     `yaml:"rules" toml:"rules"`
}

// Policy reviews commands against a list of rules. Every program the
// command runs is checked: any denied program aborts, and a command made
// only of allowed programs proceeds. Everything else gets the default action,
// where review hands the command to the fallback gate.
type Policy struct {
	rules    []Rule
	def      RuleAction
	fallback Gate
	logger   *logging.Logger
}

// NewPolicy validates file and builds a policy. fallback may be nil, in
// which case commands that need review are aborted.
func NewPolicy(file PolicyFile, fallback Gate, logger *logging.Logger) (*Policy, error) {
	def := file.Default
	if def == "" {
		def = AskReview
	}
	if !def.valid() {
		return nil, fmt.Errorf("%w: default action %q", ErrInvalidPolicy, def)
	}

	for i, r := range file.Rules {
		if r.Program == "" {
			return nil, fmt.Errorf("%w: rule %d has no program", ErrInvalidPolicy, i)
		}
		if !doublestar.ValidatePattern(r.Program) {
			return nil, fmt.Errorf("%w: rule %d: bad glob %q", ErrInvalidPolicy, i, r.Program)
		}
		if !r.Action.valid() {
			return nil, fmt.Errorf("%w: rule %d: unknown action %q", ErrInvalidPolicy, i, r.Action)
		}
	}

	return &Policy{
		rules:    file.Rules,
		def:      def,
		fallback: fallback,
		logger:   logging.OrNop(logger).Component("review"),
	}, nil
}

// LoadPolicy reads a policy from a .yaml, .yml or .toml file.
func LoadPolicy(filename string, fallback Gate, logger *logging.Logger) (*Policy, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", filename, err)
	}

	file, err := ParsePolicy(data, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", filename, err)
	}
	return NewPolicy(file, fallback, logger)
}

// ParsePolicy decodes policy data. ext selects the format and is a file
// extension such as ".yaml" or ".toml".
func ParsePolicy(data []byte, ext string) (PolicyFile, error) {
	var file PolicyFile

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return file, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return file, err
		}
	default:
		return file, fmt.Errorf("%w: %q", ErrUnknownPolicyFormat, ext)
	}
	return file, nil
}

// Review applies the rules to every program the command would run,
// including those inside command substitutions and eval or sh -c payloads.
// A command that cannot be parsed, or whose program is only known at run
// time, is never allowed outright.
func (p *Policy) Review(ctx context.Context, command string) (Decision, error) {
	programs, err := programsOf(command)
	if err != nil {
		p.logger.Debug("Command not parsed", zap.String("command", command), zap.Error(err))
		return p.apply(ctx, p.strictDefault(), command)
	}

	allowed := len(programs) > 0
	for _, prog := range programs {
		if prog.dynamic {
			allowed = false
			continue
		}
		rule, ok := p.match(prog.name)
		if !ok {
			allowed = false
			continue
		}

		switch rule.Action {
		case Deny:
			reason := rule.Reason
			if reason == "" {
				reason = fmt.Sprintf("program %q is denied by policy", prog.name)
			}
			p.logger.Info("Command denied",
				zap.String("command", command),
				zap.String("program", prog.name))
			return Decision{Action: Abort, Command: command, Reason: reason}, nil
		case AskReview:
			allowed = false
		}
	}

	if allowed {
		p.logger.Debug("Command allowed", zap.String("command", command))
		return Decision{Action: Proceed, Command: command}, nil
	}
	return p.apply(ctx, p.def, command)
}

// strictDefault is the default action with allow downgraded to review.
func (p *Policy) strictDefault() RuleAction {
	if p.def == Allow {
		return AskReview
	}
	return p.def
}

func (p *Policy) apply(ctx context.Context, action RuleAction, command string) (Decision, error) {
	switch action {
	case Allow:
		return Decision{Action: Proceed, Command: command}, nil
	case Deny:
		return Decision{Action: Abort, Command: command, Reason: "command is not allowed by policy"}, nil
	}

	if p.fallback == nil {
		return Decision{Action: Abort, Command: command, Reason: "command needs review and no reviewer is configured"}, nil
	}
	p.logger.Debug("Command needs review", zap.String("command", command))
	return p.fallback.Review(ctx, command)
}

// match returns the first rule whose glob matches program or its base name.
func (p *Policy) match(program string) (Rule, bool) {
	for _, r := range p.rules {
		if ok, _ := doublestar.Match(r.Program, program); ok {
			return r, true
		}
		if base := path.Base(program); base != program {
			if ok, _ := doublestar.Match(r.Program, base); ok {
				return r, true
			}
		}
	}
	return Rule{}, false
}

func (a RuleAction) valid() bool {
	return a == Allow || a == Deny || a == AskReview
}
