package review

import (
	"context"
	"errors"
)

// Action is the outcome of a review.
type Action string

const (
	Proceed Action = "proceed"
	Replace Action = "replace"
	Abort   Action = "abort"
)

var (
	// ErrUnknownPolicyFormat is returned for policy files that are neither
	// YAML nor TOML.
	ErrUnknownPolicyFormat = errors.New("unknown policy file format")

	// ErrInvalidPolicy is returned when a policy file has bad rules.
	ErrInvalidPolicy = errors.New("invalid policy")
)

// Decision is the result of reviewing one command. Command is what should
// run; it equals the reviewed command unless Action is Replace.
type Decision struct {
	Action  Action
	Command string
	Reason  string
}

// Gate reviews commands before execution.
type Gate interface {
	Review(ctx context.Context, command string) (Decision, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, command string) (Decision, error)

// Review calls f.
func (f GateFunc) Review(ctx context.Context, command string) (Decision, error) {
	return f(ctx, command)
}

// Always is a gate with a fixed answer. Replace is treated as Proceed since
// there is nothing to replace with.
type Always struct {
	Action Action
	Reason string
}

// Review returns the fixed decision for command.
func (a Always) Review(_ context.Context, command string) (Decision, error) {
	action := a.Action
	if action == Replace || action == "" {
		action = Proceed
	}
	return Decision{Action: action, Command: command, Reason: a.Reason}, nil
}
