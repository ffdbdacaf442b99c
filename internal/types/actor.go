package types

import (
	"fmt"
	"strings"
)

// ActorKind distinguishes human operators from AI agents in the audit trail.
type ActorKind string

const (
	ActorHuman ActorKind = "human"
	ActorAgent ActorKind = "agent"
)

// IsValid checks if the actor kind value is valid
func (k ActorKind) IsValid() bool {
	return k == ActorHuman || k == ActorAgent
}

// ActorRef identifies who created or modified an object.
type ActorRef struct {
	Kind ActorKind `json:"kind"`
	Name string    `json:"name"`
}

// Human returns an ActorRef for a human operator.
func Human(name string) (ActorRef, error) {
	ref := ActorRef{Kind: ActorHuman, Name: strings.TrimSpace(name)}
	if err := ref.Validate(); err != nil {
		return ActorRef{}, err
	}
	return ref, nil
}

// Agent returns an ActorRef for an AI agent.
func Agent(name string) (ActorRef, error) {
	ref := ActorRef{Kind: ActorAgent, Name: strings.TrimSpace(name)}
	if err := ref.Validate(); err != nil {
		return ActorRef{}, err
	}
	return ref, nil
}

// Validate checks if the actor reference has valid field values
func (a ActorRef) Validate() error {
	if !a.Kind.IsValid() {
		return fmt.Errorf("invalid actor kind: %s", a.Kind)
	}
	if a.Name == "" {
		return fmt.Errorf("actor name is required")
	}
	if len(a.Name) > 100 {
		return fmt.Errorf("actor name must be 100 characters or less (got %d)", len(a.Name))
	}
	return nil
}

// String renders the actor as "kind:name" for event records.
func (a ActorRef) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.Name)
}

// ParseActor parses a "kind:name" string back into an ActorRef.
// A bare name with no kind prefix is treated as a human actor.
func ParseActor(s string) (ActorRef, error) {
	kind, name, found := strings.Cut(s, ":")
	if !found {
		return Human(s)
	}
	ref := ActorRef{Kind: ActorKind(kind), Name: strings.TrimSpace(name)}
	if err := ref.Validate(); err != nil {
		return ActorRef{}, err
	}
	return ref, nil
}
