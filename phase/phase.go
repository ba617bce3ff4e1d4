// Package phase computes the wizard's progress stage from analysis
// confidence and brief modification history.
package phase

import (
	"fmt"
	"sync"

	"github.com/c360studio/briefwizard/brief"
)

// Phase is the wizard's overall progress stage.
type Phase string

// Wizard phases, in rough forward order. Complete is terminal and is only
// entered through Controller.Set by the project-creation flow.
const (
	Gathering  Phase = "gathering"
	Refining   Phase = "refining"
	Finalizing Phase = "finalizing"
	Complete   Phase = "complete"
)

func valid(p Phase) bool {
	switch p {
	case Gathering, Refining, Finalizing, Complete:
		return true
	}
	return false
}

// Determine computes the phase for the latest analysis and brief state.
// A weaker follow-up analysis moves an already-advanced wizard back to
// gathering; callers that want stickiness must keep their own high-water
// mark.
func Determine(a *brief.ConversationAnalysis, b brief.State) Phase {
	if a != nil && a.Confidence > 0.8 && a.ProjectName != "" && a.Objective != "" {
		return Refining
	}
	if b.UserModified {
		return Finalizing
	}
	return Gathering
}

// CanCreateProject reports whether the analysis carries enough signal to
// assemble a project: name, type and objective present with confidence
// above 0.6.
func CanCreateProject(a *brief.ConversationAnalysis) bool {
	return a != nil &&
		a.ProjectName != "" &&
		a.ProjectType != "" &&
		a.Objective != "" &&
		a.Confidence > 0.6
}

// Controller tracks the current phase for a wizard session.
type Controller struct {
	mu      sync.Mutex
	current Phase
}

// NewController starts a session in the gathering phase.
func NewController() *Controller {
	return &Controller{current: Gathering}
}

// Current returns the phase the session is in.
func (c *Controller) Current() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set forces the phase, used for terminal transitions driven by the
// creation call rather than by Determine.
func (c *Controller) Set(p Phase) error {
	if !valid(p) {
		return fmt.Errorf("phase: unknown phase %q", p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = p
	return nil
}

// Recompute applies Determine and stores the result, returning it.
// It never moves a completed session backwards.
func (c *Controller) Recompute(a *brief.ConversationAnalysis, b brief.State) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == Complete {
		return c.current
	}
	c.current = Determine(a, b)
	return c.current
}

// Reset returns the controller to the gathering phase.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = Gathering
}
