// Package journey defines the fixed client-journey step plan seeded onto
// every order.
package journey

import "atelier/api/internal/store"

// Step is one entry in the canonical journey plan.
type Step struct {
	No        int
	Phase     string
	Title     string
	Milestone bool
}

const (
	PhaseDesign     = "design"
	PhaseProduction = "production"
	PhaseDelivery   = "delivery"
)

// Plan is the canonical ordered step list. Milestones trigger client
// notifications when completed.
var Plan = []Step{
	{1, PhaseDesign, "Initial consultation", false},
	{2, PhaseDesign, "Floor plan and measurements", false},
	{3, PhaseDesign, "Concept presented", false},
	{4, PhaseDesign, "Proposal approved", true},
	{5, PhaseProduction, "Purchase orders sent", false},
	{6, PhaseProduction, "Materials sourced", false},
	{7, PhaseProduction, "Production started", true},
	{8, PhaseProduction, "Quality inspection", false},
	{9, PhaseDelivery, "Shipped", true},
	{10, PhaseDelivery, "White-glove delivery scheduled", false},
	{11, PhaseDelivery, "Installation complete", true},
}

// Seed builds the store rows for a new order.
func Seed(orderID string) []store.JourneyStep {
	steps := make([]store.JourneyStep, 0, len(Plan))
	for _, step := range Plan {
		steps = append(steps, store.JourneyStep{
			OrderID:   orderID,
			StepNo:    step.No,
			Phase:     step.Phase,
			Title:     step.Title,
			Milestone: step.Milestone,
		})
	}
	return steps
}

// IsMilestone reports whether a step number is a milestone in the plan.
func IsMilestone(stepNo int) bool {
	for _, step := range Plan {
		if step.No == stepNo {
			return step.Milestone
		}
	}
	return false
}
