package journey

import "testing"

func TestPlanIsOrderedAndDense(t *testing.T) {
	for i, step := range Plan {
		if step.No != i+1 {
			t.Fatalf("step %d has number %d, plan must be dense and ordered", i, step.No)
		}
		if step.Title == "" || step.Phase == "" {
			t.Errorf("step %d missing title or phase", step.No)
		}
	}
}

func TestPlanPhasesAreContiguous(t *testing.T) {
	seen := map[string]bool{}
	last := ""
	for _, step := range Plan {
		if step.Phase != last && seen[step.Phase] {
			t.Fatalf("phase %q appears in two separate runs", step.Phase)
		}
		seen[step.Phase] = true
		last = step.Phase
	}
}

func TestSeed(t *testing.T) {
	steps := Seed("ord_1")
	if len(steps) != len(Plan) {
		t.Fatalf("seeded %d steps, want %d", len(steps), len(Plan))
	}
	for i, step := range steps {
		if step.OrderID != "ord_1" {
			t.Errorf("step %d has order %q", i, step.OrderID)
		}
		if step.CompletedAt != nil {
			t.Errorf("step %d should start incomplete", step.StepNo)
		}
	}
}

func TestIsMilestone(t *testing.T) {
	if !IsMilestone(4) {
		t.Error("proposal approval should be a milestone")
	}
	if IsMilestone(1) {
		t.Error("initial consultation should not be a milestone")
	}
	if IsMilestone(99) {
		t.Error("unknown step should not be a milestone")
	}
}
