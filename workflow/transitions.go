package workflow

import "github.com/bakeprint/bakeprint-api/models"

// TransitionTable is the role-scoped directed graph over stages: for each
// role, the set of stages reachable in a single transition from the current
// one. It is the single authority consulted when a stage change is requested;
// no transition is hard-coded anywhere else.
//
// The table is built once at startup and passed to the validator by value
// reference, so tests and deployments can substitute an alternate graph.
type TransitionTable struct {
	edges map[string]map[string][]string
}

// NewTransitionTable builds a table from role -> stage -> allowed targets
func NewTransitionTable(edges map[string]map[string][]string) *TransitionTable {
	return &TransitionTable{edges: edges}
}

// DefaultTransitionTable returns the production transition graph. Admin edges
// allow backward correction in addition to forward progress; baker edges are
// narrow: submit, resubmit after changes, and accept pricing by moving the
// order to Ready to Print.
func DefaultTransitionTable() *TransitionTable {
	return NewTransitionTable(map[string]map[string][]string{
		models.RoleAdmin: {
			StageDraft:            {StageSubmitted, StageUnderReview},
			StageSubmitted:        {StageUnderReview, StageDraft},
			StageUnderReview:      {StageRequiresApproval, StageRequestedChanges, StageSubmitted},
			StageRequiresApproval: {StageRequestedChanges, StageReadyToPrint, StageUnderReview},
			StageRequestedChanges: {StageUnderReview, StageRequiresApproval},
			StageReadyToPrint:     {StagePrinting, StageRequiresApproval},
			StagePrinting:         {StageCompleted, StageReadyToPrint},
			StageCompleted:        {StagePrinting},
		},
		models.RoleBaker: {
			StageDraft:            {StageSubmitted},
			StageRequiresApproval: {StageReadyToPrint},
			StageRequestedChanges: {StageSubmitted},
		},
	})
}

// AllowedTargets returns the stages reachable from the given stage for the
// given role. The returned slice is a copy; callers may not mutate the table.
func (t *TransitionTable) AllowedTargets(role, stage string) []string {
	byStage, ok := t.edges[role]
	if !ok {
		return []string{}
	}
	targets, ok := byStage[stage]
	if !ok {
		return []string{}
	}
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether the role may move an order from one stage to
// another in a single step
func (t *TransitionTable) CanTransition(role, from, to string) bool {
	for _, target := range t.AllowedTargets(role, from) {
		if target == to {
			return true
		}
	}
	return false
}
