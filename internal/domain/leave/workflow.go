package leave

import "sort"

// CurrentStep returns the lowest-order pending step. The chain is strictly
// sequential: exactly one step is current until the chain terminates.
func CurrentStep(steps []Approval) (Approval, bool) {
	sorted := make([]Approval, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StepOrder < sorted[j].StepOrder })

	for _, step := range sorted {
		if step.Status == StatusPending {
			return step, true
		}
	}
	return Approval{}, false
}

// ChainComplete reports whether every step has been approved.
func ChainComplete(steps []Approval) bool {
	if len(steps) == 0 {
		return false
	}
	for _, step := range steps {
		if step.Status != StatusApproved {
			return false
		}
	}
	return true
}

// ValidateChain checks an approver sequence before it is persisted: at
// least one step and no duplicate orders (orders are assigned 1..n here, so
// duplicates can only come from duplicated approver slots).
func ValidateChain(approverIDs []string) error {
	if len(approverIDs) == 0 {
		return ErrNoApprovers
	}
	seen := make(map[string]bool, len(approverIDs))
	for _, id := range approverIDs {
		if id == "" {
			return ErrNoApprovers
		}
		if seen[id] {
			return ErrDuplicateStepOrder
		}
		seen[id] = true
	}
	return nil
}
