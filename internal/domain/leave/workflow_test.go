package leave

import "testing"

func TestCurrentStepFollowsOrder(t *testing.T) {
	steps := []Approval{
		{ID: "a2", StepOrder: 2, ApproverID: "hr", Status: StatusPending},
		{ID: "a1", StepOrder: 1, ApproverID: "mgr", Status: StatusPending},
	}
	cur, ok := CurrentStep(steps)
	if !ok {
		t.Fatal("expected a current step")
	}
	if cur.ApproverID != "mgr" {
		t.Fatalf("current approver = %s, want mgr", cur.ApproverID)
	}

	steps[1].Status = StatusApproved
	cur, ok = CurrentStep(steps)
	if !ok || cur.ApproverID != "hr" {
		t.Fatalf("after step 1 approved, current = %+v ok=%v, want hr", cur, ok)
	}
}

func TestCurrentStepNoneWhenTerminated(t *testing.T) {
	steps := []Approval{
		{ID: "a1", StepOrder: 1, Status: StatusApproved},
		{ID: "a2", StepOrder: 2, Status: StatusRejected},
	}
	if _, ok := CurrentStep(steps); ok {
		t.Fatal("no step should be current after rejection")
	}
	if ChainComplete(steps) {
		t.Fatal("rejected chain must not be complete")
	}
}

func TestChainComplete(t *testing.T) {
	steps := []Approval{
		{StepOrder: 1, Status: StatusApproved},
		{StepOrder: 2, Status: StatusApproved},
	}
	if !ChainComplete(steps) {
		t.Fatal("fully approved chain should be complete")
	}
	if ChainComplete(nil) {
		t.Fatal("empty chain must not be complete")
	}
}

func TestValidateChain(t *testing.T) {
	if err := ValidateChain(nil); err != ErrNoApprovers {
		t.Fatalf("empty chain: got %v, want ErrNoApprovers", err)
	}
	if err := ValidateChain([]string{"mgr", ""}); err != ErrNoApprovers {
		t.Fatalf("blank approver: got %v, want ErrNoApprovers", err)
	}
	if err := ValidateChain([]string{"mgr", "mgr"}); err != ErrDuplicateStepOrder {
		t.Fatalf("duplicate approver: got %v, want ErrDuplicateStepOrder", err)
	}
	if err := ValidateChain([]string{"mgr", "hr"}); err != nil {
		t.Fatalf("valid chain: got %v", err)
	}
}
