package directory

import (
	"context"
	"errors"
)

// DefaultMaxChainDepth bounds the manager walk. Chains deeper than this are
// assumed to be misconfigured data.
const DefaultMaxChainDepth = 10

var (
	ErrManagerCycle  = errors.New("manager chain contains a cycle")
	ErrChainTooDeep  = errors.New("manager chain exceeds maximum depth")
	ErrEmployeeGone  = errors.New("employee not found")
	ErrNoManager     = errors.New("employee has no manager")
)

// ManagerLookup resolves the direct manager of an employee. Empty managerID
// means top of the hierarchy.
type ManagerLookup interface {
	ManagerID(ctx context.Context, tenantID, employeeID string) (string, error)
}

// ManagerChain walks the management hierarchy upward from employeeID and
// returns manager IDs in order (direct manager first). Self-references and
// revisited nodes terminate with ErrManagerCycle rather than recursing.
func ManagerChain(ctx context.Context, lookup ManagerLookup, tenantID, employeeID string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxChainDepth
	}

	seen := map[string]bool{employeeID: true}
	var chain []string
	current := employeeID
	for {
		managerID, err := lookup.ManagerID(ctx, tenantID, current)
		if err != nil {
			return nil, err
		}
		if managerID == "" {
			return chain, nil
		}
		if seen[managerID] {
			return nil, ErrManagerCycle
		}
		chain = append(chain, managerID)
		if len(chain) > maxDepth {
			return nil, ErrChainTooDeep
		}
		seen[managerID] = true
		current = managerID
	}
}
