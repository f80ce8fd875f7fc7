package fsload

import "context"

// Approver handles user interaction for destructive operations,
// currently the truncation of tables in a dataset.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type the dataset name for confirmation
type Approver interface {
	// RequestApproval prompts for confirmation before deleting all files
	// of the given tables from the dataset.
	RequestApproval(ctx context.Context, dataset string, tables []string) (bool, error)
}
