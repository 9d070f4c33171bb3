package leave

import "errors"

var (
	ErrNotFound           = errors.New("leave request not found")
	ErrInvalidRange       = errors.New("invalid leave date range")
	ErrNoWorkingDays      = errors.New("leave range contains no working days")
	ErrAdvanceNotice      = errors.New("minimum advance notice not met")
	ErrConsecutiveLimit   = errors.New("maximum consecutive days exceeded")
	ErrOverlappingRequest = errors.New("overlapping leave request exists")
	ErrNotRequester       = errors.New("only the requester may cancel")
	ErrRequestNotPending  = errors.New("leave request is not pending")
	ErrNotCurrentApprover = errors.New("not the current approver for this request")
	ErrNoApprovers        = errors.New("approval chain must have at least one step")
	ErrDuplicateStepOrder = errors.New("approval chain step orders must be unique")
)
