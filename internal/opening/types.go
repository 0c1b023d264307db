// Package opening coordinates investment account openings as a durable workflow
// gated on KYC verification and compliance approval.
package opening

import (
	"wealth/internal/relay"
)

// State is the coordinator's current-state label.
type State string

const (
	StateInitializing      State = "Initializing"
	StateWaitingKyc        State = "WaitingKyc"
	StateWaitingCompliance State = "WaitingCompliance"
	StateCreating          State = "Creating"
	StateCompleted         State = "Completed"
)

// Engine-facing names.
const (
	WorkflowType = "OpenInvestmentAccountWorkflow"

	QueryGetCurrentState = "get_current_state"

	UpdateGetClientDetails    = "get_client_details"
	UpdateUpdateClientDetails = "update_client_details"

	SignalVerifyKyc          = "verify_kyc"
	SignalComplianceApproved = "compliance_approved"
)

// Application error types.
const (
	ErrTypeNotImplemented = "NotImplemented"
	ErrTypeMissingParent  = "MissingParent"
	ErrTypeInvalidInput   = "InvalidInput"
)

const (
	MessageCreated = "investment account created"
	MessageFailed  = "An unexpected error occurred creating investment account"
)

// OpenAccountInput starts one coordinator run.
type OpenAccountInput struct {
	ClientID      string  `json:"client_id"`
	AccountName   string  `json:"account_name"`
	InitialAmount float64 `json:"initial_amount"`
}

// OpenAccountResult is returned when the run completes.
type OpenAccountResult struct {
	AccountCreated bool   `json:"account_created"`
	Message        string `json:"message"`
}

// UpdateAccountOpeningStateInput is the signal body a parent workflow receives on
// relay.SignalUpdateAccountOpeningState.
type UpdateAccountOpeningStateInput = relay.StateUpdate
