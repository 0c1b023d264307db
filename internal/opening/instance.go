package opening

import (
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"wealth/internal/accounts"
	"wealth/internal/relay"
)

// Instance is the state owned by one coordinator run. It is only touched from the
// workflow's own coroutines.
type Instance struct {
	Input  OpenAccountInput
	Client *accounts.ClientSnapshot

	Initialized        bool
	KycVerified        bool
	ComplianceApproved bool

	State    State
	ParentID string

	settings Settings
	logger   log.Logger
}

func newInstance(ctx workflow.Context, settings Settings, input OpenAccountInput) *Instance {
	inst := &Instance{
		Input:    input,
		State:    StateInitializing,
		settings: settings,
		logger:   workflow.GetLogger(ctx),
	}
	if parent := workflow.GetInfo(ctx).ParentWorkflowExecution; parent != nil {
		inst.ParentID = parent.ID
	}
	return inst
}

// registerHandlers installs the query, updates and signal consumers.
func (i *Instance) registerHandlers(ctx workflow.Context) error {
	if err := workflow.SetQueryHandler(ctx, QueryGetCurrentState, i.currentState); err != nil {
		return err
	}
	if err := workflow.SetUpdateHandler(ctx, UpdateGetClientDetails, i.clientDetails); err != nil {
		return err
	}
	if err := workflow.SetUpdateHandler(ctx, UpdateUpdateClientDetails, i.updateClientDetails); err != nil {
		return err
	}

	workflow.Go(ctx, func(ctx workflow.Context) {
		i.consume(ctx, SignalVerifyKyc, func() bool { return i.Initialized }, func() {
			if !i.KycVerified {
				i.logger.Info("KYC has been verified")
			}
			i.KycVerified = true
		})
	})
	workflow.Go(ctx, func(ctx workflow.Context) {
		i.consume(ctx, SignalComplianceApproved, func() bool { return i.Initialized && i.KycVerified }, func() {
			if !i.ComplianceApproved {
				i.logger.Info("compliance has been approved")
			}
			i.ComplianceApproved = true
		})
	})
	return nil
}

// consume drains signal name; each signal waits for ready before apply runs.
func (i *Instance) consume(ctx workflow.Context, name string, ready func() bool, apply func()) {
	ch := workflow.GetSignalChannel(ctx, name)
	for {
		ch.Receive(ctx, nil)
		if err := workflow.Await(ctx, ready); err != nil {
			return
		}
		apply()
	}
}

func (i *Instance) currentState() (string, error) {
	return string(i.State), nil
}

func (i *Instance) clientDetails(ctx workflow.Context) (*accounts.ClientSnapshot, error) {
	if err := workflow.Await(ctx, func() bool { return i.Initialized }); err != nil {
		return nil, err
	}
	return i.Client, nil
}

func (i *Instance) updateClientDetails(_ workflow.Context, _ map[string]any) (string, error) {
	return "", temporal.NewNonRetryableApplicationError("update_client_details is not implemented", ErrTypeNotImplemented, nil)
}

func (i *Instance) run(ctx workflow.Context) (*OpenAccountResult, error) {
	i.logger.Info("started account opening", "client_id", i.Input.ClientID, "account_name", i.Input.AccountName)

	if i.ParentID == "" && i.settings.MissingParent == MissingParentFail {
		return nil, temporal.NewNonRetryableApplicationError("account opening has no parent workflow to notify", ErrTypeMissingParent, nil)
	}

	actx := workflow.WithActivityOptions(ctx, i.settings.accountsOptions())

	var client *accounts.ClientSnapshot
	if err := workflow.ExecuteActivity(actx, accounts.ActivityGetClient, i.Input.ClientID).Get(ctx, &client); err != nil {
		return nil, err
	}
	i.Client = client
	i.Initialized = true

	if err := i.transition(ctx, StateWaitingKyc); err != nil {
		return nil, err
	}
	if err := workflow.Await(ctx, func() bool { return i.KycVerified }); err != nil {
		return nil, err
	}

	if err := i.transition(ctx, StateWaitingCompliance); err != nil {
		return nil, err
	}
	if err := workflow.Await(ctx, func() bool { return i.ComplianceApproved }); err != nil {
		return nil, err
	}

	if err := i.transition(ctx, StateCreating); err != nil {
		return nil, err
	}
	account := accounts.InvestmentAccount{
		ClientID: i.Input.ClientID,
		Name:     i.Input.AccountName,
		Balance:  i.Input.InitialAmount,
	}
	var receipt *accounts.Receipt
	if err := workflow.ExecuteActivity(actx, accounts.ActivityOpenInvestment, account).Get(ctx, &receipt); err != nil {
		return nil, err
	}

	if err := i.transition(ctx, StateCompleted); err != nil {
		return nil, err
	}

	result := &OpenAccountResult{AccountCreated: receipt != nil, Message: MessageFailed}
	if result.AccountCreated {
		result.Message = MessageCreated
	}
	i.logger.Info("account opening finished", "account_created", result.AccountCreated)
	return result, nil
}

// transition records the new state and relays it to the parent workflow.
func (i *Instance) transition(ctx workflow.Context, next State) error {
	i.State = next

	target := i.ParentID
	if target == "" {
		switch i.settings.MissingParent {
		case MissingParentSentinel:
			target = MissingParentSentinelID
		default:
			i.logger.Warn("no parent workflow, state change not relayed", "state", string(next))
			return nil
		}
	}

	nctx := workflow.WithActivityOptions(ctx, i.settings.notifyOptions())
	return workflow.ExecuteActivity(nctx, relay.ActivityChangeState, target, i.Input.AccountName, string(next)).Get(ctx, nil)
}
