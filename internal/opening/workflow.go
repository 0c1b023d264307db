package opening

import (
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// WorkflowRegistry is the subset of worker.Worker used to register workflows.
type WorkflowRegistry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
}

// Workflow is the account opening coordinator definition.
type Workflow struct {
	settings Settings
}

func NewWorkflow(settings Settings) *Workflow {
	return &Workflow{settings: settings}
}

// Register adds the coordinator under WorkflowType.
func (w *Workflow) Register(r WorkflowRegistry) {
	r.RegisterWorkflowWithOptions(w.Run, workflow.RegisterOptions{Name: WorkflowType})
}

// Run drives one account opening to completion.
func (w *Workflow) Run(ctx workflow.Context, input OpenAccountInput) (*OpenAccountResult, error) {
	if input.ClientID == "" || input.AccountName == "" {
		return nil, temporal.NewNonRetryableApplicationError("client_id and account_name are required", ErrTypeInvalidInput, nil)
	}

	inst := newInstance(ctx, w.settings, input)
	if err := inst.registerHandlers(ctx); err != nil {
		return nil, err
	}
	return inst.run(ctx)
}
