package opening

import (
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/workflow"

	"wealth/internal/relay"
)

// ChildWorkflowID is the id a parent uses for the opening it starts.
func ChildWorkflowID(parentID, clientID, accountName string) string {
	return fmt.Sprintf("OpenAccount-%s-%s-%s", parentID, clientID, accountName)
}

// StartChild starts a coordinator as a child of the calling workflow and waits until
// the child is running. The child is terminated when the parent closes.
func StartChild(ctx workflow.Context, input OpenAccountInput) (workflow.ChildWorkflowFuture, string, error) {
	id := ChildWorkflowID(workflow.GetInfo(ctx).WorkflowExecution.ID, input.ClientID, input.AccountName)
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID:        id,
		ParentClosePolicy: enumspb.PARENT_CLOSE_POLICY_TERMINATE,
	})

	future := workflow.ExecuteChildWorkflow(cctx, WorkflowType, input)
	if err := future.GetChildWorkflowExecution().Get(ctx, nil); err != nil {
		return nil, id, err
	}
	return future, id, nil
}

// StateUpdates returns the channel on which a parent receives child state changes.
func StateUpdates(ctx workflow.Context) workflow.ReceiveChannel {
	return workflow.GetSignalChannel(ctx, relay.SignalUpdateAccountOpeningState)
}
