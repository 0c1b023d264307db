// Command approve delivers an approval signal to a running account opening workflow.
//
//	approve --workflow-id OpenAccount-1234 --step compliance
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.temporal.io/sdk/converter"

	"wealth/internal/claimcheck"
	"wealth/internal/opening/service"
	"wealth/internal/platform/config"
	"wealth/internal/platform/logger"
	"wealth/internal/platform/temporal"
)

func main() {
	workflowID := flag.String("workflow-id", "", "Workflow id of the account opening to approve")
	step := flag.String("step", "compliance", "Approval to send: kyc or compliance")
	timeout := flag.Duration("timeout", 10*time.Second, "Overall timeout")
	flag.Parse()

	if err := run(*workflowID, *step, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "approve: %v\n", err)
		os.Exit(1)
	}
}

func run(workflowID, step string, timeout time.Duration) error {
	if workflowID == "" {
		return fmt.Errorf("--workflow-id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var dc converter.DataConverter
	if cfg.ClaimCheck.Enabled {
		cc, err := temporal.NewClaimCheck(ctx, cfg, nil, log)
		if err != nil {
			return err
		}
		defer cc.Close() //nolint:errcheck // process exit
		dc = claimcheck.DataConverter(cc.Codec)
	}

	c, err := temporal.Dial(ctx, cfg.Temporal, log, dc)
	if err != nil {
		return err
	}
	defer c.Close()

	svc := service.New(c, cfg.Temporal.TaskQueue, service.WithLogger(log))
	switch step {
	case "kyc":
		err = svc.VerifyKyc(ctx, workflowID)
	case "compliance":
		err = svc.ApproveCompliance(ctx, workflowID)
	default:
		return fmt.Errorf("unknown --step %q (want kyc or compliance)", step)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s approval sent to %s\n", step, workflowID)
	return nil
}
