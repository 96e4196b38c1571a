package main

import (
	"fmt"
	"time"

	"github.com/safe-network/safe-recoveryd/internal/core/application"
	"github.com/urfave/cli/v2"
)

var resume = cli.Command{
	Name:  "resume",
	Usage: "resume the recovery of a wallet and wait for it to end",
	Flags: []cli.Flag{
		&walletFlag,
		&cli.BoolFlag{
			Name:  "all",
			Usage: "resume every wallet in recovery without waiting",
		},
	},
	Action: resumeAction,
}

func resumeAction(ctx *cli.Context) error {
	svc, cleanup, err := getRecoveryService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if ctx.Bool("all") {
		count, err := svc.ResumeInBackground(ctx.Context).Wait(ctx.Context)
		fmt.Fprintf(ctx.App.Writer, "resumed %d recoveries\n", count)
		return err
	}

	walletID := ctx.String("wallet")
	errs := make(chan error, 1)
	w := newWatcher(ctx, errs)
	defer w.Stop()

	state, err := svc.Resume(ctx.Context, walletID, w).Wait(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "recovery resumed in state %s\n", state)
	if state != application.RecoveryStateSubmitted {
		return nil
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case err := <-errs:
			return err
		case <-ctx.Context.Done():
			return ctx.Context.Err()
		case <-ticker.C:
			state, err := svc.State(ctx.Context, walletID)
			if err != nil {
				return err
			}
			if state.IsTerminal() {
				fmt.Fprintf(ctx.App.Writer, "recovery ended in state %s\n", state)
				return nil
			}
		}
	}
}
