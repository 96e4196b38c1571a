package main

import (
	"github.com/safe-network/safe-recoveryd/internal/core/application"
	"github.com/urfave/cli/v2"
)

var status = cli.Command{
	Name:   "status",
	Usage:  "show the state of the recovery of a wallet",
	Flags:  []cli.Flag{&walletFlag},
	Action: statusAction,
}

type statusReply struct {
	State       string                       `json:"state"`
	Transaction *application.TransactionView `json:"transaction,omitempty"`
	Fees        []application.FeeBalance     `json:"fees,omitempty"`
}

func statusAction(ctx *cli.Context) error {
	svc, cleanup, err := getRecoveryService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	walletID := ctx.String("wallet")
	state, err := svc.Resume(ctx.Context, walletID, nil).Wait(ctx.Context)
	if err != nil {
		return err
	}

	reply := statusReply{State: state.String()}
	if inProgress, _ := svc.IsRecoveryInProgress(
		ctx.Context, walletID,
	); !inProgress {
		return printJSON(ctx, reply)
	}

	if reply.Transaction, err = svc.RecoveryTransaction(
		ctx.Context, walletID,
	); err != nil {
		return err
	}
	if state == application.RecoveryStateAwaitingFunds ||
		state == application.RecoveryStateReadyToSubmit {
		if reply.Fees, err = svc.EstimateRecoveryTransaction(
			ctx.Context, walletID,
		); err != nil {
			return err
		}
	}
	return printJSON(ctx, reply)
}
