package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var submit = cli.Command{
	Name:   "submit",
	Usage:  "submit the funded recovery transaction of a wallet",
	Flags:  []cli.Flag{&walletFlag},
	Action: submitAction,
}

func submitAction(ctx *cli.Context) error {
	svc, cleanup, err := getRecoveryService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	walletID := ctx.String("wallet")
	if _, err := svc.Resume(ctx.Context, walletID, nil).Wait(
		ctx.Context,
	); err != nil {
		return err
	}

	hash, err := svc.SubmitRecoveryTransaction(ctx.Context, walletID)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, hash)
	return nil
}
