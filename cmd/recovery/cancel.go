package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var cancel = cli.Command{
	Name:   "cancel",
	Usage:  "cancel the recovery of a wallet",
	Flags:  []cli.Flag{&walletFlag},
	Action: cancelAction,
}

func cancelAction(ctx *cli.Context) error {
	svc, cleanup, err := getRecoveryService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.CancelRecovery(ctx.Context, ctx.String("wallet")); err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, "recovery cancelled")
	return nil
}
