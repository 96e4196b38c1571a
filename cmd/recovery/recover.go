package main

import (
	"github.com/safe-network/safe-recoveryd/internal/core/application"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var recoverWallet = cli.Command{
	Name:  "recover",
	Usage: "start the recovery of a wallet and create its recovery transaction",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "address",
			Usage:    "address of the wallet contract",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "phrase",
			Usage:    "the recovery phrase of the wallet",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "authenticator",
			Usage: "address of a second factor key to connect",
		},
		&cli.StringFlag{
			Name:  "authenticator-role",
			Usage: "kind of second factor: authenticator, browserExtension or keycard",
			Value: domain.OwnerRoleAuthenticator.String(),
		},
		&cli.BoolFlag{
			Name:  "disconnect-authenticator",
			Usage: "remove the current second factor key",
		},
		&cli.IntFlag{
			Name:  "threshold",
			Usage: "confirmations required by the recovered wallet, 0 keeps the current",
		},
	},
	Action: recoverAction,
}

type recoverReply struct {
	WalletID    string                       `json:"wallet_id"`
	Transaction *application.TransactionView `json:"transaction"`
	Fees        []application.FeeBalance     `json:"fees"`
}

func recoverAction(ctx *cli.Context) error {
	if ctx.IsSet("authenticator") && ctx.Bool("disconnect-authenticator") {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	req := application.RecoveryTransactionRequest{
		DisconnectAuthenticator: ctx.Bool("disconnect-authenticator"),
		Threshold:               ctx.Int("threshold"),
	}
	if ctx.IsSet("authenticator") {
		role, err := domain.ParseOwnerRole(ctx.String("authenticator-role"))
		if err != nil {
			return err
		}
		req.Authenticator = &domain.Owner{
			Address: ctx.String("authenticator"),
			Role:    role,
		}
	}

	svc, cleanup, err := getRecoveryService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	errs := make(chan error, 1)
	w := newWatcher(ctx, errs)
	defer w.Stop()

	walletID, err := svc.CreateRecoverDraftWallet(ctx.Context)
	if err != nil {
		return err
	}
	if err := svc.Validate(
		ctx.Context, walletID, ctx.String("address"), w,
	); err != nil {
		return err
	}
	if err := svc.Provide(
		ctx.Context, walletID, ctx.String("phrase"), w,
	); err != nil {
		return err
	}

	req.WalletID = walletID
	if _, err := svc.CreateRecoveryTransaction(
		ctx.Context, req, w,
	).Wait(ctx.Context); err != nil {
		return err
	}

	tx, err := svc.RecoveryTransaction(ctx.Context, walletID)
	if err != nil {
		return err
	}
	fees, err := svc.EstimateRecoveryTransaction(ctx.Context, walletID)
	if err != nil {
		return err
	}

	return printJSON(ctx, recoverReply{walletID, tx, fees})
}
