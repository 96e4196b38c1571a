package main

import (
	"fmt"
	"strings"

	"github.com/safe-network/safe-recoveryd/pkg/wallet"
	"github.com/urfave/cli/v2"
)

var derive = cli.Command{
	Name:  "derive",
	Usage: "print the recovery accounts derived from a recovery phrase",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "phrase",
			Usage:    "the recovery phrase",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "components",
			Usage: "comma separated derivation path components of the accounts",
			Value: "0,1",
		},
	},
	Action: deriveAction,
}

func deriveAction(ctx *cli.Context) error {
	phrase := ctx.String("phrase")
	if !wallet.IsMnemonicValid(phrase) {
		return fmt.Errorf("invalid recovery phrase")
	}

	for _, c := range strings.Split(ctx.String("components"), ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		address, err := wallet.DeriveRecoveryAddress(phrase, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "%s %s\n", c, address)
	}
	return nil
}
