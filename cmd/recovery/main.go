package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "recovery"
	app.Usage = "Command line interface to recover multisig wallets"
	app.Description = "Commands operating on the datadir must be run while " +
		"the daemon is stopped. They read the same RECOVERY_* environment " +
		"variables as the daemon"
	app.Commands = append(
		app.Commands,
		&genseed,
		&derive,
		&recoverWallet,
		&status,
		&submit,
		&cancel,
		&resume,
	)
	return app
}

func printJSON(ctx *cli.Context, resp interface{}) error {
	buf, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return fmt.Errorf("unable to decode response: %w", err)
	}
	fmt.Fprintln(ctx.App.Writer, string(buf))
	return nil
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[recovery] %v\n", err)
	}
	os.Exit(1)
}
