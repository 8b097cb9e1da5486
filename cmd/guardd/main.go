// guardd is the custody guard daemon and admin CLI.
//
// Subcommands:
//
//	serve      run the validation/admin HTTP surface
//	check      validate one calldata blob offline and print the verdict
//	audit      tail or verify the append-only audit trail
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hedeqiang/web3-ethereum-defi/internal/config"
	"github.com/hedeqiang/web3-ethereum-defi/internal/telemetry"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to guard config file",
	Value:   config.DefaultPath,
}

func main() {
	app := &cli.App{
		Name:  "guardd",
		Usage: "call-validation guard between a manager key and a custody wallet",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			serveCommand,
			checkCommand,
			auditCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "guardd: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if cfg.DEBUG {
		telemetry.EnableDebug(true)
	}
	return cfg, nil
}
