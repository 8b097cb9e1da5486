package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/audit"
	"github.com/hedeqiang/web3-ethereum-defi/internal/guard"
	"github.com/hedeqiang/web3-ethereum-defi/internal/helpers"
)

var checkCommand = &cli.Command{
	Name:      "check",
	Usage:     "validate one calldata blob offline and print the verdict",
	ArgsUsage: "<target> <calldata-hex>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "sender",
			Usage: "sender to validate as (defaults to the first ALLOWED_SENDERS entry)",
		},
		&cli.BoolFlag{
			Name:  "any-asset",
			Usage: "suppress asset/market membership checks for this evaluation",
		},
	},
	Action: runCheck,
}

func runCheck(cliCtx *cli.Context) error {
	if cliCtx.NArg() != 2 {
		return fmt.Errorf("usage: guardd check <target> <calldata-hex>")
	}

	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}

	target, err := helpers.ValidateAddress(cliCtx.Args().Get(0))
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	data, err := helpers.ParseCalldata(cliCtx.Args().Get(1))
	if err != nil {
		return err
	}

	var sender common.Address
	switch {
	case cliCtx.String("sender") != "":
		sender, err = helpers.ValidateAddress(cliCtx.String("sender"))
		if err != nil {
			return fmt.Errorf("sender: %w", err)
		}
	case len(cfg.ALLOWED_SENDERS) > 0:
		sender, err = helpers.ValidateAddress(cfg.ALLOWED_SENDERS[0])
		if err != nil {
			return fmt.Errorf("ALLOWED_SENDERS[0]: %w", err)
		}
	default:
		return fmt.Errorf("no sender: pass --sender or configure ALLOWED_SENDERS")
	}

	// Offline check: in-memory trail, no chain access.
	trail, err := audit.OpenMemory()
	if err != nil {
		return err
	}
	defer trail.Close()

	g, err := buildGuard(cfg, trail, nil)
	if err != nil {
		return err
	}

	if err := g.ValidateCall(sender, guard.Action{Target: target, Data: data}, cliCtx.Bool("any-asset")); err != nil {
		color.Red("BLOCKED [%s]", guard.KindOf(err))
		fmt.Println(err.Error())
		return cli.Exit("", 1)
	}
	color.Green("ALLOWED")
	return nil
}
