package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/tubequeue/tubequeue/cmd/common"
	"github.com/tubequeue/tubequeue/pkg/queuecli"
)

// secretCommands manage the RPC secret used to authenticate with the
// daemon. The secret lives in the OS keyring; the environment variable
// override is for headless machines.
func secretCommands() []cli.Command {
	return []cli.Command{
		{
			Name:      "set",
			Usage:     "store the rpc secret in the system keyring",
			UsageText: "tubequeue secret set <secret>",
			Action:    secretSet,
		},
		{
			Name:   "clear",
			Usage:  "remove the rpc secret from the system keyring",
			Action: secretClear,
		},
	}
}

func secretSet(ctx *cli.Context) error {
	secret := ctx.Args().First()
	if secret == "" || secret == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if err := queuecli.StoreSecret(secret); err != nil {
		common.PrintRuntimeErr(ctx, "secret", "store", err)
		return nil
	}
	fmt.Println("tubequeue: rpc secret stored")
	return nil
}

func secretClear(ctx *cli.Context) error {
	if err := queuecli.DeleteSecret(); err != nil {
		common.PrintRuntimeErr(ctx, "secret", "delete", err)
		return nil
	}
	fmt.Println("tubequeue: rpc secret removed")
	return nil
}
