package cmd

import (
	"github.com/rodneysullivan/browserid/cli"
)

var versionCmd = cli.NewVersionCommand("browseridverifier")

func init() {
	RootCmd.AddCommand(versionCmd)
}
