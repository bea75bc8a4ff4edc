// Package cmd implements the CLI commands for the assertion verifier.
package cmd

import (
	"github.com/rodneysullivan/browserid/cli"
)

// RootCmd represents the base "browseridverifier" command when called
// without any subcommands.
var RootCmd = cli.NewRootCommand("browseridverifier",
	"BrowserID assertion verifier",
	`Verifies that an assertion bundle proves control of an email address
to a relying site, against a trust root and a set of identity providers.`)
