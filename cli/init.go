package cli

import (
	"github.com/spf13/cobra"
)

// An initCommand is used to create an executable's configuration
// and key material.
type initCommand struct {
	appName string
	runFunc func(cmd *cobra.Command, args []string) error
}

var _ cobraCommand = (*initCommand)(nil)

// NewInitCommand constructs a new InitCommand for the given
// executable's appName and the runFunc implementing
// the initialization command.
func NewInitCommand(appName string, runFunc func(cmd *cobra.Command, args []string) error) *cobra.Command {
	initCmd := &initCommand{
		appName: appName,
		runFunc: runFunc,
	}
	return initCmd.Build()
}

// Build constructs the cobra.Command according to the
// InitCommand's settings.
func (initCmd *initCommand) Build() *cobra.Command {
	cmd := cobra.Command{
		Use:   "init",
		Short: "Create a configuration file and keys for " + initCmd.appName + ".",
		Long: `Create a configuration file for ` + initCmd.appName + `,
together with the key material it refers to.`,
		RunE: initCmd.runFunc,
	}
	return &cmd
}
