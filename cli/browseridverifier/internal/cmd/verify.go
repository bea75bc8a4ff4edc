package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rodneysullivan/browserid/application"
	"github.com/rodneysullivan/browserid/application/verifier"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [bundle]",
	Short: "Verify an assertion bundle offline.",
	Long: `Verify an assertion bundle against the trust root and identity
providers of the configuration, at the local time, and print the
verifier's response. The bundle is read from standard input if it is
not given as an argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: verify,
}

func init() {
	RootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringP("config", "c", "config.toml", "Path to verifier configuration file")
	verifyCmd.Flags().StringP("audience", "a", "", "Origin of the relying site, e.g. https://example.com")
	verifyCmd.MarkFlagRequired("audience")
}

func verify(cmd *cobra.Command, args []string) error {
	confPath := cmd.Flag("config").Value.String()
	audience := cmd.Flag("audience").Value.String()

	var bundle string
	if len(args) == 1 {
		bundle = args[0]
	} else {
		buf, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		bundle = string(buf)
	}
	bundle = strings.TrimSpace(bundle)

	conf := &verifier.Config{}
	if err := conf.Load(confPath, "toml"); err != nil {
		return err
	}
	v, err := verifier.New(conf)
	if err != nil {
		return err
	}
	defer v.Shutdown()

	res := v.HandleRequest(&application.Request{Assertion: bundle, Audience: audience})
	msg, err := application.MarshalResponse(res)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(msg))
	if !res.OK() {
		return errors.New(res.Reason)
	}
	return nil
}
