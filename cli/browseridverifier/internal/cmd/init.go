package cmd

import (
	"path"
	"strconv"

	"github.com/rodneysullivan/browserid/application"
	"github.com/rodneysullivan/browserid/application/testutil"
	"github.com/rodneysullivan/browserid/application/verifier"
	"github.com/rodneysullivan/browserid/cli"
	"github.com/rodneysullivan/browserid/crypto/sign"
	"github.com/rodneysullivan/browserid/utils"
	"github.com/spf13/cobra"
)

var initCmd = cli.NewInitCommand("the verifier", initRunFunc)

func init() {
	RootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("dir", "d", ".", "Location of directory for storing generated files")
	initCmd.Flags().BoolP("cert", "c", false, "Generate self-signed ssl keys/cert with sane defaults")
}

func initRunFunc(cmd *cobra.Command, args []string) error {
	dir := cmd.Flag("dir").Value.String()
	if err := mkConfig(dir); err != nil {
		return err
	}
	if err := mkTrustRoot(dir); err != nil {
		return err
	}

	cert, err := strconv.ParseBool(cmd.Flag("cert").Value.String())
	if err == nil && cert {
		return testutil.CreateTLSCert(dir)
	}
	return nil
}

func mkConfig(dir string) error {
	file := path.Join(dir, "config.toml")
	addrs := []*application.ServerAddress{
		{
			Address: "unix:///tmp/browserid.sock",
		},
		{
			Address:     "tcp://0.0.0.0:3000",
			TLSCertPath: "server.pem",
			TLSKeyPath:  "server.key",
		},
	}
	logger := &application.LoggerConfig{
		EnableStacktrace: true,
		Environment:      "development",
		Path:             "browseridverifier.log",
	}

	conf := verifier.NewConfig(file, "toml", addrs, logger, "root.pub")
	conf.MetricsAddress = "127.0.0.1:9100"
	return conf.Save()
}

// mkTrustRoot writes a fresh trust root key pair. The private key
// issues certificates; only the public key is read by the verifier.
func mkTrustRoot(dir string) error {
	sk, err := sign.GenerateKey(nil)
	if err != nil {
		return err
	}
	pk, _ := sk.Public()
	if err := utils.WriteFile(path.Join(dir, "root.priv"), sk, 0600); err != nil {
		return err
	}
	return utils.WriteFile(path.Join(dir, "root.pub"), pk, 0644)
}
