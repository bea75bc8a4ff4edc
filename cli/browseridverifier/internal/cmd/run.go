package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"

	"github.com/rodneysullivan/browserid/application/verifier"
	"github.com/rodneysullivan/browserid/cli"
	"github.com/spf13/cobra"
)

var runCmd = cli.NewRunCommand("verifier", run)

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("config", "c", "config.toml", "Path to verifier configuration file")
	runCmd.Flags().BoolP("pid", "p", false, "Write down the process id to browseridverifier.pid in the current working directory")
}

func run(cmd *cobra.Command, args []string) error {
	confPath := cmd.Flag("config").Value.String()
	// ignore the error here since it is handled by the flag parser.
	pid, _ := strconv.ParseBool(cmd.Flag("pid").Value.String())
	if pid {
		writePID()
	}

	conf := &verifier.Config{}
	if err := conf.Load(confPath, "toml"); err != nil {
		return err
	}
	v, err := verifier.New(conf)
	if err != nil {
		return err
	}

	// run the verifier until receiving an interrupt signal
	if err := v.Run(conf.Addresses, conf.MetricsAddress); err != nil {
		return err
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	return v.Shutdown()
}

func writePID() {
	pidf, err := os.OpenFile(path.Join(".", "browseridverifier.pid"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Printf("Cannot create browseridverifier.pid: %v", err)
		return
	}
	defer pidf.Close()
	if _, err := fmt.Fprint(pidf, os.Getpid()); err != nil {
		log.Printf("Cannot write to pid file: %v", err)
	}
}
