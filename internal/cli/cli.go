// Package cli implements the pdfmerge command line client.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go-pdfmerger/internal/client"
	"go-pdfmerger/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultServer = "http://localhost:5001"
	defaultOutput = "merged.pdf"
)

type app struct {
	v   *viper.Viper
	log *zap.Logger
}

// NewRootCommand builds the pdfmerge command tree. Flags may also be set
// through PDFMERGE_* environment variables.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}
	a.v.SetEnvPrefix("pdfmerge")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "pdfmerge",
		Short:         "Merge PDF files in a chosen order",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(a.v.GetString("log-level"), "console")
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", defaultServer, "base URL of the merge service")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Duration("timeout", 5*time.Minute, "request timeout")
	for _, name := range []string{"server", "log-level", "timeout"} {
		cobra.CheckErr(a.v.BindPFlag(name, flags.Lookup(name)))
	}

	root.AddCommand(a.mergeCommand(), a.inspectCommand(), a.healthCommand())
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) client() *client.Client {
	c := client.New(a.v.GetString("server"), a.log)
	c.HTTP.Timeout = a.v.GetDuration("timeout")
	return c
}

func (a *app) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the merge service is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
