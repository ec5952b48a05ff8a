package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/waste-sensor/internal/app"
	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// options are shared by all subcommands
type options struct {
	configPath string
	logLevel   string
	dev        bool

	clock clockwork.Clock
}

// NewRootCmd builds the command tree using the wall clock
func NewRootCmd() *cobra.Command {
	return newRootCmd(clockwork.NewRealClock())
}

func newRootCmd(clock clockwork.Clock) *cobra.Command {
	opts := &options{clock: clock}

	root := &cobra.Command{
		Use:           "waste-sensor",
		Short:         "Publishes trash and green waste collection days computed from weekly rules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $WASTE_CONFIG or ./waste.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.dev, "dev", false, "human readable development logging")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newNextCmd(opts))
	root.AddCommand(newOnCmd(opts))
	root.AddCommand(newDayCmd(opts, app.ResourceToday))
	root.AddCommand(newDayCmd(opts, app.ResourceTomorrow))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *options) logger() (*zap.Logger, error) {
	return app.NewLogger(o.logLevel, o.dev)
}

// load reads the config and builds the engine from it
func (o *options) load() (app.Config, *schedule.Engine, error) {
	cfg, err := app.LoadConfig(app.ConfigPath(o.configPath))
	if err != nil {
		return app.Config{}, nil, err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return app.Config{}, nil, err
	}
	return cfg, schedule.New(rules), nil
}

func (o *options) today() time.Time {
	return schedule.Date(o.clock.Now())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "waste-sensor %s (commit=%s, built=%s)\n", Version, CommitSHA, BuildDate)
		},
	}
}
