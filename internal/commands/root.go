package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/shotspectre/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	version string
	commit  string
	date    string
)

var rootCmd = &cobra.Command{
	Use:   "shotspectre",
	Short: "shotspectre: website screenshot triage with vision models",
	Long: `shotspectre sends a directory of website screenshots to a vision-capable
chat model and reports, for each one, whether it looks old, shows a login page,
is a full web application, a custom 404 page, or a parked domain, along with
the technologies and security issues visible on screen.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logging.Init(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with injected build info.
func Execute(v, c, d string) error {
	version = v
	commit = c
	date = d

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
