package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"notionhelper/internal/config"
	"notionhelper/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	// Loaded in PersistentPreRunE for commands that need it.
	cfg *config.Config
)

// noConfig marks commands that run without a configuration file.
const noConfig = "no-config"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "notionhelper",
	Short: "Weekly todo, calendar and status-email automation for Notion",
	Long: `notionhelper automates a weekly todo workflow:

  1. Copies [prefix] todos from the daily list into their project pages
  2. Appends last week's completed tasks to Notion as weekly summaries
  3. Writes (and optionally sends) the weekly status email
  4. Imports next week's calendar events into the daily todo lists

Run "notionhelper create-sample-config" to get started.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		if cmd.Annotations[noConfig] != "" {
			return logging.Initialize(logging.Options{Verbose: verbose})
		}

		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := logging.Initialize(c.Logging.Options(verbose)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		logging.Boot("config loaded from %s (timezone %s, todo source %s)", configPath, c.Timezone, c.TodoSource)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")

	rootCmd.AddCommand(weeklyCmd)
	rootCmd.AddCommand(syncCalendarCmd)
	rootCmd.AddCommand(syncTodosCmd)
	rootCmd.AddCommand(updateNotionCmd)
	rootCmd.AddCommand(generateEmailCmd)
	rootCmd.AddCommand(sendEmailCmd)
	rootCmd.AddCommand(testConfigCmd)
	rootCmd.AddCommand(setupCronCmd)
	rootCmd.AddCommand(sampleConfigCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

// commandContext bounds a command by --timeout and cancels it on SIGINT or
// SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
