package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"notionhelper/internal/config"
	"notionhelper/internal/cron"
	"notionhelper/internal/email"
	"notionhelper/internal/logging"
	"notionhelper/internal/types"
)

var (
	setupYes   bool
	setupPrint bool
)

// setupCronCmd installs the weekly cron job
var setupCronCmd = &cobra.Command{
	Use:   "setup-cron",
	Short: "Install a crontab entry running weekly-automation",
	Long: `Adds one line to the user's crontab running weekly-automation on the
configured schedule (default Friday 08:00), with output appended to the
configured log file. An existing notionhelper entry is left unchanged.`,
	RunE: runSetupCron,
}

// sampleConfigCmd writes a sample configuration
var sampleConfigCmd = &cobra.Command{
	Use:         "create-sample-config",
	Short:       "Write a sample configuration file and email template",
	Annotations: map[string]string{noConfig: "true"},
	RunE:        runSampleConfig,
}

func init() {
	setupCronCmd.Flags().BoolVarP(&setupYes, "yes", "y", false, "Install without asking")
	setupCronCmd.Flags().BoolVar(&setupPrint, "print", false, "Print the crontab line and exit")
	sampleConfigCmd.Flags().BoolVarP(&setupYes, "yes", "y", false, "Overwrite without asking")
}

func runSetupCron(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	out := printer{w: cmd.OutOrStdout()}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	cfgAbs, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	entry := cron.Entry{
		Schedule:   cfg.Cron.Schedule,
		Dir:        dir,
		Executable: exe,
		ConfigPath: cfgAbs,
		LogPath:    cfg.Cron.LogPath,
	}
	line, err := entry.Line()
	if err != nil {
		return &types.ConfigurationError{Field: "cron.schedule", Err: err}
	}
	if setupPrint {
		fmt.Fprintln(cmd.OutOrStdout(), line)
		return nil
	}

	out.header("Setting up cron job")
	out.info("%s", line)
	if next, err := cron.Next(entry.Schedule, time.Now()); err == nil {
		out.dim("next run: %s", next.Format("Mon Jan 2 2006 15:04 MST"))
	}

	if !setupYes {
		ok, err := confirm("   Add this cron job?", cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !ok {
			out.info("Cron job setup cancelled")
			return nil
		}
	}
	return installCron(ctx, cron.SystemCrontab{}, line, out)
}

func installCron(ctx context.Context, tab cron.Crontab, line string, out printer) error {
	err := cron.Install(ctx, tab, line)
	if errors.Is(err, cron.ErrAlreadyInstalled) {
		out.warn("%v", err)
		return nil
	}
	logging.Audit("").Write(logging.AuditCronInstalled, line, err)
	if err != nil {
		return err
	}
	out.ok("Cron job added")
	return nil
}

func runSampleConfig(cmd *cobra.Command, args []string) error {
	out := printer{w: cmd.OutOrStdout()}
	out.header("Creating sample configuration")

	if _, err := os.Stat(configPath); err == nil && !setupYes {
		ok, err := confirm(fmt.Sprintf("   %s already exists. Overwrite?", configPath), cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !ok {
			out.info("Configuration creation cancelled")
			return nil
		}
	}

	err := config.WriteSample(configPath, true)
	logging.Audit("").Write(logging.AuditConfigWritten, configPath, err)
	if err != nil {
		return err
	}
	out.ok("Sample configuration written to: %s", configPath)

	tmpl := config.SampleConfig().Paths.EmailTemplate
	if _, err := os.Stat(tmpl); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(tmpl), 0755); err != nil {
			return fmt.Errorf("create template directory: %w", err)
		}
		if err := os.WriteFile(tmpl, []byte(email.SampleTemplate), 0644); err != nil {
			return fmt.Errorf("write email template: %w", err)
		}
		out.ok("Email template written to: %s", tmpl)
	}

	out.info("Please edit the file and fill in your actual values:")
	out.dim("Notion integration token and database / page IDs")
	out.dim("iCloud username and app-specific password, calendar selection")
	out.dim("Email recipients and SMTP settings")
	out.dim("Secrets can also go in .env (NOTION_TOKEN, ICLOUD_PASSWORD, SMTP_PASSWORD, ...)")
	return nil
}
