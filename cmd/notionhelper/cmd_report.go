package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"notionhelper/internal/email"
	"notionhelper/internal/pipeline"
	"notionhelper/internal/report"
	"notionhelper/internal/types"
)

var (
	reportWeek   string
	emailPolish  bool
	emailSend    bool
	emailPreview bool
	sendFile     string
	sendYes      bool
)

// updateNotionCmd appends last week's summaries to Notion
var updateNotionCmd = &cobra.Command{
	Use:   "update-notion",
	Short: "Append last week's completed tasks to the project pages and daily log",
	RunE:  runUpdateNotion,
}

// generateEmailCmd writes the weekly email draft
var generateEmailCmd = &cobra.Command{
	Use:   "generate-email",
	Short: "Write the weekly status email draft",
	Long: `Builds last week's report and fills the email template with it.

The draft is saved to the draft directory. With --polish the body is first
rewritten by the configured LLM provider; with --send it is also delivered
over SMTP.`,
	RunE: runGenerateEmail,
}

// sendEmailCmd sends a saved draft
var sendEmailCmd = &cobra.Command{
	Use:   "send-email",
	Short: "Send the latest (or a given) email draft over SMTP",
	RunE:  runSendEmail,
}

func init() {
	updateNotionCmd.Flags().StringVar(&reportWeek, "week", "", "Any day of the week to report (YYYY-MM-DD, default: last week)")
	generateEmailCmd.Flags().StringVar(&reportWeek, "week", "", "Any day of the week to report (YYYY-MM-DD, default: last week)")
	generateEmailCmd.Flags().BoolVar(&emailPolish, "polish", false, "Rewrite the email with the configured LLM (default: llm.enabled)")
	generateEmailCmd.Flags().BoolVar(&emailSend, "send", false, "Send the email over SMTP (default: email.send)")
	generateEmailCmd.Flags().BoolVar(&emailPreview, "preview", false, "Render the email in the terminal")
	sendEmailCmd.Flags().StringVar(&sendFile, "file", "", "Draft file to send (default: latest draft)")
	sendEmailCmd.Flags().BoolVarP(&sendYes, "yes", "y", false, "Send without asking")
}

// reportRange is the week containing --week, or last week.
func (a *app) reportRange(week string) (types.DateRange, error) {
	if week == "" {
		return types.LastWeek(a.now(), a.loc), nil
	}
	day, err := a.today(week)
	if err != nil {
		return types.DateRange{}, err
	}
	return types.CurrentWeek(day, a.loc), nil
}

// reportOnce builds the report on first use and caches it for later steps.
func (a *app) reportOnce(r types.DateRange) func(context.Context) (report.Report, error) {
	var rep *report.Report
	return func(ctx context.Context) (report.Report, error) {
		if rep != nil {
			return *rep, nil
		}
		built, err := a.buildReport(ctx, r)
		if err != nil {
			return built, err
		}
		rep = &built
		a.out.info("Found %d completed tasks across %d projects (%s)", built.TotalTasks, len(built.Projects), r)
		return built, nil
	}
}

func runUpdateNotion(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := cfg.RequireNotion(); err != nil {
		return err
	}
	r, err := a.reportRange(reportWeek)
	if err != nil {
		return err
	}
	getReport := a.reportOnce(r)

	a.out.header("Updating Notion")
	return a.runSteps(ctx, "update-notion", []pipeline.Step{{
		Name:     "update-notion",
		Required: true,
		Run: func(ctx context.Context) (string, error) {
			return a.updateNotionStep(ctx, getReport)
		},
	}})
}

func (a *app) updateNotionStep(ctx context.Context, getReport func(context.Context) (report.Report, error)) (string, error) {
	rep, err := getReport(ctx)
	if err != nil {
		return "", err
	}
	detail, err := a.updateNotion(ctx, rep)
	var skip *pipeline.SkipError
	switch {
	case errors.As(err, &skip):
		a.out.info("No completed tasks found. Skipping Notion update.")
	case err != nil:
		a.out.fail("Notion update failed: %v", err)
	default:
		a.out.ok("Notion updated: %s", detail)
	}
	return detail, err
}

func emailOptionsFromFlags(cmd *cobra.Command) emailOptions {
	opts := emailOptions{Polish: cfg.LLM.Enabled, Send: cfg.Email.Send}
	if cmd.Flags().Changed("polish") {
		opts.Polish = emailPolish
	}
	if cmd.Flags().Changed("send") {
		opts.Send = emailSend
	}
	return opts
}

func runGenerateEmail(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	opts := emailOptionsFromFlags(cmd)
	if err := a.preflightEmail(opts); err != nil {
		return err
	}
	r, err := a.reportRange(reportWeek)
	if err != nil {
		return err
	}
	getReport := a.reportOnce(r)

	a.out.header("Generating weekly email")
	return a.runSteps(ctx, "generate-email", []pipeline.Step{{
		Name:     "email",
		Required: true,
		Run: func(ctx context.Context) (string, error) {
			return a.emailStep(ctx, getReport, opts, emailPreview)
		},
	}})
}

func (a *app) emailStep(ctx context.Context, getReport func(context.Context) (report.Report, error), opts emailOptions, preview bool) (string, error) {
	rep, err := getReport(ctx)
	if err != nil {
		return "", err
	}
	path, msg, err := a.generateEmail(ctx, rep, opts)
	var skip *pipeline.SkipError
	if errors.As(err, &skip) {
		a.out.info("No completed tasks found for %s.", rep.Range)
		return "", err
	}
	if path != "" {
		a.out.ok("Email draft saved to: %s", path)
	}
	if err != nil {
		return path, err
	}
	if preview {
		fmt.Fprintln(a.out.w, renderMarkdown("# "+msg.Subject+"\n\n"+msg.Body, 0))
	}
	detail := fmt.Sprintf("draft %s", path)
	if opts.Send {
		a.out.ok("Email sent to %d recipients", len(msg.To)+len(msg.Cc))
		detail += ", sent"
	}
	return detail, nil
}

func runSendEmail(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := cfg.RequireSMTP(); err != nil {
		return err
	}
	path := sendFile
	if path == "" {
		path, err = email.LatestDraft(cfg.Email.DraftDir)
		if err != nil {
			return err
		}
	}
	msg, err := email.ReadDraft(path)
	if err != nil {
		return err
	}

	a.out.header("Sending %s", path)
	a.out.info("To: %v", msg.To)
	a.out.info("Subject: %s", msg.Subject)
	if !sendYes {
		ok, err := confirm("   Send this email?", cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !ok {
			a.out.info("Sending cancelled")
			return nil
		}
	}
	return a.runSteps(ctx, "send-email", []pipeline.Step{{
		Name:     "send",
		Required: true,
		Run: func(ctx context.Context) (string, error) {
			if err := a.send(ctx, msg); err != nil {
				return "", err
			}
			a.out.ok("Email sent")
			return "sent " + path, nil
		},
	}})
}
