package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/cli"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/document"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <statement-file>",
		Short: "Extract and categorize transactions from a statement",
		Long: `Create a session, run the extraction pipeline over the given statement
file, and report the categorized results. OFX and QFX files are parsed
natively; anything else is treated as statement text.

The session token printed at the end feeds the recommend and analysis
commands. Pass --session with an existing token to re-run a session,
for example one requeued after a failure.`,
		Args: cobra.ExactArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().String("session", "", "existing session token to run instead of creating one")
	cmd.Flags().String("issuer", "", "issuer hint passed to the extractor")
	cmd.Flags().Int("expected-count", 0, "expected transaction count hint")
	cmd.Flags().Bool("quiet", false, "suppress the progress bar")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	sessionToken, _ := cmd.Flags().GetString("session")
	issuer, _ := cmd.Flags().GetString("issuer")
	expectedCount, _ := cmd.Flags().GetInt("expected-count")
	quiet, _ := cmd.Flags().GetBool("quiet")

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open statement: %w", err)
	}
	defer func() { _ = file.Close() }()

	rt, err := buildRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	var sess *model.Session
	if sessionToken != "" {
		sess, err = rt.machine.ResolveToken(ctx, sessionToken)
		if err != nil {
			return err
		}
	} else {
		sess, err = rt.app.CreateSession(ctx)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}
	fmt.Println(cli.FormatInfo("Session " + sess.Token))

	var sink service.ProgressSink
	if !quiet {
		sink = newProgressBarSink()
	}

	handle, err := rt.app.BeginExtraction(ctx, sess.ID, file, document.ParserForFile(path), service.ExtractionHints{
		ExpectedIssuer:           issuer,
		ExpectedTransactionCount: expectedCount,
	}, sink)
	if err != nil {
		return err
	}

	result, err := handle.Wait(ctx)
	if err != nil {
		fmt.Println(cli.FormatError("Processing failed: " + err.Error()))
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
			"To retry: suggestor sessions requeue %s && suggestor process --session %s %s",
			sess.Token, sess.Token, path)))
		return err
	}

	fmt.Println()
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Extracted %d transactions (%d categorized, %d unknown MCC, %d discovered)",
		result.Transactions, result.Categorized, result.UnknownMCC, result.Discovered)))
	fmt.Println(cli.FormatInfo(fmt.Sprintf("Total spend $%.2f, top category %s", result.TotalSpend, result.TopCategory)))
	for _, warning := range result.Warnings {
		fmt.Println(cli.FormatWarning(warning))
	}
	fmt.Println()
	fmt.Println("Next: suggestor recommend " + sess.Token)

	return nil
}

// progressBarSink renders pipeline progress events as a terminal bar.
type progressBarSink struct {
	bar *progressbar.ProgressBar
}

func newProgressBarSink() *progressBarSink {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Processing statement...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(os.Stderr); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return &progressBarSink{bar: bar}
}

func (s *progressBarSink) Notify(event service.ProgressEvent) error {
	s.bar.Describe(fmt.Sprintf("[cyan][bold]%s[reset]", event.Message))
	return s.bar.Set(event.Percent)
}
