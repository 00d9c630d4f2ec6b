package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/toolplan/internal/tracing"
	"github.com/harun/toolplan/pkg/report"
)

var (
	inputFile      string
	outputFormat   string
	conversationID string
	failOnError    bool
	metricsFile    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the tool plan in a model response",
	Long: `Read a model response from --input (or stdin), execute the tool plan it
contains and print one outcome per call.

A response with no text executes nothing. A response that is not a valid
tool plan is rejected without executing any call.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&inputFile, "input", "i", "", "file holding the model response (default is stdin)")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json)")
	runCmd.Flags().StringVar(&conversationID, "conversation-id", "", "conversation ID attached to logs and audit events")
	runCmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit non-zero when any call fails")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file after the run")

	rootCmd.AddCommand(runCmd)
}

func formatterFor(format string) (report.Formatter, error) {
	switch format {
	case "text":
		return report.TextFormatter{}, nil
	case "json":
		return report.JSONFormatter{Indent: true}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: text, json)", format)
	}
}

func readInput(cmd *cobra.Command) (string, error) {
	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	formatter, err := formatterFor(outputFormat)
	if err != nil {
		return err
	}

	text, err := readInput(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = tracing.WithTraceID(ctx, tracing.NewTraceID())
	if conversationID != "" {
		ctx = tracing.WithConversationID(ctx, conversationID)
	}

	rep, err := rt.engine.Run(ctx, text)
	if metricsFile != "" {
		if werr := rt.metrics.WriteTextfile(metricsFile); werr != nil {
			log.Warn().Err(werr).Str("path", metricsFile).Msg("Failed to write metrics file")
		}
	}
	if err != nil {
		return err
	}

	out, err := formatter.Format(rep)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	if failOnError && !rep.AllSucceeded() {
		return fmt.Errorf("%d of %d calls failed", len(rep.Failures()), rep.Len())
	}
	return nil
}
