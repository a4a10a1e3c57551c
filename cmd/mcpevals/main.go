// Command mcpevals evaluates MCP tool servers: it drives scripted
// conversations against a server through an LLM, scores the transcripts
// with an LLM judge, and reports pass/fail per case.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/akshay5995/mcpevals/infrastructure/llm"
	"github.com/akshay5995/mcpevals/infrastructure/mcpclient"
	"github.com/akshay5995/mcpevals/infrastructure/middleware"
	"github.com/akshay5995/mcpevals/internal/application"
	"github.com/akshay5995/mcpevals/internal/domain"
	"github.com/akshay5995/mcpevals/internal/ports"
	"github.com/akshay5995/mcpevals/internal/report"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcpevals",
	Short: "Evaluate MCP servers with LLM-driven conversations",
	Long: `mcpevals runs scripted prompts and conversations against an MCP
server through an LLM, records which tools the model calls, and grades
each transcript with an LLM judge on a five-dimension rubric.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagFormat      string
	flagOutput      string
	flagVerbose     bool
	flagMetricsAddr string
	flagRPS         float64
)

func init() {
	runCmd.Flags().StringVarP(&flagFormat, "format", "f", "table", "output format: table, json, or junit")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the report to a file instead of stdout")
	runCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().Float64Var(&flagRPS, "rps", 0, "rate limit LLM requests per second (0 disables)")
	rootCmd.AddCommand(runCmd, templateCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <config.yaml>",
	Short: "Run an evaluation suite",
	Long: `Load a suite configuration, connect to the MCP server it describes,
execute every evaluation case, and print the results.

Exits non-zero when any case fails or errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine; explicit environment still applies.
		_ = godotenv.Load()

		logger := newLogger(flagVerbose)
		slog.SetDefault(logger)

		config, err := application.LoadConfig(args[0])
		if err != nil {
			return err
		}

		var collector ports.MetricsCollector
		if flagMetricsAddr != "" {
			prom := middleware.NewPrometheusMetrics()
			collector = prom
			go serveMetrics(flagMetricsAddr, logger)
		}

		client, err := buildLLMClient(config, collector)
		if err != nil {
			return err
		}

		sessions := func(ctx context.Context) (ports.ToolSession, error) {
			return mcpclient.Dial(ctx, config.Server.Descriptor())
		}

		var runnerOpts []application.RunnerOption
		if collector != nil {
			runnerOpts = append(runnerOpts, application.WithRunnerMetrics(collector))
		}
		runner := application.NewRunner(config, client, sessions, logger, runnerOpts...)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		suite, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		if err := writeReport(config, suite); err != nil {
			return err
		}
		if !suite.AllGreen() {
			return fmt.Errorf("%d of %d cases did not pass", suite.Failed+suite.Errored, suite.Total)
		}
		return nil
	},
}

// buildLLMClient assembles the provider client with the standard
// middleware chain: tracing outermost, then rate limiting, retries, and
// metrics closest to the wire so retried attempts are each recorded.
func buildLLMClient(config *application.Config, collector ports.MetricsCollector) (ports.LLMClient, error) {
	chain := []llm.Middleware{llm.TracingMiddleware()}
	if flagRPS > 0 {
		chain = append(chain, llm.RateLimiterMiddleware(flagRPS, 1))
	}
	chain = append(chain, llm.RetryMiddleware(llm.DefaultRetryConfig))
	if collector != nil {
		chain = append(chain, llm.MetricsMiddleware(collector))
	}

	registry := llm.NewRegistry(llm.RegistryConfig{
		DefaultTimeout:    config.CaseTimeout(),
		DefaultMiddleware: chain,
	})
	return registry.GetClientWithKey(config.Model.Spec(), config.Model.APIKey)
}

func writeReport(config *application.Config, suite domain.SuiteResult) error {
	var out io.Writer = os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch flagFormat {
	case "table":
		expected := make(map[string][]string, len(config.Evaluations))
		for _, c := range config.Evaluations {
			expected[c.Name] = c.AllExpectedTools()
		}
		return report.TableWriter{ExpectedTools: expected}.Write(out, suite)
	case "json":
		return report.JSONWriter{}.Write(out, suite)
	case "junit":
		return report.JUnitWriter{}.Write(out, suite)
	default:
		return fmt.Errorf("unknown format %q (want table, json, or junit)", flagFormat)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
	}
}

var templateCmd = &cobra.Command{
	Use:   "template [file]",
	Short: "Write a starter suite configuration",
	Long: `Print a commented example configuration, or write it to the given
file when a path is provided.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Print(configTemplate)
			return nil
		}
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("refusing to overwrite existing file %s", args[0])
		}
		if err := os.WriteFile(args[0], []byte(configTemplate), 0o644); err != nil {
			return fmt.Errorf("failed to write template: %w", err)
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	},
}

const configTemplate = `# mcpevals suite configuration
model:
  provider: anthropic            # openai, anthropic, or google
  name: claude-sonnet-4-20250514

server:
  # Local server over stdio:
  command: ["python", "server.py"]
  # env:
  #   DEBUG: "true"
  # Or a remote server over streamable HTTP:
  # url: ${MCP_SERVER_URL}
  # headers:
  #   Authorization: ${MCP_API_KEY}

timeout: 60          # per-case seconds; cases may override
parallel: false
# max_concurrency: 4
# max_tool_calls: 10
# tool_error_policy: continue    # or abort

evaluations:
  - name: basic_addition
    description: Server adds two numbers
    prompt: What is 15 + 27?
    expected_tools: [add]
    expected_result: The answer should be 42.
    threshold: 3.5

  - name: multi_step
    description: Multi-turn conversation with follow-up
    turns:
      - role: user
        content: Add 10 and 5.
        expected_tools: [add]
      - role: user
        content: Now multiply that by 2.
        expected_tools: [multiply]
    expected_result: Final answer should be 30.
`
