package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ppiankov/shotspectre/internal/analyzer"
	"github.com/ppiankov/shotspectre/internal/batch"
	"github.com/ppiankov/shotspectre/internal/config"
	"github.com/ppiankov/shotspectre/internal/report"
	"github.com/ppiankov/shotspectre/internal/screenshot"
	"github.com/ppiankov/shotspectre/internal/storage"
	"github.com/ppiankov/shotspectre/internal/vision"
)

const (
	defaultFormat  = "json"
	defaultTimeout = 30 * time.Minute
)

var analyzeFlags struct {
	apiKey         string
	baseURL        string
	model          string
	workers        int
	format         string
	outputFile     string
	timeout        time.Duration
	requestTimeout time.Duration
	noProgress     bool
	uploadBucket   string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze DIR",
	Short: "Analyze a directory of website screenshots",
	Long: `Send every screenshot in DIR (.png, .jpg, .jpeg, .webp; not recursive) to a
vision-capable chat model and report the detected features per file.

Failed screenshots are reported in place and do not abort the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.apiKey, "api-key", "", "OpenAI API key (default: $OPENAI_API_KEY)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.baseURL, "base-url", "", "OpenAI-compatible API base URL (default: $OPENAI_BASE_URL or api.openai.com)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.model, "model", vision.DefaultModel, "Vision model to use")
	analyzeCmd.Flags().IntVar(&analyzeFlags.workers, "workers", batch.DefaultWorkers, "Number of screenshots analyzed concurrently")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.format, "format", "f", defaultFormat, "Output format: json, table, sarif, envelope")
	analyzeCmd.Flags().StringVarP(&analyzeFlags.outputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().DurationVar(&analyzeFlags.timeout, "timeout", defaultTimeout, "Run timeout")
	analyzeCmd.Flags().DurationVar(&analyzeFlags.requestTimeout, "request-timeout", 0, "Timeout per backend request (0: none)")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.noProgress, "no-progress", false, "Disable progress output")
	analyzeCmd.Flags().StringVar(&analyzeFlags.uploadBucket, "upload-bucket", "", "Upload the report envelope to this S3-compatible bucket")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir := args[0]

	// Load config and apply defaults
	cfg, err := config.Load(".")
	if err != nil {
		slog.Warn("Failed to load config file", "error", err)
	}
	applyAnalyzeConfigDefaults(cfg)

	if err := validateAnalyzeFlags(); err != nil {
		return err
	}
	if err := checkOutputPath(analyzeFlags.outputFile); err != nil {
		return err
	}
	apiKey := resolveAPIKey(analyzeFlags.apiKey)
	if apiKey == "" {
		return enhanceError("initialize backend client", &screenshot.ConfigurationError{
			Option: "api key",
			Reason: "not set",
		})
	}

	baseCtx := cmd.Context()
	ctx := baseCtx
	if analyzeFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(baseCtx, analyzeFlags.timeout)
		defer cancel()
	}

	exts := screenshot.DefaultExtensions
	if len(cfg.Extensions) > 0 {
		exts = cfg.Extensions
	}
	files, err := screenshot.Discover(dir, exts)
	if err != nil {
		return enhanceError("discover screenshots", err)
	}
	if len(files) == 0 {
		slog.Warn("No supported image files found", "dir", dir)
	} else {
		slog.Info("Found images to analyze", "dir", dir, "count", len(files), "model", analyzeFlags.model, "workers", analyzeFlags.workers)
	}

	client := vision.NewClient(apiKey, resolveBaseURL(analyzeFlags.baseURL))
	runner := &batch.Runner{
		Analyzer: vision.NewAnalyzer(client, analyzeFlags.model, analyzeFlags.requestTimeout),
		Workers:  analyzeFlags.workers,
	}
	if !analyzeFlags.noProgress {
		stderr := cmd.ErrOrStderr()
		runner.Progress = func(p screenshot.Progress) {
			fmt.Fprintln(stderr, p.String())
		}
	}

	rs, err := runner.Run(ctx, files)
	if err != nil {
		return enhanceError("analyze screenshots", err)
	}
	if ctx.Err() != nil {
		slog.Warn("Run interrupted; unfinished screenshots are reported as canceled", "error", ctx.Err())
	}

	summary := analyzer.Summarize(rs, analyzeFlags.model)
	warnIfAllFailed(rs, summary)

	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	data := report.Data{
		Tool:      "shotspectre",
		Version:   version,
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Target: report.Target{
			Directory: absDir,
			DirHash:   computeTargetHash(absDir, files),
		},
		Config: report.ReportConfig{
			Model:   analyzeFlags.model,
			Workers: analyzeFlags.workers,
		},
		Results: rs,
		Summary: summary,
	}

	if err := writeReports(cmd.OutOrStdout(), data); err != nil {
		return err
	}

	if analyzeFlags.uploadBucket != "" {
		// The run deadline may already have passed; the upload gets its own.
		loc, err := uploadReport(baseCtx, cfg.Upload, analyzeFlags.uploadBucket, data)
		if err != nil {
			return enhanceError("upload report", err)
		}
		slog.Info("Uploaded report", "location", loc)
	}
	return nil
}

func applyAnalyzeConfigDefaults(cfg config.Config) {
	if analyzeFlags.model == vision.DefaultModel && cfg.Model != "" {
		analyzeFlags.model = cfg.Model
	}
	if analyzeFlags.workers == batch.DefaultWorkers && cfg.Workers != 0 {
		analyzeFlags.workers = cfg.Workers
	}
	if analyzeFlags.format == defaultFormat && cfg.Format != "" {
		analyzeFlags.format = cfg.Format
	}
	if analyzeFlags.timeout == defaultTimeout && cfg.TimeoutDuration() > 0 {
		analyzeFlags.timeout = cfg.TimeoutDuration()
	}
	if analyzeFlags.requestTimeout == 0 && cfg.RequestTimeoutDuration() > 0 {
		analyzeFlags.requestTimeout = cfg.RequestTimeoutDuration()
	}
	if analyzeFlags.baseURL == "" && cfg.BaseURL != "" {
		analyzeFlags.baseURL = cfg.BaseURL
	}
	if analyzeFlags.uploadBucket == "" && cfg.Upload.Bucket != "" {
		analyzeFlags.uploadBucket = cfg.Upload.Bucket
	}
}

func validateAnalyzeFlags() error {
	if analyzeFlags.workers < 1 {
		return &screenshot.ConfigurationError{
			Option: "workers",
			Reason: fmt.Sprintf("must be at least 1, got %d", analyzeFlags.workers),
		}
	}
	if _, err := selectReporter(analyzeFlags.format, io.Discard); err != nil {
		return err
	}
	return nil
}

func resolveAPIKey(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("OPENAI_API_KEY")
}

// resolveBaseURL prefers the flag or config value, then $OPENAI_BASE_URL.
func resolveBaseURL(value string) string {
	if value != "" {
		return value
	}
	return os.Getenv("OPENAI_BASE_URL")
}

func selectReporter(format string, w io.Writer) (report.Reporter, error) {
	switch format {
	case "json":
		return &report.JSONReporter{Writer: w}, nil
	case "table":
		return &report.TableReporter{Writer: w}, nil
	case "sarif":
		return &report.SARIFReporter{Writer: w}, nil
	case "envelope":
		return &report.EnvelopeReporter{Writer: w}, nil
	default:
		return nil, &screenshot.ConfigurationError{
			Option: "format",
			Reason: fmt.Sprintf("unsupported format %q (use json, table, sarif, or envelope)", format),
		}
	}
}

// writeReports renders the report to stdout or the output file. A table run
// with an output file prints the table and writes the JSON results to the file.
func writeReports(stdout io.Writer, data report.Data) error {
	format := analyzeFlags.format
	if format == "table" && analyzeFlags.outputFile != "" {
		if err := (&report.TableReporter{Writer: stdout}).Generate(data); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
		format = "json"
	}

	if analyzeFlags.outputFile == "" {
		reporter, err := selectReporter(format, stdout)
		if err != nil {
			return err
		}
		return reporter.Generate(data)
	}

	f, err := os.Create(analyzeFlags.outputFile)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	reporter, err := selectReporter(format, f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := reporter.Generate(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	slog.Info("Report written", "path", analyzeFlags.outputFile, "format", format)
	return nil
}

// checkOutputPath fails early when the output file cannot be created.
// An existing file is left untouched and a file created by the check is
// removed again.
func checkOutputPath(path string) error {
	if path == "" {
		return nil
	}
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	_ = f.Close()
	if errors.Is(statErr, fs.ErrNotExist) {
		_ = os.Remove(path)
	}
	return nil
}

func uploadReport(ctx context.Context, cfg config.Upload, bucket string, data report.Data) (string, error) {
	var buf bytes.Buffer
	if err := (&report.EnvelopeReporter{Writer: &buf}).Generate(data); err != nil {
		return "", err
	}

	api, err := storage.NewClient(storage.Options{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: firstNonEmpty(cfg.AccessKey, os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("AWS_ACCESS_KEY_ID")),
		SecretKey: firstNonEmpty(cfg.SecretKey, os.Getenv("MINIO_SECRET_KEY"), os.Getenv("AWS_SECRET_ACCESS_KEY")),
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return "", err
	}
	return storage.NewUploader(api, bucket, cfg.Region, cfg.Prefix).Upload(ctx, data.RunID, buf.Bytes())
}

// warnIfAllFailed logs a hint when no screenshot could be analyzed.
func warnIfAllFailed(rs *screenshot.ResultSet, summary analyzer.Summary) {
	if summary.TotalImages == 0 || summary.Succeeded > 0 {
		return
	}
	var first string
	rs.Each(func(_ string, o screenshot.Outcome) {
		if first == "" {
			first = o.Message()
		}
	})
	attrs := []any{"failed", summary.Failed, "first_error", first}
	if hint := errorHint(first); hint != "" {
		attrs = append(attrs, "hint", hint)
	}
	slog.Warn("All screenshots failed to analyze", attrs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
