package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"github.com/robotomize/go-httpspec/internal/allure"
	"github.com/robotomize/go-httpspec/internal/config"
	"github.com/robotomize/go-httpspec/internal/executor"
	"github.com/robotomize/go-httpspec/internal/exporter"
	"github.com/robotomize/go-httpspec/internal/logging"
	"github.com/robotomize/go-httpspec/internal/report"
	"github.com/robotomize/go-httpspec/internal/runner"
	"github.com/robotomize/go-httpspec/internal/slice"
	"github.com/robotomize/go-httpspec/internal/spec"
	"github.com/robotomize/go-httpspec/internal/validate"
)

var errCasesFailed = errors.New("one or more cases failed")

var (
	verboseFlag           bool
	configFlag            string
	protocolFlag          string
	failFastFlag          bool
	timeoutFlag           time.Duration
	filtersFlag           runner.RegexFilters
	allureDirFlag         string
	allureSuiteFlag       string
	allureTagsFlag        string
	allureLayersFlag      string
	allureLabelsFlag      string
	allureAttachmentForce bool
	xlsxFlag              string
	noColorFlag           bool
	curlFlag              bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "verbose")
	flags.StringVarP(
		&configFlag,
		"config",
		"c",
		config.DefaultFile,
		"path to the run configuration: -c <config-path>",
	)
	flags.StringVarP(
		&protocolFlag,
		"protocol",
		"p",
		string(executor.ProtocolHTTP1),
		"wire protocol for requests without a version: http1 or h2c",
	)
	flags.BoolVarP(&failFastFlag, "fail-fast", "f", false, "stop at the first failed case")
	flags.DurationVarP(&timeoutFlag, "timeout", "t", 0, "deadline for the whole run: -t 30s")
	flags.VarP(&filtersFlag.MustMatch, "run", "r", "run only cases whose name matches the regex")
	flags.VarP(&filtersFlag.MustNotMatch, "skip", "", "skip cases whose name matches the regex")
	flags.StringVarP(
		&allureDirFlag,
		"output",
		"o",
		"",
		"output path to allure reports: -o <report-path>",
	)
	flags.StringVarP(
		&allureSuiteFlag,
		"allure-suite",
		"",
		"",
		"add allure suite to all tests: --allure-suite MyFirstSuite",
	)
	flags.StringVarP(
		&allureTagsFlag,
		"allure-tags",
		"",
		"",
		"add allure tags to all tests: --allure-tags SMOKE,API",
	)
	flags.StringVarP(
		&allureLayersFlag,
		"allure-layers",
		"",
		"",
		"add allure layers to all tests: --allure-layers API",
	)
	flags.StringVarP(
		&allureLabelsFlag,
		"allure-labels",
		"",
		"",
		"add allure custom labels to all tests: --allure-labels key:value,key:value1,key1:value",
	)
	flags.BoolVarP(
		&allureAttachmentForce,
		"attachment-force",
		"a",
		false,
		"create attachments for passed tests",
	)
	flags.StringVarP(&xlsxFlag, "xlsx", "x", "", "append the results as a sheet to an xlsx workbook: -x report.xlsx")
	flags.BoolVarP(&noColorFlag, "no-color", "", false, "disable colored output")
	flags.BoolVarP(&curlFlag, "curl", "", false, "print a curl command for every failed case")
}

var rootCmd = &cobra.Command{
	Use:          "httpspecctl [file.http]",
	Long:         "Run the request cases of a .http file and check the responses against json fixtures",
	SilenceUsage: true,
	Args:         cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFlag)
		if err != nil {
			return fmt.Errorf("config.Load: %w", err)
		}

		mergeFlags(cmd, cfg)

		if len(args) > 0 {
			cfg.Spec = args[0]
		}

		return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, processAllureLabels())
	},
}

// mergeFlags lets explicitly set flags override the config file.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("protocol") {
		cfg.Protocol = protocolFlag
	}

	if flags.Changed("fail-fast") {
		cfg.FailFast = failFastFlag
	}

	if flags.Changed("timeout") {
		cfg.Timeout = timeoutFlag
	}

	if flags.Changed("output") {
		cfg.AllureDir = allureDirFlag
	}

	if flags.Changed("xlsx") {
		cfg.XLSX = xlsxFlag
	}

	if flags.Changed("run") {
		cfg.Run = filtersFlag.MustMatch.Patterns()
	}

	if flags.Changed("skip") {
		cfg.Skip = filtersFlag.MustNotMatch.Patterns()
	}
}

func run(ctx context.Context, out, errOut io.Writer, cfg *config.Config, labels []allure.Label) error {
	if cfg.Spec == "" {
		return errors.New("no .http file given: pass it as an argument or set spec in the config")
	}

	proto, err := executor.ParseProtocol(cfg.Protocol)
	if err != nil {
		return err
	}

	var filters runner.RegexFilters
	for _, p := range cfg.Run {
		if err = filters.MustMatch.Set(p); err != nil {
			return fmt.Errorf("run filter %q: %w", p, err)
		}
	}

	for _, p := range cfg.Skip {
		if err = filters.MustNotMatch.Set(p); err != nil {
			return fmt.Errorf("skip filter %q: %w", p, err)
		}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	logger := logging.New(errOut, verboseFlag)

	cases, err := spec.ParseFile(ctx, cfg.Spec)
	if err != nil {
		return fmt.Errorf("spec.ParseFile: %w", err)
	}

	level.Debug(logger).Log("event", "spec parsed", "file", cfg.Spec, "cases", len(cases), "protocol", proto)

	runOpts := []runner.Option{runner.WithLogger(logger)}
	if cfg.FailFast {
		runOpts = append(runOpts, runner.WithFailFast())
	}

	if filters.IsDefined() {
		runOpts = append(runOpts, runner.WithFilter(filters.AsFilter))
	}

	exec := executor.New(executor.WithProtocol(proto), executor.WithLogger(logger))
	r := runner.New(exec, validate.New(), runOpts...)

	start := time.Now()
	rep, runErr := r.Run(ctx, cases)
	elapsed := time.Since(start)

	var caseErr *runner.CaseError
	if runErr != nil && !errors.As(runErr, &caseErr) {
		return fmt.Errorf("runner Run: %w", runErr)
	}

	rows := report.Rows(rep, runErr)

	var consoleOpts []report.ConsoleOption
	if noColorFlag {
		consoleOpts = append(consoleOpts, report.WithNoColor())
	}

	if curlFlag {
		consoleOpts = append(consoleOpts, report.WithCurl())
	}

	summary, err := report.NewConsole(out, consoleOpts...).Print(rows, elapsed)
	if err != nil {
		return err
	}

	if cfg.AllureDir != "" {
		if err = writeAllure(ctx, logger, errOut, cfg, labels, rep, runErr); err != nil {
			return err
		}
	}

	if cfg.XLSX != "" {
		sheet, err := report.WriteXLSX(cfg.XLSX, rows, elapsed, time.Now())
		if err != nil {
			return fmt.Errorf("report.WriteXLSX: %w", err)
		}

		level.Info(logger).Log("event", "xlsx written", "file", cfg.XLSX, "sheet", sheet)
	}

	if runErr != nil {
		return runErr
	}

	if !summary.OK() {
		return errCasesFailed
	}

	return nil
}

func writeAllure(
	ctx context.Context,
	logger log.Logger,
	errOut io.Writer,
	cfg *config.Config,
	extra []allure.Label,
	rep runner.Report,
	runErr error,
) error {
	labels := slice.Map(
		cfg.LabelPairs(), func(pair string) allure.Label {
			name, value, _ := strings.Cut(pair, ":")
			return allure.Label{Name: name, Value: value}
		},
	)
	labels = append(labels, extra...)

	opts := []exporter.Option{exporter.WithAllureLabels(labels...)}
	if allureAttachmentForce {
		opts = append(opts, exporter.WithForceAttachment())
	}

	allureReport := exporter.New(opts...).Export(rep, runErr)
	writerOpts := []exporter.WriterOption{exporter.WriteToDir(cfg.AllureDir)}
	if verboseFlag {
		writerOpts = append(writerOpts, exporter.WriteReportTo(errOut))
	}

	writer := exporter.NewWriter(writerOpts...)

	if err := writer.WriteReport(ctx, allureReport.Tests); err != nil {
		return fmt.Errorf("exporter.NewWriter WriteReport: %w", err)
	}

	if err := writer.WriteAttachments(ctx, allureReport.Attachments); err != nil {
		return fmt.Errorf("exporter.NewWriter WriteAttachments: %w", err)
	}

	level.Info(logger).Log(
		"event", "allure written", "dir", cfg.AllureDir,
		"tests", len(allureReport.Tests), "attachments", len(allureReport.Attachments),
	)

	return nil
}

func processAllureLabels() []allure.Label {
	var labels []allure.Label
	if len(allureSuiteFlag) > 0 {
		labels = append(
			labels, allure.Label{
				Name:  "suite",
				Value: strings.TrimSpace(allureSuiteFlag),
			},
		)
	}

	filterEmptyStrFn := func(v string) bool {
		return len(v) > 0
	}

	filterCustomLabelsStrFn := func(v string) bool {
		name, value, ok := strings.Cut(v, ":")
		return ok && len(name) > 0 && len(value) > 0
	}

	mapLabelsStrFn := func(t string) allure.Label {
		name, value, _ := strings.Cut(t, ":")

		return allure.Label{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		}
	}

	mapCustomLabelsFunc := func(name string) func(t string) allure.Label {
		return func(t string) allure.Label {
			return allure.Label{
				Name:  name,
				Value: strings.TrimSpace(t),
			}
		}
	}

	if len(allureTagsFlag) > 0 {
		labels = append(
			labels, slice.Map(
				slice.Filter(
					strings.Split(allureTagsFlag, ","), filterEmptyStrFn,
				), mapCustomLabelsFunc("tag"),
			)...,
		)
	}

	if len(allureLayersFlag) > 0 {
		labels = append(
			labels, slice.Map(
				slice.Filter(
					strings.Split(allureLayersFlag, ","), filterEmptyStrFn,
				), mapCustomLabelsFunc("layer"),
			)...,
		)
	}

	if len(allureLabelsFlag) > 0 {
		labels = append(
			labels, slice.Map(
				slice.Filter(
					slice.Filter(
						strings.Split(allureLabelsFlag, ","), filterEmptyStrFn,
					), filterCustomLabelsStrFn,
				), mapLabelsStrFn,
			)...,
		)
	}

	return labels
}
