package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	opts := Options{}

	flag.StringVar(&opts.ProtoMessage, "proto_message", "", "Fully-qualified name of the root message type to parse the source file as")
	flag.Var(&opts.Substitution, "sub", "Path substitution \"virtual=real\", applied in the order given (repeatable)")
	flag.Var(&opts.SchemaFiles, "schema", "A .proto dependency, shared across all units in -batch or -watch-interval mode (repeatable)")
	flag.StringVar(&opts.SinkBackend, "sink", "memory", "Graph sink backend: memory, json or postgres")
	flag.StringVar(&opts.JSONOutPath, "json-out", "", "Output path for sink=json")
	flag.StringVar(&opts.PostgresDSN, "postgres-dsn", "", "Connection string for sink=postgres")
	flag.StringVar(&opts.S3.Bucket, "s3-bucket", "", "S3 bucket to load required inputs from (local filesystem used if empty)")
	flag.StringVar(&opts.S3.Region, "s3-region", "", "S3 region")
	flag.StringVar(&opts.S3.AccessKey, "s3-access-key", "", "S3 static access key (default credential chain used if empty)")
	flag.StringVar(&opts.S3.SecretKey, "s3-secret-key", "", "S3 static secret key")
	flag.StringVar(&opts.S3.BaseEndpoint, "s3-endpoint", "", "S3-compatible endpoint override, e.g. for MinIO")
	flag.BoolVar(&opts.S3.UsePathStyle, "s3-path-style", false, "Use path-style S3 addressing")
	flag.StringVar(&opts.S3.KeyPrefix, "s3-key-prefix", "", "Key prefix prepended to every required input path")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	flag.BoolVar(&opts.Verbose, "v", false, "Shorthand for -log-level debug")
	flag.BoolVar(&opts.Batch, "batch", false, "Analyze every positional argument as an independent source file against -schema")
	flag.StringVar(&opts.WatchInterval, "watch-interval", "", "Cron schedule for repeated re-indexing of -watch-dir (enables daemon mode)")
	flag.StringVar(&opts.WatchDir, "watch-dir", "", "Directory to rediscover *.textproto files in under -watch-interval")
	flag.StringVar(&opts.ConfigFile, "config", "", "Path to .protoxref.toml config file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: protoxref [OPTIONS] <SOURCE.textproto> [SCHEMA.proto...]\n\n")
		fmt.Fprintf(os.Stderr, "Cross-reference a textproto message against its schema.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	configPath := opts.ConfigFile
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load config %s: %v\n", configPath, err)
		} else {
			MergeConfig(&opts, cfg, setFlags)
		}
	}

	logger := logrus.New()
	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	if parsed, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	sink, flushSink, err := buildSink(opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	metrics := NewMetrics(prometheus.NewRegistry())
	sink = Instrument(sink, metrics)

	loader, err := buildLoader(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	var exitCode int
	switch {
	case opts.WatchInterval != "":
		exitCode = runWatch(opts, loader, sink, logger, metrics)
	case opts.Batch:
		exitCode = runBatch(args, opts, loader, sink, logger, metrics)
	default:
		exitCode = runOne(args, opts, loader, sink, logger, metrics)
	}

	if flushSink != nil {
		if err := flushSink(); err != nil {
			fmt.Fprintf(os.Stderr, "error: flushing sink: %v\n", err)
			if exitCode == 0 {
				exitCode = 2
			}
		}
	}

	os.Exit(exitCode)
}

// runOne analyzes a single compilation unit: args[0] is the textproto
// source file, the remainder are its schema (.proto) dependencies.
func runOne(args []string, opts Options, loader Loader, sink Sink, logger *logrus.Logger, metrics *Metrics) int {
	unit, err := buildUnit(args[0], args[1:], opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	return analyzeUnit(context.Background(), unit, loader, sink, logger, metrics)
}

// runBatch analyzes many source files, each against the shared -schema
// dependency list, in parallel. Per spec.md §5, independent compilation
// units may be analyzed concurrently; errgroup starts one goroutine per
// source file (no concurrency limit is set) and reports the first error.
func runBatch(args []string, opts Options, loader Loader, sink Sink, logger *logrus.Logger, metrics *Metrics) int {
	if len(opts.SchemaFiles) == 0 {
		fmt.Fprintln(os.Stderr, "error: -batch requires at least one -schema argument")
		return 2
	}
	g, ctx := errgroup.WithContext(context.Background())
	for _, sourceFile := range args {
		sourceFile := sourceFile
		g.Go(func() error {
			unit, err := buildUnit(sourceFile, opts.SchemaFiles, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", sourceFile, err)
			}
			if status := analyzeUnit(ctx, unit, loader, sink, logger, metrics); status != 0 {
				return fmt.Errorf("%s: analysis failed", sourceFile)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	return 0
}

// runWatch re-discovers and re-analyzes every textproto file under
// opts.WatchDir on the given cron schedule, running until interrupted.
func runWatch(opts Options, loader Loader, sink Sink, logger *logrus.Logger, metrics *Metrics) int {
	if opts.WatchDir == "" || len(opts.SchemaFiles) == 0 {
		fmt.Fprintln(os.Stderr, "error: -watch-interval requires -watch-dir and at least one -schema")
		return 2
	}
	scheduler, err := NewWatchScheduler(opts.WatchInterval, logger, func(ctx context.Context, runID string) error {
		files, err := discoverTextprotoFiles(opts.WatchDir)
		if err != nil {
			return err
		}
		runLogger := logger.WithField("run_id", runID)
		for _, sourceFile := range files {
			unit, err := buildUnit(sourceFile, opts.SchemaFiles, opts)
			if err != nil {
				runLogger.WithError(err).Warn("skipping file")
				continue
			}
			analyzeUnit(ctx, unit, loader, sink, logger, metrics)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	scheduler.Start()
	logger.WithField("schedule", opts.WatchInterval).Info("watch scheduler started, press ctrl-c to stop")
	select {} // run until the process is killed
}

// analyzeUnit loads a unit's files and runs the Driver over them,
// mapping the returned error onto process exit codes: 3 for
// precondition/not-found/parse failures the caller can fix by changing
// its input, 4 for every other error (internal invariant violations,
// schema compile failures). A failure to load the unit's files is 2.
func analyzeUnit(ctx context.Context, unit *CompilationUnit, loader Loader, sink Sink, logger *logrus.Logger, metrics *Metrics) int {
	files, err := loader.Load(ctx, unit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", unit.SourceFile, err)
		return 2
	}

	runID := uuid.NewString()
	timer := prometheus.NewTimer(metrics.AnalysisDuration)
	err = Analyze(ctx, unit, files, sink, AnalyzeOptions{Logger: logger})
	timer.ObserveDuration()
	metrics.UnitsAnalyzed.Inc()

	if err != nil {
		logger.WithField("run_id", runID).WithError(err).Error("analysis failed")
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", unit.SourceFile, err)

		var precondition *PreconditionError
		var notFound *NotFoundError
		var parseFailure *ParseFailureError
		if errors.As(err, &precondition) || errors.As(err, &notFound) || errors.As(err, &parseFailure) {
			return 3
		}
		return 4
	}
	return 0
}

// buildUnit assembles a CompilationUnit from a source textproto file
// and its schema dependencies, following the proto_message= and
// substitution argument grammar in spec.md §6.
func buildUnit(sourceFile string, schemaFiles []string, opts Options) (*CompilationUnit, error) {
	if opts.ProtoMessage == "" {
		return nil, &PreconditionError{Msg: "missing required -proto_message flag"}
	}

	unit := &CompilationUnit{SourceFile: sourceFile}
	unit.Argument = append(unit.Argument, rootMessageArgPrefix+opts.ProtoMessage)
	unit.Argument = append(unit.Argument, []string(opts.Substitution)...)

	unit.RequiredInput = append(unit.RequiredInput, RequiredInput{
		Path:     sourceFile,
		Identity: identityForPath(sourceFile),
	})
	for _, schemaFile := range schemaFiles {
		unit.RequiredInput = append(unit.RequiredInput, RequiredInput{
			Path:     schemaFile,
			Identity: identityForPath(schemaFile),
		})
	}
	return unit, nil
}

// identityForPath synthesizes the graph Identity the CLI assigns to a
// file purely by its path, since identity assignment upstream of the
// Driver is out of this program's scope per spec.md; a real deployment
// would plug in its own corpus/root scheme here instead.
func identityForPath(path string) Identity {
	language := "textproto"
	if strings.HasSuffix(path, ".proto") {
		language = "protobuf"
	}
	return Identity{Signature: "file:" + path, Path: path, Language: language}
}

func buildSink(opts Options, logger *logrus.Logger) (Sink, func() error, error) {
	switch orDefault(opts.SinkBackend, "memory") {
	case "memory":
		return NewMemorySink(), nil, nil
	case "json":
		if opts.JSONOutPath == "" {
			return nil, nil, &PreconditionError{Msg: "sink=json requires -json-out"}
		}
		sink := NewJSONSink(opts.JSONOutPath)
		return sink, sink.Flush, nil
	case "postgres":
		if opts.PostgresDSN == "" {
			return nil, nil, &PreconditionError{Msg: "sink=postgres requires -postgres-dsn"}
		}
		db, err := sql.Open("postgres", opts.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres connection: %w", err)
		}
		sink, err := NewPostgresSink(db, logger)
		if err != nil {
			return nil, nil, err
		}
		return sink, nil, nil
	default:
		return nil, nil, &PreconditionError{Msg: fmt.Sprintf("unknown sink backend %q", opts.SinkBackend)}
	}
}

func buildLoader(ctx context.Context, opts Options) (Loader, error) {
	if opts.S3.Bucket == "" {
		return LocalLoader{}, nil
	}
	return NewS3Loader(ctx, opts.S3)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// multiFlag implements flag.Value for repeatable string flags.
type multiFlag []string

func (f *multiFlag) String() string {
	return strings.Join(*f, ", ")
}

func (f *multiFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}
