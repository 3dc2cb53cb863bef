package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/pgadvise/pgadvise/internal/advisor"
	"github.com/pgadvise/pgadvise/internal/config"
	"github.com/pgadvise/pgadvise/internal/diff"
	"github.com/pgadvise/pgadvise/internal/model"
	"github.com/pgadvise/pgadvise/internal/render/html"
	"github.com/pgadvise/pgadvise/internal/render/tui"
	"github.com/pgadvise/pgadvise/internal/runner"
	"github.com/pgadvise/pgadvise/internal/server"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "serve":
		err = serveCommand(args)
	case "analyze":
		err = analyzeCommand(args)
	case "run":
		err = runCommand(args)
	case "diff":
		err = diffCommand(args)
	case "version":
		err = versionCommand(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		_, _ = fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`pgadvise - PostgreSQL query plan advisor

Usage:
  pgadvise <command> [options]

Commands:
  serve    Start the web UI and JSON API
  analyze  Analyze a pasted plan (and optionally its SQL) from files or stdin
  run      Execute EXPLAIN for a query against a database and analyze the plan
  diff     Compare the findings of two plans
  version  Show CLI version information

Use "pgadvise <command> -h" for command-specific help.`)
}

func applyConfigPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("PGADVISE_CONFIG"))
	}
	return config.Apply(path)
}

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: pgadvise serve [--addr :8080]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		addr       = fs.String("addr", "", "Listen address (defaults from config)")
		configPath = fs.String("config", "", "Path to configuration file (JSON or YAML). Falls back to $PGADVISE_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}

	cfg := config.Active().Server
	if *addr != "" {
		cfg.Addr = *addr
	}

	srv := server.NewHTTPServer(cfg)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: pgadvise analyze --plan plan.txt [--sql query.sql] [--mode tui|html]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		planPath   = fs.String("plan", "", "Path to the textual plan; \"-\" reads stdin")
		sqlPath    = fs.String("sql", "", "Path to the SQL file that produced the plan")
		inlineSQL  = fs.String("query", "", "Inline SQL string that produced the plan")
		mode       = fs.String("mode", "tui", "Output mode: tui or html")
		outPath    = fs.String("out", "", "Output path (stdout if omitted)")
		title      = fs.String("title", "pgadvise report", "Report title (HTML)")
		color      = fs.Bool("color", true, "Enable ANSI colors for TUI output")
		details    = fs.Bool("details", true, "Show finding details (TUI)")
		configPath = fs.String("config", "", "Path to configuration file (JSON or YAML). Falls back to $PGADVISE_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}
	if *planPath == "" {
		return fmt.Errorf("--plan is required")
	}
	if *sqlPath != "" && *inlineSQL != "" {
		return fmt.Errorf("specify only one of --sql or --query")
	}

	planText, err := readInput(*planPath)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}

	sqlText := *inlineSQL
	if *sqlPath != "" {
		sqlText, err = readInput(*sqlPath)
		if err != nil {
			return fmt.Errorf("read sql file: %w", err)
		}
	}

	report := advisor.Analyze(planText, sqlText)
	return renderReport(report, renderOptions{
		mode:     *mode,
		outPath:  *outPath,
		title:    *title,
		color:    *color,
		details:  *details,
		planText: planText,
		sqlText:  sqlText,
	})
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: pgadvise run --url <url> (--sql file.sql | --query \"SELECT ...\") [--mode tui|html]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	envURL := os.Getenv("DATABASE_URL")

	var (
		urlFlag     = fs.String("url", envURL, "PostgreSQL connection string; defaults to $DATABASE_URL")
		sqlPath     = fs.String("sql", "", "Path to the SQL file to EXPLAIN")
		inlineSQL   = fs.String("query", "", "Inline SQL string to EXPLAIN")
		withAnalyze = fs.Bool("analyze", false, "Use EXPLAIN ANALYZE (executes the statement)")
		mode        = fs.String("mode", "tui", "Output mode: tui or html")
		outPath     = fs.String("out", "", "Output path (stdout if omitted)")
		title       = fs.String("title", "pgadvise report", "Report title (HTML)")
		color       = fs.Bool("color", true, "Enable ANSI colors for TUI output")
		details     = fs.Bool("details", true, "Show finding details (TUI)")
		timeout     = fs.Duration("timeout", 0, "Optional execution timeout, e.g. 45s")
		configPath  = fs.String("config", "", "Path to configuration file (JSON or YAML). Falls back to $PGADVISE_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}

	connection := strings.TrimSpace(*urlFlag)
	if connection == "" {
		return fmt.Errorf("--url is required or set $DATABASE_URL")
	}
	if *sqlPath != "" && *inlineSQL != "" {
		return fmt.Errorf("specify only one of --sql or --query")
	}

	var sqlText string
	if *sqlPath != "" {
		data, err := os.ReadFile(*sqlPath)
		if err != nil {
			return fmt.Errorf("read sql file: %w", err)
		}
		sqlText = string(data)
	} else if *inlineSQL != "" {
		sqlText = *inlineSQL
	} else {
		return fmt.Errorf("--sql or --query is required")
	}

	ctx := context.Background()
	planText, err := runner.Run(ctx, connection, sqlText, runner.Options{
		Timeout: *timeout,
		Analyze: *withAnalyze,
	})
	if err != nil {
		return err
	}

	report := advisor.Analyze(planText, sqlText)
	return renderReport(report, renderOptions{
		mode:     *mode,
		outPath:  *outPath,
		title:    *title,
		color:    *color,
		details:  *details,
		planText: planText,
		sqlText:  sqlText,
	})
}

func diffCommand(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: pgadvise diff --base base.txt --target target.txt [--format md]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		basePath   = fs.String("base", "", "Path to the baseline textual plan")
		targetPath = fs.String("target", "", "Path to the target textual plan")
		sqlPath    = fs.String("sql", "", "Optional SQL file shared by both plans")
		format     = fs.String("format", "md", "Output format (md or json)")
		output     = fs.String("out", "", "Output path (stdout if omitted)")
		configPath = fs.String("config", "", "Path to configuration file (JSON or YAML). Falls back to $PGADVISE_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}
	if *basePath == "" || *targetPath == "" {
		return fmt.Errorf("--base and --target are required")
	}

	sqlText := ""
	if *sqlPath != "" {
		data, err := os.ReadFile(*sqlPath)
		if err != nil {
			return fmt.Errorf("read sql file: %w", err)
		}
		sqlText = string(data)
	}

	baseText, err := readInput(*basePath)
	if err != nil {
		return fmt.Errorf("read base: %w", err)
	}
	targetText, err := readInput(*targetPath)
	if err != nil {
		return fmt.Errorf("read target: %w", err)
	}

	report, err := diff.Compare(advisor.Analyze(baseText, sqlText), advisor.Analyze(targetText, sqlText))
	if err != nil {
		return err
	}

	switch *format {
	case "md", "markdown":
		content := report.Markdown()
		if *output == "" {
			fmt.Print(content)
			return nil
		}
		return os.WriteFile(*output, []byte(content), 0o644)
	case "json":
		payload, err := report.JSON()
		if err != nil {
			return err
		}
		if *output == "" {
			_, _ = os.Stdout.Write(payload)
			_, _ = os.Stdout.WriteString("\n")
			return nil
		}
		return os.WriteFile(*output, payload, 0o644)
	default:
		return fmt.Errorf("unsupported format %q", *format)
	}
}

func versionCommand(args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	short := fs.Bool("short", false, "Print only the version number")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}

	v, meta := resolveVersion()
	if *short {
		fmt.Println(v)
		return nil
	}
	if meta != "" {
		fmt.Printf("pgadvise %s (%s)\n", v, meta)
	} else {
		fmt.Printf("pgadvise %s\n", v)
	}
	return nil
}

func resolveVersion() (string, string) {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}

	var commit, buildTime string
	var dirty bool
	if info, ok := debug.ReadBuildInfo(); ok {
		if (v == "dev" || v == "(devel)") &&
			info.Main.Version != "" &&
			info.Main.Version != "(devel)" &&
			!strings.HasPrefix(info.Main.Version, "v0.0.0-") {
			v = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				buildTime = setting.Value
			case "vcs.modified":
				dirty = setting.Value == "true"
			}
		}
	}

	var details []string
	if commit != "" {
		short := commit
		if len(short) > 12 {
			short = short[:12]
		}
		if dirty {
			short += "*"
			dirty = false
		}
		details = append(details, fmt.Sprintf("commit %s", short))
	}
	if buildTime != "" {
		details = append(details, fmt.Sprintf("built %s", buildTime))
	}
	if dirty {
		details = append(details, "modified workspace")
	}

	return v, strings.Join(details, ", ")
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type renderOptions struct {
	mode     string
	outPath  string
	title    string
	color    bool
	details  bool
	planText string
	sqlText  string
}

func renderReport(report *model.Report, opts renderOptions) error {
	target := io.Writer(os.Stdout)
	if opts.outPath != "" {
		file, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()
		target = file
	}

	switch opts.mode {
	case "tui":
		return tui.Render(target, report, tui.Options{
			EnableColor: opts.color,
			ShowDetails: opts.details,
		})
	case "html":
		return html.Render(target, report, html.Options{
			Title:         opts.title,
			IncludeStyles: true,
			Analyzed:      true,
			PlanText:      opts.planText,
			SQLText:       opts.sqlText,
		})
	default:
		return fmt.Errorf("unknown mode %q (expected tui or html)", opts.mode)
	}
}
