package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/trackmove/internal/blob"
	"github.com/ALT-F4-LLC/trackmove/internal/config"
	"github.com/ALT-F4-LLC/trackmove/internal/db"
	"github.com/ALT-F4-LLC/trackmove/internal/jira"
	"github.com/ALT-F4-LLC/trackmove/internal/logging"
	"github.com/ALT-F4-LLC/trackmove/internal/output"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	dbKey     contextKey = "db"
	cfgKey    contextKey = "cfg"
	loggerKey contextKey = "logger"
)

// Command annotations read by the root pre-run hook.
const (
	// annotationRequires lists the configuration groups a command needs,
	// comma separated: source, target, blob.
	annotationRequires = "requires"
	// annotationCreateDB lets a command create the snapshot when missing.
	annotationCreateDB = "createDB"
)

// CmdError wraps an error with a machine-readable error code for structured output.
type CmdError struct {
	Err  error
	Code output.ErrorCode
}

func (e *CmdError) Error() string { return e.Err.Error() }

func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

var rootCmd = &cobra.Command{
	Use:     "trackmove",
	Short:   "Migrate issues between Jira Cloud sites through a local snapshot",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		cfg, err := config.Load(envFile)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		need, err := parseRequires(cmd.Annotations[annotationRequires])
		if err != nil {
			return err
		}
		if err := cfg.Validate(need); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		logger, closer, err := newLogger(cmd)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		if closer != nil {
			track(closer)
		}

		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)
		ctx = context.WithValue(ctx, loggerKey, logger)

		if _, create := cmd.Annotations[annotationCreateDB]; !create {
			exists, err := cfg.Exists()
			if err != nil {
				return cmdErr(fmt.Errorf("checking snapshot: %w", err), output.ErrGeneral)
			}
			if !exists {
				return cmdErr(
					fmt.Errorf("no snapshot found at %s, run 'trackmove pull' to create one", cfg.DBPath),
					output.ErrNotFound,
				)
			}
		}

		conn, err := db.OpenSnapshot(cfg.Dir, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open snapshot: %w", err)
		}
		track(conn)
		logger.Debug("snapshot opened", "path", cfg.DBPath)

		cmd.SetContext(context.WithValue(ctx, dbKey, conn))
		return nil
	},
}

// resources opened by the pre-run hook. Execute releases them whether or not
// the command succeeded; cobra skips post-run hooks after a RunE error.
var resources []io.Closer

func track(c io.Closer) {
	resources = append(resources, c)
}

// releaseResources closes tracked resources in reverse order of opening.
func releaseResources() error {
	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		if err := resources[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	resources = nil
	return errors.Join(errs...)
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to a rotated file instead of stderr")
	rootCmd.PersistentFlags().String("env-file", "", "Read configuration from this dotenv file (default ./.env if present)")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func parseRequires(s string) (config.Need, error) {
	var need config.Need
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "source":
			need |= config.NeedSource
		case "target":
			need |= config.NeedTarget
		case "blob":
			need |= config.NeedBlob
		default:
			return 0, fmt.Errorf("unknown configuration group %q", part)
		}
	}
	return need, nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, io.Closer, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	file, _ := cmd.Flags().GetString("log-file")
	return logging.New(logging.Options{Level: level, Format: format, File: file})
}

// writer is shared by the running command and Execute so warnings raised
// before a failure reach the error envelope.
var writer *output.Writer

func getWriter(cmd *cobra.Command) *output.Writer {
	if writer == nil {
		jsonMode, _ := cmd.Flags().GetBool("json")
		quietMode, _ := cmd.Flags().GetBool("quiet")
		writer = output.New(jsonMode, quietMode)
	}
	return writer
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getDB(cmd *cobra.Command) *sql.DB {
	conn, _ := cmd.Context().Value(dbKey).(*sql.DB)
	return conn
}

func getLogger(cmd *cobra.Command) *slog.Logger {
	logger, ok := cmd.Context().Value(loggerKey).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

func jiraClient(site config.Jira) (*jira.Client, error) {
	return jira.NewClient(site.Host, jira.NewBasicAuth(site.Email, site.APIToken), jira.DefaultTimeout)
}

func openBlobs(cmd *cobra.Command) (blob.Store, error) {
	store, err := blob.Open(cmd.Context(), getCfg(cmd).Blob)
	if err != nil {
		return nil, cmdErr(fmt.Errorf("opening object storage: %w", err), output.ErrGeneral)
	}
	return store, nil
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := releaseResources(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("closing resources: %w", cerr))
	}
	if err != nil {
		w := getWriter(rootCmd)

		var ce *CmdError
		if errors.As(err, &ce) {
			return w.Error(ce.Err, ce.Code)
		}
		return w.Error(err, output.ErrGeneral)
	}
	return output.ExitSuccess
}
