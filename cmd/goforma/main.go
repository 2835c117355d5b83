// Command goforma formats and validates JSON or YAML documents against model
// definitions.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	goforma "github.com/reoring/goforma"
	"github.com/reoring/goforma/i18n"
	"github.com/reoring/goforma/internal/config"
	"github.com/reoring/goforma/metrics"
	"github.com/reoring/goforma/modeldef"
	"github.com/reoring/goforma/registry"
)

// errInvalid signals a completed validation that found errors.
var errInvalid = errors.New("validation failed")

type app struct {
	// global flags
	configPath string
	verbose    bool
	lang       string
	scopes     []string
	modelsDir  string
	metricsOut string

	cfg     *config.Config
	logger  *zap.Logger
	engine  *goforma.Engine
	models  *registry.Registry
	promReg *prometheus.Registry
	defOpts modeldef.Options
	invalid bool // set by validate; reported after teardown
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "goforma",
		Short:         "Format and validate documents against goforma models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVar(&a.lang, "lang", "", "Message language: en or ja (env GOFORMA_LANG)")
	pf.StringSliceVar(&a.scopes, "scopes", nil, "Caller scopes (env GOFORMA_SCOPES)")
	pf.StringVar(&a.modelsDir, "models", "", "Directory of named models referenced as @name")
	pf.StringVar(&a.metricsOut, "metrics", "", "Write Prometheus metrics to this file after the run (- for stderr)")

	root.AddCommand(newFormatCmd(a), newValidateCmd(a), newSchemaCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("lang") {
		cfg.Lang = a.lang
	}
	if cmd.Flags().Changed("scopes") {
		cfg.Scopes = a.scopes
	}
	if cmd.Flags().Changed("models") {
		cfg.ModelsDir = a.modelsDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	i18n.SetLanguage(cfg.Lang)

	zc := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid logLevel: %w", err)
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if a.logger, err = zc.Build(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.promReg = prometheus.NewRegistry()
	obs, err := metrics.New(a.promReg)
	if err != nil {
		return err
	}

	a.models = registry.New()
	if cfg.ModelsDir != "" {
		if err := a.models.LoadDir(os.DirFS(cfg.ModelsDir), ".", a.defOpts); err != nil {
			return err
		}
		a.logger.Debug("models loaded", zap.String("dir", cfg.ModelsDir), zap.Strings("names", a.models.Names()))
	}

	a.engine = goforma.New(
		goforma.WithLogger(a.logger),
		goforma.WithObserver(obs),
		goforma.WithResolver(a.models),
		goforma.WithMaxDepth(cfg.MaxDepth),
	)
	return nil
}

func (a *app) teardown(cmd *cobra.Command) error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err := a.dumpMetrics(cmd.ErrOrStderr()); err != nil {
		return err
	}
	if a.invalid {
		return errInvalid
	}
	return nil
}

func (a *app) dumpMetrics(stderr io.Writer) error {
	if a.metricsOut == "" || a.promReg == nil {
		return nil
	}
	mfs, err := a.promReg.Gather()
	if err != nil {
		return err
	}
	w := stderr
	if a.metricsOut != "-" {
		f, err := os.Create(a.metricsOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "goforma:", err)
		}
		os.Exit(1)
	}
}
