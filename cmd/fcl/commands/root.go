package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"carrierlookup/internal/captcha"
	"carrierlookup/internal/components/telemetry"
	"carrierlookup/internal/config"
	"carrierlookup/internal/freecarrier"
	"carrierlookup/pkg/fieldmap"

	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

type globalFlags struct {
	configPath string
	verbose    bool
	baseUrl    string
	userAgent  string
	captchaDir string
	dumpHttp   string
}

// state shared by every subcommand once PersistentPreRunE has run
type env struct {
	flags  globalFlags
	cfg    config.Lookup
	logger *slog.Logger
	// run by execute whether the command succeeded or not
	closers []func(context.Context) error
}

func (e *env) close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c(context.Background()))
	}
	e.closers = nil
	return errors.Join(errs...)
}

func newRootCmd() (*cobra.Command, *env) {
	e := &env{}
	lookup := &lookupFlags{}

	rootCmd := &cobra.Command{
		Use:   "fcl <phone_number>...",
		Short: "Lookup carrier information using FreeCarrierLookup.com",
		Long: "Lookup carrier information using FreeCarrierLookup.com.\n\n" +
			"Every lookup requires answering a captcha, the image is saved to disk\n" +
			"and the answer is read from stdin.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runLookup(cmd, e, lookup, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.flags.configPath, "config", "config.json5", "Config file, a <name>.local.json5 next to it overrides it.")
	flags.BoolVarP(&e.flags.verbose, "verbose", "v", false, "Enable verbose logging.")
	flags.StringVar(&e.flags.baseUrl, "base-url", "", "Base url of the lookup site.")
	flags.StringVarP(&e.flags.userAgent, "user-agent", "u", "", "User-Agent string (default is none).")
	flags.StringVar(&e.flags.captchaDir, "captcha-dir", "", "Directory captcha images are saved to (default is the temp dir).")
	flags.StringVar(&e.flags.dumpHttp, "dump-http", "", "Directory to write raw http exchanges to.")

	lookup.register(rootCmd)
	rootCmd.AddCommand(newLookupCmd(e), newCaptchaCmd(e))

	return rootCmd, e
}

func (e *env) setup(cmd *cobra.Command) error {
	e.logger = telemetry.NewLogger(cmd.ErrOrStderr(), e.flags.verbose)
	slog.SetDefault(e.logger)

	cfg, err := config.LoadLookup(e.flags.configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseUrl = e.flags.baseUrl
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = e.flags.userAgent
	}
	if flags.Changed("captcha-dir") {
		cfg.CaptchaDir = e.flags.captchaDir
	}
	if flags.Changed("dump-http") {
		cfg.DumpHttp = e.flags.dumpHttp
	}
	e.cfg = cfg

	otel, err := telemetry.SetupFromEnv(cmd.Context(), "fcl")
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	e.closers = append(e.closers, otel.Shutdown)
	return nil
}

func (e *env) newClient() (*freecarrier.Client, error) {
	if e.cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit must not be negative, got %d", e.cfg.RateLimit)
	}
	opts := freecarrier.ClientOptions{
		BaseUrl:   e.cfg.BaseUrl,
		UserAgent: e.cfg.UserAgent,
		RateLimit: time.Duration(e.cfg.RateLimit) * time.Second,
	}
	if e.cfg.Exclude != nil {
		opts.FieldOptions = append(opts.FieldOptions, fieldmap.WithExclude(e.cfg.Exclude...))
	}
	if e.cfg.DropUnlabeled {
		opts.FieldOptions = append(opts.FieldOptions, fieldmap.WithoutCatchAll())
	}
	if e.cfg.DumpHttp != "" {
		out, err := telemetry.NewFilesystemOutput(e.cfg.DumpHttp)
		if err != nil {
			return nil, fmt.Errorf("http dump directory: %w", err)
		}
		opts.DumpOutput = out
	}
	return freecarrier.NewClient(opts, telemetry.SlogAPI{Logger: e.logger})
}

// prompts go to stderr so stdout only carries results
func (e *env) promptSolver(cmd *cobra.Command) captcha.PromptSolver {
	return captcha.PromptSolver{
		Dir:  e.cfg.CaptchaDir,
		Keep: e.cfg.KeepCaptcha,
		UI: &input.UI{
			Writer: cmd.ErrOrStderr(),
			Reader: cmd.InOrStdin(),
		},
	}
}

// execute runs cmd and then the closers registered on e, cobra skips post-run
// hooks when RunE fails so telemetry is flushed here instead.
func execute(ctx context.Context, cmd *cobra.Command, e *env) error {
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, e.close())
}

func Execute(ctx context.Context) error {
	cmd, e := newRootCmd()
	return execute(ctx, cmd, e)
}
