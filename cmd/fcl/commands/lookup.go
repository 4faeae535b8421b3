package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"carrierlookup/internal/captcha"
	"carrierlookup/internal/freecarrier"
	"carrierlookup/internal/output"
	"carrierlookup/internal/phone"
	"carrierlookup/pkg/fieldmap"

	"github.com/spf13/cobra"
)

type lookupFlags struct {
	region     string
	cc         string
	assumeE164 bool
	rateLimit  int
	csv        bool
	format     string
	answer     string

	keepCaptcha   bool
	exclude       []string
	dropUnlabeled bool
}

func newLookupCmd(e *env) *cobra.Command {
	l := &lookupFlags{}
	cmd := &cobra.Command{
		Use:   "lookup <phone_number>...",
		Short: "Lookup carrier information, same as running fcl with phone numbers.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, e, l, args)
		},
	}
	l.register(cmd)
	return cmd
}

func (l *lookupFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&l.region, "region", "US", "libphonenumber dialing region.")
	flags.StringVar(&l.cc, "cc", "", "Default country code (if none, all numbers must be in E.164 format).")
	flags.BoolVarP(&l.assumeE164, "assume-e164", "E", false, "Assume E.164 format even if leading '+' not present.")
	flags.IntVarP(&l.rateLimit, "rate-limit", "r", 0, "Rate limit in seconds per query (default is none).")
	flags.BoolVarP(&l.csv, "csv", "c", false, "Output results in CSV format, same as --format csv.")
	flags.StringVarP(&l.format, "format", "f", "text", "Output format: text, csv, json or table.")
	flags.StringVar(&l.answer, "captcha", "", "Answer every captcha with this value instead of prompting.")
	flags.BoolVar(&l.keepCaptcha, "keep-captcha", false, "Keep captcha images after they were answered.")
	flags.StringSliceVar(&l.exclude, "exclude", []string{fieldmap.PhoneNumber}, "Result fields to leave out, pass \"\" to keep all of them.")
	flags.BoolVar(&l.dropUnlabeled, "drop-unlabeled", false, "Drop text before the first label instead of reporting it as \""+fieldmap.CatchAll+"\".")
	cmd.MarkFlagsMutuallyExclusive("cc", "assume-e164")
	cmd.MarkFlagsMutuallyExclusive("csv", "format")
}

// apply overrides the config with the flags that were given explicitly.
func (l *lookupFlags) apply(cmd *cobra.Command, e *env) {
	flags := cmd.Flags()
	if flags.Changed("region") {
		e.cfg.Region = l.region
	}
	if flags.Changed("cc") {
		e.cfg.CountryCode = l.cc
		e.cfg.AssumeE164 = false
	}
	if flags.Changed("assume-e164") {
		e.cfg.AssumeE164 = l.assumeE164
		e.cfg.CountryCode = ""
	}
	if flags.Changed("rate-limit") {
		e.cfg.RateLimit = l.rateLimit
	}
	if flags.Changed("format") {
		e.cfg.Format = l.format
	}
	if l.csv {
		e.cfg.Format = output.FormatCSV
	}
	if flags.Changed("keep-captcha") {
		e.cfg.KeepCaptcha = l.keepCaptcha
	}
	if flags.Changed("exclude") {
		e.cfg.Exclude = l.exclude
	}
	if flags.Changed("drop-unlabeled") {
		e.cfg.DropUnlabeled = l.dropUnlabeled
	}
}

func runLookup(cmd *cobra.Command, e *env, l *lookupFlags, args []string) error {
	ctx := cmd.Context()
	l.apply(cmd, e)

	phoneOpts := phone.Options{
		Region:     e.cfg.Region,
		DefaultCC:  e.cfg.CountryCode,
		AssumeE164: e.cfg.AssumeE164,
	}
	err := phoneOpts.Validate()
	if err != nil {
		return err
	}

	writer, err := output.New(e.cfg.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	client, err := e.newClient()
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	var solver captcha.Solver = e.promptSolver(cmd)
	if l.answer != "" {
		solver = captcha.StaticSolver(l.answer)
	}

	stderr := cmd.ErrOrStderr()
	for _, raw := range args {
		number, err := phone.Resolve(raw, phoneOpts)
		if err != nil {
			fmt.Fprintf(stderr, "WARNING: Could not parse %q: %s\n", raw, err)
			continue
		}

		slog.DebugContext(ctx, "looking up", "number", number.String())
		result, err := client.Lookup(ctx, number, solver)
		var statusErr *freecarrier.StatusError
		if errors.As(err, &statusErr) {
			fmt.Fprintf(stderr, "%s received for %s: %s\n", statusErr.Title(), number, statusErr.Message())
			continue
		}
		if err != nil {
			return fmt.Errorf("lookup %s: %w", number, err)
		}

		err = writer.Write(result)
		if err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	return writer.Flush()
}
