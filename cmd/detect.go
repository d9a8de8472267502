package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/internal/region"
	"github.com/sells-group/addrkit/internal/unified"
)

var (
	detectIP       string
	detectSelf     bool
	detectTimezone string
	detectLangs    []string
	detectForce    string
	detectNoAuto   bool
	detectFormat   string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect the address region from IP, timezone and language",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		opts := detectOptions{
			Force:      firstNonEmpty(detectForce, cfg.Region.Force),
			AutoDetect: cfg.Region.AutoDetect && !detectNoAuto,
			Signals: region.Signals{
				IP:         detectIP,
				LookupSelf: detectIP == "" && detectSelf,
				Timezone:   firstNonEmpty(detectTimezone, os.Getenv("TZ")),
				Languages:  detectLangs,
			},
		}
		if len(opts.Signals.Languages) == 0 {
			opts.Signals.Languages = envLanguages()
		}
		return runDetect(cmd.Context(), env, opts, cmd.OutOrStdout(), detectFormat)
	},
}

type detectOptions struct {
	Force      string
	AutoDetect bool
	Signals    region.Signals
}

// runDetect detects a region and prints the unified input status, which
// names the provider that would be shown.
func runDetect(ctx context.Context, env *appEnv, opts detectOptions, out io.Writer, format string) error {
	force := model.Region("")
	if opts.Force != "" {
		r, ok := model.ParseRegion(opts.Force)
		if !ok {
			return errInvalidRegion(opts.Force)
		}
		force = r
	}

	session := env.Detector.Detect(ctx, force, opts.AutoDetect, opts.Signals)
	u, err := unified.New(session, env.Registry, nil, noCallbacks)
	if err != nil {
		return err
	}
	return writeOutput(out, format, u.Status())
}

// envLanguages reads the POSIX locale variables in precedence order.
func envLanguages() []string {
	var langs []string
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" && v != "C" && v != "POSIX" {
			langs = append(langs, v)
		}
	}
	return langs
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func init() {
	f := detectCmd.Flags()
	f.StringVar(&detectIP, "ip", "", "IP address to geolocate")
	f.BoolVar(&detectSelf, "self", true, "geolocate this host when --ip is not set")
	f.StringVar(&detectTimezone, "timezone", "", "IANA timezone (default $TZ)")
	f.StringSliceVar(&detectLangs, "lang", nil, "language tags in preference order (default from $LANG)")
	f.StringVar(&detectForce, "force", "", "force region: korea or global")
	f.BoolVar(&detectNoAuto, "no-auto", false, "disable automatic detection")
	f.StringVar(&detectFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(detectCmd)
}
