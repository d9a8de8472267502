package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrkit/internal/model"
)

var (
	normalizeFormat  string
	normalizeGeoJSON bool
)

var normalizeCmd = &cobra.Command{
	Use:       "normalize <korea|global|direct>",
	Short:     "Normalize a raw provider payload read from stdin",
	Long:      "Reads a JSON provider payload on stdin and prints the canonical address, or null when the payload does not yield one.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(model.KindKorea), string(model.KindGlobal), string(model.KindDirect)},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		return runNormalize(cmd.Context(), env, model.Kind(args[0]), cmd.InOrStdin(), cmd.OutOrStdout(), normalizeFormat, normalizeGeoJSON)
	},
}

func runNormalize(ctx context.Context, env *appEnv, kind model.Kind, in io.Reader, out io.Writer, format string, asGeoJSON bool) error {
	if !kind.Valid() {
		return eris.Errorf("unknown address kind %q", kind)
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return eris.Wrap(err, "read payload")
	}

	if kind == model.KindGlobal {
		// Country names come from the catalog; codes are used without it.
		if _, err := env.Catalog.Ensure(ctx); err != nil {
			zap.L().Warn("country names unavailable", zap.Error(err))
		}
	}

	input, err := env.Registry.New(kind, nil, noCallbacks)
	if err != nil {
		return err
	}
	if err := input.Apply(raw); err != nil {
		return err
	}

	a := input.Value()
	if asGeoJSON && a != nil {
		f, err := model.Feature(a)
		if err != nil {
			return err
		}
		return writeOutput(out, "json", f)
	}
	return writeOutput(out, format, a)
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeFormat, "format", "json", "output format: json or yaml")
	normalizeCmd.Flags().BoolVar(&normalizeGeoJSON, "geojson", false, "print a GeoJSON feature")
	rootCmd.AddCommand(normalizeCmd)
}

