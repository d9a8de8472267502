package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/addrkit/internal/catalog"
	"github.com/sells-group/addrkit/internal/model"
)

var (
	countriesMajor  bool
	countriesQuery  string
	countriesFormat string
)

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "Inspect and refresh the country catalog",
}

var countriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List countries, priority countries first",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		return runCountriesList(cmd.Context(), env.Catalog, countriesMajor, countriesQuery, cmd.OutOrStdout(), countriesFormat)
	},
}

var countriesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refetch the country list, ignoring the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Catalog.ForceRefresh(cmd.Context())
		if err != nil {
			return eris.Wrap(err, catalog.MsgLoadFailed)
		}
		return writeOutput(cmd.OutOrStdout(), "json", map[string]int{"countries": countSelectable(list)})
	},
}

var countriesGetCmd = &cobra.Command{
	Use:   "get <code>",
	Short: "Show one country by ISO code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		return runCountriesGet(cmd.Context(), env.Catalog, args[0], cmd.OutOrStdout(), countriesFormat)
	},
}

func runCountriesList(ctx context.Context, cat *catalog.Catalog, major bool, query string, out io.Writer, format string) error {
	list, err := cat.LoadOrCache(ctx)
	if err != nil {
		return eris.Wrap(err, catalog.MsgLoadFailed)
	}
	switch {
	case query != "":
		list = cat.Search(query)
	case major:
		list = cat.Major()
	}
	if format == "table" {
		formatCountries(out, list)
		return nil
	}
	return writeOutput(out, format, list)
}

func runCountriesGet(ctx context.Context, cat *catalog.Catalog, code string, out io.Writer, format string) error {
	if _, err := cat.LoadOrCache(ctx); err != nil {
		return eris.Wrap(err, catalog.MsgLoadFailed)
	}
	c, ok := cat.ByCode(code)
	if !ok {
		return eris.Errorf("country %q not found", code)
	}
	if format == "table" {
		formatCountries(out, []model.Country{c})
		return nil
	}
	return writeOutput(out, format, c)
}

func countSelectable(list []model.Country) int {
	n := 0
	for _, c := range list {
		if c.Selectable() {
			n++
		}
	}
	return n
}

func init() {
	countriesCmd.PersistentFlags().StringVar(&countriesFormat, "format", "table", "output format: table, json or yaml")
	countriesListCmd.Flags().BoolVar(&countriesMajor, "major", false, "only the priority countries")
	countriesListCmd.Flags().StringVarP(&countriesQuery, "query", "q", "", "search by name, native name or code")

	countriesCmd.AddCommand(countriesListCmd, countriesRefreshCmd, countriesGetCmd)
	rootCmd.AddCommand(countriesCmd)
}
