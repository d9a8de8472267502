package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrkit/internal/model"
)

// writeOutput encodes v as indented JSON or as YAML.
func writeOutput(out io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "flush yaml")
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

// formatCountries writes a tabular country list to w.
func formatCountries(out io.Writer, countries []model.Country) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME\tNATIVE\tFLAG")
	_, _ = fmt.Fprintln(w, "----\t----\t------\t----")

	for _, c := range countries {
		if !c.Selectable() {
			_, _ = fmt.Fprintf(w, "%s\t\t\t\n", c.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Code, c.Name, c.NativeName, c.Flag)
	}
	_ = w.Flush()
}
