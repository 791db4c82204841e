package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"livemem/marshal"
)

func init() {
	rootCmd.AddCommand(newActorsCmd())
}

type actorRow struct {
	Index  int               `json:"index"`
	Base   string            `json:"base"`
	Anchor string            `json:"anchor"`
	Fields map[string]string `json:"fields,omitempty"`
}

func newActorsCmd() *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "actors <table>",
		Short: "List the entries of an actor table",
		Long: `Enumerates a counted pointer table and prints each element base. Each
--field is a named offset (with a type) read relative to every element.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			tableOffset, err := t.catalog.Table(args[0])
			if err != nil {
				return err
			}
			table := marshal.NewActorTable(t.session, tableOffset)

			count, err := table.Count()
			if err != nil {
				return err
			}
			if !jsonOut {
				printInfo("%s: %d entries\n", args[0], count)
			}

			var rows []actorRow
			for i, base := range table.All() {
				row := actorRow{Index: i, Base: base.String(), Fields: map[string]string{}}

				if anchor, err := t.session.Anchor(base); err == nil {
					row.Anchor = anchor.ToString()
				} else {
					row.Anchor = err.Error()
				}

				for _, field := range fields {
					v, err := lookupValue(t.catalog, field, "", "")
					if err != nil {
						return err
					}
					k, err := lookupKind(v.Type)
					if err != nil {
						return err
					}
					text, err := k.read(t.session, v.Offset, &base)
					if err != nil {
						text = fmt.Sprintf("<%v>", err)
					}
					row.Fields[field] = text
				}

				rows = append(rows, row)
				if !jsonOut {
					printInfo("[%d] %s -> %s", row.Index, row.Base, row.Anchor)
					for _, field := range fields {
						printInfo(" %s=%s", field, row.Fields[field])
					}
					printInfo("\n")
				}
			}

			if jsonOut {
				return printJSON(rows)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&fields, "field", "f", nil, "Named offset to read from every entry")
	return cmd
}
