package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"livemem/process"
	"livemem/search"
)

func init() {
	rootCmd.AddCommand(newFindCmd())
	rootCmd.AddCommand(newScanCmd())
}

func errBadAddress(ref string) error {
	return fmt.Errorf("bad address %q, expected @0x...", ref)
}

func newFindCmd() *cobra.Command {
	var (
		baseName   string
		depth      int
		structSize uint
		alignment  uint
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "find <type> <value>",
		Short: "Discover pointer paths that lead to a value",
		Long: `Walks pointers reachable from the module base (or --base) and prints every
offset list whose target holds value. Printed paths can be pasted into an
offsets file as-is.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := lookupKind(args[0])
			if err != nil {
				return err
			}
			want, err := k.encode(args[1])
			if err != nil {
				return err
			}

			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			origin := t.session.BaseAddress()
			if baseName != "" {
				base, err := lookupBase(t.catalog, baseName)
				if err != nil {
					return err
				}
				if origin, err = t.session.Anchor(base); err != nil {
					return err
				}
			}

			results, err := search.Search(t.session, origin,
				search.WithBytes(want),
				search.WithMaxDepth(depth),
				search.WithMaxStructSize(structSize),
				search.WithMinAlignment(alignment),
				search.WithLimit(limit),
			)
			if err != nil {
				return err
			}

			if jsonOut {
				type row struct {
					Offset  []string `json:"offset"`
					Address string   `json:"address"`
				}
				rows := make([]row, 0, len(results))
				for _, r := range results {
					var steps []string
					for _, s := range r.Offset.Steps() {
						steps = append(steps, fmt.Sprintf("0x%X", s))
					}
					rows = append(rows, row{Offset: steps, Address: r.Address.ToString()})
				}
				return printJSON(rows)
			}

			for _, r := range results {
				printInfo("%s -> %s\n", formatSteps(r.Offset.Steps()), r.Address.ToString())
			}
			printInfo("%d paths\n", len(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseName, "base", "", "Search from this base instead of the module base")
	cmd.Flags().IntVar(&depth, "depth", 3, "Maximum pointer depth")
	cmd.Flags().UintVar(&structSize, "struct-size", 256, "Bytes scanned per structure")
	cmd.Flags().UintVar(&alignment, "align", 4, "Value alignment")
	cmd.Flags().IntVar(&limit, "limit", 50, "Stop after this many paths (0 for no limit)")
	return cmd
}

// formatSteps renders steps in offsets file form.
func formatSteps(steps []uint64) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("0x%X", s)
	}
	return strings.Join(parts, ", ")
}

func newScanCmd() *cobra.Command {
	var (
		executable bool
		module     string
		dop        int
	)

	cmd := &cobra.Command{
		Use:   "scan <pattern>",
		Short: "Scan readable memory for a byte pattern",
		Long: `Pattern is space separated hex bytes, ?? matches any byte:

  memwatch scan --exec "48 8B 05 ?? ?? ?? ?? 48 85 C0"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := search.ParsePattern(args[0])
			if err != nil {
				return err
			}

			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			matches, err := search.Scan(t.session, pattern, search.ScanOptions{
				ExecutableOnly: executable,
				Module:         module,
				MaxDOP:         dop,
			})
			if err != nil {
				return err
			}

			base := t.session.BaseAddress()
			if jsonOut {
				out := make([]string, len(matches))
				for i, m := range matches {
					out[i] = m.ToString()
				}
				return printJSON(out)
			}
			for _, m := range matches {
				printInfo("%s%s\n", m.ToString(), moduleRelative(m, base))
			}
			printInfo("%d matches for %s\n", len(matches), pattern)
			return nil
		},
	}

	cmd.Flags().BoolVar(&executable, "exec", false, "Only scan executable regions")
	cmd.Flags().StringVar(&module, "in", "", "Only scan regions backed by this module")
	cmd.Flags().IntVar(&dop, "dop", 4, "Regions scanned concurrently")
	return cmd
}

func moduleRelative(addr, base process.ProcessMemoryAddress) string {
	if base == 0 || addr < base {
		return ""
	}
	return fmt.Sprintf(" (module+0x%X)", uint64(addr-base))
}
