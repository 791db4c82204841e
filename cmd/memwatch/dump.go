package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"livemem/process_blob"
)

func init() {
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newInfoCmd())
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <dir>",
		Short: "Save every readable region to a directory",
		Long: `Writes the target's metadata, memory map and one blob per readable region
into dir. The directory can be used later with --from.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			name := t.cfg.Process
			if name == "" {
				name = fmt.Sprintf("pid-%d", t.session.Process().GetPID())
			}

			saved, err := process_blob.Save(t.session.Process(), name, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(map[string]any{"dir": args[0], "regions": saved})
			}
			printInfo("saved %d regions to %s\n", saved, args[0])
			return nil
		},
	}
	return cmd
}

type regionInfo struct {
	Address string `json:"address"`
	Size    uint   `json:"size"`
	Perms   string `json:"perms"`
	Path    string `json:"path,omitempty"`
}

type targetInfo struct {
	PID     int          `json:"pid"`
	Alive   bool         `json:"alive"`
	Base    string       `json:"base"`
	Names   []string     `json:"names"`
	Regions []regionInfo `json:"regions,omitempty"`
}

func newInfoCmd() *cobra.Command {
	var showMap bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the target, its module base and the known offset names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			info := targetInfo{
				PID:   int(t.session.Process().GetPID()),
				Alive: t.session.IsAlive(),
				Base:  t.session.BaseAddress().ToString(),
				Names: t.catalog.Names(),
			}
			if showMap {
				regions, err := t.session.GetMemoryMap()
				if err != nil {
					return err
				}
				for _, r := range regions {
					info.Regions = append(info.Regions, regionInfo{
						Address: fmt.Sprintf("0x%x", r.Address),
						Size:    r.Size,
						Perms:   r.Perms,
						Path:    r.Path,
					})
				}
			}

			if jsonOut {
				return printJSON(info)
			}

			printInfo("pid:   %d\n", info.PID)
			printInfo("alive: %v\n", info.Alive)
			printInfo("base:  %s\n", info.Base)
			printInfo("names: %d\n", len(info.Names))
			for _, name := range info.Names {
				printInfo("  %s\n", name)
			}
			for _, r := range info.Regions {
				printInfo("%s %10d %s %s\n", r.Address, r.Size, r.Perms, r.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMap, "map", false, "Also print the memory map")
	return cmd
}
