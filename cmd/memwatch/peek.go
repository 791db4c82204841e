package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"livemem/hexdump"
	"livemem/offset_file"
	"livemem/process"
)

func init() {
	rootCmd.AddCommand(newPeekCmd())
}

// resolveAddress accepts "@<hex address>" or anything lookupValue does.
func resolveAddress(t *target, ref, baseName string) (process.ProcessMemoryAddress, error) {
	if rest, ok := strings.CutPrefix(ref, "@"); ok {
		steps, err := offset_file.ParseHexList(rest)
		if err != nil || len(steps) != 1 {
			return 0, errBadAddress(ref)
		}
		return process.ProcessMemoryAddress(steps[0]), nil
	}

	v, err := lookupValue(t.catalog, ref, baseName, "")
	if err != nil {
		return 0, err
	}
	return t.session.Resolve(v.Base, v.Offset)
}

func newPeekCmd() *cobra.Command {
	var (
		baseName  string
		size      uint
		highlight string
	)

	cmd := &cobra.Command{
		Use:   "peek <name|offsets|@address>",
		Short: "Hex dump memory at a resolved address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			addr, err := resolveAddress(t, args[0], baseName)
			if err != nil {
				return err
			}
			data, err := t.session.ReadMemory(addr, process.ProcessMemorySize(size))
			if err != nil {
				return err
			}

			options := hexdump.Options{Color: !noColor}
			if mm, err := t.session.GetMemoryMap(); err == nil {
				options.MemoryMap = mm
			}
			if highlight != "" {
				pattern, err := offset_file.ParseHexBytes(highlight)
				if err != nil {
					return err
				}
				options.Highlight = pattern
			}

			if jsonOut {
				return printJSON(map[string]any{"address": addr.ToString(), "data": data})
			}
			hexdump.DumpToWriter(os.Stdout, data, addr, options)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseName, "base", "", "Base to resolve from (name, @address or hex list)")
	cmd.Flags().UintVarP(&size, "size", "s", 128, "Number of bytes to dump")
	cmd.Flags().StringVar(&highlight, "highlight", "", "Hex bytes to highlight, e.g. 0x90,0x90")
	return cmd
}
