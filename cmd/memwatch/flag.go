package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"livemem/marshal"
)

func init() {
	rootCmd.AddCommand(newFlagCmd())
}

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flag <name> [on|off]",
		Short: "Show or toggle a code patch",
		Long: `Without a state, prints whether the patch site currently holds the on
bytes, the off bytes or something else. With a state, writes the matching
bytes (nothing is written when they are already in place).`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			flag, err := t.catalog.Flag(args[0])
			if err != nil {
				return err
			}
			patch, err := marshal.NewPatch(t.session, flag, nil)
			if err != nil {
				return err
			}
			defer patch.Close()

			if len(args) == 2 {
				var enabled bool
				switch args[1] {
				case "on":
					enabled = true
				case "off":
					enabled = false
				default:
					return fmt.Errorf("state must be on or off, got %q", args[1])
				}
				if err := patch.Apply(enabled); err != nil {
					return err
				}
			}

			state, err := patch.PatchState()
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(map[string]string{args[0]: state.String()})
			}
			printInfo("%s: %s\n", args[0], state)
			return nil
		},
	}
	return cmd
}
