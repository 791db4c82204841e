package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newWriteCmd())
}

func newReadCmd() *cobra.Command {
	var baseName, typeName string

	cmd := &cobra.Command{
		Use:   "read <name|offsets>...",
		Short: "Read typed values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			results := make(map[string]string, len(args))
			for _, ref := range args {
				v, err := lookupValue(t.catalog, ref, baseName, typeName)
				if err != nil {
					return err
				}
				k, err := lookupKind(v.Type)
				if err != nil {
					return err
				}
				text, err := k.read(t.session, v.Offset, v.Base)
				if err != nil {
					return err
				}
				results[ref] = text
				if !jsonOut {
					printInfo("%s = %s\n", ref, text)
				}
			}

			if jsonOut {
				return printJSON(results)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseName, "base", "", "Base to resolve from (name, @address or hex list)")
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Value type, overrides the offsets file")
	return cmd
}

func newWriteCmd() *cobra.Command {
	var baseName, typeName string

	cmd := &cobra.Command{
		Use:   "write <name|offsets> <value>",
		Short: "Write a typed value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			v, err := lookupValue(t.catalog, args[0], baseName, typeName)
			if err != nil {
				return err
			}
			k, err := lookupKind(v.Type)
			if err != nil {
				return err
			}
			if err := k.write(t.session, v.Offset, v.Base, args[1]); err != nil {
				return err
			}

			text, err := k.read(t.session, v.Offset, v.Base)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(map[string]string{args[0]: text})
			}
			printInfo("%s = %s\n", args[0], text)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseName, "base", "", "Base to resolve from (name, @address or hex list)")
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Value type, overrides the offsets file")
	return cmd
}
