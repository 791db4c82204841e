package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newWatchCmd())
}

type watchEvent struct {
	Time  time.Time `json:"time"`
	Tick  uint64    `json:"tick"`
	Name  string    `json:"name"`
	Value string    `json:"value"`
}

func newWatchCmd() *cobra.Command {
	var (
		baseName, typeName string
		duration           time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <name|offsets>...",
		Short: "Print values whenever they change",
		Long: `Polls the given values once per tick and prints each change. Runs until
interrupted or until --duration elapses.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTarget()
			if err != nil {
				return err
			}
			defer t.Close()

			for _, ref := range args {
				v, err := lookupValue(t.catalog, ref, baseName, typeName)
				if err != nil {
					return err
				}
				k, err := lookupKind(v.Type)
				if err != nil {
					return err
				}
				name := ref
				stop, err := k.watch(t.session, v.Offset, v.Base, func(text string) {
					if jsonOut {
						printJSON(watchEvent{Time: time.Now(), Tick: t.session.TickID(), Name: name, Value: text})
						return
					}
					printInfo("%s %s = %s\n", time.Now().Format("15:04:05.000"), name, text)
				})
				if err != nil {
					return err
				}
				defer stop()
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if duration > 0 {
				var cancelTimeout context.CancelFunc
				ctx, cancelTimeout = context.WithTimeout(ctx, duration)
				defer cancelTimeout()
			}

			scheduler := t.session.Scheduler()
			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			scheduler.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&baseName, "base", "", "Base to resolve from (name, @address or hex list)")
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Value type, overrides the offsets file")
	cmd.Flags().DurationVar(&tickOverride, "interval", 0, "Tick interval, overrides the config file")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (default: until interrupted)")
	return cmd
}
