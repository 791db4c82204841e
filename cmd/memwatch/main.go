package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"livemem/config"
	"livemem/marshal"
	"livemem/offset_file"
	"livemem/process"
	"livemem/process_blob"
)

var (
	// Global flags
	pidFlag     int
	nameFlag    string
	moduleFlag  string
	configPath  string
	offsetsPath string
	fromDir     string
	jsonOut     bool
	noColor     bool

	// set by commands that run the scheduler
	tickOverride time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "memwatch",
	Short: "Read, watch and patch live process memory through named offsets",
	Long: `memwatch attaches to a running process (or a saved dump) and works with
values described by an offsets file: typed reads and writes, change watching,
actor table enumeration, code patch toggles, pointer path discovery and
pattern scans.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&pidFlag, "pid", "p", 0, "Process ID to attach to")
	rootCmd.PersistentFlags().StringVarP(&nameFlag, "name", "n", "", "Process name to attach to")
	rootCmd.PersistentFlags().StringVarP(&moduleFlag, "module", "m", "", "Main module name used as the base for offsets")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVarP(&offsetsPath, "offsets", "o", "", "Offsets file")
	rootCmd.PersistentFlags().StringVar(&fromDir, "from", "", "Use a saved dump directory instead of a live process")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints a line of human readable output
func printInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// loadConfig reads --config, or the per-user config when unset, and
// applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Default(), nil
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if nameFlag != "" {
		cfg.Process = nameFlag
	}
	if moduleFlag != "" {
		cfg.Module = moduleFlag
	}
	if offsetsPath != "" {
		cfg.Offsets = offsetsPath
	}
	if tickOverride > 0 {
		cfg.TickInterval = tickOverride
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*offset_file.Catalog, error) {
	if cfg.Offsets == "" {
		return offset_file.Parse(nil)
	}
	return offset_file.Load(cfg.Offsets)
}

func openProcess(cfg *config.Config) (process.Process, error) {
	if fromDir != "" {
		dump := process_blob.NewProcessDump()
		if err := dump.Load(fromDir); err != nil {
			return nil, fmt.Errorf("load dump %s: %w", fromDir, err)
		}
		return dump, nil
	}

	pid := process.ProcessID(pidFlag)
	if pid == 0 && cfg.Process != "" {
		found, err := findPID(cfg.Process)
		if err != nil {
			return nil, err
		}
		pid = found
	}
	if pid == 0 {
		return nil, errors.New("one of --pid, --name or --from is required")
	}

	return openLive(pid, cfg.Module)
}

// target bundles everything a command needs.
type target struct {
	cfg     *config.Config
	catalog *offset_file.Catalog
	session *marshal.Session
}

func (t *target) Close() error {
	return t.session.Close()
}

func openTarget() (*target, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	proc, err := openProcess(cfg)
	if err != nil {
		return nil, err
	}
	session, err := marshal.NewSession(proc, cfg.SessionOptions())
	if err != nil {
		proc.Close()
		return nil, err
	}
	return &target{cfg: cfg, catalog: catalog, session: session}, nil
}
