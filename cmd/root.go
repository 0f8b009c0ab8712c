package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pyproj/internal/cli"
	"pyproj/internal/config"
	"pyproj/internal/installer"
	"pyproj/internal/lock"
	"pyproj/internal/logger"
	"pyproj/internal/runner"
	"pyproj/internal/state"
)

// configPath holds the optional YAML configuration file.
// It can be overridden with PYPROJ_CONFIG.
var configPath = config.DefaultConfigPath()

// rootCmd is the only command of the CLI tool `pyproj`.
// Flag parsing is disabled because the legacy flag surface (-bpr, -fcr)
// does not fit POSIX shorthand rules; cli.Classify handles the arguments.
var rootCmd = &cobra.Command{
	Use:                "pyproj <name> <url> | --remove <name> | --update <name>",
	Short:              "Manage Python projects cloned from Git repositories",
	Long:               cli.Usage,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	Args:               cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args, cmd.OutOrStdout())
	},
}

// Execute runs the root command and exits non-zero on any fatal error.
func Execute() {
	if v := os.Getenv("PYPROJ_CONFIG"); v != "" {
		configPath = v
	}
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("[ERROR] %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprint(os.Stderr, cli.Usage)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	inv, err := cli.Classify(args)
	logger.Init(inv.Debug)
	if err != nil {
		return err
	}
	logger.Debug("[DEBUG] Classified invocation: mode=%s name=%q url=%q\n", inv.Mode, inv.Name, inv.SourceURL)

	if inv.Mode == cli.ModeHelp {
		_, err := fmt.Fprint(out, cli.Usage)
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Debug("[DEBUG] Config: base=%s bin=%s state=%s\n", cfg.BaseDir, cfg.BinDir, cfg.StatePath)

	if inv.Mode == cli.ModeList {
		return list(out, cfg)
	}

	// Reject unsafe names before anything is created on disk, including the
	// lock file. The lock is keyed by the cleaned name.
	projectDir, err := installer.SafeProjectPath(cfg.BaseDir, inv.Name)
	if err != nil {
		return fmt.Errorf("invalid %s target: %w", inv.Mode, err)
	}
	fl, err := lock.Acquire(cfg.LockDir, filepath.Base(projectDir))
	if err != nil {
		return err
	}
	defer lock.Release(fl)

	in := installer.New(cfg, runner.NewExec())
	switch inv.Mode {
	case cli.ModeRemove:
		_, err = in.Remove(inv.Name)
	case cli.ModeUpdate:
		err = in.Update(ctx, inv.Name)
	default:
		_, err = in.Setup(ctx, installer.SetupOptions{
			Name:        inv.Name,
			SourceURL:   inv.SourceURL,
			ForceCreate: inv.ForceCreate(),
		})
	}
	return err
}

// list prints every project recorded in the state file.
func list(out io.Writer, cfg config.Config) error {
	st := state.LoadState(cfg.StatePath)
	if len(st.Projects) == 0 {
		logger.Info("[INFO] No managed projects in %s\n", cfg.BaseDir)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRUN TARGET\tBIN PATH\tSOURCE\tUPDATED")
	for _, name := range st.Names() {
		ps := st.Projects[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, ps.RunTarget, ps.BinPath, ps.SourceURL, ps.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
