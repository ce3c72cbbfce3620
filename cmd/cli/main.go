package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/bitswitch/internal/app"
	"github.com/yourusername/bitswitch/internal/domain"
	"github.com/yourusername/bitswitch/internal/infrastructure"
	"github.com/yourusername/bitswitch/pkg/logger"
)

var (
	configPath  string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "bitswitch",
		Short: "bitswitch - compare one recording at many bitrates",
		Long: `A listening-test player. It downloads every bitrate variant of a track
in parallel, decodes them, and switches between them without a gap.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./configs, ~/.bitswitch, /etc/bitswitch)")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start a local library server if not running")

	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}

// setup loads configuration and builds the logger
func setup() (*domain.Config, *zap.Logger, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return config, log, nil
}

// ensureLibrary starts a local library server unless --no-auto-start
func ensureLibrary(config *domain.Config) {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(config.Library.BaseURL); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the track folders in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		ensureLibrary(config)

		p := newPlayer(config, log)
		defer p.Close()

		folders, err := p.folders(cmd.Context())
		if err != nil {
			return err
		}
		for _, f := range folders {
			fmt.Println(f)
		}
		return nil
	},
}

var playCmd = &cobra.Command{
	Use:   "play [folder]",
	Short: "Load a folder and switch between its variants",
	Long: `Load every bitrate variant of a folder and play them. Without a folder
argument the first folder of the library is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		ensureLibrary(config)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := newPlayer(config, log)
		defer p.Close()

		out := cmd.OutOrStdout()
		p.session.AttachDisplay(newTerminalDisplay(out))
		for _, w := range p.warnings() {
			printWarning(out, w)
		}

		folder := ""
		if len(args) == 1 {
			folder = args[0]
		} else {
			folders, err := p.folders(ctx)
			if err != nil {
				return err
			}
			folder = folders[0]
		}

		p.startControl(ctx)
		return runPlayer(ctx, p, folder, cmd.InOrStdin(), out)
	},
}

// runPlayer loads folder and then serves terminal commands until quit
func runPlayer(ctx context.Context, p *player, folder string, in io.Reader, out io.Writer) error {
	load := func(folder string) {
		fmt.Fprintf(out, "Folder: %s\n", folder)
		if err := p.session.Load(ctx, folder); err != nil {
			if !errors.Is(err, app.ErrSuperseded) && ctx.Err() == nil {
				fmt.Fprintf(out, "ERROR: %v\n", err)
			}
			return
		}
		printVariants(out, p.session.Status().Variants)
	}
	load(folder)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		c, err := parseCommand(line)
		if err != nil {
			if !errors.Is(err, errEmptyCommand) {
				fmt.Fprintln(out, err)
			}
			continue
		}

		switch c.kind {
		case cmdQuit:
			return nil
		case cmdFolder:
			load(c.folder)
		case cmdPlay:
			err = p.session.Play(c.index)
		case cmdPause:
			err = p.session.Pause()
		case cmdResume:
			err = p.session.Resume()
		}
		if err != nil {
			fmt.Fprintf(out, "ERROR: %v\n", err)
			continue
		}
		if c.kind == cmdPlay || c.kind == cmdResume {
			st := p.session.Status()
			fmt.Fprintf(out, "Playing %s kbit/s\n", st.Variants[st.Active].Bitrate)
		}
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent acquisition runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		limit, _ := cmd.Flags().GetInt("limit")

		repo, err := infrastructure.NewSQLiteRunRepository(config.History.DatabasePath)
		if err != nil {
			return err
		}
		defer repo.Close()

		runs, err := repo.FindRecent(limit)
		if err != nil {
			return err
		}
		stats, err := repo.GetStats()
		if err != nil {
			return err
		}

		printRuns(cmd.OutOrStdout(), runs, stats)
		return nil
	},
}

func printRuns(out io.Writer, runs []*domain.Run, stats *domain.RunStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFOLDER\tSTATUS\tVARIANTS\tSIZE\tDURATION\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			truncate(r.ID, 8),
			truncate(r.Folder, 30),
			r.Status,
			r.VariantCount,
			formatKiB(r.TotalBytes),
			r.Duration().Round(time.Millisecond),
			r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal: %d  Armed: %d  Failed: %d  Abandoned: %d  Acquiring: %d\n",
		stats.Total, stats.Armed, stats.Failed, stats.Abandoned, stats.Acquiring)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
