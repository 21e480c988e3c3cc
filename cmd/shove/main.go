package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/henri123lemoine/shove/internal/app"
	"github.com/henri123lemoine/shove/internal/asyncgit"
	"github.com/henri123lemoine/shove/internal/config"
	"github.com/henri123lemoine/shove/internal/debug"
	"github.com/henri123lemoine/shove/internal/git"
	"github.com/henri123lemoine/shove/internal/queue"
	"github.com/henri123lemoine/shove/internal/ui"
	"github.com/henri123lemoine/shove/internal/watch"
)

// notificationBuffer is the capacity of the engine/watcher channel.
const notificationBuffer = 16

var (
	cfgFile    string
	debugFlag  bool
	logFile    string
	remoteFlag string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shove",
		Short:         "Push git branches from a terminal UI",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "Write a debug log")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Debug log path (overrides config)")
	rootCmd.Flags().StringVarP(&remoteFlag, "remote", "r", "", "Remote to push to (overrides config)")

	rootCmd.AddCommand(newInitConfigCmd())
	return rootCmd
}

func newInitConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a commented default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if cfgFile == "" {
				if err := config.CreateDefaultConfigFile(); err != nil {
					return err
				}
			} else if err := config.SaveToPath(config.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

func run() error {
	// Load configuration
	cfg, err := config.LoadFromPath(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("enabling log: %w", err)
	}
	defer debug.Close()

	for _, w := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		debug.Logger().Warn().Msg(w)
	}

	// Detect git repository
	repo, err := git.GetRepo()
	if err != nil {
		return fmt.Errorf("%w\nshove must be run from within a git repository", err)
	}

	configured := cfg.General.Remote
	if remoteFlag != "" {
		configured = remoteFlag
	}
	remote := git.GetPrimaryRemote(repo.Root, configured)
	debug.Logger().Info().Str("repo", repo.Root).Str("remote", remote).Msg("starting")

	notifications := make(chan asyncgit.Notification, notificationBuffer)
	events := queue.New(queue.DefaultBufferSize)
	defer events.Close()

	engine := asyncgit.NewAsyncPush(notifications, git.NewPusher(repo, cfg.Push.Lock), asyncgit.PushOptions{
		ProgressThrottle: time.Duration(cfg.Push.ProgressThrottleMs) * time.Millisecond,
		SetUpstream:      cfg.Push.SetUpstream,
	})

	if cfg.Watch.Enabled {
		w, err := watch.Start(repo.GitDir, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond, notifications)
		if err != nil {
			// The list can still be refreshed by hand
			debug.Logger().Warn().Err(err).Msg("watch repository")
		} else {
			defer w.Close()
		}
	}

	theme := ui.NewTheme(cfg.ResolvedTheme(lipgloss.HasDarkBackground()))

	// Create and run the application
	model := app.New(cfg, repo, app.Services{
		Remote:        remote,
		Engine:        engine,
		Creds:         git.Credentials{Dir: repo.Root},
		Queue:         events,
		Notifications: notifications,
		Theme:         theme,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := finalModel.(app.Model); ok && m.ShouldQuit() {
		if pending, _ := engine.IsPending(); pending {
			fmt.Fprintln(os.Stderr, "Warning: exited while a push was still running")
		}
		if dropped := events.Dropped(); dropped > 0 {
			debug.Logger().Warn().Int64("dropped", dropped).Msg("events dropped")
		}
	}
	return nil
}

// setupLogging enables the debug log from flags and config. --debug without
// a path logs next to the config file.
func setupLogging(cfg *config.Config) error {
	path := cfg.Log.File
	if logFile != "" {
		path = logFile
	}
	if path == "" && debugFlag {
		path = filepath.Join(filepath.Dir(config.ConfigPath()), "shove.log")
	}
	if path == "" {
		return nil
	}
	level := debug.ParseLevel(cfg.Log.Level)
	if debugFlag {
		level = debug.ParseLevel("debug")
	}
	return debug.EnableLevel(path, level)
}
