// Package main provides the CLI entrypoint for wishwell.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/wishwell/internal/app"
	"github.com/verte-zerg/wishwell/internal/config"
	"github.com/verte-zerg/wishwell/internal/fetch"
	"github.com/verte-zerg/wishwell/internal/logging"
	"github.com/verte-zerg/wishwell/internal/stats"
	"github.com/verte-zerg/wishwell/internal/statsui"
	"github.com/verte-zerg/wishwell/internal/store"
)

var (
	flagRegion string
	flagToken  string
	flagDebug  bool

	statsUID   int64
	statsPlain bool
	statsLimit int

	historyUID    int64
	historyBanner int64
	historyLimit  int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		logErrln(app.UserMessage(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wishwell",
		Short:         "Wish history tracker and pity calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "account region (e.g. os_euro)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "auth token from the wish history page")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newOwnersCmd())
	rootCmd.AddCommand(newBannersCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// env holds everything a command needs once config is resolved.
type env struct {
	settings config.Settings
	logger   *logging.Logger
	store    *store.Store
	service  *app.Service
}

func setup(cmd *cobra.Command) (*env, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	settings := config.DefaultSettings()
	settings.Apply(fileCfg)
	settings.ApplyEnv()
	applyStringFlag(cmd, "region", &settings.Region, flagRegion)
	applyStringFlag(cmd, "token", &settings.Token, flagToken)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logOpts := logging.Options{Level: settings.LogLevel, Debug: flagDebug}
	if cmd.Name() == "stats" && !statsPlain {
		// The interactive view owns the terminal.
		logOpts.Console = io.Discard
	}
	if settings.LogFile {
		logOpts.File = settings.LogPath
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cmd.Context(), store.Options{
		Path:       settings.DBPath,
		LegacyPath: settings.LegacyPath,
		Logger:     logger.With().Str("component", "store").Logger(),
	})
	if err != nil {
		logger.Error().Err(err).Str("path", settings.DBPath).Msg("failed to open store")
		_ = logger.Close()
		return nil, err
	}

	client := fetch.NewClient(fetch.ClientOptions{
		BaseURL: settings.BaseURL,
		Lang:    settings.Lang,
		Timeout: settings.Timeout(),
		Logger:  logger.With().Str("component", "client").Logger(),
	})
	fetcher := fetch.New(client, st, fetch.Options{
		PageDelay: settings.PageDelay(),
		Logger:    logger.With().Str("component", "fetcher").Logger(),
	})
	service := app.New(app.Options{
		Store:        st,
		Fetcher:      fetcher,
		Credentials:  settings.Credentials(),
		NoviceBanner: settings.NoviceBanner,
		Logger:       logger.Logger,
	})
	return &env{settings: settings, logger: logger, store: st, service: service}, nil
}

func (e *env) close() {
	if cerr := e.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
	if cerr := e.logger.Close(); cerr != nil {
		logErrf("failed to close log file: %v\n", cerr)
	}
}

func withEnv(run func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		cmd.SetContext(ctx)

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()
		return run(cmd, e, args)
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch banner types and new wishes",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runRefreshCmd),
	}
}

func runRefreshCmd(cmd *cobra.Command, e *env, _ []string) error {
	n, err := e.service.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), app.RefreshMessage(n))
	return err
}

func newOwnersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "owners",
		Short: "List stored account UIDs",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runOwnersCmd),
	}
}

func runOwnersCmd(cmd *cobra.Command, e *env, _ []string) error {
	uids, err := e.service.ListOwners(cmd.Context())
	if err != nil {
		return err
	}
	if len(uids) == 0 {
		logErrln("No accounts stored yet. Run: wishwell refresh --region <region> --token <token>")
		return nil
	}
	for _, uid := range uids {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), uid); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newBannersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "banners",
		Short: "List known banner types",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runBannersCmd),
	}
}

func runBannersCmd(cmd *cobra.Command, e *env, _ []string) error {
	banners, err := e.service.BannerTypes(cmd.Context())
	if err != nil {
		return err
	}
	if len(banners) == 0 {
		logErrln("No banner types stored yet. Run: wishwell refresh")
		return nil
	}
	ids := make([]int64, 0, len(banners))
	for id := range banners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", id, banners[id]); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show wish statistics",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runStatsCmd),
	}
	cmd.Flags().Int64Var(&statsUID, "uid", 0, "account UID (default: all accounts)")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print plain text instead of the interactive view")
	cmd.Flags().IntVar(&statsLimit, "limit", 20, "history rows in plain output (0 for all)")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, e *env, _ []string) error {
	ctx := cmd.Context()
	if !statsPlain {
		ui := statsui.NewModel(statsui.Options{
			Context:      ctx,
			Source:       e.store,
			NoviceBanner: e.settings.NoviceBanner,
			UID:          statsUID,
			Refresh: func(ctx context.Context) (string, error) {
				n, err := e.service.Refresh(ctx)
				if err != nil {
					return "", fmt.Errorf("%s", app.UserMessage(err))
				}
				return app.RefreshMessage(n), nil
			},
		})
		program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	var summaries []stats.Summary
	if statsUID != 0 {
		summary, err := e.service.Statistics(ctx, statsUID)
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
	} else {
		all, err := e.service.AllStatistics(ctx)
		if err != nil {
			return err
		}
		summaries = all
	}
	if len(summaries) == 0 {
		logErrln("No accounts stored yet. Run: wishwell refresh --region <region> --token <token>")
		return nil
	}
	out := cmd.OutOrStdout()
	opts := stats.RenderOptions{HistoryLimit: statsLimit, Color: stats.ShouldUseColor(out)}
	for _, summary := range summaries {
		if err := stats.RenderReport(out, summary, opts); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print wish history, newest first",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runHistoryCmd),
	}
	cmd.Flags().Int64Var(&historyUID, "uid", 0, "account UID (default: the only stored account)")
	cmd.Flags().Int64Var(&historyBanner, "banner", 0, "banner type id (see: wishwell banners)")
	cmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum rows (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, e *env, _ []string) error {
	ctx := cmd.Context()
	uid, err := resolveUID(ctx, e.service, historyUID)
	if err != nil {
		return err
	}
	var entries []stats.Entry
	if historyBanner != 0 {
		entries, err = e.service.BannerHistory(ctx, uid, historyBanner)
		if err != nil {
			return err
		}
	} else {
		summary, err := e.service.Statistics(ctx, uid)
		if err != nil {
			return err
		}
		entries = summary.History
	}
	out := cmd.OutOrStdout()
	return stats.RenderHistory(out, entries, stats.RenderOptions{
		Width:        stats.TerminalWidth(),
		HistoryLimit: historyLimit,
		Color:        stats.ShouldUseColor(out),
	})
}

func resolveUID(ctx context.Context, svc *app.Service, uid int64) (int64, error) {
	if uid != 0 {
		return uid, nil
	}
	uids, err := svc.ListOwners(ctx)
	if err != nil {
		return 0, err
	}
	switch len(uids) {
	case 0:
		return 0, store.ErrUnknownOwner
	case 1:
		return uids[0], nil
	}
	labels := make([]string, len(uids))
	for i, id := range uids {
		labels[i] = strconv.FormatInt(id, 10)
	}
	return 0, fmt.Errorf("several accounts stored (%s), pick one with --uid", strings.Join(labels, ", "))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = strings.TrimSpace(value)
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# wishwell configuration
# Uncomment a value to enable it. CLI flags and %s/%s override [auth].

[api]
# base-url = %q
# lang = %q
# page-delay-ms = %d      # Pause between history pages
# timeout-sec = %d        # HTTP timeout

[auth]
# region = "os_euro"
# token = ""              # authkey from the in-game wish history URL

[store]
# path = %q
# legacy-path = %q

[stats]
# novice-banner = %d      # Banner id left out of the pity listing (0 keeps it)

[log]
# level = %q              # trace, debug, info, warn, error
# file = true             # Also write JSON logs to %s
`,
		config.EnvRegion,
		config.EnvToken,
		config.DefaultBaseURL,
		config.DefaultLang,
		config.DefaultPageDelayMs,
		config.DefaultTimeoutSec,
		config.DefaultDBPath(),
		config.DefaultLegacyPath(),
		config.DefaultNoviceBanner,
		config.DefaultLogLevel,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
