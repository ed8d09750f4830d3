package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"emotedl/pkg/config"
	"emotedl/pkg/emotes"
	"emotedl/pkg/errors"
	"emotedl/pkg/logger"
	"emotedl/pkg/metadata"
	"emotedl/pkg/models"
	"emotedl/pkg/ui"
	"emotedl/pkg/ui/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Fetch command flags
	outputDir       string
	concurrent      int
	headless        bool
	remoteURL       string
	waitTimeout     time.Duration
	strictExtension bool
	interactive     bool
	notify          bool
	saveManifest    bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [user-id...]",
	Short: "Download every emote of one or more users",
	Long: `Download every emote of the given 7TV users.

The user id is the last part of the user page URL:
  https://7tv.app/users/<ID>

Without arguments emotedl asks for user ids until you answer "n".`,
	Example: `  # Download the emotes of one user
  emotedl fetch 01F6MQ33FG000FFJ97ZB8MWV52

  # Several users, four downloads at a time, into ./emotes
  emotedl fetch 01F6MQ33FG000FFJ97ZB8MWV52 01GB2RB6J0000E7K5M9CRJYHWS -o ./emotes --concurrent 4

  # Ask for user ids one after the other
  emotedl fetch

  # Use a Chrome instance that is already running
  emotedl fetch 01F6MQ33FG000FFJ97ZB8MWV52 --remote-url ws://127.0.0.1:9222/devtools/browser/<id>`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addFetchFlags(fetchCmd)

	// Allow "emotedl <user-id>" as a shorthand for "emotedl fetch <user-id>"
	addFetchFlags(rootCmd)
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && isKnownCommand(args[0]) {
			return cmd.Help()
		}
		return runFetch(cmd, args)
	}
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads (default: ./useremotes)")
	cmd.Flags().IntVar(&concurrent, "concurrent", 1, "number of concurrent downloads")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser without a window")
	cmd.Flags().StringVar(&remoteURL, "remote-url", "", "DevTools websocket URL of a running browser")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 0, "how long to wait for page markers (e.g. 30s)")
	cmd.Flags().BoolVar(&strictExtension, "strict-extension", false, "take the file extension from the text after the last dot")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "ask for more user ids after the given ones")
	cmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification after each user")
	cmd.Flags().BoolVar(&saveManifest, "manifest", false, "write "+metadata.FileName+" into each user directory")
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}

// configFlags collects the flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects
func configFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if changed("headless") {
		flags["headless"] = headless
	}
	if changed("remote-url") {
		flags["remote-url"] = remoteURL
	}
	if changed("wait-timeout") {
		flags["wait-timeout"] = waitTimeout
	}
	if changed("strict-extension") {
		flags["strict-extension"] = strictExtension
	}
	if changed("manifest") {
		flags["manifest"] = saveManifest
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, configFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier *ui.Notifier
	if notify {
		notifier = ui.NewNotifier()
	}

	if useTUI {
		if len(args) == 0 {
			return fmt.Errorf("--tui needs at least one user id")
		}
		return runFetchTUI(ctx, cfg, args, notifier)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.InfoWithFields("emotedl starting", map[string]interface{}{
		"users":      len(args),
		"output":     cfg.Output.BaseDirectory,
		"concurrent": cfg.Download.ConcurrentDownloads,
	})

	d, err := emotes.New(emotes.Options{
		Config:  cfg,
		Display: ui.NewProgressDisplay(nil, verbose),
		Logger:  log,
	})
	if err != nil {
		return err
	}
	run := userRunner(d, notifier, log, nil)

	for _, id := range args {
		if err := run(ctx, id); err != nil {
			if errors.IsFatal(err) {
				return err
			}
			log.WithError(err).WarnWithFields("Skipping user", map[string]interface{}{"user_id": id})
		}
	}

	if len(args) == 0 || interactive {
		showPrompts := term.IsTerminal(int(os.Stdin.Fd()))
		if !showPrompts {
			log.Debug("stdin is not a terminal, reading user ids without prompts")
		}
		return promptLoop(ctx, cmd.InOrStdin(), ui.Output(), showPrompts, cfg.Catalog.UserURL("[ID]"), run)
	}
	return nil
}

// userRunner downloads one user and sends the optional notification.
// Summaries of completed users are passed to done when it is set.
func userRunner(d *emotes.Downloader, notifier *ui.Notifier, log logger.Logger, done func(*emotes.Summary)) func(context.Context, string) error {
	return func(ctx context.Context, userID string) error {
		summary, err := d.DownloadUser(ctx, userID)
		if err != nil {
			return err
		}
		if summary.State != models.ListingComplete {
			return nil
		}
		if done != nil {
			done(summary)
		}
		if notifier != nil {
			if nerr := notifier.NotifyFinished(summary.DisplayName, summary.Counters.Succeeded, summary.Counters.Failed); nerr != nil {
				log.WithError(nerr).Warn("Failed to send notification")
			}
		}
		return nil
	}
}

// promptLoop asks for user ids until the answer to "another user?" is not
// y or yes, or the input ends. Without showPrompts the banner and questions
// are not printed but the input is read the same way. Errors that only
// concern one user are printed and the loop goes on.
func promptLoop(ctx context.Context, in io.Reader, out io.Writer, showPrompts bool, userURL string, run func(context.Context, string) error) error {
	scanner := bufio.NewScanner(in)
	prompts := out
	if !showPrompts {
		prompts = io.Discard
	}

	fmt.Fprintln(prompts, "--- 7TV Emote Downloader ---")
	fmt.Fprintln(prompts, "This program currently only supports downloading emotes from a user.")

	for {
		fmt.Fprintf(prompts, "Please input the user id (you can find that in the url of the user %s):\n", userURL)
		if !scanner.Scan() {
			break
		}

		if id := strings.TrimSpace(scanner.Text()); id != "" {
			if err := run(ctx, id); err != nil {
				if errors.IsFatal(err) {
					return err
				}
				fmt.Fprintf(out, "Could not download %s: %v\n", id, err)
			}
		} else {
			fmt.Fprintln(out, "No user id given.")
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(prompts, "Do you want to download from another user? (y/n):")
		if !scanner.Scan() || !isYes(scanner.Text()) {
			break
		}
	}

	fmt.Fprintln(prompts, "goodbye :3")
	return scanner.Err()
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func runFetchTUI(ctx context.Context, cfg *config.Config, ids []string, notifier *ui.Notifier) error {
	// Console logs would tear the dashboard; the log file still gets everything
	log, err := logger.NewWithWriter(&cfg.Logging, io.Discard)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLogger(log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	terminal := tui.NewTUI()
	d, err := emotes.New(emotes.Options{
		Config:  cfg,
		Display: terminal,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	var summaries []*emotes.Summary
	run := userRunner(d, notifier, log, func(s *emotes.Summary) {
		summaries = append(summaries, s)
	})

	// Run downloads in a goroutine, the dashboard owns the terminal
	workDone := make(chan error, 1)
	go func() {
		for _, id := range ids {
			if err := run(ctx, id); err != nil {
				terminal.LogError("%v", err)
				workDone <- err
				return
			}
		}
		workDone <- nil
	}()

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- terminal.Start()
	}()

	select {
	case err := <-workDone:
		terminal.Stop()
		<-tuiDone
		printSummaries(summaries)
		return err
	case err := <-tuiDone:
		// Quit from the dashboard aborts the remaining downloads
		cancel()
		<-workDone
		printSummaries(summaries)
		return err
	}
}

func printSummaries(summaries []*emotes.Summary) {
	for _, s := range summaries {
		ui.PrintSuccess(fmt.Sprintf("%s: downloaded %d emotes (%d skipped, %d failed) into %s",
			s.DisplayName, s.Counters.Succeeded, s.Counters.Skipped, s.Counters.Failed, s.Directory))
	}
}
