package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"emotedl/pkg/config"
	"emotedl/pkg/emotes"
	"emotedl/pkg/logger"
	"emotedl/pkg/render"
	"emotedl/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// List command flags
	fromFile   string
	listAsJSON bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list [user-id]",
	Short: "Print the emotes of a user without downloading them",
	Long: `Load the emote listing of a user and print one line per emote:

  <file name> <download url>

With --from-file the listing is read from a saved user page instead of a
live browser session. Progress goes to stderr so the output can be piped.`,
	Example: `  # Dry run against the live site
  emotedl list 01F6MQ33FG000FFJ97ZB8MWV52

  # Resolve a page saved from the browser, as JSON
  emotedl list --from-file forsen.html --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&fromFile, "from-file", "", "read the listing from a saved HTML page")
	listCmd.Flags().BoolVar(&listAsJSON, "json", false, "print the run summary as JSON")
	listCmd.Flags().BoolVar(&strictExtension, "strict-extension", false, "take the file extension from the text after the last dot")
	listCmd.Flags().StringVar(&remoteURL, "remote-url", "", "DevTools websocket URL of a running browser")
}

func runList(cmd *cobra.Command, args []string) error {
	if fromFile == "" && len(args) == 0 {
		return fmt.Errorf("a user id is required unless --from-file is given")
	}

	cfg, err := config.Load(configFile, configFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := emotes.New(emotes.Options{
		Config:  cfg,
		Display: ui.NewProgressDisplay(cmd.ErrOrStderr(), false),
		Logger:  logger.GetLogger(),
	})
	if err != nil {
		return err
	}

	var summary *emotes.Summary
	if fromFile != "" {
		userID := "saved"
		if len(args) > 0 {
			userID = args[0]
		}
		summary, err = listFile(ctx, d, fromFile, userID)
	} else {
		summary, err = d.ListUser(ctx, args[0])
	}
	if err != nil {
		return err
	}

	return printAssets(cmd.OutOrStdout(), summary, listAsJSON)
}

func listFile(ctx context.Context, d *emotes.Downloader, path, userID string) (*emotes.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open saved page: %w", err)
	}
	defer f.Close()

	session, err := render.ParseHTML(f)
	if err != nil {
		return nil, err
	}
	return d.ListSession(ctx, session, userID)
}

func printAssets(w io.Writer, summary *emotes.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	for _, asset := range summary.Assets {
		if _, err := fmt.Fprintf(w, "%s %s\n", asset.FileName(), asset.DownloadURL); err != nil {
			return err
		}
	}
	return nil
}
