package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"emotedl/pkg/emotes"
	"emotedl/pkg/errors"
	"emotedl/pkg/models"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserURL = "https://7tv.app/users/[ID]"

func TestPromptLoopAsksForAnotherUser(t *testing.T) {
	var got []string
	run := func(ctx context.Context, id string) error {
		got = append(got, id)
		return nil
	}

	in := strings.NewReader("first\ny\n  second  \nYES\nthird\nn\n")
	var out bytes.Buffer

	require.NoError(t, promptLoop(context.Background(), in, &out, true, testUserURL, run))
	assert.Equal(t, []string{"first", "second", "third"}, got)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "--- 7TV Emote Downloader ---\n"))
	assert.Equal(t, 3, strings.Count(text, "Please input the user id (you can find that in the url of the user https://7tv.app/users/[ID]):"))
	assert.Equal(t, 3, strings.Count(text, "Do you want to download from another user? (y/n):"))
	assert.True(t, strings.HasSuffix(text, "goodbye :3\n"))
}

func TestPromptLoopStopsAtEndOfInput(t *testing.T) {
	calls := 0
	run := func(ctx context.Context, id string) error {
		calls++
		return nil
	}

	var out bytes.Buffer
	require.NoError(t, promptLoop(context.Background(), strings.NewReader("only"), &out, true, testUserURL, run))
	assert.Equal(t, 1, calls)
	assert.Contains(t, out.String(), "goodbye :3")
}

func TestPromptLoopSkipsEmptyID(t *testing.T) {
	calls := 0
	run := func(ctx context.Context, id string) error {
		calls++
		return nil
	}

	var out bytes.Buffer
	require.NoError(t, promptLoop(context.Background(), strings.NewReader("\nn\n"), &out, true, testUserURL, run))
	assert.Zero(t, calls)
	assert.Contains(t, out.String(), "No user id given.")
}

func TestPromptLoopReturnsFatalErrors(t *testing.T) {
	fatal := stderrors.New("disk full")
	run := func(ctx context.Context, id string) error { return fatal }

	var out bytes.Buffer
	err := promptLoop(context.Background(), strings.NewReader("a\ny\nb\n"), &out, true, testUserURL, run)
	assert.ErrorIs(t, err, fatal)
	assert.NotContains(t, out.String(), "goodbye :3")
}

func TestPromptLoopContinuesAfterUserError(t *testing.T) {
	var got []string
	run := func(ctx context.Context, id string) error {
		got = append(got, id)
		if id == "a" {
			return errors.Fetch(503, "https://7tv.app/users/a")
		}
		return nil
	}

	var out bytes.Buffer
	require.NoError(t, promptLoop(context.Background(), strings.NewReader("a\ny\nb\nn\n"), &out, true, testUserURL, run))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Contains(t, out.String(), "Could not download a:")
	assert.True(t, strings.HasSuffix(out.String(), "goodbye :3\n"))
}

func TestPromptLoopWithoutPrompts(t *testing.T) {
	var got []string
	run := func(ctx context.Context, id string) error {
		got = append(got, id)
		return nil
	}

	var out bytes.Buffer
	require.NoError(t, promptLoop(context.Background(), strings.NewReader("first\ny\n\nn\n"), &out, false, testUserURL, run))
	assert.Equal(t, []string{"first"}, got)
	assert.Equal(t, "No user id given.\n", out.String())
}

func TestPromptLoopStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	run := func(ctx context.Context, id string) error {
		cancel()
		return nil
	}

	var out bytes.Buffer
	err := promptLoop(ctx, strings.NewReader("a\ny\nb\n"), &out, true, testUserURL, run)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsYes(t *testing.T) {
	for _, answer := range []string{"y", "Y", "yes", " Yes \n"} {
		assert.True(t, isYes(answer), answer)
	}
	for _, answer := range []string{"", "n", "no", "yep", "ye"} {
		assert.False(t, isYes(answer), answer)
	}
}

func TestConfigFlagsOnlyCarriesChangedFlags(t *testing.T) {
	logLevel = ""
	cmd := &cobra.Command{Use: "test"}
	addFetchFlags(cmd)

	require.NoError(t, cmd.ParseFlags([]string{"--concurrent", "4", "--headless=false", "--wait-timeout", "45s"}))

	flags := configFlags(cmd)
	assert.Equal(t, map[string]interface{}{
		"concurrent":   4,
		"headless":     false,
		"wait-timeout": 45 * time.Second,
	}, flags)
}

func TestPrintAssets(t *testing.T) {
	summary := &emotes.Summary{
		UserID:      "01ABC",
		DisplayName: "forsen",
		State:       models.ListingComplete,
		Assets: []models.ResolvedAsset{
			{Name: "KEKW", DownloadURL: "https://cdn.7tv.app/emote/01/4x.webp", Extension: "ebp"},
			{Name: "Clap", DownloadURL: "https://cdn.7tv.app/emote/02/4x.gif", Extension: "gif"},
		},
	}

	var out bytes.Buffer
	require.NoError(t, printAssets(&out, summary, false))
	assert.Equal(t,
		"KEKW.ebp https://cdn.7tv.app/emote/01/4x.webp\nClap.gif https://cdn.7tv.app/emote/02/4x.gif\n",
		out.String())

	out.Reset()
	require.NoError(t, printAssets(&out, summary, true))

	var decoded emotes.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "forsen", decoded.DisplayName)
	assert.Len(t, decoded.Assets, 2)
}
