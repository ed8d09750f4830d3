// Package emotes runs user queries end to end.
//
// A query opens one render session, drives the user's catalog page until the
// listing is fully loaded, extracts and resolves every entry, and hands the
// assets to the download pipeline:
//
//	d, err := emotes.New(emotes.Options{
//	    Config:  cfg,
//	    Display: ui.NewProgressDisplay(os.Stdout, false),
//	})
//	if err != nil {
//	    return err
//	}
//
//	summary, err := d.DownloadUser(ctx, "60ae3e98b2ecb0150535c6b7")
//
// Files land in <output.base_directory>/<display name>/<emote>.<ext>. Files
// that already exist are skipped, so a second run only fetches new emotes.
// With output.save_manifest set, a .emotedl.json manifest of the run is
// written next to the files.
//
// A user that does not exist, or has no emotes, is not an error: the summary
// carries models.ListingNotFound or models.ListingEmpty and zero counters.
package emotes
