package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Likes lists the user's SoundCloud liked tracks without migrating anything.
func (r *Runner) Likes(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	limit := int(cmd.Int("limit"))

	r.logger.Info("fetching likes", "limit", limit)

	tracks, err := r.likesSource(config).FetchLikes(ctx, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlainHeader("SoundCloud Likes")
	for i, track := range tracks {
		if artist := track.Artist(); artist != "" {
			r.writePlain("%d. %s - %s\n", i+1, artist, track.Title)
		} else {
			r.writePlain("%d. %s\n", i+1, track.Title)
		}
	}
	r.writePlain("\nTotal: %d tracks\n", len(tracks))
	return nil
}
