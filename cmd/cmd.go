// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/mixes"
)

// setupCommand initializes config, database and matching settings.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file, initialize the database and write default matching settings",
		Action: r.Setup,
	}
}

// matchCommand handles matching external playlists against the library.
func matchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Match external playlists against the Plex library",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Fetch a playlist and match every track",
				UsageText: "mixtape match run spotify:<id> | <playlist.yaml>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save the matching run to the database",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "create",
						Usage: "Create a Plex playlist from the matched tracks",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Title of the created Plex playlist (default: source playlist name)",
					},
					&cli.FloatFlag{
						Name:  "min-score",
						Usage: "Override the minimum match score for this run",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Only print phase changes",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MatchRun,
			},
			{
				Name:  "list",
				Usage: "List saved matching runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "Only show runs from this source (spotify, file)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MatchList,
			},
			{
				Name:  "show",
				Usage: "Show the per-track results of a saved run",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "unmatched",
						Usage: "Only show unmatched tracks",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MatchShow,
			},
			{
				Name:  "export",
				Usage: "Export a saved run to CSV, Markdown, text or JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, txt, json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file or directory (default: derived from the playlist name)",
					},
				},
				Action: r.MatchExport,
			},
			{
				Name:  "explain",
				Usage: "Search the library for a track and show how each candidate scores",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Track title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Track artist",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of candidates to show",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MatchExplain,
			},
			{
				Name:  "delete",
				Usage: "Delete a saved run",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.MatchDelete,
			},
		},
	}
}

// mixCommand handles mix generation.
func mixCommand(r *Runner) *cli.Command {
	named := func(name string, kind mixes.Kind, usage string) *cli.Command {
		aliases := []string{}
		if name != string(kind) {
			aliases = append(aliases, string(kind))
		}
		return &cli.Command{
			Name:    name,
			Aliases: aliases,
			Usage:   usage,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "json",
					Usage: "Output raw JSON",
				},
			},
			Action: r.mixNamed(kind),
		}
	}

	return &cli.Command{
		Name:  "mix",
		Usage: "Build mixes from the Plex library",
		Commands: []*cli.Command{
			{
				Name:  "custom",
				Usage: "Build a mix from a track source, filters and expansion options",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Playlist title", Value: "Custom Mix"},
					&cli.StringFlag{Name: "source", Usage: "Track source: all, played, unplayed, recently_played, top_artists", Value: "all"},
					&cli.IntFlag{Name: "history-days", Usage: "History window for recently_played and top_artists", Value: 30},
					&cli.IntFlag{Name: "top-artists", Usage: "Number of top artists for top_artists", Value: 10},
					&cli.IntFlag{Name: "tracks-per-artist", Usage: "Tracks per top artist", Value: 5},
					&cli.StringFlag{Name: "genre", Usage: "Only include tracks tagged with this genre"},
					&cli.FloatFlag{Name: "min-rating", Usage: "Minimum user rating, 0-10"},
					&cli.IntFlag{Name: "year-from", Usage: "Earliest release year"},
					&cli.IntFlag{Name: "year-to", Usage: "Latest release year"},
					&cli.IntFlag{Name: "added-within", Usage: "Only tracks added in the last N days"},
					&cli.IntFlag{Name: "count", Usage: "Number of base tracks", Value: 50},
					&cli.IntFlag{Name: "max-per-artist", Usage: "Maximum tracks per artist (0: unlimited)"},
					&cli.StringFlag{Name: "sort", Usage: "Sort order: none, random, most_played, least_played, recently_added, recently_played, rating, title", Value: "random"},
					&cli.BoolFlag{Name: "shuffle", Usage: "Shuffle the final mix"},
					&cli.BoolFlag{Name: "similar-tracks", Usage: "Add sonically similar tracks for each base track"},
					&cli.IntFlag{Name: "similar-per-seed", Usage: "Similar tracks per base track", Value: 3},
					&cli.BoolFlag{Name: "similar-artists", Usage: "Add top tracks from related artists"},
					&cli.IntFlag{Name: "similar-artists-count", Usage: "Number of related artists", Value: 5},
					&cli.IntFlag{Name: "tracks-per-similar-artist", Usage: "Top tracks per related artist", Value: 3},
					&cli.BoolFlag{Name: "dry-run", Usage: "Build the mix without creating a playlist"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.MixCustom,
			},
			named("weekly", mixes.KindWeekly, "Build the Weekly Mix from your most played artists"),
			named("daily", mixes.KindDaily, "Build the Daily Mix from recent plays, related tracks and rediscoveries"),
			named("capsule", mixes.KindTimeCapsule, "Build the Time Capsule from tracks you have not played in a long time"),
			named("new", mixes.KindNewMusic, "Build the New Music Mix from recently added albums"),
			{
				Name:  "all",
				Usage: "Build every named mix",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MixAll,
			},
			{
				Name:  "history",
				Usage: "Show recent mix runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only show runs of this mix",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MixHistory,
			},
		},
	}
}

// settingsCommand handles the matching settings file.
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "View and change matching settings",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the current matching settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SettingsShow,
			},
			{
				Name:      "set",
				Usage:     "Change one setting; list values are comma-separated",
				UsageText: "mixtape settings set <key> <value>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.SettingsSet,
			},
			{
				Name:   "keys",
				Usage:  "List the setting names accepted by set",
				Action: r.SettingsKeys,
			},
			{
				Name:   "reset",
				Usage:  "Restore the default matching settings",
				Action: r.SettingsReset,
			},
		},
	}
}
