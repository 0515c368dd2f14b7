package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/maintenance"
	"github.com/moviediary/watchlog/internal/pkg/logger"
	"github.com/moviediary/watchlog/internal/posts"
	"github.com/moviediary/watchlog/internal/report"
	"github.com/moviediary/watchlog/internal/stats"
)

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a verified snapshot of the list to the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := tk.Backup(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(report.Backup, rep)
		},
	}
}

func newCleanupCmd(a *app) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Strip unused TMDB fields from every item",
		Long:  "Without --apply only the savings are reported. With --apply a backup is taken first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			var rep *maintenance.CleanupReport
			if apply {
				rep, err = tk.Cleanup(cmd.Context())
			} else {
				rep, err = tk.PreviewCleanup(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.print(report.Cleanup, rep)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Write the cleaned list back")
	return cmd
}

func newEnrichCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fill missing metadata from TMDB",
	}
	cmd.AddCommand(newEnrichCreditsCmd(a), newEnrichLanguageCmd(a))
	return cmd
}

func newEnrichCreditsCmd(a *app) *cobra.Command {
	var (
		typ   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Add directors, creators and countries to items missing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := maintenance.EnrichOptions{Limit: limit, Progress: progressPrinter()}
			if typ != "" {
				mt, err := stats.ParseType(typ)
				if err != nil {
					return err
				}
				opts.Type = mt
			}
			tk, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := tk.EnrichCredits(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(report.Enrich, rep)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Only enrich movie or tv items")
	cmd.Flags().IntVar(&limit, "limit", 0, "Enrich at most this many items (0 = all)")
	return cmd
}

func newEnrichLanguageCmd(a *app) *cobra.Command {
	var (
		apply  bool
		sample int
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "language",
		Short: "Add original_language to movies",
		Long: `Without --apply a sample of movies is looked up and the resulting country
distribution is reported. --apply needs an existing backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			if !apply {
				rep, err := tk.PreviewLanguage(cmd.Context(), sample)
				if err != nil {
					return err
				}
				return a.print(report.LanguagePreview, rep)
			}
			rep, err := tk.AddLanguage(cmd.Context(), maintenance.EnrichOptions{Limit: limit, Progress: progressPrinter()})
			if err != nil {
				return err
			}
			return a.print(report.Language, rep)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Write original_language to every movie missing it")
	cmd.Flags().IntVar(&sample, "sample", maintenance.DefaultLanguageSample, "Movies to look up in preview mode")
	cmd.Flags().IntVar(&limit, "limit", 0, "With --apply, look up at most this many movies (0 = all)")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var opts maintenance.VerifyOptions
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report field coverage and trace how items are attributed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := tk.Verify(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(report.Verify, rep)
		},
	}
	cmd.Flags().IntSliceVar(&opts.IDs, "id", nil, "Trace the item with this TMDB id (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Titles, "title", nil, "Trace the first item whose title contains this text (repeatable)")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "restore [backup-file]",
		Short: "Replace the list with a backup (the newest one by default)",
		Long: `A safety backup of the current list is taken before anything is written.
With --merge only movies come from the backup and the live shows are kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := maintenance.RestoreOptions{Merge: merge}
			if len(args) == 1 {
				opts.Path = args[0]
			}
			tk, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := tk.Restore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(report.Restore, rep)
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "Take movies from the backup and keep the current shows")
	return cmd
}

func newRepublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "republish",
		Short: "Re-save and publish the list unchanged, then invalidate the CDN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := tk.Republish(cmd.Context())
			if rep != nil {
				if perr := a.print(report.Republish, rep); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}

func newInspectCmd(a *app) *cobra.Command {
	var opts maintenance.InspectOptions
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the CMS entry and look up individual items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := a.toolkit(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := tk.Inspect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(report.Inspect, rep)
		},
	}
	cmd.Flags().IntSliceVar(&opts.IDs, "id", nil, "Show the raw item with this TMDB id (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Titles, "title", nil, "Show the first item whose title contains this text (repeatable)")
	cmd.Flags().IntVar(&opts.Recent, "recent", 0, "List the most recently watched items")
	return cmd
}

// statsView is the stats summary tagged with the type it covers.
type statsView struct {
	Type domain.MediaType `json:"type"`
	domain.StatsSummary
}

func newStatsCmd(a *app) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the country and director statistics the API serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mt, err := stats.ParseType(typ)
			if err != nil {
				return err
			}
			svc, err := a.watchlist(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := svc.Stats(cmd.Context(), mt)
			if err != nil {
				return err
			}
			return a.print(report.Stats, statsView{Type: mt, StatsSummary: summary})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "movie", "movie or tv")
	return cmd
}

func newBuildPostsCmd(a *app) *cobra.Command {
	var dir, out string
	cmd := &cobra.Command{
		Use:   "build-posts",
		Short: "Combine the static post files into one index sorted by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Posts.Dir
			}
			if out == "" {
				out = a.cfg.Posts.Output
			}
			n, err := posts.BuildIndex(dir, out)
			if err != nil {
				return err
			}
			logger.Info("post index written", "posts", n, "output", out)
			fmt.Fprintf(a.out, "Wrote %d posts to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory of post JSON files (default from config)")
	cmd.Flags().StringVar(&out, "output", "", "Index file to write (default from config)")
	return cmd
}

func progressPrinter() func(maintenance.Progress) {
	return func(p maintenance.Progress) {
		fmt.Fprintf(os.Stderr, "[%d/%d] %d %s\n", p.Index, p.Total, p.ID, p.Title)
	}
}
