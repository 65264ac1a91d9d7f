package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"threadgenius/internal/analytics"
	"threadgenius/internal/jobs"
	"threadgenius/internal/publish"
	"threadgenius/internal/threads"
)

func monitorCmd() *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show hourly publish activity and latest engagement",
		RunE: logged("monitor", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			ctx := cmd.Context()
			end := time.Now().UTC()
			start := end.Add(-since)

			events, err := db.LoadEventsRange(ctx, start, end, "")
			if err != nil {
				return err
			}
			buckets := analytics.HourlyEngagement(events)
			fmt.Printf("window: last %s\n", since)
			for _, h := range analytics.SortedBucketKeys(buckets) {
				m := buckets[h]
				fmt.Printf("%s  publish=%d insight=%d\n", h.Local().Format("01/02 15:00"), m[publish.EventPublish], m[jobs.EventInsight])
			}

			t := analytics.LatestInsights(events)
			fmt.Printf("\nposts=%d views=%d likes=%d replies=%d reposts=%d quotes=%d reply_rate=%.2f%%\n",
				t.Posts, t.Views, t.Likes, t.Replies, t.Reposts, t.Quotes, t.ReplyRate()*100)
			if last := jobs.LastSync(ctx, db); !last.IsZero() {
				fmt.Println("insights synced:", last.Local().Format(time.DateTime))
			}
			return nil
		}),
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	return cmd
}

func insightsCmd() *cobra.Command {
	var horizon, interval time.Duration
	var loop bool
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Fetch Threads insights for recently published posts",
		RunE: logged("insights", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Threads.AccessToken == "" {
				return threads.ErrNotAuthorized
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			api := threads.NewHTTPClient(cfg.Threads)
			ctx := cmd.Context()

			if loop {
				err := jobs.RunInsightsLoop(ctx, db, api, horizon, interval)
				if errors.Is(err, ctx.Err()) {
					return nil
				}
				return err
			}
			n, err := jobs.SyncInsights(ctx, db, api, horizon)
			if err != nil {
				return err
			}
			fmt.Printf("stored insights for %d posts\n", n)
			return nil
		}),
	}
	cmd.Flags().DurationVar(&horizon, "horizon", 7*24*time.Hour, "only posts published within this window")
	cmd.Flags().BoolVar(&loop, "loop", false, "keep syncing until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Minute, "sync interval with --loop")
	return cmd
}
