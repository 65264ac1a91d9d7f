package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"threadgenius/internal/publish"
	"threadgenius/internal/schedule"
	"threadgenius/internal/store"
	"threadgenius/internal/threads"
)

func publishCmd() *cobra.Command {
	var batchID string
	var rank int
	var force bool
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a ranked post from a stored batch to Threads",
		RunE: logged("publish", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Threads.AccessToken == "" || cfg.Threads.UserID == "" {
				return threads.ErrNotAuthorized
			}
			ctx := cmd.Context()
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			b, err := findBatch(cmd, db, batchID)
			if err != nil {
				return err
			}
			if rank < 1 || rank > len(b.Posts) {
				return fmt.Errorf("rank %d out of range (batch has %d posts)", rank, len(b.Posts))
			}
			p := &publish.Publisher{API: threads.NewHTTPClient(cfg.Threads), Store: db, Cfg: cfg.Publishing}
			res, err := p.Publish(ctx, b.Posts[rank-1], force)
			if errors.Is(err, publish.ErrQuietHour) {
				next := schedule.NextWindow(time.Now().UTC(), cfg.Publishing.QuietHours)
				return fmt.Errorf("%w; next window %s (use --force to override)", err, next.Local().Format(time.DateTime))
			}
			if err != nil {
				return err
			}
			fmt.Printf("published %s (container %s) at %s\n", res.PostID, res.ContainerID, res.PublishedAt.Local().Format(time.DateTime))
			return nil
		}),
	}
	cmd.Flags().StringVar(&batchID, "batch", "", "batch id (default: latest)")
	cmd.Flags().IntVar(&rank, "rank", 1, "1-based rank within the batch")
	cmd.Flags().BoolVar(&force, "force", false, "ignore quiet hours")
	return cmd
}

func findBatch(cmd *cobra.Command, db *store.DB, id string) (store.Batch, error) {
	limit := 1
	if id != "" {
		limit = 200
	}
	batches, err := db.RecentBatches(cmd.Context(), limit)
	if err != nil {
		return store.Batch{}, err
	}
	for _, b := range batches {
		if id == "" || b.ID == id {
			return b, nil
		}
	}
	if id == "" {
		return store.Batch{}, errors.New("no batches yet; run `threadgenius generate` first")
	}
	return store.Batch{}, fmt.Errorf("batch %q not found", id)
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize the Threads account",
	}
	urlCmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL",
		RunE: logged("auth_url", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Threads.AppID == "" {
				return errors.New("threads.appId (or THREADS_APP_ID) is required")
			}
			fmt.Println(threads.NewHTTPClient(cfg.Threads).AuthorizationURL())
			return nil
		}),
	}

	var save bool
	exchange := &cobra.Command{
		Use:   "exchange CODE",
		Short: "Exchange an authorization code for a long-lived token",
		Args:  cobra.ExactArgs(1),
		RunE: logged("auth_exchange", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tok, err := threads.NewHTTPClient(cfg.Threads).ExchangeCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("user_id=%s long_lived=%t\n", tok.UserID, tok.LongLived)
			if !save {
				fmt.Printf("THREADS_ACCESS_TOKEN=%s\nTHREADS_USER_ID=%s\n", tok.AccessToken, tok.UserID)
				return nil
			}
			return saveToken(".env", tok)
		}),
	}
	exchange.Flags().BoolVar(&save, "save", false, "merge the token into .env instead of printing it")

	cmd.AddCommand(urlCmd, exchange)
	return cmd
}

func saveToken(path string, tok threads.Token) error {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		if env, err = godotenv.Read(path); err != nil {
			return err
		}
	}
	env["THREADS_ACCESS_TOKEN"] = tok.AccessToken
	env["THREADS_USER_ID"] = tok.UserID
	if err := godotenv.Write(env, path); err != nil {
		return err
	}
	fmt.Println("token saved to", path)
	return nil
}

func scheduleCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Suggest upcoming publish slots outside quiet hours",
		RunE: logged("schedule", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			for i, s := range schedule.Slots(time.Now().UTC(), n, cfg.Publishing.QuietHours) {
				fmt.Printf("%d. %s\n", i+1, s.Local().Format(time.DateTime))
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&n, "count", "n", 3, "number of slots")
	return cmd
}
