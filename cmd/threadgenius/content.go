package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"threadgenius/internal/news"
	"threadgenius/internal/store"
	"threadgenius/internal/templates"
	"threadgenius/internal/util"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage topic templates",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List preset and saved templates",
		RunE: logged("templates_list", func(cmd *cobra.Command, args []string) error {
			for _, p := range templates.Presets() {
				fmt.Printf("[preset] %s (%s)\n  %s\n", p.Key, p.Category, util.Truncate(util.NormalizeWhitespace(p.Content), 80))
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			saved, err := db.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range saved {
				fmt.Printf("[saved]  %s (%s)\n  %s\n", t.Name, t.Category, util.Truncate(util.NormalizeWhitespace(t.Content), 80))
			}
			return nil
		}),
	}

	var category, content string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Save a topic template",
		Args:  cobra.ExactArgs(1),
		RunE: logged("templates_add", func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(content) == "" {
				return fmt.Errorf("--content is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.PutTemplate(cmd.Context(), store.Template{Name: args[0], Category: category, Content: content}); err != nil {
				return err
			}
			fmt.Println("saved", args[0])
			return nil
		}),
	}
	add.Flags().StringVar(&category, "category", templates.CategoryEntrepreneur, "persona category")
	add.Flags().StringVar(&content, "content", "", "topic text")

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Delete a saved template",
		Args:  cobra.ExactArgs(1),
		RunE: logged("templates_remove", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			ok, err := db.DeleteTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("template %q not found", args[0])
			}
			fmt.Println("removed", args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func newsCmd() *cobra.Command {
	var limit int
	var keywords []string
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Show recent feed items usable as topics (see generate --news)",
		RunE: logged("news", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			items := news.NewCollector(cfg.Feeds).Collect(cmd.Context(), limit, keywords)
			if len(items) == 0 {
				fmt.Println("no items")
				return nil
			}
			for i, it := range items {
				date := "-"
				if !it.Published.IsZero() {
					date = it.Published.Local().Format("01/02 15:04")
				}
				fmt.Printf("%2d. [%s] %s\n    %s\n", i+1, date, it.Title, it.Link)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "max items")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "keep items containing any keyword")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	var full bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation batches",
		RunE: logged("history", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			batches, err := db.RecentBatches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, b := range batches {
				fmt.Printf("%s  %s  %s  posts=%d  topic=%s\n", b.ID, b.CreatedAt.Local().Format(time.DateTime), b.Persona, len(b.Posts),
					util.Truncate(util.NormalizeWhitespace(b.Topic), 40))
				if full {
					printPosts(b.Posts)
				}
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of batches")
	cmd.Flags().BoolVar(&full, "full", false, "print every post of each batch")
	return cmd
}
