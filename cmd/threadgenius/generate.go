package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"threadgenius/internal/config"
	"threadgenius/internal/llm"
	"threadgenius/internal/model"
	"threadgenius/internal/news"
	"threadgenius/internal/store"
	"threadgenius/internal/suggest"
	"threadgenius/internal/templates"
)

type generateFlags struct {
	persona   string
	topic     string
	topicFile string
	template  string
	newsIndex int
	count     int
	calm      bool
	tag       string
	short     bool
	asJSON    bool
	noSave    bool
}

func generateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a ranked batch of posts for a persona and topic",
		RunE: logged("generate", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			topic, category, err := resolveTopic(ctx, cfg, f)
			if err != nil {
				return err
			}
			persona, err := pickPersona(cfg.Personas, f.persona, category)
			if err != nil {
				return err
			}
			opts := suggest.Options{
				CalmPriority: f.calm || cfg.Generation.CalmPriority,
				ForcedTag:    firstNonEmpty(f.tag, cfg.Generation.ForcedTopicTag),
				ShortMode:    f.short || cfg.Generation.Mode == config.ModeShort,
			}
			count := f.count
			if count <= 0 {
				count = cfg.Generation.Count
			}

			gen, err := newGenerator(ctx, cfg)
			if err != nil {
				return err
			}
			posts, err := gen.Generate(ctx, persona, topic, count, opts)
			if err != nil {
				return err
			}

			if !f.noSave {
				db, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				id, err := db.SaveBatch(ctx, store.Batch{
					Persona: persona.Name, Topic: topic, CalmPriority: opts.CalmPriority,
					ForcedTag: opts.ForcedTag, ShortMode: opts.ShortMode, Posts: posts,
				})
				if err != nil {
					return fmt.Errorf("save batch: %w", err)
				}
				if !f.asJSON {
					fmt.Printf("batch %s (%s)\n\n", id, persona.Name)
				}
			}
			if f.asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(posts)
			}
			printPosts(posts)
			return nil
		}),
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.persona, "persona", "p", "", "persona name (default: matched from template, else the first persona)")
	fl.StringVarP(&f.topic, "topic", "t", "", "topic text")
	fl.StringVar(&f.topicFile, "topic-file", "", "read topic text from a file ('-' for stdin)")
	fl.StringVar(&f.template, "template", "", "preset or saved template name")
	fl.IntVar(&f.newsIndex, "news", 0, "use the Nth latest feed item (1-based) as topic")
	fl.IntVarP(&f.count, "count", "n", 0, "number of posts (default from config)")
	fl.BoolVar(&f.calm, "calm", false, "prefer the calm style for all but one post")
	fl.StringVar(&f.tag, "tag", "", "force this topic tag on every post")
	fl.BoolVar(&f.short, "short", false, "cap posts at 220 characters")
	fl.BoolVar(&f.asJSON, "json", false, "print posts as JSON")
	fl.BoolVar(&f.noSave, "no-save", false, "do not store the batch in history")
	return cmd
}

// newGenerator builds the model chain: provider chat model, streaming completer, retries and limits.
func newGenerator(ctx context.Context, cfg config.Config) (*suggest.Generator, error) {
	chat, err := llm.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	c := llm.NewResilient(llm.NewChatCompleter(chat), llm.ResilienceFromConfig(cfg.LLM))
	return suggest.NewGenerator(c, cfg), nil
}

// resolveTopic returns the topic text and, for preset templates, their persona category.
func resolveTopic(ctx context.Context, cfg config.Config, f generateFlags) (string, string, error) {
	switch {
	case strings.TrimSpace(f.topic) != "":
		return f.topic, "", nil
	case f.topicFile != "":
		var b []byte
		var err error
		if f.topicFile == "-" {
			b, err = io.ReadAll(os.Stdin)
		} else {
			b, err = os.ReadFile(f.topicFile)
		}
		if err != nil {
			return "", "", err
		}
		return string(b), "", nil
	case f.template != "":
		if p, ok := templates.Find(f.template); ok {
			return p.Content, p.Category, nil
		}
		db, err := openStore(cfg)
		if err != nil {
			return "", "", err
		}
		defer db.Close()
		saved, err := db.ListTemplates(ctx)
		if err != nil {
			return "", "", err
		}
		for _, t := range saved {
			if t.Name == f.template {
				return t.Content, t.Category, nil
			}
		}
		return "", "", fmt.Errorf("template %q not found", f.template)
	case f.newsIndex > 0:
		items := news.NewCollector(cfg.Feeds).Collect(ctx, f.newsIndex, nil)
		if len(items) < f.newsIndex {
			return "", "", fmt.Errorf("only %d feed items available", len(items))
		}
		return news.FormatForPrompt(items[f.newsIndex-1]), "", nil
	}
	return "", "", errors.New("a topic is required: use --topic, --topic-file, --template, or --news")
}

// pickPersona finds name exactly; with no name it matches category against persona names.
func pickPersona(personas []model.Persona, name, category string) (model.Persona, error) {
	if len(personas) == 0 {
		return model.Persona{}, errors.New("no personas configured")
	}
	if name == "" {
		names := make([]string, len(personas))
		for i, p := range personas {
			names[i] = p.Name
		}
		name = templates.MatchPersona(category, names)
	}
	for _, p := range personas {
		if p.Name == name {
			return p, nil
		}
	}
	return model.Persona{}, fmt.Errorf("persona %q not found", name)
}

func printPosts(posts []model.Post) {
	for i, p := range posts {
		fmt.Printf("#%d  score=%.2f  style=%s  stage=%s  tag=%s  lens=%s\n", i+1, p.Score, p.StyleMode, p.PredictedStage, p.TopicTag, p.Lens)
		fmt.Println(p.PostText)
		if p.Reasoning != "" {
			fmt.Println("  reasoning:", p.Reasoning)
		}
		fmt.Println("---")
	}
}

func personasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List configured personas",
		RunE: logged("personas", func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			for _, p := range cfg.Personas {
				fmt.Printf("%s (%s)\n  tone: %s\n  audience: %s\n", p.Name, p.Specialty, p.Tone, p.TargetAudience)
			}
			return nil
		}),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
