package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/starford/guidesmith/internal"
	"github.com/starford/guidesmith/internal/guideservice"
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/mcpserver"
	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/prompt"
)

// withStack loads the configuration, opens the pipeline with logs on stderr
// and runs fn until it returns or the process is interrupted.
func withStack(ctx context.Context, cmd *cli.Command, fn func(context.Context, *internal.Stack) error, opts ...internal.Option) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts = append(opts, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	stack, err := internal.Open(nil, opts...)
	if err != nil {
		return err
	}
	defer stack.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, stack)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the guide tools over MCP on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withStack(ctx, cmd, func(_ context.Context, s *internal.Stack) error {
				s.Logger.Info("MCP server starting", slog.String("version", version))
				return mcpserver.New(s.Service, version).ServeStdio()
			})
		},
	}
}

func guideCommand() *cli.Command {
	return &cli.Command{
		Name:  "guide",
		Usage: "Generate and publish guides for one topic or a topics file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Question or theme of the guide"},
			&cli.StringSliceFlag{Name: "place", Usage: "Place slug to feature (repeatable)"},
			&cli.StringSliceFlag{Name: "neighborhood", Usage: "Neighborhood slug (repeatable)"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "YAML list of topics to generate in one batch"},
			&cli.IntFlag{Name: "concurrency", Value: 1, Usage: "Guides generated in parallel with --file"},
			&cli.BoolFlag{Name: "skip-existing", Usage: "Skip topics already in the journal"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			reqs, err := guideRequests(cmd)
			if err != nil {
				return err
			}
			return withStack(ctx, cmd, func(ctx context.Context, s *internal.Stack) error {
				if cmd.Bool("skip-existing") {
					reqs = skipExisting(s, reqs)
					if len(reqs) == 0 {
						return printJSON(os.Stdout, []*guideservice.Result{})
					}
				}
				if len(reqs) == 1 {
					res, err := s.Service.CreateFromTopic(ctx, reqs[0])
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, res)
				}
				results, err := s.Service.CreateBatch(ctx, reqs, int(cmd.Int("concurrency")))
				if perr := printJSON(os.Stdout, compact(results)); perr != nil {
					return perr
				}
				return err
			}, internal.NeedGenerator(), internal.NeedStore())
		},
	}
}

func guideRequests(cmd *cli.Command) ([]guideservice.Request, error) {
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		reqs, err := guideservice.ParseBatch(data)
		if err != nil {
			return nil, err
		}
		for i := range reqs {
			reqs[i].Source = journal.SourceBatch
		}
		return reqs, nil
	}
	topic := strings.TrimSpace(cmd.String("topic"))
	if topic == "" {
		return nil, fmt.Errorf("either --topic or --file is required")
	}
	return []guideservice.Request{{
		Topic:         topic,
		Places:        cmd.StringSlice("place"),
		Neighborhoods: cmd.StringSlice("neighborhood"),
		Source:        journal.SourceCLI,
	}}, nil
}

func skipExisting(s *internal.Stack, reqs []guideservice.Request) []guideservice.Request {
	out := reqs[:0]
	for _, r := range reqs {
		done, err := s.Service.AlreadyCreated(r)
		if err != nil {
			s.Logger.Warn("journal lookup failed", slog.String("topic", r.Topic), slog.String("error", err.Error()))
		}
		if done {
			s.Logger.Info("skipping existing topic", slog.String("topic", r.Topic))
			continue
		}
		out = append(out, r)
	}
	return out
}

// compact drops the slots of batch requests that did not finish.
func compact(results []*guideservice.Result) []*guideservice.Result {
	out := make([]*guideservice.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func topicsCommand() *cli.Command {
	return &cli.Command{
		Name:  "topics",
		Usage: "Suggest guide topics without publishing anything",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "One of " + strings.Join(models.TopicCategories, ", ")},
			&cli.StringFlag{Name: "neighborhood", Usage: "Neighborhood to focus on"},
			&cli.IntFlag{Name: "count", Value: 5, Usage: "Number of topics (1-50)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withStack(ctx, cmd, func(ctx context.Context, s *internal.Stack) error {
				topics, err := s.Service.TopicIdeas(ctx, prompt.TopicFilter{
					Category:     cmd.String("category"),
					Neighborhood: cmd.String("neighborhood"),
					Count:        int(cmd.Int("count")),
				})
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, topics)
			}, internal.NeedGenerator())
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Check which slugs exist in the content store",
		ArgsUsage: "<slug>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Value: models.KindPlace, Usage: "place or neighborhood"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			slugs := cmd.Args().Slice()
			if len(slugs) == 0 {
				return fmt.Errorf("at least one slug is required")
			}
			return withStack(ctx, cmd, func(ctx context.Context, s *internal.Stack) error {
				res, err := s.Service.Resolve(ctx, cmd.String("kind"), slugs)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, res)
			}, internal.NeedStore())
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create the neighborhood and place catalog in the content store",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Validate and count the catalog without writing"},
			&cli.StringFlag{Name: "catalog", Usage: "Catalog YAML file (defaults to the built-in catalog)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withStack(ctx, cmd, func(ctx context.Context, s *internal.Stack) error {
				path := s.Config.Seed.Catalog
				if cmd.IsSet("catalog") {
					path = cmd.String("catalog")
				}
				catalog, err := internal.LoadCatalog(path)
				if err != nil {
					return err
				}
				rep, err := s.Service.Seed(ctx, catalog, cmd.Bool("dry-run"))
				if rep != nil {
					if perr := printJSON(os.Stdout, rep); perr != nil {
						return perr
					}
				}
				return err
			}, internal.NeedStore())
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List guides generated by this installation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search title, summary and topic"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of guides"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withStack(ctx, cmd, func(_ context.Context, s *internal.Stack) error {
				rows, _, err := s.Service.History(cmd.String("query"), int(cmd.Int("limit")), 0)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, rows)
			})
		},
	}
}
