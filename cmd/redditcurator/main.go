package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"RedditCurator/internal/app"
	"RedditCurator/internal/config"
	"RedditCurator/internal/logging"
)

func main() {
	application := cli.App{
		Name:  "redditcurator",
		Usage: "collect subreddit posts that are on-topic, opinionated and discussed",
	}
	application.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "run one curation pass and write the result tree",
			Flags:  sourceFlags(),
			Action: runCurate,
		},
		{
			Name:   "check-config",
			Usage:  "validate the configuration and print it with secrets masked",
			Flags:  sourceFlags(),
			Action: runCheckConfig,
		},
	}
	application.RunAndExitOnError()
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "source", Usage: "source strategy: reddit or dump"},
		&cli.StringFlag{Name: "subreddit", Usage: "subreddit to curate; also names the output folder"},
		&cli.StringFlag{Name: "query", Usage: "search query inside the subreddit instead of a listing"},
		&cli.StringFlag{Name: "sort", Usage: "listing or search order: top, hot, new, rising, controversial"},
		&cli.StringFlag{Name: "time", Usage: "time filter: hour, day, week, month, year, all"},
		&cli.IntFlag{Name: "limit", Usage: "maximum number of posts to evaluate (0 for no limit)"},
		&cli.BoolFlag{Name: "over18", Usage: "include posts marked over 18"},
		&cli.StringFlag{Name: "dump", Usage: "JSON dump to replay with the dump strategy"},
		&cli.StringFlag{Name: "out", Usage: "output directory"},
	}
}

// loadConfig layers command-line flags over file and environment settings.
func loadConfig(cctx *cli.Context) config.Config {
	cfg := config.Load()

	if cctx.IsSet("source") {
		cfg.Source.Strategy = cctx.String("source")
	}
	if cctx.IsSet("subreddit") {
		cfg.Source.Subreddit = cctx.String("subreddit")
	}
	if cctx.IsSet("query") {
		cfg.Source.Query = cctx.String("query")
	}
	if cctx.IsSet("sort") {
		cfg.Source.Sort = cctx.String("sort")
	}
	if cctx.IsSet("time") {
		cfg.Source.TimeFilter = cctx.String("time")
	}
	if cctx.IsSet("limit") {
		cfg.Source.Limit = cctx.Int("limit")
	}
	if cctx.IsSet("over18") {
		cfg.Source.IncludeOver18 = cctx.Bool("over18")
	}
	if cctx.IsSet("dump") {
		cfg.Source.DumpPath = cctx.String("dump")
	}
	if cctx.IsSet("out") {
		cfg.Output.Dir = cctx.String("out")
	}
	return cfg
}

func runCurate(cctx *cli.Context) error {
	cfg := loadConfig(cctx)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration:\n%v", err), 2)
	}

	logger := logging.New(cfg.Logging.Level)
	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := app.New(cfg, logger, os.Stdout).Run(ctx)
	if err != nil {
		logger.Error("curation failed", "error", err)
		return cli.Exit(err.Error(), 1)
	}
	if stats.Errors > 0 {
		return cli.Exit(fmt.Sprintf("%d posts could not be fetched or saved, see the filtered table", stats.Errors), 3)
	}
	return nil
}

func runCheckConfig(cctx *cli.Context) error {
	cfg := loadConfig(cctx)

	raw, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	fmt.Print(string(raw))

	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration:\n%v", err), 2)
	}
	fmt.Println("configuration OK")
	return nil
}
