package main

import (
	"time"

	"github.com/panbanda/unused-cleaner/internal/cache"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear cached detector results",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache statistics",
				Flags:  []cli.Flag{pathFlag()},
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached results",
				Flags:  []cli.Flag{pathFlag()},
				Action: runCacheClear,
			},
		},
	}
}

func openCache(c *cli.Context) (*cache.Cache, *session, error) {
	s, err := newSession(c, c.String("path"))
	if err != nil {
		return nil, nil, err
	}
	cc, err := cache.New(s.cfg.CacheDir(), s.cfg.Cache.TTL, true)
	if err != nil {
		return nil, nil, err
	}
	return cc, s, nil
}

func runCacheStats(c *cli.Context) error {
	cc, s, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := cc.GetStats()
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	s.console.Info("Cache directory: %s", cc.Dir())
	s.console.Println("%s", p.Sprintf("  Entries: %d", stats.Entries))
	s.console.Println("%s", p.Sprintf("  Size:    %d bytes", stats.TotalSize))
	if stats.Entries > 0 {
		s.console.Println("  Oldest:  %s ago", stats.OldestAge.Round(time.Second))
		s.console.Println("  Newest:  %s ago", stats.NewestAge.Round(time.Second))
	}
	return nil
}

func runCacheClear(c *cli.Context) error {
	cc, s, err := openCache(c)
	if err != nil {
		return err
	}
	if err := cc.Clear(); err != nil {
		return err
	}
	s.console.Success("Cache cleared: %s", cc.Dir())
	return nil
}
