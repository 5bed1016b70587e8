package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/meigma/lfs"
	"github.com/meigma/lfs/cache"
	"github.com/meigma/lfs/forge"
	lfshttp "github.com/meigma/lfs/http"
	"github.com/meigma/lfs/modindex"
)

// app holds what every subcommand needs once flags and config are merged.
type app struct {
	cfg    config
	logger *slog.Logger
	http   *lfshttp.Client
	client *lfs.Client
	mem    *cache.Memory
}

type rootFlags struct {
	configPath  string
	logLevel    string
	concurrency int
	hostname    string
	namespace   string
	name        string
	revision    string
	kind        string
	scheme      string
	noCache     bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	a := &app{}

	root := &cobra.Command{
		Use:           "modindex",
		Short:         "Browse a mod index repository and fetch its LFS thumbnails",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return a.init(cmd, cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to a TOML config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.IntVar(&flags.concurrency, "concurrency", lfs.DefaultConcurrency, "maximum requests in flight per call")
	pf.StringVar(&flags.hostname, "hostname", "", "forge hostname")
	pf.StringVar(&flags.namespace, "namespace", "", "repository namespace")
	pf.StringVar(&flags.name, "name", "", "repository name")
	pf.StringVar(&flags.revision, "rev", "", "branch to read")
	pf.StringVar(&flags.kind, "forge", "", "forge kind (github or gitlab)")
	pf.StringVar(&flags.scheme, "scheme", "", "URL scheme (https or http)")
	pf.BoolVar(&flags.noCache, "no-cache", false, "disable download memoization")

	root.AddCommand(newListCmd(a))
	root.AddCommand(newThumbnailsCmd(a))
	root.AddCommand(newGetCmd(a))
	return root
}

// apply overrides cfg with the flags that were set on the command line.
func (f *rootFlags) apply(cmd *cobra.Command, cfg *config) error {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("hostname") {
		cfg.Tree.Hostname = f.hostname
	}
	if changed("namespace") {
		cfg.Tree.Namespace = f.namespace
	}
	if changed("name") {
		cfg.Tree.Name = f.name
	}
	if changed("rev") {
		cfg.Tree.Revision = f.revision
	}
	if changed("scheme") {
		cfg.Tree.Scheme = f.scheme
	}
	if changed("forge") {
		kind, err := forge.ParseKind(f.kind)
		if err != nil {
			return err
		}
		cfg.Tree.Kind = kind
	}
	if changed("no-cache") {
		cfg.Cache.Disabled = f.noCache
	}
	return nil
}

func (a *app) init(cmd *cobra.Command, cfg config) error {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	httpOpts := []lfshttp.Option{lfshttp.WithHeader("User-Agent", cfg.UserAgent)}
	if cfg.Timeout > 0 {
		// The archive is one large response; give it a longer budget than a
		// single object download.
		httpOpts = append(httpOpts, lfshttp.WithTimeout(4*cfg.Timeout))
	}
	a.http = lfshttp.NewClient(httpOpts...)

	opts := []lfs.Option{
		lfs.WithConcurrency(cfg.Concurrency),
		lfs.WithBatchLimit(cfg.BatchLimit),
		lfs.WithUserAgent(cfg.UserAgent),
		lfs.WithLogger(a.logger),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lfs.WithTimeout(cfg.Timeout))
	}
	if cfg.Cache.Disabled {
		opts = append(opts, lfs.WithoutCache())
	} else {
		a.mem = cache.NewMemory(cfg.Cache.MaxEntries,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithEvictCallback(func(oid string) {
				a.logger.Debug("evicted lfs object", slog.String("oid", oid))
			}))
		opts = append(opts, lfs.WithCache(a.mem))
	}
	a.client = lfs.New(opts...)
	return nil
}

// loadIndex downloads the index and sorts it newest first.
func (a *app) loadIndex(ctx context.Context) (*modindex.Index, error) {
	start := time.Now()
	a.logger.Info("fetching index", slog.String("tree", a.cfg.Tree.String()))
	index, err := modindex.Fetch(ctx, a.http, a.cfg.Tree)
	if err != nil {
		return nil, err
	}
	index.SortByLastUpdated()
	a.logger.Info("fetched index",
		slog.Int("mods", len(index.Mods)),
		slog.Duration("elapsed", time.Since(start)))
	if len(index.Mods) == 0 {
		return nil, errors.New("index has no mods")
	}
	return index, nil
}

// logCacheStats reports cache evictions at debug level.
func (a *app) logCacheStats() {
	if a.mem == nil {
		return
	}
	a.logger.Debug("cache stats",
		slog.Int("entries", a.mem.Len()),
		slog.Uint64("evictions", a.mem.Evictions()))
}

func errUnknownMods(ids []string) error {
	return fmt.Errorf("unknown mod ids: %v", ids)
}
