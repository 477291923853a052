// 程序入口：读取配置、加载国家边界、组装采样依赖并执行 N 次采样；采样逻辑在 internal/sampler
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"streetview-randomizer/internal/config"
	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/imagery"
	"streetview-randomizer/internal/logger"
	"streetview-randomizer/internal/metrics"
	"streetview-randomizer/internal/migrate"
	"streetview-randomizer/internal/oracle"
	"streetview-randomizer/internal/sampler"
	"streetview-randomizer/internal/store"
	"streetview-randomizer/internal/streetview"
	"streetview-randomizer/internal/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fs := flag.NewFlagSet("streetview-randomizer", flag.ContinueOnError)
	config.BindFlags(fs, cfg)
	if err := config.ParseArgs(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, config.ErrUnexpectedArgument) {
			fmt.Fprintln(fs.Output(), err)
			fs.Usage()
		}
		return 2
	}
	l := logger.Setup()
	l.Debug("log_init_ok")

	all, err := geo.LoadCountries(cfg.GeometryPath, nil)
	if err != nil {
		l.Error("geometry_load_error", "path", cfg.GeometryPath, "err", err)
		return 1
	}
	l.Debug("geometry_loaded", "path", cfg.GeometryPath, "countries", len(all))
	if cfg.List {
		printCountries(stdout, all)
		return 0
	}
	if err := cfg.Validate(); err != nil {
		l.Error("config_error", "err", err)
		return 1
	}
	active, err := geo.Filter(all, cfg.Countries)
	if err != nil {
		l.Error("country_filter_error", "err", err, "hint", "run with -l to list all available countries")
		return 1
	}
	set, err := sampler.NewCountrySet(active, sampler.WeightOptions{UseArea: cfg.UseArea, LowCoverage: cfg.LowCoverage})
	if err != nil {
		l.Error("country_set_error", "err", err)
		return 1
	}
	if cfg.UseArea {
		l.Info("area_weighting_enabled", "note", "countries with bigger areas are more likely to be selected")
	}

	client, err := streetview.New(streetview.Options{Endpoint: cfg.Endpoint, Key: cfg.APIKey, Timeout: cfg.Timeout, QPS: cfg.QPS})
	if err != nil {
		l.Error("oracle_init_error", "err", err)
		return 1
	}
	var availability oracle.Oracle = client
	if cfg.Cache {
		opt := oracle.CacheOptions{Capacity: cfg.CacheSize, TTL: cfg.CacheTTL}
		if cfg.CacheRedis {
			rc := utils.OpenRedisFromEnv()
			defer rc.Close()
			if err := rc.Ping(context.Background()).Err(); err != nil {
				l.Error("redis_ping_error", "err", err)
			} else {
				l.Info("redis_ping_ok")
				opt.Redis = rc
			}
		}
		availability = oracle.NewCache(client, opt)
		l.Info("oracle_cache_enabled", "capacity", cfg.CacheSize, "ttl", cfg.CacheTTL.String(), "redis", opt.Redis != nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := startMetrics(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var (
		st    *store.Store
		runID = store.NewRunID()
	)
	if cfg.RecordDB {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			return 1
		}
		defer db.Close()
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			return 1
		}
		st = store.AttachDB(db)
		l.Info("run_recording", "run_id", runID.String())
	}

	searcher, err := sampler.NewSearcher(set, availability, cfg.Radius,
		sampler.WithRand(sampler.NewRand(cfg.Seed)),
		sampler.WithPolicy(cfg.Policy()),
	)
	if err != nil {
		l.Error("searcher_init_error", "err", err)
		return 1
	}

	saver := imagery.NewSaver(client, cfg.OutputDir, cfg.Size, cfg.Headings, cfg.Pitches, cfg.FOVs)
	perSample := saver.PerSample()
	onResult := func(ctx context.Context, i int, res *sampler.Result) error {
		l.Info("sampling_done", "n", i+1, "of", cfg.Samples, "country", res.Country.Code, "name", res.Country.Name,
			"lon", res.Coordinate.Lon, "lat", res.Coordinate.Lat, "attempts", res.Attempts,
			"elapsed", res.Elapsed.Round(10*time.Millisecond).String())
		if !cfg.DryRun {
			if _, err := saver.Save(ctx, res.Country.Code, res.Coordinate); err != nil {
				return err
			}
		}
		if st != nil {
			err := st.InsertSample(ctx, store.Sample{
				RunID: runID, Index: i, Country: res.Country.Code, Name: res.Country.Name, At: res.Coordinate,
				RadiusM: cfg.Radius, Attempts: res.Attempts, Elapsed: res.Elapsed, Images: perSample,
			})
			if err != nil {
				l.Error("db_sample_insert_error", "err", err)
			}
		}
		return nil
	}

	stats, err := sampler.Run(ctx, searcher, sampler.RunOptions{
		Samples:         cfg.Samples,
		ImagesPerSample: perSample,
		OnResult:        onResult,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			l.Warn("run_interrupted", "completed", stats.Samples, "of", cfg.Samples)
		} else {
			l.Error("run_error", "err", err, "completed", stats.Samples)
		}
	}
	if stats.Samples > 1 {
		printSummary(stdout, stats)
	}
	if err != nil {
		return 1
	}
	return 0
}

func startMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: logger.ScrapeLog(logger.L())(mux)}
	go func() {
		logger.L().Info("metrics_listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("metrics_listen_error", "err", err)
		}
	}()
	return srv
}

func printCountries(w io.Writer, countries []*geo.Country) {
	fmt.Fprintf(w, "Available countries:\n\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tISO3\tNAME")
	for i, c := range countries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, c.Code, c.Name)
	}
	_ = tw.Flush()
}

func printSummary(w io.Writer, st *sampler.Stats) {
	fmt.Fprintf(w, "\n%s Summary %s\n\n", strings.Repeat("-", 32), strings.Repeat("-", 32))
	tw := tabwriter.NewWriter(w, 10, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tISO3\tNAME\tIMAGES\t%\t")
	shares := st.Shares()
	pct := 0.0
	for i, s := range shares {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\t\n", i+1, s.Code, s.Name, s.Hits, s.Percent)
		pct += s.Percent
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t%d\t%.2f\t\n", st.TotalHits(), pct)
	_ = tw.Flush()

	fmt.Fprintf(w, "\nTotal attempts: %d\n", st.Attempts)
	fmt.Fprintf(w, "Average number of attempts per sampling: %.2f\n", st.AvgAttempts())
	fmt.Fprintf(w, "\nTotal elapsed time: %.2fs\n", st.Elapsed.Seconds())
	fmt.Fprintf(w, "Average elapsed time per sampling: %.2fs\n", st.AvgElapsed().Seconds())
}
