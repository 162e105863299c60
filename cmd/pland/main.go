package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pland/internal/advisor"
	"pland/internal/catalog"
	"pland/internal/config"
	"pland/internal/httpapi"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("PLAND_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultCatalog := os.Getenv("PLAND_CATALOG")
	defaultProbeBin := os.Getenv("PLAND_PROBE_BIN")
	defaultLogLevel := os.Getenv("PLAND_LOG_LEVEL")
	defaultCORS := os.Getenv("PLAND_CORS_ORIGINS")

	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	cfgPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml); flags override file values")
	catalogPath := flag.String("catalog", defaultCatalog, "Optional model catalog file merged over the built-in presets")
	probeBin := flag.String("probe-bin", defaultProbeBin, "nvidia-smi binary path (empty=look up in PATH)")
	logLevel := flag.String("log-level", defaultLogLevel, "Log level: off, error, info, debug")
	maxBodyBytes := flag.Int64("max-body-bytes", 0, "Maximum request body size in bytes (0=default 1MiB)")
	corsOrigins := flag.String("cors-origins", defaultCORS, "Comma-separated allowed CORS origins (empty=CORS disabled)")
	overheadFloorMB := flag.Int("overhead-floor-mb", 0, "Per-GPU runtime overhead floor in MB (0=default 512)")
	overheadWeightsPct := flag.Float64("overhead-weights-pct", 0, "Runtime overhead as percent of weight bytes (0=default 5)")
	practicalConcurrency := flag.Int("practical-concurrency", 0, "Cap on simultaneously decoding sequences (0=default 16)")
	flag.Parse()

	var fileCfg config.Config
	if *cfgPath != "" {
		c, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *cfgPath, err)
		}
		fileCfg = c
	}

	// Flags win over the config file, which wins over env defaults.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	pickStr := func(name string, fv *string, cv string) string {
		if set[name] || cv == "" {
			return *fv
		}
		return cv
	}
	if !set["addr"] && fileCfg.Addr != "" {
		*addr = fileCfg.Addr
	}
	*catalogPath = pickStr("catalog", catalogPath, fileCfg.CatalogPath)
	*probeBin = pickStr("probe-bin", probeBin, fileCfg.ProbeBin)
	*logLevel = pickStr("log-level", logLevel, fileCfg.LogLevel)
	if !set["max-body-bytes"] && fileCfg.MaxBodyBytes > 0 {
		*maxBodyBytes = fileCfg.MaxBodyBytes
	}
	if !set["overhead-floor-mb"] && fileCfg.OverheadFloorMB > 0 {
		*overheadFloorMB = fileCfg.OverheadFloorMB
	}
	if !set["overhead-weights-pct"] && fileCfg.OverheadWeightsPct > 0 {
		*overheadWeightsPct = fileCfg.OverheadWeightsPct
	}
	if !set["practical-concurrency"] && fileCfg.PracticalConcurrency > 0 {
		*practicalConcurrency = fileCfg.PracticalConcurrency
	}
	origins := splitCSV(*corsOrigins)
	if !set["cors-origins"] && len(origins) == 0 && (fileCfg.CORSEnabled || len(fileCfg.CORSOrigins) > 0) {
		origins = fileCfg.CORSOrigins
	}

	// Structured logging; pretty console output when attached to a terminal.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var logOut io.Writer = os.Stderr
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		logOut = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	zl := zerolog.New(logOut).With().Timestamp().Str("service", "pland").Logger()
	switch *logLevel {
	case "debug":
		zl = zl.Level(zerolog.DebugLevel)
	case "error":
		zl = zl.Level(zerolog.ErrorLevel)
	case "off":
		zl = zl.Level(zerolog.Disabled)
	default:
		zl = zl.Level(zerolog.InfoLevel)
	}
	httpapi.SetLogger(zl)

	var cat *catalog.Catalog
	if *catalogPath != "" {
		c, err := catalog.Load(*catalogPath)
		if err != nil {
			log.Fatalf("failed to load catalog %s: %v", *catalogPath, err)
		}
		cat = c
	}

	adv := advisor.NewWithConfig(advisor.Config{
		Catalog:              cat,
		ProbeBin:             *probeBin,
		OverheadFloorMB:      *overheadFloorMB,
		OverheadWeightsFrac:  *overheadWeightsPct / 100,
		PracticalConcurrency: *practicalConcurrency,
	})
	adv.SetLogger(zl)

	if rep := adv.SanityCheck(); rep.ProbeFound {
		zl.Info().Str("probe", rep.ProbePath).Msg("gpu probe available")
	} else {
		zl.Warn().Str("error", rep.Error).Msg("gpu probe unavailable, estimates will be unverified unless requests carry hardware")
	}

	httpapi.SetMaxBodyBytes(*maxBodyBytes)
	if len(origins) > 0 {
		httpapi.SetCORSOptions(true, origins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Accept", "Content-Type", "X-Log-Level"})
	}

	mux := httpapi.NewMux(adv)
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		zl.Info().Str("addr", *addr).Msg("pland listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries. Returns nil for an empty input.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
