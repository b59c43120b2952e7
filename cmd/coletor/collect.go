package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/imobdata/coletor/pkg/fetch"
	"github.com/imobdata/coletor/pkg/logging"
	"github.com/imobdata/coletor/pkg/normalize"
	"github.com/imobdata/coletor/pkg/paginate"
	"github.com/imobdata/coletor/pkg/quota"
	"github.com/imobdata/coletor/pkg/ratelimit"
	"github.com/imobdata/coletor/pkg/sink"
	"github.com/imobdata/coletor/pkg/source"
)

var (
	collectSource  string
	collectFrom    string
	collectTo      string
	collectTable   string
	collectDSN     string
	collectTimeout time.Duration
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect one source and replace its warehouse table",
	Long: `Collect fetches every page of the given source, normalizes the
records and replaces the warehouse table with the fresh snapshot.
Without --ch-dsn the normalized frame is printed instead of written.`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().StringVar(&collectSource, "source", "", "Source name, e.g. cv_vendas (required)")
	collectCmd.Flags().StringVar(&collectFrom, "from", "", "Filter: start date YYYY-MM-DD")
	collectCmd.Flags().StringVar(&collectTo, "to", "", "Filter: end date YYYY-MM-DD")
	collectCmd.Flags().StringVar(&collectTable, "table", "", "Destination table (default: derived from source name)")
	collectCmd.Flags().StringVar(&collectDSN, "ch-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN")
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", 15*time.Minute, "Overall collection timeout")

	collectCmd.MarkFlagRequired("source")

	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Pretty: pretty,
		Output: os.Stderr,
	})

	configs, err := loadConfigs()
	if err != nil {
		return err
	}
	cfg, ok := configs[collectSource]
	if !ok {
		return fmt.Errorf("unknown source %q (run `coletor sources` to list)", collectSource)
	}

	filters, err := dateFilters(collectFrom, collectTo)
	if err != nil {
		return err
	}

	ledger, cleanup, err := newLedger(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	limits := make(map[string]int, len(configs))
	for name, c := range configs {
		limits[name] = c.RateLimitPerMin
	}
	gate := ratelimit.NewGate(ledger, limits, logger)

	var counter *quota.Counter
	if cfg.QuotaCapped() {
		counter = quota.NewCounter(cfg.Name, cfg.QuotaDailyLimit, cfg.QuotaCostPerCall)
	}

	driver := paginate.NewDriver(cfg, fetch.New(cfg), gate, counter)

	ctx, cancel := context.WithTimeout(cmd.Context(), collectTimeout)
	defer cancel()

	outcome := driver.CollectAll(ctx, filters)
	if outcome.Failed() {
		return fmt.Errorf("collection of %s failed after %d pages: %w",
			cfg.Name, outcome.PagesFetched, outcome.Err)
	}

	logger.Info().
		Str("source", cfg.Name).
		Str("state", string(outcome.State)).
		Int("pages", outcome.PagesFetched).
		Int("records", len(outcome.Records)).
		Msg("Collection finished")

	if len(outcome.Records) == 0 {
		logger.Warn().Str("source", cfg.Name).Msg("No records collected - table left untouched")
		return nil
	}

	mapping, ok := normalize.ForSource(cfg.Name)
	if !ok {
		return fmt.Errorf("no column mapping registered for source %q", cfg.Name)
	}
	df := normalize.Normalize(outcome.Records, mapping, cfg.Name, time.Now().UTC())

	if collectDSN == "" {
		fmt.Println(df)
		return nil
	}

	ch, err := sink.NewClickHouse(collectDSN)
	if err != nil {
		return fmt.Errorf("connecting to warehouse: %w", err)
	}
	defer ch.Close()

	table := tableName(cfg.Name, collectTable)
	if err := ch.Replace(ctx, table, df); err != nil {
		return fmt.Errorf("replacing table %s: %w", table, err)
	}

	logger.Info().
		Str("table", table).
		Int("rows", df.Nrow()).
		Msg("Warehouse table replaced")
	return nil
}

// loadConfigs resolves the source catalog from --config or the built-ins.
func loadConfigs() (map[string]source.Config, error) {
	if cfgFile == "" {
		return source.Defaults(), nil
	}
	return source.Load(cfgFile)
}

// newLedger picks the rate-gate backend: shared Redis when REDIS_URL is
// set (several collector processes against the same upstream budget),
// in-process memory otherwise.
func newLedger(logger zerolog.Logger) (ratelimit.Ledger, func(), error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return ratelimit.NewMemoryLedger(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: redisURL})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", redisURL, err)
	}

	logger.Info().Str("redis", redisURL).Msg("Using shared Redis rate ledger")
	return ratelimit.NewRedisLedger(client), func() { client.Close() }, nil
}

// dateFilters builds the upstream filter map from --from/--to.
func dateFilters(from, to string) (map[string]string, error) {
	filters := make(map[string]string)
	for _, f := range []struct{ name, value string }{
		{"a_partir_de", from},
		{"ate", to},
	} {
		if f.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", f.value); err != nil {
			return nil, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", f.value, err)
		}
		filters[f.name] = f.value
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return filters, nil
}

// tableName derives the destination table from the source name unless
// overridden.
func tableName(sourceName, override string) string {
	if override != "" {
		return override
	}
	return "raw_" + sourceName
}

// exitCode maps terminal errors to process exit codes. Quota exhaustion
// gets its own code so schedulers can tell "stop for today" apart from
// transient failures worth rerunning.
func exitCode(err error) int {
	if errors.Is(err, quota.ErrQuotaExceeded) {
		return 2
	}
	return 1
}
