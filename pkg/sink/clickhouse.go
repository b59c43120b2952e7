package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/imobdata/coletor/pkg/logging"
)

// Prometheus metrics for sink writes.
var (
	sinkRowsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletor_sink_rows_written_total",
		Help: "Rows written to the warehouse by table",
	}, []string{"table"})

	sinkReplaceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coletor_sink_replace_seconds",
		Help:    "Duration of full-table replace by table",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60},
	}, []string{"table"})
)

// ClickHouse is a Sink backed by a ClickHouse connection. The analytical
// warehouse plays the role MotherDuck played in the original pipeline.
type ClickHouse struct {
	conn   driver.Conn
	logger zerolog.Logger
}

// NewClickHouse opens and pings a ClickHouse connection from a DSN.
func NewClickHouse(dsn string) (*ClickHouse, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse DSN: %w", err)
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouse{
		conn:   conn,
		logger: logging.NewLogger("sink"),
	}, nil
}

// Replace overwrites the destination table with the snapshot: the table
// is recreated from the dataframe schema and batch-inserted in one pass.
func (s *ClickHouse) Replace(ctx context.Context, table string, df dataframe.DataFrame) error {
	start := time.Now()
	defer func() {
		sinkReplaceDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	}()

	ddl, err := createTableDDL(table, df)
	if err != nil {
		return fmt.Errorf("build DDL for %s: %w", table, err)
	}
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("replace table %s: %w", table, err)
	}

	if df.Nrow() == 0 {
		s.logger.Info().Str("table", table).Msg("Replaced table with empty snapshot")
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", table))
	if err != nil {
		return fmt.Errorf("prepare batch for %s: %w", table, err)
	}

	names := df.Names()
	for _, row := range df.Maps() {
		values := make([]any, len(names))
		for i, name := range names {
			values[i] = row[name]
		}
		if err := batch.Append(values...); err != nil {
			return fmt.Errorf("append row to %s: %w", table, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch to %s: %w", table, err)
	}

	sinkRowsWrittenTotal.WithLabelValues(table).Add(float64(df.Nrow()))
	s.logger.Info().
		Str("table", table).
		Int("rows", df.Nrow()).
		Dur("duration", time.Since(start)).
		Msg("Replaced table")

	return nil
}

// Close closes the connection.
func (s *ClickHouse) Close() error {
	return s.conn.Close()
}

// createTableDDL builds a CREATE OR REPLACE TABLE statement from the
// dataframe schema. CREATE OR REPLACE gives the full-overwrite semantics
// in a single statement, so a failed insert leaves at worst an empty
// table, never a half-merged one.
func createTableDDL(table string, df dataframe.DataFrame) (string, error) {
	names := df.Names()
	if len(names) == 0 {
		return "", fmt.Errorf("dataframe has no columns")
	}

	types := df.Types()
	columns := make([]string, len(names))
	for i, name := range names {
		columns[i] = fmt.Sprintf("%s %s", name, columnType(types[i]))
	}

	return fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s (%s) ENGINE = MergeTree() ORDER BY tuple()",
		table, strings.Join(columns, ", "),
	), nil
}

// columnType maps a gota series type to a ClickHouse column type.
func columnType(t series.Type) string {
	switch t {
	case series.Float:
		return "Float64"
	case series.Int:
		return "Int64"
	case series.Bool:
		return "Bool"
	default:
		return "String"
	}
}
