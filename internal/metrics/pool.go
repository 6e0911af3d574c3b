package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolStat struct {
	desc  *prometheus.Desc
	value func(*pgxpool.Stat) float64
}

// PoolCollector implements prometheus.Collector for the pgxpool statistics
// of each archive backend. Stats are read on demand during each scrape.
type PoolCollector struct {
	pools map[string]*pgxpool.Pool
	stats []poolStat
}

// NewPoolCollector creates a collector that exports pgxpool stats per backend.
func NewPoolCollector(pools map[string]*pgxpool.Pool) *PoolCollector {
	stat := func(name, help string, value func(*pgxpool.Stat) float64) poolStat {
		return poolStat{
			desc:  prometheus.NewDesc(namespace+"_pgxpool_"+name, help, []string{"backend"}, nil),
			value: value,
		}
	}
	return &PoolCollector{
		pools: pools,
		stats: []poolStat{
			stat("acquire_count", "Cumulative count of successful connection acquires.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			stat("acquire_duration_seconds", "Cumulative time spent acquiring connections.",
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			stat("acquired_conns", "Number of currently acquired connections.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			stat("canceled_acquire_count", "Cumulative count of acquires canceled by context.",
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
			stat("constructing_conns", "Number of connections currently being constructed.",
				func(s *pgxpool.Stat) float64 { return float64(s.ConstructingConns()) }),
			stat("empty_acquire_count", "Cumulative count of acquires from an empty pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
			stat("idle_conns", "Number of idle connections in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			stat("max_conns", "Maximum number of connections allowed.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			stat("new_conns_count", "Cumulative count of new connections created.",
				func(s *pgxpool.Stat) float64 { return float64(s.NewConnsCount()) }),
			stat("total_conns", "Total number of connections in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range c.stats {
		ch <- s.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for name, pool := range c.pools {
		stat := pool.Stat()
		for _, s := range c.stats {
			ch <- prometheus.MustNewConstMetric(s.desc, prometheus.GaugeValue, s.value(stat), name)
		}
	}
}
