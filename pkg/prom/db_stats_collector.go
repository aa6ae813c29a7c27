package prom

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

const dbSubsystem = "connections"

// DBStatsCollector implements prometheus.Collector over a *sqlx.DB's
// built-in sql.DBStats, rather than a DbStats indirection.
type DBStatsCollector struct {
	db *sqlx.DB

	maxOpenDesc           *prometheus.Desc
	openDesc              *prometheus.Desc
	inUseDesc             *prometheus.Desc
	idleDesc              *prometheus.Desc
	waitedForDesc         *prometheus.Desc
	blockedSecondsDesc    *prometheus.Desc
	closedMaxIdleDesc     *prometheus.Desc
	closedMaxLifetimeDesc *prometheus.Desc
}

// NewDBStatsCollector creates a new DBStatsCollector for db, labeled name.
func NewDBStatsCollector(name string, db *sqlx.DB) *DBStatsCollector {
	labels := prometheus.Labels{"db_name": name}
	return &DBStatsCollector{
		db: db,
		maxOpenDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, dbSubsystem, "max_open"),
			"Maximum number of open connections to the database.", nil, labels),
		openDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, dbSubsystem, "open"),
			"The number of established connections both in use and idle.", nil, labels),
		inUseDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, dbSubsystem, "in_use"),
			"The number of connections currently in use.", nil, labels),
		idleDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, dbSubsystem, "idle"),
			"The number of idle connections.", nil, labels),
		waitedForDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, dbSubsystem, "waited_for"),
			"The total number of connections waited for.", nil, labels),
		blockedSecondsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, dbSubsystem, "blocked_seconds"),
			"The total time blocked waiting for a new connection.", nil, labels),
		closedMaxIdleDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, dbSubsystem, "closed_max_idle"),
			"The total number of connections closed due to SetMaxIdleConns.", nil, labels),
		closedMaxLifetimeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, dbSubsystem, "closed_max_lifetime"),
			"The total number of connections closed due to SetConnMaxLifetime.", nil, labels),
	}
}

func (c *DBStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxOpenDesc
	ch <- c.openDesc
	ch <- c.inUseDesc
	ch <- c.idleDesc
	ch <- c.waitedForDesc
	ch <- c.blockedSecondsDesc
	ch <- c.closedMaxIdleDesc
	ch <- c.closedMaxLifetimeDesc
}

func (c *DBStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.maxOpenDesc, prometheus.GaugeValue, float64(s.MaxOpenConnections))
	ch <- prometheus.MustNewConstMetric(c.openDesc, prometheus.GaugeValue, float64(s.OpenConnections))
	ch <- prometheus.MustNewConstMetric(c.inUseDesc, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.waitedForDesc, prometheus.CounterValue, float64(s.WaitCount))
	ch <- prometheus.MustNewConstMetric(c.blockedSecondsDesc, prometheus.CounterValue, s.WaitDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.closedMaxIdleDesc, prometheus.CounterValue, float64(s.MaxIdleClosed))
	ch <- prometheus.MustNewConstMetric(c.closedMaxLifetimeDesc, prometheus.CounterValue, float64(s.MaxLifetimeClosed))
}

func (c *DBStatsCollector) stats() sql.DBStats {
	return c.db.Stats()
}
