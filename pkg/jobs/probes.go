package jobs

import (
	"context"
	"database/sql"

	"github.com/mo-amir99/lms-access-gateway/pkg/metrics"
)

// StatsSource exposes connection pool statistics; *sql.DB satisfies it.
type StatsSource interface {
	Stats() sql.DBStats
}

// Pinger is a dependency that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStats publishes the database pool gauges.
func PoolStats(db StatsSource) Job {
	return Func("db_pool_stats", func(context.Context) error {
		st := db.Stats()
		metrics.RecordDBPool(st.OpenConnections, st.InUse, st.Idle)
		return nil
	})
}

// Probe pings a dependency and records whether it answered.
func Probe(name string, p Pinger) Job {
	return Func("probe_"+name, func(ctx context.Context) error {
		err := p.Ping(ctx)
		metrics.SetDependencyUp(name, err == nil)
		return err
	})
}
