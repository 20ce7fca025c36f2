// Package usage records per-caller token consumption. Counters are persisted
// to SQLite for accounting queries and exported through Prometheus for
// dashboards and alerting.
package usage
