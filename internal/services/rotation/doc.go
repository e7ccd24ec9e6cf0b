// Package rotation periodically replaces the active signed pre-key.
//
// A Rotator generates a new active signed pre-key and prunes archived ones;
// a Scheduler runs it on a cron interval. Outcomes are logged and counted
// in Prometheus.
package rotation
