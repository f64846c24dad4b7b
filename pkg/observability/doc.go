/*
Package observability turns workflow lifecycle events into Prometheus metrics.

Metrics.Hooks returns domain.LifecycleHooks to register on the engine;
Metrics.Handler serves the collected series for scraping.
*/
package observability
