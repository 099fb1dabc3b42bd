/*
Package observability exposes editor activity as Prometheus metrics.

Metrics provides hook sets for the registry lifecycle, the history of every flow
chart and the executor. Wire them with registry.WithHooks,
registry.WithHistoryHooks and execution.WithHooks, and serve the registerer with
promhttp.
*/
package observability
