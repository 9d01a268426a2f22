/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log lines.

Both helpers return a domain.LifecycleHooks value; register them with
arbor.WithLifecycleHooks, which merges repeated registrations.
*/
package observability
