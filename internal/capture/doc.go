// Package capture drives one browser session against a client-rendered
// reporting page and extracts every structured value the page produces
// internally into a reconciled evidence bundle.
//
// Core functionality:
//   - In-page interceptor set (fetch, XHR, JSON.parse, charting libraries,
//     canvas text draws, storage writes) funneling into a shared in-page buffer
//   - Independent network-layer JSON capture over the DevTools protocol
//   - Session lifecycle: tracing, quiet-network navigation, interaction pulses,
//     guaranteed teardown
//   - Bounded polling collection, per-source aggregation, best-effort artifact
//     writing with a summary that is always produced
//
// Interceptors are transparent by contract: they swallow their own failures
// and never alter the page's arguments, return values, or timing. The shared
// buffer lives inside the page runtime; the controller only ever reads it via
// snapshot round trips, so no in-process locking is needed across the two
// execution contexts.
package capture
