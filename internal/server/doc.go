// Package server exposes the download manager over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /downloads/{id}").
// Middleware wraps each route individually, so it sees the matched pattern.
//
// # Endpoints
//
//	GET    /health           liveness, version and uptime
//	GET    /config           public configuration subset
//	POST   /download         submit {"url", "custom_name"}; 200 {"download_id"}
//	GET    /downloads        every job keyed by id
//	GET    /downloads/{id}   one job
//	DELETE /downloads/{id}   cancel a job
//	GET    /files            converted files in the output directory
//	GET    /stats            job counts and disk usage
//	GET    /events           server-sent event stream of job updates
//	GET    /metrics          Prometheus exposition, when a collector is configured
//
// Errors are JSON objects with a single "error" field. Invalid input maps to 400, unknown ids to 404,
// finished jobs to 409 and a full queue to 503. Pipeline failures never surface as HTTP errors;
// they are recorded on the job.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// The event stream is registered this way.
package server
