// Package avifworker runs the AVIF codec on a dedicated worker goroutine and
// correlates encode requests with their results.
//
// A Channel starts exactly one worker, lazily, on its first request. Callers never touch the codec
// directly: Encode posts a Request carrying a fresh id and waits for the
// Response with the same id. Responses may arrive in any order; a response
// whose id has no pending request is dropped. The codec is loaded by the
// worker on its first request and reused afterwards; a failed load is
// reported to that request and attempted again on the next one.
//
// Faults that cannot be tied to a request (a panic escaping the worker) are
// logged and handed to the FaultHook. They do not resolve pending requests;
// callers bound their wait with the context they pass to Encode. The worker
// is not restarted: every later Encode fails with ErrWorkerFaulted.
package avifworker
