// Package httputil holds the request and response helpers of the admin API.
//
// # Responses
//
// Errors are written as {"error": "...", "request_id": "..."} so a failure
// can be matched to its log lines:
//
//	httputil.WriteOK(w, infos)
//	httputil.WriteError(w, r, http.StatusNotFound, err)
//
// # Requests
//
//	var req CommandRequest
//	if !httputil.DecodeJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
//	name, ok := httputil.PathVarOrError(w, r, "name")
//
// # Middleware
//
//	router.Use(
//		httputil.RequestIDMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
