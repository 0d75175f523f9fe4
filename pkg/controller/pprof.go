package controller

import (
	"net/http"
	"net/http/pprof"
)

// PprofPrefix is the path under which the profiling handlers are served.
const PprofPrefix = "/debug/pprof/"

// PprofMux returns an http.ServeMux with net/http/pprof handlers registered
// under PprofPrefix. Mount it on the same prefix in the main HTTP server.
func PprofMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(PprofPrefix, pprof.Index)
	mux.HandleFunc(PprofPrefix+"cmdline", pprof.Cmdline)
	mux.HandleFunc(PprofPrefix+"profile", pprof.Profile)
	mux.HandleFunc(PprofPrefix+"symbol", pprof.Symbol)
	mux.HandleFunc(PprofPrefix+"trace", pprof.Trace)

	return mux
}
