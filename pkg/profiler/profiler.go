package profiler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"
)

// Profiler serves the pprof endpoints on its own mux
type Profiler struct {
	server *http.Server
	log    *slog.Logger
}

// Start listens on address in the background. Based off
// https://github.com/thushan/smash/blob/main/pkg/profiler/profiler.go
func Start(address string, log *slog.Logger) *Profiler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	p := &Profiler{
		server: &http.Server{
			Addr:              address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
		},
		log: log,
	}
	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Profiler stopped", "address", address, "error", err)
		}
	}()
	return p
}

func (p *Profiler) Handler() http.Handler {
	return p.server.Handler
}

func (p *Profiler) Stop(ctx context.Context) error {
	return p.server.Shutdown(ctx)
}
