package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/andrebq/notebox/internal/logutil"
)

type (
	// Timeouts applied to every connection. Zero values keep the defaults.
	Timeouts struct {
		Read       time.Duration
		ReadHeader time.Duration
		Write      time.Duration
		Idle       time.Duration
		// Shutdown bounds how long in-flight requests get once ctx is done.
		Shutdown time.Duration
	}
)

// DefaultTimeouts are short, the api only moves small json documents.
var DefaultTimeouts = Timeouts{
	Read:       time.Second * 30,
	ReadHeader: time.Second * 10,
	Write:      time.Second * 30,
	Idle:       time.Minute * 2,
	Shutdown:   time.Second * 15,
}

func (t Timeouts) orDefault() Timeouts {
	pick := func(v, d time.Duration) time.Duration {
		if v <= 0 {
			return d
		}
		return v
	}
	return Timeouts{
		Read:       pick(t.Read, DefaultTimeouts.Read),
		ReadHeader: pick(t.ReadHeader, DefaultTimeouts.ReadHeader),
		Write:      pick(t.Write, DefaultTimeouts.Write),
		Idle:       pick(t.Idle, DefaultTimeouts.Idle),
		Shutdown:   pick(t.Shutdown, DefaultTimeouts.Shutdown),
	}
}

// Serve listens on bind until ctx is done, then drains in-flight requests.
// A clean shutdown returns nil.
func Serve(ctx context.Context, bind string, handler http.Handler) error {
	lis, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	return ServeListener(ctx, lis, handler, Timeouts{})
}

// ServeListener is Serve over an existing listener, which it takes ownership of.
func ServeListener(ctx context.Context, lis net.Listener, handler http.Handler, timeouts Timeouts) error {
	timeouts = timeouts.orDefault()
	server := http.Server{
		Handler:           handler,
		Addr:              lis.Addr().String(),
		ReadTimeout:       timeouts.Read,
		WriteTimeout:      timeouts.Write,
		ReadHeaderTimeout: timeouts.ReadHeader,
		IdleTimeout:       timeouts.Idle,
		BaseContext: func(net.Listener) context.Context {
			// keeps the process logger reachable from every request
			return logutil.WithLogger(context.Background(), logutil.GetOrDefault(ctx))
		},
	}
	err := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, &server, lis, timeouts.Shutdown, err, done)
	<-done
	return <-err
}

func serveInBackground(ctx context.Context, server *http.Server, lis net.Listener, grace time.Duration, firstErr chan<- error, done chan<- struct{}) {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", server.Addr).Logger()
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer close(firstErr)
		log.Info().Msg("Starting HTTP server")
		err := server.Serve(lis)
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			// shutdown called,
			// ignore the error
			return
		} else if err != nil {
			select {
			case firstErr <- err:
			default:
			}
			return
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), grace)
		defer cancelShutdown()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Warn().Err(err).Msg("Shutdown did not complete in time, dropping connections")
			server.Close()
		}
		log.Info().Msg("Shutdown completed")
	}
}
