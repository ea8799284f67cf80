// Package server runs the texcalc accept loop.
//
// The server is strictly sequential. One connection is serviced at a time,
// and the next Accept is issued only after the previous response is written:
//
//	Accept conn → read one frame → middleware chain → Dispatcher.Handle
//	  → encode outcome → write response → close conn → Accept again
//
// A connection that closes early or sends a malformed frame is dropped and the
// loop carries on with the next one.
package server

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"texcalc/dispatch"
	"texcalc/fault"
	"texcalc/listener"
	"texcalc/message"
	"texcalc/middleware"
	"texcalc/protocol"
)

// Server owns a bound listener and a dispatcher.
type Server struct {
	listener    *listener.Listener
	dispatcher  *dispatch.Dispatcher
	framer      protocol.Framer
	exact       bool                    // read requests with ReadFrame instead of ReadBlock
	middlewares []middleware.Middleware // applied in the order added
	handler     middleware.HandlerFunc  // chain built at Serve
	log         *zap.Logger
	shutdown    atomic.Bool // set by Close so Serve can tell a deliberate close from a failure
}

// Options configure a Server.
type Options struct {
	Framer       protocol.Framer
	ExactFraming bool
	Logger       *zap.Logger
}

// NewServer returns a server accepting on ln and dispatching with d.
func NewServer(ln *listener.Listener, d *dispatch.Dispatcher, opts Options) *Server {
	if opts.Framer.HeaderWidth == 0 {
		opts.Framer = protocol.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		listener:   ln,
		dispatcher: d,
		framer:     opts.Framer,
		exact:      opts.ExactFraming,
		log:        opts.Logger,
	}
}

// Use registers a middleware. Middlewares must be added before Serve.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Addr returns the listening address.
func (svr *Server) Addr() net.Addr { return svr.listener.Addr() }

// Dispatcher returns the server's dispatcher.
func (svr *Server) Dispatcher() *dispatch.Dispatcher { return svr.dispatcher }

// Serve accepts and services connections one at a time until ctx ends or
// Close is called, in which case it returns nil, or Accept fails.
func (svr *Server) Serve(ctx context.Context) error {
	svr.handler = middleware.Chain(svr.middlewares...)(svr.dispatcher.Handle)
	stop := context.AfterFunc(ctx, func() { svr.Close() })
	defer stop()
	svr.log.Info("serving", zap.Stringer("addr", svr.listener.Addr()), zap.Bool("exact_framing", svr.exact))

	for {
		svr.log.Debug("waiting for connection")
		conn, err := svr.listener.Accept()
		if err != nil {
			if svr.shutdown.Load() {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		svr.handleConn(ctx, conn)
	}
}

// handleConn runs one request/response exchange on conn and closes it.
func (svr *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	log := svr.log.With(zap.Stringer("peer", conn.RemoteAddr()))
	log.Debug("connected")

	payload, err := svr.receive(conn)
	if err != nil {
		log.Warn("dropping connection", zap.Stringer("kind", fault.KindOf(err)), zap.Error(err))
		return
	}
	log.Debug("received", zap.ByteString("payload", payload))

	out := svr.handler(ctx, &message.Request{Payload: payload})

	frame, err := svr.framer.Encode([]byte(out.Text))
	if err != nil {
		log.Error("response not sent", zap.Stringer("kind", fault.KindOf(err)), zap.Error(err))
		return
	}
	if _, err := conn.Write(frame); err != nil {
		log.Warn("write response", zap.Error(err))
		return
	}
	log.Debug("sent", zap.ByteString("frame", frame))
}

func (svr *Server) receive(conn net.Conn) ([]byte, error) {
	if svr.exact {
		return svr.framer.ReadFrame(conn)
	}
	return svr.framer.ReadBlock(conn)
}

// Close stops the accept loop. An exchange already in progress completes.
func (svr *Server) Close() error {
	svr.shutdown.Store(true)
	return svr.listener.Close()
}
