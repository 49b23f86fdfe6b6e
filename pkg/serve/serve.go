// Package serve implements the serve subprogram, which runs the demo apps on an
// in-process host and exposes the host over JSON-RPC.
package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"src.frand.dev/pkg/demo"
	"src.frand.dev/pkg/errutil"
	"src.frand.dev/pkg/host"
	"src.frand.dev/pkg/host/memhost"
	"src.frand.dev/pkg/host/rpchost"
	"src.frand.dev/pkg/logutil"
	"src.frand.dev/pkg/model"
	"src.frand.dev/pkg/prog"
	"src.frand.dev/pkg/prop"
	"src.frand.dev/pkg/store"
	"src.frand.dev/pkg/sys"
)

var logger = logutil.GetLogger("[serve] ")

// HostType is the host type the apps are bound to.
const HostType = "memhost"

// Config configures a Server.
type Config struct {
	// Path of the database keeping rows across restarts. Rows are not kept
	// if empty.
	DB string
	// Array length of AdderArray fields.
	PropLen int
}

// Server runs the apps on an in-process host.
type Server struct {
	h     *memhost.Host
	r     *model.Registry
	st    store.DBStore
	tasks []*prop.Task

	wg sync.WaitGroup
}

// NewServer creates a host, binds the models of the apps to it and starts the
// apps. The apps run until Close is called or ctx is done.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	cat, err := demo.NewCatalog(func() int { return cfg.PropLen })
	if err != nil {
		return nil, err
	}
	s := &Server{h: memhost.New()}
	var opts []model.Option
	if cfg.DB != "" {
		s.st, err = store.NewStore(cfg.DB)
		if err != nil {
			s.h.Close()
			return nil, err
		}
		opts = append(opts, model.WithStore(s.st))
	}
	demo.AddGlobals(s.h)
	s.r = model.NewRegistry(cat, opts...)
	s.r.RegisterHost(HostType, func() host.Handle { return s.h })
	s.tasks, err = demo.Start(ctx, s.r, HostType)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Host returns the host of the server.
func (s *Server) Host() *memhost.Host { return s.h }

// ServeConn serves the host on one connection, and returns the connection
// without waiting.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) *jsonrpc2.Conn {
	return rpchost.Serve(ctx, rwc, s.h)
}

// Serve accepts connections on l and serves each with ServeConn. It returns
// when ctx is done or l fails, closing l and all connections.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		logger.Println("accepted connection from", c.RemoteAddr())
		conn := s.ServeConn(ctx, c)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-conn.DisconnectNotify():
			case <-ctx.Done():
				conn.Close()
			}
		}()
	}
}

// Close stops the apps and the host, and closes the database. It must not be
// called before Serve has returned.
func (s *Server) Close() error {
	prop.StopAll(s.tasks)
	s.wg.Wait()
	s.h.Close()
	if s.r != nil {
		s.r.Close()
	}
	if s.st != nil {
		return s.st.Close()
	}
	return nil
}

// Program is the serve subprogram.
type Program struct{}

func (Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	args, err := prog.Command("serve", args)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		return prog.BadUsage("arguments are not allowed with serve")
	}
	if f.PropLen < 0 {
		return prog.BadUsage(fmt.Sprintf("bad -prop-len %d", f.PropLen))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh, stopSignals := sys.NotifyStop()
	defer stopSignals()
	go func() {
		select {
		case sig := <-sigCh:
			logger.Println("stopping on signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	s, err := NewServer(ctx, Config{DB: f.DB, PropLen: f.PropLen})
	if err != nil {
		return err
	}

	if f.Stdio {
		conn := s.ServeConn(ctx, stdio{fds[0], fds[1]})
		select {
		case <-conn.DisconnectNotify():
		case <-ctx.Done():
			conn.Close()
		}
		return s.Close()
	}

	l, err := net.Listen("tcp", f.Listen)
	if err != nil {
		return errutil.Multi(err, s.Close())
	}
	fmt.Fprintln(fds[2], "listening on", l.Addr())
	err = s.Serve(ctx, l)
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return errutil.Multi(err, s.Close())
}

type stdio struct{ in, out *os.File }

func (c stdio) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c stdio) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c stdio) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}
