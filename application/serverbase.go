package application

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// MaxRequestSize bounds the size of a single request message.
const MaxRequestSize = 64 << 10

// A ServerAddress describes a server's connection.
// It supports two types of connections: a TCP connection ("tcp")
// and a Unix socket connection ("unix").
//
// Additionally, TCP connections must use TLS for added security,
// and each is required to specify a TLS certificate and corresponding
// private key.
type ServerAddress struct {
	// Address is formatted as a url: scheme://address.
	Address string `toml:"address"`
	// TLSCertPath is a path to the server's TLS Certificate,
	// which has to be set if the connection is TCP.
	TLSCertPath string `toml:"cert,omitempty"`
	// TLSKeyPath is a path to the server's TLS private key,
	// which has to be set if the connection is TCP.
	TLSKeyPath string `toml:"key,omitempty"`
}

// A Handler answers one decoded verification request.
type Handler func(req *Request) *Response

// A ServerBase represents the base features needed to implement
// a verification server. It wraps a Handler with a network layer which
// handles requests/responses and their encoding/decoding, and supports
// concurrent handling of requests.
//
// Requests are handled under the read lock; reloads take the write lock,
// so a handler never observes a half-reloaded configuration.
type ServerBase struct {
	Verb string

	logger *Logger
	sync.RWMutex

	stop          chan struct{}
	stopOnce      sync.Once
	waitStop      sync.WaitGroup
	waitCloseConn sync.WaitGroup

	configFilePath string
	configEncoding string
	reloadChan     chan os.Signal
}

// NewServerBase creates a new generic server base.
func NewServerBase(conf *CommonConfig, listenVerb string) (*ServerBase, error) {
	logger, err := NewLogger(conf.Logger)
	if err != nil {
		return nil, err
	}
	sb := new(ServerBase)
	sb.Verb = listenVerb
	sb.logger = logger
	sb.stop = make(chan struct{})
	sb.configFilePath = conf.Path
	sb.configEncoding = conf.Encoding
	sb.reloadChan = make(chan os.Signal, 1)
	signal.Notify(sb.reloadChan, syscall.SIGUSR2)
	return sb, nil
}

// ListenAndHandle listens at the given server address and answers every
// request with reqHandler until Shutdown is called.
// It returns an error if the address cannot be listened on.
func (sb *ServerBase) ListenAndHandle(addr *ServerAddress, reqHandler Handler) error {
	ln, tlsConfig, err := addr.resolveAndListen()
	if err != nil {
		return err
	}
	sb.waitStop.Add(1)
	go func() {
		sb.logger.Info(sb.Verb, "address", addr.Address)
		sb.acceptRequests(ln, tlsConfig, reqHandler)
		sb.waitStop.Done()
	}()
	return nil
}

func (addr *ServerAddress) resolveAndListen() (ln net.Listener,
	tlsConfig *tls.Config, err error) {
	u, err := url.Parse(addr.Address)
	if err != nil {
		return nil, nil, err
	}
	switch u.Scheme {
	case "tcp":
		// force to use TLS
		cer, err := tls.LoadX509KeyPair(addr.TLSCertPath, addr.TLSKeyPath)
		if err != nil {
			return nil, nil, err
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cer}}
		tcpaddr, err := net.ResolveTCPAddr(u.Scheme, u.Host)
		if err != nil {
			return nil, nil, err
		}
		ln, err = net.ListenTCP(u.Scheme, tcpaddr)
		if err != nil {
			return nil, nil, err
		}
		return ln, tlsConfig, nil
	case "unix":
		unixaddr, err := net.ResolveUnixAddr(u.Scheme, u.Path)
		if err != nil {
			return nil, nil, err
		}
		ln, err = net.ListenUnix(u.Scheme, unixaddr)
		if err != nil {
			return nil, nil, err
		}
		return ln, nil, nil
	default:
		return nil, nil, fmt.Errorf("Unknown network type %q", u.Scheme)
	}
}

func (sb *ServerBase) acceptRequests(ln net.Listener, tlsConfig *tls.Config,
	handler Handler) {
	defer ln.Close()
	go func() {
		<-sb.stop
		if l, ok := ln.(interface {
			SetDeadline(time.Time) error
		}); ok {
			l.SetDeadline(time.Now())
		}
	}()

	for {
		select {
		case <-sb.stop:
			sb.waitCloseConn.Wait()
			return
		default:
		}
		conn, err := ln.Accept()
		if err != nil {
			var opErr *net.OpError
			if errors.As(err, &opErr) && opErr.Timeout() {
				continue
			}
			sb.logger.Error(err.Error())
			continue
		}
		if _, ok := ln.(*net.TCPListener); ok {
			conn = tls.Server(conn, tlsConfig)
		}
		sb.waitCloseConn.Add(1)
		go func() {
			sb.acceptClient(conn, handler)
			sb.waitCloseConn.Done()
		}()
	}
}

func (sb *ServerBase) acceptClient(conn net.Conn, handler Handler) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	var buf bytes.Buffer
	var response *Response
	if _, err := io.CopyN(&buf, conn, MaxRequestSize); err != nil && err != io.EOF {
		sb.logger.Error(err.Error(),
			"address", conn.RemoteAddr().String())
		return
	}

	// unmarshalling
	req, err := UnmarshalRequest(buf.Bytes())
	if err != nil {
		response = NewErrorResponse(err)
	} else {
		sb.RLock()
		response = handler(req)
		sb.RUnlock()
	}
	if response.Status != StatusOkay {
		sb.logger.Warn(response.Reason,
			"address", conn.RemoteAddr().String())
	}

	// marshalling
	res, err := MarshalResponse(response)
	if err != nil {
		sb.logger.Error(err.Error())
		return
	}
	if _, err := conn.Write(res); err != nil {
		sb.logger.Error(err.Error(),
			"address", conn.RemoteAddr().String())
	}
}

// RunInBackground creates a new goroutine that calls function `f`.
// It automatically increments the counter `sync.WaitGroup` of the
// `ServerBase` and calls `Done` when the function execution is finished.
func (sb *ServerBase) RunInBackground(f func()) {
	sb.waitStop.Add(1)
	go func() {
		f()
		sb.waitStop.Done()
	}()
}

// HotReload runs f under the write lock every time the process
// receives SIGUSR2, until Shutdown is called.
func (sb *ServerBase) HotReload(f func()) {
	for {
		select {
		case <-sb.stop:
			return
		case <-sb.reloadChan:
			sb.Reload(f)
		}
	}
}

// Reload runs f under the write lock.
func (sb *ServerBase) Reload(f func()) {
	sb.Lock()
	f()
	sb.Unlock()
}

// Stopped returns a channel that is closed once Shutdown is called.
func (sb *ServerBase) Stopped() <-chan struct{} {
	return sb.stop
}

// Logger returns the server base's logger instance.
func (sb *ServerBase) Logger() *Logger {
	return sb.logger
}

// ConfigInfo returns the server base's config file path and encoding.
func (sb *ServerBase) ConfigInfo() (string, string) {
	return sb.configFilePath, sb.configEncoding
}

// Shutdown closes all of the server's connections and shuts down the server.
// It is safe to call more than once.
func (sb *ServerBase) Shutdown() error {
	sb.stopOnce.Do(func() {
		signal.Stop(sb.reloadChan)
		close(sb.stop)
	})
	sb.waitStop.Wait()
	return nil
}
