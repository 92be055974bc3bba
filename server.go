/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/btnmasher/ircserv/shared/concurrentmap"
)

// ServerVersion is reported in the welcome burst.
const ServerVersion = "ircserv-1.0"

// Server holds the state of an IRC server instance.
//
// The server exclusively owns every connection (keyed by remote
// address) and every channel (keyed by name, case-sensitively, as the
// protocol this server speaks compares them). The nickname registry
// is the single authority for nick uniqueness and for resolving a
// nickname to a live user during channel fan-out.
type Server struct {
	sync.RWMutex

	// Configuration related stuff
	listenAddr string
	hostname   string
	network    string
	password   string

	created time.Time

	logger *logrus.Logger
	log    *logrus.Entry

	// Active State
	Nicks    concurrentmap.ConcurrentMap[string, *User]
	Conns    concurrentmap.ConcurrentMap[string, *Conn]
	Channels concurrentmap.ConcurrentMap[string, *Channel]

	router *Router

	listener   net.Listener
	inShutdown atomic.Bool

	shutdownCtx   context.Context
	shutdownGrace time.Duration
}

// NewServer initializes and returns a new instance of a Server
// configured with the given options.
func NewServer(options ...Option) (*Server, error) {
	server := &Server{
		created:  time.Now(),
		Nicks:    concurrentmap.New[string, *User](),
		Conns:    concurrentmap.New[string, *Conn](),
		Channels: concurrentmap.New[string, *Channel](),
	}

	for _, opt := range options {
		if err := opt(server); err != nil {
			return nil, err
		}
	}

	if server.logger == nil {
		server.logger = logrus.New()
	}
	server.log = server.logger.WithField("component", "server")

	if server.password == "" {
		return nil, ErrEmptyPassword
	}

	if server.hostname == "" {
		server.hostname = "localhost"
	}

	server.router = server.newRouter()

	return server, nil
}

// Address returns the configured listen address of the server in a
// concurrency-safe manner.
func (server *Server) Address() string {
	server.RLock()
	defer server.RUnlock()

	if len(server.listenAddr) < 1 {
		if server.listener != nil {
			return server.listener.Addr().String()
		}
		return ""
	}
	return server.listenAddr
}

// Hostname returns the configured hostname of the server in a
// concurrency-safe manner.
func (server *Server) Hostname() string {
	server.RLock()
	defer server.RUnlock()

	return server.hostname
}

// Network returns the configured network name of the server in a
// concurrency-safe manner.
func (server *Server) Network() string {
	server.RLock()
	defer server.RUnlock()

	if len(server.network) < 1 {
		return server.hostname
	}
	return server.network
}

// Password returns the configured connection password of the server
// in a concurrency-safe manner.
func (server *Server) Password() string {
	server.RLock()
	defer server.RUnlock()

	return server.password
}

// Created returns the time the server instance was configured.
func (server *Server) Created() time.Time {
	server.RLock()
	defer server.RUnlock()

	return server.created
}

// ListenAndServe listens on the configured TCP network address and
// then calls Serve to handle the connections.
// Accepted connections are configured to enable TCP keep-alives.
//
// If no address is configured, ":6667" is used.
//
// ListenAndServe always returns a non-nil error. After an orderly
// shutdown the error is ErrServerClosed.
func (server *Server) ListenAndServe() error {
	addr := server.Address()
	if addr == "" {
		addr = ":6667"
	}

	listen, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("irc: failed to acquire listen address: %w", err)
	}

	server.Lock()
	server.listener = listen
	server.Unlock()

	if server.shutdownCtx != nil {
		go server.awaitShutdown()
	}

	return server.Serve(tcpKeepAliveListener{listen.(*net.TCPListener)})
}

// Serve starts an IRC server which listens for connections on the
// given net.Listener, accepts them when they arrive, then assigns
// them to a new instance of Conn.
func (server *Server) Serve(listen net.Listener) error {
	defer listen.Close()

	server.log.Infof("irc: starting IRC server listener at local address [%s]", listen.Addr())

	var tempDelay time.Duration // how long to sleep on accept failure

	for {
		sock, err := listen.Accept()

		if err != nil {
			if server.shuttingDown() {
				return ErrServerClosed
			}

			if neterr, ok := err.(net.Error); ok && neterr.Temporary() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}

				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}

				server.log.Errorf("irc: error accepting connection: %v; retrying in %v", err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}

			return err
		}

		tempDelay = 0

		if server.Conns.Length() >= MaxUsers {
			server.log.Warnf("irc: refusing connection from [%s]: server is full", sock.RemoteAddr())
			sock.Write([]byte("ERROR :Server is full." + CRLF))
			sock.Close()
			continue
		}

		conn := NewConn(server, sock)
		go serve(conn)
	}
}

func (server *Server) shuttingDown() bool {
	return server.inShutdown.Load()
}

func (server *Server) awaitShutdown() {
	<-server.shutdownCtx.Done()
	server.Shutdown()
}

// Shutdown performs the controlled shutdown: the listener stops
// accepting, every peer is told the server is going away, writers get
// a bounded grace window to flush, then every socket is closed.
func (server *Server) Shutdown() {
	if !server.inShutdown.CompareAndSwap(false, true) {
		return
	}

	server.log.Info("irc: shutting down")

	server.RLock()
	listener := server.listener
	grace := server.shutdownGrace
	server.RUnlock()

	if listener != nil {
		listener.Close()
	}

	server.Conns.ForEach(func(_ string, conn *Conn) error {
		msg := msgPool.New()
		msg.Source = server.Hostname()
		msg.Command = CmdError
		msg.Trailing = "Server shutting down."
		conn.Write(msg.RenderBuffer())
		msgPool.Recycle(msg)
		return nil
	})

	if grace > time.Second {
		grace = time.Second
	}
	time.Sleep(grace)

	server.Conns.ForEach(func(_ string, conn *Conn) error {
		conn.quit("Server shutting down.")
		conn.sock.Close()
		return nil
	})
}

// removeEverywhere scrubs the user's nickname from every channel's
// member, operator and invite sets, broadcasting the given notice to
// channels the user was a member of, then reaps emptied channels.
func (server *Server) removeEverywhere(user *User, notice *Message) {
	nick := user.Nick()

	for _, channel := range server.Channels.Values() {
		if channel.IsMember(nick) {
			channel.Send(notice, nick)
		}

		channel.Forget(nick)
		server.reapIfEmpty(channel)
	}
}

// reapIfEmpty drops the channel from the channel table once its
// membership has fallen to zero.
func (server *Server) reapIfEmpty(channel *Channel) {
	if channel.Len() == 0 {
		server.Channels.Delete(channel.Name())
		server.log.Debugf("irc: reaped empty channel %s", channel.Name())
	}
}

// tcpKeepAliveListener sets TCP keep-alive timeouts on accepted
// connections so dead TCP connections (e.g. closing laptop
// mid-download) eventually go away.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (listen tcpKeepAliveListener) Accept() (net.Conn, error) {
	conn, err := listen.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn.SetKeepAlive(true)
	conn.SetKeepAlivePeriod(KeepAliveTimeout)
	return conn, nil
}
