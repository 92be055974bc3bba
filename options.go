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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/btnmasher/ircserv/shared/logfmt"
)

// Option configures a Server during NewServer.
type Option func(*Server) error

// WithAddress sets the TCP listen address, e.g. ":6667".
func WithAddress(addr string) Option {
	return func(server *Server) error {
		server.listenAddr = addr
		return nil
	}
}

// WithHostname sets the server name used as the source of numeric
// replies and in the welcome burst.
func WithHostname(host string) Option {
	return func(server *Server) error {
		if host == "" {
			return fmt.Errorf("irc: hostname must not be empty")
		}
		server.hostname = host
		return nil
	}
}

// WithNetwork sets the advertised network name.
func WithNetwork(name string) Option {
	return func(server *Server) error {
		server.network = name
		return nil
	}
}

// WithPassword sets the connection password every peer must supply
// via PASS before registering.
func WithPassword(password string) Option {
	return func(server *Server) error {
		if password == "" {
			return ErrEmptyPassword
		}
		server.password = password
		return nil
	}
}

// WithLogger sets the logger used by all server components.
func WithLogger(logger *logrus.Logger) Option {
	return func(server *Server) error {
		if logger == nil {
			return fmt.Errorf("irc: logger must not be nil")
		}
		server.logger = logger
		return nil
	}
}

// WithLogLevel sets the level on the configured logger, creating a
// default logger when none was supplied yet.
func WithLogLevel(level logrus.Level) Option {
	return func(server *Server) error {
		if server.logger == nil {
			server.logger = logrus.New()
		}
		server.logger.SetLevel(level)
		return nil
	}
}

// WithDefaultLogFormatter installs the logfmt console formatter on the
// configured logger, creating a default logger when none was supplied
// yet.
func WithDefaultLogFormatter() Option {
	return func(server *Server) error {
		if server.logger == nil {
			server.logger = logrus.New()
		}
		server.logger.SetFormatter(logfmt.New(
			logfmt.WithFieldsOrder("component", "command", "peer"),
			logfmt.TrimMessages(true),
		))
		return nil
	}
}

// WithGracefulShutdown arranges for the server to perform a controlled
// shutdown when ctx is canceled, bounded by the given grace period.
func WithGracefulShutdown(ctx context.Context, grace time.Duration) Option {
	return func(server *Server) error {
		if ctx == nil {
			return fmt.Errorf("irc: shutdown context must not be nil")
		}
		server.shutdownCtx = ctx
		server.shutdownGrace = grace
		return nil
	}
}
