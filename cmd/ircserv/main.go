/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	irc "github.com/btnmasher/ircserv"
)

const shutdownGrace = 10 * time.Second

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: ircserv <port> <password>")
		os.Exit(1)
	}

	port, err := strconv.Atoi(os.Args[1])
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprintf(os.Stderr, "ircserv: invalid port: %s\n", os.Args[1])
		os.Exit(1)
	}

	password := os.Args[2]

	mainContext, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	logger := logrus.New()

	server, cfgErr := irc.NewServer(
		irc.WithAddress(fmt.Sprintf(":%d", port)),
		irc.WithHostname("localhost"),
		irc.WithPassword(password),
		irc.WithLogger(logger),
		irc.WithLogLevel(logrus.InfoLevel),
		irc.WithDefaultLogFormatter(),
		irc.WithGracefulShutdown(mainContext, shutdownGrace),
	)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "ircserv: %s\n", cfgErr)
		os.Exit(1)
	}

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, irc.ErrServerClosed) {
			logger.Fatal(fmt.Errorf("failed to start server: %w", err))
		}
	})

	log := logger.WithField("component", "main")
	killSignals := make(chan os.Signal, 1)
	signal.Notify(killSignals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-killSignals
		log.Infof("initializing server shutdown, received signal: %s", sig)
		shutdown()
		sig = <-killSignals
		log.Fatalf("forcefully shutting down server, received signal: %s", sig)
	}()

	wg.Wait()
}
