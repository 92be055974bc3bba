/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

// Package ircserv implements a password-gated IRC relay server
// speaking the RFC 1459/2812 command subset mainstream clients need
// for registration and channel operations: PASS, NICK, USER, CAP,
// PING, PONG, QUIT, JOIN, PART, PRIVMSG, NOTICE, KICK, INVITE, TOPIC
// and MODE with the i, t, k, l and o channel modes.
//
// The server runs a goroutine per connection: a reader driving the
// framer, parser and router, and a writer draining a bounded queue so
// a slow peer never stalls anyone else. Nickname and channel lookups
// are case-sensitive. Nothing persists across restarts.
//
// A minimal server:
//
//	server, err := ircserv.NewServer(
//		ircserv.WithAddress(":6667"),
//		ircserv.WithPassword("secret"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	log.Fatal(server.ListenAndServe())
package ircserv
