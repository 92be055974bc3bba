/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btnmasher/ircserv/shared/concurrentmap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	server, err := NewServer(
		WithPassword("secret"),
		WithLogger(logger),
	)
	require.NoError(t, err)

	return server
}

var testAddrSeq int

// newTestConn builds a connection without a backing socket; handlers
// only ever touch the write queue, which the tests drain directly.
func newTestConn(server *Server) *Conn {
	testAddrSeq++
	addr := fmt.Sprintf("127.0.0.1:%d", 40000+testAddrSeq)

	conn := &Conn{
		server:     server,
		remAddr:    addr,
		channels:   concurrentmap.New[string, *Channel](),
		writeQueue: make(chan *bytes.Buffer, 64),
		kill:       make(chan bool, 5),
		heartbeat:  time.NewTimer(time.Hour),
		log:        server.logger.WithField("component", "conn"),
	}
	conn.user = &User{conn: conn}
	conn.user.SetHostname("localhost")

	server.Conns.Set(addr, conn)

	return conn
}

// feed parses each line and runs it through the server router as if
// it had arrived on the connection.
func feed(t *testing.T, conn *Conn, lines ...string) {
	t.Helper()

	for _, line := range lines {
		msg, err := Parse(line)
		require.NoError(t, err)
		conn.server.router.Route(conn, msg)
	}
}

// drainReplies empties the connection's write queue, returning the
// queued frames without their line terminators.
func drainReplies(conn *Conn) []string {
	var lines []string
	for {
		select {
		case buf := <-conn.writeQueue:
			lines = append(lines, strings.TrimRight(buf.String(), CRLF))
			bufPool.Recycle(buf)
		default:
			return lines
		}
	}
}

// register walks the connection through the full handshake and drops
// the welcome burst.
func register(t *testing.T, conn *Conn, nick string) {
	t.Helper()

	feed(t, conn,
		"PASS secret",
		"NICK "+nick,
		fmt.Sprintf("USER %s 0 * :Real Name", nick),
	)

	require.True(t, conn.user.Registered())
	drainReplies(conn)
}

func TestRegistrationSuccess(t *testing.T) {
	server := newTestServer(t)
	conn := newTestConn(server)

	feed(t, conn,
		"PASS secret",
		"NICK alice",
		"USER alice 0 * :Alice A.",
	)

	assert.True(t, conn.user.Authenticated())
	assert.True(t, conn.user.Registered())
	assert.Equal(t, "alice", conn.user.Nick())

	replies := drainReplies(conn)
	require.Len(t, replies, 4)
	for i, code := range []string{"001", "002", "003", "004"} {
		assert.True(t, strings.HasPrefix(replies[i], ":localhost "+code+" alice"), replies[i])
	}
}

func TestRegistrationBadPassword(t *testing.T) {
	server := newTestServer(t)
	conn := newTestConn(server)

	feed(t, conn, "PASS wrong")

	assert.False(t, conn.user.Authenticated())
	replies := drainReplies(conn)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 464 ")

	// Without authentication, NICK is refused with 451.
	feed(t, conn, "NICK alice")
	replies = drainReplies(conn)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 451 ")
	assert.Empty(t, conn.user.Nick())
}

func TestCommandsBeforeRegistration(t *testing.T) {
	server := newTestServer(t)
	conn := newTestConn(server)

	// Authenticated but not registered: channel commands elicit 451
	// and cause no state change.
	feed(t, conn, "PASS secret", "JOIN #dev")

	replies := drainReplies(conn)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 451 ")
	assert.False(t, server.Channels.Exists("#dev"))
}

func TestNickValidationAndCollision(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")

	bob := newTestConn(server)
	feed(t, bob, "PASS secret", "NICK 9bad")
	replies := drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 432 ")

	feed(t, bob, "NICK alice")
	replies = drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 433 ")

	feed(t, bob, "NICK bob")
	assert.Equal(t, "bob", bob.user.Nick())
}

func TestJoinCreatesChannelJoinerIsOperator(t *testing.T) {
	server := newTestServer(t)
	conn := newTestConn(server)
	register(t, conn, "alice")

	feed(t, conn, "JOIN #dev")

	channel, exists := server.Channels.Get("#dev")
	require.True(t, exists)
	assert.True(t, channel.IsMember("alice"))
	assert.True(t, channel.IsOperator("alice"))

	replies := drainReplies(conn)
	require.Len(t, replies, 4)
	assert.Equal(t, ":alice!alice@localhost JOIN #dev", replies[0])
	assert.Contains(t, replies[1], " 331 alice #dev ")
	assert.Equal(t, ":localhost 353 alice = #dev :@alice", replies[2])
	assert.Contains(t, replies[3], " 366 alice #dev ")
}

func TestInviteOnlyGate(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev", "MODE #dev +i")
	drainReplies(alice)

	bob := newTestConn(server)
	register(t, bob, "bob")

	feed(t, bob, "JOIN #dev")
	replies := drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 473 bob #dev ")

	feed(t, alice, "INVITE bob #dev")
	replies = drainReplies(alice)
	require.Len(t, replies, 1)
	assert.Equal(t, ":localhost 341 alice bob #dev", replies[0])

	replies = drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Equal(t, ":alice!alice@localhost INVITE bob #dev", replies[0])

	feed(t, bob, "JOIN #dev")
	channel, _ := server.Channels.Get("#dev")
	assert.True(t, channel.IsMember("bob"))

	// The invite is consumed on admission.
	assert.False(t, channel.IsInvited("bob"))
}

func TestChannelKeyGate(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev", "MODE #dev +k letmein")
	drainReplies(alice)

	bob := newTestConn(server)
	register(t, bob, "bob")

	feed(t, bob, "JOIN #dev")
	replies := drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 475 bob #dev ")

	feed(t, bob, "JOIN #dev letmein")
	channel, _ := server.Channels.Get("#dev")
	assert.True(t, channel.IsMember("bob"))
}

func TestKickRequiresOperator(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev")

	bob := newTestConn(server)
	register(t, bob, "bob")
	feed(t, bob, "JOIN #dev")

	carol := newTestConn(server)
	register(t, carol, "carol")
	feed(t, carol, "JOIN #dev")

	drainReplies(alice)
	drainReplies(bob)
	drainReplies(carol)

	feed(t, carol, "KICK #dev bob")
	replies := drainReplies(carol)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 482 carol #dev ")

	channel, _ := server.Channels.Get("#dev")
	assert.True(t, channel.IsMember("bob"))

	feed(t, alice, "KICK #dev bob :bye")
	assert.False(t, channel.IsMember("bob"))

	replies = drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Equal(t, ":alice!alice@localhost KICK #dev bob :bye", replies[0])
}

func TestPrivmsgDelivery(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev")

	bob := newTestConn(server)
	register(t, bob, "bob")
	feed(t, bob, "JOIN #dev")

	drainReplies(alice)
	drainReplies(bob)

	feed(t, alice, "PRIVMSG #dev :hello there")

	// The sender is excluded from the channel fan-out.
	assert.Empty(t, drainReplies(alice))

	replies := drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Equal(t, ":alice!alice@localhost PRIVMSG #dev :hello there", replies[0])

	// Direct message by nickname.
	feed(t, alice, "PRIVMSG bob :psst")
	replies = drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Equal(t, ":alice!alice@localhost PRIVMSG bob :psst", replies[0])

	feed(t, alice, "PRIVMSG nosuch :hi")
	replies = drainReplies(alice)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 401 alice nosuch ")
}

func TestPrivmsgToNonMemberChannel(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev")
	drainReplies(alice)

	dave := newTestConn(server)
	register(t, dave, "dave")

	feed(t, dave, "PRIVMSG #dev :hi")
	replies := drainReplies(dave)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 404 dave #dev ")
}

func TestNoticeIsSilentOnErrors(t *testing.T) {
	server := newTestServer(t)

	dave := newTestConn(server)
	register(t, dave, "dave")

	feed(t, dave, "NOTICE #nowhere :hi", "NOTICE nosuch :hi")
	assert.Empty(t, drainReplies(dave))
}

func TestModeRoundTrip(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev")
	drainReplies(alice)

	channel, _ := server.Channels.Get("#dev")
	require.False(t, channel.ModeIsSet(ModeInviteOnly))

	feed(t, alice, "MODE #dev +i-i")

	assert.False(t, channel.ModeIsSet(ModeInviteOnly))

	replies := drainReplies(alice)
	require.Len(t, replies, 2)
	assert.Equal(t, ":alice!alice@localhost MODE #dev +i", replies[0])
	assert.Equal(t, ":alice!alice@localhost MODE #dev -i", replies[1])
}

func TestModeQuery(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev", "MODE #dev +tk hunter2", "MODE #dev +l 25")
	drainReplies(alice)

	feed(t, alice, "MODE #dev")
	replies := drainReplies(alice)
	require.Len(t, replies, 1)
	assert.Equal(t, ":localhost 324 alice #dev +tkl hunter2 25", replies[0])
}

func TestModeGrantAndRevokeOperator(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev")

	bob := newTestConn(server)
	register(t, bob, "bob")
	feed(t, bob, "JOIN #dev")

	channel, _ := server.Channels.Get("#dev")

	feed(t, alice, "MODE #dev +o bob")
	assert.True(t, channel.IsOperator("bob"))

	feed(t, alice, "MODE #dev -o bob")
	assert.False(t, channel.IsOperator("bob"))
}

func TestPartReapsEmptyChannel(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev")
	drainReplies(alice)

	feed(t, alice, "PART #dev :gone")
	replies := drainReplies(alice)
	require.Len(t, replies, 1)
	assert.Equal(t, ":alice!alice@localhost PART #dev :gone", replies[0])

	assert.False(t, server.Channels.Exists("#dev"))
	assert.False(t, alice.channels.Exists("#dev"))
}

func TestQuitTearsDownEverywhere(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev")

	bob := newTestConn(server)
	register(t, bob, "bob")
	feed(t, bob, "JOIN #dev")

	drainReplies(alice)
	drainReplies(bob)

	feed(t, alice, "QUIT :bye now")

	replies := drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Equal(t, ":alice!alice@localhost QUIT :bye now", replies[0])

	channel, exists := server.Channels.Get("#dev")
	require.True(t, exists)
	assert.False(t, channel.IsMember("alice"))
	assert.True(t, channel.IsMember("bob"))

	// Bob leaves too; the channel is reaped.
	feed(t, bob, "QUIT")
	assert.False(t, server.Channels.Exists("#dev"))
}

func TestTopicRestriction(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")
	feed(t, alice, "JOIN #dev", "MODE #dev +t", "TOPIC #dev :release day")

	bob := newTestConn(server)
	register(t, bob, "bob")
	feed(t, bob, "JOIN #dev")
	drainReplies(bob)

	feed(t, bob, "TOPIC #dev")
	replies := drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Equal(t, ":localhost 332 bob #dev :release day", replies[0])

	feed(t, bob, "TOPIC #dev :my topic")
	replies = drainReplies(bob)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 482 bob #dev ")

	channel, _ := server.Channels.Get("#dev")
	assert.Equal(t, "release day", channel.Topic())
}

func TestUnknownCommand(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")

	feed(t, alice, "WHOIS alice")
	replies := drainReplies(alice)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], " 421 alice WHOIS ")
}

func TestCapLS(t *testing.T) {
	server := newTestServer(t)
	conn := newTestConn(server)

	feed(t, conn, "CAP LS 302")
	replies := drainReplies(conn)
	require.Len(t, replies, 1)
	assert.Equal(t, ":localhost CAP * LS :", replies[0])
}

func TestPingPong(t *testing.T) {
	server := newTestServer(t)

	alice := newTestConn(server)
	register(t, alice, "alice")

	feed(t, alice, "PING :token123")
	replies := drainReplies(alice)
	require.Len(t, replies, 1)
	assert.Equal(t, ":localhost PONG localhost :token123", replies[0])
}
