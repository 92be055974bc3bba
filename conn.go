/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"bufio"
	"bytes"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/btnmasher/random"
	"github.com/sirupsen/logrus"

	"github.com/btnmasher/ircserv/shared/concurrentmap"
)

// KeepAliveTimeout sets the read timeout duration on the client IRC connections.
const KeepAliveTimeout time.Duration = 2 * time.Minute

// WriteTimeout sets the write timeout duration on the client IRC connections.
const WriteTimeout time.Duration = 5 * time.Second

// PingTimeout sets the PING/PONG timeout duration on the client IRC connections.
const PingTimeout time.Duration = 30 * time.Second

// WriteQueueLength sets the length of each connection's write queue channel.
// Frames offered to a full queue are dropped so a slow peer never stalls
// the sender.
const WriteQueueLength = 10

// maxScanBuffer bounds the framer's accumulation buffer. A peer that
// streams this much without a line terminator is disconnected.
const maxScanBuffer = 64 * 1024

// Conn represents the server side of an IRC connection.
type Conn struct {
	sync.RWMutex

	// server is the server on which the connection arrived.
	// Immutable; never nil.
	server *Server

	sock    net.Conn
	remAddr string

	user *User

	// channels the user is currently joined to, keyed by channel name.
	channels concurrentmap.ConcurrentMap[string, *Channel]

	incoming *bufio.Scanner
	outgoing *bufio.Writer

	writeQueue chan *bytes.Buffer

	heartbeat    *time.Timer
	lastPingSent string
	lastPingRecv string

	kill     chan bool
	quitOnce sync.Once

	closing       bool
	timeoutForced bool

	log *logrus.Entry
}

// NewConn initializes a new instance of Conn.
func NewConn(server *Server, sock net.Conn) *Conn {
	conn := &Conn{
		server:     server,
		sock:       sock,
		heartbeat:  time.NewTimer(PingTimeout),
		channels:   concurrentmap.New[string, *Channel](),
		incoming:   bufio.NewScanner(sock),
		outgoing:   bufio.NewWriter(sock),
		writeQueue: make(chan *bytes.Buffer, WriteQueueLength),
		kill:       make(chan bool, 5),
		log:        server.logger.WithField("component", "conn"),
	}
	conn.incoming.Split(ScanMessages)
	conn.incoming.Buffer(make([]byte, 0, MaxMsgLength), maxScanBuffer)
	conn.user = &User{
		conn: conn,
	}
	return conn
}

func serve(conn *Conn) {
	defer conn.cleanup()

	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			conn.log.Errorf("irc: panic serving [%s]: %v\n%s", conn.remAddr, err, buf)
			conn.quit("Server Error.")
		}

		conn.sock.Close()
	}()

	conn.start()

	go conn.writeLoop() // Runs until conn.kill channel is signaled
	conn.readLoop()     // Blocks until error or quit
	conn.log.Debugf("irc: read loop exited for [%s]", conn.remAddr)
}

func (conn *Conn) start() {
	conn.Lock()
	defer conn.Unlock()

	// This can block until the address is acquired, so just wait.
	conn.remAddr = conn.sock.RemoteAddr().String()
	conn.log = conn.log.WithField("peer", conn.remAddr)

	// The user-visible hostmask hides the peer address.
	conn.user.SetHostname("localhost")

	conn.log.Debug("irc: got new connection")

	conn.server.Conns.Set(conn.remAddr, conn)
}

func (conn *Conn) readLoop() {
	for {
		conn.setReadDeadline()

		if !conn.incoming.Scan() { // Will block here until there is a read or a timeout.
			if err := conn.incoming.Err(); err != nil {
				if neterr, ok := err.(net.Error); ok && neterr.Timeout() {
					if !conn.forced() {
						conn.log.Info("irc: connection timed out")
						conn.quit("Connection timeout.")
					}
				} else {
					conn.log.Errorf("irc: read error: %s", err)
					conn.quit("Read error.")
				}
			} else {
				conn.quit("Client closed connection.")
			}

			return
		}

		data := conn.incoming.Text()
		conn.log.Debugf("irc: [%s]->[SERVER]: %s", conn.remAddr, data)

		msg, err := Parse(data)
		if err != nil {
			conn.log.Warnf("irc: dropping unparseable message: %s", err)
			conn.sendRaw("Error: Invalid command.")
			continue
		}

		conn.heartbeat.Reset(PingTimeout)

		conn.server.router.Route(conn, msg)

		if conn.quitting() {
			return
		}
	}
}

func (conn *Conn) writeLoop() {
	for {
		select {
		case <-conn.kill:
			conn.log.Debug("irc: kill signal received in write loop, closing goroutine")
			conn.forceTimeout()
			return

		case buf := <-conn.writeQueue:
			conn.write(buf)

		case <-conn.heartbeat.C:
			conn.doHeartbeat()
		}
	}
}

// Write hands a rendered frame over to the write loop. Frames beyond
// the wire limit, and frames offered while the queue is full, are
// dropped.
func (conn *Conn) Write(buffer *bytes.Buffer) {
	if buffer.Len() > MaxMsgLength {
		conn.log.Error("irc: dropping overlong outbound frame")
		bufPool.Recycle(buffer)
		return
	}

	select {
	case conn.writeQueue <- buffer:
	default:
		conn.log.Warn("irc: write queue full, dropping frame")
		bufPool.Recycle(buffer)
	}
}

func (conn *Conn) write(buffer *bytes.Buffer) {
	defer bufPool.Recycle(buffer)

	conn.setWriteDeadline()

	if _, err := conn.outgoing.Write(buffer.Bytes()); err != nil {
		conn.log.Errorf("irc: error writing to socket: %s", err)
		conn.quit("Socket Error.")
		return
	}

	if err := conn.outgoing.Flush(); err != nil {
		conn.log.Errorf("irc: error flushing socket: %s", err)
		conn.quit("Socket Error.")
		return
	}
}

// sendRaw queues a bare CRLF-terminated line, bypassing the message
// renderer. Used for the parser's "Error: Invalid command." notice.
func (conn *Conn) sendRaw(text string) {
	buffer := bufPool.New()
	buffer.WriteString(text)
	buffer.WriteString(CRLF)
	conn.Write(buffer)
}

func (conn *Conn) doHeartbeat() {
	conn.Lock()

	if conn.lastPingRecv != conn.lastPingSent {
		conn.heartbeat.Stop()
		conn.log.Debugf("irc: ping timeout: sent %q, received %q", conn.lastPingSent, conn.lastPingRecv)
		conn.Unlock()
		conn.quit("Connection timeout.")
		return
	}

	token := random.String(10)
	conn.lastPingSent = token
	conn.heartbeat.Reset(PingTimeout)
	conn.Unlock()

	msg := msgPool.New()
	msg.Command = CmdPing
	msg.Trailing = token
	conn.Write(msg.RenderBuffer())
	msgPool.Recycle(msg)
}

// quit tears down the user's presence exactly once: the QUIT notice is
// echoed to the peer, broadcast to every channel the user is joined
// to, the user is forgotten by every channel, and emptied channels are
// reaped. The write loop is then signaled to stop, which in turn
// forces the read loop out of its blocking read.
func (conn *Conn) quit(reason string) {
	conn.quitOnce.Do(func() {
		conn.Lock()
		conn.closing = true
		conn.Unlock()

		if reason == EMPTY {
			reason = "Client Quit"
		}

		msg := msgPool.New()
		msg.Source = conn.user.Hostmask()
		msg.Command = CmdQuit
		msg.Trailing = reason

		conn.Write(msg.RenderBuffer())
		conn.server.removeEverywhere(conn.user, msg)
		msgPool.Recycle(msg)

		conn.channels.Clear()
	})

	select {
	case conn.kill <- true:
	default:
	}
}

// quitting reports whether teardown has begun. The read loop checks
// this after every dispatch so no further commands are honored once
// the user has quit.
func (conn *Conn) quitting() bool {
	conn.RLock()
	defer conn.RUnlock()
	return conn.closing
}

// checkRegistration transitions the connection to registered when the
// password has been accepted and both NICK and USER have been supplied,
// then greets the user with the welcome burst.
func (conn *Conn) checkRegistration() {
	user := conn.user

	if !user.Authenticated() || user.Registered() {
		return
	}

	if user.Nick() == EMPTY || user.Name() == EMPTY {
		return
	}

	user.setRegistered(true)
	conn.log.Infof("irc: registered user %s", user.Hostmask())
	conn.ReplyWelcome()
}

func (conn *Conn) cleanup() {
	conn.server.Conns.Delete(conn.remAddr)

	if nick := conn.user.Nick(); nick != EMPTY {
		if owner, ok := conn.server.Nicks.Get(nick); ok && owner == conn.user {
			conn.server.Nicks.Delete(nick)
		}
	}
}

func (conn *Conn) setWriteDeadline() {
	if WriteTimeout != 0 {
		conn.sock.SetWriteDeadline(time.Now().Add(WriteTimeout))
	}
}

func (conn *Conn) setReadDeadline() {
	if KeepAliveTimeout != 0 {
		conn.sock.SetReadDeadline(time.Now().Add(KeepAliveTimeout))
	}
}

func (conn *Conn) forceTimeout() {
	conn.Lock()
	defer conn.Unlock()
	conn.timeoutForced = true
	conn.sock.SetReadDeadline(time.Now().Add(time.Microsecond))
}

func (conn *Conn) forced() bool {
	conn.RLock()
	defer conn.RUnlock()
	return conn.timeoutForced
}

// newMessage returns a pooled message stamped with the server as the
// source, ready for numeric replies.
func (conn *Conn) newMessage() *Message {
	msg := msgPool.New()
	msg.Source = conn.server.Hostname()
	return msg
}
