/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btnmasher/ircserv/shared/itempool"
	"github.com/btnmasher/ircserv/shared/pool"
)

// Message represents an IRC protocol message.
// See RFC1459 section 2.3.1.
//
//	<message>  = [':' <prefix> <SPACE> ] <command> <params> <crlf>
//	<prefix>   = <servername> | <nick> [ '!' <user> ] [ '@' <host> ]
//	<command>  = <letter> { <letter> } | <number> <number> <number>
//	<SPACE>    = ' ' { ' ' }
//	<params>   = <SPACE> [ ':' <trailing> | <middle> <params> ]
//
//	<middle>   = <Any *non-empty* sequence of octets not including SPACE
//	              or NUL or CR or LF, the first of which may not be ':'>
//	<trailing> = <Any, possibly *empty*, sequence of octets not including
//	              NUL or CR or LF>
//
//	<crlf>     = CR LF
type Message struct {
	Source   string   `json:"source"`   // The prefix of the message, without the leading colon.
	Command  string   `json:"command"`  // The IRC string command of the message.
	Code     uint16   `json:"code"`     // The IRC numeric code of the message.
	Params   []string `json:"params"`   // The middle parameters of the message.
	Trailing string   `json:"trailing"` // The trailing parameter, without the leading colon.

	// EmptyTrailing forces rendering of the trailing colon when
	// Trailing is empty, and marks parsed messages which carried an
	// explicit empty trailing parameter.
	EmptyTrailing bool `json:"-"`
}

// String constants for constructing the message
const (
	SPACE  string = " "
	CRLF          = "\r\n"
	COLON         = ":"
	EMPTY         = ""
	PADNUM        = "%03d"
)

// MessagePoolMax sets the message pool buffer length.
const MessagePoolMax = 1000

// msgPool holds a reference to the global Message object pool.
var msgPool = itempool.New[*Message](MessagePoolMax, func() *Message { return &Message{} })

// bufPool holds a reference to the global bytes.Buffer pool used
// for rendered frames.
var bufPool = pool.New[*bytes.Buffer](func() *bytes.Buffer { return new(bytes.Buffer) })

// String returns the IRC-formatted string version of a message object.
// This is here to satisfy a Stringer interface.
func (msg *Message) String() string {
	return msg.Render()
}

// RenderBuffer returns the IRC-formatted byte buffer version of a
// message object, terminated with CRLF. The buffer comes from the
// global buffer pool; whoever consumes it recycles it.
func (msg *Message) RenderBuffer() *bytes.Buffer {
	buffer := bufPool.New()

	if msg.Source != EMPTY {
		buffer.WriteString(COLON)
		buffer.WriteString(msg.Source)
		buffer.WriteString(SPACE)
	}

	if msg.Code > 0 {
		buffer.WriteString(fmt.Sprintf(PADNUM, msg.Code))
	} else if msg.Command != EMPTY {
		buffer.WriteString(msg.Command)
	}

	if len(msg.Params) > 0 {
		buffer.WriteString(SPACE)
		buffer.WriteString(strings.Join(msg.Params, SPACE))
	}

	if msg.Trailing != EMPTY || msg.EmptyTrailing {
		buffer.WriteString(SPACE)
		buffer.WriteString(COLON)
		buffer.WriteString(msg.Trailing)
	}

	buffer.WriteString(CRLF)

	return buffer
}

// Render returns the IRC-formatted string version of a message object.
func (msg *Message) Render() string {
	buffer := msg.RenderBuffer()
	rendered := buffer.String()
	bufPool.Recycle(buffer)
	return rendered
}

// Debug prints a message object to a string with verbose information
// about the object fields.
func (msg *Message) Debug() string {
	data, _ := json.Marshal(msg) // Ignoring the error because it literally can't happen.
	return string(data)
}

// Scrub wipes the message state so the object can be recycled.
func (msg *Message) Scrub() {
	msg.Source = EMPTY
	msg.Command = EMPTY
	msg.Code = 0
	msg.Params = nil
	msg.Trailing = EMPTY
	msg.EmptyTrailing = false
}
