/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"regexp"
	"strings"
)

// prefixPattern matches the RFC 1459 prefix grammar: a servername, or a
// nick with optional !user@host.
var prefixPattern = regexp.MustCompile("^(?:[A-Za-z\\[\\]\\\\`_^{|}][-A-Za-z0-9\\[\\]\\\\`_^{|}]*(?:![^@ ]+@[^ ]+)?|[A-Za-z0-9.-]+)$")

// Parse takes one framed IRC line into a message object. The message
// comes from the global pool; the router recycles it after dispatch.
//
// A trailing CRLF or LF is tolerated so callers may hand over raw
// lines, but the framer normally consumes the terminator. Length is
// judged against the wire limit including the terminator.
func Parse(data string) (*Message, error) {
	data = strings.TrimRight(data, CRLF)

	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}

	if len(data) > MaxMsgLength-len(CRLF) {
		return nil, ErrDataTooLong
	}

	if data[0] == ' ' || data[0] == '\t' {
		return nil, ErrWhitespace
	}

	msg := msgPool.New()
	pos := 0

	if data[0] == ':' {
		space := strings.IndexByte(data, ' ')
		if space < 0 {
			msgPool.Recycle(msg)
			return nil, ErrBadPrefix
		}

		prefix := data[1:space]
		if !prefixPattern.MatchString(prefix) {
			msgPool.Recycle(msg)
			return nil, ErrBadPrefix
		}

		msg.Source = prefix
		pos = space + 1

		if pos >= len(data) {
			msgPool.Recycle(msg)
			return nil, ErrEmptyCommand
		}
		if data[pos] == ' ' {
			msgPool.Recycle(msg)
			return nil, ErrDoubleSpace
		}
	}

	if space := strings.IndexByte(data[pos:], ' '); space < 0 {
		msg.Command = strings.ToUpper(data[pos:])
		pos = len(data)
	} else {
		msg.Command = strings.ToUpper(data[pos : pos+space])
		pos += space + 1
	}

	for pos < len(data) {
		if data[pos] == ' ' {
			msgPool.Recycle(msg)
			return nil, ErrDoubleSpace
		}

		if data[pos] == ':' {
			msg.Trailing = data[pos+1:]
			msg.EmptyTrailing = msg.Trailing == EMPTY
			break
		}

		if len(msg.Params) == MaxMsgParams-1 {
			msgPool.Recycle(msg)
			return nil, ErrTooManyParams
		}

		if space := strings.IndexByte(data[pos:], ' '); space < 0 {
			msg.Params = append(msg.Params, data[pos:])
			pos = len(data)
		} else {
			msg.Params = append(msg.Params, data[pos:pos+space])
			pos += space + 1
		}
	}

	return msg, nil
}
