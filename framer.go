/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import "bytes"

// ScanMessages is a bufio.SplitFunc which segments the inbound byte
// stream into IRC messages. A message ends at CRLF or at a bare LF;
// the terminator is consumed and not included in the token. Bytes
// left over at EOF with no terminator are discarded, never delivered
// as a message.
//
// Oversized lines are not truncated here; length enforcement is the
// parser's job so the peer gets a reply instead of a silent cut.
func ScanMessages(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, dropCR(data[:i]), nil
	}

	if atEOF {
		return len(data), nil, nil
	}

	// Request more data.
	return 0, nil, nil
}

func dropCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[:len(data)-1]
	}
	return data
}
