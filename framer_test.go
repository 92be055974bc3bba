/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader yields at most chunk bytes per Read call so the
// scanner sees the stream split at arbitrary boundaries.
type chunkedReader struct {
	data  string
	chunk int
	pos   int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}

	n := r.chunk
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}

	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func scanAll(t *testing.T, reader io.Reader) []string {
	t.Helper()

	scanner := bufio.NewScanner(reader)
	scanner.Split(ScanMessages)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())

	return lines
}

func TestScanMessagesTerminators(t *testing.T) {
	stream := "PASS secret\r\nNICK alice\nUSER alice 0 * :Alice A.\r\n"

	lines := scanAll(t, strings.NewReader(stream))

	assert.Equal(t, []string{
		"PASS secret",
		"NICK alice",
		"USER alice 0 * :Alice A.",
	}, lines)
}

// A byte stream split at arbitrary boundaries must yield the same
// sequence of messages as the concatenated stream.
func TestScanMessagesArbitraryChunking(t *testing.T) {
	stream := "PASS secret\r\nNICK alice\r\nJOIN #dev\nPRIVMSG #dev :hello there\r\nQUIT :bye\r\n"

	expected := scanAll(t, strings.NewReader(stream))
	require.Len(t, expected, 5)

	for chunk := 1; chunk <= len(stream); chunk++ {
		lines := scanAll(t, &chunkedReader{data: stream, chunk: chunk})
		assert.Equalf(t, expected, lines, "chunk size %d", chunk)
	}
}

func TestScanMessagesDiscardsUnterminatedTail(t *testing.T) {
	stream := "PASS secret\r\nNICK ali"

	lines := scanAll(t, strings.NewReader(stream))

	assert.Equal(t, []string{"PASS secret"}, lines)
}

func TestScanMessagesEmptyLine(t *testing.T) {
	lines := scanAll(t, strings.NewReader("\r\nPING :token\r\n"))

	assert.Equal(t, []string{"", "PING :token"}, lines)
}
