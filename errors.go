/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

// Error is a workaround to allow for immutable error strings
// which satisfy the error interface.
type Error string

func (err Error) Error() string {
	return string(err)
}

func (err Error) String() string {
	return string(err)
}

// Parser errors. Any of these surfaces to the peer as the literal
// "Error: Invalid command." notice; the connection stays up.
const (
	ErrEmptyMessage  Error = "empty message"
	ErrDataTooLong   Error = "message exceeds maximum length"
	ErrWhitespace    Error = "leading whitespace"
	ErrBadPrefix     Error = "malformed message prefix"
	ErrEmptyCommand  Error = "missing command"
	ErrTooManyParams Error = "too many parameters"
	ErrDoubleSpace   Error = "double space between parameters"
)

// Channel admission errors, mapped to numerics by the JOIN handler.
const (
	ErrInviteOnly  Error = "channel is invite-only"
	ErrChannelKey  Error = "incorrect channel key"
	ErrChannelFull Error = "channel is full"
)

// Server lifecycle errors.
const (
	// ErrServerClosed is returned by ListenAndServe after an orderly
	// shutdown.
	ErrServerClosed Error = "irc: server closed"

	// ErrEmptyPassword is returned by NewServer when no connection
	// password was configured.
	ErrEmptyPassword Error = "irc: connection password must not be empty"
)
