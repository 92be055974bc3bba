/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"bytes"
	"strings"
	"sync"
)

// User holds all of the identity state in the context of a connected
// peer. A User exists for exactly as long as its connection; the
// server owns it through the connection table and indexes it by
// nickname once one is set.
type User struct {
	sync.RWMutex

	nick string
	name string
	real string
	host string

	authenticated bool
	registered    bool

	conn *Conn
}

// Hostmask returns the string form of the full IRC hostmask.
//
// <nick>!<username>@<hostname>
func (user *User) Hostmask() string {
	user.RLock()
	defer user.RUnlock()
	var buffer bytes.Buffer

	buffer.WriteString(user.nick)
	buffer.WriteString("!")
	buffer.WriteString(user.name)
	buffer.WriteString("@")
	buffer.WriteString(user.host)

	return buffer.String()
}

// Nick returns the nick field of the user in a
// concurrency-safe manner.
func (user *User) Nick() string {
	user.RLock()
	defer user.RUnlock()
	return user.nick
}

// SetNick sets the nick field of the user in a
// concurrency-safe manner.
func (user *User) SetNick(new string) {
	user.Lock()
	defer user.Unlock()
	user.nick = new
}

// Name returns the username field of the user in a
// concurrency-safe manner.
func (user *User) Name() string {
	user.RLock()
	defer user.RUnlock()
	return user.name
}

// SetName sets the username field of the user in a
// concurrency-safe manner.
func (user *User) SetName(new string) {
	user.Lock()
	defer user.Unlock()
	user.name = new
}

// Realname returns the realname field of the user in a
// concurrency-safe manner.
func (user *User) Realname() string {
	user.RLock()
	defer user.RUnlock()
	return user.real
}

// SetRealname sets the realname field of the user in a
// concurrency-safe manner.
func (user *User) SetRealname(new string) {
	user.Lock()
	defer user.Unlock()
	user.real = new
}

// SetHostname sets the hostname field of the user in a
// concurrency-safe manner.
func (user *User) SetHostname(new string) {
	user.Lock()
	defer user.Unlock()
	user.host = new
}

// Authenticated reports whether the connection password has been
// accepted for this user.
func (user *User) Authenticated() bool {
	user.RLock()
	defer user.RUnlock()
	return user.authenticated
}

// SetAuthenticated sets the authenticated flag of the user in a
// concurrency-safe manner.
func (user *User) SetAuthenticated(new bool) {
	user.Lock()
	defer user.Unlock()
	user.authenticated = new
}

// Registered reports whether the user has completed the PASS, NICK
// and USER handshake.
func (user *User) Registered() bool {
	user.RLock()
	defer user.RUnlock()
	return user.registered
}

func (user *User) setRegistered(new bool) {
	user.Lock()
	defer user.Unlock()
	user.registered = new
}

// nickSpecials are the non-alphanumeric bytes RFC 1459 permits in a
// nickname.
const nickSpecials = "[]\\`_^{|}-"

// IsValidNickname reports whether nick satisfies the nickname grammar:
// non-empty, at most MaxNickLength bytes, first byte neither a digit
// nor '-', every byte alphanumeric or one of nickSpecials.
func IsValidNickname(nick string) bool {
	if nick == "" || len(nick) > MaxNickLength {
		return false
	}

	if isDigit(nick[0]) || nick[0] == '-' {
		return false
	}

	for i := 0; i < len(nick); i++ {
		if !isAlnum(nick[i]) && !strings.ContainsRune(nickSpecials, rune(nick[i])) {
			return false
		}
	}

	return true
}

// IsValidUsername reports whether name is non-empty and contains only
// alphanumerics and underscores.
func IsValidUsername(name string) bool {
	if name == "" {
		return false
	}

	for i := 0; i < len(name); i++ {
		if !isAlnum(name[i]) && name[i] != '_' {
			return false
		}
	}

	return true
}

// IsValidRealname reports whether real is non-empty and printable:
// letters, digits, spaces, '.', '-' and '_'.
func IsValidRealname(real string) bool {
	if real == "" {
		return false
	}

	for i := 0; i < len(real); i++ {
		c := real[i]
		if !isAlnum(c) && c != ' ' && c != '.' && c != '-' && c != '_' {
			return false
		}
	}

	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
