/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

// IRC command strings as matched by the router after the parser
// has uppercased the command token.
const (
	// Registration
	CmdPass = "PASS"
	CmdNick = "NICK"
	CmdUser = "USER"
	CmdCap  = "CAP"
	CmdQuit = "QUIT"

	// Liveness
	CmdPing = "PING"
	CmdPong = "PONG"

	// Channels
	CmdJoin   = "JOIN"
	CmdPart   = "PART"
	CmdKick   = "KICK"
	CmdInvite = "INVITE"
	CmdTopic  = "TOPIC"
	CmdMode   = "MODE"

	// Messaging
	CmdPrivMsg = "PRIVMSG"
	CmdNotice  = "NOTICE"

	// Server originated
	CmdError = "ERROR"
)
