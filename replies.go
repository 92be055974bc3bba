/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"fmt"

	"github.com/btnmasher/ircserv/shared/stringutils"
)

// nickOrStar returns the reply target for the connection: the user's
// nickname, or "*" before one is assigned.
func (conn *Conn) nickOrStar() string {
	if nick := conn.user.Nick(); nick != EMPTY {
		return nick
	}
	return "*"
}

// reply renders and queues a single numeric reply addressed to the
// connection's user.
func (conn *Conn) reply(code uint16, params []string, trailing string) {
	msg := conn.newMessage()
	defer msgPool.Recycle(msg)

	msg.Code = code
	msg.Params = append([]string{conn.nickOrStar()}, params...)
	msg.Trailing = trailing

	conn.Write(msg.RenderBuffer())
}

// ReplyWelcome greets a freshly registered user with the 001-004
// welcome burst.
func (conn *Conn) ReplyWelcome() {
	server := conn.server
	nick := conn.user.Nick()

	conn.reply(ReplyWelcome, nil, fmt.Sprintf("Welcome to the %s IRC Network %s", server.Network(), nick))
	conn.reply(ReplyYourHost, nil, fmt.Sprintf("Your host is %s, running version %s", server.Hostname(), ServerVersion))
	conn.reply(ReplyCreated, nil, fmt.Sprintf("This server was created %s", server.Created().Format("Mon Jan 2 2006 at 15:04:05 MST")))
	conn.reply(ReplyMyInfo, []string{server.Hostname(), ServerVersion, "o", "itkl"}, EMPTY)
}

// ReplyNeedMoreParams returns numeric 461 for a command issued with
// too few parameters.
func (conn *Conn) ReplyNeedMoreParams(cmd string) {
	conn.reply(ReplyNeedMoreParams, []string{cmd}, "Not enough parameters")
}

// ReplyNotRegistered returns numeric 451 for a command issued before
// the connection finished registering.
func (conn *Conn) ReplyNotRegistered() {
	conn.reply(ReplyNotRegistered, nil, "You have not registered")
}

// ReplyAlreadyRegistered returns numeric 462 for a registration
// command issued after registration.
func (conn *Conn) ReplyAlreadyRegistered() {
	conn.reply(ReplyAlreadyRegistered, nil, "You may not re-register")
}

// ReplyPasswordMismatch returns numeric 464 for a failed PASS.
func (conn *Conn) ReplyPasswordMismatch() {
	conn.reply(ReplyPasswordMismatch, nil, "Password incorrect")
}

// ReplyNoNicknameGiven returns numeric 431.
func (conn *Conn) ReplyNoNicknameGiven() {
	conn.reply(ReplyNoNicknameGiven, nil, "No nickname given")
}

// ReplyErroneousNickname returns numeric 432 for a nickname failing
// validation.
func (conn *Conn) ReplyErroneousNickname(nick string) {
	conn.reply(ReplyErroneusNickname, []string{nick}, "Invalid nickname")
}

// ReplyNicknameInUse returns numeric 433 for a nickname already held
// by another user.
func (conn *Conn) ReplyNicknameInUse(nick string) {
	conn.reply(ReplyNicknameInUse, []string{nick}, "Nickname is already in use")
}

// ReplyInvalidUser returns numeric 468 for a USER parameter failing
// validation; what names the offending field.
func (conn *Conn) ReplyInvalidUser(what string) {
	conn.reply(ReplyInvalidUsername, nil, "Invalid "+what)
}

// ReplyNoSuchNick returns numeric 401.
func (conn *Conn) ReplyNoSuchNick(nick string) {
	conn.reply(ReplyNoSuchNick, []string{nick}, "No such nick")
}

// ReplyNoSuchChan returns numeric 403.
func (conn *Conn) ReplyNoSuchChan(name string) {
	conn.reply(ReplyNoSuchChannel, []string{name}, "No such channel")
}

// ReplyCannotSendToChan returns numeric 404.
func (conn *Conn) ReplyCannotSendToChan(name string) {
	conn.reply(ReplyCannotSendToChan, []string{name}, "Cannot send to channel")
}

// ReplyTooManyChannels returns numeric 405 when a channel cap is hit.
func (conn *Conn) ReplyTooManyChannels(name string) {
	conn.reply(ReplyTooManyChannels, []string{name}, "You have joined too many channels")
}

// ReplyUnknownCommand returns numeric 421.
func (conn *Conn) ReplyUnknownCommand(cmd string) {
	conn.reply(ReplyUnknownCommand, []string{cmd}, "Unknown command")
}

// ReplyUserNotInChannel returns numeric 441.
func (conn *Conn) ReplyUserNotInChannel(nick, name string) {
	conn.reply(ReplyUserNotInChannel, []string{nick, name}, "They aren't on that channel")
}

// ReplyNotOnChannel returns numeric 442.
func (conn *Conn) ReplyNotOnChannel(name string) {
	conn.reply(ReplyNotOnChannel, []string{name}, "You're not on that channel")
}

// ReplyUserOnChannel returns numeric 443.
func (conn *Conn) ReplyUserOnChannel(name string) {
	conn.reply(ReplyUserOnChannel, []string{name}, "is already on channel")
}

// ReplyChanOpNeeded returns numeric 482.
func (conn *Conn) ReplyChanOpNeeded(name string) {
	conn.reply(ReplyChanOpPrivsNeeded, []string{name}, "You're not channel operator")
}

// ReplyChannelFull returns numeric 471.
func (conn *Conn) ReplyChannelFull(name string) {
	conn.reply(ReplyChannelIsFull, []string{name}, "Cannot join channel (+l)")
}

// ReplyInviteOnly returns numeric 473.
func (conn *Conn) ReplyInviteOnly(name string) {
	conn.reply(ReplyInviteOnlyChan, []string{name}, "Cannot join channel (+i)")
}

// ReplyBadChannelKey returns numeric 475.
func (conn *Conn) ReplyBadChannelKey(name string) {
	conn.reply(ReplyBadChannelKey, []string{name}, "Cannot join channel (+k)")
}

// ReplyBadChannelMask returns numeric 476.
func (conn *Conn) ReplyBadChannelMask(name string) {
	conn.reply(ReplyBadChannelName, []string{name}, "Bad Channel Mask")
}

// ReplyNoTopic returns numeric 331.
func (conn *Conn) ReplyNoTopic(channel *Channel) {
	conn.reply(ReplyNoTopic, []string{channel.Name()}, "No topic is set")
}

// ReplyChanTopic returns numeric 332 with the channel topic.
func (conn *Conn) ReplyChanTopic(channel *Channel) {
	conn.reply(ReplyChanTopic, []string{channel.Name()}, channel.Topic())
}

// ReplyInviting returns numeric 341 acknowledging an INVITE.
func (conn *Conn) ReplyInviting(target, name string) {
	conn.reply(ReplyInviting, []string{target, name}, EMPTY)
}

// ReplyChannelModeIs returns numeric 324 with the channel's current
// mode flags and their arguments.
func (conn *Conn) ReplyChannelModeIs(channel *Channel) {
	flags, args := channel.Modes()
	conn.reply(ReplyChannelModeIs, append([]string{channel.Name(), flags}, args...), EMPTY)
}

// ReplyChannelNames returns the names list for the given channel as
// one or more 353 replies followed by a 366 terminator. Operators are
// prefixed with '@'.
func (conn *Conn) ReplyChannelNames(channel *Channel) {
	nick := conn.nickOrStar()
	name := channel.Name()

	// Room left for names after the reply scaffolding.
	overhead := len(conn.server.Hostname()) + len(nick) + len(name) + 16

	for _, line := range stringutils.ChunkJoinStrings(MaxMsgLength-overhead, SPACE, channel.Names()...) {
		conn.reply(ReplyNames, []string{"=", name}, line)
	}

	conn.reply(ReplyEndOfNames, []string{name}, "End of /NAMES list")
}
