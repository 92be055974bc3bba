/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"strings"
)

// All of the command handler functions do not return an error.
// Instead each must process all error conditions relating to the
// command and reply to the user in the way specified by RFC 2812.

// newRouter wires the command table. The registration state machine
// is enforced by the gating middleware: before registration only
// PASS, NICK, USER, QUIT and CAP are honored, and NICK/USER demand an
// accepted PASS first.
func (server *Server) newRouter() *Router {
	router := NewRouter(server.logger.WithField("component", "irc"))

	router.Handle(CmdPass, HandlePass)
	router.Handle(CmdCap, HandleCap)
	router.Handle(CmdQuit, HandleQuit)

	authed := router.Group(requireAuthenticated)
	authed.Handle(CmdNick, HandleNick)
	authed.Handle(CmdUser, HandleUser)

	registered := router.Group(requireAuthenticated, requireRegistered)
	registered.Handle(CmdPing, HandlePing)
	registered.Handle(CmdPong, HandlePong)
	registered.Handle(CmdJoin, HandleJoin)
	registered.Handle(CmdPart, HandlePart)
	registered.Handle(CmdPrivMsg, HandlePrivmsg)
	registered.Handle(CmdNotice, HandleNotice)
	registered.Handle(CmdKick, HandleKick)
	registered.Handle(CmdInvite, HandleInvite)
	registered.Handle(CmdTopic, HandleTopic)
	registered.Handle(CmdMode, HandleMode)

	return router
}

func requireAuthenticated(ctx *MessageContext) {
	if !ctx.Conn.user.Authenticated() {
		ctx.Conn.ReplyNotRegistered()
		ctx.Handled()
	}
}

func requireRegistered(ctx *MessageContext) {
	if !ctx.Conn.user.Registered() {
		ctx.Conn.ReplyNotRegistered()
		ctx.Handled()
	}
}

func enoughParams(msg *Message, expected int) bool {
	return !(len(msg.Params) < expected)
}

// textParam returns the free-text argument of a command: the trailing
// parameter when present, else the middle parameter at index.
func textParam(msg *Message, index int) string {
	if msg.Trailing != EMPTY || msg.EmptyTrailing {
		return msg.Trailing
	}
	if len(msg.Params) > index {
		return msg.Params[index]
	}
	return EMPTY
}

// hasTextParam reports whether a free-text argument was supplied at
// all, counting an explicit empty trailing parameter.
func hasTextParam(msg *Message, index int) bool {
	return msg.Trailing != EMPTY || msg.EmptyTrailing || len(msg.Params) > index
}

// HandlePass processes a PASS command.
//
// The supplied password is compared against the server connection
// password; on a match the connection becomes authenticated and may
// proceed with NICK/USER registration.
//
//	Command: PASS
//	Parameters: <password>
func HandlePass(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	password := textParam(msg, 0)
	if password == EMPTY {
		conn.ReplyNeedMoreParams(CmdPass)
		return
	}

	if conn.user.Authenticated() {
		conn.ReplyAlreadyRegistered()
		return
	}

	if password != conn.server.Password() {
		conn.ReplyPasswordMismatch()
		return
	}

	conn.user.SetAuthenticated(true)
}

// HandleNick processes a NICK command.
//
// The nickname is validated, then claimed in the server registry,
// which is the single authority for nick uniqueness. Claiming the new
// name and releasing the old one keeps the registry consistent for
// pre-registration renames.
//
//	Command: NICK
//	Parameters: <nickname>
func HandleNick(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if conn.user.Registered() {
		conn.ReplyAlreadyRegistered()
		return
	}

	if !enoughParams(msg, 1) {
		conn.ReplyNoNicknameGiven()
		return
	}

	nick := msg.Params[0]

	if !IsValidNickname(nick) {
		conn.ReplyErroneousNickname(nick)
		return
	}

	if nick == conn.user.Nick() {
		return
	}

	if !conn.server.Nicks.SetIfAbsent(nick, conn.user) {
		conn.ReplyNicknameInUse(nick)
		return
	}

	if old := conn.user.Nick(); old != EMPTY {
		conn.server.Nicks.Delete(old)
	}

	conn.user.SetNick(nick)
	conn.checkRegistration()
}

// HandleUser processes a USER command.
//
// The username and realname are validated and assigned; once both
// NICK and USER have been accepted the connection registers and is
// greeted with the welcome burst.
//
//	Command: USER
//	Parameters: <username> <mode> <unused> :<realname>
func HandleUser(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if conn.user.Registered() {
		conn.ReplyAlreadyRegistered()
		return
	}

	realname := textParam(msg, 3)
	if !enoughParams(msg, 3) || realname == EMPTY {
		conn.ReplyNeedMoreParams(CmdUser)
		return
	}

	username := msg.Params[0]

	if !IsValidUsername(username) {
		conn.ReplyInvalidUser("username")
		return
	}

	if !IsValidRealname(realname) {
		conn.ReplyInvalidUser("realname")
		return
	}

	conn.user.SetName(username)
	conn.user.SetRealname(realname)
	conn.checkRegistration()
}

// HandleCap processes the CAP command.
//
// This server negotiates no capabilities; LS and LIST receive an
// empty capability list so modern clients proceed with registration,
// everything else is ignored.
//
//	Command: CAP
//	Parameters: <subcommand> [params...]
func HandleCap(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if !enoughParams(msg, 1) {
		conn.ReplyNeedMoreParams(CmdCap)
		return
	}

	switch strings.ToUpper(msg.Params[0]) {
	case "LS", "LIST":
		reply := conn.newMessage()
		defer msgPool.Recycle(reply)

		reply.Command = CmdCap
		reply.Params = []string{conn.nickOrStar(), "LS"}
		reply.EmptyTrailing = true

		conn.Write(reply.RenderBuffer())
	default:
		// CAP END and anything else require no action.
	}
}

// HandlePing processes a PING command originated from the client.
//
// The server responds with a PONG carrying the matching token.
//
//	Command: PING
//	Parameters: :<token>
func HandlePing(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	token := textParam(msg, 0)
	if token == EMPTY {
		conn.ReplyNeedMoreParams(CmdPing)
		return
	}

	reply := conn.newMessage()
	defer msgPool.Recycle(reply)

	reply.Command = CmdPong
	reply.Params = []string{conn.server.Hostname()}
	reply.Trailing = token

	conn.Write(reply.RenderBuffer())
}

// HandlePong processes a PONG command in reply to a server sent PING.
//
//	Command: PONG
//	Parameters: :<token>
func HandlePong(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	token := textParam(msg, 0)
	if token == EMPTY {
		conn.ReplyNeedMoreParams(CmdPong)
		return
	}

	conn.Lock()
	defer conn.Unlock()
	conn.lastPingRecv = token
}

// HandleQuit processes a QUIT command.
//
// The quit notice is broadcast to every channel the user is joined
// to, the user's presence is torn down everywhere, and the connection
// is scheduled for closure.
//
//	Command: QUIT
//	Parameters: :<reason>
func HandleQuit(ctx *MessageContext) {
	ctx.Conn.quit(textParam(ctx.Msg, 0))
}

// HandleJoin processes a JOIN command.
//
// Multiple channels may be joined at once with parallel keys. Each
// channel is created on demand; the creator of a fresh channel
// receives operator rights. Admission is subject to the channel's
// invite, key and limit gates.
//
//	Command: JOIN
//	Parameters: <channel>{,<channel>} [<key>{,<key>}]
func HandleJoin(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if !enoughParams(msg, 1) {
		conn.ReplyNeedMoreParams(CmdJoin)
		return
	}

	names := strings.Split(msg.Params[0], ",")

	var keys []string
	if enoughParams(msg, 2) {
		keys = strings.Split(msg.Params[1], ",")
	}

	for i, name := range names {
		key := EMPTY
		if i < len(keys) {
			key = keys[i]
		}
		joinChannel(conn, name, key)
	}
}

func joinChannel(conn *Conn, name, key string) {
	if !IsValidChannelName(name) {
		conn.ReplyBadChannelMask(name)
		return
	}

	if conn.channels.Exists(name) {
		conn.ReplyUserOnChannel(name)
		return
	}

	if conn.channels.Length() >= MaxJoinedChans {
		conn.ReplyTooManyChannels(name)
		return
	}

	server := conn.server
	isNew := false

	channel, exists := server.Channels.Get(name)
	if !exists {
		if server.Channels.Length() >= MaxChannels {
			conn.ReplyTooManyChannels(name)
			return
		}

		channel = NewChannel(server, name)
		if server.Channels.SetIfAbsent(name, channel) {
			isNew = true
		} else {
			// Lost the creation race; join whoever won.
			channel, _ = server.Channels.Get(name)
		}
	}

	if err := channel.Join(conn.user, key); err != nil {
		switch err {
		case ErrChannelKey:
			conn.ReplyBadChannelKey(name)
		case ErrChannelFull:
			conn.ReplyChannelFull(name)
		default:
			conn.ReplyInviteOnly(name)
		}
		server.reapIfEmpty(channel)
		return
	}

	if isNew {
		channel.AddOperator(conn.user.Nick())
	}

	conn.channels.Set(name, channel)

	if channel.Topic() != EMPTY {
		conn.ReplyChanTopic(channel)
	} else {
		conn.ReplyNoTopic(channel)
	}

	conn.ReplyChannelNames(channel)
}

// HandlePart processes a PART command.
//
// The part notice is broadcast to the whole channel including the
// departing user, then the user is removed and the channel reaped if
// it empties.
//
//	Command: PART
//	Parameters: <channel> [:<reason>]
func HandlePart(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if !enoughParams(msg, 1) {
		conn.ReplyNeedMoreParams(CmdPart)
		return
	}

	name := msg.Params[0]

	channel, exists := conn.server.Channels.Get(name)
	if !exists {
		conn.ReplyNoSuchChan(name)
		return
	}

	nick := conn.user.Nick()

	if !channel.IsMember(nick) {
		conn.ReplyNotOnChannel(name)
		return
	}

	reason := textParam(msg, 1)
	if reason == EMPTY {
		reason = "Leaving"
	}

	notice := msgPool.New()
	notice.Source = conn.user.Hostmask()
	notice.Command = CmdPart
	notice.Params = []string{name}
	notice.Trailing = reason
	channel.Send(notice, EMPTY)
	msgPool.Recycle(notice)

	channel.Remove(nick)
	conn.channels.Delete(name)
	conn.server.reapIfEmpty(channel)
}

// HandlePrivmsg processes a PRIVMSG command.
//
//	Command: PRIVMSG
//	Parameters: <target> :<text>
func HandlePrivmsg(ctx *MessageContext) {
	doChatMessage(ctx, false)
}

// HandleNotice processes a NOTICE command. Unlike PRIVMSG, NOTICE
// generates no error numerics.
//
//	Command: NOTICE
//	Parameters: <target> :<text>
func HandleNotice(ctx *MessageContext) {
	doChatMessage(ctx, true)
}

func doChatMessage(ctx *MessageContext, silent bool) {
	conn, msg := ctx.Conn, ctx.Msg

	text := textParam(msg, 1)
	if !enoughParams(msg, 1) || text == EMPTY {
		if !silent {
			conn.ReplyNeedMoreParams(msg.Command)
		}
		return
	}

	target := msg.Params[0]
	sender := conn.user.Nick()

	out := msgPool.New()
	defer msgPool.Recycle(out)

	out.Source = conn.user.Hostmask()
	out.Command = msg.Command
	out.Params = []string{target}
	out.Trailing = text

	if target[0] == '#' || target[0] == '&' {
		channel, exists := conn.server.Channels.Get(target)
		if !exists {
			if !silent {
				conn.ReplyNoSuchChan(target)
			}
			return
		}

		if !channel.IsMember(sender) {
			if !silent {
				conn.ReplyCannotSendToChan(target)
			}
			return
		}

		channel.Send(out, sender)
		return
	}

	user, exists := conn.server.Nicks.Get(target)
	if !exists {
		if !silent {
			conn.ReplyNoSuchNick(target)
		}
		return
	}

	user.conn.Write(out.RenderBuffer())
}

// HandleKick processes a KICK command.
//
// Operator-only. The kick notice is broadcast to the whole channel
// including the target, then the target is removed.
//
//	Command: KICK
//	Parameters: <channel> <nickname> [:<reason>]
func HandleKick(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if !enoughParams(msg, 2) {
		conn.ReplyNeedMoreParams(CmdKick)
		return
	}

	name, target := msg.Params[0], msg.Params[1]

	channel, exists := conn.server.Channels.Get(name)
	if !exists {
		conn.ReplyNoSuchChan(name)
		return
	}

	if !channel.IsOperator(conn.user.Nick()) {
		conn.ReplyChanOpNeeded(name)
		return
	}

	if !channel.IsMember(target) {
		conn.ReplyUserNotInChannel(target, name)
		return
	}

	reason := textParam(msg, 2)
	if reason == EMPTY {
		reason = conn.user.Nick()
	}

	notice := msgPool.New()
	notice.Source = conn.user.Hostmask()
	notice.Command = CmdKick
	notice.Params = []string{name, target}
	notice.Trailing = reason
	channel.Send(notice, EMPTY)
	msgPool.Recycle(notice)

	channel.Remove(target)

	if victim, ok := conn.server.Nicks.Get(target); ok {
		victim.conn.channels.Delete(name)
	}

	conn.server.reapIfEmpty(channel)
}

// HandleInvite processes an INVITE command.
//
// Operator-only. The target receives a pending invite which admits
// one JOIN through the channel's invite gate.
//
//	Command: INVITE
//	Parameters: <nickname> <channel>
func HandleInvite(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if !enoughParams(msg, 2) {
		conn.ReplyNeedMoreParams(CmdInvite)
		return
	}

	target, name := msg.Params[0], msg.Params[1]

	channel, exists := conn.server.Channels.Get(name)
	if !exists {
		conn.ReplyNoSuchChan(name)
		return
	}

	if !channel.IsOperator(conn.user.Nick()) {
		conn.ReplyChanOpNeeded(name)
		return
	}

	invitee, exists := conn.server.Nicks.Get(target)
	if !exists {
		conn.ReplyNoSuchNick(target)
		return
	}

	channel.Invite(target)
	conn.ReplyInviting(target, name)

	notice := msgPool.New()
	defer msgPool.Recycle(notice)

	notice.Source = conn.user.Hostmask()
	notice.Command = CmdInvite
	notice.Params = []string{target, name}

	invitee.conn.Write(notice.RenderBuffer())
}

// HandleTopic processes a TOPIC command.
//
// With no text the current topic is returned. With text the topic is
// assigned, subject to the channel's topic restriction, and the
// change broadcast to the whole channel.
//
//	Command: TOPIC
//	Parameters: <channel> [:<topic>]
func HandleTopic(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if !enoughParams(msg, 1) {
		conn.ReplyNeedMoreParams(CmdTopic)
		return
	}

	name := msg.Params[0]

	channel, exists := conn.server.Channels.Get(name)
	if !exists {
		conn.ReplyNoSuchChan(name)
		return
	}

	nick := conn.user.Nick()

	if !channel.IsMember(nick) {
		conn.ReplyNotOnChannel(name)
		return
	}

	if !hasTextParam(msg, 1) {
		if channel.Topic() != EMPTY {
			conn.ReplyChanTopic(channel)
		} else {
			conn.ReplyNoTopic(channel)
		}
		return
	}

	text := textParam(msg, 1)

	if !channel.SetTopic(nick, text) {
		conn.ReplyChanOpNeeded(name)
		return
	}

	notice := msgPool.New()
	notice.Source = conn.user.Hostmask()
	notice.Command = CmdTopic
	notice.Params = []string{name}
	notice.Trailing = text
	notice.EmptyTrailing = true
	channel.Send(notice, EMPTY)
	msgPool.Recycle(notice)
}

// HandleMode processes a MODE command for channel modes.
//
// With no mode string the current flags are returned. Mode changes
// are operator-only: the mode string is walked left to right with '+'
// and '-' toggling the direction, pulling the next positional
// argument for the k, l and o letters. Each applied change is
// broadcast to the whole channel.
//
//	Command: MODE
//	Parameters: <channel> [<modestring> [<args>...]]
func HandleMode(ctx *MessageContext) {
	conn, msg := ctx.Conn, ctx.Msg

	if !enoughParams(msg, 1) {
		conn.ReplyNeedMoreParams(CmdMode)
		return
	}

	name := msg.Params[0]

	channel, exists := conn.server.Channels.Get(name)
	if !exists {
		conn.ReplyNoSuchChan(name)
		return
	}

	if !enoughParams(msg, 2) {
		conn.ReplyChannelModeIs(channel)
		return
	}

	if !channel.IsOperator(conn.user.Nick()) {
		conn.ReplyChanOpNeeded(name)
		return
	}

	modestr := msg.Params[1]
	argIndex := 2
	adding := true

	for i := 0; i < len(modestr); i++ {
		letter := modestr[i]

		switch letter {
		case '+':
			adding = true
		case '-':
			adding = false
		default:
			arg := EMPTY
			if (letter == 'k' || letter == 'l' || letter == 'o') && argIndex < len(msg.Params) {
				arg = msg.Params[argIndex]
				argIndex++
			}

			if !channel.SetMode(letter, adding, arg) {
				continue
			}

			flag := "+"
			if !adding {
				flag = "-"
			}

			notice := msgPool.New()
			notice.Source = conn.user.Hostmask()
			notice.Command = CmdMode
			notice.Params = []string{name, flag + string(letter)}
			if arg != EMPTY {
				notice.Params = append(notice.Params, arg)
			}
			channel.Send(notice, EMPTY)
			msgPool.Recycle(notice)
		}
	}
}
