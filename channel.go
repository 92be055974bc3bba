/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"sort"
	"strconv"
	"sync"

	"github.com/btnmasher/ircserv/shared/concurrentmap"
)

// Channel mode bitmasks.
const (
	ModeInviteOnly uint8 = 1 << iota
	ModeTopicRestricted
	ModeKey
	ModeLimit
)

// Channel represents an IRC channel.
//
// Membership is kept as a set of nicknames; delivery resolves each
// nickname to a connection through the server's registry. The server
// owns the users, the channel only relates them.
type Channel struct {
	sync.RWMutex

	name  string
	topic string

	modes uint8
	key   string
	limit int

	server *Server

	// Nickname sets.
	members   concurrentmap.ConcurrentMap[string, struct{}]
	operators concurrentmap.ConcurrentMap[string, struct{}]
	invited   concurrentmap.ConcurrentMap[string, struct{}]
}

// NewChannel initializes a Channel with the given name.
func NewChannel(server *Server, name string) *Channel {
	return &Channel{
		name:      name,
		server:    server,
		members:   concurrentmap.New[string, struct{}](),
		operators: concurrentmap.New[string, struct{}](),
		invited:   concurrentmap.New[string, struct{}](),
	}
}

// Name returns the name of the channel in a concurrency-safe manner.
func (channel *Channel) Name() string {
	channel.RLock()
	defer channel.RUnlock()

	return channel.name
}

// Topic returns the topic of the channel in a concurrency-safe manner.
func (channel *Channel) Topic() string {
	channel.RLock()
	defer channel.RUnlock()

	return channel.topic
}

// SetTopic assigns the channel topic on behalf of the given nickname.
// When the channel is topic-restricted only operators may set it;
// the return value reports whether the assignment took effect.
func (channel *Channel) SetTopic(by, text string) bool {
	if channel.ModeIsSet(ModeTopicRestricted) && !channel.IsOperator(by) {
		return false
	}

	channel.Lock()
	defer channel.Unlock()

	channel.topic = text
	return true
}

// Key returns the channel key in a concurrency-safe manner.
func (channel *Channel) Key() string {
	channel.RLock()
	defer channel.RUnlock()

	return channel.key
}

// Limit returns the channel user limit in a concurrency-safe manner.
func (channel *Channel) Limit() int {
	channel.RLock()
	defer channel.RUnlock()

	return channel.limit
}

// ModeIsSet checks if the given channel mode is currently set.
func (channel *Channel) ModeIsSet(mode uint8) bool {
	channel.RLock()
	defer channel.RUnlock()

	return channel.modes&mode == mode
}

// Len returns the current member count.
func (channel *Channel) Len() int {
	return channel.members.Length()
}

// IsMember checks whether the given nickname is joined to the channel.
func (channel *Channel) IsMember(nick string) bool {
	return channel.members.Exists(nick)
}

// IsOperator checks whether the given nickname holds operator rights.
func (channel *Channel) IsOperator(nick string) bool {
	return channel.operators.Exists(nick)
}

// IsInvited checks whether the given nickname holds a pending invite.
func (channel *Channel) IsInvited(nick string) bool {
	return channel.invited.Exists(nick)
}

// Invite records a pending invite for the given nickname. The invite
// is consumed by the next successful Join.
func (channel *Channel) Invite(nick string) {
	channel.invited.Set(nick, struct{}{})
}

// Join admits the user to the channel, enforcing the admission policy
// in order: invite gate, key gate, member limit. On success the user
// is added to the member set, a pending invite is consumed, and a JOIN
// announcement is sent to every member including the joiner.
func (channel *Channel) Join(user *User, key string) error {
	nick := user.Nick()

	channel.Lock()
	if channel.modes&ModeInviteOnly != 0 && !channel.invited.Exists(nick) {
		channel.Unlock()
		return ErrInviteOnly
	}

	if channel.modes&ModeKey != 0 && key != channel.key {
		channel.Unlock()
		return ErrChannelKey
	}

	if channel.modes&ModeLimit != 0 && channel.members.Length() >= channel.limit {
		channel.Unlock()
		return ErrChannelFull
	}

	channel.members.Set(nick, struct{}{})
	channel.invited.Delete(nick)
	channel.Unlock()

	msg := msgPool.New()
	msg.Source = user.Hostmask()
	msg.Command = CmdJoin
	msg.Params = []string{channel.Name()}
	channel.Send(msg, EMPTY)
	msgPool.Recycle(msg)

	return nil
}

// Remove erases the nickname from the member and operator sets.
// Pending invites survive; full teardown goes through Forget.
func (channel *Channel) Remove(nick string) {
	channel.members.Delete(nick)
	channel.operators.Delete(nick)
}

// Forget erases every trace of the nickname: membership, operator
// rights and pending invites. Used by connection teardown.
func (channel *Channel) Forget(nick string) {
	channel.members.Delete(nick)
	channel.operators.Delete(nick)
	channel.invited.Delete(nick)
}

// AddOperator grants operator rights to the given nickname.
// Granting to a non-member is a no-op.
func (channel *Channel) AddOperator(nick string) bool {
	if !channel.members.Exists(nick) {
		return false
	}

	channel.operators.Set(nick, struct{}{})
	return true
}

// RemoveOperator revokes operator rights from the given nickname.
func (channel *Channel) RemoveOperator(nick string) bool {
	return channel.operators.Delete(nick)
}

// SetMode applies a single mode letter change and reports whether the
// change took effect. Unknown letters are ignored.
func (channel *Channel) SetMode(mode byte, enable bool, arg string) bool {
	switch mode {
	case 'i':
		channel.setFlag(ModeInviteOnly, enable)
		return true

	case 't':
		channel.setFlag(ModeTopicRestricted, enable)
		return true

	case 'k':
		channel.Lock()
		defer channel.Unlock()
		if enable {
			if arg == EMPTY {
				return false
			}
			channel.modes |= ModeKey
			channel.key = arg
		} else {
			channel.modes &^= ModeKey
			channel.key = EMPTY
		}
		return true

	case 'l':
		channel.Lock()
		defer channel.Unlock()
		if enable {
			limit, err := strconv.Atoi(arg)
			if err != nil || limit < 1 {
				return false
			}
			channel.modes |= ModeLimit
			channel.limit = limit
		} else {
			channel.modes &^= ModeLimit
			channel.limit = 0
		}
		return true

	case 'o':
		if arg == EMPTY {
			return false
		}
		if enable {
			return channel.AddOperator(arg)
		}
		return channel.RemoveOperator(arg)

	default:
		return false
	}
}

func (channel *Channel) setFlag(mode uint8, enable bool) {
	channel.Lock()
	defer channel.Unlock()

	if enable {
		channel.modes |= mode
	} else {
		channel.modes &^= mode
	}
}

// Modes returns the currently set mode letters as a "+..." flag string
// along with the mode arguments, in flag order.
func (channel *Channel) Modes() (string, []string) {
	channel.RLock()
	defer channel.RUnlock()

	flags := "+"
	var args []string

	if channel.modes&ModeInviteOnly != 0 {
		flags += "i"
	}
	if channel.modes&ModeTopicRestricted != 0 {
		flags += "t"
	}
	if channel.modes&ModeKey != 0 {
		flags += "k"
		args = append(args, channel.key)
	}
	if channel.modes&ModeLimit != 0 {
		flags += "l"
		args = append(args, strconv.Itoa(channel.limit))
	}

	return flags, args
}

// Send renders the message once per recipient and delivers it to every
// member except the optionally excluded nickname. Nicknames which no
// longer resolve through the server registry are skipped.
func (channel *Channel) Send(msg *Message, exclude string) {
	for _, nick := range channel.members.Keys() {
		if nick == exclude {
			continue
		}

		user, ok := channel.server.Nicks.Get(nick)
		if !ok {
			continue
		}

		user.conn.Write(msg.RenderBuffer())
	}
}

// Names returns the sorted member nicknames, operators prefixed
// with '@'.
func (channel *Channel) Names() []string {
	nicks := channel.members.Keys()
	sort.Strings(nicks)

	for i, nick := range nicks {
		if channel.operators.Exists(nick) {
			nicks[i] = "@" + nick
		}
	}

	return nicks
}

// IsValidChannelName reports whether name satisfies the channel name
// grammar: begins with '#' or '&', at most MaxChanLength bytes, and
// free of spaces, commas and control bytes.
func IsValidChannelName(name string) bool {
	if len(name) < 2 || len(name) > MaxChanLength {
		return false
	}

	if name[0] != '#' && name[0] != '&' {
		return false
	}

	for i := 1; i < len(name); i++ {
		c := name[i]
		if c == ' ' || c == ',' || c < 0x21 || c == 0x7f {
			return false
		}
	}

	return true
}
