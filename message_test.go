/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageRender(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		expected string
	}{
		{
			name: "command message",
			msg: Message{
				Source:   "irc.example.org",
				Command:  CmdPrivMsg,
				Params:   []string{"alice"},
				Trailing: "I am the server",
			},
			expected: ":irc.example.org PRIVMSG alice :I am the server\r\n",
		},
		{
			name: "numeric code is zero padded",
			msg: Message{
				Source:   "irc.example.org",
				Code:     ReplyWelcome,
				Params:   []string{"alice"},
				Trailing: "Welcome to the server",
			},
			expected: ":irc.example.org 001 alice :Welcome to the server\r\n",
		},
		{
			name: "no source",
			msg: Message{
				Command:  CmdPing,
				Trailing: "token",
			},
			expected: "PING :token\r\n",
		},
		{
			name: "multiple params without trailing",
			msg: Message{
				Source:  "alice!alice@localhost",
				Command: CmdMode,
				Params:  []string{"#dev", "+k", "letmein"},
			},
			expected: ":alice!alice@localhost MODE #dev +k letmein\r\n",
		},
		{
			name: "forced empty trailing",
			msg: Message{
				Source:        "irc.example.org",
				Command:       CmdCap,
				Params:        []string{"*", "LS"},
				EmptyTrailing: true,
			},
			expected: ":irc.example.org CAP * LS :\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.msg.Render())
			assert.Equal(t, tt.expected, tt.msg.String())
		})
	}
}

func TestMessageScrub(t *testing.T) {
	msg := &Message{
		Source:        "irc.example.org",
		Command:       CmdPrivMsg,
		Code:          ReplyWelcome,
		Params:        []string{"alice"},
		Trailing:      "text",
		EmptyTrailing: true,
	}

	msg.Scrub()

	assert.Equal(t, Message{}, *msg)
}

func TestMessageDebug(t *testing.T) {
	msg := &Message{
		Source:   "irc.example.org",
		Code:     ReplyWelcome,
		Params:   []string{"alice"},
		Trailing: "Welcome to the server",
	}

	expected := `{"source":"irc.example.org","command":"","code":1,"params":["alice"],"trailing":"Welcome to the server"}`
	assert.JSONEq(t, expected, msg.Debug())
}
