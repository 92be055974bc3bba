/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

// Limiter Constants
const (
	// Messages
	MaxMsgLength int = 512
	MaxMsgParams     = 15

	// Channels
	MaxChanLength  = 50
	MaxTopicLength = 400
	MaxChannels    = 50

	// Users
	MaxNickLength  = 9
	MaxUsers       = 1000
	MaxJoinedChans = 10
)
