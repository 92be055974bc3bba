/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

// RFC 2812/1459 numerics emitted by this server.
const (
	ReplyNone    uint16 = 000
	ReplyWelcome        = 001
	ReplyYourHost       = 002
	ReplyCreated        = 003
	ReplyMyInfo         = 004

	ReplyChannelModeIs = 324
	ReplyNoTopic       = 331
	ReplyChanTopic     = 332
	ReplyInviting      = 341
	ReplyNames         = 353
	ReplyEndOfNames    = 366

	ReplyNoSuchNick        = 401
	ReplyNoSuchChannel     = 403
	ReplyCannotSendToChan  = 404
	ReplyTooManyChannels   = 405
	ReplyUnknownCommand    = 421
	ReplyNoNicknameGiven   = 431
	ReplyErroneusNickname  = 432
	ReplyNicknameInUse     = 433
	ReplyUserNotInChannel  = 441
	ReplyNotOnChannel      = 442
	ReplyUserOnChannel     = 443
	ReplyNotRegistered     = 451
	ReplyNeedMoreParams    = 461
	ReplyAlreadyRegistered = 462
	ReplyPasswordMismatch  = 464
	ReplyInvalidUsername   = 468
	ReplyChannelIsFull     = 471
	ReplyInviteOnlyChan    = 473
	ReplyBadChannelKey     = 475
	ReplyBadChannelName    = 476
	ReplyChanOpPrivsNeeded = 482
)
