/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	irc "github.com/btnmasher/ircserv"
	"github.com/btnmasher/ircserv/shared/itempool"
)

func TestMessagePool(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MessagePool Suite")
}

var _ = Describe("MessagePool", func() {

	var msgp itempool.Pool[*irc.Message]

	BeforeEach(func() {
		msgp = itempool.New[*irc.Message](1, func() *irc.Message { return &irc.Message{} })
	})

	Describe("gives a new message", func() {
		Context("when the queue is empty", func() {
			It("returns a newly allocated message", func() {
				msg := msgp.New()
				Expect(msg).ShouldNot(BeNil())
			})
		})
		Context("when the queue is warmed", func() {
			It("returns a message from the queue", func() {
				msgp.Warmup(1)
				msg := msgp.New()
				Expect(msg).ShouldNot(BeNil())
			})
		})
	})

	Describe("recycles a message", func() {
		It("should scrub the message of any state", func() {
			msg := &irc.Message{
				Source:        "irc.example.org",
				Command:       "PRIVMSG",
				Code:          1,
				Params:        []string{"alice"},
				Trailing:      "hello",
				EmptyTrailing: true,
			}

			msgp.Recycle(msg)

			Expect(*msg).Should(Equal(irc.Message{}))
		})

		It("should hand the recycled message back out", func() {
			msg := msgp.New()
			msgp.Recycle(msg)
			Expect(msgp.New()).Should(BeIdenticalTo(msg))
		})
	})
})
