/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircserv

import (
	"fmt"
	"path"
	"reflect"
	"runtime"

	"github.com/sirupsen/logrus"
)

// MessageContext carries one parsed message through a handler chain.
type MessageContext struct {
	Conn    *Conn
	Msg     *Message
	handler string
	handled bool
	abort   bool
	err     error
}

// Handled signals to the router to not call the next MessageHandler
// in the chain if applicable.
func (ctx *MessageContext) Handled() {
	ctx.handled = true
}

// AbortWithError signals to the router to not call the next
// MessageHandler in the chain if applicable, and to log the error
// reported.
func (ctx *MessageContext) AbortWithError(err error) {
	ctx.abort = true
	ctx.err = err
}

// MessageHandler defines the function signature of a handler used to
// process IRC messages.
type MessageHandler func(*MessageContext)

// HandlersChain defines a MessageHandler slice.
type HandlersChain []MessageHandler

// Router maps uppercased command tokens to handler chains. Middleware
// attached to a group runs ahead of the group's handlers; the gating
// middleware enforcing the registration state machine lives in front
// of every command that demands it.
type Router struct {
	logger *logrus.Entry
	RouterGroup
	HandlerMap map[string]HandlersChain
}

// NewRouter initializes a Router with the given logger.
func NewRouter(logger *logrus.Entry) *Router {
	if logger == nil {
		panic("must provide a logger to NewRouter")
	}

	router := &Router{
		logger:     logger.WithField("sub-component", "router"),
		HandlerMap: make(map[string]HandlersChain),
	}
	router.root = true
	router.router = router
	return router
}

func (router *Router) addHandler(command string, handlers HandlersChain) {
	if command == "" {
		panic("command must not be an empty string")
	}

	if len(handlers) == 0 {
		panic("there must be at least one handler")
	}

	if _, exists := router.HandlerMap[command]; exists {
		panic(fmt.Sprintf("handler(s) already registered for command: %s", command))
	}

	router.HandlerMap[command] = handlers
}

// RouterGroup associates a shared middleware prefix with the handlers
// registered through it.
type RouterGroup struct {
	root     bool
	router   *Router
	Handlers HandlersChain
}

func (group *RouterGroup) combineHandlers(handlers HandlersChain) HandlersChain {
	merged := make(HandlersChain, 0, len(group.Handlers)+len(handlers))
	merged = append(merged, group.Handlers...)
	return append(merged, handlers...)
}

// Handle registers a handler chain for the given command. The last
// handler should be the real handler, the other ones should be
// middleware shared among different routes.
func (group *RouterGroup) Handle(command string, handlers ...MessageHandler) {
	group.router.addHandler(command, group.combineHandlers(handlers))
}

// Use attaches middleware to the group.
func (group *RouterGroup) Use(middleware ...MessageHandler) {
	group.Handlers = append(group.Handlers, middleware...)
}

// Group creates a new router group for routes sharing common
// middleware.
func (group *RouterGroup) Group(handlers ...MessageHandler) *RouterGroup {
	if len(handlers) == 0 {
		panic("a group must have at least one handler")
	}

	return &RouterGroup{
		Handlers: group.combineHandlers(handlers),
		router:   group.router,
	}
}

// Route accepts an IRC message and runs it through the handler chain
// registered for its command. Unrecognized commands are answered with
// numeric 421. The message is recycled after dispatch.
func (router *Router) Route(conn *Conn, msg *Message) {
	defer msgPool.Recycle(msg)

	log := router.logger.WithField("command", msg.Command)

	handlers, exists := router.HandlerMap[msg.Command]
	if !exists {
		log.Debugf("unknown command: %s", msg.Command)
		conn.ReplyUnknownCommand(msg.Command)
		return
	}

	ctx := &MessageContext{Conn: conn, Msg: msg}

	for i := range handlers {
		ctx.handler = nameOfFunction(handlers[i])
		handlers[i](ctx)

		if ctx.handled {
			return
		}
		if ctx.err != nil {
			log.Warn(fmt.Errorf("error handling command in [%s]: %w", ctx.handler, ctx.err))
		}
		if ctx.abort {
			log.Debugf("command handler chain aborted at: %s", ctx.handler)
			return
		}
	}
}

func nameOfFunction(f any) string {
	return path.Base(runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name())
}
