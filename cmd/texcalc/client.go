package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/creachadair/command"

	"texcalc/client"
)

var clientFlags struct {
	Addr    string        `flag:"addr,default=127.0.0.1:1234,Server address"`
	Exact   bool          `flag:"exact,Send unpadded frames (server uses exact framing)"`
	Timeout time.Duration `flag:"timeout,default=10s,Exchange timeout"`
}

func newClient() (*client.Client, context.Context, context.CancelFunc) {
	c := client.New(clientFlags.Addr)
	c.Exact = clientFlags.Exact
	ctx, cancel := context.WithTimeout(context.Background(), clientFlags.Timeout)
	return c, ctx, cancel
}

func runCall(env *command.Env) error {
	if len(env.Args) != 1 {
		return env.Usagef("expected one procedure name")
	}
	c, ctx, cancel := newClient()
	defer cancel()
	rsp, err := c.Call(ctx, env.Args[0])
	if err != nil {
		return err
	}
	fmt.Println(rsp)
	return nil
}

func runEval(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("missing expression")
	}
	c, ctx, cancel := newClient()
	defer cancel()
	rsp, err := c.Eval(ctx, strings.Join(env.Args, " "))
	if err != nil {
		return err
	}
	fmt.Println(rsp)
	return nil
}
