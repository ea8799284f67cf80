// Program texcalc serves and queries texcalc procedure servers.
package main

import (
	"os"
	"path/filepath"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
)

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: `Serve matrix procedures and arithmetic over the texcalc frame protocol.

A server accepts one connection at a time. Each connection carries one
request: either "<function>NAME()", which runs the named procedure and
writes its result as a TeX \gdef, or an arithmetic expression.`,
		Commands: []*command.C{
			{
				Name:     "serve",
				Usage:    "[-config file] [-address host] [-port n]",
				Help:     "Run the server until interrupted.",
				SetFlags: command.Flags(flax.MustBind, &serveFlags),
				Run:      runServe,
			},
			{
				Name:     "call",
				Usage:    "<name>",
				Help:     "Invoke a procedure on a running server.",
				SetFlags: command.Flags(flax.MustBind, &clientFlags),
				Run:      runCall,
			},
			{
				Name:     "eval",
				Usage:    "<expression>...",
				Help:     "Evaluate an arithmetic expression on a running server.",
				SetFlags: command.Flags(flax.MustBind, &clientFlags),
				Run:      runEval,
			},
			{
				Name:     "list",
				Usage:    "[-config file]",
				Help:     "List the procedures the configured source currently defines.",
				SetFlags: command.Flags(flax.MustBind, &registryFlags),
				Run:      runList,
			},
			{
				Name:  "define",
				Usage: "<definitions.toml>",
				Help: `Publish procedure definitions to etcd.

The file has the same format as a file procedure source. The config file
must select the etcd procedure source.`,
				SetFlags: command.Flags(flax.MustBind, &registryFlags),
				Run:      runDefine,
			},
			{
				Name:     "withdraw",
				Usage:    "<name>...",
				Help:     "Remove procedure definitions from etcd.",
				SetFlags: command.Flags(flax.MustBind, &registryFlags),
				Run:      runWithdraw,
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}
