package main

import (
	"context"
	"fmt"
	"io"

	"github.com/creachadair/command"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"texcalc/config"
	"texcalc/procedure"
	"texcalc/registry"
)

func runList(env *command.Env) error {
	cfg, err := loadConfig(registryFlags.Config)
	if err != nil {
		return err
	}
	src, closeSrc, err := openSource(cfg, io.Discard, zap.NewNop())
	if err != nil {
		return err
	}
	defer closeSrc()

	snap, err := src.Snapshot(context.Background())
	if err != nil {
		return err
	}
	for _, name := range snap.Names() {
		fmt.Println(name)
	}
	return nil
}

func etcdRegistry() (*registry.EtcdRegistry, func(), error) {
	cfg, err := loadConfig(registryFlags.Config)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Procedures.Source != config.SourceEtcd {
		return nil, nil, errors.Errorf("procedure source is %q, not etcd", cfg.Procedures.Source)
	}
	reg, client, err := openEtcd(cfg, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	return reg, func() { client.Close() }, nil
}

func runDefine(env *command.Env) error {
	if len(env.Args) != 1 {
		return env.Usagef("expected one definitions file")
	}
	defs, err := registry.ReadDefinitions(env.Args[0])
	if err != nil {
		return err
	}
	// Build everything first so a bad file publishes nothing.
	if _, err := procedure.BuildAll(defs, io.Discard); err != nil {
		return err
	}
	reg, done, err := etcdRegistry()
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()
	for _, d := range defs {
		if err := reg.Publish(ctx, d); err != nil {
			return err
		}
		fmt.Printf("defined %s\n", d.Name)
	}
	return nil
}

func runWithdraw(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("missing procedure name")
	}
	reg, done, err := etcdRegistry()
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()
	for _, name := range env.Args {
		if err := reg.Withdraw(ctx, name); err != nil {
			return err
		}
		fmt.Printf("withdrew %s\n", name)
	}
	return nil
}
