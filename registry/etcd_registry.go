package registry

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"texcalc/procedure"
)

// DefaultPrefix is the etcd key prefix used when none is configured.
const DefaultPrefix = "/texcalc/procedures/"

// EtcdRegistry keeps definitions in etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared
	prefix string
	log    *zap.Logger
}

// NewEtcdRegistry wraps an existing client. An empty prefix selects
// DefaultPrefix.
func NewEtcdRegistry(client *clientv3.Client, prefix string, log *zap.Logger) *EtcdRegistry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EtcdRegistry{client: client, prefix: prefix, log: log}
}

// DialEtcd connects to the endpoints named in cfg.
func DialEtcd(cfg clientv3.Config) (*clientv3.Client, error) {
	c, err := clientv3.New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect etcd")
	}
	return c, nil
}

func (r *EtcdRegistry) key(name string) string { return r.prefix + name }

// Publish stores d under its name, replacing any previous definition.
func (r *EtcdRegistry) Publish(ctx context.Context, d procedure.Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	val, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if _, err := r.client.Put(ctx, r.key(d.Name), string(val)); err != nil {
		return errors.Wrapf(err, "publish %s", d.Name)
	}
	return nil
}

// Withdraw removes the definition of name.
func (r *EtcdRegistry) Withdraw(ctx context.Context, name string) error {
	if _, err := r.client.Delete(ctx, r.key(name)); err != nil {
		return errors.Wrapf(err, "withdraw %s", name)
	}
	return nil
}

// Definitions fetches every definition under the prefix. Entries that do not
// decode, whose name disagrees with their key, or that fail validation are
// skipped, so one bad entry cannot hide the rest.
func (r *EtcdRegistry) Definitions(ctx context.Context) ([]procedure.Definition, error) {
	resp, err := r.client.Get(ctx, r.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, errors.Wrap(err, "fetch definitions")
	}
	defs := make([]procedure.Definition, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		if d, ok := r.decode(kv.Key, kv.Value); ok {
			defs = append(defs, d)
		}
	}
	return defs, nil
}

func (r *EtcdRegistry) decode(key, value []byte) (procedure.Definition, bool) {
	var d procedure.Definition
	if err := json.Unmarshal(value, &d); err != nil {
		r.log.Warn("skipping malformed definition", zap.ByteString("key", key), zap.Error(err))
		return d, false
	}
	if r.key(d.Name) != string(key) {
		r.log.Warn("skipping definition stored under foreign key",
			zap.ByteString("key", key), zap.String("name", d.Name))
		return d, false
	}
	if err := d.Validate(); err != nil {
		r.log.Warn("skipping invalid definition", zap.ByteString("key", key), zap.Error(err))
		return d, false
	}
	return d, true
}
