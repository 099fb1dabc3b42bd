package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/internal/config"
	"github.com/aretw0/nodegraph/internal/logging"
	"github.com/aretw0/nodegraph/pkg/adapters/file"
	"github.com/aretw0/nodegraph/pkg/adapters/memory"
	"github.com/aretw0/nodegraph/pkg/adapters/redis"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/format"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/observability"
	"github.com/aretw0/nodegraph/pkg/persistence/middleware"
	"github.com/aretw0/nodegraph/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app carries what every command shares: configuration and logger.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
	return nil
}

// session is an editor plus what has to be released with it.
type session struct {
	*nodegraph.Editor
	metrics *prometheus.Registry
	closers []func() error
}

func (s *session) Close() error {
	err := s.Editor.Close()
	for _, c := range s.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (a *app) codec() (format.Codec, error) {
	c, err := format.ByName(a.cfg.Format)
	if err != nil {
		return nil, err
	}
	if a.cfg.Compress {
		c = format.Zstd(c)
	}
	return c, nil
}

// open builds an editor from the configuration. Log nodes print to out.
func (a *app) open(out io.Writer) (*session, error) {
	codec, err := a.codec()
	if err != nil {
		return nil, err
	}
	s := &session{metrics: prometheus.NewRegistry()}

	docs, locker, closer, err := a.store(codec)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	m, err := observability.NewMetrics(s.metrics)
	if err != nil {
		return nil, err
	}
	ed, err := nodegraph.New(
		nodegraph.WithLogger(a.logger),
		nodegraph.WithStore(docs),
		nodegraph.WithLocker(locker, a.cfg.Store.LockTTL),
		nodegraph.WithCodec(codec),
		nodegraph.WithCatalog(nodes.Catalog(nodes.WithOutput(out))),
		nodegraph.WithHistoryCapacity(a.cfg.HistoryCapacity),
		nodegraph.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	s.Editor = ed
	return s, nil
}

func (a *app) store(codec format.Codec) (store.DocumentStore, store.Locker, func() error, error) {
	cfg := a.cfg.Store
	var (
		docs   store.DocumentStore
		locker store.Locker
		closer func() error
	)
	switch cfg.Backend {
	case "memory":
		docs, locker = memory.NewStore(), memory.NewLocker()
	case "file":
		docs, locker = file.New(cfg.Dir, file.WithExtension(codec.Extension())), memory.NewLocker()
	case "redis":
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		docs, locker, closer = rs, redis.NewLocker(rs.Client(), prefix), rs.Close
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("store.encryption_key: %w", err)
		}
		docs = store.Chain(docs, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	a.logger.Debug("store configured", "backend", cfg.Backend, "codec", codec.Name(), "encrypted", cfg.EncryptionKey != "")
	return docs, locker, closer, nil
}

// isFile reports whether a document argument is a file path rather than a store name.
func isFile(arg string) bool {
	_, err := format.ByExtension(arg)
	return err == nil
}

// load reads a document argument into the session.
func load(ctx context.Context, s *session, arg string) (*domain.FlowChart, error) {
	if !isFile(arg) {
		return s.Open(ctx, arg)
	}
	codec, err := format.ByExtension(arg)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, err
	}
	var rec format.FlowChartRecord
	if err := codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", arg, domain.ErrMalformed, err)
	}
	fc, err := s.ImportRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arg, err)
	}
	return fc, nil
}

// write stores fc under a document argument.
func write(ctx context.Context, s *session, arg string, fc *domain.FlowChart) error {
	if !isFile(arg) {
		return s.Save(ctx, arg, fc)
	}
	codec, err := format.ByExtension(arg)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(s.Registry().FlowChartRecord(fc))
	if err != nil {
		return err
	}
	return os.WriteFile(arg, data, 0o644)
}
