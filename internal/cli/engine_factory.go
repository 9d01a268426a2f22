package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/file"
	redisAdapter "github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/loader"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/snapshot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Options is the configuration shared by every arbor command.
type Options struct {
	// Path is a description file, or a directory holding one.
	Path string
	// RootID names the tree in the snapshot store. Defaults to the
	// description's name, then to the file name.
	RootID   string
	LogLevel string

	// SnapshotDir enables file snapshots. RedisURL takes precedence over it.
	SnapshotDir string
	RedisURL    string
	// SnapshotKey is a hex encoded AES-256 key. FallbackKeys are tried on
	// load after it, for rotation.
	SnapshotKey  string
	FallbackKeys []string
	// Redact lists position patterns whose state is never persisted.
	Redact []string
	// Fresh discards the stored snapshot instead of restoring it.
	Fresh bool

	// Metrics receives the engine's prometheus collectors when set.
	Metrics prometheus.Registerer
}

// Runtime is an engine wired to a description, persistence and observability.
type Runtime struct {
	Engine      *arbor.Engine
	Description *loader.Description
	// Snapshots is nil when persistence is disabled.
	Snapshots *snapshot.Manager
	Logger    *slog.Logger
	Path      string

	closers []func() error
}

// Close releases the snapshot backend.
func (r *Runtime) Close() error {
	var errs []string
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// NewLogger parses level (debug, info, warn, error) into a stderr logger.
// An empty level disables logging.
func NewLogger(level string) (*slog.Logger, error) {
	if level == "" {
		return logging.NewNop(), nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return logging.New(l), nil
}

// Setup loads the description at opts.Path and builds an engine around it.
// The stored snapshot, if any, is restored before the first build. Extra
// options are applied after the defaults.
func Setup(ctx context.Context, opts Options, extra ...arbor.Option) (*Runtime, error) {
	logger, err := NewLogger(opts.LogLevel)
	if err != nil {
		return nil, err
	}

	path, err := ResolveDescription(opts.Path)
	if err != nil {
		return nil, err
	}
	desc, err := loader.New(nil).LoadFile(path)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Description: desc, Logger: logger, Path: path}

	rootID := opts.RootID
	if rootID == "" {
		rootID = desc.Name
	}
	if rootID == "" {
		rootID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	engineOpts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithRootID(rootID),
		arbor.WithLifecycleHooks(observability.LoggingHooks(logger)),
	}
	if opts.Metrics != nil {
		metrics := observability.NewMetrics("arbor", opts.Metrics)
		engineOpts = append(engineOpts, arbor.WithLifecycleHooks(metrics.Hooks()))
	}

	store, locker, closer, err := OpenSnapshotStore(opts)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}
	if store != nil {
		mgrOpts := []snapshot.Option{snapshot.WithLogger(logger)}
		if locker != nil {
			mgrOpts = append(mgrOpts, snapshot.WithLocker(locker))
		}
		rt.Snapshots = snapshot.NewManager(store, mgrOpts...)
		engineOpts = append(engineOpts, arbor.WithSnapshots(rt.Snapshots))
	}

	rt.Engine = arbor.New(append(engineOpts, extra...)...)
	rt.Engine.SetRoot(desc)

	if rt.Snapshots != nil {
		if opts.Fresh {
			if err := rt.Snapshots.Delete(ctx, rootID); err != nil {
				logger.Warn("failed to discard snapshot", "root_id", rootID, "err", err)
			}
		} else if err := rt.Engine.Restore(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// OpenSnapshotStore opens the configured snapshot backend wrapped in the
// redaction and encryption middleware. All results are nil when persistence
// is disabled.
func OpenSnapshotStore(opts Options) (ports.SnapshotStore, ports.DistributedLocker, func() error, error) {
	var (
		store  ports.SnapshotStore
		locker ports.DistributedLocker
		closer func() error
	)

	switch {
	case opts.RedisURL != "":
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		rs := redisAdapter.NewFromClient(client)
		store, locker, closer = rs, redisAdapter.NewLocker(client, ""), rs.Close
	case opts.SnapshotDir != "":
		store = file.New(opts.SnapshotDir)
	default:
		return nil, nil, nil, nil
	}

	var mws []middleware.Middleware
	if len(opts.Redact) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(opts.Redact))
	}
	if opts.SnapshotKey != "" {
		cfg, err := encryptionConfig(opts.SnapshotKey, opts.FallbackKeys)
		if err != nil {
			if closer != nil {
				closer()
			}
			return nil, nil, nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(cfg))
	}
	return middleware.Chain(store, mws...), locker, closer, nil
}

func encryptionConfig(active string, fallbacks []string) (middleware.EncryptionConfig, error) {
	decode := func(s string) ([]byte, error) {
		key, err := hex.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("snapshot key is not hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("snapshot key must be 32 bytes, got %d", len(key))
		}
		return key, nil
	}

	var cfg middleware.EncryptionConfig
	key, err := decode(active)
	if err != nil {
		return cfg, err
	}
	cfg.ActiveKey = key
	for _, f := range fallbacks {
		k, err := decode(f)
		if err != nil {
			return cfg, err
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, k)
	}
	return cfg, nil
}
