package cstore

import (
	"context"
	"sync"
	"time"

	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.etcd.io/etcd/client/v3/namespace"
)

const (
	sessionTTL  = 30 // used for etcd mutexes
	opTimeout   = 5 * time.Second
	dialTimeout = 5 * time.Second
)

// Config is the etcd store configuration
type Config struct {
	Endpoints []string
	// Namespace is prefixed to every key, including lock keys
	Namespace string
}

// EtcdStore is a Store backed by an etcd cluster
type EtcdStore struct {
	conf Config

	// Namespaced KV, Lease and Watcher
	clientv3.KV
	clientv3.Lease
	clientv3.Watcher
	// Un-namespaced client
	client *clientv3.Client
	// Namespaced client used to create sessions
	nsClient *clientv3.Client

	sessMu  sync.Mutex
	session *concurrency.Session

	stop     chan struct{}
	stopOnce sync.Once
}

// NewEtcd connects to the etcd cluster described by conf
func NewEtcd(conf Config) (*EtcdStore, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:        conf.Endpoints,
		AutoSyncInterval: 30 * time.Second,
		DialTimeout:      dialTimeout,
	})
	if err != nil {
		log.WithError(err).WithField("endpoints", conf.Endpoints).Error("failed to create etcd client")
		return nil, cerrors.E(cerrors.CoordinationUnavailable, "connect", err)
	}
	log.WithField("endpoints", conf.Endpoints).Debug("etcd client connection created")

	s := &EtcdStore{
		conf:     conf,
		KV:       c.KV,
		Lease:    c.Lease,
		Watcher:  c.Watcher,
		client:   c,
		nsClient: c,
		stop:     make(chan struct{}),
	}

	if conf.Namespace != "" {
		s.KV = namespace.NewKV(c.KV, conf.Namespace)
		s.Lease = namespace.NewLease(c.Lease, conf.Namespace)
		s.Watcher = namespace.NewWatcher(c.Watcher, conf.Namespace)

		nc := clientv3.NewCtxClient(c.Ctx())
		nc.KV = s.KV
		nc.Lease = s.Lease
		nc.Watcher = s.Watcher
		s.nsClient = nc
	}

	go s.keepSessionAlive()
	return s, nil
}

// getSession returns the current session, creating one if there is none or
// if the previous one expired.
func (s *EtcdStore) getSession() (*concurrency.Session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	if s.session != nil {
		select {
		case <-s.session.Done():
			log.WithField("leaseID", s.session.Lease()).Debug("session lease expired")
		default:
			return s.session, nil
		}
	}

	session, err := concurrency.NewSession(s.nsClient, concurrency.WithTTL(sessionTTL))
	if err != nil {
		return nil, cerrors.E(cerrors.CoordinationUnavailable, "new session", err)
	}
	s.session = session
	return session, nil
}

// keepSessionAlive recreates the session once its lease expires, which
// happens after the connection to etcd was lost for longer than the TTL.
func (s *EtcdStore) keepSessionAlive() {
	var (
		ticker         = time.NewTicker(5 * time.Second)
		printedFailure bool
	)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sessMu.Lock()
			session := s.session
			s.sessMu.Unlock()
			if session == nil {
				continue
			}
			select {
			case <-session.Done():
			default:
				continue
			}

			if !s.isHealthy() {
				if !printedFailure {
					log.Warn("etcd is not reachable from this node, " +
						"make sure network connection is active and etcd is running")
					printedFailure = true
				}
				continue
			}

			if _, err := s.getSession(); err != nil {
				log.WithError(err).Error("failed to create an etcd session")
				continue
			}
			log.Debug("new etcd session created")
			printedFailure = false
		}
	}
}

func (s *EtcdStore) isHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := s.Get(ctx, "health")
	return err == nil
}

// Exists implements Store
func (s *EtcdStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	resp, err := s.Get(ctx, key, clientv3.WithCountOnly())
	if err != nil {
		return false, cerrors.E(cerrors.CoordinationUnavailable, "exists", errors.Wrap(err, key))
	}
	return resp.Count > 0, nil
}

// Value implements Store
func (s *EtcdStore) Value(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	resp, err := s.Get(ctx, key)
	if err != nil {
		return "", false, cerrors.E(cerrors.CoordinationUnavailable, "get", errors.Wrap(err, key))
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// CreateIfAbsent implements Store
func (s *EtcdStore) CreateIfAbsent(ctx context.Context, key, value string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	resp, err := s.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, value)).
		Commit()
	if err != nil {
		return false, cerrors.E(cerrors.CoordinationUnavailable, "create", errors.Wrap(err, key))
	}
	return resp.Succeeded, nil
}

// DeleteTree implements Store
func (s *EtcdStore) DeleteTree(ctx context.Context, base string, children ...string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ops := make([]clientv3.Op, 0, len(children)+1)
	for _, c := range children {
		ops = append(ops, clientv3.OpDelete(c))
	}
	ops = append(ops, clientv3.OpDelete(base))

	resp, err := s.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(base), ">", 0)).
		Then(ops...).
		Commit()
	if err != nil {
		return false, cerrors.E(cerrors.CoordinationUnavailable, "delete", errors.Wrap(err, base))
	}
	return resp.Succeeded, nil
}

// WatchCreate implements Store
func (s *EtcdStore) WatchCreate(ctx context.Context, key string) (<-chan error, error) {
	getCtx, cancel := context.WithTimeout(ctx, opTimeout)
	resp, err := s.Get(getCtx, key, clientv3.WithCountOnly())
	cancel()
	if err != nil {
		return nil, cerrors.E(cerrors.CoordinationUnavailable, "watch", errors.Wrap(err, key))
	}

	out := make(chan error, 1)
	if resp.Count > 0 {
		out <- nil
		close(out)
		return out, nil
	}

	wctx, wcancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
	wch := s.Watch(wctx, key, clientv3.WithRev(resp.Header.Revision+1), clientv3.WithFilterDelete())

	go func() {
		defer close(out)
		defer wcancel()

		for wresp := range wch {
			if err := wresp.Err(); err != nil {
				log.WithError(err).WithField("key", key).Warn("watch failed")
				break
			}
			for _, ev := range wresp.Events {
				if ev.Type == mvccpb.PUT {
					out <- nil
					return
				}
			}
		}

		if ctx.Err() != nil {
			return
		}
		// The watch ended without seeing the key being created. It may
		// still have been created in the meantime.
		exists, err := s.Exists(context.Background(), key)
		switch {
		case err != nil:
			out <- err
		case exists:
			out <- nil
		default:
			out <- cerrors.E(cerrors.CoordinationUnavailable, "watch", errors.Errorf("watch on %s ended", key))
		}
	}()

	return out, nil
}

// NewLocker implements Store
func (s *EtcdStore) NewLocker(key string) Locker {
	return &etcdLocker{store: s, key: lockPrefix + key}
}

// Close implements Store
func (s *EtcdStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})

	s.sessMu.Lock()
	if s.session != nil {
		if err := s.session.Close(); err != nil {
			log.WithError(err).Warn("failed to close etcd session")
		}
		s.session = nil
	}
	s.sessMu.Unlock()

	if err := s.client.Close(); err != nil {
		log.WithError(err).Warn("failed to close etcd client connection")
		return err
	}
	return nil
}

type etcdLocker struct {
	store *EtcdStore
	key   string

	mu    sync.Mutex
	mutex *concurrency.Mutex
}

func (l *etcdLocker) Lock(ctx context.Context) error {
	session, err := l.store.getSession()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, lockObtainTimeout)
	defer cancel()

	m := concurrency.NewMutex(session, l.key)
	log.WithField("key", l.key).Debug("attempting to lock")
	switch err := m.Lock(ctx); err {
	case nil:
		log.WithField("key", l.key).Debug("lock obtained")
	case context.DeadlineExceeded:
		log.WithField("key", l.key).Debug("timeout: failed to obtain lock")
		return ErrLockTimeout
	default:
		return cerrors.E(cerrors.CoordinationUnavailable, "lock", err)
	}

	l.mu.Lock()
	l.mutex = m
	l.mu.Unlock()
	return nil
}

func (l *etcdLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	m := l.mutex
	l.mutex = nil
	l.mu.Unlock()

	if m == nil {
		return nil
	}

	log.WithField("key", l.key).Debug("attempting to unlock")
	if err := m.Unlock(ctx); err != nil {
		return cerrors.E(cerrors.CoordinationUnavailable, "unlock", err)
	}
	log.WithField("key", l.key).Debug("lock unlocked")
	return nil
}
