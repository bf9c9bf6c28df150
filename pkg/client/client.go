package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/google/uuid"
	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/rs/zerolog"
)

const (
	DefaultSessionTimeout = 10 * time.Second
	// sessionPollInterval is how often WaitForSession checks the connection state.
	sessionPollInterval = 50 * time.Millisecond
)

// conn is the part of *zk.Conn the client uses.
type conn interface {
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Delete(path string, version int32) error
	Exists(path string) (bool, *zk.Stat, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Children(path string) ([]string, *zk.Stat, error)
	State() zk.State
	SessionID() int64
	Close()
}

type Config struct {
	// Servers is the ensemble to connect to, as host:port pairs.
	Servers        []string
	SessionTimeout time.Duration
	// Digest is an optional "user:password" pair. When set, the session authenticates with it
	// and new nodes are only accessible to that identity.
	Digest string
}

// Client talks to a ZooKeeper ensemble and implements zookeeper.Zookeeper.
type Client struct {
	conn     conn
	clientID string
	acl      []zk.ACL
	logger   zerolog.Logger
}

var _ zookeeper.Zookeeper = (*Client)(nil)

func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("no zookeeper servers configured")
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}

	clientID := uuid.New().String()
	logger = logger.With().Str("client_id", clientID).Logger()

	// Dial the ensemble. The connection is established in the background.
	c, events, err := zk.Connect(cfg.Servers, cfg.SessionTimeout, zk.WithLogger(zkLogger{logger: logger}))
	if err != nil {
		return nil, fmt.Errorf("dialing: %w", err)
	}

	acl := zk.WorldACL(zk.PermAll)
	if cfg.Digest != "" {
		user, password, ok := strings.Cut(cfg.Digest, ":")
		if !ok {
			c.Close()
			return nil, fmt.Errorf("digest must be of the form user:password")
		}
		if err := c.AddAuth("digest", []byte(cfg.Digest)); err != nil {
			c.Close()
			return nil, fmt.Errorf("error authenticating with ZooKeeper: %w", err)
		}
		acl = zk.DigestACL(zk.PermAll, user, password)
	}

	client := newClient(c, clientID, acl, logger)
	go client.watchSession(events)
	return client, nil
}

func newClient(c conn, clientID string, acl []zk.ACL, logger zerolog.Logger) *Client {
	return &Client{
		conn:     c,
		clientID: clientID,
		acl:      acl,
		logger:   logger,
	}
}

// watchSession logs session state changes until the connection is closed.
func (c *Client) watchSession(events <-chan zk.Event) {
	for ev := range events {
		if ev.Type != zk.EventSession {
			continue
		}
		e := c.logger.Info()
		if ev.State == zk.StateExpired || ev.State == zk.StateAuthFailed {
			e = c.logger.Warn()
		}
		e.Str("state", ev.State.String()).Str("server", ev.Server).Msg("ZooKeeper session state changed")
	}
}

func (c *Client) ID() string { return c.clientID }

func (c *Client) State() zk.State { return c.conn.State() }

// Connected reports whether the client currently holds a live session.
func (c *Client) Connected() bool { return c.conn.State() == zk.StateHasSession }

// WaitForSession blocks until a session is established or ctx is done.
func (c *Client) WaitForSession(ctx context.Context) error {
	ticker := time.NewTicker(sessionPollInterval)
	defer ticker.Stop()
	for !c.Connected() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for ZooKeeper session (state %s): %w", c.State(), ctx.Err())
		case <-ticker.C:
		}
	}
	c.logger.Debug().Int64("session_id", c.conn.SessionID()).Msg("ZooKeeper session established")
	return nil
}

func (c *Client) Close() error {
	c.conn.Close()
	return nil
}

// Create creates a ZNode with path name path, stores data in it, and returns the path of the new ZNode.
func (c *Client) Create(ctx context.Context, path string, data []byte, flags ...zookeeper.Flag) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var zkFlags int32
	for _, f := range flags {
		switch f {
		case zookeeper.EPHEMERAL:
			zkFlags |= zk.FlagEphemeral
		case zookeeper.SEQUENTIAL:
			zkFlags |= zk.FlagSequence
		}
	}
	name, err := c.conn.Create(path, data, zkFlags, c.acl)
	if err != nil {
		return "", translateErr(err)
	}
	return name, nil
}

// Delete deletes the ZNode at the given path if that ZNode is at the expected version.
func (c *Client) Delete(ctx context.Context, path string, version int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translateErr(c.conn.Delete(path, version))
}

// Exists returns the metadata of the ZNode at path, or nil if it does not exist.
func (c *Client) Exists(ctx context.Context, path string) (*zookeeper.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exists, stat, err := c.conn.Exists(path)
	if err != nil {
		return nil, translateErr(err)
	}
	if !exists {
		return nil, nil
	}
	return convertStat(stat), nil
}

// GetData returns the data and metadata associated with the ZNode.
func (c *Client) GetData(ctx context.Context, path string) ([]byte, *zookeeper.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	data, stat, err := c.conn.Get(path)
	if err != nil {
		return nil, nil, translateErr(err)
	}
	return data, convertStat(stat), nil
}

// SetData writes data to the ZNode path if the version number is the current version of the ZNode.
func (c *Client) SetData(ctx context.Context, path string, data []byte, version int32) (*zookeeper.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stat, err := c.conn.Set(path, data, version)
	if err != nil {
		return nil, translateErr(err)
	}
	return convertStat(stat), nil
}

// GetChildren returns the set of names of the children of a ZNode.
func (c *Client) GetChildren(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	children, _, err := c.conn.Children(path)
	if err != nil {
		return nil, translateErr(err)
	}
	return children, nil
}

func convertStat(s *zk.Stat) *zookeeper.Stat {
	if s == nil {
		return nil
	}
	return &zookeeper.Stat{
		Czxid:          s.Czxid,
		Mzxid:          s.Mzxid,
		Version:        s.Version,
		DataLength:     s.DataLength,
		NumChildren:    s.NumChildren,
		EphemeralOwner: s.EphemeralOwner,
	}
}

// zkLogger sends the zk library's own logging to zerolog at debug level.
type zkLogger struct {
	logger zerolog.Logger
}

func (l zkLogger) Printf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
