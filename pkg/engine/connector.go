package engine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the part of pgx the builders execute through. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ConnectorConfig holds PostgreSQL connection settings
type ConnectorConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	// Pool settings
	MaxConns    int32
	MinConns    int32
	MaxIdleTime time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() ConnectorConfig {
	return ConnectorConfig{
		Host:        "localhost",
		Port:        5432,
		Database:    "entityview",
		User:        "postgres",
		Password:    "",
		MaxConns:    10,
		MinConns:    2,
		MaxIdleTime: 5 * time.Minute,
	}
}

// ConnectionString builds the pgx connection string
func (c ConnectorConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		c.Host, c.Port, c.Database, c.User, c.Password,
	)
}

// ParseConnectionString parses a postgres:// or postgresql:// URL
func ParseConnectionString(connStr string) (ConnectorConfig, error) {
	parsed, err := url.Parse(connStr)
	if err != nil {
		return ConnectorConfig{}, fmt.Errorf("invalid connection string: %w", err)
	}

	if parsed.Scheme != "postgresql" && parsed.Scheme != "postgres" {
		return ConnectorConfig{}, fmt.Errorf("unsupported scheme: %s (expected postgresql or postgres)", parsed.Scheme)
	}

	config := DefaultConfig()

	config.Host = parsed.Hostname()
	if config.Host == "" {
		config.Host = "localhost"
	}

	if portStr := parsed.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return ConnectorConfig{}, fmt.Errorf("invalid port: %w", err)
		}
		config.Port = port
	}

	if parsed.Path != "" && parsed.Path != "/" {
		config.Database = parsed.Path[1:]
	}

	if parsed.User != nil {
		config.User = parsed.User.Username()
		if password, ok := parsed.User.Password(); ok {
			config.Password = password
		}
	}

	return config, nil
}

// Connector manages the PostgreSQL connection pool
type Connector struct {
	pool   *pgxpool.Pool
	tx     Querier
	config ConnectorConfig
	debug  *DebugContext
}

// NewConnector creates a new connector (does not connect yet)
func NewConnector(config ConnectorConfig) *Connector {
	return &Connector{config: config, debug: DefaultDebugContext()}
}

// NewConnectorWithQuerier wraps an existing querier, typically a pgx.Tx the
// caller owns. Statements run inside it; Close leaves it alone.
func NewConnectorWithQuerier(q Querier) *Connector {
	return &Connector{tx: q, debug: DefaultDebugContext()}
}

// Connect establishes the connection pool
func (c *Connector) Connect(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(c.config.ConnectionString())
	if err != nil {
		return fmt.Errorf("invalid connection config: %w", err)
	}

	poolConfig.MaxConns = c.config.MaxConns
	poolConfig.MinConns = c.config.MinConns
	poolConfig.MaxConnIdleTime = c.config.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	c.pool = pool
	return nil
}

// Pool returns the underlying connection pool
// Returns nil if not connected
func (c *Connector) Pool() *pgxpool.Pool {
	return c.pool
}

// Querier returns the bound transaction if any, else the pool.
func (c *Connector) Querier() Querier {
	if c.tx != nil {
		return c.tx
	}
	if c.pool == nil {
		return nil
	}
	return c.pool
}

// WithTx returns a connector sharing this one's settings whose statements
// run inside tx.
func (c *Connector) WithTx(tx pgx.Tx) *Connector {
	return &Connector{pool: c.pool, tx: tx, config: c.config, debug: c.debug}
}

// SetDebug routes builder output to dc.
func (c *Connector) SetDebug(dc *DebugContext) {
	if dc == nil {
		dc = DefaultDebugContext()
	}
	c.debug = dc
}

// DebugContext returns the debug settings builders log through.
func (c *Connector) DebugContext() *DebugContext {
	if c == nil || c.debug == nil {
		return DefaultDebugContext()
	}
	return c.debug
}

// IsConnected returns true if the pool is active or a querier is bound
func (c *Connector) IsConnected() bool {
	return c.pool != nil || c.tx != nil
}

// Ping verifies the connection is alive
func (c *Connector) Ping(ctx context.Context) error {
	if c.pool == nil {
		return fmt.Errorf("not connected")
	}
	return c.pool.Ping(ctx)
}

// Close closes the connection pool
func (c *Connector) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}
