// Package datawarehouse provides read-only connectivity to the ERP purchasing views on
// MS SQL Server. Purchase orders and goods receipts are pulled from two configured
// views and fed into the season budget by the ERP sync job.
package datawarehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/config"
	"go.uber.org/zap"
)

const (
	// Default retry configuration for connection attempts
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	// Default health check timeout
	defaultHealthCheckTimeout = 5 * time.Second
)

// viewNamePattern accepts view and schema.view identifiers only, since view
// names are interpolated into the query text.
var viewNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PurchaseOrderRow is one purchase order as exposed by the ERP view
type PurchaseOrderRow struct {
	ExternalRef  string
	SeasonCode   string
	LocationCode string
	CategoryCode string
	PONumber     string
	POValue      decimal.Decimal
	Status       string
	OrderDate    time.Time
	SupplierName string
	ModifiedAt   time.Time
}

// GoodsReceiptRow is one goods-received note as exposed by the ERP view
type GoodsReceiptRow struct {
	ExternalRef   string
	POExternalRef string
	GRNDate       time.Time
	ReceivedValue decimal.Decimal
	ModifiedAt    time.Time
}

// Client provides read-only access to the ERP purchasing views.
// It manages connection pooling and applies the configured query timeout.
type Client struct {
	db           *sql.DB
	config       *config.ERPConfig
	logger       *zap.Logger
	queryTimeout time.Duration
}

// HealthStatus represents the health check result for the ERP connection
type HealthStatus struct {
	Status     string        `json:"status"`
	Latency    time.Duration `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
	MaxOpen    int           `json:"max_open_connections"`
	Open       int           `json:"open_connections"`
	InUse      int           `json:"in_use"`
	Idle       int           `json:"idle"`
	WaitCount  int64         `json:"wait_count"`
	WaitTimeMs int64         `json:"wait_time_ms"`
}

// NewClient creates a new ERP client with the given configuration.
// Returns nil if the ERP feed is not enabled or not configured.
// The client establishes a connection pool with retry logic for transient failures.
func NewClient(cfg *config.ERPConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("ERP connection disabled")
		return nil, nil
	}

	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("ERP feed enabled but missing credentials, skipping connection",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}

	for _, view := range []string{cfg.POView, cfg.GRNView} {
		if !viewNamePattern.MatchString(view) {
			return nil, fmt.Errorf("invalid ERP view name %q", view)
		}
	}

	logger.Info("Initializing ERP connection",
		zap.String("po_view", cfg.POView),
		zap.String("grn_view", cfg.GRNView),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Int("conn_max_lifetime_seconds", cfg.ConnMaxLifetime),
		zap.Int("query_timeout_seconds", cfg.QueryTimeout),
	)

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	var db *sql.DB
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		logger.Info("Attempting ERP connection",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", defaultMaxRetries),
		)

		db, err = sql.Open("sqlserver", connStr)
		if err != nil {
			logger.Warn("Failed to open ERP connection",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

		ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
		err = db.PingContext(ctx)
		cancel()

		if err != nil {
			logger.Warn("ERP ping failed",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			_ = db.Close()
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		logger.Info("ERP connection established successfully",
			zap.Int("attempts_taken", attempt),
		)

		return &Client{
			db:           db,
			config:       cfg,
			logger:       logger,
			queryTimeout: cfg.QueryTimeoutDuration(),
		}, nil
	}

	return nil, fmt.Errorf("failed to connect to ERP after %d attempts: %w", defaultMaxRetries, err)
}

// buildConnectionString constructs a SQL Server connection string from the config.
// URL format expected: host:port/database or host:port (uses default database)
func buildConnectionString(cfg *config.ERPConfig) (string, error) {
	urlParts := strings.SplitN(cfg.URL, "/", 2)
	hostPort := urlParts[0]
	database := ""
	if len(urlParts) > 1 {
		database = urlParts[1]
	}
	if hostPort == "" {
		return "", fmt.Errorf("missing host in ERP URL")
	}

	hostParts := strings.SplitN(hostPort, ":", 2)
	host := hostParts[0]
	port := "1433"
	if len(hostParts) > 1 {
		port = hostParts[1]
	}

	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	query.Add("app name", "season-planning-api")
	if database != "" {
		query.Add("database", database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: query.Encode(),
	}

	return u.String(), nil
}

// Close gracefully closes the ERP connection.
// Should be called during application shutdown.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}

	c.logger.Info("Closing ERP connection")

	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close ERP connection", zap.Error(err))
		return fmt.Errorf("failed to close ERP connection: %w", err)
	}
	return nil
}

// HealthCheck pings the ERP database and reports connection pool statistics
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil || c.db == nil {
		return &HealthStatus{
			Status: "disabled",
		}
	}

	start := time.Now()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	stats := c.db.Stats()
	status := &HealthStatus{
		Latency:    latency,
		MaxOpen:    stats.MaxOpenConnections,
		Open:       stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
		WaitTimeMs: stats.WaitDuration.Milliseconds(),
	}

	if err != nil {
		c.logger.Warn("ERP health check failed",
			zap.Error(err),
			zap.Duration("latency", latency),
		)
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
	}

	return status
}

// FetchPurchaseOrders returns purchase orders modified after since, oldest first
func (c *Client) FetchPurchaseOrders(ctx context.Context, since time.Time) ([]PurchaseOrderRow, error) {
	query := fmt.Sprintf(`SELECT external_ref, season_code, location_code, category_code,
		po_number, po_value, status, order_date, supplier_name, modified_at
		FROM %s WHERE modified_at > @since ORDER BY modified_at`, c.config.POView)

	var out []PurchaseOrderRow
	err := c.query(ctx, query, func(rows *sql.Rows) error {
		var (
			row              PurchaseOrderRow
			number, supplier sql.NullString
		)
		if err := rows.Scan(
			&row.ExternalRef, &row.SeasonCode, &row.LocationCode, &row.CategoryCode,
			&number, &row.POValue, &row.Status, &row.OrderDate, &supplier, &row.ModifiedAt,
		); err != nil {
			return err
		}
		row.PONumber = number.String
		row.SupplierName = supplier.String
		out = append(out, row)
		return nil
	}, sql.Named("since", since))
	return out, err
}

// FetchGoodsReceipts returns goods receipts modified after since, oldest first
func (c *Client) FetchGoodsReceipts(ctx context.Context, since time.Time) ([]GoodsReceiptRow, error) {
	query := fmt.Sprintf(`SELECT external_ref, po_external_ref, grn_date, received_value, modified_at
		FROM %s WHERE modified_at > @since ORDER BY modified_at`, c.config.GRNView)

	var out []GoodsReceiptRow
	err := c.query(ctx, query, func(rows *sql.Rows) error {
		var row GoodsReceiptRow
		if err := rows.Scan(&row.ExternalRef, &row.POExternalRef, &row.GRNDate, &row.ReceivedValue, &row.ModifiedAt); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	}, sql.Named("since", since))
	return out, err
}

// query runs a read-only query with the default timeout and hands each row to scan
func (c *Client) query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("ERP client not initialized")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	start := time.Now()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		c.logger.Error("ERP query failed",
			zap.Error(err),
			zap.String("query", truncateQuery(query, 200)),
			zap.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	c.logger.Debug("ERP query completed",
		zap.Int("rows_returned", count),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// truncateQuery shortens a query string for logging purposes
func truncateQuery(query string, maxLen int) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen] + "..."
}
