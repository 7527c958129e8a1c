package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver
)

// Client provides read-only access to the freight analytics warehouse.
type Client struct {
	config Config
	db     *sql.DB
}

// NewClient opens a connection to the analytics warehouse. The DSN format
// mirrors the Snowflake Go driver's documented shape:
// user:password@account/database/schema?warehouse=xxx
func NewClient(cfg Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{config: cfg, db: db}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// ShipperSIHistory returns the shipper's average SI-submission delay in
// hours (actual SI receipt time minus SI cutoff) over the last `days` days.
func (c *Client) ShipperSIHistory(ctx context.Context, shipperName string, days int) (ShipperStats, error) {
	query := `
		SELECT
			AVG(DATEDIFF('hour', SI_CUTOFF, SI_RECEIVED_AT)) AS avg_delay_hours,
			COUNT(*) AS sample_size,
			MAX(IS_HIGH_TIER) AS is_high_tier
		FROM SHIPMENT_SI_HISTORY
		WHERE SHIPPER_NAME = ? AND SI_RECEIVED_AT >= DATEADD('day', -?, CURRENT_DATE())
	`
	var stats ShipperStats
	stats.ShipperName = shipperName
	var isHighTier sql.NullBool
	err := c.db.QueryRowContext(ctx, query, shipperName, days).Scan(&stats.AvgSIDelayHours, &stats.SampleSize, &isHighTier)
	if err != nil {
		return ShipperStats{}, fmt.Errorf("shipper SI history: %w", err)
	}
	stats.IsHighTier = isHighTier.Valid && isHighTier.Bool
	return stats, nil
}

// CarrierRolloverRate returns the carrier's historical rollover percentage
// over the last `days` days.
func (c *Client) CarrierRolloverRate(ctx context.Context, carrierCode string, days int) (CarrierStats, error) {
	query := `
		SELECT
			100.0 * SUM(CASE WHEN WAS_ROLLED_OVER THEN 1 ELSE 0 END) / NULLIF(COUNT(*), 0) AS rollover_pct,
			COUNT(*) AS sample_size
		FROM SHIPMENT_VOYAGE_HISTORY
		WHERE CARRIER_CODE = ? AND DEPARTED_AT >= DATEADD('day', -?, CURRENT_DATE())
	`
	var stats CarrierStats
	stats.CarrierCode = carrierCode
	err := c.db.QueryRowContext(ctx, query, carrierCode, days).Scan(&stats.RolloverRatePct, &stats.SampleSize)
	if err != nil {
		return CarrierStats{}, fmt.Errorf("carrier rollover rate: %w", err)
	}
	return stats, nil
}

// RouteDelayAverage returns the average transit delay in days for a
// POL/POD pair over the last `days` days.
func (c *Client) RouteDelayAverage(ctx context.Context, polCode, podCode string, days int) (RouteStats, error) {
	query := `
		SELECT
			AVG(DATEDIFF('day', ETA_ORIGINAL, ETA_ACTUAL)) AS avg_delay_days,
			COUNT(*) AS sample_size
		FROM SHIPMENT_ROUTE_HISTORY
		WHERE PORT_OF_LOADING_CODE = ? AND PORT_OF_DISCHARGE_CODE = ?
		  AND ETA_ACTUAL >= DATEADD('day', -?, CURRENT_DATE())
	`
	stats := RouteStats{PortOfLoadingCode: polCode, PortOfDischargeCode: podCode}
	err := c.db.QueryRowContext(ctx, query, polCode, podCode, days).Scan(&stats.AvgDelayDays, &stats.SampleSize)
	if err != nil {
		return RouteStats{}, fmt.Errorf("route delay average: %w", err)
	}
	return stats, nil
}
