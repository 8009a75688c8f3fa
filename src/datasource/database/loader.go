package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/model"
	"EcomInsight/src/processor"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultQuery 返回规范列顺序的查询
const DefaultQuery = `SELECT order_id, customer_id, customer, order_purchase_timestamp, price,
	review_score, delivery_speed, seller, product_category_name_english
FROM orders`

// Open DSN mariadb:// 或 mysql:// 转为 MySQL driver 格式
func Open(dsn string) (*sql.DB, string, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, mysqlDSN, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}

	cfg := mysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
		return "", fmt.Errorf("dsn incomplete (user/host/db)")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.InterpolateParams = true
	return cfg.FormatDSN(), nil
}

// OpenPostgres 建立 pgx 连接池
func OpenPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return pool, nil
}

// LoadOrders 在 MySQL 上执行查询
func LoadOrders(ctx context.Context, db *sql.DB, query string) ([]model.Order, error) {
	if query == "" {
		query = DefaultQuery
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan, len(orders))
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// LoadOrdersPostgres 在 Postgres 上执行查询
func LoadOrdersPostgres(ctx context.Context, pool *pgxpool.Pool, query string) ([]model.Order, error) {
	if query == "" {
		query = DefaultQuery
	}
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan, len(orders))
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// Load 按 cfg.Source.Type 选择数据库
func Load(ctx context.Context, cfg *config.Config) ([]model.Order, error) {
	switch cfg.Source.Type {
	case "mysql", "mariadb":
		db, _, err := Open(cfg.Source.DSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return LoadOrders(ctx, db, cfg.Source.Query)
	case "postgres":
		pool, err := OpenPostgres(ctx, cfg.Source.DSN)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return LoadOrdersPostgres(ctx, pool, cfg.Source.Query)
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Source.Type)
	}
}

// scanOrder NULL 数值为 NaN，NULL 下单时间为数据错误
func scanOrder(scan func(dest ...any) error, row int) (model.Order, error) {
	var (
		orderID, customerID   string
		customer, seller, cat *string
		purchasedAt           *time.Time
		price                 *float64
		review, speed         *float64
	)
	if err := scan(&orderID, &customerID, &customer, &purchasedAt, &price, &review, &speed, &seller, &cat); err != nil {
		return model.Order{}, fmt.Errorf("scan order row %d: %w", row+1, err)
	}
	if purchasedAt == nil || purchasedAt.IsZero() {
		return model.Order{}, processor.DataErrorf("row %d (order %q): missing purchase timestamp", row+1, orderID)
	}
	if price == nil {
		return model.Order{}, processor.DataErrorf("row %d (order %q): missing price", row+1, orderID)
	}

	o := model.Order{
		OrderID:       orderID,
		CustomerID:    customerID,
		Customer:      deref(customer, customerID),
		PurchasedAt:   *purchasedAt,
		Price:         *price,
		ReviewScore:   derefFloat(review),
		DeliverySpeed: derefFloat(speed),
		Seller:        deref(seller, ""),
		Category:      deref(cat, ""),
	}
	return o, nil
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}
