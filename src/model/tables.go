package model

import "time"

/*
COMPUTE → 派生表，每次按筛选窗口重新计算
*/

// RFMSummary 客户 RFM 汇总，每个客户一行
type RFMSummary struct {
	CustomerID string  `json:"customer_id" dataframe:"customer_id"`
	Customer   string  `json:"customer" dataframe:"customer"`
	Frequency  int     `json:"frequency" dataframe:"frequency"`
	Monetary   float64 `json:"monetary" dataframe:"monetary"`
	Recency    int     `json:"recency" dataframe:"recency"` // 天
}

// GroupMetrics 按卖家或品类聚合后的两个指标
type GroupMetrics struct {
	Key          string  `json:"key"`
	TotalOrders  int     `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
}

// ClusterRecord 四分位聚类结果
type ClusterRecord struct {
	Key          string  `json:"key" dataframe:"key"`
	TotalOrders  int     `json:"total_orders" dataframe:"total_orders"`
	TotalRevenue float64 `json:"total_revenue" dataframe:"total_revenue"`
	RevenueTier  string  `json:"revenue_cluster" dataframe:"revenue_cluster"`
	OrderTier    string  `json:"order_cluster" dataframe:"order_cluster"`
	Combined     string  `json:"combined_cluster" dataframe:"combined_cluster"`
}

// Quartiles 三个分位点
type Quartiles struct {
	Q1 float64 `json:"q1"`
	Q2 float64 `json:"q2"`
	Q3 float64 `json:"q3"`
}

// DailyOrders 按天重采样的订单量
type DailyOrders struct {
	Date       time.Time `json:"date"`
	OrderCount int       `json:"order_count"`
	Revenue    float64   `json:"revenue"`
}

// CategorySummary 品类汇总
type CategorySummary struct {
	Category     string  `json:"category"`
	TotalOrders  int     `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
}

// DeliveryBucket 配送速度分箱及该箱内评分分布
type DeliveryBucket struct {
	Label      string    `json:"label"`
	Lower      float64   `json:"lower"`
	Upper      float64   `json:"upper"`
	Count      int       `json:"count"`
	MeanReview float64   `json:"mean_review"`
	Min        float64   `json:"min"`
	Q1         float64   `json:"q1"`
	Median     float64   `json:"median"`
	Q3         float64   `json:"q3"`
	Max        float64   `json:"max"`
	Scores     []float64 `json:"-"`
}

// DeliveryReview 配送速度与评分关系
type DeliveryReview struct {
	MaxSpeed float64          `json:"max_speed"`
	Buckets  []DeliveryBucket `json:"buckets"`
	Skipped  int              `json:"skipped"`
}

// Route 配送线路
type Route struct {
	SellerCity    string  `json:"seller_city"`
	CustomerCity  string  `json:"customer_city"`
	SellerLat     float64 `json:"seller_lat"`
	SellerLon     float64 `json:"seller_lon"`
	CustomerLat   float64 `json:"customer_lat"`
	CustomerLon   float64 `json:"customer_lon"`
	DeliverySpeed float64 `json:"delivery_speed"`
	Fast          bool    `json:"fast"`
}

// Overview 看板顶部指标
type Overview struct {
	TotalOrders    int          `json:"total_orders"`
	TotalRevenue   float64      `json:"total_revenue"`
	AvgRecency     float64      `json:"avg_recency"`
	AvgFrequency   float64      `json:"avg_frequency"`
	AvgMonetary    float64      `json:"avg_monetary"`
	TopByRecency   []RFMSummary `json:"top_by_recency"`
	TopByFrequency []RFMSummary `json:"top_by_frequency"`
	TopByMonetary  []RFMSummary `json:"top_by_monetary"`
}
