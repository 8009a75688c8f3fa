package model

import (
	"time"
)

/*
LOAD → 数据源读取后的原始记录，只读
*/

// Order 订单明细行，一个客户可以对应多行
type Order struct {
	OrderID             string
	CustomerID          string
	Customer            string // 客户显示名称
	PurchasedAt         time.Time
	Price               float64
	ReviewScore         float64
	DeliverySpeed       float64 // 送达天数
	Seller              string
	Category            string
	ApprovedAt          time.Time
	ShippingLimitAt     time.Time
	DeliveredCarrierAt  time.Time
	DeliveredCustomerAt time.Time
	EstimatedDeliveryAt time.Time
}

// Location 卖家到买家的配送线路记录
type Location struct {
	SellerCity    string
	CustomerCity  string
	SellerLat     float64
	SellerLon     float64
	CustomerLat   float64
	CustomerLon   float64
	DeliverySpeed float64
}

// Snapshot 一次加载得到的完整数据集，加载后不再修改
type Snapshot struct {
	Orders    []Order
	Locations []Location
	Source    string
	LoadedAt  time.Time
}
