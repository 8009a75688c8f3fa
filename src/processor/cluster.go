package processor

import (
	"sort"

	"EcomInsight/src/model"

	"github.com/shopspring/decimal"
)

// 四档分层名称，由低到高
const (
	TierLow      = "Low"
	TierModerate = "Moderate"
	TierHigh     = "High"
	TierVeryHigh = "Very High"
)

// Tier 按 ≤ 规则分档：恰好等于分位点的值落在较低一档
func Tier(v float64, q model.Quartiles) string {
	switch {
	case v <= q.Q1:
		return TierLow
	case v <= q.Q2:
		return TierModerate
	case v <= q.Q3:
		return TierHigh
	default:
		return TierVeryHigh
	}
}

// CombinedLabel 拼接收入与订单两个维度的标签
func CombinedLabel(revenueTier, orderTier string) string {
	return revenueTier + " Revenue & " + orderTier + " Orders"
}

// AssignQuartileClusters 两个指标各自独立求四分位点后分档
// 输出顺序与输入一致
func AssignQuartileClusters(rows []model.GroupMetrics) ([]model.ClusterRecord, error) {
	if len(rows) == 0 {
		return nil, DataErrorf("cannot cluster an empty population")
	}

	orders := make([]float64, len(rows))
	revenue := make([]float64, len(rows))
	for i, r := range rows {
		if !isFinite(r.TotalRevenue) {
			return nil, ComputationErrorf("group %q has non-finite revenue", r.Key)
		}
		orders[i] = float64(r.TotalOrders)
		revenue[i] = r.TotalRevenue
	}

	orderQ, err := ComputeQuartiles(orders)
	if err != nil {
		return nil, err
	}
	revenueQ, err := ComputeQuartiles(revenue)
	if err != nil {
		return nil, err
	}

	out := make([]model.ClusterRecord, len(rows))
	for i, r := range rows {
		rt := Tier(r.TotalRevenue, revenueQ)
		ot := Tier(float64(r.TotalOrders), orderQ)
		out[i] = model.ClusterRecord{
			Key:          r.Key,
			TotalOrders:  r.TotalOrders,
			TotalRevenue: r.TotalRevenue,
			RevenueTier:  rt + " Revenue",
			OrderTier:    ot + " Orders",
			Combined:     CombinedLabel(rt, ot),
		}
	}
	return out, nil
}

// SellerMetrics 按卖家统计订单行数与收入
func SellerMetrics(orders []model.Order) ([]model.GroupMetrics, error) {
	return groupMetrics(orders, "seller", func(o model.Order) string { return o.Seller })
}

// CategoryMetrics 按品类统计订单行数与收入
func CategoryMetrics(orders []model.Order) ([]model.GroupMetrics, error) {
	return groupMetrics(orders, "category", func(o model.Order) string { return o.Category })
}

func groupMetrics(orders []model.Order, field string, key func(model.Order) string) ([]model.GroupMetrics, error) {
	type acc struct {
		count   int
		revenue decimal.Decimal
	}
	groups := make(map[string]*acc)
	for i, o := range orders {
		k := key(o)
		if k == "" {
			return nil, DataErrorf("order %q (row %d) has no %s", o.OrderID, i, field)
		}
		if !isFinite(o.Price) {
			return nil, DataErrorf("order %q (row %d) has invalid price", o.OrderID, i)
		}
		a, ok := groups[k]
		if !ok {
			a = &acc{revenue: decimal.Zero}
			groups[k] = a
		}
		a.count++
		a.revenue = a.revenue.Add(decimal.NewFromFloat(o.Price))
	}

	out := make([]model.GroupMetrics, 0, len(groups))
	for k, a := range groups {
		out = append(out, model.GroupMetrics{Key: k, TotalOrders: a.count, TotalRevenue: a.revenue.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
