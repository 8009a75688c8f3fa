package processor

import (
	"EcomInsight/src/model"

	"github.com/shopspring/decimal"
)

// DailyOrders 按自然日重采样：去重订单数与收入，缺失日期补零
// 日期按最早订单的时区划分
func DailyOrders(orders []model.Order) ([]model.DailyOrders, error) {
	if len(orders) == 0 {
		return []model.DailyOrders{}, nil
	}
	first, last, err := DateBounds(orders)
	if err != nil {
		return nil, err
	}

	type dayAcc struct {
		ids     map[string]struct{}
		revenue decimal.Decimal
	}
	days := make(map[string]*dayAcc)
	for i, o := range orders {
		if o.PurchasedAt.IsZero() {
			return nil, DataErrorf("order %q (row %d) has no valid purchase timestamp", o.OrderID, i)
		}
		key := o.PurchasedAt.In(first.Location()).Format(DateLayout)
		acc, ok := days[key]
		if !ok {
			acc = &dayAcc{ids: make(map[string]struct{}), revenue: decimal.Zero}
			days[key] = acc
		}
		acc.ids[o.OrderID] = struct{}{}
		if !isFinite(o.Price) {
			return nil, DataErrorf("order %q (row %d) has invalid price", o.OrderID, i)
		}
		acc.revenue = acc.revenue.Add(decimal.NewFromFloat(o.Price))
	}

	out := make([]model.DailyOrders, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		row := model.DailyOrders{Date: d}
		if acc, ok := days[d.Format(DateLayout)]; ok {
			row.OrderCount = len(acc.ids)
			row.Revenue = acc.revenue.InexactFloat64()
		}
		out = append(out, row)
	}
	return out, nil
}

// Totals 汇总 DailyOrders 的订单数与收入
func Totals(daily []model.DailyOrders) (int, float64) {
	count := 0
	revenue := decimal.Zero
	for _, d := range daily {
		count += d.OrderCount
		revenue = revenue.Add(decimal.NewFromFloat(d.Revenue))
	}
	return count, revenue.InexactFloat64()
}
