package processor

import (
	"math"
	"sort"
	"time"

	"EcomInsight/src/model"

	"github.com/shopspring/decimal"
)

// rfmAcc 单个客户的累加状态
type rfmAcc struct {
	customer  string
	frequency int
	monetary  decimal.Decimal
	lastOrder time.Time
}

// ReferenceDate 返回输入中最大的下单时间，作为 recency 的基准
func ReferenceDate(orders []model.Order) (time.Time, error) {
	if len(orders) == 0 {
		return time.Time{}, DataErrorf("reference date of empty order set is undefined")
	}
	var ref time.Time
	for i, o := range orders {
		if o.PurchasedAt.IsZero() {
			return time.Time{}, DataErrorf("order %q (row %d) has no valid purchase timestamp", o.OrderID, i)
		}
		if o.PurchasedAt.After(ref) {
			ref = o.PurchasedAt
		}
	}
	return ref, nil
}

// RFM 按客户汇总 recency / frequency / monetary
// 客户名称取首次出现的行；任一行时间无效则整体失败
func RFM(orders []model.Order, reference time.Time) ([]model.RFMSummary, error) {
	if len(orders) == 0 {
		return []model.RFMSummary{}, nil
	}

	accs := make(map[string]*rfmAcc)
	for i, o := range orders {
		if o.CustomerID == "" {
			return nil, DataErrorf("order %q (row %d) has no customer id", o.OrderID, i)
		}
		if o.PurchasedAt.IsZero() {
			return nil, DataErrorf("customer %q: order %q (row %d) has no valid purchase timestamp", o.CustomerID, o.OrderID, i)
		}
		if !isFinite(o.Price) {
			return nil, DataErrorf("customer %q: order %q (row %d) has invalid price", o.CustomerID, o.OrderID, i)
		}

		acc, ok := accs[o.CustomerID]
		if !ok {
			acc = &rfmAcc{customer: o.Customer, monetary: decimal.Zero}
			accs[o.CustomerID] = acc
		}
		acc.frequency++
		acc.monetary = acc.monetary.Add(decimal.NewFromFloat(o.Price))
		if o.PurchasedAt.After(acc.lastOrder) {
			acc.lastOrder = o.PurchasedAt
		}
	}

	loc := reference.Location()
	refDay := dayOf(reference)
	out := make([]model.RFMSummary, 0, len(accs))
	for id, acc := range accs {
		out = append(out, model.RFMSummary{
			CustomerID: id,
			Customer:   acc.customer,
			Frequency:  acc.frequency,
			Monetary:   acc.monetary.InexactFloat64(),
			Recency:    daysBetween(dayOf(acc.lastOrder.In(loc)), refDay),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// dayOf 截断到日期（按时间自身时区的年月日）
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
