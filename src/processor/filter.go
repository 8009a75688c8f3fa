package processor

import (
	"time"

	"EcomInsight/src/model"
)

// FilterByDate 保留下单时间落在 [start 当天 00:00, end 次日 00:00) 的订单
// 结束日整天包含在内
func FilterByDate(orders []model.Order, start, end time.Time) ([]model.Order, error) {
	if start.IsZero() || end.IsZero() {
		return nil, DataErrorf("date window requires both start and end")
	}
	from := startOfDay(start)
	until := startOfDay(end).AddDate(0, 0, 1)
	if from.After(startOfDay(end)) {
		return nil, DataErrorf("start date %s is after end date %s", start.Format(DateLayout), end.Format(DateLayout))
	}

	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.PurchasedAt.IsZero() {
			continue
		}
		if !o.PurchasedAt.Before(from) && o.PurchasedAt.Before(until) {
			out = append(out, o)
		}
	}
	return out, nil
}

// DateBounds 返回最早与最晚下单日期（当天零点），均按最早订单的时区
func DateBounds(orders []model.Order) (time.Time, time.Time, error) {
	var first, last time.Time
	for _, o := range orders {
		if o.PurchasedAt.IsZero() {
			continue
		}
		if first.IsZero() || o.PurchasedAt.Before(first) {
			first = o.PurchasedAt
		}
		if o.PurchasedAt.After(last) {
			last = o.PurchasedAt
		}
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}, DataErrorf("no order carries a purchase timestamp")
	}
	// 统一到最早订单的时区
	return startOfDay(first), startOfDay(last.In(first.Location())), nil
}

// DateLayout 日期参数格式
const DateLayout = "2006-01-02"

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, WrapData(err, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
