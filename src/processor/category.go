package processor

import (
	"sort"

	"EcomInsight/src/model"
)

// TopCategories 品类排行，订单数降序，同数按名称升序
// 无品类的行不参与排行
func TopCategories(orders []model.Order) ([]model.CategorySummary, error) {
	withCategory := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Category != "" {
			withCategory = append(withCategory, o)
		}
	}
	metrics, err := CategoryMetrics(withCategory)
	if err != nil {
		return nil, err
	}

	out := make([]model.CategorySummary, len(metrics))
	for i, m := range metrics {
		out[i] = model.CategorySummary{Category: m.Key, TotalOrders: m.TotalOrders, TotalRevenue: m.TotalRevenue}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalOrders != out[j].TotalOrders {
			return out[i].TotalOrders > out[j].TotalOrders
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Best 排行前 n 个
func Best(ranked []model.CategorySummary, n int) []model.CategorySummary {
	if n < 0 || n > len(ranked) {
		n = len(ranked)
	}
	out := make([]model.CategorySummary, n)
	copy(out, ranked[:n])
	return out
}

// Worst 订单数升序的前 n 个
func Worst(ranked []model.CategorySummary, n int) []model.CategorySummary {
	asc := make([]model.CategorySummary, len(ranked))
	copy(asc, ranked)
	sort.SliceStable(asc, func(i, j int) bool {
		if asc[i].TotalOrders != asc[j].TotalOrders {
			return asc[i].TotalOrders < asc[j].TotalOrders
		}
		return asc[i].Category < asc[j].Category
	})
	return Best(asc, n)
}

// RevenueShare 各品类收入占比，按传入顺序
func RevenueShare(ranked []model.CategorySummary) []float64 {
	total := 0.0
	for _, c := range ranked {
		total += c.TotalRevenue
	}
	shares := make([]float64, len(ranked))
	if total == 0 {
		return shares
	}
	for i, c := range ranked {
		shares[i] = c.TotalRevenue / total
	}
	return shares
}
