package processor

import (
	"math"
	"sort"

	"EcomInsight/src/model"

	"gonum.org/v1/gonum/stat"
)

// TopCustomers 看板每个维度展示的客户数
const TopCustomers = 3

// Summarize 看板顶部指标：订单与收入合计取自日表，平均值与前三名取自 RFM
func Summarize(daily []model.DailyOrders, rfm []model.RFMSummary) model.Overview {
	ov := model.Overview{}
	ov.TotalOrders, ov.TotalRevenue = Totals(daily)
	if len(rfm) == 0 {
		ov.TopByRecency = []model.RFMSummary{}
		ov.TopByFrequency = []model.RFMSummary{}
		ov.TopByMonetary = []model.RFMSummary{}
		return ov
	}

	recency := make([]float64, len(rfm))
	frequency := make([]float64, len(rfm))
	monetary := make([]float64, len(rfm))
	for i, r := range rfm {
		recency[i] = float64(r.Recency)
		frequency[i] = float64(r.Frequency)
		monetary[i] = r.Monetary
	}
	ov.AvgRecency = round(stat.Mean(recency, nil), 1)
	ov.AvgFrequency = round(stat.Mean(frequency, nil), 2)
	ov.AvgMonetary = stat.Mean(monetary, nil)

	ov.TopByRecency = SortRFM(rfm, "recency", TopCustomers)
	ov.TopByFrequency = SortRFM(rfm, "frequency", TopCustomers)
	ov.TopByMonetary = SortRFM(rfm, "monetary", TopCustomers)
	return ov
}

// SortRFM 返回排序后的副本：recency 升序，frequency / monetary 降序
// 同值按客户 id 排序；limit <= 0 表示不截断；未知字段按客户 id
func SortRFM(rfm []model.RFMSummary, by string, limit int) []model.RFMSummary {
	out := make([]model.RFMSummary, len(rfm))
	copy(out, rfm)

	var less func(a, b model.RFMSummary) bool
	switch by {
	case "recency":
		less = func(a, b model.RFMSummary) bool { return a.Recency < b.Recency }
	case "frequency":
		less = func(a, b model.RFMSummary) bool { return a.Frequency > b.Frequency }
	case "monetary":
		less = func(a, b model.RFMSummary) bool { return a.Monetary > b.Monetary }
	default:
		less = func(a, b model.RFMSummary) bool { return false }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].CustomerID < out[j].CustomerID
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
