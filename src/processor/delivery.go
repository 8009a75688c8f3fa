package processor

import (
	"math"

	"EcomInsight/src/model"

	"gonum.org/v1/gonum/stat"
)

// DeliveryBins 配送速度分箱：Edges 为每个箱的下界，最后一箱上界运行时确定
type DeliveryBins struct {
	Edges  []float64
	Labels []string
}

// DefaultDeliveryBins [0,25] (25,50] (50,100] (100,upper]
func DefaultDeliveryBins() DeliveryBins {
	return DeliveryBins{
		Edges:  []float64{0, 25, 50, 100},
		Labels: []string{"Fast", "Normal", "Slow", "Very Slow"},
	}
}

// MaxDeliverySpeed 数据集中最大的配送天数，忽略 NaN 与负值；无有效值返回 0
func MaxDeliverySpeed(orders []model.Order) float64 {
	max := 0.0
	for _, o := range orders {
		if isFinite(o.DeliverySpeed) && o.DeliverySpeed > max {
			max = o.DeliverySpeed
		}
	}
	return max
}

// UpperBound 最后一箱的上界，不低于最后一个下界
func (b DeliveryBins) UpperBound(maxSpeed float64) float64 {
	last := b.Edges[len(b.Edges)-1]
	return math.Max(maxSpeed+1, last)
}

// DeliveryReview 按配送速度分箱，统计每箱的评分分布
// maxSpeed 由调用方计算一次后传入，负数视为数据错误
// 速度或评分无效、或超出上界的行计入 Skipped
func DeliveryReview(orders []model.Order, maxSpeed float64, bins DeliveryBins) (model.DeliveryReview, error) {
	if math.IsNaN(maxSpeed) || math.IsInf(maxSpeed, 0) {
		return model.DeliveryReview{}, ComputationErrorf("max delivery speed %v is not finite", maxSpeed)
	}
	if maxSpeed < 0 {
		return model.DeliveryReview{}, DataErrorf("max delivery speed %v is negative", maxSpeed)
	}
	if len(bins.Edges) == 0 || len(bins.Edges) != len(bins.Labels) {
		return model.DeliveryReview{}, DataErrorf("delivery bins need one label per edge, got %d edges and %d labels", len(bins.Edges), len(bins.Labels))
	}
	for i := 1; i < len(bins.Edges); i++ {
		if bins.Edges[i] <= bins.Edges[i-1] {
			return model.DeliveryReview{}, DataErrorf("delivery bin edges must increase: %v", bins.Edges)
		}
	}

	upper := bins.UpperBound(maxSpeed)
	result := model.DeliveryReview{MaxSpeed: maxSpeed, Buckets: make([]model.DeliveryBucket, len(bins.Edges))}
	for i := range bins.Edges {
		hi := upper
		if i+1 < len(bins.Edges) {
			hi = bins.Edges[i+1]
		}
		result.Buckets[i] = model.DeliveryBucket{Label: bins.Labels[i], Lower: bins.Edges[i], Upper: hi}
	}

	for _, o := range orders {
		if !isFinite(o.DeliverySpeed) || o.DeliverySpeed < 0 || !isFinite(o.ReviewScore) {
			result.Skipped++
			continue
		}
		idx := bucketIndex(result.Buckets, o.DeliverySpeed)
		if idx < 0 {
			result.Skipped++
			continue
		}
		result.Buckets[idx].Scores = append(result.Buckets[idx].Scores, o.ReviewScore)
	}

	for i := range result.Buckets {
		if err := fillBoxStats(&result.Buckets[i]); err != nil {
			return model.DeliveryReview{}, err
		}
	}
	return result, nil
}

// bucketIndex 第一箱左闭右闭，其余左开右闭
func bucketIndex(buckets []model.DeliveryBucket, v float64) int {
	for i, b := range buckets {
		if i == 0 && v >= b.Lower && v <= b.Upper {
			return i
		}
		if v > b.Lower && v <= b.Upper {
			return i
		}
	}
	return -1
}

func fillBoxStats(b *model.DeliveryBucket) error {
	b.Count = len(b.Scores)
	if b.Count == 0 {
		return nil
	}
	b.MeanReview = stat.Mean(b.Scores, nil)
	q, err := ComputeQuartiles(b.Scores)
	if err != nil {
		return err
	}
	b.Q1, b.Median, b.Q3 = q.Q1, q.Q2, q.Q3
	b.Min, b.Max = b.Scores[0], b.Scores[0]
	for _, s := range b.Scores[1:] {
		b.Min = math.Min(b.Min, s)
		b.Max = math.Max(b.Max, s)
	}
	return nil
}

// MeanReviewByLabel 每个分箱的平均评分，空箱为 0
func MeanReviewByLabel(r model.DeliveryReview) map[string]float64 {
	out := make(map[string]float64, len(r.Buckets))
	for _, b := range r.Buckets {
		out[b.Label] = b.MeanReview
	}
	return out
}
