package processor

import (
	"math"
	"sort"

	"EcomInsight/src/model"
)

// Quantile 线性插值分位数，values 必须已升序
// 位置 h = (n-1)*p，结果 = x[floor(h)] + (h-floor(h))*(x[floor(h)+1]-x[floor(h)])
func Quantile(sorted []float64, p float64) (float64, error) {
	if len(sorted) == 0 {
		return 0, DataErrorf("quantile of empty input is undefined")
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, ComputationErrorf("quantile probability %v out of range", p)
	}

	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))

	var q float64
	if lo == hi {
		q = sorted[lo]
	} else {
		w := pos - float64(lo)
		q = sorted[lo] + w*(sorted[hi]-sorted[lo])
	}

	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, ComputationErrorf("quantile %.2f is not finite", p)
	}
	return q, nil
}

// ComputeQuartiles 计算 25/50/75 分位点，不修改入参
func ComputeQuartiles(values []float64) (model.Quartiles, error) {
	if len(values) == 0 {
		return model.Quartiles{}, DataErrorf("quartiles of empty input are undefined")
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	for _, v := range sorted {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Quartiles{}, ComputationErrorf("metric value %v is not finite", v)
		}
	}
	sort.Float64s(sorted)

	var (
		qs  model.Quartiles
		err error
	)
	if qs.Q1, err = Quantile(sorted, 0.25); err != nil {
		return qs, err
	}
	if qs.Q2, err = Quantile(sorted, 0.5); err != nil {
		return qs, err
	}
	if qs.Q3, err = Quantile(sorted, 0.75); err != nil {
		return qs, err
	}
	return qs, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
