package processor

import (
	"errors"
	"math"
	"strings"
	"testing"

	"EcomInsight/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroups() []model.GroupMetrics {
	return []model.GroupMetrics{
		{Key: "A", TotalOrders: 1, TotalRevenue: 10},
		{Key: "B", TotalOrders: 2, TotalRevenue: 40},
		{Key: "C", TotalOrders: 3, TotalRevenue: 30},
		{Key: "D", TotalOrders: 4, TotalRevenue: 20},
		{Key: "E", TotalOrders: 5, TotalRevenue: 50},
	}
}

func TestQuantileLinear(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	cases := map[float64]float64{0: 1, 0.25: 1.75, 0.5: 2.5, 0.75: 3.25, 1: 4}
	for p, want := range cases {
		got, err := Quantile(sorted, p)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12, "p=%v", p)
	}

	_, err := Quantile(sorted, 1.5)
	assert.True(t, errors.Is(err, ErrComputation))
	_, err = Quantile(nil, 0.5)
	assert.True(t, errors.Is(err, ErrData))
}

func TestComputeQuartilesDoesNotMutate(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}
	q, err := ComputeQuartiles(values)
	require.NoError(t, err)
	assert.Equal(t, model.Quartiles{Q1: 2, Q2: 3, Q3: 4}, q)
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, values)

	_, err = ComputeQuartiles([]float64{1, math.Inf(1)})
	assert.True(t, errors.Is(err, ErrComputation))
}

func TestTierBoundaries(t *testing.T) {
	q := model.Quartiles{Q1: 2, Q2: 3, Q3: 4}
	assert.Equal(t, TierLow, Tier(2, q))
	assert.Equal(t, TierModerate, Tier(2.0001, q))
	assert.Equal(t, TierModerate, Tier(3, q))
	assert.Equal(t, TierHigh, Tier(4, q))
	assert.Equal(t, TierVeryHigh, Tier(4.5, q))
}

func TestAssignQuartileClusters(t *testing.T) {
	got, err := AssignQuartileClusters(sampleGroups())
	require.NoError(t, err)
	require.Len(t, got, 5)

	want := map[string][2]string{
		"A": {"Low Revenue", "Low Orders"},
		"B": {"High Revenue", "Low Orders"},
		"C": {"Moderate Revenue", "Moderate Orders"},
		"D": {"Low Revenue", "High Orders"},
		"E": {"Very High Revenue", "Very High Orders"},
	}
	for _, r := range got {
		w := want[r.Key]
		assert.Equal(t, w[0], r.RevenueTier, r.Key)
		assert.Equal(t, w[1], r.OrderTier, r.Key)
		assert.Equal(t, r.RevenueTier+" & "+r.OrderTier, r.Combined, r.Key)
	}
	assert.Equal(t, "High Revenue & Low Orders", got[1].Combined)
}

func TestAssignQuartileClustersDeterministic(t *testing.T) {
	first, err := AssignQuartileClusters(sampleGroups())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := AssignQuartileClusters(sampleGroups())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAssignQuartileClustersDegenerate(t *testing.T) {
	got, err := AssignQuartileClusters([]model.GroupMetrics{{Key: "only", TotalOrders: 7, TotalRevenue: 99}})
	require.NoError(t, err)
	assert.Equal(t, "Low Revenue & Low Orders", got[0].Combined)

	got, err = AssignQuartileClusters([]model.GroupMetrics{
		{Key: "a", TotalOrders: 1, TotalRevenue: 5},
		{Key: "b", TotalOrders: 1, TotalRevenue: 5},
		{Key: "c", TotalOrders: 1, TotalRevenue: 5},
	})
	require.NoError(t, err)
	for _, r := range got {
		assert.True(t, strings.HasPrefix(r.Combined, "Low Revenue"))
	}
}

func TestAssignQuartileClustersErrors(t *testing.T) {
	_, err := AssignQuartileClusters(nil)
	assert.True(t, errors.Is(err, ErrData))

	_, err = AssignQuartileClusters([]model.GroupMetrics{{Key: "x", TotalOrders: 1, TotalRevenue: math.NaN()}})
	assert.True(t, errors.Is(err, ErrComputation))
	assert.False(t, errors.Is(err, ErrData))
}

func TestSellerMetrics(t *testing.T) {
	orders := []model.Order{
		{OrderID: "1", Seller: "s1", Category: "toys", Price: 10},
		{OrderID: "2", Seller: "s2", Category: "toys", Price: 5},
		{OrderID: "3", Seller: "s1", Category: "books", Price: 2.5},
	}
	got, err := SellerMetrics(orders)
	require.NoError(t, err)
	assert.Equal(t, []model.GroupMetrics{
		{Key: "s1", TotalOrders: 2, TotalRevenue: 12.5},
		{Key: "s2", TotalOrders: 1, TotalRevenue: 5},
	}, got)

	cats, err := CategoryMetrics(orders)
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	_, err = SellerMetrics([]model.Order{{OrderID: "9", Price: 1}})
	assert.True(t, errors.Is(err, ErrData))
}
