package render

import (
	"bytes"
	"testing"
	"time"

	"EcomInsight/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func renderPNG(t *testing.T, p *plot.Plot, err error) []byte {
	t.Helper()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, &buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
	return buf.Bytes()
}

func TestChartsWithData(t *testing.T) {
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	daily := []model.DailyOrders{
		{Date: d0, OrderCount: 3},
		{Date: d0.AddDate(0, 0, 1), OrderCount: 0},
		{Date: d0.AddDate(0, 0, 2), OrderCount: 5},
	}
	cats := []model.CategorySummary{
		{Category: "toys", TotalOrders: 9, TotalRevenue: 90},
		{Category: "books", TotalOrders: 4, TotalRevenue: 40},
		{Category: "garden", TotalOrders: 1, TotalRevenue: 10},
	}
	delivery := model.DeliveryReview{Buckets: []model.DeliveryBucket{
		{Label: "fast", Count: 3, Scores: []float64{5, 4, 5}},
		{Label: "slow", Count: 0},
	}}
	rfm := []model.RFMSummary{{CustomerID: "c1", Customer: "Ana", Frequency: 2, Monetary: 30, Recency: 1}}
	overview := model.Overview{TopByRecency: rfm, TopByFrequency: rfm, TopByMonetary: rfm}
	sellers := []model.ClusterRecord{
		{Key: "s1", TotalOrders: 3, TotalRevenue: 100, Combined: "High Revenue & High Orders"},
		{Key: "s2", TotalOrders: 1, TotalRevenue: 5, Combined: "Low Revenue & Low Orders"},
	}
	routes := []model.Route{
		{SellerLat: -23.5, SellerLon: -46.6, CustomerLat: -22.9, CustomerLon: -43.2, DeliverySpeed: 2, Fast: true},
		{SellerLat: -19.9, SellerLon: -43.9, CustomerLat: -3.1, CustomerLon: -60.0, DeliverySpeed: 20},
	}

	p, err := DailyChart(daily)
	renderPNG(t, p, err)
	p, err = CategoryChart(cats[:2], cats[2:])
	renderPNG(t, p, err)
	p, err = RevenueShareChart(cats, 5)
	renderPNG(t, p, err)
	p, err = DeliveryChart(delivery)
	renderPNG(t, p, err)
	p, err = RFMChart(overview)
	renderPNG(t, p, err)
	p, err = SellerChart(sellers)
	renderPNG(t, p, err)
	p, err = RouteChart(routes)
	renderPNG(t, p, err)
}

func TestChartsEmptyHaveTitleOnly(t *testing.T) {
	cases := map[string]func() (*plot.Plot, error){
		"daily":    func() (*plot.Plot, error) { return DailyChart(nil) },
		"category": func() (*plot.Plot, error) { return CategoryChart(nil, nil) },
		"revenue":  func() (*plot.Plot, error) { return RevenueShareChart(nil, 5) },
		"delivery": func() (*plot.Plot, error) { return DeliveryChart(model.DeliveryReview{}) },
		"rfm":      func() (*plot.Plot, error) { return RFMChart(model.Overview{}) },
		"sellers":  func() (*plot.Plot, error) { return SellerChart(nil) },
		"routes":   func() (*plot.Plot, error) { return RouteChart(nil) },
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := build()
			renderPNG(t, p, err)
			assert.NotEmpty(t, p.Title.Text)
		})
	}
}

func TestBubbleRadius(t *testing.T) {
	assert.InDelta(t, 4.0, float64(bubbleRadius(0, 100)), 1e-9)
	assert.InDelta(t, 16.0, float64(bubbleRadius(100, 100)), 1e-9)
	assert.Less(t, float64(bubbleRadius(25, 100)), float64(bubbleRadius(81, 100)))
}

func TestClusterColorsStable(t *testing.T) {
	sellers := []model.ClusterRecord{{Combined: "b"}, {Combined: "a"}, {Combined: "b"}}
	colors := clusterColors(sellers)
	assert.Len(t, colors, 2)
	assert.Equal(t, palette[0], colors["a"])
	assert.Equal(t, palette[1], colors["b"])
}
