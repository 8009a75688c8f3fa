package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/model"
	"EcomInsight/src/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleReport(t *testing.T) *processor.Report {
	t.Helper()
	snap := &model.Snapshot{
		Orders: []model.Order{
			{OrderID: "o1", CustomerID: "c1", Customer: "Ana", PurchasedAt: at("2024-03-01 10:00"), Price: 1250.5, ReviewScore: 5, DeliverySpeed: 3, Seller: "s1", Category: "toys"},
			{OrderID: "o2", CustomerID: "c2", Customer: "Bo", PurchasedAt: at("2024-03-02 12:00"), Price: 80, ReviewScore: 2, DeliverySpeed: 40, Seller: "s2", Category: "books"},
			{OrderID: "o3", CustomerID: "c1", Customer: "Ana", PurchasedAt: at("2024-03-04 08:30"), Price: 20, ReviewScore: 4, DeliverySpeed: 8, Seller: "s1", Category: "toys"},
		},
		Locations: []model.Location{
			{SellerCity: "sao paulo", CustomerCity: "rio", SellerLat: -23.5, SellerLon: -46.6, CustomerLat: -22.9, CustomerLon: -43.2, DeliverySpeed: 2},
		},
	}
	r, err := processor.NewDataProcessor(snap, nil).Compute(time.Time{}, time.Time{})
	require.NoError(t, err)
	return r
}

func newExporter(t *testing.T, dir string) *Exporter {
	t.Helper()
	cfg := &config.Config{}
	cfg.Report.Dir = dir
	cfg.Report.Currency = "AUD"
	cfg.Report.Locale = "es-CO"
	e, err := NewExporter(cfg, nil)
	require.NoError(t, err)
	return e
}

func TestNewExporterRejectsBadCurrency(t *testing.T) {
	cfg := &config.Config{}
	cfg.Report.Currency = "XXXX"
	cfg.Report.Locale = "es-CO"
	_, err := NewExporter(cfg, nil)
	assert.Error(t, err)
}

func TestMoney(t *testing.T) {
	e := newExporter(t, t.TempDir())
	s := e.Money(1250.5)
	assert.Contains(t, s, "AUD")
	assert.True(t, strings.ContainsAny(s, "0123456789"))
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	e := newExporter(t, dir)
	r := sampleReport(t)

	var seen []string
	path, err := e.Export(r, "test", func(sheet string) { seen = append(seen, sheet) })
	require.NoError(t, err)
	assert.Equal(t, Sheets, seen)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "report_20240301_20240304_"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, Sheets, f.GetSheetList())

	rows, err := f.GetRows("RFM")
	require.NoError(t, err)
	require.Len(t, rows, 3) // 表头 + 两个客户
	assert.Equal(t, []string{"customer_id", "customer", "frequency", "monetary", "recency"}, rows[0])
	assert.Equal(t, "c1", rows[1][0])

	rows, err = f.GetRows("Daily")
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	rows, err = f.GetRows("Sellers")
	require.NoError(t, err)
	assert.Equal(t, "combined_cluster", rows[0][5])
}

func TestWriteEmptyWindow(t *testing.T) {
	e := newExporter(t, t.TempDir())
	r := &processor.Report{Start: at("2024-01-01 00:00"), End: at("2024-01-01 00:00")}

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Routes")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "seller_city", rows[0][0])
}

func TestSummary(t *testing.T) {
	e := newExporter(t, t.TempDir())
	s := e.Summary(sampleReport(t))
	assert.Contains(t, s, "2024-03-01 ~ 2024-03-04")
	assert.Contains(t, s, "toys")
	assert.Contains(t, s, "配送评分: Fast 4")
	assert.Contains(t, s, "Very Slow 0")
}
