package file

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const ordersCSV = `order_id,customer_id,customer,order_purchase_timestamp,price,review_score,delivery_speed,seller,product_category_name_english,order_delivered_customer_date
o1,c1,Ana,2024-01-01 10:00:00,10.5,5,4,s1,toys,2024-01-05 10:00:00
o2,c1,Ana,2024-01-10,5,3,,s2,books,
,,,,,,,,,
o3,c2,Budi,2024/01/05 08:30:00,20,NaN,12,s1,,2024-01-17 08:30:00
`

const locationsCSV = `seller_city,customer_city,lat_y,lon_y,lat_x,lon_x,delivery_speed
sao paulo,rio de janeiro,-23.55,-46.63,-22.90,-43.17,2
curitiba,recife,-25.42,-49.27,-8.05,-34.88,11
broken,city,abc,-1,-1,-1,1
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeTemp(t, "orders.csv", ordersCSV)

	orders, err := ReadCSV(path, config.Default())
	require.NoError(t, err)
	require.Len(t, orders, 3)

	o := orders[0]
	assert.Equal(t, "o1", o.OrderID)
	assert.Equal(t, "Ana", o.Customer)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), o.PurchasedAt)
	assert.Equal(t, 10.5, o.Price)
	assert.Equal(t, 4.0, o.DeliverySpeed)
	assert.Equal(t, "toys", o.Category)
	assert.False(t, o.DeliveredCustomerAt.IsZero())

	assert.True(t, math.IsNaN(orders[1].DeliverySpeed))
	assert.Equal(t, time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC), orders[2].PurchasedAt)
	assert.True(t, math.IsNaN(orders[2].ReviewScore))
	assert.Equal(t, "", orders[2].Category)
}

func TestReadCSVColumnMapping(t *testing.T) {
	csv := "id,cust,ts,valor\nx1,c9,2024-03-01,7\n"
	path := writeTemp(t, "orders.csv", csv)

	dcfg := config.Default()
	dcfg.SetColumn("order_id", "id")
	dcfg.SetColumn("customer_id", "cust")
	dcfg.SetColumn("purchased_at", "ts")
	dcfg.SetColumn("price", "valor")

	orders, err := ReadCSV(path, dcfg)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "c9", orders[0].Customer)
	assert.Equal(t, 7.0, orders[0].Price)
}

func TestReadCSVErrors(t *testing.T) {
	missing := writeTemp(t, "orders.csv", "order_id,customer_id,price\no1,c1,3\n")
	_, err := ReadCSV(missing, config.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrData))
	assert.Contains(t, err.Error(), "order_purchase_timestamp")

	badTime := writeTemp(t, "orders.csv", "order_id,customer_id,order_purchase_timestamp,price\no1,c1,yesterday,3\n")
	_, err = ReadCSV(badTime, config.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrData))
	assert.Contains(t, err.Error(), "row 1")

	// 空行被丢弃后行号仍对应源文件
	afterBlank := writeTemp(t, "orders.csv", "order_id,customer_id,order_purchase_timestamp,price\n"+
		"o1,c1,2024-01-01,3\n,,,\no3,c1,2024-01-02,cheap\n")
	_, err = ReadCSV(afterBlank, config.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrData))
	assert.Contains(t, err.Error(), "row 3")
	assert.Contains(t, err.Error(), `"o3"`)

	_, err = ReadCSV(filepath.Join(t.TempDir(), "nope.csv"), config.Default())
	assert.Error(t, err)
}

func TestDeriveDeliverySpeed(t *testing.T) {
	csv := "order_id,customer_id,order_purchase_timestamp,price,order_delivered_customer_date\n" +
		"o1,c1,2024-01-01 10:00:00,1,2024-01-08 09:00:00\n" +
		"o2,c1,2024-01-02 10:00:00,1,\n"
	orders, err := ReadCSV(writeTemp(t, "orders.csv", csv), config.Default())
	require.NoError(t, err)
	assert.Equal(t, 7.0, orders[0].DeliverySpeed)
	assert.True(t, math.IsNaN(orders[1].DeliverySpeed))
}

func TestReadLocations(t *testing.T) {
	path := writeTemp(t, "customer_seller_loc.csv", locationsCSV)
	locs, err := ReadLocations(path, config.Default())
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "sao paulo", locs[0].SellerCity)
	assert.Equal(t, -23.55, locs[0].SellerLat)
	assert.Equal(t, -43.17, locs[0].CustomerLon)
	assert.Equal(t, 11.0, locs[1].DeliverySpeed)
}

func TestReadXLSXOrders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"order_id", "customer_id", "order_purchase_timestamp", "price", "seller"},
		{"o1", "c1", "2024-02-01 12:00:00", 9.5, "s1"},
		{"o2", "c2", "2024-02-03", 1, "s2"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	orders, err := ReadXLSXOrders(path, "", config.Default())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 9.5, orders[0].Price)
	assert.Equal(t, "s2", orders[1].Seller)

	_, err = ReadXLSXOrders(path, "missing", config.Default())
	assert.Error(t, err)
}

func TestLoadSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"), []byte(ordersCSV), 0644))

	cfg := &config.Config{DataDir: dir, OrdersFile: "orders.csv", LocationsFile: "customer_seller_loc.csv"}
	snap, err := LoadSnapshot(cfg, config.Default())
	require.NoError(t, err)
	assert.Len(t, snap.Orders, 3)
	assert.Empty(t, snap.Locations)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "customer_seller_loc.csv"), []byte(locationsCSV), 0644))
	snap, err = LoadSnapshot(cfg, config.Default())
	require.NoError(t, err)
	assert.Len(t, snap.Locations, 2)
	assert.True(t, strings.HasSuffix(snap.Source, "orders.csv"))
}

func TestFileMonitor(t *testing.T) {
	dir := t.TempDir()
	monitor, err := NewFileMonitor(dir, "orders.csv")
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	go func() {
		_ = monitor.Watch(ctx, func(name string) { changed <- name })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"), []byte(ordersCSV), 0644))

	select {
	case name := <-changed:
		assert.Equal(t, "orders.csv", filepath.Base(name))
	case <-time.After(3 * time.Second):
		t.Fatal("未收到文件变更通知")
	}
	assert.Equal(t, "orders.csv", filepath.Base(monitor.LastFile()))
}
