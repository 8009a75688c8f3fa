// reader.go
package file

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/model"
	"EcomInsight/src/processor"
	"EcomInsight/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// 订单表必需的规范列
var requiredOrderColumns = []string{"order_id", "customer_id", "purchased_at", "price"}

// 线路表必需的规范列
var requiredLocationColumns = []string{"seller_lat", "seller_lon", "customer_lat", "customer_lon"}

// ReadCSVToDataFrame 全部列按字符串读入
func ReadCSVToDataFrame(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("failed to read csv: %w", df.Err)
	}
	return df, nil
}

// ReadCSV 读取订单 CSV
func ReadCSV(filePath string, dcfg *config.DataConfig) ([]model.Order, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	df, err := ReadCSVToDataFrame(f)
	if err != nil {
		return nil, err
	}
	return ToOrders(df, dcfg)
}

// ReadXLSXToDataFrame 读取订单 xlsx，sheetName 为空取第一个工作表
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	df, err := ReadXLSX(filePath, sheetName)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open xlsx file: %w", err)
	}

	return df, nil
}

// ReadXLSXOrders 读取订单 xlsx 并转换
func ReadXLSXOrders(filePath, sheetName string, dcfg *config.DataConfig) ([]model.Order, error) {
	df, err := ReadXLSXToDataFrame(filePath, sheetName)
	if err != nil {
		return nil, err
	}
	return ToOrders(df, dcfg)
}

// ReadLocations 读取买卖双方坐标 CSV
func ReadLocations(filePath string, dcfg *config.DataConfig) ([]model.Location, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open locations file: %w", err)
	}
	defer f.Close()

	df, err := ReadCSVToDataFrame(f)
	if err != nil {
		return nil, err
	}
	return ToLocations(df, dcfg)
}

// LoadSnapshot 按扩展名读取订单文件，线路文件缺失时为空
func LoadSnapshot(cfg *config.Config, dcfg *config.DataConfig) (*model.Snapshot, error) {
	var (
		orders []model.Order
		err    error
	)
	path := cfg.OrdersPath()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		orders, err = ReadXLSXOrders(path, cfg.SheetName, dcfg)
	default:
		orders, err = ReadCSV(path, dcfg)
	}
	if err != nil {
		return nil, err
	}

	var locations []model.Location
	if _, statErr := os.Stat(cfg.LocationsPath()); statErr == nil {
		if locations, err = ReadLocations(cfg.LocationsPath(), dcfg); err != nil {
			return nil, err
		}
	}

	return &model.Snapshot{
		Orders:    orders,
		Locations: locations,
		Source:    path,
		LoadedAt:  time.Now(),
	}, nil
}

// ReadXLSX 使用tealeg/xlsx打开Excel文件，第一行为标题行
func ReadXLSX(filePath, sheetName string) (df dataframe.DataFrame, err error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open file false: %w", err)
	}
	return sheetToDataFrame(xlFile, sheetName)
}

// ReadXLSXBytes 从内存中的xlsx内容读取，用于邮件附件
func ReadXLSXBytes(data []byte, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open binary false: %w", err)
	}
	return sheetToDataFrame(xlFile, sheetName)
}

func sheetToDataFrame(xlFile *xlsx.File, sheetName string) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	return convertSheetToDataFrame(sheet, xlFile.Date1904), nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet, date1904 bool) dataframe.DataFrame {
	if len(sheet.Rows) == 0 {
		return dataframe.New()
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}

	// 准备数据列
	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		for i := range headers {
			value := ""
			if i < len(row.Cells) {
				value = cellValue(row.Cells[i], date1904)
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	return dataframe.New(seriesList...)
}

// cellValue 日期格式的单元格转为 "2006-01-02 15:04:05"
func cellValue(cell *xlsx.Cell, date1904 bool) string {
	if cell == nil {
		return ""
	}
	if isDateFormat(cell.GetNumberFormat()) {
		if f, err := strconv.ParseFloat(cell.Value, 64); err == nil {
			return xlsx.TimeFromExcelTime(f, date1904).Format("2006-01-02 15:04:05")
		}
	}
	return cell.Value
}

// isDateFormat 数字格式含年/日/时占位符即视为日期
func isDateFormat(numFmt string) bool {
	return strings.ContainsAny(strings.ToLower(numFmt), "ydh")
}

// column 规范列名在 df 中的实际列名，缺失返回空串
func column(df dataframe.DataFrame, dcfg *config.DataConfig, name string) string {
	col := dcfg.Column(name)
	if utils.HasColumn(df, col) {
		return col
	}
	return ""
}

func checkColumns(df dataframe.DataFrame, dcfg *config.DataConfig, required []string) error {
	var missing []string
	for _, name := range required {
		if column(df, dcfg, name) == "" {
			missing = append(missing, dcfg.Column(name))
		}
	}
	if len(missing) > 0 {
		return processor.DataErrorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ToOrders 将字符串 DataFrame 转换为订单
// 订单号为空的行被丢弃；缺少 delivery_speed 列时由送达时间与下单时间推算
func ToOrders(df dataframe.DataFrame, dcfg *config.DataConfig) ([]model.Order, error) {
	if dcfg == nil {
		dcfg = config.Default()
	}
	if err := checkColumns(df, dcfg, requiredOrderColumns); err != nil {
		return nil, err
	}

	// 丢弃订单号为空的行，srcRows 记录保留行在源文件中的序号
	idCol := df.Col(column(df, dcfg, "order_id"))
	srcRows := make([]int, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		if e := idCol.Elem(i); !e.IsNA() && strings.TrimSpace(e.String()) != "" {
			srcRows = append(srcRows, i)
		}
	}
	if len(srcRows) == 0 {
		return []model.Order{}, nil
	}
	if len(srcRows) < df.Nrow() {
		df = df.Subset(srcRows)
		if df.Err != nil {
			return nil, fmt.Errorf("failed to drop empty rows: %w", df.Err)
		}
	}

	speedCol := column(df, dcfg, "delivery_speed")
	deliveredCol := column(df, dcfg, "delivered_at")
	if speedCol == "" && deliveredCol != "" {
		var err error
		speedCol = dcfg.Column("delivery_speed")
		df, err = utils.SubSeriesDays(df, deliveredCol, column(df, dcfg, "purchased_at"), speedCol, dcfg.TimeLayouts)
		if err != nil {
			return nil, processor.WrapData(err, "cannot derive delivery speed")
		}
	}

	categoryCol := column(df, dcfg, "category")
	if categoryCol == "" {
		categoryCol = column(df, dcfg, "category_native")
	}

	get := func(col string, i int) string {
		if col == "" {
			return ""
		}
		v := df.Col(col).Elem(i)
		if v.IsNA() {
			return ""
		}
		return strings.TrimSpace(v.String())
	}
	cols := map[string]string{}
	for _, name := range []string{"order_id", "customer_id", "customer", "purchased_at", "price", "review_score",
		"seller", "approved_at", "shipping_limit", "carrier_at", "delivered_at", "estimated_at"} {
		cols[name] = column(df, dcfg, name)
	}

	orders := make([]model.Order, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		o := model.Order{
			OrderID:    get(cols["order_id"], i),
			CustomerID: get(cols["customer_id"], i),
			Customer:   get(cols["customer"], i),
			Seller:     get(cols["seller"], i),
			Category:   get(categoryCol, i),
		}
		if o.Customer == "" {
			o.Customer = o.CustomerID
		}

		row := srcRows[i] + 1
		var err error
		raw := get(cols["purchased_at"], i)
		if o.PurchasedAt, err = utils.ParseTime(raw, dcfg.TimeLayouts); err != nil || o.PurchasedAt.IsZero() {
			return nil, processor.DataErrorf("row %d (order %q): unparseable purchase timestamp %q", row, o.OrderID, raw)
		}
		raw = get(cols["price"], i)
		if o.Price, err = utils.ParseFloat(raw); err != nil || math.IsNaN(o.Price) {
			return nil, processor.DataErrorf("row %d (order %q): invalid price %q", row, o.OrderID, raw)
		}
		if o.ReviewScore, err = utils.ParseFloat(get(cols["review_score"], i)); err != nil {
			return nil, processor.DataErrorf("row %d (order %q): invalid review score", row, o.OrderID)
		}
		o.DeliverySpeed = math.NaN()
		if speedCol != "" {
			if o.DeliverySpeed, err = speedValue(df.Col(speedCol).Elem(i)); err != nil {
				return nil, processor.DataErrorf("row %d (order %q): invalid delivery speed", row, o.OrderID)
			}
		}

		// 可选时间列解析失败时置零
		o.ApprovedAt, _ = utils.ParseTime(get(cols["approved_at"], i), dcfg.TimeLayouts)
		o.ShippingLimitAt, _ = utils.ParseTime(get(cols["shipping_limit"], i), dcfg.TimeLayouts)
		o.DeliveredCarrierAt, _ = utils.ParseTime(get(cols["carrier_at"], i), dcfg.TimeLayouts)
		o.DeliveredCustomerAt, _ = utils.ParseTime(get(cols["delivered_at"], i), dcfg.TimeLayouts)
		o.EstimatedDeliveryAt, _ = utils.ParseTime(get(cols["estimated_at"], i), dcfg.TimeLayouts)

		orders = append(orders, o)
	}
	return orders, nil
}

func speedValue(e series.Element) (float64, error) {
	if e.IsNA() {
		return math.NaN(), nil
	}
	if e.Type() == series.Float {
		return e.Float(), nil
	}
	return utils.ParseFloat(e.String())
}

// ToLocations 将字符串 DataFrame 转换为线路记录，坐标无法解析的行被跳过
func ToLocations(df dataframe.DataFrame, dcfg *config.DataConfig) ([]model.Location, error) {
	if dcfg == nil {
		dcfg = config.Default()
	}
	if err := checkColumns(df, dcfg, requiredLocationColumns); err != nil {
		return nil, err
	}

	str := func(name string, i int) string {
		col := column(df, dcfg, name)
		if col == "" {
			return ""
		}
		return strings.TrimSpace(df.Col(col).Elem(i).String())
	}
	num := func(name string, i int) (float64, error) {
		return utils.ParseFloat(str(name, i))
	}

	out := make([]model.Location, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		l := model.Location{
			SellerCity:   str("seller_city", i),
			CustomerCity: str("customer_city", i),
		}
		var errs [5]error
		l.SellerLat, errs[0] = num("seller_lat", i)
		l.SellerLon, errs[1] = num("seller_lon", i)
		l.CustomerLat, errs[2] = num("customer_lat", i)
		l.CustomerLon, errs[3] = num("customer_lon", i)
		l.DeliverySpeed, errs[4] = num("route_speed", i)
		skip := false
		for _, err := range errs {
			if err != nil {
				skip = true
			}
		}
		if skip {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
