// report.go
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/metrics"
	"EcomInsight/src/processor"
	"EcomInsight/src/storage"
	"EcomInsight/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Sheets 工作簿中的 sheet 顺序
var Sheets = []string{"Overview", "Daily", "Categories", "Delivery", "RFM", "Sellers", "Routes"}

// Progress 每写完一个 sheet 调用一次
type Progress func(sheet string)

// Exporter 把 processor.Report 写成 xlsx
type Exporter struct {
	dir     string
	unit    currency.Unit
	printer *message.Printer
	logger  *storage.Logger
}

// NewExporter 按配置解析货币与地区，logger 可为 nil
func NewExporter(cfg *config.Config, logger *storage.Logger) (*Exporter, error) {
	unit, err := currency.ParseISO(cfg.Report.Currency)
	if err != nil {
		return nil, fmt.Errorf("无效的货币代码 %q: %w", cfg.Report.Currency, err)
	}
	tag, err := language.Parse(cfg.Report.Locale)
	if err != nil {
		return nil, fmt.Errorf("无效的地区 %q: %w", cfg.Report.Locale, err)
	}
	return &Exporter{
		dir:     cfg.Report.Dir,
		unit:    unit,
		printer: message.NewPrinter(tag),
		logger:  logger,
	}, nil
}

// Money 按地区格式化金额，带 ISO 货币代码
func (e *Exporter) Money(v float64) string {
	return e.printer.Sprint(currency.ISO(e.unit.Amount(v)))
}

// Count 按地区格式化整数
func (e *Exporter) Count(v int) string {
	return e.printer.Sprintf("%d", v)
}

// Workbook 生成工作簿，调用方负责 Close
func (e *Exporter) Workbook(r *processor.Report, progress Progress) (*excelize.File, error) {
	f := excelize.NewFile()
	writers := map[string]func(*excelize.File, string, *processor.Report) error{
		"Overview":   e.writeOverview,
		"Daily":      writeDaily,
		"Categories": e.writeCategories,
		"Delivery":   writeDelivery,
		"RFM":        writeRFM,
		"Sellers":    writeSellers,
		"Routes":     writeRoutes,
	}

	for _, sheet := range Sheets {
		if err := writers[sheet](f, sheet, r); err != nil {
			f.Close()
			return nil, fmt.Errorf("写入 sheet %s 失败: %w", sheet, err)
		}
		if progress != nil {
			progress(sheet)
		}
	}

	// 去掉默认 sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	if idx, err := f.GetSheetIndex(Sheets[0]); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

// Write 把工作簿写到 w
func (e *Exporter) Write(w io.Writer, r *processor.Report) error {
	f, err := e.Workbook(r, nil)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

// FileName 报表文件名，包含窗口与生成时间
func FileName(r *processor.Report, now time.Time) string {
	return fmt.Sprintf("report_%s_%s_%s.xlsx",
		r.Start.Format("20060102"), r.End.Format("20060102"), now.Format("20060102150405"))
}

// Export 写入报表目录，返回文件路径
func (e *Exporter) Export(r *processor.Report, trigger string, progress Progress) (path string, err error) {
	defer func() { metrics.RecordExport(trigger, err == nil) }()

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("创建报表目录失败: %w", err)
	}
	f, err := e.Workbook(r, progress)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path = filepath.Join(e.dir, FileName(r, time.Now()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("保存报表失败: %w", err)
	}
	if e.logger != nil {
		e.logger.Info("报表已导出", zap.String("path", path), zap.String("trigger", trigger))
	}
	return path, nil
}

/******************** sheet 写入 ********************/

type overviewRow struct {
	Metric string `dataframe:"metric"`
	Value  string `dataframe:"value"`
}

type dailyRow struct {
	Date    string  `dataframe:"date"`
	Orders  int     `dataframe:"order_count"`
	Revenue float64 `dataframe:"revenue"`
}

type categoryRow struct {
	Category string  `dataframe:"category"`
	Orders   int     `dataframe:"total_orders"`
	Revenue  float64 `dataframe:"total_revenue"`
	Share    float64 `dataframe:"revenue_share"`
	Display  string  `dataframe:"revenue_display"`
}

type deliveryRow struct {
	Label  string  `dataframe:"label"`
	Lower  float64 `dataframe:"lower"`
	Upper  float64 `dataframe:"upper"`
	Count  int     `dataframe:"count"`
	Mean   float64 `dataframe:"mean_review"`
	Min    float64 `dataframe:"min"`
	Q1     float64 `dataframe:"q1"`
	Median float64 `dataframe:"median"`
	Q3     float64 `dataframe:"q3"`
	Max    float64 `dataframe:"max"`
}

type routeRow struct {
	SellerCity   string  `dataframe:"seller_city"`
	CustomerCity string  `dataframe:"customer_city"`
	Speed        float64 `dataframe:"delivery_speed"`
	Fast         bool    `dataframe:"fast"`
	Tooltip      string  `dataframe:"tooltip"`
}

func (e *Exporter) writeOverview(f *excelize.File, sheet string, r *processor.Report) error {
	o := r.Overview
	rows := []overviewRow{
		{"window_start", r.Start.Format(processor.DateLayout)},
		{"window_end", r.End.Format(processor.DateLayout)},
		{"total_orders", e.Count(o.TotalOrders)},
		{"total_revenue", e.Money(o.TotalRevenue)},
		{"avg_recency_days", fmt.Sprintf("%.1f", o.AvgRecency)},
		{"avg_frequency", fmt.Sprintf("%.2f", o.AvgFrequency)},
		{"avg_monetary", e.Money(o.AvgMonetary)},
	}
	for i, c := range o.TopByRecency {
		rows = append(rows, overviewRow{fmt.Sprintf("top_recency_%d", i+1), fmt.Sprintf("%s (%d)", c.Customer, c.Recency)})
	}
	for i, c := range o.TopByFrequency {
		rows = append(rows, overviewRow{fmt.Sprintf("top_frequency_%d", i+1), fmt.Sprintf("%s (%d)", c.Customer, c.Frequency)})
	}
	for i, c := range o.TopByMonetary {
		rows = append(rows, overviewRow{fmt.Sprintf("top_monetary_%d", i+1), fmt.Sprintf("%s (%s)", c.Customer, e.Money(c.Monetary))})
	}
	return writeRows(f, sheet, rows, len(rows), []string{"metric", "value"})
}

func writeDaily(f *excelize.File, sheet string, r *processor.Report) error {
	rows := make([]dailyRow, len(r.Daily))
	for i, d := range r.Daily {
		rows[i] = dailyRow{d.Date.Format(processor.DateLayout), d.OrderCount, d.Revenue}
	}
	return writeRows(f, sheet, rows, len(rows), []string{"date", "order_count", "revenue"})
}

func (e *Exporter) writeCategories(f *excelize.File, sheet string, r *processor.Report) error {
	share := processor.RevenueShare(r.Categories)
	rows := make([]categoryRow, len(r.Categories))
	for i, c := range r.Categories {
		rows[i] = categoryRow{c.Category, c.TotalOrders, c.TotalRevenue, share[i], e.Money(c.TotalRevenue)}
	}
	return writeRows(f, sheet, rows, len(rows),
		[]string{"category", "total_orders", "total_revenue", "revenue_share", "revenue_display"})
}

func writeDelivery(f *excelize.File, sheet string, r *processor.Report) error {
	rows := make([]deliveryRow, len(r.Delivery.Buckets))
	for i, b := range r.Delivery.Buckets {
		rows[i] = deliveryRow{b.Label, b.Lower, b.Upper, b.Count, b.MeanReview, b.Min, b.Q1, b.Median, b.Q3, b.Max}
	}
	if err := writeRows(f, sheet, rows, len(rows),
		[]string{"label", "lower", "upper", "count", "mean_review", "min", "q1", "median", "q3", "max"}); err != nil {
		return err
	}
	// 汇总行放在表格下方
	foot, _ := excelize.CoordinatesToCellName(1, len(rows)+3)
	return f.SetSheetRow(sheet, foot, &[]interface{}{"max_speed", r.Delivery.MaxSpeed, "skipped", r.Delivery.Skipped})
}

func writeRFM(f *excelize.File, sheet string, r *processor.Report) error {
	return writeRows(f, sheet, r.RFM, len(r.RFM),
		[]string{"customer_id", "customer", "frequency", "monetary", "recency"})
}

func writeSellers(f *excelize.File, sheet string, r *processor.Report) error {
	return writeRows(f, sheet, r.Sellers, len(r.Sellers),
		[]string{"key", "total_orders", "total_revenue", "revenue_cluster", "order_cluster", "combined_cluster"})
}

func writeRoutes(f *excelize.File, sheet string, r *processor.Report) error {
	rows := make([]routeRow, len(r.Routes))
	for i, rt := range r.Routes {
		rows[i] = routeRow{rt.SellerCity, rt.CustomerCity, rt.DeliverySpeed, rt.Fast, processor.Tooltip(rt)}
	}
	return writeRows(f, sheet, rows, len(rows),
		[]string{"seller_city", "customer_city", "delivery_speed", "fast", "tooltip"})
}

// writeRows 结构体切片经 DataFrame 写入 sheet，空表只写表头
func writeRows(f *excelize.File, sheet string, rows interface{}, n int, header []string) error {
	if n == 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		cells := make([]interface{}, len(header))
		for i, h := range header {
			cells[i] = h
		}
		return f.SetSheetRow(sheet, "A1", &cells)
	}
	df := dataframe.LoadStructs(rows)
	if df.Err != nil {
		return df.Err
	}
	return utils.WriteFrame(f, sheet, df)
}

// Summary 邮件正文用的简短文字摘要
func (e *Exporter) Summary(r *processor.Report) string {
	o := r.Overview
	best := "-"
	if len(r.Best) > 0 {
		best = r.Best[0].Category
	}
	means := processor.MeanReviewByLabel(r.Delivery)
	reviews := make([]string, 0, len(r.Delivery.Buckets))
	for _, b := range r.Delivery.Buckets {
		reviews = append(reviews, e.printer.Sprintf("%s %.2f", b.Label, means[b.Label]))
	}
	if len(reviews) == 0 {
		reviews = append(reviews, "-")
	}
	return e.printer.Sprintf("%s ~ %s\n订单数: %s\n收入: %s\n最佳品类: %s\n卖家数: %d\n配送评分: %s\n",
		r.Start.Format(processor.DateLayout), r.End.Format(processor.DateLayout),
		e.Count(o.TotalOrders), e.Money(o.TotalRevenue), best, len(r.Sellers), strings.Join(reviews, " / "))
}
