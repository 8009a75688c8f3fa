// charts.go
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"

	"EcomInsight/src/model"
	"EcomInsight/src/processor"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// 默认图片尺寸
const (
	Width  = 10 * vg.Inch
	Height = 6 * vg.Inch
)

var (
	colorBlue  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorRed   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorGreen = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	colorGray  = color.RGBA{R: 127, G: 127, B: 127, A: 255}
)

// 聚类标签配色，循环使用
var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
	color.RGBA{R: 140, G: 86, B: 75, A: 255},
	color.RGBA{R: 227, G: 119, B: 194, A: 255},
	color.RGBA{R: 188, G: 189, B: 34, A: 255},
	color.RGBA{R: 23, G: 190, B: 207, A: 255},
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// WritePNG 把图表以 PNG 写入 w
func WritePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// DailyChart 每日订单量折线
func DailyChart(daily []model.DailyOrders) (*plot.Plot, error) {
	p := newPlot("Daily Orders", "Date", "Orders")
	if len(daily) == 0 {
		return p, nil
	}

	points := make(plotter.XYs, len(daily))
	for i, d := range daily {
		points[i].X = float64(d.Date.Unix())
		points[i].Y = float64(d.OrderCount)
	}
	line, err := plotter.NewLine(points)
	if err != nil {
		return nil, err
	}
	line.Color = colorBlue
	line.Width = vg.Points(2)

	p.Add(line, plotter.NewGrid())
	p.X.Tick.Marker = plot.TimeTicks{Format: processor.DateLayout}
	p.Y.Min = 0
	return p, nil
}

// CategoryChart 最好与最差品类并排柱状图
func CategoryChart(best, worst []model.CategorySummary) (*plot.Plot, error) {
	p := newPlot("Best & Worst Categories", "Category", "Orders")
	if len(best) == 0 && len(worst) == 0 {
		return p, nil
	}

	values := make(plotter.Values, 0, len(best)+len(worst))
	labels := make([]string, 0, len(best)+len(worst))
	for _, c := range best {
		values = append(values, float64(c.TotalOrders))
		labels = append(labels, c.Category)
	}
	nBest := len(values)
	for _, c := range worst {
		values = append(values, float64(c.TotalOrders))
		labels = append(labels, c.Category)
	}

	// 两组分开着色，共用一条 X 轴
	bestVals := make(plotter.Values, len(values))
	worstVals := make(plotter.Values, len(values))
	for i, v := range values {
		if i < nBest {
			bestVals[i] = v
		} else {
			worstVals[i] = v
		}
	}

	bestBars, err := plotter.NewBarChart(bestVals, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bestBars.Color = colorBlue
	bestBars.LineStyle.Width = vg.Length(0)

	worstBars, err := plotter.NewBarChart(worstVals, vg.Points(20))
	if err != nil {
		return nil, err
	}
	worstBars.Color = colorRed
	worstBars.LineStyle.Width = vg.Length(0)

	p.Add(bestBars, worstBars)
	p.Legend.Add("Best", bestBars)
	p.Legend.Add("Worst", worstBars)
	p.Legend.Top = true
	rotateNominal(p, labels)
	return p, nil
}

// RevenueShareChart 前 n 个品类收入占比
func RevenueShareChart(ranked []model.CategorySummary, n int) (*plot.Plot, error) {
	p := newPlot("Revenue Share", "Category", "Share (%)")
	share := processor.RevenueShare(ranked)
	if len(share) == 0 {
		return p, nil
	}
	if n > 0 && len(share) > n {
		share = share[:n]
	}

	values := make(plotter.Values, len(share))
	labels := make([]string, len(share))
	for i, s := range share {
		values[i] = s * 100
		labels[i] = ranked[i].Category
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, err
	}
	bars.Color = colorGreen
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	rotateNominal(p, labels)

	for i, v := range values {
		label, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: float64(i), Y: v}},
			Labels: []string{fmt.Sprintf("%.1f%%", v)},
		})
		if err == nil {
			p.Add(label)
		}
	}
	p.Y.Min = 0
	return p, nil
}

// DeliveryChart 各速度区间评分箱线图
func DeliveryChart(r model.DeliveryReview) (*plot.Plot, error) {
	p := newPlot("Review Score by Delivery Speed", "Delivery (days)", "Review score")
	labels := make([]string, len(r.Buckets))
	drawn := 0
	for i, b := range r.Buckets {
		labels[i] = fmt.Sprintf("%s (%d)", b.Label, b.Count)
		if len(b.Scores) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(b.Scores))
		if err != nil {
			return nil, err
		}
		box.FillColor = palette[i%len(palette)]
		p.Add(box)
		drawn++
	}
	if drawn == 0 {
		return p, nil
	}
	p.NominalX(labels...)
	p.Y.Min = 0
	p.Y.Max = 5.5
	return p, nil
}

// RFMChart 三个维度的前几名客户
func RFMChart(o model.Overview) (*plot.Plot, error) {
	p := newPlot("Top Customers", "Customer", "Value")
	groups := []struct {
		name  string
		rows  []model.RFMSummary
		value func(model.RFMSummary) float64
		color color.Color
	}{
		{"Recency (days)", o.TopByRecency, func(r model.RFMSummary) float64 { return float64(r.Recency) }, colorBlue},
		{"Frequency", o.TopByFrequency, func(r model.RFMSummary) float64 { return float64(r.Frequency) }, colorGreen},
		{"Monetary", o.TopByMonetary, func(r model.RFMSummary) float64 { return r.Monetary }, colorRed},
	}

	var labels []string
	for _, g := range groups {
		for _, r := range g.rows {
			labels = append(labels, r.Customer)
		}
	}
	if len(labels) == 0 {
		return p, nil
	}

	offset := 0
	for _, g := range groups {
		values := make(plotter.Values, len(labels))
		for i, r := range g.rows {
			values[offset+i] = g.value(r)
		}
		offset += len(g.rows)
		bars, err := plotter.NewBarChart(values, vg.Points(18))
		if err != nil {
			return nil, err
		}
		bars.Color = g.color
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
		p.Legend.Add(g.name, bars)
	}
	p.Legend.Top = true
	rotateNominal(p, labels)
	return p, nil
}

// SellerChart 卖家气泡图，半径按收入缩放，颜色按组合聚类
func SellerChart(sellers []model.ClusterRecord) (*plot.Plot, error) {
	p := newPlot("Seller Clusters", "Total orders", "Total revenue")
	if len(sellers) == 0 {
		return p, nil
	}

	maxRevenue := 0.0
	for _, s := range sellers {
		maxRevenue = math.Max(maxRevenue, s.TotalRevenue)
	}
	colors := clusterColors(sellers)

	legend := make(map[string]bool)
	for _, s := range sellers {
		bubble, err := plotter.NewScatter(plotter.XYs{{X: float64(s.TotalOrders), Y: s.TotalRevenue}})
		if err != nil {
			return nil, err
		}
		bubble.GlyphStyle.Color = colors[s.Combined]
		bubble.GlyphStyle.Shape = draw.CircleGlyph{}
		bubble.GlyphStyle.Radius = bubbleRadius(s.TotalRevenue, maxRevenue)
		p.Add(bubble)
		if !legend[s.Combined] {
			legend[s.Combined] = true
			p.Legend.Add(s.Combined, bubble)
		}
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p, nil
}

// RouteChart 经纬度线路图，快线蓝色，慢线红色
func RouteChart(routes []model.Route) (*plot.Plot, error) {
	p := newPlot("Delivery Routes", "Longitude", "Latitude")
	if len(routes) == 0 {
		return p, nil
	}

	sellers := make(plotter.XYs, 0, len(routes))
	customers := make(plotter.XYs, 0, len(routes))
	for _, r := range routes {
		line, err := plotter.NewLine(plotter.XYs{
			{X: r.SellerLon, Y: r.SellerLat},
			{X: r.CustomerLon, Y: r.CustomerLat},
		})
		if err != nil {
			return nil, err
		}
		line.Color = colorRed
		if r.Fast {
			line.Color = colorBlue
		}
		p.Add(line)
		sellers = append(sellers, plotter.XY{X: r.SellerLon, Y: r.SellerLat})
		customers = append(customers, plotter.XY{X: r.CustomerLon, Y: r.CustomerLat})
	}

	sellerMarks, err := plotter.NewScatter(sellers)
	if err != nil {
		return nil, err
	}
	sellerMarks.GlyphStyle.Color = colorBlue
	sellerMarks.GlyphStyle.Shape = draw.CircleGlyph{}

	customerMarks, err := plotter.NewScatter(customers)
	if err != nil {
		return nil, err
	}
	customerMarks.GlyphStyle.Color = colorGreen
	customerMarks.GlyphStyle.Shape = draw.TriangleGlyph{}

	p.Add(sellerMarks, customerMarks, plotter.NewGrid())
	p.Legend.Add("Seller", sellerMarks)
	p.Legend.Add("Customer", customerMarks)
	p.Legend.Top = true
	return p, nil
}

func rotateNominal(p *plot.Plot, labels []string) {
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YTop
	p.X.Tick.Label.XAlign = draw.XRight
}

// bubbleRadius 4pt 到 16pt 之间按收入平方根缩放
func bubbleRadius(revenue, maxRevenue float64) vg.Length {
	if maxRevenue <= 0 || revenue <= 0 {
		return vg.Points(4)
	}
	return vg.Points(4 + 12*math.Sqrt(revenue/maxRevenue))
}

func clusterColors(sellers []model.ClusterRecord) map[string]color.Color {
	var labels []string
	seen := make(map[string]bool)
	for _, s := range sellers {
		if !seen[s.Combined] {
			seen[s.Combined] = true
			labels = append(labels, s.Combined)
		}
	}
	sort.Strings(labels)

	out := make(map[string]color.Color, len(labels))
	for i, l := range labels {
		out[l] = palette[i%len(palette)]
	}
	if len(out) == 0 {
		out[""] = colorGray
	}
	return out
}
