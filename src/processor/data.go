// data.go
package processor

import (
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/metrics"
	"EcomInsight/src/model"
)

// Report 一个日期窗口内的全部派生表
type Report struct {
	Start      time.Time               `json:"start"`
	End        time.Time               `json:"end"`
	Overview   model.Overview          `json:"overview"`
	Daily      []model.DailyOrders     `json:"daily"`
	Categories []model.CategorySummary `json:"categories"`
	Best       []model.CategorySummary `json:"best"`
	Worst      []model.CategorySummary `json:"worst"`
	Delivery   model.DeliveryReview    `json:"delivery"`
	RFM        []model.RFMSummary      `json:"rfm"`
	Sellers    []model.ClusterRecord   `json:"sellers"`
	Routes     []model.Route           `json:"routes"`
}

// DataProcessor 持有一份只读快照与计算参数
type DataProcessor struct {
	snap     *model.Snapshot
	bins     DeliveryBins
	fastDays float64
	topN     int
	maxSpeed float64 // 全量数据上计算一次
}

// NewDataProcessor dcfg 为 nil 时使用默认参数
func NewDataProcessor(snap *model.Snapshot, dcfg *config.DataConfig) *DataProcessor {
	if snap == nil {
		snap = &model.Snapshot{}
	}
	if dcfg == nil {
		dcfg = config.Default()
	}
	p := &DataProcessor{
		snap:     snap,
		bins:     DeliveryBins{Edges: dcfg.Delivery.Edges, Labels: dcfg.Delivery.Labels},
		fastDays: dcfg.FastDays,
		topN:     dcfg.TopN,
	}
	if len(p.bins.Edges) == 0 {
		p.bins = DefaultDeliveryBins()
	}
	if p.fastDays == 0 {
		p.fastDays = DefaultFastDays
	}
	if p.topN == 0 {
		p.topN = 5
	}
	p.maxSpeed = MaxDeliverySpeed(snap.Orders)
	return p
}

// Snapshot 当前快照
func (p *DataProcessor) Snapshot() *model.Snapshot {
	return p.snap
}

// TopN 品类排行展示数量
func (p *DataProcessor) TopN() int {
	return p.topN
}

// CleanData 校验快照：每行必须有订单号、客户号与下单时间
func (p *DataProcessor) CleanData() error {
	for i, o := range p.snap.Orders {
		switch {
		case o.OrderID == "":
			return DataErrorf("row %d has no order id", i)
		case o.CustomerID == "":
			return DataErrorf("order %q (row %d) has no customer id", o.OrderID, i)
		case o.PurchasedAt.IsZero():
			return DataErrorf("order %q (row %d) has no valid purchase timestamp", o.OrderID, i)
		}
	}
	return nil
}

// Bounds 快照的日期范围
func (p *DataProcessor) Bounds() (time.Time, time.Time, error) {
	return DateBounds(p.snap.Orders)
}

// Window 截取日期窗口，零值端点取快照边界
func (p *DataProcessor) Window(start, end time.Time) ([]model.Order, time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		first, last, err := p.Bounds()
		if err != nil {
			return nil, start, end, err
		}
		if start.IsZero() {
			start = first
		}
		if end.IsZero() {
			end = last
		}
	}
	orders, err := FilterByDate(p.snap.Orders, start, end)
	return orders, start, end, err
}

// Daily 日订单量
func (p *DataProcessor) Daily(orders []model.Order) (out []model.DailyOrders, err error) {
	defer observe("daily", time.Now(), &err)
	return DailyOrders(orders)
}

// Categories 品类排行
func (p *DataProcessor) Categories(orders []model.Order) (out []model.CategorySummary, err error) {
	defer observe("categories", time.Now(), &err)
	return TopCategories(orders)
}

// Delivery 配送速度与评分
func (p *DataProcessor) Delivery(orders []model.Order) (out model.DeliveryReview, err error) {
	defer observe("delivery", time.Now(), &err)
	return DeliveryReview(orders, p.maxSpeed, p.bins)
}

// RFM 以窗口内最大下单时间为基准计算 RFM
func (p *DataProcessor) RFM(orders []model.Order) (out []model.RFMSummary, err error) {
	defer observe("rfm", time.Now(), &err)
	if len(orders) == 0 {
		return []model.RFMSummary{}, nil
	}
	ref, err := ReferenceDate(orders)
	if err != nil {
		return nil, err
	}
	return RFM(orders, ref)
}

// Sellers 卖家四分位聚类，分位点取自当前窗口
func (p *DataProcessor) Sellers(orders []model.Order) (out []model.ClusterRecord, err error) {
	defer observe("sellers", time.Now(), &err)
	groups, err := SellerMetrics(orders)
	if err != nil {
		return nil, err
	}
	return AssignQuartileClusters(groups)
}

// Routes 线路，cities 为空表示全部
func (p *DataProcessor) Routes(cities []string) []model.Route {
	return Routes(p.snap.Locations, cities, p.fastDays)
}

// Cities 买家城市列表
func (p *DataProcessor) Cities() []string {
	return CustomerCities(p.snap.Locations)
}

// Overview 顶部指标
func (p *DataProcessor) Overview(orders []model.Order) (model.Overview, error) {
	daily, err := p.Daily(orders)
	if err != nil {
		return model.Overview{}, err
	}
	rfm, err := p.RFM(orders)
	if err != nil {
		return model.Overview{}, err
	}
	return Summarize(daily, rfm), nil
}

// Compute 计算窗口内全部派生表，任一失败即返回
func (p *DataProcessor) Compute(start, end time.Time) (*Report, error) {
	orders, start, end, err := p.Window(start, end)
	if err != nil {
		return nil, err
	}
	r := &Report{Start: start, End: end}

	if r.Daily, err = p.Daily(orders); err != nil {
		return nil, err
	}
	if r.Categories, err = p.Categories(orders); err != nil {
		return nil, err
	}
	r.Best = Best(r.Categories, p.topN)
	r.Worst = Worst(r.Categories, p.topN)
	if r.Delivery, err = p.Delivery(orders); err != nil {
		return nil, err
	}
	if r.RFM, err = p.RFM(orders); err != nil {
		return nil, err
	}
	r.Overview = Summarize(r.Daily, r.RFM)
	if r.Sellers, err = p.Sellers(orders); err != nil {
		return nil, err
	}
	r.Routes = p.Routes(nil)
	return r, nil
}

func observe(table string, start time.Time, err *error) {
	kind := ""
	if *err != nil {
		kind = string(KindOf(*err))
		if kind == "" {
			kind = "OTHER"
		}
	}
	metrics.RecordComputation(table, kind, time.Since(start).Seconds())
}
