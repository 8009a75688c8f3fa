// server.go
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"EcomInsight/src/model"
	"EcomInsight/src/processor"
	"EcomInsight/src/render"
	"EcomInsight/src/report"
	"EcomInsight/src/storage"
	"EcomInsight/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
)

//go:embed templates/*.html
var templates embed.FS

var rfmSortKeys = []string{"customer_id", "recency", "frequency", "monetary"}

// Server 看板 HTTP 服务
type Server struct {
	store    *Store
	exporter *report.Exporter
	logger   *storage.Logger
	engine   *gin.Engine
}

// NewServer 注册全部路由
func NewServer(store *Store, exporter *report.Exporter, logger *storage.Logger) *Server {
	s := &Server{
		store:    store,
		exporter: exporter,
		logger:   logger,
		engine:   gin.New(),
	}
	s.engine.Use(Recovery(logger), AccessLog(logger))
	funcs := template.FuncMap{
		"date": func(t time.Time) string { return t.Format(processor.DateLayout) },
		"money": func(v float64) string {
			if exporter == nil {
				return strconv.FormatFloat(v, 'f', 2, 64)
			}
			return exporter.Money(v)
		},
	}
	s.engine.SetHTMLTemplate(template.Must(template.New("").Funcs(funcs).ParseFS(templates, "templates/*.html")))

	s.engine.GET("/", s.index)
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/logs", s.streamLogs)
	s.engine.GET("/charts/:name", s.chart)

	api := s.engine.Group("/api")
	{
		api.GET("/bounds", s.bounds)
		api.GET("/overview", s.overview)
		api.GET("/daily", s.daily)
		api.GET("/categories", s.categories)
		api.GET("/delivery", s.delivery)
		api.GET("/rfm", s.rfm)
		api.GET("/sellers", s.sellers)
		api.GET("/routes", s.routes)
		api.GET("/export", s.export)
	}
	return s
}

// Handler 供 http.Server 与测试使用
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听 addr 直到 ctx 结束
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("看板服务启动", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("看板服务关闭")
		return srv.Shutdown(shutdownCtx)
	}
}

/******************** 查询参数 ********************/

type window struct {
	proc   *processor.DataProcessor
	orders []model.Order
	start  time.Time
	end    time.Time
}

func parseDateParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return processor.ParseDate(v)
}

// window 解析 start/end，缺省时使用快照边界
func (s *Server) window(c *gin.Context) (*window, error) {
	start, err := parseDateParam(c.Query("start"))
	if err != nil {
		return nil, err
	}
	end, err := parseDateParam(c.Query("end"))
	if err != nil {
		return nil, err
	}
	proc := s.store.Processor()
	orders, start, end, err := proc.Window(start, end)
	if err != nil {
		return nil, err
	}
	return &window{proc: proc, orders: orders, start: start, end: end}, nil
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, processor.DataErrorf("invalid %s %q", name, v)
	}
	return n, nil
}

/******************** 处理函数 ********************/

func (s *Server) health(c *gin.Context) {
	snap := s.store.Processor().Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"orders":    len(snap.Orders),
		"locations": len(snap.Locations),
		"source":    snap.Source,
		"loaded_at": snap.LoadedAt,
	})
}

func (s *Server) bounds(c *gin.Context) {
	first, last, err := s.store.Processor().Bounds()
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start": first.Format(processor.DateLayout),
		"end":   last.Format(processor.DateLayout),
	})
}

func (s *Server) overview(c *gin.Context) {
	w, err := s.window(c)
	if err != nil {
		Fail(c, err)
		return
	}
	ov, err := w.proc.Overview(w.orders)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start":    w.start.Format(processor.DateLayout),
		"end":      w.end.Format(processor.DateLayout),
		"overview": ov,
	})
}

func (s *Server) daily(c *gin.Context) {
	w, err := s.window(c)
	if err != nil {
		Fail(c, err)
		return
	}
	daily, err := w.proc.Daily(w.orders)
	if err != nil {
		Fail(c, err)
		return
	}
	total, revenue := processor.Totals(daily)
	c.JSON(http.StatusOK, gin.H{"daily": daily, "total_orders": total, "total_revenue": revenue})
}

func (s *Server) categories(c *gin.Context) {
	w, err := s.window(c)
	if err != nil {
		Fail(c, err)
		return
	}
	n, err := intParam(c, "n", w.proc.TopN())
	if err != nil {
		Fail(c, err)
		return
	}
	ranked, err := w.proc.Categories(w.orders)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ranked": ranked,
		"best":   processor.Best(ranked, n),
		"worst":  processor.Worst(ranked, n),
		"share":  processor.RevenueShare(ranked),
	})
}

func (s *Server) delivery(c *gin.Context) {
	w, err := s.window(c)
	if err != nil {
		Fail(c, err)
		return
	}
	dr, err := w.proc.Delivery(w.orders)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dr)
}

func (s *Server) rfm(c *gin.Context) {
	w, err := s.window(c)
	if err != nil {
		Fail(c, err)
		return
	}
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		Fail(c, err)
		return
	}
	by := c.DefaultQuery("sort", "customer_id")
	if !utils.Contains(rfmSortKeys, by) {
		Fail(c, processor.DataErrorf("invalid sort %q", by))
		return
	}
	rows, err := w.proc.RFM(w.orders)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, processor.SortRFM(rows, by, limit))
}

func (s *Server) sellers(c *gin.Context) {
	w, err := s.window(c)
	if err != nil {
		Fail(c, err)
		return
	}
	rows, err := w.proc.Sellers(w.orders)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) routes(c *gin.Context) {
	proc := s.store.Processor()
	routes := proc.Routes(c.QueryArray("city"))
	tooltips := make([]string, len(routes))
	for i, r := range routes {
		tooltips[i] = processor.Tooltip(r)
	}
	c.JSON(http.StatusOK, gin.H{
		"routes":   routes,
		"tooltips": tooltips,
		"cities":   proc.Cities(),
	})
}

func (s *Server) export(c *gin.Context) {
	if s.exporter == nil {
		NotFound(c, "report export disabled")
		return
	}
	w, err := s.window(c)
	if err != nil {
		Fail(c, err)
		return
	}
	r, err := w.proc.Compute(w.start, w.end)
	if err != nil {
		Fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, r); err != nil {
		Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName(r, time.Now())))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *Server) chart(c *gin.Context) {
	name := c.Param("name")
	if !strings.HasSuffix(name, ".png") {
		NotFound(c, "unknown chart "+name)
		return
	}
	name = strings.TrimSuffix(name, ".png")

	var (
		p   *plot.Plot
		err error
	)
	if name == "routes" {
		p, err = render.RouteChart(s.store.Processor().Routes(c.QueryArray("city")))
	} else {
		var w *window
		if w, err = s.window(c); err != nil {
			Fail(c, err)
			return
		}
		p, err = s.windowChart(name, w)
	}
	if err != nil {
		Fail(c, err)
		return
	}
	if p == nil {
		NotFound(c, "unknown chart "+name)
		return
	}

	var buf bytes.Buffer
	if err := render.WritePNG(p, &buf); err != nil {
		Fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// windowChart 未知图表返回 nil
func (s *Server) windowChart(name string, w *window) (*plot.Plot, error) {
	switch name {
	case "daily":
		daily, err := w.proc.Daily(w.orders)
		if err != nil {
			return nil, err
		}
		return render.DailyChart(daily)
	case "categories", "revenue":
		ranked, err := w.proc.Categories(w.orders)
		if err != nil {
			return nil, err
		}
		n := w.proc.TopN()
		if name == "revenue" {
			return render.RevenueShareChart(ranked, n)
		}
		return render.CategoryChart(processor.Best(ranked, n), processor.Worst(ranked, n))
	case "delivery":
		dr, err := w.proc.Delivery(w.orders)
		if err != nil {
			return nil, err
		}
		return render.DeliveryChart(dr)
	case "rfm":
		ov, err := w.proc.Overview(w.orders)
		if err != nil {
			return nil, err
		}
		return render.RFMChart(ov)
	case "sellers":
		rows, err := w.proc.Sellers(w.orders)
		if err != nil {
			return nil, err
		}
		return render.SellerChart(rows)
	default:
		return nil, nil
	}
}

// streamLogs 持续推送日志直到客户端断开
func (s *Server) streamLogs(c *gin.Context) {
	sub := s.logger.Subscribe()
	defer s.logger.Unsubscribe(sub)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case line, ok := <-sub:
			if !ok {
				return
			}
			if _, err := io.WriteString(c.Writer, line+"\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) index(c *gin.Context) {
	data := gin.H{"Query": template.URL("")}
	w, err := s.window(c)
	if err != nil {
		status, _ := StatusOf(err)
		data["Error"] = err.Error()
		c.HTML(status, "index.html", data)
		return
	}
	q := url.Values{}
	q.Set("start", w.start.Format(processor.DateLayout))
	q.Set("end", w.end.Format(processor.DateLayout))
	data["Query"] = template.URL(q.Encode())
	data["Start"] = w.start
	data["End"] = w.end
	data["Cities"] = w.proc.Cities()
	if ov, err := w.proc.Overview(w.orders); err != nil {
		data["Error"] = err.Error()
	} else {
		data["Overview"] = ov
	}
	c.HTML(http.StatusOK, "index.html", data)
}
