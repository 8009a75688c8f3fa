package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Email struct {
		Enabled       bool     `json:"enabled" yaml:"enabled"`
		Server        string   `json:"server" yaml:"server"`                 // 邮件服务器地址
		Username      string   `json:"username" yaml:"username"`             // 邮箱用户名
		Password      string   `json:"password" yaml:"password"`             // 邮箱密码
		TargetSubject string   `json:"target_subject" yaml:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval" yaml:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email" yaml:"email"`

	DataDir       string `json:"data_dir" yaml:"data_dir"` // 数据集目录
	OrdersFile    string `json:"orders_file" yaml:"orders_file"`
	LocationsFile string `json:"locations_file" yaml:"locations_file"`
	SheetName     string `json:"sheet_name" yaml:"sheet_name"` // xlsx 数据源的工作表，空则取第一个
	LogName       string `json:"log_name" yaml:"log_name"`
	LogMaxSize    string `json:"log_max_size" yaml:"log_max_size"` // 支持 "10 * 1024 * 1024" 形式
	LogLevel      string `json:"log_level" yaml:"log_level"`
	LogFormat     string `json:"log_format" yaml:"log_format"` // json | console
	PidFile       string `json:"pid_file" yaml:"pid_file"`

	Source struct {
		Type  string `json:"type" yaml:"type"` // file | mysql | postgres
		DSN   string `json:"dsn" yaml:"dsn"`
		Query string `json:"query" yaml:"query"`
	} `json:"source" yaml:"source"`

	Server struct {
		ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	} `json:"server" yaml:"server"`

	Report struct {
		Enabled  bool     `json:"enabled" yaml:"enabled"`
		Dir      string   `json:"dir" yaml:"dir"`
		Interval Duration `json:"interval" yaml:"interval"`
		Currency string   `json:"currency" yaml:"currency"`
		Locale   string   `json:"locale" yaml:"locale"`
	} `json:"report" yaml:"report"`

	SendEmail struct {
		Enabled  bool     `json:"enabled" yaml:"enabled"`
		Server   string   `json:"server" yaml:"server"` // host:port
		Username string   `json:"username" yaml:"username"`
		Password string   `json:"password" yaml:"password"`
		To       []string `json:"to" yaml:"to"`
		Subject  string   `json:"subject" yaml:"subject"`
	} `json:"send_email" yaml:"send_email"`
}

// DataConfig 数据列映射与计算参数
type DataConfig struct {
	Columns  map[string]string `json:"columns" yaml:"columns"` // 规范列名 -> 源文件列名
	Delivery struct {
		Edges  []float64 `json:"edges" yaml:"edges"`
		Labels []string  `json:"labels" yaml:"labels"`
	} `json:"delivery" yaml:"delivery"`
	FastDays    float64  `json:"fast_days" yaml:"fast_days"`
	TopN        int      `json:"top_n" yaml:"top_n"`
	TimeLayouts []string `json:"time_layouts" yaml:"time_layouts"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

// LoadConfig 只加载一次，后续调用返回同一实例
func LoadConfig(configFolder, configFile, dataConfigFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = Load(configFolder, configFile, dataConfigFile)
	})
	return instance, dataConfigInstance, err
}

// Load 不缓存的加载，按扩展名选择 JSON 或 YAML
func Load(configFolder, configFile, dataConfigFile string) (*Config, *DataConfig, error) {
	cfgPath := filepath.Join(configFolder, configFile)
	dcfgPath := filepath.Join(configFolder, dataConfigFile)

	configData, err := readFile(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dcfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(cfgPath, configData, cfgChan, errChan)
	go parseDataConfig(dcfgPath, dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	dcfg.applyDefaults()
	if err := dcfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	// ${VAR} 展开
	return []byte(os.ExpandEnv(string(data))), nil
}

func unmarshal(path string, data []byte, v interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

func parseConfig(path string, data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := unmarshal(path, data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(path string, data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := unmarshal(path, data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.OrdersFile == "" {
		c.OrdersFile = "orders.csv"
	}
	if c.LocationsFile == "" {
		c.LocationsFile = "customer_seller_loc.csv"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.PidFile == "" {
		c.PidFile = "ecominsight.pid"
	}
	if c.Source.Type == "" {
		c.Source.Type = "file"
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "./reports"
	}
	if c.Report.Interval == 0 {
		c.Report.Interval = Duration(24 * time.Hour)
	}
	if c.Report.Currency == "" {
		c.Report.Currency = "AUD"
	}
	if c.Report.Locale == "" {
		c.Report.Locale = "es-CO"
	}
	if c.Email.CheckInterval == 0 {
		c.Email.CheckInterval = Duration(5 * time.Minute)
	}
	if c.SendEmail.Subject == "" {
		c.SendEmail.Subject = "EcomInsight 报表"
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ECOM_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("ECOM_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("ECOM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ECOM_SOURCE_DSN"); v != "" {
		c.Source.DSN = v
	}
}

// OrdersPath 订单数据文件完整路径
func (c *Config) OrdersPath() string {
	return filepath.Join(c.DataDir, c.OrdersFile)
}

// LocationsPath 线路数据文件完整路径
func (c *Config) LocationsPath() string {
	return filepath.Join(c.DataDir, c.LocationsFile)
}

// DefaultColumns 规范列名到源数据列名的默认映射
func DefaultColumns() map[string]string {
	return map[string]string{
		"order_id":        "order_id",
		"customer_id":     "customer_id",
		"customer":        "customer",
		"purchased_at":    "order_purchase_timestamp",
		"price":           "price",
		"review_score":    "review_score",
		"delivery_speed":  "delivery_speed",
		"seller":          "seller",
		"category":        "product_category_name_english",
		"approved_at":     "order_approved_at",
		"shipping_limit":  "shipping_limit_date",
		"carrier_at":      "order_delivered_carrier_date",
		"delivered_at":    "order_delivered_customer_date",
		"estimated_at":    "order_estimated_delivery_date",
		"seller_city":     "seller_city",
		"customer_city":   "customer_city",
		"seller_lat":      "lat_y",
		"seller_lon":      "lon_y",
		"customer_lat":    "lat_x",
		"customer_lon":    "lon_x",
		"route_speed":     "delivery_speed",
		"category_native": "product_category_name",
	}
}

// DefaultTimeLayouts 可接受的时间格式
func DefaultTimeLayouts() []string {
	return []string{
		"2006-01-02 15:04:05",
		"2006-01-02",
		time.RFC3339,
		"2006/01/02 15:04:05",
		"2006/01/02",
	}
}

func (dc *DataConfig) applyDefaults() {
	cols := DefaultColumns()
	if dc.Columns == nil {
		dc.Columns = cols
	} else {
		for k, v := range cols {
			if _, ok := dc.Columns[k]; !ok {
				dc.Columns[k] = v
			}
		}
	}
	if len(dc.Delivery.Edges) == 0 {
		dc.Delivery.Edges = []float64{0, 25, 50, 100}
	}
	if len(dc.Delivery.Labels) == 0 {
		dc.Delivery.Labels = []string{"Fast", "Normal", "Slow", "Very Slow"}
	}
	if dc.FastDays == 0 {
		dc.FastDays = 3
	}
	if dc.TopN == 0 {
		dc.TopN = 5
	}
	if len(dc.TimeLayouts) == 0 {
		dc.TimeLayouts = DefaultTimeLayouts()
	}
}

// Validate 检查分箱配置
func (dc *DataConfig) Validate() error {
	if len(dc.Delivery.Edges) != len(dc.Delivery.Labels) {
		return fmt.Errorf("delivery 分箱边界数(%d)与标签数(%d)不一致", len(dc.Delivery.Edges), len(dc.Delivery.Labels))
	}
	for i := 1; i < len(dc.Delivery.Edges); i++ {
		if dc.Delivery.Edges[i] <= dc.Delivery.Edges[i-1] {
			return fmt.Errorf("delivery 分箱边界必须严格递增: %v", dc.Delivery.Edges)
		}
	}
	if dc.TopN < 0 {
		return fmt.Errorf("top_n 不能为负数: %d", dc.TopN)
	}
	return nil
}

// Default 返回全部默认值的数据配置
func Default() *DataConfig {
	dc := &DataConfig{}
	dc.applyDefaults()
	return dc
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON/YAML序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML 实现yaml.Unmarshaler接口
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Column 返回规范列名对应的源列名
func (dc *DataConfig) Column(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	if v, ok := dc.Columns[name]; ok && v != "" {
		return v
	}
	return name
}

// SetColumn 修改列映射
func (dc *DataConfig) SetColumn(name, value string) {
	mu.Lock()
	defer mu.Unlock()
	if dc.Columns == nil {
		dc.Columns = make(map[string]string)
	}
	dc.Columns[name] = value
}
