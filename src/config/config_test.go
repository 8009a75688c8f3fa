package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{
		"data_dir": "/srv/data",
		"log_level": "debug",
		"report": {"interval": "5m", "currency": "USD"},
		"email": {"check_interval": "90s"}
	}`)
	writeFile(t, dir, "dataconfig.json", `{"columns": {"price": "payment_value"}, "top_n": 3}`)

	cfg, dcfg, err := Load(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, "/srv/data", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, time.Duration(cfg.Report.Interval))
	assert.Equal(t, 90*time.Second, time.Duration(cfg.Email.CheckInterval))
	assert.Equal(t, "USD", cfg.Report.Currency)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "file", cfg.Source.Type)
	assert.Equal(t, filepath.Join("/srv/data", "orders.csv"), cfg.OrdersPath())

	assert.Equal(t, "payment_value", dcfg.Column("price"))
	assert.Equal(t, "order_purchase_timestamp", dcfg.Column("purchased_at"))
	assert.Equal(t, 3, dcfg.TopN)
	assert.Equal(t, 3.0, dcfg.FastDays)
	assert.Equal(t, []float64{0, 25, 50, 100}, dcfg.Delivery.Edges)
}

func TestLoadYAMLWithEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ECOM_TEST_PASSWORD", "s3cret")
	t.Setenv("ECOM_LISTEN_ADDR", ":9999")
	writeFile(t, dir, "config.yaml", `
data_dir: ./data
send_email:
  password: ${ECOM_TEST_PASSWORD}
  to: [ops@example.com]
report:
  interval: 1h
`)
	writeFile(t, dir, "dataconfig.yaml", `
fast_days: 5
delivery:
  edges: [0, 10, 20]
  labels: [Quick, Normal, Slow]
`)

	cfg, dcfg, err := Load(dir, "config.yaml", "dataconfig.yaml")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.SendEmail.Password)
	assert.Equal(t, []string{"ops@example.com"}, cfg.SendEmail.To)
	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.Equal(t, time.Hour, time.Duration(cfg.Report.Interval))
	assert.Equal(t, 5.0, dcfg.FastDays)
	assert.Equal(t, []string{"Quick", "Normal", "Slow"}, dcfg.Delivery.Labels)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{not json`)
	writeFile(t, dir, "dataconfig.json", `{"delivery": {"edges": [0, 10], "labels": ["a"]}}`)

	_, _, err := Load(dir, "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "解析Config失败")

	_, _, err = Load(dir, "missing.json", "dataconfig.json")
	require.Error(t, err)

	writeFile(t, dir, "config.json", `{}`)
	_, _, err = Load(dir, "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不一致")
}

func TestValidateEdgesIncreasing(t *testing.T) {
	dc := Default()
	dc.Delivery.Edges = []float64{0, 50, 25, 100}
	assert.Error(t, dc.Validate())
}

func TestLoadConfigOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{"data_dir": "first"}`)
	writeFile(t, dir, "dataconfig.json", `{}`)

	cfg1, _, err := LoadConfig(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	writeFile(t, dir, "config.json", `{"data_dir": "second"}`)
	cfg2, _, err := LoadConfig(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)
	assert.Same(t, cfg1, cfg2)
	assert.Equal(t, "first", cfg2.DataDir)
}

func TestSetColumn(t *testing.T) {
	dc := &DataConfig{}
	assert.Equal(t, "price", dc.Column("price"))
	dc.SetColumn("price", "valor")
	assert.Equal(t, "valor", dc.Column("price"))
}
