package email

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const attachmentCSV = "order_id,customer_id,order_purchase_timestamp,price\no1,c1,2024-01-01 10:00:00,10\n"

func gbkSubject(t *testing.T, s string) string {
	t.Helper()
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(s)
	require.NoError(t, err)
	return "=?GBK?B?" + base64.StdEncoding.EncodeToString([]byte(encoded)) + "?="
}

func rawMessage(t *testing.T, subject, filename, content string) string {
	lines := []string{
		"From: Ops <ops@example.com>",
		"To: analytics@example.com",
		"Subject: " + subject,
		"Date: Tue, 02 Jan 2024 15:04:05 +0000",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"见附件",
		"--BOUNDARY",
		"Content-Type: text/csv",
		`Content-Disposition: attachment; filename="` + filename + `"`,
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString([]byte(content)),
		"--BOUNDARY--",
		"",
	}
	return strings.Join(lines, "\r\n")
}

func newLogger(t *testing.T) *storage.Logger {
	t.Helper()
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "test.log"), storage.WithLevel("debug"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func TestParseMessage(t *testing.T) {
	raw := rawMessage(t, gbkSubject(t, "电商数据集更新"), "orders.csv", attachmentCSV)

	email, err := ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "电商数据集更新", email.Subject)
	assert.Equal(t, 2024, email.Date.Year())
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "orders.csv", email.Attachments[0].Filename)
	assert.Equal(t, attachmentCSV, string(email.Attachments[0].Content))
}

func TestFilterLatestTargetEmail(t *testing.T) {
	now := time.Now()
	emails := []*Email{
		{UID: 1, Subject: "数据集 v1", Date: now.Add(-2 * time.Hour)},
		{UID: 2, Subject: "周报", Date: now},
		{UID: 3, Subject: "数据集 v2", Date: now.Add(-time.Hour)},
	}
	assert.Equal(t, uint32(3), filterLatestTargetEmail(emails, "数据集").UID)
	assert.Nil(t, filterLatestTargetEmail(emails, "不存在"))
}

type fakeMailService struct {
	emails       []*Email
	connectErr   error
	disconnected bool
}

func (f *fakeMailService) Connect() error                       { return f.connectErr }
func (f *fakeMailService) Disconnect()                          { f.disconnected = true }
func (f *fakeMailService) FetchUnreadEmails() ([]*Email, error) { return f.emails, nil }

func TestCheckAndProcessEmails(t *testing.T) {
	logger := newLogger(t)
	svc := &fakeMailService{emails: []*Email{
		{UID: 7, Subject: "dataset", Date: time.Now()},
	}}

	got, err := CheckAndProcessEmails(svc, "dataset", logger)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint32(7), got.UID)
	assert.True(t, svc.disconnected)

	got, err = CheckAndProcessEmails(svc, "other", logger)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = CheckAndProcessEmails(&fakeMailService{connectErr: errors.New("refused")}, "dataset", logger)
	assert.Error(t, err)
}

func TestDatasetAttachmentHandler(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir, OrdersFile: "orders.csv", LocationsFile: "customer_seller_loc.csv"}
	cfg.Email.TargetSubject = "dataset"
	handler := NewDatasetAttachmentHandler(cfg, config.Default())
	logger := newLogger(t)

	email := &Email{
		UID:     42,
		Subject: "dataset 2024-01",
		Attachments: []*Attachment{
			{Filename: "orders.csv", Content: []byte(attachmentCSV)},
			{Filename: "notes.txt", Content: []byte("ignored")},
		},
	}

	saved, err := handler.Handle(email, logger)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "orders.csv")}, saved)
	assert.True(t, handler.IsProcessed(42))

	data, err := os.ReadFile(saved[0])
	require.NoError(t, err)
	assert.Equal(t, attachmentCSV, string(data))
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.True(t, os.IsNotExist(err))

	// 已处理的邮件不再保存
	saved, err = handler.Handle(email, logger)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDatasetAttachmentHandlerRejectsBadData(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir, OrdersFile: "orders.csv", LocationsFile: "customer_seller_loc.csv"}
	cfg.Email.TargetSubject = "dataset"
	handler := NewDatasetAttachmentHandler(cfg, config.Default())

	email := &Email{
		UID:         1,
		Subject:     "dataset",
		Attachments: []*Attachment{{Filename: "orders.csv", Content: []byte("order_id,price\no1,3\n")}},
	}
	_, err := handler.Handle(email, newLogger(t))
	require.Error(t, err)
	assert.False(t, handler.IsProcessed(1))
	_, statErr := os.Stat(filepath.Join(dir, "orders.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestValidateAttachmentLocations(t *testing.T) {
	csv := "seller_city,customer_city,lat_y,lon_y,lat_x,lon_x,delivery_speed\na,b,1,2,3,4,5\n"
	rows, err := ValidateAttachment(&Attachment{Filename: "customer_seller_loc.csv", Content: []byte(csv)}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	_, err = ValidateAttachment(&Attachment{Filename: "orders.json", Content: []byte("{}")}, "", nil)
	assert.Error(t, err)
}
