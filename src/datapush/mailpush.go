package datapush

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/storage"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

// 常量定义
const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
	DefaultSMTPort = "465" // 默认 SSL 端口
)

// Sender 发送一封已组装好的邮件
type Sender func(e *email.Email) error

// ReportMailer 把导出的报表作为附件发给订阅人
type ReportMailer struct {
	from     string
	to       []string
	subject  string
	send     Sender
	logger   *storage.Logger
	times    int
	interval time.Duration
}

// NewReportMailer 使用 send_email 配置创建 SMTP 发送器
func NewReportMailer(cfg *config.Config, logger *storage.Logger) *ReportMailer {
	c := cfg.SendEmail
	addr := smtpAddr(c.Server)
	host := strings.Split(addr, ":")[0]
	auth := smtp.PlainAuth("", c.Username, c.Password, host)

	return &ReportMailer{
		from:    c.Username,
		to:      c.To,
		subject: c.Subject,
		send: func(e *email.Email) error {
			// 显式 TLS
			return e.SendWithTLS(addr, auth, &tls.Config{ServerName: host})
		},
		logger:   logger,
		times:    RETRY_TIMES,
		interval: RETRY_INTERVAL,
	}
}

// WithSender 替换底层发送函数
func (m *ReportMailer) WithSender(send Sender) *ReportMailer {
	m.send = send
	return m
}

// WithRetry 设置重试次数与间隔
func (m *ReportMailer) WithRetry(times int, interval time.Duration) *ReportMailer {
	if times < 1 {
		times = 1
	}
	m.times = times
	m.interval = interval
	return m
}

// BuildMessage 组装邮件，附件不存在时报错
func (m *ReportMailer) BuildMessage(body string, attachments ...string) (*email.Email, error) {
	if len(m.to) == 0 {
		return nil, fmt.Errorf("未配置收件人")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("EcomInsight <%s>", m.from)
	e.To = m.to
	e.Subject = m.subject
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %s", path)
		}
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}

// Send 发送报表邮件，失败按配置重试
func (m *ReportMailer) Send(body string, attachments ...string) error {
	e, err := m.BuildMessage(body, attachments...)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(attachments))
	for _, a := range attachments {
		names = append(names, filepath.Base(a))
	}

	err = retry(func() error { return m.send(e) }, m.times, m.interval)
	if err != nil {
		m.logger.Error("报表邮件发送失败", zap.Strings("to", m.to), zap.Error(err))
		return err
	}
	m.logger.Info("报表邮件发送成功", zap.Strings("to", m.to), zap.Strings("attachments", names))
	return nil
}

func smtpAddr(server string) string {
	if !strings.Contains(server, ":") {
		return server + ":" + DefaultSMTPort
	}
	return server
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}
