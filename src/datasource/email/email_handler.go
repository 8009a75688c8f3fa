// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"EcomInsight/src/config"
	"EcomInsight/src/storage"

	"go.uber.org/zap"
)

// ====================== 邮件处理器实现 ======================

// DatasetAttachmentHandler 把数据集附件保存到数据目录
// 只接受与订单文件或线路文件同名的附件，写入后由文件监听触发重新加载
type DatasetAttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	SheetName     string          // xlsx 附件校验时使用的工作表
	accept        map[string]bool // 允许保存的文件名
	dcfg          *config.DataConfig
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewDatasetAttachmentHandler(cfg *config.Config, dcfg *config.DataConfig) *DatasetAttachmentHandler {
	return &DatasetAttachmentHandler{
		TargetSubject: cfg.Email.TargetSubject,
		DataDir:       cfg.DataDir,
		SheetName:     cfg.SheetName,
		accept: map[string]bool{
			strings.ToLower(cfg.OrdersFile):    true,
			strings.ToLower(cfg.LocationsFile): true,
		},
		dcfg:          dcfg,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *DatasetAttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *DatasetAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 校验并保存附件，返回写入的文件路径
func (h *DatasetAttachmentHandler) Handle(email *Email, logger *storage.Logger) ([]string, error) {
	if email == nil || h.IsProcessed(email.UID) {
		return nil, nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		logger.Debug("跳过主题不匹配的邮件", zap.String("subject", email.Subject))
		return nil, nil
	}

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	var saved []string
	for _, attachment := range email.Attachments {
		name := filepath.Base(attachment.Filename)
		if !h.accept[strings.ToLower(name)] {
			logger.Debug("忽略附件", zap.String("filename", name))
			continue
		}

		rows, err := ValidateAttachment(attachment, h.SheetName, h.dcfg)
		if err != nil {
			return saved, fmt.Errorf("附件 %s 校验失败: %w", name, err)
		}

		filePath := filepath.Join(h.DataDir, name)
		if err := writeAtomic(filePath, attachment.Content); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		logger.Info("数据集附件已保存",
			zap.String("path", filePath),
			zap.Int("rows", rows),
			zap.Uint32("uid", email.UID))
		saved = append(saved, filePath)
	}

	if len(saved) > 0 {
		h.markAsProcessed(email.UID)
	}
	return saved, nil
}

// writeAtomic 先写临时文件再改名，监听方只会看到完整文件
func writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".incoming-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
