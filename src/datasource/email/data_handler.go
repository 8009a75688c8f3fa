// data_handler.go
package email

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"EcomInsight/src/config"
	"EcomInsight/src/datasource/file"

	"github.com/go-gota/gota/dataframe"
)

// ReadAttachmentFrame 按扩展名把附件读成字符串 DataFrame
func ReadAttachmentFrame(att *Attachment, sheetName string) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(att.Filename)) {
	case ".xlsx":
		return file.ReadXLSXBytes(att.Content, sheetName)
	case ".csv":
		return file.ReadCSVToDataFrame(bytes.NewReader(att.Content))
	default:
		return dataframe.New(), fmt.Errorf("不支持的附件类型: %s", att.Filename)
	}
}

// ValidateAttachment 保存前完整解析一遍，返回有效行数
// 含坐标列的视为线路表，否则按订单表校验
func ValidateAttachment(att *Attachment, sheetName string, dcfg *config.DataConfig) (int, error) {
	if dcfg == nil {
		dcfg = config.Default()
	}
	df, err := ReadAttachmentFrame(att, sheetName)
	if err != nil {
		return 0, err
	}

	if isLocationFrame(df, dcfg) {
		locations, err := file.ToLocations(df, dcfg)
		if err != nil {
			return 0, err
		}
		return len(locations), nil
	}

	orders, err := file.ToOrders(df, dcfg)
	if err != nil {
		return 0, err
	}
	if len(orders) == 0 {
		return 0, fmt.Errorf("附件 %s 不含订单数据", att.Filename)
	}
	return len(orders), nil
}

func isLocationFrame(df dataframe.DataFrame, dcfg *config.DataConfig) bool {
	names := make(map[string]bool)
	for _, n := range df.Names() {
		names[n] = true
	}
	return names[dcfg.Column("seller_lat")] && names[dcfg.Column("customer_lat")] && !names[dcfg.Column("order_id")]
}
