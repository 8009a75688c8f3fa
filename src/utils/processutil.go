package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ParseTime 依次尝试 layouts，空串返回零值
func ParseTime(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return time.Time{}, nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间 %q", s)
}

// ParseFloat 空串与 NaN 返回 NaN
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// SubSeriesDays 计算两列时间之差（天），追加为 colName3 列
// 任一端为空时结果为 NaN
func SubSeriesDays(df dataframe.DataFrame, colName1, colName2, colName3 string, layouts []string) (dataframe.DataFrame, error) {

	// 获取两列的所有元素
	col1 := df.Col(colName1)
	col2 := df.Col(colName2)

	// 预分配切片容量
	durations := make([]float64, 0, df.Nrow())

	// 遍历每一行计算时间差
	for i := 0; i < df.Nrow(); i++ {
		endTime, err := ParseTime(col1.Elem(i).String(), layouts)
		if err != nil {
			return df, fmt.Errorf("failed to parse end time at row %d: %v", i, err)
		}

		startTime, err := ParseTime(col2.Elem(i).String(), layouts)
		if err != nil {
			return df, fmt.Errorf("failed to parse start time at row %d: %v", i, err)
		}

		if endTime.IsZero() || startTime.IsZero() {
			durations = append(durations, math.NaN())
			continue
		}
		durations = append(durations, math.Round(endTime.Sub(startTime).Hours()/24))
	}

	// 创建时间差列并添加到DataFrame
	return df.Mutate(series.New(durations, series.Float, colName3)), nil
}

// WriteFrame 将DataFrame写入工作簿的指定sheet，不存在则创建
func WriteFrame(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	if idx, _ := f.GetSheetIndex(sheetName); idx < 0 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return fmt.Errorf("创建sheet %s 失败: %w", sheetName, err)
		}
	}

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
	}

	// 写入数据
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		for colIdx, colName := range colNames {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			val := df.Col(colName).Val(rowIdx)
			if v, ok := val.(float64); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
				val = ""
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}
