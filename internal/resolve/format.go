package resolve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zacharykka/prompt-lab/internal/domain"
)

// Format 将聚合结果渲染为展示字符串。
// 标量遇到序列格式时退化为 PLAIN 行为而不报错。
func Format(value domain.AggregateValue, format domain.OutputFormat) string {
	if !value.IsList {
		return formatScalar(value.Scalar)
	}

	switch format {
	case domain.FormatBulletPoints:
		lines := make([]string, 0, len(value.List))
		for _, item := range value.List {
			lines = append(lines, "- "+item)
		}
		return strings.Join(lines, "\n")
	case domain.FormatCommaSeparated:
		return strings.Join(value.List, ", ")
	default:
		return strings.Join(value.List, " ")
	}
}

// formatScalar 做与 locale 无关的稳定字符串转换，保证快照可复现。
func formatScalar(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
