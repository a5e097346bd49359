// Package resolve 实现变量源的求值：过滤、聚合、格式化与解析编排。
// 除 Resolver 的外部读取外全部为纯函数，保证相同输入产生相同输出。
package resolve

import (
	"fmt"
	"reflect"
	"time"

	"github.com/zacharykka/prompt-lab/internal/catalog"
	"github.com/zacharykka/prompt-lab/internal/domain"
)

// ApplyFilters 依次对记录集应用过滤表达式，多条之间按 AND 组合。
// 结果永远是输入的子集；未声明的字段或不支持的操作符直接报错而非返回空集。
func ApplyFilters(records []domain.Record, filters []domain.FilterExpr, defs []domain.FilterDef) ([]domain.Record, error) {
	filtered := records
	for _, filter := range filters {
		def, ok := lookupFilterDef(defs, filter.Field)
		if !ok {
			return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownFilterField, filter.Field)
		}
		if !def.Supports(filter.Operator) {
			return nil, fmt.Errorf("%w: %s on %s", catalog.ErrUnsupportedOperator, filter.Operator, filter.Field)
		}

		var kept []domain.Record
		for _, record := range filtered {
			match, err := evaluateFilter(record, filter)
			if err != nil {
				return nil, err
			}
			if match {
				kept = append(kept, record)
			}
		}
		filtered = kept
	}
	return filtered, nil
}

// ApplyAggregation 将记录集归约为一个标量或序列。
// displayField 是类别定义的默认展示字段，供 LIST_TITLES/LIST_NAMES 投影。
func ApplyAggregation(records []domain.Record, kind domain.AggregationKind, field, displayField string) (domain.AggregateValue, error) {
	switch kind {
	case domain.AggCount:
		// 空集返回 0，不报错
		return domain.AggregateValue{Scalar: float64(len(records))}, nil
	case domain.AggSum, domain.AggAverage:
		if field == "" {
			return domain.AggregateValue{}, fmt.Errorf("%w: %s", catalog.ErrMissingRequiredField, kind)
		}
		var sum float64
		var counted int
		for _, record := range records {
			value, ok := record[field]
			if !ok || value == nil {
				// 字段为空的记录跳过，不算失败
				continue
			}
			number, ok := toFloat(value)
			if !ok {
				return domain.AggregateValue{}, fmt.Errorf("%w: %s is not numeric", ErrTypeMismatch, field)
			}
			sum += number
			counted++
		}
		if kind == domain.AggSum {
			return domain.AggregateValue{Scalar: sum}, nil
		}
		if counted == 0 {
			return domain.AggregateValue{Scalar: float64(0)}, nil
		}
		return domain.AggregateValue{Scalar: sum / float64(counted)}, nil
	case domain.AggListTitles, domain.AggListNames:
		projected := field
		if projected == "" {
			projected = displayField
		}
		// 保持输入记录顺序；上游排序由调用方负责
		list := make([]string, 0, len(records))
		for _, record := range records {
			value, ok := record[projected]
			if !ok || value == nil {
				continue
			}
			list = append(list, formatScalar(value))
		}
		return domain.AggregateValue{List: list, IsList: true}, nil
	default:
		return domain.AggregateValue{}, fmt.Errorf("%w: aggregation %s", catalog.ErrUnsupportedOperator, kind)
	}
}

func lookupFilterDef(defs []domain.FilterDef, field string) (domain.FilterDef, bool) {
	for _, def := range defs {
		if def.Field == field {
			return def, true
		}
	}
	return domain.FilterDef{}, false
}

func evaluateFilter(record domain.Record, filter domain.FilterExpr) (bool, error) {
	value, present := record[filter.Field]

	switch filter.Operator {
	case domain.OpEQ:
		return present && equalValues(value, filter.Value), nil
	case domain.OpNEQ:
		return !present || !equalValues(value, filter.Value), nil
	case domain.OpInList:
		if !present || value == nil {
			return false, nil
		}
		return containsValue(filter, value), nil
	case domain.OpGT, domain.OpLT, domain.OpGTE, domain.OpLTE:
		if !present || value == nil {
			return false, nil
		}
		return compareOrdered(value, filter.Value, filter.Operator)
	default:
		return false, fmt.Errorf("%w: %s", catalog.ErrUnsupportedOperator, filter.Operator)
	}
}

// equalValues 实现结构化相等：数值做精度提升后比较，时间按时刻比较，
// 其余退回 DeepEqual。
func equalValues(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return ta.Equal(tb)
		}
	}
	return reflect.DeepEqual(a, b)
}

func containsValue(filter domain.FilterExpr, value interface{}) bool {
	needle := formatScalar(value)
	for _, candidate := range filter.Values {
		if candidate == needle {
			return true
		}
	}
	if list, ok := filter.Value.([]interface{}); ok {
		for _, candidate := range list {
			if equalValues(value, candidate) {
				return true
			}
		}
	}
	return false
}

// compareOrdered 只接受数值或时间；类型不可比时返回 ErrTypeMismatch。
func compareOrdered(left, right interface{}, op domain.FilterOperator) (bool, error) {
	if fl, ok := toFloat(left); ok {
		if fr, ok := toFloat(right); ok {
			return orderedResult(compareFloats(fl, fr), op), nil
		}
		return false, fmt.Errorf("%w: cannot compare number with %T", ErrTypeMismatch, right)
	}
	if tl, ok := toTime(left); ok {
		if tr, ok := toTime(right); ok {
			return orderedResult(tl.Compare(tr), op), nil
		}
		return false, fmt.Errorf("%w: cannot compare date with %T", ErrTypeMismatch, right)
	}
	return false, fmt.Errorf("%w: %T is not orderable", ErrTypeMismatch, left)
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderedResult(cmp int, op domain.FilterOperator) bool {
	switch op {
	case domain.OpGT:
		return cmp > 0
	case domain.OpLT:
		return cmp < 0
	case domain.OpGTE:
		return cmp >= 0
	case domain.OpLTE:
		return cmp <= 0
	default:
		return false
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func toTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
