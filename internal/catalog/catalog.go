// Package catalog 维护实体类别到字段、过滤、聚合能力的静态映射。
// 注册表在进程启动时构建一次，此后只读，可在并发解析间安全共享。
package catalog

import (
	"errors"
	"fmt"

	"github.com/zacharykka/prompt-lab/internal/domain"
)

var (
	// ErrUnknownEntity 表示变量源引用了未注册的实体类别。
	ErrUnknownEntity = errors.New("catalog: unknown entity category")
	// ErrUnknownFilterField 表示过滤或投影字段未在类别上声明。
	ErrUnknownFilterField = errors.New("catalog: unknown filter field")
	// ErrUnsupportedOperator 表示操作符、聚合或格式超出类别允许的集合。
	ErrUnsupportedOperator = errors.New("catalog: unsupported operator")
	// ErrMissingRequiredField 表示聚合要求字段但变量源未提供。
	ErrMissingRequiredField = errors.New("catalog: aggregation requires a field")
)

var registry = buildRegistry()

// Definition 返回类别的查询能力定义；未知类别返回空定义而非报错，
// 调用方应将空定义视为"不支持"。
func Definition(category domain.EntityCategory) domain.EntityDefinition {
	if def, ok := registry[category]; ok {
		return def
	}
	return domain.EntityDefinition{Category: category}
}

// Known 判断类别是否在注册表中。
func Known(category domain.EntityCategory) bool {
	_, ok := registry[category]
	return ok
}

// Categories 按固定顺序返回全部已注册类别的定义。
func Categories() []domain.EntityDefinition {
	ordered := []domain.EntityCategory{
		domain.CategoryProject,
		domain.CategoryTask,
		domain.CategorySprint,
		domain.CategoryDocument,
		domain.CategoryMember,
		domain.CategoryUser,
		domain.CategoryDateFunction,
	}
	defs := make([]domain.EntityDefinition, 0, len(ordered))
	for _, category := range ordered {
		defs = append(defs, registry[category])
	}
	return defs
}

// ValidateSource 在保存时校验变量源是否符合目录约束。
// 渲染期的逐变量错误不走这里；这里的失败会同步拒绝保存。
func ValidateSource(source *domain.VariableSource) error {
	if source == nil {
		return nil
	}

	def, ok := registry[source.Category]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, source.Category)
	}

	if source.Field != "" {
		if _, ok := def.Field(source.Field); !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownFilterField, source.Category, source.Field)
		}
	}

	for _, filter := range source.Filters {
		filterDef, ok := def.Filter(filter.Field)
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownFilterField, source.Category, filter.Field)
		}
		if !filterDef.Supports(filter.Operator) {
			return fmt.Errorf("%w: %s on %s.%s", ErrUnsupportedOperator, filter.Operator, source.Category, filter.Field)
		}
	}

	if source.Aggregation != "" {
		aggDef, ok := def.Aggregation(source.Aggregation)
		if !ok {
			return fmt.Errorf("%w: aggregation %s on %s", ErrUnsupportedOperator, source.Aggregation, source.Category)
		}
		if aggDef.RequiresField && source.Field == "" {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, source.Aggregation)
		}
	}

	switch source.Format {
	case "", domain.FormatPlain, domain.FormatBulletPoints, domain.FormatCommaSeparated:
	default:
		return fmt.Errorf("%w: format %s", ErrUnsupportedOperator, source.Format)
	}

	return nil
}

func buildRegistry() map[domain.EntityCategory]domain.EntityDefinition {
	comparisonOps := []domain.FilterOperator{domain.OpEQ, domain.OpNEQ, domain.OpGT, domain.OpLT, domain.OpGTE, domain.OpLTE}
	enumOps := []domain.FilterOperator{domain.OpEQ, domain.OpNEQ, domain.OpInList}
	rangeOps := []domain.FilterOperator{domain.OpGT, domain.OpLT, domain.OpGTE, domain.OpLTE}

	return map[domain.EntityCategory]domain.EntityDefinition{
		domain.CategoryProject: {
			Category:     domain.CategoryProject,
			DisplayField: "name",
			Fields: []domain.FieldDef{
				{Name: "name", Label: "项目名称", ValueType: domain.ValueString},
				{Name: "description", Label: "项目描述", ValueType: domain.ValueRichText},
				{Name: "status", Label: "状态", ValueType: domain.ValueString},
				{Name: "created_at", Label: "创建时间", ValueType: domain.ValueDate},
			},
			Aggregations: []domain.AggregationDef{
				{Kind: domain.AggCount, ResultType: domain.ValueNumber},
			},
			Filters: []domain.FilterDef{
				{Field: "status", ValueType: domain.ValueString, Operators: enumOps, StaticOptions: []string{"ACTIVE", "ARCHIVED"}},
			},
		},
		domain.CategoryTask: {
			Category:     domain.CategoryTask,
			DisplayField: "title",
			Fields: []domain.FieldDef{
				{Name: "title", Label: "任务标题", ValueType: domain.ValueString},
				{Name: "description", Label: "任务描述", ValueType: domain.ValueRichText},
				{Name: "status", Label: "状态", ValueType: domain.ValueString},
				{Name: "priority", Label: "优先级", ValueType: domain.ValueString},
				{Name: "assignee_id", Label: "负责人", ValueType: domain.ValueString},
				{Name: "sprint_id", Label: "所属迭代", ValueType: domain.ValueString},
				{Name: "estimate", Label: "预估点数", ValueType: domain.ValueNumber},
				{Name: "due_date", Label: "截止时间", ValueType: domain.ValueDate},
				{Name: "created_at", Label: "创建时间", ValueType: domain.ValueDate},
			},
			Aggregations: []domain.AggregationDef{
				{Kind: domain.AggCount, ResultType: domain.ValueNumber},
				{Kind: domain.AggSum, ResultType: domain.ValueNumber, RequiresField: true},
				{Kind: domain.AggAverage, ResultType: domain.ValueNumber, RequiresField: true},
				{Kind: domain.AggListTitles, ResultType: domain.ValueListOfStrings},
			},
			Filters: []domain.FilterDef{
				{Field: "status", ValueType: domain.ValueString, Operators: enumOps, StaticOptions: []string{"TODO", "IN_PROGRESS", "DONE", "BLOCKED"}},
				{Field: "priority", ValueType: domain.ValueString, Operators: enumOps, StaticOptions: []string{"LOW", "MEDIUM", "HIGH", "URGENT"}},
				{Field: "assignee_id", ValueType: domain.ValueString, Operators: enumOps, LookupCategory: domain.CategoryMember, IsItemPicker: true},
				{Field: "sprint_id", ValueType: domain.ValueString, Operators: enumOps, LookupCategory: domain.CategorySprint, IsItemPicker: true},
				{Field: "estimate", ValueType: domain.ValueNumber, Operators: comparisonOps},
				{Field: "due_date", ValueType: domain.ValueDate, Operators: rangeOps},
				{Field: "created_at", ValueType: domain.ValueDate, Operators: rangeOps},
			},
		},
		domain.CategorySprint: {
			Category:     domain.CategorySprint,
			DisplayField: "name",
			Fields: []domain.FieldDef{
				{Name: "name", Label: "迭代名称", ValueType: domain.ValueString},
				{Name: "goal", Label: "迭代目标", ValueType: domain.ValueRichText},
				{Name: "status", Label: "状态", ValueType: domain.ValueString},
				{Name: "start_date", Label: "开始时间", ValueType: domain.ValueDate},
				{Name: "end_date", Label: "结束时间", ValueType: domain.ValueDate},
			},
			Aggregations: []domain.AggregationDef{
				{Kind: domain.AggCount, ResultType: domain.ValueNumber},
				{Kind: domain.AggListNames, ResultType: domain.ValueListOfStrings},
			},
			Filters: []domain.FilterDef{
				{Field: "status", ValueType: domain.ValueString, Operators: enumOps, StaticOptions: []string{"PLANNED", "ACTIVE", "COMPLETED"}},
				{Field: "start_date", ValueType: domain.ValueDate, Operators: rangeOps},
				{Field: "end_date", ValueType: domain.ValueDate, Operators: rangeOps},
			},
		},
		domain.CategoryDocument: {
			Category:     domain.CategoryDocument,
			DisplayField: "title",
			Fields: []domain.FieldDef{
				{Name: "title", Label: "文档标题", ValueType: domain.ValueString},
				{Name: "created_at", Label: "创建时间", ValueType: domain.ValueDate},
				{Name: "updated_at", Label: "更新时间", ValueType: domain.ValueDate},
			},
			Aggregations: []domain.AggregationDef{
				{Kind: domain.AggCount, ResultType: domain.ValueNumber},
				{Kind: domain.AggListTitles, ResultType: domain.ValueListOfStrings},
			},
			Filters: []domain.FilterDef{
				{Field: "created_at", ValueType: domain.ValueDate, Operators: rangeOps},
				{Field: "updated_at", ValueType: domain.ValueDate, Operators: rangeOps},
			},
		},
		domain.CategoryMember: {
			Category:     domain.CategoryMember,
			DisplayField: "name",
			Fields: []domain.FieldDef{
				{Name: "name", Label: "成员姓名", ValueType: domain.ValueString},
				{Name: "email", Label: "邮箱", ValueType: domain.ValueString},
				{Name: "role", Label: "角色", ValueType: domain.ValueString},
			},
			Aggregations: []domain.AggregationDef{
				{Kind: domain.AggCount, ResultType: domain.ValueNumber},
				{Kind: domain.AggListNames, ResultType: domain.ValueListOfStrings},
			},
			Filters: []domain.FilterDef{
				{Field: "role", ValueType: domain.ValueString, Operators: enumOps, StaticOptions: []string{"OWNER", "ADMIN", "MEMBER", "GUEST"}},
			},
		},
		domain.CategoryUser: {
			Category:     domain.CategoryUser,
			DisplayField: "name",
			Fields: []domain.FieldDef{
				{Name: "name", Label: "用户姓名", ValueType: domain.ValueString},
				{Name: "email", Label: "邮箱", ValueType: domain.ValueString},
			},
		},
		domain.CategoryDateFunction: {
			Category:     domain.CategoryDateFunction,
			DisplayField: "today",
			Fields: []domain.FieldDef{
				{Name: "today", Label: "今天日期", ValueType: domain.ValueDate},
				{Name: "now", Label: "当前时间", ValueType: domain.ValueDate},
				{Name: "tomorrow", Label: "明天日期", ValueType: domain.ValueDate},
				{Name: "weekday", Label: "星期几", ValueType: domain.ValueString},
			},
		},
	}
}
