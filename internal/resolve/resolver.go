package resolve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zacharykka/prompt-lab/internal/catalog"
	"github.com/zacharykka/prompt-lab/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resolved 记录单个变量的解析结果；Err 非空时 Value 无意义。
type Resolved struct {
	VarID string `json:"var_id"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Ok 判断解析是否成功。
func (r Resolved) Ok() bool {
	return r.Err == nil
}

// Resolver 负责把变量源解析为展示字符串。
// 外部记录读取通过 RecordReader 注入；时钟可替换以便测试日期函数。
type Resolver struct {
	reader domain.RecordReader
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewResolver 创建解析器实例。
func NewResolver(reader domain.RecordReader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		reader: reader,
		logger: logger,
		nowFn:  time.Now,
	}
}

// WithClock 允许注入自定义时间函数，便于测试。
func (r *Resolver) WithClock(now func() time.Time) {
	if now != nil {
		r.nowFn = now
	}
}

// Resolve 解析单个变量源。未知类别、缺失范围等配置/引用错误
// 以哨兵错误返回，调用方可用 errors.Is 归类。
func (r *Resolver) Resolve(ctx context.Context, source *domain.VariableSource, scope domain.Scope) (string, error) {
	if source == nil {
		return "", nil
	}

	if source.Category == domain.CategoryDateFunction {
		return r.resolveDateFunction(source), nil
	}

	if !catalog.Known(source.Category) {
		return "", fmt.Errorf("%w: %s", catalog.ErrUnknownEntity, source.Category)
	}

	effective := effectiveScope(source, scope)
	if err := checkScope(source.Category, effective); err != nil {
		return "", err
	}

	records, err := r.reader.FetchRecords(ctx, source.Category, effective)
	if err != nil {
		return "", err
	}

	return resolveFromRecords(records, source)
}

// RequireScope 在整体解析前校验请求范围：范围完全缺失而变量集中仍有
// 依赖工作区记录的来源时快速失败，避免产出整版占位符的无效渲染。
// 自带 ScopeEntityID 的来源、日期函数与 USER 类别不受影响。
func RequireScope(variables []domain.PromptVariable, scope domain.Scope) error {
	if !scope.Empty() {
		return nil
	}
	for _, variable := range variables {
		source := variable.Source
		if source == nil {
			continue
		}
		if source.Category == domain.CategoryDateFunction || source.Category == domain.CategoryUser {
			continue
		}
		if source.ScopeEntityID != "" || !catalog.Known(source.Category) {
			continue
		}
		return fmt.Errorf("%w: category %s", ErrScopeRequired, source.Category)
	}
	return nil
}

// ResolveAll 并发解析一组变量。共享 (category, scope) 的变量只触发一次
// 外部读取；单个变量失败不影响其余变量。
func (r *Resolver) ResolveAll(ctx context.Context, variables []domain.PromptVariable, scope domain.Scope) map[string]Resolved {
	results := make(map[string]Resolved, len(variables))

	fetched := r.prefetch(ctx, variables, scope)

	for _, variable := range variables {
		results[variable.ID] = r.resolveVariable(variable, scope, fetched)
	}

	return results
}

type fetchKey struct {
	category  domain.EntityCategory
	project   string
	workspace string
	user      string
}

type fetchResult struct {
	records []domain.Record
	err     error
}

// prefetch 收集需要外部读取的 (category, scope) 去重后并发拉取。
func (r *Resolver) prefetch(ctx context.Context, variables []domain.PromptVariable, scope domain.Scope) map[fetchKey]fetchResult {
	keys := make(map[fetchKey]domain.Scope)
	for _, variable := range variables {
		source := variable.Source
		if source == nil || source.Category == domain.CategoryDateFunction {
			continue
		}
		if !catalog.Known(source.Category) {
			continue
		}
		effective := effectiveScope(source, scope)
		if checkScope(source.Category, effective) != nil {
			continue
		}
		keys[keyFor(source.Category, effective)] = effective
	}

	var mu sync.Mutex
	fetched := make(map[fetchKey]fetchResult, len(keys))

	group, groupCtx := errgroup.WithContext(ctx)
	for key, effective := range keys {
		group.Go(func() error {
			records, err := r.reader.FetchRecords(groupCtx, key.category, effective)
			if err != nil {
				r.logger.Warn("record fetch failed",
					zap.String("category", string(key.category)),
					zap.Error(err),
				)
			}
			mu.Lock()
			fetched[key] = fetchResult{records: records, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return fetched
}

func (r *Resolver) resolveVariable(variable domain.PromptVariable, scope domain.Scope, fetched map[fetchKey]fetchResult) Resolved {
	resolved := Resolved{VarID: variable.ID, Name: variable.Name}

	source := variable.Source
	if source == nil {
		resolved.Value = variable.DefaultValue
		return resolved
	}

	if source.Category == domain.CategoryDateFunction {
		resolved.Value = r.resolveDateFunction(source)
		return resolved
	}

	if !catalog.Known(source.Category) {
		return failed(resolved, fmt.Errorf("%w: %s", catalog.ErrUnknownEntity, source.Category))
	}

	effective := effectiveScope(source, scope)
	if err := checkScope(source.Category, effective); err != nil {
		return failed(resolved, err)
	}

	result, ok := fetched[keyFor(source.Category, effective)]
	if !ok {
		return failed(resolved, fmt.Errorf("%w: %s", catalog.ErrUnknownEntity, source.Category))
	}
	if result.err != nil {
		return failed(resolved, result.err)
	}

	value, err := resolveFromRecords(result.records, source)
	if err != nil {
		return failed(resolved, err)
	}
	resolved.Value = value
	return resolved
}

// resolveFromRecords 在已取得的记录集上执行过滤、聚合或字段投影。
func resolveFromRecords(records []domain.Record, source *domain.VariableSource) (string, error) {
	def := catalog.Definition(source.Category)

	filtered, err := ApplyFilters(records, source.Filters, def.Filters)
	if err != nil {
		return "", err
	}

	if source.Aggregation != "" {
		if _, ok := def.Aggregation(source.Aggregation); !ok {
			return "", fmt.Errorf("%w: aggregation %s on %s", catalog.ErrUnsupportedOperator, source.Aggregation, source.Category)
		}
		value, err := ApplyAggregation(filtered, source.Aggregation, source.Field, def.DisplayField)
		if err != nil {
			return "", err
		}
		return Format(value, source.Format), nil
	}

	field := source.Field
	if field == "" {
		field = def.DisplayField
	}

	// 无聚合时对（可能是单条的）过滤结果做字段投影
	projected := make([]string, 0, len(filtered))
	for _, record := range filtered {
		value, ok := record[field]
		if !ok || value == nil {
			continue
		}
		projected = append(projected, formatScalar(value))
	}

	switch len(projected) {
	case 0:
		return "", nil
	case 1:
		return Format(domain.AggregateValue{Scalar: projected[0]}, source.Format), nil
	default:
		return Format(domain.AggregateValue{List: projected, IsList: true}, source.Format), nil
	}
}

// resolveDateFunction 不访问读取接口，由求值时钟直接计算。
// 取值在解析阶段固定，渲染阶段不再变化。
func (r *Resolver) resolveDateFunction(source *domain.VariableSource) string {
	now := r.nowFn()
	switch source.Field {
	case "", "today":
		return now.Format("2006-01-02")
	case "now":
		return now.Format(time.RFC3339)
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	case "weekday":
		return now.Weekday().String()
	default:
		return now.Format("2006-01-02")
	}
}

func effectiveScope(source *domain.VariableSource, scope domain.Scope) domain.Scope {
	if source.ScopeEntityID != "" {
		scope.ProjectID = source.ScopeEntityID
	}
	return scope
}

// checkScope 校验类别所需的范围上下文。USER 只需要当前用户。
func checkScope(category domain.EntityCategory, scope domain.Scope) error {
	if category == domain.CategoryUser {
		if scope.CurrentUserID == "" {
			return fmt.Errorf("%w: current user missing", ErrScopeRequired)
		}
		return nil
	}
	if scope.Empty() {
		return fmt.Errorf("%w: category %s", ErrScopeRequired, category)
	}
	return nil
}

func keyFor(category domain.EntityCategory, scope domain.Scope) fetchKey {
	return fetchKey{
		category:  category,
		project:   scope.ProjectID,
		workspace: scope.WorkspaceID,
		user:      scope.CurrentUserID,
	}
}

func failed(resolved Resolved, err error) Resolved {
	resolved.Err = err
	resolved.Error = err.Error()
	return resolved
}
