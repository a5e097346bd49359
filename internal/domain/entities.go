package domain

import "time"

// User 代表系统内的操作主体。
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FilterExpr 是变量源中的一条过滤表达式，多条之间按 AND 组合。
type FilterExpr struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"op"`
	Value    interface{}    `json:"value,omitempty"`
	// Values 在 IN_LIST / 项选择器场景下携带显式 id 集合。
	Values []string `json:"values,omitempty"`
}

// VariableSource 声明变量绑定的实时查询描述符。
type VariableSource struct {
	Category      EntityCategory  `json:"category"`
	Field         string          `json:"field,omitempty"`
	ScopeEntityID string          `json:"scope_entity_id,omitempty"`
	Filters       []FilterExpr    `json:"filters,omitempty"`
	Aggregation   AggregationKind `json:"aggregation,omitempty"`
	Format        OutputFormat    `json:"format,omitempty"`
}

// PromptVariable 将模板占位符绑定到数据源。
type PromptVariable struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Placeholder  string            `json:"placeholder"`
	ValueType    VariableValueType `json:"value_type"`
	DefaultValue string            `json:"default_value,omitempty"`
	Source       *VariableSource   `json:"source,omitempty"`
}

// ContentBlock 是模板正文的有序单元，text 与 variable 二选一。
type ContentBlock struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Order int    `json:"order"`
	Value string `json:"value,omitempty"`
	VarID string `json:"var_id,omitempty"`
}

// ContentBlock 类型取值。
const (
	BlockText     = "text"
	BlockVariable = "variable"
)

// ActiveSlot 是 Prompt 唯一可变的编辑投影。
type ActiveSlot struct {
	Content   []ContentBlock   `json:"content"`
	Context   string           `json:"context"`
	Variables []PromptVariable `json:"variables"`
}

// Prompt 定义模板的元数据与当前编辑槽位。
type Prompt struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     *string          `json:"description,omitempty"`
	Content         []ContentBlock   `json:"content"`
	Context         string           `json:"context"`
	Variables       []PromptVariable `json:"variables"`
	ActiveVersionID *string          `json:"active_version_id,omitempty"`
	Status          string           `json:"status"`
	CreatedBy       *string          `json:"created_by,omitempty"`
	DeletedAt       *time.Time       `json:"deleted_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Slot 返回当前编辑槽位的拷贝视图。
func (p *Prompt) Slot() ActiveSlot {
	return ActiveSlot{
		Content:   p.Content,
		Context:   p.Context,
		Variables: p.Variables,
	}
}

// Version 是编辑槽位的不可变快照；除描述与 is_active 标志外创建后不再变化。
type Version struct {
	ID            string           `json:"id"`
	PromptID      string           `json:"prompt_id"`
	VersionNumber int              `json:"version_number"`
	Content       []ContentBlock   `json:"content"`
	Context       string           `json:"context"`
	Variables     []PromptVariable `json:"variables"`
	Notes         *string          `json:"notes,omitempty"`
	Description   *string          `json:"description,omitempty"`
	IsActive      bool             `json:"is_active"`
	CreatedBy     *string          `json:"created_by,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Scope 限定一次变量解析可见的记录边界。
type Scope struct {
	ProjectID     string `json:"project_id,omitempty"`
	WorkspaceID   string `json:"workspace_id,omitempty"`
	CurrentUserID string `json:"current_user_id,omitempty"`
}

// Empty 判断是否既没有项目范围也没有工作区范围。
func (s Scope) Empty() bool {
	return s.ProjectID == "" && s.WorkspaceID == ""
}
