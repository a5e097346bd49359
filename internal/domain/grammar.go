package domain

// EntityCategory 表示变量可查询的实体类别，属于封闭集合。
type EntityCategory string

const (
	CategoryProject  EntityCategory = "PROJECT"
	CategoryTask     EntityCategory = "TASK"
	CategorySprint   EntityCategory = "SPRINT"
	CategoryDocument EntityCategory = "DOCUMENT"
	CategoryMember   EntityCategory = "MEMBER"
	CategoryUser     EntityCategory = "USER"
	// CategoryDateFunction 不走记录查询，由求值时钟直接计算。
	CategoryDateFunction EntityCategory = "DATE_FUNCTION"
)

// VariableValueType 描述变量值的类型。
type VariableValueType string

const (
	ValueString        VariableValueType = "STRING"
	ValueNumber        VariableValueType = "NUMBER"
	ValueBoolean       VariableValueType = "BOOLEAN"
	ValueDate          VariableValueType = "DATE"
	ValueRichText      VariableValueType = "RICH_TEXT"
	ValueListOfStrings VariableValueType = "LIST_OF_STRINGS"
)

// FilterOperator 为过滤表达式支持的比较操作。
type FilterOperator string

const (
	OpEQ     FilterOperator = "EQ"
	OpNEQ    FilterOperator = "NEQ"
	OpGT     FilterOperator = "GT"
	OpLT     FilterOperator = "LT"
	OpGTE    FilterOperator = "GTE"
	OpLTE    FilterOperator = "LTE"
	OpInList FilterOperator = "IN_LIST"
)

// AggregationKind 表示对过滤结果集的聚合方式。
type AggregationKind string

const (
	AggCount      AggregationKind = "COUNT"
	AggSum        AggregationKind = "SUM"
	AggAverage    AggregationKind = "AVERAGE"
	AggListTitles AggregationKind = "LIST_TITLES"
	AggListNames  AggregationKind = "LIST_NAMES"
)

// OutputFormat 控制已解析值的展示格式。
type OutputFormat string

const (
	FormatPlain          OutputFormat = "PLAIN"
	FormatBulletPoints   OutputFormat = "BULLET_POINTS"
	FormatCommaSeparated OutputFormat = "COMMA_SEPARATED"
)

// Record 是读取接口返回的原始记录，字段名对应目录中的 FieldDef.Name。
type Record map[string]interface{}

// AggregateValue 承载一次求值的结果：标量或字符串序列二选一。
type AggregateValue struct {
	Scalar interface{} `json:"scalar,omitempty"`
	List   []string    `json:"list,omitempty"`
	IsList bool        `json:"is_list"`
}

// FieldDef 描述实体类别上可投影的字段。
type FieldDef struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	ValueType VariableValueType `json:"value_type"`
}

// FilterDef 描述某字段允许的过滤形态。
type FilterDef struct {
	Field          string            `json:"field"`
	ValueType      VariableValueType `json:"value_type"`
	Operators      []FilterOperator  `json:"operators"`
	StaticOptions  []string          `json:"static_options,omitempty"`
	LookupCategory EntityCategory    `json:"lookup_category,omitempty"`
	IsItemPicker   bool              `json:"is_item_picker,omitempty"`
}

// AggregationDef 描述实体类别支持的聚合。
type AggregationDef struct {
	Kind          AggregationKind   `json:"kind"`
	ResultType    VariableValueType `json:"result_type"`
	RequiresField bool              `json:"requires_field"`
}

// EntityDefinition 汇总一个实体类别的全部查询能力，目录加载后不可变。
type EntityDefinition struct {
	Category     EntityCategory   `json:"category"`
	DisplayField string           `json:"display_field,omitempty"`
	Fields       []FieldDef       `json:"fields"`
	Aggregations []AggregationDef `json:"aggregations"`
	Filters      []FilterDef      `json:"filters"`
}

// Field 按名称查找字段定义。
func (d EntityDefinition) Field(name string) (FieldDef, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Filter 按字段名查找过滤定义。
func (d EntityDefinition) Filter(field string) (FilterDef, bool) {
	for _, f := range d.Filters {
		if f.Field == field {
			return f, true
		}
	}
	return FilterDef{}, false
}

// Aggregation 按类型查找聚合定义。
func (d EntityDefinition) Aggregation(kind AggregationKind) (AggregationDef, bool) {
	for _, a := range d.Aggregations {
		if a.Kind == kind {
			return a, true
		}
	}
	return AggregationDef{}, false
}

// Supports 判断过滤定义是否允许指定操作符。
func (f FilterDef) Supports(op FilterOperator) bool {
	for _, candidate := range f.Operators {
		if candidate == op {
			return true
		}
	}
	return false
}
