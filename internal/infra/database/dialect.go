package database

import "strconv"

// Dialect 封装不同数据库的占位符风格，构造时归一化驱动名。
type Dialect struct {
	postgres bool
}

// NewDialect 根据驱动名称构建方言。
func NewDialect(driver string) Dialect {
	switch driver {
	case "postgres", "pgx", "postgresql":
		return Dialect{postgres: true}
	default:
		return Dialect{}
	}
}

// Placeholder 返回指定序号的占位符。
func (d Dialect) Placeholder(index int) string {
	if d.postgres {
		return "$" + strconv.Itoa(index)
	}
	return "?"
}

// PlaceholderBuilder 生成顺序占位符，避免调用方手动维护计数。
type PlaceholderBuilder struct {
	dialect Dialect
	index   int
}

// NewPlaceholderBuilder 创建一个计数器实例。
func NewPlaceholderBuilder(d Dialect) *PlaceholderBuilder {
	return &PlaceholderBuilder{dialect: d}
}

// Next 返回下一个可用占位符。
func (b *PlaceholderBuilder) Next() string {
	b.index++
	return b.dialect.Placeholder(b.index)
}
