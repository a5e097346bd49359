// Package render 将内容块序列与已解析的变量值拼接为最终文本。
package render

import (
	"sort"
	"strings"

	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/resolve"
)

// Render 按 Order 拼接内容块。变量块取解析值；缺失或解析失败时
// 输出 {{name}} 形式的占位符，保证失败可见而非静默留空。
// 纯函数：相同输入必然产生相同输出。
func Render(blocks []domain.ContentBlock, variables []domain.PromptVariable, values map[string]resolve.Resolved) string {
	names := make(map[string]string, len(variables))
	for _, variable := range variables {
		names[variable.ID] = variable.Name
	}

	ordered := sortBlocks(blocks)
	var builder strings.Builder
	for _, block := range ordered {
		switch block.Type {
		case domain.BlockText:
			builder.WriteString(block.Value)
		case domain.BlockVariable:
			builder.WriteString(renderVariable(block, names, values))
		}
	}
	return builder.String()
}

// Preview 把所有变量块渲染为占位符，用于人工预览。
func Preview(blocks []domain.ContentBlock, variables []domain.PromptVariable) string {
	names := make(map[string]string, len(variables))
	for _, variable := range variables {
		names[variable.ID] = variable.Name
	}

	ordered := sortBlocks(blocks)
	var builder strings.Builder
	for _, block := range ordered {
		switch block.Type {
		case domain.BlockText:
			builder.WriteString(block.Value)
		case domain.BlockVariable:
			builder.WriteString(Placeholder(placeholderName(block, names)))
		}
	}
	return builder.String()
}

// Placeholder 返回变量的 {{name}} 字面形式。
func Placeholder(name string) string {
	return "{{" + name + "}}"
}

func renderVariable(block domain.ContentBlock, names map[string]string, values map[string]resolve.Resolved) string {
	resolved, ok := values[block.VarID]
	if !ok {
		return Placeholder(placeholderName(block, names))
	}
	if !resolved.Ok() {
		name := resolved.Name
		if name == "" {
			name = placeholderName(block, names)
		}
		return Placeholder(name)
	}
	return resolved.Value
}

func placeholderName(block domain.ContentBlock, names map[string]string) string {
	if name, ok := names[block.VarID]; ok && name != "" {
		return name
	}
	return block.VarID
}

func sortBlocks(blocks []domain.ContentBlock) []domain.ContentBlock {
	ordered := make([]domain.ContentBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	return ordered
}
