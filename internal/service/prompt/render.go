package prompt

import (
	"context"

	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/render"
	"github.com/zacharykka/prompt-lab/internal/resolve"
)

// RenderResult 汇总一次渲染的正文与逐变量解析结果。
type RenderResult struct {
	PromptID  string             `json:"prompt_id"`
	VersionID *string            `json:"version_id,omitempty"`
	Body      string             `json:"body"`
	Context   string             `json:"context,omitempty"`
	Variables []resolve.Resolved `json:"variables"`
}

// RenderPrompt 解析编辑槽位的全部变量并渲染正文。
// 请求完全不带范围而槽位依赖工作区记录时同步报错；
// 除此之外单个变量的解析失败只体现为占位符，不会中断整体渲染。
func (s *Service) RenderPrompt(ctx context.Context, promptID string, scope domain.Scope) (*RenderResult, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if err := resolve.RequireScope(prompt.Variables, scope); err != nil {
		return nil, err
	}

	values := s.resolver.ResolveAll(ctx, prompt.Variables, scope)
	body := render.Render(prompt.Content, prompt.Variables, values)

	return &RenderResult{
		PromptID:  prompt.ID,
		Body:      body,
		Context:   prompt.Context,
		Variables: orderedOutcomes(prompt.Variables, values),
	}, nil
}

// RenderVersion 以历史版本的内容为模板执行渲染。
func (s *Service) RenderVersion(ctx context.Context, promptID, versionID string, scope domain.Scope) (*RenderResult, error) {
	version, err := s.ownedVersion(ctx, promptID, versionID)
	if err != nil {
		return nil, err
	}
	if err := resolve.RequireScope(version.Variables, scope); err != nil {
		return nil, err
	}

	values := s.resolver.ResolveAll(ctx, version.Variables, scope)
	body := render.Render(version.Content, version.Variables, values)

	return &RenderResult{
		PromptID:  promptID,
		VersionID: &version.ID,
		Body:      body,
		Context:   version.Context,
		Variables: orderedOutcomes(version.Variables, values),
	}, nil
}

// PreviewPrompt 渲染占位符形态的正文，不触发任何解析。
func (s *Service) PreviewPrompt(ctx context.Context, promptID string) (string, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return "", err
	}
	return render.Preview(prompt.Content, prompt.Variables), nil
}

// orderedOutcomes 按变量声明顺序输出解析结果，保证响应稳定。
func orderedOutcomes(variables []domain.PromptVariable, values map[string]resolve.Resolved) []resolve.Resolved {
	outcomes := make([]resolve.Resolved, 0, len(values))
	for _, variable := range variables {
		if outcome, ok := values[variable.ID]; ok {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}
