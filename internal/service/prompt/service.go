package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zacharykka/prompt-lab/internal/catalog"
	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/resolve"
)

// Service 提供 Prompt 模板、变量与版本快照相关操作。
type Service struct {
	repos    *domain.Repositories
	resolver *resolve.Resolver
}

// NewService 创建 Prompt 服务实例。
func NewService(repos *domain.Repositories, resolver *resolve.Resolver) *Service {
	return &Service{repos: repos, resolver: resolver}
}

// CreatePromptInput 定义创建 Prompt 所需的字段。
type CreatePromptInput struct {
	Title       string
	Description *string
	Context     string
	Content     []domain.ContentBlock
	Variables   []domain.PromptVariable
	CreatedBy   string
}

// UpdatePromptInput 定义更新 Prompt 元数据的可选字段。
type UpdatePromptInput struct {
	PromptID    string
	Title       *string
	Description *string
}

// CreatePrompt 创建新的 Prompt 记录；变量源在保存时即做目录校验。
func (s *Service) CreatePrompt(ctx context.Context, input CreatePromptInput) (*domain.Prompt, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	variables, err := normalizeVariables(input.Variables)
	if err != nil {
		return nil, err
	}
	content, err := normalizeBlocks(input.Content, variables)
	if err != nil {
		return nil, err
	}

	created := &domain.Prompt{
		ID:        uuid.NewString(),
		Title:     title,
		Context:   input.Context,
		Content:   content,
		Variables: variables,
		CreatedBy: optionalString(input.CreatedBy),
	}
	created.Description = optionalTrimmedString(input.Description)

	if err := s.repos.Prompts.Create(ctx, created); err != nil {
		return nil, err
	}

	return s.GetPrompt(ctx, created.ID)
}

// ListPromptsOptions 控制 Prompt 列表查询行为。
type ListPromptsOptions struct {
	Limit          int
	Offset         int
	Search         string
	IncludeDeleted bool
}

// ListPrompts 返回 Prompt 列表及总数。
func (s *Service) ListPrompts(ctx context.Context, opts ListPromptsOptions) ([]*domain.Prompt, int64, error) {
	repoOpts := domain.PromptListOptions{
		Limit:          opts.Limit,
		Offset:         opts.Offset,
		Search:         strings.TrimSpace(opts.Search),
		IncludeDeleted: opts.IncludeDeleted,
	}

	prompts, err := s.repos.Prompts.List(ctx, repoOpts)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repos.Prompts.Count(ctx, repoOpts)
	if err != nil {
		return nil, 0, err
	}

	return prompts, total, nil
}

// GetPrompt 根据 ID 获取 Prompt。
func (s *Service) GetPrompt(ctx context.Context, promptID string) (*domain.Prompt, error) {
	prompt, err := s.repos.Prompts.GetByID(ctx, promptID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	return prompt, nil
}

// UpdatePrompt 更新 Prompt 元数据。
func (s *Service) UpdatePrompt(ctx context.Context, input UpdatePromptInput) (*domain.Prompt, error) {
	updates := domain.PromptUpdateParams{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		updates.HasTitle = true
		updates.Title = &title
	}
	if input.Description != nil {
		updates.HasDescription = true
		updates.Description = optionalTrimmedString(input.Description)
	}

	if !updates.HasTitle && !updates.HasDescription {
		return nil, ErrNoFieldsToUpdate
	}

	if err := s.repos.Prompts.Update(ctx, input.PromptID, updates); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}

	return s.GetPrompt(ctx, input.PromptID)
}

// UpdateActiveSlot 整体覆盖编辑槽位；内容块与变量源都会被校验。
func (s *Service) UpdateActiveSlot(ctx context.Context, promptID string, slot domain.ActiveSlot) (*domain.Prompt, error) {
	variables, err := normalizeVariables(slot.Variables)
	if err != nil {
		return nil, err
	}
	content, err := normalizeBlocks(slot.Content, variables)
	if err != nil {
		return nil, err
	}
	slot.Variables = variables
	slot.Content = content

	if err := s.repos.Prompts.UpdateActiveSlot(ctx, promptID, slot); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}

	return s.GetPrompt(ctx, promptID)
}

// DeletePrompt 软删除指定 Prompt；版本历史随外键级联保留或清除。
func (s *Service) DeletePrompt(ctx context.Context, promptID string) error {
	if err := s.repos.Prompts.Delete(ctx, promptID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrPromptNotFound
		}
		return err
	}
	return nil
}

// RestorePrompt 恢复软删除的 Prompt。
func (s *Service) RestorePrompt(ctx context.Context, promptID string) (*domain.Prompt, error) {
	existing, err := s.repos.Prompts.GetByIDIncludeDeleted(ctx, promptID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	if existing.DeletedAt == nil {
		return nil, ErrPromptNotDeleted
	}

	if err := s.repos.Prompts.Restore(ctx, promptID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	return s.GetPrompt(ctx, promptID)
}

// normalizeVariables 校验变量集合：占位符唯一、值类型合法、
// 变量源通过目录校验。校验失败同步拒绝保存。
func normalizeVariables(variables []domain.PromptVariable) ([]domain.PromptVariable, error) {
	seen := make(map[string]struct{}, len(variables))
	normalized := make([]domain.PromptVariable, 0, len(variables))

	for _, variable := range variables {
		name := strings.TrimSpace(variable.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: variable name required", ErrInvalidBlock)
		}
		variable.Name = name

		if variable.Placeholder == "" {
			variable.Placeholder = "{{" + name + "}}"
		}
		if _, dup := seen[variable.Placeholder]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlaceholder, variable.Placeholder)
		}
		seen[variable.Placeholder] = struct{}{}

		switch variable.ValueType {
		case "", domain.ValueString, domain.ValueNumber, domain.ValueBoolean, domain.ValueDate, domain.ValueRichText, domain.ValueListOfStrings:
		default:
			return nil, fmt.Errorf("%w: value type %s", ErrInvalidBlock, variable.ValueType)
		}
		if variable.ValueType == "" {
			variable.ValueType = domain.ValueString
		}

		if err := catalog.ValidateSource(variable.Source); err != nil {
			return nil, err
		}

		if variable.ID == "" {
			variable.ID = uuid.NewString()
		}
		normalized = append(normalized, variable)
	}

	return normalized, nil
}

// normalizeBlocks 校验内容块类型与变量引用，并补齐缺失的 id/order。
// 只有所有块的 order 都为零时才视为调用方省略排序，按提交顺序补齐；
// 否则保留显式 order，避免把合法的 0 值当作缺省改写。
func normalizeBlocks(blocks []domain.ContentBlock, variables []domain.PromptVariable) ([]domain.ContentBlock, error) {
	known := make(map[string]struct{}, len(variables))
	for _, variable := range variables {
		known[variable.ID] = struct{}{}
	}

	ordered := false
	for _, block := range blocks {
		if block.Order != 0 {
			ordered = true
			break
		}
	}

	normalized := make([]domain.ContentBlock, 0, len(blocks))
	for i, block := range blocks {
		switch block.Type {
		case domain.BlockText:
		case domain.BlockVariable:
			if block.VarID == "" {
				return nil, fmt.Errorf("%w: variable block missing var_id", ErrInvalidBlock)
			}
			if _, ok := known[block.VarID]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, block.VarID)
			}
		default:
			return nil, fmt.Errorf("%w: type %q", ErrInvalidBlock, block.Type)
		}

		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		if !ordered {
			block.Order = i
		}
		normalized = append(normalized, block)
	}

	return normalized, nil
}

func optionalString(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalTrimmedString(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
