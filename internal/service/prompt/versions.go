package prompt

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/zacharykka/prompt-lab/internal/domain"
)

// Snapshot 把当前编辑槽位冻结为一个新版本并追加到历史。
// 首个版本按约定直接成为活跃版本；编辑槽位本身不受影响。
func (s *Service) Snapshot(ctx context.Context, promptID string, notes *string) (*domain.Version, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	latest, err := s.repos.Versions.GetLatestVersionNumber(ctx, prompt.ID)
	if err != nil {
		return nil, err
	}

	version := &domain.Version{
		ID:            uuid.NewString(),
		PromptID:      prompt.ID,
		VersionNumber: latest + 1,
		Content:       prompt.Content,
		Context:       prompt.Context,
		Variables:     prompt.Variables,
		Notes:         trimmedOrNil(notes),
		CreatedBy:     prompt.CreatedBy,
	}

	if err := s.repos.Versions.Create(ctx, version); err != nil {
		return nil, err
	}

	if latest == 0 {
		if err := s.repos.Versions.Activate(ctx, prompt.ID, version.ID); err != nil {
			return nil, err
		}
	}

	created, err := s.repos.Versions.GetByID(ctx, version.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return created, nil
}

// ActivateVersion 将指定版本设为活跃版本。清除与设置在仓储层的
// 单个事务内完成，任意时刻至多一个活跃版本。
func (s *Service) ActivateVersion(ctx context.Context, promptID, versionID string) error {
	if _, err := s.ownedVersion(ctx, promptID, versionID); err != nil {
		return err
	}

	if err := s.repos.Versions.Activate(ctx, promptID, versionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrVersionNotFound
		}
		return err
	}
	return nil
}

// RestoreVersion 把目标版本的内容无条件覆盖回编辑槽位。
// 版本历史与活跃标志保持不变。
func (s *Service) RestoreVersion(ctx context.Context, promptID, versionID string) (*domain.Prompt, error) {
	version, err := s.ownedVersion(ctx, promptID, versionID)
	if err != nil {
		return nil, err
	}

	slot := domain.ActiveSlot{
		Content:   version.Content,
		Context:   version.Context,
		Variables: version.Variables,
	}
	if err := s.repos.Prompts.UpdateActiveSlot(ctx, promptID, slot); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}

	return s.GetPrompt(ctx, promptID)
}

// UpdateVersionDescription 仅修改版本的描述或备注元数据。
func (s *Service) UpdateVersionDescription(ctx context.Context, promptID, versionID string, description, notes *string) (*domain.Version, error) {
	if _, err := s.ownedVersion(ctx, promptID, versionID); err != nil {
		return nil, err
	}

	if err := s.repos.Versions.UpdateDescription(ctx, promptID, versionID, trimmedOrNil(description), trimmedOrNil(notes)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}

	return s.repos.Versions.GetByID(ctx, versionID)
}

// VersionPage 是版本列表的分页结果。
type VersionPage struct {
	Items  []*domain.Version `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// ListVersions 返回指定 Prompt 的版本历史。
func (s *Service) ListVersions(ctx context.Context, promptID string, limit, offset int) (*VersionPage, error) {
	if _, err := s.GetPrompt(ctx, promptID); err != nil {
		return nil, err
	}

	versions, err := s.repos.Versions.ListByPrompt(ctx, promptID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Versions.CountByPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return &VersionPage{Items: versions, Total: total, Limit: limit, Offset: offset}, nil
}

// GetVersion 获取归属于指定 Prompt 的版本。
func (s *Service) GetVersion(ctx context.Context, promptID, versionID string) (*domain.Version, error) {
	return s.ownedVersion(ctx, promptID, versionID)
}

// ownedVersion 校验版本归属；悬空 id 或跨 Prompt 引用一律视为不存在。
func (s *Service) ownedVersion(ctx context.Context, promptID, versionID string) (*domain.Version, error) {
	if _, err := s.GetPrompt(ctx, promptID); err != nil {
		return nil, err
	}

	version, err := s.repos.Versions.GetByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	if version.PromptID != promptID {
		return nil, ErrVersionNotFound
	}
	return version, nil
}

func trimmedOrNil(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
