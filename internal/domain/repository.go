package domain

import "context"

// UserRepository 定义用户存取接口。
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, userID string) (*User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

// PromptListOptions 控制 Prompt 列表查询行为。
type PromptListOptions struct {
	Limit          int
	Offset         int
	Search         string
	IncludeDeleted bool
}

// PromptUpdateParams 描述 Prompt 元数据的部分更新。
type PromptUpdateParams struct {
	HasTitle       bool
	Title          *string
	HasDescription bool
	Description    *string
}

// PromptRepository 定义 Prompt 模板存取接口。
type PromptRepository interface {
	Create(ctx context.Context, prompt *Prompt) error
	GetByID(ctx context.Context, promptID string) (*Prompt, error)
	GetByIDIncludeDeleted(ctx context.Context, promptID string) (*Prompt, error)
	List(ctx context.Context, opts PromptListOptions) ([]*Prompt, error)
	Count(ctx context.Context, opts PromptListOptions) (int64, error)
	Update(ctx context.Context, promptID string, params PromptUpdateParams) error
	// UpdateActiveSlot 整体覆盖编辑槽位，restore 操作也走这里。
	UpdateActiveSlot(ctx context.Context, promptID string, slot ActiveSlot) error
	Delete(ctx context.Context, promptID string) error
	Restore(ctx context.Context, promptID string) error
}

// VersionRepository 定义版本快照存取接口。
type VersionRepository interface {
	Create(ctx context.Context, version *Version) error
	GetByID(ctx context.Context, versionID string) (*Version, error)
	ListByPrompt(ctx context.Context, promptID string, limit, offset int) ([]*Version, error)
	CountByPrompt(ctx context.Context, promptID string) (int64, error)
	GetLatestVersionNumber(ctx context.Context, promptID string) (int, error)
	// Activate 在单个事务内完成 is_active 的清除与设置，并同步
	// prompts.active_version_id，保证任意时刻至多一个活跃版本。
	Activate(ctx context.Context, promptID, versionID string) error
	UpdateDescription(ctx context.Context, promptID, versionID string, description, notes *string) error
}

// RecordReader 是引擎消费的外部读取能力：按类别与范围返回已裁剪的记录集。
// 访问控制由实现方负责，引擎不做二次鉴权。
type RecordReader interface {
	FetchRecords(ctx context.Context, category EntityCategory, scope Scope) ([]Record, error)
}

// Repositories 聚合全部仓储接口，便于依赖注入。
type Repositories struct {
	Users    UserRepository
	Prompts  PromptRepository
	Versions VersionRepository
}
