package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/infra/database"
)

// NewSQLRepositories 构建基于 *sql.DB 的仓储集合。
func NewSQLRepositories(db *sql.DB, dialect database.Dialect) *domain.Repositories {
	return &domain.Repositories{
		Users:    &userRepository{db: db, dialect: dialect},
		Prompts:  &promptRepository{db: db, dialect: dialect},
		Versions: &versionRepository{db: db, dialect: dialect},
	}
}

// ---- 用户仓储 ----

type userRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type userRow struct {
	id             string
	email          string
	hashedPassword string
	role           string
	status         string
	lastLoginAt    sql.NullTime
	createdAt      time.Time
	updatedAt      time.Time
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO users (id, email, hashed_password, role, status)
VALUES (%s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	role := user.Role
	if role == "" {
		role = "viewer"
	}
	status := user.Status
	if status == "" {
		status = "active"
	}

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.HashedPassword, role, status)
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT id, email, hashed_password, role, status, last_login_at, created_at, updated_at
FROM users WHERE email = %s`, ph.Next())
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT id, email, hashed_password, role, status, last_login_at, created_at, updated_at
FROM users WHERE id = %s`, ph.Next())
	return r.scanUser(r.db.QueryRowContext(ctx, query, userID))
}

func (r *userRepository) scanUser(row *sql.Row) (*domain.User, error) {
	var ur userRow
	err := row.Scan(&ur.id, &ur.email, &ur.hashedPassword, &ur.role, &ur.status, &ur.lastLoginAt, &ur.createdAt, &ur.updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	user := &domain.User{
		ID:             ur.id,
		Email:          ur.email,
		HashedPassword: ur.hashedPassword,
		Role:           ur.role,
		Status:         ur.status,
		CreatedAt:      ur.createdAt,
		UpdatedAt:      ur.updatedAt,
	}
	if ur.lastLoginAt.Valid {
		user.LastLoginAt = &ur.lastLoginAt.Time
	}
	return user, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE users SET last_login_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = %s`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// ---- Prompt 仓储 ----

type promptRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type promptRow struct {
	id              string
	title           string
	description     sql.NullString
	content         sql.NullString
	context         string
	variables       sql.NullString
	activeVersionID sql.NullString
	status          string
	createdBy       sql.NullString
	deletedAt       sql.NullTime
	createdAt       time.Time
	updatedAt       time.Time
}

const promptColumns = `p.id, p.title, p.description, p.content, p.context, p.variables, p.active_version_id, p.status, p.created_by, p.deleted_at, p.created_at, p.updated_at`

func (r *promptRepository) Create(ctx context.Context, prompt *domain.Prompt) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO prompts (id, title, description, content, context, variables, created_by)
VALUES (%s, %s, %s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	content, err := marshalBlocks(prompt.Content)
	if err != nil {
		return err
	}
	variables, err := marshalVariables(prompt.Variables)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		prompt.ID,
		prompt.Title,
		nullString(prompt.Description),
		content,
		prompt.Context,
		variables,
		nullString(prompt.CreatedBy),
	)
	return err
}

func (r *promptRepository) GetByID(ctx context.Context, promptID string) (*domain.Prompt, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompts p WHERE p.id = %s AND p.deleted_at IS NULL`, promptColumns, ph.Next())
	return scanPrompt(r.db.QueryRowContext(ctx, query, promptID))
}

func (r *promptRepository) GetByIDIncludeDeleted(ctx context.Context, promptID string) (*domain.Prompt, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompts p WHERE p.id = %s`, promptColumns, ph.Next())
	return scanPrompt(r.db.QueryRowContext(ctx, query, promptID))
}

func (r *promptRepository) List(ctx context.Context, opts domain.PromptListOptions) ([]*domain.Prompt, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	search := strings.TrimSpace(strings.ToLower(opts.Search))

	ph := database.NewPlaceholderBuilder(r.dialect)
	var builder strings.Builder
	var args []interface{}
	var conditions []string

	builder.WriteString(fmt.Sprintf(`SELECT %s FROM prompts p`, promptColumns))

	if !opts.IncludeDeleted {
		conditions = append(conditions, "p.deleted_at IS NULL")
	}
	if search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(p.title) LIKE %s", ph.Next()))
		args = append(args, fmt.Sprintf("%%%s%%", search))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	builder.WriteString(" ORDER BY p.updated_at DESC LIMIT ")
	builder.WriteString(ph.Next())
	builder.WriteString(" OFFSET ")
	builder.WriteString(ph.Next())
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []*domain.Prompt
	for rows.Next() {
		var row promptRow
		if err := rows.Scan(&row.id, &row.title, &row.description, &row.content, &row.context, &row.variables, &row.activeVersionID, &row.status, &row.createdBy, &row.deletedAt, &row.createdAt, &row.updatedAt); err != nil {
			return nil, err
		}
		prompt, err := row.toPrompt()
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prompts, nil
}

func (r *promptRepository) Count(ctx context.Context, opts domain.PromptListOptions) (int64, error) {
	search := strings.TrimSpace(strings.ToLower(opts.Search))
	ph := database.NewPlaceholderBuilder(r.dialect)
	var builder strings.Builder
	var args []interface{}
	var conditions []string

	builder.WriteString("SELECT COUNT(1) FROM prompts p")
	if !opts.IncludeDeleted {
		conditions = append(conditions, "p.deleted_at IS NULL")
	}
	if search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(p.title) LIKE %s", ph.Next()))
		args = append(args, fmt.Sprintf("%%%s%%", search))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, builder.String(), args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *promptRepository) Update(ctx context.Context, promptID string, params domain.PromptUpdateParams) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	var sets []string
	var args []interface{}

	if params.HasTitle {
		if params.Title == nil {
			return fmt.Errorf("prompt title cannot be nil")
		}
		sets = append(sets, fmt.Sprintf("title = %s", ph.Next()))
		args = append(args, *params.Title)
	}
	if params.HasDescription {
		sets = append(sets, fmt.Sprintf("description = %s", ph.Next()))
		args = append(args, nullString(params.Description))
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	query := fmt.Sprintf("UPDATE prompts SET %s WHERE id = %s AND deleted_at IS NULL", strings.Join(sets, ", "), ph.Next())
	args = append(args, promptID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *promptRepository) UpdateActiveSlot(ctx context.Context, promptID string, slot domain.ActiveSlot) error {
	content, err := marshalBlocks(slot.Content)
	if err != nil {
		return err
	}
	variables, err := marshalVariables(slot.Variables)
	if err != nil {
		return err
	}

	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE prompts SET content = %s, context = %s, variables = %s, updated_at = CURRENT_TIMESTAMP
WHERE id = %s AND deleted_at IS NULL`, ph.Next(), ph.Next(), ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, content, slot.Context, variables, promptID)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *promptRepository) Delete(ctx context.Context, promptID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE prompts SET status = 'deleted', deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = %s AND deleted_at IS NULL`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, promptID)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *promptRepository) Restore(ctx context.Context, promptID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE prompts SET status = 'active', deleted_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = %s AND status = 'deleted'`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, promptID)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func scanPrompt(row *sql.Row) (*domain.Prompt, error) {
	var pr promptRow
	err := row.Scan(&pr.id, &pr.title, &pr.description, &pr.content, &pr.context, &pr.variables, &pr.activeVersionID, &pr.status, &pr.createdBy, &pr.deletedAt, &pr.createdAt, &pr.updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return pr.toPrompt()
}

func (row promptRow) toPrompt() (*domain.Prompt, error) {
	prompt := &domain.Prompt{
		ID:        row.id,
		Title:     row.title,
		Context:   row.context,
		Status:    row.status,
		CreatedAt: row.createdAt,
		UpdatedAt: row.updatedAt,
	}
	if row.description.Valid {
		prompt.Description = &row.description.String
	}
	if row.activeVersionID.Valid {
		prompt.ActiveVersionID = &row.activeVersionID.String
	}
	if row.createdBy.Valid {
		prompt.CreatedBy = &row.createdBy.String
	}
	if row.deletedAt.Valid {
		prompt.DeletedAt = &row.deletedAt.Time
	}

	var err error
	if prompt.Content, err = unmarshalBlocks(row.content); err != nil {
		return nil, err
	}
	if prompt.Variables, err = unmarshalVariables(row.variables); err != nil {
		return nil, err
	}
	return prompt, nil
}

// ---- 版本仓储 ----

type versionRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type versionRow struct {
	id            string
	promptID      string
	versionNumber int
	content       sql.NullString
	context       string
	variables     sql.NullString
	notes         sql.NullString
	description   sql.NullString
	isActive      bool
	createdBy     sql.NullString
	createdAt     time.Time
}

const versionColumns = `id, prompt_id, version_number, content, context, variables, notes, description, is_active, created_by, created_at`

func (r *versionRepository) Create(ctx context.Context, version *domain.Version) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO prompt_versions (id, prompt_id, version_number, content, context, variables, notes, description, is_active, created_by)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	content, err := marshalBlocks(version.Content)
	if err != nil {
		return err
	}
	variables, err := marshalVariables(version.Variables)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		version.ID,
		version.PromptID,
		version.VersionNumber,
		content,
		version.Context,
		variables,
		nullString(version.Notes),
		nullString(version.Description),
		version.IsActive,
		nullString(version.CreatedBy),
	)
	return err
}

func (r *versionRepository) GetByID(ctx context.Context, versionID string) (*domain.Version, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompt_versions WHERE id = %s`, versionColumns, ph.Next())

	var row versionRow
	err := r.db.QueryRowContext(ctx, query, versionID).Scan(&row.id, &row.promptID, &row.versionNumber, &row.content, &row.context, &row.variables, &row.notes, &row.description, &row.isActive, &row.createdBy, &row.createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toVersion()
}

func (r *versionRepository) ListByPrompt(ctx context.Context, promptID string, limit, offset int) ([]*domain.Version, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompt_versions WHERE prompt_id = %s ORDER BY version_number DESC LIMIT %s OFFSET %s`,
		versionColumns, ph.Next(), ph.Next(), ph.Next())

	rows, err := r.db.QueryContext(ctx, query, promptID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*domain.Version
	for rows.Next() {
		var row versionRow
		if err := rows.Scan(&row.id, &row.promptID, &row.versionNumber, &row.content, &row.context, &row.variables, &row.notes, &row.description, &row.isActive, &row.createdBy, &row.createdAt); err != nil {
			return nil, err
		}
		version, err := row.toVersion()
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *versionRepository) CountByPrompt(ctx context.Context, promptID string) (int64, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT COUNT(1) FROM prompt_versions WHERE prompt_id = %s`, ph.Next())

	var total int64
	if err := r.db.QueryRowContext(ctx, query, promptID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *versionRepository) GetLatestVersionNumber(ctx context.Context, promptID string) (int, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT COALESCE(MAX(version_number), 0) FROM prompt_versions WHERE prompt_id = %s`, ph.Next())

	var latest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, promptID).Scan(&latest); err != nil {
		return 0, err
	}
	if latest.Valid {
		return int(latest.Int64), nil
	}
	return 0, nil
}

// Activate 在单个事务内完成清除加设置，避免并发激活时出现
// 零个或两个活跃版本的窗口。
func (r *versionRepository) Activate(ctx context.Context, promptID, versionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ph := database.NewPlaceholderBuilder(r.dialect)
	clearQuery := fmt.Sprintf(`UPDATE prompt_versions SET is_active = %s WHERE prompt_id = %s`, ph.Next(), ph.Next())
	if _, err := tx.ExecContext(ctx, clearQuery, false, promptID); err != nil {
		return err
	}

	ph = database.NewPlaceholderBuilder(r.dialect)
	setQuery := fmt.Sprintf(`UPDATE prompt_versions SET is_active = %s WHERE id = %s AND prompt_id = %s`, ph.Next(), ph.Next(), ph.Next())
	result, err := tx.ExecContext(ctx, setQuery, true, versionID, promptID)
	if err != nil {
		return err
	}
	if err := requireRows(result); err != nil {
		return err
	}

	ph = database.NewPlaceholderBuilder(r.dialect)
	promptQuery := fmt.Sprintf(`UPDATE prompts SET active_version_id = %s, updated_at = CURRENT_TIMESTAMP WHERE id = %s AND deleted_at IS NULL`, ph.Next(), ph.Next())
	result, err = tx.ExecContext(ctx, promptQuery, versionID, promptID)
	if err != nil {
		return err
	}
	if err := requireRows(result); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *versionRepository) UpdateDescription(ctx context.Context, promptID, versionID string, description, notes *string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	var sets []string
	var args []interface{}

	if description != nil {
		sets = append(sets, fmt.Sprintf("description = %s", ph.Next()))
		args = append(args, *description)
	}
	if notes != nil {
		sets = append(sets, fmt.Sprintf("notes = %s", ph.Next()))
		args = append(args, *notes)
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE prompt_versions SET %s WHERE id = %s AND prompt_id = %s", strings.Join(sets, ", "), ph.Next(), ph.Next())
	args = append(args, versionID, promptID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (row versionRow) toVersion() (*domain.Version, error) {
	version := &domain.Version{
		ID:            row.id,
		PromptID:      row.promptID,
		VersionNumber: row.versionNumber,
		Context:       row.context,
		IsActive:      row.isActive,
		CreatedAt:     row.createdAt,
	}
	if row.notes.Valid {
		version.Notes = &row.notes.String
	}
	if row.description.Valid {
		version.Description = &row.description.String
	}
	if row.createdBy.Valid {
		version.CreatedBy = &row.createdBy.String
	}

	var err error
	if version.Content, err = unmarshalBlocks(row.content); err != nil {
		return nil, err
	}
	if version.Variables, err = unmarshalVariables(row.variables); err != nil {
		return nil, err
	}
	return version, nil
}

// ---- JSON 槽位列辅助 ----

func marshalBlocks(blocks []domain.ContentBlock) (sql.NullString, error) {
	if len(blocks) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalBlocks(value sql.NullString) ([]domain.ContentBlock, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	var blocks []domain.ContentBlock
	if err := json.Unmarshal([]byte(value.String), &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func marshalVariables(variables []domain.PromptVariable) (sql.NullString, error) {
	if len(variables) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(variables)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalVariables(value sql.NullString) ([]domain.PromptVariable, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	var variables []domain.PromptVariable
	if err := json.Unmarshal([]byte(value.String), &variables); err != nil {
		return nil, err
	}
	return variables, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func requireRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
