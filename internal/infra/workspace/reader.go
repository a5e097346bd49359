// Package workspace 提供基于 SQL 的只读记录来源，实现变量解析的
// RecordReader 能力。范围裁剪在这里完成，解析引擎不做二次鉴权。
package workspace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/infra/database"
)

// Reader 按实体类别从工作区只读模型拉取记录。
type Reader struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewReader 创建 SQL 记录读取器。
func NewReader(db *sql.DB, dialect database.Dialect) *Reader {
	return &Reader{db: db, dialect: dialect}
}

// FetchRecords 返回按范围裁剪后的记录集，顺序固定为创建时间升序，
// 保证相同范围下的解析结果可复现。
func (r *Reader) FetchRecords(ctx context.Context, category domain.EntityCategory, scope domain.Scope) ([]domain.Record, error) {
	switch category {
	case domain.CategoryProject:
		return r.fetchProjects(ctx, scope)
	case domain.CategoryTask:
		return r.fetchTasks(ctx, scope)
	case domain.CategorySprint:
		return r.fetchSprints(ctx, scope)
	case domain.CategoryDocument:
		return r.fetchDocuments(ctx, scope)
	case domain.CategoryMember:
		return r.fetchMembers(ctx, scope)
	case domain.CategoryUser:
		return r.fetchCurrentUser(ctx, scope)
	default:
		return nil, fmt.Errorf("workspace: unsupported category %s", category)
	}
}

func (r *Reader) fetchProjects(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	var query string
	var args []interface{}

	switch {
	case scope.ProjectID != "":
		query = fmt.Sprintf(`SELECT id, name, description, status, created_at FROM projects WHERE id = %s`, ph.Next())
		args = append(args, scope.ProjectID)
	case scope.WorkspaceID != "":
		query = fmt.Sprintf(`SELECT id, name, description, status, created_at FROM projects WHERE workspace_id = %s ORDER BY created_at`, ph.Next())
		args = append(args, scope.WorkspaceID)
	default:
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var id, name, status string
		var description sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&id, &name, &description, &status, &createdAt); err != nil {
			return nil, err
		}
		record := domain.Record{
			"id":     id,
			"name":   name,
			"status": status,
		}
		if description.Valid {
			record["description"] = description.String
		}
		if createdAt.Valid {
			record["created_at"] = createdAt.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *Reader) fetchTasks(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query, args := scopedQuery(ph, scope,
		`SELECT t.id, t.title, t.description, t.status, t.priority, t.assignee_id, t.sprint_id, t.estimate, t.due_date, t.created_at FROM tasks t`,
		"t.project_id", "t.created_at")
	if query == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var id, title, status, priority string
		var description, assigneeID, sprintID sql.NullString
		var estimate sql.NullFloat64
		var dueDate, createdAt sql.NullTime
		if err := rows.Scan(&id, &title, &description, &status, &priority, &assigneeID, &sprintID, &estimate, &dueDate, &createdAt); err != nil {
			return nil, err
		}
		record := domain.Record{
			"id":       id,
			"title":    title,
			"status":   status,
			"priority": priority,
		}
		if description.Valid {
			record["description"] = description.String
		}
		if assigneeID.Valid {
			record["assignee_id"] = assigneeID.String
		}
		if sprintID.Valid {
			record["sprint_id"] = sprintID.String
		}
		if estimate.Valid {
			record["estimate"] = estimate.Float64
		}
		if dueDate.Valid {
			record["due_date"] = dueDate.Time
		}
		if createdAt.Valid {
			record["created_at"] = createdAt.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *Reader) fetchSprints(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query, args := scopedQuery(ph, scope,
		`SELECT s.id, s.name, s.goal, s.status, s.start_date, s.end_date FROM sprints s`,
		"s.project_id", "s.created_at")
	if query == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var id, name, status string
		var goal sql.NullString
		var startDate, endDate sql.NullTime
		if err := rows.Scan(&id, &name, &goal, &status, &startDate, &endDate); err != nil {
			return nil, err
		}
		record := domain.Record{
			"id":     id,
			"name":   name,
			"status": status,
		}
		if goal.Valid {
			record["goal"] = goal.String
		}
		if startDate.Valid {
			record["start_date"] = startDate.Time
		}
		if endDate.Valid {
			record["end_date"] = endDate.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *Reader) fetchDocuments(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query, args := scopedQuery(ph, scope,
		`SELECT d.id, d.title, d.created_at, d.updated_at FROM documents d`,
		"d.project_id", "d.created_at")
	if query == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var id, title string
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&id, &title, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		record := domain.Record{
			"id":    id,
			"title": title,
		}
		if createdAt.Valid {
			record["created_at"] = createdAt.Time
		}
		if updatedAt.Valid {
			record["updated_at"] = updatedAt.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *Reader) fetchMembers(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	workspaceID := scope.WorkspaceID
	if workspaceID == "" && scope.ProjectID != "" {
		// 仅给出项目范围时回查项目所属工作区
		ph := database.NewPlaceholderBuilder(r.dialect)
		query := fmt.Sprintf(`SELECT workspace_id FROM projects WHERE id = %s`, ph.Next())
		if err := r.db.QueryRowContext(ctx, query, scope.ProjectID).Scan(&workspaceID); err != nil {
			if err == sql.ErrNoRows {
				return nil, nil
			}
			return nil, err
		}
	}
	if workspaceID == "" {
		return nil, nil
	}

	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT id, name, email, role FROM members WHERE workspace_id = %s ORDER BY created_at`, ph.Next())

	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var id, name, role string
		var email sql.NullString
		if err := rows.Scan(&id, &name, &email, &role); err != nil {
			return nil, err
		}
		record := domain.Record{
			"id":   id,
			"name": name,
			"role": role,
		}
		if email.Valid {
			record["email"] = email.String
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// fetchCurrentUser 返回当前用户的单记录集合。
func (r *Reader) fetchCurrentUser(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	if scope.CurrentUserID == "" {
		return nil, nil
	}

	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT id, email FROM users WHERE id = %s`, ph.Next())

	var id, email string
	if err := r.db.QueryRowContext(ctx, query, scope.CurrentUserID).Scan(&id, &email); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	return []domain.Record{{
		"id":    id,
		"name":  name,
		"email": email,
	}}, nil
}

// scopedQuery 为项目归属的表生成范围条件；仅有工作区范围时
// 经 projects 表间接过滤。两个范围都缺失时返回空查询。
func scopedQuery(ph *database.PlaceholderBuilder, scope domain.Scope, base, projectColumn, orderColumn string) (string, []interface{}) {
	switch {
	case scope.ProjectID != "":
		return fmt.Sprintf("%s WHERE %s = %s ORDER BY %s", base, projectColumn, ph.Next(), orderColumn), []interface{}{scope.ProjectID}
	case scope.WorkspaceID != "":
		return fmt.Sprintf("%s WHERE %s IN (SELECT id FROM projects WHERE workspace_id = %s) ORDER BY %s", base, projectColumn, ph.Next(), orderColumn), []interface{}{scope.WorkspaceID}
	default:
		return "", nil
	}
}
