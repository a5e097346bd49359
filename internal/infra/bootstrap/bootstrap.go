package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zacharykka/prompt-lab/internal/config"
	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/infra/database"
	authutil "github.com/zacharykka/prompt-lab/pkg/auth"
)

// EnsureDefaultAdmin 在管理员账号缺失时创建之。
func EnsureDefaultAdmin(ctx context.Context, repos *domain.Repositories, cfg config.BootstrapConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Info("bootstrap skipped (disabled)")
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || cfg.AdminPassword == "" {
		logger.Info("admin seeding skipped; email or password not set")
		return nil
	}

	if _, err := repos.Users.GetByEmail(ctx, email); err == nil {
		logger.Info("bootstrap admin exists", zap.String("email", email))
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := authutil.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := &domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		Role:           normalizedRole(cfg.AdminRole),
		Status:         "active",
	}
	if err := repos.Users.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}

// SeedDemoWorkspace 在工作区读模型为空时写入一组演示数据，
// 便于开箱即用地验证变量解析。已有数据时不做任何修改。
func SeedDemoWorkspace(ctx context.Context, db *sql.DB, dialect database.Dialect, logger *zap.Logger) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(1) FROM projects").Scan(&count); err != nil {
		return fmt.Errorf("count projects: %w", err)
	}
	if count > 0 {
		logger.Info("demo workspace seeding skipped; projects already present")
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	workspaceID := uuid.NewString()
	projectID := uuid.NewString()
	sprintID := uuid.NewString()
	memberID := uuid.NewString()

	exec := func(query string, args ...interface{}) error {
		_, execErr := tx.ExecContext(ctx, query, args...)
		return execErr
	}

	pb := database.NewPlaceholderBuilder(dialect)
	projectQuery := fmt.Sprintf(
		"INSERT INTO projects (id, workspace_id, name, status, created_at) VALUES (%s, %s, %s, %s, %s)",
		pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(),
	)
	if err := exec(projectQuery, projectID, workspaceID, "Demo Project", "ACTIVE", now); err != nil {
		return fmt.Errorf("seed project: %w", err)
	}

	pb = database.NewPlaceholderBuilder(dialect)
	sprintQuery := fmt.Sprintf(
		"INSERT INTO sprints (id, project_id, name, status, start_date, end_date, created_at) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(),
	)
	if err := exec(sprintQuery, sprintID, projectID, "Sprint 1", "ACTIVE", now, now.AddDate(0, 0, 14), now); err != nil {
		return fmt.Errorf("seed sprint: %w", err)
	}

	pb = database.NewPlaceholderBuilder(dialect)
	memberQuery := fmt.Sprintf(
		"INSERT INTO members (id, workspace_id, name, email, role, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(),
	)
	if err := exec(memberQuery, memberID, workspaceID, "Demo Member", "member@example.com", "editor", now); err != nil {
		return fmt.Errorf("seed member: %w", err)
	}

	tasks := []struct {
		title    string
		status   string
		priority string
		estimate float64
	}{
		{"Fix login bug", "DONE", "HIGH", 3},
		{"Write onboarding doc", "IN_PROGRESS", "MEDIUM", 5},
		{"Polish landing page", "TODO", "LOW", 2},
	}
	for _, task := range tasks {
		pb = database.NewPlaceholderBuilder(dialect)
		taskQuery := fmt.Sprintf(
			"INSERT INTO tasks (id, project_id, title, status, priority, assignee_id, sprint_id, estimate, due_date, created_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)",
			pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(), pb.Next(),
		)
		if err := exec(taskQuery, uuid.NewString(), projectID, task.title, task.status, task.priority, memberID, sprintID, task.estimate, now.AddDate(0, 0, 7), now); err != nil {
			return fmt.Errorf("seed task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logger.Info("demo workspace seeded",
		zap.String("workspace_id", workspaceID),
		zap.String("project_id", projectID),
	)
	return nil
}

func normalizedRole(role string) string {
	value := strings.TrimSpace(strings.ToLower(role))
	switch value {
	case "admin", "editor", "viewer":
		return value
	default:
		return "admin"
	}
}
