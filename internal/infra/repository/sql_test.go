package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/infra/database"
)

func openTestRepositories(t *testing.T, name string) *domain.Repositories {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, migration := range []string{"000001_init.up.sql", "000002_workspace_read_model.up.sql"} {
		raw, err := os.ReadFile(filepath.Join("..", "..", "..", "db", "migrations", migration))
		if err != nil {
			t.Fatalf("read migration %s: %v", migration, err)
		}
		if _, err := db.Exec(string(raw)); err != nil {
			t.Fatalf("apply migration %s: %v", migration, err)
		}
	}
	return NewSQLRepositories(db, database.NewDialect("sqlite"))
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	repos := openTestRepositories(t, "repo_users.db")
	ctx := context.Background()

	user := &domain.User{ID: "u1", Email: "alice@example.com", HashedPassword: "hash"}
	if err := repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := repos.Users.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Role != "viewer" || got.Status != "active" {
		t.Fatalf("expected defaulted role/status, got %s/%s", got.Role, got.Status)
	}
	if got.LastLoginAt != nil {
		t.Fatal("fresh user must have no login timestamp")
	}

	if err := repos.Users.UpdateLastLogin(ctx, "u1"); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	got, err = repos.Users.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.LastLoginAt == nil {
		t.Fatal("last login must be recorded")
	}

	if _, err := repos.Users.GetByID(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repos.Users.UpdateLastLogin(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on missing user, got %v", err)
	}
}

func samplePrompt(id, title string) *domain.Prompt {
	return &domain.Prompt{
		ID:    id,
		Title: title,
		Content: []domain.ContentBlock{
			{ID: "b1", Type: domain.BlockText, Order: 0, Value: "Hello "},
			{ID: "b2", Type: domain.BlockVariable, Order: 1, VarID: "v1"},
		},
		Context: "greeting",
		Variables: []domain.PromptVariable{
			{ID: "v1", Name: "who", Placeholder: "{{who}}", ValueType: domain.ValueString, DefaultValue: "world"},
		},
	}
}

func TestPromptRepositorySlotRoundTrip(t *testing.T) {
	repos := openTestRepositories(t, "repo_prompts.db")
	ctx := context.Background()

	if err := repos.Prompts.Create(ctx, samplePrompt("p1", "Greeting")); err != nil {
		t.Fatalf("create prompt: %v", err)
	}

	got, err := repos.Prompts.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("get prompt: %v", err)
	}
	if len(got.Content) != 2 || got.Content[1].VarID != "v1" {
		t.Fatalf("content blocks lost in round trip: %v", got.Content)
	}
	if len(got.Variables) != 1 || got.Variables[0].Placeholder != "{{who}}" {
		t.Fatalf("variables lost in round trip: %v", got.Variables)
	}
	if got.Status != "active" {
		t.Fatalf("expected default status active, got %s", got.Status)
	}

	slot := domain.ActiveSlot{
		Content: []domain.ContentBlock{{ID: "b1", Type: domain.BlockText, Order: 0, Value: "Bye"}},
		Context: "farewell",
	}
	if err := repos.Prompts.UpdateActiveSlot(ctx, "p1", slot); err != nil {
		t.Fatalf("update slot: %v", err)
	}
	got, err = repos.Prompts.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("get prompt after slot update: %v", err)
	}
	if got.Context != "farewell" || len(got.Content) != 1 || len(got.Variables) != 0 {
		t.Fatalf("slot overwrite must replace all three parts, got %+v", got.Slot())
	}
}

func TestPromptRepositoryUpdateMetadata(t *testing.T) {
	repos := openTestRepositories(t, "repo_prompt_update.db")
	ctx := context.Background()

	if err := repos.Prompts.Create(ctx, samplePrompt("p1", "Before")); err != nil {
		t.Fatalf("create prompt: %v", err)
	}

	title := "After"
	description := "renamed"
	err := repos.Prompts.Update(ctx, "p1", domain.PromptUpdateParams{
		HasTitle: true, Title: &title,
		HasDescription: true, Description: &description,
	})
	if err != nil {
		t.Fatalf("update prompt: %v", err)
	}

	got, err := repos.Prompts.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("get prompt: %v", err)
	}
	if got.Title != "After" || got.Description == nil || *got.Description != "renamed" {
		t.Fatalf("metadata update not applied: %+v", got)
	}

	// 清空描述走显式 nil
	if err := repos.Prompts.Update(ctx, "p1", domain.PromptUpdateParams{HasDescription: true}); err != nil {
		t.Fatalf("clear description: %v", err)
	}
	got, _ = repos.Prompts.GetByID(ctx, "p1")
	if got.Description != nil {
		t.Fatalf("description must be cleared, got %v", *got.Description)
	}

	err = repos.Prompts.Update(ctx, "ghost", domain.PromptUpdateParams{HasTitle: true, Title: &title})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPromptRepositorySoftDelete(t *testing.T) {
	repos := openTestRepositories(t, "repo_prompt_delete.db")
	ctx := context.Background()

	if err := repos.Prompts.Create(ctx, samplePrompt("p1", "Doomed")); err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	if err := repos.Prompts.Delete(ctx, "p1"); err != nil {
		t.Fatalf("delete prompt: %v", err)
	}

	if _, err := repos.Prompts.GetByID(ctx, "p1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted prompt must be hidden, got %v", err)
	}
	got, err := repos.Prompts.GetByIDIncludeDeleted(ctx, "p1")
	if err != nil {
		t.Fatalf("include-deleted lookup: %v", err)
	}
	if got.Status != "deleted" || got.DeletedAt == nil {
		t.Fatalf("expected tombstone, got status=%s deletedAt=%v", got.Status, got.DeletedAt)
	}

	// 二次删除落在 0 行
	if err := repos.Prompts.Delete(ctx, "p1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("double delete must report ErrNotFound, got %v", err)
	}

	if err := repos.Prompts.Restore(ctx, "p1"); err != nil {
		t.Fatalf("restore prompt: %v", err)
	}
	got, err = repos.Prompts.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("restored prompt must be visible: %v", err)
	}
	if got.Status != "active" || got.DeletedAt != nil {
		t.Fatalf("restore must clear tombstone, got status=%s deletedAt=%v", got.Status, got.DeletedAt)
	}

	if err := repos.Prompts.Restore(ctx, "p1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("restoring a live prompt must report ErrNotFound, got %v", err)
	}
}

func TestPromptRepositoryListAndCount(t *testing.T) {
	repos := openTestRepositories(t, "repo_prompt_list.db")
	ctx := context.Background()

	for i, title := range []string{"Daily standup", "Weekly report", "Standup summary"} {
		if err := repos.Prompts.Create(ctx, samplePrompt(fmt.Sprintf("p%d", i+1), title)); err != nil {
			t.Fatalf("create prompt %d: %v", i+1, err)
		}
	}
	if err := repos.Prompts.Delete(ctx, "p2"); err != nil {
		t.Fatalf("delete prompt: %v", err)
	}

	visible, err := repos.Prompts.List(ctx, domain.PromptListOptions{})
	if err != nil {
		t.Fatalf("list prompts: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible prompts, got %d", len(visible))
	}

	all, err := repos.Prompts.List(ctx, domain.PromptListOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("list all prompts: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 prompts including deleted, got %d", len(all))
	}

	matched, err := repos.Prompts.List(ctx, domain.PromptListOptions{Search: "STANDUP"})
	if err != nil {
		t.Fatalf("search prompts: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("search must be case-insensitive, got %d", len(matched))
	}

	total, err := repos.Prompts.Count(ctx, domain.PromptListOptions{Search: "standup"})
	if err != nil {
		t.Fatalf("count prompts: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected count 2, got %d", total)
	}
}

func TestVersionRepositoryActivate(t *testing.T) {
	repos := openTestRepositories(t, "repo_versions.db")
	ctx := context.Background()

	if err := repos.Prompts.Create(ctx, samplePrompt("p1", "Versioned")); err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	for i := 1; i <= 2; i++ {
		version := &domain.Version{
			ID:            fmt.Sprintf("ver-%d", i),
			PromptID:      "p1",
			VersionNumber: i,
			Content:       samplePrompt("", "").Content,
			Context:       "greeting",
			IsActive:      i == 1,
		}
		if err := repos.Versions.Create(ctx, version); err != nil {
			t.Fatalf("create version %d: %v", i, err)
		}
	}

	latest, err := repos.Versions.GetLatestVersionNumber(ctx, "p1")
	if err != nil {
		t.Fatalf("latest version number: %v", err)
	}
	if latest != 2 {
		t.Fatalf("expected latest 2, got %d", latest)
	}

	if err := repos.Versions.Activate(ctx, "p1", "ver-2"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	versions, err := repos.Versions.ListByPrompt(ctx, "p1", 0, 0)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	// 列表按版本号倒序
	if versions[0].VersionNumber != 2 || !versions[0].IsActive {
		t.Fatalf("ver-2 must lead and be active: %+v", versions[0])
	}
	if versions[1].IsActive {
		t.Fatal("only one version may be active")
	}

	prompt, err := repos.Prompts.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("get prompt: %v", err)
	}
	if prompt.ActiveVersionID == nil || *prompt.ActiveVersionID != "ver-2" {
		t.Fatalf("prompt must track active version, got %v", prompt.ActiveVersionID)
	}

	if err := repos.Versions.Activate(ctx, "p1", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("activating missing version must fail with ErrNotFound, got %v", err)
	}
	// 失败的激活不得留下半套状态
	versions, _ = repos.Versions.ListByPrompt(ctx, "p1", 0, 0)
	if !versions[0].IsActive {
		t.Fatal("failed activation must roll back the clear step")
	}
}

func TestVersionRepositoryUpdateDescription(t *testing.T) {
	repos := openTestRepositories(t, "repo_version_desc.db")
	ctx := context.Background()

	if err := repos.Prompts.Create(ctx, samplePrompt("p1", "Versioned")); err != nil {
		t.Fatalf("create prompt: %v", err)
	}
	version := &domain.Version{ID: "ver-1", PromptID: "p1", VersionNumber: 1, Context: "c"}
	if err := repos.Versions.Create(ctx, version); err != nil {
		t.Fatalf("create version: %v", err)
	}

	description := "baseline"
	notes := "first cut"
	if err := repos.Versions.UpdateDescription(ctx, "p1", "ver-1", &description, &notes); err != nil {
		t.Fatalf("update description: %v", err)
	}

	got, err := repos.Versions.GetByID(ctx, "ver-1")
	if err != nil {
		t.Fatalf("get version: %v", err)
	}
	if got.Description == nil || *got.Description != "baseline" || got.Notes == nil || *got.Notes != "first cut" {
		t.Fatalf("description/notes not persisted: %+v", got)
	}

	err = repos.Versions.UpdateDescription(ctx, "other-prompt", "ver-1", &description, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("prompt mismatch must report ErrNotFound, got %v", err)
	}
}
