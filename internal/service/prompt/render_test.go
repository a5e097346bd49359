package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/resolve"
)

func standupReader() *stubReader {
	return &stubReader{records: map[domain.EntityCategory][]domain.Record{
		domain.CategoryTask: {
			{"title": "Fix bug", "status": "DONE", "priority": "HIGH"},
			{"title": "Write docs", "status": "DONE", "priority": "MEDIUM"},
			{"title": "Ship release", "status": "TODO", "priority": "HIGH"},
		},
	}}
}

func createStandupPrompt(t *testing.T, svc *Service) *domain.Prompt {
	t.Helper()
	created, err := svc.CreatePrompt(context.Background(), CreatePromptInput{
		Title:   "Standup",
		Context: "You summarize project progress.",
		Content: []domain.ContentBlock{
			textBlock(0, "Done this week: "),
			variableBlock(1, "v-done"),
			textBlock(2, "\nHigh priority:\n"),
			variableBlock(3, "v-high"),
		},
		Variables: []domain.PromptVariable{
			{ID: "v-done", Name: "done_count", Source: &domain.VariableSource{
				Category:    domain.CategoryTask,
				Filters:     []domain.FilterExpr{{Field: "status", Operator: domain.OpEQ, Value: "DONE"}},
				Aggregation: domain.AggCount,
			}},
			{ID: "v-high", Name: "high_tasks", Source: &domain.VariableSource{
				Category:    domain.CategoryTask,
				Filters:     []domain.FilterExpr{{Field: "priority", Operator: domain.OpEQ, Value: "HIGH"}},
				Aggregation: domain.AggListTitles,
				Format:      domain.FormatBulletPoints,
			}},
		},
	})
	if err != nil {
		t.Fatalf("create standup prompt: %v", err)
	}
	return created
}

func TestRenderPrompt(t *testing.T) {
	svc := newTestService(t, standupReader())
	prompt := createStandupPrompt(t, svc)

	scope := domain.Scope{ProjectID: "proj-1"}
	result, err := svc.RenderPrompt(context.Background(), prompt.ID, scope)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := "Done this week: 2\nHigh priority:\n- Fix bug\n- Ship release"
	if result.Body != want {
		t.Fatalf("unexpected body:\n%q\nwant:\n%q", result.Body, want)
	}
	if result.Context != "You summarize project progress." {
		t.Fatalf("unexpected context: %q", result.Context)
	}
	if len(result.Variables) != 2 {
		t.Fatalf("expected 2 variable outcomes, got %d", len(result.Variables))
	}

	// 渲染应当是幂等的
	again, err := svc.RenderPrompt(context.Background(), prompt.ID, scope)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if again.Body != result.Body {
		t.Fatalf("render must be idempotent: %q vs %q", again.Body, result.Body)
	}
}

func TestRenderPromptIsolatesVariableFailure(t *testing.T) {
	svc := newTestService(t, standupReader())

	created, err := svc.CreatePrompt(context.Background(), CreatePromptInput{
		Title: "Partial",
		Content: []domain.ContentBlock{
			variableBlock(0, "v-done"),
			textBlock(1, " / "),
			variableBlock(2, "v-user"),
		},
		Variables: []domain.PromptVariable{
			{ID: "v-done", Name: "done_count", Source: &domain.VariableSource{
				Category:    domain.CategoryTask,
				Aggregation: domain.AggCount,
			}},
			// 没有当前用户时 USER 变量解析失败
			{ID: "v-user", Name: "me", Source: &domain.VariableSource{
				Category: domain.CategoryUser,
				Field:    "name",
			}},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := svc.RenderPrompt(context.Background(), created.ID, domain.Scope{ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Body != "3 / {{me}}" {
		t.Fatalf("failed variable must keep placeholder, got %q", result.Body)
	}
}

func TestRenderPromptRequiresScope(t *testing.T) {
	svc := newTestService(t, standupReader())
	prompt := createStandupPrompt(t, svc)

	// 范围完全缺失时应同步报错，而不是输出整版占位符
	_, err := svc.RenderPrompt(context.Background(), prompt.ID, domain.Scope{})
	if !errors.Is(err, resolve.ErrScopeRequired) {
		t.Fatalf("expected ErrScopeRequired, got %v", err)
	}
}

func TestRenderPromptWithoutScopedSources(t *testing.T) {
	svc := newTestService(t, standupReader())

	created, err := svc.CreatePrompt(context.Background(), CreatePromptInput{
		Title: "Daily",
		Content: []domain.ContentBlock{
			textBlock(0, "Today is "),
			variableBlock(1, "v-today"),
		},
		Variables: []domain.PromptVariable{
			{ID: "v-today", Name: "today", Source: &domain.VariableSource{
				Category: domain.CategoryDateFunction,
				Field:    "today",
			}},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 日期函数不依赖工作区记录，空范围也能渲染
	result, err := svc.RenderPrompt(context.Background(), created.ID, domain.Scope{})
	if err != nil {
		t.Fatalf("render without scope: %v", err)
	}
	if !strings.HasPrefix(result.Body, "Today is ") || strings.Contains(result.Body, "{{") {
		t.Fatalf("date variable must resolve without scope, got %q", result.Body)
	}
}

func TestRenderVersionUsesSnapshotContent(t *testing.T) {
	svc := newTestService(t, standupReader())
	ctx := context.Background()
	prompt := createStandupPrompt(t, svc)

	version, err := svc.Snapshot(ctx, prompt.ID, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// 编辑槽位变更不影响版本渲染
	if _, err := svc.UpdateActiveSlot(ctx, prompt.ID, domain.ActiveSlot{
		Content: []domain.ContentBlock{textBlock(0, "replaced")},
	}); err != nil {
		t.Fatalf("update slot: %v", err)
	}

	result, err := svc.RenderVersion(ctx, prompt.ID, version.ID, domain.Scope{ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("render version: %v", err)
	}
	if !strings.HasPrefix(result.Body, "Done this week: 2") {
		t.Fatalf("version render must use snapshot content, got %q", result.Body)
	}
	if result.VersionID == nil || *result.VersionID != version.ID {
		t.Fatalf("expected version id in result, got %+v", result.VersionID)
	}
}

func TestPreviewPrompt(t *testing.T) {
	svc := newTestService(t, standupReader())
	prompt := createStandupPrompt(t, svc)

	body, err := svc.PreviewPrompt(context.Background(), prompt.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	want := "Done this week: {{done_count}}\nHigh priority:\n{{high_tasks}}"
	if body != want {
		t.Fatalf("unexpected preview:\n%q\nwant:\n%q", body, want)
	}
}
