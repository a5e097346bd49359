package prompt

import (
	"context"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/render"
)

// DiffSegment 表示正文差异中的一段。
type DiffSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// VariableChange 描述两个版本之间某个变量的增删改。
type VariableChange struct {
	Placeholder string `json:"placeholder"`
	Type        string `json:"type"`
}

// VersionSummary 是差异结果中的版本摘要。
type VersionSummary struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"version_number"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// VersionDiff 汇总两个版本之间的正文与变量差异。
type VersionDiff struct {
	PromptID  string           `json:"prompt_id"`
	Base      VersionSummary   `json:"base"`
	Target    VersionSummary   `json:"target"`
	Body      []DiffSegment    `json:"body"`
	Variables []VariableChange `json:"variables,omitempty"`
}

// DiffVersions 对比两个版本。正文以占位符形态对比，
// 避免把实时数据差异误报为模板差异。
func (s *Service) DiffVersions(ctx context.Context, promptID, baseVersionID, targetVersionID string) (*VersionDiff, error) {
	base, err := s.ownedVersion(ctx, promptID, baseVersionID)
	if err != nil {
		return nil, err
	}
	target, err := s.ownedVersion(ctx, promptID, targetVersionID)
	if err != nil {
		return nil, err
	}

	baseBody := render.Preview(base.Content, base.Variables)
	targetBody := render.Preview(target.Content, target.Variables)

	return &VersionDiff{
		PromptID:  promptID,
		Base:      summarizeVersion(base),
		Target:    summarizeVersion(target),
		Body:      buildBodyDiff(baseBody, targetBody),
		Variables: buildVariableDiff(base.Variables, target.Variables),
	}, nil
}

func summarizeVersion(version *domain.Version) VersionSummary {
	return VersionSummary{
		ID:            version.ID,
		VersionNumber: version.VersionNumber,
		IsActive:      version.IsActive,
		CreatedAt:     version.CreatedAt,
	}
}

func buildBodyDiff(from, to string) []DiffSegment {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, false)
	dmp.DiffCleanupSemantic(diffs)

	segments := make([]DiffSegment, 0, len(diffs))
	for _, diff := range diffs {
		segment := DiffSegment{Text: diff.Text}
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			segment.Type = "insert"
		case diffmatchpatch.DiffDelete:
			segment.Type = "delete"
		default:
			segment.Type = "equal"
		}
		segments = append(segments, segment)
	}
	return segments
}

func buildVariableDiff(from, to []domain.PromptVariable) []VariableChange {
	fromSet := variableSet(from)
	toSet := variableSet(to)

	var changes []VariableChange
	for placeholder, source := range toSet {
		base, exists := fromSet[placeholder]
		switch {
		case !exists:
			changes = append(changes, VariableChange{Placeholder: placeholder, Type: "added"})
		case source != base:
			changes = append(changes, VariableChange{Placeholder: placeholder, Type: "changed"})
		}
	}
	for placeholder := range fromSet {
		if _, exists := toSet[placeholder]; !exists {
			changes = append(changes, VariableChange{Placeholder: placeholder, Type: "removed"})
		}
	}
	return changes
}

// variableSet 以占位符为键，把变量源折叠为可比较的指纹。
func variableSet(variables []domain.PromptVariable) map[string]string {
	set := make(map[string]string, len(variables))
	for _, variable := range variables {
		fingerprint := string(variable.ValueType)
		if variable.Source != nil {
			fingerprint += "|" + string(variable.Source.Category) + "|" + variable.Source.Field + "|" + string(variable.Source.Aggregation) + "|" + string(variable.Source.Format)
		}
		set[variable.Placeholder] = fingerprint
	}
	return set
}
