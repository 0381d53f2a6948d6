package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
	"github.com/fyrsmithlabs/crewd/internal/llm"
)

func testDef(name string) Definition {
	def, ok := DefaultRegistry().Get(name)
	if !ok {
		panic("unknown worker " + name)
	}
	return def
}

func TestLLMWorker_CoderWritesCodeArtifact(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"files": [{"path": "app.tsx", "content": "export"}], "summary": "done"}`}}
	w := NewLLMWorker(testDef("coder"), fake, nil)

	store := artifact.NewStore()
	_, err := store.Write(artifact.KindPlan, "plan.md", "the plan", "planner")
	require.NoError(t, err)

	res, err := w.Invoke(context.Background(), Invocation{
		Instruction: "build the login page",
		Artifacts:   store,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Write)
	assert.Equal(t, artifact.KindCode, res.Write.Kind)
	assert.Equal(t, "code.tsx", res.Write.Path)
	assert.Empty(t, res.NextWorker)

	sent := fake.Requests[0]
	assert.Contains(t, sent.Prompt, "the plan")
	assert.Contains(t, sent.Prompt, "build the login page")
	assert.Equal(t, "claude-opus-4-5-20251101", sent.Model)
}

func TestLLMWorker_PlannerKeepsFloorUntilComplete(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{
		`{"phase": "understanding", "question": "web or mobile?"}`,
		`{"phase": "complete", "design": {"goal": "g"}}`,
	}}
	w := NewLLMWorker(testDef("planner"), fake, nil)
	store := artifact.NewStore()

	res, err := w.Invoke(context.Background(), Invocation{Instruction: "build something", Artifacts: store})
	require.NoError(t, err)
	assert.Equal(t, "planner", res.NextWorker)
	require.NotNil(t, res.Write)
	assert.Equal(t, artifact.KindPlan, res.Write.Kind)

	res, err = w.Invoke(context.Background(), Invocation{Instruction: "web", Artifacts: store})
	require.NoError(t, err)
	assert.Empty(t, res.NextWorker)
}

func TestLLMWorker_ReviewerParsesVerdict(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"verdict": "fail", "issues": ["missing null check"], "suggestions": ["guard input"], "summary": "needs work"}`}}
	w := NewLLMWorker(testDef("reviewer"), fake, nil)
	store := artifact.NewStore()
	_, err := store.Write(artifact.KindCode, "code.tsx", "const x = 1", "coder")
	require.NoError(t, err)

	res, err := w.Invoke(context.Background(), Invocation{Instruction: "review the code", Artifacts: store})
	require.NoError(t, err)
	require.NotNil(t, res.Quality)
	assert.Equal(t, "reviewer", res.Quality.Checker)
	assert.False(t, res.Quality.Passed)
	assert.Equal(t, []string{"missing null check"}, res.Quality.Issues)
	require.NotNil(t, res.Write)
	assert.Equal(t, artifact.KindReview, res.Write.Kind)
}

func TestLLMWorker_VerdictFallbackOnProse(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"Looks fine overall, no blocking issues."}}
	w := NewLLMWorker(testDef("ux"), fake, nil)

	res, err := w.Invoke(context.Background(), Invocation{Instruction: "review", Artifacts: artifact.NewStore()})
	require.NoError(t, err)
	require.NotNil(t, res.Quality)
	assert.False(t, res.Quality.Passed)
}

func TestLLMWorker_ModifyDirectiveShowsTargets(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"files": [], "summary": "changed"}`}}
	w := NewLLMWorker(testDef("coder"), fake, nil)
	store := artifact.NewStore()
	_, err := store.Write(artifact.KindCode, "code.tsx", "const header = 'old'", "coder")
	require.NoError(t, err)

	_, err = w.Invoke(context.Background(), Invocation{
		Directive: &Directive{
			Type:        DirectiveModify,
			Instruction: "change the header color",
			TargetPaths: []string{"code.tsx"},
		},
		Artifacts: store,
	})
	require.NoError(t, err)

	prompt := fake.Requests[0].Prompt
	assert.Contains(t, prompt, "change the header color")
	assert.Contains(t, prompt, "const header = 'old'")
	assert.Contains(t, prompt, "Keep the existing code structure")
}

func TestLLMWorker_AppendDirectiveUsesAppendRules(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"ok"}}
	w := NewLLMWorker(testDef("coder"), fake, nil)
	store := artifact.NewStore()
	_, err := store.Write(artifact.KindCode, "code.tsx", "existing", "coder")
	require.NoError(t, err)

	_, err = w.Invoke(context.Background(), Invocation{
		Directive: &Directive{Type: DirectiveAppend, Instruction: "add dark mode", TargetPaths: []string{"code.tsx"}},
		Artifacts: store,
	})
	require.NoError(t, err)
	assert.Contains(t, fake.Requests[0].Prompt, "Keep the existing code unchanged and add to it")
}

func TestLLMWorker_RefineFeedbackIncludesCurrentContent(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"refined"}}
	w := NewLLMWorker(testDef("coder"), fake, nil)
	store := artifact.NewStore()
	_, err := store.Write(artifact.KindCode, "code.tsx", "v1 content", "coder")
	require.NoError(t, err)

	_, err = w.Invoke(context.Background(), Invocation{Feedback: "fix the null check", Artifacts: store})
	require.NoError(t, err)
	prompt := fake.Requests[0].Prompt
	assert.Contains(t, prompt, "fix the null check")
	assert.Contains(t, prompt, "v1 content")
}

func TestLLMWorker_ClientErrorPropagates(t *testing.T) {
	fake := &llm.FakeClient{Err: errors.New("rate limited")}
	w := NewLLMWorker(testDef("coder"), fake, nil)

	_, err := w.Invoke(context.Background(), Invocation{Instruction: "go", Artifacts: artifact.NewStore()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker coder")
}

type fakeToolCaller struct {
	calls []string
	fail  map[string]error
	reply string
}

func (f *fakeToolCaller) CallTool(_ context.Context, name string, _ map[string]any) (string, error) {
	f.calls = append(f.calls, name)
	if err := f.fail[name]; err != nil {
		return "", err
	}
	return f.reply, nil
}

func TestToolWorker_ExecutesRequestedTools(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"tool_calls": [{"name": "execute_sql", "arguments": {"query": "select 1"}}, {"name": "apply_migration", "arguments": {}}], "summary": "setting up schema"}`}}
	tools := &fakeToolCaller{reply: "done", fail: map[string]error{"apply_migration": errors.New("permission denied")}}
	w := NewToolWorker(testDef("dataeng"), fake, tools, nil)

	res, err := w.Invoke(context.Background(), Invocation{Instruction: "create the users table", Artifacts: artifact.NewStore()})
	require.NoError(t, err)
	assert.Equal(t, []string{"execute_sql", "apply_migration"}, tools.calls)
	assert.Contains(t, res.Message, "ok execute_sql")
	assert.Contains(t, res.Message, "error apply_migration")
}

func TestToolWorker_NoCallerWarnsInMessage(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"tool_calls": [{"name": "execute_sql", "arguments": {}}]}`}}
	w := NewToolWorker(testDef("dataeng"), fake, nil, nil)

	res, err := w.Invoke(context.Background(), Invocation{Instruction: "create table", Artifacts: artifact.NewStore()})
	require.NoError(t, err)
	assert.Contains(t, res.Message, "No database connection is configured")
}

func TestToolWorker_PlainAnswerPassesThrough(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"action": "answered", "summary": "schema already exists"}`}}
	tools := &fakeToolCaller{}
	w := NewToolWorker(testDef("dataeng"), fake, tools, nil)

	res, err := w.Invoke(context.Background(), Invocation{Instruction: "check schema", Artifacts: artifact.NewStore()})
	require.NoError(t, err)
	assert.Empty(t, tools.calls)
	assert.Contains(t, res.Message, "schema already exists")
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()

	assert.Equal(t, []string{"planner", "coder", "reviewer", "tester", "ux", "security", "dataeng"}, reg.Names())
	assert.True(t, reg.Has("coder"))
	assert.False(t, reg.Has("wizard"))

	reviewers := reg.ByCapability(CapReviewing)
	require.Len(t, reviewers, 2)
	assert.Equal(t, "reviewer", reviewers[0].Name)
	assert.Equal(t, "security", reviewers[1].Name)

	desc := reg.Describe()
	for _, name := range reg.Names() {
		assert.True(t, strings.Contains(desc, "## "+name), "catalogue missing %s", name)
	}

	_, err := NewRegistry(Definition{Name: "a"}, Definition{Name: "a"})
	assert.Error(t, err)
	_, err = NewRegistry(Definition{})
	assert.Error(t, err)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	out := truncate(strings.Repeat("한", 300), 200)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 203, len([]rune(out))) // 200 characters plus the ellipsis

	assert.Equal(t, "short", truncate("short", 200))
}

func TestBuildRoster(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"ok"}}
	roster := BuildRoster(DefaultRegistry(), fake, &fakeToolCaller{}, nil)

	require.Len(t, roster, 7)
	for name, w := range roster {
		assert.Equal(t, name, w.Name())
	}
}
