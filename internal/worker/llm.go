package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
	"github.com/fyrsmithlabs/crewd/internal/llm"
	"github.com/fyrsmithlabs/crewd/internal/plan"
	"github.com/fyrsmithlabs/crewd/internal/quality"
)

// LLMWorker executes invocations by prompting the model named in its
// definition. The same implementation serves the whole roster; behavior
// differences (artifact kind, verdict parsing, tool use) key off the
// worker name.
type LLMWorker struct {
	def    Definition
	client llm.Client
	tools  ToolCaller
	logger *zap.Logger
}

// NewLLMWorker builds a worker for the given definition.
func NewLLMWorker(def Definition, client llm.Client, logger *zap.Logger) *LLMWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMWorker{def: def, client: client, logger: logger.With(zap.String("worker", def.Name))}
}

// NewToolWorker builds a worker that may execute MCP tool calls requested
// by the model. Used for dataeng.
func NewToolWorker(def Definition, client llm.Client, tools ToolCaller, logger *zap.Logger) *LLMWorker {
	w := NewLLMWorker(def, client, logger)
	w.tools = tools
	return w
}

// BuildRoster instantiates one worker per registry entry. The tool caller,
// when non-nil, is attached to dataeng only.
func BuildRoster(reg *Registry, client llm.Client, tools ToolCaller, logger *zap.Logger) map[string]Worker {
	roster := make(map[string]Worker)
	for _, name := range reg.Names() {
		def, _ := reg.Get(name)
		if name == "dataeng" {
			roster[name] = NewToolWorker(def, client, tools, logger)
			continue
		}
		roster[name] = NewLLMWorker(def, client, logger)
	}
	return roster
}

func (w *LLMWorker) Name() string { return w.def.Name }

func (w *LLMWorker) Invoke(ctx context.Context, inv Invocation) (*Result, error) {
	prompt := w.buildPrompt(inv)

	out, err := w.client.Generate(ctx, llm.Request{
		Model:       w.def.Model,
		System:      systemPromptFor(w.def.Name),
		Prompt:      prompt,
		Temperature: w.def.Temperature,
		MaxTokens:   w.def.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("worker %s: %w", w.def.Name, err)
	}

	w.logger.Debug("worker responded", zap.Int("chars", len(out)))

	res := &Result{Message: out}
	switch w.def.Name {
	case "planner":
		res.Write = &ArtifactWrite{Kind: artifact.KindPlan, Path: "plan.md", Content: out}
		if !planPhaseComplete(out) {
			// The planner keeps the floor while it is still asking
			// clarifying questions.
			res.NextWorker = w.def.Name
		}
	case "coder":
		res.Write = &ArtifactWrite{Kind: artifact.KindCode, Path: "code.tsx", Content: out}
	case "reviewer":
		res.Write = &ArtifactWrite{Kind: artifact.KindReview, Path: "review.md", Content: out}
		res.Quality = parseVerdict(w.def.Name, out)
	case "tester":
		res.Write = &ArtifactWrite{Kind: artifact.KindTest, Path: "test.ts", Content: out}
	case "ux", "security":
		res.Quality = parseVerdict(w.def.Name, out)
	case "dataeng":
		res.Message = w.runTools(ctx, out)
	}
	return res, nil
}

func (w *LLMWorker) buildPrompt(inv Invocation) string {
	if inv.Directive != nil {
		return w.directivePrompt(inv)
	}
	if inv.Feedback != "" {
		return w.refinePrompt(inv)
	}

	var b strings.Builder
	switch w.def.Name {
	case "planner":
		if prev, ok := inv.Artifacts.Latest(artifact.KindPlan); ok {
			fmt.Fprintf(&b, "## Previous plan\n%s\n\n", prev.Content)
		}
		fmt.Fprintf(&b, "Write a plan for the following request:\n\n%s", inv.Instruction)
	case "coder":
		planContent := "no plan available"
		if p, ok := inv.Artifacts.Latest(artifact.KindPlan); ok {
			planContent = p.Content
		}
		fmt.Fprintf(&b, "## Plan\n%s\n\n## Instruction\n%s\n\nImplement the code accordingly.", planContent, inv.Instruction)
	case "reviewer", "tester":
		code := "no code available"
		if c, ok := inv.Artifacts.Latest(artifact.KindCode); ok {
			code = c.Content
		}
		fmt.Fprintf(&b, "%s\n\n%s", inv.Instruction, code)
	case "security":
		code := "no code to audit"
		if c, ok := inv.Artifacts.Latest(artifact.KindCode); ok {
			code = truncate(c.Content, 4000)
		}
		fmt.Fprintf(&b, "Audit the following code:\n\n%s", code)
	case "ux":
		fmt.Fprintf(&b, "Review the current deliverables: %s", strings.Join(inv.Artifacts.Paths(), ", "))
	default:
		b.WriteString(inv.Instruction)
	}

	if len(inv.Transcript) > 0 {
		b.WriteString("\n\n## Recent conversation\n")
		for _, line := range inv.Transcript {
			fmt.Fprintf(&b, "- %s\n", truncate(line, 200))
		}
	}
	return b.String()
}

// directivePrompt renders a modify or append request against the targeted
// artifacts. The existing content is always shown so the model preserves it.
func (w *LLMWorker) directivePrompt(inv Invocation) string {
	var sections []string
	for _, path := range inv.Directive.TargetPaths {
		if a, ok := inv.Artifacts.Get(path); ok {
			sections = append(sections, fmt.Sprintf("### %s\n```\n%s\n```", path, a.Content))
		}
	}
	targets := "no target files found"
	if len(sections) > 0 {
		targets = strings.Join(sections, "\n\n")
	}

	instruction := inv.Directive.Instruction
	if inv.Directive.OriginalGoal != "" {
		instruction = fmt.Sprintf("%s\n\nOverall goal: %s", instruction, inv.Directive.OriginalGoal)
	}
	if inv.Directive.Type == DirectiveAppend {
		return fmt.Sprintf(appendPromptTemplate, instruction, targets)
	}
	return fmt.Sprintf(modifyPromptTemplate, instruction, targets)
}

func (w *LLMWorker) refinePrompt(inv Invocation) string {
	current := "no prior content"
	if wr := defaultWrite(w.def.Name); wr != nil {
		if a, ok := inv.Artifacts.Get(wr.Path); ok {
			current = a.Content
		}
	}
	return fmt.Sprintf(refinePromptTemplate, inv.Feedback, current)
}

// runTools extracts tool call requests from the model output, executes
// them, and folds the outcomes into the message. Tool failures are
// reported inline, never escalated.
func (w *LLMWorker) runTools(ctx context.Context, out string) string {
	var req struct {
		ToolCalls []struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		} `json:"tool_calls"`
	}
	if err := plan.ExtractJSON(out, &req); err != nil || len(req.ToolCalls) == 0 {
		return out
	}
	if w.tools == nil {
		w.logger.Warn("tool calls requested but no tool caller configured")
		return out + "\n\nNo database connection is configured; the requested operations were not executed."
	}

	lines := []string{"Database task results:"}
	for _, call := range req.ToolCalls {
		result, err := w.tools.CallTool(ctx, call.Name, call.Arguments)
		if err != nil {
			w.logger.Warn("tool call failed", zap.String("tool", call.Name), zap.Error(err))
			lines = append(lines, fmt.Sprintf("error %s: %v", call.Name, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("ok %s: %s", call.Name, truncate(result, 200)))
	}
	return strings.Join(lines, "\n")
}

func systemPromptFor(name string) string {
	switch name {
	case "planner":
		return plannerSystemPrompt
	case "coder":
		return coderSystemPrompt
	case "reviewer":
		return reviewerSystemPrompt
	case "tester":
		return testerSystemPrompt
	case "ux":
		return uxSystemPrompt
	case "security":
		return securitySystemPrompt
	case "dataeng":
		return dataengSystemPrompt
	}
	return "You are a helpful software engineering assistant."
}

func defaultWrite(name string) *ArtifactWrite {
	switch name {
	case "planner":
		return &ArtifactWrite{Kind: artifact.KindPlan, Path: "plan.md"}
	case "coder":
		return &ArtifactWrite{Kind: artifact.KindCode, Path: "code.tsx"}
	case "reviewer":
		return &ArtifactWrite{Kind: artifact.KindReview, Path: "review.md"}
	case "tester":
		return &ArtifactWrite{Kind: artifact.KindTest, Path: "test.ts"}
	}
	return nil
}

func planPhaseComplete(out string) bool {
	return strings.Contains(out, `"phase": "complete"`) || strings.Contains(out, `"phase":"complete"`)
}

// parseVerdict reads a checking worker's JSON verdict. Unparseable output
// falls back to a substring check so a clearly passing review is not
// misfiled as a failure.
func parseVerdict(checker, out string) *quality.Check {
	var v struct {
		Verdict     string   `json:"verdict"`
		Issues      []string `json:"issues"`
		Suggestions []string `json:"suggestions"`
	}
	check := &quality.Check{Checker: checker, CheckedAt: time.Now()}
	if err := plan.ExtractJSON(out, &v); err == nil && v.Verdict != "" {
		check.Passed = v.Verdict == "pass"
		check.Issues = v.Issues
		check.Suggestions = v.Suggestions
		return check
	}
	check.Passed = strings.Contains(out, `"verdict": "pass"`)
	return check
}

// truncate clips s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
