package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/planner/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	svc, _ := testutil.TestService(t)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_tasks":
		result, err = srv.listTasks(ctx, req)
	case "add_task":
		result, err = srv.addTask(ctx, req)
	case "complete_task":
		result, err = srv.completeTask(ctx, req)
	case "list_activities":
		result, err = srv.listActivities(ctx, req)
	case "add_activity":
		result, err = srv.addActivity(ctx, req)
	case "list_goals":
		result, err = srv.listGoals(ctx, req)
	case "generate_schedule":
		result, err = srv.generateSchedule(ctx, req)
	case "analyze_workload":
		result, err = srv.analyzeWorkload(ctx, req)
	case "export_calendar":
		result, err = srv.exportCalendar(ctx, req)
	case "import_backup":
		result, err = srv.importBackup(ctx, req)
	case "get_planner_contract":
		result, err = srv.getContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestAddAndListTasks(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "add_task", map[string]any{"name": "Write report", "estimated_time": 90})
	if r.IsError {
		t.Fatalf("add_task: %s", resultText(r))
	}
	var created struct {
		ID       string `json:"id"`
		Priority int    `json:"priority"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Priority != 2 {
		t.Errorf("created = %+v, want id and medium priority", created)
	}

	r = callTool(t, srv, "list_tasks", map[string]any{})
	if !strings.Contains(resultText(r), "Write report") {
		t.Errorf("list_tasks = %q", resultText(r))
	}

	r = callTool(t, srv, "complete_task", map[string]any{"id": created.ID})
	if resultText(r) != "completed: Write report" {
		t.Errorf("complete_task = %q", resultText(r))
	}

	r = callTool(t, srv, "list_tasks", map[string]any{"pending": true})
	if strings.Contains(resultText(r), "Write report") {
		t.Errorf("pending list still has completed task: %q", resultText(r))
	}
}

func TestAddTaskMissingName(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "add_task", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing name")
	}
}

func TestCompleteTaskMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "complete_task", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for unknown task")
	}
}

func TestAddActivityBadTime(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "add_activity", map[string]any{
		"name":       "Gym",
		"start_time": "25:00",
		"duration":   60,
	})
	if !r.IsError {
		t.Error("expected error for invalid start time")
	}

	r = callTool(t, srv, "list_activities", map[string]any{})
	if strings.Contains(resultText(r), "Gym") {
		t.Error("invalid activity was stored")
	}
}

func TestGenerateSchedule(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "generate_schedule", map[string]any{})
	if !strings.Contains(resultText(r), "schedule is empty") {
		t.Errorf("empty schedule = %q", resultText(r))
	}

	_ = callTool(t, srv, "add_activity", map[string]any{
		"name":       "Standup",
		"start_time": "09:00",
		"duration":   30,
	})
	_ = callTool(t, srv, "add_task", map[string]any{"name": "Review PR", "estimated_time": 45})
	_ = callTool(t, srv, "add_task", map[string]any{"name": "Plan sprint"})

	r = callTool(t, srv, "generate_schedule", map[string]any{})
	text := resultText(r)
	if !strings.Contains(text, "08:00-08:45") || !strings.Contains(text, "Review PR") {
		t.Errorf("schedule missing task block: %q", text)
	}
	if !strings.Contains(text, "09:00-09:30") {
		t.Errorf("schedule missing activity block: %q", text)
	}
	if !strings.Contains(text, "1 task(s) not scheduled") {
		t.Errorf("schedule missing backlog note: %q", text)
	}
}

func TestAnalyzeWorkload(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "add_task", map[string]any{"name": "Email", "estimated_time": 30})
	_ = callTool(t, srv, "add_task", map[string]any{"name": "email", "estimated_time": 30})

	r := callTool(t, srv, "analyze_workload", map[string]any{})
	var rep workloadReport
	if err := json.Unmarshal([]byte(resultText(r)), &rep); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if rep.TaskMinutes != 60 || rep.AvailableMinutes != 1440 {
		t.Errorf("workload = %d/%d, want 60/1440", rep.TaskMinutes, rep.AvailableMinutes)
	}
	if rep.Duplicates != 1 || len(rep.Insights) != 1 {
		t.Errorf("duplicates = %d, insights = %d", rep.Duplicates, len(rep.Insights))
	}
}

func TestExportCalendar(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "export_calendar", map[string]any{})
	if !r.IsError {
		t.Error("expected error for empty schedule")
	}

	r = callTool(t, srv, "export_calendar", map[string]any{"date": "14/03/2025"})
	if !r.IsError {
		t.Error("expected error for malformed date")
	}

	_ = callTool(t, srv, "add_activity", map[string]any{
		"name":       "Standup",
		"start_time": "09:00",
		"duration":   30,
	})
	_ = callTool(t, srv, "generate_schedule", map[string]any{})

	r = callTool(t, srv, "export_calendar", map[string]any{})
	text := resultText(r)
	if r.IsError || !strings.HasPrefix(text, "BEGIN:VCALENDAR") {
		t.Errorf("export = %q", text)
	}
	if !strings.Contains(text, "SUMMARY:Standup") {
		t.Errorf("export missing event: %q", text)
	}
}

func TestImportBackupInline(t *testing.T) {
	srv := testServer(t)
	doc := `{"tasks":[{"id":"t1","name":"Imported","priority":3}]}`

	r := callTool(t, srv, "import_backup", map[string]any{"source": doc})
	if r.IsError {
		t.Fatalf("import: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"tasks"`) {
		t.Errorf("report = %q", resultText(r))
	}

	r = callTool(t, srv, "list_tasks", map[string]any{})
	if !strings.Contains(resultText(r), "Imported") {
		t.Errorf("list_tasks = %q", resultText(r))
	}
}

func TestImportBackupDataURI(t *testing.T) {
	srv := testServer(t)
	doc := `{"dailyActivities":[{"id":1,"name":"Lunch","startTime":"12:00","duration":60}]}`
	uri := "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(doc))

	r := callTool(t, srv, "import_backup", map[string]any{"source": uri})
	if r.IsError {
		t.Fatalf("import: %s", resultText(r))
	}
	r = callTool(t, srv, "list_activities", map[string]any{})
	if !strings.Contains(resultText(r), "Lunch") {
		t.Errorf("list_activities = %q", resultText(r))
	}
}

func TestImportBackupRejectsSources(t *testing.T) {
	srv := testServer(t)
	cases := map[string]string{
		"loopback":  "http://127.0.0.1:8080/backup.json",
		"metadata":  "http://169.254.169.254/latest",
		"scheme":    "ftp://example.com/backup.json",
		"mime":      "data:image/png;base64,AAAA",
		"plain uri": "data:application/json,{}",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			r := callTool(t, srv, "import_backup", map[string]any{"source": src})
			if !r.IsError {
				t.Errorf("expected error for %s", src)
			}
		})
	}
}

func TestContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_planner_contract", map[string]any{})
	if !strings.Contains(resultText(r), "Scheduling rules") {
		t.Error("contract text missing scheduling rules")
	}

	res, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := res[0].(mcp.TextResourceContents)
	if !ok || tc.URI != ContractURI || tc.Text != DataFormatContract {
		t.Errorf("resource = %+v", res[0])
	}
}
