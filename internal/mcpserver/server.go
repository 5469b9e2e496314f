// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes planner tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/planner/internal/clock"
	"github.com/starford/planner/internal/insight"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/planservice"
	"github.com/starford/planner/internal/schedule"
)

// ContractURI is the resource holding the data format contract.
const ContractURI = "planner://data-format"

// Server wraps the MCP server with planner tools.
type Server struct {
	mcp *server.MCPServer
	svc *planservice.Service
}

// New creates a new MCP server with all planner tools registered.
func New(svc *planservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Planner",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks as JSON."),
		mcp.WithBoolean("pending", mcp.Description("Only tasks that are not completed")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a task to the backlog. Read the data format via "+
			"get_planner_contract first."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Task name")),
		mcp.WithNumber("priority", mcp.Description("1 low, 2 medium (default), 3 high")),
		mcp.WithNumber("estimated_time", mcp.Description("Estimated minutes (default 60)")),
		mcp.WithString("category", mcp.Description("Free-form category; \"meeting\" counts toward meeting density")),
		mcp.WithString("scheduled_date", mcp.Description("Optional YYYY-MM-DD")),
		mcp.WithString("goal_id", mcp.Description("Optional id of the goal this task serves")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task completed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
	), s.completeTask)

	s.mcp.AddTool(mcp.NewTool("list_activities",
		mcp.WithDescription("List the fixed daily activities as JSON."),
	), s.listActivities)

	s.mcp.AddTool(mcp.NewTool("add_activity",
		mcp.WithDescription("Add a fixed daily activity."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Activity name")),
		mcp.WithString("start_time", mcp.Required(), mcp.Description("Start time, HH:MM (24h)")),
		mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in minutes")),
	), s.addActivity)

	s.mcp.AddTool(mcp.NewTool("list_goals",
		mcp.WithDescription("List goals as JSON."),
	), s.listGoals)

	s.mcp.AddTool(mcp.NewTool("generate_schedule",
		mcp.WithDescription("Synthesize today's schedule from the activities and the task backlog."),
	), s.generateSchedule)

	s.mcp.AddTool(mcp.NewTool("analyze_workload",
		mcp.WithDescription("Run the rule-based workload analysis and report task minutes versus free minutes."),
	), s.analyzeWorkload)

	s.mcp.AddTool(mcp.NewTool("export_calendar",
		mcp.WithDescription("Export the schedule as an iCalendar document."),
		mcp.WithString("date", mcp.Description("Calendar date, YYYY-MM-DD (default today)")),
		mcp.WithBoolean("week", mcp.Description("Plan and export seven days instead of the cached schedule")),
	), s.exportCalendar)

	s.mcp.AddTool(mcp.NewTool("import_backup",
		mcp.WithDescription("Merge a backup document into the planner. Collections present in "+
			"the document replace the stored ones."),
		mcp.WithString("source", mcp.Required(), mcp.Description("The JSON document itself, a "+
			"data:application/json;base64 URI, or an http(s) URL")),
	), s.importBackup)

	s.mcp.AddTool(mcp.NewTool("get_planner_contract",
		mcp.WithDescription("Returns the planner data format contract. "+
			"Call this before adding tasks or activities."),
	), s.getContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Planner Data Format",
			mcp.WithResourceDescription("Field formats and scheduling rules of the planner."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks := s.svc.ListTasks(ctx)
	if req.GetBool("pending", false) {
		open := tasks[:0]
		for _, t := range tasks {
			if !t.Completed {
				open = append(open, t)
			}
		}
		tasks = open
	}
	return jsonResult(tasks), nil
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.svc.CreateTask(ctx, models.Task{
		Name:          name,
		Priority:      models.Priority(req.GetInt("priority", 0)),
		EstimatedTime: req.GetInt("estimated_time", 0),
		Category:      req.GetString("category", ""),
		ScheduledDate: req.GetString("scheduled_date", ""),
		GoalID:        models.ID(req.GetString("goal_id", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t), nil
}

func (s *Server) completeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.svc.CompleteTask(ctx, models.ID(id), true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("task %s: %v", id, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("completed: %s", t.Name)), nil
}

func (s *Server) listActivities(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListActivities(ctx)), nil
}

func (s *Server) addActivity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("start_time")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := clock.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dur, err := req.RequireInt("duration")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.svc.CreateActivity(ctx, models.Activity{Name: name, StartTime: start, Duration: dur})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a), nil
}

func (s *Server) listGoals(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListGoals(ctx)), nil
}

func (s *Server) generateSchedule(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.svc.GenerateSchedule(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(view.Entries) == 0 {
		return mcp.NewToolResultText("schedule is empty: add daily activities first"), nil
	}
	var b strings.Builder
	for _, e := range view.Entries {
		fmt.Fprintf(&b, "%s-%s  %-8s %s\n", e.StartTime, e.End(), e.Kind, e.Item.Name)
	}
	if n := len(view.Unscheduled); n > 0 {
		fmt.Fprintf(&b, "\n%d task(s) not scheduled\n", n)
	}
	return mcp.NewToolResultText(b.String()), nil
}

type workloadReport struct {
	TaskMinutes      int              `json:"taskMinutes"`
	AvailableMinutes int              `json:"availableMinutes"`
	Duplicates       int              `json:"duplicates"`
	Insights         []models.Insight `json:"insights"`
}

func (s *Server) analyzeWorkload(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.svc.AnalyzeInsights(ctx, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap := s.svc.Snapshot()
	taskMin, avail := insight.Workload(snap)
	return jsonResult(workloadReport{
		TaskMinutes:      taskMin,
		AvailableMinutes: avail,
		Duplicates:       insight.DuplicateCount(snap.Tasks),
		Insights:         out.Insights,
	}), nil
}

func (s *Server) exportCalendar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := s.svc.Now()
	if v := req.GetString("date", ""); v != "" {
		d, err := time.ParseInLocation(schedule.DateLayout, v, ref.Location())
		if err != nil {
			return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
		}
		ref = d
	}
	data, err := s.svc.Calendar(ctx, ref, req.GetBool("week", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DataFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     DataFormatContract,
		},
	}, nil
}
