package mcpserver

// DataFormatContract describes the planner records and the scheduling rules
// that LLM consumers should follow when adding tasks or activities.
const DataFormatContract = `# Planner Data Format Contract

The planner keeps five collections: goals, dailyActivities, tasks,
schedule and insights. Ids are opaque strings assigned by the planner.

## Activities

Fixed daily commitments that repeat every day.

- ` + "`name`" + ` is required.
- ` + "`startTime`" + ` is a 24-hour "HH:MM" string (00:00 to 23:59).
- ` + "`duration`" + ` is in minutes, 1 to 1440.

## Tasks

- ` + "`name`" + ` is required.
- ` + "`priority`" + ` is 1 (low), 2 (medium, default) or 3 (high).
- ` + "`estimatedTime`" + ` is in minutes. A missing estimate counts as 60.
- ` + "`category`" + ` is free-form. Tasks in category "meeting" count
  toward meeting density.
- ` + "`scheduledDate`" + ` is optional, YYYY-MM-DD. Dated tasks are only
  planned on that day in the weekly view.

## Goals

- ` + "`type`" + ` is one of long-term, yearly, quarterly, monthly, weekly.
- ` + "`progress`" + ` is 0 to 100.
- ` + "`deadline`" + ` is optional, YYYY-MM-DD.
- ` + "`parentGoalId`" + ` links a sub-goal to the goal it came from.

## Scheduling rules

1. The day is swept once from 08:00 in activity start order.
2. Before each activity, at most one pending task is placed in the free
   gap, provided the gap is at least 30 minutes.
3. Tasks are taken highest priority first; equal priorities keep the order
   in which they were added.
4. A task longer than its gap is cut to fit. The rest of its estimate is
   dropped.
5. Nothing is placed after the last activity. With no activities the
   schedule is empty, so add activities before generating.

## Workload

Task minutes (completed tasks included) are compared against 1440 minus
the minutes of all activities. More than three meeting tasks or any
duplicate task names (case-insensitive) produce an insight.

## Backups

A backup is a JSON object with any of the collection keys above plus
` + "`exportDate`" + `. Each collection present replaces the stored one;
absent collections are kept. Use the ` + "`import_backup`" + ` tool with the
document itself, a data:application/json;base64 URI, or an http(s) URL.
`
