package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/planner/internal"
	"github.com/starford/planner/internal/backup"
	"github.com/starford/planner/internal/calendar"
	"github.com/starford/planner/internal/planservice"
	"github.com/starford/planner/internal/schedule"
)

// withService opens the planner state for a one-shot command. Logs go to
// stderr so they do not mix with the command output.
func withService(cmd *cli.Command, fn func(*planservice.Service) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, _, err := internal.OpenService(cfg, internal.NewLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func dateFlag(svc *planservice.Service, v string) (time.Time, error) {
	now := svc.Now()
	if v == "" {
		return now, nil
	}
	d, err := time.ParseInLocation(schedule.DateLayout, v, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Generate and print today's timetable",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "week", Usage: "Print the seven-day view"},
			&cli.StringFlag{Name: "from", Usage: "First day of the week view, YYYY-MM-DD"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(cmd, func(svc *planservice.Service) error {
				if cmd.Bool("week") {
					from, err := dateFlag(svc, cmd.String("from"))
					if err != nil {
						return err
					}
					fmt.Println(renderWeek(svc.WeekPlan(ctx, from)))
					return nil
				}
				view, err := svc.GenerateSchedule(ctx)
				if err != nil {
					return err
				}
				fmt.Println(renderDay(svc.Now().Format(schedule.DateLayout), view.Entries, view.Unscheduled))
				return nil
			})
		},
	}
}

func insightsCommand() *cli.Command {
	return &cli.Command{
		Name:  "insights",
		Usage: "Run the rule-based analysis and print the findings",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(cmd, func(svc *planservice.Service) error {
				out, err := svc.AnalyzeInsights(ctx, false)
				if err != nil {
					return err
				}
				fmt.Println(renderInsights(out.Insights))
				return nil
			})
		},
	}
}

func exportICSCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-ics",
		Usage: "Generate the schedule and write it as an iCalendar file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default schedule-<date>.ics)"},
			&cli.BoolFlag{Name: "week", Usage: "Export seven planned days"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(cmd, func(svc *planservice.Service) error {
				week := cmd.Bool("week")
				if !week {
					if _, err := svc.GenerateSchedule(ctx); err != nil {
						return err
					}
				}
				ref := svc.Now()
				data, err := svc.Calendar(ctx, ref, week)
				if err != nil {
					return err
				}
				out := cmd.String("out")
				if out == "" {
					out = calendar.Filename(ref)
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Println(out)
				return nil
			})
		},
	}
}

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Export or import a backup document",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Write every collection to a JSON document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default goal-planner-backup-<date>.json)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withService(cmd, func(svc *planservice.Service) error {
						data, err := svc.ExportBackup(ctx)
						if err != nil {
							return err
						}
						out := cmd.String("out")
						if out == "" {
							out = backup.Filename(svc.Now())
						}
						if err := os.WriteFile(out, data, 0o644); err != nil {
							return fmt.Errorf("write %s: %w", out, err)
						}
						fmt.Println(out)
						return nil
					})
				},
			},
			{
				Name:  "import",
				Usage: "Merge a JSON document into the stored collections",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Backup file", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					data, err := os.ReadFile(cmd.String("in"))
					if err != nil {
						return err
					}
					return withService(cmd, func(svc *planservice.Service) error {
						rep, err := svc.ImportBackup(ctx, data)
						if err != nil {
							return err
						}
						fmt.Println(renderReport(rep))
						return nil
					})
				},
			},
		},
	}
}

func calendarCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendar",
		Usage: "Calendar file utilities",
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "List the events of an iCalendar file",
				ArgsUsage: "<file>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					if path == "" {
						return fmt.Errorf("calendar inspect: file argument is required")
					}
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					defer f.Close()
					doc, err := calendar.Decode(f)
					if err != nil {
						return err
					}
					fmt.Println(renderCalendar(doc))
					return nil
				},
			},
		},
	}
}
