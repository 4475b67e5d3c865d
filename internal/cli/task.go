package cli

import (
	"fmt"
	"strings"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/config"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/store"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/taskview"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks in the local store",
	}
	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskStatusCmd())
	cmd.AddCommand(newTaskTargetDateCmd())
	cmd.AddCommand(newTaskDeleteCmd())
	cmd.AddCommand(newTaskLogCmd())
	cmd.AddCommand(newTaskHistoryCmd())
	return cmd
}

func openHomeStore(cmd *cobra.Command) (store.Store, error) {
	home := config.MustHomeFrom(cmd.Context())
	return store.Open(home)
}

func newTaskCreateCmd() *cobra.Command {
	var (
		title       string
		description string
		priority    string
		status      string
		createdBy   int64
		department  int64
		targetDate  string
		assignees   []int64
		subDepts    []int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task with assignees and sub-departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			t := store.NewTask{
				Title:          title,
				Description:    description,
				Priority:       priority,
				Status:         status,
				CreatedBy:      createdBy,
				DepartmentID:   department,
				Assignees:      assignees,
				SubDepartments: subDepts,
			}
			if targetDate != "" {
				t.TargetDate = &targetDate
			}
			id, err := st.CreateTask(cmd.Context(), t)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: low, medium, high (default medium)")
	cmd.Flags().StringVar(&status, "status", models.StatusPending, "Status: pending, in progress, completed")
	cmd.Flags().Int64Var(&createdBy, "created-by", 0, "Creating user ID")
	cmd.Flags().Int64Var(&department, "department", 0, "Owning department ID")
	cmd.Flags().StringVar(&targetDate, "target-date", "", "Target date (YYYY-MM-DD)")
	cmd.Flags().Int64SliceVar(&assignees, "assignees", nil, "Assignee user IDs")
	cmd.Flags().Int64SliceVar(&subDepts, "sub-departments", nil, "Target sub-department IDs")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("created-by")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			rows, err := st.ListTasks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, v := range taskview.Assemble(rows) {
				printTaskLine(cmd, v)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Max tasks to list (0 = server default)")
	return cmd
}

func printTaskLine(cmd *cobra.Command, v models.TaskView) {
	line := fmt.Sprintf("%d\t[%s/%s]\t%s", v.TaskID, v.Status, v.Priority, v.Title)
	if len(v.Assignees) > 0 {
		line += "\t→ " + strings.Join(v.Assignees, ", ")
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
}

func newTaskShowCmd() *cobra.Command {
	var taskID int64

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a task with its relations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID <= 0 {
				return fmt.Errorf("--id must be a positive task ID")
			}
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			rows, err := st.GetTask(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			v := taskview.AssembleOne(rows)
			if v == nil {
				return fmt.Errorf("task %d not found", taskID)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Task %d: %s\n", v.TaskID, v.Title)
			if v.Description != "" {
				_, _ = fmt.Fprintf(out, "  %s\n", v.Description)
			}
			_, _ = fmt.Fprintf(out, "  status: %s, priority: %s\n", v.Status, v.Priority)
			_, _ = fmt.Fprintf(out, "  created by: %s\n", v.CreatedByName)
			if v.TargetDate != nil {
				_, _ = fmt.Fprintf(out, "  target date: %s\n", *v.TargetDate)
			}
			if len(v.Assignees) > 0 {
				_, _ = fmt.Fprintf(out, "  assignees: %s\n", strings.Join(v.Assignees, ", "))
			}
			if len(v.SubDepartments) > 0 {
				_, _ = fmt.Fprintf(out, "  sub-departments: %s\n", strings.Join(v.SubDepartments, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "id", 0, "Task ID")
	return cmd
}

func newTaskStatusCmd() *cobra.Command {
	var taskID int64
	var status string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Set task status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID <= 0 || status == "" {
				return fmt.Errorf("--id and --status are required")
			}
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.UpdateTaskStatus(cmd.Context(), taskID, status); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %d status set to %q\n", taskID, status)
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "id", 0, "Task ID")
	cmd.Flags().StringVar(&status, "status", "", "New status (pending, in progress, completed)")
	return cmd
}

func newTaskTargetDateCmd() *cobra.Command {
	var taskID int64
	var date string

	cmd := &cobra.Command{
		Use:   "target-date",
		Short: "Set task target date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID <= 0 || date == "" {
				return fmt.Errorf("--id and --date are required")
			}
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.UpdateTaskTargetDate(cmd.Context(), taskID, date); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %d target date set to %s\n", taskID, date)
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "id", 0, "Task ID")
	cmd.Flags().StringVar(&date, "date", "", "Target date (YYYY-MM-DD)")
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	var taskID int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a task and its relations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID <= 0 {
				return fmt.Errorf("--id must be a positive task ID")
			}
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteTask(cmd.Context(), taskID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", taskID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "id", 0, "Task ID")
	return cmd
}

func newTaskLogCmd() *cobra.Command {
	var (
		taskID int64
		userID int64
		kind   string
		detail string
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Append an interaction to a task's log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID <= 0 || userID <= 0 || kind == "" {
				return fmt.Errorf("--id, --user, and --type are required")
			}
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			in, err := st.LogInteraction(cmd.Context(), models.Interaction{
				UserID: userID,
				TaskID: taskID,
				Type:   kind,
				Detail: detail,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged interaction %d on task %d\n", in.InteractionID, taskID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "id", 0, "Task ID")
	cmd.Flags().Int64Var(&userID, "user", 0, "Acting user ID")
	cmd.Flags().StringVar(&kind, "type", "", "Interaction type (status_change, expand, hide, ...)")
	cmd.Flags().StringVar(&detail, "detail", "", "Optional free-form detail")
	return cmd
}

func newTaskHistoryCmd() *cobra.Command {
	var taskID int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a task's interaction log, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID <= 0 {
				return fmt.Errorf("--id must be a positive task ID")
			}
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			log, err := st.ListTaskInteractions(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			for _, in := range log {
				line := fmt.Sprintf("%s\tuser %d\t%s", in.Timestamp.Format("2006-01-02 15:04:05"), in.UserID, in.Type)
				if in.Detail != "" {
					line += "\t" + in.Detail
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "id", 0, "Task ID")
	return cmd
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo org chart and sample tasks into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openHomeStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.SeedDemo(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Seeded")
			return nil
		},
	}
	return cmd
}
