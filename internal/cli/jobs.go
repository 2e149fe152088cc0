package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/repo"
)

// NewJobsCmd создаёт группу команд для просмотра job'ов.
func NewJobsCmd(backendFn func() (Backend, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect workflow jobs",
	}

	cmd.AddCommand(
		newJobsListCmd(backendFn, outputFn),
		newJobsShowCmd(backendFn, outputFn),
	)

	return cmd
}

func newJobsListCmd(backendFn func() (Backend, error), outputFn func() *Output) *cobra.Command {
	var workflowID int64
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			filter := repo.JobFilter{Limit: limit}
			if cmd.Flags().Changed("workflow-id") {
				filter.WorkflowID = &workflowID
			}
			if status != "" {
				s, ok := domain.ParseJobStatus(strings.ToUpper(status))
				if !ok {
					return fmt.Errorf("invalid status %q", status)
				}
				filter.Status = s
			}

			backend, err := backendFn()
			if err != nil {
				return err
			}
			defer backend.Close()

			jobs, err := backend.Jobs(cmd.Context())
			if err != nil {
				return err
			}

			list, err := jobs.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			rows := make([][]string, len(list))
			for i := range list {
				rows[i] = jobRow(&list[i])
			}

			out.Print(jobHeaders, rows, list)
			return nil
		},
	}

	cmd.Flags().Int64Var(&workflowID, "workflow-id", 0, "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RUNNING, SUCCESS, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default 20, max 100)")

	return cmd
}

func newJobsShowCmd(backendFn func() (Backend, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details and action results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			backend, err := backendFn()
			if err != nil {
				return err
			}
			defer backend.Close()

			jobs, err := backend.Jobs(cmd.Context())
			if err != nil {
				return err
			}

			job, err := jobs.GetByID(cmd.Context(), id)
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("job %d not found", id)
			}
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(job)
				return nil
			}

			out.Table(jobHeaders, [][]string{jobRow(job)})
			if job.LastError != "" {
				out.Line("")
				out.Line("Last error: " + job.LastError)
			}
			if job.Result != nil && len(job.Result.Actions) > 0 {
				out.Line("")
				out.Table(actionHeaders, actionRows(job.Result.Actions))
			}
			return nil
		},
	}
}
