package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Hookflow/internal/domain"
)

// NewEnqueueCmd создаёт команду публикации WorkflowRunRequest.
//
// Запрос берётся из --file (или "-" для stdin), флаги поверх файла
// переопределяют отдельные поля.
func NewEnqueueCmd(backendFn func() (Backend, error), outputFn func() *Output) *cobra.Command {
	var (
		file       string
		workflowID int64
		triggerID  int64
		payload    string
		actions    string
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a workflow run",
		Example: `  hookflow enqueue --file request.json
  hookflow enqueue --workflow-id 7 --payload '{"user":{"email":"a@b.com"}}' \
    --actions '[{"type":"webhook","config":{"url":"https://example.com/hook"}}]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			req, err := readRunRequest(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("workflow-id") {
				req.WorkflowID = workflowID
			}
			if flags.Changed("trigger-id") {
				req.TriggerID = &triggerID
			}
			if flags.Changed("payload") {
				if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
					return fmt.Errorf("invalid --payload: %w", err)
				}
			}
			if flags.Changed("actions") {
				if err := json.Unmarshal([]byte(actions), &req.Actions); err != nil {
					return fmt.Errorf("invalid --actions: %w", err)
				}
			}

			if err := validateRunRequest(req); err != nil {
				return err
			}

			backend, err := backendFn()
			if err != nil {
				return err
			}
			defer backend.Close()

			queue, err := backend.Queue(cmd.Context())
			if err != nil {
				return err
			}
			if err := queue.Enqueue(cmd.Context(), domain.JobNameRunWorkflow, req); err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}

			out.Success(fmt.Sprintf("Enqueued %s for workflow %d (%d actions)",
				domain.JobNameRunWorkflow, req.WorkflowID, len(req.Actions)))
			if out.jsonMode {
				out.JSON(req)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the request from a JSON file (\"-\" for stdin)")
	cmd.Flags().Int64Var(&workflowID, "workflow-id", 0, "Workflow ID")
	cmd.Flags().Int64Var(&triggerID, "trigger-id", 0, "Trigger ID")
	cmd.Flags().StringVar(&payload, "payload", "", "Trigger payload as a JSON object")
	cmd.Flags().StringVar(&actions, "actions", "", "Actions as a JSON array")

	return cmd
}

// readRunRequest читает запрос из файла; пустой путь — пустой запрос.
func readRunRequest(stdin io.Reader, file string) (*domain.WorkflowRunRequest, error) {
	req := &domain.WorkflowRunRequest{}
	if file == "" {
		return req, nil
	}

	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}

	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

func validateRunRequest(req *domain.WorkflowRunRequest) error {
	if req.WorkflowID <= 0 {
		return fmt.Errorf("workflow id is required")
	}
	if req.Payload == nil {
		req.Payload = map[string]any{}
	}
	for i, a := range req.Actions {
		if a.Type == "" {
			return fmt.Errorf("action %d: type is required", i)
		}
	}
	return nil
}
