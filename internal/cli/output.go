package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/Hookflow/internal/domain"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными потоками.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	// Заголовки
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	// Разделитель
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	// Строки данных
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Line выводит строку в stdout.
func (o *Output) Line(s string) {
	fmt.Fprintln(o.w, s)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// --- Job formatting ---

var jobHeaders = []string{"ID", "WORKFLOW", "TRIGGER", "STATUS", "ACTIONS", "ATTEMPTS", "CREATED"}

var actionHeaders = []string{"#", "TYPE", "OK", "DETAIL"}

func jobRow(job *domain.Job) []string {
	return []string{
		strconv.FormatInt(job.ID, 10),
		strconv.FormatInt(job.WorkflowID, 10),
		optionalID(job.TriggerID),
		string(job.Status),
		actionsSummary(job.Result),
		strconv.Itoa(job.Attempts),
		formatTime(job.CreatedAt),
	}
}

// actionsSummary — "успешных/всего", "-" если результатов нет.
func actionsSummary(r *domain.JobResult) string {
	if r == nil {
		return "-"
	}
	total := len(r.Actions)
	return fmt.Sprintf("%d/%d", total-r.FailedActions(), total)
}

func actionRows(actions []domain.ActionResult) [][]string {
	rows := make([][]string, len(actions))
	for i, a := range actions {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			string(a.Type),
			strconv.FormatBool(a.OK),
			actionDetail(a),
		}
	}
	return rows
}

func actionDetail(a domain.ActionResult) string {
	switch {
	case !a.OK:
		return a.Error
	case a.Info != nil:
		return "sent to " + a.Info.To
	case a.Status != 0:
		return "HTTP " + strconv.Itoa(a.Status)
	default:
		return a.Message
	}
}

func optionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
