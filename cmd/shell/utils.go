// cmd/shell/utils.go

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"clinic-store/internal/globalconst"
	"clinic-store/internal/store"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Color definitions for the interface
var (
	colorOK     = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorErr    = color.New(color.FgRed, color.Bold).SprintFunc()
	colorPrompt = color.New(color.FgMagenta).SprintFunc()
	colorInfo   = color.New(color.FgBlue).SprintFunc()
)

// getCommandAndRawArgs splits user input into a command and its arguments.
func getCommandAndRawArgs(input string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

// clearScreen clears the terminal screen.
func clearScreen() {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "cls")
	default:
		cmd = exec.Command("clear")
	}
	cmd.Stdout = os.Stdout
	_ = cmd.Run()
}

// getJSONPayload returns the inline JSON, or the contents of file:<path>.
func (c *cli) getJSONPayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "file:") {
		return os.ReadFile(strings.TrimPrefix(payload, "file:"))
	}
	if payload == "" {
		return nil, errors.New("a JSON payload is required")
	}
	return []byte(payload), nil
}

// parsePredicate decodes a JSON object; empty input is the empty predicate.
func parsePredicate(raw string) (store.Predicate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return store.Predicate{}, nil
	}
	var pred map[string]any
	if err := json.Unmarshal([]byte(raw), &pred); err != nil {
		return nil, fmt.Errorf("predicate must be a JSON object: %w", err)
	}
	return store.Predicate(pred), nil
}

// splitPredicateAndOptions separates a leading JSON predicate from the
// --options that follow it.
func splitPredicateAndOptions(raw string) (store.Predicate, string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return store.Predicate{}, raw, nil
	}
	end := strings.LastIndex(raw, "}")
	pred, err := parsePredicate(raw[:end+1])
	if err != nil {
		return nil, "", err
	}
	return pred, raw[end+1:], nil
}

// decodeJSONValues reads exactly n consecutive JSON values from raw.
func decodeJSONValues(raw string, n int) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	values := make([]any, 0, n)
	for range n {
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("expected %d JSON values: %w", n, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// recordHeaders orders columns: id first, other fields sorted, timestamps last.
func recordHeaders(records []store.Record) []string {
	headerSet := make(map[string]bool)
	for _, rec := range records {
		for key := range rec {
			headerSet[key] = true
		}
	}

	var leading, trailing []string
	for _, key := range []string{globalconst.GroupID, globalconst.ID} {
		if headerSet[key] {
			leading = append(leading, key)
			delete(headerSet, key)
		}
	}
	for _, key := range []string{globalconst.CreatedAt, globalconst.UpdatedAt} {
		if headerSet[key] {
			trailing = append(trailing, key)
			delete(headerSet, key)
		}
	}

	middle := make([]string, 0, len(headerSet))
	for key := range headerSet {
		middle = append(middle, key)
	}
	sort.Strings(middle)

	headers := append(leading, middle...)
	return append(headers, trailing...)
}

func formatValue(val any, present bool) string {
	if !present {
		return "(n/a)"
	}
	switch v := val.(type) {
	case map[string]any, []any:
		jsonVal, _ := json.MarshalIndent(v, "", "  ")
		return string(jsonVal)
	case nil:
		return "(nil)"
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// printRecords renders records as a table with one column per field.
func printRecords(w io.Writer, records []store.Record) {
	if len(records) == 0 {
		return
	}
	headers := recordHeaders(records)
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	for _, rec := range records {
		row := make([]string, len(headers))
		for i, header := range headers {
			val, ok := rec[header]
			row[i] = formatValue(val, ok)
		}
		table.Append(row)
	}
	table.Render()
}

// printRecord renders a single record as a Field/Value table.
func printRecord(w io.Writer, rec store.Record) {
	headers := recordHeaders([]store.Record{rec})
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	for _, field := range headers {
		table.Append([]string{field, formatValue(rec[field], true)})
	}
	table.Render()
}

func printStatus(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n---\n", colorInfo("Result:"), msg)
}

func printHelp(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Command", "Description"})
	table.SetAutoWrapText(false)
	table.AppendBulk([][]string{
		{"collections", "List collections and their record counts"},
		{"use <collection>", "Select the collection used when none is named"},
		{"find [col] [{pred}] [--sort f] [--desc] [--limit n] [--offset n]", "List matching records"},
		{"get [col] {pred}", "Show the first matching record"},
		{"count [col] [{pred}]", "Count matching records"},
		{"insert [col] {fields} | file:<path>", "Insert a record"},
		{"update [col] {pred} {patch}", "Merge patch into the first matching record"},
		{"delete [col] {pred}", "Delete the first matching record"},
		{"aggregate [col] [stages] | file:<path>", "Run a $match/$group pipeline"},
		{"flush", "Wait until the store file reflects every write"},
		{"backup", "Write a timestamped backup now"},
		{"stats", "Show operation and flush metrics"},
		{"clear", "Clear the screen"},
		{"exit", "Leave the shell"},
	})
	table.Render()
	fmt.Fprintln(w, colorInfo("Predicates match by exact equality per field; operators such as $gte are not interpreted."))
}
