package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"clinic-store/internal/globalconst"
	"clinic-store/internal/persistence"
	"clinic-store/internal/store"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
)

type cli struct {
	store             *store.Store
	backups           *persistence.BackupManager
	out               io.Writer
	rl                *readline.Instance
	rlConfig          *readline.Config
	currentCollection string
}

// execute runs one command line against the store.
func (c *cli) execute(input string) error {
	cmd, rawArgs := getCommandAndRawArgs(input)
	switch cmd {
	case "help":
		printHelp(c.out)
		return nil
	case "clear":
		clearScreen()
		return nil
	case "collections":
		return c.handleCollections()
	case "use":
		return c.handleUse(rawArgs)
	case "find":
		return c.handleFind(rawArgs)
	case "get":
		return c.handleGet(rawArgs)
	case "count":
		return c.handleCount(rawArgs)
	case "insert":
		return c.handleInsert(rawArgs)
	case "update":
		return c.handleUpdate(rawArgs)
	case "delete":
		return c.handleDelete(rawArgs)
	case "aggregate":
		return c.handleAggregate(rawArgs)
	case "flush":
		return c.handleFlush()
	case "backup":
		return c.handleBackup()
	case "stats":
		return c.handleStats()
	default:
		return fmt.Errorf("unknown command %q, type 'help' for the list", cmd)
	}
}

func (c *cli) handleCollections() error {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Collection", "Records"})
	for _, name := range c.store.Collections() {
		table.Append([]string{name, strconv.Itoa(c.store.Count(name, nil))})
	}
	table.Render()
	return nil
}

func (c *cli) handleUse(args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		return errors.New("usage: use <collection>")
	}
	if !c.isKnownCollection(name) {
		return fmt.Errorf("collection %q does not exist", name)
	}
	c.currentCollection = name
	fmt.Fprintln(c.out, colorOK("√ Using collection ", name))
	return nil
}

func (c *cli) handleFind(args string) error {
	collection, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	pred, optArgs, err := splitPredicateAndOptions(rest)
	if err != nil {
		return err
	}
	opts, err := parseFindOptions(optArgs)
	if err != nil {
		return err
	}
	records := c.store.GetMany(collection, pred, opts)
	printRecords(c.out, records)
	printStatus(c.out, fmt.Sprintf("%d record(s)", len(records)))
	return nil
}

func (c *cli) handleGet(args string) error {
	collection, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	pred, err := parsePredicate(rest)
	if err != nil {
		return err
	}
	rec, found := c.store.GetOne(collection, pred)
	if !found {
		printStatus(c.out, "NOT FOUND")
		return nil
	}
	printRecord(c.out, rec)
	return nil
}

func (c *cli) handleCount(args string) error {
	collection, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	pred, err := parsePredicate(rest)
	if err != nil {
		return err
	}
	printStatus(c.out, strconv.Itoa(c.store.Count(collection, pred)))
	return nil
}

func (c *cli) handleInsert(args string) error {
	collection, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	payload, err := c.getJSONPayload(rest)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return fmt.Errorf("invalid JSON object: %w", err)
	}
	rec, err := c.store.Insert(collection, fields)
	if err != nil {
		return err
	}
	printRecord(c.out, rec)
	fmt.Fprintln(c.out, colorOK("√ Inserted ", rec.ID()))
	return nil
}

func (c *cli) handleUpdate(args string) error {
	collection, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	values, err := decodeJSONValues(rest, 2)
	if err != nil {
		return fmt.Errorf("usage: update [collection] <predicate> <patch>: %w", err)
	}
	pred, ok1 := values[0].(map[string]any)
	patch, ok2 := values[1].(map[string]any)
	if !ok1 || !ok2 {
		return errors.New("predicate and patch must both be JSON objects")
	}
	rec, found, err := c.store.Update(collection, store.Predicate(pred), patch)
	if err != nil {
		return err
	}
	if !found {
		printStatus(c.out, "NOT FOUND")
		return nil
	}
	printRecord(c.out, rec)
	fmt.Fprintln(c.out, colorOK("√ Updated ", rec.ID()))
	return nil
}

func (c *cli) handleDelete(args string) error {
	collection, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	pred, err := parsePredicate(rest)
	if err != nil {
		return err
	}
	if len(pred) == 0 {
		return errors.New("refusing to delete with an empty predicate")
	}
	removed, err := c.store.Delete(collection, pred)
	if err != nil {
		return err
	}
	if !removed {
		printStatus(c.out, "NOT FOUND")
		return nil
	}
	fmt.Fprintln(c.out, colorOK("√ Deleted one record"))
	return nil
}

func (c *cli) handleAggregate(args string) error {
	collection, rest, err := c.resolveCollectionName(args)
	if err != nil {
		return err
	}
	payload, err := c.getJSONPayload(rest)
	if err != nil {
		return err
	}
	var docs []map[string]any
	if err := json.Unmarshal(payload, &docs); err != nil {
		return fmt.Errorf("pipeline must be a JSON array of stages: %w", err)
	}
	pipeline, err := store.ParsePipeline(docs)
	if err != nil {
		return err
	}
	results, err := c.store.Aggregate(collection, pipeline)
	if err != nil {
		return err
	}
	printRecords(c.out, results)
	printStatus(c.out, fmt.Sprintf("%d group(s)", len(results)))
	return nil
}

func (c *cli) handleFlush() error {
	c.store.Flush()
	if err := c.store.LastFlushError(); err != nil {
		return fmt.Errorf("last flush failed: %w", err)
	}
	fmt.Fprintln(c.out, colorOK("√ Store file is up to date"))
	return nil
}

func (c *cli) handleBackup() error {
	path, err := c.backups.PerformBackup()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, colorOK("√ Backup written to ", path))
	fmt.Fprintln(c.out, colorInfo(c.backups.Status()))
	return nil
}

// handleStats prints the store metrics gathered from the default registry.
func (c *cli) handleStats() error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Metric", "Labels", "Value"})
	table.SetAutoWrapText(false)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "clinicstore_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var value string
			switch {
			case m.GetCounter() != nil:
				value = strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64)
			case m.GetGauge() != nil:
				value = strconv.FormatFloat(m.GetGauge().GetValue(), 'f', -1, 64)
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = fmt.Sprintf("count=%d sum=%.4fs", h.GetSampleCount(), h.GetSampleSum())
			}
			table.Append([]string{mf.GetName(), strings.Join(labels, ","), value})
		}
	}
	table.Render()
	return nil
}

func (c *cli) isKnownCollection(name string) bool {
	for _, known := range c.store.Collections() {
		if known == name {
			return true
		}
	}
	return false
}

// resolveCollectionName takes the collection from the first argument, or
// falls back to the collection selected with 'use'.
func (c *cli) resolveCollectionName(args string) (string, string, error) {
	parts := strings.Fields(args)
	if len(parts) > 0 &&
		!strings.HasPrefix(parts[0], "{") &&
		!strings.HasPrefix(parts[0], "[") &&
		!strings.HasPrefix(parts[0], "--") &&
		!strings.HasPrefix(parts[0], "file:") &&
		parts[0] != "-" {
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), parts[0]))
		return parts[0], rest, nil
	}

	if c.currentCollection != "" {
		return c.currentCollection, args, nil
	}
	return "", "", errors.New("no collection name provided and no collection is in use. Use 'use <collection>' or name it in the command")
}

func (c *cli) updatePrompt() {
	if c.rl == nil {
		return
	}
	prompt := "clinic> "
	if c.currentCollection != "" {
		prompt = fmt.Sprintf("clinic:%s> ", c.currentCollection)
	}
	c.rl.SetPrompt(colorPrompt(prompt))
}

// parseFindOptions reads --sort <field>, --desc, --limit <n> and --offset <n>.
func parseFindOptions(args string) (store.FindOptions, error) {
	opts := store.FindOptions{SortOrder: globalconst.SortAsc}
	tokens := strings.Fields(args)
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "--desc":
			opts.SortOrder = globalconst.SortDesc
		case "--sort", "--limit", "--offset":
			if i+1 >= len(tokens) {
				return opts, fmt.Errorf("%s needs a value", tokens[i])
			}
			value := tokens[i+1]
			switch tokens[i] {
			case "--sort":
				opts.SortBy = value
			case "--limit", "--offset":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return opts, fmt.Errorf("%s expects a non-negative integer, got %q", tokens[i], value)
				}
				if tokens[i] == "--limit" {
					opts.Limit = n
				} else {
					opts.Offset = n
				}
			}
			i++
		default:
			return opts, fmt.Errorf("unknown option %q", tokens[i])
		}
	}
	return opts, nil
}
