package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/wbdash/internal/domain"
)

// maxParallel bounds concurrent fetches.
const maxParallel = 4

type options struct {
	Kinds []domain.Kind
	From  string
	To    string
	Page  int
	Limit int
}

func (o options) validate() error {
	switch {
	case o.From == "" || o.To == "":
		return errors.New("-from and -to are required")
	case o.Page < 0:
		return fmt.Errorf("-page must be at least 1, got %d", o.Page)
	case o.Limit < 0:
		return fmt.Errorf("-limit must be at least 1, got %d", o.Limit)
	case len(o.Kinds) == 0:
		return errors.New("no reports selected")
	}
	return nil
}

func (o options) query() domain.ReportQuery {
	q := domain.ReportQuery{DateFrom: o.From, DateTo: o.To}
	if o.Page > 0 {
		q.Page = &o.Page
	}
	if o.Limit > 0 {
		q.Limit = &o.Limit
	}
	return q
}

// parseKinds resolves a comma-separated list, dropping duplicates and keeping
// the given order.
func parseKinds(s string) ([]domain.Kind, error) {
	var kinds []domain.Kind
	seen := make(map[domain.Kind]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, ok := domain.ParseKind(part)
		if !ok {
			return nil, fmt.Errorf("unknown report %q", part)
		}
		if !seen[kind] {
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// run fetches every selected report concurrently and writes them to w as a
// JSON object in the order requested. The first failure cancels the rest.
func run(ctx context.Context, svc domain.ReportService, o options, w io.Writer) error {
	q := o.query()
	results := make([]json.RawMessage, len(o.Kinds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, kind := range o.Kinds {
		g.Go(func() error {
			r, err := svc.Fetch(ctx, kind, q)
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			results[i] = r.JSONData()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, kind := range o.Kinds {
		key, _ := json.Marshal(string(kind))
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, results[i], "  ", "  "); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		if i < len(o.Kinds)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}
