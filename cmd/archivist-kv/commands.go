package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/store/kv"
)

// admin is the part of the kv client the commands use
type admin interface {
	EnsureAllTables(ctx context.Context, t kv.Tables) error
	DeleteTable(ctx context.Context, name string) error
	PutRowsFromJSON(ctx context.Context, table string, r io.Reader, maxRetries int) (written, failed int, err error)
	ScanByPrefix(ctx context.Context, table, prefix string) []kv.Row
	CellVersions(ctx context.Context, table, key, column string, versions int) [][]byte
}

const usage = "usage: archivist-kv ensure | delete -table T | import -table T -file F | scan -table T [-prefix P] | versions -table T -row R -col C [-n N]"

func run(ctx context.Context, c admin, cfg kv.Config, argv []string, out io.Writer) error {
	if len(argv) == 0 {
		return perr.InvalidArgf(usage)
	}
	cmd, rest := argv[0], argv[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		table  = fs.String("table", "", "logical table name")
		file   = fs.String("file", "", "JSON file of rows to import")
		prefix = fs.String("prefix", "", "row key prefix")
		row    = fs.String("row", "", "row key")
		col    = fs.String("col", "", "column qualifier")
		n      = fs.Int("n", 10, "number of versions")
	)
	if err := fs.Parse(rest); err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, usage)
	}
	needTable := func() error {
		if *table == "" {
			return perr.Validationf("table", "%s needs -table", cmd)
		}
		return nil
	}

	switch cmd {
	case "ensure":
		return c.EnsureAllTables(ctx, cfg.Tables)

	case "delete":
		if err := needTable(); err != nil {
			return err
		}
		return c.DeleteTable(ctx, *table)

	case "import":
		if err := needTable(); err != nil {
			return err
		}
		f, err := os.Open(*file)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeNotFound, "open %s", *file)
		}
		defer func() { _ = f.Close() }()
		written, failed, err := c.PutRowsFromJSON(ctx, *table, f, cfg.MaxRetries)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "written=%d failed=%d\n", written, failed)
		return err

	case "scan":
		if err := needTable(); err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		for _, r := range c.ScanByPrefix(ctx, *table, *prefix) {
			if err := enc.Encode(printable(r)); err != nil {
				return err
			}
		}
		return nil

	case "versions":
		if err := needTable(); err != nil {
			return err
		}
		if *row == "" || *col == "" {
			return perr.Validationf("row", "versions needs -row and -col")
		}
		enc := json.NewEncoder(out)
		for i, v := range c.CellVersions(ctx, *table, *row, *col, *n) {
			if err := enc.Encode(map[string]any{"version": i, "value": kv.DecodeValue(v)}); err != nil {
				return err
			}
		}
		return nil
	}
	return perr.InvalidArgf("unknown command %q; %s", cmd, usage)
}

// printable decodes every cell so nested BSON maps print as JSON objects
func printable(r kv.Row) map[string]any {
	cells := make(map[string]any, len(r.Cells))
	for k, v := range r.Cells {
		cells[k] = kv.DecodeValue(v)
	}
	return map[string]any{"key": r.Key, "cells": cells}
}
