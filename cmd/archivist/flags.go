package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"strings"

	"archivist/internal/adapters/source"
	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/logger"
	ingestmod "archivist/internal/services/ingest/module"
	pipedom "archivist/internal/services/pipeline/domain"
)

const defaultAlgSeq = "HTML:HTMLTextExtractor"

// chainFlags collects repeated -algseq values
type chainFlags struct {
	specs []pipedom.ChainSpec
	set   bool
}

func (c *chainFlags) String() string {
	parts := make([]string, 0, len(c.specs))
	for _, s := range c.specs {
		parts = append(parts, s.Group+":"+strings.Join(s.Algorithms, ","))
	}
	return strings.Join(parts, " ")
}

func (c *chainFlags) Set(v string) error {
	spec, err := pipedom.ParseChainSpec(v)
	if err != nil {
		return err
	}
	c.specs = append(c.specs, spec)
	c.set = true
	return nil
}

// args is the parsed command line
type args struct {
	inputWARCs string
	inputStore bool
	output     string
	outputURI  string
	onlyIDs    string
	chains     []pipedom.ChainSpec
}

// needsStore reports whether the run reads or writes the main table
func (a args) needsStore() bool { return a.inputStore || a.output == ingestmod.OutputStore }

func parseArgs(fs *flag.FlagSet, argv []string) (args, error) {
	var (
		fWARCs    = fs.String("input-warcs", "", "file: or gs:// pattern of WARC files to process")
		fStore    = fs.Bool("input-store", false, "re-process records already stored in the main table")
		fOutStore = fs.Bool("output-store", false, "write rows into the main table")
		fOutText  = fs.String("output-textfile", "", "directory URI for JSON-lines output")
		fOutExtra = fs.String("output-textfile-extra", "", "directory URI for JSON-lines output of the extra lists")
		fOutCH    = fs.Bool("output-clickhouse", false, "write rows into ClickHouse archive_records")
		fOnlyIDs  = fs.String("only-ids", "", "file with WARC record ids to process, one per line")
	)
	var (
		chains  chainFlags
		errs    []error
		outputs int
		a       args
	)
	fs.Var(&chains, "algseq", "group:alg1,alg2 chain for a MIME group; repeatable (default "+defaultAlgSeq+")")
	if err := fs.Parse(argv); err != nil {
		return args{}, err
	}

	switch {
	case *fWARCs != "" && *fStore:
		errs = append(errs, perr.InvalidArgf("-input-warcs and -input-store are mutually exclusive"))
	case *fWARCs == "" && !*fStore:
		errs = append(errs, perr.InvalidArgf("one of -input-warcs or -input-store is required"))
	}
	a.inputWARCs, a.inputStore = *fWARCs, *fStore

	if *fOutStore {
		outputs++
		a.output = ingestmod.OutputStore
	}
	if *fOutText != "" {
		outputs++
		a.output, a.outputURI = ingestmod.OutputText, *fOutText
	}
	if *fOutExtra != "" {
		outputs++
		a.output, a.outputURI = ingestmod.OutputTextExtra, *fOutExtra
	}
	if *fOutCH {
		outputs++
		a.output = ingestmod.OutputClickhouse
	}
	if outputs != 1 {
		errs = append(errs, perr.InvalidArgf("exactly one of -output-store, -output-textfile, -output-textfile-extra or -output-clickhouse is required"))
	}

	if !chains.set {
		if err := chains.Set(defaultAlgSeq); err != nil {
			return args{}, err
		}
	}
	a.chains = chains.specs
	a.onlyIDs = *fOnlyIDs
	return a, errors.Join(errs...)
}

// loadIDs reads one record id per line; an empty path or a file without ids means no restriction
func loadIDs(ctx context.Context, fs source.FS, path string) (map[string]struct{}, error) {
	if path == "" {
		return nil, nil
	}
	rc, err := fs.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	ids := map[string]struct{}{}
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDecode, "read ids from %s", path)
	}
	if len(ids) == 0 {
		logger.C(ctx).Warn().Str("file", path).Msg("id file holds no ids, records are not restricted")
		return nil, nil
	}
	return ids, nil
}
