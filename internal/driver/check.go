package driver

import (
	"context"
	"errors"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"lumen/internal/astfile"
	"lumen/internal/diag"
	"lumen/internal/ir"
	"lumen/internal/ownership"
	"lumen/internal/project"
	"lumen/internal/sema"
	"lumen/internal/source"
	"lumen/internal/trace"
)

type Options struct {
	// MaxDiagnostics bounds each file's Bag; 0 means the Bag default.
	MaxDiagnostics   int
	WholeFunctionSSA bool
	// Jobs bounds CheckFiles parallelism; 0 means GOMAXPROCS.
	Jobs int
	// Cache, when set, replays diagnostics for unchanged inputs. Cached
	// results carry no Program, Sema, Ownership or Module.
	Cache *DiskCache
	// Tracer defaults to the tracer stored in the context.
	Tracer trace.Tracer
}

// Summary describes a check outcome independently of its artifacts.
type Summary struct {
	Funcs   int
	Skipped []string
	Valid   bool
	Dropped int
}

// FileResult holds everything produced for one input. Each file owns its
// FileSet, interner, symbol table and Bag.
type FileResult struct {
	Path  string
	Files *source.FileSet
	Bag   *diag.Bag

	Program   *astfile.Program
	Sema      *sema.Result
	Ownership *ownership.Result
	Module    *ir.Module
	// Validation is the ir.Validate outcome, nil for valid IR.
	Validation error

	// Err is set when the document could not be decoded at all.
	Err    error
	Cached bool

	summary Summary
}

func (r *FileResult) HasErrors() bool {
	return r.Err != nil || r.Bag.HasErrors()
}

func (r *FileResult) Summary() Summary {
	return r.summary
}

// CheckFile runs decode, type checking, ownership, lowering and validation
// over one document. Problems in the program are diagnostics in Bag; Err is
// only set when the document itself is unreadable.
func CheckFile(ctx context.Context, in FileInput, opts Options) *FileResult {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(tracer, trace.ScopeFile, "check_file", trace.CurrentSpan(ctx)).
		WithExtra("path", in.Path)
	res := &FileResult{
		Path:  in.Path,
		Files: source.NewFileSet(),
		Bag:   diag.NewBag(opts.MaxDiagnostics),
	}
	defer func() {
		span.WithExtra("diagnostics", strconv.Itoa(res.Bag.Len())).
			WithExtra("cached", strconv.FormatBool(res.Cached)).
			End("")
	}()

	var (
		key      project.Digest
		cacheErr error
	)
	if opts.Cache != nil {
		key = cacheKey(in, opts)
		var payload DiskPayload
		hit, err := opts.Cache.Get(key, &payload)
		switch {
		case err != nil:
			cacheErr = err
		case hit:
			file := res.Files.Add(in.Path, in.Data, source.FileVirtual)
			replay(res, &payload, file)
			return res
		}
	}

	rep := diag.MultiReporter{
		diag.BagReporter{Bag: res.Bag},
		traceReporter{tracer: tracer, parent: span.ID()},
	}
	prog, err := astfile.Decode(in.Path, in.Data, astfile.Options{Files: res.Files, Reporter: rep})
	if err != nil {
		res.Err = err
		res.Bag.Add(diag.NewError(diag.CfgDecodeFailed, source.Span{}, err.Error()))
		return res
	}
	res.Program = prog

	res.Sema = sema.Check(prog.Builder, prog.File, sema.Options{
		Reporter:    rep,
		Tracer:      tracer,
		TraceParent: span.ID(),
	})
	res.Ownership = ownership.Resolve(prog.Builder, res.Sema, ownership.Options{
		Reporter:    rep,
		Tracer:      tracer,
		TraceParent: span.ID(),
	})
	res.Module = ir.Lower(prog.Builder, res.Sema, res.Ownership, ir.Options{
		Reporter:    rep,
		Tracer:      tracer,
		TraceParent: span.ID(),
	})
	res.Validation = ir.Validate(res.Module, ir.ValidateOptions{
		WholeFunctionSSA: opts.WholeFunctionSSA,
		Reporter:         rep,
		Tracer:           tracer,
		TraceParent:      span.ID(),
	})
	res.Bag.Dedup()
	res.Bag.Sort()
	res.summary = Summary{
		Funcs:   len(res.Module.Funcs),
		Skipped: append([]string(nil), res.Module.Skipped...),
		Valid:   res.Validation == nil,
		Dropped: res.Bag.Dropped(),
	}

	if opts.Cache != nil {
		if err := opts.Cache.Put(key, toPayload(res)); err != nil {
			trace.Point(tracer, trace.ScopeFile, "cache_put_failed", err.Error(), span.ID(), nil)
		}
	}
	// not cached: the entry was rewritten above
	if cacheErr != nil {
		res.Bag.Add(diag.New(diag.SevWarning, diag.CfgCacheUnreadable, source.Span{},
			"ignoring unreadable cache entry: "+cacheErr.Error()))
	}
	return res
}

// CheckFiles checks inputs in parallel, at most opts.Jobs at a time.
// Results keep input order. Cancellation is observed between files; a
// cancelled run returns the context error alongside whatever finished.
func CheckFiles(ctx context.Context, inputs []FileInput, opts Options) ([]*FileResult, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	opts.Tracer = tracer
	span := trace.Begin(tracer, trace.ScopeDriver, "check_files", trace.CurrentSpan(ctx)).
		WithExtra("files", strconv.Itoa(len(inputs)))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	results := make([]*FileResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(inputs)))
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			// Проверка отмены
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = CheckFile(gctx, in, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// traceReporter mirrors every diagnostic as a point event so a trace shows
// where in the pipeline it was raised.
type traceReporter struct {
	tracer trace.Tracer
	parent uint64
}

func (r traceReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, _ []diag.Note) {
	if r.tracer == nil || !r.tracer.Level().ShouldEmit(trace.ScopeFile) {
		return
	}
	trace.Point(r.tracer, trace.ScopeFile, "diagnostic", msg, r.parent, map[string]string{
		"code":     code.ID(),
		"severity": sev.Label(),
		"span":     strconv.FormatUint(uint64(primary.Start), 10) + ".." + strconv.FormatUint(uint64(primary.End), 10),
	})
}

// DecodeErrors joins the decode failures of results.
func DecodeErrors(results []*FileResult) error {
	var errs []error
	for _, r := range results {
		if r != nil && r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
