package packer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/strpack/android"
	"github.com/minios-linux/strpack/diag"
	"github.com/minios-linux/strpack/ids"
	"github.com/minios-linux/strpack/locale"
	"github.com/minios-linux/strpack/lockfile"
	"github.com/minios-linux/strpack/stringpack"
	"github.com/minios-linux/strpack/translation"
)

// Options configures Run.
type Options struct {
	// Resolver maps resource names to ids. Required.
	Resolver ids.Resolver
	// Exclude drops plural quantities. Nil keeps everything.
	Exclude translation.PluralPredicate
	// Nullify drops whole resources.
	Nullify translation.NullifySet
	// Workers bounds concurrent jobs (0 = runtime.NumCPU()).
	Workers int
	// Lock, when set, skips jobs whose inputs did not change and records the
	// inputs of every job that succeeds.
	Lock *lockfile.LockFile
	// Fingerprint holds extra lock inputs shared by every job, e.g. the
	// checksum of the id source file.
	Fingerprint map[string]string
	// Force rebuilds jobs the lock file considers up to date.
	Force bool
	// OnResult is called as each job finishes. Calls may come from several
	// goroutines at once.
	OnResult func(Result)
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Result is the outcome of one job.
type Result struct {
	PackID      string
	Dest        string
	Encoding    stringpack.Encoding
	Size        int
	Locales     []string
	Skipped     bool
	Diagnostics []string
	Err         error
}

// Run builds every job and returns the results in job order. A failing job
// does not stop the others. Jobs that have not started when ctx is cancelled
// report ctx.Err().
func Run(ctx context.Context, jobs []Job, opts Options) []Result {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(opts.workers())
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{PackID: job.PackID, Dest: job.Dest, Err: err}
			} else {
				results[i] = Build(job, opts)
			}
			if opts.OnResult != nil {
				opts.OnResult(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

type input struct {
	path   string
	locale string
	data   []byte // nil when the file does not exist
}

// Build runs a single job: read every input, compile, write the pack.
func Build(job Job, opts Options) Result {
	res := Result{PackID: job.PackID, Dest: job.Dest}
	var sink diag.Collector
	defer func() { res.Diagnostics = sink.Messages() }()

	if opts.Resolver == nil {
		res.Err = errors.New("no id resolver")
		return res
	}

	inputs := make([]input, 0, len(job.Inputs))
	for _, path := range job.Inputs {
		tag, err := locale.FromPath(path)
		if err != nil {
			res.Err = err
			return res
		}
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			res.Err = fmt.Errorf("reading %s: %w", path, err)
			return res
		}
		inputs = append(inputs, input{path: path, locale: tag, data: data})
	}

	var checksums map[string]string
	if opts.Lock != nil {
		checksums = inputChecksums(inputs, opts.Fingerprint)
		if !opts.Force && !opts.Lock.IsChanged(job.PackID, checksums) && exists(job.Dest) {
			res.Skipped = true
			return res
		}
	}

	reader := &translation.Reader{
		Resolver: opts.Resolver,
		Exclude:  opts.Exclude,
		Nullify:  opts.Nullify,
		Diag:     &sink,
	}
	dict := translation.NewDict()
	for _, in := range inputs {
		if in.data == nil {
			// A locale without a source file contributes nothing.
			dict.Add(in.locale, nil)
			continue
		}
		f, err := android.Parse(in.data)
		if err != nil {
			res.Err = fmt.Errorf("parsing %s: %w", in.path, err)
			return res
		}
		dict.Add(in.locale, reader.Read(in.locale, in.path, f))
	}

	pack, err := stringpack.Compile(dict)
	if err != nil {
		res.Err = fmt.Errorf("pack %s: %w", job.PackID, err)
		return res
	}
	if err := writeAtomic(job.Dest, pack.Bytes()); err != nil {
		res.Err = err
		if opts.Lock != nil {
			opts.Lock.Remove(job.PackID)
		}
		return res
	}
	if opts.Lock != nil {
		opts.Lock.Update(job.PackID, checksums)
	}

	res.Encoding = pack.Encoding()
	res.Size = pack.Size()
	res.Locales = pack.Locales()
	return res
}

func inputChecksums(inputs []input, fingerprint map[string]string) map[string]string {
	sums := make(map[string]string, len(inputs)+len(fingerprint))
	for k, v := range fingerprint {
		sums[k] = v
	}
	for _, in := range inputs {
		sum := lockfile.Missing
		if in.data != nil {
			sum = lockfile.Hash(in.data)
		}
		sums[lockfile.InputKey(in.path)] = sum
	}
	return sums
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
