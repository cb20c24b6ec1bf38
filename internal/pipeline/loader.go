package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/source"
)

// AllProviders selects the per-date sum across every provider.
const AllProviders = "all"

// ErrUnknownProvider is returned when a requested provider has no exports.
var ErrUnknownProvider = errors.New("unknown provider")

// LoadOptions says where billing exports live and how to normalize them.
type LoadOptions struct {
	DataDir   string                  // scanned recursively
	Inputs    []string                // explicit files; provider is the file stem
	Providers []config.ProviderConfig // configured files or directories
	Rates     config.Rates
	Base      string
}

// LoadResult holds the output of the full data loading pipeline.
type LoadResult struct {
	Providers     map[string]model.DailyCostSeries
	Items         []source.Item
	TotalFiles    int
	ParsedFiles   int
	ParseErrors   int
	FileErrors    int
	ClampedDays   int // provider-days whose refunds exceeded charges
	ProviderCount int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses all billing exports, then aggregates each
// provider into a daily series in the base currency.
// It uses a bounded worker pool for parallel parsing.
func Load(opts LoadOptions, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := discover(opts)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{
		Providers:     make(map[string]model.DailyCostSeries),
		TotalFiles:    len(files),
		ProviderCount: source.CountProviders(files),
	}
	if len(files) == 0 {
		return result, nil
	}

	// Parallel parsing with bounded worker pool
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	byProvider := make(map[string][]source.Item)
	for _, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors
		byProvider[pr.File.Provider] = append(byProvider[pr.File.Provider], pr.Items...)
		result.Items = append(result.Items, pr.Items...)
	}

	agg := source.Aggregator{Rates: opts.Rates, Base: opts.Base}
	for provider, items := range byProvider {
		series, clamped, err := agg.Daily(items)
		if err != nil {
			return nil, fmt.Errorf("aggregating %s: %w", provider, err)
		}
		result.Providers[provider] = series
		result.ClampedDays += len(clamped)
	}
	return result, nil
}

func discover(opts LoadOptions) ([]source.DiscoveredFile, error) {
	var files []source.DiscoveredFile
	if opts.DataDir != "" {
		found, err := source.ScanDir(opts.DataDir)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", opts.DataDir, err)
		}
		files = append(files, found...)
	}

	for _, p := range opts.Providers {
		found, err := source.ScanDir(p.Path)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", p.Path, err)
		}
		if found == nil {
			// Not a directory: treat the path as a single export file.
			found = []source.DiscoveredFile{{Path: p.Path, Format: source.FormatFromPath(p.Path)}}
		}
		for i := range found {
			found[i].Provider = strings.ToLower(p.Name)
			found[i].Currency = p.Currency
			if p.Format != "" {
				found[i].Format = source.Format(p.Format)
			}
		}
		files = append(files, found...)
	}

	for _, in := range opts.Inputs {
		stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		files = append(files, source.DiscoveredFile{
			Path:     in,
			Provider: strings.ToLower(stem),
			Format:   source.FormatFromPath(in),
		})
	}
	return files, nil
}

// Series returns one provider's series, or the combined series for "all".
func (r *LoadResult) Series(provider string) (model.DailyCostSeries, error) {
	if provider == "" || provider == AllProviders {
		all := make([]model.DailyCostSeries, 0, len(r.Providers))
		for _, s := range r.Providers {
			all = append(all, s)
		}
		return source.Combine(all...), nil
	}
	s, ok := r.Providers[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownProvider, provider, strings.Join(r.ProviderNames(), ", "))
	}
	return s.Clone(), nil
}

// ProviderNames lists the loaded providers alphabetically.
func (r *LoadResult) ProviderNames() []string {
	names := make([]string, 0, len(r.Providers))
	for name := range r.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
