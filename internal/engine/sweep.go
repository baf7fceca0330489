package engine

import (
	"errors"
	"sync"
)

// RunSweep executes independent configurations in parallel, one run
// per goroutine. Every run owns its own ledger; the shared market data
// is read-only. newStrategy must return a fresh strategy instance per
// run so stateful strategies don't bleed between runs. Results come
// back in config order.
func (e *Engine) RunSweep(cfgs []RunConfig, newStrategy func() Strategy) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		wg.Add(1)
		go func(i int, cfg RunConfig) {
			defer wg.Done()
			results[i], errs[i] = e.Run(cfg, newStrategy())
		}(i, cfg)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}
