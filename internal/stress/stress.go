// Package stress drives red-black trees through long randomized workloads and checks
// every step against a sorted slice.
package stress

import (
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Jeffail/tunny"
	"github.com/cyraxred/redblack/internal/core"
	"github.com/cyraxred/redblack/internal/rbtree"
	"github.com/pkg/errors"
)

// Config tells Run how much work to do.
type Config struct {
	// Trees is the number of independent trees.
	Trees int
	// Ops is the number of random operations applied to each tree.
	Ops int
	// Keys bounds the key space: keys are drawn from [0, Keys).
	Keys int
	// Seed is the random seed of tree #0; tree #i uses Seed+i.
	Seed int64
	// VerifyEvery is the period of the full invariant check, in operations.
	VerifyEvery int
	// Workers is the size of the goroutine pool. Zero means the number of CPUs.
	Workers int
	// Hibernate compresses and restores the worker's allocator at every check.
	Hibernate bool
}

const (
	// DefaultTrees is the default value of Config.Trees.
	DefaultTrees = 8
	// DefaultOps is the default value of Config.Ops.
	DefaultOps = 100000
	// DefaultKeys is the default value of Config.Keys.
	DefaultKeys = 10000
	// DefaultVerifyEvery is the default value of Config.VerifyEvery.
	DefaultVerifyEvery = 1000
)

func (cfg Config) withDefaults() Config {
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultTrees
	}
	if cfg.Ops <= 0 {
		cfg.Ops = DefaultOps
	}
	if cfg.Keys <= 0 {
		cfg.Keys = DefaultKeys
	}
	if cfg.VerifyEvery <= 0 {
		cfg.VerifyEvery = DefaultVerifyEvery
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Workers > cfg.Trees {
		cfg.Workers = cfg.Trees
	}
	return cfg
}

// Counters accumulates what happened to the trees.
type Counters struct {
	Inserts  int
	Erases   int
	Hits     int
	Misses   int
	Extrema  int
	Flattens int
	Checks   int
}

func (c *Counters) add(other Counters) {
	c.Inserts += other.Inserts
	c.Erases += other.Erases
	c.Hits += other.Hits
	c.Misses += other.Misses
	c.Extrema += other.Extrema
	c.Flattens += other.Flattens
	c.Checks += other.Checks
}

// Report is the outcome of Run.
type Report struct {
	Config
	Counters
	// MaxLen is the largest number of keys a single tree held.
	MaxLen int
	// MaxHeight is the largest height observed at a check.
	MaxHeight int
	// Failures lists the errors of the failed trees, ordered by tree number.
	Failures []error
	Elapsed  time.Duration
}

// Failed reports whether any tree went wrong.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

type treeResult struct {
	Index int
	Counters
	MaxLen    int
	MaxHeight int
	Err       error
}

type treeTask struct {
	Index int
	Seed  int64
}

// worker owns an allocator which is shared by all the trees it processes, one at a time.
type worker struct {
	Config    Config
	Allocator *rbtree.Allocator
}

// Process will synchronously run a tree workload and return its treeResult.
func (w worker) Process(data interface{}) interface{} {
	task := data.(treeTask)
	result := treeResult{Index: task.Index}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = errors.Errorf("tree %d panicked: %v", task.Index, r)
			}
		}()
		result.Err = w.run(task, &result)
	}()
	return result
}
func (w worker) BlockUntilReady() {}
func (w worker) Interrupt()       {}
func (w worker) Terminate()       {}

func (w worker) run(task treeTask, result *treeResult) error {
	// a previous failure may have left the allocator hibernated
	w.Allocator.Boot()
	tree := rbtree.NewRBTree(w.Allocator)
	defer tree.Destroy()
	r := rand.New(rand.NewSource(task.Seed))
	oracle := &sortedKeys{}
	for op := 1; op <= w.Config.Ops; op++ {
		if err := w.step(tree, oracle, r, &result.Counters); err != nil {
			return errors.Wrapf(err, "tree %d, operation %d", task.Index, op)
		}
		if tree.Len() > result.MaxLen {
			result.MaxLen = tree.Len()
		}
		if op%w.Config.VerifyEvery != 0 && op != w.Config.Ops {
			continue
		}
		if w.Config.Hibernate {
			w.Allocator.Hibernate()
			w.Allocator.Boot()
		}
		height, err := check(tree, oracle)
		if err != nil {
			return errors.Wrapf(err, "tree %d, operation %d", task.Index, op)
		}
		result.Checks++
		if height > result.MaxHeight {
			result.MaxHeight = height
		}
	}
	return nil
}

// step applies one random operation to the tree and the oracle.
func (w worker) step(tree *rbtree.RBTree, oracle *sortedKeys, r *rand.Rand, counters *Counters) error {
	key := rbtree.Key(r.Intn(w.Config.Keys))
	dice := r.Intn(100)
	switch {
	case dice < 40:
		if n := tree.Insert(key); n.Key() != key {
			return errors.Errorf("inserted %d but the node holds %d", key, n.Key())
		}
		oracle.insert(key)
		counters.Inserts++
	case dice < 65:
		n, found := tree.Find(key)
		if found != oracle.contains(key) {
			return errors.Errorf("erase: Find(%d) = %v while the key is present = %v",
				key, found, oracle.contains(key))
		}
		if !found {
			counters.Misses++
			return nil
		}
		tree.Erase(n)
		oracle.remove(key)
		counters.Erases++
	case dice < 85:
		n, found := tree.Find(key)
		if found != oracle.contains(key) {
			return errors.Errorf("Find(%d) = %v while the key is present = %v",
				key, found, oracle.contains(key))
		}
		if found {
			if n.Key() != key {
				return errors.Errorf("Find(%d) returned a node holding %d", key, n.Key())
			}
			counters.Hits++
		} else {
			counters.Misses++
		}
	case dice < 95:
		first, firstOk := tree.Min()
		last, lastOk := tree.Max()
		if firstOk != (oracle.len() > 0) || lastOk != firstOk {
			return errors.Errorf("Min/Max report presence %v/%v on %d keys", firstOk, lastOk, oracle.len())
		}
		if firstOk && (first.Key() != oracle.keys[0] || last.Key() != oracle.keys[oracle.len()-1]) {
			return errors.Errorf("Min/Max = %d/%d, expected %d/%d",
				first.Key(), last.Key(), oracle.keys[0], oracle.keys[oracle.len()-1])
		}
		counters.Extrema++
	default:
		buf := make([]rbtree.Key, r.Intn(oracle.len()+2))
		written := tree.Flatten(buf)
		expected := len(buf)
		if oracle.len() < expected {
			expected = oracle.len()
		}
		if written != expected {
			return errors.Errorf("Flatten wrote %d keys into %d slots, expected %d", written, len(buf), expected)
		}
		for i := 0; i < written; i++ {
			if buf[i] != oracle.keys[i] {
				return errors.Errorf("Flatten: key #%d is %d, expected %d", i, buf[i], oracle.keys[i])
			}
		}
		counters.Flattens++
	}
	return nil
}

// check runs the full invariant verification and compares the contents with the oracle.
// It returns the height of the tree.
func check(tree *rbtree.RBTree, oracle *sortedKeys) (int, error) {
	if err := tree.Verify(); err != nil {
		return 0, err
	}
	if tree.Len() != oracle.len() {
		return 0, errors.Errorf("the tree holds %d keys, expected %d", tree.Len(), oracle.len())
	}
	keys := tree.Keys()
	for i, key := range keys {
		if key != oracle.keys[i] {
			return 0, errors.Errorf("key #%d is %d, expected %d", i, key, oracle.keys[i])
		}
	}
	height := tree.Height()
	if limit := rbtree.HeightLimit(tree.Len()); height > limit {
		return 0, errors.Errorf("height %d exceeds %d for %d keys", height, limit, tree.Len())
	}
	return height, nil
}

// Run executes the workload described by cfg. progress, if not nil, is called after
// each finished tree. The returned error is only set when the run could not start;
// failing trees are listed in Report.Failures.
func Run(cfg Config, logger core.Logger, progress func(done, total int)) (*Report, error) {
	if cfg.Ops < 0 || cfg.Trees < 0 || cfg.Keys < 0 {
		return nil, errors.Errorf("negative workload: %d trees, %d operations, %d keys",
			cfg.Trees, cfg.Ops, cfg.Keys)
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = core.NewLogger()
	}
	logger.Infof("running %d trees x %d operations over %d keys on %d workers",
		cfg.Trees, cfg.Ops, cfg.Keys, cfg.Workers)
	start := time.Now()
	pool := tunny.New(cfg.Workers, func() tunny.Worker {
		alloc := rbtree.NewAllocator()
		alloc.HibernationThreshold = 1
		return worker{Config: cfg, Allocator: alloc}
	})
	defer pool.Close()

	report := &Report{Config: cfg}
	results := make([]treeResult, cfg.Trees)
	lock := sync.Mutex{}
	done := 0
	wg := sync.WaitGroup{}
	wg.Add(cfg.Trees)
	for i := 0; i < cfg.Trees; i++ {
		go func(task treeTask) {
			defer wg.Done()
			result := pool.Process(task).(treeResult)
			lock.Lock()
			defer lock.Unlock()
			results[result.Index] = result
			done++
			if result.Err != nil {
				logger.Error(result.Err)
			}
			if progress != nil {
				progress(done, cfg.Trees)
			}
		}(treeTask{Index: i, Seed: cfg.Seed + int64(i)})
	}
	wg.Wait()
	for _, result := range results {
		report.add(result.Counters)
		if result.MaxLen > report.MaxLen {
			report.MaxLen = result.MaxLen
		}
		if result.MaxHeight > report.MaxHeight {
			report.MaxHeight = result.MaxHeight
		}
		if result.Err != nil {
			report.Failures = append(report.Failures, result.Err)
		}
	}
	report.Elapsed = time.Since(start)
	if report.Failed() {
		logger.Warnf("%d trees out of %d failed", len(report.Failures), cfg.Trees)
	} else {
		logger.Infof("all %d trees passed %d checks", cfg.Trees, report.Checks)
	}
	return report, nil
}

// sortedKeys is the reference multiset.
type sortedKeys struct {
	keys []rbtree.Key
}

func (s *sortedKeys) len() int {
	return len(s.keys)
}

func (s *sortedKeys) search(key rbtree.Key) int {
	return sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= key })
}

func (s *sortedKeys) contains(key rbtree.Key) bool {
	i := s.search(key)
	return i < len(s.keys) && s.keys[i] == key
}

func (s *sortedKeys) insert(key rbtree.Key) {
	i := s.search(key)
	s.keys = append(s.keys, 0)
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = key
}

func (s *sortedKeys) remove(key rbtree.Key) {
	i := s.search(key)
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
}
