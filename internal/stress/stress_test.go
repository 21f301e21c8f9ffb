package stress

import (
	"bytes"
	"log"
	"testing"

	"github.com/cyraxred/redblack/internal/core"
	"github.com/cyraxred/redblack/internal/rbtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (*core.DefaultLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	return &core.DefaultLogger{
		I: log.New(buffer, "[INFO] ", 0),
		W: log.New(buffer, "[WARN] ", 0),
		E: log.New(buffer, "[ERROR] ", 0),
	}, buffer
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultTrees, cfg.Trees)
	assert.Equal(t, DefaultOps, cfg.Ops)
	assert.Equal(t, DefaultKeys, cfg.Keys)
	assert.Equal(t, DefaultVerifyEvery, cfg.VerifyEvery)
	assert.True(t, cfg.Workers > 0)
	assert.True(t, cfg.Workers <= cfg.Trees)
	cfg = Config{Trees: 2, Workers: 16}.withDefaults()
	assert.Equal(t, 2, cfg.Workers)
}

func TestRun(t *testing.T) {
	logger, output := testLogger()
	var calls []int
	report, err := Run(Config{Trees: 4, Ops: 3000, Keys: 200, Seed: 7, VerifyEvery: 250, Workers: 2},
		logger, func(done, total int) {
			assert.Equal(t, 4, total)
			calls = append(calls, done)
		})
	require.NoError(t, err)
	assert.False(t, report.Failed(), "%v", report.Failures)
	assert.Equal(t, []int{1, 2, 3, 4}, calls)
	assert.Equal(t, 4*3000/250, report.Checks)
	assert.Equal(t, 4*3000, report.Inserts+report.Erases+report.Hits+report.Misses+
		report.Extrema+report.Flattens)
	assert.True(t, report.Inserts > 0)
	assert.True(t, report.Erases > 0)
	assert.True(t, report.MaxLen > 0)
	assert.True(t, report.MaxHeight > 0)
	assert.True(t, report.MaxHeight <= rbtree.HeightLimit(report.MaxLen))
	assert.Contains(t, output.String(), "[INFO] running 4 trees x 3000 operations over 200 keys on 2 workers")
	assert.Contains(t, output.String(), "[INFO] all 4 trees passed 48 checks")
}

func TestRunDeterministic(t *testing.T) {
	logger, _ := testLogger()
	cfg := Config{Trees: 3, Ops: 1000, Keys: 50, Seed: 42, VerifyEvery: 100}
	first, err := Run(cfg, logger, nil)
	require.NoError(t, err)
	second, err := Run(cfg, logger, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Counters, second.Counters)
	assert.Equal(t, first.MaxLen, second.MaxLen)
	assert.Equal(t, first.MaxHeight, second.MaxHeight)
}

func TestRunHibernate(t *testing.T) {
	logger, _ := testLogger()
	report, err := Run(Config{Trees: 2, Ops: 2000, Keys: 500, VerifyEvery: 100, Hibernate: true},
		logger, nil)
	require.NoError(t, err)
	assert.False(t, report.Failed(), "%v", report.Failures)
	assert.Equal(t, 2*2000/100, report.Checks)
}

func TestRunNegative(t *testing.T) {
	report, err := Run(Config{Ops: -1}, nil, nil)
	assert.Nil(t, report)
	assert.EqualError(t, err, "negative workload: 0 trees, -1 operations, 0 keys")
}

func TestWorkerRecoversPanics(t *testing.T) {
	w := worker{Config: Config{Ops: 10, Keys: 10, VerifyEvery: 5}.withDefaults()}
	result := w.Process(treeTask{Index: 3, Seed: 1}).(treeResult)
	assert.Equal(t, 3, result.Index)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "tree 3 panicked")
}

func TestWorkerReusesAllocator(t *testing.T) {
	alloc := rbtree.NewAllocator()
	w := worker{Config: Config{Ops: 500, Keys: 100, VerifyEvery: 50}.withDefaults(), Allocator: alloc}
	first := w.Process(treeTask{Seed: 1}).(treeResult)
	require.NoError(t, first.Err)
	size := alloc.Size()
	// only the reserved slot #0 stays in use
	assert.Equal(t, 1, alloc.Used())
	second := w.Process(treeTask{Seed: 1}).(treeResult)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Counters, second.Counters)
	assert.Equal(t, size, alloc.Size())
}

func TestCheck(t *testing.T) {
	tree := rbtree.NewRBTree(rbtree.NewAllocator())
	oracle := &sortedKeys{}
	for _, key := range []rbtree.Key{5, 3, 8, 3} {
		tree.Insert(key)
		oracle.insert(key)
	}
	height, err := check(tree, oracle)
	assert.NoError(t, err)
	assert.Equal(t, 3, height)
	oracle.remove(8)
	_, err = check(tree, oracle)
	assert.EqualError(t, err, "the tree holds 4 keys, expected 3")
	oracle.insert(9)
	_, err = check(tree, oracle)
	assert.EqualError(t, err, "key #3 is 8, expected 9")
}

func TestSortedKeys(t *testing.T) {
	s := &sortedKeys{}
	for _, key := range []rbtree.Key{4, 1, 4, 9, -2} {
		s.insert(key)
	}
	assert.Equal(t, []rbtree.Key{-2, 1, 4, 4, 9}, s.keys)
	assert.True(t, s.contains(4))
	assert.False(t, s.contains(5))
	s.remove(4)
	assert.Equal(t, []rbtree.Key{-2, 1, 4, 9}, s.keys)
	s.remove(-2)
	s.remove(9)
	assert.Equal(t, []rbtree.Key{1, 4}, s.keys)
	assert.Equal(t, 2, s.len())
}
