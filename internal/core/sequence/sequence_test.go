package sequence

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgErrors "buildbuddy-admin/pkg/errors"
)

func items(seqs ...int) []Item {
	out := make([]Item, len(seqs))
	for i, s := range seqs {
		out[i] = Item{ID: int64(i + 1), Seq: s}
	}
	return out
}

func seqsOf(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Seq
	}
	sort.Ints(out)
	return out
}

func TestReorderUpSwapsWithPrevious(t *testing.T) {
	list := items(1, 2, 3)

	plan, moved, err := Reorder(list, 2, Up)
	require.NoError(t, err)
	require.True(t, moved)

	assert.Equal(t, []Step{
		{ID: 2, Seq: -1},
		{ID: 1, Seq: 2},
		{ID: 2, Seq: 1},
	}, plan.Steps)

	after := Simulate(list, plan)
	assert.Equal(t, []int64{2, 1, 3}, []int64{after[0].ID, after[1].ID, after[2].ID})
}

func TestReorderDownSwapsWithNext(t *testing.T) {
	list := items(10, 20, 30)

	plan, moved, err := Reorder(list, 2, Down)
	require.NoError(t, err)
	require.True(t, moved)

	after := Simulate(list, plan)
	assert.Equal(t, []int64{1, 3, 2}, []int64{after[0].ID, after[1].ID, after[2].ID})
	assert.Equal(t, []int{10, 20, 30}, seqsOf(after))
}

func TestReorderPermutationInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 2 + r.Intn(10)
		seqs := make([]int, n)
		cur := r.Intn(5)
		for i := range seqs {
			cur += 1 + r.Intn(4) // 严格递增, 允许空洞
			seqs[i] = cur
		}
		list := items(seqs...)
		i := 1 + r.Intn(n-1)
		movedID, prevID := list[i].ID, list[i-1].ID

		plan, moved, err := Reorder(list, movedID, Up)
		require.NoError(t, err)
		require.True(t, moved)

		after := Simulate(list, plan)
		assert.Equal(t, seqsOf(list), seqsOf(after), "seq 多重集合不变")

		pos := map[int64]int{}
		seen := map[int]bool{}
		for k, it := range after {
			pos[it.ID] = k
			assert.False(t, seen[it.Seq], "seq 不重复")
			seen[it.Seq] = true
		}
		assert.Less(t, pos[movedID], pos[prevID])
	}
}

func TestReorderBoundaryNoop(t *testing.T) {
	list := items(1, 2, 3)

	plan, moved, err := Reorder(list, 1, Up)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.True(t, plan.Empty())

	plan, moved, err = Reorder(list, 3, Down)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.True(t, plan.Empty())

	assert.Equal(t, []int{1, 2, 3}, seqsOf(Simulate(list, plan)))
}

func TestReorderSingleItemNoop(t *testing.T) {
	plan, moved, err := Reorder(items(7), 1, Down)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.True(t, plan.Empty())
}

func TestReorderUnknownID(t *testing.T) {
	_, _, err := Reorder(items(1, 2), 99, Up)
	assert.ErrorIs(t, err, pkgErrors.ErrStaleReference)
}

func TestReorderInvalidDirection(t *testing.T) {
	_, _, err := Reorder(items(1, 2), 1, Direction("left"))
	assert.Error(t, err)
}

func TestSentinelAvoidsNegativeSeqs(t *testing.T) {
	assert.Equal(t, -1, Sentinel(items(1, 2)))
	assert.Equal(t, -4, Sentinel(items(-3, 0, 5)))
	assert.Equal(t, -2, Sentinel(items(-1, 2)))
}

func TestNextAppends(t *testing.T) {
	assert.Equal(t, 1, Next(nil))
	assert.Equal(t, 8, Next(items(3, 7, 2)))
	assert.Equal(t, 5, Next(items(1, 4))) // 删除后留下的空洞不复用
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("up")
	require.NoError(t, err)
	assert.Equal(t, Up, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

type recorder struct {
	steps  []Step
	failAt int
}

func (r *recorder) UpdateSeq(_ context.Context, id int64, seq int) error {
	if r.failAt > 0 && len(r.steps)+1 == r.failAt {
		return errors.New("write failed")
	}
	r.steps = append(r.steps, Step{ID: id, Seq: seq})
	return nil
}

func TestApplyWritesInOrder(t *testing.T) {
	plan, _, err := Reorder(items(1, 2), 2, Up)
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, Apply(context.Background(), rec, plan))
	assert.Equal(t, plan.Steps, rec.steps)
	assert.Equal(t, -1, rec.steps[0].Seq, "哨兵写入必须最先执行")
}

func TestApplyStopsOnFailure(t *testing.T) {
	plan, _, err := Reorder(items(1, 2), 2, Up)
	require.NoError(t, err)

	rec := &recorder{failAt: 2}
	err = Apply(context.Background(), rec, plan)
	assert.Error(t, err)
	assert.Len(t, rec.steps, 1)
}

func TestApplyHonoursCancelledContext(t *testing.T) {
	plan, _, err := Reorder(items(1, 2), 1, Down)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	assert.ErrorIs(t, Apply(ctx, rec, plan), context.Canceled)
	assert.Empty(t, rec.steps)
}

func TestWriterFunc(t *testing.T) {
	var got []Step
	w := WriterFunc(func(_ context.Context, id int64, seq int) error {
		got = append(got, Step{ID: id, Seq: seq})
		return nil
	})
	require.NoError(t, Apply(context.Background(), w, Plan{Steps: []Step{{ID: 1, Seq: 3}}}))
	assert.Equal(t, []Step{{ID: 1, Seq: 3}}, got)
}
