// Package sequence 维护兄弟记录间的 seq 顺序(阶段、任务、检查项)。
//
// (scope, seq) 上有唯一约束, 交换相邻两条记录必须分三步写入:
// 先把 A 挪到哨兵值, 再把 B 写成 A 原来的 seq, 最后把 A 写成 B 原来的 seq。
// 省掉第一步会在第二步触发唯一键冲突。
package sequence

import (
	"context"
	"fmt"
	"sort"

	pkgErrors "buildbuddy-admin/pkg/errors"
)

// Direction 移动方向
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// DefaultSentinel 哨兵值, 正常 seq 从 1 开始
const DefaultSentinel = -1

// ParseDirection 解析移动方向
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	default:
		return "", pkgErrors.New(pkgErrors.CodeBadRequest, fmt.Sprintf("无效的移动方向: %s", s))
	}
}

// Item 参与排序的记录
type Item struct {
	ID  int64
	Seq int
}

// Step 一次 seq 写入
type Step struct {
	ID  int64
	Seq int
}

// Plan 交换计划, 必须按顺序执行
type Plan struct {
	Steps []Step
}

// Empty 是否无需写入
func (p Plan) Empty() bool {
	return len(p.Steps) == 0
}

// Sort 按 seq 升序排列, seq 相同按 id
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Seq == items[j].Seq {
			return items[i].ID < items[j].ID
		}
		return items[i].Seq < items[j].Seq
	})
}

// Reorder 计算把 id 向 dir 方向移动一位的写入计划
// items 需已按 seq 升序; 位于边界或少于两条时返回 moved=false
func Reorder(items []Item, id int64, dir Direction) (Plan, bool, error) {
	idx := -1
	for i, it := range items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Plan{}, false, pkgErrors.ErrStaleReference
	}
	if len(items) < 2 {
		return Plan{}, false, nil
	}

	var swapIdx int
	switch dir {
	case Up:
		swapIdx = idx - 1
	case Down:
		swapIdx = idx + 1
	default:
		return Plan{}, false, pkgErrors.New(pkgErrors.CodeBadRequest, fmt.Sprintf("无效的移动方向: %s", dir))
	}
	if swapIdx < 0 || swapIdx >= len(items) {
		return Plan{}, false, nil
	}

	a, b := items[idx], items[swapIdx]
	plan := Plan{Steps: []Step{
		{ID: a.ID, Seq: Sentinel(items)},
		{ID: b.ID, Seq: a.Seq},
		{ID: a.ID, Seq: b.Seq},
	}}
	return plan, true, nil
}

// Sentinel 返回一个不与任何现有 seq 冲突的值
func Sentinel(items []Item) int {
	s := DefaultSentinel
	for _, it := range items {
		if it.Seq <= s {
			s = it.Seq - 1
		}
	}
	return s
}

// Next 新记录追加到末尾时使用的 seq
func Next(items []Item) int {
	if len(items) == 0 {
		return 1
	}
	max := items[0].Seq
	for _, it := range items[1:] {
		if it.Seq > max {
			max = it.Seq
		}
	}
	return max + 1
}

// Writer 写入单条记录的 seq
type Writer interface {
	UpdateSeq(ctx context.Context, id int64, seq int) error
}

// WriterFunc 函数适配
type WriterFunc func(ctx context.Context, id int64, seq int) error

func (f WriterFunc) UpdateSeq(ctx context.Context, id int64, seq int) error {
	return f(ctx, id, seq)
}

// Apply 顺序执行计划, 任意一步失败立即返回
func Apply(ctx context.Context, w Writer, plan Plan) error {
	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.UpdateSeq(ctx, step.ID, step.Seq); err != nil {
			return err
		}
	}
	return nil
}

// Simulate 在副本上执行计划并重新排序, 用于返回移动后的结果
func Simulate(items []Item, plan Plan) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	pos := make(map[int64]int, len(out))
	for i, it := range out {
		pos[it.ID] = i
	}
	for _, step := range plan.Steps {
		if i, ok := pos[step.ID]; ok {
			out[i].Seq = step.Seq
		}
	}
	Sort(out)
	return out
}
