package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionhelper/internal/types"
)

// memTarget keeps content in memory and can fail a chosen append.
type memTarget struct {
	items   []types.TodoItem
	appends int
	failAt  int // 1-based append number that fails; 0 never
}

func (m *memTarget) Name() string { return "mem" }

func (m *memTarget) Snapshot(context.Context) ([]types.TodoItem, error) {
	return m.items, nil
}

func (m *memTarget) Append(_ context.Context, op Op) error {
	m.appends++
	if m.appends == m.failAt {
		return types.Connectivity("notion", "append", errors.New("502 bad gateway"))
	}
	if op.Parent == nil {
		m.items = append(m.items, op.Item)
		return nil
	}
	if !appendAt(m.items, op.ParentPath, op.Item) {
		return &types.WriteConflictError{Target: "mem", Detail: "parent missing"}
	}
	return nil
}

func appendAt(items []types.TodoItem, path []string, item types.TodoItem) bool {
	for i := range items {
		if Fingerprint("", items[i]) != path[0] {
			continue
		}
		if len(path) == 1 {
			items[i].Children = append(items[i].Children, item)
			return true
		}
		if appendAt(items[i].Children, path[1:], item) {
			return true
		}
	}
	return false
}

func item(text string, done bool, children ...types.TodoItem) types.TodoItem {
	return types.TodoItem{Text: text, Completed: done, Kind: types.KindTodo, Children: children}
}

func heading(text string, children ...types.TodoItem) types.TodoItem {
	return types.TodoItem{Text: text, Kind: types.KindHeading, Children: children}
}

// outline renders trees as "depth|text|done" lines.
func outline(items []types.TodoItem) []string {
	var out []string
	var walk func(depth int, items []types.TodoItem)
	walk = func(depth int, items []types.TodoItem) {
		for _, it := range items {
			out = append(out, fmt.Sprintf("%d|%s|%v", depth, it.DisplayText(), it.Completed))
			walk(depth+1, it.Children)
		}
	}
	walk(0, items)
	return out
}

func batch() []types.TodoItem {
	return []types.TodoItem{
		{Text: "[adr] Task A", Prefix: "adr", Kind: types.KindTodo, Children: []types.TodoItem{
			{Text: "Subtask A1", Completed: true, Depth: 1, Kind: types.KindTodo},
		}},
		item("Task B", true, item("B1", false, item("B1a", true)), item("B2", false)),
		item("Task C", false),
	}
}

func TestFingerprint_PathScoped(t *testing.T) {
	a := Fingerprint(Fingerprint("", item("Root A", false)), item("  same   leaf", false))
	b := Fingerprint(Fingerprint("", item("Root B", false)), item("same leaf", false))
	assert.NotEqual(t, a, b)
	assert.Equal(t, []string{"Root A", "same leaf"}, Path(a))

	assert.Equal(t, Fingerprint("", item("[adr] Task A", false)), Fingerprint("", item("- [x] Task A", true)))
}

func TestPlan_SkipsPresentRootsWithSubtree(t *testing.T) {
	existing := []types.TodoItem{item("Task A", false)}
	candidates := []types.TodoItem{
		item("[adr] Task A", false, item("new child", false)),
		item("Task D", false, item("D1", false)),
	}
	got := Plan(existing, candidates)
	require.Len(t, got, 1)
	assert.Equal(t, "Task D", got[0].Text)
	assert.Len(t, got[0].Children, 1)
}

func TestPlan_IdenticalLeavesUnderDifferentRoots(t *testing.T) {
	existing := []types.TodoItem{item("Root A", false, item("leaf", false))}
	candidates := []types.TodoItem{item("Root B", false, item("leaf", false))}
	assert.Len(t, Plan(existing, candidates), 1)
}

func TestPlan_SuppressesDuplicatesWithinBatch(t *testing.T) {
	candidates := []types.TodoItem{item("Task A", false), item("[adr]   Task A", true), item("Task B", false)}
	got := Plan(nil, candidates)
	require.Len(t, got, 2)
	assert.Equal(t, "Task A", got[0].Text)
	assert.Equal(t, "Task B", got[1].Text)
}

func TestEngine_ExampleTaskA(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "adr.md")
	target := NewFileTarget(path)
	e := &Engine{}

	in := []types.TodoItem{batch()[0]}
	res, err := e.Apply(ctx, target, in)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, 2, res.Items)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "- [ ] Task A\n  - [x] Subtask A1\n", string(data))

	res, err = e.Apply(ctx, target, in)
	require.NoError(t, err)
	assert.Zero(t, res.Appended)
	assert.Equal(t, 2, res.Skipped)
}

func TestEngine_Idempotence(t *testing.T) {
	ctx := context.Background()
	e := &Engine{}

	once := &memTarget{}
	_, err := e.Apply(ctx, once, batch())
	require.NoError(t, err)

	twice := &memTarget{}
	_, err = e.Apply(ctx, twice, batch())
	require.NoError(t, err)
	res, err := e.Apply(ctx, twice, batch())
	require.NoError(t, err)

	assert.Zero(t, res.Appended)
	if diff := cmp.Diff(outline(once.items), outline(twice.items)); diff != "" {
		t.Errorf("second apply changed target (-once +twice):\n%s", diff)
	}
}

func TestEngine_ConvergesFromPartialState(t *testing.T) {
	ctx := context.Background()
	e := &Engine{}

	scratch := &memTarget{}
	_, err := e.Apply(ctx, scratch, batch())
	require.NoError(t, err)

	// a prior run wrote only the first root
	partial := &memTarget{items: []types.TodoItem{batch()[0]}}
	res, err := e.Apply(ctx, partial, batch())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Appended)

	if diff := cmp.Diff(outline(scratch.items), outline(partial.items)); diff != "" {
		t.Errorf("partial target did not converge (-scratch +partial):\n%s", diff)
	}
}

func TestEngine_HierarchyPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.md")
	target := NewFileTarget(path)
	_, err := (&Engine{}).Apply(context.Background(), target, batch())
	require.NoError(t, err)

	got, err := NewFileTarget(path).Snapshot(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(outline(batch()), outline(got)); diff != "" {
		t.Errorf("hierarchy mismatch (-want +got):\n%s", diff)
	}
	for _, it := range got {
		assert.NoError(t, it.Validate())
	}
}

func TestEngine_PartialWriteFailureThenRerun(t *testing.T) {
	ctx := context.Background()
	e := &Engine{}
	target := &memTarget{failAt: 2}

	res, err := e.Apply(ctx, target, batch())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConnectivity)
	// first write stays; nothing rolled back
	assert.Equal(t, 1, res.Appended)
	assert.Len(t, target.items, 1)

	res, err = e.Apply(ctx, target, batch())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Appended)
	assert.Equal(t, outline(batch()), outline(target.items))
}

func TestEngine_DryRunDoesNotWrite(t *testing.T) {
	target := &memTarget{}
	res, err := (&Engine{DryRun: true}).Apply(context.Background(), target, batch())
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 3, res.Planned)
	assert.Zero(t, res.Appended)
	assert.Zero(t, target.appends)
}

func TestEngine_CanceledContextStopsBeforeWriting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	target := &memTarget{}
	_, err := (&Engine{}).Apply(ctx, target, batch())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, target.appends)
}

func TestEngine_MergeAddsMissingChildren(t *testing.T) {
	ctx := context.Background()
	target := &memTarget{items: []types.TodoItem{
		heading("Monday, June 10", item("09:00: Standup", false)),
	}}
	candidates := []types.TodoItem{
		heading("Monday, June 10", item("09:00: Standup", false), item("14:00-15:00: Review", false)),
		heading("Tuesday, June 11", item("Holiday", false)),
	}

	plain, err := (&Engine{DryRun: true}).Apply(ctx, target, candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, plain.Planned)

	res, err := (&Engine{Merge: true}).Apply(ctx, target, candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Appended)
	require.NotNil(t, res.Ops[0].Parent)
	assert.Equal(t, []string{"Monday, June 10"}, res.Ops[0].ParentPath)
	assert.Equal(t, 1, res.Ops[0].Item.Depth)

	want := []string{
		"0|Monday, June 10|false",
		"1|09:00: Standup|false",
		"1|14:00-15:00: Review|false",
		"0|Tuesday, June 11|false",
		"1|Holiday|false",
	}
	assert.Equal(t, want, outline(target.items))

	again, err := (&Engine{Merge: true}).Apply(ctx, target, candidates)
	require.NoError(t, err)
	assert.Zero(t, again.Appended)
}

// splitTarget writes a root and its children in separate appends.
type splitTarget struct{ *memTarget }

func (splitTarget) SplitAppends() bool { return true }

func TestEngine_SplitTargetCompletesPartialRoot(t *testing.T) {
	ctx := context.Background()
	// a previous run wrote the root and died before its children
	partial := []types.TodoItem{item("Task A", false)}
	candidates := []types.TodoItem{item("Task A", false, item("Subtask A1", true))}

	plain := &memTarget{items: append([]types.TodoItem(nil), partial...)}
	res, err := (&Engine{}).Apply(ctx, plain, candidates)
	require.NoError(t, err)
	assert.Zero(t, res.Appended)

	split := splitTarget{&memTarget{items: append([]types.TodoItem(nil), partial...)}}
	res, err = (&Engine{}).Apply(ctx, split, candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, []string{"0|Task A|false", "1|Subtask A1|true"}, outline(split.items))
}

// Manual edits reset dedup state for the edited item. Both directions are
// pinned here rather than assumed.
func TestEngine_ManualEditsResetDedup(t *testing.T) {
	ctx := context.Background()
	e := &Engine{}

	t.Run("edited text is copied again", func(t *testing.T) {
		target := &memTarget{items: []types.TodoItem{item("Task A (renamed by hand)", false)}}
		res, err := e.Apply(ctx, target, []types.TodoItem{item("Task A", false)})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Appended)
		assert.Len(t, target.items, 2)
	})

	t.Run("deleted item is copied again", func(t *testing.T) {
		target := &memTarget{}
		_, err := e.Apply(ctx, target, []types.TodoItem{item("Task A", false)})
		require.NoError(t, err)
		target.items = nil

		res, err := e.Apply(ctx, target, []types.TodoItem{item("Task A", false)})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Appended)
	})

	t.Run("checkbox toggled by hand is still a duplicate", func(t *testing.T) {
		target := &memTarget{items: []types.TodoItem{item("Task A", true)}}
		res, err := e.Apply(ctx, target, []types.TodoItem{item("Task A", false)})
		require.NoError(t, err)
		assert.Zero(t, res.Appended)
	})
}
