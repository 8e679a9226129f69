package notion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionhelper/internal/reconcile"
	"notionhelper/internal/todo"
	"notionhelper/internal/types"
)

// fakeNotion keeps a block tree and a project database in memory. Every
// append moves the page's last_edited_time like the real API does.
type fakeNotion struct {
	children map[string][]notionapi.Block
	blocks   map[string]notionapi.Block
	perPage  int
	nextID   int
	edited   time.Time
	appends  int
	dbPages  []notionapi.Page
	created  []string
	meErr    error
	// failAppend is the 1-based AppendChildren call that fails; 0 never.
	failAppend int
}

func newFake() *fakeNotion {
	return &fakeNotion{
		children: make(map[string][]notionapi.Block),
		blocks:   make(map[string]notionapi.Block),
		perPage:  2,
		edited:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeNotion) client() *Client {
	return &Client{Blocks: f, Pages: fakePages{f}, Databases: fakeDatabases{f}, Users: fakeUsers{f}}
}

func setCursor[T ~string](dst *T, s string) { *dst = T(s) }

func basicOf(b notionapi.Block) *notionapi.BasicBlock {
	switch v := b.(type) {
	case *notionapi.ToDoBlock:
		return &v.BasicBlock
	case *notionapi.ToggleBlock:
		return &v.BasicBlock
	case *notionapi.BulletedListItemBlock:
		return &v.BasicBlock
	case *notionapi.Heading3Block:
		return &v.BasicBlock
	case *notionapi.ParagraphBlock:
		return &v.BasicBlock
	}
	panic(fmt.Sprintf("unexpected block %T", b))
}

func (f *fakeNotion) GetChildren(_ context.Context, id notionapi.BlockID, p *notionapi.Pagination) (*notionapi.GetChildrenResponse, error) {
	all := f.children[string(id)]
	start := 0
	if p != nil && p.StartCursor != "" {
		start, _ = strconv.Atoi(string(p.StartCursor))
	}
	end := min(start+f.perPage, len(all))
	resp := &notionapi.GetChildrenResponse{Results: all[start:end], HasMore: end < len(all)}
	if resp.HasMore {
		setCursor(&resp.NextCursor, strconv.Itoa(end))
	}
	return resp, nil
}

func (f *fakeNotion) AppendChildren(_ context.Context, id notionapi.BlockID, req *notionapi.AppendBlockChildrenRequest) (*notionapi.AppendBlockChildrenResponse, error) {
	f.appends++
	if f.appends == f.failAppend {
		return nil, errors.New("network down")
	}
	for _, b := range req.Children {
		f.nextID++
		bid := "blk" + strconv.Itoa(f.nextID)
		basicOf(b).ID = notionapi.BlockID(bid)
		f.blocks[bid] = b
	}
	f.children[string(id)] = append(f.children[string(id)], req.Children...)
	if parent, ok := f.blocks[string(id)]; ok {
		basicOf(parent).HasChildren = true
	}
	f.edited = f.edited.Add(time.Minute)
	return &notionapi.AppendBlockChildrenResponse{Results: req.Children}, nil
}

// add puts a block on the tree without touching last_edited_time.
func (f *fakeNotion) add(parent string, b notionapi.Block) string {
	f.nextID++
	bid := "seed" + strconv.Itoa(f.nextID)
	basicOf(b).ID = notionapi.BlockID(bid)
	f.blocks[bid] = b
	f.children[parent] = append(f.children[parent], b)
	if p, ok := f.blocks[parent]; ok {
		basicOf(p).HasChildren = true
	}
	return bid
}

type fakePages struct{ f *fakeNotion }

func (p fakePages) Get(_ context.Context, id notionapi.PageID) (*notionapi.Page, error) {
	if id == "missing" {
		return nil, errors.New("object_not_found")
	}
	return &notionapi.Page{ID: notionapi.ObjectID(id), LastEditedTime: p.f.edited}, nil
}

func (p fakePages) Create(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	title := req.Properties[TitleProperty].(notionapi.TitleProperty)
	name := plainText(title.Title)
	p.f.created = append(p.f.created, name)
	return &notionapi.Page{ID: notionapi.ObjectID("page-" + name)}, nil
}

type fakeDatabases struct{ f *fakeNotion }

func (d fakeDatabases) Get(_ context.Context, id notionapi.DatabaseID) (*notionapi.Database, error) {
	return &notionapi.Database{Title: richText("Projects")}, nil
}

func (d fakeDatabases) Query(_ context.Context, _ notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	start := 0
	if req.StartCursor != "" {
		start, _ = strconv.Atoi(string(req.StartCursor))
	}
	end := min(start+2, len(d.f.dbPages))
	resp := &notionapi.DatabaseQueryResponse{Results: d.f.dbPages[start:end], HasMore: end < len(d.f.dbPages)}
	if resp.HasMore {
		setCursor(&resp.NextCursor, strconv.Itoa(end))
	}
	return resp, nil
}

type fakeUsers struct{ f *fakeNotion }

func (u fakeUsers) Me(context.Context) (*notionapi.User, error) {
	if u.f.meErr != nil {
		return nil, u.f.meErr
	}
	return &notionapi.User{Name: "Helper Bot"}, nil
}

func titled(id, name string) notionapi.Page {
	return notionapi.Page{
		ID:         notionapi.ObjectID(id),
		Properties: notionapi.Properties{TitleProperty: &notionapi.TitleProperty{Title: richText(name)}},
	}
}

func todoBlock(text string, checked bool) *notionapi.ToDoBlock {
	return ToAPI(types.TodoItem{Text: text, Completed: checked}).(*notionapi.ToDoBlock)
}

// shape renders a tree as indented "kind text" lines for diffs.
func shape(items []types.TodoItem) []string {
	var out []string
	var walk func(items []types.TodoItem, indent string)
	walk = func(items []types.TodoItem, indent string) {
		for _, it := range items {
			out = append(out, fmt.Sprintf("%s%s %s", indent, it.Kind, it.Text))
			walk(it.Children, indent+"  ")
		}
	}
	walk(items, "")
	return out
}

func TestFetcher_PaginatesAndConverts(t *testing.T) {
	f := newFake()
	f.add("page", todoBlock("[adr] Task A", false))
	toggle := f.add("page", ToAPI(types.TodoItem{Text: "2024-06-03", Kind: types.KindHeading, Children: []types.TodoItem{{}}}))
	f.add(toggle, todoBlock("inside", true))
	f.add("page", ToAPI(types.TodoItem{Text: "note", Kind: types.KindBullet}))

	got, err := (&Fetcher{Blocks: f}).Children(context.Background(), "page")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, todo.Block{ID: got[0].ID, Type: todo.BlockToDo, Text: "[adr] Task A"}, got[0])
	assert.Equal(t, todo.BlockToggle, got[1].Type)
	assert.True(t, got[1].HasChildren)
	assert.Equal(t, todo.BlockBulleted, got[2].Type)

	items, parseErrs, err := todo.ParseBlocks(context.Background(), &Fetcher{Blocks: f}, "page", todo.BlockOptions{Location: time.UTC})
	require.NoError(t, err)
	assert.Empty(t, parseErrs)
	require.Len(t, items, 2)
	assert.Equal(t, "adr", items[0].Prefix)
	assert.True(t, items[1].Completed)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), items[1].Date)
}

func TestToAPI(t *testing.T) {
	tests := []struct {
		name string
		item types.TodoItem
		want notionapi.BlockType
	}{
		{name: "todo", item: types.TodoItem{Text: "a"}, want: notionapi.BlockTypeToDo},
		{name: "bullet", item: types.TodoItem{Text: "a", Kind: types.KindBullet}, want: notionapi.BlockTypeBulletedListItem},
		{name: "heading without children", item: types.TodoItem{Text: "a", Kind: types.KindHeading}, want: notionapi.BlockTypeHeading3},
		{name: "heading with children", item: types.TodoItem{Text: "a", Kind: types.KindHeading, Children: []types.TodoItem{{Text: "b"}}}, want: notionapi.BlockTypeToggle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToAPI(tt.item).GetType())
		})
	}

	done := ToAPI(types.TodoItem{Text: "x", Completed: true}).(*notionapi.ToDoBlock)
	assert.True(t, done.ToDo.Checked)

	tagged := ToAPI(types.TodoItem{Text: "[adr] Task A", Prefix: "adr"}).(*notionapi.ToDoBlock)
	assert.Equal(t, "Task A", plainText(tagged.ToDo.RichText))
}

func TestRichText_Splits(t *testing.T) {
	long := strings.Repeat("é", 1500) // 3000 bytes
	parts := richText(long)
	require.Len(t, parts, 2)
	assert.Equal(t, long, plainText(parts))
	for _, p := range parts {
		assert.LessOrEqual(t, len(p.Text.Content), maxTextLen)
	}
}

func TestPageTarget_SummaryIsIdempotent(t *testing.T) {
	f := newFake()
	target := NewPageTarget(f.client(), "page", "adr", time.UTC)
	summary := types.TodoItem{
		Text: "Weekly Update - June 03, 2024 Week", Kind: types.KindHeading,
		Children: []types.TodoItem{{
			Text: "Monday, June 03", Kind: types.KindHeading, Depth: 1,
			Children: []types.TodoItem{
				{Text: "Decide storage", Kind: types.KindBullet, Depth: 2},
				{Text: "Review ADR", Kind: types.KindBullet, Depth: 2},
			},
		}},
	}
	engine := &reconcile.Engine{}

	res, err := engine.Apply(context.Background(), target, []types.TodoItem{summary})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, 4, res.Items)
	// one request per level
	assert.Equal(t, 3, f.appends)

	snap, err := target.Snapshot(context.Background())
	require.NoError(t, err)
	want := []string{
		"heading Weekly Update - June 03, 2024 Week",
		"  heading Monday, June 03",
		"    bullet Decide storage",
		"    bullet Review ADR",
	}
	if diff := cmp.Diff(want, shape(snap)); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	res, err = engine.Apply(context.Background(), target, []types.TodoItem{summary})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Appended)
	assert.Equal(t, 3, f.appends)
}

func TestPageTarget_SequentialAppendsDoNotConflict(t *testing.T) {
	f := newFake()
	target := NewPageTarget(f.client(), "page", "", time.UTC)

	res, err := (&reconcile.Engine{}).Apply(context.Background(), target, []types.TodoItem{
		{Text: "[adr] Task A", Prefix: "adr", Children: []types.TodoItem{{Text: "Subtask A1", Completed: true, Depth: 1}}},
		{Text: "[adr] Task B", Prefix: "adr"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Appended)
	assert.Equal(t, "notion:page", target.Name())

	snap, err := target.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"todo Task A", "  todo Subtask A1", "todo Task B"}, shape(snap))
	assert.True(t, snap[0].Children[0].Completed)

	// the stripped tag still dedups against tagged candidates
	res, err = (&reconcile.Engine{}).Apply(context.Background(), target, []types.TodoItem{
		{Text: "[adr] Task B", Prefix: "adr"},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Appended)
}

func TestPageTarget_RerunCompletesInterruptedTree(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	// the root is written, the request for its children fails
	f.failAppend = 2
	target := NewPageTarget(f.client(), "page", "adr", time.UTC)
	task := []types.TodoItem{{
		Text: "[adr] Task A", Prefix: "adr",
		Children: []types.TodoItem{{Text: "Subtask A1", Depth: 1}},
	}}
	engine := &reconcile.Engine{}

	_, err := engine.Apply(ctx, target, task)
	require.ErrorIs(t, err, types.ErrConnectivity)
	snap, err := target.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"todo Task A"}, shape(snap))

	f.failAppend = 0
	res, err := engine.Apply(ctx, target, task)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)

	snap, err = target.Snapshot(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"todo Task A", "  todo Subtask A1"}, shape(snap)); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	again, err := engine.Apply(ctx, target, task)
	require.NoError(t, err)
	assert.Zero(t, again.Appended)
}

func TestPageTarget_Conflict(t *testing.T) {
	f := newFake()
	target := NewPageTarget(f.client(), "page", "", time.UTC)
	_, err := target.Snapshot(context.Background())
	require.NoError(t, err)

	// someone edits the page
	f.edited = f.edited.Add(time.Hour)

	err = target.Append(context.Background(), reconcile.Op{Item: types.TodoItem{Text: "x"}})
	assert.ErrorIs(t, err, types.ErrWriteConflict)
	assert.Equal(t, 0, f.appends)
}

func TestPageTarget_AppendBeforeSnapshot(t *testing.T) {
	f := newFake()
	target := NewPageTarget(f.client(), "page", "", time.UTC)
	err := target.Append(context.Background(), reconcile.Op{Item: types.TodoItem{Text: "x"}})
	assert.Error(t, err)
}

func TestPageTarget_MergeUnderExistingBlock(t *testing.T) {
	f := newFake()
	day := f.add("page", ToAPI(types.TodoItem{Text: "Monday, June 03, 2024", Kind: types.KindHeading, Children: []types.TodoItem{{}}}))
	f.add(day, todoBlock("09:00-10:00: Standup (Work)", false))
	target := NewPageTarget(f.client(), "page", "daily log", time.UTC)

	// the same event on two calendars stays two entries
	tree := types.TodoItem{
		Text: "Monday, June 03, 2024", Kind: types.KindHeading,
		Children: []types.TodoItem{
			{Text: "09:00-10:00: Standup (Work)", Depth: 1},
			{Text: "14:00: Review (Work)", Depth: 1},
			{Text: "14:00: Review (Home)", Depth: 1},
		},
	}
	res, err := (&reconcile.Engine{}).Apply(context.Background(), target, []types.TodoItem{tree})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Appended)

	var got []string
	for _, b := range f.children[day] {
		got = append(got, FromAPI(b).Text)
	}
	assert.Equal(t, []string{"09:00-10:00: Standup (Work)", "14:00: Review (Work)", "14:00: Review (Home)"}, got)
	assert.Len(t, f.children["page"], 1)

	again, err := (&reconcile.Engine{}).Apply(context.Background(), target, []types.TodoItem{tree})
	require.NoError(t, err)
	assert.Zero(t, again.Appended)
}

func TestPageTarget_SnapshotError(t *testing.T) {
	f := newFake()
	target := NewPageTarget(f.client(), "missing", "", time.UTC)
	_, err := target.Snapshot(context.Background())
	assert.ErrorIs(t, err, types.ErrConnectivity)
}

func TestProjectDB(t *testing.T) {
	f := newFake()
	f.dbPages = []notionapi.Page{
		titled("p1", "[adr] Architecture"),
		titled("p2", "  "),
		titled("p3", "[inf] Infrastructure"),
	}
	db := &ProjectDB{Client: f.client(), DatabaseID: "db"}

	projects, err := db.List(context.Background())
	require.NoError(t, err)
	want := []types.Project{
		{Name: "[adr] Architecture", Prefix: "adr", Target: "p1"},
		{Name: "[inf] Infrastructure", Prefix: "inf", Target: "p3"},
	}
	if diff := cmp.Diff(want, projects); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	found, err := db.FindOrCreate(context.Background(), "[inf] Infrastructure")
	require.NoError(t, err)
	assert.Equal(t, "p3", found.Target)
	assert.Empty(t, f.created)

	created, err := db.FindOrCreate(context.Background(), "[new] Fresh")
	require.NoError(t, err)
	assert.Equal(t, []string{"[new] Fresh"}, f.created)
	assert.Equal(t, "new", created.Prefix)
	assert.Equal(t, "page-[new] Fresh", created.Target)
}

func TestTestConnection(t *testing.T) {
	f := newFake()
	checks := TestConnection(context.Background(), f.client(), "db", "missing")
	require.Len(t, checks, 3)
	assert.True(t, checks[0].OK())
	assert.Equal(t, "connected as Helper Bot", checks[0].Detail)
	assert.Equal(t, "Projects", checks[1].Detail)
	assert.ErrorIs(t, checks[2].Err, types.ErrConnectivity)

	f.meErr = errors.New("401 unauthorized")
	checks = TestConnection(context.Background(), f.client(), "db", "page")
	require.Len(t, checks, 1)
	assert.False(t, checks[0].OK())
}
