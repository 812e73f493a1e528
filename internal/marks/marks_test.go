package marks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keymarks/internal/config"
	"github.com/dshills/keymarks/internal/event"
	"github.com/dshills/keymarks/internal/event/events"
	"github.com/dshills/keymarks/internal/host"
	"github.com/dshills/keymarks/internal/host/memhost"
	"github.com/dshills/keymarks/internal/mark"
	"github.com/dshills/keymarks/internal/store"
)

type fixture struct {
	marks *Marks
	host  *memhost.Host
	bus   event.Bus
	store *store.Store
}

func newFixture(t *testing.T, st *store.Store) *fixture {
	t.Helper()
	if st == nil {
		var err error
		st, err = store.New(filepath.Join(t.TempDir(), "data"))
		require.NoError(t, err)
	}
	bus := event.NewBus()
	h := memhost.New("/proj", memhost.WithEvents(bus))
	m, err := New(Options{Host: h, Store: st, Bus: bus})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return &fixture{marks: m, host: h, bus: bus, store: st}
}

func values(l *mark.List) []string {
	var out []string
	for _, it := range l.Items() {
		out = append(out, it.Value)
	}
	return out
}

func TestNew_RequiresHost(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestMarks_AddCurrentBuffer(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.host.Open("src/a.go")
	require.NoError(t, err)
	require.NoError(t, f.host.SetCursor(host.Position{Row: 12, Col: 4}))

	item, err := f.marks.Add("", nil)
	require.NoError(t, err)
	assert.Equal(t, &mark.Item{Value: "src/a.go", Context: mark.Context{Row: 12, Col: 4}}, item)

	again, err := f.marks.Add("", nil)
	require.NoError(t, err)
	assert.Same(t, item, again, "re-adding returns the existing mark")

	list, err := f.marks.List("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultListName, list.Name())
	assert.Equal(t, 1, list.Len())
}

func TestMarks_SyncAndReload(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.marks.Add("", mark.NewItem("a.go"))
	require.NoError(t, err)
	_, err = f.marks.Add("todo", &mark.Item{Value: "b.go", Context: mark.Context{Row: 5, Col: 2}})
	require.NoError(t, err)
	require.NoError(t, f.marks.Sync())

	names, err := f.store.Lists("/proj")
	require.NoError(t, err)
	assert.Equal(t, []string{config.DefaultListName, "todo"}, names)

	other := newFixture(t, f.store)
	todo, err := other.marks.List("todo")
	require.NoError(t, err)
	require.Equal(t, 1, todo.Len())
	assert.Equal(t, mark.Context{Row: 5, Col: 2}, todo.Get(0).Context)

	_, err = other.marks.Add("todo", mark.NewItem("c.go"))
	require.NoError(t, err)
	require.NoError(t, other.marks.Sync())

	f.marks.Reload()
	todo, err = f.marks.List("todo")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go", "c.go"}, values(todo))
}

func TestMarks_ProjectsAreSeparate(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.marks.Add("", mark.NewItem("a.go"))
	require.NoError(t, err)
	require.NoError(t, f.marks.Sync())

	f.host.SetCwd("/elsewhere")
	list, err := f.marks.List("")
	require.NoError(t, err)
	assert.Equal(t, 0, list.Len())

	f.host.SetCwd("/proj")
	list, err = f.marks.List("")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
}

func TestMarks_BufLeaveUpdatesPosition(t *testing.T) {
	f := newFixture(t, nil)

	var updates []events.PositionUpdated
	_, err := event.SubscribePayload(f.bus, events.TopicPositionUpdated, func(_ context.Context, p events.PositionUpdated) error {
		updates = append(updates, p)
		return nil
	})
	require.NoError(t, err)

	_, err = f.host.Open("/proj/a.go")
	require.NoError(t, err)
	_, err = f.marks.Add("", nil)
	require.NoError(t, err)
	require.NoError(t, f.host.SetCursor(host.Position{Row: 20, Col: 3}))

	_, err = f.host.Open("/proj/b.go")
	require.NoError(t, err)

	list, err := f.marks.List("")
	require.NoError(t, err)
	assert.Equal(t, mark.Context{Row: 20, Col: 3}, list.Get(0).Context)
	require.Len(t, updates, 1)
	assert.Equal(t, events.PositionUpdated{List: config.DefaultListName, Value: "a.go", Row: 20, Col: 3}, updates[0])
}

func TestMarks_AutocmdsPerList(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.marks.Setup(&config.Partial{Lists: map[string]*config.ListPatch{
		"quiet": {Autocmds: []string{}},
	}})
	require.NoError(t, err)

	_, err = f.host.Open("a.go")
	require.NoError(t, err)
	_, err = f.marks.Add("quiet", nil)
	require.NoError(t, err)
	_, err = f.marks.Add("", nil)
	require.NoError(t, err)
	require.NoError(t, f.host.SetCursor(host.Position{Row: 9, Col: 9}))

	_, err = f.host.Open("b.go")
	require.NoError(t, err)

	quiet, err := f.marks.List("quiet")
	require.NoError(t, err)
	assert.Equal(t, mark.DefaultContext(), quiet.Get(0).Context)

	def, err := f.marks.List("")
	require.NoError(t, err)
	assert.Equal(t, mark.Context{Row: 9, Col: 9}, def.Get(0).Context)
}

func TestMarks_Select(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.marks.Add("", &mark.Item{Value: "a.go", Context: mark.Context{Row: 7, Col: 2}})
	require.NoError(t, err)

	var navigated []events.Navigate
	_, err = event.SubscribePayload(f.bus, events.TopicNavigate, func(_ context.Context, p events.Navigate) error {
		navigated = append(navigated, p)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, f.marks.Select("", 0, mark.SelectOptions{TabEdit: true}))

	cur, ok := f.host.CurrentBuffer()
	require.True(t, ok)
	assert.Equal(t, "/proj/a.go", f.host.BufferName(cur))
	pos, err := f.host.Cursor()
	require.NoError(t, err)
	assert.Equal(t, host.Position{Row: 7, Col: 2}, pos)
	assert.Equal(t, 2, f.host.Tabs())
	require.Len(t, navigated, 1)
	assert.Equal(t, cur, navigated[0].Buffer)

	require.NoError(t, f.marks.Select("", 5, mark.SelectOptions{}), "out of range is a no-op")
	assert.Len(t, navigated, 1)
}

func TestMarks_ListChangedEvents(t *testing.T) {
	f := newFixture(t, nil)

	var got []events.ListChanged
	_, err := event.SubscribePayload(f.bus, events.TopicListChanged, func(_ context.Context, p events.ListChanged) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)

	_, err = f.marks.Add("l", mark.NewItem("a.go"))
	require.NoError(t, err)
	_, err = f.marks.Prepend("l", mark.NewItem("b.go"))
	require.NoError(t, err)
	_, err = f.marks.Add("l", mark.NewItem("a.go"))
	require.NoError(t, err)
	removed, err := f.marks.Remove("l", mark.NewItem("a.go"))
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = f.marks.Remove("l", mark.NewItem("zzz"))
	require.NoError(t, err)
	assert.False(t, removed)
	item, err := f.marks.RemoveAt("l", 0)
	require.NoError(t, err)
	assert.Equal(t, "b.go", item.Value)
	require.NoError(t, f.marks.Clear("l"))

	assert.Equal(t, []events.ListChanged{
		{List: "l", Kind: events.ListItemAdded, Value: "a.go", Index: 0},
		{List: "l", Kind: events.ListItemAdded, Value: "b.go", Index: 0},
		{List: "l", Kind: events.ListItemRemoved, Value: "a.go", Index: 1},
		{List: "l", Kind: events.ListItemRemoved, Value: "b.go", Index: 0},
		{List: "l", Kind: events.ListCleared, Value: "", Index: -1},
	}, got)
}

func TestMarks_RemoveCurrentBuffer(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.host.Open("a.go")
	require.NoError(t, err)
	_, err = f.marks.Add("", nil)
	require.NoError(t, err)

	removed, err := f.marks.Remove("", nil)
	require.NoError(t, err)
	assert.True(t, removed)

	list, err := f.marks.List("")
	require.NoError(t, err)
	assert.Equal(t, 0, list.Len())
}

func TestMarks_ToggleAndUIClose(t *testing.T) {
	tests := []struct {
		name     string
		settings *config.SettingsPatch
		call     func(*Marks) error
		saved    bool
	}{
		{"toggle off", nil, (*Marks).OnToggle, false},
		{"toggle on", &config.SettingsPatch{SaveOnToggle: config.Bool(true)}, (*Marks).OnToggle, true},
		{"ui close off", nil, (*Marks).OnUIClose, false},
		{"ui close on", &config.SettingsPatch{SyncOnUIClose: config.Bool(true)}, (*Marks).OnUIClose, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.marks.Setup(&config.Partial{Settings: tt.settings})
			require.NoError(t, err)
			_, err = f.marks.Add("", mark.NewItem("a.go"))
			require.NoError(t, err)

			require.NoError(t, tt.call(f.marks))

			stored, err := f.store.Load("/proj", config.DefaultListName)
			require.NoError(t, err)
			if tt.saved {
				assert.Len(t, stored, 1)
			} else {
				assert.Empty(t, stored)
			}
		})
	}
}

func TestMarks_SetupRebindsLoadedLists(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.marks.Add("todo", mark.NewItem("a.go"))
	require.NoError(t, err)

	cfg, err := f.marks.Setup(&config.Partial{Lists: map[string]*config.ListPatch{
		"todo": {Display: func(item *mark.Item) string { return "todo:" + item.Value }},
	}})
	require.NoError(t, err)
	assert.Contains(t, cfg.Lists, "todo")

	todo, err := f.marks.List("todo")
	require.NoError(t, err)
	require.Equal(t, 1, todo.Len())
	assert.Equal(t, "todo:a.go", todo.Config().Display(todo.Get(0)))
}

func TestMarks_WithoutStore(t *testing.T) {
	m, err := New(Options{Host: memhost.New("/proj")})
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Add("", mark.NewItem("a.go"))
	require.NoError(t, err)
	assert.NoError(t, m.Sync())
	assert.Equal(t, "/proj", m.Key())
	assert.NotNil(t, m.Bus())
}

func TestMarks_CloseUnsubscribes(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, 1, f.bus.SubscriptionCount())
	require.NoError(t, f.marks.Close())
	assert.Equal(t, 0, f.bus.SubscriptionCount())
}

func TestMarks_ReplaceDeleteStored(t *testing.T) {
	f := newFixture(t, nil)

	var changes []events.ListChanged
	_, err := event.SubscribePayload(f.bus, events.TopicListChanged, func(_ context.Context, p events.ListChanged) error {
		changes = append(changes, p)
		return nil
	})
	require.NoError(t, err)

	_, err = f.marks.Add("", mark.NewItem("a.go"))
	require.NoError(t, err)
	_, err = f.marks.Add("work", mark.NewItem("w.go"))
	require.NoError(t, err)

	require.NoError(t, f.marks.Replace("", 0, mark.NewItem("z.go")))
	assert.Error(t, f.marks.Replace("", 3, mark.NewItem("x.go")))
	require.NoError(t, f.marks.Sync())

	stored, err := f.marks.Stored()
	require.NoError(t, err)
	assert.Equal(t, []string{config.DefaultListName, "work"}, stored)

	require.NoError(t, f.marks.Delete("work"))
	stored, err = f.marks.Stored()
	require.NoError(t, err)
	assert.Equal(t, []string{config.DefaultListName}, stored)

	work, err := f.marks.List("work")
	require.NoError(t, err)
	assert.Equal(t, 0, work.Len(), "deleted lists are not reloaded")

	def, err := f.marks.List("")
	require.NoError(t, err)
	assert.Equal(t, "z.go", def.Get(0).Value)

	var kinds []events.ListChangeKind
	for _, c := range changes {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []events.ListChangeKind{
		events.ListItemAdded, events.ListItemAdded, events.ListItemReplaced, events.ListDeleted,
	}, kinds)
}

func TestMarks_NextPrevFromCurrentBuffer(t *testing.T) {
	f := newFixture(t, nil)
	for _, v := range []string{"a.go", "b.go", "c.go"} {
		_, err := f.marks.Add("", mark.NewItem(v))
		require.NoError(t, err)
	}

	current := func() string {
		cur, ok := f.host.CurrentBuffer()
		require.True(t, ok)
		return host.NormalizePath(f.host.BufferName(cur), "/proj")
	}

	_, err := f.host.Open("/proj/b.go")
	require.NoError(t, err)
	require.NoError(t, f.marks.Next("", mark.SelectOptions{}))
	assert.Equal(t, "c.go", current())

	require.NoError(t, f.marks.Next("", mark.SelectOptions{}))
	assert.Equal(t, "a.go", current())

	require.NoError(t, f.marks.Prev("", mark.SelectOptions{}))
	assert.Equal(t, "c.go", current())

	_, err = f.host.Open("/proj/unmarked.go")
	require.NoError(t, err)
	require.NoError(t, f.marks.Prev("", mark.SelectOptions{}))
	assert.Equal(t, "b.go", current(), "an unmarked buffer keeps the last position")
}
