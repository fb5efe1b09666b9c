package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"indix/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDebounce = 40 * time.Millisecond
	waitTimeout  = 2 * time.Second
	tick         = 5 * time.Millisecond
)

type recordedSave struct {
	id      string // "" means a create call
	title   *string
	content string
}

type fakeSaver struct {
	mu          sync.Mutex
	saves       []recordedSave
	nextID      string
	err         error
	note        models.Note
	getErr      error
	inFlight    int
	maxInFlight int

	block   chan struct{} // when set, saves park here
	started chan struct{} // receives one value per save call
}

// begin records the call, then signals started, then parks on block.
// The call must be visible in saves before anyone unblocked by started
// can observe the fake, so the ordering here is load-bearing.
func (f *fakeSaver) begin(s recordedSave) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.saves = append(f.saves, s)
	err := f.err
	started := f.started
	block := f.block
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeSaver) end() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeSaver) CreateNote(_ context.Context, title *string, content string) (string, error) {
	defer f.end()
	if err := f.begin(recordedSave{title: title, content: content}); err != nil {
		return "", err
	}
	return f.nextID, nil
}

func (f *fakeSaver) UpdateNote(_ context.Context, id string, title *string, content string) (models.Note, error) {
	defer f.end()
	if err := f.begin(recordedSave{id: id, title: title, content: content}); err != nil {
		return models.Note{}, err
	}
	return models.Note{ID: id, Title: title, Content: content}, nil
}

func (f *fakeSaver) GetNote(_ context.Context, id string) (models.Note, error) {
	if f.getErr != nil {
		return models.Note{}, f.getErr
	}
	return f.note, nil
}

func (f *fakeSaver) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeSaver) save(i int) recordedSave {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[i]
}

type fakeNotifier struct {
	mu      sync.Mutex
	created []string
	failed  []error
}

func (n *fakeNotifier) NoteCreated(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, id)
}

func (n *fakeNotifier) SaveFailed(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, err)
}

func (n *fakeNotifier) failCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.failed)
}

func TestDebounceCoalescing(t *testing.T) {
	saver := &fakeSaver{nextID: "note-1"}
	notifier := &fakeNotifier{}
	c := NewController(saver, notifier, testDebounce)

	// Rapid typing: every event lands well inside the debounce window.
	for i := 0; i < 5; i++ {
		c.SetContent(fmt.Sprintf("draft v%d", i))
		time.Sleep(testDebounce / 4)
	}

	require.Eventually(t, func() bool { return saver.saveCount() == 1 }, waitTimeout, tick)
	assert.Equal(t, "draft v4", saver.save(0).content)

	// Quiet period: no further saves appear.
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, saver.saveCount())
}

func TestCreateThenUpdateTransition(t *testing.T) {
	saver := &fakeSaver{nextID: "note-7"}
	notifier := &fakeNotifier{}
	c := NewController(saver, notifier, testDebounce)

	c.SetContent("first")
	require.Eventually(t, func() bool { return saver.saveCount() == 1 }, waitTimeout, tick)

	first := saver.save(0)
	assert.Empty(t, first.id, "first save must be a create")
	assert.Equal(t, "note-7", c.ID())
	assert.Equal(t, []string{"note-7"}, notifier.created)

	c.SetContent("second")
	require.Eventually(t, func() bool { return saver.saveCount() == 2 }, waitTimeout, tick)

	second := saver.save(1)
	assert.Equal(t, "note-7", second.id, "later saves must update the assigned id")
	assert.Equal(t, "second", second.content)
	assert.Len(t, notifier.created, 1, "only one create notification")
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	saver := &fakeSaver{nextID: "note-1", err: errors.New("network down")}
	notifier := &fakeNotifier{}
	c := NewController(saver, notifier, testDebounce)

	c.SetContent("unsaved")
	require.Eventually(t, func() bool { return notifier.failCount() == 1 }, waitTimeout, tick)

	assert.Empty(t, c.ID(), "failed create must not assign an id")
	assert.False(t, c.Saving())

	// No automatic retry.
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, saver.saveCount())

	// The next edit carries the full draft state again.
	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	c.SetContent("recovered")
	require.Eventually(t, func() bool { return c.ID() == "note-1" }, waitTimeout, tick)
	assert.Equal(t, "recovered", saver.save(1).content)
}

func TestSingleFlight(t *testing.T) {
	saver := &fakeSaver{
		nextID:  "note-1",
		block:   make(chan struct{}),
		started: make(chan struct{}, 8),
	}
	notifier := &fakeNotifier{}
	c := NewController(saver, notifier, testDebounce)

	c.SetContent("a")
	<-saver.started // create is now parked in flight

	// Edits during the in-flight save must coalesce into exactly one
	// follow-up, not a racing second call.
	c.SetContent("b")
	c.SetContent("c")
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, saver.saveCount(), "no save may start while one is in flight")

	close(saver.block)
	require.Eventually(t, func() bool { return saver.saveCount() == 2 }, waitTimeout, tick)
	<-saver.started

	followUp := saver.save(1)
	assert.Equal(t, "note-1", followUp.id)
	assert.Equal(t, "c", followUp.content, "follow-up carries the latest state")

	time.Sleep(3 * testDebounce)
	assert.Equal(t, 2, saver.saveCount())

	saver.mu.Lock()
	defer saver.mu.Unlock()
	assert.Equal(t, 1, saver.maxInFlight, "saves must never overlap")
}

func TestLoadExistingNote(t *testing.T) {
	title := "loaded title"
	saver := &fakeSaver{
		note: models.Note{ID: "note-9", Title: &title, Content: "stored body"},
	}
	notifier := &fakeNotifier{}
	c := NewController(saver, notifier, testDebounce)

	require.NoError(t, c.Load(context.Background(), "note-9"))
	assert.Equal(t, "note-9", c.ID())

	c.SetContent("stored body, edited")
	require.Eventually(t, func() bool { return saver.saveCount() == 1 }, waitTimeout, tick)

	save := saver.save(0)
	assert.Equal(t, "note-9", save.id, "a loaded note never triggers a create")
	require.NotNil(t, save.title)
	assert.Equal(t, "loaded title", *save.title)
	assert.Empty(t, notifier.created)
}

func TestLoadFailure(t *testing.T) {
	saver := &fakeSaver{getErr: errors.New("gone")}
	c := NewController(saver, &fakeNotifier{}, testDebounce)

	err := c.Load(context.Background(), "note-9")
	require.Error(t, err)
	assert.Empty(t, c.ID())
}

func TestTitleTristate(t *testing.T) {
	t.Run("untouched title is omitted", func(t *testing.T) {
		saver := &fakeSaver{nextID: "note-1"}
		c := NewController(saver, &fakeNotifier{}, testDebounce)

		c.SetContent("body")
		require.Eventually(t, func() bool { return saver.saveCount() == 1 }, waitTimeout, tick)
		assert.Nil(t, saver.save(0).title)
	})

	t.Run("cleared title is sent as empty string", func(t *testing.T) {
		saver := &fakeSaver{nextID: "note-1"}
		c := NewController(saver, &fakeNotifier{}, testDebounce)

		c.SetContent("body")
		c.SetTitle("")
		require.Eventually(t, func() bool { return saver.saveCount() == 1 }, waitTimeout, tick)

		save := saver.save(0)
		require.NotNil(t, save.title)
		assert.Empty(t, *save.title)
	})

	t.Run("typed title is carried with the save", func(t *testing.T) {
		saver := &fakeSaver{nextID: "note-1"}
		c := NewController(saver, &fakeNotifier{}, testDebounce)

		c.SetTitle("meeting notes")
		c.SetContent("agenda")
		require.Eventually(t, func() bool { return saver.saveCount() == 1 }, waitTimeout, tick)

		save := saver.save(0)
		require.NotNil(t, save.title)
		assert.Equal(t, "meeting notes", *save.title)
		assert.Equal(t, "agenda", save.content)
	})
}
