package autosave

import (
	"context"
	"sync"
	"time"

	"indix/models"

	"github.com/bep/debounce"
)

// DefaultDebounce is the quiescence window after the last edit before a
// save is attempted.
const DefaultDebounce = time.Second

// Saver is the persistence surface the controller drives. *Client
// satisfies it; tests substitute fakes.
type Saver interface {
	CreateNote(ctx context.Context, title *string, content string) (string, error)
	UpdateNote(ctx context.Context, id string, title *string, content string) (models.Note, error)
	GetNote(ctx context.Context, id string) (models.Note, error)
}

// Notifier receives the controller's side effects: NoteCreated fires once
// after the first successful save so the caller can rewrite the visible
// URL, and SaveFailed surfaces a non-blocking failure notice.
type Notifier interface {
	NoteCreated(id string)
	SaveFailed(err error)
}

// Controller owns one draft. Edits reset a trailing-edge debounce window;
// only the last edit in a quiescent window triggers a save. Saves are
// single-flight: at most one call is in flight per draft, and edits that
// land during a save coalesce into exactly one follow-up save carrying
// the latest state. A failed save keeps the draft dirty and is not
// retried until the next edit.
type Controller struct {
	saver     Saver
	notify    Notifier
	debounced func(func())

	mu       sync.Mutex
	id       string // "" until the first create succeeds
	title    *string
	content  string
	dirty    bool
	inflight bool
}

// NewController builds a controller for a fresh draft. A non-positive
// delay falls back to DefaultDebounce.
func NewController(saver Saver, notify Notifier, delay time.Duration) *Controller {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Controller{
		saver:     saver,
		notify:    notify,
		debounced: debounce.New(delay),
	}
}

// Load fetches an existing note before editing begins. The editor must
// stay blocked until it returns; on error the controller holds no draft.
func (c *Controller) Load(ctx context.Context, id string) error {
	note, err := c.saver.GetNote(ctx, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.id = note.ID
	c.title = note.Title
	c.content = note.Content
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// SetContent records the latest serialized editor document and resets the
// debounce window.
func (c *Controller) SetContent(content string) {
	c.mu.Lock()
	c.content = content
	c.dirty = true
	c.mu.Unlock()
	c.debounced(c.flush)
}

// SetTitle records a title keystroke. An empty string is a deliberate
// clear and is sent as "" so the server nulls the stored title.
func (c *Controller) SetTitle(title string) {
	c.mu.Lock()
	t := title
	c.title = &t
	c.dirty = true
	c.mu.Unlock()
	c.debounced(c.flush)
}

// ID returns the server-assigned note id, or "" for an unsaved draft.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Saving reports whether a persistence call is in flight.
func (c *Controller) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

// flush runs on the debounce timer. The inflight flag gives single-flight
// semantics: if a save is already running, the dirty draft is picked up
// by that save's completion loop instead of a second concurrent call.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.inflight || !c.dirty {
		c.mu.Unlock()
		return
	}
	c.inflight = true
	c.mu.Unlock()

	c.saveLoop()
}

func (c *Controller) saveLoop() {
	for {
		c.mu.Lock()
		id, title, content := c.id, c.title, c.content
		c.dirty = false
		c.mu.Unlock()

		err := c.save(id, title, content)

		c.mu.Lock()
		if err != nil {
			// Keep the unsaved state; the next edit schedules the retry.
			c.dirty = true
			c.inflight = false
			c.mu.Unlock()
			c.notify.SaveFailed(err)
			return
		}
		if !c.dirty {
			c.inflight = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

func (c *Controller) save(id string, title *string, content string) error {
	// In-flight saves are never cancelled by later edits or navigation.
	ctx := context.Background()

	if id == "" {
		newID, err := c.saver.CreateNote(ctx, title, content)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.id = newID
		c.mu.Unlock()
		c.notify.NoteCreated(newID)
		return nil
	}

	_, err := c.saver.UpdateNote(ctx, id, title, content)
	return err
}
