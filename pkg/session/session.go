// Package session holds the state of one chat session: its settings, the
// active reasoner and the loaded prompt catalog. User turns are submitted
// through a Controller, which snapshots that state for the reasoning engine.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/germanamz/autoprompt/pkg/catalog"
	"github.com/germanamz/autoprompt/pkg/display"
	"github.com/germanamz/autoprompt/pkg/history"
	"github.com/germanamz/autoprompt/pkg/modeladapter"
	"github.com/germanamz/autoprompt/pkg/reasoning"
)

// Options configures a Controller.
type Options struct {
	Catalog *catalog.Catalog // Default empty.
	Model   modeladapter.Streamer
	History history.Store // Default in-memory.
	Out     io.Writer     // Fragment echo.
	Logger  *slog.Logger
	Render  display.Renderer
}

// Controller owns the mutable state of a session. It is safe for concurrent
// use; every run reads a snapshot taken when it starts.
type Controller struct {
	mu       sync.Mutex
	settings Settings
	reasoner string
	catalog  *catalog.Catalog

	history history.Store
	engine  *reasoning.Engine
	log     *slog.Logger
}

// New creates a Controller starting from settings.
func New(settings Settings, opts Options) (*Controller, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		settings: settings,
		catalog:  opts.Catalog,
		history:  opts.History,
		log:      opts.Logger,
	}

	if c.catalog == nil {
		c.catalog = catalog.Empty()
	}
	if c.history == nil {
		c.history = history.NewMemoryStore()
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}

	c.engine = reasoning.New(reasoning.Options{
		Model:         opts.Model,
		History:       c.history,
		Out:           opts.Out,
		Logger:        c.log,
		Render:        opts.Render,
		ResetReasoner: c.clearReasoner,
	})

	return c, nil
}

// Snapshot returns an immutable copy of the current state.
func (c *Controller) Snapshot() reasoning.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return reasoning.Snapshot{
		SessionID:    c.settings.SessionID,
		Model:        c.settings.Model,
		Temperature:  c.settings.Temperature,
		MaxTokens:    c.settings.MaxTokens,
		ShowThinking: c.settings.ShowThinking,
		Reasoner:     c.reasoner,
		Catalog:      c.catalog,
	}
}

// Settings returns a copy of the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Reasoner returns the active reasoner, or "" when none is set.
func (c *Controller) Reasoner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reasoner
}

// SetReasoner activates a category for the next turn. When the category
// declares a temperature it replaces the session temperature.
func (c *Controller) SetReasoner(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cat, err := c.catalog.Category(name)
	if err != nil {
		return fmt.Errorf("session: set reasoner: %w", err)
	}

	c.reasoner = name
	if cat.Temperature > 0 {
		c.settings.Temperature = cat.Temperature
	}

	c.log.Info("reasoner set", "reasoner", name, "temperature", c.settings.Temperature)

	return nil
}

// UpdateSettings applies a partial update keyed by model, temperature,
// max_tokens and show_thinking. Either every field is applied or, on an
// error wrapping ErrInvalidSetting, none is.
func (c *Controller) UpdateSettings(partial map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.settings.apply(partial)
	if err != nil {
		return err
	}

	c.settings = next
	return nil
}

// LoadCatalog replaces the catalog with the document at path and returns a
// diff of the reasoner names. On failure the current catalog is kept.
func (c *Controller) LoadCatalog(path string) (string, error) {
	next, err := catalog.Load(path)
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}

	c.mu.Lock()
	prev := c.catalog
	c.catalog = next
	reasoner := c.reasoner
	c.mu.Unlock()

	c.log.Info("catalog loaded", "path", path, "reasoners", next.Len())
	if reasoner != "" && !next.Has(reasoner) {
		c.log.Warn("active reasoner missing from catalog", "reasoner", reasoner)
	}

	return catalog.DiffNames(prev, next), nil
}

// Reasoners lists the categories of the current catalog in document order.
func (c *Controller) Reasoners() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Names()
}

// Info renders the current settings for display.
func (c *Controller) Info() string {
	snap := c.Snapshot()

	reasoner := snap.Reasoner
	if reasoner == "" {
		reasoner = "None"
	}

	return fmt.Sprintf("Temperature: %s\nMax Tokens: %d\nModel: %s\nReasoner: %s\nVisible thinking: %t",
		strconv.FormatFloat(snap.Temperature, 'f', -1, 64),
		snap.MaxTokens,
		snap.Model,
		reasoner,
		snap.ShowThinking,
	)
}

// ClearHistory removes every message of the session.
func (c *Controller) ClearHistory(ctx context.Context) error {
	id := c.Settings().SessionID
	if err := c.history.Get(id).Clear(ctx); err != nil {
		return fmt.Errorf("session: clear history: %w", err)
	}
	return nil
}

// Submit runs one user turn and returns its transcript.
func (c *Controller) Submit(ctx context.Context, input string) (string, error) {
	return c.engine.Run(ctx, c.Snapshot(), input)
}

func (c *Controller) clearReasoner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasoner = ""
}
