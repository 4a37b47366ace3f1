package cache

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bayusegara27/discora-backend/internal/settings"
)

// PageSize bounds each refresh query.
const PageSize = 5000

// Source is the subset of the repository the cache reads from.
type Source interface {
	ListGuildSettings(limit int) ([]models.GuildSettingsRecord, error)
	ListCustomCommands(limit int) ([]models.CustomCommand, error)
}

// generation is an immutable snapshot. Readers always see one complete
// generation; refresh builds the next one aside and swaps the pointer.
type generation struct {
	settings  map[string]settings.GuildSettings
	commands  map[string]map[string]models.CustomCommand
	loadedAt  time.Time
	number    uint64
	cmdTotals int
}

// Manager owns the guild settings and custom command tables.
type Manager struct {
	src     Source
	current atomic.Pointer[generation]

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewManager(src Source) *Manager {
	m := &Manager{src: src, stop: make(chan struct{})}
	m.current.Store(&generation{
		settings: map[string]settings.GuildSettings{},
		commands: map[string]map[string]models.CustomCommand{},
	})
	return m
}

// Refresh reloads both tables and replaces the current generation. On error
// the previous generation stays in place.
func (m *Manager) Refresh() error {
	records, err := m.src.ListGuildSettings(PageSize)
	if err != nil {
		return fmt.Errorf("failed to list settings: %w", err)
	}
	cmds, err := m.src.ListCustomCommands(PageSize)
	if err != nil {
		return fmt.Errorf("failed to list custom commands: %w", err)
	}

	prev := m.current.Load()
	next := &generation{
		settings: make(map[string]settings.GuildSettings, len(records)),
		commands: make(map[string]map[string]models.CustomCommand),
		loadedAt: time.Now(),
		number:   prev.number + 1,
	}
	for _, rec := range records {
		next.settings[rec.GuildID] = settings.Decode(rec)
	}
	for _, cmd := range cmds {
		byName, ok := next.commands[cmd.GuildID]
		if !ok {
			byName = make(map[string]models.CustomCommand)
			next.commands[cmd.GuildID] = byName
		}
		byName[cmd.Command] = cmd
		next.cmdTotals++
	}

	m.current.Store(next)
	log.Printf("[CACHE] Synced settings for %d guilds and %d custom commands for %d guilds.", len(next.settings), next.cmdTotals, len(next.commands))
	return nil
}

// Get returns the settings of a guild. ok is false when the guild has no
// settings record, which callers treat as every feature disabled.
func (m *Manager) Get(guildID string) (settings.GuildSettings, bool) {
	gs, ok := m.current.Load().settings[guildID]
	return gs, ok
}

// Command looks up a custom command by name.
func (m *Manager) Command(guildID, name string) (models.CustomCommand, bool) {
	cmd, ok := m.current.Load().commands[guildID][name]
	return cmd, ok
}

// CommandNames lists the custom command names of a guild in sorted order.
func (m *Manager) CommandNames(guildID string) []string {
	byName := m.current.Load().commands[guildID]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) CommandCount(guildID string) int {
	return len(m.current.Load().commands[guildID])
}

// Info describes the active generation for the health endpoint.
type Info struct {
	Generation   uint64    `json:"generation"`
	LoadedAt     time.Time `json:"loadedAt"`
	Guilds       int       `json:"guilds"`
	CommandCount int       `json:"commands"`
}

func (m *Manager) Info() Info {
	g := m.current.Load()
	return Info{Generation: g.number, LoadedAt: g.loadedAt, Guilds: len(g.settings), CommandCount: g.cmdTotals}
}

// Start refreshes on a fixed interval until Shutdown.
func (m *Manager) Start(interval time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := m.Refresh(); err != nil {
					log.Printf("[CACHE] Error during periodic sync: %v", err)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}
