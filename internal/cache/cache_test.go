package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/bayusegara27/discora-backend/internal/models"
)

type fakeSource struct {
	mu       sync.Mutex
	settings []models.GuildSettingsRecord
	commands []models.CustomCommand
	err      error
}

func (f *fakeSource) ListGuildSettings(limit int) ([]models.GuildSettingsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.GuildSettingsRecord(nil), f.settings...), nil
}

func (f *fakeSource) ListCustomCommands(limit int) ([]models.CustomCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.CustomCommand(nil), f.commands...), nil
}

func TestRefreshReplacesGeneration(t *testing.T) {
	src := &fakeSource{
		settings: []models.GuildSettingsRecord{
			{ID: "1", GuildID: "g1", LevelingSettings: `{"enabled":true}`},
			{ID: "2", GuildID: "g2"},
		},
		commands: []models.CustomCommand{
			{ID: "c1", GuildID: "g1", Command: "rules", Response: "be nice"},
			{ID: "c2", GuildID: "g1", Command: "faq", Response: "read the docs"},
		},
	}
	m := NewManager(src)

	if _, ok := m.Get("g1"); ok {
		t.Fatal("Get() before refresh should miss")
	}
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	gs, ok := m.Get("g1")
	if !ok || !gs.Leveling.Enabled {
		t.Errorf("Get(g1) = %+v, %v", gs, ok)
	}
	if names := m.CommandNames("g1"); len(names) != 2 || names[0] != "faq" {
		t.Errorf("CommandNames(g1) = %v, want [faq rules]", names)
	}

	// Upstream deletion must disappear from the next generation.
	src.mu.Lock()
	src.settings = src.settings[1:]
	src.commands = src.commands[:1]
	src.mu.Unlock()

	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if _, ok := m.Get("g1"); ok {
		t.Error("g1 settings should be gone after refresh")
	}
	if _, ok := m.Command("g1", "faq"); ok {
		t.Error("faq command should be gone after refresh")
	}
	if m.CommandCount("g1") != 1 {
		t.Errorf("CommandCount(g1) = %d, want 1", m.CommandCount("g1"))
	}
	if info := m.Info(); info.Generation != 2 || info.Guilds != 1 {
		t.Errorf("Info() = %+v", info)
	}
}

func TestRefreshFailureKeepsPreviousGeneration(t *testing.T) {
	src := &fakeSource{
		settings: []models.GuildSettingsRecord{{ID: "1", GuildID: "g1"}},
	}
	m := NewManager(src)
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	src.mu.Lock()
	src.err = errors.New("database unavailable")
	src.mu.Unlock()

	if err := m.Refresh(); err == nil {
		t.Fatal("Refresh() should report the failure")
	}
	if _, ok := m.Get("g1"); !ok {
		t.Error("failed refresh must leave the previous generation readable")
	}
	if m.Info().Generation != 1 {
		t.Errorf("Generation = %d, want 1", m.Info().Generation)
	}
}

func TestConcurrentReadsDuringRefresh(t *testing.T) {
	src := &fakeSource{
		settings: []models.GuildSettingsRecord{{ID: "1", GuildID: "g1"}},
		commands: []models.CustomCommand{{ID: "c", GuildID: "g1", Command: "x"}},
	}
	m := NewManager(src)
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if _, ok := m.Get("g1"); !ok {
					t.Error("reader observed an empty generation")
					return
				}
				m.CommandNames("g1")
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if err := m.Refresh(); err != nil {
			t.Errorf("Refresh() error = %v", err)
		}
	}
	wg.Wait()
}
