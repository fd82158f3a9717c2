package notes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/HeroHubLab/herohub/backend/internal/llm"
)

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("note-%04d", p.next), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Note{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: &sequenceIDProvider{},
		Clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func TestCreateTrimsAndRequiresText(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	note, err := service.Create(ctx, "user-1", "  call the venue tomorrow  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if note.Text != "call the venue tomorrow" {
		t.Fatalf("expected trimmed text, got %q", note.Text)
	}
	if note.SuggestedTasks == nil || len(note.SuggestedTasks) != 0 {
		t.Fatalf("expected empty suggested tasks, got %+v", note.SuggestedTasks)
	}

	if _, err := service.Create(ctx, "user-1", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	for index := 0; index < 5; index++ {
		if _, err := service.Create(ctx, "user-1", fmt.Sprintf("note %d", index)); err != nil {
			t.Fatalf("create %d: %v", index, err)
		}
	}

	notes, err := service.List(ctx, "user-1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(notes))
	}
	if notes[0].Text != "note 4" || notes[2].Text != "note 2" {
		t.Fatalf("expected newest first, got %q..%q", notes[0].Text, notes[2].Text)
	}

	all, err := service.List(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("list default: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected default limit to return all 5 notes, got %d", len(all))
	}
}

func TestUpdateAttachesSummaryAndTasks(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	note, err := service.Create(ctx, "user-1", "plan the launch webinar")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	summary := "Launch webinar planning"
	tasks := []llm.Task{{Title: "Book speakers", Priority: "high"}}
	updated, err := service.Update(ctx, "user-1", note.ID, UpdateInput{
		Summary:        &summary,
		SuggestedTasks: tasks,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Summary != summary {
		t.Fatalf("expected summary %q, got %q", summary, updated.Summary)
	}
	if len(updated.SuggestedTasks) != 1 || updated.SuggestedTasks[0].Title != "Book speakers" {
		t.Fatalf("unexpected suggested tasks: %+v", updated.SuggestedTasks)
	}
	if updated.Text != note.Text {
		t.Fatalf("text should be untouched, got %q", updated.Text)
	}

	var stored Note
	if err := service.db.Where("id = ?", note.ID).Take(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(stored.SuggestedTasks) != 1 {
		t.Fatalf("expected suggested tasks to persist, got %+v", stored.SuggestedTasks)
	}
}

func TestUpdateRejectsBlankText(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	note, err := service.Create(ctx, "user-1", "keep me")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	blank := "   "
	if _, err := service.Update(ctx, "user-1", note.ID, UpdateInput{Text: &blank}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOwnershipErrors(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	note, err := service.Create(ctx, "user-1", "private")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := service.Update(ctx, "user-2", note.ID, UpdateInput{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := service.Delete(ctx, "user-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesNote(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	note, err := service.Create(ctx, "user-1", "temporary")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := service.Delete(ctx, "user-1", note.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	notes, err := service.List(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("expected empty list, got %d", len(notes))
	}
}
