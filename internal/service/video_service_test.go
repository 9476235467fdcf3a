package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

func TestVideoGenerateDebitsTariff(t *testing.T) {
	users := newFakeUserRepo(&model.User{ID: "user-1", Tokens: 25})
	videos := newFakeVideoRepo(users)
	gen := &fakeVideoGenerator{taskID: "task-1", credits: 100}
	svc := NewVideoService(videos, users, gen, zerolog.Nop())

	v, err := svc.Generate(context.Background(), "user-1", GenerateVideoParams{Prompt: "a dog surfing", AspectRatio: "16:9"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if v.VideoID != "task-1" {
		t.Fatalf("expected task id, got %q", v.VideoID)
	}
	if v.Status != model.VideoGenerating {
		t.Fatalf("expected generating status, got %s", v.Status)
	}
	if v.TokensUsed != VideoTokenCost {
		t.Fatalf("expected tariff %d, got %d", VideoTokenCost, v.TokensUsed)
	}
	if v.Seed < 10000 || v.Seed > 99999 {
		t.Fatalf("expected default 5-digit seed, got %d", v.Seed)
	}

	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 15 {
		t.Fatalf("expected balance 15, got %d", balance)
	}
}

func TestVideoGenerateInsufficientTokens(t *testing.T) {
	users := newFakeUserRepo(&model.User{ID: "user-1", Tokens: 9})
	videos := newFakeVideoRepo(users)
	gen := &fakeVideoGenerator{taskID: "task-1", credits: 100}
	svc := NewVideoService(videos, users, gen, zerolog.Nop())

	_, err := svc.Generate(context.Background(), "user-1", GenerateVideoParams{Prompt: "a dog", AspectRatio: "16:9"})
	if !errors.Is(err, repository.ErrInsufficientTokens) {
		t.Fatalf("expected ErrInsufficientTokens, got %v", err)
	}
}

func TestConcurrentVideoGenerationNeverOverspends(t *testing.T) {
	users := newFakeUserRepo(&model.User{ID: "user-1", Tokens: 35})
	videos := newFakeVideoRepo(users)
	gen := &fakeVideoGenerator{credits: 100}
	svc := NewVideoService(videos, users, gen, zerolog.Nop())

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Generate(context.Background(), "user-1", GenerateVideoParams{Prompt: "a dog", AspectRatio: "16:9"})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case !errors.Is(err, repository.ErrInsufficientTokens):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 3 {
		t.Fatalf("expected exactly 3 successful generations, got %d", successes)
	}
	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 5 {
		t.Fatalf("expected balance 5, got %d", balance)
	}
	videos.mu.Lock()
	defer videos.mu.Unlock()
	if len(videos.videos) != successes {
		t.Fatalf("expected %d video records, got %d", successes, len(videos.videos))
	}
}

func TestVideoGenerateProviderCreditsExhausted(t *testing.T) {
	users := newFakeUserRepo(&model.User{ID: "user-1", Tokens: 50})
	videos := newFakeVideoRepo(users)
	gen := &fakeVideoGenerator{taskID: "task-1", credits: 0}
	svc := NewVideoService(videos, users, gen, zerolog.Nop())

	_, err := svc.Generate(context.Background(), "user-1", GenerateVideoParams{Prompt: "a dog", AspectRatio: "16:9"})
	if !errors.Is(err, ErrProviderCreditsExhausted) {
		t.Fatalf("expected ErrProviderCreditsExhausted, got %v", err)
	}
	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 50 {
		t.Fatalf("provider exhaustion must not debit, balance %d", balance)
	}
}

func TestVideoDetailsSyncsCompletedStatus(t *testing.T) {
	users := newFakeUserRepo(&model.User{ID: "user-1", Tokens: 25})
	videos := newFakeVideoRepo(users)
	gen := &fakeVideoGenerator{taskID: "task-1", credits: 100}
	svc := NewVideoService(videos, users, gen, zerolog.Nop())

	if _, err := svc.Generate(context.Background(), "user-1", GenerateVideoParams{Prompt: "a dog", AspectRatio: "16:9"}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	gen.mu.Lock()
	gen.details = &VideoTaskDetails{TaskID: "task-1", Status: "completed", VideoURL: "https://cdn.example.com/v.mp4"}
	gen.mu.Unlock()

	v, err := svc.Details(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Details returned error: %v", err)
	}
	if v.Status != model.VideoCompleted || v.VideoURL != "https://cdn.example.com/v.mp4" {
		t.Fatalf("expected synced completion, got %+v", v)
	}

	// Terminal records are served from storage without another poll.
	gen.mu.Lock()
	polls := gen.calls
	gen.mu.Unlock()
	if _, err := svc.Details(context.Background(), "task-1"); err != nil {
		t.Fatalf("Details returned error: %v", err)
	}
	gen.mu.Lock()
	defer gen.mu.Unlock()
	if gen.calls != polls {
		t.Fatalf("terminal video must not be re-polled (%d before, %d after)", polls, gen.calls)
	}
}

func TestVideoDetailsUnknownTask(t *testing.T) {
	users := newFakeUserRepo(&model.User{ID: "user-1", Tokens: 25})
	videos := newFakeVideoRepo(users)
	svc := NewVideoService(videos, users, &fakeVideoGenerator{}, zerolog.Nop())

	v, err := svc.Details(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Details returned error: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil for unknown task, got %+v", v)
	}
}

func TestVideoListRefreshesInFlight(t *testing.T) {
	users := newFakeUserRepo(&model.User{ID: "user-1", Tokens: 25})
	videos := newFakeVideoRepo(users)
	gen := &fakeVideoGenerator{taskID: "task-1", credits: 100}
	svc := NewVideoService(videos, users, gen, zerolog.Nop())

	if _, err := svc.Generate(context.Background(), "user-1", GenerateVideoParams{Prompt: "a dog", AspectRatio: "16:9"}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	gen.mu.Lock()
	gen.details = &VideoTaskDetails{TaskID: "task-1", Status: "failed"}
	gen.mu.Unlock()

	list, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 video, got %d", len(list))
	}
	if list[0].Status != model.VideoFailed {
		t.Fatalf("expected refreshed failed status, got %s", list[0].Status)
	}
	// Token fields are never touched by refresh.
	if list[0].TokensUsed != VideoTokenCost {
		t.Fatalf("tokens_used changed on refresh: %d", list[0].TokensUsed)
	}
}
