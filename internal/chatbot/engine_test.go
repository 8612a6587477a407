package chatbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"chatResume/internal/config"
	"chatResume/internal/nlp"
	"chatResume/internal/profile"
)

func testChatbotConfig() config.ChatbotConfig {
	return config.ChatbotConfig{
		Domains:            []string{"IT", "Healthcare", "Marketing", "Finance", "Engineering", "Education"},
		ExperienceLevels:   []string{"Fresher", "1-2 years", "3-5 years", "5+ years"},
		Templates:          []string{"modern", "classic", "minimal"},
		DefaultTemplate:    "modern",
		ResponseTimeoutSec: 300,
		CleanupIntervalSec: 300,
	}
}

func newTestEngine(extractor nlp.Extractor) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(testChatbotConfig(), NewStore(), NewTracker(), extractor, logger)
}

type fakeExtractor struct {
	skills []string
	err    error
}

func (f *fakeExtractor) ExtractEntities(_ context.Context, _ string) (nlp.Entities, error) {
	if f.err != nil {
		return nlp.Entities{}, f.err
	}
	return nlp.Entities{Skills: f.skills}, nil
}

func (f *fakeExtractor) ComprehensiveAnalysis(_ context.Context, _ string) (nlp.Analysis, error) {
	return nlp.Analysis{}, f.err
}

func send(t *testing.T, e *Engine, sessionID, message string) Response {
	t.Helper()
	resp, err := e.ProcessMessage(context.Background(), sessionID, message)
	if err != nil {
		t.Fatalf("process %q: %v", message, err)
	}
	return resp
}

func TestGreetingRequiresHi(t *testing.T) {
	e := newTestEngine(nil)

	resp := send(t, e, "s1", "good morning")
	if resp.State != StateGreeting {
		t.Fatalf("state after non-greeting: %s", resp.State)
	}
	if resp.Progress != 0 {
		t.Fatalf("progress after non-greeting: %v", resp.Progress)
	}

	resp = send(t, e, "s1", "Hello there")
	if resp.State != StateDomain {
		t.Fatalf("state after greeting: %s", resp.State)
	}
	if len(resp.Options) != 6 {
		t.Fatalf("domain options: %v", resp.Options)
	}
}

func TestDomainRejectsUnknownAndKeepsState(t *testing.T) {
	e := newTestEngine(nil)
	send(t, e, "s1", "hi")

	resp := send(t, e, "s1", "Astrology")
	if resp.State != StateDomain {
		t.Fatalf("state after invalid domain: %s", resp.State)
	}
	if len(resp.Options) == 0 {
		t.Fatal("invalid domain reply must re-list options")
	}
	if resp.Progress != 0 {
		t.Fatalf("progress must not advance: %v", resp.Progress)
	}

	resp = send(t, e, "s1", "it")
	if resp.State != StateExperience {
		t.Fatalf("state after valid domain: %s", resp.State)
	}
	if resp.Progress != 15 {
		t.Fatalf("progress after domain: %v", resp.Progress)
	}
}

func TestFullConversationWalk(t *testing.T) {
	e := newTestEngine(nil)
	id := "walk"

	steps := []struct {
		message  string
		state    State
		progress float64
	}{
		{"hi", StateDomain, 0},
		{"IT", StateExperience, 15},
		{"3-5 years", StateEducation, 30},
		{"BSc Computer Science, State University, 2019", StateEducation, 30},
		{"done", StateWorkHistory, 45},
		{"Backend Engineer, Acme Corp, 2019 - 2023, Built and ran billing services", StateWorkHistory, 45},
		{"done", StateSkills, 60},
		{"Go, PostgreSQL, Docker", StateTemplateSelection, 75},
		{"classic", StateCompleted, 90},
	}

	for _, step := range steps {
		resp := send(t, e, id, step.message)
		if resp.State != step.state {
			t.Fatalf("message %q: state %s, want %s", step.message, resp.State, step.state)
		}
		if resp.Progress != step.progress {
			t.Fatalf("message %q: progress %v, want %v", step.message, resp.Progress, step.progress)
		}
	}

	snap, ok := e.Snapshot(id)
	if !ok {
		t.Fatal("snapshot missing")
	}
	if snap.Template != "classic" {
		t.Fatalf("template: %q", snap.Template)
	}
	if len(snap.UserData.Education) != 1 || len(snap.UserData.Experiences) != 1 {
		t.Fatalf("collected data: %+v", snap.UserData)
	}
	if len(snap.UserData.Skills) != 3 {
		t.Fatalf("skills: %v", snap.UserData.Skills)
	}

	if got := e.MarkCompleted(id); got != 100 {
		t.Fatalf("mark completed: %v", got)
	}
}

func TestWorkHistorySkip(t *testing.T) {
	e := newTestEngine(nil)
	id := "skip"
	for _, m := range []string{"hi", "Finance", "Fresher", "done"} {
		send(t, e, id, m)
	}

	resp := send(t, e, id, "skip")
	if resp.State != StateSkills {
		t.Fatalf("state after skip: %s", resp.State)
	}

	snap, _ := e.Snapshot(id)
	if len(snap.UserData.Experiences) != 0 {
		t.Fatalf("experiences after skip: %+v", snap.UserData.Experiences)
	}
}

func TestEducationRejectsMalformedEntry(t *testing.T) {
	e := newTestEngine(nil)
	id := "edu"
	for _, m := range []string{"hi", "IT", "Fresher"} {
		send(t, e, id, m)
	}

	resp := send(t, e, id, "just a degree")
	if resp.State != StateEducation {
		t.Fatalf("state: %s", resp.State)
	}

	resp = send(t, e, id, "BSc, School, not-a-year")
	if resp.State != StateEducation {
		t.Fatalf("state: %s", resp.State)
	}
	if !strings.Contains(resp.Text, "number") {
		t.Fatalf("expected year hint, got %q", resp.Text)
	}

	snap, _ := e.Snapshot(id)
	if len(snap.UserData.Education) != 0 {
		t.Fatalf("malformed entries must not be stored: %+v", snap.UserData.Education)
	}
}

func TestValidationFailureReportsAndOffersRestart(t *testing.T) {
	e := newTestEngine(nil)
	id := "inv"
	for _, m := range []string{"hi", "IT", "Fresher"} {
		send(t, e, id, m)
	}

	// 毕业年份超出范围：状态处理器接受该条目，整条记录校验失败。
	resp := send(t, e, id, "BSc, School, 1850")
	if !strings.Contains(resp.Text, "Validation error") {
		t.Fatalf("expected validation error text, got %q", resp.Text)
	}
	if len(resp.Options) != 1 || resp.Options[0] != "Restart conversation" {
		t.Fatalf("expected restart option, got %v", resp.Options)
	}
}

func TestRestartResetsEverything(t *testing.T) {
	e := newTestEngine(nil)
	id := "restart"
	for _, m := range []string{"hi", "IT", "3-5 years"} {
		send(t, e, id, m)
	}

	resp := send(t, e, id, "Restart Conversation")
	if resp.State != StateGreeting {
		t.Fatalf("state after restart: %s", resp.State)
	}
	if resp.Progress != 0 {
		t.Fatalf("progress after restart: %v", resp.Progress)
	}

	snap, _ := e.Snapshot(id)
	if snap.UserData.Domain != profile.DomainIT || snap.LastState != StateGreeting {
		t.Fatalf("snapshot after restart: %+v", snap)
	}
}

func TestUnknownStateIsAnError(t *testing.T) {
	e := newTestEngine(nil)
	_ = e.store.WithSession("broken", func(sess *Session, _ bool) error {
		sess.State = State("limbo")
		return nil
	})

	_, err := e.ProcessMessage(context.Background(), "broken", "hi")
	if !errors.Is(err, ErrUnknownState) {
		t.Fatalf("expected ErrUnknownState, got %v", err)
	}
}

func TestSkillsMergeWithExtractor(t *testing.T) {
	e := newTestEngine(&fakeExtractor{skills: []string{"Kubernetes", "go"}})
	id := "nlp"
	for _, m := range []string{"hi", "IT", "Fresher", "done", "skip"} {
		send(t, e, id, m)
	}

	send(t, e, id, "Go, Docker")
	snap, _ := e.Snapshot(id)
	want := []string{"Go", "Docker", "Kubernetes"}
	if len(snap.UserData.Skills) != len(want) {
		t.Fatalf("skills: %v, want %v", snap.UserData.Skills, want)
	}
	for i, s := range want {
		if snap.UserData.Skills[i] != s {
			t.Fatalf("skills: %v, want %v", snap.UserData.Skills, want)
		}
	}
}

func TestSkillsExtractorFailureIsNonFatal(t *testing.T) {
	e := newTestEngine(&fakeExtractor{err: errors.New("quota exceeded")})
	id := "nlp-err"
	for _, m := range []string{"hi", "IT", "Fresher", "done", "skip"} {
		send(t, e, id, m)
	}

	resp := send(t, e, id, "Go")
	if resp.State != StateTemplateSelection {
		t.Fatalf("state: %s", resp.State)
	}
	snap, _ := e.Snapshot(id)
	if len(snap.UserData.Skills) != 1 || snap.UserData.Skills[0] != "Go" {
		t.Fatalf("skills: %v", snap.UserData.Skills)
	}
}

func TestSetPhotoURLRevertsOnInvalidPath(t *testing.T) {
	e := newTestEngine(nil)
	id := "photo"
	send(t, e, id, "hi")

	if err := e.SetPhotoURL(id, "headshot.png"); err != nil {
		t.Fatalf("set photo: %v", err)
	}
	snap, _ := e.Snapshot(id)
	if snap.UserData.PhotoURL != "/uploads/headshot.png" {
		t.Fatalf("photo url: %q", snap.UserData.PhotoURL)
	}
}
