package chatbot

import "testing"

func TestTrackerIsMonotonic(t *testing.T) {
	tr := NewTracker()

	if got := tr.Update("s", MilestoneDomain); got != 15 {
		t.Fatalf("domain: %v", got)
	}
	if got := tr.Update("s", MilestoneSkills); got != 75 {
		t.Fatalf("skills: %v", got)
	}
	// 重复较早的里程碑不回退进度。
	if got := tr.Update("s", MilestoneGreeting); got != 75 {
		t.Fatalf("late greeting: %v", got)
	}
	if got := tr.Get("s"); got != 75 {
		t.Fatalf("get: %v", got)
	}
}

func TestTrackerUnknownMilestoneIsHarmless(t *testing.T) {
	tr := NewTracker()
	tr.Update("s", MilestoneEducation)

	if got := tr.Update("s", "made_up_milestone"); got != 45 {
		t.Fatalf("unknown milestone changed progress: %v", got)
	}
}

func TestTrackerSessionsAreIndependent(t *testing.T) {
	tr := NewTracker()
	tr.Update("a", MilestoneCompleted)

	if got := tr.Get("b"); got != 0 {
		t.Fatalf("unrelated session: %v", got)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.Update("s", MilestoneTemplate)
	tr.Reset("s")

	if got := tr.Get("s"); got != 0 {
		t.Fatalf("after reset: %v", got)
	}
	// Reset 不存在的会话是空操作。
	tr.Reset("missing")
}
