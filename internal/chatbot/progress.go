package chatbot

import "sync"

// 里程碑到完成度的固定映射。Tracker 不了解状态机的迁移图，
// 任何不在表内的里程碑都是无害输入，映射为 0 增量。
const (
	MilestoneGreeting    = "greeting"
	MilestoneDomain      = "domain_selected"
	MilestoneExperience  = "experience_selected"
	MilestoneEducation   = "education_completed"
	MilestoneWorkHistory = "work_history_completed"
	MilestoneSkills      = "skills_added"
	MilestoneTemplate    = "template_selected"
	MilestoneCompleted   = "completed"
)

var progressSteps = map[string]float64{
	MilestoneGreeting:    0,
	MilestoneDomain:      15,
	MilestoneExperience:  30,
	MilestoneEducation:   45,
	MilestoneWorkHistory: 60,
	MilestoneSkills:      75,
	MilestoneTemplate:    90,
	MilestoneCompleted:   100,
}

// Tracker 为每个会话维护单调不减的完成度百分比。
type Tracker struct {
	mu       sync.Mutex
	progress map[string]float64
}

// NewTracker 构造空的进度表。
func NewTracker() *Tracker {
	return &Tracker{progress: make(map[string]float64)}
}

// Update 取里程碑对应的百分比（未知里程碑视为 0），
// 存储 max(已有值, 新值) 并返回。进度永不回退。
func (t *Tracker) Update(sessionID, milestone string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	value := progressSteps[milestone]
	if existing, ok := t.progress[sessionID]; ok && existing > value {
		value = existing
	}
	t.progress[sessionID] = value
	return value
}

// Get 返回会话的当前完成度，未知会话为 0。
func (t *Tracker) Get(sessionID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress[sessionID]
}

// Reset 彻底移除会话的进度记录（新对话开始时调用）。
func (t *Tracker) Reset(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.progress, sessionID)
}
