package chatbot

import (
	"sync"
	"time"

	"chatResume/internal/metrics"
	"chatResume/internal/profile"
)

// State 是对话状态机的状态名。
type State string

const (
	StateGreeting          State = "greeting"
	StateDomain            State = "domain"
	StateExperience        State = "experience"
	StateEducation         State = "education"
	StateWorkHistory       State = "work_history"
	StateSkills            State = "skills"
	StateTemplateSelection State = "template_selection"
	StateCompleted         State = "completed"
)

// Session 是一次进行中的对话。只有 Engine 写入它；Store 独占持有。
type Session struct {
	State           State
	Data            profile.UserData
	Template        string
	LastInteraction time.Time
}

// Snapshot 是交给外部存储持久化的会话快照，核心自身从不直接落库。
type Snapshot struct {
	UserData  profile.UserData `json:"user_data"`
	LastState State            `json:"last_state"`
	Template  string           `json:"template,omitempty"`
	Progress  float64          `json:"progress"`
}

// Store 持有全部会话。前台消息处理与后台清扫共享这张表，
// 所有读写都在同一把锁下串行化。
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore 构造空的会话表。
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// WithSession 在锁内查找（或创建）会话并执行 fn。创建时使用文档化默认值，
// 状态置为 greeting。fn 返回后刷新 LastInteraction，包括空转消息。
func (s *Store) WithSession(id string, fn func(sess *Session, created bool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	created := false
	if !ok {
		sess = &Session{
			State: StateGreeting,
			Data:  profile.NewUserData(),
		}
		s.sessions[id] = sess
		created = true
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}

	err := fn(sess, created)
	sess.LastInteraction = s.now()
	return err
}

// Get 返回会话的一份拷贝。
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Delete 移除会话；不存在时为空操作。
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// Len 返回当前会话数。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle 删除空闲超过 timeout 的会话并返回被回收的会话 ID。
// 扫描与删除在同一临界区内完成，不会与消息处理交错。
func (s *Store) EvictIdle(timeout time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var evicted []string
	for id, sess := range s.sessions {
		if now.Sub(sess.LastInteraction) > timeout {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
	return evicted
}
