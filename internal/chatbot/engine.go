package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"chatResume/internal/config"
	"chatResume/internal/metrics"
	"chatResume/internal/nlp"
	"chatResume/internal/profile"
)

// ErrUnknownState 表示对话到达了没有注册处理器的状态。
// 这是状态机定义被破坏的信号，绝不静默回退。
var ErrUnknownState = errors.New("chatbot: no handler registered for state")

// Response 是一条消息处理后的结构化应答。校验失败也走这里，不抛异常。
type Response struct {
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Completed bool     `json:"completed"`
	State     State    `json:"state"`
	Progress  float64  `json:"progress"`
}

const restartCommand = "restart conversation"

// handlerResult 是单个状态处理器的产出：应答文本、候选项、
// 本次达成的里程碑（可为空）。
type handlerResult struct {
	text      string
	options   []string
	milestone string
	completed bool
}

type handlerFunc func(ctx context.Context, sess *Session, message string) handlerResult

// Engine 是对话状态机。它独占 Store 的写路径：查找或创建会话、
// 把自由文本分派给当前状态的处理器、改写 UserData、推进状态，
// 并在每次处理后对整条记录重新校验。
//
// 设计决策：校验失败不回滚触发它的状态迁移，记录允许在两条消息之间
// 短暂处于非法状态；恢复路径是 "Restart conversation"。
type Engine struct {
	cfg       config.ChatbotConfig
	store     *Store
	progress  *Tracker
	extractor nlp.Extractor
	logger    *slog.Logger
	handlers  map[State]handlerFunc
}

// NewEngine 构造状态机。extractor 可以为 nil，此时跳过实体抽取。
func NewEngine(cfg config.ChatbotConfig, store *Store, progress *Tracker, extractor nlp.Extractor, logger *slog.Logger) *Engine {
	e := &Engine{
		cfg:       cfg,
		store:     store,
		progress:  progress,
		extractor: extractor,
		logger:    logger,
	}
	e.handlers = map[State]handlerFunc{
		StateGreeting:          e.handleGreeting,
		StateDomain:            e.handleDomain,
		StateExperience:        e.handleExperience,
		StateEducation:         e.handleEducation,
		StateWorkHistory:       e.handleWorkHistory,
		StateSkills:            e.handleSkills,
		StateTemplateSelection: e.handleTemplateSelection,
		StateCompleted:         e.handleCompleted,
	}
	return e
}

// ProcessMessage 处理一条入站消息。会话不存在时先用默认值初始化。
// 整个处理过程持有会话表的锁，与后台清扫串行。
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, message string) (Response, error) {
	var resp Response

	err := e.store.WithSession(sessionID, func(sess *Session, created bool) error {
		if created {
			e.progress.Reset(sessionID)
			e.logger.Info("session initialized", slog.String("session_id", sessionID))
		}

		if strings.EqualFold(strings.TrimSpace(message), restartCommand) {
			sess.State = StateGreeting
			sess.Data = profile.NewUserData()
			sess.Template = ""
			e.progress.Reset(sessionID)
			resp = Response{
				Text:     "Conversation restarted. Say 'Hi' whenever you are ready.",
				Options:  []string{},
				State:    sess.State,
				Progress: 0,
			}
			return nil
		}

		handler, ok := e.handlers[sess.State]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownState, sess.State)
		}

		result := handler(ctx, sess, message)
		metrics.MessagesProcessedTotal.WithLabelValues(string(sess.State)).Inc()

		validated, verr := profile.Validate(sess.Data)
		if verr != nil {
			resp = Response{
				Text:     fmt.Sprintf("Validation error: %v", verr),
				Options:  []string{"Restart conversation"},
				State:    sess.State,
				Progress: e.progress.Get(sessionID),
			}
			return nil
		}
		sess.Data = validated

		progress := e.progress.Get(sessionID)
		if result.milestone != "" {
			progress = e.progress.Update(sessionID, result.milestone)
		}

		resp = Response{
			Text:      result.text,
			Options:   result.options,
			Completed: result.completed,
			State:     sess.State,
			Progress:  progress,
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Snapshot 返回交给外部存储的会话快照。
func (e *Engine) Snapshot(sessionID string) (Snapshot, bool) {
	sess, ok := e.store.Get(sessionID)
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		UserData:  sess.Data,
		LastState: sess.State,
		Template:  sess.Template,
		Progress:  e.progress.Get(sessionID),
	}, true
}

// SetPhotoURL 更新会话照片路径并重新校验整条记录。
func (e *Engine) SetPhotoURL(sessionID, photoURL string) error {
	return e.store.WithSession(sessionID, func(sess *Session, _ bool) error {
		previous := sess.Data.PhotoURL
		sess.Data.PhotoURL = photoURL
		validated, err := profile.Validate(sess.Data)
		if err != nil {
			sess.Data.PhotoURL = previous
			return err
		}
		sess.Data = validated
		return nil
	})
}

// MarkCompleted 在外部触发简历生成时把进度推到终点。
func (e *Engine) MarkCompleted(sessionID string) float64 {
	return e.progress.Update(sessionID, MilestoneCompleted)
}

func (e *Engine) handleGreeting(_ context.Context, sess *Session, message string) handlerResult {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "hi") && !strings.Contains(lower, "hello") {
		return handlerResult{text: "Please greet with 'Hi' to start the conversation."}
	}

	sess.State = StateDomain
	return handlerResult{
		text:      "Welcome to the resume builder! What's your domain of expertise?",
		options:   e.cfg.Domains,
		milestone: MilestoneGreeting,
	}
}

func (e *Engine) handleDomain(_ context.Context, sess *Session, message string) handlerResult {
	matched, ok := matchOption(message, e.cfg.Domains)
	if !ok {
		return handlerResult{
			text:    "Please select a valid domain.",
			options: e.cfg.Domains,
		}
	}

	domain, err := profile.ParseDomain(matched)
	if err != nil {
		// 配置词表里出现了枚举之外的值，当作无效输入重新提示。
		e.logger.Warn("configured domain not in closed set", slog.String("domain", matched))
		return handlerResult{
			text:    "Please select a valid domain.",
			options: e.cfg.Domains,
		}
	}

	sess.Data.Domain = domain
	sess.State = StateExperience
	return handlerResult{
		text:      "Great choice! How many years of experience do you have?",
		options:   e.cfg.ExperienceLevels,
		milestone: MilestoneDomain,
	}
}

func (e *Engine) handleExperience(_ context.Context, sess *Session, message string) handlerResult {
	matched, ok := matchOption(message, e.cfg.ExperienceLevels)
	if !ok {
		return handlerResult{
			text:    "Please select a valid experience level.",
			options: e.cfg.ExperienceLevels,
		}
	}

	level, err := profile.ParseExperienceLevel(matched)
	if err != nil {
		e.logger.Warn("configured experience level not in closed set", slog.String("level", matched))
		return handlerResult{
			text:    "Please select a valid experience level.",
			options: e.cfg.ExperienceLevels,
		}
	}

	sess.Data.ExperienceLevel = level
	sess.State = StateEducation
	return handlerResult{
		text:      "Tell me about your education, one entry per message: degree, institution, graduation year. Say 'done' when finished.",
		options:   []string{"done"},
		milestone: MilestoneExperience,
	}
}

func (e *Engine) handleEducation(_ context.Context, sess *Session, message string) handlerResult {
	if isDone(message) {
		sess.State = StateWorkHistory
		return handlerResult{
			text:      "Now your work history, one entry per message: job title, company, duration (e.g. 2019 - 2022 or Present), description. Say 'done' to continue or 'skip' if you have none.",
			options:   []string{"done", "skip"},
			milestone: MilestoneEducation,
		}
	}

	parts := splitFields(message, 3)
	if parts == nil {
		return handlerResult{
			text:    "I couldn't read that. Use the format: degree, institution, graduation year — or say 'done'.",
			options: []string{"done"},
		}
	}

	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return handlerResult{
			text:    "The graduation year must be a number, e.g. 2020. Try again or say 'done'.",
			options: []string{"done"},
		}
	}

	sess.Data.Education = append(sess.Data.Education, profile.Education{
		Degree:         parts[0],
		Institution:    parts[1],
		GraduationYear: year,
	})
	return handlerResult{
		text:    fmt.Sprintf("Added %s at %s. Add another entry or say 'done'.", parts[0], parts[1]),
		options: []string{"done"},
	}
}

func (e *Engine) handleWorkHistory(_ context.Context, sess *Session, message string) handlerResult {
	if isDone(message) || strings.EqualFold(strings.TrimSpace(message), "skip") {
		sess.State = StateSkills
		return handlerResult{
			text:      "List your skills, separated by commas (up to 15).",
			milestone: MilestoneWorkHistory,
		}
	}

	parts := splitFields(message, 4)
	if parts == nil {
		return handlerResult{
			text:    "I couldn't read that. Use the format: job title, company, duration, description — or say 'done'.",
			options: []string{"done", "skip"},
		}
	}

	sess.Data.Experiences = append(sess.Data.Experiences, profile.Experience{
		JobTitle:    parts[0],
		Company:     parts[1],
		Duration:    parts[2],
		Description: parts[3],
	})
	return handlerResult{
		text:    fmt.Sprintf("Added %s at %s. Add another entry or say 'done'.", parts[0], parts[1]),
		options: []string{"done"},
	}
}

func (e *Engine) handleSkills(ctx context.Context, sess *Session, message string) handlerResult {
	skills := splitList(message)

	// 实体抽取是可选增强：失败或缺席都不阻断对话。
	if e.extractor != nil {
		entities, err := e.extractor.ExtractEntities(ctx, message)
		if err != nil {
			e.logger.Warn("entity extraction failed, continuing without it", slog.Any("error", err))
		} else {
			skills = append(skills, entities.Skills...)
		}
	}

	sess.Data.Skills = mergeUnique(sess.Data.Skills, skills)
	sess.State = StateTemplateSelection
	return handlerResult{
		text:      "Almost there! Pick a resume template.",
		options:   e.cfg.Templates,
		milestone: MilestoneSkills,
	}
}

func (e *Engine) handleTemplateSelection(_ context.Context, sess *Session, message string) handlerResult {
	matched, ok := matchOption(message, e.cfg.Templates)
	if !ok {
		return handlerResult{
			text:    "Please pick one of the available templates.",
			options: e.cfg.Templates,
		}
	}

	sess.Template = matched
	sess.State = StateCompleted
	return handlerResult{
		text:      fmt.Sprintf("Template %q selected. Your resume is ready — generate it whenever you like!", matched),
		options:   []string{"Restart conversation"},
		milestone: MilestoneTemplate,
		completed: true,
	}
}

// 终态：不再接受任何字段改写。
func (e *Engine) handleCompleted(_ context.Context, _ *Session, _ string) handlerResult {
	return handlerResult{
		text:      "Your resume data is complete. Generate the PDF, or restart to build a new one.",
		options:   []string{"Restart conversation"},
		milestone: MilestoneCompleted,
		completed: true,
	}
}

// matchOption 在词表中大小写不敏感地精确匹配，返回词表里的规范写法。
func matchOption(message string, options []string) (string, bool) {
	trimmed := strings.TrimSpace(message)
	for _, option := range options {
		if strings.EqualFold(trimmed, option) {
			return option, true
		}
	}
	return "", false
}

func isDone(message string) bool {
	return strings.EqualFold(strings.TrimSpace(message), "done")
}

// splitFields 按逗号拆出恰好 n 个字段；最后一个字段允许包含逗号。
func splitFields(message string, n int) []string {
	parts := strings.SplitN(message, ",", n)
	if len(parts) < n {
		return nil
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil
		}
	}
	return parts
}

func splitList(message string) []string {
	var result []string
	for _, part := range strings.Split(message, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

func mergeUnique(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, s := range existing {
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, s)
	}
	for _, s := range incoming {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, strings.TrimSpace(s))
	}
	return merged
}
