package profile

import (
	"fmt"
	"strings"
)

// Domain 表示简历所属的行业方向，封闭枚举，仅在边界处解析一次。
type Domain string

const (
	DomainIT          Domain = "IT"
	DomainHealthcare  Domain = "Healthcare"
	DomainMarketing   Domain = "Marketing"
	DomainFinance     Domain = "Finance"
	DomainEngineering Domain = "Engineering"
	DomainEducation   Domain = "Education"
)

var domains = []Domain{
	DomainIT,
	DomainHealthcare,
	DomainMarketing,
	DomainFinance,
	DomainEngineering,
	DomainEducation,
}

// ParseDomain 大小写不敏感地解析行业方向，未知值返回错误。
func ParseDomain(s string) (Domain, error) {
	trimmed := strings.TrimSpace(s)
	for _, d := range domains {
		if strings.EqualFold(trimmed, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

// ExperienceLevel 表示工作年限段，封闭枚举。
type ExperienceLevel string

const (
	LevelFresher ExperienceLevel = "Fresher"
	LevelJunior  ExperienceLevel = "1-2 years"
	LevelMid     ExperienceLevel = "3-5 years"
	LevelSenior  ExperienceLevel = "5+ years"
)

var experienceLevels = []ExperienceLevel{
	LevelFresher,
	LevelJunior,
	LevelMid,
	LevelSenior,
}

// ParseExperienceLevel 大小写不敏感地解析工作年限段，未知值返回错误。
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	trimmed := strings.TrimSpace(s)
	for _, l := range experienceLevels {
		if strings.EqualFold(trimmed, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown experience level %q", s)
}

// Experience 表示一段工作经历。
type Experience struct {
	JobTitle    string `json:"job_title" validate:"required,min=2,max=100"`
	Company     string `json:"company" validate:"required,min=2,max=100"`
	Duration    string `json:"duration" validate:"required"`
	Description string `json:"description" validate:"required,min=10,max=500"`
}

// Education 表示一段教育经历。
type Education struct {
	Degree         string `json:"degree" validate:"required,min=2,max=100"`
	Institution    string `json:"institution" validate:"required,min=2,max=100"`
	GraduationYear int    `json:"graduation_year" validate:"required,min=1900"`
}

// UserData 是单个会话收集到的全部简历内容。
// 字段约束详见 Validate；任何字段校验失败整条记录都会被拒绝。
type UserData struct {
	Name            string          `json:"name" validate:"min=2,max=50"`
	Email           string          `json:"email" validate:"required,email"`
	Phone           string          `json:"phone" validate:"required"`
	Domain          Domain          `json:"domain"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	Experiences     []Experience    `json:"experiences"`
	Education       []Education     `json:"education"`
	Skills          []string        `json:"skills" validate:"max=15"`
	Certifications  []string        `json:"certifications"`
	PhotoURL        string          `json:"photo_url,omitempty"`
}

// 受控默认值：缺失的姓名/邮箱/电话使用占位值而非报错。
const (
	DefaultName  = "User"
	DefaultEmail = "user@example.com"
	DefaultPhone = "+1234567890"
)

// NewUserData 返回带文档化默认值的空白记录。
func NewUserData() UserData {
	return UserData{
		Name:            DefaultName,
		Email:           DefaultEmail,
		Phone:           DefaultPhone,
		Domain:          DomainIT,
		ExperienceLevel: LevelFresher,
		Experiences:     []Experience{},
		Education:       []Education{},
		Skills:          []string{},
		Certifications:  []string{},
	}
}
