package profile

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ValidationError 表示某个字段未通过校验；整条记录被拒绝，不做部分保存。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

var (
	unsafeChars   = regexp.MustCompile(`[<>:"/\\|?*]`)
	nameChars     = regexp.MustCompile(`[^a-zA-Z\s\-'.]`)
	namePattern   = regexp.MustCompile(`^[a-zA-Z\s\-'.]*$`)
	phonePattern  = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	durationSpec  = regexp.MustCompile(`^(Present|\d{4} - \d{4})$`)
	multiSpace    = regexp.MustCompile(`\s+`)
	photoUnsafe   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	structChecker = validator.New(validator.WithRequiredStructEnabled())
)

// Validate 先对记录做消毒（去除危险字符、规范大小写、截断超长项），
// 再做硬校验（模式、范围、枚举）。消毒是幂等的：对已合法记录再次调用
// 得到逐字节相同的结果。返回消毒后的副本；任何失败返回 *ValidationError。
func Validate(u UserData) (UserData, error) {
	out := u

	out.Name = sanitizeName(u.Name)
	if !namePattern.MatchString(out.Name) {
		return UserData{}, &ValidationError{Field: "name", Reason: "contains invalid characters"}
	}

	out.Email = strings.TrimSpace(u.Email)
	if out.Email == "" {
		out.Email = DefaultEmail
	}

	out.Phone = strings.TrimSpace(u.Phone)
	if out.Phone == "" {
		out.Phone = DefaultPhone
	}
	if !phonePattern.MatchString(out.Phone) {
		return UserData{}, &ValidationError{Field: "phone", Reason: "must match E.164 format"}
	}

	domain, err := ParseDomain(string(u.Domain))
	if err != nil {
		return UserData{}, &ValidationError{Field: "domain", Reason: err.Error()}
	}
	out.Domain = domain

	level, err := ParseExperienceLevel(string(u.ExperienceLevel))
	if err != nil {
		return UserData{}, &ValidationError{Field: "experience_level", Reason: err.Error()}
	}
	out.ExperienceLevel = level

	out.Experiences = make([]Experience, len(u.Experiences))
	for i, exp := range u.Experiences {
		cleaned := Experience{
			JobTitle:    stripUnsafe(exp.JobTitle),
			Company:     stripUnsafe(exp.Company),
			Duration:    strings.TrimSpace(exp.Duration),
			Description: stripUnsafe(exp.Description),
		}
		if !durationSpec.MatchString(cleaned.Duration) {
			return UserData{}, &ValidationError{
				Field:  fmt.Sprintf("experiences[%d].duration", i),
				Reason: `must be "Present" or "YYYY - YYYY"`,
			}
		}
		out.Experiences[i] = cleaned
	}

	currentYear := time.Now().Year()
	out.Education = make([]Education, len(u.Education))
	for i, edu := range u.Education {
		cleaned := Education{
			Degree:         stripUnsafe(edu.Degree),
			Institution:    stripUnsafe(edu.Institution),
			GraduationYear: edu.GraduationYear,
		}
		if cleaned.GraduationYear < 1900 || cleaned.GraduationYear > currentYear {
			return UserData{}, &ValidationError{
				Field:  fmt.Sprintf("education[%d].graduation_year", i),
				Reason: fmt.Sprintf("must be between 1900 and %d", currentYear),
			}
		}
		out.Education[i] = cleaned
	}

	// 技能条目逐个消毒截断，但总数超限是硬错误。
	out.Skills = sanitizeList(u.Skills, 50)
	if len(out.Skills) > 15 {
		return UserData{}, &ValidationError{Field: "skills", Reason: "at most 15 skills allowed"}
	}

	out.Certifications = sanitizeList(u.Certifications, 100)

	out.PhotoURL = securePhotoPath(u.PhotoURL)

	if err := structChecker.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return UserData{}, &ValidationError{
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
			}
		}
		return UserData{}, &ValidationError{Field: "record", Reason: err.Error()}
	}

	return out, nil
}

// stripUnsafe 去除会破坏路径或标记语义的字符并收紧首尾空白。
func stripUnsafe(s string) string {
	return strings.TrimSpace(unsafeChars.ReplaceAllString(s, ""))
}

// sanitizeName 去除非法字符、折叠空白，并把每个空白分隔的词规范为
// 首字母大写、其余小写（词内标点保留）。空输入落回默认名。
func sanitizeName(s string) string {
	cleaned := strings.TrimSpace(nameChars.ReplaceAllString(s, ""))
	if cleaned == "" {
		return DefaultName
	}
	words := multiSpace.Split(cleaned, -1)
	for i, word := range words {
		words[i] = capitalizeWord(word)
	}
	return strings.Join(words, " ")
}

func capitalizeWord(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func sanitizeList(items []string, maxLen int) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		cleaned := stripUnsafe(item)
		if cleaned == "" {
			continue
		}
		// 按字符截断，避免把多字节字符切成非法 UTF-8。
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
		result = append(result, cleaned)
	}
	return result
}

// securePhotoPath 把任意输入路径规约为安全的相对上传路径。
func securePhotoPath(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(trimmed, `\`, "/"))
	base = photoUnsafe.ReplaceAllString(strings.ReplaceAll(base, " ", "_"), "")
	if base == "" || base == "." || base == ".." {
		return ""
	}
	return "/uploads/" + base
}
