package profile

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func validRecord() UserData {
	u := NewUserData()
	u.Name = "Jane Doe"
	u.Email = "jane@example.com"
	u.Phone = "+14155552671"
	u.Domain = DomainIT
	u.ExperienceLevel = LevelMid
	u.Experiences = []Experience{
		{
			JobTitle:    "Backend Engineer",
			Company:     "Acme Corp",
			Duration:    "2019 - 2023",
			Description: "Built and operated payment services.",
		},
	}
	u.Education = []Education{
		{Degree: "BSc Computer Science", Institution: "State University", GraduationYear: 2019},
	}
	u.Skills = []string{"Go", "PostgreSQL"}
	return u
}

func TestValidateAcceptsDefaults(t *testing.T) {
	out, err := Validate(NewUserData())
	if err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
	if out.Name != DefaultName || out.Email != DefaultEmail || out.Phone != DefaultPhone {
		t.Fatalf("defaults changed: %+v", out)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	first, err := Validate(validRecord())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := Validate(first)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("sanitization not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestValidateSanitizesName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  john   o'brien  ", "John O'brien"},
		{"JANE", "Jane"},
		{"mary-ann smith", "Mary-ann Smith"},
		{"<script>bob</script>", "Scriptbobscript"},
		{"", DefaultName},
		{"12345", DefaultName},
	}
	for _, tc := range cases {
		u := validRecord()
		u.Name = tc.in
		out, err := Validate(u)
		if err != nil {
			t.Fatalf("name %q: %v", tc.in, err)
		}
		if out.Name != tc.want {
			t.Errorf("name %q: got %q, want %q", tc.in, out.Name, tc.want)
		}
	}
}

func TestValidateRejectsBadPhone(t *testing.T) {
	for _, phone := range []string{"0123", "not-a-phone", "+0123456789"} {
		u := validRecord()
		u.Phone = phone
		if _, err := Validate(u); err == nil {
			t.Errorf("phone %q: expected error", phone)
		}
	}
}

func TestValidateDefaultsEmptyContact(t *testing.T) {
	u := validRecord()
	u.Email = "   "
	u.Phone = ""
	out, err := Validate(u)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if out.Email != DefaultEmail {
		t.Errorf("email: got %q, want %q", out.Email, DefaultEmail)
	}
	if out.Phone != DefaultPhone {
		t.Errorf("phone: got %q, want %q", out.Phone, DefaultPhone)
	}
}

func TestValidateNormalizesEnums(t *testing.T) {
	u := validRecord()
	u.Domain = Domain("healthcare")
	u.ExperienceLevel = ExperienceLevel("fresher")
	out, err := Validate(u)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if out.Domain != DomainHealthcare {
		t.Errorf("domain: got %q", out.Domain)
	}
	if out.ExperienceLevel != LevelFresher {
		t.Errorf("experience level: got %q", out.ExperienceLevel)
	}

	u.Domain = Domain("astrology")
	if _, err := Validate(u); err == nil {
		t.Fatal("unknown domain: expected error")
	}
}

func TestValidateExperienceDuration(t *testing.T) {
	u := validRecord()
	u.Experiences[0].Duration = "Present"
	if _, err := Validate(u); err != nil {
		t.Fatalf("duration Present: %v", err)
	}

	for _, bad := range []string{"2019-2023", "last year", "2019 -2023", ""} {
		u := validRecord()
		u.Experiences[0].Duration = bad
		var verr *ValidationError
		_, err := Validate(u)
		if !errors.As(err, &verr) {
			t.Errorf("duration %q: expected *ValidationError, got %v", bad, err)
			continue
		}
		if !strings.Contains(verr.Field, "duration") {
			t.Errorf("duration %q: wrong field %q", bad, verr.Field)
		}
	}
}

func TestValidateGraduationYearRange(t *testing.T) {
	for _, year := range []int{1899, time.Now().Year() + 1} {
		u := validRecord()
		u.Education[0].GraduationYear = year
		if _, err := Validate(u); err == nil {
			t.Errorf("year %d: expected error", year)
		}
	}
}

func TestValidateSkillsLimits(t *testing.T) {
	u := validRecord()
	long := strings.Repeat("x", 80)
	u.Skills = []string{long, "  ", "Go"}
	out, err := Validate(u)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(out.Skills) != 2 {
		t.Fatalf("skills: got %v", out.Skills)
	}
	if len(out.Skills[0]) != 50 {
		t.Errorf("long skill not truncated to 50: len=%d", len(out.Skills[0]))
	}

	// 截断按字符计数并落在字符边界上，多字节字符不能被切坏。
	u = validRecord()
	u.Skills = []string{strings.Repeat("x", 49) + "é", strings.Repeat("é", 60)}
	out, err = Validate(u)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, skill := range out.Skills {
		if !utf8.ValidString(skill) {
			t.Errorf("truncated skill is invalid utf-8: %q", skill)
		}
		if got := utf8.RuneCountInString(skill); got != 50 {
			t.Errorf("truncated skill rune count: %d", got)
		}
	}

	u = validRecord()
	for i := 0; i < 16; i++ {
		u.Skills = append(u.Skills, "skill")
	}
	var verr *ValidationError
	if _, err := Validate(u); !errors.As(err, &verr) || verr.Field != "skills" {
		t.Fatalf("16 skills: expected skills validation error, got %v", err)
	}
}

func TestValidatePhotoPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"headshot.png", "/uploads/headshot.png"},
		{"../../etc/passwd", "/uploads/passwd"},
		{`C:\Users\me\photo 1.jpg`, "/uploads/photo_1.jpg"},
	}
	for _, tc := range cases {
		u := validRecord()
		u.PhotoURL = tc.in
		out, err := Validate(u)
		if err != nil {
			t.Fatalf("photo %q: %v", tc.in, err)
		}
		if out.PhotoURL != tc.want {
			t.Errorf("photo %q: got %q, want %q", tc.in, out.PhotoURL, tc.want)
		}
	}
}

func TestParseDomainTable(t *testing.T) {
	if d, err := ParseDomain(" it "); err != nil || d != DomainIT {
		t.Fatalf("parse ' it ': %v %v", d, err)
	}
	if _, err := ParseDomain("retail"); err == nil {
		t.Fatal("parse retail: expected error")
	}
}
