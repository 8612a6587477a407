package worker

import (
	"errors"
	"strings"
	"testing"

	"chatResume/internal/profile"
)

func sampleUser() profile.UserData {
	u := profile.NewUserData()
	u.Name = "Jane Doe"
	u.Email = "jane@example.com"
	u.Domain = profile.DomainIT
	u.ExperienceLevel = profile.LevelMid
	u.Experiences = []profile.Experience{
		{JobTitle: "Engineer", Company: "Acme", Duration: "2019 - 2023", Description: "Built internal tooling."},
	}
	u.Education = []profile.Education{
		{Degree: "BSc", Institution: "State University", GraduationYear: 2019},
	}
	u.Skills = []string{"Go", "SQL"}
	return u
}

func TestRenderResumeHTMLContainsSections(t *testing.T) {
	html, err := RenderResumeHTML(sampleUser(), "modern")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{"Jane Doe", "Experiences", "Education", "Skills", "2019 - 2023", "State University"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered html missing %q", want)
		}
	}
	if strings.Contains(html, "Certifications") {
		t.Error("empty certifications section should be omitted")
	}
}

func TestRenderResumeHTMLEscapesUserInput(t *testing.T) {
	u := sampleUser()
	u.Name = "<script>alert(1)</script>"
	html, err := RenderResumeHTML(u, "classic")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("user input not escaped")
	}
}

func TestRenderResumeHTMLInlinesPhotoDataURI(t *testing.T) {
	u := sampleUser()
	u.PhotoURL = "data:image/png;base64,iVBORw0KGgo="
	html, err := RenderResumeHTML(u, "modern")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !strings.Contains(html, `src="data:image/png;base64,iVBORw0KGgo="`) {
		t.Error("photo data uri missing from rendered html")
	}
	// html/template 对非白名单 scheme 的占位符，出现即说明 data URI 被过滤了。
	if strings.Contains(html, "ZgotmplZ") {
		t.Error("photo url was rejected by the template url filter")
	}
}

func TestRenderResumeHTMLOmitsMissingPhoto(t *testing.T) {
	html, err := RenderResumeHTML(sampleUser(), "modern")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<img") {
		t.Error("img tag rendered without a photo")
	}
}

func TestRenderResumeHTMLStyles(t *testing.T) {
	for _, name := range TemplateNames() {
		html, err := RenderResumeHTML(sampleUser(), name)
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		if !strings.Contains(html, templateStyles[name].AccentColor) {
			t.Errorf("template %s: accent color not applied", name)
		}
	}
}

func TestRenderResumeHTMLUnknownTemplate(t *testing.T) {
	_, err := RenderResumeHTML(sampleUser(), "fancy")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}
