package worker

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"chatResume/internal/profile"
)

// ErrTemplateNotFound 表示请求了不存在的简历模板。
// 该错误直接上报调用方，不重试。
var ErrTemplateNotFound = errors.New("resume template not found")

// 模板的版式骨架是共享的，差异集中在配色与标题样式上。
// 布局必须稳定：ATS 分析依赖渲染结果中的段落标题与日期可被抽取。
const resumeTemplateString = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            margin: 0;
            font-family: 'Helvetica', 'Arial', sans-serif;
            font-size: 10pt;
            color: #1d1d1f;
        }
        .page {
            width: 794px; /* A4 @ 96 DPI */
            min-height: 1122px;
            background: white;
            padding: 48px;
            box-sizing: border-box;
        }
        h1 {
            margin: 0;
            font-size: 24pt;
            color: {{.AccentColor}};
        }
        .contact {
            margin: 4px 0 18px;
            color: #555;
        }
        h2 {
            font-size: 12pt;
            text-transform: {{.HeadingTransform}};
            border-bottom: 1px solid {{.AccentColor}};
            padding-bottom: 2px;
            margin: 18px 0 8px;
        }
        .entry { margin-bottom: 10px; }
        .entry-head { font-weight: bold; }
        .entry-meta { color: #555; font-size: 9pt; }
        ul { margin: 4px 0; padding-left: 18px; }
        li { margin-bottom: 2px; }
        .photo {
            float: right;
            width: 96px;
            height: 96px;
            object-fit: cover;
            border-radius: {{.PhotoRadius}};
        }
    </style>
</head>
<body>
    <div class="page">
        {{if .PhotoSrc}}<img class="photo" src="{{.PhotoSrc}}" />{{end}}
        <h1>{{.User.Name}}</h1>
        <div class="contact">{{.User.Email}} &bull; {{.User.Phone}} &bull; {{.User.Domain}} &bull; {{.User.ExperienceLevel}}</div>

        {{if .User.Experiences}}
        <h2>Experiences</h2>
        {{range .User.Experiences}}
        <div class="entry">
            <div class="entry-head">{{.JobTitle}} &mdash; {{.Company}}</div>
            <div class="entry-meta">{{.Duration}}</div>
            <ul><li>{{.Description}}</li></ul>
        </div>
        {{end}}
        {{end}}

        {{if .User.Education}}
        <h2>Education</h2>
        {{range .User.Education}}
        <div class="entry">
            <div class="entry-head">{{.Degree}} &mdash; {{.Institution}}</div>
            <div class="entry-meta">{{.GraduationYear}}</div>
        </div>
        {{end}}
        {{end}}

        {{if .User.Skills}}
        <h2>Skills</h2>
        <ul>
            {{range .User.Skills}}<li>{{.}}</li>{{end}}
        </ul>
        {{end}}

        {{if .User.Certifications}}
        <h2>Certifications</h2>
        <ul>
            {{range .User.Certifications}}<li>{{.}}</li>{{end}}
        </ul>
        {{end}}
    </div>
</body>
</html>
`

type templateStyle struct {
	AccentColor      string
	HeadingTransform string
	PhotoRadius      string
}

var templateStyles = map[string]templateStyle{
	"modern":  {AccentColor: "#3388ff", HeadingTransform: "uppercase", PhotoRadius: "50%"},
	"classic": {AccentColor: "#222222", HeadingTransform: "none", PhotoRadius: "0"},
	"minimal": {AccentColor: "#888888", HeadingTransform: "lowercase", PhotoRadius: "4px"},
}

var resumeTemplate = template.Must(template.New("resume").Parse(resumeTemplateString))

type resumeTemplateData struct {
	User     profile.UserData
	PhotoSrc template.URL
	templateStyle
}

// RenderResumeHTML 按指定模板渲染用户数据为 HTML。
// PhotoURL 要么经过上传校验清洗，要么是任务处理器内联生成的
// data URI；后者会被 html/template 的 URL 过滤器拦掉，所以这里
// 显式标记为可信 URL。
func RenderResumeHTML(user profile.UserData, templateName string) (string, error) {
	style, ok := templateStyles[templateName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, templateName)
	}

	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, resumeTemplateData{
		User:          user,
		PhotoSrc:      template.URL(user.PhotoURL),
		templateStyle: style,
	}); err != nil {
		return "", fmt.Errorf("render resume template: %w", err)
	}
	return buf.String(), nil
}

// TemplateNames 返回可用模板名，顺序固定。
func TemplateNames() []string {
	return []string{"modern", "classic", "minimal"}
}
