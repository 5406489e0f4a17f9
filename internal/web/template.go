package web

import (
	"html/template"

	"github.com/labstack/echo/v4"

	"github.com/outurnate/ruuth/internal/apperror"
)

// loginPage is the template data for the login challenge page:
// authenticity_token, an optional base64 CAPTCHA image, the post-login
// redirect url, an error flag, and the realm label. Rendered with stdlib
// html/template (see DESIGN.md for why no third-party templating library
// is wired in here).
type loginPage struct {
	AuthenticityToken string
	Captcha           *string
	URL               string
	Error             bool
	Realm             string
}

var loginPageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Realm}}{{.Realm}}{{else}}Sign in{{end}}</title>
</head>
<body>
<h1>{{if .Realm}}{{.Realm}}{{else}}Sign in{{end}}</h1>
{{if .Error}}<p class="error">Invalid username, password, or passcode.</p>{{end}}
<form method="post" action="/login">
<input type="hidden" name="authenticity_token" value="{{.AuthenticityToken}}">
<input type="hidden" name="url" value="{{.URL}}">
<label>Username <input type="text" name="username" autocomplete="username"></label>
<label>Password <input type="password" name="password" autocomplete="current-password"></label>
<label>Passcode <input type="text" name="passcode" autocomplete="one-time-code"></label>
{{if .Captcha}}
<img src="data:image/png;base64,{{.Captcha}}" alt="captcha">
<label>Captcha <input type="text" name="captcha"></label>
{{end}}
<button type="submit">Sign in</button>
</form>
</body>
</html>
`))

// renderLoginPage writes the login challenge page for page.
func renderLoginPage(c echo.Context, status int, page loginPage) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(status)
	if err := loginPageTemplate.Execute(c.Response().Writer, page); err != nil {
		return apperror.NewRender(err)
	}
	return nil
}
