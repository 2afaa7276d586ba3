package callback

import (
	"html"
	"strings"
)

// Иконки страницы
const (
	IconDone  = "✅"
	IconError = "❌"
)

const authPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="referrer" content="no-referrer">
<title>accswitch</title>
<style>
body { font-family: sans-serif; background: #1e1e1e; color: #e0e0e0; display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
main { text-align: center; }
.icon { font-size: 72px; }
</style>
</head>
<body>
<main>
<div class="icon">%%ias_icon%%</div>
<p>%%ias_message%%</p>
</main>
</body>
</html>
`

// renderPage подставляет иконку и сообщение в страницу
func renderPage(icon, message string) []byte {
	return []byte(strings.NewReplacer(
		"%%ias_icon%%", icon,
		"%%ias_message%%", html.EscapeString(message),
	).Replace(authPage))
}
