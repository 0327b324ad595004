package systemsession

import (
	"fmt"
	"html"

	"github.com/gin-gonic/gin"
)

const pageTemplate = `
<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; text-align: center; }
        .container { max-width: 600px; margin: 0 auto; }
        .message { padding: 20px; border-radius: 5px; margin: 20px 0; }
        .info { background-color: #e7f3ff; border: 1px solid #b3d9ff; color: #0066cc; }
        .success { background-color: #e7f6e7; border: 1px solid #b3e6b3; color: #006600; }
        .error { background-color: #ffe7e7; border: 1px solid #ffb3b3; color: #cc0000; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <div class="message %s">
            <p>%s</p>
        </div>
    </div>
</body>
</html>`

func page(title, class, message string) string {
	return fmt.Sprintf(pageTemplate, title, title, class, html.EscapeString(message))
}

func successPage() string {
	return page("Authentication Successful", "success",
		"You have successfully authenticated. You can now close this window and return to the application.")
}

func errorPage(message string) string {
	return page("Authentication Failed", "error", message)
}

func infoPage(message string) string {
	return page("Authentication", "info", message)
}

func writePage(c *gin.Context, status int, body string) {
	c.Data(status, "text/html; charset=utf-8", []byte(body))
}

// securityHeaders sets the headers every callback page is served with.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
		c.Next()
	}
}
