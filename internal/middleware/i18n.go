// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// I18nMiddleware picks the response language from the Accept-Language header
// and stores it under "lang" for the handlers. Only locales the catalog
// actually ships are honored; everything else falls back to English.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", negotiateLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func negotiateLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		switch {
		case strings.HasPrefix(tag, "zh-TW"), strings.HasPrefix(tag, "zh-Hant"), strings.HasPrefix(tag, "zh_TW"):
			return "zh_TW"
		case strings.HasPrefix(tag, "en"):
			return "en"
		}
	}
	return "en"
}
