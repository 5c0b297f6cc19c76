package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"user-registry-api/internal/infrastructure/metrics"
)

const (
	maxLogBodySize = 1 << 12 // 4 KB

	maskedValue    = `"***"`
	truncatedValue = `"<truncated>"`
)

// RequestLogGin logs every request with its body. Password values never
// reach the log.
func RequestLogGin(
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
	latency *prometheus.HistogramVec,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions ||
			c.Request.URL.Path == "/favicon.ico" ||
			strings.HasSuffix(c.Request.URL.Path, "/metrics") {
			c.Next()
			return
		}

		start := time.Now()

		var (
			body      string
			truncated bool
		)
		if c.Request.Body != nil {
			var buf bytes.Buffer
			// one extra byte tells a full 4 KB body from a cut one
			_, _ = io.Copy(&buf, io.LimitReader(c.Request.Body, maxLogBodySize+1))
			logged := buf.Bytes()
			if len(logged) > maxLogBodySize {
				logged, truncated = logged[:maxLogBodySize], true
			}
			body = MaskPassword(string(logged))

			rest := c.Request.Body
			c.Request.Body = readCloser{
				Reader: io.MultiReader(bytes.NewReader(buf.Bytes()), rest),
				Closer: rest,
			}
		}

		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if mCounter != nil {
			mCounter.WithLabelValues(metrics.AppRequests).Inc()
		}
		if latency != nil {
			latency.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
				Observe(elapsed.Seconds())
		}

		logger.Info("HTTP request",
			zap.String("request_id", c.GetString(KeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("url", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", elapsed),
			zap.String("body", body),
			zap.Bool("body_truncated", truncated),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// MaskPassword replaces the value of every JSON key that binds to a
// password field. Keys match the way encoding/json matches them: escapes
// decoded, case folded. An unterminated string, as left by a cut body, is
// dropped with everything after it.
func MaskPassword(body string) string {
	var (
		b          strings.Builder
		passKey    bool // the last token was a password key
		secretNext bool // a password key and its colon were written
	)
	b.Grow(len(body))

	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '"':
			end := closingQuote(body, i)
			if end < 0 {
				b.WriteString(truncatedValue)
				return b.String()
			}
			tok := body[i : end+1]
			if secretNext {
				b.WriteString(maskedValue)
				secretNext, passKey = false, false
			} else {
				b.WriteString(tok)
				passKey = isPasswordKey(tok)
			}
			i = end + 1
		case c == ':':
			b.WriteByte(c)
			secretNext, passKey = passKey, false
			i++
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			b.WriteByte(c)
			i++
		case secretNext && c != '{' && c != '[':
			// a bare number or literal in the password slot
			j := i
			for j < len(body) && !strings.ContainsRune(",}] \t\r\n", rune(body[j])) {
				j++
			}
			b.WriteString(maskedValue)
			secretNext = false
			i = j
		default:
			b.WriteByte(c)
			secretNext, passKey = false, false
			i++
		}
	}

	return b.String()
}

// closingQuote returns the index of the quote ending the string that opens
// at i, or -1 when the string is not terminated.
func closingQuote(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return -1
}

func isPasswordKey(tok string) bool {
	var k string
	if err := json.Unmarshal([]byte(tok), &k); err != nil {
		k = tok[1 : len(tok)-1]
	}
	return strings.EqualFold(k, "password")
}

type readCloser struct {
	io.Reader
	io.Closer
}
