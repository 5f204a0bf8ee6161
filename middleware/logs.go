package middleware

import (
	"Diligent/Models"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogData is one JSON line in the request log.
type LogData struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	Error         string        `json:"error,omitempty"`
	UserID        uint          `json:"user_id,omitempty"`
	Username      string        `json:"username,omitempty"`
	ContentLength int64         `json:"content_length"`
}

const RequestLogPath = "logs/requests.log"

var skipPaths = map[string]bool{
	"/api/health": true,
}

var logFileMu sync.Mutex

// RequestLogger writes one JSON line per request to logs/requests.log
// and mirrors it to the console. Health checks are skipped.
func RequestLogger() fiber.Handler {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Error creating logs directory: %v\n", err)
	}

	return func(c *fiber.Ctx) error {
		if skipPaths[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		data := LogData{
			Timestamp:     start,
			Method:        c.Method(),
			Path:          c.Path(),
			URL:           c.OriginalURL(),
			Status:        c.Response().StatusCode(),
			Latency:       time.Since(start),
			IP:            c.IP(),
			UserAgent:     c.Get("User-Agent"),
			ContentLength: int64(len(c.Response().Body())),
		}

		if user, ok := c.Locals("user").(Models.User); ok {
			data.UserID = user.ID
			data.Username = user.Name
		}

		if err != nil {
			data.Error = err.Error()
		}

		writeLogLine(data)

		return err
	}
}

func writeLogLine(data LogData) {
	line, marshalErr := json.Marshal(data)
	if marshalErr != nil {
		log.Printf("Error marshaling request log: %v\n", marshalErr)
		return
	}

	log.Printf("%s %s %d %v\n", data.Method, data.Path, data.Status, data.Latency)

	logFileMu.Lock()
	defer logFileMu.Unlock()

	file, err := os.OpenFile(RequestLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening request log file: %v\n", err)
		return
	}
	defer file.Close()

	file.Write(append(line, '\n'))
}
