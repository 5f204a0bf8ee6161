package Controllers

import (
	"bufio"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"Diligent/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetLogs returns request log entries, newest first, with optional
// date/path/method filters. Admin only.
func GetLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	dateFrom, dateTo, err := parseDateRange(c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
	}

	pathFilter := c.Query("path")
	methodFilter := c.Query("method")

	entries, err := readLogEntries()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read logs"})
	}

	var filtered []middleware.LogData
	for _, entry := range entries {
		if entry.Timestamp.Before(dateFrom) || entry.Timestamp.After(dateTo) {
			continue
		}
		if pathFilter != "" && entry.Path != pathFilter {
			continue
		}
		if methodFilter != "" && entry.Method != methodFilter {
			continue
		}
		filtered = append(filtered, entry)
	}

	// Newest first
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return c.JSON(fiber.Map{
		"logs":      filtered[start:end],
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetLogStats aggregates per-path counts and latency over the selected
// date range. Admin only.
func GetLogStats(c *fiber.Ctx) error {
	dateFrom, dateTo, err := parseDateRange(c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
	}

	entries, err := readLogEntries()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read logs"})
	}

	type pathStats struct {
		Path         string  `json:"path"`
		Count        int     `json:"count"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
		SuccessRate  float64 `json:"success_rate"`

		totalLatency time.Duration
		successes    int
	}

	stats := map[string]*pathStats{}
	total := 0

	for _, entry := range entries {
		if entry.Timestamp.Before(dateFrom) || entry.Timestamp.After(dateTo) {
			continue
		}
		total++

		s, ok := stats[entry.Path]
		if !ok {
			s = &pathStats{Path: entry.Path}
			stats[entry.Path] = s
		}
		s.Count++
		s.totalLatency += entry.Latency
		if entry.Status < 400 {
			s.successes++
		}
	}

	results := make([]*pathStats, 0, len(stats))
	for _, s := range stats {
		s.AvgLatencyMs = float64(s.totalLatency.Milliseconds()) / float64(s.Count)
		s.SuccessRate = float64(s.successes) / float64(s.Count) * 100
		results = append(results, s)
	}

	return c.JSON(fiber.Map{
		"paths": results,
		"total": total,
	})
}

func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now()
	dateFrom := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dateTo := dateFrom.Add(24*time.Hour - time.Nanosecond)

	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return dateFrom, dateTo, err
		}
		dateFrom = parsed
	}

	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return dateFrom, dateTo, err
		}
		dateTo = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	return dateFrom, dateTo, nil
}

func readLogEntries() ([]middleware.LogData, error) {
	file, err := os.Open(middleware.RequestLogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []middleware.LogData
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var entry middleware.LogData
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}
