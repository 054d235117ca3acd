// Loading of extra upstream request headers.
package shared

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`(?:-H|--header)\s+(?:'([^']+)'|"([^"]+)")`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+(?:'([^']+)'|"([^"]+)")`)
)

// LoadRequestHeaders reads a headers file and returns the headers it declares.
//
// An empty path yields an empty header set.
func LoadRequestHeaders(path string) (http.Header, error) {
	if path == "" {
		return http.Header{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read headers file: %w", err)
	}

	return ParseRequestHeaders(data)
}

// ParseRequestHeaders accepts either a cURL command copied from browser dev tools
// (`-H 'Key: Value'` and `-b 'cookie'` flags) or plain `Key: Value` lines.
// Lines starting with # are ignored in the plain form.
func ParseRequestHeaders(data []byte) (http.Header, error) {
	text := strings.ReplaceAll(string(data), "\\\n", " ")

	if strings.HasPrefix(strings.TrimSpace(text), "curl ") {
		return parseCurl(text)
	}

	headers := http.Header{}
	scanner := bufio.NewScanner(bytes.NewReader([]byte(text)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitHeader(line)
		if !ok {
			return nil, fmt.Errorf("%w: malformed header line %q", ErrInvalidInput, line)
		}
		headers.Add(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan headers: %w", err)
	}

	return headers, nil
}

func parseCurl(cmd string) (http.Header, error) {
	headers := http.Header{}
	for _, m := range curlHeaderRe.FindAllStringSubmatch(cmd, -1) {
		if key, value, ok := splitHeader(firstGroup(m)); ok {
			headers.Add(key, value)
		}
	}

	if m := curlCookieRe.FindStringSubmatch(cmd); m != nil && headers.Get("Cookie") == "" {
		headers.Set("Cookie", firstGroup(m))
	}

	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return headers, nil
}

func firstGroup(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func splitHeader(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

// HeaderArgs renders headers as repeated yt-dlp `--add-header Key:Value` arguments.
func HeaderArgs(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var args []string
	for _, key := range keys {
		for _, v := range h[key] {
			args = append(args, "--add-header", key+":"+v)
		}
	}
	return args
}
