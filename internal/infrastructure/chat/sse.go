package chat

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// doneSentinel terminates an OpenAI-style SSE stream
const doneSentinel = "[DONE]"

// deltaChunk is one OpenAI-style streaming event payload
type deltaChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DecodeStream incrementally decodes an OpenAI-style SSE stream,
// concatenating choices[0].delta.content from each data line until the
// [DONE] sentinel or stream end. Malformed lines are skipped, never abort
// the decode.
func DecodeStream(r io.Reader) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == doneSentinel {
			break
		}
		var chunk deltaChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil && sb.Len() == 0 {
		return "", err
	}
	return sb.String(), nil
}
