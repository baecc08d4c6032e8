package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

const defaultSystemMessage = "You are a helpful assistant that extracts structured " +
	"data from PDF documents. Always extract data according to the provided schema."

// Extract implements llm.Extractor. It reads the page-range text, submits a
// chat completion forcing the generated function, and returns the parsed
// function-call arguments. The shared semaphore bounds in-flight calls.
func (c *Client) Extract(ctx context.Context, req llm.ExtractRequest) (map[string]any, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"pdf_path", req.Document.Path,
		"document_type", req.Document.Type,
		"start_page", req.StartPage+1,
		"end_page", req.EndPage+1,
	)

	var text string
	var err error
	if req.PageMarkers {
		text, err = c.reader.MarkedText(ctx, req.Document)
	} else {
		text, err = c.reader.PageRangeText(ctx, req.Document, req.StartPage, req.EndPage)
	}
	if err != nil {
		c.logger.Error("llm.extract.text_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("read page range text: %w", err)
	}

	system := req.SystemMessage
	if system == "" {
		system = defaultSystemMessage
	}

	schemaMap := llm.ToJSONSchema(req.Schema)
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": text},
		},
		"functions": []map[string]any{{
			"name":        "extract_data",
			"description": "Extract structured data from text.",
			"parameters":  schemaMap,
		}},
		"function_call": map[string]any{"name": "extract_data"},
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	<-c.sem
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				FunctionCall *struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function_call"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewParseError(string(raw), fmt.Errorf("decode openai response: %w", err))
	}
	if len(cc.Choices) == 0 || cc.Choices[0].Message.FunctionCall == nil {
		c.logger.Error("llm.extract.no_function_call",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewParseError(string(raw), fmt.Errorf("no function call in openai response"))
	}

	args := cc.Choices[0].Message.FunctionCall.Arguments
	var result map[string]any
	if err := json.Unmarshal([]byte(args), &result); err != nil {
		c.logger.Error("llm.extract.arguments_parse_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewParseError(args, err)
	}

	// Validation failures are logged, not fatal: the policy on degraded
	// output lives one layer up.
	if err := llm.ValidateJSONAgainstSchema(schemaMap, []byte(args)); err != nil {
		c.logger.Warn("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"fields", len(result),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, buf.String())
	}

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes(), nil
}
