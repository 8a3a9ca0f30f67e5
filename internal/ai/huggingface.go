// Package ai 封装了对外部托管模型推理 API (Hugging Face Inference API) 的调用。
// 对上层来说它是一个黑盒：输入上下文，输出补全文本或失败。
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// 默认的推理参数，与上游服务的原始配置保持一致。
const (
	defaultTimeout = 30 * time.Second
	maxNewTokens   = 100
	temperature    = 0.3
)

// HuggingFaceClient 是托管模型推理 API 的 HTTP 客户端。
type HuggingFaceClient struct {
	httpClient *http.Client
	apiURL     string // 例如 https://api-inference.huggingface.co/models
	apiToken   string
	model      string // 例如 bigcode/starcoder
}

// NewHuggingFaceClient 创建 HuggingFaceClient 实例。
// apiToken 为空表示未配置推理服务，Enabled 返回 false。
func NewHuggingFaceClient(apiURL, apiToken, model string) *HuggingFaceClient {
	if apiURL == "" {
		apiURL = "https://api-inference.huggingface.co/models"
	}
	if model == "" {
		model = "bigcode/starcoder"
	}
	return &HuggingFaceClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiToken:   apiToken,
		model:      model,
	}
}

// Enabled 返回推理服务是否已配置。
func (c *HuggingFaceClient) Enabled() bool {
	return c.apiToken != ""
}

// inferenceRequest 是推理 API 的请求体。
type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	DoSample     bool    `json:"do_sample"`
}

// inferenceResult 是推理 API 返回数组中的单个元素。
type inferenceResult struct {
	GeneratedText string `json:"generated_text"`
}

// Complete 请求模型对给定上下文做代码补全。
// 返回去掉输入前缀后的补全文本；任何传输或解码失败都包装为错误返回，
// 由调用方决定降级策略 (不在这里重试)。
func (c *HuggingFaceClient) Complete(ctx context.Context, codeContext string) (string, error) {
	url := fmt.Sprintf("%s/%s", c.apiURL, c.model)

	payload, err := json.Marshal(inferenceRequest{
		Inputs: codeContext,
		Parameters: inferenceParameters{
			MaxNewTokens: maxNewTokens,
			Temperature:  temperature,
			DoSample:     true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai: failed to build inference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"model":  c.model,
		}).Warn("Inference API returned non-OK status")
		return "", fmt.Errorf("ai: inference API returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []inferenceResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("ai: failed to decode inference response: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}

	// 推理 API 返回的 generated_text 包含输入本身，去掉前缀只留补全部分
	text := strings.TrimPrefix(results[0].GeneratedText, codeContext)
	return strings.TrimSpace(text), nil
}
