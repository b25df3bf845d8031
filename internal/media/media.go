package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/promptd/promptd/internal/config"
)

// Pipeline generates image and video artifacts into the outputs dir
type Pipeline struct {
	a1111URL   string
	ffmpegPath string
	outputsDir string
	client     *http.Client
}

// NewPipeline creates the media pipeline
func NewPipeline(cfg config.MediaConfig, outputsDir string) *Pipeline {
	return &Pipeline{
		a1111URL:   cfg.A1111URL,
		ffmpegPath: cfg.FFmpegPath,
		outputsDir: outputsDir,
		client:     &http.Client{Timeout: 5 * time.Minute},
	}
}

type txt2imgRequest struct {
	Prompt string `json:"prompt"`
	Steps  int    `json:"steps"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// GenerateImage renders a prompt through the A1111 txt2img endpoint and
// writes the PNG into outputs, returning its path.
func (p *Pipeline) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if p.a1111URL == "" {
		return "", fmt.Errorf("image generation is not configured (A1111_URL unset)")
	}

	payload, err := json.Marshal(txt2imgRequest{Prompt: prompt, Steps: 20, Width: 768, Height: 768})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST",
		strings.TrimRight(p.a1111URL, "/")+"/sdapi/v1/txt2img", bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image backend request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("image backend error %d: %s", resp.StatusCode, string(body))
	}

	var result txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode image response: %w", err)
	}
	if len(result.Images) == 0 {
		return "", fmt.Errorf("image backend returned no images")
	}
	data, err := base64.StdEncoding.DecodeString(result.Images[0])
	if err != nil {
		return "", fmt.Errorf("failed to decode image data: %w", err)
	}

	path := p.artifactPath("image", "png")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}

// GenerateVideo renders a frame sequence into a short video by first
// generating frames through the image backend and then invoking the
// external frame tool.
func (p *Pipeline) GenerateVideo(ctx context.Context, prompt string, frames int) (string, error) {
	if frames <= 0 {
		frames = 8
	}
	frameDir, err := os.MkdirTemp(p.outputsDir, "frames-")
	if err != nil {
		return "", fmt.Errorf("failed to create frame directory: %w", err)
	}
	defer os.RemoveAll(frameDir)

	for i := 0; i < frames; i++ {
		framePrompt := fmt.Sprintf("%s, frame %d of %d", prompt, i+1, frames)
		framePath, err := p.GenerateImage(ctx, framePrompt)
		if err != nil {
			return "", fmt.Errorf("frame %d failed: %w", i+1, err)
		}
		dst := filepath.Join(frameDir, fmt.Sprintf("frame-%03d.png", i))
		if err := os.Rename(framePath, dst); err != nil {
			return "", fmt.Errorf("failed to stage frame: %w", err)
		}
	}

	out := p.artifactPath("video", "mp4")
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-y", "-framerate", "4",
		"-i", filepath.Join(frameDir, "frame-%03d.png"),
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("frame tool failed: %s", strings.TrimSpace(string(output)))
	}
	return out, nil
}

// artifactPath names artifacts <kind>-<iso-timestamp>.<ext>
func (p *Pipeline) artifactPath(kind, ext string) string {
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05Z")
	return filepath.Join(p.outputsDir, fmt.Sprintf("%s-%s.%s", kind, stamp, ext))
}
