package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tsawler/transcripta/model"
)

func init() {
	Register(NameOpenAI, newOpenAIEngine)
}

// openaiConfidence is assigned to every fragment the vision engine
// produces. The API reports no per-word confidence, so a fixed value
// keeps the fragments comparable with the Tesseract engines.
const openaiConfidence = 0.9

const openaiPrompt = "Transcribe every line of text visible in this scanned " +
	"academic transcript page. Output one line of plain text per visible line, " +
	"top to bottom, preserving the left-to-right order of values within each " +
	"line. Output nothing except the transcribed lines."

// openaiEngine sends the page image to an OpenAI vision model and turns
// the line-per-line transcription into synthetic full-width fragments.
// Word positions within a line are approximated from text length, which
// is enough for row reconstruction and column ordering downstream.
type openaiEngine struct {
	client *openai.Client
	model  string
}

// newOpenAIEngine reads OPENAI_API_KEY, OPENAI_BASE_URL, and
// OPENAI_MODEL. Without a key the engine reports itself unavailable so
// chains fall through to the next engine.
func newOpenAIEngine() (Engine, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, &EngineUnavailableError{
			Engine: NameOpenAI,
			Err:    errors.New("OPENAI_API_KEY not set"),
		}
	}

	cfg := openai.DefaultConfig(key)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	mdl := os.Getenv("OPENAI_MODEL")
	if mdl == "" {
		mdl = openai.GPT4VisionPreview
	}

	return &openaiEngine{
		client: openai.NewClientWithConfig(cfg),
		model:  mdl,
	}, nil
}

func (e *openaiEngine) Name() string { return NameOpenAI }

func (e *openaiEngine) Recognize(ctx context.Context, img image.Image, opts Options) ([]model.TextFragment, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &RecognitionError{Engine: NameOpenAI, Page: opts.PageIndex, Err: err}
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: 4096,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: openaiPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &RecognitionError{Engine: NameOpenAI, Page: opts.PageIndex, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &RecognitionError{
			Engine: NameOpenAI,
			Page:   opts.PageIndex,
			Err:    fmt.Errorf("empty completion response"),
		}
	}

	bounds := img.Bounds()
	fragments := transcriptionFragments(
		resp.Choices[0].Message.Content,
		opts.PageIndex,
		float64(bounds.Dx()), float64(bounds.Dy()),
	)
	return model.CleanFragments(fragments, float64(bounds.Dx()), float64(bounds.Dy())), nil
}

// transcriptionFragments converts a line-per-line transcription into
// word fragments. Each non-empty line occupies an equal-height band;
// word boxes split the band width proportionally to text length.
func transcriptionFragments(text string, page int, width, height float64) []model.TextFragment {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	bandHeight := height / float64(len(kept))
	var fragments []model.TextFragment
	for i, line := range kept {
		words := strings.Fields(line)
		total := 0
		for _, w := range words {
			total += len(w) + 1
		}

		y := float64(i) * bandHeight
		x := 0.0
		for _, w := range words {
			span := width * float64(len(w)+1) / float64(total)
			fragments = append(fragments, model.TextFragment{
				Text:       w,
				BBox:       model.NewBBox(x, y, span, bandHeight),
				Confidence: openaiConfidence,
				Engine:     NameOpenAI,
				Page:       page,
			})
			x += span
		}
	}
	return fragments
}
