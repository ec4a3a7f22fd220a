package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"rxguardian/internal/logger"
)

const (
	// MaxFileSizeBytes is the inline request limit for synchronous annotation.
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the page limit for synchronous file annotation.
	MaxPagesSync = 5
)

// annotator is the subset of the Vision client the reader needs.
type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error)
	Close() error
}

// VisionReader implements prescription reading with Google Cloud Vision.
type VisionReader struct {
	client annotator
	log    zerolog.Logger
	now    func() time.Time
}

// NewVisionReader creates a reader with credentials from the environment.
func NewVisionReader(ctx context.Context) (*VisionReader, error) {
	const op = "NewVisionReader"

	var opts []option.ClientOption
	details := "application default credentials"
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
		details = "GOOGLE_CREDENTIALS"
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
		details = "GOOGLE_APPLICATION_CREDENTIALS"
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, wrap(op, ErrMissingCredentials, err.Error())
		}
		return nil, wrap(op, err, "failed to create client with "+details)
	}
	return newVisionReader(client), nil
}

func newVisionReader(client annotator) *VisionReader {
	return &VisionReader{
		client: client,
		log:    logger.WithComponent("ocr"),
		now:    time.Now,
	}
}

// ReadText returns only the recognized text of a prescription.
func (v *VisionReader) ReadText(ctx context.Context, data io.Reader) (string, error) {
	res, err := v.Read(ctx, data)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Read recognizes the text of an image or PDF prescription.
func (v *VisionReader) Read(ctx context.Context, data io.Reader) (*Result, error) {
	const op = "Read"
	start := v.now()

	content, err := io.ReadAll(io.LimitReader(data, MaxFileSizeBytes+1))
	if err != nil {
		return nil, wrap(op, err, "failed to read upload")
	}
	if len(content) > MaxFileSizeBytes {
		return nil, wrap(op, ErrFileTooLarge, "")
	}

	mt, err := DetectMimeType(content)
	if err != nil {
		return nil, wrap(op, err, "")
	}
	v.log.Debug().Str("mime_type", mt).Int("bytes", len(content)).Msg("Reading prescription")

	var res *Result
	if isFileType(mt) {
		res, err = v.annotateFile(ctx, content, mt)
	} else {
		res, err = v.annotateImage(ctx, content)
	}
	if err != nil {
		return nil, wrap(op, err, "")
	}

	res.MimeType = mt
	res.ProcessedAt = v.now()
	res.ProcessingDuration = res.ProcessedAt.Sub(start)

	v.log.Info().
		Str("mime_type", mt).
		Int("pages", res.PageCount).
		Float32("confidence", res.Confidence).
		Int("characters", len(res.Text)).
		Msg("Prescription text recognized")
	return res, nil
}

func (v *VisionReader) annotateImage(ctx context.Context, content []byte) (*Result, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image:    &visionpb.Image{Content: content},
				Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}
	return collectPages(resp.Responses)
}

func (v *VisionReader) annotateFile(ctx context.Context, content []byte, mimeType string) (*Result, error) {
	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{Content: content, MimeType: mimeType},
				Features:    []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrOCRFailed, fileResp.Error.Message)
	}
	if n := len(fileResp.Responses); n > MaxPagesSync {
		return nil, fmt.Errorf("%w: document has %d pages", ErrTooManyPages, n)
	}
	return collectPages(fileResp.Responses)
}

// collectPages joins the text of every page in order, separating pages with
// a marker line, and averages the page confidences.
func collectPages(pages []*visionpb.AnnotateImageResponse) (*Result, error) {
	var text strings.Builder
	var confidenceSum float32
	var confidenceCount int
	languages := make(map[string]bool)

	for i, page := range pages {
		if page.Error != nil {
			return nil, fmt.Errorf("%w: page %d: %s", ErrOCRFailed, i+1, page.Error.Message)
		}
		annotation := page.FullTextAnnotation
		if annotation == nil {
			continue
		}

		if i > 0 {
			fmt.Fprintf(&text, "\n\n--- Page %d ---\n\n", i+1)
		}
		text.WriteString(annotation.Text)

		for _, p := range annotation.Pages {
			if p.Confidence > 0 {
				confidenceSum += p.Confidence
				confidenceCount++
			}
			if p.Property == nil {
				continue
			}
			for _, lang := range p.Property.DetectedLanguages {
				if lang.LanguageCode != "" {
					languages[lang.LanguageCode] = true
				}
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyDocument
	}

	res := &Result{
		Text:      text.String(),
		PageCount: len(pages),
	}
	if confidenceCount > 0 {
		res.Confidence = confidenceSum / float32(confidenceCount)
	}
	for lang := range languages {
		res.LanguageCodes = append(res.LanguageCodes, lang)
	}
	sort.Strings(res.LanguageCodes)
	return res, nil
}

// Close releases the Vision client.
func (v *VisionReader) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
